package prompts

import (
	"fmt"
	"strings"
)

var agentPromptV1 = &Prompt{
	ID:      AgentPromptID,
	Version: PromptV1,
	Content: `{{paths}}Your job is to choose the best action. Call functions to find information that will help answer the user's query. Call functions.none when you have enough information to answer.
- ALWAYS call a function, DO NOT answer the question directly
- Only call functions.proc with path indices that are under the PATHS heading above`,
	Description: "Action selection prompt, first revision",
	Tags:        []string{"agent", "functions"},
	Deprecated:  true,
}

var agentPromptV2 = &Prompt{
	ID:      AgentPromptID,
	Version: PromptV2,
	Content: `{{paths}}Your job is to choose the best action. Call functions to find information that will help answer the user's query. Call functions.none when you have enough information to answer. Follow these rules at all times:

- ALWAYS call a function, DO NOT answer the question directly, even if the query is not in English
- DO NOT call a function that you've used before with the same arguments
- DO NOT assume the structure of the codebase, or the existence of files or folders
- Call functions.none with paths that you are confident will help answer the user's query
- If the user query is general (e.g. 'What does this do?', 'What is this repo?') look for READMEs, documentation and entry points in the code (main files, index files, api files etc.)
- If the user is referring to, or asking for, information that is in your history, call functions.none
- If after attempting to gather information you are still unsure how to answer the query, call functions.none
- If the query is a greeting, or not a question or an instruction call functions.none
- When calling functions.code your query should consist of keywords. E.g. if the user says 'What does contextmanager do?', your query should be 'contextmanager'. If the user says 'How is contextmanager used in app', your query should be 'contextmanager app'
- If functions.code or functions.path did not return any relevant information, call them again with a SIGNIFICANTLY different query. The terms in the new query should not overlap with terms in your old one
- If the output of a function is empty, try calling the function again with DIFFERENT arguments OR try calling a different function
- Only call functions.proc with path indices that are under the PATHS heading above
- Call functions.proc with paths that might contain relevant information, either because of the path name or to expand on code returned by functions.code
- DO NOT call functions.proc with more than 5 paths
- DO NOT call functions.proc on the same file more than once
- ALWAYS call a function. DO NOT answer the question directly`,
	Description: "Action selection prompt",
	Tags:        []string{"agent", "functions"},
}

// SystemPrompt renders the latest agent prompt with the session's aliased
// paths, one "alias path" row each, under a PATHS heading.
func SystemPrompt(paths []string) (string, error) {
	builder, err := NewPromptBuilder(DefaultRegistry(), AgentPromptID, "")
	if err != nil {
		return "", err
	}
	return builder.SetVariable("paths", formatPaths(paths)).Build()
}

func formatPaths(paths []string) string {
	if len(paths) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("## PATHS ##\nalias, path\n")
	for i, p := range paths {
		fmt.Fprintf(&sb, "%d, %s\n", i, p)
	}
	sb.WriteString("\n")
	return sb.String()
}
