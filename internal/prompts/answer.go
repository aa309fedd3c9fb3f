package prompts

import "strings"

var answerPromptV1 = &Prompt{
	ID:      AnswerPromptID,
	Version: PromptV1,
	Content: `You are an expert programmer answering questions about a single code repository.
{{repo}}
Answer the user's query using only the code and paths below. Quote short code snippets with fenced code blocks and reference files by their path. If the context is not enough to answer, say what is missing instead of guessing.

End your answer with a "## Summary" heading followed by one or two sentences.
{{rules}}
#### CONTEXT ####
{{context}}

#### QUERY ####
{{query}}`,
	Description: "Final answer rendering prompt",
	Tags:        []string{"answer"},
}

// AnswerPrompt renders the answer prompt for a query over the given
// context block. rules are the repository's own instructions, if any.
func AnswerPrompt(repo, query, context, rules string) (string, error) {
	builder, err := NewPromptBuilder(DefaultRegistry(), AnswerPromptID, "")
	if err != nil {
		return "", err
	}
	if repo != "" {
		repo = "The repository is " + repo + "."
	}
	if rules = strings.TrimSpace(rules); rules != "" {
		rules = "\nFollow these notes from the repository maintainers:\n" + rules + "\n"
	}
	return builder.
		SetVariable("repo", repo).
		SetVariable("rules", rules).
		SetVariable("context", context).
		SetVariable("query", query).
		Build()
}
