package prompts

// PromptVersion represents a version identifier for prompts.
type PromptVersion string

const (
	PromptV1 PromptVersion = "1.0.0"
	PromptV2 PromptVersion = "2.0.0"
)

// Prompt IDs of the built-in prompts.
const (
	AgentPromptID  = "agent"
	AnswerPromptID = "answer"
)

// Prompt represents a versioned prompt with metadata.
type Prompt struct {
	ID          string        // Unique identifier (e.g., "agent", "answer")
	Version     PromptVersion // Version of this prompt
	Content     string        // Prompt text, may contain {{variable}} placeholders
	Description string
	Tags        []string
	Deprecated  bool
}

var builtin = []*Prompt{agentPromptV1, agentPromptV2, answerPromptV1}
