package engine

import (
	"context"
	"fmt"
)

// MessageRole represents the role of a transcript message.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleFunction  MessageRole = "function"
)

// MessageKind tags the three shapes a transcript message can take.
type MessageKind int

const (
	KindPlainText MessageKind = iota
	KindFunctionCall
	KindFunctionReturn
)

func (k MessageKind) String() string {
	switch k {
	case KindFunctionCall:
		return "function_call"
	case KindFunctionReturn:
		return "function_return"
	default:
		return "plain_text"
	}
}

// Message is the provider-agnostic transcript unit we pass around.
// Messages are values: redaction produces a modified copy.
type Message struct {
	Role         MessageRole   `json:"role"`
	Content      string        `json:"content,omitempty"`
	Name         string        `json:"name,omitempty"`          // function name for function-return messages
	FunctionCall *FunctionCall `json:"function_call,omitempty"` // set only on function-call messages
}

// Kind reports which variant of the transcript union m is.
func (m Message) Kind() MessageKind {
	switch {
	case m.FunctionCall != nil:
		return KindFunctionCall
	case m.Role == RoleFunction:
		return KindFunctionReturn
	default:
		return KindPlainText
	}
}

// Validate checks if the Message is well formed.
func (m Message) Validate() error {
	switch m.Role {
	case RoleSystem, RoleUser, RoleAssistant, RoleFunction:
	default:
		return fmt.Errorf("invalid message role: %s", m.Role)
	}
	if m.Role == RoleFunction && m.Name == "" {
		return fmt.Errorf("function return messages must have a Name field")
	}
	if m.FunctionCall != nil && m.Role != RoleAssistant {
		return fmt.Errorf("function calls must come from the assistant, got %s", m.Role)
	}
	return nil
}

func SystemMessage(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func AssistantMessage(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// FunctionCallMessage records a call the assistant made.
func FunctionCallMessage(call FunctionCall) Message {
	return Message{Role: RoleAssistant, FunctionCall: &call}
}

// FunctionReturnMessage carries a tool response back to the model.
func FunctionReturnMessage(name, content string) Message {
	return Message{Role: RoleFunction, Name: name, Content: content}
}

// FunctionCall is the model's request to invoke one function. An empty
// Name means the model never sent one.
type FunctionCall struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments"`
}

// Fragment is one incremental piece of a streamed function call.
type Fragment struct {
	Name      string
	Arguments string
}

// FunctionSchema is a function the model may call, with its parameters
// kept as a raw JSON schema string.
type FunctionSchema struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters"`
}

// ModelClient abstracts the chat model API (OpenAI, Anthropic, etc.).
// The fragment channel is closed when the reply ends; the error channel
// yields at most one value, nil on success.
type ModelClient interface {
	Stream(ctx context.Context, model string, messages []Message, functions []FunctionSchema) (<-chan Fragment, <-chan error)
}
