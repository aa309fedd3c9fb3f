package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	openai "github.com/meguminnnnnnnnn/go-openai"

	"github.com/BB-fat/bloop/internal/engine"
)

// OpenAIClient implements engine.ModelClient on the OpenAI chat API and
// any endpoint compatible with it.
type OpenAIClient struct {
	client  *openai.Client
	baseURL string
}

// NewOpenAIClient creates a client. baseURL may be empty for api.openai.com.
func NewOpenAIClient(apiKey, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAIClient{
		client:  openai.NewClientWithConfig(config),
		baseURL: baseURL,
	}
}

// toOpenAIMessages converts a transcript. Function calls become tool calls
// with synthetic ids and each function return answers the call before it.
func toOpenAIMessages(messages []engine.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	var callID string
	calls := 0

	for _, msg := range messages {
		switch msg.Kind() {
		case engine.KindFunctionCall:
			calls++
			callID = fmt.Sprintf("call_%d", calls)
			out = append(out, openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   callID,
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      msg.FunctionCall.Name,
						Arguments: msg.FunctionCall.Arguments,
					},
				}},
			})

		case engine.KindFunctionReturn:
			if callID == "" {
				// A return without a call would be rejected; replay it as text.
				out = append(out, openai.ChatCompletionMessage{
					Role:    openai.ChatMessageRoleUser,
					Content: msg.Content,
				})
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			out = append(out, openai.ChatCompletionMessage{
				Role:       openai.ChatMessageRoleTool,
				ToolCallID: callID,
				Content:    content,
			})
			callID = ""

		default:
			role := openai.ChatMessageRoleUser
			switch msg.Role {
			case engine.RoleSystem:
				role = openai.ChatMessageRoleSystem
			case engine.RoleAssistant:
				role = openai.ChatMessageRoleAssistant
			}
			out = append(out, openai.ChatCompletionMessage{Role: role, Content: msg.Content})
		}
	}
	return out
}

func toOpenAITools(functions []engine.FunctionSchema) ([]openai.Tool, error) {
	tools := make([]openai.Tool, 0, len(functions))
	for _, fn := range functions {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(fn.Parameters), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid function schema JSON for %s: %w", fn.Name, err)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  schemaObj,
			},
		})
	}
	return tools, nil
}

// Stream implements engine.ModelClient. Only the first tool call of the
// reply is forwarded; its name and argument deltas arrive as fragments.
func (c *OpenAIClient) Stream(ctx context.Context, model string, messages []engine.Message, functions []engine.FunctionSchema) (<-chan engine.Fragment, <-chan error) {
	fragCh := make(chan engine.Fragment, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(fragCh)
		defer close(errCh)

		tools, err := toOpenAITools(functions)
		if err != nil {
			errCh <- err
			return
		}

		req := openai.ChatCompletionRequest{
			Model:    model,
			Messages: toOpenAIMessages(messages),
			Stream:   true,
		}
		if len(tools) > 0 {
			req.Tools = tools
			req.ToolChoice = "auto"
		}

		stream, err := c.client.CreateChatCompletionStream(ctx, req)
		if err != nil {
			errCh <- wrapProviderError("openai", err)
			return
		}
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				errCh <- nil
				return
			}
			if err != nil {
				errCh <- wrapProviderError("openai", err)
				return
			}
			if len(response.Choices) == 0 {
				continue
			}

			for _, tc := range response.Choices[0].Delta.ToolCalls {
				if tc.Index != nil && *tc.Index != 0 {
					continue
				}
				if tc.Function.Name == "" && tc.Function.Arguments == "" {
					continue
				}
				select {
				case fragCh <- engine.Fragment{Name: tc.Function.Name, Arguments: tc.Function.Arguments}:
				case <-ctx.Done():
					errCh <- ctx.Err()
					return
				}
			}
		}
	}()

	return fragCh, errCh
}

// Complete runs a plain chat completion and returns the reply text.
func (c *OpenAIClient) Complete(ctx context.Context, model string, messages []engine.Message) (string, error) {
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    model,
		Messages: toOpenAIMessages(messages),
	})
	if err != nil {
		return "", wrapProviderError("openai", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty response from OpenAI")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
