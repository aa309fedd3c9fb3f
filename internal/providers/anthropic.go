package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/BB-fat/bloop/internal/engine"
)

const anthropicMaxTokens = 4096

// AnthropicClient implements engine.ModelClient on the Anthropic messages
// API. Functions are offered as tools.
type AnthropicClient struct {
	client *anthropic.Client
}

// NewAnthropicClient creates a client for apiKey.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{client: anthropic.NewClient(apiKey)}
}

// toAnthropicMessages converts a transcript. System messages are returned
// separately since the API takes them outside the message list.
func toAnthropicMessages(messages []engine.Message) ([]anthropic.MessageSystemPart, []anthropic.Message) {
	var system []anthropic.MessageSystemPart
	var out []anthropic.Message
	var callID string
	calls := 0

	for _, msg := range messages {
		switch msg.Kind() {
		case engine.KindFunctionCall:
			calls++
			callID = fmt.Sprintf("toolu_%d", calls)
			args := msg.FunctionCall.Arguments
			if !json.Valid([]byte(args)) {
				args = "{}"
			}
			out = append(out, anthropic.Message{
				Role: anthropic.RoleAssistant,
				Content: []anthropic.MessageContent{
					anthropic.NewToolUseMessageContent(callID, msg.FunctionCall.Name, json.RawMessage(args)),
				},
			})

		case engine.KindFunctionReturn:
			if callID == "" {
				out = append(out, anthropic.Message{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
				})
				continue
			}
			content := msg.Content
			if content == "" {
				content = "{}"
			}
			out = append(out, anthropic.Message{
				Role:    anthropic.RoleUser,
				Content: []anthropic.MessageContent{anthropic.NewToolResultMessageContent(callID, content, false)},
			})
			callID = ""

		default:
			switch msg.Role {
			case engine.RoleSystem:
				system = append(system, anthropic.MessageSystemPart{Type: "text", Text: msg.Content})
			case engine.RoleAssistant:
				out = append(out, anthropic.Message{
					Role:    anthropic.RoleAssistant,
					Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
				})
			default:
				out = append(out, anthropic.Message{
					Role:    anthropic.RoleUser,
					Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(msg.Content)},
				})
			}
		}
	}
	return system, out
}

func toAnthropicTools(functions []engine.FunctionSchema) ([]anthropic.ToolDefinition, error) {
	defs := make([]anthropic.ToolDefinition, 0, len(functions))
	for _, fn := range functions {
		var schemaObj map[string]any
		if err := json.Unmarshal([]byte(fn.Parameters), &schemaObj); err != nil {
			return nil, fmt.Errorf("invalid function schema JSON for %s: %w", fn.Name, err)
		}
		defs = append(defs, anthropic.ToolDefinition{
			Name:        fn.Name,
			Description: fn.Description,
			InputSchema: schemaObj,
		})
	}
	return defs, nil
}

// Stream implements engine.ModelClient. The SDK delivers a tool_use block
// once it is complete, so each call arrives as a single fragment. Only the
// first tool_use block is forwarded.
func (c *AnthropicClient) Stream(ctx context.Context, model string, messages []engine.Message, functions []engine.FunctionSchema) (<-chan engine.Fragment, <-chan error) {
	fragCh := make(chan engine.Fragment, 4)
	errCh := make(chan error, 1)

	go func() {
		defer close(fragCh)
		defer close(errCh)

		tools, err := toAnthropicTools(functions)
		if err != nil {
			errCh <- err
			return
		}
		system, msgs := toAnthropicMessages(messages)

		temperature := float32(0)
		req := anthropic.MessagesStreamRequest{
			MessagesRequest: anthropic.MessagesRequest{
				Model:       anthropic.Model(model),
				Messages:    msgs,
				MaxTokens:   anthropicMaxTokens,
				Temperature: &temperature,
			},
		}
		if len(system) > 0 {
			req.MultiSystem = system
		}
		if len(tools) > 0 {
			req.Tools = tools
		}

		var (
			mu        sync.Mutex
			forwarded bool
			streamErr error
		)
		req.OnError = func(errResp anthropic.ErrorResponse) {
			mu.Lock()
			defer mu.Unlock()
			if streamErr == nil {
				streamErr = fmt.Errorf("anthropic streaming error: %s", errResp.Error.Message)
			}
		}
		req.OnContentBlockStop = func(_ anthropic.MessagesEventContentBlockStopData, content anthropic.MessageContent) {
			if content.Type != "tool_use" || content.MessageContentToolUse == nil {
				return
			}
			mu.Lock()
			if forwarded {
				mu.Unlock()
				return
			}
			forwarded = true
			mu.Unlock()

			tc := content.MessageContentToolUse
			args := string(tc.Input)
			if args == "" {
				args = "{}"
			}
			select {
			case fragCh <- engine.Fragment{Name: tc.Name, Arguments: args}:
			case <-ctx.Done():
			}
		}

		if _, err := c.client.CreateMessagesStream(ctx, req); err != nil {
			errCh <- wrapProviderError("anthropic", err)
			return
		}
		mu.Lock()
		defer mu.Unlock()
		if streamErr != nil {
			errCh <- wrapProviderError("anthropic", streamErr)
			return
		}
		errCh <- nil
	}()

	return fragCh, errCh
}

// Complete runs a plain message request and returns the reply text.
func (c *AnthropicClient) Complete(ctx context.Context, model string, messages []engine.Message) (string, error) {
	system, msgs := toAnthropicMessages(messages)
	req := anthropic.MessagesRequest{
		Model:     anthropic.Model(model),
		Messages:  msgs,
		MaxTokens: anthropicMaxTokens,
	}
	if len(system) > 0 {
		req.MultiSystem = system
	}

	resp, err := c.client.CreateMessages(ctx, req)
	if err != nil {
		return "", wrapProviderError("anthropic", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			sb.WriteString(*block.Text)
		}
	}
	return strings.TrimSpace(sb.String()), nil
}
