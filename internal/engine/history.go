package engine

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/BB-fat/bloop/internal/transcoder"
)

const (
	// MaxHistoryExchanges is how many of the most recent exchanges the
	// model gets to see.
	MaxHistoryExchanges = 3

	// FunctionCallInstruction follows every user turn and tool result.
	FunctionCallInstruction = "Call a function. Do not answer"
)

// BuildHistory replays the last MaxHistoryExchanges exchanges as a
// transcript. Proc paths are encoded through aliases. Answers are
// re-encoded compactly and their conclusions dropped.
func BuildHistory(exchanges []*Exchange, aliases *AliasTable) ([]Message, error) {
	start := len(exchanges) - MaxHistoryExchanges
	if start < 0 {
		start = 0
	}

	var history []Message
	for _, e := range exchanges[start:] {
		target, ok := e.Target()
		if !ok {
			return nil, fmt.Errorf("exchange %s: %w", e.ID, ErrMissingTarget)
		}
		history = append(history,
			UserMessage(target),
			UserMessage(FunctionCallInstruction),
		)

		for _, s := range e.SearchSteps {
			args, err := stepArguments(s, aliases)
			if err != nil {
				return nil, fmt.Errorf("exchange %s: %w", e.ID, err)
			}
			history = append(history,
				FunctionCallMessage(FunctionCall{Name: s.Function(), Arguments: args}),
				FunctionReturnMessage(s.Function(), s.Output()),
				UserMessage(FunctionCallInstruction),
			)
		}

		if e.Answer != nil {
			encoded, err := transcoder.EncodeSummarized(e.Answer.Text)
			if err != nil {
				return nil, fmt.Errorf("exchange %s: %w", e.ID, err)
			}
			history = append(history, AssistantMessage(encoded))
		}
	}
	return history, nil
}

func stepArguments(s SearchStep, aliases *AliasTable) (string, error) {
	switch s := s.(type) {
	case PathStep:
		return fmt.Sprintf("{\n \"query\": %s\n}", jsonString(s.Query)), nil
	case CodeStep:
		return fmt.Sprintf("{\n \"query\": %s\n}", jsonString(s.Query)), nil
	case ProcStep:
		ids := make([]string, 0, len(s.Paths))
		for _, p := range s.Paths {
			alias, ok := aliases.Lookup(p)
			if !ok {
				return "", fmt.Errorf("%w: %s", ErrUnknownAlias, p)
			}
			ids = append(ids, strconv.Itoa(alias))
		}
		return fmt.Sprintf("{\n \"paths\": [%s],\n \"query\": %s\n}", strings.Join(ids, ", "), jsonString(s.Query)), nil
	default:
		return "", fmt.Errorf("unknown search step %T", s)
	}
}

// jsonString quotes s as a JSON string without HTML escaping.
func jsonString(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}
