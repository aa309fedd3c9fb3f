// Package engine drives the repository question-answering agent.
// This file contains token budget management and history redaction.

package engine

import "fmt"

const (
	// Headroom is the number of tokens that must stay free for the reply.
	Headroom = 2048

	// Hidden replaces the content of redacted messages.
	Hidden = "[HIDDEN]"
)

type trimStats struct {
	Before int // prompt tokens before redaction
	After  int // prompt tokens after redaction
	Hidden int // messages redacted by this pass
}

// TrimHistory fits a transcript into model's context window, leaving at
// least Headroom tokens for the reply. The earliest assistant plain-text
// or function-return message not already hidden is redacted first, one at
// a time. System, user and function-call messages are never touched. If
// nothing is left to hide the result is a *TrimError. The input slice is
// not modified.
func TrimHistory(history []Message, model string, tokenizer Tokenizer) ([]Message, error) {
	trimmed, _, err := trimHistory(history, model, tokenizer)
	return trimmed, err
}

func trimHistory(history []Message, model string, tokenizer Tokenizer) ([]Message, trimStats, error) {
	if tokenizer == nil {
		tokenizer = GetTokenizerForModel(model)
	}
	maxTokens := ContextWindow(model)

	msgs := make([]Message, len(history))
	copy(msgs, history)

	// costs[i] tracks the cost of msgs[i] so each redaction only
	// recounts the message it touched.
	costs := make([]int, len(msgs))
	total := replyPriming
	for i, m := range msgs {
		if err := m.Validate(); err != nil {
			return nil, trimStats{}, fmt.Errorf("message %d: %w", i, err)
		}
		n, err := CountMessageTokens(tokenizer, m, model)
		if err != nil {
			return nil, trimStats{}, err
		}
		costs[i] = n
		total += n
	}

	stats := trimStats{Before: total}
	for maxTokens-total < Headroom {
		i := nextRedactable(msgs)
		if i < 0 {
			return nil, stats, &TrimError{
				Model:     model,
				Remaining: maxTokens - total,
				Headroom:  Headroom,
				Hidden:    stats.Hidden,
			}
		}

		msgs[i].Content = Hidden
		n, err := CountMessageTokens(tokenizer, msgs[i], model)
		if err != nil {
			return nil, stats, err
		}
		total += n - costs[i]
		costs[i] = n
		stats.Hidden++
	}
	stats.After = total

	return msgs, stats, nil
}

// nextRedactable returns the index of the first message that may still be
// hidden, or -1.
func nextRedactable(msgs []Message) int {
	for i, m := range msgs {
		if m.Content == Hidden {
			continue
		}
		switch m.Kind() {
		case KindPlainText:
			if m.Role == RoleAssistant {
				return i
			}
		case KindFunctionReturn:
			return i
		}
	}
	return -1
}
