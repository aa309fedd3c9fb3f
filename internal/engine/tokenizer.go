// Package engine drives the repository question-answering agent.
// This file contains token counting interfaces and implementations.

package engine

import (
	"fmt"
	"strings"
)

// Tokenizer provides token counting for text.
// Different models use different tokenization schemes, so the model name is required.
type Tokenizer interface {
	// CountTokens returns the number of tokens in the given text for the specified model.
	CountTokens(text string, model string) (int, error)
}

const (
	tokensPerMessage = 3 // <|start|>{role}<|message|>...<|end|>
	tokensPerName    = 1
	replyPriming     = 3 // every reply is primed with <|start|>assistant<|message|>
)

// EstimateTokens provides a rough token count estimation.
// Uses a simple heuristic: ~4 characters per token for English/code.
func EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}

	charCount := len([]rune(text))

	// Whitespace-heavy text has fewer tokens per character
	whitespaceCount := strings.Count(text, " ") + strings.Count(text, "\n") + strings.Count(text, "\t")

	estimated := (charCount / 4) + (whitespaceCount / 6)
	if estimated < 1 {
		return 1
	}

	return estimated
}

// DefaultTokenizer uses estimation when no model-specific tokenizer is available.
type DefaultTokenizer struct{}

// CountTokens implements Tokenizer using estimation.
func (t DefaultTokenizer) CountTokens(text string, model string) (int, error) {
	return EstimateTokens(text), nil
}

// CountMessageTokens returns the cost of a single message, including the
// per-message framing overhead.
func CountMessageTokens(tokenizer Tokenizer, msg Message, model string) (int, error) {
	total := tokensPerMessage

	roleTokens, err := tokenizer.CountTokens(string(msg.Role), model)
	if err != nil {
		return 0, fmt.Errorf("failed to count role tokens: %w", err)
	}
	total += roleTokens

	contentTokens, err := tokenizer.CountTokens(msg.Content, model)
	if err != nil {
		return 0, fmt.Errorf("failed to count content tokens: %w", err)
	}
	total += contentTokens

	if msg.Name != "" {
		nameTokens, err := tokenizer.CountTokens(msg.Name, model)
		if err != nil {
			return 0, fmt.Errorf("failed to count name tokens: %w", err)
		}
		total += nameTokens + tokensPerName
	}

	if call := msg.FunctionCall; call != nil {
		nameTokens, err := tokenizer.CountTokens(call.Name, model)
		if err != nil {
			return 0, fmt.Errorf("failed to count function call name tokens: %w", err)
		}
		argsTokens, err := tokenizer.CountTokens(call.Arguments, model)
		if err != nil {
			return 0, fmt.Errorf("failed to count function call args tokens: %w", err)
		}
		total += nameTokens + argsTokens
	}

	return total, nil
}

// CountTokensForMessages counts tokens for a whole prompt, including the
// priming of the model's reply.
func CountTokensForMessages(tokenizer Tokenizer, messages []Message, model string) (int, error) {
	total := replyPriming
	for _, msg := range messages {
		n, err := CountMessageTokens(tokenizer, msg, model)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

// CountTokensForFunctions estimates the cost of the function catalog.
func CountTokensForFunctions(tokenizer Tokenizer, functions []FunctionSchema, model string) (int, error) {
	total := 0
	for _, fn := range functions {
		for _, s := range []string{fn.Name, fn.Description, fn.Parameters} {
			n, err := tokenizer.CountTokens(s, model)
			if err != nil {
				return 0, fmt.Errorf("failed to count function %s tokens: %w", fn.Name, err)
			}
			total += n
		}
		total += 10 // per-function framing
	}
	return total, nil
}

// GetTokenizerForModel returns an appropriate tokenizer for the given model.
func GetTokenizerForModel(model string) Tokenizer {
	return DefaultTokenizer{}
}
