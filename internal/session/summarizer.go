package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/BB-fat/bloop/internal/engine"
)

// Completer renders plain text from a transcript.
type Completer interface {
	Complete(ctx context.Context, model string, messages []engine.Message) (string, error)
}

// MaxTitleLen bounds titles, generated or not.
const MaxTitleLen = 60

// Summarizer names threads.
type Summarizer struct {
	llm   Completer
	model string
}

// NewSummarizer creates a new thread summarizer. llm may be nil, in which
// case titles are taken from the first query.
func NewSummarizer(llm Completer, model string) *Summarizer {
	return &Summarizer{
		llm:   llm,
		model: model,
	}
}

// GenerateTitle generates a short 3-5 word title for the thread. If the
// model fails the first query is used instead, so a title is always
// returned along with any error.
func (s *Summarizer) GenerateTitle(ctx context.Context, exchanges []Exchange) (string, error) {
	if len(exchanges) == 0 {
		return "New thread", nil
	}
	fallback := clip(exchanges[0].Query)
	if s.llm == nil {
		return fallback, nil
	}

	const systemPrompt = "Generate a short, concise title (3-5 words) for this conversation about a code repository. Do not use quotes or punctuation."

	var sb strings.Builder
	for _, e := range exchanges[:min(len(exchanges), 3)] {
		fmt.Fprintf(&sb, "Q: %s\n", e.Query)
		if e.Answer != nil && e.Answer.Conclusion != "" {
			fmt.Fprintf(&sb, "A: %s\n", e.Answer.Conclusion)
		}
	}

	resp, err := s.llm.Complete(ctx, s.model, []engine.Message{
		engine.SystemMessage(systemPrompt),
		engine.UserMessage(sb.String() + "\nGenerate Title:"),
	})
	if err != nil {
		return fallback, fmt.Errorf("failed to generate title: %w", err)
	}
	title := clip(strings.Trim(strings.TrimSpace(resp), `"'`))
	if title == "" {
		return fallback, nil
	}
	return title, nil
}

func clip(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > MaxTitleLen {
		return strings.TrimSpace(string(r[:MaxTitleLen-1])) + "…"
	}
	return s
}
