package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/BB-fat/bloop/internal/engine"
)

// MockLLM is a simple mock for the Completer interface
type MockLLM struct {
	Response string
	Err      error

	Messages []engine.Message
}

func (m *MockLLM) Complete(_ context.Context, _ string, messages []engine.Message) (string, error) {
	m.Messages = messages
	return m.Response, m.Err
}

func TestSummarizer_GenerateTitle(t *testing.T) {
	history := []Exchange{
		{Query: "where is the login bug", Answer: &engine.FinalAnswer{Text: "...", Conclusion: "auth/login.go"}},
	}

	tests := []struct {
		name    string
		llm     Completer
		want    string
		wantErr bool
	}{
		{name: "model title", llm: &MockLLM{Response: "  \"Login Bug Hunt\"\n"}, want: "Login Bug Hunt"},
		{name: "empty reply", llm: &MockLLM{Response: " "}, want: "where is the login bug"},
		{name: "model error", llm: &MockLLM{Err: errors.New("rate limited")}, want: "where is the login bug", wantErr: true},
		{name: "no model", want: "where is the login bug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, err := NewSummarizer(tt.llm, "test-model").GenerateTitle(context.Background(), history)
			if (err != nil) != tt.wantErr {
				t.Fatalf("GenerateTitle() error = %v, wantErr %v", err, tt.wantErr)
			}
			if title != tt.want {
				t.Errorf("GenerateTitle() = %q, want %q", title, tt.want)
			}
		})
	}
}

func TestSummarizer_PromptCarriesConclusions(t *testing.T) {
	mock := &MockLLM{Response: "Auth"}
	history := []Exchange{
		{Query: "where is the login bug", Answer: &engine.FinalAnswer{Conclusion: "auth/login.go"}},
	}
	if _, err := NewSummarizer(mock, "m").GenerateTitle(context.Background(), history); err != nil {
		t.Fatal(err)
	}
	if len(mock.Messages) != 2 {
		t.Fatalf("sent %d messages", len(mock.Messages))
	}
	user := mock.Messages[1].Content
	if !strings.Contains(user, "Q: where is the login bug") || !strings.Contains(user, "A: auth/login.go") {
		t.Errorf("prompt = %q", user)
	}
}

func TestClip(t *testing.T) {
	long := strings.Repeat("word ", 30)
	got := clip(long)
	if n := len([]rune(got)); n != MaxTitleLen && n != MaxTitleLen-1 {
		t.Errorf("clip() length = %d", n)
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("clip() = %q, want ellipsis", got)
	}
	if got := clip("  a \n b "); got != "a b" {
		t.Errorf("clip() = %q", got)
	}
}

func TestGenerateTitleEmpty(t *testing.T) {
	title, err := NewSummarizer(&MockLLM{}, "m").GenerateTitle(context.Background(), nil)
	if err != nil || title != "New thread" {
		t.Errorf("GenerateTitle(nil) = %q, %v", title, err)
	}
}
