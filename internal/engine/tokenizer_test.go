package engine

import (
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{
			name: "empty",
			text: "",
			want: 0,
		},
		{
			name: "short word",
			text: "hello",
			want: 1, // 5 chars / 4 = 1
		},
		{
			name: "sentence",
			text: "hello world this is a test",
			want: 6, // 26 chars / 4 = 6 + whitespace/6 ~ 0 = 6
		},
		{
			name: "code snippet",
			text: "func main() { fmt.Println(\"hello\") }",
			want: 9, // 36 chars / 4 = 9 + whitespace/6 ~ 0 = 9
		},
		{
			name: "sentinel",
			text: Hidden,
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EstimateTokens(tt.text)
			if got != tt.want {
				t.Errorf("EstimateTokens() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountMessageTokens(t *testing.T) {
	tokenizer := DefaultTokenizer{}
	model := "test-model"

	tests := []struct {
		name string
		msg  Message
		want int
	}{
		{
			name: "user",
			msg:  UserMessage("hello"),
			// Overhead(3) + Role(user=1) + Content(hello=1)
			want: 5,
		},
		{
			name: "function return",
			msg:  FunctionReturnMessage("path", "result text"),
			// Overhead(3) + Role(function=2) + Content(2) + Name(1) + NameOverhead(1)
			want: 9,
		},
		{
			name: "function call",
			msg:  FunctionCallMessage(FunctionCall{Name: "code", Arguments: `{"query":"x"}`}),
			// Overhead(3) + Role(assistant=2) + CallName(1) + Args(13/4=3)
			want: 9,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CountMessageTokens(tokenizer, tt.msg, model)
			if err != nil {
				t.Fatalf("CountMessageTokens() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CountMessageTokens() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountTokensForMessages(t *testing.T) {
	tokenizer := DefaultTokenizer{}

	got, err := CountTokensForMessages(tokenizer, nil, "m")
	if err != nil {
		t.Fatalf("CountTokensForMessages() error = %v", err)
	}
	if got != replyPriming {
		t.Errorf("empty prompt = %d, want %d", got, replyPriming)
	}

	got, err = CountTokensForMessages(tokenizer, []Message{UserMessage("hello"), UserMessage("hello")}, "m")
	if err != nil {
		t.Fatalf("CountTokensForMessages() error = %v", err)
	}
	if got != replyPriming+10 {
		t.Errorf("two messages = %d, want %d", got, replyPriming+10)
	}
}

func TestContextWindow(t *testing.T) {
	tests := []struct {
		model string
		want  int
	}{
		{"gpt-4-0613", 8192},
		{"gpt-4", 8192},
		{"gpt-4-32k-0613", 32768},
		{"gpt-4o-mini", 128000},
		{"gpt-4-turbo", 128000},
		{"gpt-3.5-turbo", 4096},
		{"gpt-3.5-turbo-16k", 16384},
		{"claude-3-5-sonnet-20241022", 200000},
		{"deepseek-chat", 64000},
		{"llama-3", defaultContextWindow},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			if got := ContextWindow(tt.model); got != tt.want {
				t.Errorf("ContextWindow(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}
