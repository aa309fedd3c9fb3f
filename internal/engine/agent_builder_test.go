package engine

import (
	"context"
	"strings"
	"testing"
)

func TestAgentBuilderMissingDependencies(t *testing.T) {
	tests := []struct {
		name    string
		builder func() *AgentBuilder
		wantErr string
	}{
		{
			name:    "no llm",
			builder: func() *AgentBuilder { return NewAgentBuilder().WithTools(&fakeTools{}).WithPublisher(&recordingPublisher{}) },
			wantErr: "WithLLM",
		},
		{
			name:    "no tools",
			builder: func() *AgentBuilder { return NewAgentBuilder().WithLLM(&scriptedLLM{}).WithPublisher(&recordingPublisher{}) },
			wantErr: "WithTools",
		},
		{
			name:    "no publisher",
			builder: func() *AgentBuilder { return NewAgentBuilder().WithLLM(&scriptedLLM{}).WithTools(&fakeTools{}) },
			wantErr: "WithPublisher",
		},
		{
			name: "no model",
			builder: func() *AgentBuilder {
				return NewAgentBuilder().WithLLM(&scriptedLLM{}).WithTools(&fakeTools{}).WithPublisher(&recordingPublisher{}).WithModel("")
			},
			wantErr: "WithModel",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.builder().Build(context.Background())
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Build() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}

func TestAgentBuilderDefaults(t *testing.T) {
	a, err := NewAgentBuilder().
		WithLLM(&scriptedLLM{}).
		WithTools(&fakeTools{}).
		WithPublisher(&recordingPublisher{}).
		WithHooks(Hooks{}).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	st := a.State()
	if st.ThreadID == "" || st.QueryID == "" {
		t.Errorf("ids not generated: %#v", st)
	}
	if st.Model != DefaultAgentConfig().Model {
		t.Errorf("Model = %q, want %q", st.Model, DefaultAgentConfig().Model)
	}
	if st.Aliases.Len() != 0 {
		t.Errorf("Aliases.Len() = %d, want 0", st.Aliases.Len())
	}
}

func TestAgentBuilderSeedsThread(t *testing.T) {
	prior := []Exchange{
		{ID: "e1", Query: ParseQuery("q1"), Paths: []string{"a.go", "b.go"}},
		{ID: "e2", Query: ParseQuery("q2"), Paths: []string{"c.go"}},
	}

	a, err := NewAgentBuilder().
		WithLLM(&scriptedLLM{}).
		WithTools(&fakeTools{}).
		WithPublisher(&recordingPublisher{}).
		WithHooks(Hooks{}).
		WithThreadID("thread-1").
		WithExchanges(prior).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	st := a.State()
	if st.ThreadID != "thread-1" {
		t.Errorf("ThreadID = %q, want thread-1", st.ThreadID)
	}
	if got, ok := st.Aliases.Lookup("c.go"); !ok || got != 2 {
		t.Errorf("Lookup(c.go) = %d, %v; want 2", got, ok)
	}

	prior[0].Paths[0] = "changed.go"
	if st.Exchanges[0].Paths[0] != "a.go" {
		t.Error("seeded exchanges share memory with the caller")
	}
}

func TestAgentBuilderCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewAgentBuilder().
		WithLLM(&scriptedLLM{}).
		WithTools(&fakeTools{}).
		WithPublisher(&recordingPublisher{}).
		Build(ctx)
	if err == nil {
		t.Error("Build() with cancelled context should fail")
	}
}

func TestAgentBuilderSharesTokenizerWithState(t *testing.T) {
	tok := flatTokenizer{n: 7}
	a, err := NewAgentBuilder().
		WithModel("gpt-4-0613").
		WithLLM(&scriptedLLM{}).
		WithTools(&fakeTools{}).
		WithPublisher(&recordingPublisher{}).
		WithHooks(Hooks{}).
		WithTokenizer(tok).
		Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	defer a.Close()

	if a.State().Tokenizer != Tokenizer(tok) {
		t.Errorf("State().Tokenizer = %#v, want %#v", a.State().Tokenizer, tok)
	}
	if a.tokenizer != a.State().Tokenizer {
		t.Error("agent and state count with different tokenizers")
	}
}
