package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/BB-fat/bloop/internal/analytics"
)

// AgentBuilder helps construct an Agent with a fluent API.
type AgentBuilder struct {
	config    AgentConfig
	llm       ModelClient
	tools     Tools
	tracker   analytics.Tracker
	publisher Publisher
	hooks     Hooks
	tokenizer Tokenizer
	exchanges []*Exchange
}

// NewAgentBuilder creates a new agent builder with default configuration.
func NewAgentBuilder() *AgentBuilder {
	return &AgentBuilder{
		config: DefaultAgentConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *AgentBuilder) WithConfig(cfg AgentConfig) *AgentBuilder {
	b.config = cfg
	return b
}

// WithModel sets the model name.
func (b *AgentBuilder) WithModel(model string) *AgentBuilder {
	b.config.Model = model
	return b
}

// WithLLM sets the model client.
func (b *AgentBuilder) WithLLM(llm ModelClient) *AgentBuilder {
	b.llm = llm
	return b
}

// WithTools sets the retrieval tools.
func (b *AgentBuilder) WithTools(tools Tools) *AgentBuilder {
	b.tools = tools
	return b
}

// WithTracker sets the analytics sink. Defaults to analytics.Nop.
func (b *AgentBuilder) WithTracker(t analytics.Tracker) *AgentBuilder {
	b.tracker = t
	return b
}

// WithPublisher sets where exchange snapshots are sent.
func (b *AgentBuilder) WithPublisher(p Publisher) *AgentBuilder {
	b.publisher = p
	return b
}

// WithHooks sets custom hooks.
func (b *AgentBuilder) WithHooks(hooks Hooks) *AgentBuilder {
	b.hooks = hooks
	return b
}

// WithTokenizer overrides the tokenizer used for trimming.
func (b *AgentBuilder) WithTokenizer(t Tokenizer) *AgentBuilder {
	b.tokenizer = t
	return b
}

// WithRepo sets the repository reference reported in analytics.
func (b *AgentBuilder) WithRepo(repo string) *AgentBuilder {
	b.config.Repo = repo
	return b
}

// WithUser sets the user reported in analytics.
func (b *AgentBuilder) WithUser(user string) *AgentBuilder {
	b.config.User = user
	return b
}

// WithThreadID continues an existing conversation thread.
func (b *AgentBuilder) WithThreadID(id string) *AgentBuilder {
	b.config.ThreadID = id
	return b
}

// WithExchanges seeds the session with earlier exchanges of the thread.
// Their paths keep the aliases they had.
func (b *AgentBuilder) WithExchanges(exchanges []Exchange) *AgentBuilder {
	b.exchanges = make([]*Exchange, 0, len(exchanges))
	for _, e := range exchanges {
		cp := e.Snapshot()
		b.exchanges = append(b.exchanges, &cp)
	}
	return b
}

// Build constructs the Agent instance.
func (b *AgentBuilder) Build(ctx context.Context) (*Agent, error) {
	if b.llm == nil {
		return nil, fmt.Errorf("model client not configured: use WithLLM")
	}
	if b.tools == nil {
		return nil, fmt.Errorf("tools not configured: use WithTools")
	}
	if b.publisher == nil {
		return nil, fmt.Errorf("publisher not configured: use WithPublisher")
	}
	if b.config.Model == "" {
		return nil, fmt.Errorf("model not configured: use WithModel")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if b.tracker == nil {
		b.tracker = analytics.Nop{}
	}
	if b.hooks == nil {
		b.hooks = DefaultHooks(nil)
	}
	if b.tokenizer == nil {
		b.tokenizer = GetTokenizerForModel(b.config.Model)
	}

	threadID := b.config.ThreadID
	if threadID == "" {
		threadID = uuid.NewString()
	}

	state := &State{
		ThreadID:  threadID,
		QueryID:   uuid.NewString(),
		Model:     b.config.Model,
		Exchanges: b.exchanges,
		Aliases:   NewAliasTable(b.exchanges),
		Tokenizer: b.tokenizer,
	}

	return &Agent{
		llm:       b.llm,
		tools:     b.tools,
		tracker:   b.tracker,
		publisher: b.publisher,
		hooks:     b.hooks,
		tokenizer: b.tokenizer,
		repo:      b.config.Repo,
		user:      b.config.User,
		state:     state,
	}, nil
}
