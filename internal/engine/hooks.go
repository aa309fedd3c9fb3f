// engine/hooks.go
package engine

import "context"

type Hook interface {
	OnStepStart(ctx context.Context, st *State, action Action)
	OnToolCall(ctx context.Context, st *State, action Action)
	OnToolResult(ctx context.Context, st *State, action Action, response string, err error)
	OnAliasDropped(ctx context.Context, st *State, alias int)
	OnBeforeModel(ctx context.Context, st *State, messages []Message, functions []FunctionSchema)
	OnTrim(ctx context.Context, st *State, beforeTokens, afterTokens, hidden int)
	OnAfterModel(ctx context.Context, st *State, call FunctionCall)
	OnExchangeUpdated(ctx context.Context, st *State, snapshot Exchange)
	OnStepError(ctx context.Context, st *State, err error)
	OnDone(ctx context.Context, st *State, answer FinalAnswer)
	OnCancelled(ctx context.Context, st *State)
}

// NopHook lets you implement any hook you need.
type NopHook struct{}

func (NopHook) OnStepStart(context.Context, *State, Action)                         {}
func (NopHook) OnToolCall(context.Context, *State, Action)                          {}
func (NopHook) OnToolResult(context.Context, *State, Action, string, error)         {}
func (NopHook) OnAliasDropped(context.Context, *State, int)                         {}
func (NopHook) OnBeforeModel(context.Context, *State, []Message, []FunctionSchema) {}
func (NopHook) OnTrim(context.Context, *State, int, int, int)                       {}
func (NopHook) OnAfterModel(context.Context, *State, FunctionCall)                  {}
func (NopHook) OnExchangeUpdated(context.Context, *State, Exchange)                 {}
func (NopHook) OnStepError(context.Context, *State, error)                          {}
func (NopHook) OnDone(context.Context, *State, FinalAnswer)                         {}
func (NopHook) OnCancelled(context.Context, *State)                                 {}

type Hooks []Hook

func (hs Hooks) OnStepStart(ctx context.Context, st *State, a Action) {
	for _, h := range hs {
		h.OnStepStart(ctx, st, a)
	}
}
func (hs Hooks) OnToolCall(ctx context.Context, st *State, a Action) {
	for _, h := range hs {
		h.OnToolCall(ctx, st, a)
	}
}
func (hs Hooks) OnToolResult(ctx context.Context, st *State, a Action, response string, err error) {
	for _, h := range hs {
		h.OnToolResult(ctx, st, a, response, err)
	}
}
func (hs Hooks) OnAliasDropped(ctx context.Context, st *State, alias int) {
	for _, h := range hs {
		h.OnAliasDropped(ctx, st, alias)
	}
}
func (hs Hooks) OnBeforeModel(ctx context.Context, st *State, m []Message, fns []FunctionSchema) {
	for _, h := range hs {
		h.OnBeforeModel(ctx, st, m, fns)
	}
}
func (hs Hooks) OnTrim(ctx context.Context, st *State, before, after, hidden int) {
	for _, h := range hs {
		h.OnTrim(ctx, st, before, after, hidden)
	}
}
func (hs Hooks) OnAfterModel(ctx context.Context, st *State, call FunctionCall) {
	for _, h := range hs {
		h.OnAfterModel(ctx, st, call)
	}
}
func (hs Hooks) OnExchangeUpdated(ctx context.Context, st *State, snapshot Exchange) {
	for _, h := range hs {
		h.OnExchangeUpdated(ctx, st, snapshot)
	}
}
func (hs Hooks) OnStepError(ctx context.Context, st *State, err error) {
	for _, h := range hs {
		h.OnStepError(ctx, st, err)
	}
}
func (hs Hooks) OnDone(ctx context.Context, st *State, answer FinalAnswer) {
	for _, h := range hs {
		h.OnDone(ctx, st, answer)
	}
}
func (hs Hooks) OnCancelled(ctx context.Context, st *State) {
	for _, h := range hs {
		h.OnCancelled(ctx, st)
	}
}
