// engine/hook_logger.go
package engine

import (
	"context"

	"go.uber.org/zap"
)

type LoggerHook struct{ L *zap.SugaredLogger }

func (h LoggerHook) OnStepStart(_ context.Context, st *State, a Action) {
	h.L.Debugw("executing next action", "step", st.Step, "action", a.Tag(), "thread_id", st.ThreadID)
}
func (h LoggerHook) OnToolCall(_ context.Context, _ *State, a Action) {
	args, err := EncodeAction(a)
	if err != nil {
		h.L.Debugw("tool call", "tool", a.Tag(), "error", err)
		return
	}
	h.L.Debugw("tool call", "tool", a.Tag(), "args", string(args))
}
func (h LoggerHook) OnToolResult(_ context.Context, _ *State, a Action, response string, err error) {
	if err != nil {
		h.L.Warnw("tool failed", "tool", a.Tag(), "error", err)
		return
	}
	preview := response
	if len(preview) > 100 {
		preview = preview[:100] + "..."
	}
	h.L.Debugw("tool result", "tool", a.Tag(), "result", preview)
}
func (h LoggerHook) OnAliasDropped(_ context.Context, st *State, alias int) {
	h.L.Warnw("dropping unknown path alias", "step", st.Step, "alias", alias, "known", st.Aliases.Len())
}
func (h LoggerHook) OnBeforeModel(_ context.Context, st *State, msgs []Message, fns []FunctionSchema) {
	tokenizer := st.Tokenizer
	if tokenizer == nil {
		tokenizer = GetTokenizerForModel(st.Model)
	}
	messageTokens, _ := CountTokensForMessages(tokenizer, msgs, st.Model)
	functionTokens, _ := CountTokensForFunctions(tokenizer, fns, st.Model)

	h.L.Infow("model request",
		"step", st.Step,
		"messages", len(msgs),
		"functions", len(fns),
		"message_tokens", messageTokens,
		"function_tokens", functionTokens,
		"context_window", ContextWindow(st.Model),
	)
}
func (h LoggerHook) OnTrim(_ context.Context, st *State, before, after, hidden int) {
	h.L.Infow("trimmed history", "step", st.Step, "before_tokens", before, "after_tokens", after, "hidden", hidden)
}
func (h LoggerHook) OnAfterModel(_ context.Context, st *State, call FunctionCall) {
	h.L.Infow("model reply", "step", st.Step, "function", call.Name, "arguments", call.Arguments)
}
func (h LoggerHook) OnExchangeUpdated(_ context.Context, _ *State, e Exchange) {
	h.L.Debugw("exchange updated", "exchange_id", e.ID, "steps", len(e.SearchSteps), "paths", len(e.Paths), "answered", e.Answer != nil)
}
func (h LoggerHook) OnStepError(_ context.Context, st *State, err error) {
	h.L.Errorw("step failed", "step", st.Step, "thread_id", st.ThreadID, "error", err)
}
func (h LoggerHook) OnDone(_ context.Context, st *State, answer FinalAnswer) {
	h.L.Infow("answered", "steps", st.Step, "chars", len(answer.Text), "query_id", st.QueryID)
}
func (h LoggerHook) OnCancelled(_ context.Context, st *State) {
	h.L.Infow("request was cancelled", "steps", st.Step, "query_id", st.QueryID)
}
