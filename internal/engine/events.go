package engine

import (
	"context"
	"sync"
)

// Publisher receives a snapshot of the active exchange after every
// mutation. A failed send aborts the step.
type Publisher interface {
	Send(ctx context.Context, e Exchange) error
}

// Outbox is a bounded engine → UI channel of exchange snapshots. The
// receiving side closes it when it goes away; later sends fail with
// ErrOutboxClosed instead of blocking.
type Outbox struct {
	ch   chan Exchange
	done chan struct{}
	once sync.Once
}

// NewOutbox creates an outbox buffering up to size snapshots.
func NewOutbox(size int) *Outbox {
	if size < 0 {
		size = 0
	}
	return &Outbox{
		ch:   make(chan Exchange, size),
		done: make(chan struct{}),
	}
}

// Send delivers e, waiting for buffer space.
func (o *Outbox) Send(ctx context.Context, e Exchange) error {
	select {
	case <-o.done:
		return ErrOutboxClosed
	default:
	}

	select {
	case o.ch <- e:
		return nil
	case <-o.done:
		return ErrOutboxClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// C returns the receive side.
func (o *Outbox) C() <-chan Exchange { return o.ch }

// Done is closed once the outbox is closed.
func (o *Outbox) Done() <-chan struct{} { return o.done }

// Close disconnects the receiver. It is safe to call more than once.
func (o *Outbox) Close() {
	o.once.Do(func() { close(o.done) })
}

// Event is a progress notification emitted by EventHook.
type Event struct {
	Kind string `json:"event"` // "step_start", "tool_start", "tool_done", "alias_dropped", "trim", "model_reply", "done", "cancelled"
	Data any    `json:"data,omitempty"`
}

// EventHook bridges engine → UI progress channel. Events are dropped
// when the channel is full so a slow reader never stalls a step.
type EventHook struct {
	NopHook
	Ch chan<- Event
}

func (h EventHook) emit(kind string, data any) {
	select {
	case h.Ch <- Event{Kind: kind, Data: data}:
	default:
	}
}

func (h EventHook) OnStepStart(_ context.Context, st *State, a Action) {
	h.emit("step_start", map[string]any{"step": st.Step, "action": a.Tag()})
}
func (h EventHook) OnToolCall(_ context.Context, _ *State, a Action) {
	h.emit("tool_start", a.Tag())
}
func (h EventHook) OnToolResult(_ context.Context, _ *State, a Action, _ string, err error) {
	h.emit("tool_done", map[string]any{"tool": a.Tag(), "ok": err == nil})
}
func (h EventHook) OnAliasDropped(_ context.Context, _ *State, alias int) {
	h.emit("alias_dropped", alias)
}
func (h EventHook) OnTrim(_ context.Context, _ *State, before, after, hidden int) {
	h.emit("trim", map[string]int{"before": before, "after": after, "hidden": hidden})
}
func (h EventHook) OnAfterModel(_ context.Context, _ *State, call FunctionCall) {
	h.emit("model_reply", call.Name)
}
func (h EventHook) OnDone(_ context.Context, _ *State, answer FinalAnswer) {
	h.emit("done", answer.Conclusion)
}
func (h EventHook) OnCancelled(_ context.Context, _ *State) {
	h.emit("cancelled", nil)
}
