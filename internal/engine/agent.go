package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/BB-fat/bloop/internal/analytics"
	"github.com/BB-fat/bloop/internal/prompts"
)

// Agent answers questions about one repository by letting the model pick
// retrieval actions until it decides to answer.
//
// An Agent is driven by a single caller. Close must be called when the
// caller is done with it; a session that was never marked complete is
// reported as cancelled.
type Agent struct {
	llm       ModelClient
	tools     Tools
	tracker   analytics.Tracker
	publisher Publisher
	hooks     Hooks
	tokenizer Tokenizer
	repo      string
	user      string

	state     *State
	closeOnce sync.Once
}

// State returns the session state. Callers should treat it as read-only.
func (a *Agent) State() *State {
	return a.state
}

// Step performs one transition. The returned action is what the model
// wants next; nil means the query has been answered.
func (a *Agent) Step(ctx context.Context, action Action) (Action, error) {
	a.state.Step++
	a.hooks.OnStepStart(ctx, a.state, action)

	next, err := a.step(ctx, action)
	if err != nil {
		err = wrapProcessing(err, "")
		a.hooks.OnStepError(ctx, a.state, err)
		return nil, err
	}
	return next, nil
}

func (a *Agent) step(ctx context.Context, action Action) (Action, error) {
	switch act := action.(type) {
	case Query:
		a.track(analytics.InputStage("query").WithPayload("q", act.Text))
		q := ParseQuery(act.Text)
		if !q.HasTarget() {
			return nil, &ProcessingError{Err: fmt.Errorf("%w: %q", ErrMissingTarget, act.Text), Op: "query"}
		}
		a.state.Exchanges = append(a.state.Exchanges, &Exchange{
			ID:    uuid.NewString(),
			Query: q,
		})
		if err := a.publish(ctx); err != nil {
			return nil, err
		}

	case Answer:
		if err := a.answer(ctx, act.Paths); err != nil {
			return nil, err
		}
		return nil, nil

	case Path:
		if err := a.pathSearch(ctx, act); err != nil {
			return nil, err
		}
	case Code:
		if err := a.codeSearch(ctx, act); err != nil {
			return nil, err
		}
	case Proc:
		if err := a.processFiles(ctx, act); err != nil {
			return nil, err
		}

	default:
		return nil, &ProcessingError{Err: fmt.Errorf("%w: %T", ErrUnknownAction, action), Op: "dispatch"}
	}

	return a.nextAction(ctx)
}

// nextAction asks the model which function to call next.
func (a *Agent) nextAction(ctx context.Context) (Action, error) {
	functions := Functions(a.state.Aliases.Len() > 0)

	system, err := prompts.SystemPrompt(a.state.Aliases.Paths())
	if err != nil {
		return nil, &ProcessingError{Err: err, Op: "history"}
	}
	history, err := BuildHistory(a.state.Exchanges, a.state.Aliases)
	if err != nil {
		return nil, &ProcessingError{Err: err, Op: "history"}
	}
	full := append([]Message{SystemMessage(system)}, history...)

	trimmed, stats, err := trimHistory(full, a.state.Model, a.tokenizer)
	if err != nil {
		return nil, &ProcessingError{Err: err, Op: "trim"}
	}
	if stats.Hidden > 0 {
		a.hooks.OnTrim(ctx, a.state, stats.Before, stats.After, stats.Hidden)
	}

	a.hooks.OnBeforeModel(ctx, a.state, trimmed, functions)
	fragCh, errCh := a.llm.Stream(ctx, a.state.Model, trimmed, functions)
	call, err := FoldFunctionCall(ctx, fragCh, errCh)
	if err != nil {
		return nil, &ProcessingError{Err: err, Op: "model"}
	}
	a.hooks.OnAfterModel(ctx, a.state, call)

	a.track(analytics.OutputStage("llm_reply").
		WithPayload("full_history", full).
		WithPayload("trimmed_history", trimmed).
		WithPayload("last_message", full[len(full)-1]).
		WithPayload("functions", functions).
		WithPayload("raw_response", call))

	next, err := DecodeAction(call)
	if err != nil {
		return nil, &ProcessingError{Err: err, Op: "decode"}
	}
	return next, nil
}

func (a *Agent) pathSearch(ctx context.Context, act Path) error {
	a.hooks.OnToolCall(ctx, a.state, act)
	paths, err := a.tools.PathSearch(ctx, a.state.LastExchange().Query, act.Query)
	if err != nil {
		a.hooks.OnToolResult(ctx, a.state, act, "", err)
		return &ProcessingError{Err: err, Op: "path"}
	}

	var sb strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&sb, "%d, %s\n", a.state.Alias(p), p)
	}
	response := strings.TrimSuffix(sb.String(), "\n")
	if response == "" {
		response = "[]"
	}
	a.hooks.OnToolResult(ctx, a.state, act, response, nil)

	return a.update(ctx, StepUpdate{Step: PathStep{Query: act.Query, Response: response}})
}

func (a *Agent) codeSearch(ctx context.Context, act Code) error {
	a.hooks.OnToolCall(ctx, a.state, act)
	chunks, err := a.tools.CodeSearch(ctx, a.state.LastExchange().Query, act.Query)
	if err != nil {
		a.hooks.OnToolResult(ctx, a.state, act, "", err)
		return &ProcessingError{Err: err, Op: "code"}
	}

	for i := range chunks {
		chunks[i].Alias = a.state.Alias(chunks[i].Path)
	}
	if chunks == nil {
		chunks = []CodeChunk{}
	}
	raw, err := json.Marshal(chunks)
	if err != nil {
		return &ProcessingError{Err: fmt.Errorf("failed to encode code chunks: %w", err), Op: "code"}
	}
	response := string(raw)
	a.hooks.OnToolResult(ctx, a.state, act, response, nil)

	return a.update(ctx, StepUpdate{Step: CodeStep{Query: act.Query, Response: response}})
}

func (a *Agent) processFiles(ctx context.Context, act Proc) error {
	paths, err := a.resolveAliases(act.Paths)
	if err != nil {
		return &ProcessingError{Err: err, Op: "proc"}
	}

	a.hooks.OnToolCall(ctx, a.state, act)
	response, err := a.tools.Proc(ctx, a.state.LastExchange().Query, act.Query, paths)
	a.hooks.OnToolResult(ctx, a.state, act, response, err)
	if err != nil {
		return &ProcessingError{Err: err, Op: "proc"}
	}

	return a.update(ctx, StepUpdate{Step: ProcStep{Query: act.Query, Paths: paths, Response: response}})
}

// answer renders the final answer exactly once and attaches it to the
// active exchange. Aliases the table does not know are dropped.
func (a *Agent) answer(ctx context.Context, aliases []int) error {
	paths := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		p, ok := a.state.Aliases.Resolve(alias)
		if !ok {
			a.hooks.OnAliasDropped(ctx, a.state, alias)
			continue
		}
		paths = append(paths, p)
	}

	req := AnswerRequest{Paths: paths}
	if len(a.state.Exchanges) > 0 {
		req.Query = a.state.LastExchange().Query
		start := len(a.state.Exchanges) - MaxHistoryExchanges
		if start < 0 {
			start = 0
		}
		for _, e := range a.state.Exchanges[start:] {
			req.History = append(req.History, e.Snapshot())
		}
	}

	act := Answer{Paths: aliases}
	a.hooks.OnToolCall(ctx, a.state, act)
	final, err := a.tools.Answer(ctx, req)
	a.hooks.OnToolResult(ctx, a.state, act, final.Text, err)
	if err != nil {
		return &ProcessingError{Err: err, Op: "answer"}
	}

	if len(a.state.Exchanges) > 0 {
		if err := a.update(ctx, AnswerUpdate{Answer: final}); err != nil {
			return err
		}
	}
	a.hooks.OnDone(ctx, a.state, final)
	return nil
}

func (a *Agent) resolveAliases(aliases []int) ([]string, error) {
	paths := make([]string, 0, len(aliases))
	for _, alias := range aliases {
		p, ok := a.state.Aliases.Resolve(alias)
		if !ok {
			return nil, fmt.Errorf("%w: %d", ErrUnknownAlias, alias)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// update applies u to the active exchange and publishes a snapshot.
func (a *Agent) update(ctx context.Context, u Update) error {
	u.apply(a.state.LastExchange())
	return a.publish(ctx)
}

func (a *Agent) publish(ctx context.Context) error {
	snapshot := a.state.LastExchange().Snapshot()
	if err := a.publisher.Send(ctx, snapshot); err != nil {
		return &ProcessingError{Err: fmt.Errorf("failed to publish exchange: %w", err), Op: "publish"}
	}
	a.hooks.OnExchangeUpdated(ctx, a.state, snapshot)
	return nil
}

func (a *Agent) track(data analytics.EventData) {
	a.tracker.TrackQuery(analytics.QueryEvent{
		QueryID:   a.state.QueryID,
		ThreadID:  a.state.ThreadID,
		RepoRef:   a.repo,
		User:      a.user,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// Complete marks the request as answered so Close does not report it as
// cancelled.
func (a *Agent) Complete() {
	a.state.Complete = true
}

// Close ends the session. If Complete was never called a single
// "cancelled" event is tracked. Use it with defer right after Build.
func (a *Agent) Close() {
	a.closeOnce.Do(func() {
		if a.state.Complete {
			return
		}
		a.track(analytics.OutputStage("cancelled").WithPayload("message", "request was cancelled"))
		a.hooks.OnCancelled(context.Background(), a.state)
	})
}
