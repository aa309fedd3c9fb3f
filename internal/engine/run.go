package engine

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// StepWithTimeout runs one step under a deadline of d. If the deadline
// expires the step's error is replaced by a *TimeoutError. Collaborators
// must honour ctx for the deadline to interrupt them.
func StepWithTimeout(ctx context.Context, a *Agent, action Action, d time.Duration) (Action, error) {
	if d <= 0 {
		return a.Step(ctx, action)
	}
	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	next, err := a.Step(ctx, action)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Duration: d}
	}
	return next, err
}

// ErrStepLimit is returned by Run when the model keeps searching past the
// configured number of steps.
var ErrStepLimit = errors.New("step limit reached without an answer")

// Run drives one query to an answer: it starts with Query and feeds every
// returned action back into Step until the model answers. The session is
// marked complete only when an answer was produced.
func Run(ctx context.Context, a *Agent, query string, cfg AgentConfig) error {
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}

	var action Action = Query{Text: query}
	for i := 0; i < maxSteps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("execution cancelled: %w", ctx.Err())
		default:
		}

		next, err := StepWithTimeout(ctx, a, action, cfg.StepTimeout)
		if err != nil {
			return err
		}
		if next == nil {
			a.Complete()
			return nil
		}
		action = next
	}
	return ErrStepLimit
}
