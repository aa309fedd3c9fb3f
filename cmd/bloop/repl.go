package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"go.uber.org/zap"

	"github.com/BB-fat/bloop/internal/analytics"
	"github.com/BB-fat/bloop/internal/engine"
	"github.com/BB-fat/bloop/internal/session"
)

// conversation answers queries one after another within a single thread.
// Every query gets a fresh agent seeded with the exchanges so far.
type conversation struct {
	cfg     engine.AgentConfig
	llm     engine.ModelClient
	tools   engine.Tools
	tracker analytics.Tracker
	hooks   engine.Hooks
	log     *zap.SugaredLogger
	out     *printer

	// threads is nil when the thread is not persisted.
	threads *session.Store
	titler  *session.Summarizer
	thread  *session.Thread

	history []engine.Exchange
}

// ask runs query to an answer, printing every snapshot the agent publishes.
func (c *conversation) ask(ctx context.Context, query string) error {
	outbox := engine.NewOutbox(16)
	defer outbox.Close()

	hooks := c.hooks
	var events chan engine.Event
	if c.out.json {
		events = make(chan engine.Event, 64)
		hooks = append(hooks[:len(hooks):len(hooks)], engine.EventHook{Ch: events})
	}

	agent, err := engine.NewAgentBuilder().
		WithConfig(c.cfg).
		WithLLM(c.llm).
		WithTools(c.tools).
		WithTracker(c.tracker).
		WithPublisher(outbox).
		WithHooks(hooks).
		WithExchanges(c.history).
		Build(ctx)
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}
	defer agent.Close()

	errc := make(chan error, 1)
	go func() { errc <- engine.Run(ctx, agent, query, c.cfg) }()

	var runErr error
loop:
	for {
		select {
		case snap := <-outbox.C():
			c.out.print(snap)
		case ev := <-events:
			c.out.event(ev)
		case runErr = <-errc:
			break loop
		}
	}
	for draining := true; draining; {
		select {
		case snap := <-outbox.C():
			c.out.print(snap)
		case ev := <-events:
			c.out.event(ev)
		default:
			draining = false
		}
	}

	c.history = c.history[:0]
	for _, e := range agent.State().Exchanges {
		c.history = append(c.history, e.Snapshot())
	}
	c.save(ctx)
	return runErr
}

// save persists the thread. Failures are logged, never returned: the
// answer was already printed.
func (c *conversation) save(ctx context.Context) {
	if c.threads == nil || c.thread == nil || len(c.history) == 0 {
		return
	}
	c.thread.Exchanges = session.FromEngine(c.history)
	if c.thread.Title == "" && c.titler != nil && c.history[0].Answer != nil {
		title, err := c.titler.GenerateTitle(context.WithoutCancel(ctx), c.thread.Exchanges)
		if err != nil {
			c.log.Debugw("title generation failed", "error", err)
		}
		c.thread.Title = title
	}
	if err := c.threads.Save(c.thread); err != nil {
		c.log.Warnw("failed to save thread", "thread", c.thread.ID, "error", err)
	}
}

// printer renders exchange snapshots. Steps already shown for an exchange
// are not repeated.
type printer struct {
	w    io.Writer
	json bool

	exchange string
	steps    int
	answered bool
}

func (p *printer) print(e engine.Exchange) {
	if p.json {
		line, err := json.Marshal(e)
		if err != nil {
			fmt.Fprintf(p.w, "{\"error\":%q}\n", err.Error())
			return
		}
		fmt.Fprintf(p.w, "%s\n", line)
		return
	}

	if e.ID != p.exchange {
		p.exchange, p.steps, p.answered = e.ID, 0, false
	}
	for _, step := range e.SearchSteps[min(p.steps, len(e.SearchSteps)):] {
		fmt.Fprintf(p.w, "  · %s %s\n", step.Function(), stepQuery(step))
	}
	p.steps = len(e.SearchSteps)

	if e.Answer != nil && !p.answered {
		p.answered = true
		fmt.Fprintf(p.w, "\n%s\n", strings.TrimSpace(e.Answer.Text))
		if e.Answer.Conclusion != "" {
			fmt.Fprintf(p.w, "\n» %s\n", e.Answer.Conclusion)
		}
	}
}

// event renders a progress event. Only JSON output carries them.
func (p *printer) event(ev engine.Event) {
	if !p.json {
		return
	}
	line, err := json.Marshal(ev)
	if err != nil {
		return
	}
	fmt.Fprintf(p.w, "%s\n", line)
}

func stepQuery(s engine.SearchStep) string {
	switch st := s.(type) {
	case engine.PathStep:
		return fmt.Sprintf("%q", st.Query)
	case engine.CodeStep:
		return fmt.Sprintf("%q", st.Query)
	case engine.ProcStep:
		return fmt.Sprintf("%q over %s", st.Query, strings.Join(st.Paths, ", "))
	default:
		return ""
	}
}

// repl reads queries from in until EOF. Ctrl-C cancels the running query
// only.
func repl(ctx context.Context, c *conversation, in io.Reader) {
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(c.out.w, "you> ")
		if !sc.Scan() {
			fmt.Fprintln(c.out.w)
			return
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return
		}

		qctx, stop := signal.NotifyContext(ctx, os.Interrupt)
		err := c.ask(qctx, line)
		stop()
		reportError(c.log, err)
		fmt.Fprintln(c.out.w)

		if ctx.Err() != nil {
			return
		}
	}
}

func reportError(log *zap.SugaredLogger, err error) {
	var timeout *engine.TimeoutError
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		log.Warnw("query cancelled")
	case errors.As(err, &timeout):
		log.Warnw("query timed out", "after", timeout.Duration)
	case errors.Is(err, engine.ErrStepLimit):
		log.Warnw("no answer within the step limit", "error", err)
	case engine.IsProcessing(err):
		log.Errorw("query failed", "error", err)
	default:
		log.Errorw("query could not start", "error", err)
	}
}
