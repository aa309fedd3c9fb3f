// Package tools implements the retrieval actions of the agent on top of a
// local repository index and a text completion model.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/BB-fat/bloop/internal/engine"
	"github.com/BB-fat/bloop/internal/indexer"
	"github.com/BB-fat/bloop/internal/prompts"
	"github.com/BB-fat/bloop/internal/transcoder"
)

const (
	// SnippetLines bounds the snippet returned for each code chunk.
	SnippetLines = 20
	// ProcContextLines pads every matching line in proc results.
	ProcContextLines = 3
	// ProcMaxLines bounds the lines proc returns per file.
	ProcMaxLines = 80
	// AnswerMaxLines bounds the lines of each file put into the answer prompt.
	AnswerMaxLines = 200
)

// ErrNoQuery is returned when the answer is requested without a query.
var ErrNoQuery = errors.New("no query to answer")

// Index is the repository index the tools search.
type Index interface {
	SearchPaths(ctx context.Context, text string, langs []string, limit int) ([]string, error)
	SearchCode(ctx context.Context, text string, langs []string, limit int) ([]indexer.Chunk, error)
	ReadFile(rel string) ([]byte, error)
}

// Completer renders plain text from a transcript.
type Completer interface {
	Complete(ctx context.Context, model string, messages []engine.Message) (string, error)
}

// Options configures RepoTools.
type Options struct {
	// Model used for the answer. Required.
	Model string
	// Repo is shown to the model in the answer prompt.
	Repo string
	// Rules are extra answer instructions kept in the repository.
	Rules string
	Log  *zap.SugaredLogger
}

// RepoTools implements engine.Tools for a single indexed repository.
type RepoTools struct {
	index Index
	llm   Completer
	opts  Options
	log   *zap.SugaredLogger
}

var _ engine.Tools = (*RepoTools)(nil)

// New creates the tools. llm may be nil when answers are never requested.
func New(index Index, llm Completer, opts Options) *RepoTools {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &RepoTools{index: index, llm: llm, opts: opts, log: log}
}

// PathSearch implements engine.Tools.
func (t *RepoTools) PathSearch(ctx context.Context, scope engine.ParsedQuery, query string) ([]string, error) {
	paths, err := t.index.SearchPaths(ctx, query, scope.Langs, indexer.PathSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("path search: %w", err)
	}
	t.log.Debugw("path search", "query", query, "langs", scope.Langs, "results", len(paths))
	return paths, nil
}

// CodeSearch implements engine.Tools.
func (t *RepoTools) CodeSearch(ctx context.Context, scope engine.ParsedQuery, query string) ([]engine.CodeChunk, error) {
	chunks, err := t.index.SearchCode(ctx, query, scope.Langs, indexer.CodeSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("code search: %w", err)
	}
	out := make([]engine.CodeChunk, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, engine.CodeChunk{
			Path:      c.Path,
			Snippet:   indexer.Snippet(c.Text, SnippetLines),
			StartLine: c.StartLine,
			EndLine:   min(c.EndLine, c.StartLine+SnippetLines-1),
		})
	}
	t.log.Debugw("code search", "query", query, "langs", scope.Langs, "results", len(out))
	return out, nil
}

type procHit struct {
	Path      string `json:"path"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
	Snippet   string `json:"snippet"`
}

// Proc implements engine.Tools. It returns, for every path, the line
// ranges that mention the words of query as a JSON array.
func (t *RepoTools) Proc(ctx context.Context, _ engine.ParsedQuery, query string, paths []string) (string, error) {
	terms := queryTerms(query)
	hits := []procHit{}
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		lines, err := t.readLines(p)
		if err != nil {
			return "", err
		}
		for _, r := range relevantRanges(lines, terms, ProcContextLines, ProcMaxLines) {
			hits = append(hits, procHit{Path: p, StartLine: r.Start, EndLine: r.End, Snippet: joinLines(lines, r)})
		}
	}

	raw, err := json.Marshal(hits)
	if err != nil {
		return "", fmt.Errorf("failed to encode proc result: %w", err)
	}
	return string(raw), nil
}

func (t *RepoTools) readLines(path string) ([]string, error) {
	data, err := t.index.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n"), nil
}

// Answer implements engine.Tools. Earlier exchanges are replayed as
// conversation turns before the prompt for the active query.
func (t *RepoTools) Answer(ctx context.Context, req engine.AnswerRequest) (engine.FinalAnswer, error) {
	if t.llm == nil {
		return engine.FinalAnswer{}, errors.New("no completion model configured")
	}
	query := strings.TrimSpace(req.Query.Raw)
	if query == "" {
		return engine.FinalAnswer{}, ErrNoQuery
	}

	files, err := t.answerContext(req)
	if err != nil {
		return engine.FinalAnswer{}, err
	}
	prompt, err := prompts.AnswerPrompt(t.opts.Repo, query, files, t.opts.Rules)
	if err != nil {
		return engine.FinalAnswer{}, fmt.Errorf("failed to build answer prompt: %w", err)
	}

	messages := []engine.Message{engine.SystemMessage(prompt)}
	for _, e := range req.History {
		if e.Answer == nil {
			continue
		}
		messages = append(messages,
			engine.UserMessage(e.Query.Raw),
			engine.AssistantMessage(e.Answer.Text),
		)
	}
	messages = append(messages, engine.UserMessage(query))

	text, err := t.llm.Complete(ctx, t.opts.Model, messages)
	if err != nil {
		return engine.FinalAnswer{}, fmt.Errorf("answer completion: %w", err)
	}
	body, conclusion := transcoder.SplitConclusion(text)
	t.log.Debugw("answer rendered", "paths", len(req.Paths), "chars", len(body))
	return engine.FinalAnswer{Text: body, Conclusion: conclusion}, nil
}

// answerContext renders the files chosen for the answer, keeping the
// parts relevant to the query when a file is long.
func (t *RepoTools) answerContext(req engine.AnswerRequest) (string, error) {
	terms := queryTerms(req.Query.Target)
	var sb strings.Builder
	for _, p := range req.Paths {
		lines, err := t.readLines(p)
		if err != nil {
			return "", err
		}
		ranges := []Range{{Start: 1, End: len(lines)}}
		if len(lines) > AnswerMaxLines {
			ranges = relevantRanges(lines, terms, ProcContextLines, AnswerMaxLines)
		}
		for _, r := range ranges {
			fmt.Fprintf(&sb, "### %s (lines %d-%d)\n```\n%s\n```\n\n", p, r.Start, r.End, joinLines(lines, r))
		}
	}
	if sb.Len() == 0 {
		return "(no files selected)", nil
	}
	return strings.TrimSuffix(sb.String(), "\n"), nil
}
