package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/BB-fat/bloop/internal/engine"
	"github.com/BB-fat/bloop/internal/indexer"
)

type fakeIndex struct {
	files  map[string]string
	paths  []string
	chunks []indexer.Chunk
	err    error

	gotText  string
	gotLangs []string
	gotLimit int
}

func (f *fakeIndex) SearchPaths(_ context.Context, text string, langs []string, limit int) ([]string, error) {
	f.gotText, f.gotLangs, f.gotLimit = text, langs, limit
	return f.paths, f.err
}

func (f *fakeIndex) SearchCode(_ context.Context, text string, langs []string, limit int) ([]indexer.Chunk, error) {
	f.gotText, f.gotLangs, f.gotLimit = text, langs, limit
	return f.chunks, f.err
}

func (f *fakeIndex) ReadFile(rel string) ([]byte, error) {
	content, ok := f.files[rel]
	if !ok {
		return nil, os.ErrNotExist
	}
	return []byte(content), nil
}

type fakeCompleter struct {
	reply string
	err   error

	model    string
	messages []engine.Message
}

func (f *fakeCompleter) Complete(_ context.Context, model string, messages []engine.Message) (string, error) {
	f.model, f.messages = model, messages
	return f.reply, f.err
}

func TestPathSearch(t *testing.T) {
	idx := &fakeIndex{paths: []string{"src/auth.go", "src/auth_test.go"}}
	tools := New(idx, nil, Options{})

	scope := engine.ParseQuery("where is auth lang:go")
	got, err := tools.PathSearch(context.Background(), scope, "auth")
	if err != nil {
		t.Fatalf("PathSearch() error = %v", err)
	}
	if fmt.Sprint(got) != "[src/auth.go src/auth_test.go]" {
		t.Errorf("PathSearch() = %v", got)
	}
	if idx.gotText != "auth" || fmt.Sprint(idx.gotLangs) != "[go]" || idx.gotLimit != indexer.PathSearchLimit {
		t.Errorf("index called with %q %v %d", idx.gotText, idx.gotLangs, idx.gotLimit)
	}

	idx.err = errors.New("index closed")
	if _, err := tools.PathSearch(context.Background(), scope, "auth"); !errors.Is(err, idx.err) {
		t.Errorf("PathSearch() error = %v, want wrapped index error", err)
	}
}

func TestCodeSearch(t *testing.T) {
	long := make([]string, 30)
	for i := range long {
		long[i] = fmt.Sprintf("line %d", i+1)
	}
	idx := &fakeIndex{chunks: []indexer.Chunk{
		{Path: "a.go", StartLine: 3, EndLine: 5, Text: "func A() {\n}\n"},
		{Path: "b.go", StartLine: 10, EndLine: 39, Text: strings.Join(long, "\n")},
	}}
	tools := New(idx, nil, Options{})

	got, err := tools.CodeSearch(context.Background(), engine.ParsedQuery{}, "A")
	if err != nil {
		t.Fatalf("CodeSearch() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("CodeSearch() returned %d chunks", len(got))
	}
	if got[0].Path != "a.go" || got[0].StartLine != 3 || got[0].EndLine != 5 {
		t.Errorf("chunk 0 = %+v", got[0])
	}
	if got[1].EndLine != 10+SnippetLines-1 || strings.Count(got[1].Snippet, "\n") != SnippetLines-1 {
		t.Errorf("long chunk not cut to %d lines: end %d", SnippetLines, got[1].EndLine)
	}
	if idx.gotLimit != indexer.CodeSearchLimit {
		t.Errorf("limit = %d", idx.gotLimit)
	}
}

func TestProc(t *testing.T) {
	var sb strings.Builder
	for i := 1; i <= 40; i++ {
		if i == 20 {
			sb.WriteString("func verifyToken(raw string) error {\n")
			continue
		}
		fmt.Fprintf(&sb, "// filler %d\n", i)
	}
	idx := &fakeIndex{files: map[string]string{
		"auth.go":   sb.String(),
		"README.md": "# Demo\nNothing here.\n",
	}}
	tools := New(idx, nil, Options{})

	out, err := tools.Proc(context.Background(), engine.ParsedQuery{}, "how is the token verified", []string{"auth.go", "README.md"})
	if err != nil {
		t.Fatalf("Proc() error = %v", err)
	}
	var hits []procHit
	if err := json.Unmarshal([]byte(out), &hits); err != nil {
		t.Fatalf("Proc() output is not JSON: %v\n%s", err, out)
	}
	if len(hits) != 2 {
		t.Fatalf("Proc() hits = %+v", hits)
	}
	if hits[0].Path != "auth.go" || hits[0].StartLine != 17 || hits[0].EndLine != 23 {
		t.Errorf("auth.go hit = %+v, want lines 17-23", hits[0])
	}
	if !strings.Contains(hits[0].Snippet, "verifyToken") {
		t.Errorf("snippet misses the match: %q", hits[0].Snippet)
	}
	// No match falls back to the head of the file.
	if hits[1].Path != "README.md" || hits[1].StartLine != 1 || hits[1].EndLine != 2 {
		t.Errorf("README hit = %+v", hits[1])
	}

	if _, err := tools.Proc(context.Background(), engine.ParsedQuery{}, "x", []string{"missing.go"}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Proc() on missing file error = %v", err)
	}
}

func TestProcEmpty(t *testing.T) {
	out, err := New(&fakeIndex{}, nil, Options{}).Proc(context.Background(), engine.ParsedQuery{}, "x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if out != "[]" {
		t.Errorf("Proc() = %q, want []", out)
	}
}

func TestAnswer(t *testing.T) {
	idx := &fakeIndex{files: map[string]string{"src/auth.go": "package auth\n\nfunc Login() {}\n"}}
	llm := &fakeCompleter{reply: "Login lives in `src/auth.go`.\n\n## Summary\nSee Login."}
	tools := New(idx, llm, Options{Model: "gpt-4", Repo: "demo", Rules: "Prefer short answers."})

	prior := engine.Exchange{Query: engine.ParseQuery("what is this repo"), Answer: &engine.FinalAnswer{Text: "A demo."}}
	active := engine.Exchange{Query: engine.ParseQuery("where is login")}
	got, err := tools.Answer(context.Background(), engine.AnswerRequest{
		Query:   active.Query,
		Paths:   []string{"src/auth.go"},
		History: []engine.Exchange{prior, active},
	})
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	want := engine.FinalAnswer{Text: "Login lives in `src/auth.go`.", Conclusion: "See Login."}
	if got != want {
		t.Errorf("Answer() = %+v, want %+v", got, want)
	}

	if llm.model != "gpt-4" {
		t.Errorf("model = %q", llm.model)
	}
	if len(llm.messages) != 4 {
		t.Fatalf("sent %d messages, want 4", len(llm.messages))
	}
	system := llm.messages[0].Content
	for _, part := range []string{"demo", "### src/auth.go (lines 1-3)", "func Login() {}", "where is login", "Prefer short answers."} {
		if !strings.Contains(system, part) {
			t.Errorf("answer prompt missing %q", part)
		}
	}
	if llm.messages[1].Content != "what is this repo" || llm.messages[2].Content != "A demo." {
		t.Errorf("prior exchange not replayed: %+v", llm.messages[1:3])
	}
	if llm.messages[3].Content != "where is login" {
		t.Errorf("last message = %q", llm.messages[3].Content)
	}
}

func TestAnswerErrors(t *testing.T) {
	idx := &fakeIndex{files: map[string]string{}}
	boom := errors.New("boom")

	tests := []struct {
		name  string
		llm   Completer
		req   engine.AnswerRequest
		check func(error) bool
	}{
		{
			name:  "no query",
			llm:   &fakeCompleter{},
			req:   engine.AnswerRequest{},
			check: func(err error) bool { return errors.Is(err, ErrNoQuery) },
		},
		{
			name:  "missing file",
			llm:   &fakeCompleter{},
			req:   engine.AnswerRequest{Query: engine.ParseQuery("q"), Paths: []string{"gone.go"}},
			check: func(err error) bool { return errors.Is(err, os.ErrNotExist) },
		},
		{
			name:  "completion fails",
			llm:   &fakeCompleter{err: boom},
			req:   engine.AnswerRequest{Query: engine.ParseQuery("q")},
			check: func(err error) bool { return errors.Is(err, boom) },
		},
		{
			name:  "no model",
			req:   engine.AnswerRequest{Query: engine.ParseQuery("q")},
			check: func(err error) bool { return err != nil },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(idx, tt.llm, Options{}).Answer(context.Background(), tt.req)
			if !tt.check(err) {
				t.Errorf("Answer() error = %v", err)
			}
		})
	}
}

func TestQueryTerms(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"how is the token verified", "[token verified]"},
		{"parseToken and parse_token", "[parse token]"},
		{"a b cd", "[]"},
		{"JWT jwt", "[jwt]"},
	}
	for _, tt := range tests {
		if got := fmt.Sprint(queryTerms(tt.in)); got != tt.want {
			t.Errorf("queryTerms(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestRelevantRanges(t *testing.T) {
	lines := make([]string, 30)
	for i := range lines {
		lines[i] = "x"
	}
	lines[4], lines[7], lines[25] = "token", "token", "token"

	tests := []struct {
		name     string
		maxLines int
		want     string
	}{
		{name: "merged and padded", maxLines: 100, want: "[{3 10} {24 28}]"},
		{name: "budget cuts", maxLines: 10, want: "[{3 10} {24 25}]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relevantRanges(lines, []string{"token"}, 2, tt.maxLines)
			if fmt.Sprint(got) != tt.want {
				t.Errorf("relevantRanges() = %v, want %s", got, tt.want)
			}
		})
	}
}
