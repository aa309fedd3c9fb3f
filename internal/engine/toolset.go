package engine

import "context"

// Tools executes the retrieval actions the model asks for.
type Tools interface {
	// PathSearch returns repository paths matching query.
	PathSearch(ctx context.Context, scope ParsedQuery, query string) ([]string, error)
	// CodeSearch returns code chunks whose content matches query.
	CodeSearch(ctx context.Context, scope ParsedQuery, query string) ([]CodeChunk, error)
	// Proc reads paths and extracts what is relevant to query.
	Proc(ctx context.Context, scope ParsedQuery, query string, paths []string) (string, error)
	// Answer renders the final answer.
	Answer(ctx context.Context, req AnswerRequest) (FinalAnswer, error)
}

// CodeChunk is one code search hit. Alias is filled in by the agent.
type CodeChunk struct {
	Path      string `json:"path"`
	Alias     int    `json:"alias"`
	Snippet   string `json:"snippet"`
	StartLine int    `json:"start_line"`
	EndLine   int    `json:"end_line"`
}

// AnswerRequest carries what the answer renderer needs.
type AnswerRequest struct {
	Query   ParsedQuery
	Paths   []string   // resolved from the aliases the model chose
	History []Exchange // snapshots of the exchanges visible to the model, oldest first
}
