// Package engine drives the repository question-answering agent.
// This file contains the per-exchange conversation state.

package engine

// Exchange is one user query plus every search step and the optional
// answer produced while resolving it.
type Exchange struct {
	ID          string       `json:"id"`
	Query       ParsedQuery  `json:"query"`
	Paths       []string     `json:"paths"`        // paths first aliased during this exchange
	SearchSteps []SearchStep `json:"search_steps"` // in execution order
	Answer      *FinalAnswer `json:"answer,omitempty"`
}

// FinalAnswer is the rendered reply. Conclusion is a short summary that
// is dropped when the exchange is replayed to the model.
type FinalAnswer struct {
	Text       string `json:"text"`
	Conclusion string `json:"conclusion,omitempty"`
}

// Target returns the free-text part of the query.
func (e *Exchange) Target() (string, bool) {
	if !e.Query.HasTarget() {
		return "", false
	}
	return e.Query.Target, true
}

// Snapshot returns a deep copy safe to hand to another goroutine.
func (e *Exchange) Snapshot() Exchange {
	cp := *e
	cp.Paths = append([]string(nil), e.Paths...)
	cp.SearchSteps = append([]SearchStep(nil), e.SearchSteps...)
	for i, s := range cp.SearchSteps {
		if p, ok := s.(ProcStep); ok {
			p.Paths = append([]string(nil), p.Paths...)
			cp.SearchSteps[i] = p
		}
	}
	cp.Query.Repos = append([]string(nil), e.Query.Repos...)
	cp.Query.Langs = append([]string(nil), e.Query.Langs...)
	cp.Query.Branches = append([]string(nil), e.Query.Branches...)
	if e.Answer != nil {
		a := *e.Answer
		cp.Answer = &a
	}
	return cp
}

// SearchStep records one tool invocation and its textual result.
type SearchStep interface {
	// Function is the name of the function the step was issued through.
	Function() string
	// Output is the tool response replayed to the model.
	Output() string
}

type PathStep struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

type CodeStep struct {
	Query    string `json:"query"`
	Response string `json:"response"`
}

type ProcStep struct {
	Query    string   `json:"query"`
	Paths    []string `json:"paths"`
	Response string   `json:"response"`
}

func (s PathStep) Function() string { return FunctionPath }
func (s CodeStep) Function() string { return FunctionCode }
func (s ProcStep) Function() string { return FunctionProc }

func (s PathStep) Output() string { return s.Response }
func (s CodeStep) Output() string { return s.Response }
func (s ProcStep) Output() string { return s.Response }

// Update is a mutation applied to the active exchange.
type Update interface {
	apply(e *Exchange)
}

// StepUpdate appends a search step.
type StepUpdate struct{ Step SearchStep }

// AnswerUpdate attaches the final answer.
type AnswerUpdate struct{ Answer FinalAnswer }

func (u StepUpdate) apply(e *Exchange) { e.SearchSteps = append(e.SearchSteps, u.Step) }

func (u AnswerUpdate) apply(e *Exchange) {
	a := u.Answer
	e.Answer = &a
}

// State is the in-memory session an Agent drives. It is owned by one
// caller at a time.
type State struct {
	ThreadID  string
	QueryID   string
	Model     string
	Exchanges []*Exchange // never empty once the first query arrives
	Aliases   *AliasTable // flattened, order-preserving union of every exchange's Paths
	Step      int         // steps attempted, including failed ones
	Complete  bool

	// Tokenizer is the one the trimmer counts with.
	Tokenizer Tokenizer
}

// LastExchange returns the active exchange. Calling it before the first
// query is a programming error.
func (s *State) LastExchange() *Exchange {
	if len(s.Exchanges) == 0 {
		panic("exchange list was empty")
	}
	return s.Exchanges[len(s.Exchanges)-1]
}

// Alias returns the alias for path. New paths are recorded on the active
// exchange.
func (s *State) Alias(path string) int {
	alias, added := s.Aliases.Add(path)
	if added {
		last := s.LastExchange()
		last.Paths = append(last.Paths, path)
	}
	return alias
}
