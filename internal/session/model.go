package session

import (
	"fmt"
	"time"

	"github.com/BB-fat/bloop/internal/engine"
)

// Thread is a persisted conversation about one repository.
type Thread struct {
	ID        string     `json:"id"`
	RepoPath  string     `json:"repo_path"`
	RepoHash  string     `json:"repo_hash"` // Used for directory scoping
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Exchanges []Exchange `json:"exchanges"`
}

// ThreadMeta is a lightweight representation for listing.
type ThreadMeta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Exchanges int       `json:"exchanges"`
}

// Exchange is the stored form of engine.Exchange. Search steps are kept
// as tagged records so they survive a JSON round trip.
type Exchange struct {
	ID     string              `json:"id"`
	Query  string              `json:"query"`
	Paths  []string            `json:"paths,omitempty"`
	Steps  []Step              `json:"steps,omitempty"`
	Answer *engine.FinalAnswer `json:"answer,omitempty"`
}

type Step struct {
	Function string   `json:"function"`
	Query    string   `json:"query"`
	Paths    []string `json:"paths,omitempty"`
	Response string   `json:"response"`
}

// FromEngine converts exchanges for storage.
func FromEngine(exchanges []engine.Exchange) []Exchange {
	out := make([]Exchange, 0, len(exchanges))
	for _, e := range exchanges {
		se := Exchange{
			ID:     e.ID,
			Query:  e.Query.Raw,
			Paths:  append([]string(nil), e.Paths...),
			Answer: e.Answer,
		}
		for _, s := range e.SearchSteps {
			st := Step{Function: s.Function(), Response: s.Output()}
			switch v := s.(type) {
			case engine.PathStep:
				st.Query = v.Query
			case engine.CodeStep:
				st.Query = v.Query
			case engine.ProcStep:
				st.Query = v.Query
				st.Paths = append([]string(nil), v.Paths...)
			}
			se.Steps = append(se.Steps, st)
		}
		out = append(out, se)
	}
	return out
}

// ToEngine rebuilds engine exchanges. Queries are parsed again so their
// filters are restored.
func ToEngine(exchanges []Exchange) ([]engine.Exchange, error) {
	out := make([]engine.Exchange, 0, len(exchanges))
	for _, se := range exchanges {
		e := engine.Exchange{
			ID:    se.ID,
			Query: engine.ParseQuery(se.Query),
			Paths: append([]string(nil), se.Paths...),
		}
		for _, st := range se.Steps {
			switch st.Function {
			case engine.FunctionPath:
				e.SearchSteps = append(e.SearchSteps, engine.PathStep{Query: st.Query, Response: st.Response})
			case engine.FunctionCode:
				e.SearchSteps = append(e.SearchSteps, engine.CodeStep{Query: st.Query, Response: st.Response})
			case engine.FunctionProc:
				e.SearchSteps = append(e.SearchSteps, engine.ProcStep{Query: st.Query, Paths: st.Paths, Response: st.Response})
			default:
				return nil, fmt.Errorf("exchange %s: unknown step function %q", se.ID, st.Function)
			}
		}
		if se.Answer != nil {
			a := *se.Answer
			e.Answer = &a
		}
		out = append(out, e)
	}
	return out, nil
}
