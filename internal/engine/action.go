package engine

import (
	"encoding/json"
	"fmt"
)

// Action is the closed set of commands a step can receive or return.
// Answer is terminal.
type Action interface {
	// Tag is the wire name of the action.
	Tag() string
	isAction()
}

// Query is a fresh user question.
type Query struct {
	Text string
}

// Path searches file paths.
type Path struct {
	Query string `json:"query"`
}

// Code searches file contents.
type Code struct {
	Query string `json:"query"`
}

// Proc reads the aliased files and extracts the parts relevant to Query.
type Proc struct {
	Query string `json:"query"`
	Paths []int  `json:"paths"`
}

// Answer ends the loop, answering with respect to the aliased paths.
type Answer struct {
	Paths []int `json:"paths"`
}

func (Query) Tag() string  { return "query" }
func (Path) Tag() string   { return FunctionPath }
func (Code) Tag() string   { return FunctionCode }
func (Proc) Tag() string   { return FunctionProc }
func (Answer) Tag() string { return FunctionAnswer }

func (Query) isAction()  {}
func (Path) isAction()   {}
func (Code) isAction()   {}
func (Proc) isAction()   {}
func (Answer) isAction() {}

// EncodeAction renders a in its single-key wire form, e.g.
// {"path":{"query":"auth"}} or {"none":{"paths":[0,2]}}.
func EncodeAction(a Action) ([]byte, error) {
	var payload any
	switch a := a.(type) {
	case Query:
		payload = a.Text
	case Path, Code, Proc:
		payload = a
	case Answer:
		if a.Paths == nil {
			a.Paths = []int{}
		}
		payload = a
	default:
		return nil, fmt.Errorf("cannot encode action %T", a)
	}
	return json.Marshal(map[string]any{a.Tag(): payload})
}

// DecodeAction converts a model function call into an Action. The name
// is resolved against the function catalog and the arguments must match
// that function's schema.
func DecodeAction(call FunctionCall) (Action, error) {
	if call.Name == "" {
		return nil, ErrMissingName
	}

	var args any
	if err := json.Unmarshal([]byte(call.Arguments), &args); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	fn, ok := lookupFunction(call.Name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, call.Name)
	}
	if err := fn.ValidateArgs(args); err != nil {
		return nil, err
	}

	raw := []byte(call.Arguments)
	switch fn.Name {
	case FunctionPath:
		var a Path
		return decodeInto(raw, &a)
	case FunctionCode:
		var a Code
		return decodeInto(raw, &a)
	case FunctionProc:
		var a Proc
		return decodeInto(raw, &a)
	default:
		var a Answer
		return decodeInto(raw, &a)
	}
}

func decodeInto[T Action](raw []byte, dst *T) (Action, error) {
	if err := json.Unmarshal(raw, dst); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnknownAction, err)
	}
	return *dst, nil
}
