// Package analytics records query lifecycle events.
package analytics

import (
	"encoding/json"
	"time"
)

// StageKind says whether an event describes input to, or output from, a step.
type StageKind string

const (
	StageInput  StageKind = "input_stage"
	StageOutput StageKind = "output_stage"
)

// Field is one named payload value. Order is preserved.
type Field struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

// EventData is the body of an event: a stage, its name and a payload.
type EventData struct {
	Kind    StageKind `json:"kind"`
	Name    string    `json:"name"`
	Payload []Field   `json:"payload,omitempty"`
}

func InputStage(name string) EventData {
	return EventData{Kind: StageInput, Name: name}
}

func OutputStage(name string) EventData {
	return EventData{Kind: StageOutput, Name: name}
}

// WithPayload returns a copy of d with key set to value.
func (d EventData) WithPayload(key string, value any) EventData {
	payload := make([]Field, len(d.Payload), len(d.Payload)+1)
	copy(payload, d.Payload)
	d.Payload = append(payload, Field{Key: key, Value: value})
	return d
}

// Get returns the first payload value stored under key.
func (d EventData) Get(key string) (any, bool) {
	for _, f := range d.Payload {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// PayloadJSON encodes the payload as a JSON object.
func (d EventData) PayloadJSON() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(d.Payload))
	for _, f := range d.Payload {
		raw, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		obj[f.Key] = raw
	}
	return json.Marshal(obj)
}

// QueryEvent ties EventData to the query and thread it happened in.
type QueryEvent struct {
	QueryID   string    `json:"query_id"`
	ThreadID  string    `json:"thread_id"`
	RepoRef   string    `json:"repo_ref,omitempty"`
	User      string    `json:"user,omitempty"`
	Data      EventData `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Tracker accepts events without acknowledging them. Implementations
// must not block the caller on I/O.
type Tracker interface {
	TrackQuery(ev QueryEvent)
}

// Nop drops every event.
type Nop struct{}

func (Nop) TrackQuery(QueryEvent) {}

// Multi fans an event out to every tracker in order.
type Multi []Tracker

func (m Multi) TrackQuery(ev QueryEvent) {
	for _, t := range m {
		t.TrackQuery(ev)
	}
}
