package engine

import (
	"context"
	"errors"
	"testing"
	"time"
)

func feed(frags []Fragment, err error) (<-chan Fragment, <-chan error) {
	fragCh := make(chan Fragment, len(frags))
	errCh := make(chan error, 1)
	for _, f := range frags {
		fragCh <- f
	}
	close(fragCh)
	errCh <- err
	return fragCh, errCh
}

func TestFoldFunctionCall(t *testing.T) {
	tests := []struct {
		name  string
		frags []Fragment
		want  FunctionCall
	}{
		{
			name: "single fragment",
			frags: []Fragment{
				{Name: "path", Arguments: `{"query":"auth"}`},
			},
			want: FunctionCall{Name: "path", Arguments: `{"query":"auth"}`},
		},
		{
			name: "arguments concatenated in order",
			frags: []Fragment{
				{Name: "code", Arguments: `{"que`},
				{Arguments: `ry":"jw`},
				{Arguments: `t"}`},
			},
			want: FunctionCall{Name: "code", Arguments: `{"query":"jwt"}`},
		},
		{
			name: "first name wins",
			frags: []Fragment{
				{Arguments: `{"paths":`},
				{Name: "none", Arguments: `[]`},
				{Name: "path", Arguments: `}`},
			},
			want: FunctionCall{Name: "none", Arguments: `{"paths":[]}`},
		},
		{
			name: "empty stream",
			want: FunctionCall{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fragCh, errCh := feed(tt.frags, nil)
			got, err := FoldFunctionCall(context.Background(), fragCh, errCh)
			if err != nil {
				t.Fatalf("FoldFunctionCall() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("FoldFunctionCall() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFoldFunctionCallStreamError(t *testing.T) {
	boom := errors.New("boom")
	fragCh, errCh := feed([]Fragment{{Name: "path", Arguments: `{"q`}}, boom)

	_, err := FoldFunctionCall(context.Background(), fragCh, errCh)
	if !errors.Is(err, boom) {
		t.Fatalf("FoldFunctionCall() error = %v, want %v", err, boom)
	}
}

func TestFoldFunctionCallCancelled(t *testing.T) {
	fragCh := make(chan Fragment)
	errCh := make(chan error)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := FoldFunctionCall(ctx, fragCh, errCh)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("FoldFunctionCall() error = %v, want deadline exceeded", err)
	}
}
