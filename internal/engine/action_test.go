package engine

import (
	"errors"
	"reflect"
	"testing"
)

func TestDecodeAction(t *testing.T) {
	tests := []struct {
		name    string
		call    FunctionCall
		want    Action
		wantErr error
	}{
		{
			name: "path",
			call: FunctionCall{Name: "path", Arguments: `{"query":"auth"}`},
			want: Path{Query: "auth"},
		},
		{
			name: "code",
			call: FunctionCall{Name: "code", Arguments: `{"query":"bearer token"}`},
			want: Code{Query: "bearer token"},
		},
		{
			name: "proc",
			call: FunctionCall{Name: "proc", Arguments: `{"query":"where is the token checked","paths":[0,2]}`},
			want: Proc{Query: "where is the token checked", Paths: []int{0, 2}},
		},
		{
			name: "answer",
			call: FunctionCall{Name: "none", Arguments: `{"paths":[1]}`},
			want: Answer{Paths: []int{1}},
		},
		{
			name: "answer without paths",
			call: FunctionCall{Name: "none", Arguments: `{"paths":[]}`},
			want: Answer{Paths: []int{}},
		},
		{
			name:    "missing name",
			call:    FunctionCall{Arguments: `{"query":"auth"}`},
			wantErr: ErrMissingName,
		},
		{
			name:    "arguments are not json",
			call:    FunctionCall{Name: "path", Arguments: `{"query":`},
			wantErr: ErrInvalidArguments,
		},
		{
			name:    "unknown function",
			call:    FunctionCall{Name: "grep", Arguments: `{"query":"auth"}`},
			wantErr: ErrUnknownAction,
		},
		{
			name:    "query is not a string",
			call:    FunctionCall{Name: "path", Arguments: `{"query":42}`},
			wantErr: ErrUnknownAction,
		},
		{
			name:    "proc without paths",
			call:    FunctionCall{Name: "proc", Arguments: `{"query":"auth"}`},
			wantErr: ErrUnknownAction,
		},
		{
			name:    "negative alias",
			call:    FunctionCall{Name: "none", Arguments: `{"paths":[-1]}`},
			wantErr: ErrUnknownAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeAction(tt.call)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DecodeAction() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeAction() error = %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("DecodeAction() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecodeActionSchemaErrors(t *testing.T) {
	_, err := DecodeAction(FunctionCall{Name: "code", Arguments: `{}`})
	var ve *ArgsValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error %v is not an *ArgsValidationError", err)
	}
	if ve.Function != "code" {
		t.Errorf("Function = %q, want code", ve.Function)
	}
	if len(ve.Errors) == 0 {
		t.Error("expected at least one schema error")
	}
}

func TestEncodeAction(t *testing.T) {
	tests := []struct {
		name   string
		action Action
		want   string
	}{
		{"query", Query{Text: "how is auth done"}, `{"query":"how is auth done"}`},
		{"path", Path{Query: "auth"}, `{"path":{"query":"auth"}}`},
		{"code", Code{Query: "jwt"}, `{"code":{"query":"jwt"}}`},
		{"proc", Proc{Query: "jwt", Paths: []int{0, 3}}, `{"proc":{"query":"jwt","paths":[0,3]}}`},
		{"answer", Answer{Paths: []int{2}}, `{"none":{"paths":[2]}}`},
		{"answer nil paths", Answer{}, `{"none":{"paths":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeAction(tt.action)
			if err != nil {
				t.Fatalf("EncodeAction() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("EncodeAction() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFunctions(t *testing.T) {
	names := func(fns []FunctionSchema) []string {
		var out []string
		for _, f := range fns {
			out = append(out, f.Name)
		}
		return out
	}

	if got, want := names(Functions(false)), []string{"code", "path", "none"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Functions(false) = %v, want %v", got, want)
	}
	if got, want := names(Functions(true)), []string{"code", "path", "none", "proc"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Functions(true) = %v, want %v", got, want)
	}
}
