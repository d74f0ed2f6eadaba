package rpc

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var sumParams = Params{{Name: "a", Type: "int"}, {Name: "b", Type: "int"}}

func raws(values ...string) []json.RawMessage {
	out := make([]json.RawMessage, len(values))
	for i, v := range values {
		out[i] = json.RawMessage(v)
	}
	return out
}

func TestValidateParamsNamedFollowsDeclaredOrder(t *testing.T) {
	tests := []struct {
		name     string
		provided string
		want     []json.RawMessage
	}{
		{"declared order", `{"a":1,"b":2}`, raws("1", "2")},
		{"reversed order", `{"b":2,"a":1}`, raws("1", "2")},
		{"whitespace", ` { "b" : "x" , "a" : [1] } `, raws(`[1]`, `"x"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateParams(json.RawMessage(tt.provided), sumParams)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("args mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateParamsPositional(t *testing.T) {
	tests := []struct {
		provided string
		wantErr  string
	}{
		{`[1,2]`, ""},
		{`["not","numbers"]`, ""},
		{`[1]`, "Expected 2 params. Received 1."},
		{`[1,2,3]`, "Expected 2 params. Received 3."},
		{`[]`, "Expected 2 params. Received 0."},
	}

	for _, tt := range tests {
		t.Run(tt.provided, func(t *testing.T) {
			got, err := ValidateParams(json.RawMessage(tt.provided), sumParams)
			if tt.wantErr != "" {
				if err == nil || err.Error() != tt.wantErr {
					t.Fatalf("got error %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			var want []json.RawMessage
			json.Unmarshal([]byte(tt.provided), &want)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("array should be returned unchanged (-want +got):\n%s", diff)
			}
		})
	}
}

func TestValidateParamsMissingKey(t *testing.T) {
	_, err := ValidateParams(json.RawMessage(`{"a":1,"c":2}`), sumParams)
	if err == nil {
		t.Fatal("expected error for missing key")
	}
	if got, want := err.Error(), "Params must include 'b'"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidateParamsCountMismatch(t *testing.T) {
	_, err := ValidateParams(json.RawMessage(`{"a":1}`), sumParams)
	if err == nil {
		t.Fatal("expected error for count mismatch")
	}
	if got, want := err.Error(), "Expected 2 params. Received 1."; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidateParamsShape(t *testing.T) {
	for _, provided := range []string{``, `null`, `1`, `"a"`, `true`} {
		_, err := ValidateParams(json.RawMessage(provided), sumParams)
		if err == nil {
			t.Errorf("%q: expected error", provided)
			continue
		}
		if got, want := err.Error(), "Params must be one of 'object' or 'array'"; got != want {
			t.Errorf("%q: got %q, want %q", provided, got, want)
		}
	}
}

func TestValidateParamsEmptySchema(t *testing.T) {
	for _, provided := range []string{`{}`, `[]`} {
		got, err := ValidateParams(json.RawMessage(provided), Params{})
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", provided, err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("%s: got %v, want empty args", provided, got)
		}
	}
}

func TestValidateMethod(t *testing.T) {
	sum := &Method{Namespace: "math", Name: "sum", Params: sumParams, Func: Nop}
	methods := map[string]*Method{"sum": sum}

	got, err := ValidateMethod("sum", methods)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != sum {
		t.Errorf("got %v, want the registered method", got)
	}

	got, err = ValidateMethod("missing", methods)
	if err == nil {
		t.Fatal("expected error for unknown method")
	}
	if want := "Method with name 'missing' could not be found."; err.Error() != want {
		t.Errorf("got %q, want %q", err.Error(), want)
	}
	if got == nil || got.Namespace != "" || got.Name != "" || len(got.Params) != 0 {
		t.Errorf("got %+v, want the empty method", got)
	}
	if reflect.ValueOf(got.Func).Pointer() != reflect.ValueOf(Nop).Pointer() {
		t.Error("empty method Func should be Nop")
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		raw  string
		want byte
	}{
		{``, 0},
		{`   `, 0},
		{` [1]`, '['},
		{"\n{}", '{'},
		{`"x"`, '"'},
		{`null`, 'n'},
		{`-1`, '-'},
		{"\t42", '4'},
		{`false`, 'f'},
	}
	for _, tt := range tests {
		if got := Kind(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("Kind(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
