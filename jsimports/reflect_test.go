package jsimports

import (
	"testing"

	"github.com/wasmgo/jsbridge/valuetable"
)

func TestGetSetPropertyRoundTrip(t *testing.T) {
	obj := valuetable.NewObject()
	setProperty(obj, "count", float64(3))
	if got := getProperty(obj, "count"); got.(float64) != 3 {
		t.Fatalf("getProperty = %v, want 3", got)
	}
	if got := getProperty(obj, "missing"); got != (valuetable.Undefined{}) {
		t.Fatalf("getProperty on missing key = %v, want Undefined", got)
	}
}

func TestArrayIndexGrowsOnSet(t *testing.T) {
	obj := valuetable.NewObject()
	setIndex(obj, 2, "c")
	if length(obj) != 3 {
		t.Fatalf("length = %d, want 3", length(obj))
	}
	if getIndex(obj, 2) != "c" {
		t.Fatalf("getIndex(2) = %v, want c", getIndex(obj, 2))
	}
	if getIndex(obj, 0) != (valuetable.Undefined{}) {
		t.Fatalf("getIndex(0) = %v, want Undefined", getIndex(obj, 0))
	}
}

func TestCallMethodInvokesBoundFunction(t *testing.T) {
	obj := valuetable.NewObject()
	var sawThis any
	obj.Props["greet"] = &valuetable.Function{Invoke: func(this any, args []any) (any, error) {
		sawThis = this
		return "hi " + args[0].(string), nil
	}}
	result, err := callMethod(obj, "greet", []any{"world"})
	if err != nil {
		t.Fatalf("callMethod: %v", err)
	}
	if result != "hi world" {
		t.Fatalf("result = %v, want 'hi world'", result)
	}
	if sawThis != obj {
		t.Fatalf("this was not bound to the receiver object")
	}
}

func TestCallMethodOnNonFunctionErrors(t *testing.T) {
	obj := valuetable.NewObject()
	obj.Props["notAFn"] = float64(5)
	if _, err := callMethod(obj, "notAFn", nil); err == nil {
		t.Fatalf("expected an error calling a non-function property")
	}
}

func TestValueStringCoercions(t *testing.T) {
	cases := []struct {
		in   any
		want string
	}{
		{float64(2), "2"},
		{float64(2.5), "2.5"},
		{true, "true"},
		{false, "false"},
		{valuetable.Null{}, "null"},
		{valuetable.Undefined{}, "undefined"},
		{"already a string", "already a string"},
	}
	for _, c := range cases {
		if got := valueString(c.in); got != c.want {
			t.Fatalf("valueString(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}
