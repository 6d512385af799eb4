package deepmerge

import (
	"testing"

	"github.com/dabstractor/jin/internal/valuemodel"
)

func parse(t *testing.T, s string) *valuemodel.Value {
	t.Helper()
	v, err := valuemodel.Parse([]byte(s), valuemodel.FormatJSON)
	if err != nil {
		t.Fatalf("parse %q: %v", s, err)
	}
	return v
}

func TestTwoLayerMerge(t *testing.T) {
	base := parse(t, `{"timeout":30,"retries":3}`)
	overlay := parse(t, `{"timeout":5}`)
	got := Merge(base, overlay)
	want := parse(t, `{"timeout":5,"retries":3}`)
	if !got.Equal(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestNullDeletesKey(t *testing.T) {
	base := parse(t, `{"a":1,"b":{"c":2}}`)
	overlay := parse(t, `{"b":null}`)
	got := Merge(base, overlay)
	want := parse(t, `{"a":1}`)
	if !got.Equal(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestKeyedArrayMerge(t *testing.T) {
	base := parse(t, `{"items":[{"id":1,"v":"a"},{"id":2,"v":"b"}]}`)
	overlay := parse(t, `{"items":[{"id":2,"v":"c"},{"id":3,"v":"d"}]}`)
	got := Merge(base, overlay)
	want := parse(t, `{"items":[{"id":1,"v":"a"},{"id":2,"v":"c"},{"id":3,"v":"d"}]}`)
	if !got.Equal(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestUnkeyedArrayReplaced(t *testing.T) {
	base := parse(t, `{"items":[1,2,3]}`)
	overlay := parse(t, `{"items":[4]}`)
	got := Merge(base, overlay)
	want := parse(t, `{"items":[4]}`)
	if !got.Equal(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
}

func TestIdentityLaws(t *testing.T) {
	x := parse(t, `{"a":1,"b":[1,2]}`)
	if got := Merge(x, valuemodel.NewNull()); got.Kind != valuemodel.Null {
		t.Fatalf("merge(x, null) should be empty/null, got %+v", got)
	}
	if got := Merge(x, x.Clone()); !got.Equal(x) {
		t.Fatalf("merge(x, x) should equal x")
	}
	empty := valuemodel.NewMapping()
	if got := Merge(empty, x); !got.Equal(x) {
		t.Fatalf("merge(empty, x) should equal x")
	}
}

func TestScalarConflictIsRightBiased(t *testing.T) {
	base := parse(t, `{"a":1}`)
	overlay := parse(t, `{"a":2}`)
	got := Merge(base, overlay)
	a, _ := got.MapVal.Get("a")
	if a.IntVal != 2 {
		t.Fatalf("expected right-biased scalar, got %+v", a)
	}
}
