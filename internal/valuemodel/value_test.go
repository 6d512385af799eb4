package valuemodel

import "testing"

func TestJSONRoundTripPreservesOrder(t *testing.T) {
	in := `{"b":1,"a":2,"c":{"y":1,"x":2}}`
	v, err := Parse([]byte(in), FormatJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if got := v.MapVal.Keys(); got[0] != "b" || got[1] != "a" || got[2] != "c" {
		t.Fatalf("key order not preserved: %v", got)
	}
	out, err := Emit(v, FormatJSON)
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	v2, err := Parse(out, FormatJSON)
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if !v.Equal(v2) {
		t.Fatalf("round trip mismatch: %s", out)
	}
}

func TestJSONNumberKinds(t *testing.T) {
	v, err := Parse([]byte(`{"i":3,"f":3.5,"s":"3"}`), FormatJSON)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	i, _ := v.MapVal.Get("i")
	if i.Kind != Integer || i.IntVal != 3 {
		t.Fatalf("expected integer 3, got %+v", i)
	}
	f, _ := v.MapVal.Get("f")
	if f.Kind != Float {
		t.Fatalf("expected float, got %+v", f)
	}
	s, _ := v.MapVal.Get("s")
	if s.Kind != String || s.StrVal != "3" {
		t.Fatalf("quoted numeric string should stay a string, got %+v", s)
	}
}

func TestYAMLMergeKeyExpansion(t *testing.T) {
	doc := []byte("base: &b\n  x: 1\n  y: 2\nchild:\n  <<: *b\n  y: 3\n")
	v, err := Parse(doc, FormatYAML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	child, _ := v.MapVal.Get("child")
	x, ok := child.MapVal.Get("x")
	if !ok || x.IntVal != 1 {
		t.Fatalf("expected merged x=1, got %+v", x)
	}
	y, _ := child.MapVal.Get("y")
	if y.IntVal != 3 {
		t.Fatalf("explicit key should win over merge, got %+v", y)
	}
}

func TestTOMLDottedKeysAndOrder(t *testing.T) {
	doc := []byte("b = 1\na.x = 1\na.y = 2\n")
	v, err := Parse(doc, FormatTOML)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	keys := v.MapVal.Keys()
	if keys[0] != "b" || keys[1] != "a" {
		t.Fatalf("expected top-level order [b a], got %v", keys)
	}
	a, _ := v.MapVal.Get("a")
	if a.Kind != Mapping {
		t.Fatalf("dotted key should expand to mapping, got %v", a.Kind)
	}
}

func TestINITwoLevelMapping(t *testing.T) {
	doc := []byte("top=1\n[section]\nkey=value\n")
	v, err := Parse(doc, FormatINI)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	def, ok := v.MapVal.Get("")
	if !ok {
		t.Fatalf("expected default section under empty key")
	}
	top, _ := def.MapVal.Get("top")
	if top.StrVal != "1" {
		t.Fatalf("INI scalars must remain strings, got %+v", top)
	}
	sec, ok := v.MapVal.Get("section")
	if !ok {
		t.Fatalf("expected [section]")
	}
	key, _ := sec.MapVal.Get("key")
	if key.StrVal != "value" {
		t.Fatalf("expected value, got %+v", key)
	}
}

func TestDetectFormat(t *testing.T) {
	cases := map[string]Format{
		"a.json": FormatJSON,
		"a.yaml": FormatYAML,
		"a.yml":  FormatYAML,
		"a.toml": FormatTOML,
		"a.ini":  FormatINI,
		"a.txt":  FormatText,
	}
	for path, want := range cases {
		if got := DetectFormat(path); got != want {
			t.Errorf("DetectFormat(%s) = %v, want %v", path, got, want)
		}
	}
}
