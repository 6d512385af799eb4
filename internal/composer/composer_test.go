package composer

import (
	"context"
	"testing"

	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/valuemodel"
)

// fakeSource lets tests hand-supply a layer's file set directly, without
// going through the object store.
type fakeSource map[layer.Layer]map[string][]byte

func (f fakeSource) Files(_ context.Context, l layer.Layer) (map[string][]byte, error) {
	if m, ok := f[l]; ok {
		return m, nil
	}
	return map[string][]byte{}, nil
}

func TestComposeDeepMergesStructuredContentAcrossLayers(t *testing.T) {
	src := fakeSource{
		layer.GlobalBase: {"config.json": []byte(`{"a":1,"b":{"c":2}}`)},
		layer.ScopeBase:  {"config.json": []byte(`{"b":{"d":3}}`)},
	}
	ctx := layer.Context{Scope: "s"}
	out, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	res, ok := out["config.json"]
	if !ok {
		t.Fatal("expected config.json in composition")
	}
	merged, err := valuemodel.Parse(res.Content, valuemodel.FormatJSON)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := merged.MapVal.Get("b")
	if b == nil {
		t.Fatal("expected key b to survive the merge")
	}
	c, _ := b.MapVal.Get("c")
	d, _ := b.MapVal.Get("d")
	if c == nil || c.IntVal != 2 || d == nil || d.IntVal != 3 {
		t.Fatalf("expected b.c=2 (from global) and b.d=3 (from scope), got %+v", b)
	}
}

func TestComposeNullDeleteRemovesPathFromComposition(t *testing.T) {
	src := fakeSource{
		layer.GlobalBase: {"config.json": []byte(`{"a":1,"b":{"c":2}}`)},
		layer.ScopeBase:  {"config.json": []byte(`null`)},
	}
	ctx := layer.Context{Scope: "s"}
	out, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out["config.json"]; ok {
		t.Fatalf("expected config.json removed by top-level null, got %+v", out["config.json"])
	}
}

func TestComposeUsesOnlyActiveLayers(t *testing.T) {
	src := fakeSource{
		layer.GlobalBase: {"global.json": []byte(`{"x":1}`)},
		layer.ModeBase:   {"mode.json": []byte(`{"y":1}`)},
	}
	ctx := layer.Context{} // no mode active
	out, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := out["global.json"]; !ok {
		t.Fatal("expected global.json present")
	}
	if _, ok := out["mode.json"]; ok {
		t.Fatal("mode-base is inactive without a mode; mode.json should not appear")
	}
}

func TestComposeTextLeftFoldsThreeWayMerges(t *testing.T) {
	src := fakeSource{
		layer.GlobalBase: {"notes.txt": []byte("line1\nline2\n")},
		layer.ScopeBase:  {"notes.txt": []byte("line1\nline2\nline3\n")},
	}
	ctx := layer.Context{Scope: "s"}
	out, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	res, ok := out["notes.txt"]
	if !ok {
		t.Fatal("expected notes.txt in composition")
	}
	// The first pair merges against an empty base, so both layers count as
	// insertions at the same point and the fold reports one conflict.
	if res.Conflicts != 1 {
		t.Fatalf("expected one conflict from the empty-base first pair, got %d conflicts", res.Conflicts)
	}
	if string(res.Content) != "<<<<<<< OURS\nline1\nline2\n=======\nline1\nline2\nline3\n>>>>>>> THEIRS\n" {
		t.Fatalf("unexpected text fold result: %q", res.Content)
	}
}

func TestComposeIsDeterministicAcrossRuns(t *testing.T) {
	src := fakeSource{
		layer.GlobalBase:  {"config.yaml": []byte("a: 1\n")},
		layer.ProjectBase: {"config.yaml": []byte("b: 2\n")},
	}
	ctx := layer.Context{Project: "p"}
	first, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Compose(context.Background(), src, ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if string(first["config.yaml"].Content) != string(second["config.yaml"].Content) {
		t.Fatalf("expected byte-identical composition across runs")
	}
}
