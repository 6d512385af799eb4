package staging

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore/memstore"
)

func TestAddReplacesExistingEntryForPath(t *testing.T) {
	idx := New()
	idx.Add(Entry{Path: "a.yaml", TargetLayer: layer.ProjectBase, Operation: OpAdd, ContentHash: "h1"})
	idx.Add(Entry{Path: "a.yaml", TargetLayer: layer.ScopeBase, Operation: OpAdd, ContentHash: "h2"})

	if len(idx.Entries) != 1 {
		t.Fatalf("expected exactly one entry for a.yaml, got %d", len(idx.Entries))
	}
	got := idx.Entries["a.yaml"]
	if got.TargetLayer != layer.ScopeBase || got.ContentHash != "h2" {
		t.Fatalf("expected second Add to replace the first, got %+v", got)
	}
}

func TestEntriesForLayerSortedByPath(t *testing.T) {
	idx := New()
	idx.Add(Entry{Path: "z.yaml", TargetLayer: layer.GlobalBase, Operation: OpAdd, ContentHash: "h1"})
	idx.Add(Entry{Path: "a.yaml", TargetLayer: layer.GlobalBase, Operation: OpAdd, ContentHash: "h2"})
	idx.Add(Entry{Path: "m.yaml", TargetLayer: layer.ScopeBase, Operation: OpAdd, ContentHash: "h3"})

	got := idx.EntriesForLayer(layer.GlobalBase)
	if len(got) != 2 || got[0].Path != "a.yaml" || got[1].Path != "z.yaml" {
		t.Fatalf("expected [a.yaml z.yaml] sorted, got %+v", got)
	}
}

func TestLayersInPrecedenceOrder(t *testing.T) {
	idx := New()
	idx.Add(Entry{Path: "p.yaml", TargetLayer: layer.ProjectBase, Operation: OpAdd, ContentHash: "h1"})
	idx.Add(Entry{Path: "g.yaml", TargetLayer: layer.GlobalBase, Operation: OpAdd, ContentHash: "h2"})

	got := idx.Layers()
	if len(got) != 2 || got[0] != layer.GlobalBase || got[1] != layer.ProjectBase {
		t.Fatalf("expected [GlobalBase ProjectBase] in ascending precedence, got %+v", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	oid, err := store.PutBlob(ctx, []byte("content"))
	if err != nil {
		t.Fatal(err)
	}

	idx := New()
	idx.Add(Entry{Path: "a.yaml", TargetLayer: layer.ProjectBase, Operation: OpAdd, ContentHash: oid})

	path := filepath.Join(t.TempDir(), "staging.yaml")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(ctx, path, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Entries) != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", len(reloaded.Entries))
	}
	if reloaded.Entries["a.yaml"].ContentHash != oid {
		t.Fatalf("content hash mismatch after round trip")
	}
}

func TestLoadPrunesStaleBlobReferences(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	idx := New()
	idx.Add(Entry{Path: "gone.yaml", TargetLayer: layer.ProjectBase, Operation: OpAdd, ContentHash: "does-not-exist-in-store"})

	path := filepath.Join(t.TempDir(), "staging.yaml")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(ctx, path, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Entries) != 0 {
		t.Fatalf("expected stale entry to be pruned on load, got %+v", reloaded.Entries)
	}
}

func TestLoadMissingFileReturnsEmptyIndex(t *testing.T) {
	idx, err := Load(context.Background(), filepath.Join(t.TempDir(), "nope.yaml"), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Entries) != 0 {
		t.Fatalf("expected empty index for missing file, got %+v", idx.Entries)
	}
}

func TestRemoveAndClear(t *testing.T) {
	idx := New()
	idx.Add(Entry{Path: "a.yaml", TargetLayer: layer.GlobalBase, Operation: OpAdd, ContentHash: "h1"})
	idx.Add(Entry{Path: "b.yaml", TargetLayer: layer.GlobalBase, Operation: OpAdd, ContentHash: "h2"})

	idx.Remove("a.yaml")
	if len(idx.Entries) != 1 {
		t.Fatalf("expected 1 entry after Remove, got %d", len(idx.Entries))
	}

	idx.Clear()
	if len(idx.Entries) != 0 {
		t.Fatalf("expected 0 entries after Clear, got %d", len(idx.Entries))
	}
}

func TestDeleteEntrySkipsBlobValidation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()

	idx := New()
	idx.Add(Entry{Path: "removed.yaml", TargetLayer: layer.GlobalBase, Operation: OpDelete})

	path := filepath.Join(t.TempDir(), "staging.yaml")
	if err := idx.Save(path); err != nil {
		t.Fatal(err)
	}

	reloaded, err := Load(ctx, path, store)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Entries) != 1 {
		t.Fatalf("expected delete entry to survive pruning (no blob to check), got %+v", reloaded.Entries)
	}
}
