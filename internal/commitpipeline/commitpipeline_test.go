package commitpipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore/memstore"
	"github.com/dabstractor/jin/internal/staging"
	"github.com/dabstractor/jin/internal/txn"
)

func TestRunCommitsStagedEntriesAndClearsIndex(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	oid, err := store.PutBlob(ctx, []byte("a: 1\n"))
	if err != nil {
		t.Fatal(err)
	}

	idx := staging.New()
	idx.Add(staging.Entry{Path: "config.yaml", TargetLayer: layer.GlobalBase, Operation: staging.OpAdd, ContentHash: oid, FileMode: 0o644})

	jm := jinmap.New()
	mgr := txn.New(store, t.TempDir())

	auditDir := t.TempDir()
	result, err := Run(ctx, store, mgr, jm, idx, layer.Context{}, "jin", "add", auditDir)
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Layers) != 1 || result.Layers[0] != layer.GlobalBase {
		t.Fatalf("expected a single GlobalBase layer result, got %+v", result.Layers)
	}
	if len(idx.Entries) != 0 {
		t.Fatalf("expected staging index cleared after commit, got %+v", idx.Entries)
	}
	if got := jm.FilesInLayer("refs/overlay/layers/global"); len(got) != 1 || got[0] != "config.yaml" {
		t.Fatalf("expected jinmap updated with config.yaml, got %+v", got)
	}

	commitOID, err := store.ResolveRef(ctx, "refs/overlay/layers/global")
	if err != nil {
		t.Fatal(err)
	}
	if commitOID != result.Commits[layer.GlobalBase] {
		t.Fatalf("expected ref to point at the returned commit oid")
	}

	entries, err := os.ReadFile(filepath.Join(auditDir, "log.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) == 0 {
		t.Fatal("expected an audit entry to be recorded")
	}
}

func TestRunAcrossMultipleLayersIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	oidA, _ := store.PutBlob(ctx, []byte("a\n"))
	oidB, _ := store.PutBlob(ctx, []byte("b\n"))

	idx := staging.New()
	idx.Add(staging.Entry{Path: "g.yaml", TargetLayer: layer.GlobalBase, Operation: staging.OpAdd, ContentHash: oidA, FileMode: 0o644})
	idx.Add(staging.Entry{Path: "p.yaml", TargetLayer: layer.ProjectBase, Operation: staging.OpAdd, ContentHash: oidB, FileMode: 0o644})

	jm := jinmap.New()
	mgr := txn.New(store, t.TempDir())

	result, err := Run(ctx, store, mgr, jm, idx, layer.Context{Project: "demo"}, "jin", "add", t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(result.Layers) != 2 {
		t.Fatalf("expected both layers committed, got %+v", result.Layers)
	}
}

func TestRunWithEmptyStagingIsRejected(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	idx := staging.New()
	jm := jinmap.New()
	mgr := txn.New(store, t.TempDir())

	if _, err := Run(ctx, store, mgr, jm, idx, layer.Context{}, "jin", "add", ""); err == nil {
		t.Fatal("expected an error for an empty staging index")
	}
}
