package txn

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore/memstore"
)

func TestAtomicMultiLayerCommitRollsBackOnCAS(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	walDir := t.TempDir()
	mgr := New(store, walDir)

	refA := "refs/overlay/layers/mode/dev"
	refB := "refs/overlay/layers/project/p"
	if err := store.UpdateRef(ctx, refA, "", "a0"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateRef(ctx, refB, "", "b0"); err != nil {
		t.Fatal(err)
	}

	// Simulate a concurrent writer advancing refB out from under us between
	// our read of its old oid and the transaction running.
	if err := store.UpdateRef(ctx, refB, "b0", "b-concurrent"); err != nil {
		t.Fatal(err)
	}

	err := mgr.Run(ctx, []RefUpdate{
		{Ref: refA, OldOID: "a0", NewOID: "a1"},
		{Ref: refB, OldOID: "b0", NewOID: "b1"}, // stale old-oid: will CAS-fail
	})
	if !jinerr.As(err, jinerr.ConcurrencyError) {
		t.Fatalf("expected ConcurrencyError, got %v", err)
	}

	gotA, _ := store.ResolveRef(ctx, refA)
	if gotA != "a0" {
		t.Fatalf("refA should have been rolled back to a0, got %v", gotA)
	}
	gotB, _ := store.ResolveRef(ctx, refB)
	if gotB != "b-concurrent" {
		t.Fatalf("refB should be untouched at b-concurrent, got %v", gotB)
	}

	entries, _ := os.ReadDir(walDir)
	if len(entries) != 0 {
		t.Fatalf("expected WAL cleaned up after rollback, found %d entries", len(entries))
	}
}

func TestRecoverFinalizesCommittedTransaction(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	walDir := t.TempDir()
	mgr := New(store, walDir)

	ref := "refs/overlay/layers/global"
	_ = store.UpdateRef(ctx, ref, "", "new1")

	// Write a WAL record by hand simulating a crash after commit but before
	// finalize: the ref already reflects new1.
	rec := record{ID: "crash-1", Updates: []RefUpdate{{Ref: ref, OldOID: "", NewOID: "new1"}}}
	data, _ := json.Marshal(rec)
	if err := os.WriteFile(mgr.walPath("crash-1"), data, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := mgr.Recover(ctx); err != nil {
		t.Fatalf("Recover: %v", err)
	}
	entries, _ := os.ReadDir(walDir)
	if len(entries) != 0 {
		t.Fatalf("expected WAL record removed after recovery, found %d", len(entries))
	}
	got, _ := store.ResolveRef(ctx, ref)
	if got != "new1" {
		t.Fatalf("ref should remain at new1, got %v", got)
	}
}
