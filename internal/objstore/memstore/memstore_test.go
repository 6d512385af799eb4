package memstore

import (
	"context"
	"testing"

	"github.com/dabstractor/jin/internal/objstore"
)

func TestBlobRoundTrip(t *testing.T) {
	s := New()
	ctx := context.Background()
	oid, err := s.PutBlob(ctx, []byte("hello"))
	if err != nil {
		t.Fatalf("PutBlob: %v", err)
	}
	got, err := s.GetBlob(ctx, oid)
	if err != nil {
		t.Fatalf("GetBlob: %v", err)
	}
	if string(got) != "hello" {
		t.Fatalf("got %q", got)
	}
}

func TestUpdateRefCAS(t *testing.T) {
	s := New()
	ctx := context.Background()
	if err := s.UpdateRef(ctx, "refs/overlay/layers/global", "", "aaa"); err != nil {
		t.Fatalf("initial set: %v", err)
	}
	if err := s.UpdateRef(ctx, "refs/overlay/layers/global", "wrong", "bbb"); err != objstore.ErrRefMismatch {
		t.Fatalf("expected CAS mismatch, got %v", err)
	}
	if err := s.UpdateRef(ctx, "refs/overlay/layers/global", "aaa", "bbb"); err != nil {
		t.Fatalf("correct CAS: %v", err)
	}
	got, _ := s.ResolveRef(ctx, "refs/overlay/layers/global")
	if got != "bbb" {
		t.Fatalf("got %v", got)
	}
}

func TestMergeBase(t *testing.T) {
	s := New()
	ctx := context.Background()
	tree, _ := s.PutTree(ctx, nil)
	root, _ := s.PutCommit(ctx, objstore.Commit{Tree: tree, Message: "root"})
	left, _ := s.PutCommit(ctx, objstore.Commit{Tree: tree, Parents: []objstore.OID{root}, Message: "left"})
	right, _ := s.PutCommit(ctx, objstore.Commit{Tree: tree, Parents: []objstore.OID{root}, Message: "right"})
	base, err := s.MergeBase(ctx, left, right)
	if err != nil {
		t.Fatalf("MergeBase: %v", err)
	}
	if base != root {
		t.Fatalf("got %v want %v", base, root)
	}
	isAnc, _ := s.IsAncestor(ctx, root, left)
	if !isAnc {
		t.Fatalf("expected root to be ancestor of left")
	}
}
