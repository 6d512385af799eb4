package treebuilder

import (
	"context"
	"testing"

	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/objstore/memstore"
)

func blob(t *testing.T, ctx context.Context, store objstore.Store, content string) objstore.OID {
	t.Helper()
	oid, err := store.PutBlob(ctx, []byte(content))
	if err != nil {
		t.Fatal(err)
	}
	return oid
}

func TestBuildFromEmptyTree(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	a := blob(t, ctx, store, "a: 1\n")
	b := blob(t, ctx, store, "b: 1\n")

	commitOID, paths, err := Build(ctx, store, "", []Op{
		{Path: "top.yaml", BlobOID: a, Mode: 0o644},
		{Path: "dir/nested.yaml", BlobOID: b, Mode: 0o644},
	}, "", CommitMessage("add", []string{"top.yaml", "dir/nested.yaml"}), "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "dir/nested.yaml" || paths[1] != "top.yaml" {
		t.Fatalf("expected sorted [dir/nested.yaml top.yaml], got %+v", paths)
	}

	commit, err := store.GetCommit(ctx, commitOID)
	if err != nil {
		t.Fatal(err)
	}
	if len(commit.Parents) != 0 {
		t.Fatalf("expected root commit with no parents, got %+v", commit.Parents)
	}
}

func TestBuildOnTopOfExistingTreePreservesUntouchedPaths(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	a := blob(t, ctx, store, "a: 1\n")
	base, _, err := Build(ctx, store, "", []Op{{Path: "keep.yaml", BlobOID: a, Mode: 0o644}}, "", "seed", "jin")
	if err != nil {
		t.Fatal(err)
	}
	baseCommit, err := store.GetCommit(ctx, base)
	if err != nil {
		t.Fatal(err)
	}

	c := blob(t, ctx, store, "c: 1\n")
	next, paths, err := Build(ctx, store, baseCommit.Tree, []Op{{Path: "added.yaml", BlobOID: c, Mode: 0o644}}, base, "add", "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 || paths[0] != "added.yaml" || paths[1] != "keep.yaml" {
		t.Fatalf("expected both keep.yaml and added.yaml present, got %+v", paths)
	}
	nextCommit, err := store.GetCommit(ctx, next)
	if err != nil {
		t.Fatal(err)
	}
	if len(nextCommit.Parents) != 1 || nextCommit.Parents[0] != base {
		t.Fatalf("expected new commit to parent the base commit")
	}
}

func TestDeletePrunesEmptyDirectories(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	a := blob(t, ctx, store, "a: 1\n")
	base, _, err := Build(ctx, store, "", []Op{{Path: "dir/only.yaml", BlobOID: a, Mode: 0o644}}, "", "seed", "jin")
	if err != nil {
		t.Fatal(err)
	}
	baseCommit, _ := store.GetCommit(ctx, base)

	next, paths, err := Build(ctx, store, baseCommit.Tree, []Op{{Path: "dir/only.yaml", Delete: true}}, base, "rm", "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 0 {
		t.Fatalf("expected empty tree after deleting the only file, got %+v", paths)
	}
	nextCommit, _ := store.GetCommit(ctx, next)
	entries, err := store.GetTree(ctx, nextCommit.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected pruned empty dir tree, got %+v", entries)
	}
}

func TestRenameMovesBlobWithoutDuplication(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	a := blob(t, ctx, store, "a: 1\n")
	base, _, err := Build(ctx, store, "", []Op{{Path: "old.yaml", BlobOID: a, Mode: 0o644}}, "", "seed", "jin")
	if err != nil {
		t.Fatal(err)
	}
	baseCommit, _ := store.GetCommit(ctx, base)

	next, paths, err := Build(ctx, store, baseCommit.Tree, []Op{{Path: "new.yaml", RenameFrom: "old.yaml"}}, base, "mv", "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 1 || paths[0] != "new.yaml" {
		t.Fatalf("expected only new.yaml present after rename, got %+v", paths)
	}
	nextCommit, _ := store.GetCommit(ctx, next)
	entries, err := store.GetTree(ctx, nextCommit.Tree)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name != "new.yaml" || entries[0].OID != a {
		t.Fatalf("expected renamed entry to carry the original blob oid, got %+v", entries)
	}
}

func TestCommitMessageHeaderListsAffectedPaths(t *testing.T) {
	msg := CommitMessage("add", []string{"b.yaml", "a.yaml"})
	want := "jin: add\n\nAffects: a.yaml\nAffects: b.yaml\n"
	if msg != want {
		t.Fatalf("unexpected commit message:\n%q\nwant:\n%q", msg, want)
	}
}
