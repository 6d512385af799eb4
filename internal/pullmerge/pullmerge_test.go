package pullmerge

import (
	"context"
	"testing"

	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/objstore/memstore"
)

func commitFromFiles(t *testing.T, ctx context.Context, store objstore.Store, files map[string]string, parents ...objstore.OID) objstore.OID {
	t.Helper()
	var entries []objstore.TreeEntry
	for name, content := range files {
		oid, err := store.PutBlob(ctx, []byte(content))
		if err != nil {
			t.Fatal(err)
		}
		entries = append(entries, objstore.TreeEntry{Name: name, OID: oid})
	}
	tree, err := store.PutTree(ctx, entries)
	if err != nil {
		t.Fatal(err)
	}
	c, err := store.PutCommit(ctx, objstore.Commit{Tree: tree, Parents: parents, Message: "c"})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestClassifyUpToDate(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	c := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 1\n"})
	cls, _, err := Classify(ctx, store, c, c)
	if err != nil {
		t.Fatal(err)
	}
	if cls != UpToDate {
		t.Fatalf("expected UpToDate, got %v", cls)
	}
}

func TestClassifyFastForward(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 1\n"})
	ahead := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 2\n"}, base)

	cls, ancestor, err := Classify(ctx, store, base, ahead)
	if err != nil {
		t.Fatal(err)
	}
	if cls != FastForward || ancestor != base {
		t.Fatalf("expected FastForward with ancestor=base, got %v ancestor=%v", cls, ancestor)
	}
}

func TestClassifyLocalAhead(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 1\n"})
	ahead := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 2\n"}, base)

	cls, _, err := Classify(ctx, store, ahead, base)
	if err != nil {
		t.Fatal(err)
	}
	if cls != LocalAhead {
		t.Fatalf("expected LocalAhead, got %v", cls)
	}
}

func TestClassifyDivergent(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 1\n"})
	local := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 2\n"}, base)
	remote := commitFromFiles(t, ctx, store, map[string]string{"a.yaml": "a: 3\n"}, base)

	cls, ancestor, err := Classify(ctx, store, local, remote)
	if err != nil {
		t.Fatal(err)
	}
	if cls != Divergent || ancestor != base {
		t.Fatalf("expected Divergent with common ancestor=base, got %v ancestor=%v", cls, ancestor)
	}
}

func TestMerge3CleanlyCombinesNonOverlappingChanges(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":1,"b":2}`})
	local := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":10,"b":2}`}, base)
	remote := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":1,"b":20}`}, base)

	baseCommit, _ := store.GetCommit(ctx, base)
	localCommit, _ := store.GetCommit(ctx, local)
	remoteCommit, _ := store.GetCommit(ctx, remote)

	mergeOID, summary, err := Merge3(ctx, store, baseCommit.Tree, localCommit.Tree, remoteCommit.Tree, local, remote, "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Conflicts) != 0 {
		t.Fatalf("expected a clean merge, got conflicts: %+v", summary.Conflicts)
	}
	mergeCommit, err := store.GetCommit(ctx, mergeOID)
	if err != nil {
		t.Fatal(err)
	}
	if len(mergeCommit.Parents) != 2 || mergeCommit.Parents[0] != local || mergeCommit.Parents[1] != remote {
		t.Fatalf("expected merge commit with parents [local remote], got %+v", mergeCommit.Parents)
	}
}

func TestMerge3FlagsConflictWhenBothSidesChangeSameScalarDifferently(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":1}`})
	local := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":10}`}, base)
	remote := commitFromFiles(t, ctx, store, map[string]string{"config.json": `{"a":20}`}, base)

	baseCommit, _ := store.GetCommit(ctx, base)
	localCommit, _ := store.GetCommit(ctx, local)
	remoteCommit, _ := store.GetCommit(ctx, remote)

	_, summary, err := Merge3(ctx, store, baseCommit.Tree, localCommit.Tree, remoteCommit.Tree, local, remote, "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Conflicts) != 1 || summary.Conflicts[0].Path != "config.json" {
		t.Fatalf("expected exactly one conflict on config.json, got %+v", summary.Conflicts)
	}
}

func TestMerge3TextConflictViaThreeWayMarkers(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	base := commitFromFiles(t, ctx, store, map[string]string{"notes.txt": "line1\n"})
	local := commitFromFiles(t, ctx, store, map[string]string{"notes.txt": "line1-local\n"}, base)
	remote := commitFromFiles(t, ctx, store, map[string]string{"notes.txt": "line1-remote\n"}, base)

	baseCommit, _ := store.GetCommit(ctx, base)
	localCommit, _ := store.GetCommit(ctx, local)
	remoteCommit, _ := store.GetCommit(ctx, remote)

	_, summary, err := Merge3(ctx, store, baseCommit.Tree, localCommit.Tree, remoteCommit.Tree, local, remote, "jin")
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Conflicts) != 1 || summary.Conflicts[0].Path != "notes.txt" {
		t.Fatalf("expected a text conflict on notes.txt, got %+v", summary.Conflicts)
	}
}
