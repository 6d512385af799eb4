// Package commitpipeline implements C9: turning a batch of staged entries
// into committed layer trees — the operation behind `jin commit`, and the
// target of `jin import`'s bulk-populate path.
package commitpipeline

import (
	"context"
	"fmt"

	"github.com/dabstractor/jin/internal/audit"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/staging"
	"github.com/dabstractor/jin/internal/treebuilder"
	"github.com/dabstractor/jin/internal/txn"
)

// Result summarizes one successful commit pipeline run, for callers that
// report it (CLI output, audit log).
type Result struct {
	Layers  []layer.Layer
	Commits map[layer.Layer]objstore.OID
	Paths   map[layer.Layer][]string
}

// Run rejects an empty staged index, groups entries by target layer, builds a
// new tree/commit per layer via C6, commits every layer ref update
// atomically via C7, updates the Jinmap, clears the staging index, and
// records one audit entry per moved layer ref (§4.9 step 6). The only
// per-entry check is that its operation is known; blob contents, reserved
// paths and binary content are not checked here. On any failure before the
// transaction commits, the staging index and the layer refs are left
// untouched (tree and commit objects already written by C6 stay in the
// store, unreferenced); a transaction failure is surfaced as whatever C7 returns
// (rolled back automatically). auditDir is the project's audit directory
// (project.Paths.AuditDir); audit failures are non-fatal, since the commit
// itself already succeeded by the time they occur.
func Run(ctx context.Context, store objstore.Store, mgr *txn.Manager, jm *jinmap.Jinmap, idx *staging.Index, lctx layer.Context, author, operation, auditDir string) (Result, error) {
	if len(idx.Entries) == 0 {
		return Result{}, jinerr.Newf(jinerr.StagingError, "nothing staged")
	}

	layers := idx.Layers()
	result := Result{
		Layers:  layers,
		Commits: make(map[layer.Layer]objstore.OID, len(layers)),
		Paths:   make(map[layer.Layer][]string, len(layers)),
	}

	var updates []txn.RefUpdate
	refForLayer := make(map[layer.Layer]string, len(layers))
	baseCommitForLayer := make(map[layer.Layer]objstore.OID, len(layers))

	for _, l := range layers {
		ref, err := layer.RefPath(l, lctx)
		if err != nil {
			return Result{}, err
		}
		refForLayer[l] = ref

		var baseTree objstore.OID
		oldCommit, err := store.ResolveRef(ctx, ref)
		if err == nil {
			baseCommitForLayer[l] = oldCommit
			commit, err := store.GetCommit(ctx, oldCommit)
			if err != nil {
				return Result{}, jinerr.New(jinerr.IoError, err)
			}
			baseTree = commit.Tree
		}

		ops, err := opsFor(idx.EntriesForLayer(l))
		if err != nil {
			return Result{}, err
		}

		message := treebuilder.CommitMessage(operation, pathsOf(ops))
		newCommit, paths, err := treebuilder.Build(ctx, store, baseTree, ops, oldCommit, message, author)
		if err != nil {
			return Result{}, err
		}

		result.Commits[l] = newCommit
		result.Paths[l] = paths
		updates = append(updates, txn.RefUpdate{Ref: ref, OldOID: oldCommit, NewOID: newCommit})
	}

	if err := mgr.Run(ctx, updates); err != nil {
		return Result{}, err
	}

	for _, l := range layers {
		jm.SetLayer(refForLayer[l], result.Paths[l])
	}
	idx.Clear()

	if auditDir != "" {
		for _, l := range layers {
			_, _ = audit.Append(auditDir, &audit.Entry{
				Operation: operation,
				Actor:     author,
				Layer:     l,
				Ref:       refForLayer[l],
				OldOID:    baseCommitForLayer[l],
				NewOID:    result.Commits[l],
				Paths:     result.Paths[l],
			})
		}
	}

	return result, nil
}

func opsFor(entries []staging.Entry) ([]treebuilder.Op, error) {
	ops := make([]treebuilder.Op, 0, len(entries))
	for _, e := range entries {
		switch e.Operation {
		case staging.OpAdd:
			ops = append(ops, treebuilder.Op{Path: e.Path, BlobOID: e.ContentHash, Mode: e.FileMode})
		case staging.OpDelete:
			ops = append(ops, treebuilder.Op{Path: e.Path, Delete: true})
		case staging.OpRename:
			ops = append(ops, treebuilder.Op{Path: e.Path, RenameFrom: e.RenameSource, BlobOID: e.ContentHash, Mode: e.FileMode})
		default:
			return nil, jinerr.Newf(jinerr.StagingError, "unknown staged operation %q for %s", e.Operation, e.Path)
		}
	}
	return ops, nil
}

func pathsOf(ops []treebuilder.Op) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		if op.RenameFrom != "" {
			out = append(out, fmt.Sprintf("%s -> %s", op.RenameFrom, op.Path))
			continue
		}
		out = append(out, op.Path)
	}
	return out
}
