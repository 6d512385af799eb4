// Package resetengine implements C11: moving one or more layer references
// back to a target commit, with three variants that progressively widen the
// blast radius (soft/mixed/hard), operating inside a single layer
// transaction so a multi-layer reset is atomic.
package resetengine

import (
	"context"
	"os"

	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/staging"
	"github.com/dabstractor/jin/internal/txn"
	"github.com/dabstractor/jin/internal/workspace"
)

type Mode int

const (
	Soft Mode = iota
	Mixed
	Hard
)

// Target is one layer's reset destination.
type Target struct {
	Layer     layer.Layer
	NewCommit objstore.OID
}

// Options controls a hard reset's interaction with detached workspace state.
type Options struct {
	Force bool // bypasses the detached-state refusal by clearing last-applied metadata first
}

// Run moves every target layer's ref to its NewCommit inside one
// transaction, then applies the mode's additional effects. For Hard, root,
// ignoreFilePath, the prior composition and a fresh composer.Source (already
// reflecting the new ref state — call Compose again after Run's transaction
// commits) must be supplied via HardApply, since materializing the working
// tree requires composing with the post-reset refs.
func Run(ctx context.Context, store objstore.Store, mgr *txn.Manager, jm *jinmap.Jinmap, idx *staging.Index, lctx layer.Context, targets []Target, mode Mode) error {
	if len(targets) == 0 {
		return jinerr.Newf(jinerr.StagingError, "no reset targets given")
	}

	var updates []txn.RefUpdate
	refForLayer := make(map[layer.Layer]string, len(targets))
	for _, tgt := range targets {
		ref, err := layer.RefPath(tgt.Layer, lctx)
		if err != nil {
			return err
		}
		refForLayer[tgt.Layer] = ref
		oldOID, err := store.ResolveRef(ctx, ref)
		if err != nil {
			oldOID = ""
		}
		updates = append(updates, txn.RefUpdate{Ref: ref, OldOID: oldOID, NewOID: tgt.NewCommit})
	}

	if err := mgr.Run(ctx, updates); err != nil {
		return err
	}

	for _, tgt := range targets {
		ref := refForLayer[tgt.Layer]
		commit, err := store.GetCommit(ctx, tgt.NewCommit)
		if err != nil {
			return jinerr.New(jinerr.IoError, err)
		}
		paths, err := walkPaths(ctx, store, commit.Tree, "")
		if err != nil {
			return err
		}
		jm.SetLayer(ref, paths)

		if mode == Mixed || mode == Hard {
			for _, e := range idx.EntriesForLayer(tgt.Layer) {
				idx.Remove(e.Path)
			}
		}
	}

	return nil
}

// HardApply performs the hard-reset variant's working tree restoration: it
// re-composes with the post-reset layer state and calls workspace.Apply,
// refusing on detached state unless opts.Force — in which case the
// last-applied metadata is discarded first so the detached check can never
// block the override, per §4.11's "bypasses... by removing the last-applied
// metadata before re-applying."
func HardApply(ctx context.Context, root, ignoreFilePath string, src composer.Source, lctx layer.Context, localDirExists bool, metaPath string, opts Options) error {
	if opts.Force {
		if err := os.Remove(metaPath); err != nil && !os.IsNotExist(err) {
			return jinerr.New(jinerr.IoError, err)
		}
	}

	meta, err := workspace.LoadMetadata(metaPath)
	if err != nil {
		return err
	}

	composed, err := composer.Compose(ctx, src, lctx, localDirExists)
	if err != nil {
		return err
	}

	plan, err := workspace.Diff(root, composed, meta)
	if err != nil {
		return err
	}
	if len(plan.Detached) > 0 && !opts.Force {
		return jinerr.Newf(jinerr.Detached, "working tree has diverged; rerun with --force to discard local edits: %v", plan.Detached)
	}

	if err := workspace.Apply(ctx, root, ignoreFilePath, composed, plan, meta, workspace.Options{Force: true}); err != nil {
		return err
	}
	return meta.Save(metaPath)
}

func walkPaths(ctx context.Context, store objstore.Store, treeOID objstore.OID, prefix string) ([]string, error) {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var out []string
	for _, e := range entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.Dir {
			sub, err := walkPaths(ctx, store, e.OID, p)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
