// Package composer implements C4: the deterministic fold of Jin's active
// layers into a single per-path output, the one algorithm every other core
// component (workspace apply, pull/merge classification) ultimately exists
// to feed or consume (§4.4).
package composer

import (
	"context"
	"sort"

	"github.com/dabstractor/jin/internal/deepmerge"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/textmerge"
	"github.com/dabstractor/jin/internal/valuemodel"
)

// Source resolves the current file set for one active layer. WorkspaceActive
// (layer 9) is never a composition input, so only the eight object-store and
// local-directory-backed layers ever need a Source.
type Source interface {
	// Files returns every path the layer currently contains and its raw
	// content. Deleted paths are simply absent from the result.
	Files(ctx context.Context, l layer.Layer) (map[string][]byte, error)
}

// Result is the output of one path's composition: either structured content
// (parsed into a valuemodel.Value and re-serialized in the winning format) or
// opaque bytes for text/binary content, plus any text-merge conflicts
// encountered along the fold.
type Result struct {
	Path      string
	Content   []byte
	Format    valuemodel.Format // FormatText for unstructured content
	Conflicts int
}

// StoreSource adapts an objstore.Store plus a layer.Context into a Source by
// resolving each layer's current ref to a commit tree and reading every blob.
type StoreSource struct {
	Store objstore.Store
	Ctx   layer.Context
}

func (s StoreSource) Files(ctx context.Context, l layer.Layer) (map[string][]byte, error) {
	ref, err := layer.RefPath(l, s.Ctx)
	if err != nil {
		return nil, err
	}
	commitOID, err := s.Store.ResolveRef(ctx, ref)
	if err != nil {
		return map[string][]byte{}, nil // layer exists in the lattice but has no commits yet
	}
	commit, err := s.Store.GetCommit(ctx, commitOID)
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	out := make(map[string][]byte)
	if err := walk(ctx, s.Store, commit.Tree, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func walk(ctx context.Context, store objstore.Store, treeOID objstore.OID, prefix string, out map[string][]byte) error {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	for _, e := range entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.Dir {
			if err := walk(ctx, store, e.OID, p, out); err != nil {
				return err
			}
			continue
		}
		content, err := store.GetBlob(ctx, e.OID)
		if err != nil {
			return jinerr.New(jinerr.IoError, err)
		}
		out[p] = content
	}
	return nil
}

// contribution is one layer's content for a path, in fold order.
type contribution struct {
	layer   layer.Layer
	content []byte
}

// Compose folds every available layer for ctx into a per-path Result map,
// per the seven steps of §4.4.
func Compose(ctx context.Context, src Source, lctx layer.Context, localDirExists bool) (map[string]Result, error) {
	active := layer.ActiveLayers(lctx, localDirExists)

	contributions := make(map[string][]contribution)

	for _, l := range active {
		files, err := src.Files(ctx, l)
		if err != nil {
			return nil, err
		}
		for path, content := range files {
			contributions[path] = append(contributions[path], contribution{layer: l, content: content})
		}
	}

	out := make(map[string]Result, len(contributions))
	for path, contribs := range contributions {
		sort.Slice(contribs, func(i, j int) bool { return contribs[i].layer < contribs[j].layer })

		format := valuemodel.DetectFormat(path)
		sameFormat := format != valuemodel.FormatText

		if sameFormat {
			res, keep, err := composeStructured(path, format, contribs)
			if err != nil {
				return nil, err
			}
			if keep {
				out[path] = res
			}
			continue
		}

		res, err := composeText(path, contribs)
		if err != nil {
			return nil, err
		}
		out[path] = res
	}
	return out, nil
}

// composeStructured parses and deep-merges every contribution left to
// right, returning keep=false when the final value is a top-level null
// (the path is deleted from the composition, per §4.2/§4.4 step 7).
func composeStructured(path string, format valuemodel.Format, contribs []contribution) (Result, bool, error) {
	var acc *valuemodel.Value
	deleted := false
	for _, c := range contribs {
		v, err := valuemodel.Parse(c.content, format)
		if err != nil {
			return Result{}, false, jinerr.New(jinerr.ParseError, err).WithPath(path)
		}
		if acc == nil {
			acc = v
			deleted = deepmerge.IsTopLevelDelete(v)
			continue
		}
		acc = deepmerge.Merge(acc, v)
		deleted = deepmerge.IsTopLevelDelete(v)
	}
	if acc == nil || deleted {
		return Result{}, false, nil
	}
	data, err := valuemodel.Emit(acc, format)
	if err != nil {
		return Result{}, false, jinerr.New(jinerr.ParseError, err).WithPath(path)
	}
	return Result{Path: path, Content: data, Format: format}, true, nil
}

// composeText left-folds a 3-way text merge across contributions: for each
// step, the previous result is "ours", the next layer is "theirs", and the
// previous step's "ours" (before merging) is "base" — empty for the first
// pair, per §4.4 step 6.
func composeText(path string, contribs []contribution) (Result, error) {
	var base, ours []byte
	conflicts := 0
	for i, c := range contribs {
		if i == 0 {
			ours = c.content
			continue
		}
		res := textmerge.Merge3Way(base, ours, c.content)
		base = ours
		ours = res.Content
		conflicts += res.Conflicts
	}
	return Result{Path: path, Content: ours, Conflicts: conflicts}, nil
}
