// Package pullmerge implements C12: classifying how a layer ref moved after
// a fetch, and reconciling divergent history with a 3-way layer merge.
package pullmerge

import (
	"context"
	"errors"
	"sort"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/textmerge"
	"github.com/dabstractor/jin/internal/treebuilder"
	"github.com/dabstractor/jin/internal/valuemodel"
)

// Classification is the outcome of comparing local and remote commit OIDs
// for one layer ref against their common ancestor (§4.12 step 2).
type Classification int

const (
	UpToDate Classification = iota
	FastForward
	LocalAhead
	Divergent
)

func (c Classification) String() string {
	switch c {
	case UpToDate:
		return "up-to-date"
	case FastForward:
		return "fast-forward"
	case LocalAhead:
		return "local-ahead"
	case Divergent:
		return "divergent"
	default:
		return "unknown"
	}
}

// Classify determines how the ref moved relative to its common ancestor.
func Classify(ctx context.Context, store objstore.Store, local, remote objstore.OID) (Classification, objstore.OID, error) {
	if local == remote {
		return UpToDate, local, nil
	}
	ancestor, err := store.MergeBase(ctx, local, remote)
	if err != nil {
		if errors.Is(err, objstore.ErrNotFound) {
			return Divergent, "", nil
		}
		return Divergent, "", jinerr.New(jinerr.IoError, err)
	}
	switch {
	case ancestor == local:
		return FastForward, ancestor, nil
	case ancestor == remote:
		return LocalAhead, ancestor, nil
	default:
		return Divergent, ancestor, nil
	}
}

// Conflict records one path where the 3-way merge could not reconcile local
// and remote changes. This package only returns conflicts as data; the pull
// command (cmd/jin) writes each one as a <path>.conflict artifact beside the
// working-tree file. The workspace applier does not write conflict artifacts.
type Conflict struct {
	Path   string
	Base   []byte
	Ours   []byte
	Theirs []byte
	Binary bool
}

// Summary reports the outcome of a 3-way layer merge.
type Summary struct {
	Clean     int
	Conflicts []Conflict
}

// Merge3 walks the union of paths across trees A (ancestor), L (local) and R
// (remote), merging each per §4.12 step 3, and builds a merge commit with
// parents [L, R]. Returns the new commit OID and a Summary.
func Merge3(ctx context.Context, store objstore.Store, ancestorTree, localTree, remoteTree objstore.OID, localCommit, remoteCommit objstore.OID, author string) (objstore.OID, Summary, error) {
	aFiles, err := filesOf(ctx, store, ancestorTree)
	if err != nil {
		return "", Summary{}, err
	}
	lFiles, err := filesOf(ctx, store, localTree)
	if err != nil {
		return "", Summary{}, err
	}
	rFiles, err := filesOf(ctx, store, remoteTree)
	if err != nil {
		return "", Summary{}, err
	}

	paths := unionKeys(aFiles, lFiles, rFiles)
	summary := Summary{}
	var ops []treebuilder.Op

	for _, path := range paths {
		a, aOK := aFiles[path]
		l, lOK := lFiles[path]
		r, rOK := rFiles[path]

		if !lOK && !rOK {
			continue // deleted on both sides
		}
		if lOK && rOK && string(l) == string(r) {
			summary.Clean++
			ops = append(ops, addOp(ctx, store, path, r))
			continue
		}
		if !lOK {
			// deleted locally, present remotely: remote wins if remote differs
			// from ancestor, otherwise stays deleted.
			if aOK && string(r) == string(a) {
				continue
			}
			summary.Clean++
			ops = append(ops, addOp(ctx, store, path, r))
			continue
		}
		if !rOK {
			if aOK && string(l) == string(a) {
				continue // ancestor had it, local deleted, remote never touched: stays deleted
			}
			summary.Clean++
			ops = append(ops, addOp(ctx, store, path, l))
			continue
		}

		format := valuemodel.DetectFormat(path)
		if format != valuemodel.FormatText {
			merged, conflicted, err := mergeStructured3(a, l, r, format)
			if err != nil {
				return "", Summary{}, jinerr.New(jinerr.ParseError, err).WithPath(path)
			}
			if conflicted {
				summary.Conflicts = append(summary.Conflicts, Conflict{Path: path, Base: a, Ours: l, Theirs: r})
				ops = append(ops, addOp(ctx, store, path, l)) // ours wins the tracked tree; artifact surfaces the conflict
				continue
			}
			summary.Clean++
			ops = append(ops, addOp(ctx, store, path, merged))
			continue
		}

		res := textmerge.Merge3Way(a, l, r)
		if res.Conflicts > 0 {
			summary.Conflicts = append(summary.Conflicts, Conflict{Path: path, Base: a, Ours: l, Theirs: r, Binary: res.Binary})
		} else {
			summary.Clean++
		}
		ops = append(ops, addOp(ctx, store, path, res.Content))
	}

	message := treebuilder.CommitMessage("pull-merge", pathsFromOps(ops))
	commitOID, _, err := treebuilder.Build(ctx, store, "", ops, "", message, author)
	if err != nil {
		return "", Summary{}, err
	}
	// Rebuild the commit with both parents: treebuilder.Build only supports a
	// single parent, so reconstruct the commit object directly here with the
	// tree Build already produced.
	built, err := store.GetCommit(ctx, commitOID)
	if err != nil {
		return "", Summary{}, jinerr.New(jinerr.IoError, err)
	}
	mergeCommitOID, err := store.PutCommit(ctx, objstore.Commit{
		Tree:    built.Tree,
		Parents: []objstore.OID{localCommit, remoteCommit},
		Message: message,
		Author:  author,
	})
	if err != nil {
		return "", Summary{}, jinerr.New(jinerr.IoError, err)
	}

	return mergeCommitOID, summary, nil
}

func addOp(ctx context.Context, store objstore.Store, path string, content []byte) treebuilder.Op {
	oid, err := store.PutBlob(ctx, content)
	if err != nil {
		return treebuilder.Op{Path: path, Delete: true}
	}
	return treebuilder.Op{Path: path, BlobOID: oid, Mode: 0o644}
}

func pathsFromOps(ops []treebuilder.Op) []string {
	out := make([]string, 0, len(ops))
	for _, op := range ops {
		out = append(out, op.Path)
	}
	return out
}

// mergeStructured3 implements merge3(A, L, R) = merge(L, delta(A -> R)),
// conservatively flagging a conflict whenever a leaf scalar changed on both
// sides to different values (§4.12 step 3).
func mergeStructured3(a, l, r []byte, format valuemodel.Format) ([]byte, bool, error) {
	av, err := valuemodel.Parse(a, format)
	if err != nil {
		av = valuemodel.NewNull()
	}
	lv, err := valuemodel.Parse(l, format)
	if err != nil {
		return nil, false, err
	}
	rv, err := valuemodel.Parse(r, format)
	if err != nil {
		return nil, false, err
	}

	merged, conflicted := merge3Values(av, lv, rv)
	data, err := valuemodel.Emit(merged, format)
	if err != nil {
		return nil, false, err
	}
	return data, conflicted, nil
}

func merge3Values(a, l, r *valuemodel.Value) (*valuemodel.Value, bool) {
	if a == nil {
		a = valuemodel.NewNull()
	}
	if l.Kind == valuemodel.Mapping && r.Kind == valuemodel.Mapping && a.Kind == valuemodel.Mapping {
		return merge3Mappings(a, l, r)
	}
	if l.Equal(r) {
		return l, false
	}
	if l.Equal(a) {
		return r, false // unchanged locally, remote wins
	}
	if r.Equal(a) {
		return l, false // unchanged remotely, local wins
	}
	return l, true // both changed differently: conflict, keep local, caller records artifact
}

func merge3Mappings(a, l, r *valuemodel.Value) (*valuemodel.Value, bool) {
	out := valuemodel.NewMapping()
	conflicted := false

	keys := make(map[string]bool)
	for _, k := range a.MapVal.Keys() {
		keys[k] = true
	}
	for _, k := range l.MapVal.Keys() {
		keys[k] = true
	}
	for _, k := range r.MapVal.Keys() {
		keys[k] = true
	}
	ordered := make([]string, 0, len(keys))
	for _, k := range l.MapVal.Keys() {
		ordered = append(ordered, k)
	}
	for _, k := range r.MapVal.Keys() {
		if !contains(ordered, k) {
			ordered = append(ordered, k)
		}
	}
	for _, k := range a.MapVal.Keys() {
		if !contains(ordered, k) {
			ordered = append(ordered, k)
		}
	}

	for _, k := range ordered {
		av, hasA := a.MapVal.Get(k)
		if !hasA {
			av = valuemodel.NewNull()
		}
		lv, hasL := l.MapVal.Get(k)
		rv, hasR := r.MapVal.Get(k)

		switch {
		case !hasL && !hasR:
			continue
		case !hasL:
			if !rv.Equal(av) {
				out.MapVal.Set(k, rv)
			}
		case !hasR:
			if !lv.Equal(av) {
				out.MapVal.Set(k, lv)
			}
		default:
			mv, c := merge3Values(av, lv, rv)
			if c {
				conflicted = true
			}
			out.MapVal.Set(k, mv)
		}
	}
	return out, conflicted
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

func filesOf(ctx context.Context, store objstore.Store, treeOID objstore.OID) (map[string][]byte, error) {
	out := make(map[string][]byte)
	if treeOID == "" {
		return out, nil
	}
	if err := walk(ctx, store, treeOID, "", out); err != nil {
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

func unionKeys(maps ...map[string][]byte) []string {
	seen := make(map[string]bool)
	for _, m := range maps {
		for k := range m {
			seen[k] = true
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
