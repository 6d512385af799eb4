// Package treebuilder implements C6: constructing object-store trees and
// commits corresponding to a group of staged operations targeting one
// layer.
package treebuilder

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore"
)

// Op is one path-level operation to apply to a layer's tree.
type Op struct {
	Path       string
	Delete     bool
	BlobOID    objstore.OID
	Mode       uint32
	RenameFrom string // non-empty for a rename; Path is the destination
}

// node is an in-memory mutable tree used while applying a batch of ops,
// materialized into real tree objects only once, bottom-up, in Build.
type node struct {
	children map[string]*node
	blob     objstore.OID
	mode     uint32
	isBlob   bool
}

func newNode() *node { return &node{children: make(map[string]*node)} }

// Build applies ops to the tree at baseTree (objstore.OID may be empty for
// a brand-new layer), producing a new tree OID and commit, with parent as
// the previous commit OID for the layer (empty for the layer's root
// commit). Returns the new commit OID and the sorted list of paths the
// commit's tree now contains (not just the affected paths) for Jinmap
// maintenance.
func Build(ctx context.Context, store objstore.Store, baseTree objstore.OID, ops []Op, parent objstore.OID, message, author string) (objstore.OID, []string, error) {
	root := newNode()
	if baseTree != "" {
		if err := loadInto(ctx, store, root, baseTree); err != nil {
			return "", nil, err
		}
	}

	for _, op := range ops {
		if op.RenameFrom != "" {
			applyRename(root, op.RenameFrom, op.Path)
			continue
		}
		if op.Delete {
			deletePath(root, op.Path)
			continue
		}
		setPath(root, op.Path, op.BlobOID, op.Mode)
	}

	treeOID, err := materialize(ctx, store, root)
	if err != nil {
		return "", nil, err
	}

	var parents []objstore.OID
	if parent != "" {
		parents = []objstore.OID{parent}
	}
	commitOID, err := store.PutCommit(ctx, objstore.Commit{
		Tree:    treeOID,
		Parents: parents,
		Message: message,
		Author:  author,
	})
	if err != nil {
		return "", nil, jinerr.New(jinerr.IoError, err)
	}

	paths, err := collectPaths(ctx, store, treeOID)
	if err != nil {
		return "", nil, err
	}
	return commitOID, paths, nil
}

// CommitMessage builds the machine-parsable header §4.6 requires: a Jin
// identifier line, the logical operation, and the affected paths.
func CommitMessage(operation string, paths []string) string {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	var b strings.Builder
	fmt.Fprintf(&b, "jin: %s\n\n", operation)
	for _, p := range sorted {
		fmt.Fprintf(&b, "Affects: %s\n", p)
	}
	return b.String()
}

func loadInto(ctx context.Context, store objstore.Store, n *node, treeOID objstore.OID) error {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	for _, e := range entries {
		if e.Dir {
			child := newNode()
			if err := loadInto(ctx, store, child, e.OID); err != nil {
				return err
			}
			n.children[e.Name] = child
		} else {
			n.children[e.Name] = &node{isBlob: true, blob: e.OID, mode: e.Mode, children: map[string]*node{}}
		}
	}
	return nil
}

func setPath(root *node, p string, blob objstore.OID, mode uint32) {
	parts := strings.Split(path.Clean(p), "/")
	cur := root
	for i, part := range parts {
		if i == len(parts)-1 {
			cur.children[part] = &node{isBlob: true, blob: blob, mode: mode, children: map[string]*node{}}
			return
		}
		child, ok := cur.children[part]
		if !ok || child.isBlob {
			child = newNode()
			cur.children[part] = child
		}
		cur = child
	}
}

func deletePath(root *node, p string) {
	parts := strings.Split(path.Clean(p), "/")
	cur := root
	for i, part := range parts {
		if i == len(parts)-1 {
			delete(cur.children, part)
			pruneEmpty(root, parts[:len(parts)-1])
			return
		}
		child, ok := cur.children[part]
		if !ok {
			return
		}
		cur = child
	}
}

// pruneEmpty removes now-empty intermediate directory nodes left behind by a
// delete, so an emptied directory doesn't materialize as an empty tree.
func pruneEmpty(root *node, dirParts []string) {
	if len(dirParts) == 0 {
		return
	}
	path := make([]*node, 0, len(dirParts)+1)
	path = append(path, root)
	cur := root
	for _, part := range dirParts {
		child, ok := cur.children[part]
		if !ok {
			return
		}
		path = append(path, child)
		cur = child
	}
	for i := len(path) - 1; i > 0; i-- {
		if len(path[i].children) > 0 {
			break
		}
		delete(path[i-1].children, dirParts[i-1])
	}
}

func applyRename(root *node, from, to string) {
	parts := strings.Split(path.Clean(from), "/")
	cur := root
	var src *node
	for i, part := range parts {
		if i == len(parts)-1 {
			src = cur.children[part]
			delete(cur.children, part)
			pruneEmpty(root, parts[:len(parts)-1])
			break
		}
		child, ok := cur.children[part]
		if !ok {
			return
		}
		cur = child
	}
	if src == nil {
		return
	}
	toParts := strings.Split(path.Clean(to), "/")
	dst := root
	for i, part := range toParts {
		if i == len(toParts)-1 {
			dst.children[part] = src
			return
		}
		child, ok := dst.children[part]
		if !ok || child.isBlob {
			child = newNode()
			dst.children[part] = child
		}
		dst = child
	}
}

func materialize(ctx context.Context, store objstore.Store, n *node) (objstore.OID, error) {
	var entries []objstore.TreeEntry
	names := make([]string, 0, len(n.children))
	for name := range n.children {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		child := n.children[name]
		if child.isBlob {
			entries = append(entries, objstore.TreeEntry{Name: name, OID: child.blob, Mode: child.mode})
			continue
		}
		if len(child.children) == 0 {
			continue // empty directories have no git-tree representation
		}
		sub, err := materialize(ctx, store, child)
		if err != nil {
			return "", err
		}
		entries = append(entries, objstore.TreeEntry{Name: name, OID: sub, Dir: true})
	}
	oid, err := store.PutTree(ctx, entries)
	if err != nil {
		return "", jinerr.New(jinerr.IoError, err)
	}
	return oid, nil
}

func collectPaths(ctx context.Context, store objstore.Store, treeOID objstore.OID) ([]string, error) {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var out []string
	for _, e := range entries {
		if e.Dir {
			sub, err := collectPaths(ctx, store, e.OID)
			if err != nil {
				return nil, err
			}
			for _, s := range sub {
				out = append(out, e.Name+"/"+s)
			}
			continue
		}
		out = append(out, e.Name)
	}
	sort.Strings(out)
	return out, nil
}
