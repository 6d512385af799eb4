// Package objstore defines Jin's external collaborator: a content-addressed
// store of blobs, trees and commits, plus named references with atomic
// compare-and-swap. Per §1 this is specified only by interface; this package
// also ships two concrete implementations — memstore (an in-memory double
// used by unit tests) and gitback (a real git-plumbing-backed store) — so
// the rest of the module is runnable without inventing a bespoke format.
package objstore

import (
	"context"
	"errors"
)

// OID is a content-addressed object identifier (a hex digest).
type OID string

// TreeEntry is one named, typed member of a tree object.
type TreeEntry struct {
	Name string
	OID  OID
	Mode uint32 // POSIX-style file mode of a blob entry; directories are identified by Dir
	Dir  bool
}

// Commit is an immutable object store commit: a tree plus zero or more
// parents (zero for the first commit on a ref, two for a layer merge per
// C12 step 4) and a machine-parsable message.
type Commit struct {
	Tree    OID
	Parents []OID
	Message string
	Author  string
}

// ErrRefMismatch is returned by UpdateRef when the observed old OID does not
// match expected — the object store's native compare-and-swap failure,
// surfaced by C7 as a ConcurrencyError.
var ErrRefMismatch = errors.New("objstore: ref compare-and-swap mismatch")

// ErrNotFound is returned when an OID, ref, or tree entry does not exist.
var ErrNotFound = errors.New("objstore: not found")

// Store is the external collaborator interface. All methods must be safe to
// call from a single-threaded, one-process-per-invocation caller; cross
// process coordination is provided solely by UpdateRef's CAS semantics.
type Store interface {
	// PutBlob stores content and returns its OID.
	PutBlob(ctx context.Context, content []byte) (OID, error)
	// GetBlob retrieves blob content by OID.
	GetBlob(ctx context.Context, oid OID) ([]byte, error)

	// PutTree stores a tree of entries (already-sorted by Name) and returns
	// its OID.
	PutTree(ctx context.Context, entries []TreeEntry) (OID, error)
	// GetTree retrieves a tree's entries by OID.
	GetTree(ctx context.Context, oid OID) ([]TreeEntry, error)

	// PutCommit stores a commit object and returns its OID.
	PutCommit(ctx context.Context, c Commit) (OID, error)
	// GetCommit retrieves a commit by OID.
	GetCommit(ctx context.Context, oid OID) (Commit, error)

	// ResolveRef returns the commit OID a reference currently points to, or
	// ErrNotFound if the ref does not exist.
	ResolveRef(ctx context.Context, ref string) (OID, error)
	// UpdateRef atomically sets ref to newOID, requiring the ref's current
	// value to equal oldOID (empty oldOID means "ref must not exist yet").
	// Returns ErrRefMismatch on CAS failure.
	UpdateRef(ctx context.Context, ref string, oldOID, newOID OID) error
	// DeleteRef removes ref entirely, requiring its current value to equal
	// oldOID.
	DeleteRef(ctx context.Context, ref string, oldOID OID) error
	// ListRefs returns every reference path matching prefix.
	ListRefs(ctx context.Context, prefix string) ([]string, error)

	// MergeBase returns the most recent common ancestor commit of a and b,
	// or ErrNotFound if the histories share no ancestor.
	MergeBase(ctx context.Context, a, b OID) (OID, error)
	// IsAncestor reports whether ancestor is a (possibly indirect) parent of
	// descendant.
	IsAncestor(ctx context.Context, ancestor, descendant OID) (bool, error)

	// Root returns the filesystem root this store instance was configured
	// with, for diagnostics. The write-ahead log is not kept under it.
	Root() string
}
