// Package memstore is an in-memory objstore.Store used by unit tests of
// C2-C12, so the core engine is testable without a git binary on PATH.
package memstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"sync"

	"github.com/dabstractor/jin/internal/objstore"
)

type Store struct {
	mu      sync.Mutex
	blobs   map[objstore.OID][]byte
	trees   map[objstore.OID][]objstore.TreeEntry
	commits map[objstore.OID]objstore.Commit
	refs    map[string]objstore.OID
	root    string
}

func New() *Store {
	return &Store{
		blobs:   make(map[objstore.OID][]byte),
		trees:   make(map[objstore.OID][]objstore.TreeEntry),
		commits: make(map[objstore.OID]objstore.Commit),
		refs:    make(map[string]objstore.OID),
		root:    "memstore",
	}
}

func hashOf(data []byte) objstore.OID {
	sum := sha256.Sum256(data)
	return objstore.OID(hex.EncodeToString(sum[:]))
}

func (s *Store) Root() string { return s.root }

func (s *Store) PutBlob(_ context.Context, content []byte) (objstore.OID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oid := hashOf(append([]byte("blob\x00"), content...))
	s.blobs[oid] = append([]byte(nil), content...)
	return oid, nil
}

func (s *Store) GetBlob(_ context.Context, oid objstore.OID) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.blobs[oid]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (s *Store) PutTree(_ context.Context, entries []objstore.TreeEntry) (objstore.OID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := append([]objstore.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	data, _ := json.Marshal(sorted)
	oid := hashOf(append([]byte("tree\x00"), data...))
	s.trees[oid] = sorted
	return oid, nil
}

func (s *Store) GetTree(_ context.Context, oid objstore.OID) ([]objstore.TreeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.trees[oid]
	if !ok {
		return nil, objstore.ErrNotFound
	}
	return append([]objstore.TreeEntry(nil), t...), nil
}

func (s *Store) PutCommit(_ context.Context, c objstore.Commit) (objstore.OID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, _ := json.Marshal(c)
	oid := hashOf(append([]byte("commit\x00"), data...))
	s.commits[oid] = c
	return oid, nil
}

func (s *Store) GetCommit(_ context.Context, oid objstore.OID) (objstore.Commit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commits[oid]
	if !ok {
		return objstore.Commit{}, objstore.ErrNotFound
	}
	return c, nil
}

func (s *Store) ResolveRef(_ context.Context, ref string) (objstore.OID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	oid, ok := s.refs[ref]
	if !ok {
		return "", objstore.ErrNotFound
	}
	return oid, nil
}

func (s *Store) UpdateRef(_ context.Context, ref string, oldOID, newOID objstore.OID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.refs[ref]
	if oldOID == "" {
		if exists {
			return objstore.ErrRefMismatch
		}
	} else if !exists || cur != oldOID {
		return objstore.ErrRefMismatch
	}
	s.refs[ref] = newOID
	return nil
}

func (s *Store) DeleteRef(_ context.Context, ref string, oldOID objstore.OID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, exists := s.refs[ref]
	if !exists || cur != oldOID {
		return objstore.ErrRefMismatch
	}
	delete(s.refs, ref)
	return nil
}

func (s *Store) ListRefs(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for ref := range s.refs {
		if len(ref) >= len(prefix) && ref[:len(prefix)] == prefix {
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) MergeBase(ctx context.Context, a, b objstore.OID) (objstore.OID, error) {
	ancestorsOfA := map[objstore.OID]bool{}
	s.walkAncestors(ctx, a, ancestorsOfA)
	queue := []objstore.OID{b}
	visited := map[objstore.OID]bool{}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == "" || visited[cur] {
			continue
		}
		visited[cur] = true
		if ancestorsOfA[cur] {
			return cur, nil
		}
		c, err := s.GetCommit(ctx, cur)
		if err != nil {
			continue
		}
		queue = append(queue, c.Parents...)
	}
	return "", objstore.ErrNotFound
}

func (s *Store) walkAncestors(ctx context.Context, oid objstore.OID, out map[objstore.OID]bool) {
	if oid == "" || out[oid] {
		return
	}
	out[oid] = true
	c, err := s.GetCommit(ctx, oid)
	if err != nil {
		return
	}
	for _, p := range c.Parents {
		s.walkAncestors(ctx, p, out)
	}
}

func (s *Store) IsAncestor(ctx context.Context, ancestor, descendant objstore.OID) (bool, error) {
	if ancestor == descendant {
		return true, nil
	}
	visited := map[objstore.OID]bool{}
	var visit func(objstore.OID) bool
	visit = func(oid objstore.OID) bool {
		if oid == "" || visited[oid] {
			return false
		}
		visited[oid] = true
		if oid == ancestor {
			return true
		}
		c, err := s.GetCommit(ctx, oid)
		if err != nil {
			return false
		}
		for _, p := range c.Parents {
			if visit(p) {
				return true
			}
		}
		return false
	}
	return visit(descendant), nil
}

var _ objstore.Store = (*Store)(nil)
