// Package txn implements C7: the two-phase atomic update of multiple layer
// references, backed by a fsynced write-ahead log and idempotent crash
// recovery. This is the only path by which core components mutate layer
// refs (§4.7, §5).
package txn

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/google/uuid"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore"
)

// RefUpdate is one intended {ref, old, new} triple within a transaction.
type RefUpdate struct {
	Ref    string
	OldOID objstore.OID
	NewOID objstore.OID
}

// record is the on-disk write-ahead log entry.
type record struct {
	ID      string      `json:"id"`
	Updates []RefUpdate `json:"updates"`
}

// Manager runs transactions against store, persisting write-ahead records
// under walDir (cmd/jin passes the project's .jin/wal directory; the records
// are not kept under the object-store root).
type Manager struct {
	Store  objstore.Store
	WALDir string
}

func New(store objstore.Store, walDir string) *Manager {
	return &Manager{Store: store, WALDir: walDir}
}

func (m *Manager) walPath(id string) string {
	return filepath.Join(m.WALDir, "wal-"+id+".json")
}

// Run executes a two-phase commit over updates: prepare (fsynced WAL write),
// commit (CAS each ref in order), finalize (delete the WAL record). On any
// CAS failure it rolls back every ref already updated to its recorded old
// OID and returns a ConcurrencyError; the WAL record is deleted only after a
// successful rollback (every rolled-back ref back at its old OID), and is
// otherwise left in place for Recover.
func (m *Manager) Run(ctx context.Context, updates []RefUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	id := uuid.NewString()
	rec := record{ID: id, Updates: updates}
	data, err := json.Marshal(rec)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	if err := os.MkdirAll(m.WALDir, 0o750); err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	if err := atomicio.WriteFile(m.walPath(id), data, 0o644); err != nil {
		return jinerr.New(jinerr.IoError, err)
	}

	applied := 0
	for _, u := range updates {
		if err := m.Store.UpdateRef(ctx, u.Ref, u.OldOID, u.NewOID); err != nil {
			m.rollback(ctx, updates[:applied])
			restored := true
			for _, done := range updates[:applied] {
				if cur, _ := m.Store.ResolveRef(ctx, done.Ref); cur != done.OldOID {
					restored = false
				}
			}
			if restored {
				_ = os.Remove(m.walPath(id))
			}
			return jinerr.New(jinerr.ConcurrencyError, err).WithRef(u.Ref)
		}
		applied++
	}

	if err := os.Remove(m.walPath(id)); err != nil && !os.IsNotExist(err) {
		return jinerr.New(jinerr.TransactionRolledBack, err)
	}
	return nil
}

func (m *Manager) rollback(ctx context.Context, applied []RefUpdate) {
	for i := len(applied) - 1; i >= 0; i-- {
		u := applied[i]
		_ = m.Store.UpdateRef(ctx, u.Ref, u.NewOID, u.OldOID)
	}
}

// Recover scans WALDir for orphaned records at startup and idempotently
// resolves each one: if every ref already matches new-oid, finalize; if
// none do, rollback; mixed states roll back to old oids. Safe to call even
// when WALDir does not exist.
func (m *Manager) Recover(ctx context.Context) error {
	entries, err := os.ReadDir(m.WALDir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(m.WALDir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var rec record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		m.recoverOne(ctx, rec)
		_ = os.Remove(path)
	}
	return nil
}

func (m *Manager) recoverOne(ctx context.Context, rec record) {
	allNew := true
	allOld := true
	for _, u := range rec.Updates {
		cur, _ := m.Store.ResolveRef(ctx, u.Ref)
		if cur != u.NewOID {
			allNew = false
		}
		if cur != u.OldOID {
			allOld = false
		}
	}
	if allNew {
		return // already committed; just clean up the log
	}
	if allOld {
		return // never applied; nothing to undo
	}
	// Mixed state: roll every ref that did advance back to its recorded old
	// oid. Idempotent — a ref already at old-oid is a CAS no-op we ignore.
	for _, u := range rec.Updates {
		cur, _ := m.Store.ResolveRef(ctx, u.Ref)
		if cur == u.NewOID {
			_ = m.Store.UpdateRef(ctx, u.Ref, u.NewOID, u.OldOID)
		}
	}
}
