// Package audit implements the append-only audit log written after every
// successful commit pipeline run (§4.9 step 6): one JSON line per layer ref
// move, naming the operation, the layer and ref it touched, and the commit
// OIDs it moved between.
package audit

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
)

const (
	// FileName is the audit log file name stored under the project's audit
	// directory (Paths.AuditDir).
	FileName = "log.jsonl"
	idPrefix = "aud-"
)

// Entry is a single append-only audit record for one layer ref move.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`

	Operation string       `json:"operation"`
	Actor     string       `json:"actor,omitempty"`
	Layer     layer.Layer  `json:"layer"`
	Ref       string       `json:"ref"`
	OldOID    objstore.OID `json:"old_oid,omitempty"`
	NewOID    objstore.OID `json:"new_oid"`
	Paths     []string     `json:"paths,omitempty"`
}

// Path returns the path to the audit log file under dir (Paths.AuditDir).
func Path(dir string) string {
	return filepath.Join(dir, FileName)
}

// EnsureFile creates dir/FileName if it does not already exist.
func EnsureFile(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create audit directory: %w", err)
	}
	p := Path(dir)
	_, statErr := os.Stat(p)
	if statErr == nil {
		return p, nil
	}
	if !os.IsNotExist(statErr) {
		return "", fmt.Errorf("failed to stat audit log: %w", statErr)
	}
	if err := os.WriteFile(p, []byte{}, 0644); err != nil { // nolint:gosec // intended permissions
		return "", fmt.Errorf("failed to create audit log: %w", err)
	}
	return p, nil
}

// Append appends e to dir/FileName as a single JSON line. e.ID and
// e.CreatedAt are assigned if unset. This is append-only: callers must not
// mutate existing lines.
func Append(dir string, e *Entry) (string, error) {
	if e == nil {
		return "", fmt.Errorf("nil entry")
	}
	if e.Operation == "" {
		return "", fmt.Errorf("operation is required")
	}

	p, err := EnsureFile(dir)
	if err != nil {
		return "", err
	}

	if e.ID == "" {
		e.ID, err = newID()
		if err != nil {
			return "", err
		}
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	} else {
		e.CreatedAt = e.CreatedAt.UTC()
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644) // nolint:gosec // intended permissions
	if err != nil {
		return "", fmt.Errorf("failed to open audit log: %w", err)
	}
	defer func() { _ = f.Close() }()

	bw := bufio.NewWriter(f)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(e); err != nil {
		return "", fmt.Errorf("failed to write audit entry: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return "", fmt.Errorf("failed to flush audit log: %w", err)
	}

	return e.ID, nil
}

func newID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", fmt.Errorf("failed to generate id: %w", err)
	}
	return idPrefix + hex.EncodeToString(b[:]), nil
}
