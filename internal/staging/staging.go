// Package staging implements C8: a persistent batch of pending per-file
// operations awaiting the commit pipeline. The routing table that maps CLI
// flags to a target layer lives in internal/layer (layer.Route).
package staging

import (
	"context"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
)

type Operation string

const (
	OpAdd    Operation = "add"
	OpDelete Operation = "delete"
	OpRename Operation = "rename"
)

// Entry is one pending per-path operation (StagedEntry in the data model).
type Entry struct {
	Path         string        `yaml:"path"`
	TargetLayer  layer.Layer   `yaml:"target-layer"`
	Operation    Operation     `yaml:"operation"`
	ContentHash  objstore.OID  `yaml:"content-hash,omitempty"`
	FileMode     uint32        `yaml:"file-mode,omitempty"`
	RenameSource string        `yaml:"rename-source,omitempty"`
}

// Index is the full path -> Entry staging mapping.
type Index struct {
	Version int              `yaml:"version"`
	Entries map[string]Entry `yaml:"entries"`
}

const SchemaVersion = 1

func New() *Index {
	return &Index{Version: SchemaVersion, Entries: make(map[string]Entry)}
}

// Load reads path, returning an empty Index if absent, and pruning entries
// whose content hash no longer resolves to a blob in store (stale-entry
// pruning per §4.8).
func Load(ctx context.Context, path string, store objstore.Store) (*Index, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var idx Index
	if err := yaml.Unmarshal(data, &idx); err != nil {
		return nil, jinerr.New(jinerr.ParseError, err)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]Entry)
	}
	if store != nil {
		for p, e := range idx.Entries {
			if e.Operation == OpDelete || e.Operation == OpRename {
				continue // deletes/renames carry no new blob to validate
			}
			if _, err := store.GetBlob(ctx, e.ContentHash); err != nil {
				delete(idx.Entries, p)
			}
		}
	}
	return &idx, nil
}

// Save persists the Index via write-temp-then-rename.
func (idx *Index) Save(path string) error {
	data, err := yaml.Marshal(idx)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	if err := atomicio.WriteFile(path, data, 0o644); err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	return nil
}

// Add replaces any prior entry for e.Path, preserving the "exactly one
// StagedEntry per path" invariant.
func (idx *Index) Add(e Entry) {
	idx.Entries[e.Path] = e
}

// Remove deletes the pending entry for path, if any.
func (idx *Index) Remove(path string) {
	delete(idx.Entries, path)
}

// Clear empties the index (called by the commit pipeline on success).
func (idx *Index) Clear() {
	idx.Entries = make(map[string]Entry)
}

// EntriesForLayer returns every pending entry targeting l, sorted by path
// for deterministic iteration.
func (idx *Index) EntriesForLayer(l layer.Layer) []Entry {
	var out []Entry
	for _, e := range idx.Entries {
		if e.TargetLayer == l {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// Layers returns the distinct set of layers with at least one pending
// entry, in ascending precedence order.
func (idx *Index) Layers() []layer.Layer {
	seen := make(map[layer.Layer]bool)
	for _, e := range idx.Entries {
		seen[e.TargetLayer] = true
	}
	var out []layer.Layer
	for _, l := range layer.All {
		if seen[l] {
			out = append(out, l)
		}
	}
	return out
}
