// Package jinmap implements C5: a cached layer -> files inventory persisted
// alongside project metadata, rebuildable from a scan of layer trees.
package jinmap

import (
	"context"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore"
)

const SchemaVersion = 1

// Jinmap maps an object-store reference string to the set of paths its tree
// currently contains.
type Jinmap struct {
	Version int                 `yaml:"version"`
	Layers  map[string][]string `yaml:"layers"`
}

func New() *Jinmap {
	return &Jinmap{Version: SchemaVersion, Layers: make(map[string][]string)}
}

// Load reads path, returning a fresh empty Jinmap if it doesn't exist yet.
func Load(path string) (*Jinmap, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var jm Jinmap
	if err := yaml.Unmarshal(data, &jm); err != nil {
		return nil, jinerr.New(jinerr.ParseError, err)
	}
	if jm.Layers == nil {
		jm.Layers = make(map[string][]string)
	}
	return &jm, nil
}

// Save persists the Jinmap via write-temp-then-rename.
func (jm *Jinmap) Save(path string) error {
	data, err := yaml.Marshal(jm)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	if err := atomicio.WriteFile(path, data, 0o644); err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	return nil
}

// SetLayer replaces the recorded file set for ref.
func (jm *Jinmap) SetLayer(ref string, paths []string) {
	sorted := append([]string(nil), paths...)
	sort.Strings(sorted)
	jm.Layers[ref] = sorted
}

// Contains reports whether path is known to Jin under any recorded layer.
func (jm *Jinmap) Contains(path string) bool {
	for _, paths := range jm.Layers {
		if containsSorted(paths, path) {
			return true
		}
	}
	return false
}

// LayersContaining returns every ref that currently records path.
func (jm *Jinmap) LayersContaining(path string) []string {
	var out []string
	for ref, paths := range jm.Layers {
		if containsSorted(paths, path) {
			out = append(out, ref)
		}
	}
	sort.Strings(out)
	return out
}

// FilesInLayer returns the recorded file set for ref.
func (jm *Jinmap) FilesInLayer(ref string) []string {
	return jm.Layers[ref]
}

func containsSorted(sorted []string, target string) bool {
	i := sort.SearchStrings(sorted, target)
	return i < len(sorted) && sorted[i] == target
}

// Rebuild re-scans every ref's current commit tree and replaces the entire
// Jinmap. This is the documented recovery path when the cached map is
// suspected stale or missing; it does not require trusting any existing
// Jinmap state.
func Rebuild(ctx context.Context, store objstore.Store, refs []string) (*Jinmap, error) {
	jm := New()
	for _, ref := range refs {
		commitOID, err := store.ResolveRef(ctx, ref)
		if err != nil {
			continue // ref not yet created; nothing to record
		}
		commit, err := store.GetCommit(ctx, commitOID)
		if err != nil {
			return nil, jinerr.New(jinerr.IoError, err)
		}
		paths, err := walkTreePaths(ctx, store, commit.Tree, "")
		if err != nil {
			return nil, jinerr.New(jinerr.IoError, err)
		}
		jm.SetLayer(ref, paths)
	}
	return jm, nil
}

func walkTreePaths(ctx context.Context, store objstore.Store, treeOID objstore.OID, prefix string) ([]string, error) {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.Dir {
			sub, err := walkTreePaths(ctx, store, e.OID, p)
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
