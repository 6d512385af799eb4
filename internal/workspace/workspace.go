// Package workspace implements C10: materializing a composition into the
// primary working tree, tracking what was last applied so a later apply or
// reset can detect hand-edits (detached state), and maintaining the managed
// block in the primary VCS's ignore file.
package workspace

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dabstractor/jin/internal/atomicio"
	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/jinerr"
)

const (
	sentinelBegin = "# >>> jin managed block — do not edit by hand >>>"
	sentinelEnd   = "# <<< jin managed block <<<"
)

// FileState is the last-applied record for one composed path.
type FileState struct {
	Digest string `yaml:"digest"`
	Mode   uint32 `yaml:"mode"`
}

// Metadata is the persisted "last-applied" record (§3 WorkspaceMetadata).
type Metadata struct {
	Version     int                  `yaml:"version"`
	CommitOIDs  map[string]string    `yaml:"commit-oids"` // ref -> commit oid, per contributing layer
	Files       map[string]FileState `yaml:"files"`
	AppliedAt   string               `yaml:"applied-at,omitempty"`
}

const SchemaVersion = 1

func NewMetadata() *Metadata {
	return &Metadata{Version: SchemaVersion, CommitOIDs: make(map[string]string), Files: make(map[string]FileState)}
}

// LoadMetadata reads path, returning empty Metadata if absent.
func LoadMetadata(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return NewMetadata(), nil
	}
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var m Metadata
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, jinerr.New(jinerr.ParseError, err)
	}
	if m.Files == nil {
		m.Files = make(map[string]FileState)
	}
	if m.CommitOIDs == nil {
		m.CommitOIDs = make(map[string]string)
	}
	return &m, nil
}

func (m *Metadata) Save(path string) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return jinerr.New(jinerr.IoError, err)
	}
	return atomicio.WriteFile(path, data, 0o644)
}

func digest(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// Plan is the outcome of comparing a composition against the working tree
// and last-applied metadata, before any mutation.
type Plan struct {
	Writes    map[string][]byte // path -> content to write (new or changed)
	Removes   []string          // paths present in last-applied but not composed
	Detached  []string          // composed or to-be-removed paths whose on-disk content diverges from last-applied
}

// Diff computes a Plan: writes are composed paths whose target content
// differs from what's currently on disk; removes are last-applied paths no
// longer in the composition; detached lists every path whose current
// on-disk content doesn't match what was last recorded as applied (§4.10
// step 2-3).
func Diff(root string, composed map[string]composer.Result, meta *Metadata) (Plan, error) {
	plan := Plan{Writes: make(map[string][]byte)}

	for path, res := range composed {
		onDisk, err := os.ReadFile(filepath.Join(root, path))
		notExist := os.IsNotExist(err)
		if err != nil && !notExist {
			return Plan{}, jinerr.New(jinerr.IoError, err).WithPath(path)
		}
		if prior, ok := meta.Files[path]; ok && !notExist && digest(onDisk) != prior.Digest {
			plan.Detached = append(plan.Detached, path)
		}
		if notExist || digest(onDisk) != digest(res.Content) {
			plan.Writes[path] = res.Content
		}
	}

	for path, prior := range meta.Files {
		if _, stillComposed := composed[path]; stillComposed {
			continue
		}
		plan.Removes = append(plan.Removes, path)
		onDisk, err := os.ReadFile(filepath.Join(root, path))
		if err == nil && digest(onDisk) != prior.Digest {
			plan.Detached = append(plan.Detached, path)
		}
	}

	sort.Strings(plan.Removes)
	sort.Strings(plan.Detached)
	return plan, nil
}

// Options controls Apply's behavior.
type Options struct {
	Force  bool
	DryRun bool
}

// Apply materializes plan against root: writes changed files atomically
// preserving mode, removes deleted paths, updates the managed ignore block,
// and updates meta's per-file records in memory; the caller saves meta, and
// CommitOIDs and AppliedAt are left to it. Refuses with a Detached error if
// plan.Detached is non-empty and !opts.Force. DryRun performs no mutation.
func Apply(ctx context.Context, root, ignoreFilePath string, composed map[string]composer.Result, plan Plan, meta *Metadata, opts Options) error {
	if len(plan.Detached) > 0 && !opts.Force {
		return jinerr.Newf(jinerr.Detached, "working tree has diverged from the last-applied composition: %v", plan.Detached)
	}
	if opts.DryRun {
		return nil
	}

	for path, content := range plan.Writes {
		res := composed[path]
		mode := os.FileMode(0o644)
		full := filepath.Join(root, path)
		if existing, err := os.Stat(full); err == nil {
			mode = existing.Mode()
		}
		if err := atomicio.WriteFile(full, content, mode); err != nil {
			return jinerr.New(jinerr.IoError, err).WithPath(path)
		}
		meta.Files[path] = FileState{Digest: digest(res.Content), Mode: uint32(mode)}
	}
	for _, path := range plan.Removes {
		if err := os.Remove(filepath.Join(root, path)); err != nil && !os.IsNotExist(err) {
			return jinerr.New(jinerr.IoError, err).WithPath(path)
		}
		delete(meta.Files, path)
	}

	paths := make([]string, 0, len(composed))
	for p := range composed {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if err := UpdateIgnoreBlock(ignoreFilePath, paths); err != nil {
		return err
	}

	return nil
}

// UpdateIgnoreBlock replaces the region between the sentinel lines in path
// with the sorted, deduplicated list of paths, leaving every other line
// untouched. Creates path (and the block) if it doesn't yet exist.
func UpdateIgnoreBlock(path string, paths []string) error {
	existing, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return jinerr.New(jinerr.IoError, err)
	}

	var before, after []string
	inBlock := false
	sawBlock := false
	scanner := bufio.NewScanner(strings.NewReader(string(existing)))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == sentinelBegin:
			inBlock = true
			sawBlock = true
			continue
		case line == sentinelEnd:
			inBlock = false
			continue
		case inBlock:
			continue
		case sawBlock:
			after = append(after, line)
		default:
			before = append(before, line)
		}
	}

	dedup := make(map[string]bool, len(paths))
	var sorted []string
	for _, p := range paths {
		if !dedup[p] {
			dedup[p] = true
			sorted = append(sorted, p)
		}
	}
	sort.Strings(sorted)

	var out strings.Builder
	for _, l := range before {
		out.WriteString(l)
		out.WriteString("\n")
	}
	out.WriteString(sentinelBegin)
	out.WriteString("\n")
	for _, p := range sorted {
		out.WriteString(p)
		out.WriteString("\n")
	}
	out.WriteString(sentinelEnd)
	out.WriteString("\n")
	for _, l := range after {
		out.WriteString(l)
		out.WriteString("\n")
	}

	return atomicio.WriteFile(path, []byte(out.String()), 0o644)
}
