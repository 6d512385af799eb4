// Package project resolves the fixed persisted-state layout under a
// project's metadata directory (§6 "Persisted state layout").
package project

import (
	"os"
	"path/filepath"

	"github.com/dabstractor/jin/internal/jinerr"
)

const MetaDirName = ".jin"

// Paths is the set of file locations rooted at one project tree.
type Paths struct {
	Root    string // working tree root (parent of MetaDirName)
	Meta    string // {root}/.jin
	Context string // {meta}/context
	Staging string // {meta}/staging/index
	LastApplied string // {meta}/workspace/last-applied
	AuditDir    string // {meta}/audit
	Jinmap      string // {root}/.overlaymap
	HooksDir    string // {meta}/hooks
	WalDir      string // {meta}/wal
}

// Find walks up from cwd looking for a .jin directory, returning its Paths.
// Returns a NotInitialized error if none is found up to the filesystem root.
func Find() (Paths, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return Paths{}, jinerr.New(jinerr.IoError, err)
	}
	for dir := cwd; ; {
		meta := filepath.Join(dir, MetaDirName)
		if info, statErr := os.Stat(meta); statErr == nil && info.IsDir() {
			return pathsFor(dir), nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return Paths{}, jinerr.Newf(jinerr.NotInitialized, "no %s directory found (run `jin init`)", MetaDirName)
}

// At returns the Paths for a project rooted exactly at root, without
// walking up — used by init, which creates the directory that Find would
// otherwise fail to locate.
func At(root string) Paths {
	return pathsFor(root)
}

func pathsFor(root string) Paths {
	meta := filepath.Join(root, MetaDirName)
	return Paths{
		Root:        root,
		Meta:        meta,
		Context:     filepath.Join(meta, "context"),
		Staging:     filepath.Join(meta, "staging", "index"),
		LastApplied: filepath.Join(meta, "workspace", "last-applied"),
		AuditDir:    filepath.Join(meta, "audit"),
		Jinmap:      filepath.Join(root, ".overlaymap"),
		HooksDir:    filepath.Join(meta, "hooks"),
		WalDir:      filepath.Join(meta, "wal"),
	}
}

// EnsureDirs creates every directory the Paths reference, for init.
func (p Paths) EnsureDirs() error {
	for _, d := range []string{p.Meta, filepath.Dir(p.Staging), filepath.Dir(p.LastApplied), p.AuditDir, p.HooksDir, p.WalDir} {
		if err := os.MkdirAll(d, 0o750); err != nil {
			return jinerr.New(jinerr.IoError, err)
		}
	}
	return nil
}
