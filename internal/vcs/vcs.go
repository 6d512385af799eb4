// Package vcs abstracts the minimal primary-VCS operations Jin needs to stay
// out of the primary repository's history while still cooperating with it:
// locating the repo root, and reading/writing the managed block in its
// ignore file (§4.10). Jin's own history lives entirely in the object store
// (internal/objstore); this package never touches primary-VCS commits.
package vcs

import (
	"context"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/dabstractor/jin/internal/jinerr"
)

// VCS is the primary-VCS abstraction. A Git implementation is provided;
// callers needing Jujutsu or another backend implement the same interface.
type VCS interface {
	// RepoRoot returns the primary repository's working tree root.
	RepoRoot(ctx context.Context) (string, error)
	// IsFileTracked reports whether path is tracked by the primary VCS.
	IsFileTracked(ctx context.Context, path string) (bool, error)
	// IgnoreFilePath returns the path to the VCS's ignore file. It does not
	// create the file.
	IgnoreFilePath(ctx context.Context) (string, error)
}

// Git shells out to the system git binary, following the same os/exec
// idiom as internal/objstore/gitback.
type Git struct {
	Dir string
}

func New(dir string) Git { return Git{Dir: dir} }

func (g Git) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = g.Dir
	out, err := cmd.Output()
	if err != nil {
		return "", jinerr.New(jinerr.IoError, err)
	}
	return strings.TrimSpace(string(out)), nil
}

func (g Git) RepoRoot(ctx context.Context) (string, error) {
	return g.run(ctx, "rev-parse", "--show-toplevel")
}

func (g Git) IsFileTracked(ctx context.Context, path string) (bool, error) {
	_, err := g.run(ctx, "ls-files", "--error-unmatch", "--", path)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (g Git) IgnoreFilePath(ctx context.Context) (string, error) {
	root, err := g.RepoRoot(ctx)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, ".gitignore"), nil
}

// Untrack removes path from the index without touching the working tree
// copy, the git side of `jin import` pulling a file out of primary-VCS
// history and into Jin's managed block.
func (g Git) Untrack(ctx context.Context, path string) error {
	_, err := g.run(ctx, "rm", "--cached", "--ignore-unmatch", "--", path)
	return err
}
