// Package gitback implements objstore.Store by shelling out to the system
// git binary's plumbing commands against a bare repository, following the
// exec.Command("git", ...) style the teacher's internal/git package uses
// for worktree and sparse-checkout management. git's own
// "update-ref <ref> <new> <old>" is a native compare-and-swap, which is why
// the layer reference paths in the data model already look like git refs.
package gitback

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/dabstractor/jin/internal/objstore"
)

type Store struct {
	root string // path to the bare repository
}

const zeroOID = "0000000000000000000000000000000000000000"

// Open returns a Store rooted at dir, initializing a bare repository there
// if one does not already exist.
func Open(ctx context.Context, dir string) (*Store, error) {
	if _, err := os.Stat(filepath.Join(dir, "HEAD")); err != nil {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, err
		}
		if err := run(ctx, dir, "init", "--bare", "-q", dir); err != nil {
			return nil, err
		}
	}
	return &Store{root: dir}, nil
}

func (s *Store) Root() string { return s.root }

func (s *Store) git(ctx context.Context, args ...string) (string, error) {
	// #nosec G204 -- args are fixed plumbing subcommands; no user string
	// reaches argv[0], and ref/path arguments are validated by callers.
	cmd := exec.CommandContext(ctx, "git", append([]string{"--git-dir=" + s.root}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

func run(ctx context.Context, gitDir string, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	cmd.Dir = gitDir
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func (s *Store) PutBlob(ctx context.Context, content []byte) (objstore.OID, error) {
	cmd := exec.CommandContext(ctx, "git", "--git-dir="+s.root, "hash-object", "-w", "--stdin")
	cmd.Stdin = bytes.NewReader(content)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git hash-object: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return objstore.OID(strings.TrimSpace(stdout.String())), nil
}

func (s *Store) GetBlob(ctx context.Context, oid objstore.OID) ([]byte, error) {
	out, err := s.git(ctx, "cat-file", "blob", string(oid))
	if err != nil {
		return nil, objstore.ErrNotFound
	}
	return []byte(out), nil
}

func (s *Store) PutTree(ctx context.Context, entries []objstore.TreeEntry) (objstore.OID, error) {
	sorted := append([]objstore.TreeEntry(nil), entries...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	var buf bytes.Buffer
	for _, e := range sorted {
		mode := "100644"
		if e.Dir {
			mode = "040000"
		} else if e.Mode&0o111 != 0 {
			mode = "100755"
		}
		kind := "blob"
		if e.Dir {
			kind = "tree"
		}
		fmt.Fprintf(&buf, "%s %s %s\t%s\n", mode, kind, e.OID, e.Name)
	}
	cmd := exec.CommandContext(ctx, "git", "--git-dir="+s.root, "mktree")
	cmd.Stdin = &buf
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git mktree: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return objstore.OID(strings.TrimSpace(stdout.String())), nil
}

func (s *Store) GetTree(ctx context.Context, oid objstore.OID) ([]objstore.TreeEntry, error) {
	out, err := s.git(ctx, "ls-tree", string(oid))
	if err != nil {
		return nil, objstore.ErrNotFound
	}
	var entries []objstore.TreeEntry
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line == "" {
			continue
		}
		// <mode> SP <type> SP <oid> TAB <name>
		tabIdx := strings.IndexByte(line, '\t')
		if tabIdx < 0 {
			continue
		}
		meta := strings.Fields(line[:tabIdx])
		if len(meta) != 3 {
			continue
		}
		mode, _ := strconv.ParseUint(meta[0], 8, 32)
		entries = append(entries, objstore.TreeEntry{
			Name: line[tabIdx+1:],
			OID:  objstore.OID(meta[2]),
			Mode: uint32(mode),
			Dir:  meta[1] == "tree",
		})
	}
	return entries, nil
}

func (s *Store) PutCommit(ctx context.Context, c objstore.Commit) (objstore.OID, error) {
	args := []string{"commit-tree", string(c.Tree)}
	for _, p := range c.Parents {
		args = append(args, "-p", string(p))
	}
	cmd := exec.CommandContext(ctx, "git", append([]string{"--git-dir=" + s.root}, args...)...)
	cmd.Stdin = strings.NewReader(c.Message)
	if c.Author != "" {
		cmd.Env = append(os.Environ(),
			"GIT_AUTHOR_NAME="+c.Author, "GIT_AUTHOR_EMAIL="+c.Author,
			"GIT_COMMITTER_NAME="+c.Author, "GIT_COMMITTER_EMAIL="+c.Author)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("git commit-tree: %w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return objstore.OID(strings.TrimSpace(stdout.String())), nil
}

func (s *Store) GetCommit(ctx context.Context, oid objstore.OID) (objstore.Commit, error) {
	out, err := s.git(ctx, "cat-file", "-p", string(oid))
	if err != nil {
		return objstore.Commit{}, objstore.ErrNotFound
	}
	var c objstore.Commit
	lines := strings.Split(out, "\n")
	i := 0
	for ; i < len(lines); i++ {
		line := lines[i]
		if line == "" {
			i++
			break
		}
		switch {
		case strings.HasPrefix(line, "tree "):
			c.Tree = objstore.OID(strings.TrimPrefix(line, "tree "))
		case strings.HasPrefix(line, "parent "):
			c.Parents = append(c.Parents, objstore.OID(strings.TrimPrefix(line, "parent ")))
		case strings.HasPrefix(line, "author "):
			c.Author = strings.TrimPrefix(line, "author ")
		}
	}
	c.Message = strings.Join(lines[i:], "\n")
	return c, nil
}

func (s *Store) ResolveRef(ctx context.Context, ref string) (objstore.OID, error) {
	out, err := s.git(ctx, "rev-parse", "--verify", "-q", ref)
	if err != nil {
		return "", objstore.ErrNotFound
	}
	return objstore.OID(strings.TrimSpace(out)), nil
}

func (s *Store) UpdateRef(ctx context.Context, ref string, oldOID, newOID objstore.OID) error {
	args := []string{"update-ref", ref, string(newOID)}
	if oldOID != "" {
		args = append(args, string(oldOID))
	} else {
		args = append(args, zeroOID)
	}
	if _, err := s.git(ctx, args...); err != nil {
		return objstore.ErrRefMismatch
	}
	return nil
}

func (s *Store) DeleteRef(ctx context.Context, ref string, oldOID objstore.OID) error {
	if _, err := s.git(ctx, "update-ref", "-d", ref, string(oldOID)); err != nil {
		return objstore.ErrRefMismatch
	}
	return nil
}

func (s *Store) ListRefs(ctx context.Context, prefix string) ([]string, error) {
	out, err := s.git(ctx, "for-each-ref", "--format=%(refname)", prefix)
	if err != nil {
		return nil, err
	}
	var refs []string
	for _, line := range strings.Split(strings.TrimRight(out, "\n"), "\n") {
		if line != "" {
			refs = append(refs, line)
		}
	}
	return refs, nil
}

func (s *Store) MergeBase(ctx context.Context, a, b objstore.OID) (objstore.OID, error) {
	out, err := s.git(ctx, "merge-base", string(a), string(b))
	if err != nil {
		return "", objstore.ErrNotFound
	}
	return objstore.OID(strings.TrimSpace(out)), nil
}

func (s *Store) IsAncestor(ctx context.Context, ancestor, descendant objstore.OID) (bool, error) {
	cmd := exec.CommandContext(ctx, "git", "--git-dir="+s.root, "merge-base", "--is-ancestor", string(ancestor), string(descendant))
	err := cmd.Run()
	return err == nil, nil
}

var _ objstore.Store = (*Store)(nil)
