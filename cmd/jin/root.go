// Command jin is a meta-versioning and configuration-overlay tool: it lets
// a user stage config fragments into one of nine precedence layers, compose
// them into a working tree, and move that composition between machines
// through an ordinary git-compatible object store (§1, §2).
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/config"
	"github.com/dabstractor/jin/internal/debug"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/objstore/gitback"
	"github.com/dabstractor/jin/internal/project"
	"github.com/dabstractor/jin/internal/staging"
	"github.com/dabstractor/jin/internal/txn"
	"github.com/dabstractor/jin/internal/vcs"
)

var (
	jsonOutput bool
	actorFlag  string
	rootFlag   string
)

var rootCmd = &cobra.Command{
	Use:           "jin",
	Short:         "Layered configuration overlay and meta-versioning tool",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "emit machine-readable JSON output")
	rootCmd.PersistentFlags().StringVar(&actorFlag, "actor", "", "identity recorded on commits and audit entries")
	rootCmd.PersistentFlags().StringVar(&rootFlag, "root", "", "working tree root for init, and the directory primary-VCS commands run in (defaults to the current directory); other commands locate the project from the current directory")
}

// Execute runs the command tree, translating a returned *jinerr.Error into
// the matching process exit code (§7).
func Execute() int {
	if err := config.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, "jin: config:", err)
		return 1
	}
	if err := rootCmd.Execute(); err != nil {
		return reportErr(err)
	}
	return 0
}

func reportErr(err error) int {
	if jsonOutput {
		_ = emitJSON(map[string]any{"error": err.Error()})
	} else {
		fmt.Fprintln(os.Stderr, "jin:", err)
	}
	var je *jinerr.Error
	if as, ok := err.(*jinerr.Error); ok {
		je = as
	}
	if je != nil {
		return je.Kind.ExitCode()
	}
	return 1
}

func emitJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// env bundles the opened project state every command past `init` needs.
type env struct {
	paths   project.Paths
	store   objstore.Store
	jm      *jinmap.Jinmap
	idx     *staging.Index
	lctx    layer.Context
	vcs     vcs.Git
	lock    *flock.Flock
	actor   string
}

// openEnv resolves the project root, opens the object store, loads the
// Jinmap and staging index, and takes an advisory lock on the staging
// index so two concurrent invocations against the same project tree don't
// race on local state (cross-process ref coordination is still the object
// store's own compare-and-swap, per §5). With the lock held it recovers any
// orphaned write-ahead records in the project's WAL directory.
func openEnv(ctx context.Context) (*env, error) {
	root := rootFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, jinerr.New(jinerr.IoError, err)
		}
		root = wd
	}
	paths, err := project.Find()
	if err != nil {
		return nil, err
	}
	debug.Init(paths.Meta)

	store, err := gitback.Open(ctx, config.StoreRoot())
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}

	jm, err := jinmap.Load(paths.Jinmap)
	if err != nil {
		return nil, err
	}

	lock := flock.New(paths.Staging + ".lock")
	locked, err := lock.TryLockContext(ctx, 200*time.Millisecond)
	if err != nil || !locked {
		return nil, jinerr.Newf(jinerr.ConcurrencyError, "another jin invocation holds the staging lock for %s", paths.Root)
	}

	if err := txn.New(store, paths.WalDir).Recover(ctx); err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	idx, err := staging.Load(ctx, paths.Staging, store)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	lctx, err := loadContext(paths.Context)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	actor := actorFlag
	if actor == "" {
		actor = config.Get("actor")
	}
	if actor == "" {
		actor = "jin"
	}

	return &env{
		paths: paths,
		store: store,
		jm:    jm,
		idx:   idx,
		lctx:  lctx,
		vcs:   vcs.New(root),
		lock:  lock,
		actor: actor,
	}, nil
}

func (e *env) Close() {
	if e.lock != nil {
		_ = e.lock.Unlock()
	}
}

func (e *env) localDirExists() bool {
	info, err := os.Stat(e.paths.Root + "/.jin-local")
	return err == nil && info.IsDir()
}
