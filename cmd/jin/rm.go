package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/staging"
)

var (
	rmFlags  layer.RouteFlags
	rmForce  bool
	rmDryRun bool
)

var rmCmd = &cobra.Command{
	Use:   "rm <path>...",
	Short: "Stage removal of one or more files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := layer.Route(rmFlags, e.lctx)
		if err != nil {
			return err
		}

		var staged []string
		for _, arg := range args {
			rel, err := relToRoot(e.paths.Root, arg)
			if err != nil {
				return err
			}
			if existing, ok := e.idx.Entries[rel]; ok && !rmForce && existing.TargetLayer != target {
				return jinerr.Newf(jinerr.StagingError, "%s already staged against %s, use --force to override", rel, existing.TargetLayer)
			}
			staged = append(staged, rel)
		}

		if rmDryRun {
			if jsonOutput {
				return emitJSON(map[string]any{"would_remove": staged, "layer": target.String(), "dry_run": true})
			}
			for _, p := range staged {
				fmt.Printf("would stage removal %s -> %s\n", p, target)
			}
			return nil
		}

		for _, rel := range staged {
			e.idx.Add(staging.Entry{
				Path:        rel,
				TargetLayer: target,
				Operation:   staging.OpDelete,
			})
		}

		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"removed": staged, "layer": target.String()})
		}
		for _, p := range staged {
			fmt.Printf("staged removal %s -> %s\n", p, target)
		}
		return nil
	},
}

func init() {
	registerRouteFlags(rmCmd, &rmFlags)
	rmCmd.Flags().BoolVar(&rmForce, "force", false, "override an existing staged entry for the same path")
	rmCmd.Flags().BoolVar(&rmDryRun, "dry-run", false, "report what would be staged without writing the index")
	rootCmd.AddCommand(rmCmd)
}

// relToRoot resolves arg (absolute or relative to the cwd) to a path
// relative to root, the form every staging.Entry.Path is stored in.
func relToRoot(root, arg string) (string, error) {
	abs := arg
	if !filepath.IsAbs(abs) {
		wd, err := filepath.Abs(".")
		if err != nil {
			return "", jinerr.New(jinerr.IoError, err)
		}
		abs = filepath.Join(wd, arg)
	}
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return "", jinerr.New(jinerr.IoError, err)
	}
	return rel, nil
}
