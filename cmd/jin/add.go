package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/staging"
	"github.com/dabstractor/jin/internal/ui"
)

var (
	addFlags       layer.RouteFlags
	addInteractive bool
	addForce       bool
)

var addCmd = &cobra.Command{
	Use:   "add <path>...",
	Short: "Stage one or more files for the next commit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		var target layer.Layer
		if addInteractive && ui.IsTerminal() {
			target, err = promptForLayer(e.lctx, e.localDirExists())
			if err != nil {
				return err
			}
		} else {
			target, err = layer.Route(addFlags, e.lctx)
			if err != nil {
				return err
			}
		}

		ctx := cmd.Context()
		var staged []string
		for _, arg := range args {
			rel, err := relToRoot(e.paths.Root, arg)
			if err != nil {
				return err
			}
			if existing, ok := e.idx.Entries[rel]; ok && !addForce && existing.TargetLayer != target {
				return jinerr.Newf(jinerr.StagingError, "%s already staged against %s, use --force to override", rel, existing.TargetLayer)
			}
			abs := filepath.Join(e.paths.Root, rel)
			content, err := os.ReadFile(abs)
			if err != nil {
				return jinerr.New(jinerr.IoError, err)
			}
			info, err := os.Stat(abs)
			if err != nil {
				return jinerr.New(jinerr.IoError, err)
			}
			oid, err := e.store.PutBlob(ctx, content)
			if err != nil {
				return jinerr.New(jinerr.IoError, err)
			}
			e.idx.Add(staging.Entry{
				Path:        rel,
				TargetLayer: target,
				Operation:   staging.OpAdd,
				ContentHash: oid,
				FileMode:    uint32(info.Mode().Perm()),
			})
			staged = append(staged, rel)
		}

		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"staged": staged, "layer": target.String()})
		}
		for _, p := range staged {
			fmt.Printf("staged %s -> %s\n", p, target)
		}
		return nil
	},
}

func init() {
	registerRouteFlags(addCmd, &addFlags)
	addCmd.Flags().BoolVarP(&addInteractive, "interactive", "i", false, "pick the target layer from a prompt instead of routing flags")
	addCmd.Flags().BoolVar(&addForce, "force", false, "override an existing staged entry for the same path")
	rootCmd.AddCommand(addCmd)
}

// promptForLayer asks the user to choose among every layer available given
// ctx, for `add -i` on a terminal.
func promptForLayer(ctx layer.Context, localDirExists bool) (layer.Layer, error) {
	candidates := layer.ActiveLayers(ctx, localDirExists)
	candidates = append(candidates, layer.GlobalBase, layer.ProjectBase)
	seen := make(map[layer.Layer]bool)
	var options []huh.Option[layer.Layer]
	for _, l := range candidates {
		if seen[l] {
			continue
		}
		seen[l] = true
		options = append(options, huh.NewOption(l.String(), l))
	}

	var chosen layer.Layer
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[layer.Layer]().
				Title("Target layer").
				Options(options...).
				Value(&chosen),
		),
	)
	if err := form.Run(); err != nil {
		return 0, jinerr.New(jinerr.IoError, err)
	}
	return chosen, nil
}

// registerRouteFlags wires the five mutually-constrained §4.8 routing flags
// onto cmd, writing the parsed result into flags.
func registerRouteFlags(cmd *cobra.Command, flags *layer.RouteFlags) {
	cmd.Flags().BoolVar(&flags.Global, "global", false, "route to the global base layer")
	cmd.Flags().BoolVar(&flags.Local, "local", false, "route to the user-local overlay")
	cmd.Flags().BoolVar(&flags.Mode, "mode", false, "route to the active mode's layer")
	cmd.Flags().BoolVar(&flags.Scope, "scope", false, "route to the active scope's layer")
	cmd.Flags().BoolVar(&flags.Project, "project", false, "route to the active project's layer")
}
