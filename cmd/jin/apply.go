package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/hooks"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/workspace"
)

var (
	applyForce  bool
	applyDryRun bool
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Compose the active layers and materialize them into the working tree",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		src := composer.StoreSource{Store: e.store, Ctx: e.lctx}
		composed, err := composer.Compose(ctx, src, e.lctx, e.localDirExists())
		if err != nil {
			return err
		}

		meta, err := workspace.LoadMetadata(e.paths.LastApplied)
		if err != nil {
			return err
		}

		plan, err := workspace.Diff(e.paths.Root, composed, meta)
		if err != nil {
			return err
		}

		opts := workspace.Options{Force: applyForce, DryRun: applyDryRun}
		if err := workspace.Apply(ctx, e.paths.Root, jinIgnorePath(e.paths.Root), composed, plan, meta, opts); err != nil {
			return err
		}

		if !applyDryRun {
			for _, l := range layer.ActiveLayers(e.lctx, e.localDirExists()) {
				ref, err := layer.RefPath(l, e.lctx)
				if err != nil {
					continue
				}
				if oid, err := e.store.ResolveRef(ctx, ref); err == nil {
					meta.CommitOIDs[ref] = string(oid)
				}
			}
			if err := meta.Save(e.paths.LastApplied); err != nil {
				return err
			}

			hooks.NewRunnerFromWorkspace(e.paths.Root).Run(hooks.EventPostApply, hooks.Payload{
				Operation: "apply",
				Event:     hooks.EventPostApply,
				Actor:     e.actor,
				Paths:     plan.Removes,
			})
		}

		if jsonOutput {
			writes := make([]string, 0, len(plan.Writes))
			for p := range plan.Writes {
				writes = append(writes, p)
			}
			return emitJSON(map[string]any{
				"writes":   writes,
				"removes":  plan.Removes,
				"detached": plan.Detached,
				"dry_run":  applyDryRun,
			})
		}
		for p := range plan.Writes {
			fmt.Printf("wrote %s\n", p)
		}
		for _, p := range plan.Removes {
			fmt.Printf("removed %s\n", p)
		}
		if len(plan.Detached) > 0 {
			fmt.Printf("detached (hand-edited since last apply): %v\n", plan.Detached)
		}
		return nil
	},
}

func init() {
	applyCmd.Flags().BoolVar(&applyForce, "force", false, "overwrite detached hand-edits")
	applyCmd.Flags().BoolVar(&applyDryRun, "dry-run", false, "compute the plan without writing anything")
	rootCmd.AddCommand(applyCmd)
}

func jinIgnorePath(root string) string {
	return root + "/.gitignore"
}
