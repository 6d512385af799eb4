package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/layer"
)

var repairDryRun bool

var repairCmd = &cobra.Command{
	Use:   "repair",
	Short: "Rebuild the Jinmap index from the current layer refs and check consistency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		var refs []string
		for _, l := range layer.ActiveLayers(e.lctx, e.localDirExists()) {
			if ref, err := layer.RefPath(l, e.lctx); err == nil {
				refs = append(refs, ref)
			}
		}

		rebuilt, err := jinmap.Rebuild(ctx, e.store, refs)
		if err != nil {
			return err
		}

		drifted := jinmapDiffers(e.jm, rebuilt, refs)

		if repairDryRun {
			if jsonOutput {
				return emitJSON(map[string]any{"drifted": drifted, "dry_run": true})
			}
			if len(drifted) == 0 {
				fmt.Println("jinmap is consistent")
			} else {
				fmt.Printf("would repair drifted refs: %v\n", drifted)
			}
			return nil
		}

		if err := rebuilt.Save(e.paths.Jinmap); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"repaired": drifted, "dry_run": false})
		}
		fmt.Printf("repaired jinmap (%d ref(s) differed)\n", len(drifted))
		return nil
	},
}

func init() {
	repairCmd.Flags().BoolVar(&repairDryRun, "dry-run", false, "report drift without rewriting the jinmap")
	rootCmd.AddCommand(repairCmd)
}

func jinmapDiffers(old, rebuilt *jinmap.Jinmap, refs []string) []string {
	var drifted []string
	for _, ref := range refs {
		oldFiles := old.FilesInLayer(ref)
		newFiles := rebuilt.FilesInLayer(ref)
		if len(oldFiles) != len(newFiles) {
			drifted = append(drifted, ref)
			continue
		}
		for i := range oldFiles {
			if oldFiles[i] != newFiles[i] {
				drifted = append(drifted, ref)
				break
			}
		}
	}
	return drifted
}
