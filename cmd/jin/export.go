package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/staging"
)

var exportCmd = &cobra.Command{
	Use:   "export <path>",
	Short: "Take a file out of Jin and back into primary-VCS tracking",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		rel, err := relToRoot(e.paths.Root, args[0])
		if err != nil {
			return err
		}

		refs := e.jm.LayersContaining(rel)
		for _, ref := range refs {
			l, err := layerForRef(e.lctx, ref)
			if err != nil {
				continue
			}
			e.idx.Add(staging.Entry{Path: rel, TargetLayer: l, Operation: staging.OpDelete})
		}
		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"exported": rel, "layers": refs})
		}
		if len(refs) == 0 {
			fmt.Printf("%s is not currently tracked by any layer\n", rel)
			return nil
		}
		fmt.Printf("staged removal of %s from %d layer(s) (file left on disk; run `jin commit`)\n", rel, len(refs))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

// layerForRef maps a ref path back to its layer.Layer by recomputing
// RefPath for every variant and matching, since jinmap stores refs rather
// than layer values directly.
func layerForRef(ctx layer.Context, ref string) (layer.Layer, error) {
	for _, l := range layer.All {
		candidate, err := layer.RefPath(l, ctx)
		if err == nil && candidate == ref {
			return l, nil
		}
	}
	return 0, fmt.Errorf("no active layer matches ref %q", ref)
}
