package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/staging"
)

var mvFlags layer.RouteFlags

var mvCmd = &cobra.Command{
	Use:   "mv <src> <dst>",
	Short: "Stage a rename of a tracked file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := layer.Route(mvFlags, e.lctx)
		if err != nil {
			return err
		}

		src, err := relToRoot(e.paths.Root, args[0])
		if err != nil {
			return err
		}
		dst, err := relToRoot(e.paths.Root, args[1])
		if err != nil {
			return err
		}

		e.idx.Add(staging.Entry{
			Path:         dst,
			TargetLayer:  target,
			Operation:    staging.OpRename,
			RenameSource: src,
		})

		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"from": src, "to": dst, "layer": target.String()})
		}
		fmt.Printf("staged rename %s -> %s (%s)\n", src, dst, target)
		return nil
	},
}

func init() {
	registerRouteFlags(mvCmd, &mvFlags)
	rootCmd.AddCommand(mvCmd)
}
