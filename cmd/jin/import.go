package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/staging"
)

var importFlags layer.RouteFlags

var importCmd = &cobra.Command{
	Use:   "import <path>",
	Short: "Move a file from primary-VCS tracking into Jin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := layer.Route(importFlags, e.lctx)
		if err != nil {
			return err
		}
		rel, err := relToRoot(e.paths.Root, args[0])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		content, err := os.ReadFile(args[0])
		if err != nil {
			return jinerr.New(jinerr.IoError, err)
		}
		info, err := os.Stat(args[0])
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
		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if tracked, _ := e.vcs.IsFileTracked(ctx, rel); tracked {
			if err := e.vcs.Untrack(ctx, rel); err != nil {
				return jinerr.New(jinerr.IoError, err).WithPath(rel)
			}
		}

		if jsonOutput {
			return emitJSON(map[string]any{"imported": rel, "layer": target.String()})
		}
		fmt.Printf("imported %s -> %s (staged; run `jin commit`)\n", rel, target)
		return nil
	},
}

func init() {
	registerRouteFlags(importCmd, &importFlags)
	rootCmd.AddCommand(importCmd)
}
