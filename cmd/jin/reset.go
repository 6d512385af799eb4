package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/resetengine"
	"github.com/dabstractor/jin/internal/txn"
)

var (
	resetMode  string
	resetForce bool
)

var resetCmd = &cobra.Command{
	Use:   "reset <commit>",
	Short: "Move the routed layer's ref back to an earlier commit",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := layer.Route(resetFlags, e.lctx)
		if err != nil {
			return err
		}

		mode, err := parseResetMode(resetMode)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		mgr := txn.New(e.store, e.paths.WalDir)
		targets := []resetengine.Target{{Layer: target, NewCommit: objstore.OID(args[0])}}
		if err := resetengine.Run(ctx, e.store, mgr, e.jm, e.idx, e.lctx, targets, mode); err != nil {
			return err
		}
		if err := e.jm.Save(e.paths.Jinmap); err != nil {
			return err
		}
		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		if mode == resetengine.Hard {
			src := composer.StoreSource{Store: e.store, Ctx: e.lctx}
			opts := resetengine.Options{Force: resetForce}
			if err := resetengine.HardApply(ctx, e.paths.Root, jinIgnorePath(e.paths.Root), src, e.lctx, e.localDirExists(), e.paths.LastApplied, opts); err != nil {
				return err
			}
		}

		if jsonOutput {
			return emitJSON(map[string]any{"layer": target.String(), "to": args[0], "mode": resetMode})
		}
		fmt.Printf("reset %s -> %s (%s)\n", target, args[0], resetMode)
		return nil
	},
}

var resetFlags layer.RouteFlags

func init() {
	registerRouteFlags(resetCmd, &resetFlags)
	resetCmd.Flags().StringVar(&resetMode, "mode", "mixed", "reset mode: soft, mixed, or hard")
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "discard detached working-tree edits for a hard reset")
	rootCmd.AddCommand(resetCmd)
}

func parseResetMode(s string) (resetengine.Mode, error) {
	switch s {
	case "soft":
		return resetengine.Soft, nil
	case "mixed":
		return resetengine.Mixed, nil
	case "hard":
		return resetengine.Hard, nil
	default:
		return 0, fmt.Errorf("unknown reset mode %q (want soft, mixed, or hard)", s)
	}
}
