package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/commitpipeline"
	"github.com/dabstractor/jin/internal/hooks"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/txn"
)

var commitMessage string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Commit every staged entry into its target layer atomically",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		mgr := txn.New(e.store, e.paths.WalDir)
		operation := commitMessage
		if operation == "" {
			operation = "commit"
		}

		result, err := commitpipeline.Run(ctx, e.store, mgr, e.jm, e.idx, e.lctx, e.actor, operation, e.paths.AuditDir)
		if err != nil {
			return err
		}
		if err := e.jm.Save(e.paths.Jinmap); err != nil {
			return err
		}
		if err := e.idx.Save(e.paths.Staging); err != nil {
			return err
		}

		hooks.NewRunnerFromWorkspace(e.paths.Root).Run(hooks.EventPostCommit, hooks.Payload{
			Operation: operation,
			Event:     hooks.EventPostCommit,
			Actor:     e.actor,
			Layers:    result.Layers,
		})

		if jsonOutput {
			commits := make(map[string]string, len(result.Commits))
			for l, oid := range result.Commits {
				commits[l.String()] = string(oid)
			}
			return emitJSON(map[string]any{"layers": layerNames(result.Layers), "commits": commits})
		}
		for _, l := range result.Layers {
			fmt.Printf("committed %s -> %s (%d paths)\n", l, result.Commits[l], len(result.Paths[l]))
		}
		return nil
	},
}

func init() {
	commitCmd.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message (defaults to \"commit\")")
	rootCmd.AddCommand(commitCmd)
}

func layerNames(layers []layer.Layer) []string {
	out := make([]string, len(layers))
	for i, l := range layers {
		out[i] = l.String()
	}
	return out
}
