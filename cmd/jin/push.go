package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore/gitback"
)

var pushForce bool

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Push every active layer ref to the linked remote",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		gb, ok := e.store.(*gitback.Store)
		if !ok {
			return jinerr.Newf(jinerr.RemoteError, "push requires the git-backed object store")
		}

		active := layer.ActiveLayers(e.lctx, e.localDirExists())
		results := make([]string, len(active))

		g, ctx := errgroup.WithContext(cmd.Context())
		for i, l := range active {
			i, l := i, l
			g.Go(func() error {
				ref, err := layer.RefPath(l, e.lctx)
				if err != nil {
					return nil // UserLocal etc.: nothing to push
				}
				out, err := gb.Push(ctx, ref, pushForce)
				if err != nil {
					return jinerr.New(jinerr.RemoteError, err).WithRef(ref)
				}
				results[i] = out
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"pushed": layerNames(active)})
		}
		fmt.Printf("pushed %d layer(s) to %s\n", len(active), gitback.RemoteName)
		return nil
	},
}

func init() {
	pushCmd.Flags().BoolVar(&pushForce, "force", false, "force-push (discard remote history the local side can't fast-forward)")
	rootCmd.AddCommand(pushCmd)
}
