package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore/gitback"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fetch every active layer ref from the linked remote into a tracking namespace",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		gb, ok := e.store.(*gitback.Store)
		if !ok {
			return jinerr.Newf(jinerr.RemoteError, "fetch requires the git-backed object store")
		}

		active := layer.ActiveLayers(e.lctx, e.localDirExists())
		g, ctx := errgroup.WithContext(cmd.Context())
		for _, l := range active {
			l := l
			g.Go(func() error {
				ref, err := layer.RefPath(l, e.lctx)
				if err != nil {
					return nil
				}
				if _, err := gb.Fetch(ctx, ref); err != nil {
					return jinerr.New(jinerr.RemoteError, err).WithRef(ref)
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		if jsonOutput {
			return emitJSON(map[string]any{"fetched": layerNames(active)})
		}
		fmt.Printf("fetched %d layer(s) from %s\n", len(active), gitback.RemoteName)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)
}
