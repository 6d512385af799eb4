package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/objstore"
	"github.com/dabstractor/jin/internal/ui"
)

var layersCmd = &cobra.Command{
	Use:   "layers",
	Short: "Show active layers in precedence order with file counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		active := layer.ActiveLayers(e.lctx, e.localDirExists())

		type row struct {
			Layer string `json:"layer"`
			Ref   string `json:"ref,omitempty"`
			Files int    `json:"files"`
		}
		var rows []row
		for _, l := range active {
			ref, err := layer.RefPath(l, e.lctx)
			if err != nil {
				rows = append(rows, row{Layer: l.String()})
				continue
			}
			count := len(e.jm.FilesInLayer(ref))
			if count == 0 {
				if commitOID, err := e.store.ResolveRef(ctx, ref); err == nil {
					if commit, err := e.store.GetCommit(ctx, commitOID); err == nil {
						files, _ := treeFilePaths(ctx, e.store, commit.Tree, "")
						count = len(files)
					}
				}
			}
			rows = append(rows, row{Layer: l.String(), Ref: ref, Files: count})
		}

		if jsonOutput {
			return emitJSON(rows)
		}

		tbl := make([][]string, len(rows))
		for i, r := range rows {
			tbl[i] = []string{r.Layer, r.Ref, fmt.Sprintf("%d", r.Files)}
		}
		out := ui.NewTable(ui.GetWidth()).
			Headers("LAYER", "REF", "FILES").
			Rows(tbl...).
			String()
		fmt.Fprintln(os.Stdout, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(layersCmd)
}

// treeFilePaths recursively lists every blob path under treeOID.
func treeFilePaths(ctx context.Context, store objstore.Store, treeOID objstore.OID, prefix string) ([]string, error) {
	entries, err := store.GetTree(ctx, treeOID)
	if err != nil {
		return nil, jinerr.New(jinerr.IoError, err)
	}
	var out []string
	for _, e := range entries {
		p := e.Name
		if prefix != "" {
			p = prefix + "/" + e.Name
		}
		if e.Dir {
			sub, err := treeFilePaths(ctx, store, e.OID, p)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
