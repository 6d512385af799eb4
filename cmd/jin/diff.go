package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
)

var diffCmd = &cobra.Command{
	Use:   "diff <a> [<b>]",
	Short: "Compare two layers, or one layer against the working tree, by path",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		left, err := filesForSide(ctx, e, args[0])
		if err != nil {
			return err
		}
		rightArg := "workspace"
		if len(args) == 2 {
			rightArg = args[1]
		}
		right, err := filesForSide(ctx, e, rightArg)
		if err != nil {
			return err
		}

		type entry struct {
			Path   string `json:"path"`
			Status string `json:"status"`
		}
		var entries []entry
		seen := make(map[string]bool)
		for p := range left {
			seen[p] = true
		}
		for p := range right {
			seen[p] = true
		}
		paths := make([]string, 0, len(seen))
		for p := range seen {
			paths = append(paths, p)
		}
		sort.Strings(paths)

		for _, p := range paths {
			lc, lok := left[p]
			rc, rok := right[p]
			switch {
			case lok && !rok:
				entries = append(entries, entry{p, "removed"})
			case !lok && rok:
				entries = append(entries, entry{p, "added"})
			case !bytes.Equal(lc, rc):
				entries = append(entries, entry{p, "changed"})
			}
		}

		if jsonOutput {
			return emitJSON(entries)
		}
		profile := termenv.ColorProfile()
		for _, ent := range entries {
			var sym string
			var color termenv.Color
			switch ent.Status {
			case "added":
				sym, color = "+", profile.Color("42")
			case "removed":
				sym, color = "-", profile.Color("160")
			default:
				sym, color = "~", profile.Color("214")
			}
			fmt.Println(termenv.String(fmt.Sprintf("%s %s", sym, ent.Path)).Foreground(color))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

// filesForSide resolves a diff operand to a path->content map: a layer
// name (e.g. "mode-base"), or the literal "workspace" for the current
// composition as materialized on disk.
func filesForSide(ctx context.Context, e *env, side string) (map[string][]byte, error) {
	if side == "workspace" {
		src := composer.StoreSource{Store: e.store, Ctx: e.lctx}
		composed, err := composer.Compose(ctx, src, e.lctx, e.localDirExists())
		if err != nil {
			return nil, err
		}
		out := make(map[string][]byte, len(composed))
		for p, res := range composed {
			content, err := os.ReadFile(filepath.Join(e.paths.Root, p))
			if err != nil {
				content = res.Content // not yet applied to disk; diff against the composition itself
			}
			out[p] = content
		}
		return out, nil
	}

	l, err := parseLayerName(side)
	if err != nil {
		return nil, err
	}
	src := composer.StoreSource{Store: e.store, Ctx: e.lctx}
	return src.Files(ctx, l)
}

func parseLayerName(name string) (layer.Layer, error) {
	for _, l := range layer.All {
		if l.String() == name {
			return l, nil
		}
	}
	if layer.WorkspaceActive.String() == name {
		return layer.WorkspaceActive, nil
	}
	return 0, jinerr.Newf(jinerr.InvalidRouting, "unknown layer %q", name)
}
