package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/composer"
	"github.com/dabstractor/jin/internal/layer"
	"github.com/dabstractor/jin/internal/ui"
	"github.com/dabstractor/jin/internal/workspace"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pending staged entries and what `apply` would change",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		ctx := cmd.Context()
		src := composer.StoreSource{Store: e.store, Ctx: e.lctx}
		composed, err := composer.Compose(ctx, src, e.lctx, e.localDirExists())
		if err != nil {
			return err
		}
		meta, err := workspace.LoadMetadata(e.paths.LastApplied)
		if err != nil {
			return err
		}
		plan, err := workspace.Diff(e.paths.Root, composed, meta)
		if err != nil {
			return err
		}

		staged := stagedRows(e)

		if jsonOutput {
			writes := make([]string, 0, len(plan.Writes))
			for p := range plan.Writes {
				writes = append(writes, p)
			}
			sort.Strings(writes)
			return emitJSON(map[string]any{
				"mode":     e.lctx.Mode,
				"scope":    e.lctx.Scope,
				"project":  e.lctx.Project,
				"staged":   staged,
				"writes":   writes,
				"removes":  plan.Removes,
				"detached": plan.Detached,
			})
		}

		fmt.Printf("context: mode=%s scope=%s project=%s\n", orNone(e.lctx.Mode), orNone(e.lctx.Scope), orNone(e.lctx.Project))

		if len(staged) > 0 {
			rows := make([][]string, len(staged))
			for i, r := range staged {
				rows[i] = []string{r[0], r[1], r[2]}
			}
			out := ui.NewTable(ui.GetWidth()).
				Headers("PATH", "LAYER", "OP").
				Rows(rows...).
				String()
			fmt.Fprintln(os.Stdout, out)
		} else {
			fmt.Println("nothing staged")
		}

		if len(plan.Detached) > 0 {
			fmt.Println(ui.TableWarningStyle.Render(fmt.Sprintf("detached from last apply: %v", plan.Detached)))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func stagedRows(e *env) [][3]string {
	var rows [][3]string
	for _, l := range layer.All {
		for _, ent := range e.idx.EntriesForLayer(l) {
			rows = append(rows, [3]string{ent.Path, l.String(), string(ent.Operation)})
		}
	}
	return rows
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
