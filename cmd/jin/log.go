package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/layer"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show commit history for the routed layer",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		target, err := layer.Route(logFlags, e.lctx)
		if err != nil {
			return err
		}
		ref, err := layer.RefPath(target, e.lctx)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		oid, err := e.store.ResolveRef(ctx, ref)
		if err != nil {
			if jsonOutput {
				return emitJSON(map[string]any{"layer": target.String(), "commits": []any{}})
			}
			fmt.Printf("%s: no commits yet\n", target)
			return nil
		}

		type entry struct {
			OID     string `json:"oid"`
			Author  string `json:"author"`
			Message string `json:"message"`
		}
		var entries []entry
		for oid != "" && (logLimit <= 0 || len(entries) < logLimit) {
			commit, err := e.store.GetCommit(ctx, oid)
			if err != nil {
				return jinerr.New(jinerr.IoError, err)
			}
			entries = append(entries, entry{OID: string(oid), Author: commit.Author, Message: commit.Message})
			if len(commit.Parents) == 0 {
				break
			}
			oid = commit.Parents[0]
		}

		if jsonOutput {
			return emitJSON(map[string]any{"layer": target.String(), "commits": entries})
		}
		for _, en := range entries {
			fmt.Printf("%s  %-20s %s\n", en.OID, en.Author, en.Message)
		}
		return nil
	},
}

var logFlags layer.RouteFlags

func init() {
	registerRouteFlags(logCmd, &logFlags)
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 0, "maximum number of commits to show (0 = unlimited)")
	rootCmd.AddCommand(logCmd)
}
