package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/objstore/gitback"
)

var linkCmd = &cobra.Command{
	Use:   "link <url>",
	Short: "Configure the remote the object store pushes to and pulls from",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		gb, ok := e.store.(*gitback.Store)
		if !ok {
			return jinerr.Newf(jinerr.RemoteError, "link requires the git-backed object store")
		}
		if err := gb.Link(cmd.Context(), args[0]); err != nil {
			return jinerr.New(jinerr.IoError, err)
		}

		if jsonOutput {
			return emitJSON(map[string]any{"remote": gitback.RemoteName, "url": args[0]})
		}
		fmt.Printf("linked %s -> %s\n", gitback.RemoteName, args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}
