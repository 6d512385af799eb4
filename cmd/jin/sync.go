package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull, then push, then materialize the resulting composition (pull + push + apply)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := pullCmd.RunE(cmd, nil); err != nil {
			return err
		}
		if err := pushCmd.RunE(cmd, nil); err != nil {
			return err
		}
		if err := applyCmd.RunE(cmd, nil); err != nil {
			return err
		}
		if !jsonOutput {
			fmt.Println("sync complete")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
