package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/config"
	"github.com/dabstractor/jin/internal/jinerr"
	"github.com/dabstractor/jin/internal/jinmap"
	"github.com/dabstractor/jin/internal/objstore/gitback"
	"github.com/dabstractor/jin/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create project metadata and ensure the object-store root exists",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := rootFlag
		if root == "" {
			wd, err := os.Getwd()
			if err != nil {
				return jinerr.New(jinerr.IoError, err)
			}
			root = wd
		}

		paths := project.At(root)
		if err := paths.EnsureDirs(); err != nil {
			return err
		}
		if _, err := saveContextIfAbsent(paths.Context); err != nil {
			return err
		}
		if err := jinmap.New().Save(paths.Jinmap); err != nil {
			return err
		}

		ctx := cmd.Context()
		storeRoot := config.StoreRoot()
		if _, err := gitback.Open(ctx, storeRoot); err != nil {
			return jinerr.New(jinerr.IoError, err)
		}

		if jsonOutput {
			return emitJSON(map[string]any{"root": root, "meta": paths.Meta, "store": storeRoot})
		}
		fmt.Printf("Initialized jin project at %s (object store: %s)\n", paths.Meta, storeRoot)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func saveContextIfAbsent(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	return true, saveContext(path, emptyContext())
}
