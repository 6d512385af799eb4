package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dabstractor/jin/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Read or write global configuration",
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print the resolved value for key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value := config.Get(args[0])
		if jsonOutput {
			return emitJSON(map[string]any{"key": args[0], "value": value, "source": string(config.ValueSource(args[0]))})
		}
		fmt.Println(value)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist key to the global config file",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Set(args[0], args[1]); err != nil {
			return err
		}
		if jsonOutput {
			return emitJSON(map[string]any{"key": args[0], "value": args[1]})
		}
		fmt.Printf("%s = %s\n", args[0], args[1])
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List every resolved configuration value",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings := config.AllSettings()
		if jsonOutput {
			return emitJSON(settings)
		}
		for k, v := range settings {
			fmt.Printf("%s = %v\n", k, v)
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configGetCmd, configSetCmd, configListCmd)
	rootCmd.AddCommand(configCmd)
}
