package cmd

import (
	"fmt"
	"os"

	"github.com/brogergvhs/siteci/internal/config"

	"github.com/spf13/cobra"
)

var flagConfigInitYes bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the Default config profile and make it active",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		defaultPath := config.ConfigPath(config.DefaultLabel)

		if _, err := os.Stat(defaultPath); err == nil {
			fmt.Fprintln(out, "Configuration already exists at:")
			fmt.Fprintln(out, "  ", defaultPath)
			fmt.Fprintln(out, "Use `siteci config reset` to recreate it.")
			return nil
		}

		def := config.DefaultConfig()

		fmt.Fprintln(out, "Configuration file will be saved at:")
		fmt.Fprintln(out, "  ", defaultPath)
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Default configuration:")
		def.Print(out)
		fmt.Fprintln(out)

		if !flagConfigInitYes && !confirm(cmd, fmt.Sprintf("Create Default config at %s?", defaultPath)) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}

		if _, err := config.CreateEmptyConfig(config.DefaultLabel); err != nil {
			return fmt.Errorf("failed to write config file: %w", err)
		}

		if err := config.SwitchConfig(config.DefaultLabel); err != nil {
			return fmt.Errorf("failed to set active config: %w", err)
		}

		fmt.Fprintln(out, "Config created at:", defaultPath)
		fmt.Fprintln(out, "This config is now active (label: Default).")

		return nil
	},
}

func init() {
	configInitCmd.Flags().BoolVarP(&flagConfigInitYes, "yes", "y", false, "do not ask for confirmation")
	configCmd.AddCommand(configInitCmd)
}
