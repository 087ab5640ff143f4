package cmd

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/brogergvhs/siteci/internal/config"

	"github.com/spf13/cobra"
)

var flagConfigAddFrom string

var configAddCmd = &cobra.Command{
	Use:   "add [label]",
	Short: "Create a new config profile with default values, or copy one from --from",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var label string
		if len(args) == 1 {
			label = args[0]
		} else {
			fmt.Fprint(cmd.OutOrStdout(), "Enter label for new config: ")
			label, _ = bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		}

		label = strings.TrimSpace(label)
		if label == "" {
			return fmt.Errorf("label cannot be empty")
		}

		if flagConfigAddFrom != "" {
			if err := config.AddConfig(label, flagConfigAddFrom); err != nil {
				return fmt.Errorf("failed to add config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created new config: %s\n", config.ConfigPath(label))
			return nil
		}

		path, err := config.CreateEmptyConfig(label)
		if err != nil {
			return fmt.Errorf("failed to create config: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Created new config: %s\n", path)
		return nil
	},
}

func init() {
	configAddCmd.Flags().StringVar(&flagConfigAddFrom, "from", "", "copy an existing YAML file instead of the defaults")
	configCmd.AddCommand(configAddCmd)
}
