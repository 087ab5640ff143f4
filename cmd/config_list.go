package cmd

import (
	"github.com/brogergvhs/siteci/internal/config"

	"github.com/rodaine/table"
	"github.com/spf13/cobra"
)

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all config profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := config.ListConfigs()
		if err != nil {
			return err
		}

		tbl := table.New("Label", "Active", "Site", "Path").WithWriter(cmd.OutOrStdout())
		for _, c := range list {
			active := ""
			if c.Active {
				active = "yes"
			}
			tbl.AddRow(c.Label, active, profileSite(c), c.Path)
		}
		tbl.Print()

		return nil
	},
}

// profileSite is what a profile checks: its base URL, or the local folder
// it serves.
func profileSite(c config.ConfigInfo) string {
	switch {
	case c.Err != nil:
		return "invalid: " + c.Err.Error()
	case c.BaseURL != "":
		return c.BaseURL
	}
	return c.PublicDir + " (local)"
}

func init() {
	configCmd.AddCommand(configListCmd)
}
