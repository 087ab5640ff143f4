package cmd

import (
	"fmt"

	"github.com/brogergvhs/siteci/internal/report"

	"github.com/spf13/cobra"
)

var (
	flagPreviewWidth int
	flagPreviewStyle string
	flagPreviewHTML  string
)

var previewCmd = &cobra.Command{
	Use:   "preview <file|->",
	Short: "Render a markdown report in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		md, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}

		if flagPreviewHTML != "" {
			return report.WriteHTMLFile(flagPreviewHTML, args[0], md)
		}

		out, err := report.Render(md, flagPreviewWidth, flagPreviewStyle)
		if err != nil {
			return err
		}

		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	},
}

func init() {
	previewCmd.Flags().IntVar(&flagPreviewWidth, "width", 100, "wrap width")
	previewCmd.Flags().StringVar(&flagPreviewStyle, "style", "", "glamour style (dark, light, notty); default detects the terminal")
	previewCmd.Flags().StringVar(&flagPreviewHTML, "html", "", "write HTML to this file instead of rendering")
	rootCmd.AddCommand(previewCmd)
}
