package cmd

import (
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/report"

	"github.com/spf13/cobra"
)

var flagCommentKind string

var commentKinds = []string{report.KindLinks, report.KindPSI, report.KindAudit}

var commentCmd = &cobra.Command{
	Use:   "comment <file|->",
	Short: "Post a markdown file as a pull request comment, replacing the previous one of the same kind",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(commentKinds, flagCommentKind) {
			return fmt.Errorf("--kind must be one of %s", strings.Join(commentKinds, ", "))
		}

		cfg, log, err := loadConfig(config.Options{})
		if err != nil {
			return err
		}
		defer log.Sync()

		body, err := readInput(cmd, args[0])
		if err != nil {
			return err
		}
		if strings.TrimSpace(body) == "" {
			return fmt.Errorf("%s is empty", args[0])
		}

		return postComment(cmd.Context(), cfg, log, flagCommentKind, body)
	},
}

func init() {
	commentCmd.Flags().StringVar(&flagCommentKind, "kind", report.KindLinks, "comment kind: "+strings.Join(commentKinds, ", "))
	rootCmd.AddCommand(commentCmd)
}

// readInput reads a file, or stdin for "-".
func readInput(cmd *cobra.Command, name string) (string, error) {
	if name == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		return string(raw), err
	}

	raw, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
