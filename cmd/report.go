package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/github"
	"github.com/brogergvhs/siteci/internal/linkcheck"
	"github.com/brogergvhs/siteci/internal/report"

	"github.com/spf13/cobra"
)

var (
	flagReportResultsDir string
	flagReportComment    bool
	flagReportFail       bool
	flagReportHTML       string
	flagReportSummary    bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build reports from results written by an earlier step",
}

var reportLinksCmd = &cobra.Command{
	Use:   "links",
	Short: "Build the broken link comment from the JSON files in results_dir",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig(config.Options{ResultsDir: flagReportResultsDir})
		if err != nil {
			return err
		}
		defer log.Sync()

		out := cmd.OutOrStdout()
		body, found := report.LinksCommentFromResults(cfg.ResultsDir, report.For(cfg.Lang), log)
		fmt.Fprint(out, body)

		act := github.NewActions(workflowContext(cfg), out)
		act.SetOutput("comment_body", body)
		act.SetOutput("broken_links_found", strconv.FormatBool(found))

		if err := publish(context.WithoutCancel(cmd.Context()), cfg, log, act, publishOptions{
			Kind:     report.KindLinks,
			Title:    "Broken link check",
			Body:     body,
			HTMLFile: flagReportHTML,
			Comment:  flagReportComment,
			Summary:  flagReportSummary,
		}); err != nil {
			return err
		}

		if found && flagReportFail {
			act.Error("Broken links were found.")
			return linkcheck.ErrBrokenLinks
		}
		return nil
	},
}

func init() {
	reportLinksCmd.Flags().StringVar(&flagReportResultsDir, "results-dir", "", "folder with the per-page JSON results")
	reportLinksCmd.Flags().BoolVar(&flagReportComment, "comment", false, "post the result as a pull request comment")
	reportLinksCmd.Flags().BoolVar(&flagReportFail, "fail", false, "exit with an error when broken links are found")
	reportLinksCmd.Flags().StringVar(&flagReportHTML, "html", "", "also write the report as an HTML file")
	reportLinksCmd.Flags().BoolVar(&flagReportSummary, "summary", false, "append the report to the workflow step summary")

	reportCmd.AddCommand(reportLinksCmd)
	rootCmd.AddCommand(reportCmd)
}
