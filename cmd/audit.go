package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/brogergvhs/siteci/internal/audit"
	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/github"
	"github.com/brogergvhs/siteci/internal/report"
	"github.com/brogergvhs/siteci/internal/site"
	"github.com/brogergvhs/siteci/internal/ui"

	"github.com/spf13/cobra"
)

var errAuditBelowMinimum = errors.New("pages below minimum scores")

var (
	flagAuditBaseURL   string
	flagAuditPublicDir string
	flagAuditChrome    string
	flagAuditStrict    bool
	flagAuditComment   bool
	flagAuditHTML      string
	flagAuditSummary   bool
)

func init() {
	auditCmd := &cobra.Command{
		Use:   "audit [paths...]",
		Short: "Audit pages in headless Chrome and score performance, accessibility, best practices and SEO",
		Long: `Audit pages in headless Chrome.

Without paths every HTML file in public_dir is audited. Scores below
audit.min_scores are reported as warnings; --strict turns them into a
failing exit status.`,
		RunE: runAudit,
	}

	auditCmd.Flags().StringVar(&flagAuditBaseURL, "base-url", "", "audit a deployed site instead of serving public_dir locally")
	auditCmd.Flags().StringVar(&flagAuditPublicDir, "public-dir", "", "folder with the built site")
	auditCmd.Flags().StringVar(&flagAuditChrome, "chrome", "", "path to the Chrome binary")
	auditCmd.Flags().BoolVar(&flagAuditStrict, "strict", false, "fail when a page is below a minimum score")
	auditCmd.Flags().BoolVar(&flagAuditComment, "comment", false, "post the report as a pull request comment")
	auditCmd.Flags().StringVar(&flagAuditHTML, "html", "", "also write the report as an HTML file")
	auditCmd.Flags().BoolVar(&flagAuditSummary, "summary", false, "append the report to the workflow step summary")

	rootCmd.AddCommand(auditCmd)
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(config.Options{
		PublicDir: flagAuditPublicDir,
		BaseURL:   flagAuditBaseURL,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	if flagAuditChrome != "" {
		cfg.Audit.ChromeBin = flagAuditChrome
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	paths := make([]string, 0, len(args))
	for _, a := range args {
		paths = append(paths, site.TrimPublicPrefix(a, cfg.PublicDir))
	}
	if len(paths) == 0 {
		if paths, err = site.HTMLFiles(cfg.PublicDir); err != nil {
			return err
		}
	}
	if len(paths) == 0 {
		log.Infof("No HTML files to audit.")
		return nil
	}

	root, closeSite, err := openSite(cfg, log)
	if err != nil {
		return err
	}
	defer closeSite()

	targets := make([]audit.Target, len(paths))
	for i, p := range paths {
		targets[i] = audit.Target{Path: "/" + p, URL: site.PageURL(root, p)}
	}

	auditor, err := audit.NewAuditor(ctx, audit.Options{
		ChromeBin: cfg.Audit.ChromeBin,
		Thresholds: audit.Thresholds{
			LoadBudget: cfg.Audit.LoadBudget,
			MinScores:  cfg.Audit.MinScores,
		},
	}, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := auditor.Close(); err != nil {
			log.Debugf("close chrome: %v", err)
		}
	}()

	pm := ui.NewProgressManager(!flagNoProgress)
	bar := pm.Register("Audit", "pages")
	bar.SetTotal(len(targets))

	results, runErr := auditor.Run(ctx, targets, func(r audit.Result) {
		if r.Err != nil || len(r.Warnings) > 0 {
			bar.AddBroken(1)
		}
		bar.Increment()
	})
	bar.MarkDone()
	pm.Close()

	md := report.AuditMarkdown(results, cfg.Audit.MinScores, report.For(cfg.Lang))
	fmt.Fprint(out, md)

	act := github.NewActions(workflowContext(cfg), out)

	below := 0
	for _, r := range results {
		for _, w := range r.Warnings {
			act.Warning(fmt.Sprintf("%s: %s", r.Path, w))
		}
		if r.Err != nil || len(r.Warnings) > 0 {
			below++
		}
	}

	if err := publish(context.WithoutCancel(ctx), cfg, log, act, publishOptions{
		Kind:     report.KindAudit,
		Title:    "Page audit",
		Body:     md,
		HTMLFile: flagAuditHTML,
		Comment:  flagAuditComment,
		Summary:  flagAuditSummary,
	}); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}
	if flagAuditStrict && below > 0 {
		return fmt.Errorf("%w: %d of %d", errAuditBelowMinimum, below, len(results))
	}
	return nil
}
