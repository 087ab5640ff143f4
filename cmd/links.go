package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/github"
	"github.com/brogergvhs/siteci/internal/linkcheck"
	"github.com/brogergvhs/siteci/internal/report"
	"github.com/brogergvhs/siteci/internal/site"
	"github.com/brogergvhs/siteci/internal/ui"
	"github.com/brogergvhs/siteci/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagLinksBaseURL    string
	flagLinksPublicDir  string
	flagLinksResultsDir string
	flagLinksWorkers    int
	flagLinksCrawl      bool
	flagLinksCFBypass   bool
	flagLinksNoResults  bool
	flagLinksComment    bool
	flagLinksFail       bool
	flagLinksWatch      bool
	flagLinksHTML       string
	flagLinksSummary    bool
)

func init() {
	linksCmd := &cobra.Command{
		Use:   "links",
		Short: "Check every HTML page of the site for broken links. Uses the selected config, overwritten by CLI flags",
		Args:  cobra.NoArgs,
		RunE:  runLinks,
	}

	linksCmd.Flags().StringVar(&flagLinksBaseURL, "base-url", "", "check a deployed site instead of serving public_dir locally")
	linksCmd.Flags().StringVar(&flagLinksPublicDir, "public-dir", "", "folder with the built site")
	linksCmd.Flags().StringVar(&flagLinksResultsDir, "results-dir", "", "folder for the per-page JSON results")
	linksCmd.Flags().IntVar(&flagLinksWorkers, "workers", 0, "pages checked in parallel")
	linksCmd.Flags().BoolVar(&flagLinksCrawl, "crawl", false, "also check internal pages discovered through links")
	linksCmd.Flags().BoolVar(&flagLinksCFBypass, "cf-bypass", false, "send browser-like TLS and headers to Cloudflare-fronted hosts")
	linksCmd.Flags().BoolVar(&flagLinksNoResults, "no-results", false, "do not write per-page JSON results")

	linksCmd.Flags().BoolVar(&flagLinksComment, "comment", false, "post the result as a pull request comment")
	linksCmd.Flags().BoolVar(&flagLinksFail, "fail", false, "exit with an error when broken links are found")
	linksCmd.Flags().BoolVar(&flagLinksWatch, "watch", false, "re-check whenever files in public_dir change")
	linksCmd.Flags().StringVar(&flagLinksHTML, "html", "", "also write the report as an HTML file")
	linksCmd.Flags().BoolVar(&flagLinksSummary, "summary", false, "append the report to the workflow step summary")

	rootCmd.AddCommand(linksCmd)
}

func runLinks(cmd *cobra.Command, _ []string) error {
	cfg, log, err := loadConfig(config.Options{
		PublicDir:        flagLinksPublicDir,
		BaseURL:          flagLinksBaseURL,
		ResultsDir:       flagLinksResultsDir,
		Workers:          flagLinksWorkers,
		Crawl:            flagLinksCrawl,
		CloudflareBypass: flagLinksCFBypass,
	})
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if flagLinksWatch {
		// Results files could land inside the watched tree.
		flagLinksNoResults = true
		return watchDir(ctx, cfg.PublicDir, log, func() {
			rep, err := checkLinks(ctx, cfg, log)
			if err != nil {
				log.Errorf("link check: %v", err)
				return
			}
			if rep.HasBroken() {
				report.PrintBroken(out, rep)
			} else {
				fmt.Fprintln(out, report.For(cfg.Lang).LinksOK)
			}
		})
	}

	rep, runErr := checkLinks(ctx, cfg, log)
	if rep == nil {
		return runErr
	}
	if errors.Is(runErr, context.Canceled) {
		log.Warnf("Interrupted: reporting %d checked pages.", rep.Pages)
	}

	act := github.NewActions(workflowContext(cfg), out)

	errorsJSON, err := json.Marshal(rep.Errors())
	if err != nil {
		return err
	}
	act.SetOutput("errors", string(errorsJSON))

	if rep.HasBroken() {
		report.PrintBroken(out, rep)
	}

	body, found := report.LinksComment(rep, report.For(cfg.Lang))
	if err := publish(context.WithoutCancel(ctx), cfg, log, act, publishOptions{
		Kind:     report.KindLinks,
		Title:    "Broken link check",
		Body:     body,
		HTMLFile: flagLinksHTML,
		Comment:  flagLinksComment,
		Summary:  flagLinksSummary,
	}); err != nil {
		return err
	}

	if runErr != nil {
		return runErr
	}

	if found && flagLinksFail {
		n := rep.BrokenCount()
		act.Error(fmt.Sprintf("%d broken links found.", n))
		return fmt.Errorf("%w: %d", linkcheck.ErrBrokenLinks, n)
	}

	return nil
}

// checkLinks runs one full pass over public_dir. On interruption the
// partial report is returned together with the context error.
func checkLinks(ctx context.Context, cfg *config.Config, log *ui.Logger) (*linkcheck.Report, error) {
	files, err := site.HTMLFiles(cfg.PublicDir)
	if err != nil {
		return nil, err
	}

	rep := linkcheck.NewReport()
	if len(files) == 0 {
		log.Infof("No HTML files found in %s.", cfg.PublicDir)
		return rep, nil
	}

	root, closeSite, err := openSite(cfg, log)
	if err != nil {
		return nil, err
	}
	defer closeSite()

	client, err := newHTTPClient(cfg, log, hostOf(root))
	if err != nil {
		return nil, err
	}
	defer client.CloseIdleConnections()

	checker := linkcheck.NewChecker(client, linkcheck.Options{
		Extractor: linkcheck.Extractor{
			AcceptedSchemes:  cfg.AcceptedSchemes,
			ExcludedKeywords: cfg.ExcludedKeywords,
			ExcludeExternal:  cfg.ExcludeExternal,
			ExcludeInternal:  cfg.ExcludeInternal,
			SkipBlankTargets: cfg.SkipBlankTargets,
		},
		Method:     cfg.RequestMethod,
		Retries:    cfg.Retries,
		MaxPerHost: cfg.MaxPerHost,
		Crawl:      cfg.Crawl,
	}, log)

	pages := make([]linkcheck.Page, len(files))
	for i, f := range files {
		pages[i] = linkcheck.Page{Key: "/" + f, URL: site.PageURL(root, f)}
	}

	log.Infof("Checking %d HTML files...", len(pages))

	pm := ui.NewProgressManager(!flagNoProgress)
	bar := pm.Register("Links", "pages")
	bar.SetTotal(len(pages))

	stats := &ui.Stats{}
	start := time.Now()

	if !flagLinksNoResults {
		if err := linkcheck.ClearResults(cfg.ResultsDir); err != nil {
			log.Warnf("clear %s: %v", cfg.ResultsDir, err)
		}
	}

	runErr := checker.Run(ctx, pages, root, cfg.Workers, bar, func(pr linkcheck.PageResult) {
		rep.Add(pr)

		stats.Pages.Add(1)
		stats.Links.Add(int64(len(pr.Results)))
		if pr.Err != nil {
			stats.FailedPages.Add(1)
			log.Errorf("%s: %v", pr.Page.Key, pr.Err)
			return
		}

		if !flagLinksNoResults {
			if err := linkcheck.WriteResults(cfg.ResultsDir, pr); err != nil {
				log.Errorf("write results for %s: %v", pr.Page.Key, err)
			}
		}
	})

	bar.MarkDone()
	pm.Close()

	log.Infof("Checked %d pages, %d links: %d broken, %d pages failed (%s).",
		stats.Pages.Load(), stats.Links.Load(), rep.BrokenCount(), stats.FailedPages.Load(),
		time.Since(start).Round(time.Millisecond))

	if !flagLinksNoResults {
		util.RemoveIfEmpty(cfg.ResultsDir)
	}

	return rep, runErr
}
