package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/github"
	"github.com/brogergvhs/siteci/internal/psi"
	"github.com/brogergvhs/siteci/internal/report"
	"github.com/brogergvhs/siteci/internal/site"
	"github.com/brogergvhs/siteci/internal/ui"

	"github.com/spf13/cobra"
)

var (
	flagPSIFiles   string
	flagPSIBaseURL string
	flagPSIComment bool
	flagPSIOutput  string
	flagPSIHTML    string
	flagPSISummary bool
)

const psiTimeout = 2 * time.Minute

const (
	msgPSINoFileList = "HTML files not provided."
	msgPSINoFiles    = "No HTML files changed."
	msgPSINoResults  = "No PageSpeed Insights results obtained."
)

func init() {
	psiCmd := &cobra.Command{
		Use:   "psi [files...]",
		Short: "Run PageSpeed Insights for changed HTML files and print a markdown report",
		Long: `Run PageSpeed Insights for the given HTML files, mobile and desktop.

Files come from the arguments, --files, or the HTML_FILES environment
variable, separated by commas or whitespace. Paths under public_dir are
mapped to site paths. Each file is analysed at <psi.base_url>/<file>.`,
		RunE: runPSI,
	}

	psiCmd.Flags().StringVar(&flagPSIFiles, "files", "", "comma or space separated list of HTML files")
	psiCmd.Flags().StringVar(&flagPSIBaseURL, "base-url", "", "deployed site the files are analysed on")
	psiCmd.Flags().BoolVar(&flagPSIComment, "comment", false, "post the report as a pull request comment")
	psiCmd.Flags().StringVar(&flagPSIOutput, "output", "", "also set the report as this step output")
	psiCmd.Flags().StringVar(&flagPSIHTML, "html", "", "also write the report as an HTML file")
	psiCmd.Flags().BoolVar(&flagPSISummary, "summary", false, "append the report to the workflow step summary")

	rootCmd.AddCommand(psiCmd)
}

// psiFileList picks the file list source. ok is false when none was given
// at all, which is different from an empty list.
func psiFileList(cmd *cobra.Command, args []string) (files []string, ok bool) {
	switch {
	case len(args) > 0:
		return site.ParseFileList(strings.Join(args, ",")), true
	case cmd.Flags().Changed("files"):
		return site.ParseFileList(flagPSIFiles), flagPSIFiles != ""
	}

	list, ok := config.FileListFromEnv()
	if !ok {
		return nil, false
	}
	return site.ParseFileList(list), true
}

func runPSI(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(config.Options{PSIBaseURL: flagPSIBaseURL})
	if err != nil {
		return err
	}
	defer log.Sync()

	out := cmd.OutOrStdout()

	if cfg.PSIAPIKey == "" {
		return psi.ErrNoAPIKey
	}

	files, ok := psiFileList(cmd, args)
	if !ok {
		log.Infof("No file list given (arguments, --files or HTML_FILES).")
		fmt.Fprint(out, msgPSINoFileList)
		return nil
	}
	if len(files) == 0 {
		log.Infof("No changed HTML files.")
		fmt.Fprint(out, msgPSINoFiles)
		return nil
	}
	if cfg.PSI.BaseURL == "" {
		return errors.New("missing --base-url and no base_url or psi.base_url in config")
	}

	for i, f := range files {
		files[i] = site.TrimPublicPrefix(f, cfg.PublicDir)
	}

	client, err := newHTTPClient(cfg, log, "")
	if err != nil {
		return err
	}
	// A single PageSpeed run often takes longer than a link check.
	client.Timeout = max(cfg.Timeout, psiTimeout)

	pm := ui.NewProgressManager(!flagNoProgress)
	bar := pm.Register("PSI", "files")
	bar.SetTotal(len(files))

	runner := &psi.Runner{
		Client: &psi.Client{
			HTTP:       client,
			Endpoint:   cfg.PSI.Endpoint,
			APIKey:     cfg.PSIAPIKey,
			Categories: cfg.PSI.Categories,
			Retries:    cfg.PSI.Retries,
		},
		BaseURL:    cfg.PSI.BaseURL,
		BatchSize:  cfg.PSI.BatchSize,
		Strategies: cfg.PSI.Strategies,
		Log:        log,
		OnFile: func(_ string, err error) {
			if err != nil {
				bar.AddBroken(1)
			}
			bar.Increment()
		},
	}

	rep, runErr := runner.Run(cmd.Context(), files)
	bar.MarkDone()
	pm.Close()

	if len(rep.Results) == 0 {
		fmt.Fprint(out, msgPSINoResults)
		return runErr
	}

	md := report.PSIMarkdown(rep, report.For(cfg.Lang))
	fmt.Fprint(out, md)

	act := github.NewActions(workflowContext(cfg), out)
	if flagPSIOutput != "" {
		act.SetOutput(flagPSIOutput, md)
	}

	if err := publish(context.WithoutCancel(cmd.Context()), cfg, log, act, publishOptions{
		Kind:     report.KindPSI,
		Title:    "PageSpeed Insights",
		Body:     md,
		HTMLFile: flagPSIHTML,
		Comment:  flagPSIComment,
		Summary:  flagPSISummary,
	}); err != nil {
		return err
	}

	return runErr
}
