package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/ui"
	"github.com/brogergvhs/siteci/internal/util"

	"github.com/spf13/cobra"
)

var (
	flagIgnoreConfig bool
	flagDebug        bool
	flagConfigFile   string
	flagNoProgress   bool
	flagLang         string
)

var rootCmd = &cobra.Command{
	Use:           "siteci",
	Short:         "CI checks for static sites: broken links, PageSpeed Insights and page audits",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagIgnoreConfig, "ignore-config", false, "ignore config files and use only defaults, environment and CLI flags")
	rootCmd.PersistentFlags().StringVar(&flagConfigFile, "config", "", "use this config file instead of .siteci.yaml or the active profile")
	rootCmd.PersistentFlags().BoolVar(&flagNoProgress, "no-progress", false, "do not draw progress bars")
	rootCmd.PersistentFlags().StringVar(&flagLang, "lang", "", "report language (en, ja)")
}

func Execute() {
	ctx, cancel := util.InterruptContext(context.Background())

	err := rootCmd.ExecuteContext(ctx)
	cancel()

	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig merges the persistent flags into opts, loads the config and
// builds the logger every command uses.
func loadConfig(opts config.Options) (*config.Config, *ui.Logger, error) {
	opts.IgnoreConfig = flagIgnoreConfig
	opts.File = flagConfigFile
	opts.Debug = flagDebug
	if opts.Lang == "" {
		opts.Lang = flagLang
	}

	cfg, used, err := config.LoadMerged(opts)
	if err != nil {
		return nil, nil, err
	}

	log := ui.NewLogger(cfg.Debug)
	log.Debugf("config: %s", used)

	return cfg, log, nil
}
