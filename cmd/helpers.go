package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/brogergvhs/siteci/internal/config"
	"github.com/brogergvhs/siteci/internal/github"
	"github.com/brogergvhs/siteci/internal/report"
	"github.com/brogergvhs/siteci/internal/site"
	"github.com/brogergvhs/siteci/internal/ui"
	"github.com/brogergvhs/siteci/internal/util"
)

// openSite returns the root URL pages are fetched from: base_url when set,
// otherwise an in-process server over public_dir. closeFn is never nil.
func openSite(cfg *config.Config, log *ui.Logger) (root string, closeFn func(), err error) {
	if cfg.BaseURL != "" {
		return strings.TrimRight(cfg.BaseURL, "/"), func() {}, nil
	}

	srv, err := site.Serve(cfg.PublicDir)
	if err != nil {
		return "", nil, err
	}
	log.Debugf("serving %s at %s", cfg.PublicDir, srv.URL())

	return srv.URL(), func() {
		if err := srv.Close(); err != nil {
			log.Warnf("stop local server: %v", err)
		}
	}, nil
}

func hostOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Host
}

func newHTTPClient(cfg *config.Config, log *ui.Logger, authHost string) (*http.Client, error) {
	return util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:          cfg.Timeout,
		UserAgent:        util.PickUserAgent(cfg.UserAgent),
		MaxConnsPerHost:  cfg.MaxPerHost,
		BasicAuth:        cfg.BasicAuth,
		AuthHost:         authHost,
		CloudflareBypass: cfg.CloudflareBypass,
		DebugLogger:      log,
	})
}

func workflowContext(cfg *config.Config) *github.Context {
	gh := github.ContextFromEnv(os.Getenv)
	if cfg.GitHubToken != "" {
		gh.Token = cfg.GitHubToken
	}
	return gh
}

// postComment creates or updates the PR comment of kind. Running outside a
// pull request only logs.
func postComment(ctx context.Context, cfg *config.Config, log *ui.Logger, kind, body string) error {
	gh := workflowContext(cfg)
	if err := gh.CanComment(); err != nil {
		if errors.Is(err, github.ErrNoPullRequest) {
			log.Infof("No pull request found, comment not posted.")
			return nil
		}
		return fmt.Errorf("cannot comment: %w", err)
	}

	client, err := util.NewHTTPClient(util.HTTPClientOptions{
		Timeout:     30 * time.Second,
		UserAgent:   "siteci/" + Version,
		DebugLogger: log,
	})
	if err != nil {
		return err
	}

	api, err := github.NewClient(client, gh, log)
	if err != nil {
		return err
	}

	c, updated, err := api.UpsertComment(ctx, gh.PullRequest, report.Marker(kind), report.WithMarker(kind, body))
	if err != nil {
		return fmt.Errorf("failed to post comment on %s: %w", gh, err)
	}

	if updated {
		log.Infof("Updated comment %s", c.URL)
	} else {
		log.Infof("Posted comment %s", c.URL)
	}
	return nil
}

type publishOptions struct {
	Kind     string
	Title    string
	Body     string
	HTMLFile string
	Comment  bool
	Summary  bool
}

// publish sends a finished report everywhere the flags ask for.
func publish(ctx context.Context, cfg *config.Config, log *ui.Logger, act *github.Actions, p publishOptions) error {
	if p.HTMLFile != "" {
		if err := report.WriteHTMLFile(p.HTMLFile, p.Title, p.Body); err != nil {
			return err
		}
		log.Infof("HTML report written to %s", p.HTMLFile)
	}

	if p.Summary {
		act.AppendSummary(p.Body)
	}

	if p.Comment {
		return postComment(ctx, cfg, log, p.Kind, p.Body)
	}
	return nil
}
