package github

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sethvargo/go-githubactions"
)

const DefaultAPIURL = "https://api.github.com"

var (
	ErrNoPullRequest = errors.New("no pull request in the workflow context")
	ErrNoToken       = errors.New("GITHUB_TOKEN is not set")
	ErrNoRepository  = errors.New("GITHUB_REPOSITORY is not set")
)

// Context is the part of the workflow environment siteci needs.
type Context struct {
	Owner       string
	Repo        string
	PullRequest int
	Token       string
	APIURL      string
	OutputPath  string
	SummaryPath string

	getenv func(string) string
}

var pullRef = regexp.MustCompile(`^refs/pull/(\d+)/`)

// ContextFromEnv reads the workflow environment through getenv, usually
// os.Getenv. The pull request number comes from the event payload, then
// from GITHUB_REF. An unreadable payload only loses the number it carries.
func ContextFromEnv(getenv func(string) string) *Context {
	c := &Context{
		Token:       getenv("GITHUB_TOKEN"),
		OutputPath:  getenv("GITHUB_OUTPUT"),
		SummaryPath: getenv("GITHUB_STEP_SUMMARY"),
		getenv:      getenv,
	}

	repository := getenv("GITHUB_REPOSITORY")
	c.APIURL = getenv("GITHUB_API_URL")

	action := githubactions.New(githubactions.WithGetenv(getenv))
	if ghc, err := action.Context(); err == nil {
		repository = ghc.Repository
		c.APIURL = ghc.APIURL
		c.PullRequest = eventNumber(ghc.Event)
	}

	c.APIURL = strings.TrimRight(c.APIURL, "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	if owner, repo, ok := strings.Cut(repository, "/"); ok {
		c.Owner, c.Repo = owner, repo
	}

	if c.PullRequest == 0 {
		if m := pullRef.FindStringSubmatch(getenv("GITHUB_REF")); m != nil {
			c.PullRequest, _ = strconv.Atoi(m[1])
		}
	}

	return c
}

// eventNumber finds the pull request number in a pull_request or
// issue_comment payload.
func eventNumber(event map[string]any) int {
	for _, key := range []string{"pull_request", "issue"} {
		obj, ok := event[key].(map[string]any)
		if !ok {
			continue
		}
		if n, ok := obj["number"].(float64); ok && n > 0 {
			return int(n)
		}
	}
	return 0
}

func (c *Context) Repository() string {
	if c.Owner == "" {
		return ""
	}
	return c.Owner + "/" + c.Repo
}

// CanComment reports why a PR comment cannot be posted, or nil.
func (c *Context) CanComment() error {
	switch {
	case c.Repository() == "":
		return ErrNoRepository
	case c.Token == "":
		return ErrNoToken
	case c.PullRequest == 0:
		return ErrNoPullRequest
	}
	return nil
}

func (c *Context) String() string {
	return fmt.Sprintf("%s#%d", c.Repository(), c.PullRequest)
}
