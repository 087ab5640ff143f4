package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brogergvhs/siteci/internal/ui"
	"github.com/brogergvhs/siteci/internal/util"

	gogithub "github.com/google/go-github/v72/github"
)

const perPage = 100

type Comment struct {
	ID   int64
	Body string
	URL  string
}

func commentFrom(c *gogithub.IssueComment) *Comment {
	if c == nil {
		return nil
	}
	return &Comment{ID: c.GetID(), Body: c.GetBody(), URL: c.GetHTMLURL()}
}

// Client manages the pull request comments of one repository.
type Client struct {
	api     *gogithub.Client
	gh      *Context
	log     *ui.Logger
	Retries int
	Backoff time.Duration
}

func NewClient(c *http.Client, gh *Context, log *ui.Logger) (*Client, error) {
	if log == nil {
		log = ui.NewNopLogger()
	}

	api := gogithub.NewClient(c).WithAuthToken(gh.Token)
	if gh.APIURL != "" && gh.APIURL != DefaultAPIURL {
		base, err := url.Parse(strings.TrimRight(gh.APIURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("invalid GITHUB_API_URL %q: %w", gh.APIURL, err)
		}
		api.BaseURL = base
	}

	return &Client{api: api, gh: gh, log: log, Retries: 2, Backoff: time.Second}, nil
}

// retry runs call again on transport errors, 429 and 5xx, with linear
// backoff.
func (c *Client) retry(ctx context.Context, what string, call func() (*gogithub.Response, error)) error {
	attempts := 1 + max(0, c.Retries)

	var err error
	for i := 1; i <= attempts; i++ {
		var resp *gogithub.Response
		resp, err = call()
		if err == nil {
			return nil
		}
		if resp != nil && !util.Retryable(resp.StatusCode) {
			break
		}
		if i == attempts || ctx.Err() != nil {
			break
		}

		c.log.Debugf("github: %s failed (%v), retrying", what, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.Backoff * time.Duration(i)):
		}
	}
	return fmt.Errorf("github: %s: %w", what, err)
}

func (c *Client) CreateComment(ctx context.Context, pr int, body string) (*Comment, error) {
	var out *gogithub.IssueComment
	err := c.retry(ctx, "create comment", func() (*gogithub.Response, error) {
		var resp *gogithub.Response
		var err error
		out, resp, err = c.api.Issues.CreateComment(ctx, c.gh.Owner, c.gh.Repo, pr,
			&gogithub.IssueComment{Body: gogithub.Ptr(body)})
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return commentFrom(out), nil
}

func (c *Client) UpdateComment(ctx context.Context, id int64, body string) (*Comment, error) {
	var out *gogithub.IssueComment
	err := c.retry(ctx, "update comment", func() (*gogithub.Response, error) {
		var resp *gogithub.Response
		var err error
		out, resp, err = c.api.Issues.EditComment(ctx, c.gh.Owner, c.gh.Repo, id,
			&gogithub.IssueComment{Body: gogithub.Ptr(body)})
		return resp, err
	})
	if err != nil {
		return nil, err
	}
	return commentFrom(out), nil
}

// ListComments returns every comment of a pull request, following pages.
func (c *Client) ListComments(ctx context.Context, pr int) ([]Comment, error) {
	opts := &gogithub.IssueListCommentsOptions{ListOptions: gogithub.ListOptions{PerPage: perPage}}

	var all []Comment
	for {
		var batch []*gogithub.IssueComment
		var next int
		err := c.retry(ctx, "list comments", func() (*gogithub.Response, error) {
			var resp *gogithub.Response
			var err error
			batch, resp, err = c.api.Issues.ListComments(ctx, c.gh.Owner, c.gh.Repo, pr, opts)
			if resp != nil {
				next = resp.NextPage
			}
			return resp, err
		})
		if err != nil {
			return nil, err
		}

		for _, ic := range batch {
			all = append(all, *commentFrom(ic))
		}
		if next == 0 {
			return all, nil
		}
		opts.Page = next
	}
}

// UpsertComment updates the newest comment containing marker, or creates
// one. The bool reports whether an existing comment was updated.
func (c *Client) UpsertComment(ctx context.Context, pr int, marker, body string) (*Comment, bool, error) {
	comments, err := c.ListComments(ctx, pr)
	if err != nil {
		return nil, false, err
	}

	for i := len(comments) - 1; i >= 0; i-- {
		if marker != "" && strings.Contains(comments[i].Body, marker) {
			c.log.Debugf("updating comment %d", comments[i].ID)
			out, err := c.UpdateComment(ctx, comments[i].ID, body)
			return out, true, err
		}
	}

	out, err := c.CreateComment(ctx, pr, body)
	return out, false, err
}
