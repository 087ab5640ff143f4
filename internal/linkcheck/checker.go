package linkcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/siteci/internal/ui"
	"github.com/brogergvhs/siteci/internal/util"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

var ErrBrokenLinks = errors.New("broken links found")

type Options struct {
	Extractor

	// Method is GET or HEAD. HEAD falls back to GET when a server rejects it.
	Method     string
	Retries    int
	MaxPerHost int
	// Crawl follows internal HTML pages that are not part of the initial
	// page list.
	Crawl bool
}

// Status is the outcome of requesting one URL.
type Status struct {
	Code        int
	Broken      bool
	Reason      string
	ContentType string
}

type Checker struct {
	client *http.Client
	opts   Options
	log    *ui.Logger

	group singleflight.Group
	mu    sync.Mutex
	cache map[string]Status
	hosts sync.Map
}

func NewChecker(c *http.Client, opts Options, log *ui.Logger) *Checker {
	if opts.MaxPerHost <= 0 {
		opts.MaxPerHost = 5
	}
	if opts.Method == "" {
		opts.Method = http.MethodGet
	}
	if log == nil {
		log = ui.NewNopLogger()
	}

	return &Checker{
		client: c,
		opts:   opts,
		log:    log,
		cache:  make(map[string]Status),
	}
}

// Check requests target once per Checker. Concurrent and later calls for
// the same URL share the first result.
func (c *Checker) Check(ctx context.Context, target string) Status {
	if st, ok := c.cached(target); ok {
		return st
	}

	v, _, _ := c.group.Do(target, func() (any, error) {
		if st, ok := c.cached(target); ok {
			return st, nil
		}

		st := c.check(ctx, target)
		if ctx.Err() == nil {
			c.store(target, st)
		}
		return st, nil
	})

	return v.(Status)
}

func (c *Checker) cached(target string) (Status, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	st, ok := c.cache[target]
	return st, ok
}

func (c *Checker) store(target string, st Status) {
	c.mu.Lock()
	c.cache[target] = st
	c.mu.Unlock()
}

func (c *Checker) hostLimit(host string) *semaphore.Weighted {
	v, _ := c.hosts.LoadOrStore(strings.ToLower(host), semaphore.NewWeighted(int64(c.opts.MaxPerHost)))
	return v.(*semaphore.Weighted)
}

func (c *Checker) check(ctx context.Context, target string) Status {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return Status{Broken: true, Reason: ReasonInvalid}
	}

	sem := c.hostLimit(u.Host)
	if err := sem.Acquire(ctx, 1); err != nil {
		return Status{Broken: true, Reason: errorReason(err)}
	}
	defer sem.Release(1)

	st := c.request(ctx, c.opts.Method, target)
	if c.opts.Method == http.MethodHead &&
		(st.Code == http.StatusMethodNotAllowed || st.Code == http.StatusNotImplemented) {
		st = c.request(ctx, http.MethodGet, target)
	}

	if st.Broken {
		c.log.Debugf("broken %s (%s)", target, st.Reason)
	}
	return st
}

func (c *Checker) request(ctx context.Context, method, target string) Status {
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return Status{Broken: true, Reason: ReasonInvalid}
	}

	resp, err := util.DoWithRetry(ctx, c.client, req, 1+c.opts.Retries, 500*time.Millisecond)
	if err != nil {
		return Status{Broken: true, Reason: errorReason(err)}
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	st := Status{Code: resp.StatusCode, ContentType: mediaType(resp.Header.Get("Content-Type"))}
	if resp.StatusCode >= 400 {
		st.Broken = true
		st.Reason = httpReason(resp.StatusCode)
	}
	return st
}

func mediaType(ct string) string {
	mt, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(ct))
	}
	return mt
}

// Page is one document to check. Key identifies it in reports.
type Page struct {
	Key string
	URL string
}

type Result struct {
	Page   string
	Link   Link
	Status Status
}

func (r Result) Broken() bool {
	return r.Link.Invalid || r.Status.Broken
}

func (r Result) Reason() string {
	if r.Link.Invalid {
		return ReasonInvalid
	}
	return r.Status.Reason
}

type PageResult struct {
	Page    Page
	Results []Result
	// Err is set when the page itself could not be loaded.
	Err    error
	Reason string
	// Discovered holds internal HTML pages linked from this page, filled
	// only when crawling.
	Discovered []string
}

func (pr PageResult) BrokenCount() int {
	n := 0
	for _, r := range pr.Results {
		if r.Broken() {
			n++
		}
	}
	return n
}

// CheckPage loads page, extracts its links and checks each of them.
func (c *Checker) CheckPage(ctx context.Context, page Page) PageResult {
	pr := PageResult{Page: page}

	doc, finalURL, st, err := c.fetchDOM(ctx, page.URL)
	if err != nil {
		pr.Err = err
		pr.Reason = st.Reason
		return pr
	}
	c.store(page.URL, st)

	links := c.opts.Extract(doc, finalURL)
	c.log.Debugf("%s: %d links", page.Key, len(links))

	pr.Results = make([]Result, len(links))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(4, c.opts.MaxPerHost*2))

	for i, l := range links {
		pr.Results[i] = Result{Page: page.Key, Link: l}
		if l.Invalid {
			continue
		}

		g.Go(func() error {
			pr.Results[i].Status = c.Check(gctx, l.URL)
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		pr.Err = ctx.Err()
		pr.Reason = errorReason(ctx.Err())
		return pr
	}

	if c.opts.Crawl {
		pr.Discovered = discoverPages(pr.Results)
	}

	return pr
}

func (c *Checker) fetchDOM(ctx context.Context, target string) (*goquery.Document, *url.URL, Status, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, nil, Status{Broken: true, Reason: ReasonInvalid}, err
	}

	resp, err := util.DoWithRetry(ctx, c.client, req, 1+c.opts.Retries, 500*time.Millisecond)
	if err != nil {
		return nil, nil, Status{Broken: true, Reason: errorReason(err)}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	st := Status{Code: resp.StatusCode, ContentType: mediaType(resp.Header.Get("Content-Type"))}
	if resp.StatusCode >= 400 {
		st.Broken = true
		st.Reason = httpReason(resp.StatusCode)
		return nil, nil, st, fmt.Errorf("GET %s: HTTP %d", target, resp.StatusCode)
	}
	if st.ContentType != "" && st.ContentType != "text/html" && st.ContentType != "application/xhtml+xml" {
		st.Reason = ReasonPageNotHTML
		return nil, nil, st, fmt.Errorf("GET %s: not an HTML page (%s)", target, st.ContentType)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		st.Reason = ReasonUnknown
		return nil, nil, st, fmt.Errorf("parse %s: %w", target, err)
	}

	return doc, resp.Request.URL, st, nil
}

var pageTags = map[string]bool{"a": true, "area": true, "iframe": true, "frame": true}

func discoverPages(results []Result) []string {
	var out []string
	seen := map[string]bool{}

	for _, r := range results {
		if !r.Link.Internal || r.Broken() || !pageTags[r.Link.Tag] {
			continue
		}
		if r.Status.ContentType != "text/html" || seen[r.Link.URL] {
			continue
		}
		seen[r.Link.URL] = true
		out = append(out, r.Link.URL)
	}
	return out
}
