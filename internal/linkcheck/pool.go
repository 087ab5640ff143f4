package linkcheck

import (
	"context"
	"net/url"
	"strings"
	"sync"
)

// Progress receives page-level progress. All methods may be called from the
// goroutine running Run.
type Progress interface {
	Grow(n int)
	Increment()
	AddBroken(n int)
}

type nopProgress struct{}

func (nopProgress) Grow(int)      {}
func (nopProgress) Increment()    {}
func (nopProgress) AddBroken(int) {}

// Run checks pages with at most workers pages in flight and hands every
// finished page to onPage, in completion order, from the calling goroutine.
// When crawling, pages discovered under siteRoot are queued as they appear.
// On cancellation no new pages start; pages in flight are still reported
// and ctx.Err() is returned.
func (c *Checker) Run(ctx context.Context, pages []Page, siteRoot string, workers int, progress Progress, onPage func(PageResult)) error {
	if progress == nil {
		progress = nopProgress{}
	}
	if workers < 1 {
		workers = 1
	}

	jobs := make(chan Page)
	results := make(chan PageResult)
	var wg sync.WaitGroup

	worker := func() {
		defer wg.Done()
		for p := range jobs {
			results <- c.CheckPage(ctx, p)
		}
	}

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go worker()
	}

	queue := append([]Page(nil), pages...)
	seen := make(map[string]bool, len(pages))
	for _, p := range pages {
		seen[canonicalPage(p.URL)] = true
	}

	inflight := 0
	done := ctx.Done()

	for len(queue) > 0 || inflight > 0 {
		var send chan Page
		var next Page
		if len(queue) > 0 {
			send = jobs
			next = queue[0]
		}

		select {
		case send <- next:
			queue = queue[1:]
			inflight++

		case pr := <-results:
			inflight--
			progress.Increment()
			progress.AddBroken(pr.BrokenCount())

			for _, u := range pr.Discovered {
				id := canonicalPage(u)
				if seen[id] {
					continue
				}
				seen[id] = true
				if key, ok := PageKey(siteRoot, u); ok {
					queue = append(queue, Page{Key: key, URL: u})
					progress.Grow(1)
				}
			}
			onPage(pr)

		case <-done:
			done = nil
			queue = nil
		}
	}

	close(jobs)
	wg.Wait()

	return ctx.Err()
}

// PageKey is the path of pageURL below siteRoot with a leading slash, so a
// page at <root>/blog/index.html has the key "/blog/index.html". A directory
// URL is keyed by its index file: <root>/blog/ is "/blog/index.html" too.
// URLs outside siteRoot are not pages of the site.
func PageKey(siteRoot, pageURL string) (string, bool) {
	root, err := url.Parse(strings.TrimRight(siteRoot, "/"))
	if err != nil {
		return "", false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return "", false
	}
	if !strings.EqualFold(root.Host, u.Host) {
		return "", false
	}

	rootPath := strings.TrimRight(root.Path, "/")
	if rootPath != "" && u.Path != rootPath && !strings.HasPrefix(u.Path, rootPath+"/") {
		return "", false
	}

	key := strings.TrimPrefix(u.Path, rootPath)
	if !strings.HasPrefix(key, "/") {
		key = "/" + key
	}
	if strings.HasSuffix(key, "/") {
		key += indexFile
	}
	return key, true
}

const indexFile = "index.html"

// canonicalPage identifies the document behind a URL. Static servers answer
// /x/ and /x/index.html with the same file, so both map to the latter.
func canonicalPage(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	return canonicalURL(u)
}

func canonicalURL(u *url.URL) string {
	c := *u
	c.Fragment = ""
	c.RawFragment = ""
	if c.Path == "" {
		c.Path = "/"
	}
	if strings.HasSuffix(c.Path, "/") {
		c.Path += indexFile
		c.RawPath = ""
	}
	return c.String()
}
