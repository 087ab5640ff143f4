package linkcheck

import (
	"sort"
)

type BrokenLink struct {
	URL    string
	Reason string
	Status int
}

type PageFailure struct {
	Page   string
	Reason string
	Err    string
}

// Report aggregates page results. Broken links are grouped by page key and
// deduplicated per page, keeping the first occurrence. The site root page
// "/" is never reported.
type Report struct {
	Pages  int
	Links  int
	Broken map[string][]BrokenLink
	Failed []PageFailure

	seen map[string]map[string]bool
}

func NewReport() *Report {
	return &Report{
		Broken: make(map[string][]BrokenLink),
		seen:   make(map[string]map[string]bool),
	}
}

func (r *Report) Add(pr PageResult) {
	r.Pages++

	if pr.Err != nil {
		r.Failed = append(r.Failed, PageFailure{Page: pr.Page.Key, Reason: pr.Reason, Err: pr.Err.Error()})
	}

	for _, res := range pr.Results {
		r.Links++
		if !res.Broken() || res.Page == "/" {
			continue
		}

		seen := r.seen[res.Page]
		if seen == nil {
			seen = make(map[string]bool)
			r.seen[res.Page] = seen
		}
		if seen[res.Link.Original] {
			continue
		}
		seen[res.Link.Original] = true

		r.Broken[res.Page] = append(r.Broken[res.Page], BrokenLink{
			URL:    res.Link.Original,
			Reason: res.Reason(),
			Status: res.Status.Code,
		})
	}
}

// BrokenCount is the number of distinct broken links over all pages.
func (r *Report) BrokenCount() int {
	n := 0
	for _, links := range r.Broken {
		n += len(links)
	}
	return n
}

func (r *Report) HasBroken() bool {
	return len(r.Broken) > 0
}

// PageKeys returns the pages with broken links, sorted.
func (r *Report) PageKeys() []string {
	keys := make([]string, 0, len(r.Broken))
	for k := range r.Broken {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Errors maps each page to its broken link URLs, the shape published as the
// "errors" step output.
func (r *Report) Errors() map[string][]string {
	out := make(map[string][]string, len(r.Broken))
	for page, links := range r.Broken {
		urls := make([]string, len(links))
		for i, l := range links {
			urls[i] = l.URL
		}
		out[page] = urls
	}
	return out
}
