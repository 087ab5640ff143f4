package linkcheck

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func brokenResult(page, original string, code int) Result {
	return Result{
		Page:   page,
		Link:   Link{Original: original, URL: "http://localhost:8081/" + original},
		Status: Status{Code: code, Broken: true, Reason: httpReason(code)},
	}
}

func TestReportAdd(t *testing.T) {
	rep := NewReport()

	rep.Add(PageResult{
		Page: Page{Key: "/a.html"},
		Results: []Result{
			brokenResult("/a.html", "x.png", 404),
			{Page: "/a.html", Link: Link{Original: "ok.html"}, Status: Status{Code: 200}},
			brokenResult("/a.html", "x.png", 404),
			brokenResult("/a.html", "y.png", 500),
		},
	})
	rep.Add(PageResult{
		Page:    Page{Key: "/"},
		Results: []Result{brokenResult("/", "z.png", 404)},
	})
	rep.Add(PageResult{
		Page:   Page{Key: "/down.html"},
		Err:    errors.New("GET /down.html: HTTP 503"),
		Reason: "HTTP_503",
	})

	assert.Equal(t, 3, rep.Pages)
	assert.Equal(t, 5, rep.Links)
	assert.Equal(t, 2, rep.BrokenCount())
	assert.True(t, rep.HasBroken())
	assert.Equal(t, []string{"/a.html"}, rep.PageKeys())
	assert.Equal(t, map[string][]string{"/a.html": {"x.png", "y.png"}}, rep.Errors())
	assert.Equal(t, []PageFailure{{Page: "/down.html", Reason: "HTTP_503", Err: "GET /down.html: HTTP 503"}}, rep.Failed)
}

func TestReportEmpty(t *testing.T) {
	rep := NewReport()
	assert.False(t, rep.HasBroken())
	assert.Empty(t, rep.Errors())
	assert.Empty(t, rep.PageKeys())
}
