package report

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/brogergvhs/siteci/internal/audit"
	"github.com/brogergvhs/siteci/internal/linkcheck"
	"github.com/brogergvhs/siteci/internal/psi"
	"github.com/brogergvhs/siteci/internal/site"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *linkcheck.Report {
	rep := linkcheck.NewReport()
	rep.Add(linkcheck.PageResult{
		Page: linkcheck.Page{Key: "/blog/index.html"},
		Results: []linkcheck.Result{
			{Page: "/blog/index.html", Link: linkcheck.Link{Original: "gone.png"}, Status: linkcheck.Status{Code: 404, Broken: true, Reason: "HTTP_404"}},
			{Page: "/blog/index.html", Link: linkcheck.Link{Original: "a|b.html", Invalid: true}},
		},
	})
	rep.Add(linkcheck.PageResult{
		Page:   linkcheck.Page{Key: "/down.html"},
		Err:    errors.New("GET /down.html: HTTP 500"),
		Reason: "HTTP_500",
	})
	return rep
}

func TestLinksComment(t *testing.T) {
	body, found := LinksComment(sampleReport(), For("ja"))
	require.True(t, found)

	want := Marker(KindLinks) + "\n" +
		"## 🔍 リンク切れチェック結果\n\n" +
		"| ファイル名 | リンク切れパス | その他情報 |\n" +
		"| --- | --- | --- |\n" +
		"| /blog/index.html | gone.png | HTTP_404 |\n" +
		"| /blog/index.html | a\\|b.html | BLC_INVALID |\n" +
		"\n\n⚠️ リンク切れが見つかりました。修正をお願いします。\n" +
		"\n### チェックできなかったページ\n\n" +
		"- `/down.html`: HTTP_500\n"
	assert.Equal(t, want, body)
}

func TestLinksCommentNothingBroken(t *testing.T) {
	body, found := LinksComment(linkcheck.NewReport(), For("en"))
	assert.False(t, found)
	assert.Equal(t, Marker(KindLinks)+"\n✅ No broken links were found.\n", body)
}

func TestLinksCommentFromResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, linkcheck.WriteResults(dir, linkcheck.PageResult{
		Page: linkcheck.Page{Key: "/about.html", URL: "http://localhost:8081/about.html"},
		Results: []linkcheck.Result{
			{Link: linkcheck.Link{Original: "ok.html"}, Status: linkcheck.Status{Code: 200}},
			{Link: linkcheck.Link{Original: "https://example.invalid/"}, Status: linkcheck.Status{Broken: true, Reason: "ERRNO_ENOTFOUND"}},
		},
	}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("not json"), 0644))

	body, found := LinksCommentFromResults(dir, For("en"), nil)
	assert.True(t, found)
	assert.Contains(t, body, "| /about.html | https://example.invalid/ | ERRNO_ENOTFOUND |\n")
	assert.NotContains(t, body, "ok.html")
}

func TestLinksCommentFromMissingResults(t *testing.T) {
	body, found := LinksCommentFromResults(filepath.Join(t.TempDir(), "missing"), For("ja"), nil)
	assert.False(t, found)
	assert.Contains(t, body, "リンク切れチェック中にエラーが発生しました")
	assert.True(t, strings.HasPrefix(body, Marker(KindLinks)))
}

func TestEmoji(t *testing.T) {
	assert.Equal(t, ":green_circle: 90", Emoji(90))
	assert.Equal(t, ":orange_circle: 89", Emoji(89))
	assert.Equal(t, ":orange_circle: 70", Emoji(70))
	assert.Equal(t, ":red_circle: 50", Emoji(50))
	assert.Equal(t, ":warning: 49", Emoji(49))
	assert.Equal(t, ":warning: 0", Emoji(0))
}

func TestPSIMarkdown(t *testing.T) {
	rep := &psi.Report{
		Site:       "https://staging.example/site",
		At:         time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Requested:  3,
		Categories: []string{"performance", "accessibility", "best-practices", "seo"},
		Strategies: []string{"mobile", "desktop"},
		Results: []psi.Result{{
			File: "product/a.html",
			Scores: map[string]psi.Scores{
				"mobile":  {"performance": 45, "accessibility": 92, "best-practices": 78, "seo": 100},
				"desktop": {"performance": 88, "accessibility": 92, "best-practices": 78, "seo": 100},
			},
		}},
	}

	want := Marker(KindPSI) + "\n" +
		"## PageSpeed Insights results\n\n" +
		"**Analyzed at**: 2025-03-01T12:00:00Z\n" +
		"**Site**: https://staging.example/site\n" +
		"**Files analyzed**: 1/3\n" +
		"\n### product/a.html\n\n" +
		"| Device | Performance | Accessibility | Best Practices | SEO |\n" +
		"| :-- | :--: | :--: | :--: | :--: |\n" +
		"| Mobile | :warning: 45 | :green_circle: 92 | :orange_circle: 78 | :green_circle: 100 |\n" +
		"| Desktop | :orange_circle: 88 | :green_circle: 92 | :orange_circle: 78 | :green_circle: 100 |\n"

	assert.Equal(t, want, PSIMarkdown(rep, For("en")))
}

func TestAuditMarkdown(t *testing.T) {
	results := []audit.Result{
		{
			Path:    "/index.html",
			Metrics: audit.Metrics{DOMContentLoaded: 420 * time.Millisecond, Load: 6 * time.Second, Requests: 12, Bytes: 2048},
			Scores: map[string]float64{
				audit.CategoryPerformance: 0.5, audit.CategoryAccessibility: 1,
				audit.CategoryBestPractices: 0.9, audit.CategorySEO: 0.67,
			},
			Checks: []audit.Check{
				{ID: "meta-description", Category: audit.CategorySEO, Score: 0, Detail: "missing meta description"},
			},
			ConsoleErrors: []string{"boom"},
			Warnings: []audit.Warning{
				{Category: audit.CategoryPerformance, Score: 0.5, Min: 0.6},
				{Category: audit.CategorySEO, Score: 0.67, Min: 0.8},
			},
		},
		{Path: "/broken.html", Err: errors.New("navigate: net::ERR_CONNECTION_REFUSED")},
	}
	minScores := map[string]float64{audit.CategoryPerformance: 0.6, audit.CategorySEO: 0.8}

	got := AuditMarkdown(results, minScores, For("en"))

	assert.Contains(t, got, "| Performance | :red_circle: 50 (below minimum) | 60 |\n")
	assert.Contains(t, got, "| Accessibility | :green_circle: 100 | - |\n")
	assert.Contains(t, got, "| SEO | :red_circle: 67 (below minimum) | 80 |\n")
	assert.Contains(t, got, "**Metrics**: DOMContentLoaded 420 ms, load 6000 ms, 12 requests, 2.00 KB\n")
	assert.Contains(t, got, "- `meta-description`: missing meta description\n")
	assert.Contains(t, got, "- console: boom\n")
	assert.Contains(t, got, "### /broken.html\n\n⚠️ audit failed: navigate: net::ERR_CONNECTION_REFUSED\n")
	assert.NotContains(t, got, "All pages meet")
}

func TestWithMarker(t *testing.T) {
	body := WithMarker(KindPSI, "hello")
	assert.Equal(t, "<!-- siteci:psi -->\nhello", body)
	assert.Equal(t, body, WithMarker(KindPSI, body))
}

func TestToHTML(t *testing.T) {
	out, err := ToHTML(Marker(KindLinks) + "\n| a | b |\n| --- | --- |\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "<!-- siteci:links -->")
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "<td>2</td>")

	path := filepath.Join(t.TempDir(), "report.html")
	require.NoError(t, WriteHTMLFile(path, "Links <check>", "# Title"))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<title>Links &lt;check&gt;</title>")
	assert.Contains(t, string(raw), "<h1>Title</h1>")
}

func TestRenderPlain(t *testing.T) {
	out, err := Render("## Results\n\nAll good.", 80, "notty")
	require.NoError(t, err)
	assert.Contains(t, out, "Results")
	assert.Contains(t, out, "All good.")
}

func TestPrintBroken(t *testing.T) {
	var buf bytes.Buffer
	PrintBroken(&buf, sampleReport())

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "Broken Link")
	assert.Contains(t, lines[1], "/blog/index.html")
	assert.Contains(t, lines[1], "gone.png")
	assert.Contains(t, lines[2], "a|b.html")
	assert.Contains(t, lines[2], "BLC_INVALID")
}

func TestLinksCommentFromCrawlResultsMatchesLiveComment(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"index.html":      `<a href="blog/">Blog</a><img src="missing.png"><img src="missing.png">`,
		"blog/index.html": `<a href="../">Home</a><a href="index.html">Self</a><img src="nope.png">`,
	} {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	}

	srv, err := site.Serve(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })

	client := &http.Client{Timeout: 5 * time.Second, Transport: &http.Transport{}}
	t.Cleanup(client.CloseIdleConnections)

	checker := linkcheck.NewChecker(client, linkcheck.Options{
		Extractor: linkcheck.Extractor{AcceptedSchemes: []string{"http", "https"}, SkipBlankTargets: true},
		Crawl:     true,
	}, nil)

	resultsDir := filepath.Join(t.TempDir(), "results")
	rep := linkcheck.NewReport()
	pages := []linkcheck.Page{{Key: "/index.html", URL: site.PageURL(srv.URL(), "index.html")}}

	err = checker.Run(context.Background(), pages, srv.URL(), 2, nil, func(pr linkcheck.PageResult) {
		rep.Add(pr)
		require.NoError(t, linkcheck.WriteResults(resultsDir, pr))
	})
	require.NoError(t, err)

	live, found := LinksComment(rep, For("en"))
	require.True(t, found)

	stored, found := LinksCommentFromResults(resultsDir, For("en"), nil)
	assert.True(t, found)
	assert.Equal(t, live, stored)
	assert.Contains(t, stored, "| /blog/index.html | nope.png | HTTP_404 |\n")
	assert.Contains(t, stored, "| /index.html | missing.png | HTTP_404 |\n")
	assert.NotContains(t, stored, "| /index |")
	assert.NotContains(t, stored, "| /blog/ |")
}
