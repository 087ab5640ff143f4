package linkcheck

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultsFileNameRoundTrip(t *testing.T) {
	for _, page := range []string{"/index.html", "/blog/2024/post.html", "/日本語/ページ.html"} {
		name := ResultsFileName(page)
		assert.NotContains(t, name, "/")
		assert.Equal(t, page, PageFromResultsFile(name))
	}

	assert.Equal(t, "index.json", ResultsFileName("/"))
}

func TestWriteAndReadResults(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "blc-results")

	pr := PageResult{
		Page: Page{Key: "/blog/index.html", URL: "http://localhost:8081/blog/index.html"},
		Results: []Result{
			{
				Page:   "/blog/index.html",
				Link:   Link{URL: "http://localhost:8081/blog/a.html", Original: "a.html", Tag: "a", Attr: "href", Internal: true},
				Status: Status{Code: 200},
			},
			{
				Page:   "/blog/index.html",
				Link:   Link{URL: "http://localhost:8081/blog/gone.png", Original: "gone.png", Tag: "img", Attr: "src", Internal: true},
				Status: Status{Code: 404, Broken: true, Reason: "HTTP_404"},
			},
			{
				Page: "/blog/index.html",
				Link: Link{Original: "http://[::1", Tag: "a", Attr: "href", Invalid: true},
			},
		},
	}
	require.NoError(t, WriteResults(dir, pr))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "empty.json"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0644))

	var skipped []string
	got, err := ReadResults(dir, func(name string, err error) {
		skipped = append(skipped, name)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"bad.json"}, skipped)

	want := []PageRecords{{
		Page: "/blog/index.html",
		Records: []Record{
			{
				URL:  RecordURL{Original: "a.html", Resolved: "http://localhost:8081/blog/a.html"},
				Base: RecordBase{Original: "http://localhost:8081/blog/index.html"},
				HTML: RecordHTML{Tag: "a", Attr: "href"},
				HTTP: RecordHTTP{Status: 200},
			},
			{
				URL:          RecordURL{Original: "gone.png", Resolved: "http://localhost:8081/blog/gone.png"},
				Base:         RecordBase{Original: "http://localhost:8081/blog/index.html"},
				HTML:         RecordHTML{Tag: "img", Attr: "src"},
				Broken:       true,
				BrokenReason: "HTTP_404",
				HTTP:         RecordHTTP{Status: 404},
			},
			{
				URL:          RecordURL{Original: "http://[::1"},
				Base:         RecordBase{Original: "http://localhost:8081/blog/index.html"},
				HTML:         RecordHTML{Tag: "a", Attr: "href"},
				Broken:       true,
				BrokenReason: ReasonInvalid,
			},
		},
	}}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ReadResults mismatch (-want +got):\n%s", diff)
	}
}

func TestReadResultsMissingDir(t *testing.T) {
	_, err := ReadResults(filepath.Join(t.TempDir(), "nope"), nil)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestClearResults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.json"), []byte("[]"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "keep.txt"), []byte("x"), 0644))

	require.NoError(t, ClearResults(dir))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "keep.txt", entries[0].Name())

	assert.NoError(t, ClearResults(filepath.Join(dir, "missing")))
}

func TestWriteResultsSkipsSiteRoot(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteResults(dir, PageResult{
		Page: Page{Key: "/", URL: "http://localhost:8081/"},
		Results: []Result{{
			Page:   "/",
			Link:   Link{URL: "http://localhost:8081/x.png", Original: "x.png", Tag: "img", Attr: "src"},
			Status: Status{Code: 404, Broken: true, Reason: "HTTP_404"},
		}},
	}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
