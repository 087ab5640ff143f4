package linkcheck

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Record is one checked link as stored in a results directory. The field
// layout follows the JSON emitted by broken-link-checker so existing
// workflow steps that read those files keep working.
type Record struct {
	URL          RecordURL  `json:"url"`
	Base         RecordBase `json:"base"`
	HTML         RecordHTML `json:"html"`
	Broken       bool       `json:"broken"`
	BrokenReason string     `json:"brokenReason,omitempty"`
	HTTP         RecordHTTP `json:"http"`
}

type RecordURL struct {
	Original string `json:"original"`
	Resolved string `json:"resolved"`
}

type RecordBase struct {
	Original string `json:"original"`
}

type RecordHTML struct {
	Tag  string `json:"tagName"`
	Attr string `json:"attrName"`
}

type RecordHTTP struct {
	Status int `json:"status,omitempty"`
}

// PageRecords is the content of one results file.
type PageRecords struct {
	Page    string
	Records []Record
}

// ResultsFileName encodes a page key into a flat file name.
func ResultsFileName(page string) string {
	name := strings.TrimPrefix(page, "/")
	if name == "" {
		name = "index"
	}
	return url.PathEscape(name) + ".json"
}

// PageFromResultsFile reverses ResultsFileName.
func PageFromResultsFile(name string) string {
	base := strings.TrimSuffix(name, ".json")
	if p, err := url.PathUnescape(base); err == nil {
		base = p
	}
	return "/" + strings.TrimPrefix(base, "/")
}

func toRecords(pr PageResult) []Record {
	out := make([]Record, 0, len(pr.Results))
	for _, r := range pr.Results {
		out = append(out, Record{
			URL:          RecordURL{Original: r.Link.Original, Resolved: r.Link.URL},
			Base:         RecordBase{Original: pr.Page.URL},
			HTML:         RecordHTML{Tag: r.Link.Tag, Attr: r.Link.Attr},
			Broken:       r.Broken(),
			BrokenReason: r.Reason(),
			HTTP:         RecordHTTP{Status: r.Status.Code},
		})
	}
	return out
}

// WriteResults stores the records of one page under dir. The site root
// "/" is not reported, so nothing is written for it.
func WriteResults(dir string, pr PageResult) error {
	if pr.Page.Key == "/" {
		return nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("cannot create results folder: %w", err)
	}

	data, err := json.MarshalIndent(toRecords(pr), "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, ResultsFileName(pr.Page.Key)), data, 0644)
}

// ClearResults removes the results files of an earlier run from dir. Other
// files are left alone. A missing dir is not an error.
func ClearResults(dir string) error {
	matches, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return err
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			return err
		}
	}
	return nil
}

// ReadResults loads every results file in dir, sorted by page. Files that
// are not .json, are empty, or do not parse are skipped and passed to skip
// with the reason.
func ReadResults(dir string, skip func(name string, err error)) ([]PageRecords, error) {
	if skip == nil {
		skip = func(string, error) {}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []PageRecords
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		raw, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			skip(e.Name(), err)
			continue
		}
		if strings.TrimSpace(string(raw)) == "" {
			continue
		}

		var records []Record
		if err := json.Unmarshal(raw, &records); err != nil {
			skip(e.Name(), err)
			continue
		}

		out = append(out, PageRecords{Page: PageFromResultsFile(e.Name()), Records: records})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Page < out[j].Page })
	return out, nil
}
