package report

import (
	"strings"

	"github.com/brogergvhs/siteci/internal/linkcheck"
	"github.com/brogergvhs/siteci/internal/ui"
)

type LinkRow struct {
	File string
	Path string
	Info string
}

// LinksComment builds the broken link comment for a finished run and
// reports whether any broken link was found.
func LinksComment(rep *linkcheck.Report, msg Messages) (string, bool) {
	var rows []LinkRow
	for _, page := range rep.PageKeys() {
		for _, l := range rep.Broken[page] {
			rows = append(rows, LinkRow{File: page, Path: l.URL, Info: orNA(l.Reason)})
		}
	}

	return linksBody(rows, rep.Failed, msg), len(rows) > 0
}

// LinksCommentFromResults builds the same comment from a results directory
// written by an earlier run. A directory that cannot be read yields the
// error message and false.
func LinksCommentFromResults(dir string, msg Messages, log *ui.Logger) (string, bool) {
	if log == nil {
		log = ui.NewNopLogger()
	}

	pages, err := linkcheck.ReadResults(dir, func(name string, err error) {
		log.Errorf("%s: parse error: %v", name, err)
	})
	if err != nil {
		log.Errorf("read results: %v", err)
		return WithMarker(KindLinks, msg.LinksError+"\n"), false
	}

	var rows []LinkRow
	for _, p := range pages {
		seen := make(map[string]bool)
		for _, r := range p.Records {
			if !r.Broken || seen[r.URL.Original] {
				continue
			}
			seen[r.URL.Original] = true
			rows = append(rows, LinkRow{File: p.Page, Path: r.URL.Original, Info: orNA(r.BrokenReason)})
		}
	}

	return linksBody(rows, nil, msg), len(rows) > 0
}

func linksBody(rows []LinkRow, failed []linkcheck.PageFailure, msg Messages) string {
	var b strings.Builder
	b.WriteString(Marker(KindLinks) + "\n")

	if len(rows) == 0 {
		b.WriteString(msg.LinksOK + "\n")
	} else {
		b.WriteString(msg.LinksHeading + "\n\n")
		b.WriteString("| " + strings.Join(msg.LinksColumns[:], " | ") + " |\n")
		b.WriteString("| --- | --- | --- |\n")
		for _, r := range rows {
			b.WriteString("| " + cell(r.File) + " | " + cell(r.Path) + " | " + cell(r.Info) + " |\n")
		}
		b.WriteString("\n\n" + msg.LinksFooter + "\n")
	}

	if len(failed) > 0 {
		b.WriteString("\n" + msg.FailedHeading + "\n\n")
		for _, f := range failed {
			b.WriteString("- `" + f.Page + "`: " + orNA(f.Reason) + "\n")
		}
	}

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
