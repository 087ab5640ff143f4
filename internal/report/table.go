package report

import (
	"io"

	"github.com/brogergvhs/siteci/internal/linkcheck"

	"github.com/rodaine/table"
)

// PrintBroken writes broken links grouped by page as a plain text table.
func PrintBroken(w io.Writer, rep *linkcheck.Report) {
	tbl := table.New("Page", "Count", "Broken Link", "Reason").WithWriter(w)

	for _, page := range rep.PageKeys() {
		links := rep.Broken[page]
		for i, l := range links {
			if i == 0 {
				tbl.AddRow(page, len(links), l.URL, orNA(l.Reason))
			} else {
				tbl.AddRow("", "", l.URL, orNA(l.Reason))
			}
		}
	}

	tbl.Print()
}
