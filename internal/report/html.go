package report

import (
	"bytes"
	"fmt"
	"html"
	"os"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

var markdownEngine = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	// Raw HTML is kept so the comment marker survives as an HTML comment.
	goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
)

// ToHTML renders a report to an HTML fragment with GitHub-flavored tables.
func ToHTML(markdown string) (string, error) {
	var buf bytes.Buffer
	if err := markdownEngine.Convert([]byte(markdown), &buf); err != nil {
		return "", fmt.Errorf("markdown render: %w", err)
	}
	return buf.String(), nil
}

const htmlPage = `<!doctype html>
<html>
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{font-family:-apple-system,"Segoe UI",sans-serif;max-width:960px;margin:2rem auto;padding:0 1rem}
table{border-collapse:collapse}
th,td{border:1px solid #d0d7de;padding:.3rem .7rem}
</style>
</head>
<body>
%s</body>
</html>
`

// WriteHTMLFile stores a report as a standalone HTML page, for CI artifacts.
func WriteHTMLFile(path, title, markdown string) error {
	body, err := ToHTML(markdown)
	if err != nil {
		return err
	}

	page := fmt.Sprintf(htmlPage, html.EscapeString(title), body)
	if err := os.WriteFile(path, []byte(page), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
