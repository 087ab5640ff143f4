package report

import "strings"

const (
	KindLinks = "links"
	KindPSI   = "psi"
	KindAudit = "audit"
)

// Marker is the hidden line that identifies a comment of one kind so later
// runs update it instead of adding another.
func Marker(kind string) string {
	return "<!-- siteci:" + kind + " -->"
}

// WithMarker prefixes body with the marker of kind unless it already has it.
func WithMarker(kind, body string) string {
	m := Marker(kind)
	if strings.Contains(body, m) {
		return body
	}
	return m + "\n" + body
}

func cell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
