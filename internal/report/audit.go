package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/brogergvhs/siteci/internal/audit"
	"github.com/brogergvhs/siteci/internal/util"
)

func AuditMarkdown(results []audit.Result, minScores map[string]float64, msg Messages) string {
	var b strings.Builder

	b.WriteString(Marker(KindAudit) + "\n")
	b.WriteString(msg.AuditHeading + "\n\n")

	passing := true
	for _, r := range results {
		if r.Err != nil || len(r.Warnings) > 0 {
			passing = false
			break
		}
	}
	if passing {
		b.WriteString(msg.AuditAllPassing + "\n")
	}

	for _, r := range results {
		b.WriteString("\n### " + r.Path + "\n\n")

		if r.Err != nil {
			fmt.Fprintf(&b, "⚠️ %s: %s\n", msg.AuditFailed, cell(r.Err.Error()))
			continue
		}

		below := map[string]bool{}
		for _, w := range r.Warnings {
			below[w.Category] = true
		}

		b.WriteString("| Category | Score | Min |\n")
		b.WriteString("| :-- | :--: | :--: |\n")
		for _, c := range audit.Categories {
			score := Emoji(percent(r.Scores[c]))
			if below[c] {
				score += " (" + msg.AuditBelowMin + ")"
			}
			minCell := "-"
			if m, ok := minScores[c]; ok {
				minCell = fmt.Sprintf("%d", percent(m))
			}
			fmt.Fprintf(&b, "| %s | %s | %s |\n", label(categoryLabels, c), score, minCell)
		}

		fmt.Fprintf(&b, "\n**%s**: DOMContentLoaded %s, load %s, %d requests, %s\n",
			msg.AuditMetrics,
			util.Millis(r.Metrics.DOMContentLoaded),
			util.Millis(r.Metrics.Load),
			r.Metrics.Requests,
			util.Human(r.Metrics.Bytes),
		)

		findings := auditFindings(r)
		if len(findings) > 0 {
			fmt.Fprintf(&b, "\n**%s**:\n", msg.AuditFindings)
			for _, f := range findings {
				b.WriteString("- " + f + "\n")
			}
		}
	}

	return b.String()
}

func auditFindings(r audit.Result) []string {
	var out []string
	seen := map[string]bool{}
	for _, c := range r.Checks {
		if c.Passed() || seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		out = append(out, fmt.Sprintf("`%s`: %s", c.ID, c.Detail))
	}
	for _, e := range r.ConsoleErrors {
		out = append(out, "console: "+cell(e))
	}
	for _, f := range r.FailedRequests {
		out = append(out, "request: "+cell(f))
	}
	return out
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
