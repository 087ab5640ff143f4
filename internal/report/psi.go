package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/brogergvhs/siteci/internal/psi"
)

var categoryLabels = map[string]string{
	"performance":    "Performance",
	"accessibility":  "Accessibility",
	"best-practices": "Best Practices",
	"seo":            "SEO",
}

var strategyLabels = map[string]string{
	"mobile":  "Mobile",
	"desktop": "Desktop",
}

func label(labels map[string]string, id string) string {
	if l, ok := labels[id]; ok {
		return l
	}
	return id
}

// Emoji prefixes a 0-100 score with the traffic light used in PR comments.
func Emoji(score int) string {
	switch {
	case score >= 90:
		return fmt.Sprintf(":green_circle: %d", score)
	case score >= 70:
		return fmt.Sprintf(":orange_circle: %d", score)
	case score >= 50:
		return fmt.Sprintf(":red_circle: %d", score)
	default:
		return fmt.Sprintf(":warning: %d", score)
	}
}

func PSIMarkdown(rep *psi.Report, msg Messages) string {
	var b strings.Builder

	b.WriteString(Marker(KindPSI) + "\n")
	b.WriteString(msg.PSIHeading + "\n\n")
	fmt.Fprintf(&b, "**%s**: %s\n", msg.PSIAnalyzedAt, rep.At.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "**%s**: %s\n", msg.PSISite, rep.Site)
	fmt.Fprintf(&b, "**%s**: %d/%d\n", msg.PSIFileCount, len(rep.Results), rep.Requested)

	header := []string{"Device"}
	align := []string{":--"}
	for _, c := range rep.Categories {
		header = append(header, label(categoryLabels, c))
		align = append(align, ":--:")
	}

	for _, res := range rep.Results {
		b.WriteString("\n### " + res.File + "\n\n")
		b.WriteString("| " + strings.Join(header, " | ") + " |\n")
		b.WriteString("| " + strings.Join(align, " | ") + " |\n")

		for _, s := range rep.Strategies {
			row := []string{label(strategyLabels, s)}
			for _, c := range rep.Categories {
				row = append(row, Emoji(res.Scores[s][c]))
			}
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
	}

	return b.String()
}
