package audit

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	CategoryPerformance   = "performance"
	CategoryAccessibility = "accessibility"
	CategoryBestPractices = "best-practices"
	CategorySEO           = "seo"
)

// Categories in report order.
var Categories = []string{CategoryPerformance, CategoryAccessibility, CategoryBestPractices, CategorySEO}

type Metrics struct {
	DOMContentLoaded time.Duration
	Load             time.Duration
	Requests         int
	Bytes            int64
}

// Check is one static DOM check. Score is in [0,1]; 1 means passed.
type Check struct {
	ID       string
	Category string
	Score    float64
	Detail   string
}

func (c Check) Passed() bool { return c.Score >= 1 }

// Page is what the browser collected for one URL.
type Page struct {
	Path           string
	URL            string
	Metrics        Metrics
	ConsoleErrors  []string
	FailedRequests []string
	Doc            *goquery.Document
}

type Warning struct {
	Category string
	Score    float64
	Min      float64
}

func (w Warning) String() string {
	return fmt.Sprintf("%s score %.2f is below %.2f", w.Category, w.Score, w.Min)
}

type Result struct {
	Path           string
	URL            string
	Metrics        Metrics
	ConsoleErrors  []string
	FailedRequests []string
	Checks         []Check
	Scores         map[string]float64
	Warnings       []Warning
	// Err is set when the page could not be audited at all.
	Err error
}

// Thresholds tunes Evaluate.
type Thresholds struct {
	LoadBudget time.Duration
	MinScores  map[string]float64
}

// Evaluate runs the static checks on p and scores every category.
func Evaluate(p Page, th Thresholds) Result {
	res := Result{
		Path:           p.Path,
		URL:            p.URL,
		Metrics:        p.Metrics,
		ConsoleErrors:  p.ConsoleErrors,
		FailedRequests: p.FailedRequests,
	}
	if p.Doc != nil {
		res.Checks = StaticChecks(p.Doc)
	}

	res.Scores = map[string]float64{
		CategoryPerformance:   performanceScore(p.Metrics, th.LoadBudget),
		CategoryAccessibility: checkScore(res.Checks, CategoryAccessibility),
		CategoryBestPractices: bestPracticesScore(p),
		CategorySEO:           checkScore(res.Checks, CategorySEO),
	}
	res.Warnings = Warnings(res.Scores, th.MinScores)

	return res
}

// StaticChecks inspects the rendered document.
func StaticChecks(doc *goquery.Document) []Check {
	var checks []Check

	title := strings.TrimSpace(doc.Find("head title").First().Text())
	titleCheck := boolCheck("document-title", title != "", "missing <title>")
	checks = append(checks,
		withCategory(titleCheck, CategoryAccessibility),
		withCategory(titleCheck, CategorySEO),
	)

	lang, _ := doc.Find("html").First().Attr("lang")
	checks = append(checks, withCategory(
		boolCheck("html-has-lang", strings.TrimSpace(lang) != "", "<html> has no lang attribute"),
		CategoryAccessibility,
	))

	checks = append(checks, imageAltCheck(doc))

	desc, _ := doc.Find(`meta[name="description"]`).First().Attr("content")
	checks = append(checks, withCategory(
		boolCheck("meta-description", strings.TrimSpace(desc) != "", "missing meta description"),
		CategorySEO,
	))

	viewport, _ := doc.Find(`meta[name="viewport"]`).First().Attr("content")
	checks = append(checks, withCategory(
		boolCheck("viewport", strings.Contains(viewport, "width"), "missing viewport meta with width"),
		CategorySEO,
	))

	return checks
}

func boolCheck(id string, ok bool, detail string) Check {
	if ok {
		return Check{ID: id, Score: 1}
	}
	return Check{ID: id, Score: 0, Detail: detail}
}

func withCategory(c Check, category string) Check {
	c.Category = category
	return c
}

func imageAltCheck(doc *goquery.Document) Check {
	imgs := doc.Find("img")
	total := imgs.Length()
	if total == 0 {
		return Check{ID: "image-alt", Category: CategoryAccessibility, Score: 1}
	}

	missing := 0
	imgs.Each(func(_ int, s *goquery.Selection) {
		if _, ok := s.Attr("alt"); !ok {
			missing++
		}
	})

	c := Check{ID: "image-alt", Category: CategoryAccessibility, Score: float64(total-missing) / float64(total)}
	if missing > 0 {
		c.Detail = fmt.Sprintf("%d of %d images have no alt attribute", missing, total)
	}
	return c
}

func checkScore(checks []Check, category string) float64 {
	sum, n := 0.0, 0
	for _, c := range checks {
		if c.Category != category {
			continue
		}
		sum += c.Score
		n++
	}
	if n == 0 {
		return 1
	}
	return round2(sum / float64(n))
}

func performanceScore(m Metrics, budget time.Duration) float64 {
	load := m.Load
	if load <= 0 {
		load = m.DOMContentLoaded
	}
	if load <= 0 || budget <= 0 || load <= budget {
		return 1
	}
	return round2(float64(budget) / float64(load))
}

func bestPracticesScore(p Page) float64 {
	score := 1.0
	score -= min(0.1*float64(len(p.ConsoleErrors)), 0.5)
	score -= min(0.1*float64(len(p.FailedRequests)), 0.3)

	if u, err := url.Parse(p.URL); err == nil && u.Scheme != "https" && !isLoopback(u.Hostname()) {
		score -= 0.2
	}
	return round2(max(score, 0))
}

func isLoopback(host string) bool {
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Warnings lists the categories scoring below their minimum, in report
// order.
func Warnings(scores, minScores map[string]float64) []Warning {
	var out []Warning
	for _, cat := range Categories {
		want, ok := minScores[cat]
		if !ok {
			continue
		}
		if got := scores[cat]; got < want {
			out = append(out, Warning{Category: cat, Score: got, Min: want})
		}
	}
	return out
}

func round2(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
