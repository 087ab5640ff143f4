package github

import (
	"io"
	"os"

	"github.com/sethvargo/go-githubactions"
)

// Actions writes workflow commands and the files GitHub Actions reads back
// after a step. Without GITHUB_OUTPUT or GITHUB_STEP_SUMMARY the matching
// writers are no-ops, so the same code runs outside a workflow.
type Actions struct {
	OutputPath  string
	SummaryPath string

	action *githubactions.Action
}

// NewActions sends workflow commands such as ::error:: to out.
func NewActions(gh *Context, out io.Writer) *Actions {
	if out == nil {
		out = io.Discard
	}

	paths := map[string]string{
		"GITHUB_OUTPUT":       gh.OutputPath,
		"GITHUB_STEP_SUMMARY": gh.SummaryPath,
	}
	getenv := func(key string) string {
		if v, ok := paths[key]; ok {
			return v
		}
		if gh.getenv != nil {
			return gh.getenv(key)
		}
		return os.Getenv(key)
	}

	return &Actions{
		OutputPath:  gh.OutputPath,
		SummaryPath: gh.SummaryPath,
		action: githubactions.New(
			githubactions.WithWriter(out),
			githubactions.WithGetenv(getenv),
		),
	}
}

// SetOutput records a step output. Multi-line values are written as a
// delimited block.
func (a *Actions) SetOutput(name, value string) {
	if a.OutputPath == "" {
		return
	}
	a.action.SetOutput(name, value)
}

func (a *Actions) AppendSummary(markdown string) {
	if a.SummaryPath == "" {
		return
	}
	a.action.AddStepSummary(markdown)
}

func (a *Actions) Error(msg string)   { a.action.Errorf("%s", msg) }
func (a *Actions) Warning(msg string) { a.action.Warningf("%s", msg) }
func (a *Actions) Notice(msg string)  { a.action.Noticef("%s", msg) }
