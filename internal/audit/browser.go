package audit

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/brogergvhs/siteci/internal/ui"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

type Options struct {
	// ChromeBin overrides the browser binary. Empty lets the launcher find
	// or download one.
	ChromeBin string
	Timeout   time.Duration
	Thresholds
}

type Target struct {
	Path string
	URL  string
}

// Auditor drives one headless Chrome instance. Pages are audited one at a
// time.
type Auditor struct {
	opts     Options
	log      *ui.Logger
	launcher *launcher.Launcher
	browser  *rod.Browser
}

func NewAuditor(ctx context.Context, opts Options, log *ui.Logger) (*Auditor, error) {
	if log == nil {
		log = ui.NewNopLogger()
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}

	l := launcher.New().Context(ctx).Headless(true).NoSandbox(true)
	if opts.ChromeBin != "" {
		l = l.Bin(opts.ChromeBin)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chrome: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	log.Debugf("chrome started at %s", controlURL)

	return &Auditor{opts: opts, log: log, launcher: l, browser: browser}, nil
}

func (a *Auditor) Close() error {
	err := a.browser.Close()
	a.launcher.Cleanup()
	return err
}

// Run audits targets in order. A page that cannot be loaded yields a Result
// with Err set; only cancellation stops the run.
func (a *Auditor) Run(ctx context.Context, targets []Target, onPage func(Result)) ([]Result, error) {
	out := make([]Result, 0, len(targets))

	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return out, err
		}

		p, err := a.collect(ctx, t)
		var res Result
		if err != nil {
			a.log.Errorf("audit %s: %v", t.Path, err)
			res = Result{Path: t.Path, URL: t.URL, Err: err}
		} else {
			res = Evaluate(p, a.opts.Thresholds)
			for _, w := range res.Warnings {
				a.log.Warnf("%s: %s", t.Path, w)
			}
		}

		if onPage != nil {
			onPage(res)
		}
		out = append(out, res)
	}

	return out, nil
}

type collector struct {
	mu       sync.Mutex
	console  []string
	failed   []string
	urls     map[proto.NetworkRequestID]string
	requests int
	bytes    int64
}

func (c *collector) handlers() []any {
	return []any{
		func(ev *proto.RuntimeConsoleAPICalled) {
			if ev.Type != proto.RuntimeConsoleAPICalledTypeError {
				return
			}
			c.mu.Lock()
			c.console = append(c.console, consoleText(ev.Args))
			c.mu.Unlock()
		},
		func(ev *proto.RuntimeExceptionThrown) {
			if ev.ExceptionDetails == nil {
				return
			}
			msg := ev.ExceptionDetails.Text
			if ex := ev.ExceptionDetails.Exception; ex != nil && ex.Description != "" {
				msg = ex.Description
			}
			c.mu.Lock()
			c.console = append(c.console, msg)
			c.mu.Unlock()
		},
		func(ev *proto.NetworkRequestWillBeSent) {
			c.mu.Lock()
			c.requests++
			c.urls[ev.RequestID] = ev.Request.URL
			c.mu.Unlock()
		},
		func(ev *proto.NetworkResponseReceived) {
			if ev.Response == nil || ev.Response.Status < 400 {
				return
			}
			c.mu.Lock()
			c.failed = append(c.failed, fmt.Sprintf("%s (HTTP %d)", ev.Response.URL, ev.Response.Status))
			c.mu.Unlock()
		},
		func(ev *proto.NetworkLoadingFailed) {
			if ev.Canceled {
				return
			}
			c.mu.Lock()
			c.failed = append(c.failed, fmt.Sprintf("%s (%s)", c.urls[ev.RequestID], ev.ErrorText))
			c.mu.Unlock()
		},
		func(ev *proto.NetworkLoadingFinished) {
			c.mu.Lock()
			c.bytes += int64(ev.EncodedDataLength)
			c.mu.Unlock()
		},
	}
}

const timingJS = `() => {
	const nav = performance.getEntriesByType('navigation')[0];
	if (!nav) return {dcl: 0, load: 0};
	return {dcl: nav.domContentLoadedEventEnd, load: nav.loadEventStart};
}`

func (a *Auditor) collect(ctx context.Context, t Target) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	page, err := a.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return Page{}, fmt.Errorf("open tab: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := (proto.NetworkEnable{}).Call(page); err != nil {
		return Page{}, fmt.Errorf("enable network events: %w", err)
	}

	col := &collector{urls: make(map[proto.NetworkRequestID]string)}
	evCtx, stopEvents := context.WithCancel(ctx)
	wait := page.Context(evCtx).EachEvent(col.handlers()...)
	done := make(chan struct{})
	go func() {
		defer close(done)
		wait()
	}()
	stop := func() {
		stopEvents()
		<-done
	}

	if err := page.Navigate(t.URL); err != nil {
		stop()
		return Page{}, fmt.Errorf("navigate: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		stop()
		return Page{}, fmt.Errorf("wait for load: %w", err)
	}

	var m Metrics
	if res, err := page.Eval(timingJS); err == nil {
		m.DOMContentLoaded = time.Duration(res.Value.Get("dcl").Num() * float64(time.Millisecond))
		m.Load = time.Duration(res.Value.Get("load").Num() * float64(time.Millisecond))
	} else {
		a.log.Debugf("%s: navigation timing unavailable: %v", t.Path, err)
	}

	html, err := page.HTML()
	stop()
	if err != nil {
		return Page{}, fmt.Errorf("read DOM: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Page{}, fmt.Errorf("parse DOM: %w", err)
	}

	m.Requests = col.requests
	m.Bytes = col.bytes

	return Page{
		Path:           t.Path,
		URL:            t.URL,
		Metrics:        m,
		ConsoleErrors:  col.console,
		FailedRequests: col.failed,
		Doc:            doc,
	}, nil
}

func consoleText(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
