package psi

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/brogergvhs/siteci/internal/ui"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// Result holds the scores of one file, keyed by strategy.
type Result struct {
	File   string
	URL    string
	Scores map[string]Scores
}

type Report struct {
	Site       string
	At         time.Time
	Requested  int
	Failed     int
	Categories []string
	Strategies []string
	// Results keep the order of the requested files.
	Results []Result
	// Err combines the failure of every dropped file.
	Err error
}

type Runner struct {
	Client     *Client
	BaseURL    string
	BatchSize  int
	Strategies []string
	Log        *ui.Logger
	Now        func() time.Time
	// OnFile is called once per file after all its strategies finished.
	OnFile func(file string, err error)
}

// Run analyses files in sequential batches. Files of one batch run
// concurrently and every file requests all strategies at once; a file is
// dropped when any strategy fails. Only cancellation is returned as an
// error.
func (r *Runner) Run(ctx context.Context, files []string) (*Report, error) {
	log := r.Log
	if log == nil {
		log = ui.NewNopLogger()
	}
	now := r.Now
	if now == nil {
		now = time.Now
	}
	size := r.BatchSize
	if size < 1 {
		size = 5
	}

	rep := &Report{
		Site:       r.BaseURL,
		At:         now().UTC(),
		Requested:  len(files),
		Categories: r.Client.Categories,
		Strategies: r.Strategies,
	}

	slots := make([]*Result, len(files))
	errs := make([]error, len(files))

	for start := 0; start < len(files); start += size {
		if ctx.Err() != nil {
			break
		}

		end := min(start+size, len(files))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				slots[i], errs[i] = r.runFile(ctx, files[i])
				if r.OnFile != nil {
					r.OnFile(files[i], errs[i])
				}
			}()
		}
		wg.Wait()

		log.Infof("%d requests done", end)
	}

	for i, res := range slots {
		if res == nil && errs[i] == nil {
			continue
		}
		if errs[i] != nil {
			rep.Failed++
			log.Errorf("[%s] PageSpeed Insights failed: %v", files[i], errs[i])
			rep.Err = multierr.Append(rep.Err, fmt.Errorf("%s: %w", files[i], errs[i]))
			continue
		}
		rep.Results = append(rep.Results, *res)
	}

	if rep.Failed > 0 {
		log.Warnf("%d requests failed", rep.Failed)
	}

	return rep, ctx.Err()
}

func (r *Runner) runFile(ctx context.Context, file string) (*Result, error) {
	file = strings.TrimSpace(file)
	res := &Result{
		File:   file,
		URL:    strings.TrimRight(r.BaseURL, "/") + "/" + strings.TrimLeft(file, "/"),
		Scores: make(map[string]Scores, len(r.Strategies)),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for _, strategy := range r.Strategies {
		g.Go(func() error {
			s, err := r.Client.Run(gctx, res.URL, strategy)
			if err != nil {
				return err
			}
			mu.Lock()
			res.Scores[strategy] = s
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
