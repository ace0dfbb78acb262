package planner

import (
	"context"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/logging"
)

// Request is one plan in a batch.
type Request struct {
	Name     string
	Goals    []client.Goal
	Snapshot client.Snapshot
}

// BatchResult is the outcome of one Request. Exactly one of Result and Err
// is set.
type BatchResult struct {
	Name   string  `json:"name"`
	Result *Result `json:"result,omitempty"`
	Err    error   `json:"-"`
	Error  string  `json:"error,omitempty"`
}

// ProgressFunc is called after each request completes with the number of
// completed requests and the total. Calls are serialized.
type ProgressFunc func(done, total int)

// RecommendBatch serves several independent plans with at most concurrency
// requests in flight (runtime.NumCPU() when concurrency < 1). A failed
// request does not stop the others. Batch requests do not change the
// latest observed inputs, so they never mark an interactive refresh stale
// and are never discarded as stale themselves. Results keep the order of
// reqs.
func (p *Planner) RecommendBatch(
	ctx context.Context,
	reqs []Request,
	force bool,
	concurrency int,
	progress ProgressFunc,
) []BatchResult {
	results := make([]BatchResult, len(reqs))
	if len(reqs) == 0 {
		return results
	}
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}

	logger := logging.FromContext(ctx).With().
		Str("component", "planner").
		Str("operation", "recommend_batch").
		Int("requests", len(reqs)).
		Logger()

	var (
		mu   sync.Mutex
		done int
	)
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			fp := p.cache.Store().Fingerprint(req.Goals, req.Snapshot)
			res, err := p.recommend(gCtx, req.Goals, req.Snapshot, force, fp, false)

			results[i] = BatchResult{Name: req.Name, Result: res, Err: err}
			if err != nil {
				results[i].Error = err.Error()
			}

			mu.Lock()
			done++
			if progress != nil {
				progress(done, len(reqs))
			}
			mu.Unlock()
			// Failures are reported per request, never through the group.
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	logger.Debug().Int("failed", failed).Msg("batch complete")
	return results
}
