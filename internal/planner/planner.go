// Package planner ties the metrics engine, the recommendation cache and the
// recommendation service together.
//
// Recommend serves cached recommendations when the fingerprint of the
// current inputs has a valid entry and otherwise fetches fresh ones.
// Concurrent requests for the same fingerprint share one fetch. A response
// whose fingerprint is no longer the latest observed one is discarded
// instead of being cached, so a slow reply cannot overwrite the result for
// newer edits.
package planner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/sync/singleflight"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/engine"
	"github.com/rshade/finplan/internal/engine/cache"
	"github.com/rshade/finplan/internal/logging"
)

// DefaultDebounce is the quiet period after the last edit before a
// scheduled refresh runs.
const DefaultDebounce = 3 * time.Second

// ErrStale is returned when the inputs changed while recommendations were
// being fetched; the response was not cached.
var ErrStale = errors.New("inputs changed while recommendations were being fetched")

// Recommender fetches fresh recommendations.
type Recommender interface {
	Recommend(ctx context.Context, goals []client.Goal, snapshot client.Snapshot, metrics engine.FinancialMetrics) (json.RawMessage, error)
}

// Result is the outcome of a planning request.
type Result struct {
	Recommendations json.RawMessage         `json:"recommendations"`
	Fingerprint     string                  `json:"fingerprint"`
	FromCache       bool                    `json:"fromCache"`
	Metrics         engine.FinancialMetrics `json:"metrics"`
	Alerts          []engine.Alert          `json:"alerts,omitempty"`
}

// Option configures a Planner.
type Option func(*Planner)

// WithDebounce sets the ScheduleRecommend quiet period.
func WithDebounce(d time.Duration) Option {
	return func(p *Planner) { p.debouncer = NewDebouncer(d) }
}

// Planner orchestrates planning requests. It is safe for concurrent use.
type Planner struct {
	cache       *cache.Controller
	recommender Recommender
	debouncer   *Debouncer
	group       singleflight.Group

	mu     sync.Mutex
	latest string
}

// New returns a Planner. A nil recommender makes every cache miss fail.
func New(ctrl *cache.Controller, rec Recommender, opts ...Option) *Planner {
	p := &Planner{
		cache:       ctrl,
		recommender: rec,
		debouncer:   NewDebouncer(DefaultDebounce),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Observe records goals and snapshot as the latest inputs and returns their
// fingerprint.
func (p *Planner) Observe(goals []client.Goal, snapshot client.Snapshot) string {
	fp := p.cache.Store().Fingerprint(goals, snapshot)
	p.mu.Lock()
	p.latest = fp
	p.mu.Unlock()
	return fp
}

// IsCurrent reports whether fp is the fingerprint of the latest inputs.
func (p *Planner) IsCurrent(fp string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest == "" || p.latest == fp
}

// Recommend returns recommendations for goals and snapshot. With force the
// cached entry is discarded first. The inputs become the latest observed
// ones.
func (p *Planner) Recommend(ctx context.Context, goals []client.Goal, snapshot client.Snapshot, force bool) (*Result, error) {
	return p.recommend(ctx, goals, snapshot, force, p.Observe(goals, snapshot), true)
}

// recommend serves one request for fingerprint fp. Only tracked requests
// are subject to the latest-inputs check.
func (p *Planner) recommend(
	ctx context.Context,
	goals []client.Goal,
	snapshot client.Snapshot,
	force bool,
	fp string,
	tracked bool,
) (*Result, error) {
	metrics := engine.ComputeMetrics(snapshot)

	logger := logging.FromContext(ctx).With().
		Str("component", "planner").
		Str("operation", "recommend").
		Str("fingerprint", fp).
		Logger()

	result := &Result{
		Fingerprint: fp,
		Metrics:     metrics,
		Alerts:      engine.Assess(ctx, metrics),
	}

	if force {
		p.cache.ForceRefresh(ctx, goals, snapshot)
	} else if entry, ok := p.cache.Lookup(ctx, goals, snapshot); ok {
		result.Recommendations = entry.Recommendations
		result.FromCache = true
		return result, nil
	}

	if p.recommender == nil {
		return nil, errors.New("no recommendation service configured")
	}

	v, err, shared := p.group.Do(fp, func() (any, error) {
		recs, fetchErr := p.recommender.Recommend(ctx, goals, snapshot, metrics)
		if fetchErr != nil {
			return nil, fetchErr
		}
		if tracked && !p.IsCurrent(fp) {
			logger.Debug().Msg("discarding recommendations for superseded inputs")
			return nil, ErrStale
		}
		if putErr := p.cache.Store().PutFingerprint(ctx, fp, goals, snapshot, recs); putErr != nil &&
			!errors.Is(putErr, cache.ErrCacheDisabled) {
			logger.Warn().Err(putErr).Msg("could not cache recommendations")
		}
		return recs, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetching recommendations: %w", err)
	}

	logger.Debug().Bool("shared", shared).Msg("fetched recommendations")
	result.Recommendations = v.(json.RawMessage)
	return result, nil
}

// ScheduleRecommend marks goals and snapshot as the latest inputs and
// schedules a Recommend after the debounce period, replacing any refresh
// still pending. done receives the outcome; it is not called when newer
// inputs were observed before the refresh ran.
func (p *Planner) ScheduleRecommend(
	ctx context.Context,
	goals []client.Goal,
	snapshot client.Snapshot,
	done func(*Result, error),
) {
	fp := p.Observe(goals, snapshot)
	p.debouncer.Schedule(fp, func(key string) {
		if !p.IsCurrent(key) {
			return
		}
		res, err := p.Recommend(ctx, goals, snapshot, false)
		if done != nil {
			done(res, err)
		}
	})
}

// Debouncer returns the debouncer behind ScheduleRecommend.
func (p *Planner) Debouncer() *Debouncer {
	return p.debouncer
}
