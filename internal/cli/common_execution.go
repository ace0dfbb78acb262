package cli

import (
	"context"
	"fmt"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/config"
	"github.com/rshade/finplan/internal/engine/cache"
	"github.com/rshade/finplan/internal/kvstore"
	"github.com/rshade/finplan/internal/logging"
	"github.com/rshade/finplan/internal/planner"
	"github.com/rshade/finplan/internal/recommender"
	"github.com/rshade/finplan/internal/telemetry"
)

type sessionKey struct{}

// session is the per-invocation state set up by the root command.
type session struct {
	projectDir  string
	metrics     *telemetry.Metrics
	metricsFile string
}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session in ctx, or a fresh one for commands run
// without the root command.
func sessionFrom(ctx context.Context) *session {
	if s, ok := ctx.Value(sessionKey{}).(*session); ok && s != nil {
		return s
	}
	return &session{metrics: telemetry.New(false)}
}

// flushMetrics writes the run's metrics when --metrics-file was given.
func flushMetrics(ctx context.Context) error {
	s := sessionFrom(ctx)
	if s.metricsFile == "" {
		return nil
	}
	if err := s.metrics.WriteTextfile(s.metricsFile); err != nil {
		return fmt.Errorf("writing metrics file: %w", err)
	}
	return nil
}

// loadPlan reads the plan document given by --plan.
func loadPlan(ctx context.Context, path string) (*client.Plan, error) {
	log := logging.FromContext(ctx)

	plan, err := client.LoadPlan(path)
	if err != nil {
		log.Error().Ctx(ctx).Err(err).Str("plan_path", path).Msg("failed to load plan")
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	log.Debug().Ctx(ctx).
		Int("goal_count", len(plan.Goals)).
		Str("client_id", string(plan.Client.ID)).
		Msg("plan loaded")
	return plan, nil
}

// openCache opens the configured cache. A disabled cache, or storage that
// cannot be opened, yields a disabled Store: recommendations still work,
// they are just never cached. The returned func releases the storage.
func openCache(ctx context.Context) (*cache.Store, func()) {
	cfg := config.GetCacheConfig()
	s := sessionFrom(ctx)
	opts := append(cfg.StoreOptions(), cache.WithObserver(s.metrics))

	if !cfg.Enabled {
		return cache.New(nil, opts...), func() {}
	}

	kv, err := kvstore.Open(cfg.KVOptions())
	if err != nil {
		log := logging.FromContext(ctx)
		log.Warn().Ctx(ctx).
			Str("component", "cache").
			Str("operation", "open").
			Err(err).
			Str("backend", cfg.Backend).
			Msg("cache storage unavailable, continuing without cache")
		return cache.New(nil, opts...), func() {}
	}

	return cache.New(kv, opts...), func() {
		if closeErr := kv.Close(); closeErr != nil {
			log := logging.FromContext(ctx)
			log.Warn().Ctx(ctx).Err(closeErr).Msg("closing cache storage")
		}
	}
}

// newPlanner wires the cache, the recommendation service client and the
// run's metrics into a Planner.
func newPlanner(ctx context.Context, store *cache.Store) *planner.Planner {
	cfg := config.GetGlobalConfig()
	s := sessionFrom(ctx)
	rec := recommender.NewFromMetrics(cfg.Recommender.ClientOptions(), s.metrics)
	return planner.New(cache.NewController(store), rec, cfg.Planner.Options()...)
}
