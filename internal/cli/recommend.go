package cli

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/planner"
	"github.com/rshade/finplan/internal/recommender"
)

// NewRecommendCmd creates the recommend command, which returns goal
// recommendations for a plan from the cache or the recommendation service.
func NewRecommendCmd() *cobra.Command {
	var (
		planPaths   []string
		output      string
		force       bool
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Get goal recommendations for a plan",
		Long: `Returns recommendations for the plan's goals. Results are cached under the
plan's fingerprint; an unchanged plan is served from cache until the entry
expires. Use --force to discard the cached entry and fetch fresh results.

Repeat --plan to serve several plans in one run; they are processed
concurrently and a failing plan does not stop the others.`,
		Example: `  finplan recommend --plan plan.json

  # Ignore the cache
  finplan recommend --plan plan.json --force

  # Several clients at once
  finplan recommend --plan a.json --plan b.json --concurrency 4`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(planPaths) == 1 {
				return runRecommend(cmd, planPaths[0], output, force)
			}
			return runRecommendBatch(cmd, planPaths, output, force, concurrency)
		},
	}

	cmd.Flags().StringArrayVar(&planPaths, "plan", nil, "path to a plan JSON document (required, repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table or json (default: table on a terminal)")
	cmd.Flags().BoolVar(&force, "force", false, "discard any cached recommendations and fetch fresh ones")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "plans served in parallel with several --plan (0 = number of CPUs)")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runRecommend(cmd *cobra.Command, planPath, output string, force bool) error {
	ctx := cmd.Context()

	format, err := resolveOutput(output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	plan, err := loadPlan(ctx, planPath)
	if err != nil {
		return err
	}

	store, closeStore := openCache(ctx)
	defer closeStore()

	result, err := newPlanner(ctx, store).Recommend(ctx, plan.Goals, plan.Client, force)
	if err != nil {
		return describeRecommendError(err)
	}

	logger.Info().Ctx(ctx).
		Str("fingerprint", result.Fingerprint).
		Bool("from_cache", result.FromCache).
		Msg("recommendations ready")

	if format == outputJSON {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	return renderRecommendation(cmd.OutOrStdout(), result)
}

func renderRecommendation(w io.Writer, r *planner.Result) error {
	source := "recommendation service"
	if r.FromCache {
		source = "cache"
	}
	fmt.Fprintf(w, "Fingerprint: %s\n", r.Fingerprint)
	fmt.Fprintf(w, "Source:      %s\n", source)
	fmt.Fprintf(w, "Health:      %.1f / 100\n", r.Metrics.FinancialHealthScore)
	for _, a := range r.Alerts {
		fmt.Fprintf(w, "Alert:       %s (%s)\n", a.Message, a.Code)
	}
	fmt.Fprintln(w)
	return writeJSON(w, r.Recommendations)
}

// describeRecommendError turns service errors into actionable messages.
func describeRecommendError(err error) error {
	switch {
	case errors.Is(err, recommender.ErrNotConfigured):
		return errors.New("no recommendations cached for this plan and no recommendation service configured (set recommender.base_url)")
	case errors.Is(err, recommender.ErrServiceUnavailable):
		return fmt.Errorf("recommendation service unavailable, try again later: %w", err)
	default:
		return err
	}
}

func runRecommendBatch(cmd *cobra.Command, planPaths []string, output string, force bool, concurrency int) error {
	ctx := cmd.Context()

	format, err := resolveOutput(output, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	reqs := make([]planner.Request, 0, len(planPaths))
	for _, path := range planPaths {
		plan, loadErr := loadPlan(ctx, path)
		if loadErr != nil {
			return loadErr
		}
		reqs = append(reqs, planner.Request{Name: path, Goals: plan.Goals, Snapshot: plan.Client})
	}

	store, closeStore := openCache(ctx)
	defer closeStore()

	results := newPlanner(ctx, store).RecommendBatch(ctx, reqs, force, concurrency, func(done, total int) {
		logger.Debug().Ctx(ctx).Int("done", done).Int("total", total).Msg("batch progress")
	})

	failed := 0
	for i := range results {
		if results[i].Err != nil {
			failed++
			results[i].Error = describeRecommendError(results[i].Err).Error()
		}
	}

	if format == outputJSON {
		err = writeJSON(cmd.OutOrStdout(), results)
	} else {
		err = renderBatch(cmd.OutOrStdout(), results)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d plans failed", failed, len(results))
	}
	return nil
}

func renderBatch(w io.Writer, results []planner.BatchResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "PLAN\tFINGERPRINT\tSOURCE\tALERTS\tSTATUS")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%s\n", r.Name, r.Error)
			continue
		}
		source := "service"
		if r.Result.FromCache {
			source = "cache"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\tok\n", r.Name, r.Result.Fingerprint, source, len(r.Result.Alerts))
	}
	return tw.Flush()
}
