package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/cli/pagination"
	"github.com/rshade/finplan/internal/engine/cache"
)

// NewCacheStatsCmd creates the cache stats command.
func NewCacheStatsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show recommendation cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			format, err := resolveOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			store, closeStore := openCache(ctx)
			defer closeStore()

			stats := store.Stats(ctx)
			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), struct {
					Enabled bool `json:"enabled"`
					cache.Stats
				}{store.IsEnabled(), stats})
			}

			if !store.IsEnabled() {
				fmt.Fprintln(cmd.OutOrStdout(), "Cache is disabled")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, tabPadding, ' ', 0)
			fmt.Fprintf(tw, "Entries\t%d\n", stats.TotalEntries)
			fmt.Fprintf(tw, "Active\t%d\n", stats.ActiveEntries)
			fmt.Fprintf(tw, "Expired\t%d\n", stats.ExpiredEntries)
			fmt.Fprintf(tw, "Approx size\t%.1f KB\n", stats.ApproxSizeKB)
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table or json (default: table on a terminal)")
	return cmd
}

// cacheListing is the JSON form of cache list.
type cacheListing struct {
	Entries    []cache.EntryInfo `json:"entries"`
	Pagination pagination.Meta   `json:"pagination"`
}

// NewCacheListCmd creates the cache list command.
func NewCacheListCmd() *cobra.Command {
	var (
		params pagination.Params
		output string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached recommendation entries",
		Example: `  # Newest entries first
  finplan cache list --sort createdAt:desc --limit 10

  # Second page of 20
  finplan cache list --page 2 --page-size 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if err := params.Validate(); err != nil {
				return err
			}
			format, err := resolveOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}

			store, closeStore := openCache(ctx)
			defer closeStore()

			entries, err := pagination.SortEntries(store.List(ctx), params.Sort)
			if err != nil {
				return err
			}
			listing := cacheListing{
				Entries:    pagination.Apply(params, entries),
				Pagination: pagination.NewMeta(params, len(entries)),
			}
			if listing.Entries == nil {
				listing.Entries = []cache.EntryInfo{}
			}

			if format == outputJSON {
				return writeJSON(cmd.OutOrStdout(), listing)
			}
			return renderCacheList(cmd.OutOrStdout(), listing, time.Now())
		},
	}

	cmd.Flags().IntVar(&params.Limit, "limit", pagination.DefaultLimit, "maximum number of entries (0 = all)")
	cmd.Flags().IntVar(&params.Offset, "offset", 0, "number of entries to skip")
	cmd.Flags().IntVar(&params.Page, "page", 0, "page number, starting at 1")
	cmd.Flags().IntVar(&params.PageSize, "page-size", 0, "entries per page")
	cmd.Flags().StringVar(&params.Sort, "sort", "", "sort as field[:asc|desc]; fields: "+strings.Join(pagination.EntrySortFields(), ", "))
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table or json (default: table on a terminal)")
	return cmd
}

func renderCacheList(w io.Writer, l cacheListing, now time.Time) error {
	if len(l.Entries) == 0 {
		_, err := fmt.Fprintln(w, "No cached entries")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	fmt.Fprintln(tw, "FINGERPRINT\tCLIENT\tGOALS\tAGE\tEXPIRES IN\tSIZE")
	for _, e := range l.Entries {
		expires := "expired"
		if !e.Expired {
			expires = cache.FormatDuration(e.ExpiresAt.Sub(now))
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t%d\n",
			e.Fingerprint, e.ClientID, e.GoalsCount,
			cache.FormatDuration(now.Sub(e.CreatedAt)), expires, e.SizeBytes)
	}
	if l.Pagination.TotalPages > 1 {
		fmt.Fprintf(tw, "\nPage %d of %d (%d entries)\n",
			l.Pagination.CurrentPage, l.Pagination.TotalPages, l.Pagination.TotalItems)
	}
	return tw.Flush()
}

// NewCacheClearCmd creates the cache clear command.
func NewCacheClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached recommendation",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore := openCache(ctx)
			defer closeStore()

			n := store.ClearAll(ctx)
			cmd.Printf("Removed %d cached entr%s\n", n, plural(n, "y", "ies"))
			return nil
		},
	}
}

// NewCacheCleanupCmd creates the cache cleanup command.
func NewCacheCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Drop expired entries and trim the cache to its capacity",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, closeStore := openCache(ctx)
			defer closeStore()

			res := store.Cleanup(ctx)
			cmd.Printf("Expired: %d, evicted: %d, reconciled: %d\n", res.Expired, res.Evicted, res.Reconciled)
			return nil
		},
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
