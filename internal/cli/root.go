package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/config"
	"github.com/rshade/finplan/internal/logging"
	"github.com/rshade/finplan/internal/telemetry"
)

// logger is the package-level logger for CLI operations.
var logger zerolog.Logger //nolint:gochecknoglobals // Required for zerolog context integration

// NewRootCmd creates the root Cobra command for the finplan CLI. It resolves
// configuration (global file, project overlay, environment), sets up
// logging and tracing, and registers the subcommands.
func NewRootCmd(ver string) *cobra.Command {
	var (
		logResult   *logging.LogPathResult
		projectDir  string
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:           "finplan",
		Short:         "Financial planning metrics and cached recommendations",
		Long:          "finplan: derive financial health metrics from a client plan and fetch goal recommendations, cached by input fingerprint",
		Version:       ver,
		Example:       rootCmdExample,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cwd, _ := os.Getwd()
			resolved := config.ResolveProjectDir(cmd.Context(), projectDir, cwd)
			config.SetGlobalConfig(config.NewWithProjectDir(cmd.Context(), resolved))

			result := setupLogging(cmd)
			logResult = &result

			cmd.SetContext(withSession(cmd.Context(), &session{
				projectDir:  resolved,
				metrics:     telemetry.New(metricsFile != ""),
				metricsFile: metricsFile,
			}))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			flushErr := flushMetrics(cmd.Context())
			if err := cleanupLogging(cmd, logResult); err != nil {
				return err
			}
			return flushErr
		},
	}

	cmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&projectDir, "project-dir", "",
		"project directory holding .finplan/ (default: nearest ancestor with .finplan/)")
	cmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "",
		"write Prometheus metrics for this run to the given textfile")
	cmd.AddCommand(
		NewMetricsCmd(), NewFingerprintCmd(), NewRecommendCmd(),
		newCacheCmd(), newConfigCmd(),
	)

	return cmd
}

const rootCmdExample = `  # Show financial health metrics and alerts for a plan
  finplan metrics --plan plan.json

  # Fail (exit code 2) when the plan raises any alert
  finplan metrics --plan plan.json --fail-on-alert

  # Print the cache key for a plan
  finplan fingerprint --plan plan.json

  # Get goal recommendations, served from cache when unchanged
  finplan recommend --plan plan.json

  # Bypass the cache
  finplan recommend --plan plan.json --force

  # Inspect and maintain the cache
  finplan cache stats
  finplan cache list --sort createdAt:desc --limit 10
  finplan cache cleanup

  # Initialize configuration
  finplan config init`

// newCacheCmd creates the cache command group.
func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "cache", Short: "Recommendation cache maintenance commands"}
	cmd.AddCommand(
		NewCacheStatsCmd(), NewCacheListCmd(), NewCacheClearCmd(), NewCacheCleanupCmd(),
	)
	return cmd
}

// newConfigCmd creates the config command group with configuration subcommands.
func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{Use: "config", Short: "Configuration management commands"}
	cmd.AddCommand(NewConfigInitCmd(), NewConfigValidateCmd())
	return cmd
}
