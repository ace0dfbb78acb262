package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/config"
	"github.com/rshade/finplan/internal/kvstore"
)

// NewConfigValidateCmd creates the config validate command for validating configuration.
func NewConfigValidateCmd() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		Long: `Validates the effective configuration (global file, project overlay and
FINPLAN_* environment variables) and checks that the cache storage opens.`,
		Example: `  # Validate current configuration
  finplan config validate

  # Validate and show detailed information
  finplan config validate --verbose`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigValidate(cmd, verbose)
		},
	}

	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "show detailed validation information")

	return cmd
}

// runConfigValidate executes the configuration validation logic.
func runConfigValidate(cmd *cobra.Command, verbose bool) error {
	cfg := config.GetGlobalConfig()

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if cfg.Cache.Enabled {
		kv, err := kvstore.Open(cfg.Cache.KVOptions())
		if err != nil {
			cmd.PrintErrf("Warning: cache storage cannot be opened, recommendations will not be cached: %v\n", err)
		} else {
			_ = kv.Close()
		}
	}

	cmd.Printf("Configuration is valid\n")

	if verbose {
		printVerboseDetails(cmd, cfg)
	}
	return nil
}

// printVerboseDetails prints detailed configuration information.
func printVerboseDetails(cmd *cobra.Command, cfg *config.Config) {
	cmd.Println()
	cmd.Println("Configuration details:")
	cmd.Printf("  Config file: %s\n", cfg.Path())
	cmd.Printf("  Logging level: %s\n", cfg.Logging.Level)
	if cfg.Logging.File != "" {
		cmd.Printf("  Log file: %s\n", cfg.Logging.File)
	}

	if !cfg.Cache.Enabled {
		cmd.Println("  Cache: disabled")
	} else {
		cmd.Printf("  Cache: %s backend, max %d entries, TTL %dh\n",
			cfg.Cache.Backend, cfg.Cache.MaxEntries, cfg.Cache.TTLHours)
		if cfg.Cache.Directory != "" {
			cmd.Printf("  Cache directory: %s\n", cfg.Cache.Directory)
		}
	}

	if cfg.Recommender.BaseURL == "" {
		cmd.Println("  Recommendation service: not configured")
	} else {
		cmd.Printf("  Recommendation service: %s (timeout %s)\n", cfg.Recommender.BaseURL, cfg.Recommender.Timeout)
	}
}
