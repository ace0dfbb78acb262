package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/fingerprint"
)

// NewFingerprintCmd creates the fingerprint command, which prints the cache
// key of a plan.
func NewFingerprintCmd() *cobra.Command {
	var (
		planPath  string
		canonical bool
	)

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the cache fingerprint of a plan",
		Long: `Prints the content fingerprint used as the recommendation cache key. Goal
order, key order and sub-unit amount noise do not change it.`,
		Example: `  finplan fingerprint --plan plan.json

  # Also show the canonical document that is hashed
  finplan fingerprint --plan plan.json --canonical`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			plan, err := loadPlan(cmd.Context(), planPath)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, fingerprint.Fingerprint(plan.Goals, plan.Client))
			if !canonical {
				return nil
			}
			doc, err := fingerprint.Document(plan.Goals, plan.Client)
			if err != nil {
				return fmt.Errorf("building canonical document: %w", err)
			}
			fmt.Fprintln(out, string(doc))
			return nil
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to the plan JSON document (required)")
	cmd.Flags().BoolVar(&canonical, "canonical", false, "also print the canonical JSON document")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}
