package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rshade/finplan/internal/engine"
)

// metricsReport is the output of the metrics command.
type metricsReport struct {
	ClientID string                   `json:"clientId,omitempty"`
	Metrics  engine.FinancialMetrics  `json:"metrics"`
	Alerts   []engine.Alert           `json:"alerts"`
	Debts    []engine.PrioritizedDebt `json:"debts"`
}

// NewMetricsCmd creates the metrics command, which derives financial health
// metrics, alerts and a debt repayment order from a plan.
func NewMetricsCmd() *cobra.Command {
	var (
		planPath    string
		output      string
		failOnAlert bool
	)

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute financial health metrics for a plan",
		Long: `Computes income, expense and EMI ratios, the savings rate, the financial
health score and the emergency fund target for the client in a plan, then
lists advisory alerts and active debts in repayment order.`,
		Example: `  # Show metrics as a table
  finplan metrics --plan plan.json -o table

  # Exit with code 2 when any alert is raised
  finplan metrics --plan plan.json --fail-on-alert`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMetrics(cmd, planPath, output, failOnAlert)
		},
	}

	cmd.Flags().StringVar(&planPath, "plan", "", "path to the plan JSON document (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output format: table or json (default: table on a terminal)")
	cmd.Flags().BoolVar(&failOnAlert, "fail-on-alert", false, "exit with code 2 when any alert is raised")
	_ = cmd.MarkFlagRequired("plan")

	return cmd
}

func runMetrics(cmd *cobra.Command, planPath, output string, failOnAlert bool) error {
	ctx := cmd.Context()

	format, err := resolveOutput(output, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	plan, err := loadPlan(ctx, planPath)
	if err != nil {
		return err
	}

	m := engine.ComputeMetrics(plan.Client)
	report := metricsReport{
		ClientID: string(plan.Client.ID),
		Metrics:  m,
		Alerts:   engine.Assess(ctx, m),
		Debts:    engine.PrioritizeDebts(plan.Client),
	}
	if report.Alerts == nil {
		report.Alerts = []engine.Alert{}
	}

	if format == outputJSON {
		err = writeJSON(cmd.OutOrStdout(), report)
	} else {
		err = renderMetricsTable(cmd.OutOrStdout(), report)
	}
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	if failOnAlert && len(report.Alerts) > 0 {
		return &AlertExitError{
			ExitCode: ExitCodeAlert,
			Reason:   fmt.Sprintf("%d financial alert(s) raised", len(report.Alerts)),
		}
	}
	return nil
}

func renderMetricsTable(w io.Writer, r metricsReport) error {
	tw := tabwriter.NewWriter(w, 0, 0, tabPadding, ' ', 0)
	m := r.Metrics

	fmt.Fprintln(tw, "METRIC\tVALUE")
	fmt.Fprintf(tw, "Monthly income\t%s\n", formatAmount(m.MonthlyIncome))
	fmt.Fprintf(tw, "Monthly expenses\t%s\n", formatAmount(m.MonthlyExpenses))
	fmt.Fprintf(tw, "Total EMIs\t%s\n", formatAmount(m.TotalEMIs))
	fmt.Fprintf(tw, "Monthly surplus\t%s\n", formatAmount(m.MonthlySurplus))
	fmt.Fprintf(tw, "EMI ratio\t%s\n", formatPercent(m.EMIRatio))
	fmt.Fprintf(tw, "Fixed expenditure ratio\t%s\n", formatPercent(m.FixedExpenditureRatio))
	fmt.Fprintf(tw, "Savings rate\t%s\n", formatPercent(m.SavingsRate))
	fmt.Fprintf(tw, "Financial health score\t%.1f\n", m.FinancialHealthScore)
	fmt.Fprintf(tw, "Emergency fund\t%s / %s\n",
		formatAmount(m.EmergencyFundCurrent), formatAmount(m.EmergencyFundTarget))

	if len(r.Alerts) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "ALERT\tVALUE\tTHRESHOLD\tMESSAGE")
		for _, a := range r.Alerts {
			fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%s\n", a.Code, a.Value, a.Threshold, a.Message)
		}
	}

	if len(r.Debts) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "RANK\tDEBT\tRATE\tOUTSTANDING\tEMI")
		for _, d := range r.Debts {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n",
				d.Rank, d.Category, formatPercent(d.InterestRate),
				formatAmount(d.Outstanding), formatAmount(d.MonthlyEMI))
		}
	}

	return tw.Flush()
}
