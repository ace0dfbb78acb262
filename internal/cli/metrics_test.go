package cli_test

import (
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/cli"
)

type metricsOutput struct {
	ClientID string `json:"clientId"`
	Metrics  struct {
		MonthlyIncome        float64 `json:"monthlyIncome"`
		TotalEMIs            float64 `json:"totalEMIs"`
		MonthlySurplus       float64 `json:"monthlySurplus"`
		EMIRatio             float64 `json:"emiRatio"`
		SavingsRate          float64 `json:"savingsRate"`
		EmergencyFundTarget  float64 `json:"emergencyFundTarget"`
		FinancialHealthScore float64 `json:"financialHealthScore"`
	} `json:"metrics"`
	Alerts []struct {
		Code string `json:"code"`
	} `json:"alerts"`
	Debts []struct {
		Rank     int    `json:"rank"`
		Category string `json:"category"`
	} `json:"debts"`
}

func TestMetricsCmd_JSON(t *testing.T) {
	setupCLITest(t)
	plan := writePlan(t, healthyPlan)

	out, err := execute(t, "metrics", "--plan", plan, "-o", "json")
	require.NoError(t, err)

	var got metricsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "client-1", got.ClientID)
	assert.InDelta(t, 100000, got.Metrics.MonthlyIncome, 0.001)
	assert.InDelta(t, 20000, got.Metrics.TotalEMIs, 0.001)
	assert.InDelta(t, 50000, got.Metrics.MonthlySurplus, 0.001)
	assert.InDelta(t, 20.0, got.Metrics.EMIRatio, 0.001)
	assert.InDelta(t, 50.0, got.Metrics.SavingsRate, 0.001)
	assert.InDelta(t, 180000, got.Metrics.EmergencyFundTarget, 0.001)
	assert.Empty(t, got.Alerts)
	require.Len(t, got.Debts, 1)
	assert.Equal(t, "homeLoan", got.Debts[0].Category)
}

func TestMetricsCmd_Table(t *testing.T) {
	setupCLITest(t)
	plan := writePlan(t, stressedPlan)

	out, err := execute(t, "metrics", "--plan", plan, "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "Monthly income")
	assert.Contains(t, out, "Financial health score")
	assert.Contains(t, out, "EMI_RATIO_BREACH")
	assert.Contains(t, out, "creditCards")
}

func TestMetricsCmd_FailOnAlert(t *testing.T) {
	setupCLITest(t)

	_, err := execute(t, "metrics", "--plan", writePlan(t, stressedPlan), "-o", "json", "--fail-on-alert")
	var exitErr *cli.AlertExitError
	require.True(t, errors.As(err, &exitErr))
	assert.Equal(t, cli.ExitCodeAlert, exitErr.ExitCode)
	assert.Contains(t, exitErr.Error(), "alert")

	_, err = execute(t, "metrics", "--plan", writePlan(t, healthyPlan), "-o", "json", "--fail-on-alert")
	assert.NoError(t, err)
}

func TestMetricsCmd_DebtOrder(t *testing.T) {
	setupCLITest(t)

	out, err := execute(t, "metrics", "--plan", writePlan(t, stressedPlan), "-o", "json")
	require.NoError(t, err)

	var got metricsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got.Debts, 2)
	assert.Equal(t, "creditCards", got.Debts[0].Category)
	assert.Equal(t, 1, got.Debts[0].Rank)
	assert.Equal(t, "personalLoan", got.Debts[1].Category)
}

func TestMetricsCmd_Errors(t *testing.T) {
	setupCLITest(t)

	_, err := execute(t, "metrics")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "plan")

	_, err = execute(t, "metrics", "--plan", "/nonexistent/plan.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading plan")

	_, err = execute(t, "metrics", "--plan", writePlan(t, `[1,2]`))
	assert.Error(t, err)

	_, err = execute(t, "metrics", "--plan", writePlan(t, healthyPlan), "-o", "yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported output format")
}

func TestFingerprintCmd(t *testing.T) {
	setupCLITest(t)
	plan := writePlan(t, healthyPlan)

	out, err := execute(t, "fingerprint", "--plan", plan)
	require.NoError(t, err)
	fp := out
	assert.NotEmpty(t, fp)

	// Whitespace and key order in the document do not matter.
	reordered := writePlan(t, `{"goals":[{"priority":"High","targetYear":2050,"targetAmount":20000000,"title":"Retirement","id":"g1"}],
	  "client":{"debtsAndLiabilities":{"homeLoan":{"interestRate":8.5,"outstandingAmount":2000000,"monthlyEMI":20000,"hasLoan":true}},
	  "assets":{"cashBankSavings":500000},"totalMonthlyExpenses":30000,"totalMonthlyIncome":100000,"id":"client-1"}}`)
	out, err = execute(t, "fingerprint", "--plan", reordered)
	require.NoError(t, err)
	assert.Equal(t, fp, out)

	out, err = execute(t, "fingerprint", "--plan", plan, "--canonical")
	require.NoError(t, err)
	assert.Contains(t, out, `"goals":[`)
}
