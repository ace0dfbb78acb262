package cli_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rshade/finplan/internal/cli"
	"github.com/rshade/finplan/internal/config"
)

const healthyPlan = `{
  "client": {
    "id": "client-1",
    "totalMonthlyIncome": 100000,
    "totalMonthlyExpenses": 30000,
    "assets": {"cashBankSavings": 500000},
    "debtsAndLiabilities": {
      "homeLoan": {"hasLoan": true, "monthlyEMI": 20000, "outstandingAmount": 2000000, "interestRate": 8.5}
    }
  },
  "goals": [
    {"id": "g1", "title": "Retirement", "targetAmount": 20000000, "targetYear": 2050, "priority": "High"}
  ]
}`

const stressedPlan = `{
  "client": {
    "id": "client-2",
    "totalMonthlyIncome": 100000,
    "totalMonthlyExpenses": 50000,
    "debtsAndLiabilities": {
      "personalLoan": {"hasLoan": true, "monthlyEMI": 30000, "outstandingAmount": 600000, "interestRate": 14},
      "creditCards": {"hasDebt": true, "monthlyPayment": 15000, "totalOutstanding": 90000, "averageInterestRate": 36}
    }
  },
  "goals": []
}`

// setupCLITest isolates configuration, project detection and cache storage.
func setupCLITest(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv(config.EnvHome, home)
	t.Setenv(config.EnvProjectDir, t.TempDir())
	t.Setenv(config.EnvLogLevel, "error")
	t.Setenv(config.EnvCacheDir, filepath.Join(home, "cache"))
	t.Setenv(config.EnvRecommenderURL, "")
	t.Cleanup(config.ResetGlobalConfigForTest)
	return home
}

func writePlan(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plan.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// execute runs the root command with args and returns its combined output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	cmd := cli.NewRootCmd("test")
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// recommendationService serves a fixed payload and counts requests.
func recommendationService(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"recommendations":[{"goalId":"g1","action":"increase SIP"}]}`))
	}))
	t.Cleanup(srv.Close)
	t.Setenv(config.EnvRecommenderURL, srv.URL)
	return srv, &calls
}
