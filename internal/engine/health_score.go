package engine

import (
	"math"

	"github.com/shopspring/decimal"
)

// Health score bands. Each component awards the points of the best band
// whose threshold is met; there is no partial credit inside a band.
const (
	// MaxHealthScore is the upper bound of FinancialHealthScore.
	MaxHealthScore = 10.0

	incomeStabilityPoints = 2.0

	// Expense management: expenses/income below these ratios.
	expenseRatioExcellent = 0.5
	expenseRatioFair      = 0.7

	// Debt management: EMI ratio (percent) bands.
	emiRatioFair = 30.0
	emiRatioPoor = 40.0

	// Savings: savings rate (percent) above these thresholds.
	savingsRateExcellent = 20.0
	savingsRateFair      = 10.0

	// Emergency fund: months of expenses held in cash.
	emergencyFundMinMonths = 3.0
)

// HealthInputs are the unrounded figures the score is computed from.
type HealthInputs struct {
	MonthlyIncome        float64
	MonthlyExpenses      float64
	EMIRatio             float64
	SavingsRate          float64
	EmergencyFundCurrent float64
}

// HealthScore returns the 0-10 financial health score, rounded to one
// decimal:
//
//   - income stability: 2 if there is income
//   - expense management: 2 if expenses/income < 0.5, 1 if < 0.7
//   - debt management: 3 if the EMI ratio is 0, 2 if < 30%, 1 if < 40%
//   - savings: 2 if the savings rate is > 20%, 1 if > 10%
//   - emergency fund: 1 if cash covers at least 3 months of expenses
//
// Without income none of the ratios mean anything and the score is 0.
func HealthScore(in HealthInputs) float64 {
	if !(in.MonthlyIncome > 0) {
		return 0
	}

	score := incomeStabilityPoints
	score += expensePoints(in.MonthlyExpenses / in.MonthlyIncome)
	score += debtPoints(in.EMIRatio)
	score += savingsPoints(in.SavingsRate)
	if in.EmergencyFundCurrent >= in.MonthlyExpenses*emergencyFundMinMonths {
		score++
	}

	score = math.Max(0, math.Min(MaxHealthScore, score))
	return decimal.NewFromFloat(score).Round(percentPlaces).InexactFloat64()
}

func expensePoints(ratio float64) float64 {
	switch {
	case ratio < expenseRatioExcellent:
		return 2
	case ratio < expenseRatioFair:
		return 1
	default:
		return 0
	}
}

func debtPoints(emiRatio float64) float64 {
	switch {
	case emiRatio == 0:
		return 3
	case emiRatio < emiRatioFair:
		return 2
	case emiRatio < emiRatioPoor:
		return 1
	default:
		return 0
	}
}

func savingsPoints(rate float64) float64 {
	switch {
	case rate > savingsRateExcellent:
		return 2
	case rate > savingsRateFair:
		return 1
	default:
		return 0
	}
}
