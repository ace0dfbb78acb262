// Package engine derives financial health metrics, advisory alerts and a debt
// repayment order from a client snapshot.
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/rshade/finplan/internal/client"
)

// Emergency fund sizing.
const (
	// EmergencyFundMonths is the number of months of expenses the fund should cover.
	EmergencyFundMonths = 6

	// EmergencyFundFloor is the minimum target in whole currency units.
	EmergencyFundFloor = 50000

	// percentPlaces is the precision of every percentage and of the health score.
	percentPlaces = 1
)

//nolint:gochecknoglobals // constant decimal
var hundred = decimal.NewFromInt(100)

// FinancialMetrics is the derived view of a client snapshot. It is never
// persisted; recompute it whenever the snapshot changes.
//
// Currency fields are whole units. Percentages and the health score carry
// one decimal. Every field is finite: ratios are 0 when income is 0.
type FinancialMetrics struct {
	MonthlyIncome         float64 `json:"monthlyIncome"`
	MonthlyExpenses       float64 `json:"monthlyExpenses"`
	TotalEMIs             float64 `json:"totalEMIs"`
	MonthlySurplus        float64 `json:"monthlySurplus"`
	EMIRatio              float64 `json:"emiRatio"`
	FixedExpenditureRatio float64 `json:"fixedExpenditureRatio"`
	SavingsRate           float64 `json:"savingsRate"`
	FinancialHealthScore  float64 `json:"financialHealthScore"`
	EmergencyFundTarget   float64 `json:"emergencyFundTarget"`
	EmergencyFundCurrent  float64 `json:"emergencyFundCurrent"`
}

// ComputeMetrics derives FinancialMetrics from a client snapshot.
//
// Absent or malformed numbers count as 0 and negative income, expenses and
// savings are floored at 0, so any snapshot (including the empty one)
// yields a complete result. A negative MonthlySurplus is a valid outcome.
func ComputeMetrics(c client.Snapshot) FinancialMetrics {
	income := decimal.NewFromFloat(c.TotalMonthlyIncome.NonNegative())
	expenses := decimal.NewFromFloat(c.TotalMonthlyExpenses.NonNegative())
	emis := decimal.NewFromFloat(TotalEMIs(c))
	surplus := income.Sub(expenses).Sub(emis)

	emiRatio := percentOf(emis, income)
	fixedRatio := percentOf(expenses.Add(emis), income)
	savingsRate := percentOf(surplus, income)

	fundCurrent := decimal.NewFromFloat(c.CashBankSavings().NonNegative())
	fundTarget := decimal.Max(expenses.Mul(decimal.NewFromInt(EmergencyFundMonths)), decimal.NewFromInt(EmergencyFundFloor))

	score := HealthScore(HealthInputs{
		MonthlyIncome:        income.InexactFloat64(),
		MonthlyExpenses:      expenses.InexactFloat64(),
		EMIRatio:             emiRatio.InexactFloat64(),
		SavingsRate:          savingsRate.InexactFloat64(),
		EmergencyFundCurrent: fundCurrent.InexactFloat64(),
	})

	return FinancialMetrics{
		MonthlyIncome:         units(income),
		MonthlyExpenses:       units(expenses),
		TotalEMIs:             units(emis),
		MonthlySurplus:        units(surplus),
		EMIRatio:              oneDecimal(emiRatio),
		FixedExpenditureRatio: oneDecimal(fixedRatio),
		SavingsRate:           oneDecimal(savingsRate),
		FinancialHealthScore:  score,
		EmergencyFundTarget:   units(fundTarget),
		EmergencyFundCurrent:  units(fundCurrent),
	}
}

// TotalEMIs sums the monthly installments of every known debt category
// flagged hasLoan or hasDebt, floored at 0.
func TotalEMIs(c client.Snapshot) float64 {
	debts := c.Debts()
	total := decimal.Zero
	for _, category := range client.DebtCategories {
		entry, ok := debts[category]
		if !ok || !entry.Active() {
			continue
		}
		total = total.Add(decimal.NewFromFloat(entry.Installment()))
	}
	return decimal.Max(total, decimal.Zero).InexactFloat64()
}

// percentOf returns part/whole*100, or 0 when whole is not positive.
func percentOf(part, whole decimal.Decimal) decimal.Decimal {
	if !whole.IsPositive() {
		return decimal.Zero
	}
	return part.Mul(hundred).Div(whole)
}

func units(d decimal.Decimal) float64 {
	return d.Round(0).InexactFloat64()
}

func oneDecimal(d decimal.Decimal) float64 {
	return d.Round(percentPlaces).InexactFloat64()
}
