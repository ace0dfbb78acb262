package engine

import (
	"cmp"
	"slices"

	"github.com/rshade/finplan/internal/client"
)

// PrioritizedDebt is an active liability in repayment order.
type PrioritizedDebt struct {
	Rank         int     `json:"rank"`
	Category     string  `json:"category"`
	Outstanding  float64 `json:"outstanding"`
	MonthlyEMI   float64 `json:"monthlyEMI"`
	InterestRate float64 `json:"interestRate"`
}

// PrioritizeDebts orders the client's active debts for repayment using the
// avalanche method: highest interest rate first, then smallest outstanding
// balance, then category name. Ranks start at 1.
func PrioritizeDebts(c client.Snapshot) []PrioritizedDebt {
	debts := c.Debts()
	out := make([]PrioritizedDebt, 0, len(debts))
	for _, category := range client.DebtCategories {
		entry, ok := debts[category]
		if !ok || !entry.Active() {
			continue
		}
		out = append(out, PrioritizedDebt{
			Category:     category,
			Outstanding:  entry.Outstanding(),
			MonthlyEMI:   entry.Installment(),
			InterestRate: entry.Rate(),
		})
	}

	slices.SortStableFunc(out, func(a, b PrioritizedDebt) int {
		return cmp.Or(
			cmp.Compare(b.InterestRate, a.InterestRate),
			cmp.Compare(a.Outstanding, b.Outstanding),
			cmp.Compare(a.Category, b.Category),
		)
	})
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
