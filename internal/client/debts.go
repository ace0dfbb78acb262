package client

import (
	"bytes"

	"github.com/goccy/go-json"
)

// DebtCategories lists the debt kinds counted towards EMIs, in display order.
//
//nolint:gochecknoglobals // fixed lookup table
var DebtCategories = []string{
	"homeLoan",
	"personalLoan",
	"carLoan",
	"educationLoan",
	"creditCards",
	"businessLoan",
	"goldLoan",
	"otherLoans",
}

// DebtEntry is one category under debtsAndLiabilities. Loans use
// hasLoan/monthlyEMI; card and informal debts use hasDebt/monthlyPayment.
type DebtEntry struct {
	HasLoan           Flag   `json:"hasLoan"`
	HasDebt           Flag   `json:"hasDebt"`
	MonthlyEMI        Number `json:"monthlyEMI"`
	MonthlyPayment    Number `json:"monthlyPayment"`
	OutstandingAmount Number `json:"outstandingAmount"`
	TotalOutstanding  Number `json:"totalOutstanding"`
	InterestRate      Number `json:"interestRate"`
	AverageInterest   Number `json:"averageInterestRate"`
}

// Active reports whether the entry is flagged as an existing liability.
func (d DebtEntry) Active() bool {
	return bool(d.HasLoan) || bool(d.HasDebt)
}

// Installment is monthlyEMI, falling back to monthlyPayment, else 0.
func (d DebtEntry) Installment() float64 {
	if d.MonthlyEMI.Valid() && d.MonthlyEMI.Float() != 0 {
		return d.MonthlyEMI.Float()
	}
	return d.MonthlyPayment.Float()
}

// Outstanding is outstandingAmount, falling back to totalOutstanding.
func (d DebtEntry) Outstanding() float64 {
	if d.OutstandingAmount.Valid() {
		return d.OutstandingAmount.NonNegative()
	}
	return d.TotalOutstanding.NonNegative()
}

// Rate is the annual interest rate in percent.
func (d DebtEntry) Rate() float64 {
	if d.InterestRate.Valid() {
		return d.InterestRate.NonNegative()
	}
	return d.AverageInterest.NonNegative()
}

// Debts returns the typed view of debtsAndLiabilities keyed by category.
// Categories that are missing or malformed are absent from the map.
func (s Snapshot) Debts() map[string]DebtEntry {
	sections := rawObject(s.DebtsAndLiabilities)
	out := make(map[string]DebtEntry, len(sections))
	for name, raw := range sections {
		if !isObject(raw) {
			continue
		}
		var entry DebtEntry
		if err := json.Unmarshal(raw, &entry); err != nil {
			continue
		}
		out[name] = entry
	}
	return out
}

// CashBankSavings returns assets.cashBankSavings (0 when absent).
func (s Snapshot) CashBankSavings() Number {
	var n Number
	if raw, ok := rawObject(s.Assets)["cashBankSavings"]; ok {
		_ = n.UnmarshalJSON(raw)
	}
	return n
}

func rawObject(raw json.RawMessage) map[string]json.RawMessage {
	if !isObject(raw) {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
