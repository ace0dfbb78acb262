// Package client defines the advisor-side input model: a client's financial
// snapshot and their planning goals.
//
// Every field is optional. Numeric fields use the lenient Number type and
// nested assets/debts are kept raw so that fingerprinting sees the complete
// structure while metrics read typed views of it.
package client

import (
	"fmt"
	"os"
	"strings"

	"github.com/goccy/go-json"
)

// Priority is a goal's planning priority.
type Priority string

// Goal priorities.
const (
	PriorityLow      Priority = "Low"
	PriorityMedium   Priority = "Medium"
	PriorityHigh     Priority = "High"
	PriorityCritical Priority = "Critical"
)

// NormalizePriority maps free-form input onto a known priority. Unknown and
// empty values become Medium.
func NormalizePriority(s string) Priority {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return PriorityLow
	case "high":
		return PriorityHigh
	case "critical":
		return PriorityCritical
	default:
		return PriorityMedium
	}
}

// RiskTolerance is the client's declared investment risk appetite.
type RiskTolerance string

// Risk tolerances.
const (
	RiskConservative   RiskTolerance = "Conservative"
	RiskModerate       RiskTolerance = "Moderate"
	RiskAggressive     RiskTolerance = "Aggressive"
	RiskVeryAggressive RiskTolerance = "VeryAggressive"
)

// NormalizeRiskTolerance maps free-form input onto a known tolerance.
// Unknown and empty values become Moderate.
func NormalizeRiskTolerance(s string) RiskTolerance {
	key := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "conservative":
		return RiskConservative
	case "aggressive":
		return RiskAggressive
	case "veryaggressive":
		return RiskVeryAggressive
	default:
		return RiskModerate
	}
}

// Goal is one planning goal as entered by the advisor.
type Goal struct {
	ID           Text   `json:"id"`
	Title        string `json:"title"`
	TargetAmount Number `json:"targetAmount"`
	TargetYear   Number `json:"targetYear"`
	Priority     string `json:"priority"`
	MonthlySIP   Number `json:"monthlySIP"`
	TimeInYears  Number `json:"timeInYears"`
}

// UnmarshalJSON decodes a goal, degrading a wrongly typed title or priority
// to empty instead of failing the whole document.
func (g *Goal) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           Text            `json:"id"`
		Title        json.RawMessage `json:"title"`
		TargetAmount Number          `json:"targetAmount"`
		TargetYear   Number          `json:"targetYear"`
		Priority     json.RawMessage `json:"priority"`
		MonthlySIP   Number          `json:"monthlySIP"`
		TimeInYears  Number          `json:"timeInYears"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*g = Goal{}
		return nil //nolint:nilerr // malformed goals degrade to an empty goal
	}
	*g = Goal{
		ID:           raw.ID,
		Title:        string(textOf(raw.Title)),
		TargetAmount: raw.TargetAmount,
		TargetYear:   raw.TargetYear,
		Priority:     string(textOf(raw.Priority)),
		MonthlySIP:   raw.MonthlySIP,
		TimeInYears:  raw.TimeInYears,
	}
	return nil
}

// Snapshot is the client record the planning screens work on.
type Snapshot struct {
	ID                   Text            `json:"id"`
	Name                 string          `json:"name,omitempty"`
	TotalMonthlyIncome   Number          `json:"totalMonthlyIncome"`
	TotalMonthlyExpenses Number          `json:"totalMonthlyExpenses"`
	RiskTolerance        string          `json:"riskTolerance"`
	Age                  Number          `json:"age"`
	Assets               json.RawMessage `json:"assets,omitempty"`
	DebtsAndLiabilities  json.RawMessage `json:"debtsAndLiabilities,omitempty"`
}

// UnmarshalJSON decodes a snapshot leniently; see Goal.UnmarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID                   Text            `json:"id"`
		Name                 json.RawMessage `json:"name"`
		TotalMonthlyIncome   Number          `json:"totalMonthlyIncome"`
		TotalMonthlyExpenses Number          `json:"totalMonthlyExpenses"`
		RiskTolerance        json.RawMessage `json:"riskTolerance"`
		Age                  Number          `json:"age"`
		Assets               json.RawMessage `json:"assets"`
		DebtsAndLiabilities  json.RawMessage `json:"debtsAndLiabilities"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		*s = Snapshot{}
		return nil //nolint:nilerr // malformed snapshots degrade to an empty snapshot
	}
	*s = Snapshot{
		ID:                   raw.ID,
		Name:                 string(textOf(raw.Name)),
		TotalMonthlyIncome:   raw.TotalMonthlyIncome,
		TotalMonthlyExpenses: raw.TotalMonthlyExpenses,
		RiskTolerance:        string(textOf(raw.RiskTolerance)),
		Age:                  raw.Age,
		Assets:               raw.Assets,
		DebtsAndLiabilities:  raw.DebtsAndLiabilities,
	}
	return nil
}

// Plan bundles a client with their goals; it is the CLI input document.
type Plan struct {
	Client Snapshot `json:"client"`
	Goals  []Goal   `json:"goals"`
}

// LoadPlan reads a Plan from a JSON file. Only unreadable files and
// documents that are not JSON objects are errors; field-level problems
// degrade to defaults.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading plan %s: %w", path, err)
	}

	var probe map[string]json.RawMessage
	if err = json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("parsing plan %s: %w", path, err)
	}

	var plan Plan
	_ = json.Unmarshal(probe["client"], &plan.Client)

	var goals []json.RawMessage
	if err = json.Unmarshal(probe["goals"], &goals); err == nil {
		plan.Goals = make([]Goal, len(goals))
		for i, g := range goals {
			_ = json.Unmarshal(g, &plan.Goals[i])
		}
	}
	return &plan, nil
}

func textOf(raw json.RawMessage) Text {
	var t Text
	_ = t.UnmarshalJSON(raw)
	return t
}
