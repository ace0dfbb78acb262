package fingerprint

import (
	"bytes"
	"cmp"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/goccy/go-json"

	"github.com/rshade/finplan/internal/client"
)

// Defaults applied when a field is missing from the input.
const (
	DefaultAge             = 30
	DefaultTargetYearAhead = 5
)

// emptyObject stands in for absent assets/debts so that "missing" and "{}"
// produce the same digest.
var emptyObject = json.RawMessage(`{}`) //nolint:gochecknoglobals // immutable literal

// GoalSummary is the hashed view of a goal. Numeric fields are whole
// currency units (or years) so floating point noise cannot move the hash.
type GoalSummary struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	TargetAmount int64           `json:"targetAmount"`
	TargetYear   int64           `json:"targetYear"`
	Priority     client.Priority `json:"priority"`
	MonthlySIP   int64           `json:"monthlySIP"`
	TimeInYears  int64           `json:"timeInYears"`
}

// ClientInput is the hashed view of a client. Assets and debts enter only
// through their digests.
type ClientInput struct {
	ClientID             string               `json:"clientId"`
	TotalMonthlyIncome   int64                `json:"totalMonthlyIncome"`
	TotalMonthlyExpenses int64                `json:"totalMonthlyExpenses"`
	RiskTolerance        client.RiskTolerance `json:"riskTolerance"`
	Age                  int64                `json:"age"`
	AssetsDigest         string               `json:"assetsDigest"`
	DebtsDigest          string               `json:"debtsDigest"`
}

// Canonicalize is CanonicalizeAt with the current time.
func Canonicalize(goals []client.Goal, c client.Snapshot) ([]GoalSummary, ClientInput) {
	return CanonicalizeAt(goals, c, time.Now())
}

// CanonicalizeAt reduces goals and client to their stable summaries. now
// only supplies the default target year (now.Year()+5). The goal list is
// sorted by id, then by the remaining fields, so the caller's ordering never
// matters. It never fails: unusable input becomes defaults.
func CanonicalizeAt(goals []client.Goal, c client.Snapshot, now time.Time) ([]GoalSummary, ClientInput) {
	summaries := make([]GoalSummary, 0, len(goals))
	for _, g := range goals {
		summaries = append(summaries, summarizeGoal(g, now))
	}
	slices.SortFunc(summaries, compareGoals)

	input := ClientInput{
		ClientID:             string(c.ID),
		TotalMonthlyIncome:   c.TotalMonthlyIncome.Rounded(),
		TotalMonthlyExpenses: c.TotalMonthlyExpenses.Rounded(),
		RiskTolerance:        client.NormalizeRiskTolerance(c.RiskTolerance),
		Age:                  roundOr(c.Age, DefaultAge),
		AssetsDigest:         digest(c.Assets),
		DebtsDigest:          digest(c.DebtsAndLiabilities),
	}
	return summaries, input
}

// Fingerprint returns the cache key for goals and client.
func Fingerprint(goals []client.Goal, c client.Snapshot) string {
	return FingerprintAt(goals, c, time.Now())
}

// FingerprintAt is Fingerprint with an explicit clock.
func FingerprintAt(goals []client.Goal, c client.Snapshot, now time.Time) string {
	doc := documentAt(goals, c, now)
	h, err := Hash(doc)
	if err != nil {
		// Unreachable for structs of strings and integers.
		return HashBytes([]byte(fmt.Sprintf("%+v", doc)))
	}
	return h
}

// Document returns the canonical JSON document that Fingerprint hashes.
func Document(goals []client.Goal, c client.Snapshot) ([]byte, error) {
	return Canonical(documentAt(goals, c, time.Now()))
}

type document struct {
	Goals  []GoalSummary `json:"goals"`
	Client ClientInput   `json:"client"`
}

func documentAt(goals []client.Goal, c client.Snapshot, now time.Time) document {
	summaries, input := CanonicalizeAt(goals, c, now)
	return document{Goals: summaries, Client: input}
}

func summarizeGoal(g client.Goal, now time.Time) GoalSummary {
	return GoalSummary{
		ID:           string(g.ID),
		Title:        g.Title,
		TargetAmount: g.TargetAmount.Rounded(),
		TargetYear:   roundOr(g.TargetYear, float64(now.Year()+DefaultTargetYearAhead)),
		Priority:     client.NormalizePriority(g.Priority),
		MonthlySIP:   g.MonthlySIP.Rounded(),
		TimeInYears:  g.TimeInYears.Rounded(),
	}
}

func compareGoals(a, b GoalSummary) int {
	return cmp.Or(
		cmp.Compare(a.ID, b.ID),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.TargetAmount, b.TargetAmount),
		cmp.Compare(a.TargetYear, b.TargetYear),
		cmp.Compare(a.Priority, b.Priority),
		cmp.Compare(a.MonthlySIP, b.MonthlySIP),
		cmp.Compare(a.TimeInYears, b.TimeInYears),
	)
}

func roundOr(n client.Number, def float64) int64 {
	return int64(math.Round(n.Or(def)))
}

// digest hashes a nested JSON structure. Absent, null and undecodable
// structures all digest as {}.
func digest(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		trimmed = emptyObject
	}
	h, err := Hash(json.RawMessage(trimmed))
	if err != nil {
		h, _ = Hash(emptyObject)
	}
	return h
}
