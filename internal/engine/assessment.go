package engine

import (
	"context"

	"github.com/rshade/finplan/internal/logging"
)

// Advisory thresholds used by Assess.
const (
	// EMIRatioSafeThreshold is the highest EMI ratio (percent) considered safe.
	EMIRatioSafeThreshold = 40.0

	// FixedExpenditureSafeThreshold is the highest fixed expenditure ratio
	// (percent) considered safe.
	FixedExpenditureSafeThreshold = 70.0
)

// AlertCode identifies an advisory finding.
type AlertCode string

// Alert codes.
const (
	AlertEMIRatioBreach         AlertCode = "EMI_RATIO_BREACH"
	AlertFixedExpenditureBreach AlertCode = "FIXED_EXPENDITURE_BREACH"
	AlertNegativeSurplus        AlertCode = "NEGATIVE_SURPLUS"
	AlertEmergencyFundShortfall AlertCode = "EMERGENCY_FUND_SHORTFALL"
)

// Alert is one advisory finding about a metrics snapshot.
type Alert struct {
	Code      AlertCode `json:"code"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Message   string    `json:"message"`
}

// Assess returns the advisory alerts raised by m, most severe first.
func Assess(ctx context.Context, m FinancialMetrics) []Alert {
	var alerts []Alert

	if m.MonthlySurplus < 0 {
		alerts = append(alerts, Alert{
			Code:      AlertNegativeSurplus,
			Value:     m.MonthlySurplus,
			Threshold: 0,
			Message:   "monthly outflows exceed income",
		})
	}
	if m.EMIRatio > EMIRatioSafeThreshold {
		alerts = append(alerts, Alert{
			Code:      AlertEMIRatioBreach,
			Value:     m.EMIRatio,
			Threshold: EMIRatioSafeThreshold,
			Message:   "EMI ratio exceeds the safe threshold",
		})
	}
	if m.FixedExpenditureRatio > FixedExpenditureSafeThreshold {
		alerts = append(alerts, Alert{
			Code:      AlertFixedExpenditureBreach,
			Value:     m.FixedExpenditureRatio,
			Threshold: FixedExpenditureSafeThreshold,
			Message:   "fixed expenditure ratio exceeds the safe threshold",
		})
	}
	if m.EmergencyFundCurrent < m.EmergencyFundTarget {
		alerts = append(alerts, Alert{
			Code:      AlertEmergencyFundShortfall,
			Value:     m.EmergencyFundCurrent,
			Threshold: m.EmergencyFundTarget,
			Message:   "emergency fund below target",
		})
	}

	logging.FromContext(ctx).Debug().
		Str("component", "engine").
		Str("operation", "Assess").
		Int("alerts", len(alerts)).
		Float64("health_score", m.FinancialHealthScore).
		Msg("assessed financial metrics")

	return alerts
}
