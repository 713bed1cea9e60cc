package flow

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"premiumdesk/src/model"
)

const AlertTypeUnusualPremium = "UNUSUAL_PREMIUM"

type alertPayload struct {
	FlowDate       string              `json:"flow_date"`
	CallVolume     int64               `json:"call_volume"`
	PutVolume      int64               `json:"put_volume"`
	CallPremium    decimal.Decimal     `json:"call_premium"`
	PutPremium     decimal.Decimal     `json:"put_premium"`
	NetPremiumFlow decimal.Decimal     `json:"net_premium_flow"`
	PutCallRatio   decimal.NullDecimal `json:"put_call_ratio"`
}

// Severity grades total premium against the threshold: 4x is CRITICAL, 2x HIGH, otherwise MEDIUM.
// Below the threshold it returns false.
func Severity(total, threshold decimal.Decimal) (model.AlertSeverity, bool) {
	if !threshold.IsPositive() || total.LessThan(threshold) {
		return "", false
	}
	switch {
	case total.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(4))):
		return model.AlertSeverityCritical, true
	case total.GreaterThanOrEqual(threshold.Mul(decimal.NewFromInt(2))):
		return model.AlertSeverityHigh, true
	default:
		return model.AlertSeverityMedium, true
	}
}

// BuildAlert returns a nil alert when the row's total premium is under threshold.
func BuildAlert(f model.OptionsFlow, threshold decimal.Decimal, at time.Time) (*model.OptionsFlowAlert, error) {
	total := f.CallPremium.Add(f.PutPremium)
	severity, ok := Severity(total, threshold)
	if !ok {
		return nil, nil
	}

	net := f.CallPremium.Sub(f.PutPremium)
	direction := "call-heavy"
	if net.IsNegative() {
		direction = "put-heavy"
	}

	payload, err := json.Marshal(alertPayload{
		FlowDate:       f.FlowDate.Format("2006-01-02"),
		CallVolume:     f.CallVolume,
		PutVolume:      f.PutVolume,
		CallPremium:    f.CallPremium,
		PutPremium:     f.PutPremium,
		NetPremiumFlow: net,
		PutCallRatio:   f.ComputePutCallRatio(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s alert payload: %w", f.Symbol, err)
	}

	return &model.OptionsFlowAlert{
		Symbol:    f.Symbol,
		AlertType: AlertTypeUnusualPremium,
		Severity:  severity,
		Message: fmt.Sprintf("%s unusual options premium %s on %s (%s)",
			f.Symbol, total.StringFixed(0), f.FlowDate.Format("2006-01-02"), direction),
		TriggerValue:   total,
		ThresholdValue: threshold,
		Payload:        string(payload),
		CreatedAt:      at,
	}, nil
}
