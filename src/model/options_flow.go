package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type FlowSentiment string

const (
	FlowSentimentBullish FlowSentiment = "BULLISH"
	FlowSentimentBearish FlowSentiment = "BEARISH"
	FlowSentimentNeutral FlowSentiment = "NEUTRAL"
)

// OptionsFlow is one day of aggregated institutional flow for a symbol.
// Rows are written by the upstream ingestion process.
type OptionsFlow struct {
	ID              uint                `gorm:"primaryKey" json:"id"`
	Symbol          string              `gorm:"size:20;not null;uniqueIndex:idx_options_flow_symbol_date" json:"symbol"`
	FlowDate        time.Time           `gorm:"not null;uniqueIndex:idx_options_flow_symbol_date" json:"flow_date"`
	CallVolume      int64               `gorm:"not null;default:0" json:"call_volume"`
	PutVolume       int64               `gorm:"not null;default:0" json:"put_volume"`
	CallPremium     decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"call_premium"`
	PutPremium      decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"put_premium"`
	NetPremiumFlow  decimal.Decimal     `gorm:"type:numeric(20,2);not null" json:"net_premium_flow"`
	PutCallRatio    decimal.NullDecimal `gorm:"type:numeric(10,4)" json:"put_call_ratio"`
	UnusualActivity bool                `gorm:"not null;default:false;index" json:"unusual_activity"`
	Sentiment       FlowSentiment       `gorm:"size:20" json:"sentiment"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}

func (OptionsFlow) TableName() string {
	return "options_flow"
}

// BeforeSave keeps net_premium_flow = call_premium - put_premium on every insert and update.
func (f *OptionsFlow) BeforeSave(_ *gorm.DB) error {
	f.NetPremiumFlow = f.CallPremium.Sub(f.PutPremium)
	return nil
}

// ComputePutCallRatio is put volume over call volume, null when no calls traded.
func (f *OptionsFlow) ComputePutCallRatio() decimal.NullDecimal {
	if f.CallVolume == 0 {
		return decimal.NullDecimal{}
	}
	ratio := decimal.NewFromInt(f.PutVolume).Div(decimal.NewFromInt(f.CallVolume)).Round(4)
	return decimal.NewNullDecimal(ratio)
}

// OptionsFlowAnalysis is the per-symbol rollup of recent flow plus the upstream recommendation.
type OptionsFlowAnalysis struct {
	ID                    uint                `gorm:"primaryKey" json:"id"`
	Symbol                string              `gorm:"size:20;not null;uniqueIndex" json:"symbol"`
	NetFlow7d             decimal.Decimal     `gorm:"column:net_flow_7d;type:numeric(20,2);not null" json:"net_flow_7d"`
	NetFlow30d            decimal.Decimal     `gorm:"column:net_flow_30d;type:numeric(20,2);not null" json:"net_flow_30d"`
	PutCallRatio30d       decimal.NullDecimal `gorm:"column:put_call_ratio_30d;type:numeric(10,4)" json:"put_call_ratio_30d"`
	Sentiment             FlowSentiment       `gorm:"size:20" json:"sentiment"`
	OpportunityScore      decimal.Decimal     `gorm:"type:numeric(8,2)" json:"opportunity_score"`
	RecommendedAction     string              `gorm:"size:50" json:"recommended_action"`
	Confidence            decimal.Decimal     `gorm:"type:numeric(5,2)" json:"confidence"`
	RecommendedStrike     decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"recommended_strike"`
	RecommendedExpiration *time.Time          `json:"recommended_expiration,omitempty"`
	LastUpdated           time.Time           `gorm:"not null" json:"last_updated"`
}

func (OptionsFlowAnalysis) TableName() string {
	return "options_flow_analysis"
}

// BeforeSave refreshes last_updated on every write.
func (a *OptionsFlowAnalysis) BeforeSave(_ *gorm.DB) error {
	a.LastUpdated = time.Now().UTC()
	return nil
}

// PremiumFlowOpportunity is a ranked, time-bounded trade candidate.
type PremiumFlowOpportunity struct {
	ID               uint                `gorm:"primaryKey" json:"id"`
	Symbol           string              `gorm:"size:20;not null;index" json:"symbol"`
	Strategy         Strategy            `gorm:"size:30;not null" json:"strategy"`
	Strike           decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"strike"`
	Expiration       time.Time           `gorm:"not null" json:"expiration"`
	EntryPrice       decimal.Decimal     `gorm:"type:numeric(14,4);not null" json:"entry_price"`
	TargetPrice      decimal.NullDecimal `gorm:"type:numeric(14,4)" json:"target_price"`
	RiskAmount       decimal.NullDecimal `gorm:"type:numeric(18,4)" json:"risk_amount"`
	OpportunityScore decimal.Decimal     `gorm:"type:numeric(8,2);not null;index" json:"opportunity_score"`
	Confidence       decimal.Decimal     `gorm:"type:numeric(5,2);not null" json:"confidence"`
	Rationale        string              `gorm:"type:text" json:"rationale,omitempty"`
	Active           bool                `gorm:"not null;default:true;index" json:"active"`
	CreatedAt        time.Time           `json:"created_at"`
	ExpiresAt        time.Time           `gorm:"not null;index" json:"expires_at"`
}

func (PremiumFlowOpportunity) TableName() string {
	return "premium_flow_opportunities"
}

// IsLive reports whether the opportunity is active and not past expires_at.
func (o *PremiumFlowOpportunity) IsLive(asOf time.Time) bool {
	return o.Active && asOf.Before(o.ExpiresAt)
}

type AlertSeverity string

const (
	AlertSeverityLow      AlertSeverity = "LOW"
	AlertSeverityMedium   AlertSeverity = "MEDIUM"
	AlertSeverityHigh     AlertSeverity = "HIGH"
	AlertSeverityCritical AlertSeverity = "CRITICAL"
)

// OptionsFlowAlert is an entry in the unusual-activity event log.
type OptionsFlowAlert struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Symbol         string          `gorm:"size:20;not null;index" json:"symbol"`
	AlertType      string          `gorm:"size:50;not null" json:"alert_type"`
	Severity       AlertSeverity   `gorm:"size:20;not null;index" json:"severity"`
	Message        string          `gorm:"type:text" json:"message"`
	TriggerValue   decimal.Decimal `gorm:"type:numeric(20,2)" json:"trigger_value"`
	ThresholdValue decimal.Decimal `gorm:"type:numeric(20,2)" json:"threshold_value"`
	Payload        string          `gorm:"type:text" json:"payload,omitempty"` // raw JSON
	IsRead         bool            `gorm:"not null;default:false;index" json:"is_read"`
	IsDismissed    bool            `gorm:"not null;default:false" json:"is_dismissed"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (OptionsFlowAlert) TableName() string {
	return "options_flow_alerts"
}
