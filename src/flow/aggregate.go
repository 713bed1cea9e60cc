package flow

import (
	"time"

	"github.com/shopspring/decimal"

	"premiumdesk/src/model"
	"premiumdesk/src/utils"
)

const (
	ShortWindowDays = 7
	LongWindowDays  = 30
)

var (
	// put/call ratio at or below this leans bullish, above BearishPutCallRatio leans bearish
	BullishPutCallRatio = decimal.RequireFromString("0.7")
	BearishPutCallRatio = decimal.RequireFromString("1.0")
)

// Summary is the rollup of one symbol's daily flow rows.
type Summary struct {
	Symbol          string
	NetFlow7d       decimal.Decimal
	NetFlow30d      decimal.Decimal
	PutCallRatio30d decimal.NullDecimal
	Sentiment       model.FlowSentiment
	Days            int
}

// Aggregate sums the rows whose flow date falls in the 7 and 30 calendar days ending on asOf's
// day. Rows dated after asOf or for other symbols are ignored.
func Aggregate(symbol string, flows []model.OptionsFlow, asOf time.Time) Summary {
	short := utils.DayWindowStart(asOf, ShortWindowDays)
	long := utils.DayWindowStart(asOf, LongWindowDays)
	end := utils.ResetTime(asOf, "day").AddDate(0, 0, 1)

	s := Summary{Symbol: symbol}
	var calls, puts int64

	for _, f := range flows {
		if f.Symbol != symbol || f.FlowDate.Before(long) || !f.FlowDate.Before(end) {
			continue
		}
		net := f.CallPremium.Sub(f.PutPremium)

		s.Days++
		s.NetFlow30d = s.NetFlow30d.Add(net)
		calls += f.CallVolume
		puts += f.PutVolume

		if !f.FlowDate.Before(short) {
			s.NetFlow7d = s.NetFlow7d.Add(net)
		}
	}

	if calls > 0 {
		s.PutCallRatio30d = decimal.NewNullDecimal(decimal.NewFromInt(puts).Div(decimal.NewFromInt(calls)).Round(4))
	}
	s.Sentiment = sentiment(s.NetFlow7d, s.PutCallRatio30d)
	return s
}

// sentiment votes the short-window net flow sign against the put/call ratio.
func sentiment(net7d decimal.Decimal, ratio decimal.NullDecimal) model.FlowSentiment {
	score := net7d.Sign()
	if ratio.Valid {
		switch {
		case ratio.Decimal.LessThanOrEqual(BullishPutCallRatio):
			score++
		case ratio.Decimal.GreaterThan(BearishPutCallRatio):
			score--
		}
	}

	switch {
	case score > 0:
		return model.FlowSentimentBullish
	case score < 0:
		return model.FlowSentimentBearish
	default:
		return model.FlowSentimentNeutral
	}
}

// Analysis converts the summary into the aggregated columns of an analysis row.
func (s Summary) Analysis() *model.OptionsFlowAnalysis {
	return &model.OptionsFlowAnalysis{
		Symbol:          s.Symbol,
		NetFlow7d:       s.NetFlow7d,
		NetFlow30d:      s.NetFlow30d,
		PutCallRatio30d: s.PutCallRatio30d,
		Sentiment:       s.Sentiment,
	}
}
