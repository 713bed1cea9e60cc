package mapper

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"premiumdesk/src/externalmodel"
	"premiumdesk/src/market"
	"premiumdesk/src/model"
)

// MapOptionQuote converts a market-data option quote into an OptionContract snapshot.
// The premium is the bid/ask midpoint when both sides are quoted, else the last trade.
func MapOptionQuote(q *externalmodel.OptionQuote) (model.OptionContract, error) {
	if q == nil {
		return model.OptionContract{}, fmt.Errorf("%w: nil option quote", model.ErrMissingInput)
	}

	side, err := parseSide(q.Type)
	if err != nil {
		return model.OptionContract{}, err
	}

	strike, err := decimal.NewFromString(q.Strike)
	if err != nil {
		return model.OptionContract{}, fmt.Errorf("%w: strike %q of %s", model.ErrInvalidConfig, q.Strike, q.Symbol)
	}

	expDay, err := time.Parse("2006-01-02", q.Expiration)
	if err != nil {
		return model.OptionContract{}, fmt.Errorf("%w: expiration %q of %s", model.ErrInvalidConfig, q.Expiration, q.Symbol)
	}

	bid := parseDecimalSafe("bid", q.Bid)
	ask := parseDecimalSafe("ask", q.Ask)

	premium := parseDecimalSafe("last", q.Last)
	spread := decimal.Zero
	if bid.IsPositive() && ask.IsPositive() && ask.GreaterThanOrEqual(bid) {
		premium = bid.Add(ask).Div(decimal.NewFromInt(2)).Round(4)
		spread = ask.Sub(bid)
	}

	return model.NewOptionContract(model.OptionContractConfig{
		Symbol:            q.Symbol,
		Side:              side,
		Strike:            strike,
		Expiration:        market.ExpirationCutoff(expDay),
		Premium:           premium,
		Delta:             parseDecimalSafe("delta", q.Delta),
		Theta:             parseDecimalSafe("theta", q.Theta),
		Vega:              parseDecimalSafe("vega", q.Vega),
		Gamma:             parseDecimalSafe("gamma", q.Gamma),
		ImpliedVolatility: parseDecimalSafe("implied_volatility", q.ImpliedVolatility),
		BidAskSpread:      spread,
		Volume:            q.Volume,
		OpenInterest:      q.OpenInterest,
		CreatedAt:         quoteTime(q.Updated),
	})
}

// MapStockQuote converts a market-data stock quote into an Underlying snapshot.
func MapStockQuote(q *externalmodel.StockQuote) (model.Underlying, error) {
	if q == nil {
		return model.Underlying{}, fmt.Errorf("%w: nil stock quote", model.ErrMissingInput)
	}

	return model.NewUnderlying(model.UnderlyingConfig{
		Symbol:            q.Symbol,
		CurrentPrice:      parseDecimalSafe("price", q.Price),
		MarketCap:         parseDecimalSafe("market_cap", q.MarketCap),
		Beta:              parseDecimalSafe("beta", q.Beta),
		DividendYield:     parseDecimalSafe("dividend_yield", q.DividendYield),
		PERatio:           parseDecimalSafe("pe_ratio", q.PERatio),
		Sector:            q.Sector,
		ImpliedVolatility: parseDecimalSafe("implied_volatility", q.ImpliedVolatility),
		OptionsVolume:     q.OptionsVolume,
	})
}

func parseSide(v string) (model.OptionSide, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "PUT", "P":
		return model.OptionSidePut, nil
	case "CALL", "C":
		return model.OptionSideCall, nil
	default:
		return "", fmt.Errorf("%w: unknown option type %q", model.ErrInvalidConfig, v)
	}
}

func parseDecimalSafe(field, v string) decimal.Decimal {
	if v == "" {
		logger.WithField("field", field).Debug("Empty numeric field received, defaulting to 0")
		return decimal.Zero
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"field": field,
			"value": v,
		}).WithError(err).Error("Failed to parse decimal from quote field; defaulting to 0")
		return decimal.Zero
	}
	return d
}

func quoteTime(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
