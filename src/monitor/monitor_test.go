package monitor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
)

var (
	entryDay      = time.Date(2025, time.January, 2, 15, 0, 0, 0, time.UTC)
	expirationDay = time.Date(2025, time.February, 21, 21, 0, 0, 0, time.UTC)
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newPosition(t *testing.T, id, symbol string, strategy model.Strategy, strike string) model.Position {
	t.Helper()
	p, err := model.NewPosition(model.PositionConfig{
		ID:                id,
		Symbol:            symbol,
		Strategy:          strategy,
		EntryDate:         entryDay,
		ExpirationDate:    expirationDay,
		Strike:            d(strike),
		Premium:           d("2"),
		Quantity:          1,
		StockPriceAtEntry: d("52"),
		CashRequired:      d("5000"),
	})
	require.NoError(t, err)
	return *p
}

type fakePositions struct {
	open        []model.Position
	transitions []*model.Position
	listErr     error
}

func (f *fakePositions) ListOpen(context.Context) ([]model.Position, error) {
	return f.open, f.listErr
}

func (f *fakePositions) ApplyTransition(_ context.Context, p *model.Position) error {
	f.transitions = append(f.transitions, p)
	return nil
}

type fakeQuotes struct {
	marks  map[string]string // option symbol -> premium
	prices map[string]string // underlying -> price
}

func (f *fakeQuotes) GetOptionQuote(_ context.Context, optionSymbol string) (model.OptionContract, error) {
	premium, ok := f.marks[optionSymbol]
	if !ok {
		return model.OptionContract{}, errors.New("quote unavailable")
	}
	return model.OptionContract{Symbol: optionSymbol, Premium: d(premium)}, nil
}

func (f *fakeQuotes) GetUnderlying(_ context.Context, symbol string) (model.Underlying, error) {
	price, ok := f.prices[symbol]
	if !ok {
		return model.Underlying{}, errors.New("stock quote unavailable")
	}
	return model.Underlying{Symbol: symbol, CurrentPrice: d(price)}, nil
}

type fakeExceptions struct {
	created []*model.Exception
}

func (f *fakeExceptions) Create(_ context.Context, exc *model.Exception) error {
	f.created = append(f.created, exc)
	return nil
}

func testConfig() Config {
	return Config{LoopPeriod: time.Minute, ProfitTargetPct: d("50"), AutoExpire: true}
}

func optionSymbol(t *testing.T, p model.Position) string {
	t.Helper()
	s, err := p.OptionSymbol()
	require.NoError(t, err)
	return s
}

func TestMonitor_RunOnce_CloseSignal(t *testing.T) {
	ko := newPosition(t, "ko", "KO", model.StrategyCashSecuredPut, "50")
	pep := newPosition(t, "pep", "PEP", model.StrategyCashSecuredPut, "50")

	quotes := &fakeQuotes{marks: map[string]string{
		optionSymbol(t, ko):  "0.6", // 140 of 200 captured
		optionSymbol(t, pep): "1.5", // 50 of 200 captured
	}}
	reg := metrics.NewRegistry()
	mon := New(testConfig(), &fakePositions{open: []model.Position{ko, pep}}, quotes, nil, reg)

	report, err := mon.RunOnce(context.Background(), expirationDay.AddDate(0, 0, -30))
	require.NoError(t, err)

	require.Equal(t, 2, report.Open)
	require.Equal(t, 2, report.Valued)
	require.Len(t, report.Signals, 1)
	require.Equal(t, "ko", report.Signals[0].PositionID)
	require.Equal(t, model.CloseReasonProfitTarget, report.Signals[0].Reason)
	require.True(t, report.Signals[0].Unrealized.Equal(d("140")))

	require.Equal(t, 2.0, testutil.ToFloat64(reg.OpenPositions))
	require.Equal(t, 140.0, testutil.ToFloat64(reg.UnrealizedPL.WithLabelValues("KO")))
	require.Equal(t, 1.0, testutil.ToFloat64(reg.CloseSignals.WithLabelValues("profit_target")))
}

func TestMonitor_RunOnce_Expiration(t *testing.T) {
	otm := newPosition(t, "otm", "KO", model.StrategyCashSecuredPut, "50")
	itm := newPosition(t, "itm", "PEP", model.StrategyCashSecuredPut, "50")

	positions := &fakePositions{open: []model.Position{otm, itm}}
	quotes := &fakeQuotes{
		marks:  map[string]string{optionSymbol(t, itm): "4"},
		prices: map[string]string{"KO": "55", "PEP": "46"},
	}
	mon := New(testConfig(), positions, quotes, nil, nil)

	report, err := mon.RunOnce(context.Background(), expirationDay.Add(time.Hour))
	require.NoError(t, err)

	require.Equal(t, 1, report.Expired)
	require.Equal(t, []string{"itm"}, report.InTheMoney)
	require.Equal(t, 1, report.Open)

	require.Len(t, positions.transitions, 1)
	expired := positions.transitions[0]
	require.Equal(t, "otm", expired.ID)
	require.Equal(t, model.PositionStatusExpired, expired.Status)
	require.True(t, expired.UpdatedAt.Equal(expirationDay))
}

func TestMonitor_RunOnce_ExpirationDateOnly(t *testing.T) {
	midnight := time.Date(2025, time.February, 21, 0, 0, 0, 0, time.UTC)
	closeUTC := time.Date(2025, time.February, 21, 21, 0, 0, 0, time.UTC)

	built, err := model.NewPosition(model.PositionConfig{
		ID:                "built",
		Symbol:            "KO",
		Strategy:          model.StrategyCashSecuredPut,
		EntryDate:         entryDay,
		ExpirationDate:    midnight,
		Strike:            d("50"),
		Premium:           d("2"),
		Quantity:          1,
		StockPriceAtEntry: d("52"),
		CashRequired:      d("5000"),
	})
	require.NoError(t, err)

	// a row stored before expirations were normalized to the close
	stored := newPosition(t, "stored", "KO", model.StrategyCashSecuredPut, "50")
	stored.ExpirationDate = midnight

	for _, p := range []model.Position{*built, stored} {
		t.Run(p.ID, func(t *testing.T) {
			quotes := &fakeQuotes{
				marks:  map[string]string{optionSymbol(t, p): "0.4"},
				prices: map[string]string{"KO": "50.5"},
			}

			t.Run("morning of expiration", func(t *testing.T) {
				positions := &fakePositions{open: []model.Position{p}}
				mon := New(testConfig(), positions, quotes, nil, nil)

				report, err := mon.RunOnce(context.Background(), time.Date(2025, time.February, 21, 15, 0, 0, 0, time.UTC))
				require.NoError(t, err)
				require.Equal(t, 0, report.Expired)
				require.Equal(t, 1, report.Open)
				require.Empty(t, positions.transitions)
			})

			t.Run("one minute before the close", func(t *testing.T) {
				positions := &fakePositions{open: []model.Position{p}}
				mon := New(testConfig(), positions, quotes, nil, nil)

				report, err := mon.RunOnce(context.Background(), closeUTC.Add(-time.Minute))
				require.NoError(t, err)
				require.Equal(t, 0, report.Expired)
				require.Empty(t, positions.transitions)
			})

			t.Run("at the close", func(t *testing.T) {
				positions := &fakePositions{open: []model.Position{p}}
				mon := New(testConfig(), positions, quotes, nil, nil)

				report, err := mon.RunOnce(context.Background(), closeUTC)
				require.NoError(t, err)
				require.Equal(t, 1, report.Expired)
				require.Len(t, positions.transitions, 1)
				require.Equal(t, model.PositionStatusExpired, positions.transitions[0].Status)
				require.True(t, positions.transitions[0].UpdatedAt.Equal(closeUTC))
			})
		})
	}
}

func TestMonitor_RunOnce_AutoExpireDisabled(t *testing.T) {
	p := newPosition(t, "ko", "KO", model.StrategyCashSecuredPut, "50")
	positions := &fakePositions{open: []model.Position{p}}

	cfg := testConfig()
	cfg.AutoExpire = false
	mon := New(cfg, positions, &fakeQuotes{marks: map[string]string{optionSymbol(t, p): "0.01"}}, nil, nil)

	report, err := mon.RunOnce(context.Background(), expirationDay.Add(time.Hour))
	require.NoError(t, err)
	require.Zero(t, report.Expired)
	require.Empty(t, positions.transitions)
	require.Len(t, report.Signals, 1)
}

func TestMonitor_RunOnce_QuoteFailure(t *testing.T) {
	p := newPosition(t, "ko", "KO", model.StrategyCashSecuredPut, "50")
	exceptions := &fakeExceptions{}
	reg := metrics.NewRegistry()
	mon := New(testConfig(), &fakePositions{open: []model.Position{p}}, &fakeQuotes{}, exceptions, reg)

	report, err := mon.RunOnce(context.Background(), expirationDay.AddDate(0, 0, -3))
	require.NoError(t, err)

	// valued without a mark, no signal even inside the time window
	require.Equal(t, 1, report.Valued)
	require.Empty(t, report.Signals)
	require.Len(t, exceptions.created, 1)
	require.Equal(t, "quote", exceptions.created[0].Module)
	require.Equal(t, 1.0, testutil.ToFloat64(reg.MonitorErrors.WithLabelValues("quote")))
}

func TestMonitor_RunOnce_ListFailure(t *testing.T) {
	exceptions := &fakeExceptions{}
	mon := New(testConfig(), &fakePositions{listErr: errors.New("db down")}, &fakeQuotes{}, exceptions, nil)

	_, err := mon.RunOnce(context.Background(), entryDay)
	require.Error(t, err)
	require.Len(t, exceptions.created, 1)
}

func TestMonitor_Start(t *testing.T) {
	t.Run("rejects non-positive period", func(t *testing.T) {
		cfg := testConfig()
		cfg.LoopPeriod = 0
		mon := New(cfg, &fakePositions{}, &fakeQuotes{}, nil, nil)
		require.ErrorIs(t, mon.Start(context.Background()), model.ErrInvalidConfig)
	})

	t.Run("stops on cancel", func(t *testing.T) {
		mon := New(testConfig(), &fakePositions{}, &fakeQuotes{}, nil, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		require.NoError(t, mon.Start(ctx))
	})
}
