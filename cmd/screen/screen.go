package screen

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"premiumdesk/src/marketdata"
	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
)

// UnderlyingSource fetches screening snapshots.
type UnderlyingSource interface {
	GetUnderlying(ctx context.Context, symbol string) (model.Underlying, error)
}

// Result is the screening outcome for one symbol. Err is set when the snapshot could not be fetched.
type Result struct {
	Symbol     string
	Underlying model.Underlying
	Passed     bool
	Failures   []string
	Err        error
}

type Screener struct {
	Log    *logrus.Entry
	Config *Config
	source UnderlyingSource
}

func (s *Screener) Start(symbols []string) error {
	s.Config = GetConfig()
	if len(symbols) == 0 {
		symbols = s.Config.Symbols
	}
	if len(symbols) == 0 {
		return errors.New("no symbols to screen: pass them as arguments or set SCREEN_SYMBOLS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := marketdata.NewClient(marketdata.GetConfig(), metrics.NewRegistry())
	if err != nil {
		return err
	}
	s.source = client

	results := Screen(ctx, s.source, symbols, s.Config.Concurrency)
	s.report(results)
	return nil
}

// Screen evaluates symbols with at most concurrency fetches in flight. Results keep the input order.
func Screen(ctx context.Context, source UnderlyingSource, symbols []string, concurrency int) []Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]Result, len(symbols))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, raw := range symbols {
		i := i
		symbol := strings.ToUpper(strings.TrimSpace(raw))
		results[i].Symbol = symbol
		g.Go(func() error {
			u, err := source.GetUnderlying(gctx, symbol)
			if err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Underlying = u
			results[i].Failures = u.ScreeningFailures()
			results[i].Passed = u.MeetsScreeningCriteria()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *Screener) report(results []Result) {
	passed := 0
	for _, r := range results {
		entry := s.Log.WithField("symbol", r.Symbol)
		switch {
		case r.Err != nil:
			entry.WithError(r.Err).Warn("screening skipped")
		case r.Passed:
			passed++
			entry.WithFields(logrus.Fields{
				"price":      r.Underlying.CurrentPrice,
				"iv":         r.Underlying.ImpliedVolatility,
				"beta":       r.Underlying.Beta,
				"div_yield":  r.Underlying.DividendYield,
				"options_vl": r.Underlying.OptionsVolume,
			}).Info("passes screening")
		default:
			entry.WithField("failures", strings.Join(r.Failures, "; ")).Info("fails screening")
		}
	}
	s.Log.WithFields(logrus.Fields{"screened": len(results), "passed": passed}).Info("screening finished")
}
