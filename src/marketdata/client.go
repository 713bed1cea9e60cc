// REST client for option and stock quotes.
// RESTY + INTERNAL RETRY, THROTTLED BY A TOKEN BUCKET
package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"premiumdesk/src/externalmodel"
	"premiumdesk/src/mapper"
	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
)

const (
	defaultRetryAttempts   = 4
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
)

// ErrNotFound is returned when the provider has no quote for the symbol.
var ErrNotFound = errors.New("quote not found")

type Client struct {
	baseURL string
	http    *resty.Client
	limiter *rate.Limiter
	metrics *metrics.Registry
}

func isRetryableResp(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}

	if r == nil {
		return false
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == 429 {
		return true
	}
	if code == 408 {
		return true
	}
	return false
}

// NewClient builds a client from cfg. m may be nil.
func NewClient(cfg Config, m *metrics.Registry) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: market data base URL is required", model.ErrInvalidConfig)
	}
	if cfg.RatePerSec <= 0 {
		return nil, fmt.Errorf("%w: market data rate must be positive", model.ErrInvalidConfig)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetRetryCount(defaultRetryAttempts-1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp).
		SetHeader("Accept", "application/json")

	if cfg.APIKey != "" {
		httpClient.SetAuthToken(cfg.APIKey)
	}

	burst := int(cfg.RatePerSec)
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), burst),
		metrics: m,
	}, nil
}

// GetOptionQuote fetches the latest quote for an OCC option symbol.
func (c *Client) GetOptionQuote(ctx context.Context, optionSymbol string) (model.OptionContract, error) {
	var q externalmodel.OptionQuote
	path := "/v1/options/" + url.PathEscape(strings.TrimSpace(optionSymbol)) + "/quote"

	if err := c.get(ctx, "option_quote", path, &q); err != nil {
		return model.OptionContract{}, fmt.Errorf("option quote %s: %w", optionSymbol, err)
	}
	return mapper.MapOptionQuote(&q)
}

// GetUnderlying fetches the stock snapshot for symbol.
func (c *Client) GetUnderlying(ctx context.Context, symbol string) (model.Underlying, error) {
	var q externalmodel.StockQuote
	path := "/v1/stocks/" + url.PathEscape(strings.ToUpper(strings.TrimSpace(symbol)))

	if err := c.get(ctx, "stock_quote", path, &q); err != nil {
		return model.Underlying{}, fmt.Errorf("stock quote %s: %w", symbol, err)
	}
	return mapper.MapStockQuote(&q)
}

func (c *Client) get(ctx context.Context, endpoint, path string, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		c.metrics.IncQuoteRequest(endpoint, "throttled")
		return err
	}

	resp, err := c.http.R().SetContext(ctx).Get(path)
	if err != nil {
		c.metrics.IncQuoteRequest(endpoint, "error")
		logger.WithFields(logger.Fields{
			"endpoint": endpoint,
			"path":     path,
		}).WithError(err).Error("market data request failed")
		return err
	}

	raw := resp.Body()

	if resp.StatusCode() == 404 {
		c.metrics.IncQuoteRequest(endpoint, "not_found")
		return ErrNotFound
	}
	if resp.StatusCode() != 200 {
		c.metrics.IncQuoteRequest(endpoint, "error")
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode(), string(raw))
	}

	var envelope externalmodel.QuoteResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.metrics.IncQuoteRequest(endpoint, "error")
		return err
	}
	if envelope.Status != "ok" {
		c.metrics.IncQuoteRequest(endpoint, "error")
		return fmt.Errorf("API error: %s", envelope.Error)
	}

	if err := json.Unmarshal(envelope.Data, out); err != nil {
		c.metrics.IncQuoteRequest(endpoint, "error")
		return err
	}

	c.metrics.IncQuoteRequest(endpoint, "ok")
	return nil
}
