package marketdata

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"

	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
)

const optionQuoteBody = `{"status":"ok","data":{"symbol":"KO    250221P00050000","underlying":"KO","type":"put",
"strike":"50","expiration":"2025-02-21","bid":"0.55","ask":"0.65","last":"0.6","volume":320,"open_interest":1200}}`

func newTestClient(t *testing.T, handler http.HandlerFunc, m *metrics.Registry) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, APIKey: "test-key", RatePerSec: 1000, Timeout: time.Second}, m)
	if err != nil {
		t.Fatalf("unexpected error building client: %v", err)
	}
	c.http.SetRetryWaitTime(time.Millisecond).SetRetryMaxWaitTime(5 * time.Millisecond)
	return c
}

func TestIsRetryableResp(t *testing.T) {
	cases := []struct {
		name string
		resp *resty.Response
		err  error
		want bool
	}{
		{name: "error present", err: errors.New("reset"), want: true},
		{name: "server error", resp: fakeResponse(503), want: true},
		{name: "too many requests", resp: fakeResponse(429), want: true},
		{name: "timeout", resp: fakeResponse(408), want: true},
		{name: "not found", resp: fakeResponse(404), want: false},
		{name: "ok response", resp: fakeResponse(200), want: false},
		{name: "nil resp", want: false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := isRetryableResp(tc.resp, tc.err); got != tc.want {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(Config{RatePerSec: 1}, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected invalid config without base URL, got %v", err)
	}
	if _, err := NewClient(Config{BaseURL: "http://example", RatePerSec: 0}, nil); !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected invalid config with zero rate, got %v", err)
	}
}

func TestGetOptionQuote(t *testing.T) {
	m := metrics.NewRegistry()
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/v1/options/KO%20%20%20%20250221P00050000/quote" {
			t.Errorf("unexpected path %s", r.URL.EscapedPath())
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing bearer token")
		}
		fmt.Fprint(w, optionQuoteBody)
	}, m)

	q, err := c.GetOptionQuote(context.Background(), "KO    250221P00050000")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.Side != model.OptionSidePut || !q.Premium.Equal(decimal.RequireFromString("0.6")) {
		t.Fatalf("unexpected quote %+v", q)
	}
	if got := testutil.ToFloat64(m.QuoteRequests.WithLabelValues("option_quote", "ok")); got != 1 {
		t.Fatalf("expected 1 ok request metric, got %v", got)
	}
}

func TestGetOptionQuote_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, optionQuoteBody)
	}, nil)

	if _, err := c.GetOptionQuote(context.Background(), "KO    250221P00050000"); err != nil {
		t.Fatalf("unexpected error after retries: %v", err)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestGetOptionQuote_Errors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}, nil)
		if _, err := c.GetOptionQuote(context.Background(), "XYZ"); !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("api error envelope", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{"status":"error","error":"bad symbol"}`)
		}, nil)
		_, err := c.GetOptionQuote(context.Background(), "XYZ")
		if err == nil || err.Error() != "option quote XYZ: API error: bad symbol" {
			t.Fatalf("unexpected error %v", err)
		}
	})

	t.Run("client error is not retried", func(t *testing.T) {
		var calls int32
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			atomic.AddInt32(&calls, 1)
			w.WriteHeader(http.StatusBadRequest)
		}, nil)
		if _, err := c.GetOptionQuote(context.Background(), "XYZ"); err == nil {
			t.Fatalf("expected error")
		}
		if atomic.LoadInt32(&calls) != 1 {
			t.Fatalf("expected a single call, got %d", calls)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, optionQuoteBody)
		}, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := c.GetOptionQuote(ctx, "XYZ"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	})
}

func TestGetUnderlying(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/stocks/KO" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"status":"ok","data":{"symbol":"KO","price":"62.10","market_cap":"268000000000","beta":"0.6",
"dividend_yield":"3.1","implied_volatility":"21","options_volume":150000}}`)
	}, nil)

	u, err := c.GetUnderlying(context.Background(), "ko")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.CurrentPrice.Equal(decimal.RequireFromString("62.10")) || !u.MeetsScreeningCriteria() {
		t.Fatalf("unexpected underlying %+v", u)
	}
}

func fakeResponse(status int) *resty.Response {
	return &resty.Response{RawResponse: &http.Response{StatusCode: status}}
}
