package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"premiumdesk/src/database"
	"premiumdesk/src/metrics"
	"premiumdesk/src/model"
	"premiumdesk/src/repository"
)

const testToken = "s3cret-token"

func newTestRouter(t *testing.T, tokenHash string) http.Handler {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return NewRouter(Deps{
		Positions:     repository.NewPositionRepositoryWithDB(db),
		Flow:          repository.NewOptionsFlowRepositoryWithDB(db),
		Opportunities: repository.NewOpportunityRepositoryWithDB(db),
		Alerts:        repository.NewAlertRepositoryWithDB(db),
		Exceptions:    repository.NewExceptionRepositoryWithDB(db),
		Metrics:       metrics.NewRegistry(),
		ProfitTarget:  decimal.NewFromInt(50),
		TokenHash:     tokenHash,
	})
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthcheckAndMetricsArePublic(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)
	h := newTestRouter(t, string(hash))

	for _, path := range []string{"/healthcheck", "/metrics"} {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK {
			t.Fatalf("%s: expected status 200, got %d", path, rr.Code)
		}
	}
}

func TestAuthenticatedRoutesRequireToken(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte(testToken), bcrypt.MinCost)
	require.NoError(t, err)
	h := newTestRouter(t, string(hash))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/positions", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	req := httptest.NewRequest(http.MethodGet, "/alerts", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	assert.Equal(t, http.StatusOK, do(h, http.MethodGet, "/positions", "").Code)
}

func TestPositionLifecycle(t *testing.T) {
	h := newTestRouter(t, "")

	body := `{"symbol":"ko","strategy":"CASH_SECURED_PUT","entry_date":"2025-01-02T15:00:00Z",
"expiration_date":"2025-02-21T21:00:00Z","strike":"50","premium":"2","quantity":1,"stock_price_at_entry":"52"}`
	rr := do(h, http.MethodPost, "/positions", body)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var created model.Position
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	rr = do(h, http.MethodGet, "/positions/"+created.ID+"/valuation?asOf=2025-01-22T21:00:00Z&mark=0.8", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var v model.Valuation
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.True(t, v.UnrealizedPL.Equal(decimal.NewFromInt(120)))
	assert.True(t, v.ShouldClose)

	rr = do(h, http.MethodPost, "/positions/"+created.ID+"/close", `{"price":"0.8","at":"2025-01-22T21:00:00Z"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = do(h, http.MethodGet, "/positions/"+created.ID+"/valuation?asOf=2025-01-22T21:00:00Z", "")
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, model.PositionStatusClosed, v.Status)
	assert.True(t, v.RealizedPL.Equal(decimal.NewFromInt(120)))
	assert.False(t, v.ShouldClose)

	rr = do(h, http.MethodPost, "/positions/"+created.ID+"/expire", "")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = do(h, http.MethodGet, "/positions?status=CLOSED&symbol=KO", "")
	var listed []model.Position
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)
}

func TestFlowRoutes(t *testing.T) {
	h := newTestRouter(t, "")

	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/flow/KO/analysis", "").Code)
	assert.JSONEq(t, "[]", do(h, http.MethodGet, "/opportunities", "").Body.String())
	assert.JSONEq(t, "[]", do(h, http.MethodGet, "/alerts", "").Body.String())
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodPost, "/alerts/1/read", "").Code)
	assert.JSONEq(t, "[]", do(h, http.MethodGet, "/exceptions", "").Body.String())
}
