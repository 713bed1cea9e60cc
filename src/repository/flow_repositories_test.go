package repository

import (
	"context"
	"testing"
	"time"

	"premiumdesk/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var flowDay = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func TestOptionsFlowRepository_UpsertAndList(t *testing.T) {
	ctx := context.Background()
	repo := NewOptionsFlowRepositoryWithDB(newSQLiteDB(t))

	require.NoError(t, repo.Upsert(ctx, &model.OptionsFlow{
		Symbol: "KO", FlowDate: flowDay, CallVolume: 100, PutVolume: 50,
		CallPremium: d("1000"), PutPremium: d("400"),
	}))
	// restated figures for the same day replace the row
	require.NoError(t, repo.Upsert(ctx, &model.OptionsFlow{
		Symbol: "KO", FlowDate: flowDay, CallVolume: 120, PutVolume: 60,
		CallPremium: d("1500"), PutPremium: d("400"), UnusualActivity: true,
	}))
	require.NoError(t, repo.Upsert(ctx, &model.OptionsFlow{
		Symbol: "PEP", FlowDate: flowDay.AddDate(0, 0, -40),
		CallPremium: d("10"), PutPremium: d("20"),
	}))

	flows, err := repo.ListSince(ctx, "KO", flowDay.AddDate(0, 0, -7))
	require.NoError(t, err)
	require.Len(t, flows, 1)
	require.EqualValues(t, 120, flows[0].CallVolume)
	require.True(t, flows[0].NetPremiumFlow.Equal(d("1100")), "got %s", flows[0].NetPremiumFlow)

	symbols, err := repo.ListSymbolsSince(ctx, flowDay.AddDate(0, 0, -30))
	require.NoError(t, err)
	require.Equal(t, []string{"KO"}, symbols)

	unusual, err := repo.ListUnusualSince(ctx, flowDay)
	require.NoError(t, err)
	require.Len(t, unusual, 1)
	require.Equal(t, "KO", unusual[0].Symbol)
}

func TestOptionsFlowRepository_Analysis(t *testing.T) {
	ctx := context.Background()
	repo := NewOptionsFlowRepositoryWithDB(newSQLiteDB(t))

	missing, err := repo.FindAnalysis(ctx, "KO")
	require.NoError(t, err)
	require.Nil(t, missing)

	require.NoError(t, repo.UpsertAnalysis(ctx, &model.OptionsFlowAnalysis{
		Symbol:            "KO",
		NetFlow7d:         d("100"),
		NetFlow30d:        d("500"),
		Sentiment:         model.FlowSentimentBullish,
		OpportunityScore:  d("80"),
		RecommendedAction: "SELL_PUT",
		Confidence:        d("70"),
	}))
	require.NoError(t, repo.UpsertAnalysis(ctx, &model.OptionsFlowAnalysis{
		Symbol:          "KO",
		NetFlow7d:       d("-50"),
		NetFlow30d:      d("450"),
		PutCallRatio30d: decimal.NewNullDecimal(d("1.2")),
		Sentiment:       model.FlowSentimentBearish,
	}))

	a, err := repo.FindAnalysis(ctx, "KO")
	require.NoError(t, err)
	require.NotNil(t, a)
	require.True(t, a.NetFlow7d.Equal(d("-50")))
	require.Equal(t, model.FlowSentimentBearish, a.Sentiment)
	require.True(t, a.PutCallRatio30d.Valid)
	// recommendation survives the refresh
	require.Equal(t, "SELL_PUT", a.RecommendedAction)
	require.True(t, a.OpportunityScore.Equal(d("80")))
}

func TestOpportunityRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewOpportunityRepositoryWithDB(newSQLiteDB(t))
	now := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC)

	mk := func(symbol, score, confidence string, expires time.Time) *model.PremiumFlowOpportunity {
		return &model.PremiumFlowOpportunity{
			Symbol:           symbol,
			Strategy:         model.StrategyCashSecuredPut,
			Strike:           d("50"),
			Expiration:       now.AddDate(0, 1, 0),
			EntryPrice:       d("1.5"),
			OpportunityScore: d(score),
			Confidence:       d(confidence),
			Active:           true,
			ExpiresAt:        expires,
		}
	}

	require.NoError(t, repo.Create(ctx, mk("KO", "70", "50", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mk("PEP", "90", "40", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mk("JNJ", "70", "80", now.Add(time.Hour))))
	require.NoError(t, repo.Create(ctx, mk("OLD", "99", "99", now.Add(-time.Hour))))

	active, err := repo.ListActive(ctx, now, 0)
	require.NoError(t, err)
	require.Len(t, active, 3)
	require.Equal(t, "PEP", active[0].Symbol)
	require.Equal(t, "JNJ", active[1].Symbol)
	require.Equal(t, "KO", active[2].Symbol)

	top, err := repo.ListActive(ctx, now, 1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	n, err := repo.DeactivateExpired(ctx, now)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = repo.DeactivateExpired(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.EqualValues(t, 3, n)

	active, err = repo.ListActive(ctx, now, 0)
	require.NoError(t, err)
	require.Empty(t, active)
}

func TestAlertRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewAlertRepositoryWithDB(newSQLiteDB(t))
	now := time.Date(2025, time.March, 3, 15, 0, 0, 0, time.UTC)

	first := &model.OptionsFlowAlert{Symbol: "KO", AlertType: "UNUSUAL_PREMIUM", Severity: model.AlertSeverityHigh, CreatedAt: now}
	second := &model.OptionsFlowAlert{Symbol: "PEP", AlertType: "UNUSUAL_PREMIUM", Severity: model.AlertSeverityMedium, CreatedAt: now.Add(time.Minute)}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))

	exists, err := repo.ExistsSince(ctx, "KO", "UNUSUAL_PREMIUM", now)
	require.NoError(t, err)
	require.True(t, exists)
	exists, err = repo.ExistsSince(ctx, "KO", "UNUSUAL_PREMIUM", now.Add(time.Second))
	require.NoError(t, err)
	require.False(t, exists)

	unread, err := repo.ListUnread(ctx, 0)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	require.Equal(t, "PEP", unread[0].Symbol)

	ok, err := repo.MarkRead(ctx, first.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.Dismiss(ctx, second.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.MarkRead(ctx, 9999)
	require.NoError(t, err)
	require.False(t, ok)

	unread, err = repo.ListUnread(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, unread)
}

func TestExceptionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewExceptionRepositoryWithDB(newSQLiteDB(t))

	exc := model.NewException("monitor", "valuation", "RunOnce", model.ErrDataIntegrity, map[string]interface{}{"position_id": "p1"})
	require.NoError(t, repo.Create(ctx, exc))

	recent, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	require.Equal(t, `{"position_id":"p1"}`, recent[0].Context)
}
