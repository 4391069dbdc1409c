package dashboard

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/internal/models"
	"tradedesk/internal/quotes"
	"tradedesk/internal/store"
)

func newTestSynchronizer(client *fakeClient, cache store.DataStore) (*Synchronizer, *RowStore) {
	rows := NewRowStore()
	batcher := quotes.NewBatcher(client, quotes.BatcherConfig{BatchSize: 40, Pause: 0}, zerolog.Nop())
	sync := NewSynchronizer(client, batcher, rows, cache, SynchronizerConfig{
		UserID:                     "user-1",
		RecommendationLimit:        500,
		RecommendationStaleMinutes: 60,
	}, zerolog.Nop())
	return sync, rows
}

func watchlist(symbols ...string) []models.WatchlistEntry {
	entries := make([]models.WatchlistEntry, len(symbols))
	for i, s := range symbols {
		entries[i] = models.WatchlistEntry{ID: fmt.Sprintf("wl-%d", i+1), Symbol: s, CompanyName: s + " Inc"}
	}
	return entries
}

func rowsBySymbol(rows []models.DisplayRow) map[string]models.DisplayRow {
	out := make(map[string]models.DisplayRow, len(rows))
	for _, r := range rows {
		out[models.NormalizeSymbol(r.Entry.Symbol)] = r
	}
	return out
}

func TestSyncMergesRecommendationsAndQuotes(t *testing.T) {
	client := &fakeClient{
		recs: []models.Recommendation{
			{Symbol: "MSFT", Action: models.ActionBuy, Confidence: 0.9},
			{Symbol: "GOOG", Action: models.ActionSell, Confidence: 0.7},
		},
		quotes: map[string]models.Quote{
			"AAPL": {Symbol: "AAPL", Price: 190.5},
			"MSFT": {Symbol: "MSFT", Price: 420.1},
		},
	}
	sync, rows := newTestSynchronizer(client, nil)

	sync.Sync(context.Background(), watchlist("AAPL", "MSFT", "GOOG"))

	got := rowsBySymbol(rows.Snapshot())
	if len(got) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(got))
	}

	aapl := got["AAPL"]
	if aapl.HasRecommendation || aapl.Action != models.ActionHold {
		t.Errorf("AAPL should default to pending HOLD, got %+v", aapl)
	}
	if aapl.Quote == nil || aapl.Quote.Price != 190.5 {
		t.Errorf("AAPL quote not merged: %+v", aapl.Quote)
	}
	if aapl.PriceLoading {
		t.Errorf("AAPL still loading after quote patch")
	}

	msft := got["MSFT"]
	if !msft.HasRecommendation || msft.Action != models.ActionBuy || msft.Confidence != 0.9 {
		t.Errorf("MSFT recommendation not merged: %+v", msft)
	}

	// GOOG got a recommendation but no quote: loading cleared, no price.
	goog := got["GOOG"]
	if goog.Action != models.ActionSell {
		t.Errorf("GOOG recommendation not merged: %+v", goog)
	}
	if goog.Quote != nil {
		t.Errorf("GOOG should have no quote, got %+v", goog.Quote)
	}
	if goog.PriceLoading {
		t.Errorf("GOOG loading flag not cleared after attempted fetch")
	}
}

func TestSyncPublishesSkeletonBeforeQuotes(t *testing.T) {
	client := &fakeClient{
		recs: []models.Recommendation{
			{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.8},
		},
		quotes: map[string]models.Quote{"AAPL": {Symbol: "AAPL", Price: 190.5}},
	}
	sync, rows := newTestSynchronizer(client, nil)

	// By the time the quote fetch fires, the skeleton must already be
	// published with recommendations merged and prices loading.
	client.quoteHook = func(symbols []string) {
		snap := rows.Snapshot()
		if len(snap) != 1 {
			t.Errorf("skeleton not published before quote fetch: %d rows", len(snap))
			return
		}
		if !snap[0].HasRecommendation {
			t.Errorf("skeleton missing recommendation: %+v", snap[0])
		}
		if !snap[0].PriceLoading {
			t.Errorf("skeleton row not in loading state")
		}
	}

	sync.Sync(context.Background(), watchlist("AAPL"))
}

func TestSyncEmptyWatchlist(t *testing.T) {
	client := &fakeClient{}
	sync, rows := newTestSynchronizer(client, nil)

	rows.Replace([]models.DisplayRow{entryRow("STALE")})
	sync.Sync(context.Background(), nil)

	if got := rows.Snapshot(); len(got) != 0 {
		t.Errorf("expected empty row set, got %d rows", len(got))
	}
	if client.recCalls != 0 || client.quoteCallCount() != 0 {
		t.Errorf("expected no remote calls for empty watchlist, got recs=%d quotes=%d",
			client.recCalls, client.quoteCallCount())
	}
}

func TestSyncRecommendationFailureDegradesToPending(t *testing.T) {
	client := &fakeClient{
		recsErr: errors.New("recommendation service down"),
		quotes:  map[string]models.Quote{"AAPL": {Symbol: "AAPL", Price: 190.5}},
	}
	sync, rows := newTestSynchronizer(client, nil)

	sync.Sync(context.Background(), watchlist("AAPL"))

	got := rowsBySymbol(rows.Snapshot())
	aapl := got["AAPL"]
	if aapl.HasRecommendation || aapl.Action != models.ActionHold {
		t.Errorf("expected pending default on recommendation failure, got %+v", aapl)
	}
	// Quote enrichment still ran.
	if aapl.Quote == nil {
		t.Errorf("quote enrichment skipped after recommendation failure")
	}
	if client.quoteCallCount() == 0 {
		t.Errorf("expected quote fetch despite recommendation failure")
	}
}

func TestSyncUsesFreshCachedRecommendationsOnFailure(t *testing.T) {
	cache := newFakeCache()
	cache.recs = []models.Recommendation{{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.6}}
	cache.syncTimes[store.SyncTypeRecommendations] = time.Now().Add(-5 * time.Minute)

	client := &fakeClient{recsErr: errors.New("recommendation service down")}
	sync, rows := newTestSynchronizer(client, cache)

	sync.Sync(context.Background(), watchlist("AAPL"))

	aapl := rowsBySymbol(rows.Snapshot())["AAPL"]
	if !aapl.HasRecommendation || aapl.Action != models.ActionBuy {
		t.Errorf("expected cached recommendation fallback, got %+v", aapl)
	}
}

func TestSyncIgnoresStaleCachedRecommendations(t *testing.T) {
	cache := newFakeCache()
	cache.recs = []models.Recommendation{{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.6}}
	cache.syncTimes[store.SyncTypeRecommendations] = time.Now().Add(-3 * time.Hour)

	client := &fakeClient{recsErr: errors.New("recommendation service down")}
	sync, rows := newTestSynchronizer(client, cache)

	sync.Sync(context.Background(), watchlist("AAPL"))

	aapl := rowsBySymbol(rows.Snapshot())["AAPL"]
	if aapl.HasRecommendation {
		t.Errorf("stale cache must not serve as fallback, got %+v", aapl)
	}
}

func TestSyncPersistsSnapshots(t *testing.T) {
	cache := newFakeCache()
	client := &fakeClient{
		recs: []models.Recommendation{{Symbol: "AAPL", Action: models.ActionBuy, Confidence: 0.8}},
	}
	sync, _ := newTestSynchronizer(client, cache)

	sync.Sync(context.Background(), watchlist("AAPL"))

	if len(cache.watchlist) != 1 {
		t.Errorf("watchlist snapshot not persisted")
	}
	if len(cache.recs) != 1 {
		t.Errorf("recommendation snapshot not persisted")
	}
	if cache.GetLastSync(store.SyncTypeWatchlist).IsZero() {
		t.Errorf("watchlist sync time not recorded")
	}
	if cache.GetLastSync(store.SyncTypeRecommendations).IsZero() {
		t.Errorf("recommendation sync time not recorded")
	}
}

func TestResyncFetchesWatchlist(t *testing.T) {
	client := &fakeClient{}
	client.onboarding.Watchlist = watchlist("AAPL", "MSFT")
	sync, rows := newTestSynchronizer(client, nil)

	if err := sync.Resync(context.Background()); err != nil {
		t.Fatalf("Resync failed: %v", err)
	}

	if got := len(rows.Snapshot()); got != 2 {
		t.Errorf("expected 2 rows after resync, got %d", got)
	}
	if client.onboardingCalls != 1 {
		t.Errorf("expected 1 onboarding call, got %d", client.onboardingCalls)
	}
}

func TestResyncSurfacesOnboardingError(t *testing.T) {
	client := &fakeClient{onboardingErr: errors.New("unauthorized")}
	sync, rows := newTestSynchronizer(client, nil)
	rows.Replace([]models.DisplayRow{entryRow("KEEP")})

	if err := sync.Resync(context.Background()); err == nil {
		t.Fatal("expected error from failed onboarding fetch")
	}

	// The previous row set survives a failed resync.
	if got := len(rows.Snapshot()); got != 1 {
		t.Errorf("row set changed after failed resync: %d rows", got)
	}
}
