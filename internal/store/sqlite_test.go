package store

import (
	"context"
	"testing"
	"time"

	"tradedesk/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWatchlistSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	entries := []models.WatchlistEntry{
		{ID: "wl-1", Symbol: "MSFT", CompanyName: "Microsoft Corp", Exchange: "NASDAQ"},
		{ID: "wl-2", Symbol: "AAPL", CompanyName: "Apple Inc", Exchange: "NASDAQ"},
	}
	if err := s.SaveWatchlist(ctx, entries); err != nil {
		t.Fatalf("SaveWatchlist failed: %v", err)
	}

	got, err := s.GetWatchlist(ctx)
	if err != nil {
		t.Fatalf("GetWatchlist failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	// Snapshot order is preserved, not sorted.
	if got[0].Symbol != "MSFT" || got[1].Symbol != "AAPL" {
		t.Errorf("order not preserved: %s, %s", got[0].Symbol, got[1].Symbol)
	}
	if got[0].CompanyName != "Microsoft Corp" || got[0].Exchange != "NASDAQ" {
		t.Errorf("entry fields lost: %+v", got[0])
	}
}

func TestWatchlistSnapshotIsWholesale(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []models.WatchlistEntry{
		{ID: "wl-1", Symbol: "AAPL"},
		{ID: "wl-2", Symbol: "MSFT"},
	}
	if err := s.SaveWatchlist(ctx, first); err != nil {
		t.Fatalf("SaveWatchlist failed: %v", err)
	}

	second := []models.WatchlistEntry{{ID: "wl-3", Symbol: "GOOG"}}
	if err := s.SaveWatchlist(ctx, second); err != nil {
		t.Fatalf("second SaveWatchlist failed: %v", err)
	}

	got, err := s.GetWatchlist(ctx)
	if err != nil {
		t.Fatalf("GetWatchlist failed: %v", err)
	}
	if len(got) != 1 || got[0].Symbol != "GOOG" {
		t.Errorf("old snapshot survived the replace: %+v", got)
	}
}

func TestRecommendationSnapshotRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	recs := []models.Recommendation{
		{Symbol: "msft", Action: models.ActionBuy, Confidence: 0.9},
		{Symbol: "AAPL", Action: models.ActionHold, Confidence: 0.5},
	}
	if err := s.SaveRecommendations(ctx, recs); err != nil {
		t.Fatalf("SaveRecommendations failed: %v", err)
	}

	got, err := s.GetRecommendations(ctx)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 recommendations, got %d", len(got))
	}

	byn := make(map[string]models.Recommendation)
	for _, r := range got {
		byn[r.Symbol] = r
	}
	// Symbols are normalized at write time.
	msft, ok := byn["MSFT"]
	if !ok {
		t.Fatalf("normalized symbol missing, got %v", byn)
	}
	if msft.Action != models.ActionBuy || msft.Confidence != 0.9 {
		t.Errorf("recommendation fields lost: %+v", msft)
	}
}

func TestLastSyncRoundTrip(t *testing.T) {
	s := newTestStore(t)

	if got := s.GetLastSync(SyncTypeWatchlist); !got.IsZero() {
		t.Errorf("expected zero time before any sync, got %v", got)
	}

	now := time.Now()
	if err := s.SetLastSync(SyncTypeWatchlist, now); err != nil {
		t.Fatalf("SetLastSync failed: %v", err)
	}
	if got := s.GetLastSync(SyncTypeWatchlist); !got.Equal(now) {
		t.Errorf("GetLastSync = %v, want %v", got, now)
	}

	// Upsert, not insert-once.
	later := now.Add(time.Hour)
	if err := s.SetLastSync(SyncTypeWatchlist, later); err != nil {
		t.Fatalf("second SetLastSync failed: %v", err)
	}
	if got := s.GetLastSync(SyncTypeWatchlist); !got.Equal(later) {
		t.Errorf("GetLastSync after update = %v, want %v", got, later)
	}
}

func TestFreshness(t *testing.T) {
	s := newTestStore(t)

	f := Freshness(s, SyncTypeRecommendations, 60)
	if f.IsFresh {
		t.Errorf("never-synced data reported fresh")
	}

	if err := s.SetLastSync(SyncTypeRecommendations, time.Now().Add(-10*time.Minute)); err != nil {
		t.Fatalf("SetLastSync failed: %v", err)
	}
	f = Freshness(s, SyncTypeRecommendations, 60)
	if !f.IsFresh {
		t.Errorf("10-minute-old data reported stale at a 60-minute threshold")
	}

	if err := s.SetLastSync(SyncTypeRecommendations, time.Now().Add(-2*time.Hour)); err != nil {
		t.Fatalf("SetLastSync failed: %v", err)
	}
	f = Freshness(s, SyncTypeRecommendations, 60)
	if f.IsFresh {
		t.Errorf("2-hour-old data reported fresh at a 60-minute threshold")
	}
}

func TestFormatFreshness(t *testing.T) {
	tests := []struct {
		name string
		f    DataFreshness
		want string
	}{
		{
			"never synced",
			DataFreshness{DataType: SyncTypeWatchlist},
			"watchlist: never synced",
		},
		{
			"fresh just now",
			DataFreshness{DataType: SyncTypeWatchlist, LastUpdated: time.Now(), IsFresh: true, Age: 10 * time.Second},
			"watchlist: updated just now",
		},
		{
			"stale hours",
			DataFreshness{DataType: SyncTypeRecommendations, LastUpdated: time.Now(), IsFresh: false, Age: 3 * time.Hour},
			"recommendations: stale, updated 3 hours ago",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatFreshness(tt.f); got != tt.want {
				t.Errorf("FormatFreshness = %q, want %q", got, tt.want)
			}
		})
	}
}
