package dashboard

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/internal/api"
	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
	"tradedesk/internal/quotes"
	"tradedesk/internal/store"
)

// SynchronizerConfig holds synchronizer configuration.
type SynchronizerConfig struct {
	// UserID identifies whose onboarding data Resync fetches.
	UserID string
	// RecommendationLimit is the maximum recommendations per fetch,
	// capped at api.MaxRecommendationLimit.
	RecommendationLimit int
	// RecommendationStaleMinutes bounds how old a cached recommendation
	// snapshot may be before it no longer serves as a fallback.
	RecommendationStaleMinutes int
}

// Synchronizer merges the watchlist snapshot with the latest
// recommendations and enriches the resulting rows with quotes. Updates
// are two-phase: the recommendation-derived skeleton is published
// immediately so the view can render a loading state, then the slower
// quote patch lands when the batched fetch returns.
type Synchronizer struct {
	client  api.Client
	batcher *quotes.Batcher
	rows    *RowStore
	cache   store.DataStore // optional, may be nil
	config  SynchronizerConfig
	logger  zerolog.Logger
}

// NewSynchronizer creates a new synchronizer. cache may be nil, in which
// case snapshots are not persisted and no offline fallback applies.
func NewSynchronizer(client api.Client, batcher *quotes.Batcher, rows *RowStore, cache store.DataStore, cfg SynchronizerConfig, logger zerolog.Logger) *Synchronizer {
	if cfg.RecommendationLimit <= 0 || cfg.RecommendationLimit > api.MaxRecommendationLimit {
		cfg.RecommendationLimit = api.MaxRecommendationLimit
	}
	return &Synchronizer{
		client:  client,
		batcher: batcher,
		rows:    rows,
		cache:   cache,
		config:  cfg,
		logger:  logging.WithComponent(logger, "synchronizer"),
	}
}

// Rows returns the canonical row store.
func (s *Synchronizer) Rows() *RowStore {
	return s.rows
}

// Sync rebuilds the canonical row set from a watchlist snapshot. A
// failed recommendation fetch degrades every row to the pending default
// (or the cached snapshot, when fresh); quote enrichment proceeds
// regardless. An empty watchlist publishes an empty row set and makes
// no remote calls.
func (s *Synchronizer) Sync(ctx context.Context, watchlist []models.WatchlistEntry) {
	if len(watchlist) == 0 {
		s.rows.Replace(nil)
		return
	}

	s.persistWatchlist(ctx, watchlist)

	recs := s.fetchRecommendations(ctx)
	bySymbol := make(map[string]models.Recommendation, len(recs))
	for _, r := range recs {
		bySymbol[models.NormalizeSymbol(r.Symbol)] = r
	}

	// Phase 1: publish the skeleton so the view renders immediately.
	skeleton := make([]models.DisplayRow, 0, len(watchlist))
	attempted := make(map[string]bool, len(watchlist))
	symbols := make([]string, 0, len(watchlist))
	for _, entry := range watchlist {
		row := models.NewDisplayRow(entry)
		sym := models.NormalizeSymbol(entry.Symbol)
		if rec, ok := bySymbol[sym]; ok {
			row.Action = rec.Action
			row.Confidence = rec.Confidence
			row.HasRecommendation = true
		}
		skeleton = append(skeleton, row)
		attempted[sym] = true
		symbols = append(symbols, sym)
	}
	s.rows.Replace(skeleton)

	// Phase 2: quote enrichment over whatever the row set is by the
	// time the batch returns.
	fetched := s.batcher.Fetch(ctx, symbols)
	s.rows.Apply(func(rows []models.DisplayRow) []models.DisplayRow {
		return patchQuotes(rows, fetched, attempted)
	})
}

// Resync re-fetches the watchlist from the onboarding endpoint and runs
// a full Sync against it.
func (s *Synchronizer) Resync(ctx context.Context) error {
	data, err := s.client.FetchOnboardingData(ctx, s.config.UserID)
	if err != nil {
		return apperrors.Wrap(err, "fetching onboarding data")
	}
	s.Sync(ctx, data.Watchlist)
	return nil
}

// patchQuotes merges fetched quotes into the current rows by symbol.
// Rows whose symbol was part of this fetch get PriceLoading cleared even
// when no quote came back; rows added by a newer, independent sync keep
// their own loading state.
func patchQuotes(rows []models.DisplayRow, fetched map[string]models.Quote, attempted map[string]bool) []models.DisplayRow {
	for i := range rows {
		sym := models.NormalizeSymbol(rows[i].Entry.Symbol)
		if q, ok := fetched[sym]; ok {
			q := q
			rows[i].Quote = &q
			rows[i].PriceLoading = false
			continue
		}
		if attempted[sym] {
			rows[i].PriceLoading = false
		}
	}
	return rows
}

func (s *Synchronizer) fetchRecommendations(ctx context.Context) []models.Recommendation {
	recs, err := s.client.FetchRecommendations(ctx, s.config.RecommendationLimit)
	if err == nil {
		s.persistRecommendations(ctx, recs)
		return recs
	}

	s.logger.Warn().Err(err).Msg("Recommendation fetch failed, rows degrade to pending")

	if s.cache == nil {
		return nil
	}
	freshness := store.Freshness(s.cache, store.SyncTypeRecommendations, s.config.RecommendationStaleMinutes)
	if !freshness.IsFresh {
		return nil
	}
	cached, cacheErr := s.cache.GetRecommendations(ctx)
	if cacheErr != nil {
		s.logger.Warn().Err(cacheErr).Msg("Cached recommendation read failed")
		return nil
	}
	s.logger.Info().
		Int("count", len(cached)).
		Dur("age", freshness.Age).
		Msg("Using cached recommendation snapshot")
	return cached
}

func (s *Synchronizer) persistWatchlist(ctx context.Context, watchlist []models.WatchlistEntry) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveWatchlist(ctx, watchlist); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache watchlist snapshot")
		return
	}
	if err := s.cache.SetLastSync(store.SyncTypeWatchlist, time.Now()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record watchlist sync time")
	}
}

func (s *Synchronizer) persistRecommendations(ctx context.Context, recs []models.Recommendation) {
	if s.cache == nil {
		return
	}
	if err := s.cache.SaveRecommendations(ctx, recs); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to cache recommendation snapshot")
		return
	}
	if err := s.cache.SetLastSync(store.SyncTypeRecommendations, time.Now()); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to record recommendation sync time")
	}
}
