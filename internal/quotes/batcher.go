// Package quotes fetches real-time market quotes in rate-limit-friendly batches.
package quotes

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"tradedesk/internal/api"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
)

// Fetcher is the single-request quote source consumed by the batcher.
// api.Client satisfies it.
type Fetcher interface {
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}

// BatcherConfig holds quote batching configuration.
type BatcherConfig struct {
	// BatchSize is the number of symbols per request. Kept below the
	// backend's hard cap of api.MaxQuoteSymbols.
	BatchSize int
	// Pause is the delay between consecutive batch requests.
	Pause time.Duration
}

// DefaultBatcherConfig returns the default batching configuration.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize: 40,
		Pause:     100 * time.Millisecond,
	}
}

// Batcher splits a symbol list into bounded batches and fetches them
// sequentially, pacing requests to respect backend rate limits.
type Batcher struct {
	fetcher Fetcher
	config  BatcherConfig
	logger  zerolog.Logger

	// pause is swapped out by tests to avoid real delays.
	pause func(ctx context.Context, d time.Duration)
}

// NewBatcher creates a new quote batcher.
func NewBatcher(fetcher Fetcher, cfg BatcherConfig, logger zerolog.Logger) *Batcher {
	if cfg.BatchSize <= 0 || cfg.BatchSize > api.MaxQuoteSymbols {
		cfg.BatchSize = DefaultBatcherConfig().BatchSize
	}
	return &Batcher{
		fetcher: fetcher,
		config:  cfg,
		logger:  logging.WithComponent(logger, "quotes"),
		pause:   sleepCtx,
	}
}

// Fetch returns quotes for the given symbols, keyed by normalized symbol.
// The input is not deduplicated. Batches are issued sequentially with a
// pause between them; a failing batch is logged and skipped, so the
// result key set is a subset of the input and Fetch never fails as a
// whole. An empty input returns an empty map without any request.
func (b *Batcher) Fetch(ctx context.Context, symbols []string) map[string]models.Quote {
	result := make(map[string]models.Quote, len(symbols))
	if len(symbols) == 0 {
		return result
	}

	for start := 0; start < len(symbols); start += b.config.BatchSize {
		if start > 0 {
			b.pause(ctx, b.config.Pause)
		}
		if ctx.Err() != nil {
			b.logger.Warn().Err(ctx.Err()).Msg("quote fetch cancelled, returning partial result")
			return result
		}

		end := start + b.config.BatchSize
		if end > len(symbols) {
			end = len(symbols)
		}
		batch := symbols[start:end]

		got, err := b.fetcher.FetchQuotes(ctx, batch)
		if err != nil {
			b.logger.Warn().
				Err(err).
				Int("batch_start", start).
				Int("batch_size", len(batch)).
				Msg("Quote batch failed, skipping")
			continue
		}

		for sym, q := range got {
			result[models.NormalizeSymbol(sym)] = q
		}
	}

	return result
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
