package dashboard

import (
	"context"
	"sync/atomic"

	"github.com/rs/zerolog"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
	"tradedesk/internal/quotes"
)

// RefreshCoordinator re-fetches quotes for the current canonical row
// set. A boolean guard makes overlapping refreshes a no-op: a second
// invocation while one is in flight performs zero network calls and is
// neither queued nor merged.
type RefreshCoordinator struct {
	batcher  *quotes.Batcher
	rows     *RowStore
	logger   zerolog.Logger
	inFlight atomic.Bool
}

// NewRefreshCoordinator creates a new refresh coordinator.
func NewRefreshCoordinator(batcher *quotes.Batcher, rows *RowStore, logger zerolog.Logger) *RefreshCoordinator {
	return &RefreshCoordinator{
		batcher: batcher,
		rows:    rows,
		logger:  logging.WithComponent(logger, "refresh"),
	}
}

// InProgress reports whether a refresh is currently in flight.
func (c *RefreshCoordinator) InProgress() bool {
	return c.inFlight.Load()
}

// Refresh re-fetches quotes for every row. Rows whose symbol returns no
// quote keep their previous price (stale but present) with the loading
// flag cleared; a total fetch failure likewise clears the loading flags
// and leaves prices untouched. Rows swapped in by a newer sync while the
// fetch is in flight keep their own loading state. Returns
// ErrRefreshInProgress when another refresh holds the guard.
func (c *RefreshCoordinator) Refresh(ctx context.Context) error {
	if !c.inFlight.CompareAndSwap(false, true) {
		c.logger.Debug().Msg("Refresh already in progress, ignoring")
		return apperrors.ErrRefreshInProgress
	}
	// Guard is released only once the batch fetch has completed,
	// success or failure.
	defer c.inFlight.Store(false)

	c.rows.Apply(func(rows []models.DisplayRow) []models.DisplayRow {
		for i := range rows {
			rows[i].PriceLoading = true
		}
		return rows
	})

	symbols := c.rows.Symbols()
	if len(symbols) == 0 {
		return nil
	}
	attempted := make(map[string]bool, len(symbols))
	for _, sym := range symbols {
		attempted[sym] = true
	}

	fetched := c.batcher.Fetch(ctx, symbols)
	c.rows.Apply(func(rows []models.DisplayRow) []models.DisplayRow {
		return patchQuotes(rows, fetched, attempted)
	})

	c.logger.Debug().
		Int("symbols", len(symbols)).
		Int("quotes", len(fetched)).
		Msg("Price refresh completed")
	return nil
}
