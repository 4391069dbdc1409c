// Package api provides the remote trading-assistant API contracts.
package api

import (
	"context"

	"tradedesk/internal/models"
)

// External request limits enforced by the backend.
const (
	// MaxQuoteSymbols is the hard cap on symbols per quote request.
	MaxQuoteSymbols = 50
	// MaxRecommendationLimit is the hard cap on recommendations per fetch.
	MaxRecommendationLimit = 500
)

// OnboardingData is the payload returned for a user's onboarding state.
type OnboardingData struct {
	Watchlist   []models.WatchlistEntry
	Connections []models.Connection
}

// Client defines the remote trading-assistant API surface consumed by
// the dashboard. Concrete transport lives behind this interface.
type Client interface {
	// FetchOnboardingData returns the user's watchlist and brokerage
	// connections.
	FetchOnboardingData(ctx context.Context, userID string) (*OnboardingData, error)

	// FetchRecommendations returns up to limit latest recommendations,
	// at most one per symbol. limit must not exceed MaxRecommendationLimit.
	FetchRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error)

	// TriggerGeneration starts a server-side recommendation generation
	// job for the given symbols. Fails if symbols is empty.
	TriggerGeneration(ctx context.Context, symbols []string) error

	// FetchGenerationStatus returns the server-reported status of the
	// current generation job.
	FetchGenerationStatus(ctx context.Context) (*models.GenerationStatus, error)

	// FetchQuotes returns real-time quotes keyed by symbol. len(symbols)
	// must not exceed MaxQuoteSymbols. Symbols the backend has no data
	// for are absent from the result.
	FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error)
}
