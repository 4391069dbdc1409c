// Package store provides local persistence of fetched snapshots, used
// for offline fallback and data-freshness reporting.
package store

import (
	"context"
	"fmt"
	"time"

	"tradedesk/internal/models"
)

// SyncDataType represents the type of data being cached.
type SyncDataType string

const (
	SyncTypeWatchlist       SyncDataType = "watchlist"
	SyncTypeRecommendations SyncDataType = "recommendations"
)

// DataStore defines the interface for snapshot persistence.
type DataStore interface {
	// Watchlist snapshot
	SaveWatchlist(ctx context.Context, entries []models.WatchlistEntry) error
	GetWatchlist(ctx context.Context) ([]models.WatchlistEntry, error)

	// Recommendation snapshot
	SaveRecommendations(ctx context.Context, recs []models.Recommendation) error
	GetRecommendations(ctx context.Context) ([]models.Recommendation, error)

	// Sync bookkeeping
	GetLastSync(dataType SyncDataType) time.Time
	SetLastSync(dataType SyncDataType, t time.Time) error

	// Lifecycle
	Close() error
}

// DataFreshness represents the freshness of a cached snapshot.
type DataFreshness struct {
	DataType    SyncDataType
	LastUpdated time.Time
	IsFresh     bool
	Age         time.Duration
}

// DefaultStaleThresholds returns how old cached data may be, in minutes,
// before it is considered stale.
func DefaultStaleThresholds() map[SyncDataType]int {
	return map[SyncDataType]int{
		SyncTypeWatchlist:       60,
		SyncTypeRecommendations: 60,
	}
}

// Freshness computes the freshness of a data type against a staleness
// threshold in minutes.
func Freshness(s DataStore, dataType SyncDataType, thresholdMinutes int) DataFreshness {
	if thresholdMinutes <= 0 {
		thresholdMinutes = 60
	}

	lastSync := s.GetLastSync(dataType)
	age := time.Since(lastSync)

	return DataFreshness{
		DataType:    dataType,
		LastUpdated: lastSync,
		IsFresh:     !lastSync.IsZero() && age < time.Duration(thresholdMinutes)*time.Minute,
		Age:         age,
	}
}

// FormatFreshness returns a human-readable freshness string.
func FormatFreshness(f DataFreshness) string {
	if f.LastUpdated.IsZero() {
		return fmt.Sprintf("%s: never synced", f.DataType)
	}

	var ageStr string
	switch {
	case f.Age < time.Minute:
		ageStr = "just now"
	case f.Age < time.Hour:
		ageStr = fmt.Sprintf("%d minutes ago", int(f.Age.Minutes()))
	case f.Age < 24*time.Hour:
		ageStr = fmt.Sprintf("%d hours ago", int(f.Age.Hours()))
	default:
		ageStr = fmt.Sprintf("%d days ago", int(f.Age.Hours()/24))
	}

	if f.IsFresh {
		return fmt.Sprintf("%s: updated %s", f.DataType, ageStr)
	}
	return fmt.Sprintf("%s: stale, updated %s", f.DataType, ageStr)
}
