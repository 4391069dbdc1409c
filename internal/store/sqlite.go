package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"tradedesk/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[SyncDataType]time.Time
}

// NewSQLiteStore creates a new SQLite-based snapshot store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	s := &SQLiteStore{
		db:        db,
		syncTimes: make(map[SyncDataType]time.Time),
	}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.loadSyncTimes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load sync status: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	-- Last successful watchlist snapshot
	CREATE TABLE IF NOT EXISTS watchlist (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		company_name TEXT,
		exchange TEXT,
		position INTEGER NOT NULL
	);

	-- Last successful recommendation snapshot, one row per symbol
	CREATE TABLE IF NOT EXISTS recommendations (
		symbol TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		confidence REAL NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Per-data-type sync bookkeeping
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) loadSyncTimes() error {
	rows, err := s.db.Query(`SELECT data_type, last_sync FROM sync_status`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var dataType string
		var lastSync time.Time
		if err := rows.Scan(&dataType, &lastSync); err != nil {
			return err
		}
		s.syncTimes[SyncDataType(dataType)] = lastSync
	}
	return rows.Err()
}

// SaveWatchlist replaces the cached watchlist snapshot wholesale.
func (s *SQLiteStore) SaveWatchlist(ctx context.Context, entries []models.WatchlistEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM watchlist`); err != nil {
		return fmt.Errorf("failed to clear watchlist: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO watchlist (id, symbol, company_name, exchange, position) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ID, models.NormalizeSymbol(e.Symbol), e.CompanyName, e.Exchange, i); err != nil {
			return fmt.Errorf("failed to insert watchlist entry %s: %w", e.Symbol, err)
		}
	}

	return tx.Commit()
}

// GetWatchlist returns the cached watchlist snapshot in original order.
func (s *SQLiteStore) GetWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, symbol, company_name, exchange FROM watchlist ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []models.WatchlistEntry
	for rows.Next() {
		var e models.WatchlistEntry
		if err := rows.Scan(&e.ID, &e.Symbol, &e.CompanyName, &e.Exchange); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// SaveRecommendations replaces the cached recommendation snapshot wholesale.
func (s *SQLiteStore) SaveRecommendations(ctx context.Context, recs []models.Recommendation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM recommendations`); err != nil {
		return fmt.Errorf("failed to clear recommendations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT OR REPLACE INTO recommendations (symbol, action, confidence, updated_at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, r := range recs {
		if _, err := stmt.ExecContext(ctx, models.NormalizeSymbol(r.Symbol), string(r.Action), r.Confidence, now); err != nil {
			return fmt.Errorf("failed to insert recommendation %s: %w", r.Symbol, err)
		}
	}

	return tx.Commit()
}

// GetRecommendations returns the cached recommendation snapshot.
func (s *SQLiteStore) GetRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT symbol, action, confidence FROM recommendations ORDER BY symbol`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recommendations: %w", err)
	}
	defer rows.Close()

	var recs []models.Recommendation
	for rows.Next() {
		var r models.Recommendation
		var action string
		if err := rows.Scan(&r.Symbol, &action, &r.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan recommendation: %w", err)
		}
		r.Action = models.Action(action)
		recs = append(recs, r)
	}
	return recs, rows.Err()
}

// GetLastSync returns the last successful sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType SyncDataType) time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.syncTimes[dataType]
}

// SetLastSync records a successful sync for a data type.
func (s *SQLiteStore) SetLastSync(dataType SyncDataType, t time.Time) error {
	_, err := s.db.Exec(
		`INSERT INTO sync_status (data_type, last_sync) VALUES (?, ?)
		 ON CONFLICT(data_type) DO UPDATE SET last_sync = excluded.last_sync`,
		string(dataType), t.UTC())
	if err != nil {
		return fmt.Errorf("failed to record sync time: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
