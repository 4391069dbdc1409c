// Package dashboard keeps the watchlist dashboard's canonical row set in
// sync with the remote watchlist, recommendation and quote sources.
package dashboard

import (
	"sync"

	"tradedesk/internal/models"
)

// RowStore is the single authoritative holder of the canonical display
// row set. Every write goes through Replace or Apply under one lock, so
// an asynchronous patch always merges over the latest state rather than
// a snapshot captured when its network call began. Subscribers receive
// a fresh snapshot after each publish.
type RowStore struct {
	mu   sync.RWMutex
	rows []models.DisplayRow

	subMu sync.RWMutex
	subs  []chan []models.DisplayRow
}

// NewRowStore creates an empty row store.
func NewRowStore() *RowStore {
	return &RowStore{}
}

// Snapshot returns a copy of the current row set.
func (s *RowStore) Snapshot() []models.DisplayRow {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRows(s.rows)
}

// Symbols returns the normalized symbols of the current row set, in row
// order, duplicates preserved.
func (s *RowStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	symbols := make([]string, len(s.rows))
	for i, row := range s.rows {
		symbols[i] = models.NormalizeSymbol(row.Entry.Symbol)
	}
	return symbols
}

// Replace swaps in a wholly new row set.
func (s *RowStore) Replace(rows []models.DisplayRow) {
	s.mu.Lock()
	s.rows = cloneRows(rows)
	snapshot := cloneRows(s.rows)
	s.mu.Unlock()

	s.publish(snapshot)
}

// Apply runs a pure merge function against the latest row set and
// installs its result atomically. The input slice is a copy; the patch
// may mutate and return it.
func (s *RowStore) Apply(patch func(rows []models.DisplayRow) []models.DisplayRow) {
	s.mu.Lock()
	s.rows = patch(cloneRows(s.rows))
	snapshot := cloneRows(s.rows)
	s.mu.Unlock()

	s.publish(snapshot)
}

// Subscribe returns a channel that receives a row-set snapshot after
// every publish. The channel holds only the most recent snapshot: a slow
// consumer sees the latest state, not a backlog.
func (s *RowStore) Subscribe() <-chan []models.DisplayRow {
	ch := make(chan []models.DisplayRow, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

func (s *RowStore) publish(snapshot []models.DisplayRow) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, ch := range s.subs {
		// Latest-wins delivery: drop the stale pending snapshot if the
		// consumer has not drained it yet.
		select {
		case ch <- snapshot:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snapshot:
			default:
			}
		}
	}
}

func cloneRows(rows []models.DisplayRow) []models.DisplayRow {
	out := make([]models.DisplayRow, len(rows))
	copy(out, rows)
	return out
}
