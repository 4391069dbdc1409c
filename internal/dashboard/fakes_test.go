package dashboard

import (
	"context"
	"sync"
	"time"

	"tradedesk/internal/api"
	"tradedesk/internal/models"
	"tradedesk/internal/store"
)

// statusStep is one scripted response of the generation-status endpoint.
type statusStep struct {
	status models.GenerationStatus
	err    error
}

// fakeClient is a scripted api.Client for controller and synchronizer
// tests. Fields are guarded by mu because the poll loop runs on its own
// goroutine.
type fakeClient struct {
	mu sync.Mutex

	onboarding    api.OnboardingData
	onboardingErr error

	recs    []models.Recommendation
	recsErr error

	quotes     map[string]models.Quote
	quotesErr  error
	quoteHook  func(symbols []string)
	quoteCalls [][]string

	triggerErr   error
	triggerCalls [][]string

	statuses        []statusStep
	statusIdx       int
	statusCalls     int
	onboardingCalls int
	recCalls        int
}

func (f *fakeClient) FetchOnboardingData(ctx context.Context, userID string) (*api.OnboardingData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onboardingCalls++
	if f.onboardingErr != nil {
		return nil, f.onboardingErr
	}
	data := f.onboarding
	return &data, nil
}

func (f *fakeClient) FetchRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.recCalls++
	if f.recsErr != nil {
		return nil, f.recsErr
	}
	out := make([]models.Recommendation, len(f.recs))
	copy(out, f.recs)
	return out, nil
}

func (f *fakeClient) TriggerGeneration(ctx context.Context, symbols []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]string, len(symbols))
	copy(batch, symbols)
	f.triggerCalls = append(f.triggerCalls, batch)
	return f.triggerErr
}

func (f *fakeClient) FetchGenerationStatus(ctx context.Context) (*models.GenerationStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statusCalls++
	if f.statusIdx >= len(f.statuses) {
		return &models.GenerationStatus{Status: models.GenerationStatusRunning}, nil
	}
	step := f.statuses[f.statusIdx]
	f.statusIdx++
	if step.err != nil {
		return nil, step.err
	}
	status := step.status
	return &status, nil
}

func (f *fakeClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	f.mu.Lock()
	batch := make([]string, len(symbols))
	copy(batch, symbols)
	f.quoteCalls = append(f.quoteCalls, batch)
	hook := f.quoteHook
	quotesErr := f.quotesErr
	out := make(map[string]models.Quote, len(symbols))
	for _, s := range symbols {
		if q, ok := f.quotes[s]; ok {
			out[s] = q
		}
	}
	f.mu.Unlock()

	// The hook runs outside the lock so it may block or inspect shared
	// state without deadlocking.
	if hook != nil {
		hook(symbols)
	}
	if quotesErr != nil {
		return nil, quotesErr
	}
	return out, nil
}

func (f *fakeClient) quoteCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.quoteCalls)
}

// fakeScheduler hands the poll loop externally driven channels so tests
// advance time deterministically.
type fakeScheduler struct {
	tick    chan time.Time
	timeout chan time.Time
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{
		tick:    make(chan time.Time),
		timeout: make(chan time.Time),
	}
}

func (f *fakeScheduler) Tick(d time.Duration) (<-chan time.Time, func()) {
	return f.tick, func() {}
}

func (f *fakeScheduler) After(d time.Duration) (<-chan time.Time, func()) {
	return f.timeout, func() {}
}

// countingResyncer counts Resync invocations.
type countingResyncer struct {
	mu    sync.Mutex
	count int
	err   error
}

func (r *countingResyncer) Resync(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	return r.err
}

func (r *countingResyncer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// fakeCache is an in-memory store.DataStore.
type fakeCache struct {
	mu        sync.Mutex
	watchlist []models.WatchlistEntry
	recs      []models.Recommendation
	syncTimes map[store.SyncDataType]time.Time
	getErr    error
}

func newFakeCache() *fakeCache {
	return &fakeCache{syncTimes: make(map[store.SyncDataType]time.Time)}
}

func (c *fakeCache) SaveWatchlist(ctx context.Context, entries []models.WatchlistEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.watchlist = entries
	return nil
}

func (c *fakeCache) GetWatchlist(ctx context.Context) ([]models.WatchlistEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watchlist, c.getErr
}

func (c *fakeCache) SaveRecommendations(ctx context.Context, recs []models.Recommendation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.recs = recs
	return nil
}

func (c *fakeCache) GetRecommendations(ctx context.Context) ([]models.Recommendation, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recs, c.getErr
}

func (c *fakeCache) GetLastSync(dataType store.SyncDataType) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.syncTimes[dataType]
}

func (c *fakeCache) SetLastSync(dataType store.SyncDataType, t time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncTimes[dataType] = t
	return nil
}

func (c *fakeCache) Close() error { return nil }
