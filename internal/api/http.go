package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "tradedesk/internal/errors"
	"tradedesk/internal/logging"
	"tradedesk/internal/models"
	"tradedesk/pkg/utils"
)

// HTTPConfig holds configuration for the HTTP API client.
type HTTPConfig struct {
	BaseURL  string
	APIToken string
	Timeout  time.Duration
}

// HTTPClient implements Client against the trading-assistant HTTP backend.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryCfg   utils.RetryConfig
	logger     zerolog.Logger
}

// NewHTTPClient creates a new HTTP API client.
func NewHTTPClient(cfg HTTPConfig, logger zerolog.Logger) *HTTPClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIToken,
		httpClient: &http.Client{Timeout: timeout},
		retryCfg:   utils.DefaultRetryConfig(),
		logger:     logging.WithComponent(logger, "api"),
	}
}

type watchlistEntryDTO struct {
	ID          string `json:"id"`
	Symbol      string `json:"symbol"`
	CompanyName string `json:"companyName"`
	Exchange    string `json:"exchange"`
}

type connectionDTO struct {
	ID        string `json:"id"`
	Brokerage string `json:"brokerage"`
	Status    string `json:"status"`
}

type onboardingDTO struct {
	Watchlist            []watchlistEntryDTO `json:"watchlist"`
	BrokerageConnections []connectionDTO     `json:"brokerageConnections"`
}

type recommendationDTO struct {
	Symbol     string  `json:"symbol"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
}

type generationStatusDTO struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage"`
}

type quoteDTO struct {
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"changePercent"`
	MarketCap     float64 `json:"marketCap"`
}

type errorDTO struct {
	Error string `json:"error"`
}

// FetchOnboardingData returns the user's watchlist and brokerage connections.
func (c *HTTPClient) FetchOnboardingData(ctx context.Context, userID string) (*OnboardingData, error) {
	if userID == "" {
		return nil, apperrors.NewValidationError("userID", userID, "must not be empty")
	}

	endpoint := "/api/onboarding/" + url.PathEscape(userID)
	dto, err := utils.RetryWithResult(ctx, c.retryCfg, func() (*onboardingDTO, error) {
		var out onboardingDTO
		if err := c.get(ctx, endpoint, nil, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		return nil, err
	}

	data := &OnboardingData{
		Watchlist:   make([]models.WatchlistEntry, 0, len(dto.Watchlist)),
		Connections: make([]models.Connection, 0, len(dto.BrokerageConnections)),
	}
	for _, e := range dto.Watchlist {
		data.Watchlist = append(data.Watchlist, models.WatchlistEntry{
			ID:          e.ID,
			Symbol:      models.NormalizeSymbol(e.Symbol),
			CompanyName: e.CompanyName,
			Exchange:    e.Exchange,
		})
	}
	for _, conn := range dto.BrokerageConnections {
		data.Connections = append(data.Connections, models.Connection{
			ID:        conn.ID,
			Brokerage: conn.Brokerage,
			Status:    conn.Status,
		})
	}
	return data, nil
}

// FetchRecommendations returns up to limit latest recommendations.
func (c *HTTPClient) FetchRecommendations(ctx context.Context, limit int) ([]models.Recommendation, error) {
	if limit <= 0 || limit > MaxRecommendationLimit {
		return nil, apperrors.NewValidationError("limit", limit,
			fmt.Sprintf("must be between 1 and %d", MaxRecommendationLimit))
	}

	query := url.Values{"limit": []string{strconv.Itoa(limit)}}
	dtos, err := utils.RetryWithResult(ctx, c.retryCfg, func() ([]recommendationDTO, error) {
		var out []recommendationDTO
		if err := c.get(ctx, "/api/recommendations", query, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}

	recs := make([]models.Recommendation, 0, len(dtos))
	for _, d := range dtos {
		recs = append(recs, models.Recommendation{
			Symbol:     models.NormalizeSymbol(d.Symbol),
			Action:     models.Action(strings.ToUpper(d.Action)),
			Confidence: d.Confidence,
		})
	}
	return recs, nil
}

// TriggerGeneration starts a server-side generation job. Not retried:
// a duplicate trigger could start a second server-side job.
func (c *HTTPClient) TriggerGeneration(ctx context.Context, symbols []string) error {
	if len(symbols) == 0 {
		return apperrors.ErrNoSymbols
	}

	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = models.NormalizeSymbol(s)
	}

	body := struct {
		Symbols []string `json:"symbols"`
	}{Symbols: normalized}

	return c.post(ctx, "/api/recommendations/generate", body)
}

// FetchGenerationStatus returns the server-reported generation status.
// Not retried: the poll loop tolerates individual tick failures.
func (c *HTTPClient) FetchGenerationStatus(ctx context.Context) (*models.GenerationStatus, error) {
	var dto generationStatusDTO
	if err := c.get(ctx, "/api/recommendations/generation-status", nil, &dto); err != nil {
		return nil, err
	}
	return &models.GenerationStatus{
		Status:     strings.ToLower(dto.Status),
		ErrMessage: dto.ErrorMessage,
	}, nil
}

// FetchQuotes returns real-time quotes keyed by normalized symbol.
func (c *HTTPClient) FetchQuotes(ctx context.Context, symbols []string) (map[string]models.Quote, error) {
	if len(symbols) == 0 {
		return map[string]models.Quote{}, nil
	}
	if len(symbols) > MaxQuoteSymbols {
		return nil, apperrors.NewValidationError("symbols", len(symbols),
			fmt.Sprintf("exceeds %d symbols per request", MaxQuoteSymbols))
	}

	normalized := make([]string, len(symbols))
	for i, s := range symbols {
		normalized[i] = models.NormalizeSymbol(s)
	}

	query := url.Values{"symbols": []string{strings.Join(normalized, ",")}}
	var dto map[string]quoteDTO
	if err := c.get(ctx, "/api/quotes", query, &dto); err != nil {
		return nil, err
	}

	quotes := make(map[string]models.Quote, len(dto))
	for sym, q := range dto {
		key := models.NormalizeSymbol(sym)
		quotes[key] = models.Quote{
			Symbol:        key,
			Price:         q.Price,
			Change:        q.Change,
			ChangePercent: q.ChangePercent,
			MarketCap:     q.MarketCap,
		}
	}
	return quotes, nil
}

func (c *HTTPClient) get(ctx context.Context, endpoint string, query url.Values, out interface{}) error {
	u := c.baseURL + endpoint
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return apperrors.Wrapf(err, "building request for %s", endpoint)
	}
	return c.do(req, endpoint, out)
}

func (c *HTTPClient) post(ctx context.Context, endpoint string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrapf(err, "encoding request for %s", endpoint)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return apperrors.Wrapf(err, "building request for %s", endpoint)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, endpoint, nil)
}

func (c *HTTPClient) do(req *http.Request, endpoint string, out interface{}) error {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	logging.LogAPICall(c.logger, req.Method, endpoint, time.Since(start), err)
	if err != nil {
		return apperrors.Wrapf(err, "calling %s", endpoint)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return apperrors.NewAPIError(resp.StatusCode, endpoint, "rate limited", apperrors.ErrRateLimited)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "request failed"
		var e errorDTO
		if body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096)); readErr == nil {
			if json.Unmarshal(body, &e) == nil && e.Error != "" {
				msg = e.Error
			}
		}
		return apperrors.NewAPIError(resp.StatusCode, endpoint, msg, nil)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apperrors.Wrapf(err, "decoding response from %s", endpoint)
	}
	return nil
}
