// Package models provides domain models for the trading assistant dashboard.
package models

import "strings"

// Action represents a recommendation action.
type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

// OrderType represents the type of an order ticket.
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
)

// WatchlistEntry represents one tracked symbol from the remote watchlist.
// Entries are immutable per load and uniquely keyed by ID; only the remote
// watchlist collaborator adds or removes them.
type WatchlistEntry struct {
	ID          string
	Symbol      string
	CompanyName string
	Exchange    string
}

// Quote represents a real-time market price snapshot for a symbol.
// A nil *Quote means "no data", which is distinct from a zero price.
type Quote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	MarketCap     float64
}

// Recommendation represents a server-computed trading signal, valid for
// one generation cycle. At most one exists per symbol per cycle.
type Recommendation struct {
	Symbol     string
	Action     Action
	Confidence float64 // 0..1
}

// DisplayRow merges one watchlist entry with its optional recommendation
// and optional quote. A row exists iff the watchlist entry exists; a
// missing recommendation is encoded as HasRecommendation=false with
// ActionHold and zero confidence, never as a missing row.
type DisplayRow struct {
	Entry             WatchlistEntry
	Action            Action
	Confidence        float64
	HasRecommendation bool
	Quote             *Quote
	PriceLoading      bool
}

// NewDisplayRow builds the default row for an entry: pending recommendation,
// no quote yet, price loading.
func NewDisplayRow(entry WatchlistEntry) DisplayRow {
	return DisplayRow{
		Entry:        entry,
		Action:       ActionHold,
		Confidence:   0,
		PriceLoading: true,
	}
}

// NormalizeSymbol returns the canonical form of a symbol. Watchlist,
// recommendation and quote surfaces disagree on casing upstream, so every
// ingestion point normalizes through here.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// Connection represents a linked brokerage connection from onboarding.
type Connection struct {
	ID        string
	Brokerage string
	Status    string
}

// OrderTicket is the record handed to the trade-execution flow for a
// selected row. Execution itself happens outside this application.
type OrderTicket struct {
	Symbol       string
	Action       Action
	Quantity     int
	OrderType    OrderType
	ConnectionID string
}

// NewOrderTicket derives an order ticket from a display row.
func NewOrderTicket(row DisplayRow, quantity int, orderType OrderType, connectionID string) OrderTicket {
	return OrderTicket{
		Symbol:       NormalizeSymbol(row.Entry.Symbol),
		Action:       row.Action,
		Quantity:     quantity,
		OrderType:    orderType,
		ConnectionID: connectionID,
	}
}
