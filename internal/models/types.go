// Package models provides the trade, account and rule data structures shared by the
// scoring engine and its collaborators.
package models

import (
	"strings"
	"time"
)

// SharesPerContract is the standard equity option multiplier.
const SharesPerContract = 100.0

// OptionType is Call or Put.
type OptionType string

const (
	// Call option contract
	Call OptionType = "Call"
	// Put option contract
	Put OptionType = "Put"
)

// Letter returns the single-letter code used in leg display strings.
func (t OptionType) Letter() string {
	if t == Put {
		return "P"
	}
	return "C"
}

// Side is the order side of a parsed leg.
type Side string

const (
	// Buy opens a long leg
	Buy Side = "Buy"
	// Sell opens a short leg
	Sell Side = "Sell"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Direction is the net directional bias of a position.
type Direction string

const (
	Bullish Direction = "Bullish"
	Bearish Direction = "Bearish"
	Neutral Direction = "Neutral"
)

// Severity grades a discipline rule.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityInfo     Severity = "info"
)

// OptionLeg is one parsed option line of a multi-leg position.
type OptionLeg struct {
	Ticker     string     `json:"ticker"`
	Expiry     time.Time  `json:"expiry"`
	Strike     float64    `json:"strike"`
	OptionType OptionType `json:"option_type"`
	Side       Side       `json:"side"`
	Quantity   int        `json:"quantity"`
}

// OptionQuote is a live quote for a single option symbol.
type OptionQuote struct {
	Mark      float64   `json:"mark"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Last      float64   `json:"last"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Account is a point-in-time account snapshot.
type Account struct {
	ID          string    `json:"id"`
	Date        time.Time `json:"date"`
	StartNAV    float64   `json:"start_nav"`
	EndNAV      float64   `json:"end_nav"`
	Cash        float64   `json:"cash"`
	RealizedPnL float64   `json:"realized_pnl"`
}

// Rule is one entry of the discipline rule catalog.
type Rule struct {
	ID          string   `json:"id"`
	RuleNumber  int      `json:"rule_number"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Severity    Severity `json:"severity"`
	Enabled     bool     `json:"enabled"`
}

// JournalEntry is a free-form note attached to a trade.
type JournalEntry struct {
	ID      string    `json:"id"`
	TradeID string    `json:"trade_id"`
	Date    time.Time `json:"date"`
	Body    string    `json:"body"`
}

// IsEarnings reports whether a catalyst string names an earnings event.
func IsEarnings(catalyst string) bool {
	return strings.EqualFold(strings.TrimSpace(catalyst), "Earnings")
}
