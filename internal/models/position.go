package models

import (
	"math"
	"time"
)

// Position represents a tracked trade (stock or multi-leg option structure).
// It is owned by the storage layer; analysis code only reads it.
type Position struct {
	ID        string    `json:"id"`
	Ticker    string    `json:"ticker"`
	Strategy  string    `json:"strategy"`
	Legs      string    `json:"legs"`
	Direction Direction `json:"direction"`
	Status    Status    `json:"status"`
	Catalyst  string    `json:"catalyst,omitempty"`
	// ExitTrigger is the pre-committed exit plan written at entry
	ExitTrigger string   `json:"exit_trigger,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	IBSymbols   []string `json:"ib_symbols"`

	EntryDate time.Time `json:"entry_date"`
	Expiry    time.Time `json:"expiry,omitempty"`
	ExitDate  time.Time `json:"exit_date,omitempty"`

	LongStrike  float64 `json:"long_strike"`
	ShortStrike float64 `json:"short_strike"`
	// Per-share fill prices of the long and short side at entry and close
	EntryLongPrice  float64 `json:"entry_long_price"`
	EntryShortPrice float64 `json:"entry_short_price"`
	CloseLongPrice  float64 `json:"close_long_price"`
	CloseShortPrice float64 `json:"close_short_price"`

	Contracts     int     `json:"contracts"`
	CostBasis     float64 `json:"cost_basis"`
	MaxRisk       float64 `json:"max_risk"`
	MaxProfit     float64 `json:"max_profit"`
	Breakeven     float64 `json:"breakeven"`
	StopLoss      float64 `json:"stop_loss"`
	ThetaPerDay   float64 `json:"theta_per_day"`
	RealizedPnL   float64 `json:"realized_pnl"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
}

// ContractCount returns Contracts, treating unset values as a single contract.
func (p *Position) ContractCount() int {
	if p.Contracts < 1 {
		return 1
	}
	return p.Contracts
}

// IsOpen reports whether the position is still live.
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen || p.Status == ""
}

// DaysToExpiry returns the calendar days between now and the expiry date.
// Past expiries clamp to 0; ok is false when no expiry is recorded.
func (p *Position) DaysToExpiry(now time.Time) (days int, ok bool) {
	if p.Expiry.IsZero() {
		return 0, false
	}
	return DaysBetween(now, p.Expiry), true
}

// DaysBetween counts whole calendar days from one date to another, clamped at 0.
func DaysBetween(from, to time.Time) int {
	f := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	d := int(math.Floor(t.Sub(f).Hours() / 24))
	if d < 0 {
		return 0
	}
	return d
}

// SameEntryDay reports whether two positions were opened on the same calendar date.
func SameEntryDay(a, b *Position) bool {
	if a.EntryDate.IsZero() || b.EntryDate.IsZero() {
		return false
	}
	ay, am, ad := a.EntryDate.Date()
	by, bm, bd := b.EntryDate.Date()
	return ay == by && am == bm && ad == bd
}
