// Package valuation marks multi-leg option positions to market from live quotes.
package valuation

import (
	"math"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/spread"
	"github.com/eddiefleurent/options_desk/internal/symbol"
	"github.com/eddiefleurent/options_desk/internal/util"
)

// CashflowSource names how EntryCashflow was estimated.
type CashflowSource string

const (
	FromLegPrices   CashflowSource = "leg_prices"
	CreditHeuristic CashflowSource = "credit_heuristic"
	DebitHeuristic  CashflowSource = "debit_heuristic"
)

// creditStrategies open for a net credit given the sides sideRules assigns. Two-leg
// verticals are decided from their inferred sides instead; see creditVertical.
var creditStrategies = map[string]bool{
	spread.BearCallSpread: true,
	spread.BearPutSpread:  true,
	spread.IronCondor:     true,
	spread.IronButterfly:  true,
}

// LegValue is the valuation of a single leg.
type LegValue struct {
	Symbol     string              `json:"symbol"`
	Parsed     bool                `json:"parsed"`
	Strike     float64             `json:"strike,omitempty"`
	OptionType models.OptionType   `json:"option_type,omitempty"`
	Side       LegSide             `json:"side,omitempty"`
	Quote      *models.OptionQuote `json:"quote,omitempty"`
	// Value is the signed dollar mark of this leg; nil without a quote
	Value *float64 `json:"value,omitempty"`
}

// Snapshot is the live view of one position. When HasAllQuotes is false the mark,
// P&L and percentage fields are all nil.
type Snapshot struct {
	Legs             []LegValue     `json:"legs"`
	HasAllQuotes     bool           `json:"has_all_quotes"`
	MissingSymbols   []string       `json:"missing_symbols,omitempty"`
	MarkValue        *float64       `json:"mark_value"`
	EntryCashflow    float64        `json:"entry_cashflow"`
	CashflowSource   CashflowSource `json:"cashflow_source"`
	LivePnL          *float64       `json:"live_pnl"`
	ProfitCapturePct *float64       `json:"profit_capture_pct"`
	RiskConsumedPct  *float64       `json:"risk_consumed_pct"`
}

// BuildSnapshot parses the position's leg symbols, infers sides, and marks the
// position with quotes keyed by option symbol.
func BuildSnapshot(p models.Position, quotes map[string]models.OptionQuote) Snapshot {
	contracts := float64(p.ContractCount())
	snap := Snapshot{Legs: make([]LegValue, len(p.IBSymbols))}

	parsed := make([]models.OptionLeg, 0, len(p.IBSymbols))
	parsedAt := make([]int, 0, len(p.IBSymbols))
	for i, raw := range p.IBSymbols {
		snap.Legs[i].Symbol = raw
		ps, ok := symbol.Parse(raw)
		if !ok {
			continue
		}
		snap.Legs[i].Parsed = true
		snap.Legs[i].Strike = ps.Strike
		snap.Legs[i].OptionType = ps.OptionType
		parsed = append(parsed, ps.Leg(models.Buy, p.ContractCount()))
		parsedAt = append(parsedAt, i)
	}
	for k, side := range InferSides(p.Strategy, parsed) {
		snap.Legs[parsedAt[k]].Side = side
	}

	mark := 0.0
	for i := range snap.Legs {
		leg := &snap.Legs[i]
		q, ok := lookupQuote(quotes, leg.Symbol)
		if !leg.Parsed || !ok {
			snap.MissingSymbols = append(snap.MissingSymbols, leg.Symbol)
			continue
		}
		v := leg.Side.Sign() * q.Mark * models.SharesPerContract * contracts
		leg.Quote = &q
		leg.Value = &v
		mark += v
	}

	snap.EntryCashflow, snap.CashflowSource = entryCashflow(p, snap.Legs)
	snap.HasAllQuotes = len(snap.Legs) > 0 && len(snap.MissingSymbols) == 0
	if !snap.HasAllQuotes {
		return snap
	}

	markValue := util.RoundCents(mark)
	pnl := util.RoundCents(mark + snap.EntryCashflow)
	snap.MarkValue = &markValue
	snap.LivePnL = &pnl
	if pnl > 0 && p.MaxProfit > 0 {
		v := pnl / p.MaxProfit * 100
		snap.ProfitCapturePct = &v
	}
	if pnl < 0 && p.MaxRisk > 0 {
		v := math.Abs(pnl) / p.MaxRisk * 100
		snap.RiskConsumedPct = &v
	}
	return snap
}

// entryCashflow estimates the dollars received (+) or paid (-) at entry.
func entryCashflow(p models.Position, legs []LegValue) (float64, CashflowSource) {
	contracts := float64(p.ContractCount())
	if p.EntryLongPrice > 0 && p.EntryShortPrice > 0 {
		cf := (p.EntryShortPrice - p.EntryLongPrice) * models.SharesPerContract * contracts
		return cf, FromLegPrices
	}
	credit, known := creditVertical(legs)
	if !known {
		credit = creditStrategies[p.Strategy]
	}
	if credit {
		c := p.MaxProfit
		if c <= 0 {
			c = p.CostBasis
		}
		return math.Abs(c), CreditHeuristic
	}
	return -math.Abs(p.CostBasis), DebitHeuristic
}

// creditVertical reports whether a two-leg, one-type spread sells the dearer strike:
// the lower call or the higher put. known is false for any other shape.
func creditVertical(legs []LegValue) (credit, known bool) {
	if len(legs) != 2 || !legs[0].Parsed || !legs[1].Parsed ||
		legs[0].OptionType != legs[1].OptionType || legs[0].Side == legs[1].Side ||
		legs[0].Strike == legs[1].Strike {
		return false, false
	}
	short, long := legs[0], legs[1]
	if short.Side != Short {
		short, long = long, short
	}
	if short.OptionType == models.Put {
		return short.Strike > long.Strike, true
	}
	return short.Strike < long.Strike, true
}

// lookupQuote accepts a quote keyed by the raw symbol or its normalized form.
func lookupQuote(quotes map[string]models.OptionQuote, raw string) (models.OptionQuote, bool) {
	q, ok := quotes[raw]
	if !ok {
		if ps, parsed := symbol.Parse(raw); parsed {
			q, ok = quotes[ps.Symbol]
		}
	}
	if !ok || q.Mark <= 0 {
		return models.OptionQuote{}, false
	}
	return q, true
}
