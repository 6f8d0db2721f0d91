// Package condor derives iron condor zone geometry from a position's leg text and
// classifies underlying prices against it.
package condor

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/util"
)

// Strategy is the only label geometry applies to.
const Strategy = "Iron Condor"

// fallbackCreditRatio guesses credit as a fraction of wing width when no entry data fits.
const fallbackCreditRatio = 0.2

// CreditSource records which input produced Zone.CreditPerShare.
type CreditSource string

const (
	CreditFromMaxProfit CreditSource = "max_profit"
	CreditFromBreakeven CreditSource = "breakeven"
	// CreditEstimated marks the width-based guess; show it as an estimate.
	CreditEstimated CreditSource = "estimated"
)

// Zone is the four-strike geometry of an iron condor.
type Zone struct {
	LowerWing      float64      `json:"lower_wing"`
	LowerShort     float64      `json:"lower_short"`
	UpperShort     float64      `json:"upper_short"`
	UpperWing      float64      `json:"upper_wing"`
	LowerBreakeven float64      `json:"lower_breakeven"`
	UpperBreakeven float64      `json:"upper_breakeven"`
	CreditPerShare float64      `json:"credit_per_share"`
	Width          float64      `json:"width"`
	CreditSource   CreditSource `json:"credit_source"`
}

// Band is one of the seven ordered price regions of a zone.
type Band string

const (
	MaxLossLow    Band = "max_loss_low"
	RecoverLow    Band = "recover_low"
	ProfitLow     Band = "profit_low"
	MaxProfitCore Band = "max_profit_core"
	ProfitHigh    Band = "profit_high"
	RecoverHigh   Band = "recover_high"
	MaxLossHigh   Band = "max_loss_high"
)

// Bands lists every band from lowest to highest price.
var Bands = []Band{MaxLossLow, RecoverLow, ProfitLow, MaxProfitCore, ProfitHigh, RecoverHigh, MaxLossHigh}

var legToken = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s*([CP])`)

// ZoneFor derives the zone for an Iron Condor position. ok is false whenever geometry
// does not apply: other strategies, fewer than two strikes per side, or strikes that
// are not strictly increasing wing < short < short < wing.
func ZoneFor(strategy, legsText string, breakeven, maxProfit float64, contracts int) (Zone, bool) {
	if strategy != Strategy {
		return Zone{}, false
	}

	var puts, calls []float64
	for _, m := range legToken.FindAllStringSubmatch(legsText, -1) {
		strike, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if strings.EqualFold(m[2], "P") {
			puts = append(puts, strike)
		} else {
			calls = append(calls, strike)
		}
	}
	if len(puts) < 2 || len(calls) < 2 {
		return Zone{}, false
	}

	z := Zone{
		LowerWing:  minOf(puts),
		LowerShort: maxOf(puts),
		UpperShort: minOf(calls),
		UpperWing:  maxOf(calls),
	}
	if !(z.LowerWing < z.LowerShort && z.LowerShort < z.UpperShort && z.UpperShort < z.UpperWing) {
		return Zone{}, false
	}
	z.Width = math.Min(z.LowerShort-z.LowerWing, z.UpperWing-z.UpperShort)
	if z.Width <= 0 {
		return Zone{}, false
	}

	if contracts < 1 {
		contracts = 1
	}
	z.CreditPerShare, z.CreditSource = resolveCredit(z, breakeven, maxProfit, contracts)
	z.LowerBreakeven = z.LowerShort - z.CreditPerShare
	z.UpperBreakeven = z.UpperShort + z.CreditPerShare
	return z, true
}

// resolveCredit prefers data-derived credit over the width-based guess.
func resolveCredit(z Zone, breakeven, maxProfit float64, contracts int) (float64, CreditSource) {
	if c := maxProfit / (models.SharesPerContract * float64(contracts)); c > 0 && c < z.Width {
		return c, CreditFromMaxProfit
	}
	if c := z.LowerShort - breakeven; c > 0 && c < z.Width {
		return c, CreditFromBreakeven
	}
	return z.Width * fallbackCreditRatio, CreditEstimated
}

// Classify places price into one of the seven bands. The core band includes both
// short strikes; a price exactly on a wing is max loss.
func Classify(price float64, z Zone) Band {
	switch {
	case price <= z.LowerWing:
		return MaxLossLow
	case price < z.LowerBreakeven:
		return RecoverLow
	case price < z.LowerShort:
		return ProfitLow
	case price <= z.UpperShort:
		return MaxProfitCore
	case price <= z.UpperBreakeven:
		return ProfitHigh
	case price < z.UpperWing:
		return RecoverHigh
	default:
		return MaxLossHigh
	}
}

// PnLAtExpiry returns the position P&L in dollars if the underlying settles at price.
func PnLAtExpiry(price float64, z Zone, contracts int) float64 {
	if contracts < 1 {
		contracts = 1
	}
	perShare := z.CreditPerShare -
		util.Clamp(z.LowerShort-price, 0, z.Width) -
		util.Clamp(price-z.UpperShort, 0, z.Width)
	return util.RoundCents(perShare * models.SharesPerContract * float64(contracts))
}

// MaxProfit is the expiry P&L anywhere inside the short strikes.
func MaxProfit(z Zone, contracts int) float64 {
	return PnLAtExpiry(z.LowerShort, z, contracts)
}

// IsProfit reports whether the band lies inside the breakevens.
func (b Band) IsProfit() bool {
	return b == ProfitLow || b == MaxProfitCore || b == ProfitHigh
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Min(m, x)
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		m = math.Max(m, x)
	}
	return m
}
