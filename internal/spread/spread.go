// Package spread infers the named multi-leg strategy and directional bias of a set of
// option legs.
package spread

import (
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// Strategy labels produced by DetectFromLegs.
const (
	Calendar        = "Calendar"
	Diagonal        = "Diagonal"
	BullCallSpread  = "Bull Call Spread"
	BearCallSpread  = "Bear Call Spread"
	BullPutSpread   = "Bull Put Spread"
	BearPutSpread   = "Bear Put Spread"
	IronCondor      = "Iron Condor"
	IronButterfly   = "Iron Butterfly"
	CallButterfly   = "Call Butterfly"
	PutButterfly    = "Put Butterfly"
	LongCall        = "Long Call"
	LongPut         = "Long Put"
	Custom          = "Custom"
	strikeTolerance = 1e-4
)

// DetectedSpread is the classification of a leg set.
type DetectedSpread struct {
	Strategy  string           `json:"strategy"`
	Direction models.Direction `json:"direction"`
	Legs      string           `json:"legs"`
	Contracts int              `json:"contracts"`
}

// DetectFromLegs classifies legs. It is total: every input, including an empty one,
// yields a label.
func DetectFromLegs(legs []models.OptionLeg) DetectedSpread {
	sorted := make([]models.OptionLeg, len(legs))
	copy(sorted, legs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Strike < sorted[j].Strike })

	strategy, direction := classify(sorted)
	return DetectedSpread{
		Strategy:  strategy,
		Direction: direction,
		Legs:      FormatLegs(sorted),
		Contracts: contractCount(sorted),
	}
}

// FormatLegs renders legs as "290C / 320C" in the order given.
func FormatLegs(legs []models.OptionLeg) string {
	parts := make([]string, 0, len(legs))
	for _, l := range legs {
		parts = append(parts, FormatStrike(l.Strike)+l.OptionType.Letter())
	}
	return strings.Join(parts, " / ")
}

// FormatStrike prints a strike without trailing zeros.
func FormatStrike(strike float64) string {
	return strconv.FormatFloat(strike, 'f', -1, 64)
}

func classify(legs []models.OptionLeg) (string, models.Direction) {
	var calls, puts []models.OptionLeg
	for _, l := range legs {
		if l.OptionType == models.Put {
			puts = append(puts, l)
		} else {
			calls = append(calls, l)
		}
	}

	if distinctExpiries(legs) > 1 {
		if len(legs) == 2 && legs[0].OptionType == legs[1].OptionType &&
			legs[0].Side != legs[1].Side && sameStrike(legs[0].Strike, legs[1].Strike) {
			return Calendar, models.Neutral
		}
		return Diagonal, models.Neutral
	}

	switch {
	case len(calls) == 2 && len(puts) == 0:
		low, high := calls[0], calls[1]
		if low.Side == models.Buy && high.Side == models.Sell {
			return BullCallSpread, models.Bullish
		}
		if low.Side == models.Sell && high.Side == models.Buy {
			return BearCallSpread, models.Bearish
		}
	case len(puts) == 2 && len(calls) == 0:
		low, high := puts[0], puts[1]
		if low.Side == models.Buy && high.Side == models.Sell {
			return BearPutSpread, models.Bearish
		}
		if low.Side == models.Sell && high.Side == models.Buy {
			return BullPutSpread, models.Bullish
		}
	case len(puts) == 2 && len(calls) == 2:
		if wingPattern(puts, calls) && sameStrike(puts[1].Strike, calls[0].Strike) {
			return IronButterfly, models.Neutral
		}
		return IronCondor, models.Neutral
	case len(calls) == 3 && len(puts) == 0:
		if isButterfly(calls) {
			return CallButterfly, models.Neutral
		}
	case len(puts) == 3 && len(calls) == 0:
		if isButterfly(puts) {
			return PutButterfly, models.Neutral
		}
	case len(legs) == 1:
		if legs[0].OptionType == models.Put {
			return LongPut, models.Bearish
		}
		return LongCall, models.Bullish
	}
	return Custom, models.Neutral
}

// wingPattern holds when the outer wings share a side and the inner bodies share the
// opposite side: buy/sell/sell/buy or sell/buy/buy/sell by ascending strike.
func wingPattern(puts, calls []models.OptionLeg) bool {
	outer := puts[0].Side
	return puts[1].Side == outer.Opposite() &&
		calls[0].Side == outer.Opposite() &&
		calls[1].Side == outer
}

func isButterfly(legs []models.OptionLeg) bool {
	low, mid, high := legs[0], legs[1], legs[2]
	if !(low.Strike < mid.Strike && mid.Strike < high.Strike) {
		return false
	}
	if low.Side != high.Side || mid.Side == low.Side {
		return false
	}
	return absInt(mid.Quantity) == absInt(low.Quantity)+absInt(high.Quantity)
}

func distinctExpiries(legs []models.OptionLeg) int {
	seen := make(map[time.Time]struct{}, len(legs))
	for _, l := range legs {
		seen[l.Expiry.UTC().Truncate(24*time.Hour)] = struct{}{}
	}
	return len(seen)
}

func contractCount(legs []models.OptionLeg) int {
	n := 1
	for _, l := range legs {
		if q := absInt(l.Quantity); q > n {
			n = q
		}
	}
	return n
}

func sameStrike(a, b float64) bool {
	return math.Abs(a-b) <= strikeTolerance
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
