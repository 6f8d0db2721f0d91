package valuation

import (
	"sort"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/spread"
)

// LegSide is the held side of a leg in an open position.
type LegSide string

const (
	Long  LegSide = "Long"
	Short LegSide = "Short"
)

// Sign is +1 for long legs and -1 for short legs.
func (s LegSide) Sign() float64 {
	if s == Short {
		return -1
	}
	return 1
}

// sideRule assigns a side to every leg; the result is aligned with the input slice.
// It returns false when the legs do not have the shape the strategy implies.
type sideRule func(legs []models.OptionLeg) ([]LegSide, bool)

// sideRules maps strategy labels to their side inference. Anything missing, or any
// rule that rejects the leg shape, falls through to fallbackSides.
var sideRules = map[string]sideRule{
	spread.BullCallSpread: vertical(Long, Short),
	spread.BearCallSpread: vertical(Short, Long),
	spread.BullPutSpread:  vertical(Short, Long),
	spread.BearPutSpread:  vertical(Long, Short),
	spread.IronCondor:     ironWings,
	spread.IronButterfly:  ironWings,
	spread.Diagonal:       byExpiry,
	spread.Calendar:       byExpiry,
	spread.LongCall:       allLong,
	spread.LongPut:        allLong,
}

// InferSides reconstructs Long/Short for each leg from the strategy label.
// A side is always assigned.
func InferSides(strategy string, legs []models.OptionLeg) []LegSide {
	if rule, ok := sideRules[strategy]; ok {
		if sides, ok := rule(legs); ok {
			return sides
		}
	}
	return fallbackSides(legs)
}

// vertical assigns sides to the lower and higher strike of a two-leg spread.
func vertical(low, high LegSide) sideRule {
	return func(legs []models.OptionLeg) ([]LegSide, bool) {
		if len(legs) != 2 {
			return nil, false
		}
		order := byStrike(legs)
		sides := make([]LegSide, 2)
		sides[order[0]] = low
		sides[order[1]] = high
		return sides, true
	}
}

// ironWings: outer put and outer call long, inner put and inner call short.
func ironWings(legs []models.OptionLeg) ([]LegSide, bool) {
	var puts, calls []int
	for _, i := range byStrike(legs) {
		if legs[i].OptionType == models.Put {
			puts = append(puts, i)
		} else {
			calls = append(calls, i)
		}
	}
	if len(puts) != 2 || len(calls) != 2 {
		return nil, false
	}
	sides := make([]LegSide, len(legs))
	sides[puts[0]] = Long
	sides[puts[1]] = Short
	sides[calls[0]] = Short
	sides[calls[1]] = Long
	return sides, true
}

// byExpiry: nearest-dated legs are short, later-dated legs long.
func byExpiry(legs []models.OptionLeg) ([]LegSide, bool) {
	if len(legs) < 2 {
		return nil, false
	}
	nearest := legs[0].Expiry
	for _, l := range legs[1:] {
		if l.Expiry.Before(nearest) {
			nearest = l.Expiry
		}
	}
	sides := make([]LegSide, len(legs))
	longs := 0
	for i, l := range legs {
		if l.Expiry.Equal(nearest) {
			sides[i] = Short
		} else {
			sides[i] = Long
			longs++
		}
	}
	return sides, longs > 0
}

func allLong(legs []models.OptionLeg) ([]LegSide, bool) {
	sides := make([]LegSide, len(legs))
	for i := range sides {
		sides[i] = Long
	}
	return sides, true
}

// fallbackSides marks the lower half of strikes long and the upper half short.
// A single leg is always long.
func fallbackSides(legs []models.OptionLeg) []LegSide {
	sides := make([]LegSide, len(legs))
	if len(legs) == 1 {
		sides[0] = Long
		return sides
	}
	half := len(legs) / 2
	for rank, i := range byStrike(legs) {
		if rank < half {
			sides[i] = Long
		} else {
			sides[i] = Short
		}
	}
	return sides
}

// byStrike returns leg indexes in ascending strike order, ties in input order.
func byStrike(legs []models.OptionLeg) []int {
	order := make([]int, len(legs))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return legs[order[a]].Strike < legs[order[b]].Strike })
	return order
}
