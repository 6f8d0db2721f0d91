// Package risk assigns a discrete 1-5 risk level to an open position at a live price.
package risk

import (
	"time"

	"github.com/eddiefleurent/options_desk/internal/condor"
	"github.com/eddiefleurent/options_desk/internal/models"
)

// Basis names which model produced a Snapshot.
type Basis string

const (
	BasisNone      Basis = "indeterminate"
	BasisGeometry  Basis = "condor_geometry"
	BasisBreakeven Basis = "breakeven_distance"
)

// Snapshot is the risk verdict for one position.
type Snapshot struct {
	Level  int         `json:"level"`
	Label  string      `json:"label"`
	Color  string      `json:"color"`
	Detail string      `json:"detail"`
	DTE    int         `json:"dte"`
	Band   condor.Band `json:"band,omitempty"`
	Basis  Basis       `json:"basis"`
}

type levelInfo struct {
	label, color, detail string
}

var levels = map[int]levelInfo{
	1: {"Safe", "green", "Price is comfortably inside the profit zone."},
	2: {"Low Risk", "lime", "In profit, but expiry is close enough to watch."},
	3: {"Caution", "yellow", "Price is near or past breakeven with time left to recover."},
	4: {"High Risk", "orange", "Losing side of breakeven with little time to recover."},
	5: {"Critical", "red", "At or beyond max loss, or too far past breakeven to recover."},
}

var indeterminate = levelInfo{"—", "gray", "No live price or expiry; risk cannot be assessed."}

// inputs is what every ladder rule sees.
type inputs struct {
	dte     int
	band    condor.Band
	edgePct float64
}

type rule struct {
	name  string
	match func(in inputs) bool
	level int
}

// zoneLadder maps condor bands to levels. Order matters: first match wins.
var zoneLadder = []rule{
	{"core", func(in inputs) bool { return in.band == condor.MaxProfitCore }, 1},
	{"profit band, time left", func(in inputs) bool { return isProfitWing(in.band) && in.dte > 3 }, 1},
	{"profit band", func(in inputs) bool { return isProfitWing(in.band) }, 2},
	{"recovery band, time left", func(in inputs) bool { return isRecovery(in.band) && in.dte > 5 }, 3},
	{"recovery band", func(in inputs) bool { return isRecovery(in.band) }, 4},
	{"max loss", func(inputs) bool { return true }, 5},
}

// breakevenLadder grades the favorable distance from breakeven.
var breakevenLadder = []rule{
	{"at or past breakeven", func(in inputs) bool { return in.edgePct >= 0 }, 1},
	{"within 3%", func(in inputs) bool { return in.edgePct > -3 && in.dte > 5 }, 2},
	{"within 5%", func(in inputs) bool { return in.edgePct > -5 && in.dte > 3 }, 3},
	{"within 10%", func(in inputs) bool { return in.edgePct > -10 && in.dte > 2 }, 4},
	{"too far", func(inputs) bool { return true }, 5},
}

// Classify grades p at price. A price <= 0 means no price is available.
// Condors are graded by band. Everything else falls back to the distance from
// breakeven on the favorable side: above breakeven for bullish and neutral positions,
// below it for bearish ones. A bearish position at or below breakeven is level 1.
func Classify(p models.Position, price float64, now time.Time) Snapshot {
	dte, hasExpiry := p.DaysToExpiry(now)
	if price <= 0 || !hasExpiry {
		return snapshot(0, indeterminate, dte, "", BasisNone)
	}

	if z, ok := condor.ZoneFor(p.Strategy, p.Legs, p.Breakeven, p.MaxProfit, p.ContractCount()); ok {
		band := condor.Classify(price, z)
		lvl := evaluate(zoneLadder, inputs{dte: dte, band: band})
		return snapshot(lvl, levels[lvl], dte, band, BasisGeometry)
	}

	edge, ok := BreakevenEdgePct(p.Direction, p.Breakeven, price)
	if !ok {
		return snapshot(0, indeterminate, dte, "", BasisNone)
	}
	lvl := evaluate(breakevenLadder, inputs{dte: dte, edgePct: edge})
	return snapshot(lvl, levels[lvl], dte, "", BasisBreakeven)
}

// BreakevenEdgePct is the percent distance of price beyond breakeven on the
// position's favorable side: positive when winning, negative when losing. Bearish
// positions win below breakeven, everything else above.
func BreakevenEdgePct(dir models.Direction, breakeven, price float64) (float64, bool) {
	if breakeven <= 0 || price <= 0 {
		return 0, false
	}
	edge := (price - breakeven) / breakeven * 100
	if dir == models.Bearish {
		edge = -edge
	}
	return edge, true
}

func evaluate(ladder []rule, in inputs) int {
	for _, r := range ladder {
		if r.match(in) {
			return r.level
		}
	}
	return 5
}

func snapshot(level int, info levelInfo, dte int, band condor.Band, basis Basis) Snapshot {
	if level == 0 {
		level = 3
	}
	return Snapshot{
		Level:  level,
		Label:  info.label,
		Color:  info.color,
		Detail: info.detail,
		DTE:    dte,
		Band:   band,
		Basis:  basis,
	}
}

func isProfitWing(b condor.Band) bool { return b == condor.ProfitLow || b == condor.ProfitHigh }

func isRecovery(b condor.Band) bool { return b == condor.RecoverLow || b == condor.RecoverHigh }
