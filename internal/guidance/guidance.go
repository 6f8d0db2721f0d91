// Package guidance turns a position and a live price into an action verdict with
// named triggers.
package guidance

import (
	"math"
	"time"

	"github.com/eddiefleurent/options_desk/internal/condor"
	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/risk"
	"github.com/eddiefleurent/options_desk/internal/util"
)

// Level is the recommended posture for a position.
type Level string

const (
	Critical  Level = "critical"
	Defensive Level = "defensive"
	Watch     Level = "watch"
	Offensive Level = "offensive"
)

const (
	nearTargetPct  = 1.5
	heavyThetaBurn = -20.0
)

// Metrics are the derived numbers the verdict is built from. Pointer fields are nil
// when their inputs are missing.
type Metrics struct {
	Price            *float64 `json:"price"`
	DTE              *int     `json:"dte"`
	BreakevenEdgePct *float64 `json:"breakeven_edge_pct"`
	StopBufferPct    *float64 `json:"stop_buffer_pct"`
	TargetPrice      *float64 `json:"target_price"`
	TargetGapPct     *float64 `json:"target_gap_pct"`
	InProfitZone     bool     `json:"in_profit_zone"`
	StopBreached     bool     `json:"stop_breached"`
	NearMaxProfit    bool     `json:"near_max_profit"`
	Urgency          int      `json:"urgency"`
}

// PositionGuidance is recomputed on every call and never stored.
type PositionGuidance struct {
	Level               Level     `json:"level"`
	Title               string    `json:"title"`
	Summary             string    `json:"summary"`
	Confidence          int       `json:"confidence"`
	RecommendedPlaybook string    `json:"recommended_playbook"`
	NextSteps           []string  `json:"next_steps"`
	Triggers            []Trigger `json:"triggers"`
	Metrics             Metrics   `json:"metrics"`
}

// Build computes guidance for p at price. A price <= 0 means no price is available.
func Build(p models.Position, price float64, now time.Time) PositionGuidance {
	m := computeMetrics(p, price, now)
	st := selectState(m, p)
	return PositionGuidance{
		Level:               st.level,
		Title:               st.title,
		Summary:             st.summary(p, m),
		Confidence:          confidence(p, m),
		RecommendedPlaybook: st.playbook,
		NextSteps:           st.nextSteps(p, m),
		Triggers:            triggers(p, m),
		Metrics:             m,
	}
}

func computeMetrics(p models.Position, price float64, now time.Time) Metrics {
	var m Metrics
	if dte, ok := p.DaysToExpiry(now); ok {
		m.DTE = &dte
	}
	m.Urgency = risk.Classify(p, price, now).Level
	if price <= 0 {
		return m
	}
	m.Price = &price

	zone, hasZone := condor.ZoneFor(p.Strategy, p.Legs, p.Breakeven, p.MaxProfit, p.ContractCount())
	switch {
	case hasZone:
		edge := math.Min(price-zone.LowerBreakeven, zone.UpperBreakeven-price) / price * 100
		m.BreakevenEdgePct = &edge
		m.InProfitZone = condor.Classify(price, zone).IsProfit()
	case p.Breakeven > 0:
		edge, _ := risk.BreakevenEdgePct(p.Direction, p.Breakeven, price)
		m.BreakevenEdgePct = &edge
		m.InProfitZone = edge >= 0
	default:
		m.InProfitZone = p.UnrealizedPnL > 0
	}

	if p.StopLoss > 0 {
		buf := (price - p.StopLoss) / price * 100
		if p.Direction == models.Bearish {
			buf = -buf
		}
		m.StopBufferPct = &buf
		m.StopBreached = buf <= 0
	}

	if target, ok := profitTarget(p, price, zone, hasZone); ok {
		var gap float64
		switch {
		case p.Direction == models.Bullish:
			gap = (target - price) / price * 100
		case p.Direction == models.Bearish:
			gap = (price - target) / price * 100
		default:
			gap = math.Abs(target-price) / price * 100
		}
		gap = math.Max(gap, 0)
		m.TargetPrice = &target
		m.TargetGapPct = &gap
		m.NearMaxProfit = m.InProfitZone && gap <= nearTargetPct
	}
	return m
}

// profitTarget is the strike at which the position reaches max profit: the higher
// strike for bullish spreads, the lower for bearish, the nearer short strike for
// condors.
func profitTarget(p models.Position, price float64, z condor.Zone, hasZone bool) (float64, bool) {
	if hasZone {
		if math.Abs(price-z.LowerShort) <= math.Abs(price-z.UpperShort) {
			return z.LowerShort, true
		}
		return z.UpperShort, true
	}
	var strikes []float64
	for _, s := range []float64{p.LongStrike, p.ShortStrike} {
		if s > 0 {
			strikes = append(strikes, s)
		}
	}
	if len(strikes) == 0 {
		return 0, false
	}
	lo, hi := strikes[0], strikes[0]
	for _, s := range strikes[1:] {
		lo, hi = math.Min(lo, s), math.Max(hi, s)
	}
	switch p.Direction {
	case models.Bullish:
		return hi, true
	case models.Bearish:
		return lo, true
	default:
		if math.Abs(price-lo) <= math.Abs(price-hi) {
			return lo, true
		}
		return hi, true
	}
}

func confidence(p models.Position, m Metrics) int {
	c := 55
	if m.Price != nil {
		c += 18
	}
	if p.Breakeven > 0 {
		c += 8
	}
	if p.StopLoss > 0 {
		c += 8
	}
	if p.ThetaPerDay != 0 {
		c += 3
	}
	if m.Urgency >= 4 {
		c += 4
	}
	if m.DTE != nil && *m.DTE <= 3 {
		c += 4
	}
	return int(util.Clamp(float64(c), 35, 95))
}

func dteAtMost(m Metrics, n int) bool {
	return m.DTE != nil && *m.DTE <= n
}
