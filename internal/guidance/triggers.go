package guidance

import (
	"fmt"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// TriggerState is hit when the condition has fired, watch while it is armed, and
// missing when the inputs to evaluate it are absent.
type TriggerState string

const (
	TriggerHit     TriggerState = "hit"
	TriggerWatch   TriggerState = "watch"
	TriggerMissing TriggerState = "missing"
)

// Trigger names.
const (
	TriggerBreakeven = "breakeven"
	TriggerStop      = "stop"
	TriggerMaxProfit = "max_profit"
	TriggerTime      = "time"
)

// timeTriggerDTE arms the time trigger inside this many days.
const timeTriggerDTE = 3

// Trigger is one named exit condition.
type Trigger struct {
	Name   string       `json:"name"`
	State  TriggerState `json:"state"`
	Detail string       `json:"detail"`
}

// triggers always returns all four triggers in a fixed order.
func triggers(p models.Position, m Metrics) []Trigger {
	return []Trigger{
		breakevenTrigger(p, m),
		stopTrigger(p, m),
		maxProfitTrigger(m),
		timeTrigger(m),
	}
}

func breakevenTrigger(p models.Position, m Metrics) Trigger {
	t := Trigger{Name: TriggerBreakeven}
	switch {
	case m.Price == nil:
		t.State, t.Detail = TriggerMissing, "No live price"
	case m.BreakevenEdgePct == nil:
		t.State, t.Detail = TriggerMissing, "No breakeven recorded"
	case *m.BreakevenEdgePct < 0:
		t.State = TriggerHit
		t.Detail = fmt.Sprintf("Price %s is %s on the losing side of breakeven", px(*m.Price), pct(-*m.BreakevenEdgePct))
	default:
		t.State = TriggerWatch
		t.Detail = fmt.Sprintf("Price %s has a %s cushion to breakeven", px(*m.Price), pct(*m.BreakevenEdgePct))
	}
	if p.Breakeven > 0 && t.State != TriggerMissing {
		t.Detail += " " + px(p.Breakeven)
	}
	return t
}

func stopTrigger(p models.Position, m Metrics) Trigger {
	t := Trigger{Name: TriggerStop}
	switch {
	case p.StopLoss <= 0:
		t.State, t.Detail = TriggerMissing, "No stop recorded"
	case m.StopBufferPct == nil:
		t.State, t.Detail = TriggerMissing, fmt.Sprintf("Stop %s set, no live price", px(p.StopLoss))
	case m.StopBreached:
		t.State, t.Detail = TriggerHit, fmt.Sprintf("Price %s crossed stop %s", px(*m.Price), px(p.StopLoss))
	default:
		t.State, t.Detail = TriggerWatch, fmt.Sprintf("Stop %s is %s away", px(p.StopLoss), pct(*m.StopBufferPct))
	}
	return t
}

func maxProfitTrigger(m Metrics) Trigger {
	t := Trigger{Name: TriggerMaxProfit}
	switch {
	case m.TargetPrice == nil:
		t.State, t.Detail = TriggerMissing, "No target strike or live price"
	case m.NearMaxProfit:
		t.State, t.Detail = TriggerHit, fmt.Sprintf("Within %s of max-profit strike %s", pct(*m.TargetGapPct), px(*m.TargetPrice))
	default:
		t.State, t.Detail = TriggerWatch, fmt.Sprintf("Max-profit strike %s is %s away", px(*m.TargetPrice), pct(*m.TargetGapPct))
	}
	return t
}

func timeTrigger(m Metrics) Trigger {
	t := Trigger{Name: TriggerTime}
	switch {
	case m.DTE == nil:
		t.State, t.Detail = TriggerMissing, "No expiry recorded"
	case *m.DTE <= timeTriggerDTE:
		t.State, t.Detail = TriggerHit, fmt.Sprintf("%d day(s) to expiry", *m.DTE)
	default:
		t.State, t.Detail = TriggerWatch, fmt.Sprintf("%d days to expiry", *m.DTE)
	}
	return t
}
