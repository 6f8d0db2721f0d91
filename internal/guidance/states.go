package guidance

import (
	"fmt"

	"github.com/eddiefleurent/options_desk/internal/models"
)

type state struct {
	name     string
	match    func(m Metrics, p models.Position) bool
	level    Level
	title    string
	playbook string
	// summary and nextSteps render the concrete numbers for this state
	summary   func(p models.Position, m Metrics) string
	nextSteps func(p models.Position, m Metrics) []string
}

// ladder is evaluated top to bottom; the first matching state wins.
var ladder = []state{
	{
		name:     "no price",
		match:    func(m Metrics, _ models.Position) bool { return m.Price == nil },
		level:    Watch,
		title:    "Price Input Required",
		playbook: "Load a live underlying price before acting on this position.",
		summary: func(p models.Position, _ Metrics) string {
			return fmt.Sprintf("%s %s has no live price; guidance is limited to recorded data.", p.Ticker, p.Strategy)
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			return []string{
				fmt.Sprintf("Refresh quotes for %s.", p.Ticker),
				"Record breakeven and stop levels if they are missing.",
			}
		},
	},
	{
		name:     "stop breached",
		match:    func(m Metrics, _ models.Position) bool { return m.StopBreached },
		level:    Critical,
		title:    "Stop Breached",
		playbook: "Exit at the next fill. The pre-committed stop has been crossed.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s at %s has crossed the stop at %s.", p.Ticker, px(*m.Price), px(p.StopLoss))
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			return []string{
				fmt.Sprintf("Close all %d contract(s) of the %s.", p.ContractCount(), p.Strategy),
				fmt.Sprintf("Stop was %s; price is %s (%s beyond).", px(p.StopLoss), px(*m.Price), pct(-*m.StopBufferPct)),
				"Journal why the stop was hit before opening a new trade.",
			}
		},
	},
	{
		name: "expiry cliff",
		match: func(m Metrics, _ models.Position) bool {
			return !m.InProfitZone && dteAtMost(m, 1)
		},
		level:    Critical,
		title:    "Expiry Cliff",
		playbook: "Close or roll today. Out of the profit zone with no time left to recover.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s expires in %d day(s) and is outside the profit zone at %s.", p.Ticker, *m.DTE, px(*m.Price))
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			steps := []string{fmt.Sprintf("Close before expiry on %s.", p.Expiry.Format("2006-01-02"))}
			if m.BreakevenEdgePct != nil {
				steps = append(steps, fmt.Sprintf("Price is %s short of breakeven.", pct(-*m.BreakevenEdgePct)))
			}
			return append(steps, "Do not hold through expiry for a recovery.")
		},
	},
	{
		name: "defend",
		match: func(m Metrics, _ models.Position) bool {
			return !m.InProfitZone && (dteAtMost(m, 3) || m.Urgency >= 4)
		},
		level:    Defensive,
		title:    "Defend Capital",
		playbook: "Cut size or close. Risk is high and time to recover is short.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s at %s is on the losing side with risk level %d.", p.Ticker, px(*m.Price), m.Urgency)
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			steps := []string{fmt.Sprintf("Reduce to at most half of %d contract(s) or close.", p.ContractCount())}
			if m.StopBufferPct != nil {
				steps = append(steps, fmt.Sprintf("Stop %s is %s away.", px(p.StopLoss), pct(*m.StopBufferPct)))
			}
			if m.BreakevenEdgePct != nil {
				steps = append(steps, fmt.Sprintf("Breakeven needs a %s move.", pct(-*m.BreakevenEdgePct)))
			}
			return capSteps(append(steps, "Journal the adjustment."))
		},
	},
	{
		name: "harvest",
		match: func(m Metrics, p models.Position) bool {
			return m.NearMaxProfit || (m.InProfitZone && (dteAtMost(m, 5) || p.ThetaPerDay < heavyThetaBurn))
		},
		level:    Offensive,
		title:    "Harvest Gains",
		playbook: "Take profits. Most of the achievable gain is already captured.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s at %s is in the profit zone; remaining upside is small.", p.Ticker, px(*m.Price))
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			steps := []string{fmt.Sprintf("Close the %s or scale out of %d contract(s).", p.Strategy, p.ContractCount())}
			if m.TargetPrice != nil {
				steps = append(steps, fmt.Sprintf("Max-profit strike %s is %s away.", px(*m.TargetPrice), pct(*m.TargetGapPct)))
			}
			if p.ThetaPerDay != 0 {
				steps = append(steps, fmt.Sprintf("Theta is %s per day.", money(p.ThetaPerDay)))
			}
			return capSteps(append(steps, "Tighten the stop to lock in gains."))
		},
	},
	{
		name:     "thesis working",
		match:    func(m Metrics, _ models.Position) bool { return m.InProfitZone },
		level:    Offensive,
		title:    "Thesis Working",
		playbook: "Hold and let the trade work. Keep the stop in place.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s at %s is in the profit zone.", p.Ticker, px(*m.Price))
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			var steps []string
			if m.TargetPrice != nil {
				steps = append(steps, fmt.Sprintf("Target %s is %s away.", px(*m.TargetPrice), pct(*m.TargetGapPct)))
			}
			if m.StopBufferPct != nil {
				steps = append(steps, fmt.Sprintf("Stop %s has a %s buffer.", px(p.StopLoss), pct(*m.StopBufferPct)))
			}
			return capSteps(append(steps, "Re-check at the next session open.", "Let the triggers decide the exit."))
		},
	},
	{
		name:     "neutral",
		match:    func(Metrics, models.Position) bool { return true },
		level:    Watch,
		title:    "Neutral Watch",
		playbook: "No action yet. Watch the triggers.",
		summary: func(p models.Position, m Metrics) string {
			return fmt.Sprintf("%s at %s is outside the profit zone with time remaining.", p.Ticker, px(*m.Price))
		},
		nextSteps: func(p models.Position, m Metrics) []string {
			var steps []string
			if m.BreakevenEdgePct != nil {
				steps = append(steps, fmt.Sprintf("Breakeven is %s away.", pct(-*m.BreakevenEdgePct)))
			}
			if m.StopBufferPct != nil {
				steps = append(steps, fmt.Sprintf("Stop %s has a %s buffer.", px(p.StopLoss), pct(*m.StopBufferPct)))
			}
			return capSteps(append(steps, "Set an alert at breakeven and at the stop.", "Do not add size until price confirms."))
		},
	},
}

func selectState(m Metrics, p models.Position) state {
	for _, st := range ladder {
		if st.match(m, p) {
			return st
		}
	}
	return ladder[len(ladder)-1]
}

func capSteps(steps []string) []string {
	if len(steps) > 3 {
		return steps[:3]
	}
	return steps
}

func px(x float64) string { return fmt.Sprintf("%.2f", x) }

func pct(x float64) string { return fmt.Sprintf("%.2f%%", x) }

func money(x float64) string { return fmt.Sprintf("$%.2f", x) }
