package rules

import (
	"fmt"
	"strings"

	"github.com/eddiefleurent/options_desk/internal/models"
)

type env struct {
	in       Input
	opts     Options
	approved map[string]bool
}

// riskPct is the position's max risk as a percent of NAV; ok is false without NAV.
func (e *env) riskPct(p *models.Position) (float64, bool) {
	nav := e.in.Account.EndNAV
	if nav <= 0 {
		return 0, false
	}
	return p.MaxRisk / nav * 100, true
}

type checkDef struct {
	number   int
	title    string
	severity models.Severity
	eval     func(e *env, p *models.Position) (bool, string)
}

// checks is the fixed battery, in rule-number order.
var checks = []checkDef{
	{1, "Risk per trade within limit", models.SeverityCritical, checkPositionRisk},
	{2, "Exit trigger written", models.SeverityHigh, checkExitTrigger},
	{3, "Single contract, not bearish", models.SeverityHigh, checkSizing},
	{4, "Approved strategy", models.SeverityMedium, checkStrategy},
	{5, "One entry per day", models.SeverityMedium, checkOneEntryPerDay},
	{7, "No bearish bets", models.SeverityHigh, checkNotBearish},
	{9, "Profit cushion", models.SeverityInfo, checkProfitCushion},
	{10, "Journal entry logged", models.SeverityMedium, checkJournal},
}

func checkPositionRisk(e *env, p *models.Position) (bool, string) {
	pct, ok := e.riskPct(p)
	if !ok {
		return false, "Account NAV unavailable"
	}
	pass := pct <= e.opts.MaxPositionRiskPct
	return pass, fmt.Sprintf("Risk %s is %.2f%% of NAV (limit %.2f%%)", money(p.MaxRisk), pct, e.opts.MaxPositionRiskPct)
}

func checkExitTrigger(_ *env, p *models.Position) (bool, string) {
	if strings.TrimSpace(p.ExitTrigger) == "" {
		return false, "No exit trigger recorded"
	}
	return true, p.ExitTrigger
}

func checkSizing(_ *env, p *models.Position) (bool, string) {
	switch {
	case p.Direction == models.Bearish:
		return false, "Bearish position"
	case p.ContractCount() > 1:
		return false, fmt.Sprintf("%d contracts", p.ContractCount())
	default:
		return true, fmt.Sprintf("%d contract, %s", p.ContractCount(), p.Direction)
	}
}

func checkStrategy(e *env, p *models.Position) (bool, string) {
	if e.approved[strings.ToLower(strings.TrimSpace(p.Strategy))] {
		return true, p.Strategy + " is approved"
	}
	if pct, ok := e.riskPct(p); ok && pct < e.opts.SmallPositionRiskPct {
		return true, fmt.Sprintf("%s not approved, but risk is %.2f%% of NAV", p.Strategy, pct)
	}
	return false, fmt.Sprintf("%q is not an approved strategy", p.Strategy)
}

func checkOneEntryPerDay(e *env, p *models.Position) (bool, string) {
	var same []string
	selfSeen := false
	for i := range e.in.AllTrades {
		other := &e.in.AllTrades[i]
		if !selfSeen && isSelf(p, other) {
			selfSeen = true
			continue
		}
		if models.SameEntryDay(p, other) {
			same = append(same, other.Ticker)
		}
	}
	if len(same) > 0 {
		return false, "Also opened that day: " + strings.Join(same, ", ")
	}
	if p.EntryDate.IsZero() {
		return true, "No entry date recorded"
	}
	return true, "Only entry on " + p.EntryDate.Format("2006-01-02")
}

// isSelf matches p's own record in AllTrades: by ID when it has one, otherwise by
// ticker, strategy, legs and entry time.
func isSelf(p, other *models.Position) bool {
	if other == p {
		return true
	}
	if p.ID != "" {
		return other.ID == p.ID
	}
	return other.ID == "" && other.Ticker == p.Ticker && other.Strategy == p.Strategy &&
		other.Legs == p.Legs && other.EntryDate.Equal(p.EntryDate)
}

func checkNotBearish(_ *env, p *models.Position) (bool, string) {
	if p.Direction == models.Bearish {
		return false, "Bearish position"
	}
	return true, fmt.Sprintf("Direction %s", p.Direction)
}

func checkProfitCushion(e *env, p *models.Position) (bool, string) {
	if p.MaxRisk <= 0 {
		return false, "Max risk not recorded"
	}
	need := e.opts.ProfitCushionRatio * p.MaxRisk
	return p.UnrealizedPnL > need, fmt.Sprintf("Unrealized %s vs %s needed", money(p.UnrealizedPnL), money(need))
}

func checkJournal(e *env, p *models.Position) (bool, string) {
	n := 0
	for _, j := range e.in.Journals {
		if j.TradeID == p.ID {
			n++
		}
	}
	if n == 0 {
		return false, "No journal entry"
	}
	return true, fmt.Sprintf("%d journal entries", n)
}

// Catalog returns the default rule catalog, every rule enabled.
func Catalog() []models.Rule {
	out := make([]models.Rule, 0, len(checks))
	for _, def := range checks {
		out = append(out, models.Rule{
			RuleNumber: def.number,
			Title:      def.title,
			Severity:   def.severity,
			Enabled:    true,
		})
	}
	return out
}
