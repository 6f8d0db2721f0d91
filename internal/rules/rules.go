// Package rules scores open positions against the account's discipline rule catalog.
package rules

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// Options tunes the thresholds the checks compare against.
type Options struct {
	ApprovedStrategies []string `yaml:"approved_strategies" json:"approved_strategies"`
	// Percent of NAV
	MaxPositionRiskPct   float64 `yaml:"max_position_risk_pct" json:"max_position_risk_pct"`
	SmallPositionRiskPct float64 `yaml:"small_position_risk_pct" json:"small_position_risk_pct"`
	MaxPortfolioRiskPct  float64 `yaml:"max_portfolio_risk_pct" json:"max_portfolio_risk_pct"`
	MaxOpenPositions     int     `yaml:"max_open_positions" json:"max_open_positions"`
	MaxEarningsPositions int     `yaml:"max_earnings_positions" json:"max_earnings_positions"`
	// Fraction of max risk that unrealized P&L must exceed for rule 9
	ProfitCushionRatio float64 `yaml:"profit_cushion_ratio" json:"profit_cushion_ratio"`
}

// DefaultApprovedStrategies are the defined-risk structures allowed without the
// small-size exemption.
var DefaultApprovedStrategies = []string{
	"Bull Call Spread",
	"Bull Put Spread",
	"Bear Call Spread",
	"Bear Put Spread",
	"Iron Condor",
	"Iron Butterfly",
	"Call Butterfly",
	"Put Butterfly",
	"Calendar",
	"Diagonal",
}

// DefaultOptions returns the standard thresholds.
func DefaultOptions() Options {
	return Options{
		ApprovedStrategies:   append([]string(nil), DefaultApprovedStrategies...),
		MaxPositionRiskPct:   2,
		SmallPositionRiskPct: 1,
		MaxPortfolioRiskPct:  5,
		MaxOpenPositions:     3,
		MaxEarningsPositions: 1,
		ProfitCushionRatio:   0.30,
	}
}

// Input is everything a scoring run reads.
type Input struct {
	OpenTrades []models.Position
	AllTrades  []models.Position
	Account    models.Account
	Journals   []models.JournalEntry
	Rules      []models.Rule
}

// CheckState distinguishes a computed result from a catalog override.
type CheckState string

const (
	StateComputed CheckState = "computed"
	StateDisabled CheckState = "disabled"
)

// DisabledDetail is reported for every check whose rule is switched off.
const DisabledDetail = "Rule disabled"

// Check is one rule evaluated against one position.
type Check struct {
	RuleNumber int             `json:"rule_number"`
	Title      string          `json:"title"`
	Severity   models.Severity `json:"severity"`
	Pass       bool            `json:"pass"`
	Detail     string          `json:"detail"`
	State      CheckState      `json:"state"`
}

// PositionResult is the per-position rule outcome.
type PositionResult struct {
	TradeID            string  `json:"trade_id"`
	Ticker             string  `json:"ticker"`
	Score              int     `json:"score"`
	CriticalViolations int     `json:"critical_violations"`
	Checks             []Check `json:"checks"`
}

// PortfolioChecks aggregates risk and concentration across open positions.
type PortfolioChecks struct {
	TotalRiskAmount     float64 `json:"total_risk_amount"`
	TotalRiskPct        float64 `json:"total_risk_pct"`
	TotalRiskBudgetPass bool    `json:"total_risk_budget_pass"`
	PositionCount       int     `json:"position_count"`
	PositionCountPass   bool    `json:"position_count_pass"`
	EarningsCount       int     `json:"earnings_count"`
	EarningsPass        bool    `json:"earnings_pass"`
}

// Report is the result of Score.
type Report struct {
	PerPosition  []PositionResult `json:"per_position"`
	Portfolio    PortfolioChecks  `json:"portfolio"`
	OverallScore int              `json:"overall_score"`
}

// Score evaluates every open position and the portfolio. Per-position results
// follow the order of in.OpenTrades.
func Score(in Input, opts Options) Report {
	catalog := make(map[int]models.Rule, len(in.Rules))
	for _, r := range in.Rules {
		catalog[r.RuleNumber] = r
	}
	env := &env{in: in, opts: opts, approved: approvedSet(opts.ApprovedStrategies)}

	report := Report{PerPosition: make([]PositionResult, 0, len(in.OpenTrades))}
	scores := make([]float64, 0, len(in.OpenTrades))
	for i := range in.OpenTrades {
		res := scorePosition(env, &in.OpenTrades[i], catalog)
		report.PerPosition = append(report.PerPosition, res)
		scores = append(scores, float64(res.Score))
	}

	report.Portfolio = portfolio(in, opts)
	report.OverallScore = 100
	if len(scores) > 0 {
		report.OverallScore = int(math.Round(stat.Mean(scores, nil)))
	}
	return report
}

// hiddenFromPublic lists rules that are computed and scored but not listed to clients.
var hiddenFromPublic = map[int]bool{9: true}

// Public returns a copy of r with informational checks removed from each position.
// Scores are left as computed.
func (r Report) Public() Report {
	out := r
	out.PerPosition = make([]PositionResult, len(r.PerPosition))
	for i, res := range r.PerPosition {
		checks := make([]Check, 0, len(res.Checks))
		for _, c := range res.Checks {
			if !hiddenFromPublic[c.RuleNumber] {
				checks = append(checks, c)
			}
		}
		res.Checks = checks
		out.PerPosition[i] = res
	}
	return out
}

func scorePosition(e *env, p *models.Position, catalog map[int]models.Rule) PositionResult {
	res := PositionResult{TradeID: p.ID, Ticker: p.Ticker, Checks: make([]Check, 0, len(checks))}
	passed := 0
	for _, def := range checks {
		c := Check{RuleNumber: def.number, Title: def.title, Severity: def.severity, State: StateComputed}
		rule, inCatalog := catalog[def.number]
		if inCatalog {
			if rule.Title != "" {
				c.Title = rule.Title
			}
			if rule.Severity != "" {
				c.Severity = rule.Severity
			}
		}
		if inCatalog && !rule.Enabled {
			c.State = StateDisabled
			c.Pass = true
			c.Detail = DisabledDetail
		} else {
			c.Pass, c.Detail = def.eval(e, p)
		}

		if c.Pass {
			passed++
		} else if c.Severity == models.SeverityCritical {
			res.CriticalViolations++
		}
		res.Checks = append(res.Checks, c)
	}
	res.Score = int(math.Round(100 * float64(passed) / float64(len(checks))))
	return res
}

func portfolio(in Input, opts Options) PortfolioChecks {
	risks := make([]float64, len(in.OpenTrades))
	earnings := 0
	for i, p := range in.OpenTrades {
		risks[i] = p.MaxRisk
		if models.IsEarnings(p.Catalyst) {
			earnings++
		}
	}

	pc := PortfolioChecks{
		TotalRiskAmount: floats.Sum(risks),
		PositionCount:   len(in.OpenTrades),
		EarningsCount:   earnings,
	}
	if nav := in.Account.EndNAV; nav > 0 {
		pc.TotalRiskPct = pc.TotalRiskAmount / nav * 100
		pc.TotalRiskBudgetPass = pc.TotalRiskPct <= opts.MaxPortfolioRiskPct
	} else {
		pc.TotalRiskBudgetPass = pc.TotalRiskAmount == 0
	}
	pc.PositionCountPass = pc.PositionCount <= opts.MaxOpenPositions
	pc.EarningsPass = pc.EarningsCount <= opts.MaxEarningsPositions
	return pc
}

func approvedSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(strings.TrimSpace(n))] = true
	}
	return set
}

func money(x float64) string {
	return fmt.Sprintf("$%.2f", x)
}
