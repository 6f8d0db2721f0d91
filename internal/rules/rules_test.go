package rules

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/options_desk/internal/models"
)

var day = time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)

func cleanTrade(id string, entry time.Time) models.Position {
	return models.Position{
		ID:            id,
		Ticker:        "SPY",
		Strategy:      "Bull Call Spread",
		Direction:     models.Bullish,
		Status:        models.StatusOpen,
		ExitTrigger:   "Close at 50% of max profit or below 440",
		EntryDate:     entry,
		Contracts:     1,
		MaxRisk:       150,
		UnrealizedPnL: 60,
	}
}

func checkByNumber(t *testing.T, res PositionResult, n int) Check {
	t.Helper()
	for _, c := range res.Checks {
		if c.RuleNumber == n {
			return c
		}
	}
	require.Failf(t, "check missing", "rule %d", n)
	return Check{}
}

func TestScore_CleanPosition(t *testing.T) {
	p := cleanTrade("t1", day)
	in := Input{
		OpenTrades: []models.Position{p},
		AllTrades:  []models.Position{p},
		Account:    models.Account{EndNAV: 10000},
		Journals:   []models.JournalEntry{{TradeID: "t1", Body: "entry thesis"}},
	}

	report := Score(in, DefaultOptions())
	require.Len(t, report.PerPosition, 1)
	res := report.PerPosition[0]
	assert.Equal(t, 100, res.Score)
	assert.Equal(t, 0, res.CriticalViolations)
	assert.Len(t, res.Checks, 8)
	assert.Equal(t, 100, report.OverallScore)
	for _, c := range res.Checks {
		assert.Equal(t, StateComputed, c.State)
	}
}

func TestScore_Violations(t *testing.T) {
	p := cleanTrade("t1", day)
	p.MaxRisk = 300
	p.ExitTrigger = " "
	p.Direction = models.Bearish
	p.Contracts = 2
	p.Strategy = "Naked Put"
	p.UnrealizedPnL = 90

	sameDay := cleanTrade("t2", day.Add(2*time.Hour))
	sameDay.Ticker = "QQQ"

	in := Input{
		OpenTrades: []models.Position{p},
		AllTrades:  []models.Position{p, sameDay},
		Account:    models.Account{EndNAV: 10000},
	}
	res := Score(in, DefaultOptions()).PerPosition[0]

	for _, n := range []int{1, 2, 3, 4, 5, 7, 9, 10} {
		assert.False(t, checkByNumber(t, res, n).Pass, "rule %d", n)
	}
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 1, res.CriticalViolations)
	assert.Contains(t, checkByNumber(t, res, 5).Detail, "QQQ")
	assert.Contains(t, checkByNumber(t, res, 1).Detail, "3.00%")
}

func TestScore_SmallUnapprovedStrategyPasses(t *testing.T) {
	p := cleanTrade("t1", day)
	p.Strategy = "Custom"
	p.MaxRisk = 50

	res := Score(Input{OpenTrades: []models.Position{p}, Account: models.Account{EndNAV: 10000}}, DefaultOptions())
	assert.True(t, checkByNumber(t, res.PerPosition[0], 4).Pass)
}

func TestScore_NoNAV(t *testing.T) {
	p := cleanTrade("t1", day)
	report := Score(Input{OpenTrades: []models.Position{p}}, DefaultOptions())

	c := checkByNumber(t, report.PerPosition[0], 1)
	assert.False(t, c.Pass)
	assert.Equal(t, "Account NAV unavailable", c.Detail)
	assert.Zero(t, report.Portfolio.TotalRiskPct)
	assert.False(t, report.Portfolio.TotalRiskBudgetPass)
}

func TestScore_DisabledRuleForcesPass(t *testing.T) {
	p := cleanTrade("t1", day)
	p.Direction = models.Bearish

	in := Input{
		OpenTrades: []models.Position{p},
		AllTrades:  []models.Position{p},
		Account:    models.Account{EndNAV: 10000},
		Rules: []models.Rule{
			{RuleNumber: 7, Title: "Stay long the market", Severity: models.SeverityCritical, Enabled: false},
			{RuleNumber: 3, Enabled: true},
			{RuleNumber: 99, Enabled: false},
		},
	}
	res := Score(in, DefaultOptions()).PerPosition[0]

	c7 := checkByNumber(t, res, 7)
	assert.True(t, c7.Pass)
	assert.Equal(t, DisabledDetail, c7.Detail)
	assert.Equal(t, StateDisabled, c7.State)
	assert.Equal(t, "Stay long the market", c7.Title)
	assert.Equal(t, models.SeverityCritical, c7.Severity)

	c3 := checkByNumber(t, res, 3)
	assert.False(t, c3.Pass, "enabled catalog rule still computed")
	assert.Equal(t, "Single contract, not bearish", c3.Title)

	assert.Len(t, res.Checks, 8, "disabled checks stay in the result set")
	// rule 10 fails (no journal) and rule 3 fails: 6 of 8
	assert.Equal(t, 75, res.Score)
}

func TestScore_Portfolio(t *testing.T) {
	a := cleanTrade("a", day)
	a.MaxRisk = 300
	a.Catalyst = "Earnings"
	b := cleanTrade("b", day.AddDate(0, 0, 1))
	b.MaxRisk = 300
	b.Catalyst = "earnings"

	report := Score(Input{
		OpenTrades: []models.Position{a, b},
		AllTrades:  []models.Position{a, b},
		Account:    models.Account{EndNAV: 10000},
	}, DefaultOptions())

	pc := report.Portfolio
	assert.Equal(t, 600.0, pc.TotalRiskAmount)
	assert.InDelta(t, 6, pc.TotalRiskPct, 1e-9)
	assert.False(t, pc.TotalRiskBudgetPass)
	assert.Equal(t, 2, pc.PositionCount)
	assert.True(t, pc.PositionCountPass)
	assert.Equal(t, 2, pc.EarningsCount)
	assert.False(t, pc.EarningsPass)
}

func TestScore_OverallScore(t *testing.T) {
	t.Run("no open positions is vacuous pass", func(t *testing.T) {
		report := Score(Input{Account: models.Account{EndNAV: 10000}}, DefaultOptions())
		assert.Equal(t, 100, report.OverallScore)
		assert.Empty(t, report.PerPosition)
		assert.True(t, report.Portfolio.TotalRiskBudgetPass)
	})

	t.Run("rounded mean of position scores", func(t *testing.T) {
		good := cleanTrade("good", day)
		noJournal := cleanTrade("nj", day.AddDate(0, 0, 1))
		noJournal.ExitTrigger = ""

		report := Score(Input{
			OpenTrades: []models.Position{good, noJournal},
			AllTrades:  []models.Position{good, noJournal},
			Account:    models.Account{EndNAV: 10000},
			Journals:   []models.JournalEntry{{TradeID: "good"}},
		}, DefaultOptions())

		// 100 and 75 (rules 2 and 10 fail)
		assert.Equal(t, 100, report.PerPosition[0].Score)
		assert.Equal(t, 75, report.PerPosition[1].Score)
		assert.Equal(t, 88, report.OverallScore)
	})
}

func TestReportPublic(t *testing.T) {
	p := cleanTrade("t1", day)
	p.UnrealizedPnL = 0
	report := Score(Input{
		OpenTrades: []models.Position{p},
		Account:    models.Account{EndNAV: 10000},
		Journals:   []models.JournalEntry{{TradeID: "t1"}},
	}, DefaultOptions())

	pub := report.Public()
	require.Len(t, pub.PerPosition, 1)
	for _, c := range pub.PerPosition[0].Checks {
		assert.NotEqual(t, 9, c.RuleNumber)
	}
	assert.Len(t, pub.PerPosition[0].Checks, 7)
	assert.Equal(t, report.PerPosition[0].Score, pub.PerPosition[0].Score)

	// the computed report is untouched
	assert.Len(t, report.PerPosition[0].Checks, 8)
	assert.False(t, checkByNumber(t, report.PerPosition[0], 9).Pass)
}

func TestCatalog(t *testing.T) {
	cat := Catalog()
	require.Len(t, cat, 8)
	assert.Equal(t, 1, cat[0].RuleNumber)
	assert.Equal(t, models.SeverityCritical, cat[0].Severity)
	assert.Equal(t, 10, cat[7].RuleNumber)
	for _, r := range cat {
		assert.True(t, r.Enabled)
	}
}

func TestScore_OneEntryPerDayWithoutIDs(t *testing.T) {
	first := cleanTrade("", day)
	second := cleanTrade("", day.Add(time.Hour))
	second.Ticker = "QQQ"

	in := Input{
		OpenTrades: []models.Position{first, second},
		AllTrades:  []models.Position{first, second},
		Account:    models.Account{EndNAV: 10000},
	}
	report := Score(in, DefaultOptions())
	require.Len(t, report.PerPosition, 2)

	c := checkByNumber(t, report.PerPosition[0], 5)
	assert.False(t, c.Pass)
	assert.Equal(t, "Also opened that day: QQQ", c.Detail)
	c = checkByNumber(t, report.PerPosition[1], 5)
	assert.False(t, c.Pass)
	assert.Equal(t, "Also opened that day: SPY", c.Detail)

	alone := Score(Input{
		OpenTrades: []models.Position{first},
		AllTrades:  []models.Position{first},
		Account:    models.Account{EndNAV: 10000},
	}, DefaultOptions())
	assert.True(t, checkByNumber(t, alone.PerPosition[0], 5).Pass, "a trade never conflicts with itself")

	// Two identical records without IDs are still two entries.
	twin := Score(Input{
		OpenTrades: []models.Position{first},
		AllTrades:  []models.Position{first, first},
		Account:    models.Account{EndNAV: 10000},
	}, DefaultOptions())
	assert.False(t, checkByNumber(t, twin.PerPosition[0], 5).Pass)
}
