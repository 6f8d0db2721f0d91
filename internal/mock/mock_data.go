// Package mock provides sample desk data and a testify-backed quote source.
package mock

import (
	"crypto/rand"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/symbol"
	"github.com/eddiefleurent/options_desk/internal/util"
)

// DataProvider generates a small, plausible book of trades and the quotes to mark it.
type DataProvider struct {
	prices map[string]float64
	midIV  float64 // Annualized volatility in percent, used for time value
}

// secureFloat64 generates a cryptographically secure random float64 between 0 and 1
func secureFloat64() float64 {
	n, err := rand.Int(rand.Reader, big.NewInt(1<<53))
	if err != nil {
		// Fallback to a reasonable default if crypto/rand fails
		return 0.5
	}
	return float64(n.Int64()) / (1 << 53)
}

// NewDataProvider seeds underlying prices near realistic levels.
func NewDataProvider() *DataProvider {
	return &DataProvider{
		prices: map[string]float64{
			"SPY":  450.0 + secureFloat64()*10,
			"QQQ":  390.0 + secureFloat64()*10,
			"AAPL": 185.0 + secureFloat64()*10,
		},
		midIV: 12.0 + secureFloat64()*18, // MidIV between 12-30%
	}
}

// Prices returns a copy of the underlying prices after a small random walk.
func (m *DataProvider) Prices() map[string]float64 {
	out := make(map[string]float64, len(m.prices))
	for t, px := range m.prices {
		px += (secureFloat64() - 0.5) * 2
		m.prices[t] = px
		out[t] = util.RoundCents(px)
	}
	return out
}

// OptionQuotes marks every leg of positions against the current prices.
func (m *DataProvider) OptionQuotes(positions []models.Position, now time.Time) map[string]models.OptionQuote {
	out := make(map[string]models.OptionQuote)
	for _, p := range positions {
		for _, raw := range p.IBSymbols {
			ps, ok := symbol.Parse(raw)
			if !ok {
				continue
			}
			px, ok := m.prices[ps.Ticker]
			if !ok {
				continue
			}
			mark := m.optionPrice(px, ps, now)
			out[ps.Symbol] = models.OptionQuote{
				Mark:      mark,
				Bid:       util.RoundCents(math.Max(0.01, mark-0.05)),
				Ask:       util.RoundCents(mark + 0.05),
				Last:      mark,
				Source:    "mock",
				UpdatedAt: now,
			}
		}
	}
	return out
}

// optionPrice is intrinsic value plus a simplified time value.
func (m *DataProvider) optionPrice(spot float64, ps symbol.ParsedOptionSymbol, now time.Time) float64 {
	intrinsic := spot - ps.Strike
	if ps.OptionType == models.Put {
		intrinsic = ps.Strike - spot
	}
	intrinsic = math.Max(0, intrinsic)

	dte := math.Max(0, ps.Expiry.Sub(now).Hours()/24)
	timeValue := math.Max(0, dte/365.0) // Ensure timeValue is never negative
	vol := m.midIV / 100.0
	decay := math.Exp(-math.Abs(ps.Strike-spot) / spot * 10)
	extrinsic := vol * math.Sqrt(timeValue) * spot * 0.4 * decay

	return util.RoundCents(math.Max(0.05, intrinsic+extrinsic))
}

// SamplePositions returns three open trades expiring about 45 days after now and one
// closed winner.
func (m *DataProvider) SamplePositions(now time.Time) []models.Position {
	expiry := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC).AddDate(0, 0, 45)
	spy := strikeNear(m.prices["SPY"], 5)
	qqq := strikeNear(m.prices["QQQ"], 5)
	aapl := strikeNear(m.prices["AAPL"], 5)

	return []models.Position{
		{
			Ticker:          "SPY",
			Strategy:        "Bull Call Spread",
			Legs:            "Buy " + strike(spy) + "C / Sell " + strike(spy+10) + "C",
			Direction:       models.Bullish,
			Status:          models.StatusOpen,
			ExitTrigger:     "Close at 50% of max profit or below " + strike(spy-10),
			IBSymbols:       []string{leg("SPY", expiry, spy, "C"), leg("SPY", expiry, spy+10, "C")},
			EntryDate:       now.AddDate(0, 0, -10),
			Expiry:          expiry,
			LongStrike:      spy,
			ShortStrike:     spy + 10,
			EntryLongPrice:  7.40,
			EntryShortPrice: 3.10,
			Contracts:       1,
			CostBasis:       430,
			MaxRisk:         430,
			MaxProfit:       570,
			Breakeven:       spy + 4.30,
			StopLoss:        spy - 10,
		},
		{
			Ticker:      "QQQ",
			Strategy:    "Iron Condor",
			Legs:        strike(qqq-20) + "P/" + strike(qqq-15) + "P " + strike(qqq+15) + "C/" + strike(qqq+20) + "C",
			Direction:   models.Neutral,
			Status:      models.StatusOpen,
			ExitTrigger: "Close if price leaves " + strike(qqq-15) + "-" + strike(qqq+15),
			IBSymbols: []string{
				leg("QQQ", expiry, qqq-20, "P"), leg("QQQ", expiry, qqq-15, "P"),
				leg("QQQ", expiry, qqq+15, "C"), leg("QQQ", expiry, qqq+20, "C"),
			},
			EntryDate: now.AddDate(0, 0, -7),
			Expiry:    expiry,
			Contracts: 1,
			CostBasis: 350,
			MaxRisk:   350,
			MaxProfit: 150,
			Breakeven: qqq - 16.50,
		},
		{
			Ticker:      "AAPL",
			Strategy:    "Long Call",
			Legs:        "Buy " + strike(aapl) + "C",
			Direction:   models.Bullish,
			Status:      models.StatusOpen,
			Catalyst:    "Earnings",
			ExitTrigger: "Sell the day after earnings",
			IBSymbols:   []string{leg("AAPL", expiry, aapl, "C")},
			EntryDate:   now.AddDate(0, 0, -3),
			Expiry:      expiry,
			LongStrike:  aapl,
			Contracts:   1,
			CostBasis:   520,
			MaxRisk:     520,
			Breakeven:   aapl + 5.20,
			StopLoss:    aapl - 8,
		},
		{
			Ticker:      "SPY",
			Strategy:    "Bull Put Spread",
			Direction:   models.Bullish,
			Status:      models.StatusWin,
			ExitTrigger: "50% of credit",
			EntryDate:   now.AddDate(0, 0, -40),
			ExitDate:    now.AddDate(0, 0, -20),
			Contracts:   1,
			MaxRisk:     380,
			MaxProfit:   120,
			RealizedPnL: 65,
		},
	}
}

// SampleAccount returns an account snapshot dated now.
func (m *DataProvider) SampleAccount(now time.Time) models.Account {
	return models.Account{
		Date:     now,
		StartNAV: 25000,
		EndNAV:   25650,
		Cash:     18400,
	}
}

func strikeNear(px, interval float64) float64 {
	return math.Round(px/interval) * interval
}

func strike(k float64) string {
	return strconv.FormatFloat(k, 'f', -1, 64)
}

func leg(ticker string, expiry time.Time, k float64, cp string) string {
	return ticker + " " + strings.ToUpper(expiry.Format("02Jan06")) + " " + strike(k) + " " + cp
}
