package quotes

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/symbol"
)

// Map holds the quotes fetched for one evaluation pass. Prices are keyed by upper-case
// ticker, options by normalized option symbol.
type Map struct {
	Prices  map[string]float64            `json:"prices"`
	Options map[string]models.OptionQuote `json:"options"`
}

// NewMap returns an empty Map.
func NewMap() Map {
	return Map{
		Prices:  make(map[string]float64),
		Options: make(map[string]models.OptionQuote),
	}
}

// Price returns the underlying price of ticker, or 0 when none was loaded.
func (m Map) Price(ticker string) float64 {
	return m.Prices[strings.ToUpper(strings.TrimSpace(ticker))]
}

// LoadOptions tunes Load.
type LoadOptions struct {
	Concurrency int
	Logger      logrus.FieldLogger
}

// Load fetches every distinct ticker and leg symbol of positions concurrently.
// Failed lookups are logged and left out of the Map; Load itself never fails.
func Load(ctx context.Context, src Source, positions []models.Position, opts LoadOptions) Map {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = 4
	}

	tickers, symbols := collect(positions)
	out := NewMap()
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			px, err := src.Price(gctx, ticker)
			if err != nil {
				logger.WithError(err).WithField("ticker", ticker).Warn("price unavailable")
				return nil
			}
			mu.Lock()
			out.Prices[ticker] = px
			mu.Unlock()
			return nil
		})
	}
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			q, err := src.OptionQuote(gctx, sym)
			if err != nil {
				logger.WithError(err).WithField("symbol", sym).Warn("option quote unavailable")
				return nil
			}
			mu.Lock()
			out.Options[sym] = q
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	logger.WithFields(logrus.Fields{
		"prices":  len(out.Prices),
		"options": len(out.Options),
		"wanted":  len(tickers) + len(symbols),
	}).Debug("quotes loaded")
	return out
}

// collect returns the sorted distinct tickers and parseable leg symbols of positions.
func collect(positions []models.Position) (tickers, symbols []string) {
	seenTicker := make(map[string]bool)
	seenSymbol := make(map[string]bool)
	for i := range positions {
		t := strings.ToUpper(strings.TrimSpace(positions[i].Ticker))
		if t != "" && !seenTicker[t] {
			seenTicker[t] = true
			tickers = append(tickers, t)
		}
		for _, raw := range positions[i].IBSymbols {
			ps, ok := symbol.Parse(raw)
			if !ok || seenSymbol[ps.Symbol] {
				continue
			}
			seenSymbol[ps.Symbol] = true
			symbols = append(symbols, ps.Symbol)
		}
	}
	sort.Strings(tickers)
	sort.Strings(symbols)
	return tickers, symbols
}
