// Package portfolio assembles live position views and the rule report from stored
// trades and fetched quotes.
package portfolio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/eddiefleurent/options_desk/internal/condor"
	"github.com/eddiefleurent/options_desk/internal/guidance"
	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/quotes"
	"github.com/eddiefleurent/options_desk/internal/risk"
	"github.com/eddiefleurent/options_desk/internal/rules"
	"github.com/eddiefleurent/options_desk/internal/storage"
	"github.com/eddiefleurent/options_desk/internal/valuation"
)

// PositionView is everything the desk shows for one trade.
type PositionView struct {
	Trade    models.Position    `json:"trade"`
	Price    *float64           `json:"price"`
	Snapshot valuation.Snapshot `json:"snapshot"`
	Zone     *condor.Zone       `json:"zone,omitempty"`
	Band     *condor.Band       `json:"band,omitempty"`
	// ExpiryPnL is the condor P&L if the underlying settled at Price
	ExpiryPnL *float64                  `json:"expiry_pnl,omitempty"`
	Risk      risk.Snapshot             `json:"risk"`
	Guidance  guidance.PositionGuidance `json:"guidance"`
}

// Summary aggregates the open book.
type Summary struct {
	OpenPositions int       `json:"open_positions"`
	Priced        int       `json:"priced"`
	TotalMaxRisk  float64   `json:"total_max_risk"`
	TotalLivePnL  float64   `json:"total_live_pnl"`
	HighestRisk   int       `json:"highest_risk"`
	AccountNAV    float64   `json:"account_nav"`
	PortfolioRisk float64   `json:"portfolio_risk_pct"`
	OverallScore  int       `json:"overall_score"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Overview is one consistent evaluation of the whole desk.
type Overview struct {
	Positions []PositionView `json:"positions"`
	Report    rules.Report   `json:"report"`
	Summary   Summary        `json:"summary"`
}

// Service reads the store, fetches quotes and runs the scoring engines.
type Service struct {
	store       storage.Interface
	source      quotes.Source
	opts        rules.Options
	logger      logrus.FieldLogger
	concurrency int
	now         func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithConcurrency bounds parallel quote fetches and evaluations.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewService creates a Service.
func NewService(store storage.Interface, source quotes.Source, opts rules.Options,
	logger logrus.FieldLogger, options ...Option) *Service {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	s := &Service{
		store:       store,
		source:      source,
		opts:        opts,
		logger:      logger,
		concurrency: 4,
		now:         time.Now,
	}
	for _, o := range options {
		o(s)
	}
	return s
}

// Evaluate builds the view of p against qm. It is pure; UnrealizedPnL on the
// returned trade is replaced by the live P&L when every leg is marked.
func Evaluate(p models.Position, qm quotes.Map, now time.Time) PositionView {
	snap := valuation.BuildSnapshot(p, qm.Options)
	if snap.LivePnL != nil {
		p.UnrealizedPnL = *snap.LivePnL
	}
	price := qm.Price(p.Ticker)

	v := PositionView{
		Trade:    p,
		Snapshot: snap,
		Risk:     risk.Classify(p, price, now),
		Guidance: guidance.Build(p, price, now),
	}
	if price > 0 {
		v.Price = &price
	}
	if z, ok := condor.ZoneFor(p.Strategy, p.Legs, p.Breakeven, p.MaxProfit, p.ContractCount()); ok {
		v.Zone = &z
		if price > 0 {
			band := condor.Classify(price, z)
			pnl := condor.PnLAtExpiry(price, z, p.ContractCount())
			v.Band = &band
			v.ExpiryPnL = &pnl
		}
	}
	return v
}

// Overview evaluates every open trade and scores the book in one pass.
func (s *Service) Overview(ctx context.Context) (Overview, error) {
	in, err := s.loadInput()
	if err != nil {
		return Overview{}, err
	}
	now := s.now()
	qm := quotes.Load(ctx, s.source, in.OpenTrades, quotes.LoadOptions{Concurrency: s.concurrency, Logger: s.logger})

	views, err := s.evaluateAll(ctx, in.OpenTrades, qm, now)
	if err != nil {
		return Overview{}, err
	}
	// Rules see the live P&L the views computed.
	for i := range views {
		in.OpenTrades[i] = views[i].Trade
	}
	report := rules.Score(in, s.opts)

	return Overview{
		Positions: views,
		Report:    report,
		Summary:   summarize(views, in.Account, report, now),
	}, nil
}

// Positions returns the views of every open trade in storage order.
func (s *Service) Positions(ctx context.Context) ([]PositionView, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return nil, err
	}
	return ov.Positions, nil
}

// Position evaluates a single trade, open or closed.
func (s *Service) Position(ctx context.Context, id string) (PositionView, error) {
	p, err := s.store.GetTrade(id)
	if err != nil {
		return PositionView{}, err
	}
	trades := []models.Position{*p}
	qm := quotes.NewMap()
	if p.IsOpen() {
		qm = quotes.Load(ctx, s.source, trades, quotes.LoadOptions{Concurrency: s.concurrency, Logger: s.logger})
	}
	return Evaluate(*p, qm, s.now()), nil
}

// Score returns the rule report for the open book.
func (s *Service) Score(ctx context.Context) (rules.Report, error) {
	ov, err := s.Overview(ctx)
	if err != nil {
		return rules.Report{}, err
	}
	return ov.Report, nil
}

func (s *Service) evaluateAll(ctx context.Context, trades []models.Position, qm quotes.Map,
	now time.Time) ([]PositionView, error) {
	views := make([]PositionView, len(trades))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range trades {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			views[i] = Evaluate(trades[i], qm, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("evaluating positions: %w", err)
	}
	return views, nil
}

func (s *Service) loadInput() (rules.Input, error) {
	var in rules.Input
	var err error

	if in.AllTrades, err = s.store.ListTrades(storage.TradeFilter{}); err != nil {
		return in, fmt.Errorf("loading trades: %w", err)
	}
	for _, t := range in.AllTrades {
		if t.IsOpen() {
			in.OpenTrades = append(in.OpenTrades, t)
		}
	}

	acct, err := s.store.LatestAccount()
	switch {
	case err == nil:
		in.Account = *acct
	case errors.Is(err, storage.ErrNotFound):
		s.logger.Warn("no account snapshot stored; NAV checks will fail")
	default:
		return in, fmt.Errorf("loading account: %w", err)
	}

	if in.Journals, err = s.store.ListJournals(""); err != nil {
		return in, fmt.Errorf("loading journals: %w", err)
	}
	if in.Rules, err = s.store.ListRules(); err != nil {
		return in, fmt.Errorf("loading rules: %w", err)
	}
	return in, nil
}

func summarize(views []PositionView, acct models.Account, report rules.Report, now time.Time) Summary {
	sum := Summary{
		OpenPositions: len(views),
		AccountNAV:    acct.EndNAV,
		PortfolioRisk: report.Portfolio.TotalRiskPct,
		OverallScore:  report.OverallScore,
		GeneratedAt:   now.UTC(),
	}
	risks := make([]float64, 0, len(views))
	pnls := make([]float64, 0, len(views))
	for _, v := range views {
		risks = append(risks, v.Trade.MaxRisk)
		if v.Snapshot.LivePnL != nil {
			pnls = append(pnls, *v.Snapshot.LivePnL)
			sum.Priced++
		}
		if v.Risk.Level > sum.HighestRisk {
			sum.HighestRisk = v.Risk.Level
		}
	}
	sum.TotalMaxRisk = floats.Sum(risks)
	sum.TotalLivePnL = floats.Sum(pnls)
	return sum
}
