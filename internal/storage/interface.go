package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/eddiefleurent/options_desk/internal/config"
	"github.com/eddiefleurent/options_desk/internal/models"
)

// Interface defines the contract for trade, account, rule and journal persistence.
//
// Implementations must be safe for concurrent use. Returned values are copies;
// mutating them does not change stored state until they are saved again.
type Interface interface {
	// Trades
	ListTrades(filter TradeFilter) ([]models.Position, error)
	GetTrade(id string) (*models.Position, error)
	// SaveTrade inserts or replaces a trade, assigning an ID when empty
	SaveTrade(p *models.Position) error
	DeleteTrade(id string) error

	// Account snapshots
	LatestAccount() (*models.Account, error)
	SaveAccount(a *models.Account) error

	// Rule catalog, keyed by rule number
	ListRules() ([]models.Rule, error)
	SaveRule(r *models.Rule) error

	// Journal entries; an empty tradeID lists all
	ListJournals(tradeID string) ([]models.JournalEntry, error)
	SaveJournal(j *models.JournalEntry) error

	Close() error
}

// TradeFilter narrows ListTrades. Zero values match everything.
type TradeFilter struct {
	Status models.Status
	Ticker string
}

// Match reports whether p passes the filter. StatusOpen also matches trades with
// no recorded status.
func (f TradeFilter) Match(p *models.Position) bool {
	switch {
	case f.Status == models.StatusOpen && !p.IsOpen():
		return false
	case f.Status != "" && f.Status != models.StatusOpen && p.Status != f.Status:
		return false
	case f.Ticker != "" && !strings.EqualFold(f.Ticker, p.Ticker):
		return false
	}
	return true
}

// NewStorage creates the storage backend selected by cfg.
func NewStorage(cfg config.StorageConfig) (Interface, error) {
	switch cfg.Backend {
	case "", "json":
		return NewJSONStorage(cfg.Path)
	case "sqlite":
		return NewSQLiteStorage(cfg.Path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

func cloneTrade(p models.Position) models.Position {
	p.IBSymbols = append([]string(nil), p.IBSymbols...)
	return p
}

// sortTrades orders by entry date, then ID.
func sortTrades(ts []models.Position) {
	sort.SliceStable(ts, func(i, j int) bool {
		if !ts[i].EntryDate.Equal(ts[j].EntryDate) {
			return ts[i].EntryDate.Before(ts[j].EntryDate)
		}
		return ts[i].ID < ts[j].ID
	})
}

func sortRules(rs []models.Rule) {
	sort.Slice(rs, func(i, j int) bool { return rs[i].RuleNumber < rs[j].RuleNumber })
}

func sortJournals(js []models.JournalEntry) {
	sort.SliceStable(js, func(i, j int) bool {
		if !js[i].Date.Equal(js[j].Date) {
			return js[i].Date.Before(js[j].Date)
		}
		return js[i].ID < js[j].ID
	})
}

// latestAccount returns the account snapshot with the newest date.
func latestAccount(as []models.Account) (*models.Account, bool) {
	if len(as) == 0 {
		return nil, false
	}
	best := as[0]
	for _, a := range as[1:] {
		if a.Date.After(best.Date) {
			best = a
		}
	}
	return &best, true
}
