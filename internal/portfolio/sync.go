package portfolio

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/spread"
	"github.com/eddiefleurent/options_desk/internal/symbol"
)

// SyncTrades upserts trades by ID and returns how many were written. Trades without
// an ID are inserted. The first invalid trade stops the sync.
func (s *Service) SyncTrades(trades []models.Position) (int, error) {
	for i := range trades {
		if err := s.store.SaveTrade(&trades[i]); err != nil {
			return i, fmt.Errorf("syncing trade %d (%s): %w", i, trades[i].Ticker, err)
		}
	}
	s.logger.WithField("count", len(trades)).Info("trades synced")
	return len(trades), nil
}

// SyncAccount stores an account snapshot. A zero date means now.
func (s *Service) SyncAccount(a *models.Account) error {
	if a.Date.IsZero() {
		a.Date = s.now().UTC()
	}
	if err := s.store.SaveAccount(a); err != nil {
		return fmt.Errorf("syncing account: %w", err)
	}
	s.logger.WithFields(logrus.Fields{"date": a.Date.Format("2006-01-02"), "nav": a.EndNAV}).Info("account synced")
	return nil
}

// ClosePosition books realized P&L and moves the trade to a terminal status.
func (s *Service) ClosePosition(id string, to models.Status, realized float64) (*models.Position, error) {
	p, err := s.store.GetTrade(id)
	if err != nil {
		return nil, err
	}
	if err := p.Close(to, realized, s.now()); err != nil {
		return nil, err
	}
	if err := s.store.SaveTrade(p); err != nil {
		return nil, fmt.Errorf("saving closed trade: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"trade_id": p.ID,
		"status":   p.Status,
		"realized": p.RealizedPnL,
	}).Info("position closed")
	return p, nil
}

// AddJournal attaches a note to an existing trade.
func (s *Service) AddJournal(tradeID, body string) (*models.JournalEntry, error) {
	if _, err := s.store.GetTrade(tradeID); err != nil {
		return nil, err
	}
	j := &models.JournalEntry{TradeID: tradeID, Date: s.now().UTC(), Body: strings.TrimSpace(body)}
	if err := s.store.SaveJournal(j); err != nil {
		return nil, fmt.Errorf("saving journal: %w", err)
	}
	return j, nil
}

// LegInput is one raw leg as typed by a user or sent by a client.
type LegInput struct {
	Symbol   string      `json:"symbol"`
	Side     models.Side `json:"side"`
	Quantity int         `json:"quantity"`
}

// DetectSpread parses every leg symbol and classifies the set. Unparseable symbols
// are reported together.
func DetectSpread(legs []LegInput) (spread.DetectedSpread, error) {
	if len(legs) == 0 {
		return spread.DetectedSpread{}, errors.New("at least one leg is required")
	}
	parsed := make([]models.OptionLeg, 0, len(legs))
	var bad []string
	for _, in := range legs {
		ps, ok := symbol.Parse(in.Symbol)
		side, sideOK := ParseSide(string(in.Side))
		if !ok || !sideOK {
			bad = append(bad, in.Symbol)
			continue
		}
		qty := in.Quantity
		if qty < 1 {
			qty = 1
		}
		parsed = append(parsed, ps.Leg(side, qty))
	}
	if len(bad) > 0 {
		return spread.DetectedSpread{}, fmt.Errorf("invalid legs: %s", strings.Join(bad, ", "))
	}
	return spread.DetectFromLegs(parsed), nil
}

// ParseSide accepts buy/sell in any case, plus the B/S shorthand.
func ParseSide(text string) (models.Side, bool) {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "BUY", "B", "LONG":
		return models.Buy, true
	case "SELL", "S", "SHORT":
		return models.Sell, true
	}
	return "", false
}
