package portfolio

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/storage"
)

// Statistics summarizes closed-trade history.
type Statistics struct {
	TotalTrades   int     `json:"total_trades"`
	WinningTrades int     `json:"winning_trades"`
	LosingTrades  int     `json:"losing_trades"`
	ExpiredTrades int     `json:"expired_trades"`
	WinRate       float64 `json:"win_rate"`
	TotalPnL      float64 `json:"total_pnl"`
	AveragePnL    float64 `json:"average_pnl"`
	PnLStdDev     float64 `json:"pnl_std_dev"`
	CurrentOpen   int     `json:"current_open"`
}

// Stats reads every trade and summarizes the closed ones.
func (s *Service) Stats() (Statistics, error) {
	trades, err := s.store.ListTrades(storage.TradeFilter{})
	if err != nil {
		return Statistics{}, fmt.Errorf("loading trades: %w", err)
	}
	return computeStats(trades), nil
}

func computeStats(trades []models.Position) Statistics {
	var st Statistics
	pnls := make([]float64, 0, len(trades))
	for _, t := range trades {
		if t.IsOpen() {
			st.CurrentOpen++
			continue
		}
		st.TotalTrades++
		switch t.Status {
		case models.StatusWin:
			st.WinningTrades++
		case models.StatusLoss:
			st.LosingTrades++
		case models.StatusExpired:
			st.ExpiredTrades++
		}
		pnls = append(pnls, t.RealizedPnL)
	}

	if st.TotalTrades > 0 {
		st.WinRate = float64(st.WinningTrades) / float64(st.TotalTrades) * 100
		st.TotalPnL = floats.Sum(pnls)
		st.AveragePnL = stat.Mean(pnls, nil)
	}
	if len(pnls) > 1 {
		st.PnLStdDev = stat.StdDev(pnls, nil)
	}
	return st
}
