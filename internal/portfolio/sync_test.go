package portfolio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/spread"
	"github.com/eddiefleurent/options_desk/internal/storage"
)

func TestService_SyncTrades(t *testing.T) {
	svc, store, _ := newFixture(t)

	n, err := svc.SyncTrades([]models.Position{
		{Ticker: "IWM", Strategy: "Long Put", Status: models.StatusOpen},
		{ID: "spy-bcs", Ticker: "SPY", Strategy: "Bull Call Spread", MaxRisk: 900},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := store.ListTrades(storage.TradeFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	got, err := store.GetTrade("spy-bcs")
	require.NoError(t, err)
	assert.Equal(t, 900.0, got.MaxRisk)

	n, err = svc.SyncTrades([]models.Position{{Ticker: "DIA"}, {Ticker: ""}})
	assert.Equal(t, 1, n)
	assert.ErrorIs(t, err, storage.ErrInvalidRecord)
}

func TestService_SyncAccount(t *testing.T) {
	svc, store, _ := newFixture(t)

	a := &models.Account{EndNAV: 125000}
	require.NoError(t, svc.SyncAccount(a))
	assert.Equal(t, testNow, a.Date)

	latest, err := store.LatestAccount()
	require.NoError(t, err)
	assert.Equal(t, 125000.0, latest.EndNAV)
}

func TestService_ClosePosition(t *testing.T) {
	svc, store, _ := newFixture(t)

	p, err := svc.ClosePosition("spy-bcs", "", 912.456)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWin, p.Status)
	assert.Equal(t, 912.46, p.RealizedPnL)
	assert.Equal(t, testNow, p.ExitDate)

	stored, err := store.GetTrade("spy-bcs")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWin, stored.Status)

	_, err = svc.ClosePosition("spy-bcs", models.StatusLoss, -10)
	assert.ErrorIs(t, err, models.ErrInvalidTransition)

	_, err = svc.ClosePosition("missing", "", 0)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestService_AddJournal(t *testing.T) {
	svc, store, _ := newFixture(t)

	j, err := svc.AddJournal("qqq-ic", "  rolled the call side  ")
	require.NoError(t, err)
	assert.Equal(t, "rolled the call side", j.Body)
	assert.NotEmpty(t, j.ID)

	js, err := store.ListJournals("qqq-ic")
	require.NoError(t, err)
	assert.Len(t, js, 2)

	_, err = svc.AddJournal("missing", "x")
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestDetectSpread(t *testing.T) {
	got, err := DetectSpread([]LegInput{
		{Symbol: "SPY 17JAN25 420 P", Side: "sell", Quantity: 2},
		{Symbol: "SPY 17JAN25 410 P", Side: "BUY", Quantity: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, spread.BullPutSpread, got.Strategy)
	assert.Equal(t, models.Bullish, got.Direction)
	assert.Equal(t, 2, got.Contracts)

	_, err = DetectSpread([]LegInput{{Symbol: "SPY 31FEB25 420 P", Side: "Buy"}, {Symbol: "SPY 17JAN25 410 P", Side: "hold"}})
	assert.ErrorContains(t, err, "SPY 31FEB25 420 P, SPY 17JAN25 410 P")

	_, err = DetectSpread(nil)
	assert.Error(t, err)
}

func TestParseSide(t *testing.T) {
	tests := []struct {
		in   string
		want models.Side
		ok   bool
	}{
		{"buy", models.Buy, true},
		{" S ", models.Sell, true},
		{"Short", models.Sell, true},
		{"hold", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSide(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}
