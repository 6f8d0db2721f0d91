package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/portfolio"
	"github.com/eddiefleurent/options_desk/internal/quotes"
	"github.com/eddiefleurent/options_desk/internal/rules"
	"github.com/eddiefleurent/options_desk/internal/storage"
)

const testToken = "s3cret"

var testNow = time.Date(2025, 1, 2, 15, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, token string) (*Server, *storage.MockStorage) {
	t.Helper()
	store := storage.NewMockStorage()
	trade := &models.Position{
		ID:          "spy-bcs",
		Ticker:      "SPY",
		Strategy:    "Bull Call Spread",
		Legs:        "Buy 290C / Sell 320C",
		Direction:   models.Bullish,
		Status:      models.StatusOpen,
		ExitTrigger: "Close at 320",
		IBSymbols:   []string{"SPY 17JAN25 290 C", "SPY 17JAN25 320 C"},
		EntryDate:   testNow.AddDate(0, 0, -20),
		Expiry:      time.Date(2025, 1, 17, 0, 0, 0, 0, time.UTC),
		CostBasis:   1700,
		MaxRisk:     1700,
		MaxProfit:   1300,
		Breakeven:   307,
	}
	require.NoError(t, store.SaveTrade(trade))
	require.NoError(t, store.SaveAccount(&models.Account{Date: testNow, EndNAV: 100000}))

	src := quotes.NewStaticSource()
	src.SetPrice("SPY", 315)

	logger, _ := test.NewNullLogger()
	desk := portfolio.NewService(store, src, rules.DefaultOptions(), logger,
		portfolio.WithClock(func() time.Time { return testNow }))
	return NewServer(Config{Port: 0, AuthToken: token}, desk, logger), store
}

func do(s *Server, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, http.NoBody)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, testToken)
	rec := do(s, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
}

func TestGetPositions(t *testing.T) {
	s, _ := newTestServer(t, testToken)
	rec := do(s, http.MethodGet, "/api/positions", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var views []portfolio.PositionView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, "spy-bcs", views[0].Trade.ID)
	require.NotNil(t, views[0].Price)
	assert.Equal(t, 315.0, *views[0].Price)
	assert.Equal(t, 1, views[0].Risk.Level)
}

func TestGetPosition(t *testing.T) {
	s, _ := newTestServer(t, testToken)

	rec := do(s, http.MethodGet, "/api/positions/spy-bcs", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(s, http.MethodGet, "/api/positions/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "not found")
}

func TestRuleScoreHidesProfitCushion(t *testing.T) {
	s, _ := newTestServer(t, testToken)
	rec := do(s, http.MethodGet, "/api/rules/score", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var report rules.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	require.Len(t, report.PerPosition, 1)
	for _, c := range report.PerPosition[0].Checks {
		assert.NotEqual(t, 9, c.RuleNumber)
	}
	assert.Len(t, report.PerPosition[0].Checks, 7)
}

func TestDetectSpread(t *testing.T) {
	s, _ := newTestServer(t, "")
	body := `{"legs":[{"symbol":"SPY 17JAN25 450 C","side":"Sell","quantity":1},{"symbol":"SPY 17JAN25 460 C","side":"Buy","quantity":1}]}`

	rec := do(s, http.MethodPost, "/api/spreads/detect", body, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"strategy":"Bear Call Spread"`)

	rec = do(s, http.MethodPost, "/api/spreads/detect", `{"legs":[{"symbol":"junk","side":"Buy"}]}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(s, http.MethodPost, "/api/spreads/detect", `{"legs":[],"extra":1}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuth(t *testing.T) {
	s, _ := newTestServer(t, testToken)

	rec := do(s, http.MethodPost, "/api/sync/account", `{"end_nav":1}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(s, http.MethodPost, "/api/sync/account", `{"end_nav":1}`, map[string]string{"X-Auth-Token": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(s, http.MethodPost, "/api/sync/account?token="+testToken, `{"end_nav":120000}`, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	disabled, _ := newTestServer(t, "")
	rec = do(disabled, http.MethodPost, "/api/sync/account", `{"end_nav":1}`, map[string]string{"X-Auth-Token": ""})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestSyncTradesAndClose(t *testing.T) {
	s, store := newTestServer(t, testToken)
	auth := map[string]string{"X-Auth-Token": testToken}

	rec := do(s, http.MethodPost, "/api/sync/trades",
		`[{"ticker":"IWM","strategy":"Long Put","status":"Open"},{"ticker":""}]`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid record is a client error")

	rec = do(s, http.MethodPost, "/api/sync/trades", `[{"ticker":"QQQ","strategy":"Iron Condor"}]`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"synced":1}`, rec.Body.String())

	rec = do(s, http.MethodPost, "/api/positions/spy-bcs/close", `{"status":"Win","realized_pnl":640}`, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	got, err := store.GetTrade("spy-bcs")
	require.NoError(t, err)
	assert.Equal(t, models.StatusWin, got.Status)
	assert.Equal(t, 640.0, got.RealizedPnL)

	rec = do(s, http.MethodPost, "/api/positions/spy-bcs/close", `{"status":"Loss"}`, auth)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(s, http.MethodPost, "/api/positions/missing/close", `{}`, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAddJournal(t *testing.T) {
	s, store := newTestServer(t, testToken)
	auth := map[string]string{"X-Auth-Token": testToken}

	rec := do(s, http.MethodPost, "/api/positions/spy-bcs/journal", `{"body":"took half off"}`, auth)
	require.Equal(t, http.StatusCreated, rec.Code)

	js, err := store.ListJournals("spy-bcs")
	require.NoError(t, err)
	require.Len(t, js, 1)
	assert.Equal(t, "took half off", js[0].Body)
}

func TestStoreFailureIs500(t *testing.T) {
	s, store := newTestServer(t, testToken)
	store.Err = assert.AnError

	rec := do(s, http.MethodGet, "/api/stats", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), assert.AnError.Error())
}
