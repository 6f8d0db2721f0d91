// Package dashboard serves the desk's JSON API.
package dashboard

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/portfolio"
	"github.com/eddiefleurent/options_desk/internal/storage"
)

// maxBodyBytes caps request bodies on the write endpoints.
const maxBodyBytes = 1 << 20

// Desk is the portfolio service as seen by the HTTP layer.
type Desk interface {
	Overview(ctx context.Context) (portfolio.Overview, error)
	Position(ctx context.Context, id string) (portfolio.PositionView, error)
	Stats() (portfolio.Statistics, error)
	SyncTrades(trades []models.Position) (int, error)
	SyncAccount(a *models.Account) error
	ClosePosition(id string, to models.Status, realized float64) (*models.Position, error)
	AddJournal(tradeID, body string) (*models.JournalEntry, error)
}

type Server struct {
	router    *chi.Mux
	server    *http.Server
	desk      Desk
	logger    *logrus.Logger
	port      int
	authToken string
	started   time.Time
}

type Config struct {
	Port      int
	AuthToken string
}

func NewServer(cfg Config, desk Desk, logger *logrus.Logger) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		desk:      desk,
		logger:    logger,
		port:      cfg.Port,
		authToken: cfg.AuthToken,
		started:   time.Now(),
	}

	s.setupRoutes()
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/positions", s.handleGetPositions)
		r.Get("/positions/{id}", s.handleGetPosition)
		r.Get("/rules/score", s.handleRuleScore)
		r.Get("/stats", s.handleGetStats)
		r.Post("/spreads/detect", s.handleDetectSpread)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/sync/trades", s.handleSyncTrades)
			r.Post("/sync/account", s.handleSyncAccount)
			r.Post("/positions/{id}/close", s.handleClosePosition)
			r.Post("/positions/{id}/journal", s.handleAddJournal)
		})
	})
}

// authMiddleware guards write routes. With no configured token they are disabled.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.authToken == "" {
			s.writeError(w, http.StatusForbidden, errors.New("sync endpoints are disabled"))
			return
		}

		token := r.Header.Get("X-Auth-Token")
		if token == "" {
			token = r.URL.Query().Get("token")
		}

		if subtle.ConstantTimeCompare([]byte(token), []byte(s.authToken)) != 1 {
			s.writeError(w, http.StatusUnauthorized, errors.New("unauthorized"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) Start() error {
	s.logger.Infof("Starting dashboard server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := s.desk.Overview(r.Context())
	if err != nil {
		s.fail(w, "Failed to build overview", err)
		return
	}
	ov.Report = ov.Report.Public()
	s.writeJSON(w, http.StatusOK, ov)
}

func (s *Server) handleGetPositions(w http.ResponseWriter, r *http.Request) {
	ov, err := s.desk.Overview(r.Context())
	if err != nil {
		s.fail(w, "Failed to load positions", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ov.Positions)
}

func (s *Server) handleGetPosition(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	view, err := s.desk.Position(r.Context(), id)
	if err != nil {
		s.fail(w, "Failed to load position", err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleRuleScore(w http.ResponseWriter, r *http.Request) {
	ov, err := s.desk.Overview(r.Context())
	if err != nil {
		s.fail(w, "Failed to score rules", err)
		return
	}
	s.writeJSON(w, http.StatusOK, ov.Report.Public())
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.desk.Stats()
	if err != nil {
		s.fail(w, "Failed to calculate statistics", err)
		return
	}
	s.writeJSON(w, http.StatusOK, stats)
}

type detectRequest struct {
	Legs []portfolio.LegInput `json:"legs"`
}

func (s *Server) handleDetectSpread(w http.ResponseWriter, r *http.Request) {
	var req detectRequest
	if !s.decode(w, r, &req) {
		return
	}
	detected, err := portfolio.DetectSpread(req.Legs)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	s.writeJSON(w, http.StatusOK, detected)
}

func (s *Server) handleSyncTrades(w http.ResponseWriter, r *http.Request) {
	var trades []models.Position
	if !s.decode(w, r, &trades) {
		return
	}
	n, err := s.desk.SyncTrades(trades)
	if err != nil {
		s.fail(w, "Failed to sync trades", err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]int{"synced": n})
}

func (s *Server) handleSyncAccount(w http.ResponseWriter, r *http.Request) {
	var acct models.Account
	if !s.decode(w, r, &acct) {
		return
	}
	if err := s.desk.SyncAccount(&acct); err != nil {
		s.fail(w, "Failed to sync account", err)
		return
	}
	s.writeJSON(w, http.StatusOK, acct)
}

type closeRequest struct {
	Status      models.Status `json:"status"`
	RealizedPnL float64       `json:"realized_pnl"`
}

func (s *Server) handleClosePosition(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if !s.decode(w, r, &req) {
		return
	}
	p, err := s.desk.ClosePosition(chi.URLParam(r, "id"), req.Status, req.RealizedPnL)
	if err != nil {
		s.fail(w, "Failed to close position", err)
		return
	}
	s.writeJSON(w, http.StatusOK, p)
}

type journalRequest struct {
	Body string `json:"body"`
}

func (s *Server) handleAddJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if !s.decode(w, r, &req) {
		return
	}
	j, err := s.desk.AddJournal(chi.URLParam(r, "id"), req.Body)
	if err != nil {
		s.fail(w, "Failed to add journal entry", err)
		return
	}
	s.writeJSON(w, http.StatusCreated, j)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return false
	}
	return true
}

// fail maps domain errors to status codes; anything unexpected is logged as a 500.
func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.writeError(w, http.StatusNotFound, err)
	case errors.Is(err, storage.ErrInvalidRecord):
		s.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, models.ErrInvalidTransition):
		s.writeError(w, http.StatusConflict, err)
	default:
		s.logger.WithError(err).Error(msg)
		s.writeError(w, http.StatusInternalServerError, errors.New("internal server error"))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}
