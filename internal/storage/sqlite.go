package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// SQLiteStorage stores each record as a JSON payload next to its indexed columns.
type SQLiteStorage struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	status TEXT NOT NULL DEFAULT '',
	entry_date DATETIME,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_trades_status ON trades(status);

CREATE TABLE IF NOT EXISTS accounts (
	id TEXT PRIMARY KEY,
	date DATETIME,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS rules (
	rule_number INTEGER PRIMARY KEY,
	payload TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS journals (
	id TEXT PRIMARY KEY,
	trade_id TEXT NOT NULL,
	date DATETIME,
	payload TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_journals_trade ON journals(trade_id);
`

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("creating storage directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(time.Hour)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// ListTrades returns matching trades ordered by entry date.
func (s *SQLiteStorage) ListTrades(filter TradeFilter) ([]models.Position, error) {
	query := "SELECT payload FROM trades"
	var where []string
	var args []any
	switch filter.Status {
	case "":
	case models.StatusOpen:
		where = append(where, "status IN (?, '')")
		args = append(args, string(models.StatusOpen))
	default:
		where = append(where, "status = ?")
		args = append(args, string(filter.Status))
	}
	if filter.Ticker != "" {
		where = append(where, "ticker = ? COLLATE NOCASE")
		args = append(args, filter.Ticker)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	defer rows.Close()

	out := make([]models.Position, 0)
	for rows.Next() {
		var p models.Position
		if err := scanPayload(rows, &p); err != nil {
			return nil, fmt.Errorf("listing trades: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing trades: %w", err)
	}
	sortTrades(out)
	return out, nil
}

// GetTrade returns the trade with the given ID.
func (s *SQLiteStorage) GetTrade(id string) (*models.Position, error) {
	var p models.Position
	err := scanPayload(s.db.QueryRow("SELECT payload FROM trades WHERE id = ?", id), &p)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading trade %s: %w", id, err)
	}
	return &p, nil
}

// SaveTrade inserts or replaces p by ID.
func (s *SQLiteStorage) SaveTrade(p *models.Position) error {
	if err := validateTrade(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	payload, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding trade: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO trades (id, ticker, status, entry_date, payload) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			ticker = excluded.ticker, status = excluded.status,
			entry_date = excluded.entry_date, payload = excluded.payload`,
		p.ID, p.Ticker, string(p.Status), p.EntryDate.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("saving trade %s: %w", p.ID, err)
	}
	return nil
}

// DeleteTrade removes a trade and its journal entries.
func (s *SQLiteStorage) DeleteTrade(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("deleting trade %s: %w", id, err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec("DELETE FROM trades WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting trade %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	if _, err := tx.Exec("DELETE FROM journals WHERE trade_id = ?", id); err != nil {
		return fmt.Errorf("deleting journals of %s: %w", id, err)
	}
	return tx.Commit()
}

// LatestAccount returns the newest account snapshot.
func (s *SQLiteStorage) LatestAccount() (*models.Account, error) {
	rows, err := s.db.Query("SELECT payload FROM accounts")
	if err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	defer rows.Close()

	var all []models.Account
	for rows.Next() {
		var a models.Account
		if err := scanPayload(rows, &a); err != nil {
			return nil, fmt.Errorf("reading accounts: %w", err)
		}
		all = append(all, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	a, ok := latestAccount(all)
	if !ok {
		return nil, fmt.Errorf("account: %w", ErrNotFound)
	}
	return a, nil
}

// SaveAccount inserts or replaces an account snapshot by ID.
func (s *SQLiteStorage) SaveAccount(a *models.Account) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	payload, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encoding account: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO accounts (id, date, payload) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET date = excluded.date, payload = excluded.payload`,
		a.ID, a.Date.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("saving account %s: %w", a.ID, err)
	}
	return nil
}

// ListRules returns the catalog ordered by rule number.
func (s *SQLiteStorage) ListRules() ([]models.Rule, error) {
	rows, err := s.db.Query("SELECT payload FROM rules ORDER BY rule_number")
	if err != nil {
		return nil, fmt.Errorf("listing rules: %w", err)
	}
	defer rows.Close()

	out := make([]models.Rule, 0)
	for rows.Next() {
		var r models.Rule
		if err := scanPayload(rows, &r); err != nil {
			return nil, fmt.Errorf("listing rules: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveRule inserts or replaces the rule with the same rule number.
func (s *SQLiteStorage) SaveRule(r *models.Rule) error {
	if err := validateRule(r); err != nil {
		return err
	}
	if r.ID == "" {
		var existing models.Rule
		err := scanPayload(s.db.QueryRow("SELECT payload FROM rules WHERE rule_number = ?", r.RuleNumber), &existing)
		switch {
		case err == nil && existing.ID != "":
			r.ID = existing.ID
		case err == nil, errors.Is(err, sql.ErrNoRows):
			r.ID = uuid.NewString()
		default:
			return fmt.Errorf("reading rule %d: %w", r.RuleNumber, err)
		}
	}
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding rule: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO rules (rule_number, payload) VALUES (?, ?)
		ON CONFLICT(rule_number) DO UPDATE SET payload = excluded.payload`,
		r.RuleNumber, string(payload))
	if err != nil {
		return fmt.Errorf("saving rule %d: %w", r.RuleNumber, err)
	}
	return nil
}

// ListJournals returns entries for tradeID, or all entries when it is empty.
func (s *SQLiteStorage) ListJournals(tradeID string) ([]models.JournalEntry, error) {
	query, args := "SELECT payload FROM journals", []any{}
	if tradeID != "" {
		query += " WHERE trade_id = ?"
		args = append(args, tradeID)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	defer rows.Close()

	out := make([]models.JournalEntry, 0)
	for rows.Next() {
		var j models.JournalEntry
		if err := scanPayload(rows, &j); err != nil {
			return nil, fmt.Errorf("listing journals: %w", err)
		}
		out = append(out, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing journals: %w", err)
	}
	sortJournals(out)
	return out, nil
}

// SaveJournal inserts or replaces a journal entry by ID.
func (s *SQLiteStorage) SaveJournal(j *models.JournalEntry) error {
	if err := validateJournal(j); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	payload, err := json.Marshal(j)
	if err != nil {
		return fmt.Errorf("encoding journal: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO journals (id, trade_id, date, payload) VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			trade_id = excluded.trade_id, date = excluded.date, payload = excluded.payload`,
		j.ID, j.TradeID, j.Date.UTC(), string(payload))
	if err != nil {
		return fmt.Errorf("saving journal %s: %w", j.ID, err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPayload(row scanner, v any) error {
	var payload string
	if err := row.Scan(&payload); err != nil {
		return err
	}
	return json.Unmarshal([]byte(payload), v)
}
