package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// JSONStorage keeps every record in a single JSON document on disk.
type JSONStorage struct {
	mu       sync.RWMutex
	filepath string
	data     *document
}

type document struct {
	Trades      []models.Position     `json:"trades"`
	Accounts    []models.Account      `json:"accounts"`
	Rules       []models.Rule         `json:"rules"`
	Journals    []models.JournalEntry `json:"journals"`
	LastUpdated time.Time             `json:"last_updated"`
}

// NewJSONStorage opens the document at path, creating it on first save.
func NewJSONStorage(path string) (*JSONStorage, error) {
	s := &JSONStorage{
		filepath: path,
		data:     &document{},
	}

	if _, err := os.Stat(path); err == nil {
		if err := s.load(); err != nil {
			return nil, fmt.Errorf("loading storage: %w", err)
		}
	}

	return s, nil
}

func (s *JSONStorage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filepath) // #nosec G304 -- path comes from configuration
	if err != nil {
		return err
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.data = &doc
	return nil
}

// save writes the document; callers hold the write lock.
func (s *JSONStorage) save() error {
	s.data.LastUpdated = time.Now().UTC()

	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding storage: %w", err)
	}

	if dir := filepath.Dir(s.filepath); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating storage directory: %w", err)
		}
	}

	// Write to temp file first
	tmpFile := s.filepath + ".tmp"
	if err := os.WriteFile(tmpFile, data, 0o600); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpFile, s.filepath)
}

// ListTrades returns matching trades ordered by entry date.
func (s *JSONStorage) ListTrades(filter TradeFilter) ([]models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.Position, 0, len(s.data.Trades))
	for i := range s.data.Trades {
		if filter.Match(&s.data.Trades[i]) {
			out = append(out, cloneTrade(s.data.Trades[i]))
		}
	}
	sortTrades(out)
	return out, nil
}

// GetTrade returns a copy of the trade with the given ID.
func (s *JSONStorage) GetTrade(id string) (*models.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.data.Trades {
		if t.ID == id {
			c := cloneTrade(t)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
}

// SaveTrade inserts or replaces p by ID.
func (s *JSONStorage) SaveTrade(p *models.Position) error {
	if err := validateTrade(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	stored := cloneTrade(*p)
	replaced := false
	for i := range s.data.Trades {
		if s.data.Trades[i].ID == p.ID {
			s.data.Trades[i] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.data.Trades = append(s.data.Trades, stored)
	}
	return s.save()
}

// DeleteTrade removes a trade and its journal entries.
func (s *JSONStorage) DeleteTrade(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i := range s.data.Trades {
		if s.data.Trades[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("trade %s: %w", id, ErrNotFound)
	}
	s.data.Trades = append(s.data.Trades[:idx], s.data.Trades[idx+1:]...)

	kept := s.data.Journals[:0]
	for _, j := range s.data.Journals {
		if j.TradeID != id {
			kept = append(kept, j)
		}
	}
	s.data.Journals = kept
	return s.save()
}

// LatestAccount returns the newest account snapshot.
func (s *JSONStorage) LatestAccount() (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := latestAccount(s.data.Accounts)
	if !ok {
		return nil, fmt.Errorf("account: %w", ErrNotFound)
	}
	return a, nil
}

// SaveAccount inserts or replaces an account snapshot by ID.
func (s *JSONStorage) SaveAccount(a *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for i := range s.data.Accounts {
		if s.data.Accounts[i].ID == a.ID {
			s.data.Accounts[i] = *a
			return s.save()
		}
	}
	s.data.Accounts = append(s.data.Accounts, *a)
	return s.save()
}

// ListRules returns the catalog ordered by rule number.
func (s *JSONStorage) ListRules() ([]models.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := append([]models.Rule(nil), s.data.Rules...)
	sortRules(out)
	return out, nil
}

// SaveRule inserts or replaces the rule with the same rule number.
func (s *JSONStorage) SaveRule(r *models.Rule) error {
	if err := validateRule(r); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.data.Rules {
		if s.data.Rules[i].RuleNumber == r.RuleNumber {
			if r.ID == "" {
				r.ID = s.data.Rules[i].ID
			}
			s.data.Rules[i] = *r
			return s.save()
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	s.data.Rules = append(s.data.Rules, *r)
	return s.save()
}

// ListJournals returns entries for tradeID, or all entries when it is empty.
func (s *JSONStorage) ListJournals(tradeID string) ([]models.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.JournalEntry, 0)
	for _, j := range s.data.Journals {
		if tradeID == "" || j.TradeID == tradeID {
			out = append(out, j)
		}
	}
	sortJournals(out)
	return out, nil
}

// SaveJournal inserts or replaces a journal entry by ID.
func (s *JSONStorage) SaveJournal(j *models.JournalEntry) error {
	if err := validateJournal(j); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	for i := range s.data.Journals {
		if s.data.Journals[i].ID == j.ID {
			s.data.Journals[i] = *j
			return s.save()
		}
	}
	s.data.Journals = append(s.data.Journals, *j)
	return s.save()
}

// Close is a no-op; every write is already flushed.
func (s *JSONStorage) Close() error {
	return nil
}

func validateTrade(p *models.Position) error {
	if p == nil || strings.TrimSpace(p.Ticker) == "" {
		return fmt.Errorf("trade ticker is required: %w", ErrInvalidRecord)
	}
	if p.Status != "" && !p.Status.Valid() {
		return fmt.Errorf("trade status %q: %w", p.Status, ErrInvalidRecord)
	}
	return nil
}

func validateRule(r *models.Rule) error {
	if r == nil || r.RuleNumber <= 0 {
		return fmt.Errorf("rule number must be > 0: %w", ErrInvalidRecord)
	}
	return nil
}

func validateJournal(j *models.JournalEntry) error {
	if j == nil || j.TradeID == "" {
		return fmt.Errorf("journal trade id is required: %w", ErrInvalidRecord)
	}
	return nil
}
