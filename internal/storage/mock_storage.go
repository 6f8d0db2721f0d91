package storage

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// MockStorage is an in-memory Interface for tests. Setting Err makes every call fail.
type MockStorage struct {
	mu       sync.Mutex
	trades   []models.Position
	accounts []models.Account
	rules    []models.Rule
	journals []models.JournalEntry

	Err           error
	SaveCallCount int
}

// NewMockStorage creates an empty mock storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{}
}

func (m *MockStorage) ListTrades(filter TradeFilter) ([]models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.Position, 0, len(m.trades))
	for i := range m.trades {
		if filter.Match(&m.trades[i]) {
			out = append(out, cloneTrade(m.trades[i]))
		}
	}
	sortTrades(out)
	return out, nil
}

func (m *MockStorage) GetTrade(id string) (*models.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, t := range m.trades {
		if t.ID == id {
			c := cloneTrade(t)
			return &c, nil
		}
	}
	return nil, fmt.Errorf("trade %s: %w", id, ErrNotFound)
}

func (m *MockStorage) SaveTrade(p *models.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	if err := validateTrade(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	for i := range m.trades {
		if m.trades[i].ID == p.ID {
			m.trades[i] = cloneTrade(*p)
			return nil
		}
	}
	m.trades = append(m.trades, cloneTrade(*p))
	return nil
}

func (m *MockStorage) DeleteTrade(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	for i := range m.trades {
		if m.trades[i].ID == id {
			m.trades = append(m.trades[:i], m.trades[i+1:]...)
			kept := m.journals[:0]
			for _, j := range m.journals {
				if j.TradeID != id {
					kept = append(kept, j)
				}
			}
			m.journals = kept
			return nil
		}
	}
	return fmt.Errorf("trade %s: %w", id, ErrNotFound)
}

func (m *MockStorage) LatestAccount() (*models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	a, ok := latestAccount(m.accounts)
	if !ok {
		return nil, fmt.Errorf("account: %w", ErrNotFound)
	}
	return a, nil
}

func (m *MockStorage) SaveAccount(a *models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	for i := range m.accounts {
		if m.accounts[i].ID == a.ID {
			m.accounts[i] = *a
			return nil
		}
	}
	m.accounts = append(m.accounts, *a)
	return nil
}

func (m *MockStorage) ListRules() ([]models.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := append([]models.Rule(nil), m.rules...)
	sortRules(out)
	return out, nil
}

func (m *MockStorage) SaveRule(r *models.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	if err := validateRule(r); err != nil {
		return err
	}
	for i := range m.rules {
		if m.rules[i].RuleNumber == r.RuleNumber {
			if r.ID == "" {
				r.ID = m.rules[i].ID
			}
			m.rules[i] = *r
			return nil
		}
	}
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	m.rules = append(m.rules, *r)
	return nil
}

func (m *MockStorage) ListJournals(tradeID string) ([]models.JournalEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]models.JournalEntry, 0)
	for _, j := range m.journals {
		if tradeID == "" || j.TradeID == tradeID {
			out = append(out, j)
		}
	}
	sortJournals(out)
	return out, nil
}

func (m *MockStorage) SaveJournal(j *models.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SaveCallCount++
	if m.Err != nil {
		return m.Err
	}
	if err := validateJournal(j); err != nil {
		return err
	}
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	for i := range m.journals {
		if m.journals[i].ID == j.ID {
			m.journals[i] = *j
			return nil
		}
	}
	m.journals = append(m.journals, *j)
	return nil
}

func (m *MockStorage) Close() error { return nil }
