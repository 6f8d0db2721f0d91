package quotes

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	yaml "gopkg.in/yaml.v3"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/symbol"
)

// StaticSource serves prices from memory. It backs offline scoring and tests.
type StaticSource struct {
	mu      sync.RWMutex
	prices  map[string]float64
	options map[string]models.OptionQuote
}

// staticFile is the YAML layout read by LoadStaticFile:
//
//	prices:
//	  SPY: 452.10
//	options:
//	  "SPY 17JAN25 450 C": {mark: 6.20, bid: 6.10, ask: 6.30}
type staticFile struct {
	Prices  map[string]float64      `yaml:"prices"`
	Options map[string]staticOption `yaml:"options"`
}

type staticOption struct {
	Mark float64 `yaml:"mark"`
	Bid  float64 `yaml:"bid,omitempty"`
	Ask  float64 `yaml:"ask,omitempty"`
	Last float64 `yaml:"last,omitempty"`
}

// NewStaticSource creates an empty source.
func NewStaticSource() *StaticSource {
	return &StaticSource{
		prices:  make(map[string]float64),
		options: make(map[string]models.OptionQuote),
	}
}

// LoadStaticFile reads a YAML price file.
func LoadStaticFile(path string) (*StaticSource, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("failed to read quote file: %w", err)
	}

	var f staticFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse quote file: %w", err)
	}

	s := NewStaticSource()
	for ticker, px := range f.Prices {
		s.SetPrice(ticker, px)
	}
	for sym, q := range f.Options {
		if err := s.SetOption(sym, models.OptionQuote{Mark: q.Mark, Bid: q.Bid, Ask: q.Ask, Last: q.Last}); err != nil {
			return nil, fmt.Errorf("quote file: %w", err)
		}
	}
	return s, nil
}

// SetPrice records the underlying price of ticker.
func (s *StaticSource) SetPrice(ticker string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[strings.ToUpper(strings.TrimSpace(ticker))] = price
}

// SetOption records a quote under the normalized option symbol.
func (s *StaticSource) SetOption(sym string, q models.OptionQuote) error {
	parsed, ok := symbol.Parse(sym)
	if !ok {
		return fmt.Errorf("invalid option symbol %q", sym)
	}
	if q.Source == "" {
		q.Source = "static"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options[parsed.Symbol] = q
	return nil
}

func (s *StaticSource) Price(_ context.Context, ticker string) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	px, ok := s.prices[strings.ToUpper(strings.TrimSpace(ticker))]
	if !ok || px <= 0 {
		return 0, fmt.Errorf("%s: %w", ticker, ErrNoQuote)
	}
	return px, nil
}

func (s *StaticSource) OptionQuote(_ context.Context, sym string) (models.OptionQuote, error) {
	parsed, ok := symbol.Parse(sym)
	if !ok {
		return models.OptionQuote{}, fmt.Errorf("unparseable option symbol %q: %w", sym, ErrNoQuote)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.options[parsed.Symbol]
	if !ok {
		return models.OptionQuote{}, fmt.Errorf("%s: %w", parsed.Symbol, ErrNoQuote)
	}
	return q, nil
}

// WriteStaticFile saves prices and option quotes in the layout LoadStaticFile reads.
func WriteStaticFile(path string, prices map[string]float64, options map[string]models.OptionQuote) error {
	f := staticFile{Prices: prices, Options: make(map[string]staticOption, len(options))}
	for sym, q := range options {
		f.Options[sym] = staticOption{Mark: q.Mark, Bid: q.Bid, Ask: q.Ask, Last: q.Last}
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("encoding quote file: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("creating quote file directory: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o600)
}
