// Package quotes fetches underlying prices and option marks for open positions.
package quotes

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/options_desk/internal/config"
	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/retry"
)

// ErrNoQuote is returned when a source has nothing for the requested symbol.
var ErrNoQuote = errors.New("no quote")

// Source provides live prices. Option symbols use the "SPY 17JAN25 450 C" form.
type Source interface {
	Price(ctx context.Context, ticker string) (float64, error)
	OptionQuote(ctx context.Context, symbol string) (models.OptionQuote, error)
}

// NewSource builds the configured provider wrapped in retries and, when enabled,
// a circuit breaker.
func NewSource(cfg *config.Config, logger logrus.FieldLogger) (Source, error) {
	var src Source
	switch strings.ToLower(cfg.Quotes.Provider) {
	case "tradier":
		src = NewTradierSource(cfg.Quotes.APIKey, cfg.Quotes.APIEndpoint, cfg.QuoteTimeout())
	case "static", "":
		static := NewStaticSource()
		if cfg.Quotes.StaticFile != "" {
			loaded, err := LoadStaticFile(cfg.Quotes.StaticFile)
			if err != nil {
				return nil, err
			}
			static = loaded
		}
		src = static
	default:
		return nil, fmt.Errorf("unsupported quote provider: %s", cfg.Quotes.Provider)
	}

	src = NewRetrySource(src, retry.Config{
		MaxAttempts:    cfg.Quotes.Retry.MaxAttempts,
		InitialBackoff: cfg.RetryBaseDelay(),
	}, logger)

	if cfg.Quotes.Breaker.Enabled {
		src = NewBreakerSource(src, BreakerSettings{
			ConsecutiveFailures: cfg.Quotes.Breaker.ConsecutiveFailures,
			OpenTimeout:         cfg.BreakerOpenTimeout(),
		}, logger)
	}
	return src, nil
}
