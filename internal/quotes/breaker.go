package quotes

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// BreakerSettings configures circuit breaker behavior
type BreakerSettings struct {
	ConsecutiveFailures uint32        // Failures in a row that open the circuit
	OpenTimeout         time.Duration // Open circuit duration
	MaxRequests         uint32        // Max requests when half-open
}

// BreakerSource wraps a Source with circuit breaker functionality. Missing quotes
// do not count as failures; only transport and API errors do.
type BreakerSource struct {
	src     Source
	breaker *gobreaker.CircuitBreaker
}

// execBreaker is a generic helper for circuit breaker wrapper methods
func execBreaker[T any](breaker *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	var zero T
	res, err := breaker.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		return zero, err
	}
	if v, ok := res.(T); ok {
		return v, nil
	}
	return zero, nil
}

// NewBreakerSource wraps src; zero settings fall back to 5 failures and 60s.
func NewBreakerSource(src Source, settings BreakerSettings, logger logrus.FieldLogger) *BreakerSource {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if settings.OpenTimeout <= 0 {
		settings.OpenTimeout = 60 * time.Second
	}
	if settings.MaxRequests == 0 {
		settings.MaxRequests = 1
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	gbSettings := gobreaker.Settings{
		Name:        "QuoteCircuitBreaker",
		MaxRequests: settings.MaxRequests,
		Timeout:     settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoQuote) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("circuit breaker state changed")
		},
	}

	return &BreakerSource{
		src:     src,
		breaker: gobreaker.NewCircuitBreaker(gbSettings),
	}
}

// State reports the breaker state, mainly for health output.
func (b *BreakerSource) State() gobreaker.State {
	return b.breaker.State()
}

// Price wraps the underlying call with circuit breaker
func (b *BreakerSource) Price(ctx context.Context, ticker string) (float64, error) {
	return execBreaker(b.breaker, func() (float64, error) { return b.src.Price(ctx, ticker) })
}

// OptionQuote wraps the underlying call with circuit breaker
func (b *BreakerSource) OptionQuote(ctx context.Context, sym string) (models.OptionQuote, error) {
	return execBreaker(b.breaker, func() (models.OptionQuote, error) { return b.src.OptionQuote(ctx, sym) })
}
