package quotes

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/retry"
)

// RetrySource retries transient failures of the wrapped Source.
type RetrySource struct {
	src    Source
	cfg    retry.Config
	logger logrus.FieldLogger
}

// NewRetrySource wraps src with cfg; zero fields take retry.DefaultConfig values.
func NewRetrySource(src Source, cfg retry.Config, logger logrus.FieldLogger) *RetrySource {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RetrySource{src: src, cfg: cfg, logger: logger}
}

func (r *RetrySource) Price(ctx context.Context, ticker string) (float64, error) {
	return retry.Do(ctx, r.cfg, r.logger, "price "+ticker, func(ctx context.Context) (float64, error) {
		return r.src.Price(ctx, ticker)
	})
}

func (r *RetrySource) OptionQuote(ctx context.Context, sym string) (models.OptionQuote, error) {
	return retry.Do(ctx, r.cfg, r.logger, "option quote "+sym, func(ctx context.Context) (models.OptionQuote, error) {
		return r.src.OptionQuote(ctx, sym)
	})
}
