package mock

import (
	"context"

	tmock "github.com/stretchr/testify/mock"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// Source is a testify mock of a quote source.
type Source struct {
	tmock.Mock
}

func (s *Source) Price(ctx context.Context, ticker string) (float64, error) {
	args := s.Called(ctx, ticker)
	return args.Get(0).(float64), args.Error(1)
}

func (s *Source) OptionQuote(ctx context.Context, symbol string) (models.OptionQuote, error) {
	args := s.Called(ctx, symbol)
	return args.Get(0).(models.OptionQuote), args.Error(1)
}
