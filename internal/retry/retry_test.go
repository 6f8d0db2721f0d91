package retry

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) Config {
	return Config{MaxAttempts: attempts, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	var calls int32

	v, err := Do(context.Background(), fastConfig(3), logger, "quote SPY", func(context.Context) (float64, error) {
		if atomic.AddInt32(&calls, 1) < 3 {
			return 0, errors.New("API error 503: unavailable")
		}
		return 451.25, nil
	})

	require.NoError(t, err)
	assert.Equal(t, 451.25, v)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Len(t, hook.AllEntries(), 2, "one debug line per retry")
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	var calls int32
	_, err := Do(context.Background(), fastConfig(5), nil, "quote XYZ", func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, errors.New("API error 401: unauthorized")
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quote XYZ failed")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	var calls int32
	sentinel := errors.New("connection refused")
	_, err := Do(context.Background(), fastConfig(2), nil, "op", func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		return 0, sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestDo_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Do(ctx, fastConfig(3), nil, "op", func(context.Context) (int, error) {
		t.Fatal("fn must not run on a canceled context")
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDo_CanceledDuringBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := Config{MaxAttempts: 3, InitialBackoff: time.Hour, MaxBackoff: time.Hour}

	_, err := Do(ctx, cfg, nil, "op", func(context.Context) (int, error) {
		cancel()
		return 0, errors.New("timeout")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "during backoff")
}

func TestNextBackoff(t *testing.T) {
	for i := 0; i < 50; i++ {
		got := nextBackoff(100*time.Millisecond, time.Second)
		assert.GreaterOrEqual(t, got, 150*time.Millisecond)
		assert.Less(t, got, 150*time.Millisecond+150*time.Millisecond/4+1)
	}

	capped := nextBackoff(time.Second, time.Second)
	assert.GreaterOrEqual(t, capped, time.Second)
	assert.LessOrEqual(t, capped, time.Second+time.Second/4)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("API error 429: slow down"), true},
		{errors.New("API error 502: bad gateway"), true},
		{errors.New("dial tcp 10.0.0.1:443: i/o timeout"), true},
		{errors.New("API error 404: not found"), false},
		{errors.New("no quote for SPY"), false},
		{context.Canceled, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsTransient(tt.err), "%v", tt.err)
	}
}
