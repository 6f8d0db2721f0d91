package quotes

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Status: 429, Body: "too many requests"}
	want := "API error 429: too many requests"
	if got := err.Error(); got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

func TestNewTradierSource_BaseURL(t *testing.T) {
	if got := NewTradierSource("k", "", time.Second).baseURL; got != defaultTradierBaseURL {
		t.Fatalf("baseURL = %q, want %q", got, defaultTradierBaseURL)
	}
	if got := NewTradierSource("k", "https://sandbox.tradier.com/v1/", time.Second).baseURL; got != "https://sandbox.tradier.com/v1" {
		t.Fatalf("baseURL = %q, want trailing slash trimmed", got)
	}
}

func newTestSourceWithServer(handler http.HandlerFunc) (*TradierSource, *httptest.Server) {
	s := httptest.NewServer(handler)
	return NewTradierSourceWithClient("test-key", s.URL, s.Client()), s
}

func TestTradierSource_OptionQuoteUsesOCCAndMid(t *testing.T) {
	src, srv := newTestSourceWithServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/markets/quotes" {
			t.Fatalf("path = %s, want /markets/quotes", r.URL.Path)
		}
		if got := r.URL.Query().Get("symbols"); got != "SPY250117C00450000" {
			t.Fatalf("symbols = %q, want OCC symbol", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("Authorization = %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Fatalf("Accept = %q, want application/json", got)
		}
		_, _ = w.Write([]byte(`{"quotes":{"quote":{"symbol":"SPY250117C00450000","type":"option","bid":6.1,"ask":6.3,"last":6.5,"trade_date":1736899200000}}}`))
	})
	defer srv.Close()

	q, err := src.OptionQuote(context.Background(), "spy 17jan25 450 c")
	if err != nil {
		t.Fatalf("OptionQuote error: %v", err)
	}
	if q.Mark < 6.199 || q.Mark > 6.201 {
		t.Fatalf("Mark = %v, want 6.2", q.Mark)
	}
	if q.Source != "tradier" || q.UpdatedAt.IsZero() {
		t.Fatalf("quote = %+v, want tradier source with timestamp", q)
	}
}

func TestTradierSource_OptionQuoteFallsBackToLast(t *testing.T) {
	src, srv := newTestSourceWithServer(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"quotes":{"quote":[{"symbol":"QQQ250321P00400000","bid":0,"ask":0,"last":2.15}]}}`))
	})
	defer srv.Close()

	q, err := src.OptionQuote(context.Background(), "QQQ 21MAR25 400 P")
	if err != nil {
		t.Fatalf("OptionQuote error: %v", err)
	}
	if q.Mark != 2.15 {
		t.Fatalf("Mark = %v, want last 2.15", q.Mark)
	}
}

func TestTradierSource_Price(t *testing.T) {
	cases := []struct {
		name string
		body string
		want float64
		err  error
	}{
		{"last", `{"quotes":{"quote":{"symbol":"AAPL","last":190.5,"bid":190,"ask":191}}}`, 190.5, nil},
		{"mid when no last", `{"quotes":{"quote":{"symbol":"AAPL","bid":190,"ask":191}}}`, 190.5, nil},
		{"prevclose", `{"quotes":{"quote":{"symbol":"AAPL","prevclose":188}}}`, 188, nil},
		{"unmatched", `{"quotes":{"unmatched_symbols":{"symbol":"AAPL"}}}`, 0, ErrNoQuote},
		{"empty array", `{"quotes":{"quote":[]}}`, 0, ErrNoQuote},
		{"no price", `{"quotes":{"quote":{"symbol":"AAPL"}}}`, 0, ErrNoQuote},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			src, srv := newTestSourceWithServer(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			defer srv.Close()

			got, err := src.Price(context.Background(), " aapl ")
			if tc.err != nil {
				if !errors.Is(err, tc.err) {
					t.Fatalf("err = %v, want %v", err, tc.err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("Price = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestTradierSource_Non2xxReturnsAPIError(t *testing.T) {
	src, srv := newTestSourceWithServer(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "3")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	})
	defer srv.Close()

	_, err := src.Price(context.Background(), "SPY")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.Status != http.StatusTooManyRequests || apiErr.Body == "" {
		t.Fatalf("APIError = %+v, want 429 with body", apiErr)
	}
}

func TestTradierSource_UnparseableSymbol(t *testing.T) {
	src := NewTradierSource("k", "http://127.0.0.1:0", time.Second)
	if _, err := src.OptionQuote(context.Background(), "SPY 450 C"); !errors.Is(err, ErrNoQuote) {
		t.Fatalf("err = %v, want ErrNoQuote", err)
	}
}
