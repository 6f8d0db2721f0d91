package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eddiefleurent/options_desk/internal/models"
	"github.com/eddiefleurent/options_desk/internal/symbol"
	"github.com/eddiefleurent/options_desk/internal/util"
)

const defaultTradierBaseURL = "https://api.tradier.com/v1"

// APIError represents an API error with status code and response body
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error %d: %s", e.Status, e.Body)
}

// TradierSource reads quotes from the Tradier market data API.
type TradierSource struct {
	client  *http.Client
	apiKey  string
	baseURL string
}

// NewTradierSource creates a client; an empty baseURL selects the production API.
func NewTradierSource(apiKey, baseURL string, timeout time.Duration) *TradierSource {
	return NewTradierSourceWithClient(apiKey, baseURL, &http.Client{Timeout: timeout})
}

// NewTradierSourceWithClient creates a client with a custom HTTP client.
func NewTradierSourceWithClient(apiKey, baseURL string, client *http.Client) *TradierSource {
	if baseURL == "" {
		baseURL = defaultTradierBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TradierSource{
		client:  client,
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Handle single-object vs array responses from Tradier
type singleOrArray[T any] []T

func (s *singleOrArray[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '[' {
		return json.Unmarshal(b, (*[]T)(s))
	}
	var one T
	if err := json.Unmarshal(b, &one); err != nil {
		return err
	}
	*s = append(*s, one)
	return nil
}

// quotesResponse is the /markets/quotes payload. An unknown symbol comes back as
// {"quotes":{"unmatched_symbols":{"symbol":"..."}}} with no quote key.
type quotesResponse struct {
	Quotes struct {
		Quote singleOrArray[quoteItem] `json:"quote"`
	} `json:"quotes"`
}

type quoteItem struct {
	Symbol    string  `json:"symbol"`
	Type      string  `json:"type"`
	TradeDate int64   `json:"trade_date"`
	Close     float64 `json:"close"`
	PrevClose float64 `json:"prevclose"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
	Last      float64 `json:"last"`
}

// Price returns the last trade of ticker, falling back to the bid/ask mid and
// then the previous close.
func (t *TradierSource) Price(ctx context.Context, ticker string) (float64, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	q, err := t.quote(ctx, ticker)
	if err != nil {
		return 0, err
	}
	for _, v := range []float64{q.Last, util.Mid(q.Bid, q.Ask), q.Close, q.PrevClose} {
		if v > 0 {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%s has no usable price: %w", ticker, ErrNoQuote)
}

// OptionQuote converts sym to its OCC form and returns the bid/ask mid as the mark,
// or the last trade when neither side is quoted.
func (t *TradierSource) OptionQuote(ctx context.Context, sym string) (models.OptionQuote, error) {
	parsed, ok := symbol.Parse(sym)
	if !ok {
		return models.OptionQuote{}, fmt.Errorf("unparseable option symbol %q: %w", sym, ErrNoQuote)
	}
	q, err := t.quote(ctx, parsed.OCC())
	if err != nil {
		return models.OptionQuote{}, err
	}

	mark := util.Mid(q.Bid, q.Ask)
	if mark <= 0 {
		mark = q.Last
	}
	if mark <= 0 {
		return models.OptionQuote{}, fmt.Errorf("%s has no usable mark: %w", parsed.Symbol, ErrNoQuote)
	}

	out := models.OptionQuote{
		Mark:   mark,
		Bid:    q.Bid,
		Ask:    q.Ask,
		Last:   q.Last,
		Source: "tradier",
	}
	if q.TradeDate > 0 {
		out.UpdatedAt = time.UnixMilli(q.TradeDate).UTC()
	}
	return out, nil
}

func (t *TradierSource) quote(ctx context.Context, sym string) (quoteItem, error) {
	params := url.Values{}
	params.Set("symbols", sym)
	endpoint := t.baseURL + "/markets/quotes?" + params.Encode()

	var response quotesResponse
	if err := t.makeRequestCtx(ctx, http.MethodGet, endpoint, &response); err != nil {
		return quoteItem{}, err
	}
	for _, q := range response.Quotes.Quote {
		if strings.EqualFold(q.Symbol, sym) {
			return q, nil
		}
	}
	return quoteItem{}, fmt.Errorf("%s: %w", sym, ErrNoQuote)
}

func (t *TradierSource) makeRequestCtx(ctx context.Context, method, endpoint string, response any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Add("Authorization", "Bearer "+t.apiKey)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("User-Agent", "options-desk/1.0 (+tradier)")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10)) // 64KB cap to avoid huge payloads
		if err != nil {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> failed to read error body", method, req.URL.Path)}
		}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s (retry-after: %s)", method, req.URL.Path, string(body), ra)}
		}
		return &APIError{Status: resp.StatusCode, Body: fmt.Sprintf("%s %s -> %s", method, req.URL.Path, string(body))}
	}

	if err := json.NewDecoder(resp.Body).Decode(response); err != nil && err != io.EOF {
		return fmt.Errorf("decoding %s: %w", req.URL.Path, err)
	}
	return nil
}
