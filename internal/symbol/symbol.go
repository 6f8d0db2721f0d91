// Package symbol decodes broker-style option identifiers such as "SPY 17JAN25 450 C".
package symbol

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/eddiefleurent/options_desk/internal/models"
)

// ParsedOptionSymbol is the canonical decoding of one broker leg identifier.
type ParsedOptionSymbol struct {
	Symbol     string            `json:"symbol"`
	Ticker     string            `json:"ticker"`
	Expiry     time.Time         `json:"expiry"`
	Strike     float64           `json:"strike"`
	OptionType models.OptionType `json:"option_type"`
}

var symbolPattern = regexp.MustCompile(`^([A-Z][A-Z0-9.]*)\s+(\d{2})([A-Z]{3})(\d{2})\s+(\d+(?:\.\d+)?)\s+([CP])$`)

var months = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// Parse decodes text into a ParsedOptionSymbol. ok is false for anything that is not
// a well-formed symbol with a real calendar date and a positive numeric strike.
func Parse(text string) (ParsedOptionSymbol, bool) {
	s := strings.ToUpper(strings.TrimSpace(text))
	m := symbolPattern.FindStringSubmatch(s)
	if m == nil {
		return ParsedOptionSymbol{}, false
	}

	month, known := months[m[3]]
	if !known {
		return ParsedOptionSymbol{}, false
	}
	day, _ := strconv.Atoi(m[2])
	yy, _ := strconv.Atoi(m[4])
	expiry := time.Date(2000+yy, month, day, 0, 0, 0, 0, time.UTC)
	// time.Date normalizes 31FEB into March; reject instead.
	if expiry.Day() != day || expiry.Month() != month {
		return ParsedOptionSymbol{}, false
	}

	strike, err := strconv.ParseFloat(m[5], 64)
	if err != nil || strike <= 0 || math.IsInf(strike, 0) || math.IsNaN(strike) {
		return ParsedOptionSymbol{}, false
	}

	optType := models.Call
	if m[6] == "P" {
		optType = models.Put
	}

	return ParsedOptionSymbol{
		Symbol:     strings.Join(strings.Fields(s), " "),
		Ticker:     m[1],
		Expiry:     expiry,
		Strike:     strike,
		OptionType: optType,
	}, true
}

// OCC renders the OSI/OCC symbol, e.g. SPY250117C00450000.
func (p ParsedOptionSymbol) OCC() string {
	root := strings.ReplaceAll(p.Ticker, ".", "")
	return fmt.Sprintf("%s%s%s%08d", root, p.Expiry.Format("060102"),
		p.OptionType.Letter(), int64(math.Round(p.Strike*1000)))
}

// Leg converts the parsed symbol into an OptionLeg with the given side and quantity.
func (p ParsedOptionSymbol) Leg(side models.Side, quantity int) models.OptionLeg {
	return models.OptionLeg{
		Ticker:     p.Ticker,
		Expiry:     p.Expiry,
		Strike:     p.Strike,
		OptionType: p.OptionType,
		Side:       side,
		Quantity:   quantity,
	}
}
