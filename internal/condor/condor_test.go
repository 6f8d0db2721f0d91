package condor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const condorLegs = "160P / 165P / 205C / 210C"

func TestZoneFor_CreditResolution(t *testing.T) {
	tests := []struct {
		name      string
		breakeven float64
		maxProfit float64
		contracts int
		credit    float64
		source    CreditSource
	}{
		{name: "max profit wins", breakeven: 163, maxProfit: 240, contracts: 2, credit: 1.2, source: CreditFromMaxProfit},
		{name: "max profit too large falls to breakeven", breakeven: 163.5, maxProfit: 900, contracts: 1, credit: 1.5, source: CreditFromBreakeven},
		{name: "no data estimates from width", breakeven: 0, maxProfit: 0, contracts: 1, credit: 1.0, source: CreditEstimated},
		{name: "zero contracts treated as one", breakeven: 0, maxProfit: 150, contracts: 0, credit: 1.5, source: CreditFromMaxProfit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			z, ok := ZoneFor(Strategy, condorLegs, tt.breakeven, tt.maxProfit, tt.contracts)
			require.True(t, ok)
			assert.Equal(t, 160.0, z.LowerWing)
			assert.Equal(t, 165.0, z.LowerShort)
			assert.Equal(t, 205.0, z.UpperShort)
			assert.Equal(t, 210.0, z.UpperWing)
			assert.Equal(t, 5.0, z.Width)
			assert.InDelta(t, tt.credit, z.CreditPerShare, 1e-9)
			assert.Equal(t, tt.source, z.CreditSource)
			assert.InDelta(t, 165-tt.credit, z.LowerBreakeven, 1e-9)
			assert.InDelta(t, 205+tt.credit, z.UpperBreakeven, 1e-9)
		})
	}
}

func TestZoneFor_NotApplicable(t *testing.T) {
	cases := []struct {
		name     string
		strategy string
		legs     string
	}{
		{"other strategy", "Bull Put Spread", condorLegs},
		{"too few calls", Strategy, "160P / 165P / 205C"},
		{"no tokens", Strategy, "wide condor"},
		{"touching shorts", Strategy, "570P / 575P / 575C / 580C"},
		{"crossed shorts", Strategy, "160P / 210P / 205C / 215C"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, ok := ZoneFor(c.strategy, c.legs, 0, 0, 1)
			assert.False(t, ok)
		})
	}
}

func TestZoneFor_TolerantParsing(t *testing.T) {
	z, ok := ZoneFor(Strategy, "buy 160 p, sell 165.5P; sell 205 C buy 212.5c", 0, 0, 1)
	require.True(t, ok)
	assert.Equal(t, 160.0, z.LowerWing)
	assert.Equal(t, 165.5, z.LowerShort)
	assert.Equal(t, 205.0, z.UpperShort)
	assert.Equal(t, 212.5, z.UpperWing)
	assert.Equal(t, 5.5, z.Width)
}

func TestClassify_Boundaries(t *testing.T) {
	z, ok := ZoneFor(Strategy, condorLegs, 0, 100, 1) // credit 1.00
	require.True(t, ok)

	tests := []struct {
		price float64
		want  Band
	}{
		{150, MaxLossLow},
		{160, MaxLossLow},
		{160.5, RecoverLow},
		{164, ProfitLow}, // lower breakeven itself
		{164.5, ProfitLow},
		{165, MaxProfitCore},
		{185, MaxProfitCore},
		{205, MaxProfitCore},
		{205.5, ProfitHigh},
		{206, ProfitHigh}, // upper breakeven itself
		{208, RecoverHigh},
		{210, MaxLossHigh},
		{250, MaxLossHigh},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Classify(tt.price, z), "price %v", tt.price)
	}
}

func TestPnLAtExpiry(t *testing.T) {
	z, ok := ZoneFor(Strategy, condorLegs, 0, 240, 2) // credit 1.20
	require.True(t, ok)

	assert.Equal(t, 240.0, PnLAtExpiry(185, z, 2))
	assert.Equal(t, 240.0, MaxProfit(z, 2))
	assert.Equal(t, 0.0, PnLAtExpiry(163.8, z, 2))
	assert.Equal(t, -760.0, PnLAtExpiry(150, z, 2))
	assert.Equal(t, -760.0, PnLAtExpiry(260, z, 2))
	assert.Equal(t, -60.0, PnLAtExpiry(206.5, z, 2))
}

func TestBandIsProfit(t *testing.T) {
	assert.True(t, ProfitLow.IsProfit())
	assert.True(t, MaxProfitCore.IsProfit())
	assert.True(t, ProfitHigh.IsProfit())
	assert.False(t, RecoverLow.IsProfit())
	assert.False(t, MaxLossHigh.IsProfit())
}
