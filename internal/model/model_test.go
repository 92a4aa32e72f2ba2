package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(d int) time.Time {
	return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC)
}

func TestPriceSeries_Validate(t *testing.T) {
	good := PriceSeries{{Date: day(2), Close: 10}, {Date: day(3), Close: 11}}
	require.NoError(t, good.Validate())
	assert.Equal(t, []float64{10, 11}, good.Closes())
	assert.Equal(t, 11.0, good.Last().Close)

	tests := []struct {
		name   string
		series PriceSeries
	}{
		{"empty", nil},
		{"zero close", PriceSeries{{Date: day(2), Close: 0}}},
		{"duplicate date", PriceSeries{{Date: day(2), Close: 1}, {Date: day(2), Close: 1}}},
		{"out of order", PriceSeries{{Date: day(3), Close: 1}, {Date: day(2), Close: 1}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.series.Validate())
		})
	}
}

func TestOptionQuote_Price(t *testing.T) {
	assert.Equal(t, 3.2, OptionQuote{LastPrice: 3.2, Bid: 3.0}.Price())
	assert.Equal(t, 3.0, OptionQuote{Bid: 3.0}.Price())
	assert.Equal(t, DefaultOptionPrice, OptionQuote{}.Price())
}

func TestPriceBand(t *testing.T) {
	b := OTMPutBand(100)
	assert.InDelta(t, 70, b.Low, 1e-9)
	assert.InDelta(t, 90, b.High, 1e-9)
	assert.True(t, b.Contains(70))
	assert.True(t, b.Contains(90))
	assert.False(t, b.Contains(90.01))

	assert.True(t, b.Covers(PriceBand{Low: 75, High: 85}))
	assert.True(t, b.Covers(b))
	assert.False(t, b.Covers(OTMPutBand(101)))
}

func TestOptionChain_Filter(t *testing.T) {
	c := OptionChain{Puts: []OptionQuote{{Strike: 60}, {Strike: 75}, {Strike: 90}, {Strike: 95}}}
	got := c.Filter(OTMPutBand(100))
	require.Len(t, got, 2)
	assert.Equal(t, 75.0, got[0].Strike)
	assert.Equal(t, 90.0, got[1].Strike)
}

func TestScenario_Validate(t *testing.T) {
	sc := Scenario{PriceAtStart: 100, PriceAtEnd: 90, StrikePrice: 80, OptionPrice: 1, ExpiryDate: "2025-03-21"}
	require.NoError(t, sc.Validate())

	bad := sc
	bad.ExpiryDate = "21/03/2025"
	assert.Error(t, bad.Validate())
	bad = sc
	bad.OptionPrice = 0
	assert.Error(t, bad.Validate())
}

func TestParseRegime(t *testing.T) {
	r, err := ParseRegime("crash")
	require.NoError(t, err)
	assert.Equal(t, RegimeCrash, r)
	_, err = ParseRegime("Crash")
	assert.Error(t, err)
}
