package calculator

import (
	"errors"
	"fmt"
	"math"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

// TradingDaysPerYear annualises daily statistics.
const TradingDaysPerYear = 252

// DefaultLookback is the trailing window used for historical volatility.
const DefaultLookback = 60

// LogReturns returns ln(p[i]/p[i-1]) for consecutive prices.
func LogReturns(prices []float64) ([]float64, error) {
	if len(prices) < 2 {
		return nil, errors.New("need at least two prices for returns")
	}
	out := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			return nil, fmt.Errorf("non-positive price at index %d", i)
		}
		out = append(out, math.Log(prices[i]/prices[i-1]))
	}
	return out, nil
}

// StdDev computes the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	ss := 0.0
	for _, v := range values {
		ss += (v - mean) * (v - mean)
	}
	return math.Sqrt(ss / float64(len(values)))
}

// HistoricalVolatility returns the annualised standard deviation of the log
// returns over the trailing lookback bars.
func HistoricalVolatility(bars model.PriceSeries, lookback int) (float64, error) {
	if lookback < 2 {
		return 0, errors.New("lookback must be at least 2")
	}
	if len(bars) < lookback {
		return 0, fmt.Errorf("have %d bars, need %d: %w", len(bars), lookback, apperrors.ErrInsufficientData)
	}
	closes := bars[len(bars)-lookback:].Closes()
	returns, err := LogReturns(closes)
	if err != nil {
		return 0, err
	}
	return StdDev(returns) * math.Sqrt(TradingDaysPerYear), nil
}
