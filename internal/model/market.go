package model

import (
	"errors"
	"fmt"
	"time"
)

// Bar represents a single daily candlestick.
type Bar struct {
	Date  time.Time `msgpack:"date"`
	Open  float64   `msgpack:"open"`
	High  float64   `msgpack:"high"`
	Low   float64   `msgpack:"low"`
	Close float64   `msgpack:"close"`
}

// PriceSeries holds daily bars in chronological order.
type PriceSeries []Bar

// Closes returns the closing prices in order.
func (s PriceSeries) Closes() []float64 {
	closes := make([]float64, len(s))
	for i, b := range s {
		closes[i] = b.Close
	}
	return closes
}

// Last returns the most recent bar. The series must not be empty.
func (s PriceSeries) Last() Bar {
	return s[len(s)-1]
}

// Validate checks the series is non-empty, strictly increasing in date and
// carries positive closes.
func (s PriceSeries) Validate() error {
	if len(s) == 0 {
		return errors.New("price series is empty")
	}
	for i, b := range s {
		if b.Close <= 0 {
			return fmt.Errorf("bar %d (%s): close must be positive, got %v", i, b.Date.Format(DateLayout), b.Close)
		}
		if i > 0 && !b.Date.After(s[i-1].Date) {
			return fmt.Errorf("bar %d (%s): dates not strictly increasing", i, b.Date.Format(DateLayout))
		}
	}
	return nil
}

// DateLayout is the ISO calendar date layout used for expiries.
const DateLayout = "2006-01-02"
