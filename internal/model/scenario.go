package model

import (
	"fmt"
	"time"
)

// Regime is the market condition a scenario is biased towards.
type Regime string

const (
	RegimeStable Regime = "stable"
	RegimeCrash  Regime = "crash"
)

// ParseRegime converts user input into a Regime.
func ParseRegime(s string) (Regime, error) {
	switch Regime(s) {
	case RegimeStable, RegimeCrash:
		return Regime(s), nil
	}
	return "", fmt.Errorf("unknown regime %q (want stable or crash)", s)
}

// Scenario is one synthesized market outcome over an option's life.
type Scenario struct {
	PriceAtStart float64 `json:"price_at_start"`
	PriceAtEnd   float64 `json:"price_at_end"`
	StrikePrice  float64 `json:"strike_price"`
	OptionPrice  float64 `json:"option_price"`
	ExpiryDate   string  `json:"expiry_date"`
}

// Validate checks all prices are positive and the expiry is an ISO date.
func (s Scenario) Validate() error {
	switch {
	case s.PriceAtStart <= 0:
		return fmt.Errorf("price at start must be positive, got %v", s.PriceAtStart)
	case s.PriceAtEnd <= 0:
		return fmt.Errorf("price at end must be positive, got %v", s.PriceAtEnd)
	case s.StrikePrice <= 0:
		return fmt.Errorf("strike price must be positive, got %v", s.StrikePrice)
	case s.OptionPrice <= 0:
		return fmt.Errorf("option price must be positive, got %v", s.OptionPrice)
	}
	if _, err := time.Parse(DateLayout, s.ExpiryDate); err != nil {
		return fmt.Errorf("expiry date %q: %w", s.ExpiryDate, err)
	}
	return nil
}
