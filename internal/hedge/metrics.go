// Package hedge computes how a protective-put overlay changes a portfolio's
// outcome under a market scenario. Everything here is pure.
package hedge

import (
	"fmt"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

// ContractMultiplier is the number of shares one option contract covers.
const ContractMultiplier = 100

// Inputs are the caller-supplied parameters of one metrics run.
type Inputs struct {
	PortfolioValue float64
	InsuranceRatio float64
	Scenario       model.Scenario
}

// EquityValue returns the part of the portfolio held in equity.
func EquityValue(portfolioValue, equityRatio float64) (float64, error) {
	if portfolioValue < 0 {
		return 0, apperrors.NewValidationError("portfolio_value", portfolioValue, "cannot be negative")
	}
	return portfolioValue * equityRatio, nil
}

// InsuranceBudget returns the amount spent on puts.
func InsuranceBudget(portfolioValue, insuranceRatio float64) (float64, error) {
	if portfolioValue < 0 {
		return 0, apperrors.NewValidationError("portfolio_value", portfolioValue, "cannot be negative")
	}
	if insuranceRatio < 0 {
		return 0, apperrors.NewValidationError("insurance_ratio", insuranceRatio, "cannot be negative")
	}
	return portfolioValue * insuranceRatio, nil
}

// NumberOfContracts returns how many whole contracts the budget buys.
func NumberOfContracts(budget, optionPrice float64) (int, error) {
	if budget < 0 {
		return 0, apperrors.NewValidationError("insurance_budget", budget, "cannot be negative")
	}
	if optionPrice <= 0 {
		return 0, apperrors.NewValidationError("option_price", optionPrice, "must be positive")
	}
	return int(math.Floor(budget / (optionPrice * ContractMultiplier))), nil
}

// OptionPayoff returns the per-share intrinsic value of the put at expiry.
func OptionPayoff(strikePrice, priceAtEnd float64) (float64, error) {
	if strikePrice < 0 {
		return 0, apperrors.NewValidationError("strike_price", strikePrice, "cannot be negative")
	}
	if priceAtEnd < 0 {
		return 0, apperrors.NewValidationError("price_at_end", priceAtEnd, "cannot be negative")
	}
	return math.Max(0, strikePrice-priceAtEnd), nil
}

// PriceChange returns the fractional move from start to end.
func PriceChange(priceAtStart, priceAtEnd float64) (float64, error) {
	if priceAtEnd <= 0 {
		return 0, apperrors.NewValidationError("price_at_end", priceAtEnd, "must be positive")
	}
	if priceAtStart <= 0 {
		return 0, apperrors.NewValidationError("price_at_start", priceAtStart, "must be positive")
	}
	return (priceAtEnd - priceAtStart) / priceAtStart, nil
}

// CalculatePortfolioMetrics builds the hedge report for in. Violated
// preconditions are returned as *errors.ValidationError.
func CalculatePortfolioMetrics(in Inputs) (model.PortfolioMetrics, error) {
	sc := in.Scenario
	if in.PortfolioValue < 0 {
		return model.PortfolioMetrics{}, apperrors.NewValidationError("portfolio_value", in.PortfolioValue, "cannot be negative")
	}
	if in.InsuranceRatio < 0 {
		return model.PortfolioMetrics{}, apperrors.NewValidationError("insurance_ratio", in.InsuranceRatio, "cannot be negative")
	}

	equityStart, err := EquityValue(in.PortfolioValue, 1-in.InsuranceRatio)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}
	budget, err := InsuranceBudget(in.PortfolioValue, in.InsuranceRatio)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}
	contracts, err := NumberOfContracts(budget, sc.OptionPrice)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}
	change, err := PriceChange(sc.PriceAtStart, sc.PriceAtEnd)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}
	payoff, err := OptionPayoff(sc.StrikePrice, sc.PriceAtEnd)
	if err != nil {
		return model.PortfolioMetrics{}, err
	}

	equityEnd := equityStart * (1 + change)
	withInsurance := equityEnd + payoff*float64(contracts)*ContractMultiplier
	withoutInsurance := in.PortfolioValue * (1 + change)

	strategy := fmt.Sprintf("buy %d put contracts at %s strike price to expire on %s",
		contracts, strconv.FormatFloat(sc.StrikePrice, 'f', -1, 64), sc.ExpiryDate)

	regime := model.RegimeStable
	if sc.PriceAtEnd < sc.StrikePrice {
		regime = model.RegimeCrash
	}

	return model.PortfolioMetrics{
		Scenario:                regime,
		PriceValueAtStart:       round2(sc.PriceAtStart),
		PriceValueAtEnd:         round2(sc.PriceAtEnd),
		PriceValuePercentChange: round2(change),
		EquityAtStart:           round2(equityStart),
		EquityAtEnd:             round2(equityEnd),
		InsuranceStrategyCost:   round2(budget),
		InsuranceStrategyCostAsPercentageOfPortfolio: in.InsuranceRatio,
		NumberOfContracts:                                       contracts,
		PutOptionPrice:                                          round2(sc.OptionPrice),
		OptionPayoff:                                            round2(payoff),
		OptionStrategy:                                          strategy,
		PortfolioValueAtStart:                                   in.PortfolioValue,
		PortfolioValueAtEndWithInsurance:                        round2(withInsurance),
		PortfolioValueAtEndWithoutInsurance:                     round2(withoutInsurance),
		PortfolioValuePercentChangeWithInsurance:                round2(relativeChange(withInsurance, in.PortfolioValue)),
		PortfolioValuePercentChangeWithoutInsurance:             round2(relativeChange(withoutInsurance, in.PortfolioValue)),
		PortfolioProfitLossWithInsurance:                        round2(withInsurance - in.PortfolioValue),
		PortfolioProfitLossWithoutInsurance:                     round2(withoutInsurance - in.PortfolioValue),
		DifferenceBetweenPortfolioProfitWithAndWithoutInsurance: round2(withInsurance - withoutInsurance),
	}, nil
}

// relativeChange is zero for an empty portfolio.
func relativeChange(end, start float64) float64 {
	if start == 0 {
		return 0
	}
	return (end - start) / start
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
