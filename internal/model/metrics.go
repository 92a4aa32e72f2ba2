package model

// PortfolioMetrics is the hedge-performance report for one scenario.
type PortfolioMetrics struct {
	Scenario                                                Regime  `json:"scenario"`
	PriceValueAtStart                                       float64 `json:"price_value_at_start"`
	PriceValueAtEnd                                         float64 `json:"price_value_at_end"`
	PriceValuePercentChange                                 float64 `json:"price_value_percent_change"`
	EquityAtStart                                           float64 `json:"equity_at_start"`
	EquityAtEnd                                             float64 `json:"equity_at_end"`
	InsuranceStrategyCost                                   float64 `json:"insurance_strategy_cost"`
	InsuranceStrategyCostAsPercentageOfPortfolio            float64 `json:"insurance_strategy_cost_as_percentage_of_portfolio"`
	NumberOfContracts                                       int     `json:"number_of_contracts"`
	PutOptionPrice                                          float64 `json:"put_option_price"`
	OptionPayoff                                            float64 `json:"option_payoff"`
	OptionStrategy                                          string  `json:"option_strategy"`
	PortfolioValueAtStart                                   float64 `json:"portfolio_value_at_start"`
	PortfolioValueAtEndWithInsurance                        float64 `json:"portfolio_value_at_end_with_insurance"`
	PortfolioValueAtEndWithoutInsurance                     float64 `json:"portfolio_value_at_end_without_insurance"`
	PortfolioValuePercentChangeWithInsurance                float64 `json:"portfolio_value_percent_change_with_insurance"`
	PortfolioValuePercentChangeWithoutInsurance             float64 `json:"portfolio_value_percent_change_without_insurance"`
	PortfolioProfitLossWithInsurance                        float64 `json:"portfolio_profit_loss_with_insurance"`
	PortfolioProfitLossWithoutInsurance                     float64 `json:"portfolio_profit_loss_without_insurance"`
	DifferenceBetweenPortfolioProfitWithAndWithoutInsurance float64 `json:"difference_between_portfolio_profit_with_insurance_and_without_insurance"`
}
