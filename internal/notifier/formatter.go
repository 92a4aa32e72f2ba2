package notifier

import (
	"fmt"
	"strings"

	"TailHedge/internal/hedge"
	"TailHedge/internal/model"
)

type field struct {
	label string
	value string
}

func money(v float64) string { return fmt.Sprintf("%.2f", v) }

func ratioPct(r float64) string { return fmt.Sprintf("%.2f%%", r*100) }

// FormatScenario formats the metrics of one regime in three sections:
// market conditions, option strategy and portfolio performance.
func FormatScenario(regime model.Regime, m model.PortfolioMetrics) string {
	sections := []struct {
		title  string
		fields []field
	}{
		{"Market Conditions", []field{
			{"scenario", string(m.Scenario)},
			{"price at start", money(m.PriceValueAtStart)},
			{"price at end", money(m.PriceValueAtEnd)},
			{"price change", ratioPct(m.PriceValuePercentChange)},
		}},
		{"Option Strategy", []field{
			{"strategy", m.OptionStrategy},
			{"put option price", money(m.PutOptionPrice)},
			{"contracts", fmt.Sprintf("%d", m.NumberOfContracts)},
			{"insurance cost", money(m.InsuranceStrategyCost)},
			{"insurance cost of portfolio", ratioPct(m.InsuranceStrategyCostAsPercentageOfPortfolio)},
			{"option payoff", money(m.OptionPayoff)},
		}},
		{"Portfolio Performance", []field{
			{"value at start", money(m.PortfolioValueAtStart)},
			{"value at end with insurance", money(m.PortfolioValueAtEndWithInsurance)},
			{"value at end without insurance", money(m.PortfolioValueAtEndWithoutInsurance)},
			{"change with insurance", ratioPct(m.PortfolioValuePercentChangeWithInsurance)},
			{"change without insurance", ratioPct(m.PortfolioValuePercentChangeWithoutInsurance)},
			{"profit/loss with insurance", money(m.PortfolioProfitLossWithInsurance)},
			{"profit/loss without insurance", money(m.PortfolioProfitLossWithoutInsurance)},
			{"insurance difference", money(m.DifferenceBetweenPortfolioProfitWithAndWithoutInsurance)},
		}},
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("-", 60) + "\n")
	b.WriteString(fmt.Sprintf("%s SCENARIO\n", strings.ToUpper(string(regime))))
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, s := range sections {
		b.WriteString(fmt.Sprintf("\n%s:\n", s.title))
		for _, f := range s.fields {
			b.WriteString(fmt.Sprintf("  %s: %s\n", f.label, f.value))
		}
	}
	return b.String()
}

// FormatComparison formats a comparison summary for one regime.
func FormatComparison(regime model.Regime, iterations int, s hedge.Summary) string {
	var b strings.Builder
	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString(fmt.Sprintf("INSURANCE RATIOS: %s, %d iterations\n", strings.ToUpper(string(regime)), iterations))
	b.WriteString(strings.Repeat("=", 60) + "\n")

	b.WriteString("\nChange with insurance (mean / min / max / std):\n")
	for _, r := range s.Ratios {
		st := r.ChangeWithInsurance
		b.WriteString(fmt.Sprintf("  %s: %.4f / %.4f / %.4f / %.4f\n", ratioPct(r.InsuranceRatio), st.Mean, st.Min, st.Max, st.Std))
	}
	b.WriteString("\nChange without insurance (mean / min / max / std):\n")
	for _, r := range s.Ratios {
		st := r.ChangeWithoutInsurance
		b.WriteString(fmt.Sprintf("  %s: %.4f / %.4f / %.4f / %.4f\n", ratioPct(r.InsuranceRatio), st.Mean, st.Min, st.Max, st.Std))
	}

	b.WriteString("\nRisk-adjusted return (higher is better):\n")
	for _, r := range s.Ratios {
		b.WriteString(fmt.Sprintf("  %s: %.4f\n", ratioPct(r.InsuranceRatio), r.RiskAdjustedReturn))
	}
	if len(s.Ratios) > 0 {
		b.WriteString(fmt.Sprintf("\nRecommended insurance ratio: %s\n", ratioPct(s.RecommendedRatio)))
	}

	var crash []hedge.RatioSummary
	for _, r := range s.Ratios {
		if r.CrashRuns > 0 {
			crash = append(crash, r)
		}
	}
	if len(crash) > 0 {
		b.WriteString("\nAverage crash protection (higher is better):\n")
		for _, r := range crash {
			b.WriteString(fmt.Sprintf("  %s: %.2f\n", ratioPct(r.InsuranceRatio), r.CrashProtection))
		}
	}
	return b.String()
}

// FormatDailyReport joins the per-regime sections of one scheduled run under
// a dated header.
func FormatDailyReport(ticker, date string, sections []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Tail hedge report | %s | %s\n\n", ticker, date))
	b.WriteString(strings.Join(sections, "\n"))
	return b.String()
}
