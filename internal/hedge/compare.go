package hedge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"TailHedge/internal/model"
)

// ScenarioSource produces scenarios for the comparison loop.
type ScenarioSource interface {
	GenerateScenario(ctx context.Context, regime model.Regime) (model.Scenario, error)
}

// Row is the report of one insurance ratio under one scenario draw.
type Row struct {
	Iteration      int
	InsuranceRatio float64
	Scenario       model.Scenario
	Metrics        model.PortfolioMetrics
}

// Stats summarises one metric across iterations. Std is the sample standard
// deviation and is zero below two observations.
type Stats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Std  float64 `json:"std"`
}

// RatioSummary aggregates all rows of one insurance ratio.
type RatioSummary struct {
	InsuranceRatio         float64 `json:"insurance_ratio"`
	Runs                   int     `json:"runs"`
	ChangeWithInsurance    Stats   `json:"portfolio_value_percent_change_with_insurance"`
	ChangeWithoutInsurance Stats   `json:"portfolio_value_percent_change_without_insurance"`
	ProfitDifference       Stats   `json:"difference_between_portfolio_profit_with_insurance_and_without_insurance"`
	RiskAdjustedReturn     float64 `json:"risk_adjusted_return"`
	CrashRuns              int     `json:"crash_runs"`
	CrashProtection        float64 `json:"crash_protection"`
}

// Summary is the outcome of a comparison run.
type Summary struct {
	Ratios           []RatioSummary `json:"ratios"`
	RecommendedRatio float64        `json:"recommended_ratio"`
}

// Linspace returns steps evenly spaced values from min to max inclusive.
func Linspace(min, max float64, steps int) ([]float64, error) {
	if steps < 1 {
		return nil, fmt.Errorf("steps must be at least 1, got %d", steps)
	}
	if steps == 1 {
		return []float64{min}, nil
	}
	out := make([]float64, steps)
	step := (max - min) / float64(steps-1)
	for i := range out {
		out[i] = min + step*float64(i)
	}
	out[steps-1] = max
	return out, nil
}

// Compare draws iterations scenarios for regime and evaluates every ratio
// against each draw, so ratios are compared on identical market paths.
func Compare(ctx context.Context, src ScenarioSource, portfolioValue float64, ratios []float64, regime model.Regime, iterations int) ([]Row, error) {
	if len(ratios) == 0 {
		return nil, errors.New("no insurance ratios to compare")
	}
	if iterations < 1 {
		return nil, fmt.Errorf("iterations must be at least 1, got %d", iterations)
	}

	rows := make([]Row, 0, iterations*len(ratios))
	for i := 0; i < iterations; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		sc, err := src.GenerateScenario(ctx, regime)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", i, err)
		}
		for _, ratio := range ratios {
			m, err := CalculatePortfolioMetrics(Inputs{
				PortfolioValue: portfolioValue,
				InsuranceRatio: ratio,
				Scenario:       sc,
			})
			if err != nil {
				return nil, fmt.Errorf("iteration %d ratio %v: %w", i, ratio, err)
			}
			rows = append(rows, Row{Iteration: i, InsuranceRatio: ratio, Scenario: sc, Metrics: m})
		}
	}
	return rows, nil
}

// Summarize groups rows by ratio in ascending order and recommends the ratio
// with the best risk-adjusted return. Ties keep the lower ratio.
func Summarize(rows []Row) Summary {
	groups := make(map[float64][]model.PortfolioMetrics)
	var ratios []float64
	for _, r := range rows {
		if _, seen := groups[r.InsuranceRatio]; !seen {
			ratios = append(ratios, r.InsuranceRatio)
		}
		groups[r.InsuranceRatio] = append(groups[r.InsuranceRatio], r.Metrics)
	}
	sort.Float64s(ratios)

	var s Summary
	best := math.Inf(-1)
	for _, ratio := range ratios {
		ms := groups[ratio]
		rs := RatioSummary{
			InsuranceRatio:         ratio,
			Runs:                   len(ms),
			ChangeWithInsurance:    stats(ms, func(m model.PortfolioMetrics) float64 { return m.PortfolioValuePercentChangeWithInsurance }),
			ChangeWithoutInsurance: stats(ms, func(m model.PortfolioMetrics) float64 { return m.PortfolioValuePercentChangeWithoutInsurance }),
			ProfitDifference: stats(ms, func(m model.PortfolioMetrics) float64 {
				return m.DifferenceBetweenPortfolioProfitWithAndWithoutInsurance
			}),
		}

		rs.RiskAdjustedReturn = rs.ChangeWithInsurance.Mean
		if rs.ChangeWithInsurance.Std > 0 {
			rs.RiskAdjustedReturn = rs.ChangeWithInsurance.Mean / rs.ChangeWithInsurance.Std
		}

		var protection float64
		for _, m := range ms {
			if m.Scenario == model.RegimeCrash {
				rs.CrashRuns++
				protection += m.DifferenceBetweenPortfolioProfitWithAndWithoutInsurance
			}
		}
		if rs.CrashRuns > 0 {
			rs.CrashProtection = protection / float64(rs.CrashRuns)
		}

		if rs.RiskAdjustedReturn > best {
			best = rs.RiskAdjustedReturn
			s.RecommendedRatio = ratio
		}
		s.Ratios = append(s.Ratios, rs)
	}
	return s
}

func stats(ms []model.PortfolioMetrics, field func(model.PortfolioMetrics) float64) Stats {
	if len(ms) == 0 {
		return Stats{}
	}
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	for _, m := range ms {
		v := field(m)
		st.Mean += v
		st.Min = math.Min(st.Min, v)
		st.Max = math.Max(st.Max, v)
	}
	st.Mean /= float64(len(ms))
	if len(ms) < 2 {
		return st
	}
	var ss float64
	for _, m := range ms {
		d := field(m) - st.Mean
		ss += d * d
	}
	st.Std = math.Sqrt(ss / float64(len(ms)-1))
	return st
}
