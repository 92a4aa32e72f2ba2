package hedge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TailHedge/internal/model"
)

// fixedSource replays scenarios in order.
type fixedSource struct {
	scenarios []model.Scenario
	calls     int
	err       error
}

func (f *fixedSource) GenerateScenario(_ context.Context, _ model.Regime) (model.Scenario, error) {
	if f.err != nil {
		return model.Scenario{}, f.err
	}
	sc := f.scenarios[f.calls%len(f.scenarios)]
	f.calls++
	return sc, nil
}

func TestLinspace(t *testing.T) {
	got, err := Linspace(0.01, 0.03, 5)
	require.NoError(t, err)
	require.Len(t, got, 5)
	assert.InDeltaSlice(t, []float64{0.01, 0.015, 0.02, 0.025, 0.03}, got, 1e-12)
	assert.Equal(t, 0.03, got[4])

	got, err = Linspace(0.02, 0.05, 1)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.02}, got)

	_, err = Linspace(0, 1, 0)
	assert.Error(t, err)
}

func TestCompare_SharesScenarioAcrossRatios(t *testing.T) {
	src := &fixedSource{scenarios: []model.Scenario{
		stableInputs().Scenario,
		{PriceAtStart: 500, PriceAtEnd: 350, StrikePrice: 400, OptionPrice: 1, ExpiryDate: "2025-07-18"},
	}}
	ratios := []float64{0.01, 0.02}

	rows, err := Compare(context.Background(), src, 100000, ratios, model.RegimeCrash, 2)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 2, src.calls)
	assert.Equal(t, rows[0].Scenario, rows[1].Scenario)
	assert.NotEqual(t, rows[1].Scenario, rows[2].Scenario)
	assert.Equal(t, 0.02, rows[3].InsuranceRatio)
	assert.Equal(t, 20, rows[3].Metrics.NumberOfContracts)
}

func TestCompare_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	_, err := Compare(context.Background(), &fixedSource{err: boom}, 100000, []float64{0.01}, model.RegimeStable, 1)
	assert.ErrorIs(t, err, boom)

	_, err = Compare(context.Background(), &fixedSource{}, 100000, nil, model.RegimeStable, 1)
	assert.Error(t, err)

	_, err = Compare(context.Background(), &fixedSource{}, 100000, []float64{0.01}, model.RegimeStable, 0)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	crash := model.Scenario{PriceAtStart: 500, PriceAtEnd: 350, StrikePrice: 400, OptionPrice: 1, ExpiryDate: "2025-07-18"}
	src := &fixedSource{scenarios: []model.Scenario{stableInputs().Scenario, crash}}

	rows, err := Compare(context.Background(), src, 100000, []float64{0.03, 0, 0.01}, model.RegimeCrash, 4)
	require.NoError(t, err)

	s := Summarize(rows)
	require.Len(t, s.Ratios, 3)
	assert.Equal(t, []float64{0, 0.01, 0.03}, []float64{s.Ratios[0].InsuranceRatio, s.Ratios[1].InsuranceRatio, s.Ratios[2].InsuranceRatio})

	unhedged := s.Ratios[0]
	assert.Equal(t, 4, unhedged.Runs)
	assert.Equal(t, 2, unhedged.CrashRuns)
	assert.Zero(t, unhedged.CrashProtection)
	assert.Equal(t, unhedged.ChangeWithInsurance, unhedged.ChangeWithoutInsurance)

	onePct := s.Ratios[1]
	assert.Equal(t, 2, onePct.CrashRuns)
	assert.Equal(t, 49300.0, onePct.CrashProtection)
	assert.Equal(t, -0.3, onePct.ChangeWithoutInsurance.Min)
	assert.Equal(t, 0.05, onePct.ChangeWithoutInsurance.Max)
	assert.Greater(t, onePct.ChangeWithInsurance.Std, 0.0)
	assert.InDelta(t, onePct.ChangeWithInsurance.Mean/onePct.ChangeWithInsurance.Std, onePct.RiskAdjustedReturn, 1e-12)

	best := s.Ratios[0]
	for _, rs := range s.Ratios {
		if rs.RiskAdjustedReturn > best.RiskAdjustedReturn {
			best = rs
		}
	}
	assert.Equal(t, best.InsuranceRatio, s.RecommendedRatio)
}

func TestSummarize_SingleRunUsesMean(t *testing.T) {
	rows, err := Compare(context.Background(), &fixedSource{scenarios: []model.Scenario{stableInputs().Scenario}}, 100000, []float64{0.01}, model.RegimeStable, 1)
	require.NoError(t, err)

	s := Summarize(rows)
	require.Len(t, s.Ratios, 1)
	assert.Zero(t, s.Ratios[0].ChangeWithInsurance.Std)
	assert.Equal(t, s.Ratios[0].ChangeWithInsurance.Mean, s.Ratios[0].RiskAdjustedReturn)
	assert.Equal(t, 0.01, s.RecommendedRatio)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Empty(t, s.Ratios)
	assert.Zero(t, s.RecommendedRatio)
}
