package collector

import (
	"context"
	"fmt"
	"time"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

// Method names used to key MockFetcher error queues and call counters.
const (
	MethodBars     = "bars"
	MethodVIX      = "vix"
	MethodExpiries = "expiries"
	MethodPuts     = "puts"
)

// MockFetcher returns controllable fixed data for development and testing.
// Errs queues errors per method: each call pops one error until the queue is
// empty and then succeeds.
type MockFetcher struct {
	Bars     model.PriceSeries
	VIX      float64
	Expiries []string
	Puts     map[string][]model.OptionQuote
	Errs     map[string][]error
	Calls    map[string]int
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) next(method string) error {
	if m.Calls == nil {
		m.Calls = make(map[string]int)
	}
	m.Calls[method]++
	q := m.Errs[method]
	if len(q) == 0 {
		return nil
	}
	m.Errs[method] = q[1:]
	return q[0]
}

func (m *MockFetcher) FetchDailyBars(_ context.Context, symbol string) (model.PriceSeries, error) {
	if err := m.next(MethodBars); err != nil {
		return nil, err
	}
	if len(m.Bars) == 0 {
		return nil, apperrors.NewFetchError(apperrors.KindNoData, "mock", fmt.Errorf("no bars for %s", symbol))
	}
	return m.Bars, nil
}

func (m *MockFetcher) FetchVolatilityIndex(_ context.Context) (float64, error) {
	if err := m.next(MethodVIX); err != nil {
		return 0, err
	}
	if m.VIX <= 0 {
		return 0, apperrors.NewFetchError(apperrors.KindNoData, "mock", fmt.Errorf("no vix quote"))
	}
	return m.VIX, nil
}

func (m *MockFetcher) FetchOptionExpiries(_ context.Context, symbol string) ([]string, error) {
	if err := m.next(MethodExpiries); err != nil {
		return nil, err
	}
	if len(m.Expiries) == 0 {
		return nil, apperrors.NewFetchError(apperrors.KindNoData, "mock", fmt.Errorf("no options listed for %s", symbol))
	}
	return m.Expiries, nil
}

func (m *MockFetcher) FetchPuts(_ context.Context, _ string, expiry string) ([]model.OptionQuote, error) {
	if err := m.next(MethodPuts); err != nil {
		return nil, err
	}
	return m.Puts[expiry], nil
}

// MockBars generates count weekday bars ending on or before end, drifting
// gently around basePrice.
func MockBars(basePrice float64, count int, end time.Time) model.PriceSeries {
	bars := make(model.PriceSeries, count)
	day := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
	for i := count - 1; i >= 0; i-- {
		for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
			day = day.AddDate(0, 0, -1)
		}
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.Bar{
			Date:  day,
			Open:  p * 0.999,
			High:  p * 1.005,
			Low:   p * 0.995,
			Close: p,
		}
		day = day.AddDate(0, 0, -1)
	}
	return bars
}
