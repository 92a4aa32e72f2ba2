package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	apperrors "TailHedge/internal/errors"
	"TailHedge/internal/model"
)

const (
	defaultChartURL   = "https://query1.finance.yahoo.com"
	defaultOptionsURL = "https://query2.finance.yahoo.com"
	volatilitySymbol  = "^VIX"
)

// YahooFetcher implements Fetcher using Yahoo Finance public API.
type YahooFetcher struct {
	Client     *http.Client
	ChartURL   string
	OptionsURL string
	SymbolMap  map[string]string // maps internal symbol to Yahoo ticker

	limiter *rate.Limiter
}

// NewYahooFetcher creates a new Yahoo Finance fetcher. requestsPerSecond
// throttles outgoing requests; zero disables throttling.
func NewYahooFetcher(proxyURL string, requestsPerSecond float64) *YahooFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &YahooFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		ChartURL:   defaultChartURL,
		OptionsURL: defaultOptionsURL,
		SymbolMap: map[string]string{
			"SPX500": "^GSPC",
			"SPX":    "^GSPC",
			"SP500":  "^GSPC",
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

func (f *YahooFetcher) yahooSymbol(symbol string) string {
	if mapped, ok := f.SymbolMap[symbol]; ok {
		return mapped
	}
	return symbol
}

// yahooChart is the response structure from Yahoo Finance chart API.
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open  []interface{} `json:"open"`
					High  []interface{} `json:"high"`
					Low   []interface{} `json:"low"`
					Close []interface{} `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"chart"`
}

// yahooOptions is the response structure from Yahoo Finance options API.
type yahooOptions struct {
	OptionChain struct {
		Result []struct {
			ExpirationDates []int64 `json:"expirationDates"`
			Options         []struct {
				ExpirationDate int64 `json:"expirationDate"`
				Puts           []struct {
					Strike    float64 `json:"strike"`
					LastPrice float64 `json:"lastPrice"`
					Bid       float64 `json:"bid"`
				} `json:"puts"`
			} `json:"options"`
		} `json:"result"`
		Error *yahooError `json:"error"`
	} `json:"optionChain"`
}

type yahooError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func toFloat(v interface{}) float64 {
	if v == nil {
		return 0
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}

func (f *YahooFetcher) fail(kind apperrors.Kind, format string, args ...any) error {
	return apperrors.NewFetchError(kind, f.Name(), fmt.Errorf(format, args...))
}

// getJSON performs a throttled GET and decodes the body into out. Status 429
// maps to KindRateLimited; network failures and 5xx map to KindTransport.
func (f *YahooFetcher) getJSON(ctx context.Context, u string, out any) error {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return f.fail(apperrors.KindTransport, "yahoo fetch: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return f.fail(apperrors.KindTransport, "yahoo read body: %v", err)
	}
	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return f.fail(apperrors.KindRateLimited, "yahoo: status %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusInternalServerError:
		return f.fail(apperrors.KindTransport, "yahoo: status %d", resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return f.fail(apperrors.KindNoData, "yahoo: status %d, body: %s", resp.StatusCode, string(body))
	case resp.StatusCode != http.StatusOK:
		return f.fail(apperrors.KindOther, "yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return f.fail(apperrors.KindOther, "yahoo decode: %v", err)
	}
	return nil
}

func (f *YahooFetcher) fetchChart(ctx context.Context, symbol, interval, rng string) (model.PriceSeries, error) {
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		f.ChartURL, url.PathEscape(f.yahooSymbol(symbol)), interval, rng)

	var chart yahooChart
	if err := f.getJSON(ctx, u, &chart); err != nil {
		return nil, err
	}
	if chart.Chart.Error != nil {
		return nil, f.fail(apperrors.KindNoData, "yahoo api error: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 ||
		len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, f.fail(apperrors.KindNoData, "yahoo: no data returned for %s", symbol)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	bars := make(model.PriceSeries, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		if i >= len(quote.Close) {
			break
		}
		c := toFloat(quote.Close[i])
		if c <= 0 {
			continue // skip null bars (holidays etc.)
		}
		o, h, l := c, c, c
		if i < len(quote.Open) {
			o = toFloat(quote.Open[i])
		}
		if i < len(quote.High) {
			h = toFloat(quote.High[i])
		}
		if i < len(quote.Low) {
			l = toFloat(quote.Low[i])
		}
		t := time.Unix(ts, 0).UTC()
		bars = append(bars, model.Bar{
			Date:  time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC),
			Open:  o,
			High:  h,
			Low:   l,
			Close: c,
		})
	}
	if len(bars) == 0 {
		return nil, f.fail(apperrors.KindNoData, "yahoo: only null bars for %s", symbol)
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })

	// Intraday timestamps can land two points on one calendar day; keep the latest.
	deduped := bars[:1]
	for _, b := range bars[1:] {
		if b.Date.Equal(deduped[len(deduped)-1].Date) {
			deduped[len(deduped)-1] = b
			continue
		}
		deduped = append(deduped, b)
	}
	return deduped, nil
}

// FetchDailyBars returns one year of daily bars.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string) (model.PriceSeries, error) {
	return f.fetchChart(ctx, symbol, "1d", "1y")
}

// FetchVolatilityIndex returns the most recent VIX close scaled to a fraction.
func (f *YahooFetcher) FetchVolatilityIndex(ctx context.Context) (float64, error) {
	bars, err := f.fetchChart(ctx, volatilitySymbol, "1d", "5d")
	if err != nil {
		return 0, err
	}
	return bars.Last().Close / 100, nil
}

func (f *YahooFetcher) fetchOptions(ctx context.Context, symbol string, date int64) (*yahooOptions, error) {
	u := fmt.Sprintf("%s/v7/finance/options/%s", f.OptionsURL, url.PathEscape(f.yahooSymbol(symbol)))
	if date > 0 {
		u += fmt.Sprintf("?date=%d", date)
	}

	var chain yahooOptions
	if err := f.getJSON(ctx, u, &chain); err != nil {
		return nil, err
	}
	if chain.OptionChain.Error != nil {
		return nil, f.fail(apperrors.KindNoData, "yahoo api error: %s", chain.OptionChain.Error.Description)
	}
	if len(chain.OptionChain.Result) == 0 {
		return nil, f.fail(apperrors.KindNoData, "yahoo: no option chain for %s", symbol)
	}
	return &chain, nil
}

// FetchOptionExpiries lists the expiry dates Yahoo reports for symbol.
func (f *YahooFetcher) FetchOptionExpiries(ctx context.Context, symbol string) ([]string, error) {
	chain, err := f.fetchOptions(ctx, symbol, 0)
	if err != nil {
		return nil, err
	}
	dates := chain.OptionChain.Result[0].ExpirationDates
	if len(dates) == 0 {
		return nil, f.fail(apperrors.KindNoData, "yahoo: no expiries listed for %s", symbol)
	}
	out := make([]string, len(dates))
	for i, ts := range dates {
		out[i] = time.Unix(ts, 0).UTC().Format(model.DateLayout)
	}
	return out, nil
}

// FetchPuts returns the put quotes for the given YYYY-MM-DD expiry.
func (f *YahooFetcher) FetchPuts(ctx context.Context, symbol, expiry string) ([]model.OptionQuote, error) {
	day, err := time.ParseInLocation(model.DateLayout, expiry, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("parse expiry %q: %w", expiry, apperrors.ErrInvalidInput)
	}
	chain, err := f.fetchOptions(ctx, symbol, day.Unix())
	if err != nil {
		return nil, err
	}

	var quotes []model.OptionQuote
	for _, opt := range chain.OptionChain.Result[0].Options {
		for _, p := range opt.Puts {
			quotes = append(quotes, model.OptionQuote{
				Strike:    p.Strike,
				LastPrice: p.LastPrice,
				Bid:       p.Bid,
				Expiry:    expiry,
			})
		}
	}
	return quotes, nil
}
