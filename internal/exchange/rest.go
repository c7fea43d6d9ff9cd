// Package exchange hosts the market-data collaborators: REST snapshot
// fetchers and live tick feeds for the two legs of the traded pair.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pairtrader-go/internal/market"
)

const (
	defaultBinanceBaseURL = "https://api.binance.com"
	defaultDeribitBaseURL = "https://www.deribit.com"
)

// Client fetches historical candles from Binance (perp leg) and Deribit
// (fixed-maturity future leg).
type Client struct {
	http        *http.Client
	binanceBase string
	deribitBase string
	binanceKey  string
}

// ClientOption configures Client construction parameters.
type ClientOption func(*Client)

// WithBinanceAPIKey attaches the key sent on Binance requests. The kline
// endpoint is public, so this stays optional.
func WithBinanceAPIKey(key string) ClientOption {
	return func(c *Client) { c.binanceKey = key }
}

// NewClient builds a fetcher, defaulting both base URLs to the public APIs.
func NewClient(binanceBase, deribitBase string, opts ...ClientOption) *Client {
	if binanceBase == "" {
		binanceBase = defaultBinanceBaseURL
	}
	if deribitBase == "" {
		deribitBase = defaultDeribitBaseURL
	}
	c := &Client{
		http:        &http.Client{Timeout: 15 * time.Second},
		binanceBase: strings.TrimSuffix(binanceBase, "/"),
		deribitBase: strings.TrimSuffix(deribitBase, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BinanceKlines fetches up to limit OHLCV bars for a symbol at the given
// interval (e.g. "1m").
func (c *Client) BinanceKlines(ctx context.Context, symbol, interval string, limit int) ([]market.Candle, error) {
	if symbol == "" {
		return nil, fmt.Errorf("binance klines: empty symbol")
	}
	if interval == "" {
		interval = "1m"
	}
	if limit <= 0 || limit > 1000 {
		limit = 1000
	}

	q := url.Values{}
	q.Set("symbol", strings.ToUpper(symbol))
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	endpoint := fmt.Sprintf("%s/api/v3/klines?%s", c.binanceBase, q.Encode())

	var raw [][]json.RawMessage
	if err := c.getJSON(ctx, endpoint, c.binanceKey, &raw); err != nil {
		return nil, fmt.Errorf("binance klines: %w", err)
	}

	candles := make([]market.Candle, 0, len(raw))
	for _, row := range raw {
		if len(row) < 6 {
			return nil, fmt.Errorf("binance klines: short row of %d fields", len(row))
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("binance klines: parse open time: %w", err)
		}
		vals, err := parseQuoted(row[1:6])
		if err != nil {
			return nil, fmt.Errorf("binance klines: %w", err)
		}
		candles = append(candles, market.Candle{
			Ts:     time.UnixMilli(openTime).UTC(),
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return candles, nil
}

type deribitChartResponse struct {
	Result *deribitChartResult `json:"result"`
	Error  *deribitError       `json:"error"`
}

type deribitChartResult struct {
	Status string    `json:"status"`
	Ticks  []int64   `json:"ticks"`
	Open   []float64 `json:"open"`
	High   []float64 `json:"high"`
	Low    []float64 `json:"low"`
	Close  []float64 `json:"close"`
	Volume []float64 `json:"volume"`
}

type deribitError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// DeribitChart fetches count bars of the given minute resolution ending at
// end for a Deribit instrument via the TradingView chart endpoint.
func (c *Client) DeribitChart(ctx context.Context, instrument, resolution string, count int, end time.Time) ([]market.Candle, error) {
	if instrument == "" {
		return nil, fmt.Errorf("deribit chart: empty instrument")
	}
	if resolution == "" {
		resolution = "1"
	}
	if count <= 0 {
		count = 1000
	}
	minutes, err := strconv.Atoi(resolution)
	if err != nil {
		return nil, fmt.Errorf("deribit chart: bad resolution %q: %w", resolution, err)
	}

	endMs := end.UnixMilli()
	startMs := endMs - int64(count)*int64(minutes)*60_000

	q := url.Values{}
	q.Set("instrument_name", instrument)
	q.Set("resolution", resolution)
	q.Set("start_timestamp", strconv.FormatInt(startMs, 10))
	q.Set("end_timestamp", strconv.FormatInt(endMs, 10))
	endpoint := fmt.Sprintf("%s/api/v2/public/get_tradingview_chart_data?%s", c.deribitBase, q.Encode())

	var resp deribitChartResponse
	if err := c.getJSON(ctx, endpoint, "", &resp); err != nil {
		return nil, fmt.Errorf("deribit chart: %w", err)
	}
	if resp.Result == nil {
		if resp.Error != nil {
			return nil, fmt.Errorf("deribit chart: api error %d: %s", resp.Error.Code, resp.Error.Message)
		}
		return nil, fmt.Errorf("deribit chart: no result in response")
	}

	res := resp.Result
	n := len(res.Ticks)
	if len(res.Open) != n || len(res.High) != n || len(res.Low) != n || len(res.Close) != n || len(res.Volume) != n {
		return nil, fmt.Errorf("deribit chart: ragged series lengths")
	}
	candles := make([]market.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = market.Candle{
			Ts:     time.UnixMilli(res.Ticks[i]).UTC(),
			Open:   res.Open[i],
			High:   res.High[i],
			Low:    res.Low[i],
			Close:  res.Close[i],
			Volume: res.Volume[i],
		}
	}
	return candles, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint, apiKey string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if apiKey != "" {
		req.Header.Set("X-MBX-APIKEY", apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseQuoted(fields []json.RawMessage) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, field := range fields {
		var s string
		if err := json.Unmarshal(field, &s); err != nil {
			return nil, fmt.Errorf("parse quoted number: %w", err)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse float %q: %w", s, err)
		}
		out[i] = v
	}
	return out, nil
}
