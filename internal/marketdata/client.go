// Package marketdata fetches OHLCV candle history and aggregates it
// into per-pair snapshots for a single pipeline run.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// historyResponse is the TradingView-style UDF history payload.
type historyResponse struct {
	Status     string    `json:"s"`
	Timestamps []int64   `json:"t"`
	Opens      []float64 `json:"o"`
	Highs      []float64 `json:"h"`
	Lows       []float64 `json:"l"`
	Closes     []float64 `json:"c"`
	Volumes    []float64 `json:"v"`
	ErrMsg     string    `json:"errmsg"`
}

// Client fetches candle history from a TradingView-compatible UDF
// endpoint, authenticated with a basic token.
type Client struct {
	baseURL    string
	apiKey     string
	resolution string
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a history client. resolution is the candle size in
// minutes, or a letter code like "D".
func NewClient(baseURL, apiKey, resolution string, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		resolution: resolution,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "marketdata").Logger(),
	}
}

// History fetches candles for one pair over [from, to]. Responses with
// status "error", a missing timestamp array, or mismatched series
// lengths are rejected.
func (c *Client) History(ctx context.Context, pair models.TradingPair, from, to time.Time) (models.MarketSnapshot, error) {
	if c.apiKey == "" {
		return models.MarketSnapshot{Pair: pair}, apperrors.ErrConfigInvalid
	}

	q := url.Values{}
	q.Set("symbol", string(pair))
	q.Set("resolution", c.resolution)
	q.Set("from", strconv.FormatInt(from.Unix(), 10))
	q.Set("to", strconv.FormatInt(to.Unix(), 10))

	endpoint := c.baseURL + "/tradingview/history?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.MarketSnapshot{Pair: pair}, fmt.Errorf("build history request: %w", err)
	}
	req.Header.Set("Authorization", "Basic "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewSourceError("market-data", "history", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewSourceError("market-data", "history", err)
	}

	c.log.Debug().
		Str("pair", string(pair)).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("history request")

	if resp.StatusCode != http.StatusOK {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewSourceError("market-data", "history", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var hist historyResponse
	if err := json.Unmarshal(body, &hist); err != nil {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewParseError("market-data", string(body), err)
	}

	if hist.Status == "error" {
		msg := hist.ErrMsg
		if msg == "" {
			msg = "history endpoint returned error status"
		}
		return models.MarketSnapshot{Pair: pair}, apperrors.NewDataError("stork", string(pair), msg, nil)
	}
	if hist.Timestamps == nil {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewDataError("stork", string(pair), "missing timestamp series", nil)
	}

	return toSnapshot(pair, hist)
}

// toSnapshot converts columnar series into candles, requiring equal
// lengths for timestamps and closes. Missing open/high/low/volume
// entries default to zero.
func toSnapshot(pair models.TradingPair, hist historyResponse) (models.MarketSnapshot, error) {
	n := len(hist.Timestamps)
	if len(hist.Closes) != n {
		return models.MarketSnapshot{Pair: pair}, apperrors.NewDataError("stork", string(pair), fmt.Sprintf("series length mismatch: %d timestamps, %d closes", n, len(hist.Closes)), nil)
	}

	at := func(s []float64, i int) float64 {
		if i < len(s) {
			return s[i]
		}
		return 0
	}

	candles := make([]models.Candle, n)
	for i := 0; i < n; i++ {
		candles[i] = models.Candle{
			Timestamp: time.Unix(hist.Timestamps[i], 0).UTC(),
			Open:      at(hist.Opens, i),
			High:      at(hist.Highs, i),
			Low:       at(hist.Lows, i),
			Close:     hist.Closes[i],
			Volume:    at(hist.Volumes, i),
		}
	}
	return models.MarketSnapshot{Pair: pair, Candles: candles}, nil
}
