package marketdata

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

func TestClientHistoryParsesColumnarSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/tradingview/history", r.URL.Path)
		assert.Equal(t, "BTCUSD", r.URL.Query().Get("symbol"))
		assert.Equal(t, "240", r.URL.Query().Get("resolution"))
		assert.Equal(t, "Basic test-key", r.Header.Get("Authorization"))

		json.NewEncoder(w).Encode(map[string]any{
			"s": "ok",
			"t": []int64{1735689600, 1735704000},
			"o": []float64{100, 102},
			"h": []float64{103, 104},
			"l": []float64{99, 101},
			"c": []float64{102, 103},
			"v": []float64{1200, 900},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "test-key", "240", zerolog.Nop())
	snap, err := client.History(context.Background(), models.PairBTCUSD, time.Unix(0, 0), time.Now())
	require.NoError(t, err)
	require.Len(t, snap.Candles, 2)
	assert.Equal(t, 102.0, snap.Candles[0].Close)
	assert.Equal(t, 900.0, snap.Candles[1].Volume)
	assert.True(t, snap.Candles[0].Timestamp.Before(snap.Candles[1].Timestamp))
}

func TestClientHistoryRejectsErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"s": "error", "errmsg": "symbol not found", "t": []int64{}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "240", zerolog.Nop())
	_, err := client.History(context.Background(), models.PairETHUSD, time.Unix(0, 0), time.Now())

	var dataErr *apperrors.DataError
	require.ErrorAs(t, err, &dataErr)
	assert.Contains(t, dataErr.Message, "symbol not found")
}

func TestClientHistoryRejectsLengthMismatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"s": "ok",
			"t": []int64{1735689600, 1735704000},
			"c": []float64{102},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", "240", zerolog.Nop())
	_, err := client.History(context.Background(), models.PairBTCUSD, time.Unix(0, 0), time.Now())

	var dataErr *apperrors.DataError
	require.ErrorAs(t, err, &dataErr)
}

func TestClientHistoryRequiresAPIKey(t *testing.T) {
	client := NewClient("http://localhost", "", "240", zerolog.Nop())
	_, err := client.History(context.Background(), models.PairBTCUSD, time.Unix(0, 0), time.Now())
	assert.ErrorIs(t, err, apperrors.ErrConfigInvalid)
}

type fakeFetcher struct {
	snaps map[models.TradingPair]models.MarketSnapshot
	errs  map[models.TradingPair]error
}

func (f *fakeFetcher) History(_ context.Context, pair models.TradingPair, _, _ time.Time) (models.MarketSnapshot, error) {
	if err, ok := f.errs[pair]; ok {
		return models.MarketSnapshot{Pair: pair}, err
	}
	return f.snaps[pair], nil
}

func candleSnap(pair models.TradingPair, closes ...float64) models.MarketSnapshot {
	candles := make([]models.Candle, len(closes))
	for i, c := range closes {
		candles[i] = models.Candle{Timestamp: time.Unix(int64(i)*14400, 0), Close: c}
	}
	return models.MarketSnapshot{Pair: pair, Candles: candles}
}

func TestAggregatorIsolatesPairFailures(t *testing.T) {
	fetcher := &fakeFetcher{
		snaps: map[models.TradingPair]models.MarketSnapshot{
			models.PairBTCUSD: candleSnap(models.PairBTCUSD, 100, 101),
			models.PairSOLUSD: candleSnap(models.PairSOLUSD, 20, 21),
		},
		errs: map[models.TradingPair]error{
			models.PairETHUSD: errors.New("upstream 502"),
		},
	}

	agg := NewAggregator(fetcher, models.DefaultPairs, zerolog.Nop())
	snaps, err := agg.FetchAll(context.Background(), 30*24*time.Hour)
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	assert.False(t, snaps[models.PairBTCUSD].Empty())
	assert.True(t, snaps[models.PairETHUSD].Empty(), "failed pair degrades to empty, not missing")
	assert.False(t, snaps[models.PairSOLUSD].Empty())
}

func TestAggregatorFailsOnlyWhenAllPairsEmpty(t *testing.T) {
	fetcher := &fakeFetcher{
		errs: map[models.TradingPair]error{
			models.PairBTCUSD: errors.New("down"),
			models.PairETHUSD: errors.New("down"),
			models.PairSOLUSD: errors.New("down"),
		},
	}

	agg := NewAggregator(fetcher, models.DefaultPairs, zerolog.Nop())
	_, err := agg.FetchAll(context.Background(), time.Hour)
	assert.ErrorIs(t, err, apperrors.ErrNoMarketData)
}
