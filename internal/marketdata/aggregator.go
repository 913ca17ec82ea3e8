package marketdata

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// Fetcher fetches candle history for one pair.
type Fetcher interface {
	History(ctx context.Context, pair models.TradingPair, from, to time.Time) (models.MarketSnapshot, error)
}

// Aggregator fan-outs one history fetch per pair and collects the
// results into a snapshot map for the run.
type Aggregator struct {
	fetcher Fetcher
	pairs   []models.TradingPair
	log     zerolog.Logger
}

// NewAggregator builds an aggregator over the given pairs.
func NewAggregator(fetcher Fetcher, pairs []models.TradingPair, log zerolog.Logger) *Aggregator {
	if len(pairs) == 0 {
		pairs = models.DefaultPairs
	}
	return &Aggregator{
		fetcher: fetcher,
		pairs:   pairs,
		log:     log.With().Str("component", "aggregator").Logger(),
	}
}

// FetchAll fetches all pairs concurrently over the lookback window. A
// pair whose fetch fails maps to an empty snapshot; only when every
// pair comes back empty does the whole call fail with ErrNoMarketData.
func (a *Aggregator) FetchAll(ctx context.Context, lookback time.Duration) (map[models.TradingPair]models.MarketSnapshot, error) {
	to := time.Now().UTC()
	from := to.Add(-lookback)

	type fetched struct {
		pair models.TradingPair
		snap models.MarketSnapshot
	}

	results := make(chan fetched, len(a.pairs))
	var wg sync.WaitGroup
	for _, pair := range a.pairs {
		wg.Add(1)
		go func(pair models.TradingPair) {
			defer wg.Done()
			snap, err := a.fetcher.History(ctx, pair, from, to)
			if err != nil {
				a.log.Error().Err(err).Str("pair", string(pair)).Msg("history fetch failed")
				snap = models.MarketSnapshot{Pair: pair}
			}
			results <- fetched{pair: pair, snap: snap}
		}(pair)
	}
	wg.Wait()
	close(results)

	snapshots := make(map[models.TradingPair]models.MarketSnapshot, len(a.pairs))
	valid := 0
	for r := range results {
		snapshots[r.pair] = r.snap
		if !r.snap.Empty() {
			valid++
		}
	}

	if valid == 0 {
		return nil, apperrors.ErrNoMarketData
	}
	a.log.Info().Int("pairs", len(snapshots)).Int("valid", valid).Msg("market data aggregated")
	return snapshots, nil
}
