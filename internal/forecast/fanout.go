package forecast

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"monad-trader/internal/consensus"
	"monad-trader/internal/models"
)

// Panel queries every source concurrently and collects one result per
// source, failures included. No call short-circuits another.
type Panel struct {
	sources []Source
	log     zerolog.Logger
}

// NewPanel builds a panel over the given sources.
func NewPanel(sources []Source, log zerolog.Logger) *Panel {
	return &Panel{
		sources: sources,
		log:     log.With().Str("component", "forecast").Logger(),
	}
}

// Sources returns the number of configured sources.
func (p *Panel) Sources() int {
	return len(p.sources)
}

// TradeProposals gathers trading proposals from all sources.
func (p *Panel) TradeProposals(ctx context.Context, indicators models.MarketIndicators) []consensus.SourceResult[models.TradeProposal] {
	return gather(ctx, p, func(ctx context.Context, s Source) (models.TradeProposal, error) {
		return s.TradeProposal(ctx, indicators)
	})
}

// LendingProposals gathers lending proposals from all sources.
func (p *Panel) LendingProposals(ctx context.Context, metrics models.LendingMetrics) []consensus.SourceResult[models.LendingProposal] {
	return gather(ctx, p, func(ctx context.Context, s Source) (models.LendingProposal, error) {
		return s.LendingProposal(ctx, metrics)
	})
}

// gather runs one call per source and waits for all of them. Results
// keep the source order so reconciliation output is deterministic.
func gather[P any](ctx context.Context, p *Panel, call func(context.Context, Source) (P, error)) []consensus.SourceResult[P] {
	results := make([]consensus.SourceResult[P], len(p.sources))

	var wg sync.WaitGroup
	for i, src := range p.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			proposal, err := call(ctx, src)
			if err != nil {
				p.log.Error().Err(err).Str("source", src.Name()).Msg("forecasting source failed")
			}
			results[i] = consensus.SourceResult[P]{Source: src.Name(), Proposal: proposal, Err: err}
		}(i, src)
	}
	wg.Wait()

	return results
}
