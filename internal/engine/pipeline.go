// Package engine orchestrates one decision cycle end to end: market
// data, indicators, model consensus, revalidation, and execution.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"monad-trader/internal/consensus"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/indicators"
	"monad-trader/internal/lending"
	"monad-trader/internal/models"
	"monad-trader/internal/trading"
)

// MarketFetcher aggregates candle history per trading pair.
type MarketFetcher interface {
	FetchAll(ctx context.Context, lookback time.Duration) (map[models.TradingPair]models.MarketSnapshot, error)
}

// ProposalPanel fans a structured context out to every forecasting source.
type ProposalPanel interface {
	Sources() int
	TradeProposals(ctx context.Context, ind models.MarketIndicators) []consensus.SourceResult[models.TradeProposal]
	LendingProposals(ctx context.Context, metrics models.LendingMetrics) []consensus.SourceResult[models.LendingProposal]
}

// LendingReader snapshots the lending-protocol market state.
type LendingReader interface {
	MarketData(ctx context.Context) *models.LendingMarket
}

// Revalidator re-checks live conditions against a decision's baseline.
type Revalidator interface {
	Revalidate(ctx context.Context, decision models.LendingDecision, baseline models.LendingMetrics) error
}

// LendingExecutor submits lending actions, one result per action.
type LendingExecutor interface {
	ExecuteActions(ctx context.Context, actions []models.Action) []models.ActionResult
}

// TradeExecutor runs the swap state machine.
type TradeExecutor interface {
	CheckViability(ctx context.Context, action models.TradeAction) (trading.Viability, error)
	CalculateTradeAmount(ctx context.Context, action models.TradeAction, risk models.RiskLevel) (string, error)
	ExecuteSwap(ctx context.Context, action models.TradeAction, pair, amount, decisionID string) (*models.TradeLog, error)
}

// DecisionStore persists decision records.
type DecisionStore interface {
	CreateDecision(ctx context.Context, record *models.DecisionRecord) error
	UpdateDecisionExecution(ctx context.Context, id string, results []models.ActionResult, executedAt time.Time) error
}

// Notifier reports cycle outcomes. Failures are never fatal.
type Notifier interface {
	SendCycle(ctx context.Context, record *models.DecisionRecord) error
	SendError(ctx context.Context, err error, where string) error
}

// Config holds the pipeline's tuning knobs.
type Config struct {
	// Per-category timeouts so a stalled provider cannot stall the
	// rest of the cycle.
	FetchTimeout   time.Duration
	InferTimeout   time.Duration
	ConfirmTimeout time.Duration

	Lookback         time.Duration
	DefaultRecipient string
}

// CycleResult is the outcome of one decision cycle.
type CycleResult struct {
	Record  *models.DecisionRecord
	Results []models.ActionResult
	// Persisted is false for the neutral outcome a cycle with zero
	// usable proposals produces.
	Persisted bool
}

// Pipeline wires one decision cycle's collaborators. All dependencies
// are passed in explicitly; there is no global registry.
type Pipeline struct {
	fetcher   MarketFetcher
	panel     ProposalPanel
	lendRead  LendingReader
	gate      Revalidator
	lendExec  LendingExecutor
	tradeExec TradeExecutor
	store     DecisionStore
	notifier  Notifier
	cfg       Config
	log       zerolog.Logger

	inFlight atomic.Bool
}

// NewPipeline constructs the pipeline from its collaborators.
func NewPipeline(fetcher MarketFetcher, panel ProposalPanel, lendRead LendingReader, gate Revalidator, lendExec LendingExecutor, tradeExec TradeExecutor, st DecisionStore, notifier Notifier, cfg Config, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		panel:     panel,
		lendRead:  lendRead,
		gate:      gate,
		lendExec:  lendExec,
		tradeExec: tradeExec,
		store:     st,
		notifier:  notifier,
		cfg:       cfg,
		log:       log,
	}
}

// RunDecisionCycle executes one full cycle. lookback overrides the
// configured history window when nonzero. Concurrent calls are
// rejected with ErrRunInFlight; each run is otherwise independent.
func (p *Pipeline) RunDecisionCycle(ctx context.Context, lookback time.Duration) (*CycleResult, error) {
	if !p.inFlight.CompareAndSwap(false, true) {
		return nil, apperrors.ErrRunInFlight
	}
	defer p.inFlight.Store(false)

	if lookback <= 0 {
		lookback = p.cfg.Lookback
	}

	start := time.Now()
	p.log.Info().Dur("lookback", lookback).Msg("decision cycle started")

	snapshots, market := p.fetchInputs(ctx, lookback)
	ind := indicators.Compute(snapshots)
	metrics := lending.Metrics(market)

	tradeDecision, lendDecision, usable := p.decide(ctx, ind, metrics)
	if !usable {
		// Zero usable proposals on both sides: log and return a
		// neutral WAIT outcome without persisting a misleading record.
		p.log.Warn().Msg("no usable proposals from any source, skipping cycle")
		return &CycleResult{Record: neutralRecord(metrics)}, nil
	}

	record := &models.DecisionRecord{
		ID:            uuid.New().String(),
		CreatedAt:     time.Now().UTC(),
		Trading:       tradeDecision,
		Lending:       lendDecision,
		LendingMarket: &metrics,
	}
	if err := p.store.CreateDecision(ctx, record); err != nil {
		return nil, fmt.Errorf("persist decision: %w", err)
	}

	results := p.execute(ctx, record, metrics)
	if len(results) > 0 {
		executedAt := time.Now().UTC()
		record.ExecutionResults = results
		record.ExecutedAt = &executedAt
		if err := p.store.UpdateDecisionExecution(ctx, record.ID, results, executedAt); err != nil {
			return nil, fmt.Errorf("persist execution outcome: %w", err)
		}
	}

	p.notifier.SendCycle(ctx, record)
	p.log.Info().
		Str("decision_id", record.ID).
		Int("results", len(results)).
		Dur("elapsed", time.Since(start)).
		Msg("decision cycle finished")

	return &CycleResult{Record: record, Results: results, Persisted: true}, nil
}

// fetchInputs gathers trading candles and lending-market state
// concurrently, bounded by the fetch timeout. Market-data failure
// degrades to empty snapshots; lending reads degrade per field inside
// the reader. Neither aborts the cycle.
func (p *Pipeline) fetchInputs(ctx context.Context, lookback time.Duration) (map[models.TradingPair]models.MarketSnapshot, *models.LendingMarket) {
	fetchCtx := ctx
	if p.cfg.FetchTimeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, p.cfg.FetchTimeout)
		defer cancel()
	}

	var (
		wg        sync.WaitGroup
		snapshots map[models.TradingPair]models.MarketSnapshot
		market    *models.LendingMarket
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		var err error
		snapshots, err = p.fetcher.FetchAll(fetchCtx, lookback)
		if err != nil {
			p.log.Warn().Err(err).Msg("market data unavailable, continuing with empty snapshots")
		}
	}()
	go func() {
		defer wg.Done()
		market = p.lendRead.MarketData(fetchCtx)
	}()
	wg.Wait()

	if snapshots == nil {
		snapshots = map[models.TradingPair]models.MarketSnapshot{}
	}
	return snapshots, market
}

// decide fans both proposal requests out and reconciles each side.
// usable is false only when both sides yielded zero usable proposals.
func (p *Pipeline) decide(ctx context.Context, ind models.MarketIndicators, metrics models.LendingMetrics) (models.TradeDecision, models.LendingDecision, bool) {
	inferCtx := ctx
	if p.cfg.InferTimeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, p.cfg.InferTimeout)
		defer cancel()
	}

	var (
		wg           sync.WaitGroup
		tradeResults []consensus.SourceResult[models.TradeProposal]
		lendResults  []consensus.SourceResult[models.LendingProposal]
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		tradeResults = p.panel.TradeProposals(inferCtx, ind)
	}()
	go func() {
		defer wg.Done()
		lendResults = p.panel.LendingProposals(inferCtx, metrics)
	}()
	wg.Wait()

	tradeDecision, tradeErr := consensus.Reconcile(tradeResults, consensus.TradeRules())
	if tradeErr != nil {
		if !errors.Is(tradeErr, apperrors.ErrNoSources) {
			p.log.Error().Err(tradeErr).Msg("trading consensus failed")
		}
		tradeDecision = models.TradeDecision{Action: models.TradeWait, Confidence: models.ConfidenceLow}
	}

	lendDecision, lendErr := consensus.Reconcile(lendResults, consensus.LendingRules(p.cfg.DefaultRecipient))
	if lendErr != nil {
		if !errors.Is(lendErr, apperrors.ErrNoSources) {
			p.log.Error().Err(lendErr).Msg("lending consensus failed")
		}
		lendDecision = models.LendingDecision{Action: models.LendWait, Confidence: models.ConfidenceLow}
	}

	usable := tradeErr == nil || lendErr == nil
	return tradeDecision, lendDecision, usable
}

// execute runs the trading and lending execution paths for a persisted
// decision. Revalidation failure converts the lending batch to skipped
// results; trading and lending outcomes are collected together.
func (p *Pipeline) execute(ctx context.Context, record *models.DecisionRecord, baseline models.LendingMetrics) []models.ActionResult {
	execCtx := ctx
	if p.cfg.ConfirmTimeout > 0 {
		var cancel context.CancelFunc
		execCtx, cancel = context.WithTimeout(ctx, p.cfg.ConfirmTimeout)
		defer cancel()
	}

	var results []models.ActionResult

	if record.Trading.ShouldExecute {
		results = append(results, p.executeTrade(execCtx, record))
	}

	if record.Lending.ShouldExecute && len(record.Lending.Actions) > 0 {
		if err := p.gate.Revalidate(execCtx, record.Lending, baseline); err != nil {
			// Staleness is conservative: the whole batch is skipped,
			// logged, and recorded as such. It is not a failure.
			p.log.Warn().Err(err).Str("decision_id", record.ID).Msg("revalidation invalidated lending batch")
			for _, action := range record.Lending.Actions {
				results = append(results, models.ActionResult{
					Action:  action,
					Skipped: true,
					Reason:  fmt.Sprintf("market conditions changed: %v", err),
				})
			}
		} else {
			results = append(results, p.lendExec.ExecuteActions(execCtx, record.Lending.Actions)...)
		}
	}

	return results
}

// executeTrade runs the viability check, sizes the trade by risk, and
// drives the swap state machine for one trading decision.
func (p *Pipeline) executeTrade(ctx context.Context, record *models.DecisionRecord) models.ActionResult {
	decision := record.Trading
	actionType := models.ActionSwapBuy
	if decision.Action == models.TradeSell {
		actionType = models.ActionSwapSell
	}
	action := models.Action{Type: actionType, Token: decision.Pair}

	viability, err := p.tradeExec.CheckViability(ctx, decision.Action)
	if err != nil {
		return models.ActionResult{Action: action, Error: err.Error()}
	}
	if !viability.Viable {
		p.log.Info().Str("reason", viability.Reason).Msg("trade skipped")
		return models.ActionResult{Action: action, Skipped: true, Reason: viability.Reason}
	}

	risk := consensus.AssessRiskLevel(decision.Reasoning.RiskAssessment)
	amount, err := p.tradeExec.CalculateTradeAmount(ctx, decision.Action, risk)
	if err != nil {
		return models.ActionResult{Action: action, Error: err.Error()}
	}
	action.Amount = amount

	tradeLog, err := p.tradeExec.ExecuteSwap(ctx, decision.Action, decision.Pair, amount, record.ID)
	if err != nil {
		result := models.ActionResult{Action: action, Error: err.Error()}
		if tradeLog != nil {
			result.TxHash = tradeLog.TxHash
		}
		return result
	}
	return models.ActionResult{Action: action, Success: true, TxHash: tradeLog.TxHash}
}

// neutralRecord is the unpersisted WAIT outcome for a cycle with no
// usable proposals.
func neutralRecord(metrics models.LendingMetrics) *models.DecisionRecord {
	return &models.DecisionRecord{
		CreatedAt:     time.Now().UTC(),
		Trading:       models.TradeDecision{Action: models.TradeWait, Confidence: models.ConfidenceLow},
		Lending:       models.LendingDecision{Action: models.LendWait, Confidence: models.ConfidenceLow},
		LendingMarket: &metrics,
	}
}
