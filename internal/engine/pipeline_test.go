package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-trader/internal/consensus"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
	"monad-trader/internal/trading"
)

type fakeFetcher struct {
	snapshots map[models.TradingPair]models.MarketSnapshot
	err       error
}

func (f *fakeFetcher) FetchAll(context.Context, time.Duration) (map[models.TradingPair]models.MarketSnapshot, error) {
	return f.snapshots, f.err
}

type fakePanel struct {
	trade []consensus.SourceResult[models.TradeProposal]
	lend  []consensus.SourceResult[models.LendingProposal]
}

func (f *fakePanel) Sources() int { return 2 }

func (f *fakePanel) TradeProposals(context.Context, models.MarketIndicators) []consensus.SourceResult[models.TradeProposal] {
	return f.trade
}

func (f *fakePanel) LendingProposals(context.Context, models.LendingMetrics) []consensus.SourceResult[models.LendingProposal] {
	return f.lend
}

type fakeLendReader struct{}

func (fakeLendReader) MarketData(context.Context) *models.LendingMarket {
	return models.NewLendingMarket()
}

type fakeGate struct {
	err   error
	calls int
}

func (f *fakeGate) Revalidate(context.Context, models.LendingDecision, models.LendingMetrics) error {
	f.calls++
	return f.err
}

type fakeLendExec struct {
	calls   int
	actions []models.Action
}

func (f *fakeLendExec) ExecuteActions(_ context.Context, actions []models.Action) []models.ActionResult {
	f.calls++
	f.actions = actions
	results := make([]models.ActionResult, len(actions))
	for i, a := range actions {
		results[i] = models.ActionResult{Action: a, Success: true, TxHash: "0xlend"}
	}
	return results
}

type fakeTradeExec struct {
	viability trading.Viability
	amount    string
	log       *models.TradeLog
	swapErr   error
	swapCalls int
}

func (f *fakeTradeExec) CheckViability(context.Context, models.TradeAction) (trading.Viability, error) {
	return f.viability, nil
}

func (f *fakeTradeExec) CalculateTradeAmount(context.Context, models.TradeAction, models.RiskLevel) (string, error) {
	return f.amount, nil
}

func (f *fakeTradeExec) ExecuteSwap(_ context.Context, _ models.TradeAction, _, _, _ string) (*models.TradeLog, error) {
	f.swapCalls++
	return f.log, f.swapErr
}

type fakeStore struct {
	created []models.DecisionRecord
	updates int
	results []models.ActionResult
}

func (f *fakeStore) CreateDecision(_ context.Context, record *models.DecisionRecord) error {
	f.created = append(f.created, *record)
	return nil
}

func (f *fakeStore) UpdateDecisionExecution(_ context.Context, _ string, results []models.ActionResult, _ time.Time) error {
	f.updates++
	f.results = results
	return nil
}

type fakeNotifier struct {
	cycles int
}

func (f *fakeNotifier) SendCycle(context.Context, *models.DecisionRecord) error {
	f.cycles++
	return nil
}

func (f *fakeNotifier) SendError(context.Context, error, string) error { return nil }

func buyProposal(source string) consensus.SourceResult[models.TradeProposal] {
	return consensus.SourceResult[models.TradeProposal]{
		Source: source,
		Proposal: models.TradeProposal{
			Action:    models.TradeBuy,
			Pair:      "BTCUSD",
			Reasoning: models.TradeReasoning{RiskAssessment: "moderate conditions"},
		},
	}
}

func waitLendingProposal(source string) consensus.SourceResult[models.LendingProposal] {
	return consensus.SourceResult[models.LendingProposal]{
		Source:   source,
		Proposal: models.LendingProposal{Action: models.LendWait},
	}
}

func depositProposal(source string) consensus.SourceResult[models.LendingProposal] {
	return consensus.SourceResult[models.LendingProposal]{
		Source: source,
		Proposal: models.LendingProposal{
			Action: models.LendSupply,
			Token:  "USDC",
			Actions: []models.Action{
				{Type: models.ActionDeposit, Token: "USDC", Amount: "100"},
			},
		},
	}
}

type deps struct {
	fetcher   *fakeFetcher
	panel     *fakePanel
	gate      *fakeGate
	lendExec  *fakeLendExec
	tradeExec *fakeTradeExec
	store     *fakeStore
	notifier  *fakeNotifier
}

func newTestPipeline(d *deps) *Pipeline {
	return NewPipeline(
		d.fetcher, d.panel, fakeLendReader{}, d.gate, d.lendExec, d.tradeExec, d.store, d.notifier,
		Config{DefaultRecipient: "0xwallet"},
		zerolog.Nop(),
	)
}

func defaultDeps() *deps {
	return &deps{
		fetcher: &fakeFetcher{snapshots: map[models.TradingPair]models.MarketSnapshot{}},
		panel: &fakePanel{
			trade: []consensus.SourceResult[models.TradeProposal]{buyProposal("Model 1"), buyProposal("Model 2")},
			lend:  []consensus.SourceResult[models.LendingProposal]{waitLendingProposal("Model 1"), waitLendingProposal("Model 2")},
		},
		gate:     &fakeGate{},
		lendExec: &fakeLendExec{},
		tradeExec: &fakeTradeExec{
			viability: trading.Viability{Viable: true, Balance: "1000"},
			amount:    "50",
			log:       &models.TradeLog{TxHash: "0xswap", Status: models.ExecCompleted},
		},
		store:    &fakeStore{},
		notifier: &fakeNotifier{},
	}
}

func TestCycleAgreementExecutesTrade(t *testing.T) {
	d := defaultDeps()
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.True(t, result.Persisted)
	assert.Equal(t, models.TradeBuy, result.Record.Trading.Action)
	assert.Equal(t, models.ConfidenceHigh, result.Record.Trading.Confidence)
	assert.Equal(t, 1, d.tradeExec.swapCalls)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, "0xswap", result.Results[0].TxHash)
	assert.Equal(t, models.ActionSwapBuy, result.Results[0].Action.Type)

	require.Len(t, d.store.created, 1)
	assert.Equal(t, 1, d.store.updates)
	assert.Equal(t, 1, d.notifier.cycles)
}

func TestCycleNoSourcesReturnsNeutralOutcome(t *testing.T) {
	d := defaultDeps()
	srcErr := apperrors.NewSourceError("Model 1", "chat", errors.New("timeout"))
	d.panel.trade = []consensus.SourceResult[models.TradeProposal]{{Source: "Model 1", Err: srcErr}}
	d.panel.lend = []consensus.SourceResult[models.LendingProposal]{{Source: "Model 1", Err: srcErr}}
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.False(t, result.Persisted)
	assert.Equal(t, models.TradeWait, result.Record.Trading.Action)
	assert.Equal(t, models.LendWait, result.Record.Lending.Action)
	assert.Empty(t, d.store.created)
	assert.Equal(t, 0, d.tradeExec.swapCalls)
}

func TestCycleOneSideUsableStillPersists(t *testing.T) {
	d := defaultDeps()
	d.panel.lend = []consensus.SourceResult[models.LendingProposal]{
		{Source: "Model 1", Err: apperrors.NewSourceError("Model 1", "chat", errors.New("down"))},
	}
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.True(t, result.Persisted)
	assert.Equal(t, models.TradeBuy, result.Record.Trading.Action)
	assert.Equal(t, models.LendWait, result.Record.Lending.Action)
	assert.False(t, result.Record.Lending.ShouldExecute)
	require.Len(t, d.store.created, 1)
}

func TestCycleNonViableTradeSkipped(t *testing.T) {
	d := defaultDeps()
	d.tradeExec.viability = trading.Viability{Reason: "no sell-side balance available for trade"}
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Skipped)
	assert.Equal(t, "no sell-side balance available for trade", result.Results[0].Reason)
	assert.Equal(t, 0, d.tradeExec.swapCalls)
}

func TestCycleRevalidationFailureSkipsLendingBatch(t *testing.T) {
	d := defaultDeps()
	d.panel.trade = []consensus.SourceResult[models.TradeProposal]{
		{Source: "Model 1", Proposal: models.TradeProposal{Action: models.TradeWait}},
		{Source: "Model 2", Proposal: models.TradeProposal{Action: models.TradeWait}},
	}
	d.panel.lend = []consensus.SourceResult[models.LendingProposal]{depositProposal("Model 1"), depositProposal("Model 2")}
	d.gate.err = apperrors.NewRevalidationError("balance", "USDC", "100", "20")
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, d.gate.calls)
	assert.Equal(t, 0, d.lendExec.calls)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Skipped)
	assert.Contains(t, result.Results[0].Reason, "market conditions changed")
}

func TestCycleLendingBatchExecutesAfterRevalidation(t *testing.T) {
	d := defaultDeps()
	d.panel.trade = []consensus.SourceResult[models.TradeProposal]{
		{Source: "Model 1", Proposal: models.TradeProposal{Action: models.TradeWait}},
		{Source: "Model 2", Proposal: models.TradeProposal{Action: models.TradeWait}},
	}
	d.panel.lend = []consensus.SourceResult[models.LendingProposal]{depositProposal("Model 1"), depositProposal("Model 2")}
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 1, d.gate.calls)
	assert.Equal(t, 1, d.lendExec.calls)
	require.Len(t, result.Results, 1)
	assert.True(t, result.Results[0].Success)
	assert.Equal(t, 1, d.store.updates)
}

func TestCycleWaitDecisionNotUpdated(t *testing.T) {
	d := defaultDeps()
	d.panel.trade = []consensus.SourceResult[models.TradeProposal]{
		{Source: "Model 1", Proposal: models.TradeProposal{Action: models.TradeWait}},
		{Source: "Model 2", Proposal: models.TradeProposal{Action: models.TradeWait}},
	}
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)

	assert.True(t, result.Persisted)
	assert.Empty(t, result.Results)
	require.Len(t, d.store.created, 1)
	assert.Equal(t, 0, d.store.updates)
	assert.Nil(t, result.Record.ExecutedAt)
}

func TestCycleRejectsConcurrentRun(t *testing.T) {
	d := defaultDeps()
	p := newTestPipeline(d)
	p.inFlight.Store(true)

	_, err := p.RunDecisionCycle(context.Background(), 0)
	assert.ErrorIs(t, err, apperrors.ErrRunInFlight)
}

func TestCycleMarketDataFailureDegrades(t *testing.T) {
	d := defaultDeps()
	d.fetcher.snapshots = nil
	d.fetcher.err = apperrors.ErrNoMarketData
	p := newTestPipeline(d)

	result, err := p.RunDecisionCycle(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, result.Persisted)
}
