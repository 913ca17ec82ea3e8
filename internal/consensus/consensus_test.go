package consensus

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

func tradeProposal(action models.TradeAction, pair string) models.TradeProposal {
	return models.TradeProposal{
		Action: action,
		Pair:   pair,
		Reasoning: models.TradeReasoning{
			MarketCondition:   "uptrend on higher timeframe",
			TechnicalAnalysis: "price above SMA50 with rising momentum",
			RiskAssessment:    "moderate",
			PairSelection:     pair + " strongest relative strength",
		},
	}
}

func TestReconcileNoUsableSources(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Err: errors.New("timeout")},
		{Source: "deepseek-chat", Err: errors.New("502")},
	}
	_, err := Reconcile(results, TradeRules())
	assert.ErrorIs(t, err, apperrors.ErrNoSources)
}

func TestReconcileSingleSourceDiscount(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Err: errors.New("timeout")},
		{Source: "deepseek-chat", Proposal: tradeProposal(models.TradeBuy, "BTCUSD")},
	}
	decision, err := Reconcile(results, TradeRules())
	require.NoError(t, err)

	assert.Equal(t, models.TradeBuy, decision.Action)
	assert.Equal(t, models.ConfidenceMedium, decision.Confidence)
	assert.False(t, decision.ShouldExecute)
	assert.Contains(t, decision.Reasoning.MarketCondition, "deepseek-chat Only:")
}

func TestReconcileAgreementIsHighConfidence(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Proposal: tradeProposal(models.TradeBuy, "BTCUSD")},
		{Source: "deepseek-chat", Proposal: tradeProposal(models.TradeBuy, "BTCUSD")},
	}
	decision, err := Reconcile(results, TradeRules())
	require.NoError(t, err)

	assert.Equal(t, models.TradeBuy, decision.Action)
	assert.Equal(t, "BTCUSD", decision.Pair)
	assert.Equal(t, models.ConfidenceHigh, decision.Confidence)
	assert.True(t, decision.ShouldExecute)
	assert.Contains(t, decision.Reasoning.MarketCondition, "All Models Agree:")
	assert.Contains(t, decision.Reasoning.TechnicalAnalysis, "Consensus:")
}

func TestReconcileAgreementOnWaitDoesNotExecute(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Proposal: tradeProposal(models.TradeWait, "")},
		{Source: "deepseek-chat", Proposal: tradeProposal(models.TradeWait, "")},
	}
	decision, err := Reconcile(results, TradeRules())
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceHigh, decision.Confidence)
	assert.False(t, decision.ShouldExecute)
}

func TestReconcileDisagreementForcesWait(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Proposal: tradeProposal(models.TradeBuy, "BTCUSD")},
		{Source: "deepseek-chat", Proposal: tradeProposal(models.TradeSell, "ETHUSD")},
	}
	decision, err := Reconcile(results, TradeRules())
	require.NoError(t, err)

	assert.Equal(t, models.TradeWait, decision.Action)
	assert.Empty(t, decision.Pair)
	assert.False(t, decision.ShouldExecute)
	assert.Equal(t, models.ConfidenceLow, decision.Confidence)
	assert.Contains(t, decision.Reasoning.TechnicalAnalysis, "gpt-4o suggests BUY BTCUSD")
	assert.Contains(t, decision.Reasoning.TechnicalAnalysis, "deepseek-chat suggests SELL ETHUSD")
}

func TestReconcileSamePairDifferentActionConflicts(t *testing.T) {
	results := []SourceResult[models.TradeProposal]{
		{Source: "gpt-4o", Proposal: tradeProposal(models.TradeBuy, "BTCUSD")},
		{Source: "deepseek-chat", Proposal: tradeProposal(models.TradeSell, "BTCUSD")},
	}
	decision, err := Reconcile(results, TradeRules())
	require.NoError(t, err)
	assert.Equal(t, models.TradeWait, decision.Action)
}

func lendingProposal(action models.LendAction, token string, actions ...models.Action) models.LendingProposal {
	return models.LendingProposal{
		Action: action,
		Token:  token,
		Amount: "10",
		Reasoning: models.LendingReasoning{
			MarketAnalysis: "supply rate favorable",
			RiskAssessment: "low utilization",
		},
		Actions: actions,
	}
}

func TestLendingAgreementMergesActions(t *testing.T) {
	a1 := models.Action{Type: models.ActionDeposit, Token: "USDT", Amount: "50"}
	a2 := models.Action{Type: models.ActionDeposit, Token: "USDT"}

	results := []SourceResult[models.LendingProposal]{
		{Source: "gpt-4o", Proposal: lendingProposal(models.LendSupply, "USDT", a1)},
		{Source: "deepseek-chat", Proposal: lendingProposal(models.LendSupply, "USDT", a2)},
	}
	decision, err := Reconcile(results, LendingRules("0xwallet"))
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceHigh, decision.Confidence)
	assert.True(t, decision.ShouldExecute)
	require.Len(t, decision.Actions, 2)
	assert.Equal(t, "0", decision.Actions[1].Amount, "missing amount defaults to zero")
	assert.Equal(t, "0xwallet", decision.Actions[0].Recipient, "missing recipient defaults to wallet")
}

func TestLendingAgreementWithoutActionsDoesNotExecute(t *testing.T) {
	results := []SourceResult[models.LendingProposal]{
		{Source: "gpt-4o", Proposal: lendingProposal(models.LendSupply, "USDT")},
		{Source: "deepseek-chat", Proposal: lendingProposal(models.LendSupply, "USDT")},
	}
	decision, err := Reconcile(results, LendingRules("0xwallet"))
	require.NoError(t, err)

	assert.Equal(t, models.ConfidenceHigh, decision.Confidence)
	assert.False(t, decision.ShouldExecute, "no concrete actions means nothing to run")
}

func TestLendingDisagreementForcesWait(t *testing.T) {
	results := []SourceResult[models.LendingProposal]{
		{Source: "gpt-4o", Proposal: lendingProposal(models.LendSupply, "USDT")},
		{Source: "deepseek-chat", Proposal: lendingProposal(models.LendBorrow, "WBTC")},
	}
	decision, err := Reconcile(results, LendingRules("0xwallet"))
	require.NoError(t, err)

	assert.Equal(t, models.LendWait, decision.Action)
	assert.Equal(t, models.ConfidenceLow, decision.Confidence)
	assert.Empty(t, decision.Actions)
}

func TestCombineRiskAssessments(t *testing.T) {
	assert.Equal(t, "HIGH", CombineRiskAssessments("Volatile market conditions", "calm"))
	assert.Equal(t, "HIGH", CombineRiskAssessments("low", "HIGH risk of drawdown"))
	assert.Equal(t, "LOW", CombineRiskAssessments("stable", "calm orderly market"))
}

func TestAssessRiskLevel(t *testing.T) {
	assert.Equal(t, models.RiskHigh, AssessRiskLevel("conditions look RISKY here"))
	assert.Equal(t, models.RiskHigh, AssessRiskLevel("unstable liquidity"))
	assert.Equal(t, models.RiskLow, AssessRiskLevel("stable and calm"))
	assert.Equal(t, models.RiskLow, AssessRiskLevel(""))
}
