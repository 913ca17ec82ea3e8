package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Confidence expresses how many independent sources agreed on a decision.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// RiskLevel is the merged risk classification of a decision.
type RiskLevel string

const (
	RiskHigh RiskLevel = "HIGH"
	RiskLow  RiskLevel = "LOW"
)

// TradeAction is a forecasting source's trading verdict.
type TradeAction string

const (
	TradeBuy  TradeAction = "BUY"
	TradeSell TradeAction = "SELL"
	TradeWait TradeAction = "WAIT"
)

// LendAction is a forecasting source's lending verdict.
type LendAction string

const (
	LendSupply   LendAction = "LEND"
	LendBorrow   LendAction = "BORROW"
	LendWithdraw LendAction = "WITHDRAW"
	LendWait     LendAction = "WAIT"
)

// ActionType is the closed set of concrete executable steps. Unknown
// values coming from external JSON are rejected at the parsing boundary.
type ActionType string

const (
	ActionDeposit  ActionType = "DEPOSIT"
	ActionWithdraw ActionType = "WITHDRAW"
	ActionBorrow   ActionType = "BORROW"
	ActionSwapBuy  ActionType = "SWAP_BUY"
	ActionSwapSell ActionType = "SWAP_SELL"
)

// UnmarshalJSON validates the action type against the closed enum.
func (t *ActionType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch ActionType(raw) {
	case ActionDeposit, ActionWithdraw, ActionBorrow, ActionSwapBuy, ActionSwapSell:
		*t = ActionType(raw)
		return nil
	}
	return fmt.Errorf("unknown action type %q", raw)
}

// Action is one concrete executable step derived from a Decision.
// Amount is a decimal string in human units; base-unit conversion happens
// only inside the execution layer, scoped by the token's decimals.
type Action struct {
	Type            ActionType `json:"type"`
	Token           string     `json:"token"`
	Amount          string     `json:"amount"`
	Recipient       string     `json:"recipient"`
	ExpectedYield   string     `json:"expectedYield,omitempty"`
	LiquidationRisk string     `json:"liquidationRisk,omitempty"`
}

// ComparativeAnalysis carries the cross-pair reasoning of a trade proposal.
type ComparativeAnalysis struct {
	VolatilityComparison string `json:"volatilityComparison"`
	TrendAlignment       string `json:"trendAlignment"`
	RelativeStrength     string `json:"relativeStrength"`
	CorrelationImpact    string `json:"correlationImpact,omitempty"`
	ModelAgreement       string `json:"modelAgreement,omitempty"`
}

// TradeReasoning is the structured reasoning block of a trade proposal
// or merged trade decision.
type TradeReasoning struct {
	MarketCondition     string              `json:"marketCondition"`
	TechnicalAnalysis   string              `json:"technicalAnalysis"`
	RiskAssessment      string              `json:"riskAssessment"`
	PairSelection       string              `json:"pairSelection"`
	ComparativeAnalysis ComparativeAnalysis `json:"comparativeAnalysis"`
}

// TradeProposal is one forecasting source's raw trading recommendation.
type TradeProposal struct {
	Action    TradeAction    `json:"action"`
	Pair      string         `json:"pair"`
	Reasoning TradeReasoning `json:"reasoning"`
}

// LendingReasoning is the structured reasoning block of a lending proposal
// or merged lending decision.
type LendingReasoning struct {
	MarketAnalysis string `json:"marketAnalysis"`
	RiskAssessment string `json:"riskAssessment"`
	YieldStrategy  string `json:"yieldStrategy,omitempty"`
}

// LendingProposal is one forecasting source's raw lending recommendation,
// including the candidate concrete actions for multi-step strategies.
type LendingProposal struct {
	Action    LendAction       `json:"action"`
	Token     string           `json:"token"`
	Amount    string           `json:"amount"`
	Reasoning LendingReasoning `json:"reasoning"`
	Actions   []Action         `json:"actions"`
}

// TradeDecision is the merged trading recommendation for one cycle.
// Immutable once constructed.
type TradeDecision struct {
	Action        TradeAction    `json:"action"`
	Pair          string         `json:"pair"`
	ShouldExecute bool           `json:"shouldExecute"`
	Confidence    Confidence     `json:"confidence"`
	Reasoning     TradeReasoning `json:"reasoning"`
}

// LendingDecision is the merged lending recommendation for one cycle.
type LendingDecision struct {
	Action        LendAction       `json:"action"`
	Token         string           `json:"token"`
	ShouldExecute bool             `json:"shouldExecute"`
	Confidence    Confidence       `json:"confidence"`
	Reasoning     LendingReasoning `json:"reasoning"`
	Actions       []Action         `json:"actions"`
}

// ActionResult is the per-action outcome of lending execution.
type ActionResult struct {
	Action  Action `json:"action"`
	Success bool   `json:"success"`
	TxHash  string `json:"txHash,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// DecisionRecord is the persisted form of one cycle's merged decisions.
// Created the moment the decisions are observed; patched exactly once
// with execution results after the run.
type DecisionRecord struct {
	ID               string           `json:"id"`
	CreatedAt        time.Time        `json:"createdAt"`
	Trading          TradeDecision    `json:"trading"`
	Lending          LendingDecision  `json:"lending"`
	ExecutionResults []ActionResult   `json:"executionResults,omitempty"`
	ExecutedAt       *time.Time       `json:"executedAt,omitempty"`
	LendingMarket    *LendingMetrics  `json:"lendingMarket,omitempty"`
}
