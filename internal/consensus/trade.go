package consensus

import (
	"fmt"
	"strings"

	"monad-trader/internal/models"
)

// TradeRules reconciles trading proposals keyed on action+pair.
func TradeRules() Rules[models.TradeProposal, models.TradeDecision] {
	return Rules[models.TradeProposal, models.TradeDecision]{
		AgreementKey: func(p models.TradeProposal) string {
			return string(p.Action) + "|" + p.Pair
		},
		Single:   singleTrade,
		Agree:    agreeTrade,
		Conflict: conflictTrade,
	}
}

func singleTrade(p models.TradeProposal, source string) models.TradeDecision {
	reasoning := p.Reasoning
	reasoning.MarketCondition = fmt.Sprintf("%s Only: %s", source, reasoning.MarketCondition)
	return models.TradeDecision{
		Action:        p.Action,
		Pair:          p.Pair,
		ShouldExecute: false,
		Confidence:    models.ConfidenceMedium,
		Reasoning:     reasoning,
	}
}

func agreeTrade(ps []models.TradeProposal, _ []string) models.TradeDecision {
	first := ps[0]
	risks := make([]string, len(ps))
	for i, p := range ps {
		risks[i] = p.Reasoning.RiskAssessment
	}

	reasoning := first.Reasoning
	reasoning.MarketCondition = "All Models Agree: " + first.Reasoning.MarketCondition
	reasoning.TechnicalAnalysis = "Consensus: " + first.Reasoning.TechnicalAnalysis
	reasoning.RiskAssessment = CombineRiskAssessments(risks...)
	reasoning.ComparativeAnalysis.ModelAgreement = "Both models agree on pair selection and action"

	return models.TradeDecision{
		Action:        first.Action,
		Pair:          first.Pair,
		ShouldExecute: first.Action == models.TradeBuy || first.Action == models.TradeSell,
		Confidence:    models.ConfidenceHigh,
		Reasoning:     reasoning,
	}
}

func conflictTrade(ps []models.TradeProposal, sources []string) models.TradeDecision {
	suggestions := make([]string, len(ps))
	for i, p := range ps {
		suggestions[i] = fmt.Sprintf("%s suggests %s %s", sources[i], p.Action, p.Pair)
	}

	return models.TradeDecision{
		Action:        models.TradeWait,
		Pair:          "",
		ShouldExecute: false,
		Confidence:    models.ConfidenceLow,
		Reasoning: models.TradeReasoning{
			MarketCondition:   "Mixed signals between Models",
			TechnicalAnalysis: strings.Join(suggestions, ", "),
			RiskAssessment:    "HIGH due to model disagreement",
			PairSelection:     "Models disagree on pair selection",
			ComparativeAnalysis: models.ComparativeAnalysis{
				VolatilityComparison: "Analysis suspended due to model disagreement",
				TrendAlignment:       "Models show different interpretations",
				RelativeStrength:     "No consensus on strongest pair",
				ModelAgreement:       "Models disagree on best trading opportunity",
			},
		},
	}
}
