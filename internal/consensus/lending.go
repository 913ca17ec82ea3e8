package consensus

import (
	"fmt"
	"strings"

	"monad-trader/internal/models"
)

// LendingRules reconciles lending proposals keyed on action+token.
// defaultRecipient fills action recipients the sources left blank.
func LendingRules(defaultRecipient string) Rules[models.LendingProposal, models.LendingDecision] {
	return Rules[models.LendingProposal, models.LendingDecision]{
		AgreementKey: func(p models.LendingProposal) string {
			return string(p.Action) + "|" + p.Token
		},
		Single: func(p models.LendingProposal, source string) models.LendingDecision {
			return singleLending(p, source, defaultRecipient)
		},
		Agree: func(ps []models.LendingProposal, sources []string) models.LendingDecision {
			return agreeLending(ps, defaultRecipient)
		},
		Conflict: conflictLending,
	}
}

func singleLending(p models.LendingProposal, source, defaultRecipient string) models.LendingDecision {
	reasoning := p.Reasoning
	reasoning.MarketAnalysis = fmt.Sprintf("%s Only: %s", source, reasoning.MarketAnalysis)
	return models.LendingDecision{
		Action:        p.Action,
		Token:         p.Token,
		ShouldExecute: false,
		Confidence:    models.ConfidenceMedium,
		Reasoning:     reasoning,
		Actions:       normalizeActions(p.Actions, defaultRecipient),
	}
}

func agreeLending(ps []models.LendingProposal, defaultRecipient string) models.LendingDecision {
	first := ps[0]
	risks := make([]string, len(ps))
	var merged []models.Action
	for i, p := range ps {
		risks[i] = p.Reasoning.RiskAssessment
		merged = append(merged, p.Actions...)
	}
	merged = normalizeActions(merged, defaultRecipient)

	return models.LendingDecision{
		Action:        first.Action,
		Token:         first.Token,
		ShouldExecute: first.Action != models.LendWait && len(merged) > 0,
		Confidence:    models.ConfidenceHigh,
		Reasoning: models.LendingReasoning{
			MarketAnalysis: "Both Models Agree: " + first.Reasoning.MarketAnalysis,
			RiskAssessment: CombineRiskAssessments(risks...),
			YieldStrategy:  first.Reasoning.YieldStrategy,
		},
		Actions: merged,
	}
}

func conflictLending(ps []models.LendingProposal, sources []string) models.LendingDecision {
	suggestions := make([]string, len(ps))
	for i, p := range ps {
		suggestions[i] = fmt.Sprintf("%s suggests %s %s", sources[i], p.Action, p.Token)
	}

	return models.LendingDecision{
		Action:        models.LendWait,
		ShouldExecute: false,
		Confidence:    models.ConfidenceLow,
		Reasoning: models.LendingReasoning{
			MarketAnalysis: "Models disagree on market strategy: " + strings.Join(suggestions, ", "),
			RiskAssessment: "HIGH due to model disagreement",
		},
		Actions: nil,
	}
}

// normalizeActions defaults missing amounts to "0" and missing
// recipients to the wallet address, so the execution layer never sees
// a half-formed action.
func normalizeActions(actions []models.Action, defaultRecipient string) []models.Action {
	out := make([]models.Action, 0, len(actions))
	for _, a := range actions {
		if a.Amount == "" {
			a.Amount = "0"
		}
		if a.Recipient == "" {
			a.Recipient = defaultRecipient
		}
		out = append(out, a)
	}
	return out
}
