// Package consensus reconciles proposals from independent forecasting
// sources into a single decision with a confidence tier. The same
// reconciliation procedure serves both the trading and lending domains;
// only the agreement key and the merge of reasoning fields differ.
package consensus

import (
	apperrors "monad-trader/internal/errors"
)

// SourceResult is one forecasting source's outcome: either a proposal
// or the error that replaced it. Failed sources participate in the
// confidence calculation but never in the merge.
type SourceResult[P any] struct {
	Source   string
	Proposal P
	Err      error
}

// Rules binds the domain-specific parts of reconciliation: how two
// proposals count as agreeing, and how to shape the merged decision in
// each of the three outcomes.
type Rules[P, D any] struct {
	// AgreementKey projects a proposal onto the fields that must match
	// for sources to count as agreeing (action+pair, action+token).
	AgreementKey func(P) string

	// Single shapes the decision when exactly one source responded.
	// Confidence is MEDIUM and reasoning carries the source provenance.
	Single func(p P, source string) D

	// Agree merges proposals whose agreement keys all match. Confidence
	// is HIGH.
	Agree func(ps []P, sources []string) D

	// Conflict shapes the conservative WAIT decision when sources
	// disagree. Confidence is LOW and the conflicting proposals are
	// quoted verbatim.
	Conflict func(ps []P, sources []string) D
}

// Reconcile merges source results into one decision.
//
// Zero usable proposals raises ErrNoSources. One usable proposal is
// adopted with a single-source discount. Two or more proposals either
// all agree on the domain key and merge at HIGH confidence, or any
// disagreement forces the conservative conflict outcome.
func Reconcile[P, D any](results []SourceResult[P], rules Rules[P, D]) (D, error) {
	var proposals []P
	var sources []string
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		proposals = append(proposals, r.Proposal)
		sources = append(sources, r.Source)
	}

	var zero D
	switch len(proposals) {
	case 0:
		return zero, apperrors.ErrNoSources
	case 1:
		return rules.Single(proposals[0], sources[0]), nil
	}

	key := rules.AgreementKey(proposals[0])
	for _, p := range proposals[1:] {
		if rules.AgreementKey(p) != key {
			return rules.Conflict(proposals, sources), nil
		}
	}
	return rules.Agree(proposals, sources), nil
}
