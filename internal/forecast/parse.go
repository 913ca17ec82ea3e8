package forecast

import (
	"encoding/json"
	"fmt"
	"strings"

	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// StripFences removes a surrounding markdown code fence, if present.
// Models occasionally wrap JSON despite instructions not to.
func StripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// ParseTradeProposal decodes and validates one source's trading
// recommendation. Schema violations count as that source's failure.
func ParseTradeProposal(source, raw string) (models.TradeProposal, error) {
	cleaned := StripFences(raw)

	var p models.TradeProposal
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return models.TradeProposal{}, apperrors.NewParseError(source, raw, err)
	}

	switch p.Action {
	case models.TradeBuy, models.TradeSell, models.TradeWait:
	default:
		return models.TradeProposal{}, apperrors.NewParseError(source, raw, fmt.Errorf("unknown trade action %q", p.Action))
	}
	if p.Action != models.TradeWait && p.Pair == "" {
		return models.TradeProposal{}, apperrors.NewParseError(source, raw, fmt.Errorf("%s proposal missing pair", p.Action))
	}
	return p, nil
}

// ParseLendingProposal decodes and validates one source's lending
// recommendation. Sub-action types are validated against the closed
// enum by the Action unmarshaler.
func ParseLendingProposal(source, raw string) (models.LendingProposal, error) {
	cleaned := StripFences(raw)

	var p models.LendingProposal
	if err := json.Unmarshal([]byte(cleaned), &p); err != nil {
		return models.LendingProposal{}, apperrors.NewParseError(source, raw, err)
	}

	switch p.Action {
	case models.LendSupply, models.LendBorrow, models.LendWithdraw, models.LendWait:
	default:
		return models.LendingProposal{}, apperrors.NewParseError(source, raw, fmt.Errorf("unknown lending action %q", p.Action))
	}
	return p, nil
}
