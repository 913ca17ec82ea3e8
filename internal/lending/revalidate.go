package lending

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"monad-trader/internal/chain"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// Gate revalidates a lending plan against fresh chain state just before
// execution. Conservative by construction: one stale action invalidates
// the whole batch.
type Gate struct {
	chain     ChainReader
	markets   Markets
	tolerance float64 // relative interest-rate drift, e.g. 0.10
	log       zerolog.Logger
}

// NewGate builds a revalidation gate.
func NewGate(chainReader ChainReader, markets Markets, tolerance float64, log zerolog.Logger) *Gate {
	return &Gate{
		chain:     chainReader,
		markets:   markets,
		tolerance: tolerance,
		log:       log.With().Str("component", "revalidation").Logger(),
	}
}

// Revalidate checks every action in the decision against current
// balances, liquidity, and interest rates. The first violation aborts
// the batch with a RevalidationError; nil means the plan still holds.
func (g *Gate) Revalidate(ctx context.Context, decision models.LendingDecision, baseline models.LendingMetrics) error {
	for _, action := range decision.Actions {
		if err := g.revalidateAction(ctx, action, baseline); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gate) revalidateAction(ctx context.Context, action models.Action, baseline models.LendingMetrics) error {
	switch action.Type {
	case models.ActionDeposit:
		token, ok := findToken(g.markets.ETokens, action.Token)
		if !ok {
			return apperrors.NewRevalidationError("token", action.Token, "known market", "unknown")
		}
		if err := g.checkBalance(ctx, "deposit-balance", token, action.Amount, g.chain.TokenBalance); err != nil {
			return err
		}
		return g.checkRateDrift(ctx, token, baseline)

	case models.ActionWithdraw:
		token, ok := findToken(g.markets.PTokens, action.Token)
		if !ok {
			return apperrors.NewRevalidationError("token", action.Token, "known market", "unknown")
		}
		if err := g.checkBalance(ctx, "withdraw-balance", token, action.Amount, g.chain.TokenBalance); err != nil {
			return err
		}
		if eToken, ok := findToken(g.markets.ETokens, action.Token); ok {
			if err := g.checkLiquidity(ctx, eToken, action.Amount); err != nil {
				return err
			}
			return g.checkRateDrift(ctx, eToken, baseline)
		}
		return nil

	case models.ActionBorrow:
		token, ok := findToken(g.markets.ETokens, action.Token)
		if !ok {
			return apperrors.NewRevalidationError("token", action.Token, "known market", "unknown")
		}
		if err := g.checkLiquidity(ctx, token, action.Amount); err != nil {
			return err
		}
		return g.checkRateDrift(ctx, token, baseline)
	}
	return nil
}

func (g *Gate) checkBalance(ctx context.Context, check string, token Token, amount string, read func(context.Context, common.Address) (*big.Int, error)) error {
	required, err := chain.ParseUnits(amount, token.Decimals)
	if err != nil {
		return apperrors.NewRevalidationError(check, token.Symbol, amount, "unparseable amount")
	}
	current, err := read(ctx, token.Address)
	if err != nil {
		return apperrors.NewRevalidationError(check, token.Symbol, amount, "balance unavailable")
	}
	if current.Cmp(required) < 0 {
		return apperrors.NewRevalidationError(check, token.Symbol, amount, chain.FormatUnits(current, token.Decimals))
	}
	return nil
}

func (g *Gate) checkLiquidity(ctx context.Context, eToken Token, amount string) error {
	required, err := chain.ParseUnits(amount, eToken.Decimals)
	if err != nil {
		return apperrors.NewRevalidationError("liquidity", eToken.Symbol, amount, "unparseable amount")
	}

	supply, err := g.chain.ETokenTotalSupply(ctx, eToken.Address)
	if err != nil {
		return apperrors.NewRevalidationError("liquidity", eToken.Symbol, amount, "supply unavailable")
	}
	borrows, err := g.chain.ETokenTotalBorrows(ctx, eToken.Address)
	if err != nil {
		return apperrors.NewRevalidationError("liquidity", eToken.Symbol, amount, "borrows unavailable")
	}

	available := new(big.Int).Sub(supply, borrows)
	if available.Cmp(required) < 0 {
		return apperrors.NewRevalidationError("liquidity", eToken.Symbol, amount, chain.FormatUnits(available, eToken.Decimals))
	}
	return nil
}

// checkRateDrift compares the current interest rate with the rate the
// decision was based on. Relative drift beyond the tolerance means the
// decision no longer describes the market it priced.
func (g *Gate) checkRateDrift(ctx context.Context, token Token, baseline models.LendingMetrics) error {
	baseRaw, ok := baseline.InterestRates[token.Symbol]
	if !ok {
		return nil
	}
	base, err := decimal.NewFromString(baseRaw)
	if err != nil {
		return nil
	}

	currentRate, err := g.chain.ETokenInterestRate(ctx, token.Address)
	if err != nil {
		return apperrors.NewRevalidationError("rate-drift", token.Symbol, baseRaw, "rate unavailable")
	}
	current, err := decimal.NewFromString(chain.FormatUnits(currentRate, rateDecimals))
	if err != nil {
		return nil
	}

	if base.IsZero() {
		if current.IsZero() {
			return nil
		}
		return apperrors.NewRevalidationError("rate-drift", token.Symbol, baseRaw, current.String())
	}

	drift := current.Sub(base).Abs().Div(base.Abs())
	if drift.GreaterThan(decimal.NewFromFloat(g.tolerance)) {
		g.log.Warn().
			Str("token", token.Symbol).
			Str("baseline", base.String()).
			Str("current", current.String()).
			Str("drift", drift.String()).
			Msg("interest rate drifted beyond tolerance")
		return apperrors.NewRevalidationError("rate-drift", token.Symbol, baseRaw, current.String())
	}
	return nil
}

func findToken(tokens []Token, symbol string) (Token, bool) {
	for _, t := range tokens {
		if t.Symbol == symbol {
			return t, true
		}
	}
	return Token{}, false
}
