package lending

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"monad-trader/internal/chain"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
)

// Executor runs the concrete lending actions of a decision. Actions are
// submitted sequentially so they never race on the account nonce, but
// each failure is contained: sibling actions still get their attempt.
type Executor struct {
	chain   ChainWriter
	markets Markets
	log     zerolog.Logger
}

// NewExecutor wires the lending executor.
func NewExecutor(chainWriter ChainWriter, markets Markets, log zerolog.Logger) *Executor {
	return &Executor{
		chain:   chainWriter,
		markets: markets,
		log:     log.With().Str("component", "lending-exec").Logger(),
	}
}

// ExecuteActions runs every action and collects one result per action.
func (e *Executor) ExecuteActions(ctx context.Context, actions []models.Action) []models.ActionResult {
	results := make([]models.ActionResult, 0, len(actions))
	for _, action := range actions {
		results = append(results, e.executeAction(ctx, action))
	}
	return results
}

func (e *Executor) executeAction(ctx context.Context, action models.Action) models.ActionResult {
	result := models.ActionResult{Action: action}

	var txHash string
	var err error
	switch action.Type {
	case models.ActionDeposit:
		txHash, err = e.deposit(ctx, action)
	case models.ActionWithdraw:
		txHash, err = e.withdraw(ctx, action)
	case models.ActionBorrow:
		txHash, err = e.borrow(ctx, action)
	default:
		result.Skipped = true
		result.Reason = fmt.Sprintf("action type %s is not a lending operation", action.Type)
		return result
	}

	if err != nil {
		e.log.Error().Err(err).
			Str("type", string(action.Type)).
			Str("token", action.Token).
			Str("amount", action.Amount).
			Msg("lending action failed")
		result.Error = err.Error()
		return result
	}

	result.Success = true
	result.TxHash = txHash
	e.log.Info().
		Str("type", string(action.Type)).
		Str("token", action.Token).
		Str("amount", action.Amount).
		Str("txHash", txHash).
		Msg("lending action completed")
	return result
}

func (e *Executor) deposit(ctx context.Context, action models.Action) (string, error) {
	token, ok := findToken(e.markets.ETokens, action.Token)
	if !ok {
		return "", apperrors.NewExecutionError("deposit", action.Token, fmt.Errorf("unknown eToken market"))
	}

	if err := e.ensureDelegateApproval(ctx, e.markets.UniversalBalance, chain.KindUniversalBalance); err != nil {
		return "", apperrors.NewExecutionError("deposit-approval", action.Token, err)
	}

	amount, err := e.requireBalance(ctx, token, action.Amount)
	if err != nil {
		return "", err
	}

	receipt, err := e.chain.DepositFor(ctx, e.markets.UniversalBalance, amount)
	if err != nil {
		return "", apperrors.NewExecutionError("deposit", action.Token, err)
	}
	return receipt.TxHash.Hex(), nil
}

func (e *Executor) withdraw(ctx context.Context, action models.Action) (string, error) {
	token, ok := findToken(e.markets.PTokens, action.Token)
	if !ok {
		return "", apperrors.NewExecutionError("withdraw", action.Token, fmt.Errorf("unknown pToken market"))
	}

	if err := e.ensureDelegateApproval(ctx, token.Address, chain.KindPToken); err != nil {
		return "", apperrors.NewExecutionError("withdraw-approval", action.Token, err)
	}
	if err := e.ensureDelegateApproval(ctx, e.markets.UniversalBalance, chain.KindUniversalBalance); err != nil {
		return "", apperrors.NewExecutionError("withdraw-approval", action.Token, err)
	}

	amount, err := e.requireBalance(ctx, token, action.Amount)
	if err != nil {
		return "", err
	}

	recipient := e.chain.Account()
	if action.Recipient != "" {
		recipient = common.HexToAddress(action.Recipient)
	}

	receipt, err := e.chain.WithdrawFor(ctx, e.markets.UniversalBalance, amount, recipient)
	if err != nil {
		return "", apperrors.NewExecutionError("withdraw", action.Token, err)
	}
	return receipt.TxHash.Hex(), nil
}

func (e *Executor) borrow(ctx context.Context, action models.Action) (string, error) {
	token, ok := findToken(e.markets.ETokens, action.Token)
	if !ok {
		return "", apperrors.NewExecutionError("borrow", action.Token, fmt.Errorf("unknown eToken market"))
	}

	if err := e.ensureDelegateApproval(ctx, token.Address, chain.KindEToken); err != nil {
		return "", apperrors.NewExecutionError("borrow-approval", action.Token, err)
	}

	amount, err := chain.ParseUnits(action.Amount, token.Decimals)
	if err != nil {
		return "", apperrors.NewExecutionError("borrow", action.Token, err)
	}

	power, err := e.chain.ETokenBorrowingPower(ctx, token.Address)
	if err != nil {
		return "", apperrors.NewExecutionError("borrow", action.Token, err)
	}
	if power.Cmp(amount) < 0 {
		return "", apperrors.NewExecutionError("borrow", action.Token,
			fmt.Errorf("insufficient borrowing power: have %s, need %s",
				chain.FormatUnits(power, token.Decimals), action.Amount))
	}

	recipient := e.chain.Account()
	if action.Recipient != "" {
		recipient = common.HexToAddress(action.Recipient)
	}

	receipt, err := e.chain.BorrowFor(ctx, token.Address, recipient, amount)
	if err != nil {
		return "", apperrors.NewExecutionError("borrow", action.Token, err)
	}
	return receipt.TxHash.Hex(), nil
}

// ensureDelegateApproval is the idempotent check-then-set: approval
// transactions only go out when the delegate is not yet approved.
func (e *Executor) ensureDelegateApproval(ctx context.Context, contract common.Address, kind chain.ContractKind) error {
	approved, err := e.chain.IsDelegateApproved(ctx, contract, kind, e.markets.Delegate)
	if err != nil {
		return err
	}
	if approved {
		return nil
	}

	e.log.Info().Str("contract", contract.Hex()).Str("kind", string(kind)).Msg("setting delegate approval")
	_, err = e.chain.SetDelegateApproval(ctx, contract, kind, e.markets.Delegate, true)
	return err
}

func (e *Executor) requireBalance(ctx context.Context, token Token, amountStr string) (*big.Int, error) {
	amount, err := chain.ParseUnits(amountStr, token.Decimals)
	if err != nil {
		return nil, apperrors.NewExecutionError("parse-amount", token.Symbol, err)
	}
	balance, err := e.chain.TokenBalance(ctx, token.Address)
	if err != nil {
		return nil, apperrors.NewExecutionError("balance", token.Symbol, err)
	}
	if balance.Cmp(amount) < 0 {
		return nil, apperrors.Wrapf(apperrors.ErrInsufficientBalance,
			"%s: have %s, need %s", token.Symbol, chain.FormatUnits(balance, token.Decimals), amountStr)
	}
	return amount, nil
}
