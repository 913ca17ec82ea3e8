// Package trading executes merged trading decisions: viability checks,
// risk-scaled sizing, and the swap state machine. Every execution
// attempt leaves exactly one terminal audit record; nothing is retried.
package trading

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"monad-trader/internal/chain"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
	"monad-trader/internal/swap"
)

// ChainClient is the on-chain surface the executor needs.
type ChainClient interface {
	Account() common.Address
	TokenBalance(ctx context.Context, token common.Address) (*big.Int, error)
	TokenDecimals(ctx context.Context, token common.Address) (int, error)
	Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error)
	Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error)
	SignTypedData(typedData apitypes.TypedData) ([]byte, error)
	Submit(ctx context.Context, req chain.TxRequest) (*types.Receipt, error)
}

// Quoter prices swaps.
type Quoter interface {
	GetQuote(ctx context.Context, sellToken, buyToken common.Address, sellAmount *big.Int, taker common.Address) (*swap.Quote, error)
}

// Recorder persists trade audit records.
type Recorder interface {
	LogTrade(ctx context.Context, log *models.TradeLog) error
}

// Pair binds the two tokens a swap decision moves between. BUY sells
// the quote token for the base token; SELL is the reverse.
type Pair struct {
	Base  common.Address // e.g. WBTC
	Quote common.Address // e.g. USDT
}

// Config carries the sizing and dust thresholds.
type Config struct {
	Permit2             common.Address
	HighRiskSizePercent float64
	LowRiskSizePercent  float64
	MinBuyAmount        string
	MinSellAmount       string
}

// Executor runs trading decisions against the chain.
type Executor struct {
	chain  ChainClient
	quoter Quoter
	store  Recorder
	pair   Pair
	cfg    Config
	log    zerolog.Logger
}

// NewExecutor wires the executor dependencies.
func NewExecutor(chainClient ChainClient, quoter Quoter, store Recorder, pair Pair, cfg Config, log zerolog.Logger) *Executor {
	return &Executor{
		chain:  chainClient,
		quoter: quoter,
		store:  store,
		pair:   pair,
		cfg:    cfg,
		log:    log.With().Str("component", "trading").Logger(),
	}
}

// sellBuyTokens maps the decision action onto the token direction.
func (e *Executor) sellBuyTokens(action models.TradeAction) (common.Address, common.Address) {
	if action == models.TradeBuy {
		return e.pair.Quote, e.pair.Base
	}
	return e.pair.Base, e.pair.Quote
}

// Viability is the outcome of a pre-trade balance check.
type Viability struct {
	Viable  bool
	Balance string
	Token   string
	Reason  string
}

// CheckViability verifies the sell-side balance clears the dust
// threshold before any quote is requested.
func (e *Executor) CheckViability(ctx context.Context, action models.TradeAction) (Viability, error) {
	sellToken, _ := e.sellBuyTokens(action)

	balance, err := e.chain.TokenBalance(ctx, sellToken)
	if err != nil {
		return Viability{}, err
	}
	decimals, err := e.chain.TokenDecimals(ctx, sellToken)
	if err != nil {
		return Viability{}, err
	}

	formatted := chain.FormatUnits(balance, decimals)
	minAmount := e.cfg.MinBuyAmount
	if action == models.TradeSell {
		minAmount = e.cfg.MinSellAmount
	}

	if balance.Sign() == 0 {
		return Viability{Balance: "0", Token: sellToken.Hex(), Reason: "no sell-side balance available for trade"}, nil
	}

	have, err := decimal.NewFromString(formatted)
	if err != nil {
		return Viability{}, fmt.Errorf("parse balance %q: %w", formatted, err)
	}
	minimum, err := decimal.NewFromString(minAmount)
	if err != nil {
		return Viability{}, fmt.Errorf("parse minimum %q: %w", minAmount, err)
	}
	if have.LessThan(minimum) {
		return Viability{
			Balance: formatted,
			Token:   sellToken.Hex(),
			Reason:  fmt.Sprintf("balance too low for trade, minimum required: %s", minAmount),
		}, nil
	}

	return Viability{Viable: true, Balance: formatted, Token: sellToken.Hex()}, nil
}

// CalculateTradeAmount sizes the trade as a fraction of the sell-side
// balance: the HIGH-risk fraction is the smaller one.
func (e *Executor) CalculateTradeAmount(ctx context.Context, action models.TradeAction, risk models.RiskLevel) (string, error) {
	sellToken, _ := e.sellBuyTokens(action)

	balance, err := e.chain.TokenBalance(ctx, sellToken)
	if err != nil {
		return "", err
	}
	decimals, err := e.chain.TokenDecimals(ctx, sellToken)
	if err != nil {
		return "", err
	}

	pct := e.cfg.LowRiskSizePercent
	if risk == models.RiskHigh {
		pct = e.cfg.HighRiskSizePercent
	}

	amount := decimal.NewFromBigInt(balance, -int32(decimals)).
		Mul(decimal.NewFromFloat(pct))
	return amount.Truncate(int32(decimals)).String(), nil
}

// ExecuteSwap runs the swap state machine for one decision. amount is a
// human-unit decimal string. The returned TradeLog is the terminal
// audit record; it is persisted exactly once, COMPLETED or FAILED.
func (e *Executor) ExecuteSwap(ctx context.Context, action models.TradeAction, pair, amount, decisionID string) (*models.TradeLog, error) {
	if action != models.TradeBuy && action != models.TradeSell {
		return nil, apperrors.NewExecutionError("validate", string(action), fmt.Errorf("action is not executable"))
	}

	sellToken, buyToken := e.sellBuyTokens(action)

	sellDecimals, err := e.chain.TokenDecimals(ctx, sellToken)
	if err != nil {
		return nil, err
	}
	sellAmount, err := chain.ParseUnits(amount, sellDecimals)
	if err != nil {
		return nil, apperrors.NewExecutionError("parse-amount", string(action), err)
	}

	balance, err := e.chain.TokenBalance(ctx, sellToken)
	if err != nil {
		return nil, err
	}
	if balance.Cmp(sellAmount) < 0 {
		e.log.Error().
			Str("pair", pair).
			Str("balance", chain.FormatUnits(balance, sellDecimals)).
			Str("required", amount).
			Msg("insufficient balance for trade")
		return nil, apperrors.Wrapf(apperrors.ErrInsufficientBalance,
			"have %s, need %s", chain.FormatUnits(balance, sellDecimals), amount)
	}

	tradeLog := &models.TradeLog{
		ID:                uuid.NewString(),
		Timestamp:         time.Now().UTC(),
		Pair:              pair,
		Action:            action,
		TokenIn:           sellToken.Hex(),
		TokenOut:          buyToken.Hex(),
		AmountIn:          amount,
		ExpectedAmountOut: "0",
		Status:            models.ExecPending,
		DecisionID:        decisionID,
	}

	receipt, err := e.runSwap(ctx, tradeLog, sellToken, buyToken, sellAmount)
	if err != nil {
		tradeLog.Status = models.ExecFailed
		tradeLog.Error = err.Error()
		e.record(ctx, tradeLog)
		return tradeLog, err
	}

	tradeLog.Status = models.ExecCompleted
	tradeLog.TxHash = receipt.TxHash.Hex()
	e.record(ctx, tradeLog)
	return tradeLog, nil
}

// runSwap performs the allowance, quote, sign, and send steps. Any
// error is terminal for this attempt.
func (e *Executor) runSwap(ctx context.Context, tradeLog *models.TradeLog, sellToken, buyToken common.Address, sellAmount *big.Int) (*types.Receipt, error) {
	if err := e.ensureAllowance(ctx, sellToken, sellAmount); err != nil {
		return nil, apperrors.NewExecutionError("allowance", string(tradeLog.Action), err)
	}

	quote, err := e.quoter.GetQuote(ctx, sellToken, buyToken, sellAmount, e.chain.Account())
	if err != nil {
		return nil, apperrors.NewExecutionError("quote", string(tradeLog.Action), err)
	}
	if !quote.LiquidityAvailable {
		return nil, apperrors.ErrNoLiquidity
	}

	buyDecimals, err := e.chain.TokenDecimals(ctx, buyToken)
	if err != nil {
		return nil, apperrors.NewExecutionError("quote", string(tradeLog.Action), err)
	}
	if buyAmount, ok := new(big.Int).SetString(quote.BuyAmount, 10); ok {
		tradeLog.ExpectedAmountOut = chain.FormatUnits(buyAmount, buyDecimals)
	}

	req, err := e.buildSettlement(quote)
	if err != nil {
		return nil, apperrors.NewExecutionError("sign", string(tradeLog.Action), err)
	}

	receipt, err := e.chain.Submit(ctx, req)
	if err != nil {
		return nil, apperrors.NewExecutionError("send", string(tradeLog.Action), err)
	}
	return receipt, nil
}

func (e *Executor) ensureAllowance(ctx context.Context, token common.Address, amount *big.Int) error {
	allowance, err := e.chain.Allowance(ctx, token, e.cfg.Permit2)
	if err != nil {
		return err
	}
	if allowance.Cmp(amount) >= 0 {
		return nil
	}
	_, err = e.chain.Approve(ctx, token, e.cfg.Permit2, amount)
	return err
}

// buildSettlement signs the permit2 payload and splices the signature
// into the settlement calldata.
func (e *Executor) buildSettlement(quote *swap.Quote) (chain.TxRequest, error) {
	data := quote.Transaction.Data
	if quote.Permit2 != nil {
		sig, err := e.chain.SignTypedData(quote.Permit2.EIP712)
		if err != nil {
			return chain.TxRequest{}, err
		}
		assembled, err := swap.AssembleCalldata(data, sig)
		if err != nil {
			return chain.TxRequest{}, err
		}
		return e.txRequest(quote, assembled)
	}

	// Without a permit the calldata goes out untouched.
	raw, err := hexutil.Decode(data)
	if err != nil {
		return chain.TxRequest{}, err
	}
	return e.txRequest(quote, raw)
}

func (e *Executor) txRequest(quote *swap.Quote, data []byte) (chain.TxRequest, error) {
	req := chain.TxRequest{
		To:   common.HexToAddress(quote.Transaction.To),
		Data: data,
	}
	if quote.Transaction.Value != "" {
		value, ok := new(big.Int).SetString(quote.Transaction.Value, 10)
		if !ok {
			return chain.TxRequest{}, fmt.Errorf("invalid transaction value %q", quote.Transaction.Value)
		}
		req.Value = value
	}
	if quote.Transaction.Gas != "" {
		gas, err := strconv.ParseUint(quote.Transaction.Gas, 10, 64)
		if err != nil {
			return chain.TxRequest{}, fmt.Errorf("invalid gas %q", quote.Transaction.Gas)
		}
		req.Gas = gas
	}
	if quote.Transaction.GasPrice != "" {
		gasPrice, ok := new(big.Int).SetString(quote.Transaction.GasPrice, 10)
		if !ok {
			return chain.TxRequest{}, fmt.Errorf("invalid gas price %q", quote.Transaction.GasPrice)
		}
		req.GasPrice = gasPrice
	}
	return req, nil
}

// record persists the terminal trade log. Persistence failures are
// logged, never propagated: the trade outcome already happened.
func (e *Executor) record(ctx context.Context, tradeLog *models.TradeLog) {
	e.log.Info().
		Str("id", tradeLog.ID).
		Str("pair", tradeLog.Pair).
		Str("action", string(tradeLog.Action)).
		Str("status", string(tradeLog.Status)).
		Str("txHash", tradeLog.TxHash).
		Msg("trade execution")

	if err := e.store.LogTrade(ctx, tradeLog); err != nil {
		e.log.Error().Err(err).Str("id", tradeLog.ID).Msg("failed to persist trade log")
	}
}
