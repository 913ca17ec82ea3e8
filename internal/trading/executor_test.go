package trading

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"monad-trader/internal/chain"
	apperrors "monad-trader/internal/errors"
	"monad-trader/internal/models"
	"monad-trader/internal/swap"
)

var (
	usdtAddr = common.HexToAddress("0x0000000000000000000000000000000000000aa1")
	wbtcAddr = common.HexToAddress("0x0000000000000000000000000000000000000bb2")
	permit2  = common.HexToAddress("0x0000000000000000000000000000000000000cc3")
)

type fakeChain struct {
	balances   map[common.Address]*big.Int
	decimals   map[common.Address]int
	allowances map[common.Address]*big.Int

	approveCalls int
	submitCalls  int
	submitErr    error
	signErr      error
}

func (f *fakeChain) Account() common.Address { return common.HexToAddress("0xdd4") }

func (f *fakeChain) TokenBalance(_ context.Context, token common.Address) (*big.Int, error) {
	if b, ok := f.balances[token]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) TokenDecimals(_ context.Context, token common.Address) (int, error) {
	return f.decimals[token], nil
}

func (f *fakeChain) Allowance(_ context.Context, token, _ common.Address) (*big.Int, error) {
	if a, ok := f.allowances[token]; ok {
		return new(big.Int).Set(a), nil
	}
	return big.NewInt(0), nil
}

func (f *fakeChain) Approve(_ context.Context, _, _ common.Address, _ *big.Int) (*types.Receipt, error) {
	f.approveCalls++
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (f *fakeChain) SignTypedData(apitypes.TypedData) ([]byte, error) {
	if f.signErr != nil {
		return nil, f.signErr
	}
	return make([]byte, 65), nil
}

func (f *fakeChain) Submit(_ context.Context, _ chain.TxRequest) (*types.Receipt, error) {
	f.submitCalls++
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &types.Receipt{
		Status: types.ReceiptStatusSuccessful,
		TxHash: common.HexToHash("0xfeed"),
	}, nil
}

type fakeQuoter struct {
	quote *swap.Quote
	err   error
	calls int
}

func (f *fakeQuoter) GetQuote(context.Context, common.Address, common.Address, *big.Int, common.Address) (*swap.Quote, error) {
	f.calls++
	return f.quote, f.err
}

type fakeRecorder struct {
	logs []models.TradeLog
}

func (f *fakeRecorder) LogTrade(_ context.Context, log *models.TradeLog) error {
	f.logs = append(f.logs, *log)
	return nil
}

func newTestExecutor(chainClient ChainClient, quoter Quoter, recorder Recorder) *Executor {
	return NewExecutor(chainClient, quoter, recorder,
		Pair{Base: wbtcAddr, Quote: usdtAddr},
		Config{
			Permit2:             permit2,
			HighRiskSizePercent: 0.05,
			LowRiskSizePercent:  0.10,
			MinBuyAmount:        "1",
			MinSellAmount:       "0.0001",
		},
		zerolog.Nop())
}

func usdtBalance(human string) *big.Int {
	v, _ := chain.ParseUnits(human, 6)
	return v
}

func happyQuote() *swap.Quote {
	return &swap.Quote{
		LiquidityAvailable: true,
		BuyAmount:          "200000000",
		Transaction: swap.QuoteTransaction{
			To:    "0x1111111111111111111111111111111111111111",
			Data:  "0xdeadbeef",
			Value: "0",
			Gas:   "210000",
		},
		Permit2: &swap.Permit2Payload{},
	}
}

func TestExecuteSwapCompletesAndRecordsOnce(t *testing.T) {
	fc := &fakeChain{
		balances:   map[common.Address]*big.Int{usdtAddr: usdtBalance("1000")},
		decimals:   map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
		allowances: map[common.Address]*big.Int{usdtAddr: usdtBalance("1000000")},
	}
	quoter := &fakeQuoter{quote: happyQuote()}
	recorder := &fakeRecorder{}
	exec := newTestExecutor(fc, quoter, recorder)

	tradeLog, err := exec.ExecuteSwap(context.Background(), models.TradeBuy, "BTCUSD", "100", "dec-1")
	require.NoError(t, err)

	assert.Equal(t, models.ExecCompleted, tradeLog.Status)
	assert.NotEmpty(t, tradeLog.TxHash)
	assert.Equal(t, "2", tradeLog.ExpectedAmountOut, "200000000 base units at 8 decimals")
	assert.Equal(t, "dec-1", tradeLog.DecisionID)
	assert.Equal(t, usdtAddr.Hex(), tradeLog.TokenIn)
	assert.Equal(t, wbtcAddr.Hex(), tradeLog.TokenOut)

	require.Len(t, recorder.logs, 1, "exactly one terminal record")
	assert.Equal(t, models.ExecCompleted, recorder.logs[0].Status)
	assert.Equal(t, 1, fc.submitCalls)
	assert.Zero(t, fc.approveCalls, "sufficient allowance skips approve")
}

func TestExecuteSwapApprovesWhenAllowanceShort(t *testing.T) {
	fc := &fakeChain{
		balances: map[common.Address]*big.Int{usdtAddr: usdtBalance("1000")},
		decimals: map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
	}
	exec := newTestExecutor(fc, &fakeQuoter{quote: happyQuote()}, &fakeRecorder{})

	_, err := exec.ExecuteSwap(context.Background(), models.TradeBuy, "BTCUSD", "100", "")
	require.NoError(t, err)
	assert.Equal(t, 1, fc.approveCalls)
}

func TestExecuteSwapQuoteFailureIsTerminal(t *testing.T) {
	fc := &fakeChain{
		balances:   map[common.Address]*big.Int{usdtAddr: usdtBalance("1000")},
		decimals:   map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
		allowances: map[common.Address]*big.Int{usdtAddr: usdtBalance("1000000")},
	}
	quoter := &fakeQuoter{err: errors.New("aggregator 500")}
	recorder := &fakeRecorder{}
	exec := newTestExecutor(fc, quoter, recorder)

	tradeLog, err := exec.ExecuteSwap(context.Background(), models.TradeBuy, "BTCUSD", "100", "")
	require.Error(t, err)

	assert.Equal(t, models.ExecFailed, tradeLog.Status)
	assert.Contains(t, tradeLog.Error, "aggregator 500")
	require.Len(t, recorder.logs, 1, "one FAILED record, nothing else")
	assert.Equal(t, models.ExecFailed, recorder.logs[0].Status)
	assert.Zero(t, fc.submitCalls, "no transaction after quote failure")
	assert.Equal(t, 1, quoter.calls, "no retry")
}

func TestExecuteSwapNoLiquidityFails(t *testing.T) {
	quote := happyQuote()
	quote.LiquidityAvailable = false

	fc := &fakeChain{
		balances:   map[common.Address]*big.Int{usdtAddr: usdtBalance("1000")},
		decimals:   map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
		allowances: map[common.Address]*big.Int{usdtAddr: usdtBalance("1000000")},
	}
	recorder := &fakeRecorder{}
	exec := newTestExecutor(fc, &fakeQuoter{quote: quote}, recorder)

	tradeLog, err := exec.ExecuteSwap(context.Background(), models.TradeBuy, "BTCUSD", "100", "")
	assert.ErrorIs(t, err, apperrors.ErrNoLiquidity)
	assert.Equal(t, models.ExecFailed, tradeLog.Status)
	require.Len(t, recorder.logs, 1)
	assert.Zero(t, fc.submitCalls)
}

func TestExecuteSwapInsufficientBalanceHasNoRecord(t *testing.T) {
	fc := &fakeChain{
		balances: map[common.Address]*big.Int{usdtAddr: usdtBalance("10")},
		decimals: map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
	}
	recorder := &fakeRecorder{}
	exec := newTestExecutor(fc, &fakeQuoter{}, recorder)

	_, err := exec.ExecuteSwap(context.Background(), models.TradeBuy, "BTCUSD", "100", "")
	assert.ErrorIs(t, err, apperrors.ErrInsufficientBalance)
	assert.Empty(t, recorder.logs, "nothing attempted, nothing recorded")
}

func TestExecuteSwapRejectsWait(t *testing.T) {
	exec := newTestExecutor(&fakeChain{}, &fakeQuoter{}, &fakeRecorder{})
	_, err := exec.ExecuteSwap(context.Background(), models.TradeWait, "BTCUSD", "1", "")
	assert.Error(t, err)
}

func TestCheckViability(t *testing.T) {
	fc := &fakeChain{
		balances: map[common.Address]*big.Int{usdtAddr: usdtBalance("0.5")},
		decimals: map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
	}
	exec := newTestExecutor(fc, &fakeQuoter{}, &fakeRecorder{})

	v, err := exec.CheckViability(context.Background(), models.TradeBuy)
	require.NoError(t, err)
	assert.False(t, v.Viable)
	assert.Contains(t, v.Reason, "minimum required: 1")

	v, err = exec.CheckViability(context.Background(), models.TradeSell)
	require.NoError(t, err)
	assert.False(t, v.Viable)
	assert.Contains(t, v.Reason, "no sell-side balance")

	fc.balances[usdtAddr] = usdtBalance("250")
	v, err = exec.CheckViability(context.Background(), models.TradeBuy)
	require.NoError(t, err)
	assert.True(t, v.Viable)
	assert.Equal(t, "250", v.Balance)
}

func TestCalculateTradeAmountScalesByRisk(t *testing.T) {
	fc := &fakeChain{
		balances: map[common.Address]*big.Int{usdtAddr: usdtBalance("1000")},
		decimals: map[common.Address]int{usdtAddr: 6, wbtcAddr: 8},
	}
	exec := newTestExecutor(fc, &fakeQuoter{}, &fakeRecorder{})

	high, err := exec.CalculateTradeAmount(context.Background(), models.TradeBuy, models.RiskHigh)
	require.NoError(t, err)
	assert.Equal(t, "50", high, "5 percent of 1000")

	low, err := exec.CalculateTradeAmount(context.Background(), models.TradeBuy, models.RiskLow)
	require.NoError(t, err)
	assert.Equal(t, "100", low, "10 percent of 1000")
}
