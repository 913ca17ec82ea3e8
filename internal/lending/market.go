// Package lending reads protocol market state, revalidates planned
// actions against fresh data, and executes deposit/withdraw/borrow
// steps with per-action failure isolation.
package lending

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"monad-trader/internal/chain"
	"monad-trader/internal/models"
)

// ChainReader is the protocol read surface. Every call is independently
// fallible.
type ChainReader interface {
	Account() common.Address
	TokenBalance(ctx context.Context, token common.Address) (*big.Int, error)
	ETokenInterestRate(ctx context.Context, eToken common.Address) (*big.Int, error)
	ETokenTotalBorrows(ctx context.Context, eToken common.Address) (*big.Int, error)
	ETokenTotalSupply(ctx context.Context, eToken common.Address) (*big.Int, error)
	ETokenBorrowingPower(ctx context.Context, eToken common.Address) (*big.Int, error)
	PTokenUnderlyingBalance(ctx context.Context, pToken common.Address) (*big.Int, error)
}

// ChainWriter is the protocol write surface used by the executor.
type ChainWriter interface {
	ChainReader
	IsDelegateApproved(ctx context.Context, contract common.Address, kind chain.ContractKind, delegate common.Address) (bool, error)
	SetDelegateApproval(ctx context.Context, contract common.Address, kind chain.ContractKind, delegate common.Address, approved bool) (*types.Receipt, error)
	DepositFor(ctx context.Context, universalBalance common.Address, amount *big.Int) (*types.Receipt, error)
	WithdrawFor(ctx context.Context, universalBalance common.Address, amount *big.Int, recipient common.Address) (*types.Receipt, error)
	BorrowFor(ctx context.Context, eToken common.Address, recipient common.Address, amount *big.Int) (*types.Receipt, error)
}

// Token binds a symbol to its contract address and precision.
type Token struct {
	Symbol   string
	Address  common.Address
	Decimals int
}

// Markets describes the protocol contract set for one deployment.
type Markets struct {
	ETokens          []Token
	PTokens          []Token
	UniversalBalance common.Address
	Delegate         common.Address
}

// interest rates come back as 18-decimal fixed point regardless of the
// market token's own precision.
const rateDecimals = 18

// Reader assembles the lending-market snapshot. Individual read
// failures degrade that one field to zero with a warning; the snapshot
// itself always comes back.
type Reader struct {
	chain   ChainReader
	markets Markets
	log     zerolog.Logger
}

// NewReader builds a market reader.
func NewReader(chainReader ChainReader, markets Markets, log zerolog.Logger) *Reader {
	return &Reader{
		chain:   chainReader,
		markets: markets,
		log:     log.With().Str("component", "lending").Logger(),
	}
}

// MarketData fetches all per-token fields concurrently.
func (r *Reader) MarketData(ctx context.Context) *models.LendingMarket {
	market := models.NewLendingMarket()
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, token := range r.markets.ETokens {
		wg.Add(1)
		go func(token Token) {
			defer wg.Done()
			rate := r.readField(ctx, token.Symbol, "interest rate", func() (*big.Int, error) {
				return r.chain.ETokenInterestRate(ctx, token.Address)
			})
			borrows := r.readField(ctx, token.Symbol, "total borrows", func() (*big.Int, error) {
				return r.chain.ETokenTotalBorrows(ctx, token.Address)
			})
			supply := r.readField(ctx, token.Symbol, "total supply", func() (*big.Int, error) {
				return r.chain.ETokenTotalSupply(ctx, token.Address)
			})
			balance := r.readField(ctx, token.Symbol, "balance", func() (*big.Int, error) {
				return r.chain.TokenBalance(ctx, token.Address)
			})

			mu.Lock()
			market.InterestRates[token.Symbol] = chain.FormatUnits(rate, rateDecimals)
			market.Liquidity[token.Symbol] = models.TokenLiquidity{
				TotalBorrows: chain.FormatUnits(borrows, token.Decimals),
				TotalSupply:  chain.FormatUnits(supply, token.Decimals),
			}
			market.Balances[token.Symbol] = chain.FormatUnits(balance, token.Decimals)
			mu.Unlock()
		}(token)
	}

	for _, token := range r.markets.PTokens {
		wg.Add(1)
		go func(token Token) {
			defer wg.Done()
			collateral := r.readField(ctx, token.Symbol, "collateral balance", func() (*big.Int, error) {
				return r.chain.PTokenUnderlyingBalance(ctx, token.Address)
			})
			balance := r.readField(ctx, "p"+token.Symbol, "balance", func() (*big.Int, error) {
				return r.chain.TokenBalance(ctx, token.Address)
			})

			mu.Lock()
			market.CollateralRatios[token.Symbol] = chain.FormatUnits(collateral, token.Decimals)
			market.Balances["p"+token.Symbol] = chain.FormatUnits(balance, token.Decimals)
			mu.Unlock()
		}(token)
	}

	wg.Wait()
	return market
}

// readField runs one chain read, degrading to zero on failure.
func (r *Reader) readField(ctx context.Context, symbol, field string, read func() (*big.Int, error)) *big.Int {
	value, err := read()
	if err != nil {
		r.log.Warn().Err(err).Str("token", symbol).Str("field", field).Msg("lending market read failed, using zero")
		return big.NewInt(0)
	}
	return value
}

// Metrics derives the summary handed to the forecasting sources:
// utilization = borrows/supply, available liquidity = supply-borrows.
func Metrics(market *models.LendingMarket) models.LendingMetrics {
	metrics := models.LendingMetrics{
		InterestRates:      market.InterestRates,
		Utilization:        make(map[string]string, len(market.Liquidity)),
		AvailableLiquidity: make(map[string]string, len(market.Liquidity)),
		UserBalances:       market.Balances,
		CollateralRatios:   market.CollateralRatios,
	}

	for symbol, liq := range market.Liquidity {
		borrows, errB := decimal.NewFromString(liq.TotalBorrows)
		supply, errS := decimal.NewFromString(liq.TotalSupply)
		if errB != nil || errS != nil {
			metrics.Utilization[symbol] = "0"
			metrics.AvailableLiquidity[symbol] = "0"
			continue
		}

		if supply.IsPositive() {
			metrics.Utilization[symbol] = borrows.Div(supply).Round(6).String()
		} else {
			metrics.Utilization[symbol] = "0"
		}
		metrics.AvailableLiquidity[symbol] = supply.Sub(borrows).String()
	}
	return metrics
}
