package models

import "time"

// ExecutionStatus is the state of one execution record. PENDING is the
// creation state; COMPLETED and FAILED are terminal and set exactly once.
type ExecutionStatus string

const (
	ExecPending   ExecutionStatus = "PENDING"
	ExecCompleted ExecutionStatus = "COMPLETED"
	ExecFailed    ExecutionStatus = "FAILED"
)

// TradeLog is the append-only audit record of one swap execution attempt.
// Never deleted; updated exactly once from PENDING to a terminal state.
type TradeLog struct {
	ID                string          `json:"id"`
	Timestamp         time.Time       `json:"timestamp"`
	Pair              string          `json:"pair"`
	Action            TradeAction     `json:"action"`
	TokenIn           string          `json:"tokenIn"`
	TokenOut          string          `json:"tokenOut"`
	AmountIn          string          `json:"amountIn"`
	ExpectedAmountOut string          `json:"expectedAmountOut"`
	TxHash            string          `json:"txHash"`
	Status            ExecutionStatus `json:"status"`
	Error             string          `json:"error,omitempty"`
	DecisionID        string          `json:"decisionId,omitempty"`
}

// TokenLiquidity holds the supply/borrow state of one lending market.
type TokenLiquidity struct {
	TotalBorrows string `json:"totalBorrows"`
	TotalSupply  string `json:"totalSupply"`
}

// LendingMarket is the raw per-token protocol state fetched on-chain.
// All values are decimal strings in human units; a failed individual
// read degrades that one field to "0".
type LendingMarket struct {
	InterestRates    map[string]string         `json:"interestRates"`
	CollateralRatios map[string]string         `json:"collateralRatios"`
	Liquidity        map[string]TokenLiquidity `json:"liquidity"`
	Balances         map[string]string         `json:"balances"`
}

// NewLendingMarket returns an empty market with all maps initialized.
func NewLendingMarket() *LendingMarket {
	return &LendingMarket{
		InterestRates:    make(map[string]string),
		CollateralRatios: make(map[string]string),
		Liquidity:        make(map[string]TokenLiquidity),
		Balances:         make(map[string]string),
	}
}

// LendingMetrics is the formatted protocol summary handed to the
// forecasting sources and stored with the decision for revalidation.
type LendingMetrics struct {
	InterestRates      map[string]string `json:"interestRates"`
	Utilization        map[string]string `json:"utilization"`
	AvailableLiquidity map[string]string `json:"availableLiquidity"`
	UserBalances       map[string]string `json:"userBalances"`
	CollateralRatios   map[string]string `json:"collateralRatios"`
}
