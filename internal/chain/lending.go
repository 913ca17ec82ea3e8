package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	apperrors "monad-trader/internal/errors"
)

// ContractKind selects which lending-protocol ABI a delegate approval
// targets.
type ContractKind string

const (
	KindEToken           ContractKind = "eToken"
	KindPToken           ContractKind = "pToken"
	KindUniversalBalance ContractKind = "universalBalance"
)

func abiForKind(kind ContractKind) (abi.ABI, error) {
	switch kind {
	case KindEToken:
		return eTokenABI, nil
	case KindPToken:
		return pTokenABI, nil
	case KindUniversalBalance:
		return universalBalABI, nil
	}
	return abi.ABI{}, fmt.Errorf("unknown contract kind %q", kind)
}

// ETokenInterestRate reads the market's interest rate, an 18-decimal
// fixed-point value.
func (c *Client) ETokenInterestRate(ctx context.Context, eToken common.Address) (*big.Int, error) {
	out, err := c.call(ctx, eToken, eTokenABI, "interestRateModel")
	if err != nil {
		return nil, apperrors.NewChainError("interestRateModel", eToken.Hex(), err)
	}
	return asBigInt(out)
}

// ETokenTotalBorrows reads the market's outstanding borrows.
func (c *Client) ETokenTotalBorrows(ctx context.Context, eToken common.Address) (*big.Int, error) {
	out, err := c.call(ctx, eToken, eTokenABI, "totalBorrows")
	if err != nil {
		return nil, apperrors.NewChainError("totalBorrows", eToken.Hex(), err)
	}
	return asBigInt(out)
}

// ETokenTotalSupply reads the market's total supplied funds.
func (c *Client) ETokenTotalSupply(ctx context.Context, eToken common.Address) (*big.Int, error) {
	out, err := c.call(ctx, eToken, eTokenABI, "totalSupply")
	if err != nil {
		return nil, apperrors.NewChainError("totalSupply", eToken.Hex(), err)
	}
	return asBigInt(out)
}

// ETokenBorrowingPower reads how much the wallet may still borrow from
// the market.
func (c *Client) ETokenBorrowingPower(ctx context.Context, eToken common.Address) (*big.Int, error) {
	out, err := c.call(ctx, eToken, eTokenABI, "getBorrowingPower", c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("getBorrowingPower", eToken.Hex(), err)
	}
	return asBigInt(out)
}

// PTokenUnderlyingBalance reads the wallet's collateral position in
// underlying units.
func (c *Client) PTokenUnderlyingBalance(ctx context.Context, pToken common.Address) (*big.Int, error) {
	out, err := c.call(ctx, pToken, pTokenABI, "balanceOfUnderlying", c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("balanceOfUnderlying", pToken.Hex(), err)
	}
	return asBigInt(out)
}

// IsDelegateApproved checks whether the delegate may act for the wallet
// on the given contract.
func (c *Client) IsDelegateApproved(ctx context.Context, contract common.Address, kind ContractKind, delegate common.Address) (bool, error) {
	contractABI, err := abiForKind(kind)
	if err != nil {
		return false, err
	}
	out, err := c.call(ctx, contract, contractABI, "isDelegateApproved", c.wallet.Address(), delegate)
	if err != nil {
		return false, apperrors.NewChainError("isDelegateApproved", contract.Hex(), err)
	}
	if len(out) == 0 {
		return false, apperrors.NewChainError("isDelegateApproved", contract.Hex(), fmt.Errorf("empty result"))
	}
	approved, ok := out[0].(bool)
	if !ok {
		return false, apperrors.NewChainError("isDelegateApproved", contract.Hex(), fmt.Errorf("unexpected type %T", out[0]))
	}
	return approved, nil
}

// SetDelegateApproval grants or revokes delegate rights and waits for
// the transaction to mine.
func (c *Client) SetDelegateApproval(ctx context.Context, contract common.Address, kind ContractKind, delegate common.Address, approved bool) (*types.Receipt, error) {
	contractABI, err := abiForKind(kind)
	if err != nil {
		return nil, err
	}
	data, err := contractABI.Pack("setDelegateApproval", delegate, approved)
	if err != nil {
		return nil, apperrors.NewChainError("setDelegateApproval", contract.Hex(), err)
	}
	return c.Submit(ctx, TxRequest{To: contract, Data: data})
}

// DepositFor deposits funds into the universal balance for the wallet
// account, flagged as a lending deposit.
func (c *Client) DepositFor(ctx context.Context, universalBalance common.Address, amount *big.Int) (*types.Receipt, error) {
	data, err := universalBalABI.Pack("depositFor", amount, true, c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("depositFor", universalBalance.Hex(), err)
	}
	return c.Submit(ctx, TxRequest{To: universalBalance, Data: data})
}

// WithdrawFor withdraws funds from the universal balance to recipient.
func (c *Client) WithdrawFor(ctx context.Context, universalBalance common.Address, amount *big.Int, recipient common.Address) (*types.Receipt, error) {
	data, err := universalBalABI.Pack("withdrawFor", amount, false, recipient, c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("withdrawFor", universalBalance.Hex(), err)
	}
	return c.Submit(ctx, TxRequest{To: universalBalance, Data: data})
}

// BorrowFor borrows from the eToken market, sending funds to recipient.
func (c *Client) BorrowFor(ctx context.Context, eToken common.Address, recipient common.Address, amount *big.Int) (*types.Receipt, error) {
	data, err := eTokenABI.Pack("borrowFor", c.wallet.Address(), recipient, amount)
	if err != nil {
		return nil, apperrors.NewChainError("borrowFor", eToken.Hex(), err)
	}
	return c.Submit(ctx, TxRequest{To: eToken, Data: data})
}
