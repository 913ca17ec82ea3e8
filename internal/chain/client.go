// Package chain wraps the JSON-RPC node connection: contract reads,
// transaction submission with serialized nonces, and unit conversions.
package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"

	apperrors "monad-trader/internal/errors"
)

// Client is the on-chain read/write surface shared by the trading and
// lending executors. Transaction submission is serialized so concurrent
// actions never race on the account nonce.
type Client struct {
	eth     *ethclient.Client
	wallet  *Wallet
	chainID *big.Int
	log     zerolog.Logger

	nonceMu sync.Mutex
}

// Dial connects to the node and binds the wallet.
func Dial(ctx context.Context, rpcURL string, chainID int64, wallet *Wallet, log zerolog.Logger) (*Client, error) {
	loadABIs()
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, apperrors.NewChainError("dial", "", err)
	}
	return &Client{
		eth:     eth,
		wallet:  wallet,
		chainID: big.NewInt(chainID),
		log:     log.With().Str("component", "chain").Logger(),
	}, nil
}

// Close releases the underlying RPC connection.
func (c *Client) Close() {
	c.eth.Close()
}

// Account returns the wallet address transactions are sent from.
func (c *Client) Account() common.Address {
	return c.wallet.Address()
}

// ChainID returns the configured chain id.
func (c *Client) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// call performs a read-only contract call and unpacks the outputs.
func (c *Client) call(ctx context.Context, contract common.Address, contractABI abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	raw, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return contractABI.Unpack(method, raw)
}

// TokenBalance reads the wallet's ERC-20 balance in base units.
func (c *Client) TokenBalance(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "balanceOf", c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("balanceOf", token.Hex(), err)
	}
	return asBigInt(out)
}

// TokenDecimals reads the token's decimal precision.
func (c *Client) TokenDecimals(ctx context.Context, token common.Address) (int, error) {
	out, err := c.call(ctx, token, erc20ABI, "decimals")
	if err != nil {
		return 0, apperrors.NewChainError("decimals", token.Hex(), err)
	}
	if len(out) == 0 {
		return 0, apperrors.NewChainError("decimals", token.Hex(), fmt.Errorf("empty result"))
	}
	if d, ok := out[0].(uint8); ok {
		return int(d), nil
	}
	return 0, apperrors.NewChainError("decimals", token.Hex(), fmt.Errorf("unexpected type %T", out[0]))
}

// Allowance reads the ERC-20 allowance granted by the wallet to spender.
func (c *Client) Allowance(ctx context.Context, token, spender common.Address) (*big.Int, error) {
	out, err := c.call(ctx, token, erc20ABI, "allowance", c.wallet.Address(), spender)
	if err != nil {
		return nil, apperrors.NewChainError("allowance", token.Hex(), err)
	}
	return asBigInt(out)
}

// Approve grants the spender an ERC-20 allowance and waits for the
// transaction to mine.
func (c *Client) Approve(ctx context.Context, token, spender common.Address, amount *big.Int) (*types.Receipt, error) {
	data, err := erc20ABI.Pack("approve", spender, amount)
	if err != nil {
		return nil, apperrors.NewChainError("approve", token.Hex(), err)
	}
	return c.Submit(ctx, TxRequest{To: token, Data: data})
}

// SignTypedData hashes and signs an EIP-712 payload.
func (c *Client) SignTypedData(typedData apitypes.TypedData) ([]byte, error) {
	digest, _, err := apitypes.TypedDataAndHash(typedData)
	if err != nil {
		return nil, apperrors.NewChainError("typed-data-hash", "", err)
	}
	return c.wallet.Sign(digest)
}

// TxRequest describes one transaction to submit. Zero gas fields are
// filled from node estimates.
type TxRequest struct {
	To       common.Address
	Data     []byte
	Value    *big.Int
	Gas      uint64
	GasPrice *big.Int
}

// Submit signs, sends, and waits for one transaction. The nonce mutex
// holds through send so concurrent submitters observe distinct nonces.
func (c *Client) Submit(ctx context.Context, req TxRequest) (*types.Receipt, error) {
	if req.Value == nil {
		req.Value = big.NewInt(0)
	}

	c.nonceMu.Lock()
	tx, err := c.sendLocked(ctx, req)
	c.nonceMu.Unlock()
	if err != nil {
		return nil, err
	}

	c.log.Info().Str("tx", tx.Hash().Hex()).Str("to", req.To.Hex()).Msg("transaction sent")

	receipt, err := bind.WaitMined(ctx, c.eth, tx)
	if err != nil {
		return nil, apperrors.NewChainError("wait-receipt", req.To.Hex(), err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, apperrors.NewChainError("execution-reverted", req.To.Hex(), fmt.Errorf("tx %s reverted", tx.Hash().Hex()))
	}
	return receipt, nil
}

func (c *Client) sendLocked(ctx context.Context, req TxRequest) (*types.Transaction, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.wallet.Address())
	if err != nil {
		return nil, apperrors.NewChainError("nonce", "", err)
	}

	gasPrice := req.GasPrice
	if gasPrice == nil {
		gasPrice, err = c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, apperrors.NewChainError("gas-price", "", err)
		}
	}

	gas := req.Gas
	if gas == 0 {
		gas, err = c.eth.EstimateGas(ctx, ethereum.CallMsg{
			From:     c.wallet.Address(),
			To:       &req.To,
			Data:     req.Data,
			Value:    req.Value,
			GasPrice: gasPrice,
		})
		if err != nil {
			return nil, apperrors.NewChainError("estimate-gas", req.To.Hex(), err)
		}
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &req.To,
		Value:    req.Value,
		Gas:      gas,
		GasPrice: gasPrice,
		Data:     req.Data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.wallet.key)
	if err != nil {
		return nil, apperrors.NewChainError("sign", "", err)
	}
	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return nil, apperrors.NewChainError("send", req.To.Hex(), err)
	}
	return signed, nil
}

func asBigInt(out []interface{}) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("empty call result")
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected type %T", out[0])
	}
	return v, nil
}
