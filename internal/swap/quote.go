// Package swap integrates the 0x-style aggregator: permit2 quotes and
// the signed-calldata assembly the settlement contract expects.
package swap

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/rs/zerolog"

	apperrors "monad-trader/internal/errors"
)

// QuoteTransaction is the settlement transaction skeleton from a quote.
type QuoteTransaction struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// Permit2Payload carries the EIP-712 permit the taker must sign.
type Permit2Payload struct {
	EIP712 apitypes.TypedData `json:"eip712"`
}

// Quote is the aggregator's priced swap route.
type Quote struct {
	LiquidityAvailable bool             `json:"liquidityAvailable"`
	BuyAmount          string           `json:"buyAmount"`
	SellAmount         string           `json:"sellAmount"`
	Transaction        QuoteTransaction `json:"transaction"`
	Permit2            *Permit2Payload  `json:"permit2"`
}

// Client fetches permit2 swap quotes.
type Client struct {
	baseURL    string
	apiKey     string
	chainID    int64
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient builds a quote client for one chain.
func NewClient(baseURL, apiKey string, chainID int64, log zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		chainID:    chainID,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log.With().Str("component", "swap").Logger(),
	}
}

// GetQuote prices a sell of sellAmount base units. The caller must
// still check LiquidityAvailable before executing.
func (c *Client) GetQuote(ctx context.Context, sellToken, buyToken common.Address, sellAmount *big.Int, taker common.Address) (*Quote, error) {
	q := url.Values{}
	q.Set("chainId", strconv.FormatInt(c.chainID, 10))
	q.Set("sellToken", sellToken.Hex())
	q.Set("buyToken", buyToken.Hex())
	q.Set("sellAmount", sellAmount.String())
	q.Set("taker", taker.Hex())

	endpoint := c.baseURL + "/swap/permit2/quote?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("0x-api-key", c.apiKey)
	req.Header.Set("0x-chain-id", strconv.FormatInt(c.chainID, 10))
	req.Header.Set("0x-version", "v2")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.NewSourceError("0x", "quote", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.NewSourceError("0x", "quote", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, apperrors.NewSourceError("0x", "quote", fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var quote Quote
	if err := json.Unmarshal(body, &quote); err != nil {
		return nil, apperrors.NewParseError("0x", string(body), err)
	}

	c.log.Debug().
		Str("sellToken", sellToken.Hex()).
		Str("buyToken", buyToken.Hex()).
		Str("sellAmount", sellAmount.String()).
		Bool("liquidity", quote.LiquidityAvailable).
		Msg("quote received")
	return &quote, nil
}

// AssembleCalldata appends the permit2 signature to the settlement
// calldata: data || len(sig) as a 32-byte big-endian word || sig.
func AssembleCalldata(transactionData string, signature []byte) ([]byte, error) {
	data, err := hexutil.Decode(transactionData)
	if err != nil {
		return nil, fmt.Errorf("decode transaction data: %w", err)
	}

	sigLen := new(big.Int).SetInt64(int64(len(signature)))
	lenWord := common.LeftPadBytes(sigLen.Bytes(), 32)

	out := make([]byte, 0, len(data)+32+len(signature))
	out = append(out, data...)
	out = append(out, lenWord...)
	out = append(out, signature...)
	return out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
