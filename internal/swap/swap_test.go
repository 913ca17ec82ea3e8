package swap

import (
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetQuoteSendsAggregatorHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/permit2/quote", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("0x-api-key"))
		assert.Equal(t, "10143", r.Header.Get("0x-chain-id"))
		assert.Equal(t, "v2", r.Header.Get("0x-version"))
		assert.Equal(t, "5000000", r.URL.Query().Get("sellAmount"))

		json.NewEncoder(w).Encode(map[string]any{
			"liquidityAvailable": true,
			"buyAmount":          "12345",
			"sellAmount":         "5000000",
			"transaction": map[string]any{
				"to":    "0x1111111111111111111111111111111111111111",
				"data":  "0xdeadbeef",
				"value": "0",
			},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret", 10143, zerolog.Nop())
	quote, err := client.GetQuote(context.Background(),
		common.HexToAddress("0xaaa0000000000000000000000000000000000001"),
		common.HexToAddress("0xbbb0000000000000000000000000000000000002"),
		big.NewInt(5000000),
		common.HexToAddress("0xccc0000000000000000000000000000000000003"))
	require.NoError(t, err)

	assert.True(t, quote.LiquidityAvailable)
	assert.Equal(t, "12345", quote.BuyAmount)
	assert.Equal(t, "0xdeadbeef", quote.Transaction.Data)
}

func TestGetQuoteNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "k", 1, zerolog.Nop())
	_, err := client.GetQuote(context.Background(), common.Address{}, common.Address{}, big.NewInt(1), common.Address{})
	assert.Error(t, err)
}

func TestAssembleCalldataLayout(t *testing.T) {
	sig := make([]byte, 65)
	for i := range sig {
		sig[i] = 0xab
	}

	out, err := AssembleCalldata("0xdeadbeef", sig)
	require.NoError(t, err)

	// data(4) + length word(32) + signature(65)
	require.Len(t, out, 4+32+65)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, out[:4])

	lenWord := new(big.Int).SetBytes(out[4:36])
	assert.Equal(t, int64(65), lenWord.Int64())
	assert.Equal(t, sig, out[36:])
}

func TestAssembleCalldataRejectsBadHex(t *testing.T) {
	_, err := AssembleCalldata("nothex", []byte{1})
	assert.Error(t, err)
}
