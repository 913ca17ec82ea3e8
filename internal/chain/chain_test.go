package chain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func common0() common.Address {
	return common.HexToAddress("0x0000000000000000000000000000000000000001")
}

func TestFormatUnits(t *testing.T) {
	assert.Equal(t, "1.5", FormatUnits(big.NewInt(1500000), 6))
	assert.Equal(t, "0.0001", FormatUnits(big.NewInt(10000), 8))
	assert.Equal(t, "0", FormatUnits(big.NewInt(0), 18))
	assert.Equal(t, "0", FormatUnits(nil, 18))

	wei, ok := new(big.Int).SetString("1000000000000000000", 10)
	require.True(t, ok)
	assert.Equal(t, "1", FormatUnits(wei, 18))
}

func TestParseUnits(t *testing.T) {
	v, err := ParseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1500000), v)

	v, err = ParseUnits("0.0001", 8)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10000), v)

	// Excess precision truncates instead of failing.
	v, err = ParseUnits("0.1234567", 6)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(123456), v)

	_, err = ParseUnits("not-a-number", 6)
	assert.Error(t, err)

	_, err = ParseUnits("-3", 6)
	assert.Error(t, err)
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"0.05", "123.456", "1", "0"} {
		v, err := ParseUnits(s, 18)
		require.NoError(t, err)
		assert.Equal(t, s, FormatUnits(v, 18))
	}
}

func TestNewWalletDerivesAddress(t *testing.T) {
	// Well-known test vector key.
	w, err := NewWallet("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.Equal(t, "0x2c7536E3605D9C16a7a3D7b1898e529396a65c23", w.Address().Hex())

	// Same key without the prefix parses identically.
	w2, err := NewWallet("4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318")
	require.NoError(t, err)
	assert.Equal(t, w.Address(), w2.Address())

	_, err = NewWallet("zz")
	assert.Error(t, err)
}

func TestEmbeddedABIsParse(t *testing.T) {
	loadABIs()

	_, err := erc20ABI.Pack("balanceOf", common0())
	assert.NoError(t, err)
	_, err = eTokenABI.Pack("borrowFor", common0(), common0(), big.NewInt(1))
	assert.NoError(t, err)
	_, err = universalBalABI.Pack("depositFor", big.NewInt(1), true, common0())
	assert.NoError(t, err)
	_, err = pTokenABI.Pack("balanceOfUnderlying", common0())
	assert.NoError(t, err)
}
