package chain

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Wallet holds the signing key and derived address for the trading
// account.
type Wallet struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewWallet parses a hex private key, with or without the 0x prefix.
func NewWallet(hexKey string) (*Wallet, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return &Wallet{
		key:     key,
		address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Address returns the account address.
func (w *Wallet) Address() common.Address {
	return w.address
}

// Sign signs a 32-byte digest and returns the 65-byte signature with
// the recovery id adjusted to the Ethereum convention (v = 27/28).
func (w *Wallet) Sign(digest []byte) ([]byte, error) {
	sig, err := crypto.Sign(digest, w.key)
	if err != nil {
		return nil, err
	}
	sig[64] += 27
	return sig, nil
}
