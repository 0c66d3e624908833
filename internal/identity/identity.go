// Package identity generates wallet identities and signs login messages the
// same way an Ethereum browser wallet does (EIP-191 personal_sign).
package identity

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Identity is one generated account: an address and its private key.
type Identity struct {
	key     *ecdsa.PrivateKey
	address string
}

// Generator creates fresh identities.
type Generator struct{}

// NewGenerator returns a secp256k1 identity generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Generate creates a new random identity.
func (g *Generator) Generate() (*Identity, error) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return fromKey(key), nil
}

// FromPrivateKeyHex restores an identity from a hex key, with or without 0x.
func FromPrivateKeyHex(hexKey string) (*Identity, error) {
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}
	return fromKey(key), nil
}

func fromKey(key *ecdsa.PrivateKey) *Identity {
	return &Identity{
		key:     key,
		address: ethcrypto.PubkeyToAddress(key.PublicKey).Hex(),
	}
}

// Address returns the EIP-55 checksummed address.
func (id *Identity) Address() string {
	return id.address
}

// PrivateKeyHex returns the 0x-prefixed private key.
func (id *Identity) PrivateKeyHex() string {
	return hexutil.Encode(ethcrypto.FromECDSA(id.key))
}

// SignMessage signs message with the personal_sign prefix and returns the
// 65-byte signature as hex, V in {27, 28}.
func (id *Identity) SignMessage(message string) (string, error) {
	sig, err := ethcrypto.Sign(TextHash(message), id.key)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	sig[ethcrypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig), nil
}

// TextHash is keccak256("\x19Ethereum Signed Message:\n" + len + message).
func TextHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return ethcrypto.Keccak256([]byte(prefixed))
}

// RecoverAddress returns the address that produced signature over message.
func RecoverAddress(message, signature string) (string, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return "", fmt.Errorf("decode signature: %w", err)
	}
	if len(sig) != ethcrypto.SignatureLength {
		return "", fmt.Errorf("signature length %d, want %d", len(sig), ethcrypto.SignatureLength)
	}
	if sig[ethcrypto.RecoveryIDOffset] >= 27 {
		sig[ethcrypto.RecoveryIDOffset] -= 27
	}
	pub, err := ethcrypto.SigToPub(TextHash(message), sig)
	if err != nil {
		return "", fmt.Errorf("recover public key: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub).Hex(), nil
}
