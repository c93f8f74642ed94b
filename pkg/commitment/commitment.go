// Package commitment computes the digest a user commits on chain before
// revealing the swap parameters. The digest is keccak256(abi.encode(tokenIn,
// tokenOut, amountIn, nonce)) and must match what the aggregator recomputes.
package commitment

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"

	"github.com/unikron/shieldswap/pkg/errs"
)

var commitArgs abi.Arguments

func init() {
	addressTy, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uintTy, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	commitArgs = abi.Arguments{
		{Name: "tokenIn", Type: addressTy},
		{Name: "tokenOut", Type: addressTy},
		{Name: "amountIn", Type: uintTy},
		{Name: "nonce", Type: uintTy},
	}
}

// ComputeCommitment returns keccak256(abi.encode(tokenIn, tokenOut, amountIn, nonce))
func ComputeCommitment(tokenIn, tokenOut string, amountIn, nonce *big.Int) (common.Hash, error) {
	in, err := parseAddress("tokenIn", tokenIn)
	if err != nil {
		return common.Hash{}, err
	}
	out, err := parseAddress("tokenOut", tokenOut)
	if err != nil {
		return common.Hash{}, err
	}
	if err := checkUint256("amountIn", amountIn); err != nil {
		return common.Hash{}, err
	}
	if err := checkUint256("nonce", nonce); err != nil {
		return common.Hash{}, err
	}

	packed, err := commitArgs.Pack(in, out, amountIn, nonce)
	if err != nil {
		return common.Hash{}, &errs.EncodingError{Field: "commitment", Reason: err.Error()}
	}
	return crypto.Keccak256Hash(packed), nil
}

// Verify recomputes the commitment and compares it with digest
func Verify(digest common.Hash, tokenIn, tokenOut string, amountIn, nonce *big.Int) (bool, error) {
	computed, err := ComputeCommitment(tokenIn, tokenOut, amountIn, nonce)
	if err != nil {
		return false, err
	}
	return computed == digest, nil
}

// NewNonce draws a uniformly random 256-bit nonce
func NewNonce() (*big.Int, error) {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return new(big.Int).SetBytes(buf[:]), nil
}

// ParseHash decodes a 0x-prefixed 32-byte digest
func ParseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil || len(b) != common.HashLength {
		return common.Hash{}, &errs.EncodingError{Field: "commitment", Reason: fmt.Sprintf("%q is not a 32-byte hex digest", s)}
	}
	return common.BytesToHash(b), nil
}

func parseAddress(field, s string) (common.Address, error) {
	if !common.IsHexAddress(s) || len(s) != 2+2*common.AddressLength {
		return common.Address{}, &errs.EncodingError{Field: field, Reason: fmt.Sprintf("%q is not a 0x-prefixed 20-byte address", s)}
	}
	return common.HexToAddress(s), nil
}

func checkUint256(field string, v *big.Int) error {
	if v == nil {
		return &errs.EncodingError{Field: field, Reason: "value is missing"}
	}
	if v.Sign() < 0 {
		return &errs.EncodingError{Field: field, Reason: "value is negative"}
	}
	if _, overflow := uint256.FromBig(v); overflow {
		return &errs.EncodingError{Field: field, Reason: "value does not fit in 256 bits"}
	}
	return nil
}
