package quote

import (
	"math/big"
	"strings"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"

	"github.com/unikron/shieldswap/pkg/errs"
)

// maxUint256Digits is the number of decimal digits of 2^256-1
const maxUint256Digits = 78

// ToBaseUnits converts a human decimal amount to integer base units.
// The result must fit in a uint256.
func ToBaseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "not a number"}
	}
	if d.IsNegative() {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "must not be negative"}
	}

	shifted := d.Shift(int32(decimals))
	if shifted.IsZero() {
		return new(big.Int), nil
	}
	// bounds are checked on digits and exponent before anything is expanded
	if shifted.NumDigits()+int(shifted.Exponent()) > maxUint256Digits {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "exceeds the uint256 range"}
	}
	if shifted.Exponent() < -MaxDecimalPlaces || !shifted.Equal(shifted.Truncate(0)) {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "more decimal places than the token supports"}
	}

	base := shifted.BigInt()
	if _, overflow := uint256.FromBig(base); overflow {
		return nil, &errs.InvalidAmountError{Field: "amount", Value: amount, Reason: "exceeds the uint256 range"}
	}
	return base, nil
}

// FromBaseUnits formats integer base units as a human decimal amount
func FromBaseUnits(base *big.Int, decimals uint8) string {
	if base == nil {
		return "0"
	}
	return decimal.NewFromBigInt(base, -int32(decimals)).String()
}

// decimalPlaces counts the digits after the point as written
func decimalPlaces(amount string) int {
	amount = strings.TrimSpace(amount)
	if strings.ContainsAny(amount, "eE") {
		d, err := decimal.NewFromString(amount)
		if err != nil || d.Exponent() >= 0 {
			return 0
		}
		return int(-d.Exponent())
	}
	idx := strings.IndexByte(amount, '.')
	if idx < 0 {
		return 0
	}
	return len(amount) - idx - 1
}
