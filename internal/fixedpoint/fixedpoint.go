/*
This file contains the checked fixed-point arithmetic used by every pricing and
accounting path in the pool. Two scales exist and must never be mixed without
an explicit conversion:

  - FullScale (1e18): the value domain. Vault contributions, invariant inputs,
    pool-token quantities and fee fractions all live here.
  - RatioScale (1e8): the conversion domain between an asset's native unit and
    the value domain.

All operations truncate toward zero unless a Ceil variant is used, so rounding
never favours the caller.
*/

package fixedpoint

import (
	"errors"
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// Error definitions for zero-tolerance error handling
var (
	ErrOverflow     = errors.New("fixedpoint: result exceeds 256 bits")
	ErrDivideByZero = errors.New("fixedpoint: division by zero")
	ErrNilOperand   = errors.New("fixedpoint: operand is nil")
)

// maxBitLen mirrors the width enforced by sdkmath.Int.
const maxBitLen = 256

var (
	// FullScale is the 18-decimal scale of the value domain.
	FullScale = sdkmath.NewIntWithDecimal(1, 18)
	// RatioScale is the 8-decimal scale of the native-unit conversion domain.
	RatioScale = sdkmath.NewIntWithDecimal(1, 8)
)

// mulDiv computes x*y/denom with truncation toward zero, failing instead of
// wrapping on overflow.
func mulDiv(x, y, denom sdkmath.Int) (sdkmath.Int, error) {
	if x.IsNil() || y.IsNil() || denom.IsNil() {
		return sdkmath.Int{}, ErrNilOperand
	}
	if denom.IsZero() {
		return sdkmath.Int{}, ErrDivideByZero
	}
	product := new(big.Int).Mul(x.BigInt(), y.BigInt())
	quotient := product.Quo(product, denom.BigInt())
	if quotient.BitLen() > maxBitLen {
		return sdkmath.Int{}, ErrOverflow
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// mulDivCeil computes ceil(x*y/denom) for non-negative operands.
func mulDivCeil(x, y, denom sdkmath.Int) (sdkmath.Int, error) {
	if x.IsNil() || y.IsNil() || denom.IsNil() {
		return sdkmath.Int{}, ErrNilOperand
	}
	if denom.IsZero() {
		return sdkmath.Int{}, ErrDivideByZero
	}
	product := new(big.Int).Mul(x.BigInt(), y.BigInt())
	quotient, remainder := new(big.Int).QuoRem(product, denom.BigInt(), new(big.Int))
	if remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	if quotient.BitLen() > maxBitLen {
		return sdkmath.Int{}, ErrOverflow
	}
	return sdkmath.NewIntFromBigInt(quotient), nil
}

// MulTruncate returns x*y/FullScale, truncated.
func MulTruncate(x, y sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(x, y, FullScale)
}

// MulTruncateCeil returns x*y/FullScale, rounded up.
func MulTruncateCeil(x, y sdkmath.Int) (sdkmath.Int, error) {
	return mulDivCeil(x, y, FullScale)
}

// DivPrecisely returns x*FullScale/y, truncated.
func DivPrecisely(x, y sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(x, FullScale, y)
}

// MulRatioTruncate converts a native-unit quantity into the value domain:
// x*ratio/RatioScale, truncated.
func MulRatioTruncate(x, ratio sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(x, ratio, RatioScale)
}

// MulRatioTruncateCeil is MulRatioTruncate rounded up.
func MulRatioTruncateCeil(x, ratio sdkmath.Int) (sdkmath.Int, error) {
	return mulDivCeil(x, ratio, RatioScale)
}

// DivRatioPrecisely converts a value-domain quantity back into native units:
// x*RatioScale/ratio, truncated.
func DivRatioPrecisely(x, ratio sdkmath.Int) (sdkmath.Int, error) {
	return mulDiv(x, RatioScale, ratio)
}

// RatioForDecimals derives the ratio of an asset with the given number of
// native decimals: 10^(8+18-decimals), i.e. 1e8 for an 18-decimal asset and
// 1e20 for a 6-decimal asset.
func RatioForDecimals(decimals int) (sdkmath.Int, error) {
	if decimals < 0 || decimals > 18 {
		return sdkmath.Int{}, errors.New("fixedpoint: decimals must be between 0 and 18")
	}
	return sdkmath.NewIntWithDecimal(1, 8+18-decimals), nil
}
