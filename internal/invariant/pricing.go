/*

Pricing helpers over the two solvers. All quantities here are in the 18-decimal
value domain; converting to and from native units (and deducting protocol fees)
is the caller's job.

*/

package invariant

import (
	"math/big"

	sdkmath "cosmossdk.io/math"
)

// MintMultiOutput prices a multi-asset deposit: the pool-token quantity is
// proportional to the invariant growth, supply*(D1-D0)/D0. The first deposit
// bootstraps the exchange rate at 1:1 with the invariant itself.
func MintMultiOutput(xp, deltas []sdkmath.Int, a, supply sdkmath.Int) (sdkmath.Int, error) {
	if len(deltas) != len(xp) {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	bxp := toBig(xp)
	d0, err := computeD(bxp, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	next := make([]*big.Int, len(bxp))
	for i, x := range bxp {
		next[i] = new(big.Int).Add(x, deltas[i].BigInt())
	}
	d1, err := computeD(next, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	if supply.IsZero() {
		return fromBig(d1)
	}
	if d1.Cmp(d0) <= 0 {
		return sdkmath.Int{}, ErrInvariantNotIncreased
	}
	// minted = supply * (d1 - d0) / d0
	minted := new(big.Int).Sub(d1, d0)
	minted.Mul(minted, supply.BigInt())
	minted.Quo(minted, d0)
	return fromBig(minted)
}

// MintOutput prices a single-asset deposit at index idx.
func MintOutput(xp []sdkmath.Int, idx int, scaledInput, a, supply sdkmath.Int) (sdkmath.Int, error) {
	if idx < 0 || idx >= len(xp) {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	deltas := make([]sdkmath.Int, len(xp))
	for i := range deltas {
		deltas[i] = sdkmath.ZeroInt()
	}
	deltas[idx] = scaledInput
	return MintMultiOutput(xp, deltas, a, supply)
}

// SwapOutput prices a swap: D is held fixed, the input balance is bumped, and
// the output balance is re-solved. The raw output carries the Curve one-unit
// rounding guard; the protocol fee is the caller's deduction.
func SwapOutput(xp []sdkmath.Int, in, out int, scaledInput, a sdkmath.Int) (sdkmath.Int, error) {
	if in == out || in < 0 || in >= len(xp) || out < 0 || out >= len(xp) {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	bxp := toBig(xp)
	d, err := computeD(bxp, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	bxp[in] = new(big.Int).Add(bxp[in], scaledInput.BigInt())
	y, err := computeY(bxp, out, d, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	raw := new(big.Int).Sub(xp[out].BigInt(), y)
	raw.Sub(raw, one) // in case there were some rounding errors
	if raw.Sign() < 0 {
		raw.SetInt64(0)
	}
	return fromBig(raw)
}

// RedeemOutput prices an exact pool-token burn against a single asset: the
// target invariant is reduced pro rata with the burn and the asset balance is
// re-solved against it.
func RedeemOutput(xp []sdkmath.Int, idx int, netBurn, supply, a sdkmath.Int) (sdkmath.Int, error) {
	if idx < 0 || idx >= len(xp) {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	if supply.IsZero() {
		return sdkmath.Int{}, ErrNoSupply
	}
	bxp := toBig(xp)
	d0, err := computeD(bxp, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	// d1 = d0 - netBurn*d0/supply
	cut := new(big.Int).Mul(netBurn.BigInt(), d0)
	cut.Quo(cut, supply.BigInt())
	d1 := new(big.Int).Sub(d0, cut)
	if d1.Sign() < 0 {
		return sdkmath.Int{}, ErrInvariantNotIncreased
	}
	y, err := computeY(bxp, idx, d1, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	raw := new(big.Int).Sub(xp[idx].BigInt(), y)
	if raw.Sign() < 0 {
		raw.SetInt64(0)
	}
	return fromBig(raw)
}

// RedeemExactBurn prices a withdrawal of exact asset quantities: the burn is
// proportional to the invariant shrinkage, plus one unit so rounding is never
// in the redeemer's favour.
func RedeemExactBurn(xp, deltas []sdkmath.Int, a, supply sdkmath.Int) (sdkmath.Int, error) {
	if len(deltas) != len(xp) {
		return sdkmath.Int{}, ErrInvalidIndex
	}
	if supply.IsZero() {
		return sdkmath.Int{}, ErrNoSupply
	}
	bxp := toBig(xp)
	d0, err := computeD(bxp, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	if d0.Sign() == 0 {
		return sdkmath.Int{}, ErrZeroReserve
	}
	next := make([]*big.Int, len(bxp))
	for i, x := range bxp {
		next[i] = new(big.Int).Sub(x, deltas[i].BigInt())
		if next[i].Sign() < 0 {
			return sdkmath.Int{}, ErrZeroReserve
		}
	}
	d1, err := computeD(next, a.BigInt())
	if err != nil {
		return sdkmath.Int{}, err
	}
	// burn = supply*(d0-d1)/d0 + 1
	burn := new(big.Int).Sub(d0, d1)
	burn.Mul(burn, supply.BigInt())
	burn.Quo(burn, d0)
	burn.Add(burn, one)
	return fromBig(burn)
}
