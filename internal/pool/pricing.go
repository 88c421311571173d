/*

Shared pricing routines. Views and mutating operations both go through these
against an immutable pricingState, so a view called immediately before its
mutating counterpart returns the same numeric result.

Fee conventions: swap fees are taken in the output asset's value domain;
redemption fees are taken in the pool-token domain before the invariant solve.
Both accrue to the fee controller as pool-token claims.

*/

package pool

import (
	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/invariant"
	"github.com/basketfi/svp/internal/types"
)

// priceMint returns the pool tokens minted for a single-asset deposit.
func (p *Pool) priceMint(st pricingState, idx int, scaledInput sdkmath.Int) (sdkmath.Int, error) {
	return invariant.MintOutput(st.xp, idx, scaledInput, st.a, st.supply)
}

// priceMintMulti returns the pool tokens minted for a multi-asset deposit.
func (p *Pool) priceMintMulti(st pricingState, deltas []sdkmath.Int) (sdkmath.Int, error) {
	return invariant.MintMultiOutput(st.xp, deltas, st.a, st.supply)
}

// priceSwap returns the native output quantity and the scaled fee for a swap.
func (p *Pool) priceSwap(st pricingState, in, out int, scaledInput sdkmath.Int, outAsset types.Basset) (outNative, feeScaled sdkmath.Int, err error) {
	rawScaled, err := invariant.SwapOutput(st.xp, in, out, scaledInput, st.a)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	netScaled, feeScaled := p.fees.ApplySwapFee(rawScaled)
	outNative, err = scaleToNative(netScaled, outAsset)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return outNative, feeScaled, nil
}

// priceRedeem returns the native output for burning qty pool tokens into a
// single asset, plus the pool-token fee retained.
func (p *Pool) priceRedeem(st pricingState, idx int, qty sdkmath.Int, b types.Basset) (outNative, fee sdkmath.Int, err error) {
	fee = p.fees.Config().RedemptionFee.MulInt(qty).TruncateInt()
	netBurn := qty.Sub(fee)
	rawScaled, err := invariant.RedeemOutput(st.xp, idx, netBurn, st.supply, st.a)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	outNative, err = scaleToNative(rawScaled, b)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return outNative, fee, nil
}

// priceRedeemProportional returns the per-asset native outputs for a
// proportional redemption of qty pool tokens.
func (p *Pool) priceRedeemProportional(st pricingState, qty sdkmath.Int, bassets []types.Basset) (outs []sdkmath.Int, fee sdkmath.Int, err error) {
	if st.supply.IsZero() {
		return nil, sdkmath.Int{}, invariant.ErrNoSupply
	}
	fee = p.fees.Config().RedemptionFee.MulInt(qty).TruncateInt()
	netBurn := qty.Sub(fee)
	outs = make([]sdkmath.Int, len(bassets))
	for i, b := range bassets {
		outs[i] = b.Data.VaultBalance.Mul(netBurn).Quo(st.supply)
	}
	return outs, fee, nil
}

// priceRedeemExact returns the total pool-token burn required to withdraw the
// given exact scaled quantities, fee included.
func (p *Pool) priceRedeemExact(st pricingState, deltas []sdkmath.Int) (totalBurn, fee sdkmath.Int, err error) {
	netBurn, err := invariant.RedeemExactBurn(st.xp, deltas, st.a, st.supply)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	redemptionFee := p.fees.Config().RedemptionFee
	if redemptionFee.IsZero() {
		return netBurn, sdkmath.ZeroInt(), nil
	}
	// Gross up so that totalBurn - fee == netBurn with fee = rate*totalBurn.
	denom := sdkmath.LegacyOneDec().Sub(redemptionFee)
	totalBurn = sdkmath.LegacyNewDecFromInt(netBurn).Quo(denom).Ceil().TruncateInt()
	return totalBurn, totalBurn.Sub(netBurn), nil
}
