package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/types"
)

// Swap exchanges qty native units of inputAddr for outputAddr, sending the
// output to recipient. minOut is the caller's slippage bound in the output
// asset's native units.
func (p *Pool) Swap(caller, inputAddr, outputAddr string, qty, minOut sdkmath.Int, recipient string) (types.SwapResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("swap")

	if err := p.checkHealthy(); err != nil {
		return types.SwapResult{}, err
	}
	if qty.IsNil() || !qty.IsPositive() {
		return types.SwapResult{}, ErrZeroQuantity
	}
	if inputAddr == outputAddr {
		return types.SwapResult{}, fmt.Errorf("%w: swap input equals output", basket.ErrInvalidAsset)
	}
	in, err := p.ledger.Basset(inputAddr)
	if err != nil {
		return types.SwapResult{}, err
	}
	out, err := p.ledger.Basset(outputAddr)
	if err != nil {
		return types.SwapResult{}, err
	}
	if err := requireNormal(in); err != nil {
		return types.SwapResult{}, err
	}
	if err := requireNormal(out); err != nil {
		return types.SwapResult{}, err
	}
	inIdx, _ := p.ledger.Index(inputAddr)
	outIdx, _ := p.ledger.Index(outputAddr)

	st, err := p.pricingState()
	if err != nil {
		return types.SwapResult{}, err
	}

	received, err := p.transferIn(caller, in, qty)
	if err != nil {
		return types.SwapResult{}, err
	}
	scaledInput, err := scaleFromNative(received, in)
	if err != nil {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, err
	}
	if err := p.checkWeight(st, inIdx, scaledInput); err != nil {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, err
	}
	outNative, feeScaled, err := p.priceSwap(st, inIdx, outIdx, scaledInput, out)
	if err != nil {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, err
	}
	if !minOut.IsNil() && outNative.LT(minOut) {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, ErrSwapOutputBelowMinimum
	}

	credited, err := p.settleDeposit(in, received)
	if err != nil {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, err
	}
	if err := p.settleWithdraw(out, recipient, outNative); err != nil {
		p.refund(log, caller, in, received)
		return types.SwapResult{}, err
	}

	if err := p.ledger.IncreaseVaultBalance(inputAddr, credited); err != nil {
		return types.SwapResult{}, err
	}
	if err := p.ledger.DecreaseVaultBalance(outputAddr, outNative); err != nil {
		return types.SwapResult{}, err
	}
	p.fees.Accrue(feeScaled)

	log.Info().
		Str("input", inputAddr).
		Str("output", outputAddr).
		Str("received", received.String()).
		Str("sent", outNative.String()).
		Str("scaled_fee", feeScaled.String()).
		Msg("Swap settled")

	return types.SwapResult{
		OpID:      opID,
		Recipient: recipient,
		Input:     inputAddr,
		Output:    outputAddr,
		InputQty:  received,
		OutputQty: outNative,
		ScaledFee: feeScaled,
	}, nil
}
