package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/types"
)

// Redeem burns qty pool tokens for a single asset. minOut is the caller's
// slippage bound in the output asset's native units.
func (p *Pool) Redeem(caller, outputAddr string, qty, minOut sdkmath.Int, recipient string) (types.RedeemResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("redeem")

	if err := p.checkHealthy(); err != nil {
		return types.RedeemResult{}, err
	}
	if qty.IsNil() || !qty.IsPositive() {
		return types.RedeemResult{}, ErrZeroQuantity
	}
	b, err := p.ledger.Basset(outputAddr)
	if err != nil {
		return types.RedeemResult{}, err
	}
	if err := requireNormal(b); err != nil {
		return types.RedeemResult{}, err
	}
	idx, _ := p.ledger.Index(outputAddr)

	st, err := p.pricingState()
	if err != nil {
		return types.RedeemResult{}, err
	}
	outNative, fee, err := p.priceRedeem(st, idx, qty, b)
	if err != nil {
		return types.RedeemResult{}, err
	}
	if !minOut.IsNil() && outNative.LT(minOut) {
		return types.RedeemResult{}, ErrRedeemOutputBelowMinimum
	}

	// Burning first both validates the caller's holding and finalises the
	// supply change before any outbound transfer.
	if err := p.poolToken.Burn(caller, qty); err != nil {
		return types.RedeemResult{}, fmt.Errorf("pool: burning pool tokens: %w", err)
	}
	if err := p.settleWithdraw(b, recipient, outNative); err != nil {
		p.remint(log, caller, qty)
		return types.RedeemResult{}, err
	}
	if err := p.ledger.DecreaseVaultBalance(outputAddr, outNative); err != nil {
		return types.RedeemResult{}, err
	}
	p.fees.Accrue(fee)

	log.Info().
		Str("asset", outputAddr).
		Str("burned", qty.String()).
		Str("sent", outNative.String()).
		Msg("Redeem settled")

	return types.RedeemResult{
		OpID:      opID,
		Recipient: recipient,
		Outputs:   []string{outputAddr},
		Quantity:  []sdkmath.Int{outNative},
		Burned:    qty,
		ScaledFee: fee,
	}, nil
}

// RedeemProportionally burns qty pool tokens for a pro-rata share of every
// basket asset. minOuts are per-asset native-unit slippage bounds in basket
// order.
func (p *Pool) RedeemProportionally(caller string, qty sdkmath.Int, minOuts []sdkmath.Int, recipient string) (types.RedeemResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("redeem_proportional")

	if err := p.checkHealthy(); err != nil {
		return types.RedeemResult{}, err
	}
	if qty.IsNil() || !qty.IsPositive() {
		return types.RedeemResult{}, ErrZeroQuantity
	}
	bassets := p.ledger.Bassets()
	if len(minOuts) != 0 && len(minOuts) != len(bassets) {
		return types.RedeemResult{}, ErrInputArrayMismatch
	}
	for _, b := range bassets {
		if err := requireNormal(b); err != nil {
			return types.RedeemResult{}, err
		}
	}

	st, err := p.pricingState()
	if err != nil {
		return types.RedeemResult{}, err
	}
	outs, fee, err := p.priceRedeemProportional(st, qty, bassets)
	if err != nil {
		return types.RedeemResult{}, err
	}
	for i := range outs {
		if len(minOuts) != 0 && !minOuts[i].IsNil() && outs[i].LT(minOuts[i]) {
			return types.RedeemResult{}, ErrRedeemOutputBelowMinimum
		}
	}

	if err := p.poolToken.Burn(caller, qty); err != nil {
		return types.RedeemResult{}, fmt.Errorf("pool: burning pool tokens: %w", err)
	}
	outputs := make([]string, len(bassets))
	for i, b := range bassets {
		outputs[i] = b.Personal.Address
	}
	if err := p.settleWithdrawMulti(log, bassets, recipient, outs); err != nil {
		p.remint(log, caller, qty)
		return types.RedeemResult{}, err
	}
	for i, b := range bassets {
		if !outs[i].IsPositive() {
			continue
		}
		if err := p.ledger.DecreaseVaultBalance(b.Personal.Address, outs[i]); err != nil {
			return types.RedeemResult{}, err
		}
	}
	p.fees.Accrue(fee)

	log.Info().
		Str("burned", qty.String()).
		Int("assets", len(bassets)).
		Msg("Proportional redeem settled")

	return types.RedeemResult{
		OpID:      opID,
		Recipient: recipient,
		Outputs:   outputs,
		Quantity:  outs,
		Burned:    qty,
		ScaledFee: fee,
	}, nil
}

// RedeemExactBassets burns whatever pool-token quantity is needed to withdraw
// the exact native quantities requested. maxBurn bounds the burn.
func (p *Pool) RedeemExactBassets(caller string, outputs []string, qtys []sdkmath.Int, maxBurn sdkmath.Int, recipient string) (types.RedeemResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("redeem_exact")

	if err := p.checkHealthy(); err != nil {
		return types.RedeemResult{}, err
	}
	if len(outputs) == 0 || len(outputs) != len(qtys) {
		return types.RedeemResult{}, ErrInputArrayMismatch
	}
	seen := make(map[string]struct{}, len(outputs))
	bassets := make([]types.Basset, len(outputs))
	indices := make([]int, len(outputs))
	for i, addr := range outputs {
		if _, dup := seen[addr]; dup {
			return types.RedeemResult{}, fmt.Errorf("%w: %s", basket.ErrDuplicateAsset, addr)
		}
		seen[addr] = struct{}{}
		if qtys[i].IsNil() || !qtys[i].IsPositive() {
			return types.RedeemResult{}, ErrZeroQuantity
		}
		b, err := p.ledger.Basset(addr)
		if err != nil {
			return types.RedeemResult{}, err
		}
		if err := requireNormal(b); err != nil {
			return types.RedeemResult{}, err
		}
		bassets[i] = b
		indices[i], _ = p.ledger.Index(addr)
	}

	st, err := p.pricingState()
	if err != nil {
		return types.RedeemResult{}, err
	}
	deltas := make([]sdkmath.Int, len(st.xp))
	for i := range deltas {
		deltas[i] = sdkmath.ZeroInt()
	}
	for i, b := range bassets {
		// Ceil so the burn always covers the exact native outputs.
		scaled, err := fixedpointMulRatioCeil(qtys[i], b)
		if err != nil {
			return types.RedeemResult{}, err
		}
		deltas[indices[i]] = deltas[indices[i]].Add(scaled)
	}
	totalBurn, fee, err := p.priceRedeemExact(st, deltas)
	if err != nil {
		return types.RedeemResult{}, err
	}
	if !maxBurn.IsNil() && totalBurn.GT(maxBurn) {
		return types.RedeemResult{}, ErrRedeemBurnAboveMaximum
	}

	if err := p.poolToken.Burn(caller, totalBurn); err != nil {
		return types.RedeemResult{}, fmt.Errorf("pool: burning pool tokens: %w", err)
	}
	if err := p.settleWithdrawMulti(log, bassets, recipient, qtys); err != nil {
		p.remint(log, caller, totalBurn)
		return types.RedeemResult{}, err
	}
	for i, b := range bassets {
		if err := p.ledger.DecreaseVaultBalance(b.Personal.Address, qtys[i]); err != nil {
			return types.RedeemResult{}, err
		}
	}
	p.fees.Accrue(fee)

	log.Info().
		Str("burned", totalBurn.String()).
		Int("assets", len(outputs)).
		Msg("Exact redeem settled")

	return types.RedeemResult{
		OpID:      opID,
		Recipient: recipient,
		Outputs:   outputs,
		Quantity:  qtys,
		Burned:    totalBurn,
		ScaledFee: fee,
	}, nil
}
