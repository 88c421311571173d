package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/types"
)

// Mint deposits qty native units of inputAddr and mints pool tokens to
// recipient. minOut is the caller's slippage bound on the minted quantity.
func (p *Pool) Mint(caller, inputAddr string, qty, minOut sdkmath.Int, recipient string) (types.MintResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("mint")

	if err := p.checkHealthy(); err != nil {
		return types.MintResult{}, err
	}
	if qty.IsNil() || !qty.IsPositive() {
		return types.MintResult{}, ErrZeroQuantity
	}
	b, err := p.ledger.Basset(inputAddr)
	if err != nil {
		return types.MintResult{}, err
	}
	if err := requireNormal(b); err != nil {
		return types.MintResult{}, err
	}
	idx, _ := p.ledger.Index(inputAddr)

	st, err := p.pricingState()
	if err != nil {
		return types.MintResult{}, err
	}

	// Transfer-fee assets are priced on the observed amount, so the inbound
	// transfer happens before pricing; any later failure refunds it.
	received, err := p.transferIn(caller, b, qty)
	if err != nil {
		return types.MintResult{}, err
	}
	scaledInput, err := scaleFromNative(received, b)
	if err != nil {
		p.refund(log, caller, b, received)
		return types.MintResult{}, err
	}
	if err := p.checkWeight(st, idx, scaledInput); err != nil {
		p.refund(log, caller, b, received)
		return types.MintResult{}, err
	}
	minted, err := p.priceMint(st, idx, scaledInput)
	if err != nil {
		p.refund(log, caller, b, received)
		return types.MintResult{}, err
	}
	// A deposit can truncate to zero minted tokens when the supply trails the
	// invariant; abort before settlement so the inflow is returned.
	if !minted.IsPositive() {
		p.refund(log, caller, b, received)
		return types.MintResult{}, ErrZeroMintOutput
	}
	if !minOut.IsNil() && minted.LT(minOut) {
		p.refund(log, caller, b, received)
		return types.MintResult{}, ErrMintOutputBelowMinimum
	}

	credited, err := p.settleDeposit(b, received)
	if err != nil {
		p.refund(log, caller, b, received)
		return types.MintResult{}, err
	}
	if err := p.ledger.IncreaseVaultBalance(inputAddr, credited); err != nil {
		return types.MintResult{}, err
	}
	if err := p.poolToken.Mint(recipient, minted); err != nil {
		return types.MintResult{}, fmt.Errorf("pool: minting pool tokens: %w", err)
	}

	log.Info().
		Str("asset", inputAddr).
		Str("received", received.String()).
		Str("minted", minted.String()).
		Msg("Mint settled")

	return types.MintResult{
		OpID:      opID,
		Recipient: recipient,
		Inputs:    []string{inputAddr},
		Quantity:  []sdkmath.Int{received},
		Minted:    minted,
	}, nil
}

// MintMulti deposits several assets in one operation; contributions are
// priced jointly against the invariant.
func (p *Pool) MintMulti(caller string, inputs []string, qtys []sdkmath.Int, minOut sdkmath.Int, recipient string) (types.MintResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	opID, log := p.opLogger("mint_multi")

	if err := p.checkHealthy(); err != nil {
		return types.MintResult{}, err
	}
	if len(inputs) == 0 || len(inputs) != len(qtys) {
		return types.MintResult{}, ErrInputArrayMismatch
	}
	seen := make(map[string]struct{}, len(inputs))
	bassets := make([]types.Basset, len(inputs))
	indices := make([]int, len(inputs))
	for i, addr := range inputs {
		if _, dup := seen[addr]; dup {
			return types.MintResult{}, fmt.Errorf("%w: %s", basket.ErrDuplicateAsset, addr)
		}
		seen[addr] = struct{}{}
		if qtys[i].IsNil() || !qtys[i].IsPositive() {
			return types.MintResult{}, ErrZeroQuantity
		}
		b, err := p.ledger.Basset(addr)
		if err != nil {
			return types.MintResult{}, err
		}
		if err := requireNormal(b); err != nil {
			return types.MintResult{}, err
		}
		bassets[i] = b
		indices[i], _ = p.ledger.Index(addr)
	}

	st, err := p.pricingState()
	if err != nil {
		return types.MintResult{}, err
	}

	received := make([]sdkmath.Int, len(inputs))
	refundAll := func() {
		for i, b := range bassets {
			if !received[i].IsNil() {
				p.refund(log, caller, b, received[i])
			}
		}
	}

	deltas := make([]sdkmath.Int, len(st.xp))
	for i := range deltas {
		deltas[i] = sdkmath.ZeroInt()
	}
	for i, b := range bassets {
		got, err := p.transferIn(caller, b, qtys[i])
		if err != nil {
			refundAll()
			return types.MintResult{}, err
		}
		received[i] = got
		scaled, err := scaleFromNative(got, b)
		if err != nil {
			refundAll()
			return types.MintResult{}, err
		}
		deltas[indices[i]] = deltas[indices[i]].Add(scaled)
	}
	if err := p.checkWeightsJoint(st, deltas); err != nil {
		refundAll()
		return types.MintResult{}, err
	}

	minted, err := p.priceMintMulti(st, deltas)
	if err != nil {
		refundAll()
		return types.MintResult{}, err
	}
	if !minted.IsPositive() {
		refundAll()
		return types.MintResult{}, ErrZeroMintOutput
	}
	if !minOut.IsNil() && minted.LT(minOut) {
		refundAll()
		return types.MintResult{}, ErrMintOutputBelowMinimum
	}

	// Every platform leg must settle before any vault credit lands, so a
	// failing integration cannot leave the ledger overstating holdings.
	credited := make([]sdkmath.Int, len(bassets))
	for i, b := range bassets {
		c, err := p.settleDeposit(b, received[i])
		if err != nil {
			refundAll()
			return types.MintResult{}, err
		}
		credited[i] = c
	}
	for i, b := range bassets {
		if err := p.ledger.IncreaseVaultBalance(b.Personal.Address, credited[i]); err != nil {
			for j := 0; j < i; j++ {
				if derr := p.ledger.DecreaseVaultBalance(bassets[j].Personal.Address, credited[j]); derr != nil {
					log.Error().Err(derr).
						Str("asset", bassets[j].Personal.Address).
						Msg("Failed to revert vault credit after aborted mint")
				}
			}
			refundAll()
			return types.MintResult{}, err
		}
	}
	if err := p.poolToken.Mint(recipient, minted); err != nil {
		return types.MintResult{}, fmt.Errorf("pool: minting pool tokens: %w", err)
	}

	log.Info().
		Int("assets", len(inputs)).
		Str("minted", minted.String()).
		Msg("MintMulti settled")

	return types.MintResult{
		OpID:      opID,
		Recipient: recipient,
		Inputs:    inputs,
		Quantity:  received,
		Minted:    minted,
	}, nil
}
