package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/types"
)

// BasketView is the read-only composition summary.
type BasketView struct {
	Bassets                       []types.Basset
	Failed                        bool
	UndergoingRecollateralisation bool
}

// ConfigView is the read-only parameter summary.
type ConfigView struct {
	// A is the ramp-adjusted amplification coefficient at APrecision.
	A      sdkmath.Int
	Amp    types.AmpData
	Fees   types.FeeConfig
	Limits types.WeightLimits
}

// GetBasset returns the current record for a single basket asset.
func (p *Pool) GetBasset(addr string) (types.Basset, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Basset(addr)
}

// GetBassets returns the full basket contents in canonical order.
func (p *Pool) GetBassets() []types.Basset {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Bassets()
}

// GetBasket returns the basket composition together with its health flags.
func (p *Pool) GetBasket() BasketView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return BasketView{
		Bassets:                       p.ledger.Bassets(),
		Failed:                        p.ledger.Failed(),
		UndergoingRecollateralisation: p.ledger.UndergoingRecollateralisation(),
	}
}

// GetConfig returns the live pool parameters.
func (p *Pool) GetConfig() ConfigView {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ConfigView{
		A:      p.currentA(),
		Amp:    *p.ampData,
		Fees:   p.fees.Config(),
		Limits: p.limits,
	}
}

// GetMintOutput quotes the pool tokens a single-asset deposit would mint.
// The quote assumes the full nominal quantity arrives; transfer-fee assets
// may mint less on execution.
func (p *Pool) GetMintOutput(inputAddr string, qty sdkmath.Int) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qty.IsNil() || !qty.IsPositive() {
		return sdkmath.Int{}, ErrZeroQuantity
	}
	b, err := p.ledger.Basset(inputAddr)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := requireNormal(b); err != nil {
		return sdkmath.Int{}, err
	}
	idx, _ := p.ledger.Index(inputAddr)
	st, err := p.pricingState()
	if err != nil {
		return sdkmath.Int{}, err
	}
	scaled, err := scaleFromNative(qty, b)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := p.checkWeight(st, idx, scaled); err != nil {
		return sdkmath.Int{}, err
	}
	return p.priceMint(st, idx, scaled)
}

// GetMintMultiOutput quotes the pool tokens a multi-asset deposit would mint.
func (p *Pool) GetMintMultiOutput(inputs []string, qtys []sdkmath.Int) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(inputs) == 0 || len(inputs) != len(qtys) {
		return sdkmath.Int{}, ErrInputArrayMismatch
	}
	st, err := p.pricingState()
	if err != nil {
		return sdkmath.Int{}, err
	}
	deltas := make([]sdkmath.Int, len(st.xp))
	for i := range deltas {
		deltas[i] = sdkmath.ZeroInt()
	}
	for i, addr := range inputs {
		if qtys[i].IsNil() || !qtys[i].IsPositive() {
			return sdkmath.Int{}, ErrZeroQuantity
		}
		b, err := p.ledger.Basset(addr)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if err := requireNormal(b); err != nil {
			return sdkmath.Int{}, err
		}
		idx, _ := p.ledger.Index(addr)
		scaled, err := scaleFromNative(qtys[i], b)
		if err != nil {
			return sdkmath.Int{}, err
		}
		deltas[idx] = deltas[idx].Add(scaled)
	}
	if err := p.checkWeightsJoint(st, deltas); err != nil {
		return sdkmath.Int{}, err
	}
	return p.priceMintMulti(st, deltas)
}

// GetSwapOutput quotes the native output of swapping qty of the input asset.
func (p *Pool) GetSwapOutput(inputAddr, outputAddr string, qty sdkmath.Int) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qty.IsNil() || !qty.IsPositive() {
		return sdkmath.Int{}, ErrZeroQuantity
	}
	if inputAddr == outputAddr {
		return sdkmath.Int{}, fmt.Errorf("%w: swap input equals output", basket.ErrInvalidAsset)
	}
	in, err := p.ledger.Basset(inputAddr)
	if err != nil {
		return sdkmath.Int{}, err
	}
	out, err := p.ledger.Basset(outputAddr)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := requireNormal(in); err != nil {
		return sdkmath.Int{}, err
	}
	if err := requireNormal(out); err != nil {
		return sdkmath.Int{}, err
	}
	inIdx, _ := p.ledger.Index(inputAddr)
	outIdx, _ := p.ledger.Index(outputAddr)

	st, err := p.pricingState()
	if err != nil {
		return sdkmath.Int{}, err
	}
	scaled, err := scaleFromNative(qty, in)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := p.checkWeight(st, inIdx, scaled); err != nil {
		return sdkmath.Int{}, err
	}
	outNative, _, err := p.priceSwap(st, inIdx, outIdx, scaled, out)
	return outNative, err
}

// GetRedeemOutput quotes the native output of burning qty pool tokens for a
// single asset.
func (p *Pool) GetRedeemOutput(outputAddr string, qty sdkmath.Int) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qty.IsNil() || !qty.IsPositive() {
		return sdkmath.Int{}, ErrZeroQuantity
	}
	b, err := p.ledger.Basset(outputAddr)
	if err != nil {
		return sdkmath.Int{}, err
	}
	if err := requireNormal(b); err != nil {
		return sdkmath.Int{}, err
	}
	idx, _ := p.ledger.Index(outputAddr)
	st, err := p.pricingState()
	if err != nil {
		return sdkmath.Int{}, err
	}
	outNative, _, err := p.priceRedeem(st, idx, qty, b)
	return outNative, err
}

// GetRedeemProportionalOutput quotes the per-asset native outputs of a
// proportional redemption, in basket order.
func (p *Pool) GetRedeemProportionalOutput(qty sdkmath.Int) ([]sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if qty.IsNil() || !qty.IsPositive() {
		return nil, ErrZeroQuantity
	}
	st, err := p.pricingState()
	if err != nil {
		return nil, err
	}
	outs, _, err := p.priceRedeemProportional(st, qty, p.ledger.Bassets())
	return outs, err
}

// GetRedeemExactOutput quotes the pool-token burn required to withdraw the
// exact native quantities requested.
func (p *Pool) GetRedeemExactOutput(outputs []string, qtys []sdkmath.Int) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(outputs) == 0 || len(outputs) != len(qtys) {
		return sdkmath.Int{}, ErrInputArrayMismatch
	}
	st, err := p.pricingState()
	if err != nil {
		return sdkmath.Int{}, err
	}
	deltas := make([]sdkmath.Int, len(st.xp))
	for i := range deltas {
		deltas[i] = sdkmath.ZeroInt()
	}
	for i, addr := range outputs {
		if qtys[i].IsNil() || !qtys[i].IsPositive() {
			return sdkmath.Int{}, ErrZeroQuantity
		}
		b, err := p.ledger.Basset(addr)
		if err != nil {
			return sdkmath.Int{}, err
		}
		if err := requireNormal(b); err != nil {
			return sdkmath.Int{}, err
		}
		idx, _ := p.ledger.Index(addr)
		scaled, err := fixedpointMulRatioCeil(qtys[i], b)
		if err != nil {
			return sdkmath.Int{}, err
		}
		deltas[idx] = deltas[idx].Add(scaled)
	}
	totalBurn, _, err := p.priceRedeemExact(st, deltas)
	return totalBurn, err
}

// Snapshot captures the full pool state for persistence.
func (p *Pool) Snapshot() types.PoolSnapshot {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshotLocked()
}

func (p *Pool) snapshotLocked() types.PoolSnapshot {
	supply, err := p.poolToken.TotalSupply()
	if err != nil {
		supply = sdkmath.ZeroInt()
	}
	return types.PoolSnapshot{
		PoolName:                      p.name,
		Timestamp:                     p.now().UTC(),
		Failed:                        p.ledger.Failed(),
		UndergoingRecollateralisation: p.ledger.UndergoingRecollateralisation(),
		Bassets:                       p.ledger.Bassets(),
		Amp:                           *p.ampData,
		Fees:                          p.fees.Config(),
		Limits:                        p.limits,
		Surplus:                       p.fees.Surplus(),
		GovSurplus:                    p.fees.GovSurplus(),
		TotalSupply:                   supply,
	}
}
