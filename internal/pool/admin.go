/*

Governed operations: parameter setters, amplification ramps, peg-loss
handling, platform migration and fee/interest collection. Every entry point
is gated on the Governance collaborator.

*/

package pool

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/amp"
	"github.com/basketfi/svp/internal/fees"
	"github.com/basketfi/svp/internal/types"
)

var ErrInterestTooLarge = errors.New("pool: platform interest above sanity cap")

// interestCap bounds a single interest collection to 1% of effective supply.
var interestCap = sdkmath.LegacyMustNewDecFromStr("0.01")

// SetFees updates the swap and redemption fee rates.
func (p *Pool) SetFees(caller string, swapFee, redemptionFee sdkmath.LegacyDec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := p.fees.SetFees(swapFee, redemptionFee); err != nil {
		return err
	}
	p.log.Info().
		Str("swap_fee", swapFee.String()).
		Str("redemption_fee", redemptionFee.String()).
		Msg("Fee rates updated")
	return nil
}

// SetGovFee updates the governance cut of collected fees.
func (p *Pool) SetGovFee(caller string, govFee sdkmath.LegacyDec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := p.fees.SetGovFee(govFee); err != nil {
		return err
	}
	p.log.Info().Str("gov_fee", govFee.String()).Msg("Governance fee updated")
	return nil
}

// SetCacheSize updates the fraction of pool value held raw rather than
// deposited on platforms.
func (p *Pool) SetCacheSize(caller string, cacheSize sdkmath.LegacyDec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := p.fees.SetCacheSize(cacheSize); err != nil {
		return err
	}
	p.log.Info().Str("cache_size", cacheSize.String()).Msg("Cache size updated")
	return nil
}

// SetWeightLimits replaces the basket weight limits.
func (p *Pool) SetWeightLimits(caller string, limits types.WeightLimits) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := validateLimits(limits); err != nil {
		return err
	}
	p.limits = limits
	p.log.Info().
		Str("min", limits.Min.String()).
		Str("max", limits.Max.String()).
		Msg("Weight limits updated")
	return nil
}

// StartRampA begins a linear amplification ramp toward targetA (whole A
// units) ending at endTime.
func (p *Pool) StartRampA(caller string, targetA sdkmath.Int, endTime uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := amp.StartRamp(p.ampData, targetA, endTime, p.nowUnix()); err != nil {
		return err
	}
	p.log.Info().
		Str("target_a", targetA.String()).
		Uint64("end_time", endTime).
		Msg("Amplification ramp started")
	return nil
}

// StopRampA halts an in-progress amplification ramp at the current value.
func (p *Pool) StopRampA(caller string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if err := amp.StopRamp(p.ampData, p.nowUnix()); err != nil {
		return err
	}
	p.log.Info().
		Str("a", p.currentA().String()).
		Msg("Amplification ramp stopped")
	return nil
}

// HandlePegLoss isolates an asset that has lost its peg. The direction
// chooses the broken status; an already isolated or liquidated asset is left
// untouched.
func (p *Pool) HandlePegLoss(caller, addr string, belowPeg bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	b, err := p.ledger.Basset(addr)
	if err != nil {
		return err
	}
	if b.Personal.Status != types.StatusNormal {
		return nil
	}
	status := types.StatusBrokenAbovePeg
	if belowPeg {
		status = types.StatusBrokenBelowPeg
	}
	if err := p.ledger.SetStatus(addr, status); err != nil {
		return err
	}
	p.log.Warn().
		Str("asset", addr).
		Str("status", status.String()).
		Msg("Asset isolated after peg loss")
	return nil
}

// NegateIsolation returns an isolated asset to Normal.
func (p *Pool) NegateIsolation(caller, addr string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	b, err := p.ledger.Basset(addr)
	if err != nil {
		return err
	}
	if !b.Personal.Status.IsBroken() {
		return nil
	}
	if err := p.ledger.SetStatus(addr, types.StatusNormal); err != nil {
		return err
	}
	p.log.Info().Str("asset", addr).Msg("Asset isolation lifted")
	return nil
}

// MigrateBassets moves the platform holdings of the given assets to a new
// integrator. All funds are pulled back raw from the old platform, pushed to
// the new one, and the new platform's reported balance must account for the
// full amount.
func (p *Pool) MigrateBassets(caller string, addrs []string, newIntegrator string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, log := p.opLogger("migrate_bassets")
	if err := p.onlyGovernor(caller); err != nil {
		return err
	}
	if len(addrs) == 0 {
		return ErrInputArrayMismatch
	}
	for _, addr := range addrs {
		b, err := p.ledger.Basset(addr)
		if err != nil {
			return err
		}
		if err := p.migrateOne(b, newIntegrator); err != nil {
			return err
		}
		if err := p.ledger.SetIntegrator(addr, newIntegrator); err != nil {
			return err
		}
	}
	log.Info().
		Strs("assets", addrs).
		Str("integrator", newIntegrator).
		Msg("Platform migration complete")
	return nil
}

func (p *Pool) migrateOne(b types.Basset, newIntegrator string) error {
	// Pull everything back from the old platform first.
	if b.Personal.Integrator != types.ZeroAddress {
		old, err := p.platforms.Lookup(b.Personal.Integrator)
		if err != nil {
			return err
		}
		held, err := old.CheckBalance(b.Personal.Address)
		if err != nil {
			return fmt.Errorf("pool: checking platform balance of %s: %w", b.Personal.Address, err)
		}
		if held.IsPositive() {
			if err := old.Withdraw(b.Personal.Address, held, true); err != nil {
				return fmt.Errorf("pool: platform withdraw of %s: %w", b.Personal.Address, err)
			}
		}
	}
	if newIntegrator == types.ZeroAddress {
		return nil
	}
	next, err := p.platforms.Lookup(newIntegrator)
	if err != nil {
		return err
	}
	raw, err := p.rawBalance(b)
	if err != nil {
		return err
	}
	if !raw.IsPositive() {
		return nil
	}
	actual, err := next.Deposit(b.Personal.Address, raw)
	if err != nil {
		return fmt.Errorf("pool: platform deposit of %s: %w", b.Personal.Address, err)
	}
	if actual.LT(raw) && !b.Personal.HasTransferFee {
		return fmt.Errorf("%w: %s", ErrIncompleteTransfer, b.Personal.Address)
	}
	landed, err := next.CheckBalance(b.Personal.Address)
	if err != nil {
		return fmt.Errorf("pool: checking platform balance of %s: %w", b.Personal.Address, err)
	}
	if landed.LT(actual) {
		return fmt.Errorf("%w: %s", ErrIncompleteTransfer, b.Personal.Address)
	}
	return nil
}

// CollectPendingFees mints the accumulated fee claims out to the designated
// recipients and zeroes the accumulators.
func (p *Pool) CollectPendingFees(caller string) (surplus, govSurplus sdkmath.Int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, log := p.opLogger("collect_fees")
	if err := p.onlyFeeCollector(caller); err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	surplus, govSurplus, err = p.fees.Drain()
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	if surplus.IsPositive() {
		if err := p.poolToken.Mint(p.feeRecipient, surplus); err != nil {
			p.fees.Restore(surplus, govSurplus)
			return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("pool: minting fee claim: %w", err)
		}
	}
	if govSurplus.IsPositive() {
		if err := p.poolToken.Mint(p.govRecipient, govSurplus); err != nil {
			p.fees.Restore(sdkmath.ZeroInt(), govSurplus)
			return sdkmath.Int{}, sdkmath.Int{}, fmt.Errorf("pool: minting governance fee claim: %w", err)
		}
	}
	log.Info().
		Str("surplus", surplus.String()).
		Str("gov_surplus", govSurplus.String()).
		Msg("Pending fees collected")
	return surplus, govSurplus, nil
}

// CollectPlatformInterest reconciles every integrated asset's platform
// balance against the tracked vault balance, credits positive deltas to the
// vault and mints the equivalent pool-token value to the fee recipient.
func (p *Pool) CollectPlatformInterest(caller string) (sdkmath.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, log := p.opLogger("collect_interest")
	if err := p.onlyFeeCollector(caller); err != nil {
		return sdkmath.Int{}, err
	}

	supply, err := p.effectiveSupply()
	if err != nil {
		return sdkmath.Int{}, err
	}

	type gain struct {
		addr   string
		native sdkmath.Int
	}
	var gains []gain
	totalScaled := sdkmath.ZeroInt()
	for _, b := range p.ledger.Bassets() {
		if b.Personal.Integrator == types.ZeroAddress {
			continue
		}
		adapter, err := p.platforms.Lookup(b.Personal.Integrator)
		if err != nil {
			return sdkmath.Int{}, err
		}
		held, err := adapter.CheckBalance(b.Personal.Address)
		if err != nil {
			return sdkmath.Int{}, fmt.Errorf("pool: checking platform balance of %s: %w", b.Personal.Address, err)
		}
		raw, err := p.rawBalance(b)
		if err != nil {
			return sdkmath.Int{}, err
		}
		delta := held.Add(raw).Sub(b.Data.VaultBalance)
		if !delta.IsPositive() {
			continue
		}
		scaled, err := scaleFromNative(delta, b)
		if err != nil {
			return sdkmath.Int{}, err
		}
		gains = append(gains, gain{addr: b.Personal.Address, native: delta})
		totalScaled = totalScaled.Add(scaled)
	}
	if totalScaled.IsZero() {
		return sdkmath.Int{}, fees.ErrNothingToCollect
	}
	if supply.IsPositive() && sdkmath.LegacyNewDecFromInt(totalScaled).GT(interestCap.MulInt(supply)) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s against supply %s", ErrInterestTooLarge, totalScaled, supply)
	}

	for _, g := range gains {
		if err := p.ledger.IncreaseVaultBalance(g.addr, g.native); err != nil {
			return sdkmath.Int{}, err
		}
	}
	if err := p.poolToken.Mint(p.feeRecipient, totalScaled); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: minting interest: %w", err)
	}
	log.Info().
		Int("assets", len(gains)).
		Str("minted", totalScaled.String()).
		Msg("Platform interest collected")
	return totalScaled, nil
}
