/*

Settlement: the only place external token and platform calls happen. Transfers
in are measured by the pool's observed balance delta; platform pushes and
pulls follow the cache policy in internal/fees.

*/

package pool

import (
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/basketfi/svp/internal/fees"
	"github.com/basketfi/svp/internal/token"
	"github.com/basketfi/svp/internal/types"
)

// transferIn pulls qty native units of b from sender and returns the quantity
// that actually arrived, measured by balance delta. A shortfall on an asset
// not flagged for transfer fees is treated as evidence of a missing flag and
// aborts rather than silently under-crediting.
func (p *Pool) transferIn(sender string, b types.Basset, qty sdkmath.Int) (sdkmath.Int, error) {
	tok, err := p.assetToken(b.Personal.Address)
	if err != nil {
		return sdkmath.Int{}, err
	}
	before, err := tok.BalanceOf(p.address)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: reading balance of %s: %w", b.Personal.Address, err)
	}
	if err := tok.TransferFrom(sender, p.address, qty); err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: transfer of %s: %w", b.Personal.Address, err)
	}
	after, err := tok.BalanceOf(p.address)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: reading balance of %s: %w", b.Personal.Address, err)
	}
	received := after.Sub(before)
	if !received.IsPositive() {
		return sdkmath.Int{}, ErrZeroQuantity
	}
	if !b.Personal.HasTransferFee && !received.Equal(qty) {
		return sdkmath.Int{}, fmt.Errorf("%w: %s", ErrAssetNotFullyTransferred, b.Personal.Address)
	}
	return received, nil
}

// refund is the best-effort unwind of a transferIn after a later stage fails.
// When part of the inflow was already pushed to the asset's platform, the
// shortfall is pulled back so the refund is not starved by the cache policy.
func (p *Pool) refund(log zerolog.Logger, recipient string, b types.Basset, amount sdkmath.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	tok, err := p.assetToken(b.Personal.Address)
	if err == nil {
		raw, berr := tok.BalanceOf(p.address)
		if berr == nil && raw.LT(amount) && b.Personal.Integrator != types.ZeroAddress {
			if adapter, aerr := p.platforms.Lookup(b.Personal.Integrator); aerr == nil {
				if werr := adapter.Withdraw(b.Personal.Address, amount.Sub(raw), false); werr != nil {
					log.Error().Err(werr).
						Str("asset", b.Personal.Address).
						Msg("Failed to pull platform funds for refund")
				}
			}
		}
		err = tok.Transfer(recipient, amount)
	}
	if err != nil {
		log.Error().Err(err).
			Str("asset", b.Personal.Address).
			Str("amount", amount.String()).
			Msg("Failed to refund after aborted operation")
	}
}

// remint is the best-effort unwind of a pool token burn after a later stage
// fails.
func (p *Pool) remint(log zerolog.Logger, recipient string, qty sdkmath.Int) {
	if qty.IsNil() || !qty.IsPositive() {
		return
	}
	if err := p.poolToken.Mint(recipient, qty); err != nil {
		log.Error().Err(err).
			Str("amount", qty.String()).
			Msg("Failed to re-mint after aborted redemption")
	}
}

// rawBalance reads the pool's un-deposited holding of b.
func (p *Pool) rawBalance(b types.Basset) (sdkmath.Int, error) {
	tok, err := p.assetToken(b.Personal.Address)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return tok.BalanceOf(p.address)
}

// settleDeposit applies the cache policy to an inflow that has already landed
// raw in the pool, pushing the overflow to the asset's platform integration.
// It returns the native quantity to credit to the vault.
func (p *Pool) settleDeposit(b types.Basset, received sdkmath.Int) (sdkmath.Int, error) {
	if b.Personal.Integrator == types.ZeroAddress {
		return received, nil
	}
	adapter, err := p.platforms.Lookup(b.Personal.Integrator)
	if err != nil {
		return sdkmath.Int{}, err
	}
	raw, err := p.rawBalance(b)
	if err != nil {
		return sdkmath.Int{}, err
	}
	supplyPlusFees, err := p.effectiveSupply()
	if err != nil {
		return sdkmath.Int{}, err
	}
	maxCache, err := p.fees.MaxCache(supplyPlusFees, b.Data.Ratio)
	if err != nil {
		return sdkmath.Int{}, err
	}
	toPlatform := fees.DepositPlan(raw.Sub(received), received, maxCache)
	if !toPlatform.IsPositive() {
		return received, nil
	}
	if toPlatform.GT(raw) {
		toPlatform = raw
	}
	actual, err := adapter.Deposit(b.Personal.Address, toPlatform)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: platform deposit of %s: %w", b.Personal.Address, err)
	}
	if actual.LT(toPlatform) {
		if !b.Personal.HasTransferFee {
			return sdkmath.Int{}, fmt.Errorf("%w: %s on platform deposit", ErrAssetNotFullyTransferred, b.Personal.Address)
		}
		// The platform leg charged its own fee; only credit what the pool
		// still controls.
		received = received.Sub(toPlatform.Sub(actual))
		if received.IsNegative() {
			received = sdkmath.ZeroInt()
		}
	}
	return received, nil
}

// stagePlatformPull makes sure the raw cache of b can cover an outflow of
// amount, pulling from the platform integration per the cache policy. No
// tokens leave the pool.
func (p *Pool) stagePlatformPull(b types.Basset, amount sdkmath.Int) error {
	if b.Personal.Integrator == types.ZeroAddress {
		return nil
	}
	adapter, err := p.platforms.Lookup(b.Personal.Integrator)
	if err != nil {
		return err
	}
	raw, err := p.rawBalance(b)
	if err != nil {
		return err
	}
	supplyPlusFees, err := p.effectiveSupply()
	if err != nil {
		return err
	}
	maxCache, err := p.fees.MaxCache(supplyPlusFees, b.Data.Ratio)
	if err != nil {
		return err
	}
	pull := fees.WithdrawPlan(raw, amount, b.Data.VaultBalance, maxCache)
	if pull.IsPositive() {
		if err := adapter.Withdraw(b.Personal.Address, pull, false); err != nil {
			return fmt.Errorf("pool: platform withdraw of %s: %w", b.Personal.Address, err)
		}
	}
	return nil
}

// settleWithdraw delivers amount native units of b to recipient, pulling from
// the platform integration when the raw cache cannot cover the outflow.
func (p *Pool) settleWithdraw(b types.Basset, recipient string, amount sdkmath.Int) error {
	tok, err := p.assetToken(b.Personal.Address)
	if err != nil {
		return err
	}
	if err := p.stagePlatformPull(b, amount); err != nil {
		return err
	}
	if err := tok.Transfer(recipient, amount); err != nil {
		return fmt.Errorf("pool: transfer of %s: %w", b.Personal.Address, err)
	}
	return nil
}

// settleWithdrawMulti settles a multi-asset outflow in two phases: every
// platform pull completes before the first leg is delivered, so a failing
// integration aborts with nothing sent. Legs with a zero amount are skipped.
// If a delivery itself fails the already delivered legs are clawed back
// best-effort before the error is returned.
func (p *Pool) settleWithdrawMulti(log zerolog.Logger, bassets []types.Basset, recipient string, amounts []sdkmath.Int) error {
	toks := make([]token.Token, len(bassets))
	for i, b := range bassets {
		if !amounts[i].IsPositive() {
			continue
		}
		tok, err := p.assetToken(b.Personal.Address)
		if err != nil {
			return err
		}
		toks[i] = tok
		if err := p.stagePlatformPull(b, amounts[i]); err != nil {
			return err
		}
	}
	for i, b := range bassets {
		if toks[i] == nil {
			continue
		}
		if err := toks[i].Transfer(recipient, amounts[i]); err != nil {
			for j := 0; j < i; j++ {
				if toks[j] == nil {
					continue
				}
				if cerr := toks[j].TransferFrom(recipient, p.address, amounts[j]); cerr != nil {
					log.Error().Err(cerr).
						Str("asset", bassets[j].Personal.Address).
						Str("amount", amounts[j].String()).
						Msg("Failed to claw back delivered leg after aborted redemption")
				}
			}
			return fmt.Errorf("pool: transfer of %s: %w", b.Personal.Address, err)
		}
	}
	return nil
}
