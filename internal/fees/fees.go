/*

Fee application and the platform cache policy.

Fees are deducted from raw invariant outputs and accumulate as a pool-token
surplus (plus a separate governance cut) until an authorized collector mints
them out. The cache policy amortises expensive platform deposit/withdraw calls:
a slice of each integrated asset may sit raw in the pool, and the platform is
only touched when the raw balance breaches the cache bounds.

*/

package fees

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/types"
)

var (
	ErrSwapRateOutOfBounds       = errors.New("fees: swap fee above cap")
	ErrRedemptionRateOutOfBounds = errors.New("fees: redemption fee above cap")
	ErrGovFeeRateOutOfBounds     = errors.New("fees: governance fee above cap")
	ErrCacheSizeTooLarge         = errors.New("fees: cache size above cap")
	ErrNothingToCollect          = errors.New("fees: nothing to collect")
)

// Protocol-level caps on the configurable fractions.
var (
	MaxSwapFee       = sdkmath.LegacyMustNewDecFromStr("0.01") // 1%
	MaxRedemptionFee = sdkmath.LegacyMustNewDecFromStr("0.01") // 1%
	MaxGovFee        = sdkmath.LegacyMustNewDecFromStr("0.5")  // 50% of the fee
	MaxCacheSize     = sdkmath.LegacyMustNewDecFromStr("0.2")  // 20% of pool value
)

// Controller owns the fee configuration and the pending-fee accumulators.
type Controller struct {
	config     types.FeeConfig
	surplus    sdkmath.Int // pool-token units owed to the fee recipient
	govSurplus sdkmath.Int // pool-token units owed to governance
}

// NewController validates the configuration against the protocol caps.
func NewController(cfg types.FeeConfig) (*Controller, error) {
	c := &Controller{surplus: sdkmath.ZeroInt(), govSurplus: sdkmath.ZeroInt()}
	if err := c.SetFees(cfg.SwapFee, cfg.RedemptionFee); err != nil {
		return nil, err
	}
	if err := c.SetGovFee(cfg.GovFee); err != nil {
		return nil, err
	}
	if err := c.SetCacheSize(cfg.CacheSize); err != nil {
		return nil, err
	}
	return c, nil
}

// Restore reinstates persisted accumulators.
func (c *Controller) Restore(surplus, govSurplus sdkmath.Int) {
	if !surplus.IsNil() {
		c.surplus = surplus
	}
	if !govSurplus.IsNil() {
		c.govSurplus = govSurplus
	}
}

// Config returns the current fee configuration.
func (c *Controller) Config() types.FeeConfig { return c.config }

// Surplus returns the pending fee accumulator.
func (c *Controller) Surplus() sdkmath.Int { return c.surplus }

// GovSurplus returns the pending governance fee accumulator.
func (c *Controller) GovSurplus() sdkmath.Int { return c.govSurplus }

// SetFees updates the swap and redemption fractions, capped at 1% each.
func (c *Controller) SetFees(swapFee, redemptionFee sdkmath.LegacyDec) error {
	if swapFee.IsNil() || swapFee.IsNegative() || swapFee.GT(MaxSwapFee) {
		return fmt.Errorf("%w: %s", ErrSwapRateOutOfBounds, swapFee)
	}
	if redemptionFee.IsNil() || redemptionFee.IsNegative() || redemptionFee.GT(MaxRedemptionFee) {
		return fmt.Errorf("%w: %s", ErrRedemptionRateOutOfBounds, redemptionFee)
	}
	c.config.SwapFee = swapFee
	c.config.RedemptionFee = redemptionFee
	return nil
}

// SetGovFee updates the governance cut, capped at 50% of each fee.
func (c *Controller) SetGovFee(govFee sdkmath.LegacyDec) error {
	if govFee.IsNil() {
		govFee = sdkmath.LegacyZeroDec()
	}
	if govFee.IsNegative() || govFee.GT(MaxGovFee) {
		return fmt.Errorf("%w: %s", ErrGovFeeRateOutOfBounds, govFee)
	}
	c.config.GovFee = govFee
	return nil
}

// SetCacheSize updates the raw-holding fraction, capped at 20% of pool value.
func (c *Controller) SetCacheSize(cacheSize sdkmath.LegacyDec) error {
	if cacheSize.IsNil() {
		cacheSize = sdkmath.LegacyZeroDec()
	}
	if cacheSize.IsNegative() || cacheSize.GT(MaxCacheSize) {
		return fmt.Errorf("%w: %s", ErrCacheSizeTooLarge, cacheSize)
	}
	c.config.CacheSize = cacheSize
	return nil
}

// ApplySwapFee deducts the swap fee from a raw scaled output, returning the
// net output and the fee taken. Truncation keeps rounding on the pool's side.
func (c *Controller) ApplySwapFee(rawScaled sdkmath.Int) (net, fee sdkmath.Int) {
	fee = c.config.SwapFee.MulInt(rawScaled).TruncateInt()
	return rawScaled.Sub(fee), fee
}

// ApplyRedemptionFee deducts the redemption fee from a raw scaled output.
func (c *Controller) ApplyRedemptionFee(rawScaled sdkmath.Int) (net, fee sdkmath.Int) {
	fee = c.config.RedemptionFee.MulInt(rawScaled).TruncateInt()
	return rawScaled.Sub(fee), fee
}

// Accrue adds a collected fee (pool-token units) to the accumulators,
// splitting the governance cut off first.
func (c *Controller) Accrue(fee sdkmath.Int) {
	if fee.IsNil() || !fee.IsPositive() {
		return
	}
	gov := c.config.GovFee.MulInt(fee).TruncateInt()
	c.govSurplus = c.govSurplus.Add(gov)
	c.surplus = c.surplus.Add(fee.Sub(gov))
}

// AccrueInterest adds platform interest (pool-token units) to the surplus
// with no governance split.
func (c *Controller) AccrueInterest(amount sdkmath.Int) {
	if amount.IsNil() || !amount.IsPositive() {
		return
	}
	c.surplus = c.surplus.Add(amount)
}

// Drain zeroes and returns both accumulators. Collecting with nothing pending
// is an error so callers can distinguish a no-op from a collection.
func (c *Controller) Drain() (surplus, govSurplus sdkmath.Int, err error) {
	if c.surplus.IsZero() && c.govSurplus.IsZero() {
		return sdkmath.Int{}, sdkmath.Int{}, ErrNothingToCollect
	}
	surplus, govSurplus = c.surplus, c.govSurplus
	c.surplus = sdkmath.ZeroInt()
	c.govSurplus = sdkmath.ZeroInt()
	return surplus, govSurplus, nil
}

// MaxCache converts the cache fraction into native units of one asset:
// cacheSize * (totalSupply+pendingFees) * RatioScale / ratio.
func (c *Controller) MaxCache(supplyPlusFees, ratio sdkmath.Int) (sdkmath.Int, error) {
	native, err := fixedpoint.DivRatioPrecisely(supplyPlusFees, ratio)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return c.config.CacheSize.MulInt(native).TruncateInt(), nil
}

// DepositPlan decides how much of an inflow must be pushed to the platform.
// Once the raw balance would reach maxCache, it is drained down to maxCache/2;
// below the threshold the whole inflow stays raw.
func DepositPlan(rawBalance, deposit, maxCache sdkmath.Int) sdkmath.Int {
	total := rawBalance.Add(deposit)
	if total.LT(maxCache) {
		return sdkmath.ZeroInt()
	}
	return total.Sub(maxCache.QuoRaw(2))
}

// WithdrawPlan decides how much must be pulled from the platform to serve an
// outflow. A raw balance that covers the outflow touches nothing; otherwise
// the pull tops the cache back up to maxCache/2, bounded by what the platform
// actually holds.
func WithdrawPlan(rawBalance, withdrawal, vaultBalance, maxCache sdkmath.Int) sdkmath.Int {
	if withdrawal.LTE(rawBalance) {
		return sdkmath.ZeroInt()
	}
	want := maxCache.QuoRaw(2).Add(withdrawal).Sub(rawBalance)
	held := vaultBalance.Sub(rawBalance)
	return sdkmath.MinInt(want, held)
}
