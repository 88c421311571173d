/*

The pool facade orchestrates every mint / swap / redeem / admin operation
against the basket ledger, invariant engine, amplification schedule and fee
controller. Each mutating operation follows Validate -> Price -> Apply ->
Settle under a single exclusive lock, with external token/platform calls
confined to settlement so a failure can unwind without partial internal state.

*/

package pool

import (
	"errors"
	"fmt"
	"sync"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/basketfi/svp/internal/amp"
	"github.com/basketfi/svp/internal/basket"
	"github.com/basketfi/svp/internal/fees"
	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/logger"
	"github.com/basketfi/svp/internal/platform"
	"github.com/basketfi/svp/internal/token"
	"github.com/basketfi/svp/internal/types"
)

var (
	ErrZeroQuantity             = errors.New("pool: quantity must be nonzero")
	ErrAssetNotAllowed          = errors.New("pool: asset not allowed in operation")
	ErrExceedsWeightLimits      = errors.New("pool: input would exceed weight limits")
	ErrInputArrayMismatch       = errors.New("pool: input array lengths differ")
	ErrMintOutputBelowMinimum   = errors.New("pool: mint output below minimum")
	ErrZeroMintOutput           = errors.New("pool: deposit prices to zero pool tokens")
	ErrSwapOutputBelowMinimum   = errors.New("pool: swap output below minimum")
	ErrRedeemOutputBelowMinimum = errors.New("pool: redeem output below minimum")
	ErrRedeemBurnAboveMaximum   = errors.New("pool: redeem burn above maximum")
	ErrNotGovernor              = errors.New("pool: caller is not governor")
	ErrNotFeeCollector          = errors.New("pool: caller is not the fee collector")
	ErrPaused                   = errors.New("pool: system is paused")
	ErrAssetNotFullyTransferred = errors.New("pool: asset not fully transferred")
	ErrIncompleteTransfer       = errors.New("pool: migration did not fully move funds")
	ErrUnknownToken             = errors.New("pool: no token wired for asset")
	ErrInvalidWeightLimits      = errors.New("pool: invalid weight limits")
)

// Governance defines the access-control collaborator consumed by every
// governed setter and mutating user operation.
type Governance interface {
	IsGovernor(caller string) bool
	IsUnpaused() bool
	IsFeeCollector(caller string) bool
}

// Config assembles a pool with its collaborators.
type Config struct {
	Name string
	// Address is the pool's own holding address, used when observing token
	// balance deltas.
	Address      string
	FeeRecipient string
	GovRecipient string

	Ledger    *basket.Ledger
	Amp       *types.AmpData
	Fees      *fees.Controller
	Limits    types.WeightLimits
	Platforms *platform.Registry
	PoolToken token.PoolToken
	// Assets maps bAsset addresses to their token collaborators.
	Assets     map[string]token.Token
	Governance Governance

	// Now overrides the clock, primarily for tests.
	Now func() time.Time
}

// Pool is the operations facade.
type Pool struct {
	mu  sync.Mutex
	log zerolog.Logger

	name         string
	address      string
	feeRecipient string
	govRecipient string

	ledger    *basket.Ledger
	ampData   *types.AmpData
	fees      *fees.Controller
	limits    types.WeightLimits
	platforms *platform.Registry
	poolToken token.PoolToken
	assets    map[string]token.Token
	gov       Governance
	now       func() time.Time
}

// New validates the configuration and builds a pool.
func New(cfg Config) (*Pool, error) {
	if cfg.Ledger == nil {
		return nil, fmt.Errorf("pool: ledger cannot be nil")
	}
	if cfg.Amp == nil {
		return nil, fmt.Errorf("pool: amp data cannot be nil")
	}
	if cfg.Fees == nil {
		return nil, fmt.Errorf("pool: fee controller cannot be nil")
	}
	if cfg.PoolToken == nil {
		return nil, fmt.Errorf("pool: pool token cannot be nil")
	}
	if cfg.Governance == nil {
		return nil, fmt.Errorf("pool: governance cannot be nil")
	}
	if cfg.Platforms == nil {
		cfg.Platforms = platform.NewRegistry()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if err := validateLimits(cfg.Limits); err != nil {
		return nil, err
	}
	for _, b := range cfg.Ledger.Bassets() {
		if _, ok := cfg.Assets[b.Personal.Address]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownToken, b.Personal.Address)
		}
	}
	return &Pool{
		log:          logger.GetForComponent("pool"),
		name:         cfg.Name,
		address:      cfg.Address,
		feeRecipient: cfg.FeeRecipient,
		govRecipient: cfg.GovRecipient,
		ledger:       cfg.Ledger,
		ampData:      cfg.Amp,
		fees:         cfg.Fees,
		limits:       cfg.Limits,
		platforms:    cfg.Platforms,
		poolToken:    cfg.PoolToken,
		assets:       cfg.Assets,
		gov:          cfg.Governance,
		now:          cfg.Now,
	}, nil
}

func validateLimits(limits types.WeightLimits) error {
	if limits.Min.IsNil() || limits.Max.IsNil() {
		return ErrInvalidWeightLimits
	}
	one := sdkmath.LegacyOneDec()
	if limits.Min.IsNegative() || limits.Max.GT(one) || limits.Min.GT(limits.Max) {
		return ErrInvalidWeightLimits
	}
	return nil
}

// opLogger tags a per-operation logger with a fresh operation id.
func (p *Pool) opLogger(op string) (string, zerolog.Logger) {
	opID := uuid.New().String()
	return opID, p.log.With().Str("op_id", opID).Str("op", op).Logger()
}

func (p *Pool) nowUnix() uint64 {
	return uint64(p.now().Unix())
}

// currentA reads the ramp-adjusted amplification at APrecision.
func (p *Pool) currentA() sdkmath.Int {
	return amp.CurrentA(*p.ampData, p.nowUnix())
}

// checkHealthy gates every mutating operation on the basket kill switch and
// the governance pause.
func (p *Pool) checkHealthy() error {
	if !p.gov.IsUnpaused() {
		return ErrPaused
	}
	return p.ledger.CheckHealth()
}

func (p *Pool) onlyGovernor(caller string) error {
	if !p.gov.IsGovernor(caller) {
		return ErrNotGovernor
	}
	return nil
}

func (p *Pool) onlyFeeCollector(caller string) error {
	if !p.gov.IsFeeCollector(caller) {
		return ErrNotFeeCollector
	}
	return nil
}

// effectiveSupply is the circulating pool-token quantity used by all pricing:
// minted supply plus the pending fee claims not yet minted out.
func (p *Pool) effectiveSupply() (sdkmath.Int, error) {
	supply, err := p.poolToken.TotalSupply()
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("pool: reading supply: %w", err)
	}
	return supply.Add(p.fees.Surplus()).Add(p.fees.GovSurplus()), nil
}

// pricingState is the immutable snapshot both views and mutating operations
// price against, guaranteeing identical numeric results.
type pricingState struct {
	xp     []sdkmath.Int
	supply sdkmath.Int
	a      sdkmath.Int
}

func (p *Pool) pricingState() (pricingState, error) {
	xp, err := p.ledger.ScaledBalances()
	if err != nil {
		return pricingState{}, err
	}
	supply, err := p.effectiveSupply()
	if err != nil {
		return pricingState{}, err
	}
	return pricingState{xp: xp, supply: supply, a: p.currentA()}, nil
}

// checkWeight enforces the max weight limit on the input side of a mint or
// swap. An already-overweight asset may only move toward its limit.
func (p *Pool) checkWeight(st pricingState, idx int, scaledDelta sdkmath.Int) error {
	total0 := sdkmath.ZeroInt()
	for _, x := range st.xp {
		total0 = total0.Add(x)
	}
	total1 := total0.Add(scaledDelta)
	if total1.IsZero() {
		return nil
	}
	post := sdkmath.LegacyNewDecFromInt(st.xp[idx].Add(scaledDelta)).QuoInt(total1)
	if post.LTE(p.limits.Max) {
		return nil
	}
	if total0.IsPositive() {
		pre := sdkmath.LegacyNewDecFromInt(st.xp[idx]).QuoInt(total0)
		if post.LT(pre) {
			return nil
		}
	}
	return ErrExceedsWeightLimits
}

// checkWeightsJoint applies the same rule across a multi-asset deposit,
// judging every touched asset against the joint post-operation total.
func (p *Pool) checkWeightsJoint(st pricingState, deltas []sdkmath.Int) error {
	total0 := sdkmath.ZeroInt()
	total1 := sdkmath.ZeroInt()
	for i, x := range st.xp {
		total0 = total0.Add(x)
		total1 = total1.Add(x).Add(deltas[i])
	}
	if total1.IsZero() {
		return nil
	}
	for i, delta := range deltas {
		if !delta.IsPositive() {
			continue
		}
		post := sdkmath.LegacyNewDecFromInt(st.xp[i].Add(delta)).QuoInt(total1)
		if post.LTE(p.limits.Max) {
			continue
		}
		if total0.IsPositive() {
			pre := sdkmath.LegacyNewDecFromInt(st.xp[i]).QuoInt(total0)
			if post.LT(pre) {
				continue
			}
		}
		return ErrExceedsWeightLimits
	}
	return nil
}

// requireNormal gates operations on asset status.
func requireNormal(b types.Basset) error {
	if b.Personal.Status != types.StatusNormal {
		return fmt.Errorf("%w: %s is %s", ErrAssetNotAllowed, b.Personal.Address, b.Personal.Status)
	}
	return nil
}

func (p *Pool) assetToken(addr string) (token.Token, error) {
	tok, ok := p.assets[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownToken, addr)
	}
	return tok, nil
}

// scaleToNative converts a value-domain quantity to native units of b.
func scaleToNative(scaled sdkmath.Int, b types.Basset) (sdkmath.Int, error) {
	return fixedpoint.DivRatioPrecisely(scaled, b.Data.Ratio)
}

// scaleFromNative converts native units of b into the value domain.
func scaleFromNative(native sdkmath.Int, b types.Basset) (sdkmath.Int, error) {
	return fixedpoint.MulRatioTruncate(native, b.Data.Ratio)
}

// fixedpointMulRatioCeil is scaleFromNative rounded up, used where the scaled
// quantity must fully cover an exact native withdrawal.
func fixedpointMulRatioCeil(native sdkmath.Int, b types.Basset) (sdkmath.Int, error) {
	return fixedpoint.MulRatioTruncateCeil(native, b.Data.Ratio)
}
