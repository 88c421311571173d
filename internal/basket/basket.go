/*

The basket ledger owns the asset records and basket-level aggregates. It is a
plain in-memory structure: the pool facade serialises access, stages balance
mutations, and commits them here only once external settlement has succeeded.

*/

package basket

import (
	"errors"
	"fmt"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/fixedpoint"
	"github.com/basketfi/svp/internal/types"
)

var (
	ErrInvalidAsset             = errors.New("basket: invalid or unknown asset")
	ErrDuplicateAsset           = errors.New("basket: duplicate asset address")
	ErrInsufficientVaultBalance = errors.New("basket: vault balance would go negative")
	ErrBasketUnhealthy          = errors.New("basket: basket failed or paused")
)

// Ledger is the set of basket assets plus the basket-wide flags.
type Ledger struct {
	bassets []types.Basset
	index   map[string]int

	failed                        bool
	undergoingRecollateralisation bool
}

// New builds a ledger from the given asset records. Addresses must be unique
// and non-sentinel; insertion order is preserved and significant for indexing.
func New(bassets []types.Basset) (*Ledger, error) {
	l := &Ledger{
		bassets: make([]types.Basset, 0, len(bassets)),
		index:   make(map[string]int, len(bassets)),
	}
	for _, b := range bassets {
		if b.Personal.Address == types.ZeroAddress {
			return nil, ErrInvalidAsset
		}
		if _, exists := l.index[b.Personal.Address]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateAsset, b.Personal.Address)
		}
		if b.Data.Ratio.IsNil() || !b.Data.Ratio.IsPositive() {
			return nil, fmt.Errorf("%w: %s has no ratio", ErrInvalidAsset, b.Personal.Address)
		}
		if b.Data.VaultBalance.IsNil() {
			b.Data.VaultBalance = sdkmath.ZeroInt()
		}
		l.index[b.Personal.Address] = len(l.bassets)
		l.bassets = append(l.bassets, b)
		if b.Personal.Status.IsBroken() {
			l.undergoingRecollateralisation = true
		}
	}
	return l, nil
}

// Restore rebuilds a ledger from a persisted snapshot.
func Restore(snap types.PoolSnapshot) (*Ledger, error) {
	l, err := New(snap.Bassets)
	if err != nil {
		return nil, err
	}
	l.failed = snap.Failed
	l.undergoingRecollateralisation = snap.UndergoingRecollateralisation
	return l, nil
}

// Len returns the number of assets in the basket.
func (l *Ledger) Len() int { return len(l.bassets) }

// Index resolves an address to its basket position.
func (l *Ledger) Index(addr string) (int, error) {
	if addr == types.ZeroAddress {
		return 0, ErrInvalidAsset
	}
	i, ok := l.index[addr]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAsset, addr)
	}
	return i, nil
}

// Basset returns a copy of the record for addr.
func (l *Ledger) Basset(addr string) (types.Basset, error) {
	i, err := l.Index(addr)
	if err != nil {
		return types.Basset{}, err
	}
	return l.bassets[i], nil
}

// Bassets returns copies of all records in insertion order.
func (l *Ledger) Bassets() []types.Basset {
	out := make([]types.Basset, len(l.bassets))
	copy(out, l.bassets)
	return out
}

// At returns a copy of the record at basket position i.
func (l *Ledger) At(i int) (types.Basset, error) {
	if i < 0 || i >= len(l.bassets) {
		return types.Basset{}, ErrInvalidAsset
	}
	return l.bassets[i], nil
}

// IncreaseVaultBalance credits native units actually moved into the pool.
func (l *Ledger) IncreaseVaultBalance(addr string, amount sdkmath.Int) error {
	i, err := l.Index(addr)
	if err != nil {
		return err
	}
	l.bassets[i].Data.VaultBalance = l.bassets[i].Data.VaultBalance.Add(amount)
	return nil
}

// DecreaseVaultBalance debits native units moved out of the pool. Going below
// zero is an accounting invariant violation, not a recoverable condition.
func (l *Ledger) DecreaseVaultBalance(addr string, amount sdkmath.Int) error {
	i, err := l.Index(addr)
	if err != nil {
		return err
	}
	next := l.bassets[i].Data.VaultBalance.Sub(amount)
	if next.IsNegative() {
		return fmt.Errorf("%w: %s", ErrInsufficientVaultBalance, addr)
	}
	l.bassets[i].Data.VaultBalance = next
	return nil
}

// SetStatus transitions an asset's status and maintains the basket-wide
// recollateralisation flag: entering a broken-peg state raises it, returning
// to Normal clears it only when no other asset remains broken.
func (l *Ledger) SetStatus(addr string, status types.AssetStatus) error {
	i, err := l.Index(addr)
	if err != nil {
		return err
	}
	l.bassets[i].Personal.Status = status

	broken := false
	for _, b := range l.bassets {
		if b.Personal.Status.IsBroken() {
			broken = true
			break
		}
	}
	l.undergoingRecollateralisation = broken
	return nil
}

// SetIntegrator repoints an asset at a new platform adapter key. Balance
// movement between adapters is the facade's migration flow.
func (l *Ledger) SetIntegrator(addr, integrator string) error {
	i, err := l.Index(addr)
	if err != nil {
		return err
	}
	l.bassets[i].Personal.Integrator = integrator
	return nil
}

// SetFailed flips the basket-wide kill switch.
func (l *Ledger) SetFailed(failed bool) { l.failed = failed }

// Failed reports the kill switch.
func (l *Ledger) Failed() bool { return l.failed }

// UndergoingRecollateralisation reports whether any asset is broken-peg.
func (l *Ledger) UndergoingRecollateralisation() bool {
	return l.undergoingRecollateralisation
}

// CheckHealth is the predicate consumed before any mutating operation.
func (l *Ledger) CheckHealth() error {
	if l.failed {
		return ErrBasketUnhealthy
	}
	return nil
}

// ScaledBalances returns every vault balance converted into the 18-decimal
// value domain, in basket order.
func (l *Ledger) ScaledBalances() ([]sdkmath.Int, error) {
	out := make([]sdkmath.Int, len(l.bassets))
	for i, b := range l.bassets {
		scaled, err := fixedpoint.MulRatioTruncate(b.Data.VaultBalance, b.Data.Ratio)
		if err != nil {
			return nil, err
		}
		out[i] = scaled
	}
	return out, nil
}

// TotalVaultValue sums the scaled contributions of every asset.
func (l *Ledger) TotalVaultValue() (sdkmath.Int, error) {
	xp, err := l.ScaledBalances()
	if err != nil {
		return sdkmath.Int{}, err
	}
	total := sdkmath.ZeroInt()
	for _, x := range xp {
		total = total.Add(x)
	}
	return total, nil
}
