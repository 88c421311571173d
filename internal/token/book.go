/*

Book-entry token backend. When the engine runs standalone there is no external
ledger to settle against, so asset and pool-token balances are tracked as book
entries. The Book satisfies both Token and PoolToken, with an optional
transfer-fee rate to model fee-on-transfer assets.

*/

package token

import (
	"errors"
	"sync"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	ErrInvalidAmount       = errors.New("token: amount must be positive")
)

// Book is an in-memory balance ledger for one asset. The owner is the holder
// debited by plain Transfer calls, matching the pool spending its own raw
// balance.
type Book struct {
	mu       sync.Mutex
	owner    string
	balances map[string]sdkmath.Int
	supply   sdkmath.Int

	// feeRate, when nonzero, is deducted from every transfer on the
	// recipient side, modelling fee-on-transfer assets.
	feeRate sdkmath.LegacyDec
}

// NewBook builds an empty book owned by owner.
func NewBook(owner string) *Book {
	return &Book{
		owner:    owner,
		balances: make(map[string]sdkmath.Int),
		supply:   sdkmath.ZeroInt(),
		feeRate:  sdkmath.LegacyZeroDec(),
	}
}

// NewBookWithFee builds a book whose transfers burn feeRate of every amount.
func NewBookWithFee(owner string, feeRate sdkmath.LegacyDec) *Book {
	b := NewBook(owner)
	b.feeRate = feeRate
	return b
}

// BalanceOf reports holder's current balance.
func (b *Book) BalanceOf(holder string) (sdkmath.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.balanceLocked(holder), nil
}

// TotalSupply reports the sum of all balances.
func (b *Book) TotalSupply() (sdkmath.Int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.supply, nil
}

// Mint credits amount to recipient out of thin air.
func (b *Book) Mint(recipient string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.balances[recipient] = b.balanceLocked(recipient).Add(amount)
	b.supply = b.supply.Add(amount)
	return nil
}

// Burn removes amount from holder.
func (b *Book) Burn(holder string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balanceLocked(holder)
	if bal.LT(amount) {
		return ErrInsufficientBalance
	}
	b.balances[holder] = bal.Sub(amount)
	b.supply = b.supply.Sub(amount)
	return nil
}

// Transfer moves amount from the owner's holdings to recipient.
func (b *Book) Transfer(recipient string, amount sdkmath.Int) error {
	return b.TransferHolder(b.owner, recipient, amount)
}

// TransferFrom moves amount from sender to recipient.
func (b *Book) TransferFrom(sender, recipient string, amount sdkmath.Int) error {
	return b.TransferHolder(sender, recipient, amount)
}

// TransferHolder moves amount between two named holders, applying the
// transfer fee on the recipient side.
func (b *Book) TransferHolder(sender, recipient string, amount sdkmath.Int) error {
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidAmount
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	bal := b.balanceLocked(sender)
	if bal.LT(amount) {
		return ErrInsufficientBalance
	}
	credited := amount
	if b.feeRate.IsPositive() {
		fee := b.feeRate.MulInt(amount).TruncateInt()
		credited = amount.Sub(fee)
		b.supply = b.supply.Sub(fee)
	}
	b.balances[sender] = bal.Sub(amount)
	b.balances[recipient] = b.balanceLocked(recipient).Add(credited)
	return nil
}

func (b *Book) balanceLocked(holder string) sdkmath.Int {
	if bal, ok := b.balances[holder]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}
