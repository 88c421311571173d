package token

import (
	sdkmath "cosmossdk.io/math"
)

// Token defines the interface for an ERC20-style fungible asset the pool
// moves on behalf of callers. Return values are deliberately minimal: the
// pool trusts observed balance deltas over nominal transfer amounts, which is
// the only robust way to support assets that charge a fee on transfer.
type Token interface {
	// BalanceOf reports holder's current balance.
	BalanceOf(holder string) (sdkmath.Int, error)

	// Transfer moves amount from the pool's own holdings to recipient.
	Transfer(recipient string, amount sdkmath.Int) error

	// TransferFrom moves amount from sender to recipient using the pool's
	// allowance.
	TransferFrom(sender, recipient string, amount sdkmath.Int) error
}

// PoolToken is the fungible pool share the facade mints and burns.
type PoolToken interface {
	TotalSupply() (sdkmath.Int, error)
	Mint(recipient string, amount sdkmath.Int) error
	Burn(holder string, amount sdkmath.Int) error
}
