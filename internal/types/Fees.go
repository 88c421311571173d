/*

This is a custom type for the pool's fee and cache configuration, plus the
per-asset weight limits enforced on the input side of mints and swaps.

All fractions are 18-decimal LegacyDec values bounded by the protocol caps in
internal/fees.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// FeeConfig holds the mutable fee/cache fractions.
type FeeConfig struct {
	SwapFee       sdkmath.LegacyDec `json:"swap_fee"`
	RedemptionFee sdkmath.LegacyDec `json:"redemption_fee"`
	// GovFee is the fraction of each swap/redemption fee additionally
	// diverted to governance.
	GovFee sdkmath.LegacyDec `json:"gov_fee"`
	// CacheSize is the fraction of total pool value that may be held raw
	// rather than pushed to a platform integration.
	CacheSize sdkmath.LegacyDec `json:"cache_size"`
}

// WeightLimits are fractions of total basket value applied per asset.
type WeightLimits struct {
	Min sdkmath.LegacyDec `json:"min"`
	Max sdkmath.LegacyDec `json:"max"`
}
