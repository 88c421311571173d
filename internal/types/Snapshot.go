/*

PoolSnapshot is the persisted view of the whole pool at a point in time. It is
what the state journal stores after interest-collection cycles and what the
daemon restores from at startup.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// PoolSnapshot captures the full mutable state of a pool.
type PoolSnapshot struct {
	PoolName  string    `json:"pool_name"`
	Timestamp time.Time `json:"timestamp"`

	Failed                        bool     `json:"failed"`
	UndergoingRecollateralisation bool     `json:"undergoing_recollateralisation"`
	Bassets                       []Basset `json:"bassets"`

	Amp    AmpData      `json:"amp"`
	Fees   FeeConfig    `json:"fees"`
	Limits WeightLimits `json:"limits"`

	Surplus     sdkmath.Int `json:"surplus"`      // pending fees, pool-token units
	GovSurplus  sdkmath.Int `json:"gov_surplus"`  // pending governance fees
	TotalSupply sdkmath.Int `json:"total_supply"` // observed pool-token supply at snapshot time
}
