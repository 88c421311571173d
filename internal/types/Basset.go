/*

This is a custom type for basket assets which contains all the state needed for
pricing and accounting against the pool invariant.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// ZeroAddress is the sentinel for "no asset" / "no integrator".
const ZeroAddress = ""

// AssetStatus governs an asset's eligibility for mint/swap/redeem.
type AssetStatus uint8

const (
	StatusNormal AssetStatus = iota
	StatusBrokenBelowPeg
	StatusBrokenAbovePeg
	StatusLiquidated
)

func (s AssetStatus) String() string {
	switch s {
	case StatusNormal:
		return "Normal"
	case StatusBrokenBelowPeg:
		return "BrokenBelowPeg"
	case StatusBrokenAbovePeg:
		return "BrokenAbovePeg"
	case StatusLiquidated:
		return "Liquidated"
	default:
		return "Unknown"
	}
}

// IsBroken reports whether the asset has lost its peg in either direction.
func (s AssetStatus) IsBroken() bool {
	return s == StatusBrokenBelowPeg || s == StatusBrokenAbovePeg
}

// BassetPersonal is the identity/config half of an asset record. It changes
// rarely (status transitions, integrator migrations).
type BassetPersonal struct {
	Address        string      `json:"address"`          // opaque unique key for the external asset
	Integrator     string      `json:"integrator"`       // platform adapter key; ZeroAddress means held raw
	HasTransferFee bool        `json:"has_transfer_fee"` // if true, observed balance deltas are authoritative
	Status         AssetStatus `json:"status"`
}

// BassetData is the hot half of an asset record, mutated on every operation.
type BassetData struct {
	// Ratio converts the asset's native unit into the 18-decimal value
	// domain: contribution = VaultBalance * Ratio / RatioScale.
	Ratio sdkmath.Int `json:"ratio"`
	// VaultBalance is the total native-unit quantity attributed to the pool,
	// raw plus platform-held.
	VaultBalance sdkmath.Int `json:"vault_balance"`
}

// Basset pairs the two halves the way read operations expose them.
type Basset struct {
	Personal BassetPersonal `json:"personal"`
	Data     BassetData     `json:"data"`
}
