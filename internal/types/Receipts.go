/*

Operation receipts returned by the pool facade. Quantities are native units
for bAssets and 18-decimal units for pool tokens.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// MintResult records the outcome of a mint or mintMulti.
type MintResult struct {
	OpID      string        `json:"op_id"`
	Recipient string        `json:"recipient"`
	Inputs    []string      `json:"inputs"`
	Quantity  []sdkmath.Int `json:"quantity"` // native units actually received per input
	Minted    sdkmath.Int   `json:"minted"`   // pool tokens minted
}

// SwapResult records the outcome of a swap.
type SwapResult struct {
	OpID      string      `json:"op_id"`
	Recipient string      `json:"recipient"`
	Input     string      `json:"input"`
	Output    string      `json:"output"`
	InputQty  sdkmath.Int `json:"input_qty"`  // native units actually received
	OutputQty sdkmath.Int `json:"output_qty"` // native units sent out
	ScaledFee sdkmath.Int `json:"scaled_fee"` // fee in 18-decimal value units
}

// RedeemResult records the outcome of any redemption flavour.
type RedeemResult struct {
	OpID      string        `json:"op_id"`
	Recipient string        `json:"recipient"`
	Outputs   []string      `json:"outputs"`
	Quantity  []sdkmath.Int `json:"quantity"` // native units sent out per output
	Burned    sdkmath.Int   `json:"burned"`   // pool tokens burned
	ScaledFee sdkmath.Int   `json:"scaled_fee"`
}
