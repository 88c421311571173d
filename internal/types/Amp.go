/*

This is a custom type for the amplification coefficient schedule. A values are
stored at APrecision (100 = 1.0 "A unit"); interpolation over the ramp window
is time-linear.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// AmpData bounds a linear amplification ramp. RampStartTime == RampEndTime
// (or both zero) means not ramping and the effective A equals TargetA.
type AmpData struct {
	InitialA      sdkmath.Int `json:"initial_a"` // at APrecision
	TargetA       sdkmath.Int `json:"target_a"`  // at APrecision
	RampStartTime uint64      `json:"ramp_start_time"`
	RampEndTime   uint64      `json:"ramp_end_time"`
}

// Ramping reports whether a ramp is still in progress at the given unix time.
func (a AmpData) Ramping(now uint64) bool {
	return now < a.RampEndTime
}
