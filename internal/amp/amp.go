/*

Amplification coefficient schedule. The effective A is a pure time-linear
interpolation between InitialA and TargetA over [RampStartTime, RampEndTime],
clamped outside the window. Governance starts and stops ramps under the Curve
bounds: at most a 10x move per ramp, an absolute ceiling, a minimum ramp
duration and a cooldown between consecutive ramps.

*/

package amp

import (
	"errors"

	sdkmath "cosmossdk.io/math"

	"github.com/basketfi/svp/internal/invariant"
	"github.com/basketfi/svp/internal/types"
)

const (
	// MaxA is the absolute ceiling, in whole A units.
	MaxA = 1_000_000
	// MaxAChange bounds a single ramp to a 10x move in either direction.
	MaxAChange = 10
	// MinRampTime is the minimum ramp duration in seconds.
	MinRampTime = 86400
	// RampCooldown is the required gap after a ramp ends before the next
	// one may start, in seconds.
	RampCooldown = 86400
)

var (
	ErrRampTimeTooShort         = errors.New("amp: ramp end time too soon")
	ErrRampTooSoon              = errors.New("amp: cooldown since previous ramp not elapsed")
	ErrTargetOutOfBounds        = errors.New("amp: target A outside absolute bounds")
	ErrTargetIncreaseTooBig     = errors.New("amp: target A more than 10x current")
	ErrTargetDecreaseTooBig     = errors.New("amp: target A less than 0.1x current")
	ErrAmplificationNotChanging = errors.New("amp: amplification is not ramping")
)

// CurrentA returns the effective A at `now` (unix seconds), at APrecision.
func CurrentA(data types.AmpData, now uint64) sdkmath.Int {
	t0, t1 := data.RampStartTime, data.RampEndTime
	if now >= t1 || t0 == t1 {
		return data.TargetA
	}
	if now <= t0 {
		return data.InitialA
	}
	elapsed := sdkmath.NewIntFromUint64(now - t0)
	window := sdkmath.NewIntFromUint64(t1 - t0)
	// Unsigned convention: branch on direction rather than subtracting into
	// a negative.
	if data.TargetA.GT(data.InitialA) {
		step := data.TargetA.Sub(data.InitialA).Mul(elapsed).Quo(window)
		return data.InitialA.Add(step)
	}
	step := data.InitialA.Sub(data.TargetA).Mul(elapsed).Quo(window)
	return data.InitialA.Sub(step)
}

// StartRamp begins a linear ramp toward targetA (whole A units) finishing at
// endTime. On success the schedule starts one second in the future, from the
// currently effective A.
func StartRamp(data *types.AmpData, targetA sdkmath.Int, endTime, now uint64) error {
	if now < data.RampEndTime+RampCooldown {
		return ErrRampTooSoon
	}
	if endTime < now+MinRampTime {
		return ErrRampTimeTooShort
	}
	if !targetA.IsPositive() || targetA.GTE(sdkmath.NewInt(MaxA)) {
		return ErrTargetOutOfBounds
	}

	current := CurrentA(*data, now)
	target := targetA.MulRaw(invariant.APrecision)
	if target.LT(current) {
		if target.MulRaw(MaxAChange).LT(current) {
			return ErrTargetDecreaseTooBig
		}
	} else {
		if target.GT(current.MulRaw(MaxAChange)) {
			return ErrTargetIncreaseTooBig
		}
	}

	data.InitialA = current
	data.TargetA = target
	data.RampStartTime = now + 1
	data.RampEndTime = endTime
	return nil
}

// StopRamp freezes the schedule at the currently effective A. A ramp that has
// already completed reads as stable and cannot be stopped again.
func StopRamp(data *types.AmpData, now uint64) error {
	if now >= data.RampEndTime {
		return ErrAmplificationNotChanging
	}
	current := CurrentA(*data, now)
	data.InitialA = current
	data.TargetA = current
	data.RampStartTime = now
	data.RampEndTime = now
	return nil
}
