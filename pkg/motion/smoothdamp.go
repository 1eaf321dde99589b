// Package motion turns sparse raw positions into a smoothed position and speed.
package motion

import "math"

// minSmoothTime keeps omega finite.
const minSmoothTime = 1e-4

// SmoothDamp moves current toward target like a critically damped spring
// and never overshoots. velocity is the filter state carried between calls.
// smoothTime is roughly the time to reach the target; dt <= 0 leaves both
// current and velocity unchanged. maxSpeed <= 0 means unlimited.
func SmoothDamp(current, target float64, velocity *float64, smoothTime, maxSpeed, dt float64) float64 {
	if dt <= 0 {
		return current
	}

	smoothTime = math.Max(minSmoothTime, smoothTime)
	omega := 2 / smoothTime

	// Pade approximation of exp(-omega*dt)
	x := omega * dt
	decay := 1 / (1 + x + 0.48*x*x + 0.235*x*x*x)

	change := current - target
	originalTarget := target

	if maxSpeed > 0 {
		maxChange := maxSpeed * smoothTime
		change = math.Max(-maxChange, math.Min(maxChange, change))
	}
	target = current - change

	temp := (*velocity + omega*change) * dt
	*velocity = (*velocity - omega*temp) * decay
	output := target + (change+temp)*decay

	// Clamp to the target instead of crossing it
	if (originalTarget-current > 0) == (output > originalTarget) {
		output = originalTarget
		*velocity = (output - originalTarget) / dt
	}

	return output
}
