package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// epsilon is the length below which a direction is treated as undefined.
const epsilon = 1e-9

// unitOrZero normalizes v. ok is false and the zero vector is returned when v
// is too short to have a direction.
func unitOrZero(v r2.Vec) (u r2.Vec, ok bool) {
	n := r2.Norm(v)
	if n < epsilon || math.IsNaN(n) {
		return r2.Vec{}, false
	}
	return r2.Scale(1/n, v), true
}

// capSpeed scales v down to at most maxSpeed.
func capSpeed(v r2.Vec, maxSpeed float64) r2.Vec {
	n2 := r2.Norm2(v)
	if n2 <= maxSpeed*maxSpeed {
		return v
	}
	return r2.Scale(maxSpeed/math.Sqrt(n2), v)
}

// perp rotates v a quarter turn counter-clockwise.
func perp(v r2.Vec) r2.Vec {
	return r2.Vec{X: -v.Y, Y: v.X}
}

// clampFloat clamps a value between min and max.
func clampFloat(v, minVal, maxVal float64) float64 {
	if v < minVal {
		return minVal
	}
	if v > maxVal {
		return maxVal
	}
	return v
}
