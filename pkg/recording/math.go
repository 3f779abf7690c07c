/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package recording

import "math"

const (
	degToRad = math.Pi / 180
	radToDeg = 180 / math.Pi

	singularityThreshold = 0.4999995
)

type Vector struct {
	X, Y, Z float32
}

// Quantize rounds every component to the nearest whole unit.
func (v Vector) Quantize() Vector {
	return Vector{
		X: float32(QuantizeComponent(v.X)),
		Y: float32(QuantizeComponent(v.Y)),
		Z: float32(QuantizeComponent(v.Z)),
	}
}

// QuantizeComponent rounds half away from zero.
func QuantizeComponent(f float32) int32 {
	return int32(math.Round(float64(f)))
}

// Quat is a rotation quaternion.
type Quat struct {
	X, Y, Z, W float32
}

var IdentityQuat = Quat{W: 1}

// NormalizeAxis maps an angle in degrees to (-180, 180].
func NormalizeAxis(angle float64) float64 {
	angle = math.Mod(angle, 360)
	if angle < 0 {
		angle += 360
	}
	if angle > 180 {
		angle -= 360
	}
	return angle
}

// QuatToEuler converts to (roll, pitch, yaw) in degrees.  Near the poles
// pitch is clamped to +-90 and the remaining rotation is folded into roll.
func QuatToEuler(q Quat) Vector {
	x, y, z, w := float64(q.X), float64(q.Y), float64(q.Z), float64(q.W)

	singularity := z*x - w*y
	yaw := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z)) * radToDeg

	var pitch, roll float64
	switch {
	case singularity < -singularityThreshold:
		pitch = -90
		roll = NormalizeAxis(-yaw - 2*math.Atan2(x, w)*radToDeg)
	case singularity > singularityThreshold:
		pitch = 90
		roll = NormalizeAxis(yaw - 2*math.Atan2(x, w)*radToDeg)
	default:
		pitch = math.Asin(2*singularity) * radToDeg
		roll = math.Atan2(-2*(w*x+y*z), 1-2*(x*x+y*y)) * radToDeg
	}

	return Vector{X: float32(roll), Y: float32(pitch), Z: float32(yaw)}
}

// EulerToQuat is the inverse of QuatToEuler.
func EulerToQuat(euler Vector) Quat {
	sr, cr := math.Sincos(float64(euler.X) * degToRad / 2)
	sp, cp := math.Sincos(float64(euler.Y) * degToRad / 2)
	sy, cy := math.Sincos(float64(euler.Z) * degToRad / 2)

	return Quat{
		X: float32(cr*sp*sy - sr*cp*cy),
		Y: float32(-cr*sp*cy - sr*cp*sy),
		Z: float32(cr*cp*sy - sr*sp*cy),
		W: float32(cr*cp*cy + sr*sp*sy),
	}
}
