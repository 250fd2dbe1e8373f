package systems

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

var upAxis = r3.Vec{Z: 1}

// normalizeAngle wraps an angle to [-Pi, Pi].
func normalizeAngle(angle float64) float64 {
	for angle > math.Pi {
		angle -= 2 * math.Pi
	}
	for angle < -math.Pi {
		angle += 2 * math.Pi
	}
	return angle
}

// yawOf returns the heading of v in the ground plane.
func yawOf(v r3.Vec) float64 {
	return math.Atan2(v.Y, v.X)
}

// rotateYaw rotates v about +Z by yaw radians.
func rotateYaw(v r3.Vec, yaw float64) r3.Vec {
	if yaw == 0 {
		return v
	}
	return r3.NewRotation(yaw, upAxis).Rotate(v)
}

// turnToward moves yaw toward goal by at most maxStep radians.
func turnToward(yaw, goal, maxStep float64) float64 {
	diff := normalizeAngle(goal - yaw)
	if math.Abs(diff) <= maxStep {
		return normalizeAngle(goal)
	}
	if diff > 0 {
		return normalizeAngle(yaw + maxStep)
	}
	return normalizeAngle(yaw - maxStep)
}

// distSq returns the squared distance between a and b.
func distSq(a, b r3.Vec) float64 {
	return r3.Norm2(r3.Sub(a, b))
}

// clampLength scales v down to at most maxLen.
func clampLength(v r3.Vec, maxLen float64) r3.Vec {
	n2 := r3.Norm2(v)
	if n2 <= maxLen*maxLen || n2 == 0 {
		return v
	}
	return r3.Scale(maxLen/math.Sqrt(n2), v)
}
