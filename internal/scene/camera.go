package scene

import "math"

// Camera looks at the scene origin from Position.
type Camera struct {
	Position Vec3
	FOV      float64 // vertical, degrees
	Near     float64
	Far      float64
}

// Camera motion constants. The smoothing time constant reproduces a 5%
// per-frame approach at 60 fps regardless of the actual frame rate.
const (
	lookAroundScale = 0.006
	idleDepth       = 1000.0
	rollingDepth    = 3000.0
	idleSwirl       = 0.002 // rad/s
	rollingSwirl    = 0.2   // rad/s
	startDepth      = 1.4
)

var smoothingTau = (1.0 / 60.0) / -math.Log(0.95)

// approach moves current toward target by exponential smoothing over dt
// seconds.
func approach(current, target, dt float64) float64 {
	if dt <= 0 {
		return current
	}
	alpha := 1 - math.Exp(-dt/smoothingTau)
	return current + (target-current)*alpha
}

// basis returns the forward, right and up vectors of a camera looking at
// the origin.
func (c Camera) basis() (forward, right, up Vec3) {
	forward = c.Position.Scale(-1).Norm()
	if forward.Len() == 0 {
		forward = Vec3{0, 0, -1}
	}
	right = forward.Cross(Vec3{0, 1, 0}).Norm()
	if right.Len() == 0 {
		right = Vec3{1, 0, 0}
	}
	up = right.Cross(forward)
	return forward, right, up
}
