package camera

import (
	gomath "math"

	"github.com/Faultbox/rose-motion/pkg/math"
)

// OrbitCamera orbits around a center point.
type OrbitCamera struct {
	Center math.Vec3

	// Spherical coordinates
	Distance  float32
	RotationX float32 // Pitch (radians)
	RotationY float32 // Yaw (radians)

	// Constraints
	MinDistance float32
	MaxDistance float32
	MinPitch    float32
	MaxPitch    float32

	Projection Projection
}

// NewOrbitCamera creates an orbit camera sized for a human-scale skeleton.
func NewOrbitCamera() *OrbitCamera {
	return &OrbitCamera{
		Distance:    4,
		RotationX:   0.3,
		MinDistance: 0.5,
		MaxDistance: 200,
		MinPitch:    -1.5,
		MaxPitch:    1.5,
		Projection:  DefaultProjection(),
	}
}

// Position returns the camera position in world space.
func (c *OrbitCamera) Position() math.Vec3 {
	pitch, yaw := float64(c.RotationX), float64(c.RotationY)
	offset := math.Vec3{
		X: c.Distance * float32(gomath.Cos(pitch)*gomath.Sin(yaw)),
		Y: c.Distance * float32(gomath.Sin(pitch)),
		Z: c.Distance * float32(gomath.Cos(pitch)*gomath.Cos(yaw)),
	}
	return c.Center.Add(offset)
}

// ViewMatrix returns the view matrix for this camera.
func (c *OrbitCamera) ViewMatrix() math.Mat4 {
	return math.LookAt(c.Position(), c.Center, math.Vec3{X: 0, Y: 1, Z: 0})
}

// Project maps a world-space point to normalized device coordinates.
func (c *OrbitCamera) Project(p math.Vec3, aspect float32) (math.Vec3, bool) {
	return project(c.ViewMatrix(), c.Projection, p, aspect)
}

// Rotate turns the camera by yaw and pitch radians, clamping pitch.
func (c *OrbitCamera) Rotate(yaw, pitch float32) {
	c.RotationY += yaw
	c.RotationX = min(max(c.RotationX+pitch, c.MinPitch), c.MaxPitch)
}

// Zoom scales the orbit distance by factor, clamped to the distance limits.
func (c *OrbitCamera) Zoom(factor float32) {
	c.Distance = min(max(c.Distance*factor, c.MinDistance), c.MaxDistance)
}

// FitToBounds centers the orbit on a bounding box and backs off far enough to see it.
func (c *OrbitCamera) FitToBounds(lo, hi math.Vec3) {
	c.Center = lo.Add(hi).Scale(0.5)

	size := hi.Sub(lo).Length()
	half := float64(c.Projection.FovY) / 2
	c.Distance = min(max(size/float32(gomath.Tan(half)), c.MinDistance), c.MaxDistance)
}
