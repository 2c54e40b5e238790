// Package camera provides the cameras motion playback renders through.
package camera

import (
	gomath "math"

	"github.com/Faultbox/rose-motion/pkg/math"
)

// Projection is a perspective projection. FovY is in radians.
type Projection struct {
	FovY float32
	Near float32
	Far  float32
}

// DefaultProjection returns a 45 degree projection suitable for metre-scale scenes.
func DefaultProjection() Projection {
	return Projection{
		FovY: float32(gomath.Pi / 4),
		Near: 0.1,
		Far:  1000,
	}
}

// Matrix returns the projection matrix for the given aspect ratio.
func (p Projection) Matrix(aspect float32) math.Mat4 {
	return math.Perspective(p.FovY, aspect, p.Near, p.Far)
}

// Camera is a free camera placed by a world transform. Cinematic camera
// motions write both its transform and its projection.
type Camera struct {
	Transform  math.Transform
	Projection Projection
}

// New creates a camera at the origin looking down -Z.
func New() *Camera {
	return &Camera{
		Transform:  math.IdentityTransform(),
		Projection: DefaultProjection(),
	}
}

// Position returns the camera position in world space.
func (c *Camera) Position() math.Vec3 {
	return c.Transform.Translation
}

// ViewMatrix returns the view matrix for this camera.
func (c *Camera) ViewMatrix() math.Mat4 {
	eye := c.Transform.Translation
	up := c.Transform.Rotation.Rotate(math.Vec3{X: 0, Y: 1, Z: 0})
	return math.LookAt(eye, eye.Add(c.Transform.Forward()), up)
}

// ViewProjection returns projection * view.
func (c *Camera) ViewProjection(aspect float32) math.Mat4 {
	return c.Projection.Matrix(aspect).Mul(c.ViewMatrix())
}

// Project maps a world-space point to normalized device coordinates.
// It reports false for points behind the camera or outside the depth range.
func (c *Camera) Project(p math.Vec3, aspect float32) (math.Vec3, bool) {
	return project(c.ViewMatrix(), c.Projection, p, aspect)
}

func project(view math.Mat4, proj Projection, p math.Vec3, aspect float32) (math.Vec3, bool) {
	v := view.TransformVec3(p)
	depth := -v.Z
	if depth < proj.Near || depth > proj.Far {
		return math.Vec3{}, false
	}
	return proj.Matrix(aspect).TransformVec3(v), true
}
