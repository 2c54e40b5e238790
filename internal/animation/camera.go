package animation

import (
	gomath "math"

	"github.com/Faultbox/rose-motion/internal/engine/camera"
	"github.com/Faultbox/rose-motion/pkg/math"
)

// Cinematic camera channels
const (
	cameraChannelEye = iota
	cameraChannelTarget
	cameraChannelUp
	cameraChannelFovNearFar
)

// cameraOrigin moves camera motions from their local space into world space.
var cameraOrigin = math.Vec3{X: 5200, Y: 0, Z: -5200}

// CameraAnimation drives a camera's transform and projection from a
// four-channel cinematic motion.
type CameraAnimation struct {
	Cursor
	Camera *camera.Camera
}

// NewCameraAnimation binds cursor to cam.
func NewCameraAnimation(cursor Cursor, cam *camera.Camera) *CameraAnimation {
	return &CameraAnimation{Cursor: cursor, Camera: cam}
}

// Update advances the animation and writes the sampled camera.
func (a *CameraAnimation) Update(env *Env) {
	clip := step(&a.Cursor, env)
	if clip == nil || a.Camera == nil {
		return
	}

	fract, current, next := a.FrameFract(), a.CurrentFrame(), a.NextFrame()

	eye, hasEye := clip.SampleTranslation(cameraChannelEye, fract, current, next)
	center, hasCenter := clip.SampleTranslation(cameraChannelTarget, fract, current, next)
	up, hasUp := clip.SampleTranslation(cameraChannelUp, fract, current, next)

	if hasEye && hasCenter && hasUp {
		eye = eye.Add(cameraOrigin)
		center = center.Add(cameraOrigin)
		a.Camera.Transform = math.TransformFromTranslation(eye).LookingAt(center, up)
	}

	if fnf, ok := clip.SampleTranslation(cameraChannelFovNearFar, fract, current, next); ok {
		a.Camera.Projection.FovY = float32(float64(fnf.X*100) * gomath.Pi / 180)
		a.Camera.Projection.Near = -fnf.Z
		a.Camera.Projection.Far = fnf.Y * 10
	}
}
