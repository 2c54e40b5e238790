package animation

import (
	"github.com/Faultbox/rose-motion/pkg/math"
)

// TransformAnimation drives a single transform from channel 0 of a joint clip.
// It snaps to the sampled pose without a blend-in.
type TransformAnimation struct {
	Cursor
	Transform *math.Transform
}

// NewTransformAnimation binds cursor to t.
func NewTransformAnimation(cursor Cursor, t *math.Transform) *TransformAnimation {
	return &TransformAnimation{Cursor: cursor, Transform: t}
}

// Update advances the animation and writes the sampled transform.
func (a *TransformAnimation) Update(env *Env) {
	clip := step(&a.Cursor, env)
	if clip == nil || a.Transform == nil {
		return
	}

	fract, current, next := a.FrameFract(), a.CurrentFrame(), a.NextFrame()

	if t, ok := clip.SampleTranslation(0, fract, current, next); ok {
		a.Transform.Translation = t
	}
	if r, ok := clip.SampleRotation(0, fract, current, next); ok {
		a.Transform.Rotation = r
	}
	if s, ok := clip.SampleScale(0, fract, current, next); ok {
		a.Transform.Scale = math.Splat(s)
	}
}
