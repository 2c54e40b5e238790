package animation

import (
	gomath "math"

	"github.com/Faultbox/rose-motion/pkg/math"
)

// Skeleton is the local pose of every joint of a skinned instance.
type Skeleton struct {
	Joints []math.Transform
}

// NewSkeleton creates a skeleton of n joints in the identity pose.
func NewSkeleton(n int) *Skeleton {
	s := &Skeleton{Joints: make([]math.Transform, n)}
	for i := range s.Joints {
		s.Joints[i] = math.IdentityTransform()
	}
	return s
}

// SkeletalAnimation drives the joint transforms of a skinned instance and
// reports the frame events it crosses.
type SkeletalAnimation struct {
	Cursor
	Entity   EntityID
	Skeleton *Skeleton
}

// NewSkeletalAnimation binds cursor to a skeleton. A nil skeleton still
// advances the cursor and delivers events.
func NewSkeletalAnimation(cursor Cursor, entity EntityID, skeleton *Skeleton) *SkeletalAnimation {
	return &SkeletalAnimation{Cursor: cursor, Entity: entity, Skeleton: skeleton}
}

// Update advances the animation and writes the sampled pose.
// Frame events start once the start delay has run out.
func (a *SkeletalAnimation) Update(env *Env) {
	clip := step(&a.Cursor, env)
	if clip == nil {
		return
	}

	if a.Skeleton != nil {
		a.applyPose(clip)
	}

	if a.State() != CursorDelayed {
		a.IterFrameEvents(clip, func(id uint16) {
			env.emit(a.Entity, id)
		})
	}
}

func (a *SkeletalAnimation) applyPose(clip *Clip) {
	fract, current, next := a.FrameFract(), a.CurrentFrame(), a.NextFrame()

	weight, blending := a.InterpolateWeight()
	if blending {
		weight = easeOutSine(weight)
	}

	for i := range a.Skeleton.Joints {
		joint := &a.Skeleton.Joints[i]

		if t, ok := clip.SampleTranslation(i, fract, current, next); ok {
			if blending {
				t = joint.Translation.Lerp(t, weight)
			}
			joint.Translation = t
		}

		if r, ok := clip.SampleRotation(i, fract, current, next); ok {
			if blending {
				r = joint.Rotation.Slerp(r, weight)
			}
			joint.Rotation = r
		}
	}
}

// easeOutSine maps a linear blend weight onto a quarter sine.
func easeOutSine(w float32) float32 {
	return float32(gomath.Sin(float64(w) * gomath.Pi / 2))
}
