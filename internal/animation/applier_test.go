package animation

import (
	gomath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/rose-motion/internal/engine/camera"
	"github.com/Faultbox/rose-motion/pkg/math"
)

func envAt(src ClipSource, elapsed float64, delta float32) *Env {
	return &Env{Clips: src, Time: Tick{Elapsed: elapsed, Delta: delta}}
}

func TestSkeletalAnimationAppliesPose(t *testing.T) {
	src := newFakeSource()
	src.add(1, linearClip(10, 10))

	skel := NewSkeleton(2)
	anim := NewSkeletalAnimation(Once(1), 7, skel)

	anim.Update(envAt(src, 0, 0))
	anim.Update(envAt(src, 0.35, 0.35))

	assert.InDelta(t, 3.5, skel.Joints[0].Translation.X, 1e-5)
	assert.Equal(t, math.IdentityTransform(), skel.Joints[1], "joint without channels is untouched")
}

func TestSkeletalAnimationEaseIn(t *testing.T) {
	clip := linearClip(2, 1)
	clip.InterpolationInterval = 1
	for f := range clip.Joints[0].Translation {
		clip.Joints[0].Translation[f] = math.Vec3{X: 10}
	}

	src := newFakeSource()
	src.add(1, clip)
	skel := NewSkeleton(1)
	anim := NewSkeletalAnimation(Repeat(1, RepeatForever), 1, skel)

	anim.Update(envAt(src, 0.5, 0.5))
	want := 10 * float32(gomath.Sin(0.5*gomath.Pi/2))
	assert.InDelta(t, want, skel.Joints[0].Translation.X, 1e-4)

	anim.Update(envAt(src, 1.0, 0.5))
	assert.InDelta(t, 10, skel.Joints[0].Translation.X, 1e-6, "full weight once the blend finishes")
}

func TestEaseOutSineBoundaries(t *testing.T) {
	assert.InDelta(t, 0, easeOutSine(0), 1e-7)
	assert.InDelta(t, 1, easeOutSine(1), 1e-7)
}

func TestSkeletalAnimationEmitsEvents(t *testing.T) {
	clip := linearClip(10, 10)
	clip.FrameEvents[1] = 10
	clip.FrameEvents[3] = 99 // unmapped
	clip.FrameEvents[5] = 21

	table := NewEventTable()
	table.Set(10, EventSoundFootstep)
	table.Set(21, EventEffectWeaponAttackHit)

	src := newFakeSource()
	src.add(1, clip)
	var queue EventQueue

	// A missing skeleton still advances and emits
	anim := NewSkeletalAnimation(Once(1), 42, nil)
	env := &Env{Clips: src, Events: table, Sink: &queue}

	env.Time = Tick{Elapsed: 0, Delta: 0}
	anim.Update(env)
	env.Time = Tick{Elapsed: 0.6, Delta: 0.6}
	anim.Update(env)

	assert.Equal(t, []FrameEvent{
		{Entity: 42, EventID: 10, Flags: EventSoundFootstep},
		{Entity: 42, EventID: 21, Flags: EventEffectWeaponAttackHit},
	}, queue.Drain())
}

func TestSkeletalAnimationNoEventsWhileDelayed(t *testing.T) {
	clip := linearClip(10, 10)
	clip.FrameEvents[0] = 10

	table := NewEventTable()
	table.Set(10, EventSoundFootstep)

	src := newFakeSource()
	src.add(1, clip)
	var queue EventQueue
	env := &Env{Clips: src, Events: table, Sink: &queue}

	anim := NewSkeletalAnimation(Once(1).WithStartDelay(1), 1, NewSkeleton(1))
	env.Time = Tick{Elapsed: 0.5, Delta: 0.5}
	anim.Update(env)
	assert.Zero(t, queue.Len())

	env.Time = Tick{Elapsed: 1, Delta: 0.5}
	anim.Update(env)
	assert.Equal(t, 1, queue.Len())
}

func TestAnimationWaitsForLoadingClip(t *testing.T) {
	src := newFakeSource()
	src.states[1] = LoadStateLoading

	anim := NewSkeletalAnimation(Once(1), 1, NewSkeleton(1))
	anim.Update(envAt(src, 3, 0.1))

	assert.False(t, anim.Completed())
	_, started := anim.StartTime()
	assert.False(t, started)

	src.add(1, linearClip(10, 10))
	anim.Update(envAt(src, 4, 0.1))
	start, started := anim.StartTime()
	require.True(t, started)
	assert.Equal(t, 4.0, start, "start time is taken on the first tick the clip is available")
}

func TestAnimationCompletesOnFailedClip(t *testing.T) {
	for _, state := range []LoadState{LoadStateFailed, LoadStateUnloaded} {
		t.Run(state.String(), func(t *testing.T) {
			src := newFakeSource()
			src.states[1] = state

			tr := math.IdentityTransform()
			anim := NewTransformAnimation(Repeat(1, RepeatForever), &tr)
			anim.Update(envAt(src, 0, 0))

			assert.True(t, anim.Completed())
			assert.Equal(t, math.IdentityTransform(), tr)
		})
	}
}

func cameraClip() *Clip {
	one := func(v math.Vec3) []math.Vec3 { return []math.Vec3{v, v} }
	return &Clip{
		NumFrames:             2,
		FPS:                   10,
		FrameEvents:           make([]uint16, 2),
		InterpolationInterval: 0.5,
		Joints: []JointChannel{
			{Translation: one(math.Vec3{X: 0, Y: 0, Z: 10})},
			{Translation: one(math.Vec3{})},
			{Translation: one(math.Vec3{X: 0, Y: 1, Z: 0})},
			{Translation: one(math.Vec3{X: 0.45, Y: 100, Z: -0.5})},
		},
	}
}

func TestCameraAnimation(t *testing.T) {
	src := newFakeSource()
	src.add(1, cameraClip())

	cam := camera.New()
	anim := NewCameraAnimation(Once(1), cam)
	anim.Update(envAt(src, 0, 0))

	pos := cam.Transform.Translation
	assert.True(t, pos.ApproxEqual(math.Vec3{X: 5200, Y: 0, Z: -5190}, 1e-3), "got %+v", pos)

	fwd := cam.Transform.Forward()
	assert.True(t, fwd.ApproxEqual(math.Vec3{X: 0, Y: 0, Z: -1}, 1e-5), "got %+v", fwd)

	assert.InDelta(t, gomath.Pi/4, cam.Projection.FovY, 1e-5)
	assert.InDelta(t, 0.5, cam.Projection.Near, 1e-6)
	assert.InDelta(t, 1000, cam.Projection.Far, 1e-3)
}

func TestCameraAnimationMissingUpKeepsTransform(t *testing.T) {
	clip := cameraClip()
	clip.Joints[2].Translation = nil

	src := newFakeSource()
	src.add(1, clip)

	cam := camera.New()
	before := cam.Transform
	NewCameraAnimation(Once(1), cam).Update(envAt(src, 0, 0))

	assert.Equal(t, before, cam.Transform)
	assert.InDelta(t, 0.5, cam.Projection.Near, 1e-6, "projection is applied independently")
}

func meshClip(bake *VertexBake) *Clip {
	return &Clip{
		NumFrames:             4,
		FPS:                   4,
		FrameEvents:           make([]uint16, 4),
		InterpolationInterval: 0.5,
		VertexBake:            bake,
	}
}

func TestMeshAnimation(t *testing.T) {
	src := newFakeSource()
	src.add(1, meshClip(&VertexBake{
		HasPosition: true,
		HasAlpha:    true,
		Alphas:      []float32{0, 1, 0.5, 0.5},
	}))

	var state MeshRenderState
	anim := NewMeshAnimation(Repeat(1, RepeatForever), &state)
	anim.Update(envAt(src, 0, 0))
	anim.Update(envAt(src, 0.375, 0.375))

	assert.Equal(t, MeshAnimatePosition|MeshAnimateAlpha|4<<4, state.Flags)
	assert.Equal(t, 4, state.FrameCount())

	current, next := state.Frames()
	assert.Equal(t, 1, current)
	assert.Equal(t, 2, next)
	assert.Equal(t, uint32(1|2<<16), state.CurrentNextFrame)
	assert.InDelta(t, 0.5, state.NextWeight, 1e-6)
	assert.InDelta(t, 0.75, state.Alpha, 1e-6)
}

func TestMeshAnimationWithoutBake(t *testing.T) {
	src := newFakeSource()
	src.add(1, meshClip(nil))

	state := MeshRenderState{Flags: 0xff}
	NewMeshAnimation(Once(1), &state).Update(envAt(src, 0, 0))
	assert.Zero(t, state.Flags)
}

func TestTransformAnimation(t *testing.T) {
	src := newFakeSource()
	src.add(1, linearClip(10, 10))

	tr := math.IdentityTransform()
	anim := NewTransformAnimation(Once(1), &tr)
	anim.Update(envAt(src, 0, 0))
	anim.Update(envAt(src, 0.25, 0.25))

	assert.InDelta(t, 2.5, tr.Translation.X, 1e-5)
	assert.True(t, tr.Scale.ApproxEqual(math.Splat(3.5), 1e-5), "uniform scale, got %+v", tr.Scale)

	// Completing tick still writes the held final pose
	anim.Update(envAt(src, 5, 4.75))
	assert.True(t, anim.Completed())
	assert.InDelta(t, 9, tr.Translation.X, 1e-5)
}

func TestAppliersTolerateNilTargets(t *testing.T) {
	src := newFakeSource()
	src.add(1, linearClip(10, 10))
	env := envAt(src, 0, 0)

	animators := []Animator{
		NewCameraAnimation(Once(1), nil),
		NewMeshAnimation(Once(1), nil),
		NewTransformAnimation(Once(1), nil),
	}
	for _, a := range animators {
		assert.NotPanics(t, func() { a.Update(env) })
	}
}
