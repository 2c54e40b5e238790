package animation

import (
	gomath "math"
)

// CursorState is the lifecycle phase of a playback cursor.
type CursorState uint8

const (
	// CursorDelayed is waiting out its start delay.
	CursorDelayed CursorState = iota
	// CursorRunning is advancing through frames.
	CursorRunning
	// CursorCompleted has played every loop and holds the last frame.
	CursorCompleted
)

// String returns the state name.
func (s CursorState) String() string {
	switch s {
	case CursorDelayed:
		return "delayed"
	case CursorRunning:
		return "running"
	case CursorCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// RepeatForever is the loop limit of a cursor that never completes on its own.
const RepeatForever = 0

// Cursor tracks where one instance is within a shared Clip.
//
// Progress is derived from absolute elapsed time rather than accumulated
// deltas, so the same total elapsed time reaches the same frame regardless of
// how it was split into ticks.
type Cursor struct {
	motion Handle

	speed    float32
	maxLoops int

	startTime  float64
	hasStarted bool
	startDelay float32

	currentLoop  int
	currentFrame int
	nextFrame    int
	frameFract   float32

	interpolateWeight float32
	completed         bool

	// nextEventFrame is the first absolute frame whose event has not been delivered.
	nextEventFrame int
}

// Once plays motion a single time and then holds its last frame.
func Once(motion Handle) Cursor {
	return Repeat(motion, 1)
}

// Repeat plays motion limit times, or forever when limit is RepeatForever.
// Negative limits repeat forever as well.
func Repeat(motion Handle, limit int) Cursor {
	return Cursor{
		motion:    motion,
		speed:     1,
		maxLoops:  max(limit, RepeatForever),
		nextFrame: 1,
	}
}

// WithSpeed returns the cursor with a playback rate multiplier.
// Rates below zero play at speed zero.
func (c Cursor) WithSpeed(speed float32) Cursor {
	c.speed = max(speed, 0)
	return c
}

// WithMaxLoopCount returns the cursor with a new loop limit.
func (c Cursor) WithMaxLoopCount(limit int) Cursor {
	c.maxLoops = max(limit, RepeatForever)
	return c
}

// WithStartDelay returns the cursor with a start delay in seconds.
func (c Cursor) WithStartDelay(seconds float32) Cursor {
	c.SetStartDelay(seconds)
	return c
}

// SetStartDelay holds the cursor at its first frame for seconds of tick time.
// Non-positive values clear any pending delay.
func (c *Cursor) SetStartDelay(seconds float32) {
	c.startDelay = max(seconds, 0)
}

// SetSpeed changes the playback rate. Frames are derived from the time since
// start, so changing it mid-play moves the cursor proportionally.
func (c *Cursor) SetSpeed(speed float32) {
	c.speed = max(speed, 0)
}

// SetCompleted finishes the cursor without touching its frame indices.
func (c *Cursor) SetCompleted() {
	c.completed = true
}

// Motion returns the handle of the clip being played.
func (c Cursor) Motion() Handle { return c.motion }

// Speed returns the playback rate multiplier.
func (c Cursor) Speed() float32 { return c.speed }

// MaxLoopCount returns the loop limit, RepeatForever for none.
func (c Cursor) MaxLoopCount() int { return c.maxLoops }

// Completed reports whether the final loop has been played.
func (c Cursor) Completed() bool { return c.completed }

// CurrentLoop returns the zero-based loop being played.
func (c Cursor) CurrentLoop() int { return c.currentLoop }

// CurrentFrame returns the frame index sampled as "from".
func (c Cursor) CurrentFrame() int { return c.currentFrame }

// NextFrame returns the frame index sampled as "to".
func (c Cursor) NextFrame() int { return c.nextFrame }

// FrameFract returns the blend factor between the current and next frame.
func (c Cursor) FrameFract() float32 { return c.frameFract }

// StartTime returns the tick time of the first running advance.
func (c Cursor) StartTime() (float64, bool) { return c.startTime, c.hasStarted }

// State returns the lifecycle phase.
func (c Cursor) State() CursorState {
	switch {
	case c.completed:
		return CursorCompleted
	case c.startDelay > 0:
		return CursorDelayed
	default:
		return CursorRunning
	}
}

// InterpolateWeight returns the blend-in weight while the cursor is still
// blending from the pose it took over, and false once blending has finished.
func (c Cursor) InterpolateWeight() (float32, bool) {
	if c.interpolateWeight < 1 {
		return c.interpolateWeight, true
	}
	return 0, false
}

// Advance moves the cursor to the given tick time and reports whether it has completed.
// elapsed is the absolute time in seconds and delta the length of this tick.
func (c *Cursor) Advance(clip *Clip, elapsed float64, delta float32) bool {
	if c.completed {
		return true
	}

	if c.startDelay > 0 {
		c.startDelay -= delta
		if c.startDelay > 0 {
			return false
		}
		c.startDelay = 0
	}

	if !c.hasStarted {
		c.startTime = elapsed
		c.hasStarted = true
	}

	if c.interpolateWeight < 1 {
		c.interpolateWeight += delta / clip.InterpolationInterval
	}

	frames := clip.NumFrames
	position := max((elapsed-c.startTime)*float64(clip.FPS)*float64(c.speed), 0)
	whole := int(position)

	c.currentLoop = whole / frames
	if c.maxLoops != RepeatForever && c.currentLoop >= c.maxLoops {
		// Hold the final pose of the final loop
		c.completed = true
		c.frameFract = 0
		c.currentFrame = frames - 1
		c.nextFrame = frames - 1
		c.currentLoop = c.maxLoops - 1
		return true
	}

	c.frameFract = float32(position - gomath.Floor(position))
	c.currentFrame = whole % frames

	lastLoop := c.maxLoops != RepeatForever && c.currentLoop+1 >= c.maxLoops
	if c.currentFrame+1 == frames && lastLoop {
		c.nextFrame = c.currentFrame
	} else {
		c.nextFrame = (c.currentFrame + 1) % frames
	}

	return false
}

// IterFrameEvents delivers, in order and exactly once, every frame event from
// the last delivered frame through the current one, including frames skipped
// by a long tick and frames of loops that wrapped within it.
func (c *Cursor) IterFrameEvents(clip *Clip, fn func(eventID uint16)) {
	frames := clip.NumFrames
	current := c.currentFrame + c.currentLoop*frames
	for c.nextEventFrame <= current {
		if id := clip.FrameEvent(c.nextEventFrame % frames); id != 0 {
			fn(id)
		}
		c.nextEventFrame++
	}
}
