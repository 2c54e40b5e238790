package animation

import (
	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/logger"
)

// EntityID identifies the instance an animation drives.
type EntityID uint32

// Handle refers to a clip held by a ClipSource. The zero handle is never valid.
type Handle uint32

// LoadState is the lifecycle of a clip behind a handle.
type LoadState uint8

const (
	LoadStateUnloaded LoadState = iota
	LoadStateLoading
	LoadStateLoaded
	LoadStateFailed
)

// String returns the state name.
func (s LoadState) String() string {
	switch s {
	case LoadStateUnloaded:
		return "unloaded"
	case LoadStateLoading:
		return "loading"
	case LoadStateLoaded:
		return "loaded"
	case LoadStateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ClipSource resolves handles to clips. Lookup returns a non-nil clip only
// when the state is LoadStateLoaded.
type ClipSource interface {
	Lookup(h Handle) (*Clip, LoadState)
}

// Tick is the time input of one update.
type Tick struct {
	// Elapsed is the absolute time in seconds since the clock started.
	Elapsed float64
	// Delta is the length of this tick in seconds.
	Delta float32
}

// Clock accumulates tick deltas into absolute time.
type Clock struct {
	elapsed float64
}

// Step advances the clock by delta seconds and returns the resulting tick.
func (c *Clock) Step(delta float32) Tick {
	c.elapsed += float64(delta)
	return Tick{Elapsed: c.elapsed, Delta: delta}
}

// Elapsed returns the absolute time in seconds.
func (c *Clock) Elapsed() float64 {
	return c.elapsed
}

// Env carries the per-tick inputs shared by every animator.
type Env struct {
	Clips  ClipSource
	Time   Tick
	Events *EventTable
	Sink   EventSink
}

// emit forwards a non-empty frame event to the sink.
func (e *Env) emit(entity EntityID, id uint16) {
	if e.Sink == nil {
		return
	}
	flags := e.Events.Flags(id)
	if flags == 0 {
		return
	}
	e.Sink.Push(FrameEvent{Entity: entity, EventID: id, Flags: flags})
}

// step resolves the cursor's clip and advances it. It returns nil when there
// is nothing to apply this tick: the cursor is already completed, or the clip
// is still loading. A clip that failed or was unloaded completes the cursor.
func step(c *Cursor, env *Env) *Clip {
	if c.Completed() {
		return nil
	}

	clip, state := env.Clips.Lookup(c.motion)
	if clip == nil || state != LoadStateLoaded {
		if state == LoadStateFailed || state == LoadStateUnloaded {
			logger.Debug("motion unavailable, completing animation",
				zap.Uint32("handle", uint32(c.motion)),
				zap.Stringer("state", state),
			)
			c.SetCompleted()
		}
		return nil
	}

	c.Advance(clip, env.Time.Elapsed, env.Time.Delta)
	return clip
}
