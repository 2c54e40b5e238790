// Package animation plays back ZMO motions and projects the sampled poses onto
// skeletons, cameras, vertex-animated meshes and plain transforms.
package animation

import (
	"github.com/Faultbox/rose-motion/pkg/math"
)

// ClipForm selects which encoding a motion is built into.
type ClipForm uint8

const (
	// FormJoint keeps per-joint translation/rotation/scale channels.
	FormJoint ClipForm = iota
	// FormVertexTexture bakes per-vertex channels into a float texture.
	FormVertexTexture
)

// String returns the form name.
func (f ClipForm) String() string {
	switch f {
	case FormJoint:
		return "joint"
	case FormVertexTexture:
		return "vertex-texture"
	default:
		return "unknown"
	}
}

// JointChannel holds the keyframes for one joint (or camera/morph channel).
// An absent channel is an empty slice; otherwise it has one sample per frame.
type JointChannel struct {
	Translation []math.Vec3
	Rotation    []math.Quat
	Scale       []float32
}

// FloatImage is a 2D RGBA32F image. Pix holds Width*Height*4 floats, row-major.
type FloatImage struct {
	Width  int
	Height int
	Pix    []float32
}

// NewFloatImage allocates a zeroed image.
func NewFloatImage(width, height int) *FloatImage {
	return &FloatImage{
		Width:  width,
		Height: height,
		Pix:    make([]float32, width*height*4),
	}
}

// At returns the texel at column x, row y.
func (img *FloatImage) At(x, y int) [4]float32 {
	i := (y*img.Width + x) * 4
	return [4]float32{img.Pix[i], img.Pix[i+1], img.Pix[i+2], img.Pix[i+3]}
}

// Set stores the texel at column x, row y.
func (img *FloatImage) Set(x, y int, v [4]float32) {
	i := (y*img.Width + x) * 4
	copy(img.Pix[i:i+4], v[:])
}

// VertexBake is the GPU-sampled encoding of a vertex-animated mesh motion.
type VertexBake struct {
	// Image has one row per vertex. Columns [0, frames) hold
	// (pos.x, pos.z, -pos.y, uv.x); when normals or uvs are animated columns
	// [frames, 2*frames) hold (normal.x, normal.z, -normal.y, uv.y).
	Image *FloatImage

	// Texture is the id returned by the ImageAllocator, 0 when none was used.
	Texture uint32

	// Alphas stays on the CPU for render-state packing and transparency sorting.
	Alphas []float32

	HasPosition bool
	HasNormal   bool
	HasAlpha    bool
	HasUV       bool
}

// Clip is an immutable motion shared by every cursor that plays it.
type Clip struct {
	NumFrames int
	FPS       int

	// FrameEvents has one event id per frame, 0 = none.
	FrameEvents []uint16

	// InterpolationInterval is the blend-in window in seconds, always > 0.
	InterpolationInterval float32

	Joints     []JointChannel
	VertexBake *VertexBake
}

// Form reports which encoding the clip serves.
func (c *Clip) Form() ClipForm {
	if c.VertexBake != nil {
		return FormVertexTexture
	}
	return FormJoint
}

// Duration returns the length of one loop in seconds at speed 1.
func (c *Clip) Duration() float64 {
	return float64(c.NumFrames) / float64(c.FPS)
}

// FrameEvent returns the event id authored on frame, 0 if none.
func (c *Clip) FrameEvent(frame int) uint16 {
	if frame < 0 || frame >= len(c.FrameEvents) {
		return 0
	}
	return c.FrameEvents[frame]
}

func (c *Clip) joint(channel int) *JointChannel {
	if channel < 0 || channel >= len(c.Joints) {
		return nil
	}
	return &c.Joints[channel]
}

// Translation returns the raw translation keyframe of channel at frame.
func (c *Clip) Translation(channel, frame int) (math.Vec3, bool) {
	j := c.joint(channel)
	if j == nil || frame < 0 || frame >= len(j.Translation) {
		return math.Vec3{}, false
	}
	return j.Translation[frame], true
}

// Rotation returns the raw rotation keyframe of channel at frame.
func (c *Clip) Rotation(channel, frame int) (math.Quat, bool) {
	j := c.joint(channel)
	if j == nil || frame < 0 || frame >= len(j.Rotation) {
		return math.Quat{}, false
	}
	return j.Rotation[frame], true
}

// Scale returns the raw uniform scale keyframe of channel at frame.
func (c *Clip) Scale(channel, frame int) (float32, bool) {
	j := c.joint(channel)
	if j == nil || frame < 0 || frame >= len(j.Scale) {
		return 0, false
	}
	return j.Scale[frame], true
}

// SampleTranslation lerps channel between the current and next frame.
// It reports false when either keyframe is missing; callers must then leave
// their target untouched.
func (c *Clip) SampleTranslation(channel int, fract float32, current, next int) (math.Vec3, bool) {
	a, ok := c.Translation(channel, current)
	if !ok {
		return math.Vec3{}, false
	}
	b, ok := c.Translation(channel, next)
	if !ok {
		return math.Vec3{}, false
	}
	return a.Lerp(b, fract), true
}

// SampleRotation slerps channel between the current and next frame along the shortest arc.
func (c *Clip) SampleRotation(channel int, fract float32, current, next int) (math.Quat, bool) {
	a, ok := c.Rotation(channel, current)
	if !ok {
		return math.Quat{}, false
	}
	b, ok := c.Rotation(channel, next)
	if !ok {
		return math.Quat{}, false
	}
	return a.Slerp(b, fract), true
}

// SampleScale lerps the uniform scale of channel between the current and next frame.
func (c *Clip) SampleScale(channel int, fract float32, current, next int) (float32, bool) {
	a, ok := c.Scale(channel, current)
	if !ok {
		return 0, false
	}
	b, ok := c.Scale(channel, next)
	if !ok {
		return 0, false
	}
	return a + (b-a)*fract, true
}
