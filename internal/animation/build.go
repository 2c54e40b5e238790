package animation

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/rose-motion/internal/logger"
	"github.com/Faultbox/rose-motion/pkg/formats"
	"github.com/Faultbox/rose-motion/pkg/math"
)

const (
	// DefaultInterpolationInterval is used when the motion file does not specify one.
	DefaultInterpolationInterval float32 = 0.5

	// minInterpolationInterval keeps the blend-in division finite.
	minInterpolationInterval float32 = 0.0001

	// ZMO positions are stored in centimetres.
	positionScale float32 = 100
)

// ImageAllocator receives a baked vertex-animation image and returns the id of
// the texture it was uploaded to.
type ImageAllocator func(img *FloatImage) (uint32, error)

// BuildClip parses data and builds it into the requested form.
func BuildClip(data []byte, form ClipForm, alloc ImageAllocator) (*Clip, error) {
	switch form {
	case FormJoint:
		return BuildJointClip(data)
	case FormVertexTexture:
		return BuildVertexClip(data, alloc)
	default:
		return nil, fmt.Errorf("unknown clip form %d", form)
	}
}

// BuildJointClip parses a ZMO file into per-joint channels.
func BuildJointClip(data []byte) (*Clip, error) {
	zmo, err := formats.ParseZMO(data)
	if err != nil {
		return nil, fmt.Errorf("parsing motion: %w", err)
	}
	return JointClipFromZMO(zmo), nil
}

// JointClipFromZMO converts parsed channels into joint form, moving them from
// the file's Z-up centimetre space into the engine's Y-up metre space.
func JointClipFromZMO(zmo *formats.ZMO) *Clip {
	maxJoint := uint32(0)
	for i := range zmo.Channels {
		maxJoint = max(maxJoint, zmo.Channels[i].Index)
	}

	// Camera and morph motions have no skeleton: every channel claims joint 0,
	// so the channel's position in the list becomes its id.
	byPosition := maxJoint == 0 && len(zmo.Channels) > 2
	if byPosition {
		maxJoint = uint32(len(zmo.Channels) - 1)
	}

	joints := make([]JointChannel, maxJoint+1)
	for i := range zmo.Channels {
		ch := &zmo.Channels[i]

		joint := &joints[ch.Index]
		if byPosition {
			joint = &joints[i]
		}

		switch ch.Type {
		case formats.ZMOChannelPosition:
			joint.Translation = make([]math.Vec3, len(ch.Vectors))
			for f, p := range ch.Vectors {
				joint.Translation[f] = math.Vec3{X: p[0], Y: p[2], Z: -p[1]}.Scale(1 / positionScale)
			}
		case formats.ZMOChannelRotation:
			joint.Rotation = make([]math.Quat, len(ch.Rotations))
			for f, q := range ch.Rotations {
				joint.Rotation[f] = math.Quat{X: q[0], Y: q[2], Z: -q[1], W: q[3]}
			}
		case formats.ZMOChannelScale:
			joint.Scale = append([]float32(nil), ch.Scalars...)
		}
	}

	clip := &Clip{
		NumFrames:             int(zmo.NumFrames),
		FPS:                   int(zmo.FPS),
		FrameEvents:           zmo.FrameEvents,
		InterpolationInterval: interpolationInterval(zmo),
		Joints:                joints,
	}

	logger.Debug("built joint clip",
		zap.Int("frames", clip.NumFrames),
		zap.Int("fps", clip.FPS),
		zap.Int("joints", len(joints)),
		zap.Bool("channel_ids_by_position", byPosition),
	)

	return clip
}

// BuildVertexClip parses a ZMO file and bakes its per-vertex channels into a float texture.
// alloc may be nil, in which case only the CPU image is kept.
func BuildVertexClip(data []byte, alloc ImageAllocator) (*Clip, error) {
	zmo, err := formats.ParseZMO(data)
	if err != nil {
		return nil, fmt.Errorf("parsing motion: %w", err)
	}
	return VertexClipFromZMO(zmo, alloc)
}

// VertexClipFromZMO bakes parsed per-vertex channels into a float texture.
func VertexClipFromZMO(zmo *formats.ZMO, alloc ImageAllocator) (*Clip, error) {
	frames := int(zmo.NumFrames)
	bake := &VertexBake{}

	numVertices := 0
	for i := range zmo.Channels {
		ch := &zmo.Channels[i]
		numVertices = max(numVertices, int(ch.Index)+1)
		switch ch.Type {
		case formats.ZMOChannelPosition:
			bake.HasPosition = true
		case formats.ZMOChannelNormal:
			bake.HasNormal = true
		case formats.ZMOChannelAlpha:
			bake.HasAlpha = true
		case formats.ZMOChannelUV1:
			bake.HasUV = true
		}
	}

	// Second column block carries normal.xyz + uv.y
	stride := frames
	if bake.HasNormal || bake.HasUV {
		stride += frames
	}

	img := NewFloatImage(stride, numVertices)
	for i := range zmo.Channels {
		ch := &zmo.Channels[i]
		y := int(ch.Index)

		switch ch.Type {
		case formats.ZMOChannelPosition:
			for x, p := range ch.Vectors[:min(len(ch.Vectors), frames)] {
				px := img.At(x, y)
				px[0], px[1], px[2] = p[0]/positionScale, p[2]/positionScale, -p[1]/positionScale
				img.Set(x, y, px)
			}
		case formats.ZMOChannelNormal:
			for x, n := range ch.Vectors[:min(len(ch.Vectors), frames)] {
				px := img.At(frames+x, y)
				px[0], px[1], px[2] = n[0], n[2], -n[1]
				img.Set(frames+x, y, px)
			}
		case formats.ZMOChannelUV1:
			for x, uv := range ch.UVs[:min(len(ch.UVs), frames)] {
				px := img.At(x, y)
				px[3] = uv[0]
				img.Set(x, y, px)

				px = img.At(frames+x, y)
				px[3] = uv[1]
				img.Set(frames+x, y, px)
			}
		case formats.ZMOChannelAlpha:
			bake.Alphas = append([]float32(nil), ch.Scalars...)
		}
	}
	bake.Image = img

	if alloc != nil {
		id, err := alloc(img)
		if err != nil {
			return nil, fmt.Errorf("allocating vertex animation texture: %w", err)
		}
		bake.Texture = id
	}

	clip := &Clip{
		NumFrames:             frames,
		FPS:                   int(zmo.FPS),
		FrameEvents:           zmo.FrameEvents,
		InterpolationInterval: interpolationInterval(zmo),
		VertexBake:            bake,
	}

	logger.Debug("built vertex clip",
		zap.Int("frames", frames),
		zap.Int("vertices", numVertices),
		zap.Int("stride", stride),
		zap.Bool("position", bake.HasPosition),
		zap.Bool("normal", bake.HasNormal),
		zap.Bool("alpha", bake.HasAlpha),
		zap.Bool("uv", bake.HasUV),
	)

	return clip, nil
}

func interpolationInterval(zmo *formats.ZMO) float32 {
	interval := DefaultInterpolationInterval
	if zmo.InterpolationInterval != nil {
		interval = float32(*zmo.InterpolationInterval) / 1000
	}
	return max(interval, minInterpolationInterval)
}
