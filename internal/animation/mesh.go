package animation

// Bits of MeshRenderState.Flags telling the vertex shader which baked
// attributes to read. The clip's frame count is packed above them.
const (
	MeshAnimatePosition uint32 = 1 << 0
	MeshAnimateNormal   uint32 = 1 << 1
	MeshAnimateUV       uint32 = 1 << 2
	MeshAnimateAlpha    uint32 = 1 << 3

	meshFrameCountShift = 4
)

// MeshRenderState is the per-instance data a vertex-animated mesh is drawn with.
type MeshRenderState struct {
	// Flags holds the MeshAnimate bits, and the frame count shifted left by 4.
	Flags uint32
	// CurrentNextFrame packs the current frame in the low 16 bits and the next in the high.
	CurrentNextFrame uint32
	NextWeight       float32
	Alpha            float32
}

// FrameCount unpacks the frame count from Flags.
func (s MeshRenderState) FrameCount() int {
	return int(s.Flags >> meshFrameCountShift)
}

// Frames unpacks the current and next frame indices.
func (s MeshRenderState) Frames() (current, next int) {
	return int(s.CurrentNextFrame & 0xffff), int(s.CurrentNextFrame >> 16)
}

// MeshAnimation drives the render state of a mesh animated by a vertex-texture clip.
type MeshAnimation struct {
	Cursor
	State *MeshRenderState
}

// NewMeshAnimation binds cursor to state.
func NewMeshAnimation(cursor Cursor, state *MeshRenderState) *MeshAnimation {
	return &MeshAnimation{Cursor: cursor, State: state}
}

// Update advances the animation and writes the render state.
func (a *MeshAnimation) Update(env *Env) {
	clip := step(&a.Cursor, env)
	if clip == nil || a.State == nil {
		return
	}

	bake := clip.VertexBake
	if bake == nil {
		a.State.Flags = 0
		return
	}

	current, next, fract := a.CurrentFrame(), a.NextFrame(), a.FrameFract()

	var flags uint32
	if bake.HasPosition {
		flags |= MeshAnimatePosition
	}
	if bake.HasNormal {
		flags |= MeshAnimateNormal
	}
	if bake.HasUV {
		flags |= MeshAnimateUV
	}
	if bake.HasAlpha {
		flags |= MeshAnimateAlpha
		if current < len(bake.Alphas) && next < len(bake.Alphas) {
			a.State.Alpha = bake.Alphas[current]*(1-fract) + bake.Alphas[next]*fract
		}
	}

	a.State.Flags = flags | uint32(clip.NumFrames)<<meshFrameCountShift
	a.State.CurrentNextFrame = uint32(current) | uint32(next)<<16
	a.State.NextWeight = fract
}
