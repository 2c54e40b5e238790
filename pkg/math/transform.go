package math

// Transform is a translation, rotation and scale applied in TRS order.
type Transform struct {
	Translation Vec3
	Rotation    Quat
	Scale       Vec3
}

// IdentityTransform returns a transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{
		Rotation: QuatIdentity(),
		Scale:    Splat(1),
	}
}

// TransformFromTranslation returns an identity transform moved to t.
func TransformFromTranslation(t Vec3) Transform {
	tr := IdentityTransform()
	tr.Translation = t
	return tr
}

// LookingAt returns a copy of t rotated so -Z faces target.
// The rotation is left untouched when target coincides with the translation.
func (t Transform) LookingAt(target, up Vec3) Transform {
	forward := target.Sub(t.Translation)
	if forward.Length() < 1e-6 {
		return t
	}
	t.Rotation = QuatLookTo(forward.Normalize(), up)
	return t
}

// Forward returns the direction of the local -Z axis.
func (t Transform) Forward() Vec3 {
	return t.Rotation.Rotate(Vec3{0, 0, -1})
}

// Matrix returns the 4x4 model matrix.
func (t Transform) Matrix() Mat4 {
	m := Translate(t.Translation.X, t.Translation.Y, t.Translation.Z)
	m = m.Mul(t.Rotation.ToMat4())
	return m.Mul(Scale(t.Scale.X, t.Scale.Y, t.Scale.Z))
}
