package skeleton

import (
	"strings"

	"skelmodel/internal/mathutil"
)

// Override changes one joint's raw transform before it is baked.
// By default it adds to the animation: translation is summed and scale is
// multiplied, while the rotation is applied after the animated rotation,
// in the parent's frame. With Replace set the values substitute the
// animated transform. A zero Rotation or Scale keeps the animated value
// in both modes.
type Override struct {
	Translation mathutil.Vec3
	Rotation    mathutil.Quat
	Scale       mathutil.Vec3
	Replace     bool
}

// Overrides maps joint index to its override.
type Overrides map[int]Override

func (o Override) Apply(t Transform) Transform {
	out := t
	if o.Replace {
		out.Translation = o.Translation
		if o.Rotation != (mathutil.Quat{}) {
			out.Rotation = o.Rotation.Normalize()
		}
		if o.Scale != (mathutil.Vec3{}) {
			out.Scale = o.Scale
		}
		return out
	}
	out.Translation = t.Translation.Add(o.Translation)
	if o.Rotation != (mathutil.Quat{}) {
		out.Rotation = mathutil.QuatMul(o.Rotation.Normalize(), t.Rotation).Normalize()
	}
	if o.Scale != (mathutil.Vec3{}) {
		out.Scale = mathutil.Vec3{t.Scale[0] * o.Scale[0], t.Scale[1] * o.Scale[1], t.Scale[2] * o.Scale[2]}
	}
	return out
}

// OverridesByName resolves joint names, case-insensitively. Unknown names
// are returned so the caller can report them.
func (s *Skeleton) OverridesByName(byName map[string]Override) (Overrides, []string) {
	out := make(Overrides, len(byName))
	var unknown []string
	for name, o := range byName {
		j := s.JointIndex(name)
		if j < 0 {
			unknown = append(unknown, strings.ToLower(name))
			continue
		}
		out[j] = o
	}
	return out, unknown
}

func (s *Skeleton) clampFrame(f int) int {
	if f < 0 {
		return 0
	}
	if f >= s.frames {
		return s.frames - 1
	}
	return f
}

// Evaluate returns one skinning matrix per joint for the blend of frames
// f1 and f2 at factor t. Frame indices are clamped to the frame table.
// With no frames every bone is identity.
func (s *Skeleton) Evaluate(f1, f2 int, t float64, ov Overrides) []mathutil.Mat4 {
	return s.EvaluateInto(nil, f1, f2, t, ov)
}

// EvaluateInto is Evaluate writing into dst, which is grown if needed.
// Evaluation only reads the skeleton, so concurrent calls with distinct
// dst slices are safe.
func (s *Skeleton) EvaluateInto(dst []mathutil.Mat4, f1, f2 int, t float64, ov Overrides) []mathutil.Mat4 {
	n := len(s.Joints)
	if cap(dst) < n {
		dst = make([]mathutil.Mat4, n)
	}
	dst = dst[:n]
	if s.frames == 0 {
		for i := range dst {
			dst[i] = mathutil.Mat4Identity()
		}
		return dst
	}
	f1, f2 = s.clampFrame(f1), s.clampFrame(f2)

	for i, j := range s.Joints {
		var m1, m2 mathutil.Mat4
		if o, ok := ov[i]; ok {
			m1 = s.bake(i, o.Apply(s.Raw(f1, i)))
			m2 = s.bake(i, o.Apply(s.Raw(f2, i)))
		} else {
			m1, m2 = s.Baked(f1, i), s.Baked(f2, i)
		}
		m := mathutil.Mat4Lerp(m1, m2, t)
		if j.Parent >= 0 {
			m = mathutil.Mat4Mul(dst[j.Parent], m)
		}
		dst[i] = m
	}
	return dst
}

// PosedJoint returns the model-space transform of joint j under bones.
func (s *Skeleton) PosedJoint(bones []mathutil.Mat4, j int) mathutil.Mat4 {
	return mathutil.Mat4Mul(bones[j], s.Base[j])
}
