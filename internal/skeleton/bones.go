// Package skeleton holds a joint hierarchy, its base pose and the per-frame
// bone transforms that skinning consumes.
package skeleton

import (
	"errors"
	"fmt"
	"strings"

	"skelmodel/internal/mathutil"
)

var (
	ErrParent = errors.New("skeleton: parent does not precede joint")
	ErrCycle  = errors.New("skeleton: joint hierarchy has a cycle")
	ErrFrame  = errors.New("skeleton: frame does not match joint count")
)

// Joint is one node of the hierarchy. Parent is -1 for roots.
type Joint struct {
	Name   string
	Parent int
}

// Transform is a local translation, rotation and scale.
type Transform struct {
	Translation mathutil.Vec3
	Rotation    mathutil.Quat
	Scale       mathutil.Vec3
}

func IdentityTransform() Transform {
	return Transform{Rotation: mathutil.QuatIdentity(), Scale: mathutil.Vec3{1, 1, 1}}
}

// Matrix returns T · R · S.
func (t Transform) Matrix() mathutil.Mat4 {
	return mathutil.FromTRS(t.Translation, t.Rotation, t.Scale)
}

// Skeleton stores the base pose of every joint and a table of frames.
// Each frame keeps both the raw local transform of a joint and its baked
// matrix base[parent] · local · invBase[joint]. Joints are ordered so that
// a parent always has a lower index than its children.
type Skeleton struct {
	Joints      []Joint
	Base        []mathutil.Mat4
	InverseBase []mathutil.Mat4

	raw    []Transform
	baked  []mathutil.Mat4
	frames int
}

// New computes the base and inverse base pose from the rest transforms.
// Every parent index must be lower than the joint's own index.
func New(joints []Joint, rest []Transform) (*Skeleton, error) {
	if len(rest) != len(joints) {
		return nil, fmt.Errorf("%w: %d rest transforms for %d joints", ErrFrame, len(rest), len(joints))
	}
	s := &Skeleton{
		Joints:      joints,
		Base:        make([]mathutil.Mat4, len(joints)),
		InverseBase: make([]mathutil.Mat4, len(joints)),
	}
	for i, j := range joints {
		if j.Parent >= i || j.Parent < -1 {
			return nil, fmt.Errorf("%w: joint %d (%s) has parent %d", ErrParent, i, j.Name, j.Parent)
		}
		m := rest[i].Matrix()
		inv := m.Inverse()
		if j.Parent >= 0 {
			s.Base[i] = mathutil.Mat4Mul(s.Base[j.Parent], m)
			s.InverseBase[i] = mathutil.Mat4Mul(inv, s.InverseBase[j.Parent])
		} else {
			s.Base[i] = m
			s.InverseBase[i] = inv
		}
	}
	return s, nil
}

func (s *Skeleton) NumJoints() int { return len(s.Joints) }

func (s *Skeleton) NumFrames() int { return s.frames }

// AddFrame appends one frame of local joint transforms.
func (s *Skeleton) AddFrame(locals []Transform) error {
	if len(locals) != len(s.Joints) {
		return fmt.Errorf("%w: %d transforms for %d joints", ErrFrame, len(locals), len(s.Joints))
	}
	for j, t := range locals {
		s.raw = append(s.raw, t)
		s.baked = append(s.baked, s.bake(j, t))
	}
	s.frames++
	return nil
}

func (s *Skeleton) bake(j int, local Transform) mathutil.Mat4 {
	m := mathutil.Mat4Mul(local.Matrix(), s.InverseBase[j])
	if p := s.Joints[j].Parent; p >= 0 {
		m = mathutil.Mat4Mul(s.Base[p], m)
	}
	return m
}

// Raw returns the local transform of joint j in frame f.
func (s *Skeleton) Raw(f, j int) Transform {
	return s.raw[f*len(s.Joints)+j]
}

// Baked returns the precomputed bone transform of joint j in frame f.
func (s *Skeleton) Baked(f, j int) mathutil.Mat4 {
	return s.baked[f*len(s.Joints)+j]
}

// JointIndex finds a joint by case-insensitive name, or returns -1.
func (s *Skeleton) JointIndex(name string) int {
	for i, j := range s.Joints {
		if strings.EqualFold(j.Name, name) {
			return i
		}
	}
	return -1
}

// Order returns joint indices sorted so every parent comes before its
// children, keeping the input order otherwise. parents[i] is -1 for roots.
func Order(parents []int) ([]int, error) {
	const (
		unseen = iota
		onPath
		placed
	)
	state := make([]uint8, len(parents))
	order := make([]int, 0, len(parents))
	var path []int
	for i := range parents {
		path = path[:0]
		for j := i; j >= 0 && state[j] != placed; j = parents[j] {
			if state[j] == onPath {
				return nil, fmt.Errorf("%w at joint %d", ErrCycle, j)
			}
			if p := parents[j]; p < -1 || p >= len(parents) {
				return nil, fmt.Errorf("%w: joint %d has parent %d", ErrParent, j, p)
			}
			state[j] = onPath
			path = append(path, j)
		}
		for k := len(path) - 1; k >= 0; k-- {
			state[path[k]] = placed
			order = append(order, path[k])
		}
	}
	return order, nil
}
