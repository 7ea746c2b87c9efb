// Package smd loads StudioMDL text models: a node list, skeleton
// keyframes and triangles grouped by material. Animation-only files are
// loaded the same way and attached to a base model.
package smd

import (
	"errors"
	"fmt"
	"path"
	"strings"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/ngaut/log"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/skeleton"
	"skelmodel/internal/texture"
)

// Header starts every text model.
const Header = "version 1"

// MaxJoints is the most joints a vertex bone selector can address.
const MaxJoints = 256

var (
	ErrNoNodes          = errors.New("no nodes")
	ErrTooManyJoints    = errors.New("too many joints")
	ErrUnknownBone      = errors.New("unknown bone")
	ErrSkeletonMismatch = errors.New("clip skeleton shares no joints with model")
	ErrNotBuilt         = errors.New("smd: vertex buffer not built for renderer")
)

// Surface is the set of triangles sharing one material.
type Surface struct {
	Material     string
	Skin         texture.ID
	NumTriangles int
	FirstVertex  int

	tris []triangle
}

// Model is a loaded text model.
type Model struct {
	model.Base

	Surfaces []Surface
	// Bounds encloses the rest-pose vertex positions. It is the zero box
	// for a model without triangles.
	Bounds dvec3.Box

	joints   []skeleton.Joint
	jointOf  map[int]int // file bone id → joint index
	clips    []model.Clip
	frames   [][]skeleton.Transform
	rest     []skeleton.Transform
	skel     *skeleton.Skeleton
	files    model.LoadContext
	released bool
	// keys holds the keyframes of a clip file without a node list. Its
	// bone ids belong to the model it is attached to.
	keys []rawClip
}

func New() *Model { return &Model{} }

func (m *Model) Skeleton() *skeleton.Skeleton { return m.skel }

func (m *Model) Clips() []model.Clip { return m.clips }

func (m *Model) NumVertices() int {
	n := 0
	for _, s := range m.Surfaces {
		n += s.NumTriangles * 3
	}
	return n
}

// clipName is the default name of a clip: the file name without directory
// or extension.
func clipName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	return strings.TrimSuffix(base, path.Ext(base))
}

// Load parses the file, orders the joints so parents come first and bakes
// every clip it contains.
func (m *Model) Load(ctx *model.LoadContext, name string, data []byte) error {
	m.Name = name
	m.files = *ctx
	src, err := parse(NewScanner(name, data), clipName(name))
	if err != nil {
		return err
	}
	if err := m.build(src, ctx); err != nil {
		return wrapErr(name, err)
	}
	log.Debugf("smd: %s: %d joints, %d clips, %d frames, %d surfaces",
		name, len(m.joints), len(m.clips), len(m.frames), len(m.Surfaces))
	return nil
}

// wrapErr names the file in err unless it already carries a position.
func wrapErr(name string, err error) error {
	var se *SyntaxError
	if errors.As(err, &se) {
		return err
	}
	return fmt.Errorf("smd: %s: %w", name, err)
}

func (m *Model) build(src *source, ctx *model.LoadContext) error {
	if len(src.nodes) == 0 {
		if len(src.clips) == 0 || len(src.groups) > 0 {
			return ErrNoNodes
		}
		return m.buildKeys(src)
	}
	if len(src.nodes) > MaxJoints {
		return fmt.Errorf("%w: %d, max %d", ErrTooManyJoints, len(src.nodes), MaxJoints)
	}

	// File ids may be sparse and parents may be declared after children.
	slot := make(map[int]int, len(src.nodes))
	for i, n := range src.nodes {
		if _, dup := slot[n.id]; dup {
			return fmt.Errorf("%w: node %d declared twice", ErrSyntax, n.id)
		}
		slot[n.id] = i
	}
	parents := make([]int, len(src.nodes))
	for i, n := range src.nodes {
		parents[i] = -1
		if n.parent < 0 {
			continue
		}
		p, ok := slot[n.parent]
		if !ok {
			return fmt.Errorf("%w: node %d (%s) has parent %d", ErrUnknownBone, n.id, n.name, n.parent)
		}
		parents[i] = p
	}
	order, err := skeleton.Order(parents)
	if err != nil {
		return err
	}
	newIndex := make([]int, len(order))
	for j, i := range order {
		newIndex[i] = j
	}
	m.joints = make([]skeleton.Joint, len(order))
	m.jointOf = make(map[int]int, len(order))
	for j, i := range order {
		n := src.nodes[i]
		parent := -1
		if parents[i] >= 0 {
			parent = newIndex[parents[i]]
		}
		m.joints[j] = skeleton.Joint{Name: n.name, Parent: parent}
		m.jointOf[n.id] = j
	}

	for _, c := range src.clips {
		if err := m.addClip(c); err != nil {
			return err
		}
	}
	if err := m.setSurfaces(src, ctx); err != nil {
		return err
	}
	return m.bake()
}

// addClip converts keyframes to absolute joint transforms. A joint missing
// from a keyframe keeps its transform from the previous keyframe, or from
// the rest pose on a clip's first keyframe.
func (m *Model) addClip(c rawClip) error {
	prev := m.rest
	if prev == nil {
		prev = make([]skeleton.Transform, len(m.joints))
		for i := range prev {
			prev[i] = skeleton.IdentityTransform()
		}
	}
	first := len(m.frames)
	for _, kf := range c.frames {
		cur := append([]skeleton.Transform(nil), prev...)
		for _, k := range kf.bones {
			j, ok := m.jointOf[k.id]
			if !ok {
				return fmt.Errorf("%w: clip %s time %d references bone %d", ErrUnknownBone, c.name, kf.time, k.id)
			}
			cur[j] = skeleton.Transform{
				Translation: mathutil.Vec3(k.pos),
				Rotation:    mathutil.EulerToQuat(k.rot[0], k.rot[1], k.rot[2]),
				Scale:       mathutil.Vec3{1, 1, 1},
			}
		}
		m.frames = append(m.frames, cur)
		prev = cur
		if m.rest == nil {
			// The first frame of the first clip is the rest pose.
			m.rest = cur
		}
	}
	m.clips = append(m.clips, model.Clip{Name: c.name, FirstFrame: first, NumFrames: len(c.frames)})
	return nil
}

// buildKeys keeps the keyframes of a clip file as they are. The model has
// no joints of its own until the keys are attached to a base model.
func (m *Model) buildKeys(src *source) error {
	m.keys = src.clips
	first := 0
	for _, c := range src.clips {
		m.clips = append(m.clips, model.Clip{Name: c.name, FirstFrame: first, NumFrames: len(c.frames)})
		first += len(c.frames)
	}
	return m.bake()
}

func (m *Model) checkBone(id int) error {
	if _, ok := m.jointOf[id]; !ok {
		return fmt.Errorf("%w: vertex references bone %d", ErrUnknownBone, id)
	}
	return nil
}

func (m *Model) setSurfaces(src *source, ctx *model.LoadContext) error {
	m.Surfaces = make([]Surface, len(src.groups))
	m.Bounds = dvec3.Box{}
	box := dvec3.MinBox
	first := 0
	for i, g := range src.groups {
		for _, t := range g.tris {
			for _, v := range t {
				pt := dvec3.T{float64(v.pos[0]), float64(v.pos[1]), float64(v.pos[2])}
				box.Join(&dvec3.Box{Min: pt, Max: pt})
				if err := m.checkBone(v.parent); err != nil {
					return err
				}
				for _, l := range v.links {
					if err := m.checkBone(l.bone); err != nil {
						return err
					}
				}
			}
		}
		s := Surface{
			Material:     g.material,
			Skin:         texture.Invalid,
			NumTriangles: len(g.tris),
			FirstVertex:  first,
			tris:         g.tris,
		}
		if ctx.Skins != nil {
			s.Skin = ctx.Skins.LoadSkin(ctx.Dir, g.material)
		}
		m.Surfaces[i] = s
		first += len(g.tris) * 3
	}
	if first > 0 {
		m.Bounds = box
	}
	return nil
}

func (m *Model) bake() error {
	rest := m.rest
	if rest == nil {
		rest = make([]skeleton.Transform, len(m.joints))
		for i := range rest {
			rest[i] = skeleton.IdentityTransform()
		}
	}
	skel, err := skeleton.New(m.joints, rest)
	if err != nil {
		return err
	}
	for _, f := range m.frames {
		if err := skel.AddFrame(f); err != nil {
			return err
		}
	}
	m.skel = skel
	return nil
}

// AttachAnimations appends the clips of an animation-only model. Keyframes
// of a clip file without nodes address this model's bone ids. A clip file
// with its own nodes is matched by joint name instead, and joints it does
// not animate hold their rest pose. On error the model is unchanged.
//
// A vertex buffer built while the model had a single clip was marked
// single-frame; it is dropped once a second clip arrives.
func (m *Model) AttachAnimations(anim *Model) error {
	frames, clips, rest := len(m.frames), len(m.clips), m.rest
	single := clips == 1
	var err error
	if len(anim.joints) == 0 {
		err = m.attachKeys(anim)
	} else {
		err = m.attachByName(anim)
	}
	if err == nil {
		err = m.bake()
	}
	if err != nil {
		m.frames, m.clips, m.rest = m.frames[:frames], m.clips[:clips], rest
		return wrapErr(anim.Name, err)
	}
	if single && len(m.clips) > 1 {
		m.DestroyVertexBuffer()
	}
	return nil
}

func (m *Model) attachKeys(anim *Model) error {
	for _, c := range anim.keys {
		if err := m.addClip(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) attachByName(anim *Model) error {
	remap := make([]int, len(m.joints))
	matched := 0
	for j, joint := range m.joints {
		remap[j] = -1
		for k, other := range anim.joints {
			if strings.EqualFold(joint.Name, other.Name) {
				remap[j] = k
				matched++
				break
			}
		}
	}
	if matched == 0 {
		return fmt.Errorf("%w: %s", ErrSkeletonMismatch, m.Name)
	}

	rest := m.rest
	if rest == nil {
		rest = make([]skeleton.Transform, len(m.joints))
		for i := range rest {
			rest[i] = skeleton.IdentityTransform()
		}
	}
	for _, c := range anim.clips {
		first := len(m.frames)
		for f := c.FirstFrame; f < c.FirstFrame+c.NumFrames; f++ {
			cur := make([]skeleton.Transform, len(m.joints))
			for j, k := range remap {
				if k < 0 {
					cur[j] = rest[j]
				} else {
					cur[j] = anim.frames[f][k]
				}
			}
			m.frames = append(m.frames, cur)
		}
		c.FirstFrame = first
		m.clips = append(m.clips, c)
	}
	if m.rest == nil && len(m.frames) > 0 {
		m.rest = m.frames[0]
	}
	return nil
}

// FindFrame returns the index of the clip with the given name.
func (m *Model) FindFrame(name string) int {
	for i, c := range m.clips {
		if strings.EqualFold(c.Name, name) {
			return i
		}
	}
	return -1
}

// AddSkins marks every surface skin in a precache hitlist.
func (m *Model) AddSkins(hitlist []uint8) {
	for _, s := range m.Surfaces {
		if s.Skin.IsValid() && int(s.Skin) < len(hitlist) {
			hitlist[s.Skin] |= texture.HitFlat
		}
	}
}
