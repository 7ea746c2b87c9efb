package smd

import (
	"fmt"

	"github.com/chewxy/math32"

	"skelmodel/internal/model"
)

// BuildVertexBuffer writes every surface's triangles, surface by surface,
// into a new buffer for r's backend. Triangles are released afterwards and
// parsed again from the source file if the buffer has to be rebuilt.
func (m *Model) BuildVertexBuffer(r model.Renderer) error {
	if m.VertexBuffer(r.Type()) != nil {
		return nil
	}
	if m.released {
		if err := m.reloadTriangles(); err != nil {
			return wrapErr(m.Name, err)
		}
	}

	vb := r.CreateVertexBuffer(false, len(m.clips) == 1)
	verts := vb.LockVertexBuffer(m.NumVertices())
	for _, s := range m.Surfaces {
		for i, t := range s.tris {
			for k := range t {
				m.fillVertex(&verts[s.FirstVertex+i*3+k], &t[k])
			}
		}
	}
	vb.UnlockVertexBuffer()
	m.SetVertexBuffer(r.Type(), vb)

	for i := range m.Surfaces {
		m.Surfaces[i].tris = nil
	}
	m.released = true
	return nil
}

func (m *Model) reloadTriangles() error {
	if m.files.Files == nil {
		return fmt.Errorf("no file system to read geometry from")
	}
	data, err := m.files.Files.ReadFile(m.files.Handle)
	if err != nil {
		return err
	}
	src, err := parse(NewScanner(m.Name, data), clipName(m.Name))
	if err != nil {
		return err
	}
	if len(src.groups) != len(m.Surfaces) {
		return fmt.Errorf("%w: source changed since load", ErrSyntax)
	}
	for i, g := range src.groups {
		if len(g.tris) != m.Surfaces[i].NumTriangles {
			return fmt.Errorf("%w: source changed since load", ErrSyntax)
		}
		m.Surfaces[i].tris = g.tris
	}
	m.released = false
	return nil
}

// fillVertex binds the vertex to its parent bone and up to three linked
// bones. Link weights are quantized to bytes and the parent takes what is
// left of 255.
func (m *Model) fillVertex(dst *model.Vertex, v *vertex) {
	dst.Set(v.pos[0], v.pos[1], v.pos[2], v.uv[0], v.uv[1])
	dst.SetNormal(v.normal[0], v.normal[1], v.normal[2])

	var sel, weight [4]uint8
	sel[0] = uint8(m.jointOf[v.parent])
	total := 0
	for i, l := range v.links {
		if i >= 3 {
			break
		}
		w := int(math32.Floor(l.weight*255 + 0.5))
		if w < 0 {
			w = 0
		}
		if w > 255 {
			w = 255
		}
		sel[i+1] = uint8(m.jointOf[l.bone])
		weight[i+1] = uint8(w)
		total += w
	}
	if total < 255 {
		weight[0] = uint8(255 - total)
	}
	dst.SetBoneSelectorAndWeights(sel, weight)
}

// RenderFrame evaluates the pose and draws each surface as a triangle list.
// Frames are relative to the clip named by p.AnimationID when it is set.
func (m *Model) RenderFrame(r model.Renderer, p *model.RenderParams) error {
	if m.VertexBuffer(r.Type()) == nil {
		return fmt.Errorf("%w: %s (%s)", ErrNotBuilt, m.Name, r.Type())
	}
	f1, f2 := p.Frame, p.Frame2
	if p.AnimationID >= 0 && p.AnimationID < len(m.clips) {
		c := m.clips[p.AnimationID]
		f1, f2 = c.Frame(f1), c.Frame(f2)
	}
	bones := m.skel.Evaluate(f1, f2, p.Inter, p.Overrides)

	r.SetupFrame(m, 0, 0, m.NumVertices(), bones)
	r.SetInterpolation(p.Inter)
	for i, s := range m.Surfaces {
		r.SetMaterial(p.SkinFor(i, s.Skin), false, p.Translation)
		r.DrawArrays(s.FirstVertex, s.NumTriangles*3)
	}
	return nil
}
