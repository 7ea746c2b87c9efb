// Package gltfexport writes a posed model to binary glTF. Exporter is a
// model.Renderer that records draw calls instead of rasterizing them.
package gltfexport

import (
	"fmt"

	"github.com/ngaut/log"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/texture"
)

type vertexBuffer struct {
	vertices []model.Vertex
	indices  []uint32
}

func (b *vertexBuffer) LockVertexBuffer(n int) []model.Vertex {
	b.vertices = make([]model.Vertex, n)
	return b.vertices
}

func (b *vertexBuffer) UnlockVertexBuffer() {}

func (b *vertexBuffer) LockIndexBuffer(n int) []uint32 {
	b.indices = make([]uint32, n)
	return b.indices
}

func (b *vertexBuffer) UnlockIndexBuffer() {}

type posed struct {
	pos    [3]float32
	normal [3]float32
	uv     [2]float32
}

type primitive struct {
	skin    texture.ID
	indices []uint32
}

// SkinNamer names the material of a skin.
type SkinNamer interface {
	Name(id texture.ID) string
}

// Exporter captures one posed frame of one model.
type Exporter struct {
	names SkinNamer

	model    model.Model
	vb       *vertexBuffer
	off1     int
	off2     int
	count    int
	bones    []mathutil.Mat4
	inter    float64
	skin     texture.ID
	vertices []posed
	prims    []*primitive
}

// New creates an exporter. names may be nil.
func New(names SkinNamer) *Exporter {
	return &Exporter{names: names, skin: texture.Invalid}
}

func (e *Exporter) Type() model.RendererType { return model.ExportRenderer }

func (e *Exporter) CreateVertexBuffer(needIndex, singleFrame bool) model.VertexBuffer {
	return &vertexBuffer{}
}

func (e *Exporter) SetupFrame(m model.Model, off1, off2, count int, bones []mathutil.Mat4) {
	e.model = m
	e.vb, _ = m.VertexBuffer(model.ExportRenderer).(*vertexBuffer)
	if e.vb == nil {
		log.Warnf("gltfexport: %s has no export vertex buffer", m.FileName())
	}
	e.off1, e.off2, e.count = off1, off2, count
	e.bones = append(e.bones[:0], bones...)
	e.vertices = nil
}

func (e *Exporter) SetMaterial(skin texture.ID, clampNoFilter bool, translation int) {
	e.skin = skin
}

func (e *Exporter) SetInterpolation(t float64) {
	e.inter = t
	e.vertices = nil
}

func (e *Exporter) pose() {
	if e.vertices != nil || e.vb == nil {
		return
	}
	e.vertices = make([]posed, e.count)
	for i := range e.vertices {
		p, n, uv := e.skinned(e.off1 + i)
		if e.off2 != e.off1 && e.inter != 0 {
			p2, n2, _ := e.skinned(e.off2 + i)
			p = mathutil.Lerp(p, p2, e.inter)
			n = mathutil.Lerp(n, n2, e.inter).Normalize()
		}
		e.vertices[i] = posed{
			pos:    [3]float32{float32(p[0]), float32(p[1]), float32(p[2])},
			normal: [3]float32{float32(n[0]), float32(n[1]), float32(n[2])},
			uv:     uv,
		}
	}
}

func (e *Exporter) skinned(i int) (pos, normal mathutil.Vec3, uv [2]float32) {
	if i < 0 || i >= len(e.vb.vertices) {
		return mathutil.Vec3{}, mathutil.Vec3{0, 0, 1}, uv
	}
	v := &e.vb.vertices[i]
	pos, normal = model.Skin(v, e.bones)
	return pos, normal, [2]float32{v.U, v.V}
}

func (e *Exporter) current() *primitive {
	for _, p := range e.prims {
		if p.skin == e.skin {
			return p
		}
	}
	p := &primitive{skin: e.skin}
	e.prims = append(e.prims, p)
	return p
}

func (e *Exporter) DrawArrays(start, count int) {
	e.pose()
	if count < 3 {
		return
	}
	p := e.current()
	for i := start; i < start+count-count%3; i++ {
		p.indices = append(p.indices, uint32(i))
	}
}

func (e *Exporter) DrawElements(numIndices, firstIndex int) {
	e.pose()
	if e.vb == nil || firstIndex < 0 || firstIndex+numIndices > len(e.vb.indices) {
		return
	}
	p := e.current()
	p.indices = append(p.indices, e.vb.indices[firstIndex:firstIndex+numIndices-numIndices%3]...)
}

func (e *Exporter) materialName(id texture.ID) string {
	if e.names != nil && id.IsValid() {
		if n := e.names.Name(id); n != "" {
			return n
		}
	}
	if !id.IsValid() {
		return "untextured"
	}
	return fmt.Sprintf("skin%d", id)
}
