// Package modeltest provides a renderer that records the draw protocol.
package modeltest

import (
	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/texture"
)

// Buffer is an in-memory model.VertexBuffer.
type Buffer struct {
	NeedIndex   bool
	SingleFrame bool
	Vertices    []model.Vertex
	Indices     []uint32
}

func (b *Buffer) LockVertexBuffer(n int) []model.Vertex {
	b.Vertices = make([]model.Vertex, n)
	return b.Vertices
}

func (b *Buffer) UnlockVertexBuffer() {}

func (b *Buffer) LockIndexBuffer(n int) []uint32 {
	b.Indices = make([]uint32, n)
	return b.Indices
}

func (b *Buffer) UnlockIndexBuffer() {}

// Call is one recorded renderer call. A and B hold the integer arguments.
type Call struct {
	Op   string
	A, B int
	Skin texture.ID
}

// Recorder implements model.Renderer.
type Recorder struct {
	Kind    model.RendererType
	Buffers []*Buffer
	Calls   []Call
	Bones   []mathutil.Mat4
	Inter   float64
}

func (r *Recorder) Type() model.RendererType { return r.Kind }

func (r *Recorder) CreateVertexBuffer(needIndex, singleFrame bool) model.VertexBuffer {
	b := &Buffer{NeedIndex: needIndex, SingleFrame: singleFrame}
	r.Buffers = append(r.Buffers, b)
	return b
}

func (r *Recorder) SetupFrame(m model.Model, off1, off2, count int, bones []mathutil.Mat4) {
	r.Bones = append([]mathutil.Mat4(nil), bones...)
	r.Calls = append(r.Calls, Call{Op: "setup", A: off1, B: count})
}

func (r *Recorder) SetMaterial(skin texture.ID, clampNoFilter bool, translation int) {
	r.Calls = append(r.Calls, Call{Op: "material", Skin: skin, A: translation})
}

func (r *Recorder) SetInterpolation(t float64) { r.Inter = t }

func (r *Recorder) DrawArrays(start, count int) {
	r.Calls = append(r.Calls, Call{Op: "arrays", A: start, B: count})
}

func (r *Recorder) DrawElements(n, first int) {
	r.Calls = append(r.Calls, Call{Op: "elements", A: n, B: first})
}

// Ops lists the operation names in call order.
func (r *Recorder) Ops() []string {
	ops := make([]string, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Skins records every LoadSkin request and returns sequential IDs.
type Skins struct {
	Requests []string
}

func (s *Skins) LoadSkin(dir, name string) texture.ID {
	if name == "" {
		return texture.Invalid
	}
	s.Requests = append(s.Requests, dir+name)
	return texture.ID(len(s.Requests) - 1)
}
