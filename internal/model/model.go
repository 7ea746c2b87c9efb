// Package model defines the contracts between model loaders, the renderer
// backends that draw them and the registry that owns them.
package model

import (
	"skelmodel/internal/mathutil"
	"skelmodel/internal/skeleton"
	"skelmodel/internal/texture"
	"skelmodel/internal/vfs"
)

// RendererType selects the per-backend vertex buffer slot of a model.
type RendererType int

const (
	SoftwareRenderer RendererType = iota
	HardwareRenderer
	ExportRenderer
	NumRendererTypes
)

func (t RendererType) String() string {
	switch t {
	case SoftwareRenderer:
		return "software"
	case HardwareRenderer:
		return "hardware"
	case ExportRenderer:
		return "export"
	}
	return "unknown"
}

// VertexBuffer is a renderer-owned store filled through lock/unlock pairs.
type VertexBuffer interface {
	LockVertexBuffer(size int) []Vertex
	UnlockVertexBuffer()
	LockIndexBuffer(size int) []uint32
	UnlockIndexBuffer()
}

// Renderer is the draw protocol a model speaks while rendering a frame.
type Renderer interface {
	Type() RendererType
	CreateVertexBuffer(needIndex, singleFrame bool) VertexBuffer
	// SetupFrame selects the model's buffer for this renderer and uploads
	// the bone matrices for the coming draw calls.
	SetupFrame(m Model, vertexOffset, vertexOffset2, count int, bones []mathutil.Mat4)
	SetMaterial(skin texture.ID, clampNoFilter bool, translation int)
	SetInterpolation(t float64)
	DrawArrays(start, count int)
	DrawElements(numIndices, firstIndex int)
}

// SkinLoader resolves a material name next to a model file.
type SkinLoader interface {
	LoadSkin(dir, name string) texture.ID
}

// LoadContext carries the collaborators a loader needs.
type LoadContext struct {
	Files  vfs.FileSystem
	Skins  SkinLoader
	Handle vfs.Handle
	// Dir is the directory prefix of the model, used for skin lookup.
	Dir string
}

// RenderParams describes one draw of a model.
type RenderParams struct {
	// Skin replaces every surface skin when valid.
	Skin texture.ID
	// SurfaceSkins replaces the skin of individual surfaces when valid.
	SurfaceSkins []texture.ID
	Frame        int
	Frame2       int
	Inter        float64
	Translation  int
	// AnimationID makes Frame and Frame2 relative to one clip for formats
	// that keep clips separately. Negative means absolute frames.
	AnimationID int
	Overrides   skeleton.Overrides
}

// DefaultRenderParams draws frame 0 with the model's own skins.
func DefaultRenderParams() RenderParams {
	return RenderParams{Skin: texture.Invalid, AnimationID: -1}
}

// Model is implemented by every loadable format.
type Model interface {
	Load(ctx *LoadContext, name string, data []byte) error
	FileName() string
	FindFrame(name string) int
	RenderFrame(r Renderer, p *RenderParams) error
	BuildVertexBuffer(r Renderer) error
	AddSkins(hitlist []uint8)
	VertexBuffer(t RendererType) VertexBuffer
	DestroyVertexBuffer()
}

// Animated is implemented by models that carry a skeleton.
type Animated interface {
	Skeleton() *skeleton.Skeleton
	Clips() []Clip
}

// Clip is a named frame range.
type Clip struct {
	Name       string
	FirstFrame int
	NumFrames  int
	FrameRate  float32
	Loop       bool
}

// Frame maps a clip-relative frame to an absolute one, clamped to the clip.
func (c Clip) Frame(f int) int {
	if f >= c.NumFrames {
		f = c.NumFrames - 1
	}
	if f < 0 {
		f = 0
	}
	return c.FirstFrame + f
}

// Base holds what every format shares: its file name and the vertex
// buffer built for each renderer type.
type Base struct {
	Name    string
	buffers [NumRendererTypes]VertexBuffer
}

func (b *Base) FileName() string { return b.Name }

func (b *Base) VertexBuffer(t RendererType) VertexBuffer {
	if t < 0 || t >= NumRendererTypes {
		return nil
	}
	return b.buffers[t]
}

func (b *Base) SetVertexBuffer(t RendererType, vb VertexBuffer) {
	if t >= 0 && t < NumRendererTypes {
		b.buffers[t] = vb
	}
}

// DestroyVertexBuffer drops every cached buffer. They are rebuilt from
// the source file on the next BuildVertexBuffer.
func (b *Base) DestroyVertexBuffer() {
	for i := range b.buffers {
		b.buffers[i] = nil
	}
}

// SkinFor picks the skin for surface i: the global override, then the
// per-surface override, then the model's own skin.
func (p *RenderParams) SkinFor(i int, own texture.ID) texture.ID {
	if p.Skin.IsValid() {
		return p.Skin
	}
	if i < len(p.SurfaceSkins) && p.SurfaceSkins[i].IsValid() {
		return p.SurfaceSkins[i]
	}
	return own
}
