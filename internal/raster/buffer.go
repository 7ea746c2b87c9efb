package raster

import (
	"math"

	"skelmodel/internal/model"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // depth per pixel, len = W*H, initialized to -inf
}

// NewFrameBuffer allocates a zeroed color buffer and -inf z-buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   zbuf,
	}
}

// VertexBuffer is the CPU-side vertex store handed to models.
type VertexBuffer struct {
	Vertices    []model.Vertex
	Indices     []uint32
	NeedIndex   bool
	SingleFrame bool
}

func (b *VertexBuffer) LockVertexBuffer(n int) []model.Vertex {
	b.Vertices = make([]model.Vertex, n)
	return b.Vertices
}

func (b *VertexBuffer) UnlockVertexBuffer() {}

func (b *VertexBuffer) LockIndexBuffer(n int) []uint32 {
	b.Indices = make([]uint32, n)
	return b.Indices
}

func (b *VertexBuffer) UnlockIndexBuffer() {}
