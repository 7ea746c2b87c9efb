package iqm

import (
	"fmt"

	"skelmodel/internal/model"
	"skelmodel/internal/stream"
)

// BuildVertexBuffer uploads vertices and triangle indices for r's backend.
// The source file is re-read through the file collaborator and the decoded
// vertices are dropped once uploaded. A second call for the same renderer
// type does nothing.
func (m *Model) BuildVertexBuffer(r model.Renderer) error {
	if m.VertexBuffer(r.Type()) != nil {
		return nil
	}
	verts, err := m.loadGeometry()
	if err != nil {
		return fmt.Errorf("iqm: %s: %w", m.Name, err)
	}

	vb := r.CreateVertexBuffer(true, m.skel.NumFrames() <= 1)
	copy(vb.LockVertexBuffer(len(verts)), verts)
	vb.UnlockVertexBuffer()

	indices := vb.LockIndexBuffer(len(m.Triangles) * 3)
	for i, t := range m.Triangles {
		indices[i*3+0] = t[0]
		indices[i*3+1] = t[1]
		indices[i*3+2] = t[2]
	}
	vb.UnlockIndexBuffer()

	m.SetVertexBuffer(r.Type(), vb)
	return nil
}

func (m *Model) loadGeometry() ([]model.Vertex, error) {
	if m.files.Files == nil {
		return nil, fmt.Errorf("no file system to read geometry from")
	}
	data, err := m.files.Files.ReadFile(m.files.Handle)
	if err != nil {
		return nil, err
	}
	return m.decodeVertices(data)
}

func unsupported(va VertexArray) error {
	return fmt.Errorf("%w: type %d format %d size %d", ErrUnsupportedLayout, va.Type, va.Format, va.Size)
}

// decodeVertices reads the vertex arrays the renderer uses. Arrays of other
// types are ignored. A known type in a format the vertex layout cannot hold
// is an error.
func (m *Model) decodeVertices(data []byte) ([]model.Vertex, error) {
	n := int(m.NumVertices)
	verts := make([]model.Vertex, n)
	for i := range verts {
		verts[i].Set(0, 0, 0, 0, 0)
		verts[i].BoneWeight = [4]uint8{255, 0, 0, 0}
	}
	r := stream.NewReader(data)

	for _, va := range m.VertexArrays {
		switch va.Type {
		case VAPosition, VATexCoord, VANormal, VABlendIndexes, VABlendWeights:
		default:
			continue
		}
		if va.Format >= uint32(len(formatSize)) {
			return nil, unsupported(va)
		}
		if va.Size > 4 || !r.SeekTable(va.Offset, m.NumVertices, va.Size*formatSize[va.Format]) {
			if r.Err() != nil {
				return nil, r.Err()
			}
			return nil, unsupported(va)
		}

		switch va.Type {
		case VAPosition:
			if va.Format != FmtFloat || va.Size != 3 {
				return nil, unsupported(va)
			}
			for i := range verts {
				verts[i].X, verts[i].Y, verts[i].Z = r.ReadFloat(), r.ReadFloat(), r.ReadFloat()
			}
		case VATexCoord:
			if va.Format != FmtFloat || va.Size != 2 {
				return nil, unsupported(va)
			}
			for i := range verts {
				verts[i].U, verts[i].V = r.ReadFloat(), r.ReadFloat()
			}
		case VANormal:
			if va.Format != FmtFloat || va.Size != 3 {
				return nil, unsupported(va)
			}
			for i := range verts {
				verts[i].SetNormal(r.ReadFloat(), r.ReadFloat(), r.ReadFloat())
			}
		case VABlendIndexes:
			if va.Size != 4 {
				return nil, unsupported(va)
			}
			if err := readBlendIndexes(r, va, verts); err != nil {
				return nil, err
			}
		case VABlendWeights:
			if va.Size != 4 {
				return nil, unsupported(va)
			}
			if err := readBlendWeights(r, va, verts); err != nil {
				return nil, err
			}
		}
		if r.Err() != nil {
			return nil, r.Err()
		}
	}
	return verts, nil
}

func readBlendIndexes(r *stream.Reader, va VertexArray, verts []model.Vertex) error {
	switch va.Format {
	case FmtUByte:
		for i := range verts {
			for k := 0; k < 4; k++ {
				verts[i].BoneSelector[k] = r.ReadU8()
			}
		}
	case FmtInt, FmtUInt:
		for i := range verts {
			for k := 0; k < 4; k++ {
				idx := r.ReadU32()
				if idx > 255 {
					return fmt.Errorf("%w: vertex %d blend index %d", ErrUnsupportedLayout, i, idx)
				}
				verts[i].BoneSelector[k] = uint8(idx)
			}
		}
	default:
		return unsupported(va)
	}
	return nil
}

func readBlendWeights(r *stream.Reader, va VertexArray, verts []model.Vertex) error {
	switch va.Format {
	case FmtUByte:
		for i := range verts {
			for k := 0; k < 4; k++ {
				verts[i].BoneWeight[k] = r.ReadU8()
			}
		}
	case FmtFloat:
		for i := range verts {
			var w [4]float32
			r.ReadFloats(w[:])
			verts[i].BoneWeight = model.QuantizeWeights(w)
		}
	default:
		return unsupported(va)
	}
	return nil
}
