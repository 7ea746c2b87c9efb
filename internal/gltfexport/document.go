package gltfexport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/qmuntal/gltf"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
)

const gltfVersion = "2.0"

// ErrEmpty is returned when nothing was drawn.
var ErrEmpty = errors.New("gltfexport: nothing drawn")

func newDoc() *gltf.Document {
	doc := &gltf.Document{}
	doc.Asset.Version = gltfVersion
	doc.Asset.Generator = "skelmodel"
	scene := uint32(0)
	doc.Scene = &scene
	doc.Scenes = append(doc.Scenes, &gltf.Scene{})
	doc.Buffers = append(doc.Buffers, &gltf.Buffer{})
	return doc
}

// appendView writes data to the single buffer and returns its view index.
func appendView(doc *gltf.Document, data any, target gltf.Target) uint32 {
	buffer := doc.Buffers[0]
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, data)
	view := &gltf.BufferView{
		Buffer:     0,
		ByteOffset: buffer.ByteLength,
		ByteLength: uint32(buf.Len()),
		Target:     target,
	}
	buffer.Data = append(buffer.Data, buf.Bytes()...)
	buffer.ByteLength += uint32(buf.Len())
	// Keep every view 4-byte aligned.
	for buffer.ByteLength%4 != 0 {
		buffer.Data = append(buffer.Data, 0)
		buffer.ByteLength++
	}
	doc.BufferViews = append(doc.BufferViews, view)
	return uint32(len(doc.BufferViews) - 1)
}

func appendAccessor(doc *gltf.Document, acc *gltf.Accessor) uint32 {
	doc.Accessors = append(doc.Accessors, acc)
	return uint32(len(doc.Accessors) - 1)
}

// Document builds a glTF document from the captured frame.
func (e *Exporter) Document() (*gltf.Document, error) {
	if len(e.vertices) == 0 || len(e.prims) == 0 {
		return nil, ErrEmpty
	}
	doc := newDoc()
	name := "model"
	if e.model != nil {
		name = e.model.FileName()
	}

	positions := make([][3]float32, len(e.vertices))
	normals := make([][3]float32, len(e.vertices))
	uvs := make([][2]float32, len(e.vertices))
	box := dvec3.MinBox
	for i, v := range e.vertices {
		positions[i], normals[i], uvs[i] = v.pos, v.normal, v.uv
		p := dvec3.T{float64(v.pos[0]), float64(v.pos[1]), float64(v.pos[2])}
		pb := dvec3.Box{Min: p, Max: p}
		box.Join(&pb)
	}

	posView := appendView(doc, positions, gltf.TargetArrayBuffer)
	normalView := appendView(doc, normals, gltf.TargetArrayBuffer)
	uvView := appendView(doc, uvs, gltf.TargetArrayBuffer)
	attrs := gltf.Attribute{
		"POSITION": appendAccessor(doc, &gltf.Accessor{
			BufferView:    &posView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         uint32(len(positions)),
			Min:           []float32{float32(box.Min[0]), float32(box.Min[1]), float32(box.Min[2])},
			Max:           []float32{float32(box.Max[0]), float32(box.Max[1]), float32(box.Max[2])},
		}),
		"NORMAL": appendAccessor(doc, &gltf.Accessor{
			BufferView:    &normalView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec3,
			Count:         uint32(len(normals)),
		}),
		"TEXCOORD_0": appendAccessor(doc, &gltf.Accessor{
			BufferView:    &uvView,
			ComponentType: gltf.ComponentFloat,
			Type:          gltf.AccessorVec2,
			Count:         uint32(len(uvs)),
		}),
	}

	mesh := &gltf.Mesh{Name: name}
	for _, p := range e.prims {
		if len(p.indices) == 0 {
			continue
		}
		for _, i := range p.indices {
			if int(i) >= len(e.vertices) {
				return nil, fmt.Errorf("gltfexport: %s: index %d out of %d vertices", name, i, len(e.vertices))
			}
		}
		view := appendView(doc, p.indices, gltf.TargetElementArrayBuffer)
		indices := appendAccessor(doc, &gltf.Accessor{
			BufferView:    &view,
			ComponentType: gltf.ComponentUint,
			Type:          gltf.AccessorScalar,
			Count:         uint32(len(p.indices)),
		})
		doc.Materials = append(doc.Materials, &gltf.Material{Name: e.materialName(p.skin), DoubleSided: true})
		material := uint32(len(doc.Materials) - 1)
		mesh.Primitives = append(mesh.Primitives, &gltf.Primitive{
			Attributes: attrs,
			Indices:    &indices,
			Material:   &material,
			Mode:       gltf.PrimitiveTriangles,
		})
	}
	if len(mesh.Primitives) == 0 {
		return nil, ErrEmpty
	}
	doc.Meshes = append(doc.Meshes, mesh)
	meshIndex := uint32(0)
	doc.Nodes = append(doc.Nodes, &gltf.Node{Name: name, Mesh: &meshIndex})
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)

	e.addJoints(doc)
	return doc, nil
}

// addJoints adds one node per joint, posed like the mesh. Joint nodes carry
// no skin; they show where each bone ended up.
func (e *Exporter) addJoints(doc *gltf.Document) {
	a, ok := e.model.(model.Animated)
	if !ok || a.Skeleton() == nil || len(e.bones) != a.Skeleton().NumJoints() {
		return
	}
	s := a.Skeleton()
	first := uint32(len(doc.Nodes))
	world := make([]mathutil.Mat4, s.NumJoints())
	for j, jt := range s.Joints {
		world[j] = s.PosedJoint(e.bones, j)
		local := world[j]
		if jt.Parent >= 0 {
			local = mathutil.Mat4Mul(world[jt.Parent].Inverse(), world[j])
		}
		doc.Nodes = append(doc.Nodes, &gltf.Node{Name: jt.Name, Matrix: local.ColumnMajor32()})
		if jt.Parent >= 0 {
			parent := doc.Nodes[first+uint32(jt.Parent)]
			parent.Children = append(parent.Children, first+uint32(j))
		} else {
			doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, first+uint32(j))
		}
	}
}

// WriteGLB encodes the captured frame as binary glTF.
func (e *Exporter) WriteGLB(w io.Writer) error {
	doc, err := e.Document()
	if err != nil {
		return err
	}
	enc := gltf.NewEncoder(w)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("gltfexport: encode: %w", err)
	}
	return nil
}

// Export renders one frame of m and writes it to w as binary glTF.
func Export(w io.Writer, m model.Model, p *model.RenderParams, names SkinNamer) error {
	e := New(names)
	if err := m.BuildVertexBuffer(e); err != nil {
		return err
	}
	if err := m.RenderFrame(e, p); err != nil {
		return err
	}
	return e.WriteGLB(w)
}
