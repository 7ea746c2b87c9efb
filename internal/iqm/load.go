package iqm

import (
	"fmt"

	"github.com/flywave/go3d/vec3"
	"github.com/ngaut/log"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/skeleton"
	"skelmodel/internal/stream"
	"skelmodel/internal/texture"
)

// Load parses everything except vertex data, which BuildVertexBuffer reads
// from the source file when a renderer needs it. On error the model must
// be discarded.
func (m *Model) Load(ctx *model.LoadContext, name string, data []byte) error {
	m.Name = name
	m.files = *ctx
	if err := m.parse(ctx, data); err != nil {
		return fmt.Errorf("iqm: %s: %w", name, err)
	}
	log.Debugf("iqm: %s: %d meshes, %d joints, %d frames, %d anims",
		name, len(m.Meshes), m.skel.NumJoints(), m.skel.NumFrames(), len(m.Anims))
	return nil
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformed}, args...)...)
}

func readHeader(r *stream.Reader) (header, error) {
	if magic := r.ReadBytes(len(Magic)); string(magic) != Magic {
		if r.Err() != nil {
			return header{}, r.Err()
		}
		return header{}, malformed("bad magic")
	}
	if v := r.ReadU32(); v != Version {
		if r.Err() != nil {
			return header{}, r.Err()
		}
		return header{}, fmt.Errorf("%w: version %d, want %d", ErrMalformed, v, Version)
	}
	var h header
	for _, f := range []*uint32{
		&h.FileSize, &h.Flags,
		&h.NumText, &h.OfsText,
		&h.NumMeshes, &h.OfsMeshes,
		&h.NumVertexArrays, &h.NumVertexes, &h.OfsVertexArrays,
		&h.NumTriangles, &h.OfsTriangles, &h.OfsAdjacency,
		&h.NumJoints, &h.OfsJoints,
		&h.NumPoses, &h.OfsPoses,
		&h.NumAnims, &h.OfsAnims,
		&h.NumFrames, &h.NumFrameChannels, &h.OfsFrames, &h.OfsBounds,
		&h.NumComment, &h.OfsComment,
		&h.NumExtensions, &h.OfsExtensions,
	} {
		*f = r.ReadU32()
	}
	return h, r.Err()
}

func (m *Model) parse(ctx *model.LoadContext, data []byte) error {
	r := stream.NewReader(data)
	h, err := readHeader(r)
	if err != nil {
		return err
	}

	if h.NumText == 0 {
		return malformed("empty text pool")
	}
	r.SeekTable(h.OfsText, h.NumText, 1)
	text := append([]byte(nil), r.ReadBytes(int(h.NumText))...)
	if r.Err() != nil {
		return r.Err()
	}
	text[len(text)-1] = 0

	if err := m.readMeshes(r, &h, text, ctx); err != nil {
		return err
	}
	if err := m.readTriangles(r, &h); err != nil {
		return err
	}
	joints, rest, err := readJoints(r, &h, text)
	if err != nil {
		return err
	}
	if err := m.readPoses(r, &h); err != nil {
		return err
	}
	if err := m.readAnims(r, &h, text); err != nil {
		return err
	}

	m.skel, err = skeleton.New(joints, rest)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if err := m.readFrames(r, &h); err != nil {
		return err
	}
	if err := m.readBounds(r, &h); err != nil {
		return err
	}
	return m.readVertexArrays(r, &h)
}

func (m *Model) readMeshes(r *stream.Reader, h *header, text []byte, ctx *model.LoadContext) error {
	if !r.SeekTable(h.OfsMeshes, h.NumMeshes, meshSize) {
		return r.Err()
	}
	m.Meshes = make([]Mesh, h.NumMeshes)
	for i := range m.Meshes {
		mesh := &m.Meshes[i]
		mesh.Name = r.ReadName(text)
		mesh.Material = r.ReadName(text)
		mesh.FirstVertex = r.ReadU32()
		mesh.NumVertices = r.ReadU32()
		mesh.FirstTriangle = r.ReadU32()
		mesh.NumTriangles = r.ReadU32()
		if r.Err() != nil {
			return r.Err()
		}
		if uint64(mesh.FirstVertex)+uint64(mesh.NumVertices) > uint64(h.NumVertexes) {
			return malformed("mesh %d vertex range %d+%d exceeds %d",
				i, mesh.FirstVertex, mesh.NumVertices, h.NumVertexes)
		}
		if uint64(mesh.FirstTriangle)+uint64(mesh.NumTriangles) > uint64(h.NumTriangles) {
			return malformed("mesh %d triangle range %d+%d exceeds %d",
				i, mesh.FirstTriangle, mesh.NumTriangles, h.NumTriangles)
		}
		mesh.Skin = texture.Invalid
		if ctx.Skins != nil {
			mesh.Skin = ctx.Skins.LoadSkin(ctx.Dir, mesh.Material)
		}
	}
	m.NumVertices = h.NumVertexes
	return nil
}

func readTriangleTable(r *stream.Reader, ofs, n uint32) ([]Triangle, error) {
	if !r.SeekTable(ofs, n, triangleSize) {
		return nil, r.Err()
	}
	tris := make([]Triangle, n)
	for i := range tris {
		tris[i] = Triangle{r.ReadU32(), r.ReadU32(), r.ReadU32()}
	}
	return tris, r.Err()
}

func (m *Model) readTriangles(r *stream.Reader, h *header) error {
	var err error
	if m.Triangles, err = readTriangleTable(r, h.OfsTriangles, h.NumTriangles); err != nil {
		return err
	}
	for i, t := range m.Triangles {
		for _, v := range t {
			if v >= h.NumVertexes {
				return malformed("triangle %d references vertex %d of %d", i, v, h.NumVertexes)
			}
		}
	}
	if h.OfsAdjacency != 0 {
		m.Adjacency, err = readTriangleTable(r, h.OfsAdjacency, h.NumTriangles)
	}
	return err
}

func readTransform(r *stream.Reader) skeleton.Transform {
	var f [10]float32
	r.ReadFloats(f[:])
	return transformFromChannels(f)
}

// transformFromChannels maps Tx Ty Tz Qx Qy Qz Qw Sx Sy Sz to a transform
// with a unit quaternion.
func transformFromChannels(c [10]float32) skeleton.Transform {
	return skeleton.Transform{
		Translation: mathutil.Vec3{float64(c[0]), float64(c[1]), float64(c[2])},
		Rotation:    mathutil.Quat{float64(c[3]), float64(c[4]), float64(c[5]), float64(c[6])}.Normalize(),
		Scale:       mathutil.Vec3{float64(c[7]), float64(c[8]), float64(c[9])},
	}
}

func readJoints(r *stream.Reader, h *header, text []byte) ([]skeleton.Joint, []skeleton.Transform, error) {
	if !r.SeekTable(h.OfsJoints, h.NumJoints, jointSize) {
		return nil, nil, r.Err()
	}
	joints := make([]skeleton.Joint, h.NumJoints)
	rest := make([]skeleton.Transform, h.NumJoints)
	for i := range joints {
		joints[i].Name = r.ReadName(text)
		joints[i].Parent = int(r.ReadI32())
		rest[i] = readTransform(r)
	}
	return joints, rest, r.Err()
}

func (m *Model) readPoses(r *stream.Reader, h *header) error {
	if h.NumFrames > 0 && h.NumPoses != h.NumJoints {
		return malformed("%d poses for %d joints", h.NumPoses, h.NumJoints)
	}
	if !r.SeekTable(h.OfsPoses, h.NumPoses, poseSize) {
		return r.Err()
	}
	m.Poses = make([]Pose, h.NumPoses)
	for i := range m.Poses {
		p := &m.Poses[i]
		p.Parent = r.ReadI32()
		p.ChannelMask = r.ReadU32()
		r.ReadFloats(p.Offset[:])
		r.ReadFloats(p.Scale[:])
		if r.Err() == nil && int(p.Parent) >= i {
			return malformed("pose %d has parent %d", i, p.Parent)
		}
	}
	return r.Err()
}

func (m *Model) readAnims(r *stream.Reader, h *header, text []byte) error {
	if !r.SeekTable(h.OfsAnims, h.NumAnims, animSize) {
		return r.Err()
	}
	m.Anims = make([]Anim, h.NumAnims)
	for i := range m.Anims {
		a := &m.Anims[i]
		a.Name = r.ReadName(text)
		a.FirstFrame = r.ReadU32()
		a.NumFrames = r.ReadU32()
		a.FrameRate = r.ReadFloat()
		a.Loop = r.ReadU32()&1 != 0
		if r.Err() == nil && uint64(a.FirstFrame)+uint64(a.NumFrames) > uint64(h.NumFrames) {
			return malformed("anim %d (%s) frames %d+%d exceed %d", i, a.Name, a.FirstFrame, a.NumFrames, h.NumFrames)
		}
	}
	return r.Err()
}

// readFrames decodes the packed channel stream. Each present channel of
// each pose consumes one u16 sample per frame.
func (m *Model) readFrames(r *stream.Reader, h *header) error {
	if h.NumFrames == 0 {
		return nil
	}
	if h.NumFrameChannels > 1<<30 {
		return malformed("%d frame channels", h.NumFrameChannels)
	}
	if !r.SeekTable(h.OfsFrames, h.NumFrames, h.NumFrameChannels*2) {
		return r.Err()
	}
	locals := make([]skeleton.Transform, len(m.Poses))
	for f := uint32(0); f < h.NumFrames; f++ {
		for j, p := range m.Poses {
			var c [10]float32
			for k := range c {
				c[k] = p.Offset[k]
				if p.ChannelMask&(1<<k) != 0 {
					c[k] += float32(r.ReadU16()) * p.Scale[k]
				}
			}
			locals[j] = transformFromChannels(c)
		}
		if r.Err() != nil {
			return r.Err()
		}
		if err := m.skel.AddFrame(locals); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) readBounds(r *stream.Reader, h *header) error {
	if h.OfsBounds == 0 {
		return nil
	}
	if !r.SeekTable(h.OfsBounds, h.NumFrames, boundsSize) {
		return r.Err()
	}
	m.Bounds = make([]Bounds, h.NumFrames)
	for i := range m.Bounds {
		var f [8]float32
		r.ReadFloats(f[:])
		m.Bounds[i] = Bounds{
			Box:      vec3.Box{Min: vec3.T{f[0], f[1], f[2]}, Max: vec3.T{f[3], f[4], f[5]}},
			XYRadius: f[6],
			Radius:   f[7],
		}
	}
	return r.Err()
}

func (m *Model) readVertexArrays(r *stream.Reader, h *header) error {
	if !r.SeekTable(h.OfsVertexArrays, h.NumVertexArrays, vertexArraySize) {
		return r.Err()
	}
	m.VertexArrays = make([]VertexArray, h.NumVertexArrays)
	for i := range m.VertexArrays {
		va := &m.VertexArrays[i]
		va.Type = r.ReadU32()
		va.Flags = r.ReadU32()
		va.Format = r.ReadU32()
		va.Size = r.ReadU32()
		va.Offset = r.ReadU32()
	}
	return r.Err()
}
