// Package iqmtest writes small IQM files for tests.
package iqmtest

import (
	"bytes"
	"encoding/binary"
)

// Vertex array types and formats, mirrored from the loader so tests can
// describe layouts the loader rejects.
const (
	Position     = 0
	TexCoord     = 1
	Normal       = 2
	Tangent      = 3
	BlendIndexes = 4
	BlendWeights = 5
	Color        = 6

	Byte   = 0
	UByte  = 1
	Short  = 2
	UShort = 3
	Int    = 4
	UInt   = 5
	Half   = 6
	Float  = 7
	Double = 8
)

const headerSize = 16 + 27*4

type Mesh struct {
	Name, Material              string
	FirstVertex, NumVertices    uint32
	FirstTriangle, NumTriangles uint32
}

type Joint struct {
	Name   string
	Parent int32
	T      [3]float32
	Q      [4]float32
	S      [3]float32
}

type Pose struct {
	Parent int32
	Mask   uint32
	Offset [10]float32
	Scale  [10]float32
}

type Anim struct {
	Name       string
	First, Num uint32
	Rate       float32
	Loop       bool
}

// Array is a raw vertex array appended after the typed ones.
type Array struct {
	Type, Format, Size uint32
	Data               []byte
}

// Builder describes an IQM file. Zero fields are left out of the file.
type Builder struct {
	Version uint32 // defaults to 2

	Meshes    []Mesh
	Triangles [][3]uint32
	Adjacency bool
	Joints    []Joint
	Poses     []Pose
	Anims     []Anim

	NumFrames        uint32
	NumFrameChannels uint32
	Frames           []uint16
	Bounds           [][8]float32

	Positions      [][3]float32
	TexCoords      [][2]float32
	Normals        [][3]float32
	BlendIndexes   [][4]uint8
	BlendIndexes32 [][4]int32
	BlendWeights   [][4]uint8
	BlendWeightsF  [][4]float32
	Arrays         []Array

	// NoText leaves the string pool out entirely.
	NoText bool

	pool []byte
}

func (b *Builder) text(s string) uint32 {
	if s == "" {
		return 0
	}
	off := uint32(len(b.pool))
	b.pool = append(b.pool, s...)
	b.pool = append(b.pool, 0)
	return off
}

func le(v any) []byte {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

type meshRec struct {
	Name, Material, FirstVertex, NumVertices, FirstTriangle, NumTriangles uint32
}

type jointRec struct {
	Name   uint32
	Parent int32
	T      [3]float32
	Q      [4]float32
	S      [3]float32
}

type animRec struct {
	Name, First, Num uint32
	Rate             float32
	Flags            uint32
}

type arrayRec struct {
	Type, Flags, Format, Size, Offset uint32
}

// Bytes lays the file out and returns it.
func (b *Builder) Bytes() []byte {
	b.pool = []byte{0}

	var meshes []meshRec
	for _, m := range b.Meshes {
		meshes = append(meshes, meshRec{b.text(m.Name), b.text(m.Material),
			m.FirstVertex, m.NumVertices, m.FirstTriangle, m.NumTriangles})
	}
	var joints []jointRec
	for _, j := range b.Joints {
		joints = append(joints, jointRec{b.text(j.Name), j.Parent, j.T, j.Q, j.S})
	}
	var anims []animRec
	for _, a := range b.Anims {
		var flags uint32
		if a.Loop {
			flags = 1
		}
		anims = append(anims, animRec{b.text(a.Name), a.First, a.Num, a.Rate, flags})
	}

	out := make([]byte, headerSize)
	place := func(data []byte) uint32 {
		if len(data) == 0 {
			return 0
		}
		off := uint32(len(out))
		out = append(out, data...)
		return off
	}

	numText, ofsText := uint32(0), uint32(0)
	if !b.NoText {
		numText = uint32(len(b.pool))
		ofsText = place(b.pool)
	}
	ofsMeshes := place(le(meshes))

	var arrays []arrayRec
	addArray := func(typ, format, size uint32, data any, n int) {
		if n == 0 {
			return
		}
		arrays = append(arrays, arrayRec{typ, 0, format, size, place(le(data))})
	}
	addArray(Position, Float, 3, b.Positions, len(b.Positions))
	addArray(TexCoord, Float, 2, b.TexCoords, len(b.TexCoords))
	addArray(Normal, Float, 3, b.Normals, len(b.Normals))
	addArray(BlendIndexes, UByte, 4, b.BlendIndexes, len(b.BlendIndexes))
	addArray(BlendIndexes, Int, 4, b.BlendIndexes32, len(b.BlendIndexes32))
	addArray(BlendWeights, UByte, 4, b.BlendWeights, len(b.BlendWeights))
	addArray(BlendWeights, Float, 4, b.BlendWeightsF, len(b.BlendWeightsF))
	for _, a := range b.Arrays {
		arrays = append(arrays, arrayRec{a.Type, 0, a.Format, a.Size, place(a.Data)})
	}
	ofsArrays := place(le(arrays))

	ofsTriangles := place(le(b.Triangles))
	var ofsAdjacency uint32
	if b.Adjacency {
		adj := make([][3]uint32, len(b.Triangles))
		for i := range adj {
			adj[i] = [3]uint32{^uint32(0), ^uint32(0), ^uint32(0)}
		}
		ofsAdjacency = place(le(adj))
	}
	ofsJoints := place(le(joints))
	ofsPoses := place(le(b.Poses))
	ofsAnims := place(le(anims))
	ofsFrames := place(le(b.Frames))
	ofsBounds := place(le(b.Bounds))

	version := b.Version
	if version == 0 {
		version = 2
	}
	header := []uint32{
		version, uint32(len(out)), 0,
		numText, ofsText,
		uint32(len(meshes)), ofsMeshes,
		uint32(len(arrays)), uint32(len(b.Positions)), ofsArrays,
		uint32(len(b.Triangles)), ofsTriangles, ofsAdjacency,
		uint32(len(joints)), ofsJoints,
		uint32(len(b.Poses)), ofsPoses,
		uint32(len(anims)), ofsAnims,
		b.NumFrames, b.NumFrameChannels, ofsFrames, ofsBounds,
		0, 0,
		0, 0,
	}
	copy(out, "INTERQUAKEMODEL\x00")
	copy(out[16:], le(header))
	return out
}

// Identity is a joint rotation that does nothing.
var Identity = [4]float32{0, 0, 0, 1}

// One is a unit scale.
var One = [3]float32{1, 1, 1}

// StaticPose returns a pose whose channels are all constant, taken from j.
func StaticPose(j Joint) Pose {
	p := Pose{Parent: j.Parent}
	copy(p.Offset[0:3], j.T[:])
	copy(p.Offset[3:7], j.Q[:])
	copy(p.Offset[7:10], j.S[:])
	return p
}
