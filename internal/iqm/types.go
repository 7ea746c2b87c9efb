// Package iqm loads Inter-Quake Model (version 2) files: meshes, a joint
// hierarchy, and frame animation baked into skinning matrices.
package iqm

import (
	"errors"

	"github.com/flywave/go3d/vec3"

	"skelmodel/internal/model"
	"skelmodel/internal/skeleton"
	"skelmodel/internal/stream"
	"skelmodel/internal/texture"
)

// Magic starts every IQM file.
const Magic = "INTERQUAKEMODEL\x00"

const Version = 2

var (
	// ErrMalformed is the same sentinel the stream reader uses, so
	// truncation and bad table contents match the same check.
	ErrMalformed         = stream.ErrMalformed
	ErrUnsupportedLayout = errors.New("iqm: unsupported vertex array layout")
	ErrNotBuilt          = errors.New("iqm: vertex buffer not built for renderer")
)

// Vertex array types.
const (
	VAPosition     = 0
	VATexCoord     = 1
	VANormal       = 2
	VATangent      = 3
	VABlendIndexes = 4
	VABlendWeights = 5
	VAColor        = 6
	VACustom       = 0x10
)

// Vertex array component formats.
const (
	FmtByte   = 0
	FmtUByte  = 1
	FmtShort  = 2
	FmtUShort = 3
	FmtInt    = 4
	FmtUInt   = 5
	FmtHalf   = 6
	FmtFloat  = 7
	FmtDouble = 8
)

var formatSize = [...]uint32{
	FmtByte: 1, FmtUByte: 1,
	FmtShort: 2, FmtUShort: 2, FmtHalf: 2,
	FmtInt: 4, FmtUInt: 4, FmtFloat: 4,
	FmtDouble: 8,
}

// Record sizes in bytes.
const (
	headerSize      = 16 + 27*4
	meshSize        = 6 * 4
	triangleSize    = 3 * 4
	jointSize       = 2*4 + 10*4
	poseSize        = 2*4 + 20*4
	animSize        = 5 * 4
	boundsSize      = 8 * 4
	vertexArraySize = 5 * 4
)

type header struct {
	FileSize, Flags              uint32
	NumText, OfsText             uint32
	NumMeshes, OfsMeshes         uint32
	NumVertexArrays, NumVertexes uint32
	OfsVertexArrays              uint32
	NumTriangles, OfsTriangles   uint32
	OfsAdjacency                 uint32
	NumJoints, OfsJoints         uint32
	NumPoses, OfsPoses           uint32
	NumAnims, OfsAnims           uint32
	NumFrames, NumFrameChannels  uint32
	OfsFrames, OfsBounds         uint32
	NumComment, OfsComment       uint32
	NumExtensions, OfsExtensions uint32
}

// Mesh is a surface: a vertex range and triangle range sharing one skin.
type Mesh struct {
	Name          string
	Material      string
	FirstVertex   uint32
	NumVertices   uint32
	FirstTriangle uint32
	NumTriangles  uint32
	Skin          texture.ID
}

type Triangle [3]uint32

// Pose describes how the 10 channels of one joint are stored per frame.
type Pose struct {
	Parent      int32
	ChannelMask uint32
	Offset      [10]float32
	Scale       [10]float32
}

type Anim struct {
	Name       string
	FirstFrame uint32
	NumFrames  uint32
	FrameRate  float32
	Loop       bool
}

// Bounds of one frame.
type Bounds struct {
	Box      vec3.Box
	XYRadius float32
	Radius   float32
}

type VertexArray struct {
	Type   uint32
	Flags  uint32
	Format uint32
	Size   uint32
	Offset uint32
}

// Model is a loaded IQM file. Geometry stays in the source file until a
// renderer asks for it.
type Model struct {
	model.Base

	Meshes       []Mesh
	Triangles    []Triangle
	Adjacency    []Triangle
	Poses        []Pose
	Anims        []Anim
	Bounds       []Bounds
	VertexArrays []VertexArray
	NumVertices  uint32

	skel  *skeleton.Skeleton
	files model.LoadContext
}

func New() *Model { return &Model{} }

func (m *Model) Skeleton() *skeleton.Skeleton { return m.skel }
