package iqm

import (
	"errors"
	"math"
	"testing"

	"skelmodel/internal/iqm/iqmtest"
	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/model/modeltest"
	"skelmodel/internal/texture"
)

func skinnedBuilder() *iqmtest.Builder {
	joints := twoJoints()
	joints[1].T = [3]float32{0, 0, 1}
	moved := iqmtest.StaticPose(joints[1])
	moved.Mask = 1 << 2
	moved.Offset[2] = 0
	moved.Scale[2] = 1
	return &iqmtest.Builder{
		Meshes: []iqmtest.Mesh{
			{Name: "a", Material: "a.png", NumVertices: 3, NumTriangles: 1},
			{Name: "b", Material: "b.png", FirstVertex: 3, NumVertices: 3, FirstTriangle: 1, NumTriangles: 1},
		},
		Positions:    [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 0, 1}, {0, 1, 1}},
		TexCoords:    [][2]float32{{0, 0}, {1, 0}, {0, 1}, {0, 0}, {1, 0}, {0, 1}},
		Normals:      [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		BlendIndexes: [][4]uint8{{0, 0, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}},
		BlendWeights: [][4]uint8{{255, 0, 0, 0}, {255, 0, 0, 0}, {255, 0, 0, 0}, {255, 0, 0, 0}, {255, 0, 0, 0}, {255, 0, 0, 0}},
		Triangles:    [][3]uint32{{0, 1, 2}, {3, 4, 5}},
		Joints:       joints,
		Poses:        []iqmtest.Pose{iqmtest.StaticPose(joints[0]), moved},
		// Joint 1 at z = 1 then z = 3.
		NumFrames:        2,
		NumFrameChannels: 1,
		Frames:           []uint16{1, 3},
		Anims:            []iqmtest.Anim{{Name: "idle", Num: 1}, {Name: "lift", First: 1, Num: 1}},
	}
}

func TestBuildVertexBuffer(t *testing.T) {
	m, _ := mustLoad(t, skinnedBuilder())
	r := &modeltest.Recorder{Kind: model.SoftwareRenderer}
	if err := m.BuildVertexBuffer(r); err != nil {
		t.Fatalf("BuildVertexBuffer: %v", err)
	}
	if len(r.Buffers) != 1 {
		t.Fatalf("buffers\nhave %d\nwant 1", len(r.Buffers))
	}
	b := r.Buffers[0]
	if !b.NeedIndex || b.SingleFrame {
		t.Fatalf("buffer flags\nhave index=%v single=%v\nwant true, false", b.NeedIndex, b.SingleFrame)
	}
	if len(b.Vertices) != 6 || len(b.Indices) != 6 {
		t.Fatalf("buffer sizes\nhave %d vertices, %d indices\nwant 6, 6", len(b.Vertices), len(b.Indices))
	}
	v := b.Vertices[4]
	if v.X != 1 || v.Z != 1 || v.U != 1 || v.LIndex != -1 {
		t.Fatalf("vertex 4\nhave %+v", v)
	}
	if v.BoneSelector != [4]uint8{1, 0, 0, 0} || v.BoneWeight != [4]uint8{255, 0, 0, 0} {
		t.Fatalf("vertex 4 bones\nhave %v %v", v.BoneSelector, v.BoneWeight)
	}
	if _, _, nz := v.Normal(); math.Abs(float64(nz)-1) > 1.0/512 {
		t.Fatalf("vertex 4 normal z\nhave %v\nwant ~1", nz)
	}
	if b.Indices[3] != 3 || b.Indices[5] != 5 {
		t.Fatalf("indices\nhave %v", b.Indices)
	}

	// Same renderer type: cached.
	if err := m.BuildVertexBuffer(r); err != nil || len(r.Buffers) != 1 {
		t.Fatalf("BuildVertexBuffer(again)\nhave %d buffers, %v\nwant 1", len(r.Buffers), err)
	}
	// Another type gets its own buffer.
	hw := &modeltest.Recorder{Kind: model.HardwareRenderer}
	if err := m.BuildVertexBuffer(hw); err != nil || len(hw.Buffers) != 1 {
		t.Fatalf("BuildVertexBuffer(hardware)\nhave %d buffers, %v", len(hw.Buffers), err)
	}
	// Destroyed buffers are rebuilt from the file.
	m.DestroyVertexBuffer()
	if m.VertexBuffer(model.SoftwareRenderer) != nil {
		t.Fatal("DestroyVertexBuffer: buffer kept")
	}
	if err := m.BuildVertexBuffer(r); err != nil || len(r.Buffers) != 2 {
		t.Fatalf("BuildVertexBuffer(rebuild)\nhave %d buffers, %v\nwant 2", len(r.Buffers), err)
	}
}

func TestBuildVertexBufferWideIndexes(t *testing.T) {
	b := skinnedBuilder()
	b.BlendIndexes = nil
	b.BlendIndexes32 = [][4]int32{{0, 1, 0, 0}, {0, 0, 0, 0}, {0, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	b.BlendWeights = nil
	b.BlendWeightsF = [][4]float32{{0.5, 0.5, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}, {1, 0, 0, 0}}
	m, _ := mustLoad(t, b)
	r := &modeltest.Recorder{}
	if err := m.BuildVertexBuffer(r); err != nil {
		t.Fatalf("BuildVertexBuffer: %v", err)
	}
	v := r.Buffers[0].Vertices[0]
	if v.BoneSelector != [4]uint8{0, 1, 0, 0} || v.BoneWeight != [4]uint8{127, 128, 0, 0} {
		t.Fatalf("vertex 0 bones\nhave %v %v", v.BoneSelector, v.BoneWeight)
	}
}

func TestBuildVertexBufferIgnoresUnknownArrays(t *testing.T) {
	b := skinnedBuilder()
	b.Arrays = []iqmtest.Array{
		{Type: iqmtest.Tangent, Format: iqmtest.Float, Size: 4, Data: make([]byte, 6*16)},
		{Type: iqmtest.Color, Format: iqmtest.UByte, Size: 4, Data: make([]byte, 6*4)},
	}
	m, _ := mustLoad(t, b)
	if err := m.BuildVertexBuffer(&modeltest.Recorder{}); err != nil {
		t.Fatalf("BuildVertexBuffer: %v", err)
	}
}

func TestBuildVertexBufferUnsupported(t *testing.T) {
	half := make([]byte, 6*3*2)
	for _, x := range []struct {
		name  string
		array iqmtest.Array
	}{
		{"half positions", iqmtest.Array{Type: iqmtest.Position, Format: iqmtest.Half, Size: 3, Data: half}},
		{"short indexes", iqmtest.Array{Type: iqmtest.BlendIndexes, Format: iqmtest.Short, Size: 4, Data: make([]byte, 6*8)}},
		{"three weights", iqmtest.Array{Type: iqmtest.BlendWeights, Format: iqmtest.UByte, Size: 3, Data: make([]byte, 6*3)}},
		{"bad format", iqmtest.Array{Type: iqmtest.Normal, Format: 42, Size: 3, Data: make([]byte, 6*12)}},
	} {
		b := skinnedBuilder()
		b.Arrays = []iqmtest.Array{x.array}
		m, _ := mustLoad(t, b)
		if err := m.BuildVertexBuffer(&modeltest.Recorder{}); !errors.Is(err, ErrUnsupportedLayout) {
			t.Fatalf("%s\nhave %v\nwant ErrUnsupportedLayout", x.name, err)
		}
	}

	// Wide blend indexes that do not fit a byte selector.
	b := skinnedBuilder()
	b.BlendIndexes = nil
	b.BlendIndexes32 = make([][4]int32, 6)
	b.BlendIndexes32[2][0] = 300
	m, _ := mustLoad(t, b)
	if err := m.BuildVertexBuffer(&modeltest.Recorder{}); !errors.Is(err, ErrUnsupportedLayout) {
		t.Fatalf("index 300\nhave %v\nwant ErrUnsupportedLayout", err)
	}
}

func TestBuildVertexBufferTruncatedArray(t *testing.T) {
	b := skinnedBuilder()
	b.Arrays = []iqmtest.Array{{Type: iqmtest.Normal, Format: iqmtest.Float, Size: 3, Data: make([]byte, 4)}}
	data := b.Bytes()
	// Point the extra array past the end of the file.
	m, _, err := loadBytes(t, data)
	if err != nil {
		t.Fatal(err)
	}
	last := &m.VertexArrays[len(m.VertexArrays)-1]
	last.Offset = uint32(len(data)) - 4
	if err := m.BuildVertexBuffer(&modeltest.Recorder{}); !errors.Is(err, ErrMalformed) {
		t.Fatalf("BuildVertexBuffer\nhave %v\nwant ErrMalformed", err)
	}
}

func TestRenderFrame(t *testing.T) {
	m, _ := mustLoad(t, skinnedBuilder())
	r := &modeltest.Recorder{}
	p := model.DefaultRenderParams()
	if err := m.RenderFrame(r, &p); !errors.Is(err, ErrNotBuilt) {
		t.Fatalf("RenderFrame(unbuilt)\nhave %v\nwant ErrNotBuilt", err)
	}
	if err := m.BuildVertexBuffer(r); err != nil {
		t.Fatal(err)
	}

	p.AnimationID = m.FindFrame("lift")
	p.Inter = 0.25
	if err := m.RenderFrame(r, &p); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	want := []modeltest.Call{
		{Op: "setup", A: 0, B: 6},
		{Op: "material", Skin: 0},
		{Op: "elements", A: 3, B: 0},
		{Op: "material", Skin: 1},
		{Op: "elements", A: 3, B: 3},
	}
	if len(r.Calls) != len(want) {
		t.Fatalf("calls\nhave %v\nwant %v", r.Calls, want)
	}
	for i := range want {
		if r.Calls[i] != want[i] {
			t.Fatalf("call %d\nhave %+v\nwant %+v", i, r.Calls[i], want[i])
		}
	}
	if r.Inter != 0.25 {
		t.Fatalf("interpolation\nhave %v\nwant 0.25", r.Inter)
	}
	// Frame 0 of "lift" is absolute frame 1: joint 1 raised from z=1 to z=3.
	if p := r.Bones[1].MulPoint(mathutil.Vec3{0, 0, 1}); p != (mathutil.Vec3{0, 0, 3}) {
		t.Fatalf("bone 1\nhave %v\nwant [0 0 3]", p)
	}

	r.Calls = nil
	p = model.DefaultRenderParams()
	p.Skin = texture.ID(7)
	if err := m.RenderFrame(r, &p); err != nil {
		t.Fatal(err)
	}
	if r.Calls[1].Skin != 7 || r.Calls[3].Skin != 7 {
		t.Fatalf("skin override\nhave %+v", r.Calls)
	}
	if !r.Bones[1].IsIdentity() {
		t.Fatalf("bone 1 at rest\nhave %v\nwant identity", r.Bones[1])
	}
}
