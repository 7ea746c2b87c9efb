package model

import (
	"math"
	"testing"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/texture"
)

func TestPackedNormal(t *testing.T) {
	var v Vertex
	v.SetNormal(0, 0, 1)
	if v.PackedNormal != 0x40000000|511<<20 {
		t.Fatalf("SetNormal(0, 0, 1)\nhave %#x\nwant %#x", v.PackedNormal, 0x40000000|511<<20)
	}
	v.SetNormal(-1, 0.5, 0)
	if v.PackedNormal != 0x40000000|256<<10|512 {
		t.Fatalf("SetNormal(-1, 0.5, 0)\nhave %#x", v.PackedNormal)
	}
	nx, ny, nz := v.Normal()
	if nx != -1 || ny != 0.5 || nz != 0 {
		t.Fatalf("Normal\nhave %v %v %v\nwant -1 0.5 0", nx, ny, nz)
	}
}

func TestVertexSet(t *testing.T) {
	var v Vertex
	v.Set(1, 2, 3, 0.25, 0.75)
	if v.LU != 0 || v.LV != 0 || v.LIndex != -1 {
		t.Fatalf("Set lightmap\nhave %v %v %v\nwant 0 0 -1", v.LU, v.LV, v.LIndex)
	}
	if v.Position() != (mathutil.Vec3{1, 2, 3}) {
		t.Fatalf("Position\nhave %v", v.Position())
	}
}

func TestQuantizeWeights(t *testing.T) {
	for _, x := range []struct {
		in   [4]float32
		want [4]uint8
	}{
		{[4]float32{1, 0, 0, 0}, [4]uint8{255, 0, 0, 0}},
		{[4]float32{0.5, 0.5, 0, 0}, [4]uint8{127, 128, 0, 0}},
		{[4]float32{2, 2, 0, 0}, [4]uint8{127, 128, 0, 0}},
		{[4]float32{0, 0, 0, 0}, [4]uint8{255, 0, 0, 0}},
		{[4]float32{0.25, 0.25, 0.25, 0.25}, [4]uint8{63, 64, 64, 64}},
	} {
		have := QuantizeWeights(x.in)
		sum := 0
		for _, b := range have {
			sum += int(b)
		}
		if sum != 255 {
			t.Fatalf("QuantizeWeights(%v) sum\nhave %d\nwant 255", x.in, sum)
		}
		if have != x.want {
			t.Fatalf("QuantizeWeights(%v)\nhave %v\nwant %v", x.in, have, x.want)
		}
	}
}

func TestSkin(t *testing.T) {
	var v Vertex
	v.Set(1, 0, 0, 0, 0)
	v.SetNormal(1, 0, 0)
	v.SetBoneSelectorAndWeights([4]uint8{0, 1, 0, 0}, [4]uint8{128, 127, 0, 0})

	pos, _ := Skin(&v, nil)
	if pos != (mathutil.Vec3{1, 0, 0}) {
		t.Fatalf("Skin(no bones)\nhave %v", pos)
	}
	bones := []mathutil.Mat4{
		mathutil.Mat4Identity(),
		mathutil.FromMat3Translation(mathutil.Mat3Identity(), mathutil.Vec3{0, 0, 10}),
	}
	pos, n := Skin(&v, bones)
	if math.Abs(pos[2]-10*127.0/255) > 1e-9 || math.Abs(pos[0]-1) > 1e-9 {
		t.Fatalf("Skin\nhave %v", pos)
	}
	if math.Abs(n[0]-1) > 1e-9 {
		t.Fatalf("Skin normal\nhave %v", n)
	}
}

type fakeBuffer struct{}

func (fakeBuffer) LockVertexBuffer(int) []Vertex { return nil }
func (fakeBuffer) UnlockVertexBuffer()           {}
func (fakeBuffer) LockIndexBuffer(int) []uint32  { return nil }
func (fakeBuffer) UnlockIndexBuffer()            {}

func TestBaseBuffers(t *testing.T) {
	var b Base
	b.SetVertexBuffer(ExportRenderer, fakeBuffer{})
	if b.VertexBuffer(ExportRenderer) == nil || b.VertexBuffer(SoftwareRenderer) != nil {
		t.Fatal("VertexBuffer: wrong slot")
	}
	if b.VertexBuffer(NumRendererTypes) != nil {
		t.Fatal("VertexBuffer(out of range): want nil")
	}
	b.DestroyVertexBuffer()
	if b.VertexBuffer(ExportRenderer) != nil {
		t.Fatal("DestroyVertexBuffer: buffer kept")
	}
}

func TestSkinFor(t *testing.T) {
	p := DefaultRenderParams()
	if s := p.SkinFor(0, 3); s != 3 {
		t.Fatalf("SkinFor(default)\nhave %d\nwant 3", s)
	}
	p.SurfaceSkins = []texture.ID{texture.Invalid, 7}
	if s := p.SkinFor(1, 3); s != 7 {
		t.Fatalf("SkinFor(surface)\nhave %d\nwant 7", s)
	}
	if s := p.SkinFor(0, 3); s != 3 {
		t.Fatalf("SkinFor(invalid surface)\nhave %d\nwant 3", s)
	}
	p.Skin = 9
	if s := p.SkinFor(1, 3); s != 9 {
		t.Fatalf("SkinFor(global)\nhave %d\nwant 9", s)
	}
}

func TestClipFrame(t *testing.T) {
	c := Clip{FirstFrame: 10, NumFrames: 4}
	for _, x := range []struct{ in, want int }{{0, 10}, {3, 13}, {9, 13}, {-2, 10}} {
		if have := c.Frame(x.in); have != x.want {
			t.Fatalf("Clip.Frame(%d)\nhave %d\nwant %d", x.in, have, x.want)
		}
	}
}
