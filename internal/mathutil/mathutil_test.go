package mathutil

import (
	"math"
	"testing"
)

func TestMat4Inverse(t *testing.T) {
	for _, m := range []Mat4{
		Mat4Identity(),
		FromTRS(Vec3{1, 2, 3}, EulerToQuat(0.3, -0.7, 1.1), Vec3{1, 1, 1}),
		FromTRS(Vec3{-4, 0, 9}, EulerToQuat(1.2, 0.1, -2.5), Vec3{2, 0.5, 3}),
	} {
		if p := Mat4Mul(m, m.Inverse()); !p.IsIdentity() {
			t.Fatalf("Mat4.Inverse\nhave %v\nwant identity", p)
		}
	}
	var singular Mat4
	if inv := singular.Inverse(); !inv.IsIdentity() {
		t.Fatalf("Mat4.Inverse(singular)\nhave %v\nwant identity", inv)
	}
}

func TestFromTRS(t *testing.T) {
	m := FromTRS(Vec3{1, 2, 3}, QuatIdentity(), Vec3{2, 2, 2})
	if p := m.MulPoint(Vec3{1, 1, 1}); p != (Vec3{3, 4, 5}) {
		t.Fatalf("FromTRS.MulPoint\nhave %v\nwant [3 4 5]", p)
	}
	// 90° about Z maps +X to +Y.
	m = FromTRS(Vec3{}, EulerToQuat(0, 0, math.Pi/2), Vec3{1, 1, 1})
	p := m.MulPoint(Vec3{1, 0, 0})
	if math.Abs(p[0]) > 1e-9 || math.Abs(p[1]-1) > 1e-9 || math.Abs(p[2]) > 1e-9 {
		t.Fatalf("FromTRS rotation\nhave %v\nwant [0 1 0]", p)
	}
}

func TestQuatNormalize(t *testing.T) {
	for _, x := range []struct{ in, want Quat }{
		{Quat{0, 0, 0, 2}, Quat{0, 0, 0, 1}},
		{Quat{3, 0, 4, 0}, Quat{0.6, 0, 0.8, 0}},
		{Quat{}, QuatIdentity()},
		{Quat{math.NaN(), 0, 0, 1}, QuatIdentity()},
	} {
		q := x.in.Normalize()
		for i := range q {
			if math.Abs(q[i]-x.want[i]) > 1e-12 {
				t.Fatalf("Quat.Normalize(%v)\nhave %v\nwant %v", x.in, q, x.want)
			}
		}
	}
}

func TestQuatMul(t *testing.T) {
	a := EulerToQuat(0.4, 0, 0)
	b := EulerToQuat(0, 0.9, 0)
	want := Mat3Mul(QuatToMat3(a), QuatToMat3(b))
	have := QuatToMat3(QuatMul(a, b))
	for i := range have {
		if math.Abs(have[i]-want[i]) > 1e-12 {
			t.Fatalf("QuatMul\nhave %v\nwant %v", have, want)
		}
	}
}

func TestMat4Lerp(t *testing.T) {
	a := Mat4Identity()
	b := FromMat3Translation(Mat3Identity(), Vec3{0, 0, 10})
	if m := Mat4Lerp(a, b, 0.5); m.Translation() != (Vec3{0, 0, 5}) {
		t.Fatalf("Mat4Lerp\nhave %v\nwant [0 0 5]", m.Translation())
	}
	if m := Mat4Lerp(a, b, 0); m != a {
		t.Fatalf("Mat4Lerp(t=0)\nhave %v\nwant %v", m, a)
	}
}

func TestColumnMajor32(t *testing.T) {
	m := FromMat3Translation(Mat3Identity(), Vec3{7, 8, 9})
	c := m.ColumnMajor32()
	if c[12] != 7 || c[13] != 8 || c[14] != 9 || c[15] != 1 {
		t.Fatalf("ColumnMajor32\nhave %v\nwant translation in 12..14", c)
	}
}

func TestViewByName(t *testing.T) {
	if _, ok := ViewByName("preview"); !ok {
		t.Fatal("ViewByName(preview): not found")
	}
	if _, ok := ViewByName("isometric-ish"); ok {
		t.Fatal("ViewByName: unexpected match")
	}
}

func TestVec3Lerp(t *testing.T) {
	if have := Lerp(Vec3{0, 2, 4}, Vec3{2, 2, 0}, 0.25); have != (Vec3{0.5, 2, 3}) {
		t.Fatalf("Lerp\nhave %v\nwant [0.5 2 3]", have)
	}
	if have := (Vec3{0, 0, 4}).Normalize(); have != (Vec3{0, 0, 1}) {
		t.Fatalf("Normalize\nhave %v\nwant [0 0 1]", have)
	}
	if have := (Vec3{}).Normalize(); have != (Vec3{}) {
		t.Fatalf("Normalize(zero)\nhave %v\nwant zero", have)
	}
}
