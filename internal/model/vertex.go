package model

import (
	"github.com/chewxy/math32"

	"skelmodel/internal/mathutil"
)

// Vertex is the layout uploaded to vertex buffers. Lightmap fields are
// carried for renderers that share this layout with level geometry; models
// always leave them at 0, 0, -1.
type Vertex struct {
	X, Y, Z      float32
	U, V         float32
	LU, LV       float32
	LIndex       float32
	PackedNormal uint32
	BoneSelector [4]uint8
	BoneWeight   [4]uint8
}

// Set fills position and texture coordinates and resets the lightmap fields.
func (v *Vertex) Set(x, y, z, u, w float32) {
	v.X, v.Y, v.Z = x, y, z
	v.U, v.V = u, w
	v.LU, v.LV = 0, 0
	v.LIndex = -1
}

func packComponent(f float32) uint32 {
	i := int32(f * 512)
	if i > 511 {
		i = 511
	}
	if i < -512 {
		i = -512
	}
	return uint32(i) & 1023
}

// SetNormal stores n as signed 2_10_10_10 with the w bits set to 1.
func (v *Vertex) SetNormal(nx, ny, nz float32) {
	v.PackedNormal = 0x40000000 | packComponent(nz)<<20 | packComponent(ny)<<10 | packComponent(nx)
}

// Normal unpacks PackedNormal.
func (v *Vertex) Normal() (nx, ny, nz float32) {
	unpack := func(bits uint32) float32 {
		i := int32(bits<<22) >> 22
		return float32(i) / 512
	}
	return unpack(v.PackedNormal), unpack(v.PackedNormal >> 10), unpack(v.PackedNormal >> 20)
}

// SetBoneSelectorAndWeights stores joint indices and byte weights.
func (v *Vertex) SetBoneSelectorAndWeights(sel, weight [4]uint8) {
	v.BoneSelector = sel
	v.BoneWeight = weight
}

// Position returns X, Y, Z as a vector.
func (v *Vertex) Position() mathutil.Vec3 {
	return mathutil.Vec3{float64(v.X), float64(v.Y), float64(v.Z)}
}

// QuantizeWeights converts float weights to bytes summing to 255.
// All-zero weights bind the vertex fully to its first joint.
func QuantizeWeights(w [4]float32) [4]uint8 {
	var sum float32
	for _, x := range w {
		if x > 0 {
			sum += x
		}
	}
	if sum <= 0 || math32.IsNaN(sum) {
		return [4]uint8{255, 0, 0, 0}
	}
	var out [4]uint8
	total := 0
	for i, x := range w {
		if x <= 0 {
			continue
		}
		b := int(math32.Floor(x/sum*255 + 0.5))
		if b > 255 {
			b = 255
		}
		out[i] = uint8(b)
		total += b
	}
	// Fold rounding drift into the heaviest weight.
	heavy := 0
	for i := range out {
		if out[i] > out[heavy] {
			heavy = i
		}
	}
	out[heavy] = uint8(int(out[heavy]) + 255 - total)
	return out
}

// Skin transforms the vertex position and normal by its weighted bones.
// Vertices with no weight, or an empty bone set, are returned unchanged.
func Skin(v *Vertex, bones []mathutil.Mat4) (pos, normal mathutil.Vec3) {
	pos = v.Position()
	nx, ny, nz := v.Normal()
	normal = mathutil.Vec3{float64(nx), float64(ny), float64(nz)}
	if len(bones) == 0 {
		return pos, normal
	}
	var p, n mathutil.Vec3
	var total float64
	for k := 0; k < 4; k++ {
		w := float64(v.BoneWeight[k])
		b := int(v.BoneSelector[k])
		if w == 0 || b >= len(bones) {
			continue
		}
		w /= 255
		p = p.Add(bones[b].MulPoint(pos).Scale(w))
		n = n.Add(bones[b].MulDir(normal).Scale(w))
		total += w
	}
	if total == 0 {
		return pos, normal
	}
	return p.Scale(1 / total), n.Normalize()
}
