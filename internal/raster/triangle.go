package raster

import (
	"image"
	"math"

	"skelmodel/internal/mathutil"
)

// ScreenVertex is a projected vertex: pixel position, depth and texcoord.
type ScreenVertex struct {
	X, Y, Z float64
	U, V    float64
}

// Material selects how a triangle is colored.
type Material struct {
	Tex *image.NRGBA
	// Clamp samples the nearest texel with UVs clamped to the edge.
	Clamp bool
	// Flat is used when Tex is nil.
	Flat [4]uint8
}

// DefaultFlat is the color of untextured surfaces.
var DefaultFlat = [4]uint8{160, 160, 170, 255}

// RasterizeTriangle rasterizes a single triangle with texture mapping, z-buffer,
// sRGB color space, lighting, and ACES tone mapping.
//
// All lighting is flat-shaded (per-face, not per-pixel) and the inner loop
// does not allocate.
func RasterizeTriangle(fb *FrameBuffer, tri *[3]ScreenVertex, mat *Material, lc *LightConfig) {
	x0, y0, z0 := tri[0].X, tri[0].Y, tri[0].Z
	x1, y1, z1 := tri[1].X, tri[1].Y, tri[1].Z
	x2, y2, z2 := tri[2].X, tri[2].Y, tri[2].Z

	// Face normal for flat shading
	e1x, e1y, e1z := x1-x0, y1-y0, z1-z0
	e2x, e2y, e2z := x2-x0, y2-y0, z2-z0
	nx := e1y*e2z - e1z*e2y
	ny := e1z*e2x - e1x*e2z
	nz := e1x*e2y - e1y*e2x
	nl := math.Sqrt(nx*nx + ny*ny + nz*nz)
	if nl < 1e-8 {
		return
	}
	shade := lc.ComputeShade(mathutil.Vec3{nx / nl, ny / nl, nz / nl})

	w, h := fb.Width, fb.Height
	minX := max(int(math.Min(math.Min(x0, x1), x2)), 0)
	maxX := min(int(math.Max(math.Max(x0, x1), x2))+1, w-1)
	minY := max(int(math.Min(math.Min(y0, y1), y2)), 0)
	maxY := min(int(math.Max(math.Max(y0, y1), y2))+1, h-1)
	if minX >= maxX || minY >= maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	tex := mat.Tex

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) - y2
		rowOff := sy * w
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			var cr, cg, cb, ca uint8
			switch {
			case tex == nil:
				cr, cg, cb, ca = mat.Flat[0], mat.Flat[1], mat.Flat[2], mat.Flat[3]
			case mat.Clamp:
				u := w0*tri[0].U + w1*tri[1].U + w2*tri[2].U
				v := w0*tri[0].V + w1*tri[1].V + w2*tri[2].V
				cr, cg, cb, ca = SampleNearest(tex, u, v)
			default:
				u := w0*tri[0].U + w1*tri[1].U + w2*tri[2].U
				v := w0*tri[0].V + w1*tri[1].V + w2*tri[2].V
				cr, cg, cb, ca = SampleTexture(tex, u, v)
			}

			// Skip transparent texels
			if ca < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			pxIdx := zIdx * 4
			fb.Color[pxIdx] = lc.shadeTexel(cr, shade)
			fb.Color[pxIdx+1] = lc.shadeTexel(cg, shade)
			fb.Color[pxIdx+2] = lc.shadeTexel(cb, shade)
			fb.Color[pxIdx+3] = ca
		}
	}
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
