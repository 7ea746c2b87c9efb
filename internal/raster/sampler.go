package raster

import "image"

func wrap(f float64) float64 {
	f -= float64(int(f))
	if f < 0 {
		f++
	}
	return f
}

// SampleTexture filters bilinearly with repeating UVs.
func SampleTexture(tex *image.NRGBA, u, v float64) (r, g, b, a uint8) {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	fx := wrap(u) * float64(w-1)
	fy := wrap(v) * float64(h-1)
	x0, y0 := int(fx), int(fy)
	x1, y1 := (x0+1)%w, (y0+1)%h
	dx, dy := fx-float64(x0), fy-float64(y0)

	corners := [4]int{
		y0*tex.Stride + x0*4,
		y0*tex.Stride + x1*4,
		y1*tex.Stride + x0*4,
		y1*tex.Stride + x1*4,
	}
	weights := [4]float64{(1 - dx) * (1 - dy), dx * (1 - dy), (1 - dx) * dy, dx * dy}

	var out [4]float64
	for k, i := range corners {
		for c := range 4 {
			out[c] += float64(tex.Pix[i+c]) * weights[k]
		}
	}
	return uint8(out[0] + 0.5), uint8(out[1] + 0.5), uint8(out[2] + 0.5), uint8(out[3] + 0.5)
}

// SampleNearest clamps UVs to the edge and reads the nearest texel.
func SampleNearest(tex *image.NRGBA, u, v float64) (r, g, b, a uint8) {
	w, h := tex.Rect.Dx(), tex.Rect.Dy()
	x := min(max(int(u*float64(w)), 0), w-1)
	y := min(max(int(v*float64(h)), 0), h-1)
	i := y*tex.Stride + x*4
	return tex.Pix[i], tex.Pix[i+1], tex.Pix[i+2], tex.Pix[i+3]
}
