package postprocess

import "image"

// components labels 8-connected groups of non-transparent pixels. labels[i]
// is -1 for transparent pixels.
func components(img *image.NRGBA) (labels []int, sizes []int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	labels = make([]int, w*h)
	for i := range labels {
		labels[i] = -1
	}

	dx := [8]int{-1, 0, 1, -1, 1, -1, 0, 1}
	dy := [8]int{-1, -1, -1, 0, 0, 1, 1, 1}
	opaque := func(i int) bool { return img.Pix[(i/w)*img.Stride+(i%w)*4+3] > 0 }

	queue := make([]int, 0, 1024)
	for start := range labels {
		if labels[start] >= 0 || !opaque(start) {
			continue
		}
		id := len(sizes)
		labels[start] = id
		queue = append(queue[:0], start)
		size := 0
		for len(queue) > 0 {
			curr := queue[len(queue)-1]
			queue = queue[:len(queue)-1]
			size++
			cx, cy := curr%w, curr/w
			for d := range 8 {
				nx, ny := cx+dx[d], cy+dy[d]
				if nx < 0 || nx >= w || ny < 0 || ny >= h {
					continue
				}
				ni := ny*w + nx
				if labels[ni] < 0 && opaque(ni) {
					labels[ni] = id
					queue = append(queue, ni)
				}
			}
		}
		sizes = append(sizes, size)
	}
	return labels, sizes
}

// Despeckle clears pixel groups smaller than minPixels. Rasterizing thin
// geometry at supersampled resolution leaves isolated fragments that
// survive downsampling as noise. An image with one group is returned as is.
func Despeckle(img *image.NRGBA, minPixels int) *image.NRGBA {
	labels, sizes := components(img)
	if len(sizes) <= 1 {
		return img
	}
	w := img.Bounds().Dx()
	out := image.NewNRGBA(img.Bounds())
	copy(out.Pix, img.Pix)
	for i, l := range labels {
		if l >= 0 && sizes[l] < minPixels {
			p := (i/w)*out.Stride + (i%w)*4
			clear(out.Pix[p : p+4])
		}
	}
	return out
}

// Coverage returns the fraction of pixels that are not fully transparent.
func Coverage(img *image.NRGBA) float64 {
	b := img.Bounds()
	n := b.Dx() * b.Dy()
	if n == 0 {
		return 0
	}
	opaque := 0
	for y := range b.Dy() {
		row := img.Pix[y*img.Stride:]
		for x := range b.Dx() {
			if row[x*4+3] > 0 {
				opaque++
			}
		}
	}
	return float64(opaque) / float64(n)
}
