package raster

import (
	"image"

	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/ngaut/log"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/texture"
)

// TextureSource resolves skin IDs to decoded images.
type TextureSource interface {
	Image(id texture.ID) *image.NRGBA
}

type posedTri struct {
	p   [3]mathutil.Vec3
	uv  [3][2]float64
	mat Material
}

// Renderer is a CPU implementation of model.Renderer. Draw calls collect
// posed triangles; Image fits an orthographic camera to them and
// rasterizes. A Renderer is used by one goroutine at a time.
type Renderer struct {
	Size        int
	Supersample int
	View        mathutil.Mat3
	Textures    TextureSource
	Bones       *BoneBuffer
	Light       LightConfig

	vb     *VertexBuffer
	off1   int
	off2   int
	count  int
	bones  []mathutil.Mat4
	inter  float64
	posed  []mathutil.Vec3
	dirty  bool
	mat    Material
	tris   []posedTri
	bounds dvec3.Box
}

// NewRenderer creates a renderer producing size×size images at the given
// supersampling factor.
func NewRenderer(size, supersample int, view mathutil.Mat3, textures TextureSource, bones *BoneBuffer) *Renderer {
	r := &Renderer{
		Size:        size,
		Supersample: max(supersample, 1),
		View:        view,
		Textures:    textures,
		Bones:       bones,
		Light:       DefaultLightConfig(),
	}
	r.Reset()
	return r
}

func (r *Renderer) Type() model.RendererType { return model.SoftwareRenderer }

func (r *Renderer) CreateVertexBuffer(needIndex, singleFrame bool) model.VertexBuffer {
	return &VertexBuffer{NeedIndex: needIndex, SingleFrame: singleFrame}
}

// SetupFrame selects the vertex range and bone set of the next draws.
func (r *Renderer) SetupFrame(m model.Model, off1, off2, count int, bones []mathutil.Mat4) {
	r.vb, _ = m.VertexBuffer(model.SoftwareRenderer).(*VertexBuffer)
	if r.vb == nil {
		log.Warnf("raster: %s has no software vertex buffer", m.FileName())
	}
	r.off1, r.off2, r.count = off1, off2, count
	r.bones = bones
	if r.Bones != nil && len(bones) > 0 {
		if idx := r.Bones.Upload(bones); idx >= 0 {
			r.bones = r.Bones.Bones(idx, min(len(bones), r.Bones.maxUpload))
		} else {
			// Full buffer: draw the rest pose.
			r.bones = nil
		}
	}
	r.dirty = true
}

func (r *Renderer) SetMaterial(skin texture.ID, clampNoFilter bool, translation int) {
	r.mat = Material{Clamp: clampNoFilter, Flat: DefaultFlat}
	if skin.IsValid() && r.Textures != nil {
		r.mat.Tex = r.Textures.Image(skin)
	}
	// Translations remap palettes; true-color skins have none.
	_ = translation
}

func (r *Renderer) SetInterpolation(t float64) {
	r.inter = t
	r.dirty = true
}

func (r *Renderer) pose() {
	if !r.dirty {
		return
	}
	r.dirty = false
	r.posed = r.posed[:0]
	if r.vb == nil {
		return
	}
	for i := range r.count {
		p := r.vertex(r.off1 + i)
		if r.off2 != r.off1 && r.inter != 0 {
			q := r.vertex(r.off2 + i)
			p = mathutil.Lerp(p, q, r.inter)
		}
		r.posed = append(r.posed, p)
	}
}

func (r *Renderer) vertex(i int) mathutil.Vec3 {
	if i < 0 || i >= len(r.vb.Vertices) {
		return mathutil.Vec3{}
	}
	p, _ := model.Skin(&r.vb.Vertices[i], r.bones)
	return p
}

// DrawArrays draws count vertices from start as a triangle list.
func (r *Renderer) DrawArrays(start, count int) {
	r.pose()
	for i := start; i+2 < start+count; i += 3 {
		r.addTri(i, i+1, i+2)
	}
}

// DrawElements draws numIndices indices from firstIndex as a triangle list.
func (r *Renderer) DrawElements(numIndices, firstIndex int) {
	r.pose()
	if r.vb == nil || firstIndex < 0 || firstIndex+numIndices > len(r.vb.Indices) {
		return
	}
	idx := r.vb.Indices[firstIndex : firstIndex+numIndices]
	for i := 0; i+2 < len(idx); i += 3 {
		r.addTri(int(idx[i]), int(idx[i+1]), int(idx[i+2]))
	}
}

// addTri takes indices relative to the frame's first vertex.
func (r *Renderer) addTri(a, b, c int) {
	if r.vb == nil {
		return
	}
	var t posedTri
	for k, i := range [3]int{a, b, c} {
		if i < 0 || i >= len(r.posed) {
			return
		}
		v := &r.vb.Vertices[r.off1+i]
		t.p[k] = r.View.MulVec3(r.posed[i])
		t.uv[k] = [2]float64{float64(v.U), float64(v.V)}
		pt := dvec3.T(t.p[k])
		box := dvec3.Box{Min: pt, Max: pt}
		r.bounds.Join(&box)
	}
	t.mat = r.mat
	r.tris = append(r.tris, t)
}

// Triangles reports how many triangles have been drawn since Reset.
func (r *Renderer) Triangles() int { return len(r.tris) }

// Bounds returns the view-space box of everything drawn since Reset.
func (r *Renderer) Bounds() dvec3.Box { return r.bounds }

// Reset drops collected triangles and starts a new bone frame.
func (r *Renderer) Reset() {
	r.tris = r.tris[:0]
	r.bounds = dvec3.MinBox
	r.vb = nil
	if r.Bones != nil {
		r.Bones.Clear()
	}
}

// Image rasterizes the collected triangles at Size×Supersample pixels.
func (r *Renderer) Image() *image.NRGBA {
	renderSize := r.Size * r.Supersample
	img := image.NewNRGBA(image.Rect(0, 0, renderSize, renderSize))
	if len(r.tris) == 0 {
		return img
	}

	center := [3]float64{
		(r.bounds.Min[0] + r.bounds.Max[0]) / 2,
		(r.bounds.Min[1] + r.bounds.Max[1]) / 2,
		(r.bounds.Min[2] + r.bounds.Max[2]) / 2,
	}
	span := max(r.bounds.Max[0]-r.bounds.Min[0], r.bounds.Max[1]-r.bounds.Min[1], 0.001)
	margin := 16 * r.Supersample
	scale := float64(renderSize-2*margin) / span
	half := float64(renderSize) / 2

	fb := NewFrameBuffer(renderSize, renderSize)
	var st [3]ScreenVertex
	for i := range r.tris {
		t := &r.tris[i]
		for k := range 3 {
			st[k] = ScreenVertex{
				X: (t.p[k][0]-center[0])*scale + half,
				Y: -(t.p[k][1]-center[1])*scale + half,
				Z: t.p[k][2],
				U: t.uv[k][0],
				V: t.uv[k][1],
			}
		}
		RasterizeTriangle(fb, &st, &t.mat, &r.Light)
	}
	copy(img.Pix, fb.Color)
	return img
}
