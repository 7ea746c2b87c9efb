package iqm

import (
	"fmt"
	"strings"

	"skelmodel/internal/model"
	"skelmodel/internal/texture"
)

// FindFrame returns the index of the animation with the given name.
func (m *Model) FindFrame(name string) int {
	for i, a := range m.Anims {
		if strings.EqualFold(a.Name, name) {
			return i
		}
	}
	return -1
}

func (m *Model) Clips() []model.Clip {
	clips := make([]model.Clip, len(m.Anims))
	for i, a := range m.Anims {
		clips[i] = model.Clip{
			Name:       a.Name,
			FirstFrame: int(a.FirstFrame),
			NumFrames:  int(a.NumFrames),
			FrameRate:  a.FrameRate,
			Loop:       a.Loop,
		}
	}
	return clips
}

// AddSkins marks every mesh skin in a precache hitlist.
func (m *Model) AddSkins(hitlist []uint8) {
	for _, mesh := range m.Meshes {
		if mesh.Skin.IsValid() && int(mesh.Skin) < len(hitlist) {
			hitlist[mesh.Skin] |= texture.HitFlat
		}
	}
}

// RenderFrame evaluates the pose and draws every mesh with its skin.
// BuildVertexBuffer must have run for r's type.
func (m *Model) RenderFrame(r model.Renderer, p *model.RenderParams) error {
	if m.VertexBuffer(r.Type()) == nil {
		return fmt.Errorf("%w: %s (%s)", ErrNotBuilt, m.Name, r.Type())
	}
	f1, f2 := p.Frame, p.Frame2
	if p.AnimationID >= 0 && p.AnimationID < len(m.Anims) {
		c := m.Clips()[p.AnimationID]
		f1, f2 = c.Frame(f1), c.Frame(f2)
	}
	bones := m.skel.Evaluate(f1, f2, p.Inter, p.Overrides)

	r.SetupFrame(m, 0, 0, int(m.NumVertices), bones)
	r.SetInterpolation(p.Inter)
	for i, mesh := range m.Meshes {
		// Meshes without a skin are still drawn; the backend decides how.
		r.SetMaterial(p.SkinFor(i, mesh.Skin), false, p.Translation)
		r.DrawElements(int(mesh.NumTriangles)*3, int(mesh.FirstTriangle)*3)
	}
	return nil
}
