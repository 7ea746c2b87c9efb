package smd

import (
	"strings"

	"github.com/ngaut/log"
)

type node struct {
	id     int
	name   string
	parent int // file bone id, -1 for roots
}

type boneKey struct {
	id  int
	pos [3]float64
	rot [3]float64
}

type keyframe struct {
	time  int
	bones []boneKey
}

type rawClip struct {
	name   string
	frames []keyframe
}

type link struct {
	bone   int
	weight float32
}

type vertex struct {
	parent int
	pos    [3]float32
	normal [3]float32
	uv     [2]float32
	links  []link
}

type triangle [3]vertex

type group struct {
	material string
	tris     []triangle
}

// source is one parsed text model.
type source struct {
	nodes  []node
	clips  []rawClip
	groups []group
}

func parse(sc *Scanner, clipName string) (*source, error) {
	src := &source{}
	err := sc.Run(func() {
		sc.MustGetStringName("version")
		if v := sc.MustGetNumber(); v != 1 {
			sc.Errorf("unsupported version %d", v)
		}
		for sc.GetString() {
			switch {
			case sc.Compare("nodes"):
				src.parseNodes(sc)
			case sc.Compare("skeleton"):
				src.parseSkeleton(sc, clipName)
			case sc.Compare("triangles"):
				src.parseTriangles(sc)
			default:
				log.Debugf("smd: skipping block '%s'", sc.String)
				skipBlock(sc)
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return src, nil
}

func skipBlock(sc *Scanner) {
	for {
		sc.MustGetString()
		if sc.Compare("end") {
			return
		}
	}
}

func (src *source) parseNodes(sc *Scanner) {
	for {
		sc.MustGetString()
		if sc.Compare("end") {
			return
		}
		sc.UnGet()
		n := node{id: sc.MustGetNumber()}
		sc.MustGetString()
		n.name = sc.String
		n.parent = sc.MustGetNumber()
		src.nodes = append(src.nodes, n)
	}
}

// parseSkeleton reads "skeleton [name] (time n (id px py pz rx ry rz)*)* end".
func (src *source) parseSkeleton(sc *Scanner, clipName string) {
	clip := rawClip{name: clipName}
	sc.MustGetString()
	if !sc.Compare("time") && !sc.Compare("end") {
		clip.name = sc.String
		sc.MustGetString()
	}
	for sc.Compare("time") {
		kf := keyframe{time: sc.MustGetNumber()}
		for {
			sc.MustGetString()
			if sc.Compare("time") || sc.Compare("end") {
				break
			}
			sc.UnGet()
			k := boneKey{id: sc.MustGetNumber()}
			for i := range k.pos {
				k.pos[i] = sc.MustGetFloat()
			}
			for i := range k.rot {
				k.rot[i] = sc.MustGetFloat()
			}
			kf.bones = append(kf.bones, k)
		}
		clip.frames = append(clip.frames, kf)
	}
	if !sc.Compare("end") {
		sc.Errorf("expected 'time' or 'end', got '%s'", sc.String)
	}
	if len(clip.frames) > 0 {
		src.clips = append(src.clips, clip)
	}
}

func (src *source) group(material string) *group {
	for i := range src.groups {
		if strings.EqualFold(src.groups[i].material, material) {
			return &src.groups[i]
		}
	}
	src.groups = append(src.groups, group{material: material})
	return &src.groups[len(src.groups)-1]
}

func (src *source) parseTriangles(sc *Scanner) {
	for {
		sc.MustGetString()
		if sc.Compare("end") {
			return
		}
		g := src.group(restOfLine(sc))
		var t triangle
		for i := range t {
			t[i] = parseVertex(sc)
		}
		g.tris = append(g.tris, t)
	}
}

// restOfLine joins the current token with the rest of its line.
func restOfLine(sc *Scanner) string {
	s, line := sc.String, sc.Line
	for sc.GetString() {
		if sc.Line != line {
			sc.UnGet()
			break
		}
		s += " " + sc.String
	}
	return s
}

// parseVertex reads "parent px py pz nx ny nz u v [count (bone weight)*]".
// The link list must be on the same line as the vertex.
func parseVertex(sc *Scanner) vertex {
	v := vertex{parent: sc.MustGetNumber()}
	line := sc.Line
	for i := range v.pos {
		v.pos[i] = float32(sc.MustGetFloat())
	}
	for i := range v.normal {
		v.normal[i] = float32(sc.MustGetFloat())
	}
	v.uv[0] = float32(sc.MustGetFloat())
	v.uv[1] = float32(sc.MustGetFloat())
	if !sc.GetString() {
		return v
	}
	sc.UnGet()
	if sc.Line != line {
		return v
	}
	n := sc.MustGetNumber()
	if n < 0 {
		sc.Errorf("negative link count %d", n)
	}
	for i := 0; i < n; i++ {
		l := link{bone: sc.MustGetNumber()}
		l.weight = float32(sc.MustGetFloat())
		if sc.Line != line {
			sc.Errorf("vertex links continue past the end of the line")
		}
		v.links = append(v.links, l)
	}
	return v
}
