package registry

import (
	"errors"
	"strings"
	"testing"
	"testing/fstest"

	"skelmodel/internal/iqm"
	"skelmodel/internal/iqm/iqmtest"
	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/model/modeltest"
	"skelmodel/internal/smd"
	"skelmodel/internal/vfs"
)

const soldier = `version 1
nodes
0 "root" -1
1 "child" 0
end
skeleton
time 0
0 0 0 0 0 0 0
1 0 0 1 0 0 0
end
triangles
body.bmp
0 0 0 0 0 0 1 0 0
1 0 1 0 0 0 1 1 0
1 0 0 1 0 0 1 0 1
end
`

const run = `version 1
nodes
0 "root" -1
1 "child" 0
end
skeleton
time 0
0 0 0 5 0 0 0
time 1
0 0 0 7 0 0 0
end
`

const walk = `version 1
skeleton
time 0
0 0 0 5 0 0 0
1 0 0 1 0 0 0
time 1
0 0 0 7 0 0 0
end
`

// countingFS counts Find calls so tests can tell cache hits from loads.
type countingFS struct {
	vfs.FileSystem
	finds map[string]int
}

func (c *countingFS) Find(name string) (vfs.Handle, bool) {
	c.finds[vfs.Normalize(name)]++
	return c.FileSystem.Find(name)
}

func staticIQM() []byte {
	j := iqmtest.Joint{Name: "root", Parent: -1, Q: iqmtest.Identity, S: iqmtest.One}
	return (&iqmtest.Builder{
		Joints:    []iqmtest.Joint{j},
		Poses:     []iqmtest.Pose{iqmtest.StaticPose(j)},
		NumFrames: 1,
		Meshes:    []iqmtest.Mesh{{Name: "m", Material: "skin.png", NumVertices: 3, NumTriangles: 1}},
		Triangles: [][3]uint32{{0, 1, 2}},
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}).Bytes()
}

func newTestRegistry(t *testing.T, files fstest.MapFS) (*Registry, *countingFS, *modeltest.Skins) {
	t.Helper()
	idx, err := vfs.New(files)
	if err != nil {
		t.Fatal(err)
	}
	fsys := &countingFS{FileSystem: idx, finds: map[string]int{}}
	skins := &modeltest.Skins{}
	return New(fsys, skins), fsys, skins
}

func testTree() fstest.MapFS {
	return fstest.MapFS{
		"models/soldier.smd": {Data: []byte(soldier)},
		"models/run.smd":     {Data: []byte(run)},
		"models/walk.smd":    {Data: []byte(walk)},
		"models/tank.iqm":    {Data: staticIQM()},
		"models/broken.iqm":  {Data: staticIQM()[:40]},
		"models/quake.md2":   {Data: []byte("IDP2\x08\x00\x00\x00")},
		"models/level.obj":   {Data: []byte("v 0 0 0\n")},
		"models/pawn_d.3d":   {Data: []byte{1, 2, 3}},
		"models/pawn_a.3d":   {Data: []byte{1, 2, 3}},
		"models/lonely_d.3d": {Data: []byte{1, 2, 3}},
		"models/readme.txt":  {Data: []byte("hello")},
	}
}

func TestFindModel(t *testing.T) {
	r, fsys, skins := newTestRegistry(t, testTree())

	id, err := r.FindModel("models", "tank.iqm")
	if err != nil {
		t.Fatalf("FindModel: %v", err)
	}
	if _, ok := r.Model(id).(*iqm.Model); !ok {
		t.Fatalf("Model(%d)\nhave %T\nwant *iqm.Model", id, r.Model(id))
	}
	if len(skins.Requests) != 1 || skins.Requests[0] != "models/skin.png" {
		t.Fatalf("skin requests\nhave %q\nwant [models/skin.png]", skins.Requests)
	}

	id2, err := r.FindModel("models/", "soldier.smd")
	if err != nil {
		t.Fatalf("FindModel: %v", err)
	}
	if _, ok := r.Model(id2).(*smd.Model); !ok || id2 == id {
		t.Fatalf("Model(%d)\nhave %T\nwant a distinct *smd.Model", id2, r.Model(id2))
	}
	if r.Len() != 2 {
		t.Fatalf("Len\nhave %d\nwant 2", r.Len())
	}
	if fsys.finds["models/tank.iqm"] != 1 {
		t.Fatalf("Find calls\nhave %d\nwant 1", fsys.finds["models/tank.iqm"])
	}
}

func TestFindModelDedup(t *testing.T) {
	r, fsys, _ := newTestRegistry(t, testTree())
	first, err := r.FindModel("models", "tank.iqm")
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range [][2]string{{"models", "tank.iqm"}, {"Models\\", "TANK.iqm"}, {"", "models/Tank.IQM"}} {
		id, err := r.FindModel(name[0], name[1])
		if err != nil || id != first {
			t.Fatalf("FindModel(%q, %q)\nhave %d, %v\nwant %d", name[0], name[1], id, err, first)
		}
	}
	if n := fsys.finds["models/tank.iqm"]; n != 1 {
		t.Fatalf("Find calls\nhave %d\nwant 1", n)
	}
	if r.Len() != 1 {
		t.Fatalf("Len\nhave %d\nwant 1", r.Len())
	}
}

func TestFindModelErrors(t *testing.T) {
	tests := []struct {
		file string
		want error
	}{
		{"missing.iqm", ErrNotFound},
		{"readme.txt", ErrUnknownFormat},
		{"lonely_d.3d", ErrUnknownFormat},
		{"pawn_d.3d", ErrUnsupportedFormat},
		{"pawn_a.3d", ErrUnsupportedFormat},
		{"quake.md2", ErrUnsupportedFormat},
		{"level.obj", ErrUnsupportedFormat},
		{"broken.iqm", iqm.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			r, _, _ := newTestRegistry(t, testTree())
			id, err := r.FindModel("models", tt.file)
			if !errors.Is(err, tt.want) {
				t.Fatalf("FindModel\nhave %v\nwant %v", err, tt.want)
			}
			if id != -1 || r.Len() != 0 {
				t.Fatalf("failed load left id %d, %d models", id, r.Len())
			}
		})
	}
}

func TestFindModelRetriesAfterFailure(t *testing.T) {
	r, fsys, _ := newTestRegistry(t, testTree())
	for range 2 {
		if _, err := r.FindModel("models", "broken.iqm"); err == nil {
			t.Fatal("FindModel succeeded on a truncated file")
		}
	}
	if n := fsys.finds["models/broken.iqm"]; n != 2 {
		t.Fatalf("Find calls\nhave %d\nwant 2", n)
	}
}

func TestDetectListsTriedFormats(t *testing.T) {
	idx, err := vfs.New(fstest.MapFS{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = Detect(DefaultFormats, "x.bin", []byte("nothing"), idx)
	if !errors.Is(err, ErrUnknownFormat) {
		t.Fatalf("Detect\nhave %v\nwant %v", err, ErrUnknownFormat)
	}
	want := "UE1, OBJ, IQM, DMD, MD2, MD3, SMD"
	if !strings.Contains(err.Error(), want) {
		t.Fatalf("Detect error\nhave %q\nwant it to list %q", err, want)
	}
}

func TestDetectOrder(t *testing.T) {
	idx, err := vfs.New(fstest.MapFS{})
	if err != nil {
		t.Fatal(err)
	}
	// The extension check runs before magic checks.
	f, err := Detect(DefaultFormats, "a.OBJ", []byte(iqm.Magic), idx)
	if err != nil || f.Name != "OBJ" {
		t.Fatalf("Detect\nhave %q, %v\nwant OBJ", f.Name, err)
	}
	f, err = Detect(DefaultFormats, "a.mdl", []byte("version 1\nnodes\n"), idx)
	if err != nil || f.Name != "SMD" {
		t.Fatalf("Detect\nhave %q, %v\nwant SMD", f.Name, err)
	}
}

func TestAttachAnimations(t *testing.T) {
	r, _, _ := newTestRegistry(t, testTree())
	mid, err := r.FindModel("models", "soldier.smd")
	if err != nil {
		t.Fatal(err)
	}
	aid, err := r.FindAnimation("models", "run.smd")
	if err != nil {
		t.Fatal(err)
	}
	if again, _ := r.FindAnimation("MODELS", "Run.smd"); again != aid {
		t.Fatalf("FindAnimation dedup\nhave %d\nwant %d", again, aid)
	}
	if r.Len() != 1 {
		t.Fatalf("animations counted as models: Len %d", r.Len())
	}

	rec := &modeltest.Recorder{Kind: model.SoftwareRenderer}
	m := r.Model(mid)
	if err := m.BuildVertexBuffer(rec); err != nil {
		t.Fatal(err)
	}
	if err := r.AttachAnimations(mid, aid); err != nil {
		t.Fatalf("AttachAnimations: %v", err)
	}
	if m.VertexBuffer(model.SoftwareRenderer) != nil {
		t.Fatal("AttachAnimations kept a stale vertex buffer")
	}
	if f := m.FindFrame("run"); f < 0 {
		t.Fatalf("FindFrame(run)\nhave %d\nwant a clip", f)
	}
}

func TestAttachClipFile(t *testing.T) {
	r, _, _ := newTestRegistry(t, testTree())
	mid, err := r.FindModel("models", "soldier.smd")
	if err != nil {
		t.Fatal(err)
	}
	aid, err := r.FindAnimation("models", "walk.smd")
	if err != nil {
		t.Fatalf("FindAnimation(walk): %v", err)
	}
	if err := r.AttachAnimations(mid, aid); err != nil {
		t.Fatalf("AttachAnimations: %v", err)
	}
	m := r.Model(mid).(*smd.Model)
	if f := m.FindFrame("walk"); f != 1 {
		t.Fatalf("FindFrame(walk)\nhave %d\nwant 1", f)
	}
	s := m.Skeleton()
	if s.NumFrames() != 3 {
		t.Fatalf("NumFrames\nhave %d\nwant 3", s.NumFrames())
	}
	if tr := s.Raw(2, 0).Translation; tr != (mathutil.Vec3{0, 0, 7}) {
		t.Fatalf("root at walk time 1\nhave %v\nwant [0 0 7]", tr)
	}
}

func TestAttachAnimationsErrors(t *testing.T) {
	r, _, _ := newTestRegistry(t, testTree())
	tank, err := r.FindModel("models", "tank.iqm")
	if err != nil {
		t.Fatal(err)
	}
	aid, err := r.FindAnimation("models", "run.smd")
	if err != nil {
		t.Fatal(err)
	}
	if err := r.AttachAnimations(tank, aid); !errors.Is(err, ErrNotAnimatable) {
		t.Fatalf("AttachAnimations(iqm)\nhave %v\nwant %v", err, ErrNotAnimatable)
	}
	if err := r.AttachAnimations(tank, 7); !errors.Is(err, ErrBadID) {
		t.Fatalf("AttachAnimations(bad id)\nhave %v\nwant %v", err, ErrBadID)
	}
	if _, err := r.FindAnimation("models", "tank.iqm"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("FindAnimation(iqm)\nhave %v\nwant %v", err, ErrUnsupportedFormat)
	}
}

func TestFlushAndClose(t *testing.T) {
	r, _, _ := newTestRegistry(t, testTree())
	var ids []int
	for _, name := range []string{"tank.iqm", "soldier.smd"} {
		id, err := r.FindModel("models", name)
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, id)
	}
	for _, kind := range []model.RendererType{model.SoftwareRenderer, model.ExportRenderer} {
		rec := &modeltest.Recorder{Kind: kind}
		for _, id := range ids {
			if err := r.Model(id).BuildVertexBuffer(rec); err != nil {
				t.Fatal(err)
			}
		}
	}

	r.Flush()
	for _, id := range ids {
		for kind := range model.NumRendererTypes {
			if r.Model(id).VertexBuffer(kind) != nil {
				t.Fatalf("model %d kept a %v buffer after Flush", id, kind)
			}
		}
	}
	if r.Len() != 2 {
		t.Fatalf("Flush unloaded models: Len %d", r.Len())
	}

	r.Close()
	if r.Len() != 0 || r.Model(ids[0]) != nil {
		t.Fatalf("Close left %d models", r.Len())
	}
}
