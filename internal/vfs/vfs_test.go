package vfs

import (
	"errors"
	"testing"
	"testing/fstest"
)

func testIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := New(fstest.MapFS{
		"models/Soldier/Soldier.iqm": {Data: []byte("INTERQUAKEMODEL\x00")},
		"models/soldier/skin.PNG":    {Data: []byte("png")},
		"anims/run.smd":              {Data: []byte("version 1\n")},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return idx
}

func TestNormalize(t *testing.T) {
	for _, x := range []struct{ in, want string }{
		{`Models\Soldier\Soldier.IQM`, "models/soldier/soldier.iqm"},
		{"/models//a/./b.smd", "models/a/b.smd"},
		{"", ""},
	} {
		if have := Normalize(x.in); have != x.want {
			t.Fatalf("Normalize(%q)\nhave %q\nwant %q", x.in, have, x.want)
		}
	}
}

func TestFindCaseInsensitive(t *testing.T) {
	idx := testIndex(t)
	h, ok := idx.Find(`MODELS\soldier\SOLDIER.iqm`)
	if !ok {
		t.Fatal("Find: not found")
	}
	if name := idx.FullName(h); name != "models/Soldier/Soldier.iqm" {
		t.Fatalf("FullName\nhave %q\nwant models/Soldier/Soldier.iqm", name)
	}
	if n := idx.Length(h); n != 16 {
		t.Fatalf("Length\nhave %d\nwant 16", n)
	}
	data, err := idx.ReadFile(h)
	if err != nil || string(data[:15]) != "INTERQUAKEMODEL" {
		t.Fatalf("ReadFile\nhave %q, %v", data, err)
	}
	if _, ok := idx.Find("models/soldier/missing.iqm"); ok {
		t.Fatal("Find(missing): unexpected hit")
	}
}

func TestBadHandle(t *testing.T) {
	idx := testIndex(t)
	if _, err := idx.ReadFile(NoHandle); !errors.Is(err, ErrBadHandle) {
		t.Fatalf("ReadFile(NoHandle)\nhave %v\nwant ErrBadHandle", err)
	}
	if n := idx.Length(99); n != -1 {
		t.Fatalf("Length(99)\nhave %d\nwant -1", n)
	}
	if s := idx.FullName(99); s != "" {
		t.Fatalf("FullName(99)\nhave %q\nwant empty", s)
	}
}

func TestNames(t *testing.T) {
	idx := testIndex(t)
	if n := len(idx.Names()); n != 3 {
		t.Fatalf("Names()\nhave %d\nwant 3", n)
	}
	have := idx.Names(".IQM", ".smd")
	if len(have) != 2 {
		t.Fatalf("Names(.IQM, .smd)\nhave %v\nwant 2 entries", have)
	}
}
