package smd

import (
	"errors"
	"testing"
)

func TestScannerTokens(t *testing.T) {
	sc := NewScanner("t.smd", []byte("version 1 // trailing\n"+
		"\"quoted name\" /* block\ncomment */ -3\n"+
		"  1.5e2\tend"))
	want := []struct {
		s    string
		line int
	}{
		{"version", 1}, {"1", 1}, {"quoted name", 2}, {"-3", 3}, {"1.5e2", 4}, {"end", 4},
	}
	for _, w := range want {
		if !sc.GetString() {
			t.Fatalf("GetString: early end before %q", w.s)
		}
		if sc.String != w.s || sc.Line != w.line {
			t.Fatalf("token\nhave %q line %d\nwant %q line %d", sc.String, sc.Line, w.s, w.line)
		}
	}
	if sc.GetString() {
		t.Fatalf("GetString after end\nhave %q", sc.String)
	}
}

func TestScannerUnGet(t *testing.T) {
	sc := NewScanner("t.smd", []byte("a b"))
	sc.GetString()
	sc.UnGet()
	if !sc.GetString() || sc.String != "a" {
		t.Fatalf("after UnGet\nhave %q\nwant a", sc.String)
	}
	if !sc.GetString() || sc.String != "b" {
		t.Fatalf("next\nhave %q\nwant b", sc.String)
	}
}

func TestScannerCompare(t *testing.T) {
	sc := NewScanner("t.smd", []byte("TriAngles"))
	sc.GetString()
	if !sc.Compare("triangles") {
		t.Fatal("Compare: want case-insensitive match")
	}
}

func TestScannerMust(t *testing.T) {
	sc := NewScanner("t.smd", []byte("12 x\n3.25"))
	var n int
	var f float64
	err := sc.Run(func() {
		n = sc.MustGetNumber()
		sc.MustGetNumber()
	})
	var se *SyntaxError
	if !errors.As(err, &se) || !errors.Is(err, ErrSyntax) {
		t.Fatalf("Run\nhave %v\nwant *SyntaxError", err)
	}
	if n != 12 || se.Line != 1 || se.File != "t.smd" {
		t.Fatalf("Run\nhave n=%d %+v", n, se)
	}
	if err := sc.Run(func() { f = sc.MustGetFloat() }); err != nil || f != 3.25 {
		t.Fatalf("MustGetFloat\nhave %v, %v\nwant 3.25", f, err)
	}
	if err := sc.Run(func() { sc.MustGetString() }); !errors.Is(err, ErrSyntax) {
		t.Fatalf("MustGetString at end\nhave %v\nwant ErrSyntax", err)
	}
}

func TestScannerUnterminatedString(t *testing.T) {
	sc := NewScanner("t.smd", []byte("\"open\nx\""))
	if err := sc.Run(func() { sc.MustGetString() }); !errors.Is(err, ErrSyntax) {
		t.Fatalf("unterminated string\nhave %v\nwant ErrSyntax", err)
	}
}

func TestScannerRunRepanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Run swallowed a foreign panic")
		}
	}()
	NewScanner("t.smd", nil).Run(func() { panic("boom") })
}
