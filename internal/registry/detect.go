package registry

import (
	"bytes"
	"fmt"
	"strings"

	"skelmodel/internal/iqm"
	"skelmodel/internal/model"
	"skelmodel/internal/smd"
	"skelmodel/internal/vfs"
)

// Format recognizes one model file format. New is nil for formats that are
// recognized but have no loader here.
type Format struct {
	Name  string
	Match func(name string, data []byte, files vfs.FileSystem) bool
	New   func() model.Model
}

func hasSuffixFold(s, suffix string) bool {
	return len(s) >= len(suffix) && strings.EqualFold(s[len(s)-len(suffix):], suffix)
}

func suffix(ext string) func(string, []byte, vfs.FileSystem) bool {
	return func(name string, _ []byte, _ vfs.FileSystem) bool {
		return hasSuffixFold(name, ext)
	}
}

func magic(id string) func(string, []byte, vfs.FileSystem) bool {
	return func(_ string, data []byte, _ vfs.FileSystem) bool {
		return bytes.HasPrefix(data, []byte(id))
	}
}

// pair matches a file ending in self whose sibling ending in other exists.
func pair(self, other string) func(string, []byte, vfs.FileSystem) bool {
	return func(name string, _ []byte, files vfs.FileSystem) bool {
		if !hasSuffixFold(name, self) {
			return false
		}
		_, ok := files.Find(name[:len(name)-len(self)] + other)
		return ok
	}
}

// DefaultFormats lists every format in detection order.
var DefaultFormats = []Format{
	{Name: "UE1", Match: pair("_d.3d", "_a.3d")},
	{Name: "UE1", Match: pair("_a.3d", "_d.3d")},
	{Name: "OBJ", Match: suffix(".obj")},
	{Name: "IQM", Match: magic(iqm.Magic), New: func() model.Model { return iqm.New() }},
	{Name: "DMD", Match: magic("DMDM")},
	{Name: "MD2", Match: magic("IDP2")},
	{Name: "MD3", Match: magic("IDP3")},
	{Name: "SMD", Match: magic(smd.Header), New: func() model.Model { return smd.New() }},
}

// Detect returns the first format that matches.
func Detect(formats []Format, name string, data []byte, files vfs.FileSystem) (Format, error) {
	var tried []string
	for _, f := range formats {
		if f.Match(name, data, files) {
			return f, nil
		}
		if len(tried) == 0 || tried[len(tried)-1] != f.Name {
			tried = append(tried, f.Name)
		}
	}
	return Format{}, fmt.Errorf("%w: %s (tried %s)", ErrUnknownFormat, name, strings.Join(tried, ", "))
}
