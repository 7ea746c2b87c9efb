// Package texture registers skin textures by name, hands out stable IDs
// and decodes images on first use.
package texture

import (
	"path"
	"strings"
	"sync"

	"github.com/ngaut/log"

	"skelmodel/internal/vfs"
)

// ID identifies a registered texture. The zero value is a valid ID.
type ID int

const Invalid ID = -1

func (id ID) IsValid() bool { return id >= 0 }

// Precache hitlist flags, as set by AddSkins.
const (
	HitFlat uint8 = 1 << iota
	HitSky
)

// SkinExtensions are tried in order when a skin is not found under its
// own name.
var SkinExtensions = []string{".png", ".jpg", ".tga", ".pcx"}

type entry struct {
	name   string
	handle vfs.Handle
}

// Manager is a concurrency-safe texture registry with a decoded image cache.
type Manager struct {
	files vfs.FileSystem

	mu     sync.RWMutex
	byName map[string]ID
	items  []entry
	images map[ID]*cacheEntry
}

func NewManager(files vfs.FileSystem) *Manager {
	return &Manager{
		files:  files,
		byName: make(map[string]ID),
		images: make(map[ID]*cacheEntry),
	}
}

// FindGFXFile looks a skin up by exact name first, then by the same name
// with each of SkinExtensions in turn. The first hit wins.
func (m *Manager) FindGFXFile(name string) (vfs.Handle, bool) {
	if h, ok := m.files.Find(name); ok {
		return h, true
	}
	stem := name
	if ext := path.Ext(strings.ReplaceAll(name, "\\", "/")); ext != "" {
		stem = name[:len(name)-len(ext)]
	}
	for _, ext := range SkinExtensions {
		if h, ok := m.files.Find(stem + ext); ok {
			return h, true
		}
	}
	return vfs.NoHandle, false
}

// CheckForTexture returns the ID for a texture name, registering it when
// a file by that exact name exists. Invalid means nothing matched.
func (m *Manager) CheckForTexture(name string) ID {
	key := vfs.Normalize(name)
	if key == "" {
		return Invalid
	}
	m.mu.RLock()
	id, ok := m.byName[key]
	m.mu.RUnlock()
	if ok {
		return id
	}
	h, found := m.files.Find(name)
	if !found {
		return Invalid
	}
	return m.register(key, h)
}

func (m *Manager) register(key string, h vfs.Handle) ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.byName[key]; ok {
		return id
	}
	id := ID(len(m.items))
	m.items = append(m.items, entry{name: m.files.FullName(h), handle: h})
	m.byName[key] = id
	return id
}

// LoadSkin resolves a material name relative to a model directory.
// An empty name yields Invalid without touching the file system.
func (m *Manager) LoadSkin(dir, name string) ID {
	if name == "" {
		return Invalid
	}
	full := name
	if dir != "" {
		full = strings.TrimSuffix(dir, "/") + "/" + name
	}
	h, ok := m.FindGFXFile(full)
	if !ok {
		log.Debugf("texture: skin '%s' not found", full)
		return Invalid
	}
	return m.register(vfs.Normalize(m.files.FullName(h)), h)
}

// Name returns the file name behind an ID.
func (m *Manager) Name(id ID) string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id < 0 || int(id) >= len(m.items) {
		return ""
	}
	return m.items[id].name
}

// Len returns the number of registered textures. Hitlists passed to
// AddSkins must be at least this long.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}
