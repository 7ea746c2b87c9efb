package texture

import (
	"image"

	"github.com/ngaut/log"
)

type cacheEntry struct {
	img *image.NRGBA
}

// Image returns the decoded texture, loading it on first use.
// A texture that fails to decode is remembered as nil.
func (m *Manager) Image(id ID) *image.NRGBA {
	// Fast path: read lock
	m.mu.RLock()
	if e, ok := m.images[id]; ok {
		m.mu.RUnlock()
		return e.img
	}
	if id < 0 || int(id) >= len(m.items) {
		m.mu.RUnlock()
		return nil
	}
	it := m.items[id]
	m.mu.RUnlock()

	// Slow path: read and decode
	var img *image.NRGBA
	data, err := m.files.ReadFile(it.handle)
	if err == nil {
		img, err = Decode(it.name, data)
	}
	if err != nil {
		log.Warnf("texture: %v", err)
	}

	// Write lock with double-check
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.images[id]; ok {
		return e.img
	}
	m.images[id] = &cacheEntry{img: img}
	return img
}
