// Package registry owns loaded models and animation clips. Each file is
// loaded once per normalized name; IDs are indices into the registry.
package registry

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/ngaut/log"

	"skelmodel/internal/model"
	"skelmodel/internal/smd"
	"skelmodel/internal/vfs"
)

var (
	ErrNotFound          = errors.New("registry: file not found")
	ErrUnknownFormat     = errors.New("registry: unknown model format")
	ErrUnsupportedFormat = errors.New("registry: no loader for model format")
	ErrBadID             = errors.New("registry: invalid id")
	ErrNotAnimatable     = errors.New("registry: model does not take animation clips")
)

// Registry is not safe for concurrent use. Load models from one goroutine;
// once loading is done the models themselves may be rendered concurrently.
type Registry struct {
	files   vfs.FileSystem
	skins   model.SkinLoader
	formats []Format

	models      []model.Model
	modelByName map[string]int
	anims       []*smd.Model
	animByName  map[string]int
}

// New creates a registry that resolves files through files and skins
// through skins. skins may be nil.
func New(files vfs.FileSystem, skins model.SkinLoader) *Registry {
	return &Registry{
		files:       files,
		skins:       skins,
		formats:     DefaultFormats,
		modelByName: make(map[string]int),
		animByName:  make(map[string]int),
	}
}

func joinName(dir, file string) string {
	dir = strings.ReplaceAll(dir, "\\", "/")
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	return dir + file
}

func dirOf(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if d := path.Dir(name); d != "." && d != "/" {
		return d + "/"
	}
	return ""
}

func (r *Registry) load(name string) (model.Model, error) {
	h, ok := r.files.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	data, err := r.files.ReadFile(h)
	if err != nil {
		return nil, fmt.Errorf("registry: %w", err)
	}
	f, err := Detect(r.formats, name, data, r.files)
	if err != nil {
		return nil, err
	}
	if f.New == nil {
		return nil, fmt.Errorf("%w: %s is %s", ErrUnsupportedFormat, name, f.Name)
	}
	m := f.New()
	ctx := &model.LoadContext{Files: r.files, Skins: r.skins, Handle: h, Dir: dirOf(name)}
	if err := m.Load(ctx, name, data); err != nil {
		return nil, err
	}
	return m, nil
}

// FindModel returns the ID of dir/file, loading it on first use. A name
// already in the registry is returned without touching the file system.
// Failed loads are not remembered.
func (r *Registry) FindModel(dir, file string) (int, error) {
	name := joinName(dir, file)
	key := vfs.Normalize(name)
	if id, ok := r.modelByName[key]; ok {
		return id, nil
	}
	m, err := r.load(name)
	if err != nil {
		log.Warnf("FindModel: '%s': %v", name, err)
		return -1, err
	}
	id := len(r.models)
	r.models = append(r.models, m)
	r.modelByName[key] = id
	return id, nil
}

// FindAnimation loads an animation clip file. Clips are kept apart from
// models and only text models can be clips.
func (r *Registry) FindAnimation(dir, file string) (int, error) {
	name := joinName(dir, file)
	key := vfs.Normalize(name)
	if id, ok := r.animByName[key]; ok {
		return id, nil
	}
	m, err := r.load(name)
	if err != nil {
		log.Warnf("FindAnimation: '%s': %v", name, err)
		return -1, err
	}
	anim, ok := m.(*smd.Model)
	if !ok {
		err := fmt.Errorf("%w: %s is not a text animation", ErrUnsupportedFormat, name)
		log.Warnf("FindAnimation: %v", err)
		return -1, err
	}
	id := len(r.anims)
	r.anims = append(r.anims, anim)
	r.animByName[key] = id
	return id, nil
}

// AttachAnimations appends the clips of animation animID to model modelID.
func (r *Registry) AttachAnimations(modelID, animID int) error {
	m := r.Model(modelID)
	anim := r.Animation(animID)
	if m == nil || anim == nil {
		return fmt.Errorf("%w: model %d, animation %d", ErrBadID, modelID, animID)
	}
	target, ok := m.(*smd.Model)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotAnimatable, m.FileName())
	}
	return target.AttachAnimations(anim)
}

// Model returns the model with the given ID, or nil.
func (r *Registry) Model(id int) model.Model {
	if id < 0 || id >= len(r.models) {
		return nil
	}
	return r.models[id]
}

// Animation returns the clip file with the given ID, or nil.
func (r *Registry) Animation(id int) *smd.Model {
	if id < 0 || id >= len(r.anims) {
		return nil
	}
	return r.anims[id]
}

func (r *Registry) Len() int { return len(r.models) }

// Models returns every loaded model in ID order.
func (r *Registry) Models() []model.Model { return r.models }

// AddSkins marks the skins of every model in a precache hitlist.
func (r *Registry) AddSkins(hitlist []uint8) {
	for _, m := range r.models {
		m.AddSkins(hitlist)
	}
}

// Flush drops every model's vertex buffers. Models stay loaded and rebuild
// their buffers on demand.
func (r *Registry) Flush() {
	for _, m := range r.models {
		m.DestroyVertexBuffer()
	}
	for _, a := range r.anims {
		a.DestroyVertexBuffer()
	}
}

// Close flushes and forgets everything. IDs handed out before are invalid.
func (r *Registry) Close() {
	r.Flush()
	r.models = nil
	r.anims = nil
	r.modelByName = make(map[string]int)
	r.animByName = make(map[string]int)
}
