package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/go-playground/validator"
)

// Job is one preview to render.
type Job struct {
	Model string `json:"model" validate:"required"`
	// Animations are clip files attached to Model before rendering.
	Animations []string `json:"animations"`
	// Clip selects a named clip; Frame and Frame2 are then clip-relative.
	Clip   string  `json:"clip"`
	Frame  int     `json:"frame" validate:"gte=0"`
	Frame2 int     `json:"frame2" validate:"gte=0"`
	Inter  float64 `json:"inter" validate:"gte=0,lte=1"`
	// Bones maps joint names to rotation overrides in degrees.
	Bones map[string][3]float64 `json:"bones"`
	// Output is relative to the output dir. Defaults to the model name.
	Output string `json:"output"`
}

// Config holds all configurable paths and render settings.
type Config struct {
	// Paths
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`

	Jobs []Job `json:"jobs" validate:"dive"`

	// Render settings
	Camera       string `json:"camera" validate:"omitempty,oneof=preview front side back"`
	RenderSize   int    `json:"render_size" validate:"min=16,max=4096"`
	Supersample  int    `json:"supersample" validate:"min=1,max=8"`
	WebPQuality  int    `json:"webp_quality" validate:"min=1,max=100"`
	Workers      int    `json:"workers" validate:"min=1"`
	DespeckleMin int    `json:"despeckle_min" validate:"gte=0"`

	LogLevel string `json:"log_level" validate:"oneof=debug info warn error fatal"`
}

// Load reads a JSON config file and returns Config.
// Fields not set in the file keep their zero values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}

// Flags holds CLI flag values that override config file settings.
type Flags struct {
	DataDir   string
	OutputDir string
	Camera    string
	Quality   int
	Workers   int
	LogLevel  string
}

// Resolve fills in any empty fields with defaults.
// CLI flags take priority when non-zero/non-empty.
func (c *Config) Resolve(flags Flags) {
	if flags.DataDir != "" {
		c.DataDir = flags.DataDir
	}
	if flags.OutputDir != "" {
		c.OutputDir = flags.OutputDir
	}
	if flags.Camera != "" {
		c.Camera = flags.Camera
	}
	if flags.Quality > 0 {
		c.WebPQuality = flags.Quality
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.LogLevel != "" {
		c.LogLevel = flags.LogLevel
	}

	if c.DataDir == "" {
		c.DataDir, _ = os.Getwd()
	}
	if c.OutputDir == "" {
		c.OutputDir = filepath.Join(c.DataDir, "previews")
	} else if !filepath.IsAbs(c.OutputDir) {
		c.OutputDir = filepath.Join(c.DataDir, c.OutputDir)
	}

	if c.RenderSize <= 0 {
		c.RenderSize = 256
	}
	if c.Supersample <= 0 {
		c.Supersample = 2
	}
	if c.WebPQuality <= 0 {
		c.WebPQuality = 90
	}
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	for i := range c.Jobs {
		if c.Jobs[i].Frame2 == 0 && c.Jobs[i].Inter == 0 {
			c.Jobs[i].Frame2 = c.Jobs[i].Frame
		}
	}
}

var validate = validator.New()

// Validate checks a resolved config.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
