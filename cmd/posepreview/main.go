package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ngaut/log"

	"skelmodel/internal/batch"
	"skelmodel/internal/config"
	"skelmodel/internal/mathutil"
	"skelmodel/internal/registry"
	"skelmodel/internal/skeleton"
	"skelmodel/internal/texture"
	"skelmodel/internal/vfs"
)

func main() {
	// CLI flags
	configFile := flag.String("config", "", "Path to config.json file")
	workers := flag.Int("workers", 0, "Number of worker goroutines (default: NumCPU)")
	dataDir := flag.String("data", "", "Directory models and skins are resolved against (default: cwd)")
	outputDir := flag.String("output", "", "Output directory (default: <data>/previews)")
	camera := flag.String("camera", "", "Camera: preview, front, side or back")
	quality := flag.Int("quality", 0, "WebP quality 1-100 (default: 90)")
	logLevel := flag.String("log", "", "Log level: debug, info, warn, error")
	flag.Parse()

	var cfg config.Config
	if *configFile != "" {
		var err error
		cfg, err = config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}
	}

	// Models named on the command line render their rest pose.
	for _, arg := range flag.Args() {
		cfg.Jobs = append(cfg.Jobs, config.Job{Model: arg})
	}

	cfg.Resolve(config.Flags{
		DataDir:   *dataDir,
		OutputDir: *outputDir,
		Camera:    *camera,
		Quality:   *quality,
		Workers:   *workers,
		LogLevel:  *logLevel,
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	log.SetLevelByString(cfg.LogLevel)

	if len(cfg.Jobs) == 0 {
		fmt.Println("No models to render.")
		os.Exit(0)
	}

	files, err := vfs.Open(cfg.DataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing %s: %v\n", cfg.DataDir, err)
		os.Exit(1)
	}
	skins := texture.NewManager(files)
	reg := registry.New(files, skins)
	defer reg.Close()
	view, _ := mathutil.ViewByName(cfg.Camera)

	fmt.Printf("Skeletal pose preview → WebP\n")
	fmt.Printf("Files: %d indexed, Jobs: %d, Workers: %d\n", files.Len(), len(cfg.Jobs), cfg.Workers)
	fmt.Printf("Output: %s\n", cfg.OutputDir)
	fmt.Println("------------------------------------------------------------")

	start := time.Now()

	jobs := make([]batch.Job, len(cfg.Jobs))
	for i, j := range cfg.Jobs {
		jobs[i] = batch.Job{
			Model:      j.Model,
			Animations: j.Animations,
			Clip:       j.Clip,
			Frame:      j.Frame,
			Frame2:     j.Frame2,
			Inter:      j.Inter,
			Overrides:  overrides(j.Bones),
			Output:     j.Output,
		}
	}
	results := batch.Run(batch.Config{
		Registry:     reg,
		Textures:     skins,
		OutputDir:    cfg.OutputDir,
		View:         view,
		RenderSize:   cfg.RenderSize,
		Supersample:  cfg.Supersample,
		Workers:      cfg.Workers,
		DespeckleMin: cfg.DespeckleMin,
	}, jobs)

	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Done in %.1fs\n", time.Since(start).Seconds())

	success := 0
	var failed []batch.Result
	for _, r := range results {
		if r.Success {
			success++
		} else {
			failed = append(failed, r)
		}
	}
	fmt.Printf("Rendered: %d/%d\n", success, len(results))

	if len(failed) > 0 {
		fmt.Printf("\nFailed (%d):\n", len(failed))
		for _, e := range failed[:min(len(failed), 20)] {
			fmt.Printf("  %s: %s\n", e.Name, e.Error)
		}
	}

	manifestPath := filepath.Join(cfg.OutputDir, "manifest.json")
	os.MkdirAll(cfg.OutputDir, 0755)
	if err := batch.WriteManifest(manifestPath, results); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: manifest write failed: %v\n", err)
	} else {
		fmt.Printf("Manifest: %s\n", manifestPath)
	}

	if len(failed) > 0 {
		os.Exit(1)
	}
}

// overrides turns per-joint Euler angles in degrees into additive rotations.
func overrides(bones map[string][3]float64) map[string]skeleton.Override {
	if len(bones) == 0 {
		return nil
	}
	out := make(map[string]skeleton.Override, len(bones))
	for name, deg := range bones {
		out[name] = skeleton.Override{Rotation: mathutil.EulerToQuat(
			mathutil.Deg2Rad(deg[0]), mathutil.Deg2Rad(deg[1]), mathutil.Deg2Rad(deg[2]))}
	}
	return out
}
