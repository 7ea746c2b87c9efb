package batch

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/HugoSmits86/nativewebp"
	"github.com/ngaut/log"

	"skelmodel/internal/mathutil"
	"skelmodel/internal/model"
	"skelmodel/internal/postprocess"
	"skelmodel/internal/raster"
	"skelmodel/internal/registry"
	"skelmodel/internal/skeleton"
)

// boneCapacity bounds the bones one worker can pose per image.
const boneCapacity = 4096

// Config holds all shared resources for a batch run.
type Config struct {
	Registry     *registry.Registry
	Textures     raster.TextureSource
	OutputDir    string
	View         mathutil.Mat3
	RenderSize   int
	Supersample  int
	Workers      int
	DespeckleMin int
}

// Job renders one pose of one model.
type Job struct {
	Model      string
	Animations []string
	Clip       string
	Frame      int
	Frame2     int
	Inter      float64
	Overrides  map[string]skeleton.Override
	Output     string
}

// Result holds the outcome of processing one job.
type Result struct {
	Name      string
	Image     string
	Clip      string
	Frame     int
	Frame2    int
	Inter     float64
	Triangles int
	Coverage  float64
	Success   bool
	Error     string
}

type task struct {
	job    Job
	model  model.Model
	params model.RenderParams
	out    string
}

// outputName returns the image path relative to the output dir.
func outputName(j Job) string {
	if j.Output != "" {
		return j.Output
	}
	base := strings.TrimSuffix(path.Base(strings.ReplaceAll(j.Model, "\\", "/")), path.Ext(j.Model))
	if j.Clip != "" {
		base += "_" + j.Clip
	}
	return fmt.Sprintf("%s_%d.webp", base, j.Frame)
}

// prepare loads models and builds their buffers. The registry is not safe
// for concurrent use, so this runs before any worker starts.
func prepare(cfg Config, j Job, r model.Renderer, attached map[[2]int]bool) (task, error) {
	t := task{job: j, params: model.DefaultRenderParams(), out: outputName(j)}
	id, err := cfg.Registry.FindModel("", j.Model)
	if err != nil {
		return t, err
	}
	for _, a := range j.Animations {
		aid, err := cfg.Registry.FindAnimation("", a)
		if err != nil {
			return t, err
		}
		if attached[[2]int{id, aid}] {
			continue
		}
		if err := cfg.Registry.AttachAnimations(id, aid); err != nil {
			return t, err
		}
		attached[[2]int{id, aid}] = true
	}
	t.model = cfg.Registry.Model(id)
	if j.Clip != "" {
		clip := t.model.FindFrame(j.Clip)
		if clip < 0 {
			return t, fmt.Errorf("batch: %s: no clip %q", j.Model, j.Clip)
		}
		t.params.AnimationID = clip
	}
	t.params.Frame, t.params.Frame2, t.params.Inter = j.Frame, j.Frame2, j.Inter
	if len(j.Overrides) > 0 {
		a, ok := t.model.(model.Animated)
		if !ok {
			return t, fmt.Errorf("batch: %s has no skeleton for bone overrides", j.Model)
		}
		ov, unknown := a.Skeleton().OverridesByName(j.Overrides)
		if len(unknown) > 0 {
			log.Warnf("batch: %s: unknown joints %v", j.Model, unknown)
		}
		t.params.Overrides = ov
	}
	if err := t.model.BuildVertexBuffer(r); err != nil {
		return t, err
	}
	return t, nil
}

// Run renders all jobs using a worker pool.
func Run(cfg Config, jobs []Job) []Result {
	total := len(jobs)
	results := make([]Result, total)
	tasks := make([]task, total)
	ready := make([]bool, total)

	// Any software renderer builds buffers usable by all workers.
	builder := raster.NewRenderer(cfg.RenderSize, cfg.Supersample, cfg.View, nil, nil)
	attached := make(map[[2]int]bool)
	for i, j := range jobs {
		results[i] = Result{Name: j.Model, Clip: j.Clip, Frame: j.Frame, Frame2: j.Frame2, Inter: j.Inter}
		t, err := prepare(cfg, j, builder, attached)
		if err != nil {
			results[i].Error = err.Error()
			continue
		}
		tasks[i], ready[i] = t, true
		results[i].Image = filepath.ToSlash(t.out)
	}

	var processed atomic.Int64
	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if p := processed.Load(); p > 0 {
					rate := float64(p) / time.Since(start).Seconds()
					fmt.Printf("  [%d/%d] %.1f poses/sec\n", p, total, rate)
				}
			}
		}
	}()

	// Worker pool
	workers := max(cfg.Workers, 1)
	taskChan := make(chan int, workers*2)
	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := raster.NewRenderer(cfg.RenderSize, cfg.Supersample, cfg.View, cfg.Textures,
				raster.NewBoneBuffer(1, boneCapacity, 0))
			for idx := range taskChan {
				render(cfg, r, &tasks[idx], &results[idx])
				processed.Add(1)
			}
		}()
	}

	for i := range tasks {
		if ready[i] {
			taskChan <- i
		}
	}
	close(taskChan)

	wg.Wait()
	close(done)

	return results
}

func render(cfg Config, r *raster.Renderer, t *task, res *Result) {
	r.Reset()
	if err := t.model.RenderFrame(r, &t.params); err != nil {
		res.Error = err.Error()
		return
	}
	res.Triangles = r.Triangles()
	if res.Triangles == 0 {
		res.Error = "nothing drawn"
		return
	}

	img := r.Image()
	if cfg.Supersample > 1 {
		img = postprocess.Downsample(img, cfg.Supersample)
	}
	if cfg.DespeckleMin > 0 {
		img = postprocess.Despeckle(img, cfg.DespeckleMin)
	}
	res.Coverage = postprocess.Coverage(img)

	outPath := filepath.Join(cfg.OutputDir, filepath.FromSlash(t.out))
	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		res.Error = err.Error()
		return
	}
	f, err := os.Create(outPath)
	if err != nil {
		res.Error = err.Error()
		return
	}
	defer f.Close()

	if err := nativewebp.Encode(f, img, nil); err != nil {
		res.Error = fmt.Sprintf("WebP encode: %v", err)
		return
	}
	res.Success = true
}
