package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/ngaut/log"

	"skelmodel/internal/gltfexport"
	"skelmodel/internal/model"
	"skelmodel/internal/registry"
	"skelmodel/internal/texture"
	"skelmodel/internal/vfs"
)

func main() {
	dataDir := flag.String("data", ".", "Directory models and skins are resolved against")
	out := flag.String("o", "", "Output .glb path (default: model name with .glb)")
	anims := flag.String("anims", "", "Comma-separated animation files to attach")
	clip := flag.String("clip", "", "Clip to pose (frames are then clip-relative)")
	frame := flag.Int("frame", 0, "Frame to export")
	frame2 := flag.Int("frame2", -1, "Second frame to blend toward (default: -frame)")
	inter := flag.Float64("inter", 0, "Blend factor between frame and frame2")
	logLevel := flag.String("log", "warn", "Log level")
	flag.Parse()
	log.SetLevelByString(*logLevel)

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: gltfexport [flags] model")
		os.Exit(2)
	}
	name := flag.Arg(0)

	files, err := vfs.Open(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing %s: %v\n", *dataDir, err)
		os.Exit(1)
	}
	skins := texture.NewManager(files)
	reg := registry.New(files, skins)
	defer reg.Close()

	id, err := reg.FindModel("", name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *anims != "" {
		for _, a := range strings.Split(*anims, ",") {
			aid, err := reg.FindAnimation("", strings.TrimSpace(a))
			if err == nil {
				err = reg.AttachAnimations(id, aid)
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
	}
	m := reg.Model(id)

	p := model.DefaultRenderParams()
	p.Frame, p.Frame2, p.Inter = *frame, *frame2, *inter
	if p.Frame2 < 0 {
		p.Frame2 = p.Frame
	}
	if *clip != "" {
		if p.AnimationID = m.FindFrame(*clip); p.AnimationID < 0 {
			fmt.Fprintf(os.Stderr, "Error: %s has no clip %q\n", name, *clip)
			os.Exit(1)
		}
	}

	path := *out
	if path == "" {
		path = strings.TrimSuffix(name, fileExt(name)) + ".glb"
	}
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := gltfexport.Export(f, m, &p, skins); err != nil {
		f.Close()
		os.Remove(path)
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := f.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %s\n", path)
}

func fileExt(name string) string {
	if i := strings.LastIndexAny(name, "./\\"); i >= 0 && name[i] == '.' {
		return name[i:]
	}
	return ""
}
