package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ngaut/log"

	"skelmodel/internal/iqm"
	"skelmodel/internal/model"
	"skelmodel/internal/registry"
	"skelmodel/internal/smd"
	"skelmodel/internal/texture"
	"skelmodel/internal/vfs"
)

func main() {
	dataDir := flag.String("data", ".", "Directory models and skins are resolved against")
	anim := flag.String("anim", "", "Animation file attached to every text model before printing")
	logLevel := flag.String("log", "warn", "Log level")
	flag.Parse()
	log.SetLevelByString(*logLevel)

	files, err := vfs.Open(*dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error indexing %s: %v\n", *dataDir, err)
		os.Exit(1)
	}
	skins := texture.NewManager(files)
	reg := registry.New(files, skins)
	defer reg.Close()

	failed := false
	for _, arg := range flag.Args() {
		id, err := reg.FindModel("", arg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Load error %s: %v\n", arg, err)
			failed = true
			continue
		}
		if *anim != "" {
			if _, ok := reg.Model(id).(*smd.Model); ok {
				aid, err := reg.FindAnimation("", *anim)
				if err == nil {
					err = reg.AttachAnimations(id, aid)
				}
				if err != nil {
					fmt.Fprintf(os.Stderr, "Animation error %s: %v\n", *anim, err)
				}
			}
		}
		printModel(reg.Model(id), skins)
	}
	if failed {
		os.Exit(1)
	}
}

func printModel(m model.Model, skins *texture.Manager) {
	fmt.Printf("\n=== %s ===\n", m.FileName())
	if a, ok := m.(model.Animated); ok {
		s := a.Skeleton()
		fmt.Printf("--- Joints (%d), frames %d ---\n", s.NumJoints(), s.NumFrames())
		for i, j := range s.Joints {
			parent := "-"
			if j.Parent >= 0 {
				parent = s.Joints[j.Parent].Name
			}
			t := s.Base[i].Translation()
			fmt.Printf("  [%d] %-24s parent=%-16s rest=(%.2f, %.2f, %.2f)\n", i, j.Name, parent, t[0], t[1], t[2])
		}
		fmt.Printf("--- Clips (%d) ---\n", len(a.Clips()))
		for _, c := range a.Clips() {
			loop := ""
			if c.Loop {
				loop = " loop"
			}
			fmt.Printf("  %-24s frames %d..%d @ %.1f fps%s\n", c.Name, c.FirstFrame, c.FirstFrame+c.NumFrames-1, c.FrameRate, loop)
		}
	}

	switch m := m.(type) {
	case *iqm.Model:
		fmt.Printf("--- Meshes (%d), vertices %d, triangles %d ---\n", len(m.Meshes), m.NumVertices, len(m.Triangles))
		for _, mesh := range m.Meshes {
			fmt.Printf("  %-24s material=%-20s verts=%d tris=%d skin=%s\n",
				mesh.Name, mesh.Material, mesh.NumVertices, mesh.NumTriangles, skinName(skins, mesh.Skin))
		}
		for f, b := range m.Bounds {
			fmt.Printf("  bounds[%d] min=%v max=%v radius=%.2f\n", f, b.Box.Min, b.Box.Max, b.Radius)
		}
	case *smd.Model:
		fmt.Printf("--- Surfaces (%d), vertices %d ---\n", len(m.Surfaces), m.NumVertices())
		for _, s := range m.Surfaces {
			fmt.Printf("  %-24s tris=%d first=%d skin=%s\n", s.Material, s.NumTriangles, s.FirstVertex, skinName(skins, s.Skin))
		}
		fmt.Printf("  bounds min=%v max=%v\n", m.Bounds.Min, m.Bounds.Max)
	}
}

func skinName(skins *texture.Manager, id texture.ID) string {
	if !id.IsValid() {
		return "(none)"
	}
	return skins.Name(id)
}
