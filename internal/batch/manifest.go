package batch

import (
	"encoding/json"
	"os"
)

// ManifestEntry represents one rendered pose in the output manifest.
type ManifestEntry struct {
	Model     string  `json:"model"`
	Clip      string  `json:"clip,omitempty"`
	Frame     int     `json:"frame"`
	Frame2    int     `json:"frame2"`
	Inter     float64 `json:"inter"`
	Image     string  `json:"image"`
	Triangles int     `json:"triangles"`
	Coverage  float64 `json:"coverage"`
}

// WriteManifest writes the successful results to path as JSON.
func WriteManifest(path string, results []Result) error {
	entries := make([]ManifestEntry, 0, len(results))
	for _, r := range results {
		if !r.Success {
			continue
		}
		entries = append(entries, ManifestEntry{
			Model:     r.Name,
			Clip:      r.Clip,
			Frame:     r.Frame,
			Frame2:    r.Frame2,
			Inter:     r.Inter,
			Image:     r.Image,
			Triangles: r.Triangles,
			Coverage:  r.Coverage,
		})
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
