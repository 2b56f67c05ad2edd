package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/goplus/unilib/matrix"
)

// ManifestFile is written to a library's output directory after every
// successful build.
const ManifestFile = ".manifest.json"

// Manifest records what the last successful build of a library produced.
// Paths are relative to the library directory.
type Manifest struct {
	Library   string            `json:"library"`
	Artifacts map[string]string `json:"artifacts"`
	Merged    map[string]string `json:"merged"`
	BuildTime time.Time         `json:"build_time"`
}

func newManifest(layout matrix.Layout, res *Result) *Manifest {
	rel := func(p string) string {
		if r, err := filepath.Rel(layout.Root, p); err == nil {
			return filepath.ToSlash(r)
		}
		return p
	}
	m := &Manifest{
		Library:   res.Library,
		Artifacts: make(map[string]string, len(res.Artifacts)),
		Merged:    make(map[string]string, len(res.Merged)),
		BuildTime: time.Now().UTC(),
	}
	for _, a := range res.Artifacts {
		m.Artifacts[a.Target.String()] = rel(a.Path)
	}
	for _, u := range res.Merged {
		m.Merged[string(u.Platform)] = rel(u.Path)
	}
	return m
}

// LoadManifest reads the manifest in dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// Save writes m to dir.
func (m *Manifest) Save(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, ManifestFile), data, 0o644)
}
