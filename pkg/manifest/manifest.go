package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/depscope/depscope/pkg/logger"
)

// DeclarationType identifies which package.json bucket a dependency was
// declared in.
type DeclarationType string

const (
	Production  DeclarationType = "production"
	Development DeclarationType = "development"
	Peer        DeclarationType = "peer"
)

// DeclaredDependency is one entry from the project manifest.
type DeclaredDependency struct {
	Name  string          `json:"name"`
	Range string          `json:"range"`
	Type  DeclarationType `json:"type"`
}

// Registry holds every dependency declared by the project manifest.
type Registry struct {
	// Path is the manifest file the registry was loaded from.
	Path string

	// ProjectName is the "name" field of the manifest, if present.
	ProjectName string

	deps   []DeclaredDependency
	byName map[string]DeclaredDependency
}

// packageJSON mirrors the manifest fields we care about.
type packageJSON struct {
	Name             string            `json:"name"`
	Dependencies     map[string]string `json:"dependencies"`
	DevDependencies  map[string]string `json:"devDependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// Load reads package.json from the project root. A missing or unparseable
// manifest is fatal: nothing downstream can classify without it.
func Load(projectPath string) (*Registry, error) {
	filePath := filepath.Join(projectPath, "package.json")
	logger.Debugf("manifest: reading %s", filePath)

	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read package.json at %s: %w", filePath, err)
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("invalid package.json at %s: %w", filePath, err)
	}

	reg := &Registry{
		Path:        filePath,
		ProjectName: pkg.Name,
		byName:      make(map[string]DeclaredDependency),
	}

	// Peer first, then dev, then production, so that production wins the
	// byName lookup when a malformed manifest declares a name twice.
	reg.add(pkg.PeerDependencies, Peer)
	reg.add(pkg.DevDependencies, Development)
	reg.add(pkg.Dependencies, Production)

	return reg, nil
}

func (r *Registry) add(deps map[string]string, typ DeclarationType) {
	for name, rng := range deps {
		d := DeclaredDependency{Name: name, Range: rng, Type: typ}
		r.deps = append(r.deps, d)
		r.byName[name] = d
	}
}

// All returns every declaration, including duplicates across buckets.
func (r *Registry) All() []DeclaredDependency {
	return r.deps
}

// Lookup returns the declaration for a name. When a name appears in more
// than one bucket, production takes precedence over development over peer.
func (r *Registry) Lookup(name string) (DeclaredDependency, bool) {
	d, ok := r.byName[name]
	return d, ok
}

// Names returns the distinct declared names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
