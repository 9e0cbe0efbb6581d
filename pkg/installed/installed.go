package installed

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/depscope/depscope/pkg/logger"
)

// DefaultMaxDepth bounds how many nested node_modules levels the walk
// descends through. Duplicated installs can nest deeply but anything past
// this is noise for reporting purposes.
const DefaultMaxDepth = 10

// Package is one package directory found in the installed tree. The same
// name may appear multiple times at different versions and locations;
// that is expected with nested installs.
type Package struct {
	Name             string              `json:"name"`
	Version          string              `json:"version"`
	Dir              string              `json:"dir"`
	Dependencies     map[string]string   `json:"dependencies,omitempty"`
	PeerDependencies map[string]string   `json:"peerDependencies,omitempty"`
	PeerMeta         map[string]PeerMeta `json:"peerDependenciesMeta,omitempty"`
}

// PeerMeta carries the per-peer metadata from peerDependenciesMeta.
type PeerMeta struct {
	Optional bool `json:"optional"`
}

// Registry is the result of walking the installed-package tree.
type Registry struct {
	// Present is false when the project has no node_modules directory at
	// all. Phantom detection is impossible in that case.
	Present bool

	// Packages in walk order. Use ByName for lookups.
	Packages []Package

	// Warnings collected during the walk (unreadable manifests,
	// depth-bound hits, symlink revisits).
	Warnings []string

	byName map[string][]Package
}

// ByName returns every installed record for a package name, or nil.
func (r *Registry) ByName(name string) []Package {
	return r.byName[name]
}

// Has reports whether any version of the named package is installed.
func (r *Registry) Has(name string) bool {
	return len(r.byName[name]) > 0
}

// Versions returns the distinct installed versions for a name, sorted.
func (r *Registry) Versions(name string) []string {
	seen := map[string]bool{}
	var out []string
	for _, p := range r.byName[name] {
		if !seen[p.Version] {
			seen[p.Version] = true
			out = append(out, p.Version)
		}
	}
	sort.Strings(out)
	return out
}

type walkFrame struct {
	dir   string // a node_modules directory
	depth int
}

// Walk loads the installed-package tree under projectPath/node_modules.
// The traversal is iterative with an explicit stack; the visited set is
// keyed by (name, real path) since the same name legitimately appears at
// multiple locations but a symlinked duplicate must not be re-entered.
func Walk(projectPath string, maxDepth int) *Registry {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}

	reg := &Registry{byName: make(map[string][]Package)}

	root := filepath.Join(projectPath, "node_modules")
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		logger.Debugf("installed: no node_modules at %s", root)
		return reg
	}
	reg.Present = true

	visited := make(map[string]bool) // name + "\x00" + real path

	stack := []walkFrame{{dir: root, depth: 0}}
	for len(stack) > 0 {
		frame := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if frame.depth > maxDepth {
			reg.Warnings = append(reg.Warnings,
				fmt.Sprintf("installed tree deeper than %d levels at %s; subtree skipped", maxDepth, frame.dir))
			continue
		}

		entries, err := os.ReadDir(frame.dir)
		if err != nil {
			reg.Warnings = append(reg.Warnings,
				fmt.Sprintf("cannot read %s: %v", frame.dir, err))
			continue
		}

		for _, entry := range entries {
			name := entry.Name()
			if strings.HasPrefix(name, ".") {
				continue
			}
			dir := filepath.Join(frame.dir, name)
			if !isDirLike(dir, entry) {
				continue
			}

			if strings.HasPrefix(name, "@") {
				// Scope directory: its children are the packages.
				scoped, err := os.ReadDir(dir)
				if err != nil {
					reg.Warnings = append(reg.Warnings,
						fmt.Sprintf("cannot read scope dir %s: %v", dir, err))
					continue
				}
				for _, sub := range scoped {
					subDir := filepath.Join(dir, sub.Name())
					if !isDirLike(subDir, sub) {
						continue
					}
					loadPackageDir(reg, visited, &stack, subDir, name+"/"+sub.Name(), frame.depth)
				}
				continue
			}

			loadPackageDir(reg, visited, &stack, dir, name, frame.depth)
		}
	}

	sort.Slice(reg.Packages, func(i, j int) bool {
		if reg.Packages[i].Name != reg.Packages[j].Name {
			return reg.Packages[i].Name < reg.Packages[j].Name
		}
		return reg.Packages[i].Dir < reg.Packages[j].Dir
	})

	return reg
}

// isDirLike accepts real directories and symlinks that point at
// directories (pnpm-style layouts symlink every package).
func isDirLike(path string, entry os.DirEntry) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func loadPackageDir(reg *Registry, visited map[string]bool, stack *[]walkFrame, dir, dirName string, depth int) {
	real, err := filepath.EvalSymlinks(dir)
	if err != nil {
		real = dir
	}
	key := dirName + "\x00" + real
	if visited[key] {
		return
	}
	visited[key] = true

	manifestPath := filepath.Join(dir, "package.json")
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		// Not every directory under node_modules is a package (e.g.
		// .bin); only warn when it looked like one.
		logger.Debugf("installed: no manifest in %s", dir)
		return
	}

	var pkg struct {
		Name             string              `json:"name"`
		Version          string              `json:"version"`
		Dependencies     map[string]string   `json:"dependencies"`
		PeerDependencies map[string]string   `json:"peerDependencies"`
		PeerMeta         map[string]PeerMeta `json:"peerDependenciesMeta"`
	}
	if err := json.Unmarshal(data, &pkg); err != nil {
		reg.Warnings = append(reg.Warnings,
			fmt.Sprintf("unparseable manifest at %s: %v", manifestPath, err))
		return
	}

	name := pkg.Name
	if name == "" {
		name = dirName
	}

	rec := Package{
		Name:             name,
		Version:          pkg.Version,
		Dir:              dir,
		Dependencies:     pkg.Dependencies,
		PeerDependencies: pkg.PeerDependencies,
		PeerMeta:         pkg.PeerMeta,
	}
	reg.Packages = append(reg.Packages, rec)
	reg.byName[name] = append(reg.byName[name], rec)

	nested := filepath.Join(dir, "node_modules")
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		*stack = append(*stack, walkFrame{dir: nested, depth: depth + 1})
	}
}
