package resolver

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// IdentityKind discriminates the two module identities (plus runtime
// builtins, which are excluded from classification entirely).
type IdentityKind string

const (
	External IdentityKind = "external"
	Local    IdentityKind = "local"
	Builtin  IdentityKind = "builtin"
)

// ModuleIdentity is the canonical identity of a specifier: an external
// package name, an absolute local file path, or a runtime builtin.
type ModuleIdentity struct {
	Kind IdentityKind `json:"kind"`
	Name string       `json:"name,omitempty"` // external/builtin name
	Path string       `json:"path,omitempty"` // absolute local path
}

// PathMapping is one tsconfig-style paths rule. Pattern and targets may
// contain a single "*" wildcard; targets are relative to BaseURL.
type PathMapping struct {
	Pattern string
	Targets []string
}

// Alias is one bundler-level alias. A "$" suffix on Find demands an exact
// match; otherwise Find matches the whole specifier or a "Find/" prefix.
// Replace is relative to the project root unless absolute.
type Alias struct {
	Find    string
	Replace string
}

// Config is the immutable resolution configuration for one run. It is
// threaded through calls explicitly so parallel runs cannot interfere.
type Config struct {
	ProjectRoot  string
	BaseURL      string // absolute; defaults to ProjectRoot
	PathMappings []PathMapping
	Aliases      []Alias

	// Extensions is the probe order for extensionless local specifiers.
	Extensions []string
}

// DefaultExtensions is the extension/index fallback probe order.
var DefaultExtensions = []string{".ts", ".tsx", ".mts", ".cts", ".js", ".jsx", ".mjs", ".cjs", ".vue", ".css", ".scss", ".less"}

const probeCacheSize = 8192

// Resolver turns raw specifiers into module identities. Resolution is a
// pure function of (specifier, containing file, config); the LRU only
// memoizes disk existence probes and cannot change outcomes.
type Resolver struct {
	cfg    Config
	probes *lru.Cache[string, bool]
}

// New builds a Resolver. The config is normalized once: relative roots are
// made absolute and path mappings are ordered by longest literal prefix so
// the most specific rule wins deterministically.
func New(cfg Config) (*Resolver, error) {
	root, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve project root: %w", err)
	}
	cfg.ProjectRoot = root

	if cfg.BaseURL == "" {
		cfg.BaseURL = root
	} else if !filepath.IsAbs(cfg.BaseURL) {
		cfg.BaseURL = filepath.Join(root, cfg.BaseURL)
	}

	if len(cfg.Extensions) == 0 {
		cfg.Extensions = DefaultExtensions
	}

	mappings := make([]PathMapping, len(cfg.PathMappings))
	copy(mappings, cfg.PathMappings)
	sort.SliceStable(mappings, func(i, j int) bool {
		return mappingPrefixLen(mappings[i].Pattern) > mappingPrefixLen(mappings[j].Pattern)
	})
	cfg.PathMappings = mappings

	probes, err := lru.New[string, bool](probeCacheSize)
	if err != nil {
		return nil, err
	}

	return &Resolver{cfg: cfg, probes: probes}, nil
}

func mappingPrefixLen(pattern string) int {
	if i := strings.Index(pattern, "*"); i >= 0 {
		return i
	}
	return len(pattern)
}

// Resolve returns the identity for a raw specifier found in fromFile.
// First match wins: relative/absolute path, tsconfig path mapping, bundler
// alias, then external (with builtins carved out).
func (r *Resolver) Resolve(spec, fromFile string) ModuleIdentity {
	if spec == "" {
		return ModuleIdentity{Kind: External, Name: spec}
	}

	if strings.HasPrefix(spec, "./") || strings.HasPrefix(spec, "../") || strings.HasPrefix(spec, "/") || spec == "." || spec == ".." {
		var base string
		if strings.HasPrefix(spec, "/") {
			base = spec
		} else {
			base = filepath.Join(filepath.Dir(fromFile), spec)
		}
		return ModuleIdentity{Kind: Local, Path: r.resolveLocal(base)}
	}

	if path, ok := r.applyPathMappings(spec); ok {
		return ModuleIdentity{Kind: Local, Path: path}
	}

	if path, ok := r.applyAliases(spec); ok {
		return ModuleIdentity{Kind: Local, Path: path}
	}

	bare := strings.TrimPrefix(spec, "node:")
	if isBuiltin(packageName(bare)) {
		return ModuleIdentity{Kind: Builtin, Name: packageName(bare)}
	}

	return ModuleIdentity{Kind: External, Name: packageName(spec)}
}

// packageName truncates a bare specifier to its owning package: one
// segment, or two for scoped names. A subpath import still identifies the
// package that owns it.
func packageName(spec string) string {
	parts := strings.Split(spec, "/")
	if strings.HasPrefix(spec, "@") && len(parts) >= 2 {
		return parts[0] + "/" + parts[1]
	}
	return parts[0]
}

// applyPathMappings tries each tsconfig paths rule in specificity order.
func (r *Resolver) applyPathMappings(spec string) (string, bool) {
	for _, m := range r.cfg.PathMappings {
		sub, ok := matchPattern(m.Pattern, spec)
		if !ok {
			continue
		}
		var first string
		for _, target := range m.Targets {
			candidate := strings.Replace(target, "*", sub, 1)
			if !filepath.IsAbs(candidate) {
				candidate = filepath.Join(r.cfg.BaseURL, candidate)
			}
			resolved := r.resolveLocal(candidate)
			if first == "" {
				first = resolved
			}
			if r.exists(resolved) {
				return resolved, true
			}
		}
		if first != "" {
			// No target exists on disk; best guess still wins over
			// falling through to a less specific rule.
			return first, true
		}
	}
	return "", false
}

// applyAliases tries each bundler alias in declaration order.
func (r *Resolver) applyAliases(spec string) (string, bool) {
	for _, a := range r.cfg.Aliases {
		replaced, ok := applyAlias(a, spec)
		if !ok {
			continue
		}
		if !filepath.IsAbs(replaced) {
			replaced = filepath.Join(r.cfg.ProjectRoot, replaced)
		}
		return r.resolveLocal(replaced), true
	}
	return "", false
}

func applyAlias(a Alias, spec string) (string, bool) {
	if exact, found := strings.CutSuffix(a.Find, "$"); found {
		if spec == exact {
			return a.Replace, true
		}
		return "", false
	}
	if find, sub, ok := splitWildcard(a.Find); ok {
		if strings.HasPrefix(spec, find) {
			return strings.Replace(sub, "*", spec[len(find):], 1), true
		}
		return "", false
	}
	if spec == a.Find {
		return a.Replace, true
	}
	if strings.HasPrefix(spec, a.Find+"/") {
		return a.Replace + spec[len(a.Find):], true
	}
	return "", false
}

// splitWildcard reports whether the alias Find contains a "*" wildcard,
// returning the literal prefix and the replacement carrying the "*".
func splitWildcard(find string) (prefix, replace string, ok bool) {
	i := strings.Index(find, "*")
	if i < 0 {
		return "", "", false
	}
	return find[:i], "*", true
}

// matchPattern matches a specifier against an exact or single-"*" pattern,
// returning the wildcard substitution.
func matchPattern(pattern, spec string) (string, bool) {
	i := strings.Index(pattern, "*")
	if i < 0 {
		if spec == pattern {
			return "", true
		}
		return "", false
	}
	prefix, suffix := pattern[:i], pattern[i+1:]
	if len(spec) < len(prefix)+len(suffix) {
		return "", false
	}
	if !strings.HasPrefix(spec, prefix) || !strings.HasSuffix(spec, suffix) {
		return "", false
	}
	return spec[len(prefix) : len(spec)-len(suffix)], true
}

// resolveLocal applies the extension/index fallback order to a candidate
// local path. When nothing exists on disk the cleaned candidate itself is
// returned; existence is the classifier's concern, not the resolver's.
func (r *Resolver) resolveLocal(path string) string {
	path = filepath.Clean(path)

	if r.exists(path) && !r.isDir(path) {
		return path
	}
	for _, ext := range r.cfg.Extensions {
		if candidate := path + ext; r.exists(candidate) {
			return candidate
		}
	}
	for _, ext := range r.cfg.Extensions {
		if candidate := filepath.Join(path, "index"+ext); r.exists(candidate) {
			return candidate
		}
	}
	return path
}

func (r *Resolver) exists(path string) bool {
	if v, ok := r.probes.Get(path); ok {
		return v
	}
	_, err := os.Lstat(path)
	exists := err == nil
	r.probes.Add(path, exists)
	return exists
}

func (r *Resolver) isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
