package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/depscope/depscope/pkg/extractor"
	"github.com/depscope/depscope/pkg/installed"
	"github.com/depscope/depscope/pkg/manifest"
)

// State is the final label for one external name.
type State string

const (
	Used    State = "used"
	Unused  State = "unused"
	Missing State = "missing"
	Phantom State = "phantom"
)

// Usage is one import site of an external name.
type Usage struct {
	File string               `json:"file"`
	Line int                  `json:"line"`
	Kind extractor.ImportKind `json:"kind"`
}

// Classification is the verdict for one distinct external name.
type Classification struct {
	Name       string `json:"name"`
	State      State  `json:"state"`
	Confidence string `json:"confidence"` // high, medium, low
	Severity   string `json:"severity"`   // error, warning, info

	DeclaredType  manifest.DeclarationType `json:"declaredType,omitempty"`
	DeclaredRange string                   `json:"declaredRange,omitempty"`

	InstalledVersions []string `json:"installedVersions,omitempty"`
	Usages            []Usage  `json:"usages,omitempty"`
	FileCount         int      `json:"fileCount"`

	// DevOnlyMismatch marks a name declared dev-only but imported by
	// runtime code. Reported alongside Used, not folded into Missing.
	DevOnlyMismatch bool `json:"devOnlyMismatch,omitempty"`

	// IndirectVia names the import that justified a Used verdict through
	// the indirect-usage table (base package or plugin host).
	IndirectVia string `json:"indirectVia,omitempty"`

	Suggestion string `json:"suggestion,omitempty"`
}

// Options carries the indirect-usage table. The table is configuration,
// not part of the algorithm: callers may replace it wholesale.
type Options struct {
	// Scope restricts which declaration buckets are analyzed:
	// production, development, peer, or all.
	Scope string

	// TypesPrefix marks type-definition packages; "@types/" by default.
	TypesPrefix string

	// PluginHosts maps plugin-name prefixes to the host tool whose
	// presence marks the plugin as indirectly used.
	PluginHosts map[string]string

	// IgnoreNames are never classified.
	IgnoreNames map[string]bool

	// MissingContext disables phantom detection: with no installed tree
	// every undeclared import is missing, never phantom.
	MissingContext bool
}

// DefaultPluginHosts is the stock plugin-to-host table.
func DefaultPluginHosts() map[string]string {
	return map[string]string{
		"eslint-plugin-":      "eslint",
		"eslint-config-":      "eslint",
		"@typescript-eslint/": "eslint",
		"babel-plugin-":       "@babel/core",
		"babel-preset-":       "@babel/core",
		"@babel/plugin-":      "@babel/core",
		"@babel/preset-":      "@babel/core",
		"prettier-plugin-":    "prettier",
		"rollup-plugin-":      "rollup",
		"vite-plugin-":        "vite",
		"@vitejs/plugin-":     "vite",
		"webpack-":            "webpack",
		"postcss-":            "postcss",
		"stylelint-":          "stylelint",
		"karma-":              "karma",
		"grunt-":              "grunt",
	}
}

// DefaultOptions returns the stock classifier configuration.
func DefaultOptions() Options {
	return Options{
		Scope:       "all",
		TypesPrefix: "@types/",
		PluginHosts: DefaultPluginHosts(),
		IgnoreNames: map[string]bool{},
	}
}

var testFileRe = regexp.MustCompile(`(?i)(\.test\.|\.spec\.|__tests__/|__mocks__/)`)

// Classify runs the state machine over every distinct external name seen
// in imports or declared in the manifest.
func Classify(usages map[string][]Usage, decl *manifest.Registry, inst *installed.Registry, opts Options) []Classification {
	if opts.TypesPrefix == "" {
		opts.TypesPrefix = "@types/"
	}

	importedNames := make(map[string]bool, len(usages))
	names := make(map[string]bool, len(usages))
	for name := range usages {
		importedNames[name] = true
		names[name] = true
	}
	for _, d := range decl.All() {
		if inScope(d.Type, opts.Scope) {
			names[d.Name] = true
		}
	}

	var out []Classification
	for name := range names {
		if opts.IgnoreNames[name] {
			continue
		}
		c := classifyOne(name, usages[name], decl, inst, importedNames, opts)
		if c != nil {
			out = append(out, *c)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func classifyOne(name string, uses []Usage, decl *manifest.Registry, inst *installed.Registry, imported map[string]bool, opts Options) *Classification {
	d, declared := decl.Lookup(name)
	if declared && !inScope(d.Type, opts.Scope) && len(uses) == 0 {
		return nil
	}

	c := &Classification{
		Name:      name,
		Usages:    sortedUsages(uses),
		FileCount: distinctFiles(uses),
	}
	if declared {
		c.DeclaredType = d.Type
		c.DeclaredRange = d.Range
	}
	if inst != nil {
		c.InstalledVersions = inst.Versions(name)
	}

	switch {
	case declared && len(uses) > 0:
		c.State = Used
		c.Confidence = "high"
		c.Severity = "ok"
		if d.Type == manifest.Development && hasRuntimeUsage(uses) {
			c.DevOnlyMismatch = true
			c.Severity = "info"
			c.Suggestion = fmt.Sprintf("%s is declared in devDependencies but imported by runtime code; move it to dependencies", name)
		}

	case declared:
		if via, ok := indirectUsage(name, imported, decl, opts); ok {
			c.State = Used
			c.Confidence = "medium"
			c.Severity = "ok"
			c.IndirectVia = via
			break
		}
		c.State = Unused
		c.Severity = "warning"
		if strings.HasPrefix(name, opts.TypesPrefix) {
			// A type-definitions package with no matching base import has
			// no plausible indirect use.
			c.Confidence = "high"
		} else {
			c.Confidence = "medium"
		}
		c.Suggestion = fmt.Sprintf("remove %s from the manifest or add an import", name)

	case !opts.MissingContext && inst != nil && inst.Has(name):
		c.State = Phantom
		c.Severity = "warning"
		c.Confidence = riskFromFileCount(c.FileCount)
		c.Suggestion = fmt.Sprintf("declare %s explicitly; it is only reachable through a transitive install and can disappear on upgrade", name)

	default:
		c.State = Missing
		c.Severity = "error"
		c.Confidence = riskFromFileCount(c.FileCount)
		c.Suggestion = fmt.Sprintf("add %s to the manifest", name)
	}

	return c
}

// indirectUsage consults the fixed table: a @types package is used when
// its base package is imported; a plugin is used when its host tool is
// declared or imported.
func indirectUsage(name string, imported map[string]bool, decl *manifest.Registry, opts Options) (string, bool) {
	if base, ok := strings.CutPrefix(name, opts.TypesPrefix); ok {
		base = typesBase(base)
		if imported[base] {
			return base, true
		}
		return "", false
	}
	for prefix, host := range opts.PluginHosts {
		if !strings.HasPrefix(name, prefix) || name == host {
			continue
		}
		if imported[host] {
			return host, true
		}
		if _, ok := decl.Lookup(host); ok {
			return host, true
		}
	}
	return "", false
}

// typesBase maps the @types naming convention back to the real package:
// "scope__name" stands for "@scope/name".
func typesBase(base string) string {
	if scope, rest, ok := strings.Cut(base, "__"); ok {
		return "@" + scope + "/" + rest
	}
	return base
}

// hasRuntimeUsage reports whether any import site is in non-test code.
func hasRuntimeUsage(uses []Usage) bool {
	for _, u := range uses {
		if !testFileRe.MatchString(u.File) {
			return true
		}
	}
	return false
}

func riskFromFileCount(n int) string {
	switch {
	case n >= 3:
		return "high"
	case n == 2:
		return "medium"
	default:
		return "low"
	}
}

func inScope(typ manifest.DeclarationType, scope string) bool {
	switch scope {
	case "", "all":
		return true
	case "production":
		return typ == manifest.Production
	case "development":
		return typ == manifest.Development
	case "peer":
		return typ == manifest.Peer
	default:
		return true
	}
}

func distinctFiles(uses []Usage) int {
	files := map[string]bool{}
	for _, u := range uses {
		files[u.File] = true
	}
	return len(files)
}

func sortedUsages(uses []Usage) []Usage {
	out := make([]Usage, len(uses))
	copy(out, uses)
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Line < out[j].Line
	})
	return out
}
