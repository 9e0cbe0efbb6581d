package extractor

import (
	"regexp"
	"strings"
)

// The pattern strategy recognizes the same construct shapes as the
// structural one, less precisely, one line at a time. It never fails; a
// best-effort (possibly empty) list is always returned.
var (
	reImportFrom     = regexp.MustCompile(`import\s+[^"']*?from\s+["']([^"']+)["']`)
	reImportBare     = regexp.MustCompile(`import\s+["']([^"']+)["']`)
	reExportFrom     = regexp.MustCompile(`export\s+[^"']*?from\s+["']([^"']+)["']`)
	reDynamicImport  = regexp.MustCompile(`import\(\s*["']([^"']+)["']\s*\)`)
	reRequireResolve = regexp.MustCompile(`require\.resolve\(\s*["']([^"']+)["']\s*\)`)
	reRequireCall    = regexp.MustCompile(`require\(\s*["']([^"']+)["']\s*\)`)

	reStyleImportURL = regexp.MustCompile(`@import\s+url\(\s*["']?([^"')]+)["']?\s*\)`)
	reStyleImport    = regexp.MustCompile(`@(?:import|use|require)\s+["']([^"']+)["']`)
)

type linePattern struct {
	re   *regexp.Regexp
	kind ImportKind
}

// Ordered so that the more specific shapes run first on each line.
var scriptPatterns = []linePattern{
	{reDynamicImport, DynamicImport},
	{reRequireResolve, RequireResolve},
	{reRequireCall, RequireCall},
	{reExportFrom, ReExport},
	{reImportFrom, StaticImport},
	{reImportBare, StaticImport},
}

// scanScript is the pattern fallback for script content.
func scanScript(path string, content []byte, lineOffset int) []ImportReference {
	var refs []ImportReference
	for i, line := range strings.Split(string(content), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		seen := map[string]bool{}
		for _, p := range scriptPatterns {
			for _, m := range p.re.FindAllStringSubmatch(line, -1) {
				// A dynamic import line also matches the bare-import shape;
				// the first (most specific) pattern wins per specifier.
				if seen[m[1]] {
					continue
				}
				seen[m[1]] = true
				refs = append(refs, ImportReference{
					RawSpecifier: m[1],
					Kind:         p.kind,
					File:         path,
					Line:         i + 1 + lineOffset,
				})
			}
		}
	}
	return refs
}

// scanStylesheet recognizes @import and its module-system variants.
func scanStylesheet(path string, content []byte, lineOffset int) []ImportReference {
	var refs []ImportReference
	for i, line := range strings.Split(string(content), "\n") {
		seen := map[string]bool{}
		for _, re := range []*regexp.Regexp{reStyleImportURL, reStyleImport} {
			for _, m := range re.FindAllStringSubmatch(line, -1) {
				if seen[m[1]] {
					continue
				}
				seen[m[1]] = true
				refs = append(refs, ImportReference{
					RawSpecifier: m[1],
					Kind:         StylesheetImport,
					File:         path,
					Line:         i + 1 + lineOffset,
				})
			}
		}
	}
	return refs
}
