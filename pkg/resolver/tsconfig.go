package resolver

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
)

type tsconfigFile struct {
	CompilerOptions struct {
		BaseURL string              `json:"baseUrl"`
		Paths   map[string][]string `json:"paths"`
	} `json:"compilerOptions"`
}

var (
	reLineComment  = regexp.MustCompile(`(?m)^\s*//.*$`)
	reBlockComment = regexp.MustCompile(`(?s)/\*.*?\*/`)
	reTrailComma   = regexp.MustCompile(`,\s*([}\]])`)
)

// LoadTSConfig reads tsconfig.json (or jsconfig.json) from the project
// root and returns the baseUrl and path mappings. A malformed file is not
// fatal: the returned warning says why and resolution proceeds without
// path mappings.
func LoadTSConfig(projectRoot string) (baseURL string, mappings []PathMapping, warning string) {
	var data []byte
	var path string
	for _, name := range []string{"tsconfig.json", "jsconfig.json"} {
		p := filepath.Join(projectRoot, name)
		if b, err := os.ReadFile(p); err == nil {
			data, path = b, p
			break
		}
	}
	if data == nil {
		return "", nil, ""
	}

	var cfg tsconfigFile
	if err := json.Unmarshal(data, &cfg); err != nil {
		// tsconfig allows comments and trailing commas; strip and retry.
		cleaned := reBlockComment.ReplaceAll(data, nil)
		cleaned = reLineComment.ReplaceAll(cleaned, nil)
		cleaned = reTrailComma.ReplaceAll(cleaned, []byte("$1"))
		if err := json.Unmarshal(cleaned, &cfg); err != nil {
			return "", nil, fmt.Sprintf("unparseable %s: %v; path mappings disabled", path, err)
		}
	}

	for pattern, targets := range cfg.CompilerOptions.Paths {
		mappings = append(mappings, PathMapping{Pattern: pattern, Targets: targets})
	}
	// Map iteration order is random; keep the config deterministic.
	sort.Slice(mappings, func(i, j int) bool { return mappings[i].Pattern < mappings[j].Pattern })

	return cfg.CompilerOptions.BaseURL, mappings, ""
}
