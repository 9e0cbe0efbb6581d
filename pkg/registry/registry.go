package registry

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/depscope/depscope/pkg/logger"
)

const defaultNpmRegistryURL = "https://registry.npmjs.org"

// VersionInfo is what a lookup returns for one package.
type VersionInfo struct {
	Latest     string `json:"latest"`
	Deprecated bool   `json:"deprecated"`
}

// Lookup fetches latest-version data for a package. Implementations have
// their own timeout contract; a failing lookup degrades the optional
// latest-version fields of the report, never the analysis itself.
type Lookup interface {
	Latest(name string) (VersionInfo, error)
}

// NpmRegistry looks up packages against an npm-compatible registry.
type NpmRegistry struct {
	BaseURL string // empty means the public npm registry
	Client  *http.Client
}

// NewNpmRegistry creates a lookup with a bounded request timeout.
func NewNpmRegistry(baseURL string) *NpmRegistry {
	return &NpmRegistry{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Latest fetches the dist-tags.latest version and deprecation flag.
func (r *NpmRegistry) Latest(name string) (VersionInfo, error) {
	base := r.BaseURL
	if base == "" {
		base = defaultNpmRegistryURL
	}
	client := r.Client
	if client == nil {
		client = http.DefaultClient
	}

	url := fmt.Sprintf("%s/%s", base, name)
	logger.Debugf("registry: fetching %s", url)

	resp, err := client.Get(url)
	if err != nil {
		return VersionInfo{}, fmt.Errorf("registry fetch for %s failed: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VersionInfo{}, fmt.Errorf("registry returned %d for %s", resp.StatusCode, name)
	}

	var pkgInfo struct {
		DistTags struct {
			Latest string `json:"latest"`
		} `json:"dist-tags"`
		Deprecated string `json:"deprecated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&pkgInfo); err != nil {
		return VersionInfo{}, fmt.Errorf("invalid registry response for %s: %w", name, err)
	}

	return VersionInfo{
		Latest:     pkgInfo.DistTags.Latest,
		Deprecated: pkgInfo.Deprecated != "",
	}, nil
}
