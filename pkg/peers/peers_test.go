package peers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/depscope/depscope/pkg/installed"
)

// writePackage drops a package.json under root/dir for fixture trees.
func writePackage(t *testing.T, root, dir, manifest string) {
	t.Helper()
	full := filepath.Join(root, dir)
	require.NoError(t, os.MkdirAll(full, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(full, "package.json"), []byte(manifest), 0o644))
}

func walk(t *testing.T, root string) *installed.Registry {
	t.Helper()
	reg := installed.Walk(root, 0)
	require.True(t, reg.Present, "fixture must have a node_modules tree")
	return reg
}

func conflictsOfType(a *Analysis, typ ConflictType) []Conflict {
	var out []Conflict
	for _, c := range a.Conflicts {
		if c.Type == typ {
			out = append(out, c)
		}
	}
	return out
}

func TestResolve_SatisfiedCaretRange(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"16.9.0"}`)
	writePackage(t, root, "node_modules/react-dom",
		`{"name":"react-dom","version":"16.9.0","peerDependencies":{"react":"^16.8.0"}}`)

	a := Resolve(walk(t, root))
	assert.Empty(t, a.Conflicts, "^16.8.0 against installed 16.9.0 is compatible")
	assert.Empty(t, a.Missing)
	require.Len(t, a.Requirements, 1)
	assert.Equal(t, "react", a.Requirements[0].Peer)
}

func TestResolve_CaretMajorConflict(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"17.0.0"}`)
	writePackage(t, root, "node_modules/old-widget",
		`{"name":"old-widget","version":"1.0.0","peerDependencies":{"react":"^16.8.0"}}`)

	a := Resolve(walk(t, root))
	conflicts := conflictsOfType(a, Unsatisfied)
	require.Len(t, conflicts, 1, "^16.8.0 against installed 17.0.0 is a conflict")
	assert.Equal(t, "react", conflicts[0].Peer)
	assert.Equal(t, "high", conflicts[0].Confidence)
	assert.Equal(t, []string{"17.0.0"}, conflicts[0].InstalledVersions)
}

func TestResolve_MissingPeer(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/plugin-a",
		`{"name":"plugin-a","version":"1.0.0","peerDependencies":{"vue":"^3.0.0"}}`)

	a := Resolve(walk(t, root))
	require.Len(t, a.Missing, 1)
	assert.Equal(t, "vue", a.Missing[0].Peer)
	assert.Equal(t, "plugin-a@1.0.0", a.Missing[0].Requirement.Requirer)
}

func TestResolve_OptionalMissingPeerIsSilent(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/plugin-b",
		`{"name":"plugin-b","version":"1.0.0","peerDependencies":{"ts-node":"^10.0.0"},"peerDependenciesMeta":{"ts-node":{"optional":true}}}`)

	a := Resolve(walk(t, root))
	assert.Empty(t, a.Missing, "optional peers do not raise peer-missing")
	assert.Empty(t, a.Conflicts)
}

func TestResolve_CrossPackageConflict(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"16.9.0"}`)
	writePackage(t, root, "node_modules/lib-one",
		`{"name":"lib-one","version":"1.0.0","peerDependencies":{"react":"^16.0.0"}}`)
	writePackage(t, root, "node_modules/lib-two",
		`{"name":"lib-two","version":"2.0.0","peerDependencies":{"react":"^17.0.0"}}`)

	a := Resolve(walk(t, root))
	cross := conflictsOfType(a, CrossPackage)
	require.Len(t, cross, 1, "^16 and ^17 of the same peer is exactly one cross-package conflict")
	assert.Equal(t, "react", cross[0].Peer)

	requirers := map[string]bool{}
	for _, r := range cross[0].Requirements {
		requirers[r.RequirerName] = true
	}
	assert.True(t, requirers["lib-one"], "conflict names lib-one")
	assert.True(t, requirers["lib-two"], "conflict names lib-two")
}

func TestResolve_CrossPackageCompatibleRanges(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"16.9.0"}`)
	writePackage(t, root, "node_modules/lib-one",
		`{"name":"lib-one","version":"1.0.0","peerDependencies":{"react":"^16.1.0"}}`)
	writePackage(t, root, "node_modules/lib-two",
		`{"name":"lib-two","version":"2.0.0","peerDependencies":{"react":"^16.8.0"}}`)

	a := Resolve(walk(t, root))
	assert.Empty(t, conflictsOfType(a, CrossPackage),
		"two ^16.x ranges of the same peer produce no cross-package conflict")
}

func TestResolve_CrossPackageSuggestionWhenIntersectionExists(t *testing.T) {
	// Both ranges intersect on the 16 line but the installed version
	// satisfies neither; the conflict should carry a concrete suggestion.
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"15.0.0"}`)
	writePackage(t, root, "node_modules/lib-one",
		`{"name":"lib-one","version":"1.0.0","peerDependencies":{"react":"^16.0.0"}}`)
	writePackage(t, root, "node_modules/lib-two",
		`{"name":"lib-two","version":"2.0.0","peerDependencies":{"react":"^16.8.0"}}`)

	a := Resolve(walk(t, root))
	cross := conflictsOfType(a, CrossPackage)
	require.Len(t, cross, 1)
	assert.Equal(t, "^16", cross[0].Suggestion)
}

func TestResolve_UnparseableRangeFallsBackToMajorCheck(t *testing.T) {
	root := t.TempDir()
	writePackage(t, root, "node_modules/react", `{"name":"react","version":"16.9.0"}`)
	writePackage(t, root, "node_modules/odd-lib",
		`{"name":"odd-lib","version":"1.0.0","peerDependencies":{"react":"workspace:^17"}}`)

	a := Resolve(walk(t, root))
	conflicts := conflictsOfType(a, Unsatisfied)
	require.Len(t, conflicts, 1, "major 17 vs installed 16 fails the coarse check")
	assert.Equal(t, "low", conflicts[0].Confidence, "coarse fallback is low confidence")
}

func TestResolve_NoInstalledTree(t *testing.T) {
	reg := installed.Walk(t.TempDir(), 0)
	require.False(t, reg.Present)

	a := Resolve(reg)
	assert.Empty(t, a.Requirements)
	assert.Empty(t, a.Conflicts)
	assert.Empty(t, a.Missing)
}
