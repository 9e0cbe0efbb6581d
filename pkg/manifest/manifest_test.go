package manifest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "package.json"), []byte(content), 0o644))
	return dir
}

func TestLoad_AllBuckets(t *testing.T) {
	dir := write(t, `{
		"name": "fixture-app",
		"dependencies": {"react": "^18.2.0"},
		"devDependencies": {"jest": "^29.0.0"},
		"peerDependencies": {"styled-components": ">=5"}
	}`)

	reg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "fixture-app", reg.ProjectName)
	assert.Len(t, reg.All(), 3)

	d, ok := reg.Lookup("react")
	require.True(t, ok)
	assert.Equal(t, Production, d.Type)
	assert.Equal(t, "^18.2.0", d.Range)

	d, ok = reg.Lookup("jest")
	require.True(t, ok)
	assert.Equal(t, Development, d.Type)

	d, ok = reg.Lookup("styled-components")
	require.True(t, ok)
	assert.Equal(t, Peer, d.Type)
}

func TestLoad_MissingManifestIsFatal(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "package.json")
}

func TestLoad_UnparseableManifestIsFatal(t *testing.T) {
	dir := write(t, `{not json`)
	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid package.json")
}

func TestLoad_DuplicateNameProductionWins(t *testing.T) {
	// Malformed but tolerated: the same name in two buckets.
	dir := write(t, `{
		"dependencies": {"chalk": "^5.0.0"},
		"devDependencies": {"chalk": "^4.0.0"}
	}`)

	reg, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, reg.All(), 2, "both declarations are retained")

	d, ok := reg.Lookup("chalk")
	require.True(t, ok)
	assert.Equal(t, Production, d.Type, "production takes precedence for lookups")
	assert.Equal(t, "^5.0.0", d.Range)
}

func TestLoad_EmptyManifest(t *testing.T) {
	reg, err := Load(write(t, `{}`))
	require.NoError(t, err)
	assert.Empty(t, reg.All())
	assert.Empty(t, reg.Names())
}
