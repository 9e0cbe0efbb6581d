package scanner

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, rel string) string {
	t.Helper()
	full := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte("// fixture\n"), 0o644))
	return full
}

func relFiles(t *testing.T, root string, res *Result) []string {
	t.Helper()
	out := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		rel, err := filepath.Rel(root, f)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScan_SupportedExtensionsOnly(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/app.ts")
	touch(t, root, "src/App.vue")
	touch(t, root, "src/styles.scss")
	touch(t, root, "README.md")
	touch(t, root, "image.png")

	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/App.vue", "src/app.ts", "src/styles.scss"}, relFiles(t, root, res))
}

func TestScan_DefaultSkipDirs(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/index.js")
	touch(t, root, "node_modules/lodash/index.js")
	touch(t, root, "dist/bundle.js")
	touch(t, root, ".cache/tmp.js")

	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relFiles(t, root, res))
}

func TestScan_ExcludePatterns(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/index.js")
	touch(t, root, "src/generated/api.js")
	touch(t, root, "scripts/tool.js")

	res, err := Scan(root, Options{ExcludePatterns: []string{"src/generated/**", "scripts"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relFiles(t, root, res))
}

func TestScan_DotfilesSkipped(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/ok.js")
	touch(t, root, "src/.hidden.js")

	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/ok.js"}, relFiles(t, root, res))
}

func TestScan_OrderIsStable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "b.js")
	touch(t, root, "a.js")
	touch(t, root, "c/d.js")

	first, err := Scan(root, Options{})
	require.NoError(t, err)
	second, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, []string{"a.js", "b.js", "c/d.js"}, relFiles(t, root, first))
}

func TestScan_SymlinkCycle(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink fixtures are unreliable on windows")
	}
	root := t.TempDir()
	touch(t, root, "src/index.js")
	// src/loop points back at src; following it would never terminate.
	require.NoError(t, os.Symlink(filepath.Join(root, "src"), filepath.Join(root, "src", "loop")))

	res, err := Scan(root, Options{FollowSymlinks: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"src/index.js"}, relFiles(t, root, res))
	assert.NotEmpty(t, res.Warnings, "a skipped link cycle is recorded, not fatal")
}

func TestScan_SymlinksIgnoredByDefault(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlink fixtures are unreliable on windows")
	}
	root := t.TempDir()
	touch(t, root, "real/mod.js")
	require.NoError(t, os.Symlink(filepath.Join(root, "real"), filepath.Join(root, "linked")))

	res, err := Scan(root, Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"real/mod.js"}, relFiles(t, root, res))
}

func TestScan_MissingRootFails(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"), Options{})
	require.Error(t, err)
}
