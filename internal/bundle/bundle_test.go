// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package bundle

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixed = time.Date(2026, 3, 7, 9, 5, 3, 0, time.Local)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func zipNames(t *testing.T, path string) []string {
	t.Helper()
	zr, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer zr.Close()
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	return names
}

func TestPackageKeepsArchive(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()
	writeTree(t, root, map[string]string{
		"main.go":              "package main",
		"README.md":            "# readme",
		"internal/a/a.go":      "package a",
		"internal/a/a.txt":     "skip",
		".git/config":          "hidden",
		".git/hook.go":         "package hidden",
		"notes/todo.md":        "- item",
		"internal/b/b_test.go": "package b",
	})

	r, err := Package(Options{Root: root, Patterns: []string{"**/*.go", "README.md"}, Dest: dest, Now: func() time.Time { return fixed }})
	require.NoError(t, err)

	assert.Equal(t, []string{"README.md", "internal/a/a.go", "internal/b/b_test.go", "main.go"}, r.Files)
	assert.Equal(t, filepath.Join(dest, "zipped_file_7-3-2026_9-5-3.zip"), r.Archive)
	assert.Equal(t, r.Files, zipNames(t, r.Archive))
	assert.Equal(t, uint64(len("package main")+len("# readme")+len("package a")+len("package b")), r.Size)
	assert.Positive(t, r.Compressed)
	assert.Contains(t, r.String(), "4 file(s)")
}

func TestPackageExtractRemovesArchive(t *testing.T) {
	root := t.TempDir()
	dest := t.TempDir()
	writeTree(t, root, map[string]string{
		"article.md":      "# Theme",
		"sub/config.yaml": "a: 1",
	})

	r, err := Package(Options{Root: root, Patterns: []string{"**/*.md", "**/*.yaml"}, Dest: dest, Extract: true})
	require.NoError(t, err)
	assert.Empty(t, r.Archive)
	assert.Equal(t, []string{"article.md", "sub/config.yaml"}, r.Files)

	data, err := os.ReadFile(filepath.Join(dest, "sub", "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "a: 1", string(data))

	matches, err := filepath.Glob(filepath.Join(dest, ArchivePrefix+"*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestPackageSkipsDestination(t *testing.T) {
	root := t.TempDir()
	dest := filepath.Join(root, "out")
	writeTree(t, root, map[string]string{
		"keep.md":    "keep",
		"out/old.md": "old",
	})

	r, err := Package(Options{Root: root, Patterns: []string{"**/*.md"}, Dest: dest})
	require.NoError(t, err)
	assert.Equal(t, []string{"keep.md"}, r.Files)
}

func TestPackageErrors(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.txt": "x"})

	_, err := Package(Options{Root: root, Patterns: []string{"*.go"}, Dest: t.TempDir()})
	assert.ErrorContains(t, err, "no files match")

	_, err = Package(Options{Root: root, Patterns: []string{"[a-"}, Dest: t.TempDir()})
	assert.ErrorContains(t, err, "invalid pattern")

	_, err = Package(Options{Root: root, Patterns: []string{"*.txt"}})
	assert.ErrorContains(t, err, "no destination")
}
