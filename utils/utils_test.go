package utils

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string, content []byte) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, content, 0o644))
}

func paths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelativePath
	}
	return out
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"File I/O!", "file_i_o_"},
		{"Widgets", "widgets"},
		{"HTTP  Server", "http__server"},
		{"Ünïcode Name", "ünïcode_name"},
		{"a-b.c", "a_b_c"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, Slugify(tc.in), tc.in)
	}
}

func TestChapterFileName(t *testing.T) {
	assert.Equal(t, "03_file_i_o_.md", ChapterFileName(3, "File I/O!"))
	assert.Equal(t, "12_core.md", ChapterFileName(12, "Core"))
	assert.Equal(t, ChapterFileName(1, "Core"), ChapterFileName(1, "Core"))
	assert.NotEqual(t, ChapterFileName(1, "Core"), ChapterFileName(2, "Core"))
}

func TestWalkDirectoryFilters(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), []byte("package main\n"))
	writeFile(t, filepath.Join(root, "main_test.go"), []byte("package main\n"))
	writeFile(t, filepath.Join(root, "README.md"), []byte("# readme\n"))
	writeFile(t, filepath.Join(root, "notes.txt"), []byte("notes\n"))
	writeFile(t, filepath.Join(root, "pkg", "lib.go"), []byte("package pkg\n"))
	writeFile(t, filepath.Join(root, "vendor", "dep", "dep.go"), []byte("package dep\n"))
	writeFile(t, filepath.Join(root, "big.go"), bytes.Repeat([]byte("a"), 200))

	files, err := WalkDirectory(WalkDirectoryOptions{
		RootPath:        root,
		IncludePatterns: []string{"*.go", "*.md"},
		ExcludePatterns: []string{"*_test.go", "vendor/*"},
		MaxFileSize:     100,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"README.md", "main.go", "pkg/lib.go"}, paths(files))
}

func TestWalkDirectoryIgnoreFile(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), []byte("# build output\nbuild/\n*.log\n!keep.log\n/secret.go\n"))
	writeFile(t, filepath.Join(root, "app.go"), []byte("package app\n"))
	writeFile(t, filepath.Join(root, "secret.go"), []byte("package app\n"))
	writeFile(t, filepath.Join(root, "sub", "secret.go"), []byte("package sub\n"))
	writeFile(t, filepath.Join(root, "build", "out.go"), []byte("package out\n"))
	writeFile(t, filepath.Join(root, "debug.log"), []byte("log\n"))
	writeFile(t, filepath.Join(root, "logs", "keep.log"), []byte("keep\n"))

	files, err := WalkDirectory(WalkDirectoryOptions{
		RootPath:        root,
		ExcludePatterns: []string{".gitignore"},
		IgnoreFile:      ".gitignore",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.go", "logs/keep.log", "sub/secret.go"}, paths(files))
}

func TestWalkDirectorySkipsUndecodableFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.go"), append([]byte{0xEF, 0xBB, 0xBF}, []byte("package a\n")...))
	writeFile(t, filepath.Join(root, "b.bin"), []byte{0xff, 0xfe, 0x00, 0x81})

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	files, err := WalkDirectory(WalkDirectoryOptions{RootPath: root, Logger: logger})
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "package a\n", files[0].Content)
	assert.Contains(t, logs.String(), "could not decode file")
	assert.Contains(t, logs.String(), "b.bin")
}

func TestWalkDirectoryMaxFiles(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.go", "b.go", "c.go"} {
		writeFile(t, filepath.Join(root, name), []byte("package x\n"))
	}
	files, err := WalkDirectory(WalkDirectoryOptions{RootPath: root, MaxFiles: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.go", "b.go"}, paths(files))
}

func TestWalkDirectoryRejectsMissingRoot(t *testing.T) {
	_, err := WalkDirectory(WalkDirectoryOptions{RootPath: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}

func TestParseIgnoreDoubleStar(t *testing.T) {
	m, err := ParseIgnore(strings.NewReader("**/gen/*.go\n"))
	require.NoError(t, err)
	assert.True(t, m.Match("gen/a.go", false))
	assert.True(t, m.Match("x/y/gen/a.go", false))
	assert.False(t, m.Match("gen/sub/a.go", false))
	assert.Equal(t, 1, m.Len())
}

func TestNilIgnoreMatcher(t *testing.T) {
	var m *IgnoreMatcher
	assert.False(t, m.Match("anything", false))
	assert.Equal(t, 0, m.Len())
}

func TestParseIgnoreStripsLeadingBOM(t *testing.T) {
	m, err := ParseIgnore(strings.NewReader("\ufeff*.log\nbuild/\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
	assert.True(t, m.Match("debug.log", false))
	assert.True(t, m.Match("build", true))
}

func TestWalkDirectoryIgnoreFileWithBOM(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitignore"), []byte("\ufeffsecret.go\n"))
	writeFile(t, filepath.Join(root, "app.go"), []byte("package app\n"))
	writeFile(t, filepath.Join(root, "secret.go"), []byte("package app\n"))

	files, err := WalkDirectory(WalkDirectoryOptions{
		RootPath:        root,
		IncludePatterns: []string{"*.go"},
		IgnoreFile:      ".gitignore",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"app.go"}, paths(files))
}

func TestWalkDirectoryMatchesBaseNames(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.go"), []byte("package main\n"))
	writeFile(t, filepath.Join(root, "cmd", "main.go"), []byte("package main\n"))
	writeFile(t, filepath.Join(root, "cmd", "run.go"), []byte("package main\n"))
	writeFile(t, filepath.Join(root, "web", "node_modules", "x", "x.js"), []byte("x\n"))
	writeFile(t, filepath.Join(root, "web", "app.js"), []byte("app\n"))

	files, err := WalkDirectory(WalkDirectoryOptions{
		RootPath:        root,
		ExcludePatterns: []string{"main.go", "node_modules/*"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd/run.go", "web/app.js"}, paths(files))

	files, err = WalkDirectory(WalkDirectoryOptions{
		RootPath:        root,
		IncludePatterns: []string{"run.go"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"cmd/run.go"}, paths(files))
}
