package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pithomlabs/cb2docs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectFiles(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "pkg"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "lib.go"), []byte("package pkg"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "pkg", "lib_test.go"), []byte("package pkg"), 0644))

	out, err := CollectFiles(types.CollectFilesInput{
		RepoPath:        root,
		IncludePatterns: []string{"*.go"},
		ExcludePatterns: []string{"*_test.go"},
	}, nil)
	require.NoError(t, err)
	require.Len(t, out.Files, 2)
	for i, f := range out.Files {
		assert.Equal(t, i, f.Index)
	}
	assert.Equal(t, "main.go", out.Files[0].Path)
	assert.Equal(t, filepath.Join("pkg", "lib.go"), out.Files[1].Path)
}

func TestCollectFilesErrors(t *testing.T) {
	_, err := CollectFiles(types.CollectFilesInput{}, nil)
	assert.Error(t, err)

	_, err = CollectFiles(types.CollectFilesInput{RepoPath: t.TempDir()}, nil)
	assert.ErrorContains(t, err, "no files matched")
}

func TestWriteDocumentation(t *testing.T) {
	root := t.TempDir()
	docs := types.Documentation{
		Root:        root,
		ProjectName: "demo",
		Index:       "# Tutorial: demo",
		Chapters: []types.ChapterFile{
			{FileName: "01_core.md", Content: "# Chapter 1: Core"},
			{FileName: "02_store.md", Content: "# Chapter 2: Store"},
		},
	}

	written, err := WriteDocumentation(docs)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "demo", "index.md"),
		filepath.Join(root, "demo", "01_core.md"),
		filepath.Join(root, "demo", "02_store.md"),
	}, written)

	got, err := os.ReadFile(filepath.Join(root, "demo", "02_store.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Chapter 2: Store", string(got))
}

func TestWriteDocumentationRejectsEscapingNames(t *testing.T) {
	docs := types.Documentation{
		Root:        t.TempDir(),
		ProjectName: "demo",
		Chapters:    []types.ChapterFile{{FileName: "../evil.md"}},
	}
	_, err := WriteDocumentation(docs)
	assert.Error(t, err)

	_, err = WriteDocumentation(types.Documentation{Root: t.TempDir()})
	assert.Error(t, err)
}
