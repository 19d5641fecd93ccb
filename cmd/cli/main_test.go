package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/glamour/styles"
	"github.com/pithomlabs/cb2docs/config"
	"github.com/pithomlabs/cb2docs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvokePostsWorkflowInput(t *testing.T) {
	var gotPath string
	var gotInput types.TutorialWorkflowInput
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotInput))
		_ = json.NewEncoder(w).Encode(types.RunSummary{OutputPath: "docs/repo", Components: 5, Chapters: 5})
	}))
	defer srv.Close()

	repo := filepath.Join(t.TempDir(), "repo")
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs([]string{
		"invoke", repo,
		"--config", filepath.Join(t.TempDir(), "none.toml"),
		"--restate-url", srv.URL + "/",
		"--max-components", "6",
		"--include", "*.go,*.py",
	})
	require.NoError(t, cmd.Execute())

	assert.True(t, strings.HasPrefix(gotPath, "/TutorialWorkflow/tutorial-"), gotPath)
	assert.True(t, strings.HasSuffix(gotPath, "/Run"), gotPath)
	assert.Equal(t, repo, gotInput.LocalRepoPath)
	assert.Equal(t, "repo", gotInput.ProjectName)
	assert.Equal(t, 6, gotInput.MaxComponents)
	assert.Equal(t, []string{"*.go", "*.py"}, gotInput.IncludePatterns)

	assert.Contains(t, out.String(), "Tutorial generated in: docs/repo")
	assert.Contains(t, out.String(), "Chapters: 5")
}

func TestInvokeReportsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"invoke", t.TempDir(), "--config", "", "--restate-url", srv.URL})
	err := cmd.Execute()
	assert.ErrorContains(t, err, "status 500")
}

func TestLoadConfigFlagOverrides(t *testing.T) {
	f := cliFlags{
		configPath:     filepath.Join(t.TempDir(), "none.toml"),
		maxComponents:  7,
		docsRoot:       "site",
		strictCoverage: true,
		maxFiles:       10,
	}
	cfg, err := loadConfig(f, newLogger(false))
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Output.MaxComponents)
	assert.Equal(t, "site", cfg.Output.DocsRoot)
	assert.True(t, cfg.Output.StrictCoverage)
	assert.Equal(t, 10, cfg.Collect.MaxFiles)
	assert.Equal(t, config.DefaultConfig().Collect.IncludePatterns, cfg.Collect.IncludePatterns)

	f.maxComponents = 2
	_, err = loadConfig(f, newLogger(false))
	assert.Error(t, err)
}

func TestGenerateRequiresDirectory(t *testing.T) {
	cmd := newRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"generate"})
	assert.Error(t, cmd.Execute())
}

func TestPrintPreview(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.md")
	require.NoError(t, os.WriteFile(path, []byte("# Tutorial: demo\n\nSome overview."), 0644))

	var out bytes.Buffer
	require.NoError(t, printPreview(&out, path, styles.NoTTYStyle))
	assert.Contains(t, out.String(), "Some overview.")
	assert.NotContains(t, out.String(), "\x1b[")

	out.Reset()
	require.NoError(t, printPreview(&out, path, styles.DarkStyle))
	assert.Contains(t, out.String(), "\x1b[")

	assert.Error(t, printPreview(&out, filepath.Join(t.TempDir(), "missing.md"), styles.NoTTYStyle))
}
