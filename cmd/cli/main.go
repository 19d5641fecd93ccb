package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/pithomlabs/cb2docs/cache"
	"github.com/pithomlabs/cb2docs/config"
	"github.com/pithomlabs/cb2docs/llm"
	"github.com/pithomlabs/cb2docs/services"
	"github.com/pithomlabs/cb2docs/types"
	"github.com/pithomlabs/cb2docs/workflow"
	"github.com/spf13/cobra"
)

type cliFlags struct {
	configPath     string
	projectName    string
	maxComponents  int
	include        []string
	exclude        []string
	maxFileSize    int64
	maxFiles       int
	noCache        bool
	strictCoverage bool
	docsRoot       string
	verbose        bool
	restateURL     string
	preview        bool
}

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var f cliFlags

	rootCmd := &cobra.Command{
		Use:           "cb2docs",
		Short:         "Generate beginner-friendly tutorial documentation from a codebase",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&f.configPath, "config", "cb2docs.toml", "path to config file")
	rootCmd.PersistentFlags().StringVar(&f.projectName, "project-name", "", "project name (derived from the directory if empty)")
	rootCmd.PersistentFlags().IntVar(&f.maxComponents, "max-components", 0, "maximum number of components (default 5)")
	rootCmd.PersistentFlags().StringSliceVar(&f.include, "include", nil, "include glob patterns")
	rootCmd.PersistentFlags().StringSliceVar(&f.exclude, "exclude", nil, "exclude glob patterns")
	rootCmd.PersistentFlags().Int64Var(&f.maxFileSize, "max-file-size", 0, "skip files larger than this many bytes")
	rootCmd.PersistentFlags().IntVar(&f.maxFiles, "max-files", 0, "maximum number of files to read")
	rootCmd.PersistentFlags().BoolVar(&f.strictCoverage, "strict-coverage", false, "fail when a component is in no relationship")
	rootCmd.PersistentFlags().StringVar(&f.docsRoot, "docs-root", "", "root directory for generated docs")
	rootCmd.PersistentFlags().BoolVarP(&f.verbose, "verbose", "v", false, "debug logging")

	generateCmd := &cobra.Command{
		Use:   "generate <dir>",
		Short: "Run the pipeline in-process and write the docs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd.Context(), out, args[0], f)
		},
	}
	generateCmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the response cache")
	generateCmd.Flags().BoolVar(&f.preview, "preview", false, "render the generated index in the terminal")

	invokeCmd := &cobra.Command{
		Use:   "invoke <dir>",
		Short: "Start the workflow on a running Restate server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(cmd.Context(), out, args[0], f)
		},
	}
	invokeCmd.Flags().StringVar(&f.restateURL, "restate-url", "", "Restate ingress URL")

	rootCmd.AddCommand(generateCmd, invokeCmd)
	return rootCmd
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func loadConfig(f cliFlags, logger *slog.Logger) (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using environment variables")
	}
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.maxComponents != 0 {
		cfg.Output.MaxComponents = f.maxComponents
	}
	if f.docsRoot != "" {
		cfg.Output.DocsRoot = f.docsRoot
	}
	if f.strictCoverage {
		cfg.Output.StrictCoverage = true
	}
	if len(f.include) > 0 {
		cfg.Collect.IncludePatterns = f.include
	}
	if len(f.exclude) > 0 {
		cfg.Collect.ExcludePatterns = f.exclude
	}
	if f.maxFileSize > 0 {
		cfg.Collect.MaxFileSize = f.maxFileSize
	}
	if f.maxFiles > 0 {
		cfg.Collect.MaxFiles = f.maxFiles
	}
	if f.restateURL != "" {
		cfg.Server.RestateURL = f.restateURL
	}
	return cfg, cfg.Validate()
}

func buildInput(dir string, f cliFlags, cfg *config.Config) types.TutorialWorkflowInput {
	return types.TutorialWorkflowInput{
		LocalRepoPath:   dir,
		ProjectName:     workflow.ProjectName(f.projectName, dir),
		MaxComponents:   cfg.Output.MaxComponents,
		IncludePatterns: cfg.Collect.IncludePatterns,
		ExcludePatterns: cfg.Collect.ExcludePatterns,
		IgnoreFile:      cfg.Collect.IgnoreFile,
		MaxFileSize:     cfg.Collect.MaxFileSize,
		MaxFiles:        cfg.Collect.MaxFiles,
		DocsRoot:        cfg.Output.DocsRoot,
		StrictCoverage:  cfg.Output.StrictCoverage,
	}
}

func runGenerate(ctx context.Context, out io.Writer, dir string, f cliFlags) error {
	logger := newLogger(f.verbose)
	cfg, err := loadConfig(f, logger)
	if err != nil {
		return err
	}
	input := buildInput(dir, f, cfg)

	client, err := llm.NewClient(llm.Config{
		APIKey:            cfg.LLM.APIKey,
		Model:             cfg.LLM.Model,
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		MaxAttempts:       cfg.LLM.MaxAttempts,
	})
	if err != nil {
		return err
	}
	var completer llm.Completer = client
	if !f.noCache && cfg.LLM.CachePath != "" {
		store, err := cache.NewStore(cfg.LLM.CachePath)
		if err != nil {
			return err
		}
		defer store.Close()
		completer = cache.NewCompleter(client, store, client.Model(), logger)
	}

	collected, err := services.CollectFiles(types.CollectFilesInput{
		RepoPath:        input.LocalRepoPath,
		IncludePatterns: input.IncludePatterns,
		ExcludePatterns: input.ExcludePatterns,
		IgnoreFile:      input.IgnoreFile,
		MaxFileSize:     input.MaxFileSize,
		MaxFiles:        input.MaxFiles,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("collected files", "count", len(collected.Files), "project", input.ProjectName)

	publisher := workflow.PublisherFunc(func(_ context.Context, docs types.Documentation) ([]string, error) {
		return services.WriteDocumentation(docs)
	})
	exec := workflow.NewExecutor(completer, publisher, logger, workflow.Options{
		StrictCoverage: input.StrictCoverage,
		MaxAttempts:    cfg.LLM.MaxAttempts,
		DocsRoot:       input.DocsRoot,
	})
	_, summary, err := exec.Run(ctx, types.WorkflowState{
		Files:         collected.Files,
		ProjectName:   input.ProjectName,
		MaxComponents: input.MaxComponents,
	})
	if err != nil {
		return err
	}
	printSummary(out, summary)
	if f.preview {
		return printPreview(out, filepath.Join(summary.OutputPath, "index.md"), styles.DarkStyle)
	}
	return nil
}

// printPreview renders a generated markdown file with the named glamour style.
func printPreview(out io.Writer, path, style string) error {
	md, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return fmt.Errorf("creating glamour renderer: %w", err)
	}
	rendered, err := r.Render(string(md))
	if err != nil {
		return fmt.Errorf("rendering %s: %w", path, err)
	}
	_, err = io.WriteString(out, rendered)
	return err
}

func printSummary(out io.Writer, s types.RunSummary) {
	fmt.Fprintf(out, "Tutorial generated in: %s\n", s.OutputPath)
	fmt.Fprintf(out, "Components: %d\n", s.Components)
	fmt.Fprintf(out, "Chapters: %d\n", s.Chapters)
}

func runInvoke(ctx context.Context, out io.Writer, dir string, f cliFlags) error {
	logger := newLogger(f.verbose)
	cfg, err := loadConfig(f, logger)
	if err != nil {
		return err
	}
	// the server resolves the path on its own filesystem
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	input := buildInput(dir, f, cfg)

	// Endpoint format: POST /{WorkflowName}/{workflowId}/Run
	workflowID := "tutorial-" + uuid.NewString()
	url := fmt.Sprintf("%s/TutorialWorkflow/%s/Run", strings.TrimRight(cfg.Server.RestateURL, "/"), workflowID)

	payload, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to serialize input: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	logger.Info("invoking workflow", "url", url, "repo", dir)
	client := &http.Client{Timeout: 30 * time.Minute} // model calls are slow
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to invoke workflow: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("workflow failed with status %d: %s", resp.StatusCode, string(body))
	}

	var summary types.RunSummary
	if err := json.Unmarshal(body, &summary); err != nil {
		return fmt.Errorf("could not parse result: %w", err)
	}
	printSummary(out, summary)
	return nil
}
