package workflow

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/pithomlabs/cb2docs/llm"
	"github.com/pithomlabs/cb2docs/types"
	framework "github.com/pithomlabs/rea"
	restate "github.com/restatedev/sdk-go"
)

// Service clients using rea framework
var (
	FileCollectorClient = framework.ServiceClient[types.CollectFilesInput, types.CollectFilesOutput]{
		ServiceName: "FileCollector",
		HandlerName: "Collect",
	}

	FileWriterClient = framework.ServiceClient[types.WriteDocsInput, types.WriteDocsOutput]{
		ServiceName: "FileWriter",
		HandlerName: "WriteDocs",
	}
)

// TutorialWorkflow runs the documentation pipeline as a durable Restate
// workflow. Every model call is journaled, so a replay after a crash
// reuses the answers already received.
type TutorialWorkflow struct {
	// NewCompleter builds the model client. Called once per invocation.
	NewCompleter func() (llm.Completer, error)
	Options      Options
}

// ServiceName returns the service name for registration
func (w TutorialWorkflow) ServiceName() string {
	return "TutorialWorkflow"
}

// Run collects the files through the FileCollector service, runs the
// executor, and publishes through the FileWriter service.
func (w TutorialWorkflow) Run(ctx restate.WorkflowContext, input types.TutorialWorkflowInput) (types.RunSummary, error) {
	logger := ctx.Log()
	logger.Info("starting tutorial workflow", "repo", input.LocalRepoPath)

	if w.NewCompleter == nil {
		return types.RunSummary{}, restate.TerminalError(errors.New("workflow has no model client configured"))
	}
	completer, err := w.NewCompleter()
	if err != nil {
		return types.RunSummary{}, restate.TerminalError(fmt.Errorf("creating model client: %w", err))
	}

	projectName := ProjectName(input.ProjectName, input.LocalRepoPath)
	maxComponents := input.MaxComponents
	if maxComponents == 0 {
		maxComponents = 5
	}

	collected, err := FileCollectorClient.Call(ctx, types.CollectFilesInput{
		RepoPath:        input.LocalRepoPath,
		IncludePatterns: input.IncludePatterns,
		ExcludePatterns: input.ExcludePatterns,
		IgnoreFile:      input.IgnoreFile,
		MaxFileSize:     input.MaxFileSize,
		MaxFiles:        input.MaxFiles,
	})
	if err != nil {
		return types.RunSummary{}, fmt.Errorf("failed to collect files: %w", err)
	}
	logger.Info("collected files", "count", len(collected.Files))

	opts := w.Options
	opts.StrictCoverage = opts.StrictCoverage || input.StrictCoverage
	if input.DocsRoot != "" {
		opts.DocsRoot = input.DocsRoot
	}

	exec := NewExecutor(journaled{ctx: ctx, next: completer}, restatePublisher{ctx: ctx}, logger, opts)
	_, summary, err := exec.Run(ctx, types.WorkflowState{
		Files:         collected.Files,
		ProjectName:   projectName,
		MaxComponents: maxComponents,
	})
	if err != nil {
		if isFatal(err) {
			return types.RunSummary{}, restate.TerminalError(err)
		}
		return types.RunSummary{}, err
	}
	return summary, nil
}

// ProjectName falls back to the repository directory name.
func ProjectName(name, repoPath string) string {
	if name != "" {
		return name
	}
	name = filepath.Base(filepath.Clean(repoPath))
	if name == "." || name == "/" || name == "" {
		return "Project"
	}
	return name
}

// isFatal reports errors a retry of the invocation cannot fix.
func isFatal(err error) bool {
	return errors.Is(err, types.ErrInvariant) ||
		errors.Is(err, types.ErrForeignWrite) ||
		errors.Is(err, types.ErrInput) ||
		errors.Is(err, ErrPrompt) ||
		errors.Is(err, llm.ErrValidation)
}

// journaled records each completion in the Restate journal.
type journaled struct {
	ctx  restate.WorkflowContext
	next llm.Completer
}

func (j journaled) Complete(_ context.Context, req llm.Request) (string, error) {
	return restate.Run(j.ctx, func(rc restate.RunContext) (string, error) {
		return j.next.Complete(rc, req)
	}, restate.WithName("llm-completion"))
}

// restatePublisher writes through the FileWriter service.
type restatePublisher struct {
	ctx restate.WorkflowContext
}

func (p restatePublisher) Publish(_ context.Context, docs types.Documentation) ([]string, error) {
	out, err := FileWriterClient.Call(p.ctx, types.WriteDocsInput{Docs: docs})
	if err != nil {
		return nil, fmt.Errorf("failed to write documentation: %w", err)
	}
	return out.FilesWritten, nil
}
