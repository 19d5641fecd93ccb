package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pithomlabs/cb2docs/llm"
	"github.com/pithomlabs/cb2docs/types"
)

// DefaultAttribution is the footer appended to every generated document.
const DefaultAttribution = "Generated by cb2docs"

// Publisher persists the rendered documentation and returns the paths written.
type Publisher interface {
	Publish(ctx context.Context, docs types.Documentation) ([]string, error)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, docs types.Documentation) ([]string, error)

func (f PublisherFunc) Publish(ctx context.Context, docs types.Documentation) ([]string, error) {
	return f(ctx, docs)
}

// Options tune a run.
type Options struct {
	// StrictCoverage fails the run when a component is in no relationship.
	StrictCoverage bool
	// MaxAttempts bounds structured-output attempts per stage.
	MaxAttempts int
	DocsRoot    string
	Attribution string
}

// Executor runs the stages in order against one shared state.
type Executor struct {
	llm       llm.Completer
	publisher Publisher
	logger    *slog.Logger
	opts      Options
}

// NewExecutor wires an executor. A nil logger uses slog.Default.
func NewExecutor(completer llm.Completer, publisher Publisher, logger *slog.Logger, opts Options) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = llm.MaxRetries
	}
	if opts.DocsRoot == "" {
		opts.DocsRoot = "docs"
	}
	if opts.Attribution == "" {
		opts.Attribution = DefaultAttribution
	}
	return &Executor{llm: completer, publisher: publisher, logger: logger, opts: opts}
}

func (e *Executor) stages() (segregation, relationships, ordering, planning, page, finalization stage) {
	segregation = stage{"segregation", []types.Field{types.FieldComponents}, e.segregate}
	relationships = stage{"relationship analysis", []types.Field{
		types.FieldProjectOverview, types.FieldComponentRelationships,
	}, e.relate}
	ordering = stage{"ordering", []types.Field{types.FieldOrderedComponents}, e.order}
	planning = stage{"page planning", []types.Field{
		types.FieldPagesToProcess, types.FieldPagesProcessed,
	}, e.plan}
	page = stage{"page processing", []types.Field{
		types.FieldPages, types.FieldPagesProcessed,
	}, e.processPage}
	finalization = stage{"finalization", []types.Field{
		types.FieldOutputPath, types.FieldFilesWritten,
	}, e.finalize}
	return
}

// Run executes the pipeline: segregation, relationship analysis, ordering
// and planning, then page processing until the router reports no pages
// remain, then finalization. Any stage error aborts the run.
func (e *Executor) Run(ctx context.Context, initial types.WorkflowState) (types.WorkflowState, types.RunSummary, error) {
	if len(initial.Files) == 0 {
		return initial, types.RunSummary{}, fmt.Errorf("%w: no files to analyze", types.ErrInput)
	}
	if initial.MaxComponents < MinComponents {
		return initial, types.RunSummary{}, fmt.Errorf("%w: max components must be at least %d, got %d",
			types.ErrInput, MinComponents, initial.MaxComponents)
	}
	if e.publisher == nil {
		return initial, types.RunSummary{}, fmt.Errorf("%w: no publisher configured", types.ErrInput)
	}

	segregation, relationships, ordering, planning, page, finalization := e.stages()

	st := initial
	var err error
	for i, s := range []stage{segregation, relationships, ordering, planning} {
		e.logger.Info(fmt.Sprintf("Step %d/6: %s", i+1, s.name))
		if st, err = e.step(ctx, s, st); err != nil {
			return st, types.RunSummary{}, err
		}
	}

	e.logger.Info("Step 5/6: page processing", "pages", len(st.PagesToProcess))
	for Route(st) == MorePages {
		if st, err = e.step(ctx, page, st); err != nil {
			return st, types.RunSummary{}, err
		}
	}

	e.logger.Info("Step 6/6: finalization")
	if st, err = e.step(ctx, finalization, st); err != nil {
		return st, types.RunSummary{}, err
	}

	summary := types.RunSummary{
		OutputPath:   st.OutputPath,
		Components:   len(st.Components),
		Chapters:     len(st.Pages),
		FilesWritten: st.FilesWritten,
	}
	e.logger.Info("documentation generated", "output", summary.OutputPath, "chapters", summary.Chapters)
	return st, summary, nil
}

// step runs one stage and merges its update after checking ownership.
func (e *Executor) step(ctx context.Context, s stage, st types.WorkflowState) (types.WorkflowState, error) {
	if err := ctx.Err(); err != nil {
		return st, fmt.Errorf("%s: %w", s.name, err)
	}
	update, err := s.run(ctx, st)
	if err != nil {
		return st, fmt.Errorf("%s: %w", s.name, err)
	}
	if err := update.CheckOwnership(s.name, s.writes); err != nil {
		return st, err
	}
	return st.Apply(update), nil
}
