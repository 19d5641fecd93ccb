package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/pithomlabs/cb2docs/types"
)

const maxLabelRunes = 30

// finalize renders the index and chapter documents and publishes them.
func (e *Executor) finalize(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	docs := RenderDocumentation(st, e.opts.DocsRoot, e.opts.Attribution, e.logger)
	CheckLinks(docs, e.logger)

	written, err := e.publisher.Publish(ctx, docs)
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("publishing documentation: %w", err)
	}

	out := docs.OutputDir()
	return types.StateUpdate{OutputPath: &out, FilesWritten: &written}, nil
}

// RenderDocumentation builds the index and one chapter document per
// written page. Ordered entries with an out-of-range component or no page
// are skipped with a warning.
func RenderDocumentation(st types.WorkflowState, root, attribution string, logger *slog.Logger) types.Documentation {
	if logger == nil {
		logger = slog.Default()
	}

	var index strings.Builder
	fmt.Fprintf(&index, "# Tutorial: %s\n\n", st.ProjectName)
	index.WriteString(st.ProjectOverview)
	index.WriteString("\n\n```mermaid\n")
	index.WriteString(MermaidDiagram(st.Components, st.ComponentRelationships))
	index.WriteString("```\n\n## Chapters\n\n")

	var chapters []types.ChapterFile
	for i, plan := range st.PagesToProcess {
		if plan.ComponentIndex < 0 || plan.ComponentIndex >= len(st.Components) {
			logger.Warn("skipping chapter with out-of-range component", "position", i, "component", plan.ComponentIndex)
			continue
		}
		if i >= len(st.Pages) {
			logger.Warn("skipping chapter with no content", "position", i, "title", plan.Title)
			continue
		}
		fmt.Fprintf(&index, "%d. [%s](%s)\n", plan.Number, plan.Title, plan.FileName)

		content := st.Pages[i]
		if !strings.HasSuffix(content, "\n\n") {
			content = strings.TrimRight(content, "\n") + "\n\n"
		}
		content += "---\n\n" + attribution
		chapters = append(chapters, types.ChapterFile{FileName: plan.FileName, Content: content})
	}
	index.WriteString("\n\n---\n\n" + attribution)

	return types.Documentation{
		Root:        root,
		ProjectName: st.ProjectName,
		Index:       index.String(),
		Chapters:    chapters,
	}
}

// MermaidDiagram renders the component graph as a flowchart body.
func MermaidDiagram(components []types.Component, relationships []types.Relationship) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")
	for i, c := range components {
		fmt.Fprintf(&b, "    A%d[\"%s\"]\n", i, sanitizeMermaid(c.Name))
	}
	for _, r := range relationships {
		label := sanitizeMermaid(r.Label)
		if runes := []rune(label); len(runes) > maxLabelRunes {
			label = string(runes[:maxLabelRunes-3]) + "..."
		}
		fmt.Fprintf(&b, "    A%d -- \"%s\" --> A%d\n", r.From.Int(), label, r.To.Int())
	}
	return b.String()
}

func sanitizeMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "")
	return strings.ReplaceAll(s, "\n", " ")
}
