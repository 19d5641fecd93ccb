package workflow

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/pithomlabs/cb2docs/llm"
	"github.com/pithomlabs/cb2docs/types"
	"github.com/pithomlabs/cb2docs/utils"
)

// MinComponents is the lower bound requested from segregation.
const MinComponents = 4

// stage is one node of the workflow graph. writes lists the state fields
// the stage owns; the executor rejects updates outside it.
type stage struct {
	name   string
	writes []types.Field
	run    func(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error)
}

// segregate identifies the core components of the codebase.
func (e *Executor) segregate(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	var fileContext, fileListing strings.Builder
	for i, file := range st.Files {
		fmt.Fprintf(&fileContext, "--- File Index %d: path: %s ---\n%s\n\n", i, file.Path, file.Content)
		fmt.Fprintf(&fileListing, "- %d # %s\n", i, file.Path)
	}

	prompt, err := render(segregationTmpl, map[string]any{
		"ProjectName": st.ProjectName,
		"FileContext": fileContext.String(),
		"FileListing": fileListing.String(),
		"Min":         MinComponents,
		"Max":         st.MaxComponents,
	})
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("rendering prompt: %w", err)
	}

	maxComponents := st.MaxComponents
	res := llm.Structured[types.ComponentList](ctx, e.llm, llm.Request{System: analystSystem, Prompt: prompt},
		llm.WithMaxAttempts(e.opts.MaxAttempts),
		llm.WithSchemaHook(func(schema map[string]any) {
			setArrayBounds(schema, "components", MinComponents, maxComponents)
		}),
	)
	list, err := res.Unwrap()
	if err != nil {
		return types.StateUpdate{}, err
	}

	drafts := list.Components
	if len(drafts) > maxComponents {
		e.logger.Warn("model returned more components than requested; truncating",
			"returned", len(drafts), "max", maxComponents)
		drafts = drafts[:maxComponents]
	}
	if len(drafts) < MinComponents {
		e.logger.Warn("model returned fewer components than requested",
			"returned", len(drafts), "min", MinComponents)
	}

	components := make([]types.Component, 0, len(drafts))
	for _, d := range drafts {
		c, err := d.Bind(len(st.Files))
		if err != nil {
			return types.StateUpdate{}, err
		}
		components = append(components, c)
	}

	e.logger.Info("identified components", "count", len(components))
	return types.StateUpdate{Components: &components}, nil
}

// relate asks for the project overview and the relationships between
// components, re-supplying the source of every referenced file.
func (e *Executor) relate(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	var listing, details strings.Builder
	details.WriteString("Identified components:\n")
	relevant := map[int]bool{}
	for i, c := range st.Components {
		fmt.Fprintf(&listing, "- %d # %s\n", i, c.Name)
		fmt.Fprintf(&details, "- Index %d: %s (Relevant file indices: [%s])\n    Description: %s\n",
			i, c.Name, joinRefs(c.Files), c.Description)
		for _, f := range c.Files {
			relevant[f.Int()] = true
		}
	}

	indices := make([]int, 0, len(relevant))
	for i := range relevant {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	details.WriteString("Relevant file snippets referenced by index and path:\n")
	for _, i := range indices {
		if i < 0 || i >= len(st.Files) {
			continue
		}
		fmt.Fprintf(&details, "\n\n- %d # %s\n%s\n", i, st.Files[i].Path, st.Files[i].Content)
	}

	prompt, err := render(relationshipTmpl, map[string]any{
		"ProjectName":      st.ProjectName,
		"ComponentListing": listing.String(),
		"ComponentContext": details.String(),
	})
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("rendering prompt: %w", err)
	}

	res := llm.Structured[types.RelationshipAnalysis](ctx, e.llm,
		llm.Request{System: "You are a software architecture analyst.", Prompt: prompt},
		llm.WithMaxAttempts(e.opts.MaxAttempts))
	analysis, err := res.Unwrap()
	if err != nil {
		return types.StateUpdate{}, err
	}

	relationships := make([]types.Relationship, 0, len(analysis.Relationships))
	for i, d := range analysis.Relationships {
		r, err := d.Bind(len(st.Components))
		if err != nil {
			return types.StateUpdate{}, fmt.Errorf("relationship %d: %w", i, err)
		}
		relationships = append(relationships, r)
	}

	if missing := types.UncoveredComponents(relationships, len(st.Components)); len(missing) > 0 {
		if e.opts.StrictCoverage {
			return types.StateUpdate{}, fmt.Errorf("%w: components %v appear in no relationship", types.ErrInvariant, missing)
		}
		e.logger.Warn("components appear in no relationship", "components", missing)
	}

	e.logger.Info("mapped relationships", "count", len(relationships))
	overview := analysis.Overview
	return types.StateUpdate{
		ProjectOverview:        &overview,
		ComponentRelationships: &relationships,
	}, nil
}

// order asks for the teaching order and checks it is a permutation.
func (e *Executor) order(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	var listing, rels strings.Builder
	for i, c := range st.Components {
		fmt.Fprintf(&listing, "- %d # %s\n", i, c.Name)
	}
	for _, r := range st.ComponentRelationships {
		fmt.Fprintf(&rels, "- from %s to %s: (%s)\n",
			componentName(st.Components, r.From.Int()), componentName(st.Components, r.To.Int()), r.Label)
	}

	prompt, err := render(orderingTmpl, map[string]any{
		"ProjectName":      st.ProjectName,
		"ComponentListing": listing.String(),
		"Overview":         st.ProjectOverview,
		"Relationships":    rels.String(),
		"Count":            len(st.Components),
	})
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("rendering prompt: %w", err)
	}

	res := llm.Structured[types.Ordering](ctx, e.llm,
		llm.Request{System: "You are an expert technical educator.", Prompt: prompt},
		llm.WithMaxAttempts(e.opts.MaxAttempts))
	ordering, err := res.Unwrap()
	if err != nil {
		return types.StateUpdate{}, err
	}
	if err := types.ValidatePermutation(ordering.OrderedComponents, len(st.Components)); err != nil {
		return types.StateUpdate{}, err
	}

	e.logger.Info("chapter order determined", "order", ordering.OrderedComponents)
	order := ordering.OrderedComponents
	return types.StateUpdate{OrderedComponents: &order}, nil
}

// plan derives the per-chapter metadata. It makes no model call.
func (e *Executor) plan(_ context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	plans := PlanPages(st.OrderedComponents, st.Components)
	zero := 0
	return types.StateUpdate{PagesToProcess: &plans, PagesProcessed: &zero}, nil
}

// PlanPages builds one PagePlan per ordered component. Indices outside the
// component list are skipped.
func PlanPages(ordered []int, components []types.Component) []types.PagePlan {
	inRange := func(idx int) bool { return idx >= 0 && idx < len(components) }

	// metadata by component index, not by position
	meta := make(map[int]types.ChapterLink, len(ordered))
	var listing strings.Builder
	for i, idx := range ordered {
		if !inRange(idx) {
			continue
		}
		link := types.ChapterLink{
			Number:   i + 1,
			Title:    components[idx].Name,
			FileName: utils.ChapterFileName(i+1, components[idx].Name),
		}
		meta[idx] = link
		fmt.Fprintf(&listing, "%d. [%s](%s)\n", link.Number, link.Title, link.FileName)
	}

	neighbour := func(pos int) *types.ChapterLink {
		if pos < 0 || pos >= len(ordered) {
			return nil
		}
		link, ok := meta[ordered[pos]]
		if !ok {
			return nil
		}
		return &link
	}

	plans := make([]types.PagePlan, 0, len(ordered))
	for i, idx := range ordered {
		if !inRange(idx) {
			continue
		}
		self := meta[idx]
		plans = append(plans, types.PagePlan{
			Number:         self.Number,
			ComponentIndex: idx,
			Title:          self.Title,
			FileName:       self.FileName,
			Listing:        listing.String(),
			Prev:           neighbour(i - 1),
			Next:           neighbour(i + 1),
		})
	}
	return plans
}

// processPage writes the chapter at position PagesProcessed.
func (e *Executor) processPage(ctx context.Context, st types.WorkflowState) (types.StateUpdate, error) {
	if st.PagesProcessed < 0 || st.PagesProcessed >= len(st.PagesToProcess) {
		return types.StateUpdate{}, fmt.Errorf("no page plan at position %d", st.PagesProcessed)
	}
	plan := st.PagesToProcess[st.PagesProcessed]
	if plan.ComponentIndex < 0 || plan.ComponentIndex >= len(st.Components) {
		return types.StateUpdate{}, fmt.Errorf("%w: page %d refers to component %d", types.ErrInvariant, plan.Number, plan.ComponentIndex)
	}
	component := st.Components[plan.ComponentIndex]

	var files strings.Builder
	for _, ref := range component.Files {
		if ref.Int() >= len(st.Files) {
			continue
		}
		f := st.Files[ref]
		fmt.Fprintf(&files, "# %s\n\n%s\n", f.Path, f.Content)
	}

	e.logger.Info("writing chapter", "number", plan.Number, "of", len(st.PagesToProcess), "component", component.Name)
	prompt, err := render(chapterTmpl, map[string]any{
		"ProjectName":      st.ProjectName,
		"Name":             component.Name,
		"Description":      component.Description,
		"Number":           plan.Number,
		"Listing":          plan.Listing,
		"PreviousChapters": strings.Join(st.Pages, "\n--------\n"),
		"Files":            files.String(),
		"Prev":             plan.Prev,
		"Next":             plan.Next,
	})
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("rendering prompt: %w", err)
	}

	text, err := llm.Text(ctx, e.llm, llm.Request{System: educatorSystem, Prompt: prompt})
	if err != nil {
		return types.StateUpdate{}, fmt.Errorf("chapter %d: %w", plan.Number, err)
	}

	page := NormalizeHeading(stripMarkdownFence(text), plan.Number, component.Name)
	next := st.PagesProcessed + 1
	return types.StateUpdate{Pages: []string{page}, PagesProcessed: &next}, nil
}

// NormalizeHeading makes content start with "# Chapter <n>: <name>". A
// leading heading of any other text is replaced; otherwise the heading is
// prepended.
func NormalizeHeading(content string, number int, name string) string {
	heading := fmt.Sprintf("# Chapter %d: %s", number, name)
	content = strings.TrimSpace(content)
	lines := strings.Split(content, "\n")
	first := strings.TrimSpace(lines[0])

	switch {
	case first == heading:
		return content
	case strings.HasPrefix(first, "#"):
		lines[0] = heading
		return strings.Join(lines, "\n")
	case len(lines) > 1 && isSetextUnderline(lines[1]):
		return heading + "\n" + strings.Join(lines[2:], "\n")
	default:
		return heading + "\n\n" + content
	}
}

func isSetextUnderline(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	return strings.Trim(line, "=") == "" || strings.Trim(line, "-") == "" && len(line) >= 3
}

// stripMarkdownFence removes a code fence wrapped around the whole response.
func stripMarkdownFence(s string) string {
	content := strings.TrimSpace(s)
	if !strings.HasSuffix(content, "```") {
		return content
	}
	for _, open := range []string{"```markdown\n", "```md\n", "```\n"} {
		if strings.HasPrefix(content, open) && len(content) >= len(open)+3 {
			content = strings.TrimPrefix(content, open)
			content = strings.TrimSuffix(content, "```")
			return strings.TrimSpace(content)
		}
	}
	return content
}

func setArrayBounds(schema map[string]any, property string, min, max int) {
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		return
	}
	p, ok := props[property].(map[string]any)
	if !ok {
		return
	}
	p["minItems"] = min
	p["maxItems"] = max
}

func joinRefs(refs []types.FileRef) string {
	parts := make([]string, len(refs))
	for i, r := range refs {
		parts[i] = fmt.Sprint(r.Int())
	}
	return strings.Join(parts, ", ")
}

func componentName(components []types.Component, idx int) string {
	if idx < 0 || idx >= len(components) {
		return fmt.Sprintf("#%d", idx)
	}
	return components[idx].Name
}
