package workflow

import (
	"bytes"
	"errors"
	"fmt"
	"text/template"
)

// ErrPrompt marks a prompt template that could not be rendered. Retrying
// cannot fix it.
var ErrPrompt = errors.New("prompt rendering failed")

const (
	analystSystem  = "You are a code analysis expert helping developers understand unfamiliar codebases."
	educatorSystem = "You are an expert technical educator who excels at explaining complex code in simple terms."
)

var segregationTmpl = template.Must(template.New("segregation").Parse(
	`For the project "{{.ProjectName}}":

Codebase files context:
{{.FileContext}}
Analyse the codebase.
Identify the top {{.Min}}-{{.Max}} core most important abstractions or components to help a new user understand the codebase.

For each component, provide:
- name: concise name for the component
- description: beginner friendly description of the component
- files: list of relevant file INDICES (numbers only) of the component

List of file indices and paths in the codebase context:
{{.FileListing}}`))

var relationshipTmpl = template.Must(template.New("relationships").Parse(
	`Based on the following components and the relevant file snippets from the project "{{.ProjectName}}":

List of component indices and names:
{{.ComponentListing}}
Context of components:
{{.ComponentContext}}
Provide:
1. A high-level overview of the project's main purpose and functionality in a few beginner-friendly paragraphs. Use markdown formatting with **bold** and *italic* text to highlight important concepts.
2. A list of relationships describing the key interactions between these components. For each relationship, specify:
- from_component: index of the source component
- to_component: index of the target component
- label: a brief label for the interaction in just a few words (e.g. "Manages", "Inherits", "Uses")
Ideally a relationship is backed by one component calling or passing parameters to another.
Simplify the relationships and exclude unimportant ones.

IMPORTANT: Make sure EVERY component is involved in at least ONE relationship, either as source or target. Each component index must appear at least once across all relationships.`))

var orderingTmpl = template.Must(template.New("ordering").Parse(
	`Given the following components and their relationships for the project "{{.ProjectName}}":

Components (index # name):
{{.ComponentListing}}
Project overview:
{{.Overview}}

Relationships between components:
{{.Relationships}}
If you were writing a tutorial for "{{.ProjectName}}", what is the best order to explain these components, from first to last?
Start with the most important or foundational ones, such as user-facing concepts or entry points. Then move to lower-level implementation details and supporting concepts.
Ensure dependencies are explained before they are used.

IMPORTANT: Include ALL {{.Count}} component indices exactly once.`))

var chapterTmpl = template.Must(template.New("chapter").Parse(
	`Write a very beginner-friendly tutorial chapter (in Markdown format) for the project "{{.ProjectName}}" about the concept: "{{.Name}}". This is Chapter {{.Number}}.

Concept details:
- Name: {{.Name}}
- Description:
{{.Description}}

Complete tutorial structure:
{{.Listing}}
Context from previous chapters:
{{if .PreviousChapters}}{{.PreviousChapters}}{{else}}This is the first chapter.{{end}}

Relevant code snippets:
{{if .Files}}{{.Files}}{{else}}No specific code snippets provided for this abstraction.{{end}}

Instructions for the chapter:
- Start with the heading: # Chapter {{.Number}}: {{.Name}}
{{- if .Prev}}
- Begin with a brief transition from the previous chapter, linking it as [{{.Prev.Title}}]({{.Prev.FileName}}).
{{- end}}
- Begin with the problem this abstraction solves, using one concrete central use case.
- Break complex abstractions into key concepts and explain them one by one.
- Keep every code block under 10 lines and follow each with a short explanation.
- Walk through the internal implementation step by step; a small mermaid sequenceDiagram with at most 5 participants is welcome.
- When referring to other chapters, ALWAYS use Markdown links taken from the tutorial structure above.
- Use analogies and examples throughout.
{{- if .Next}}
- End with a short conclusion and a transition to [{{.Next.Title}}]({{.Next.FileName}}).
{{- else}}
- End with a short conclusion summarizing the tutorial.
{{- end}}

Output *only* the Markdown content for this chapter.`))

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrPrompt, tmpl.Name(), err)
	}
	return buf.String(), nil
}
