package types

import (
	"fmt"
	"slices"
)

// WorkflowState is the record threaded through every stage. Stages read
// it by value and return a StateUpdate; only the executor merges updates.
type WorkflowState struct {
	Files                  []FileContent  `json:"files"`
	ProjectName            string         `json:"project_name"`
	MaxComponents          int            `json:"max_components"`
	Components             []Component    `json:"components"`
	ProjectOverview        string         `json:"project_overview"`
	ComponentRelationships []Relationship `json:"component_relationships"`
	OrderedComponents      []int          `json:"ordered_components"`
	PagesToProcess         []PagePlan     `json:"pages_to_process"`
	PagesProcessed         int            `json:"pages_processed"`
	Pages                  []string       `json:"pages"`
	OutputPath             string         `json:"output_path"`
	FilesWritten           []string       `json:"files_written"`
}

// Field names a stage-writable field of WorkflowState.
type Field string

const (
	FieldComponents             Field = "components"
	FieldProjectOverview        Field = "project_overview"
	FieldComponentRelationships Field = "component_relationships"
	FieldOrderedComponents      Field = "ordered_components"
	FieldPagesToProcess         Field = "pages_to_process"
	FieldPagesProcessed         Field = "pages_processed"
	FieldPages                  Field = "pages"
	FieldOutputPath             Field = "output_path"
	FieldFilesWritten           Field = "files_written"
)

// StateUpdate is a partial state produced by one stage. A nil field is
// left untouched; Pages is appended rather than replaced.
type StateUpdate struct {
	Components             *[]Component
	ProjectOverview        *string
	ComponentRelationships *[]Relationship
	OrderedComponents      *[]int
	PagesToProcess         *[]PagePlan
	PagesProcessed         *int
	Pages                  []string
	OutputPath             *string
	FilesWritten           *[]string
}

// Fields lists the fields the update sets.
func (u StateUpdate) Fields() []Field {
	var fields []Field
	if u.Components != nil {
		fields = append(fields, FieldComponents)
	}
	if u.ProjectOverview != nil {
		fields = append(fields, FieldProjectOverview)
	}
	if u.ComponentRelationships != nil {
		fields = append(fields, FieldComponentRelationships)
	}
	if u.OrderedComponents != nil {
		fields = append(fields, FieldOrderedComponents)
	}
	if u.PagesToProcess != nil {
		fields = append(fields, FieldPagesToProcess)
	}
	if u.PagesProcessed != nil {
		fields = append(fields, FieldPagesProcessed)
	}
	if u.Pages != nil {
		fields = append(fields, FieldPages)
	}
	if u.OutputPath != nil {
		fields = append(fields, FieldOutputPath)
	}
	if u.FilesWritten != nil {
		fields = append(fields, FieldFilesWritten)
	}
	return fields
}

// CheckOwnership returns ErrForeignWrite if the update sets a field outside owned.
func (u StateUpdate) CheckOwnership(stage string, owned []Field) error {
	for _, f := range u.Fields() {
		if !slices.Contains(owned, f) {
			return fmt.Errorf("%w: stage %s wrote %s", ErrForeignWrite, stage, f)
		}
	}
	return nil
}

// Apply returns a copy of s with u merged in.
func (s WorkflowState) Apply(u StateUpdate) WorkflowState {
	if u.Components != nil {
		s.Components = *u.Components
	}
	if u.ProjectOverview != nil {
		s.ProjectOverview = *u.ProjectOverview
	}
	if u.ComponentRelationships != nil {
		s.ComponentRelationships = *u.ComponentRelationships
	}
	if u.OrderedComponents != nil {
		s.OrderedComponents = *u.OrderedComponents
	}
	if u.PagesToProcess != nil {
		s.PagesToProcess = *u.PagesToProcess
	}
	if u.PagesProcessed != nil {
		s.PagesProcessed = *u.PagesProcessed
	}
	if len(u.Pages) > 0 {
		s.Pages = append(slices.Clip(s.Pages), u.Pages...)
	}
	if u.OutputPath != nil {
		s.OutputPath = *u.OutputPath
	}
	if u.FilesWritten != nil {
		s.FilesWritten = *u.FilesWritten
	}
	return s
}
