package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvariant marks model output that breaks a structural invariant:
	// an index out of range or an ordering that is not a permutation.
	ErrInvariant = errors.New("invariant violation")

	// ErrForeignWrite marks a stage update touching a field the stage does not own.
	ErrForeignWrite = errors.New("write to field not owned by stage")

	// ErrInput marks a run that cannot start with the input it was given.
	ErrInput = errors.New("invalid input")
)

// FileRef is an index into the run's file list, checked when created.
type FileRef int

// NewFileRef validates i against a file list of length n.
func NewFileRef(i, n int) (FileRef, error) {
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: file index %d out of range [0, %d)", ErrInvariant, i, n)
	}
	return FileRef(i), nil
}

// Int returns the raw index.
func (r FileRef) Int() int { return int(r) }

// ComponentRef is an index into the component list, checked when created.
type ComponentRef int

// NewComponentRef validates i against a component list of length n.
func NewComponentRef(i, n int) (ComponentRef, error) {
	if i < 0 || i >= n {
		return 0, fmt.Errorf("%w: component index %d out of range [0, %d)", ErrInvariant, i, n)
	}
	return ComponentRef(i), nil
}

// Int returns the raw index.
func (r ComponentRef) Int() int { return int(r) }

// Bind checks the draft's file indices against fileCount and returns the
// component with validated handles.
func (d ComponentDraft) Bind(fileCount int) (Component, error) {
	refs := make([]FileRef, 0, len(d.Files))
	for _, idx := range d.Files {
		ref, err := NewFileRef(idx, fileCount)
		if err != nil {
			return Component{}, fmt.Errorf("component %q: %w", d.Name, err)
		}
		refs = append(refs, ref)
	}
	return Component{
		Name:        d.Name,
		Description: d.Description,
		Files:       refs,
	}, nil
}

// Bind checks both endpoints against componentCount.
func (d RelationshipDraft) Bind(componentCount int) (Relationship, error) {
	from, err := NewComponentRef(d.FromComponent, componentCount)
	if err != nil {
		return Relationship{}, fmt.Errorf("from_component: %w", err)
	}
	to, err := NewComponentRef(d.ToComponent, componentCount)
	if err != nil {
		return Relationship{}, fmt.Errorf("to_component: %w", err)
	}
	return Relationship{From: from, To: to, Label: d.Label}, nil
}
