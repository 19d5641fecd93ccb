package types

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate rejects component lists the later stages cannot work with.
func (l ComponentList) Validate() error {
	if len(l.Components) == 0 {
		return errors.New("no components returned")
	}
	for i, c := range l.Components {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("component %d has an empty name", i)
		}
	}
	return nil
}

// Validate requires an overview and at least one relationship; relationship
// indices are checked by the stage.
func (a RelationshipAnalysis) Validate() error {
	if strings.TrimSpace(a.Overview) == "" {
		return errors.New("empty project overview")
	}
	if len(a.Relationships) == 0 {
		return errors.New("no relationships returned")
	}
	return nil
}

// Validate rejects an empty ordering. Whether it is a permutation of the
// components is checked by the stage, which knows the component count.
func (o Ordering) Validate() error {
	if len(o.OrderedComponents) == 0 {
		return errors.New("no ordered_components returned")
	}
	return nil
}

// ValidatePermutation checks that order holds every index of 0..n-1 exactly once.
func ValidatePermutation(order []int, n int) error {
	seen := make([]bool, n)
	for pos, idx := range order {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: ordering has index %d out of range [0, %d) at position %d", ErrInvariant, idx, n, pos)
		}
		if seen[idx] {
			return fmt.Errorf("%w: ordering repeats index %d at position %d", ErrInvariant, idx, pos)
		}
		seen[idx] = true
	}
	if len(order) != n {
		var missing []int
		for i, ok := range seen {
			if !ok {
				missing = append(missing, i)
			}
		}
		return fmt.Errorf("%w: ordering has %d entries for %d components, missing %v", ErrInvariant, len(order), n, missing)
	}
	return nil
}

// UncoveredComponents returns the component indices that appear in no
// relationship as source or target.
func UncoveredComponents(rels []Relationship, n int) []int {
	covered := make([]bool, n)
	for _, r := range rels {
		for _, ref := range []ComponentRef{r.From, r.To} {
			if ref >= 0 && ref.Int() < n {
				covered[ref] = true
			}
		}
	}
	var missing []int
	for i, ok := range covered {
		if !ok {
			missing = append(missing, i)
		}
	}
	return missing
}

// UnmarshalJSON accepts both {"ordered_components": [...]} and a bare
// array, which models often return for a single-field schema.
func (o *Ordering) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		return json.Unmarshal(data, &o.OrderedComponents)
	}
	type plain Ordering
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = Ordering(p)
	return nil
}
