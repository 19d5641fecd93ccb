package workflow

import "github.com/pithomlabs/cb2docs/types"

// Decision is the router's choice after planning and after every page.
type Decision int

const (
	NoPagesRemain Decision = iota
	MorePages
)

func (d Decision) String() string {
	if d == MorePages {
		return "more pages"
	}
	return "no pages remain"
}

// Route reports whether a page plan is still waiting to be written.
func Route(st types.WorkflowState) Decision {
	if st.PagesProcessed < len(st.PagesToProcess) {
		return MorePages
	}
	return NoPagesRemain
}
