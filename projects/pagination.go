package projects

// DefaultPageSize is used when a PageRequest leaves Size unset.
const DefaultPageSize = 20

// PageRequest selects one page of a listing. Page is one-based.
type PageRequest struct {
	Page int
	Size int
}

// Normalize clamps a PageRequest to valid values.
func (pr PageRequest) Normalize() PageRequest {
	if pr.Page < 1 {
		pr.Page = 1
	}
	if pr.Size < 1 {
		pr.Size = DefaultPageSize
	}
	return pr
}

// Page is one page of a listing together with its pagination bookkeeping.
type Page[T any] struct {
	Items      []T `json:"items"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
	Page       int `json:"page"`
	Size       int `json:"size"`
}

// HasNext reports whether a page follows this one.
func (p Page[T]) HasNext() bool {
	return p.Page < p.TotalPages
}

// HasPrev reports whether a page precedes this one.
func (p Page[T]) HasPrev() bool {
	return p.Page > 1
}

// TotalPagesFor computes the page count for totalItems items at size per
// page.
func TotalPagesFor(totalItems, size int) int {
	if size < 1 || totalItems < 1 {
		return 0
	}
	return (totalItems + size - 1) / size
}
