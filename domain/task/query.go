package task

import (
	"strings"
)

// UnassignedToken selects tasks without an assignee in the assignee filter.
const UnassignedToken = "unassigned"

// AssigneeMode says how the assignee filter is applied.
type AssigneeMode int

const (
	AssigneeAny AssigneeMode = iota
	AssigneeUnassigned
	AssigneeUser
)

// AssigneeFilter distinguishes "no filter" from "unassigned only" from "assigned to a user".
type AssigneeFilter struct {
	Mode   AssigneeMode
	UserID string
}

// ParseAssigneeFilter maps a query parameter onto an AssigneeFilter.
// An empty value means no filter.
func ParseAssigneeFilter(raw string) AssigneeFilter {
	raw = strings.TrimSpace(raw)
	switch {
	case raw == "":
		return AssigneeFilter{Mode: AssigneeAny}
	case strings.EqualFold(raw, UnassignedToken):
		return AssigneeFilter{Mode: AssigneeUnassigned}
	}
	return AssigneeFilter{Mode: AssigneeUser, UserID: raw}
}

// Filter holds the search predicates. Zero-valued fields do not filter.
type Filter struct {
	Title     string
	Status    Status
	Priority  Priority
	Assignee  AssigneeFilter
	CreatedBy string
}

// Matches applies the filter to a single task.
func (f Filter) Matches(t *Task) bool {
	if f.Title != "" && !strings.Contains(strings.ToLower(t.Title), strings.ToLower(f.Title)) {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.CreatedBy != "" && t.CreatedBy != f.CreatedBy {
		return false
	}
	switch f.Assignee.Mode {
	case AssigneeUnassigned:
		if t.IsAssigned() {
			return false
		}
	case AssigneeUser:
		if t.Assignee() != f.Assignee.UserID {
			return false
		}
	}
	return true
}

// SortField is one of the fields a query may be ordered by.
type SortField string

const (
	SortByID        SortField = "id"
	SortByTitle     SortField = "title"
	SortByStatus    SortField = "status"
	SortByPriority  SortField = "priority"
	SortByCreatedAt SortField = "createdAt"
	SortByUpdatedAt SortField = "updatedAt"
	SortByVersion   SortField = "version"
)

var sortFields = map[SortField]bool{
	SortByID:        true,
	SortByTitle:     true,
	SortByStatus:    true,
	SortByPriority:  true,
	SortByCreatedAt: true,
	SortByUpdatedAt: true,
	SortByVersion:   true,
}

// DefaultSort orders the most recently updated tasks first.
var DefaultSort = Sort{Field: SortByUpdatedAt, Desc: true}

// Sort is a validated ordering.
type Sort struct {
	Field SortField
	Desc  bool
}

// NormalizeSort validates a requested ordering. Unknown or empty fields fall back to
// DefaultSort without an error. Only "asc" (any case) selects ascending order.
func NormalizeSort(field, dir string) Sort {
	f := SortField(strings.TrimSpace(field))
	if !sortFields[f] {
		return DefaultSort
	}
	return Sort{Field: f, Desc: !strings.EqualFold(strings.TrimSpace(dir), "asc")}
}

// Less reports whether a sorts before b. Ties are broken by ID ascending so pages are stable.
func (s Sort) Less(a, b *Task) bool {
	c := s.compare(a, b)
	if c == 0 {
		return a.ID < b.ID
	}
	if s.Desc {
		return c > 0
	}
	return c < 0
}

func (s Sort) compare(a, b *Task) int {
	switch s.Field {
	case SortByID:
		return strings.Compare(a.ID, b.ID)
	case SortByTitle:
		return strings.Compare(a.Title, b.Title)
	case SortByStatus:
		return a.Status.Rank() - b.Status.Rank()
	case SortByPriority:
		return a.Priority.Rank() - b.Priority.Rank()
	case SortByCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case SortByVersion:
		switch {
		case a.Version < b.Version:
			return -1
		case a.Version > b.Version:
			return 1
		}
		return 0
	}
	return a.UpdatedAt.Compare(b.UpdatedAt)
}

const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// PageRequest selects one zero-based page of results.
type PageRequest struct {
	Page int
	Size int
}

// NewPageRequest clamps page and size into their valid ranges.
func NewPageRequest(page, size int) PageRequest {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return PageRequest{Page: page, Size: size}
}

// Offset is the number of items skipped before this page.
func (p PageRequest) Offset() int {
	return p.Page * p.Size
}

// Page is one slice of a larger result set.
type Page[T any] struct {
	Items      []T   `json:"items"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
	TotalPages int   `json:"totalPages"`
}

// NewPage assembles a page from its items and the unpaged total.
func NewPage[T any](items []T, total int64, req PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if req.Size > 0 {
		pages = int((total + int64(req.Size) - 1) / int64(req.Size))
	}
	return Page[T]{
		Items:      items,
		Total:      total,
		Page:       req.Page,
		Size:       req.Size,
		TotalPages: pages,
	}
}

// MapPage converts the items of a page while keeping its paging metadata.
func MapPage[T, U any](p Page[T], fn func(T) U) Page[U] {
	out := make([]U, 0, len(p.Items))
	for _, item := range p.Items {
		out = append(out, fn(item))
	}
	return Page[U]{Items: out, Total: p.Total, Page: p.Page, Size: p.Size, TotalPages: p.TotalPages}
}

// Query combines filter, ordering and paging for Store.Query.
type Query struct {
	Filter Filter
	Sort   Sort
	Page   PageRequest
}
