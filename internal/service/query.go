package service

// DefaultPageSize matches the backend's default page size.
const DefaultPageSize = 10

// Query selects one page of tasks.
// Empty Priority, Status or Search means the filter is absent.
type Query struct {
	Priority   Priority
	Status     Status
	Search     string
	PageSize   int
	PageNumber int // 0-based
}

// Filter is a partial update of a Query's filter fields.
// Nil fields are left unchanged. A pointer to an empty value clears the filter.
type Filter struct {
	Priority *Priority
	Status   *Status
	Search   *string
	PageSize *int
}

// Apply returns q with f applied and PageNumber reset to 0.
// Any filter change, including page size, starts over at the first page.
func (q Query) Apply(f Filter) Query {
	if f.Priority != nil {
		q.Priority = *f.Priority
	}
	if f.Status != nil {
		q.Status = *f.Status
	}
	if f.Search != nil {
		q.Search = *f.Search
	}
	if f.PageSize != nil && *f.PageSize > 0 {
		q.PageSize = *f.PageSize
	}
	q.PageNumber = 0
	return q
}

// WithPage returns q moved to page n, keeping every filter.
// Negative pages clamp to 0.
func (q Query) WithPage(n int) Query {
	if n < 0 {
		n = 0
	}
	q.PageNumber = n
	return q
}

// Normalize fills in a default page size and clamps the page number.
func (q Query) Normalize() Query {
	if q.PageSize <= 0 {
		q.PageSize = DefaultPageSize
	}
	if q.PageNumber < 0 {
		q.PageNumber = 0
	}
	return q
}

// PriorityFilter returns a Filter that sets the priority filter.
func PriorityFilter(p Priority) Filter { return Filter{Priority: &p} }

// StatusFilter returns a Filter that sets the status filter.
func StatusFilter(s Status) Filter { return Filter{Status: &s} }

// SearchFilter returns a Filter that sets the search term.
func SearchFilter(s string) Filter { return Filter{Search: &s} }

// PageSizeFilter returns a Filter that sets the page size.
func PageSizeFilter(n int) Filter { return Filter{PageSize: &n} }
