package shared

const (
	// Default pagination
	DefaultPage  = 1
	DefaultLimit = 10

	// Sort directions
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list filters for master data endpoints.
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// Normalize fills defaults for zero values.
func (f ListFilters) Normalize() ListFilters {
	if f.Page < 1 {
		f.Page = DefaultPage
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}
	return f
}

// Offset is the row offset for the current page.
func (f ListFilters) Offset() int {
	offset := (f.Page - 1) * f.Limit
	if offset < 0 {
		return 0
	}
	return offset
}
