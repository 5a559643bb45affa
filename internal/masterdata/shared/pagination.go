package shared

// List defaults for master data endpoints.
const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilters represents standard list page filters
type ListFilters struct {
	Page    int
	Limit   int
	Search  string
	SortBy  string
	SortDir string
}

// Offset returns the row offset for the filters page.
func (f ListFilters) Offset() int {
	page := f.Page
	if page < DefaultPage {
		page = DefaultPage
	}
	return (page - 1) * f.PageSize()
}

// PageSize returns the limit with defaults applied.
func (f ListFilters) PageSize() int {
	if f.Limit <= 0 {
		return DefaultLimit
	}
	if f.Limit > MaxLimit {
		return MaxLimit
	}
	return f.Limit
}

// OrderBy returns a whitelisted ORDER BY clause.
func OrderBy(sortBy, sortDir string, allowed map[string]string, fallback string) string {
	column, ok := allowed[sortBy]
	if !ok {
		column = fallback
	}
	dir := "ASC"
	if sortDir == SortDesc {
		dir = "DESC"
	}
	return column + " " + dir + ", id " + dir
}
