// Package pagination carries the query-string paging contract shared by
// list endpoints.
package pagination

// Pagination binds the common paging query parameters.
type Pagination struct {
	PageSize  int    `form:"page_size"`
	PageToken string `form:"page_token"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// Limit returns the effective page size.
func (p Pagination) Limit() int {
	if p.PageSize <= 0 {
		return defaultPageSize
	}
	if p.PageSize > maxPageSize {
		return maxPageSize
	}
	return p.PageSize
}
