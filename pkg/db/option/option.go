// Package option provides composable gorm query options.
package option

import (
	"strings"

	"gorm.io/gorm"
)

// QueryOption mutates a gorm statement before execution.
type QueryOption interface {
	Apply(stmt *gorm.DB) *gorm.DB
}

type optionFunc func(stmt *gorm.DB) *gorm.DB

func (f optionFunc) Apply(stmt *gorm.DB) *gorm.DB { return f(stmt) }

// WithSortBy orders the query by the given clause; an empty clause is a
// no-op.
func WithSortBy(clause string) QueryOption {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if strings.TrimSpace(clause) == "" {
			return stmt
		}
		return stmt.Order(clause)
	})
}

// WithQuerySortBy builds an ORDER BY clause from user-supplied sort/order
// values, restricted to the allowed column set.
func WithQuerySortBy(sortBy, orderBy string, allowed map[string]bool) string {
	sortBy = strings.ToLower(strings.TrimSpace(sortBy))
	if sortBy == "" || !allowed[sortBy] {
		return ""
	}

	direction := "ASC"
	if strings.EqualFold(strings.TrimSpace(orderBy), "desc") {
		direction = "DESC"
	}
	return sortBy + " " + direction
}

// WithLimit caps the number of rows returned.
func WithLimit(limit int) QueryOption {
	return optionFunc(func(stmt *gorm.DB) *gorm.DB {
		if limit <= 0 {
			return stmt
		}
		return stmt.Limit(limit)
	})
}
