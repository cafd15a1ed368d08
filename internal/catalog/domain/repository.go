package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, id snowflake.ID) (*Item, error)
	FindBySupplierCode(ctx context.Context, code string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Save(ctx context.Context, item *Item) error
	List(ctx context.Context, filter ListRequest) ([]Item, error)

	// WithTrx returns a repository bound to the given transaction.
	WithTrx(tx *gorm.DB) Repository

	// DecrementStock performs one compare-and-swap attempt against the
	// item's stock: new stock is max(0, stock-qty) and the write only
	// lands if the row version is unchanged since the read. A lost race
	// returns ErrStockConflict; callers retry or surface it.
	DecrementStock(ctx context.Context, itemID snowflake.ID, qty decimal.Decimal) error

	// AddStock increases stock under the same version discipline.
	AddStock(ctx context.Context, itemID snowflake.ID, qty decimal.Decimal) error
}

type ListRequest struct {
	pagination.Pagination

	SupplierCode   string
	Classification string
	NeedsReview    *bool
	SortBy         string
	OrderBy        string
}
