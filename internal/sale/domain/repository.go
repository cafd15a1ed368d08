package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	// FindByID loads the document with its lines and payments.
	FindByID(ctx context.Context, id snowflake.ID) (*SaleDocument, error)
	Create(ctx context.Context, doc *SaleDocument) error
	Save(ctx context.Context, doc *SaleDocument) error
	List(ctx context.Context, filter ListRequest) ([]SaleDocument, error)

	CreateLine(ctx context.Context, line *SaleLine) error
	UpdateLine(ctx context.Context, line *SaleLine) error
	DeleteLine(ctx context.Context, documentID, lineID snowflake.ID) error

	CreatePayment(ctx context.Context, payment *Payment) error
	CreateTaxLines(ctx context.Context, taxLines []TaxLine) error
	FindTaxLines(ctx context.Context, documentID snowflake.ID) ([]TaxLine, error)

	WithTrx(tx *gorm.DB) Repository
}

type ListRequest struct {
	pagination.Pagination

	Status  string
	SortBy  string
	OrderBy string
}
