package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
	"gorm.io/gorm"
)

// Service imports inbound fiscal documents and exposes their receipts.
type Service interface {
	Import(ctx context.Context, doc *Document) (*ImportReceipt, error)
	Get(ctx context.Context, receiptID string) (*DocumentResponse, error)
	List(ctx context.Context, req ListRequest) ([]DocumentResponse, error)
}

type Repository interface {
	CreateDocument(ctx context.Context, doc *InboundDocument) error
	CreateLines(ctx context.Context, lines []InboundLine) error
	CreateLineTaxes(ctx context.Context, taxes []InboundLineTax) error
	FindByReceiptID(ctx context.Context, receiptID string) (*InboundDocument, error)
	FindLines(ctx context.Context, documentID snowflake.ID) ([]InboundLine, error)
	List(ctx context.Context, filter ListRequest) ([]InboundDocument, error)

	WithTrx(tx *gorm.DB) Repository
}

type ListRequest struct {
	pagination.Pagination

	IssuerTaxID string
	SortBy      string
	OrderBy     string
}

// ImportReceipt summarizes one completed import.
type ImportReceipt struct {
	ReceiptID    string `json:"receipt_id"`
	DocumentID   string `json:"document_id"`
	Lines        int    `json:"lines"`
	ItemsCreated int    `json:"items_created"`
	ItemsUpdated int    `json:"items_updated"`
	LinesFlagged int    `json:"lines_flagged"`
}

type DocumentResponse struct {
	ReceiptID          string          `json:"receipt_id"`
	Number             string          `json:"number"`
	Series             string          `json:"series"`
	IssuerName         string          `json:"issuer_name"`
	IssuerTaxID        string          `json:"issuer_tax_id"`
	IssuerJurisdiction string          `json:"issuer_jurisdiction"`
	IssuedAt           time.Time       `json:"issued_at"`
	TotalAmount        decimal.Decimal `json:"total_amount"`
	LineCount          int             `json:"line_count"`
	CreatedAt          time.Time       `json:"created_at"`
	Lines              []LineResponse  `json:"lines,omitempty"`
}

type LineResponse struct {
	LineNo        int             `json:"line_no"`
	SupplierCode  string          `json:"supplier_code"`
	Description   string          `json:"description"`
	OperationCode string          `json:"operation_code"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitCost      decimal.Decimal `json:"unit_cost"`
	LineTotal     decimal.Decimal `json:"line_total"`
	NeedsReview   bool            `json:"needs_review"`
}
