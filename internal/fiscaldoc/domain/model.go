package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// InboundDocument is one imported fiscal document. ReceiptID is the
// caller-facing identifier handed back by the import service.
type InboundDocument struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	ReceiptID string       `gorm:"type:text;not null;uniqueIndex"`

	Number string `gorm:"type:text;not null"`
	Series string `gorm:"type:text"`
	NatOp  string `gorm:"type:text"`

	IssuerName         string `gorm:"type:text;not null"`
	IssuerTaxID        string `gorm:"type:text;not null;index"`
	IssuerJurisdiction string `gorm:"type:text;not null"`

	RecipientName  string `gorm:"type:text"`
	RecipientTaxID string `gorm:"type:text"`

	IssuedAt    time.Time       `gorm:"not null"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(14,2);not null"`
	LineCount   int             `gorm:"not null"`

	// RawHeader keeps issuer-declared header extras that have no
	// dedicated column, for audit screens.
	RawHeader datatypes.JSONMap `gorm:"type:jsonb"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InboundDocument) TableName() string { return "inbound_documents" }

// InboundLine is one normalized line of an imported document. Created
// once per import and never mutated afterwards; a re-import of the same
// goods creates new rows.
type InboundLine struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"not null;index"`
	LineNo     int          `gorm:"not null"`

	SupplierCode   string `gorm:"type:text;not null"`
	Description    string `gorm:"type:text;not null"`
	Classification string `gorm:"type:text"`
	Unit           string `gorm:"type:text"`
	OperationCode  string `gorm:"type:text;not null"`

	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitCost  decimal.Decimal `gorm:"type:decimal(12,4);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CatalogItemID *snowflake.ID `gorm:"index"`
	NeedsReview   bool          `gorm:"not null;default:false"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (InboundLine) TableName() string { return "inbound_lines" }

// InboundLineTax is one declared (kind, CST, base, rate, value) tuple of
// an inbound line.
type InboundLineTax struct {
	ID     snowflake.ID `gorm:"primaryKey"`
	LineID snowflake.ID `gorm:"not null;index"`

	Kind  string          `gorm:"type:text;not null"`
	CST   string          `gorm:"type:text"`
	Base  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Rate  decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Value decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (InboundLineTax) TableName() string { return "inbound_line_taxes" }
