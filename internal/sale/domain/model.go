// Package domain contains the sale document lifecycle models.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusBalanced  Status = "balanced"
	StatusFinalized Status = "finalized"
)

// SaleDocument is an outgoing sale. Draft documents are freely mutable;
// a document may only finalize from the balanced state, and once
// finalized it is immutable.
type SaleDocument struct {
	ID snowflake.ID `gorm:"primaryKey"`

	Counterparty string `gorm:"type:text;not null"`
	// CounterpartyJurisdiction decides internal vs interstate exit codes.
	CounterpartyJurisdiction string `gorm:"type:text"`

	Discount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Freight  decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	Status      Status     `gorm:"type:text;not null;index"`
	FinalizedAt *time.Time `gorm:""`

	Lines    []SaleLine `gorm:"foreignKey:DocumentID"`
	Payments []Payment  `gorm:"foreignKey:DocumentID"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SaleDocument) TableName() string { return "sale_documents" }

// ItemsTotal sums the line totals.
func (d *SaleDocument) ItemsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range d.Lines {
		total = total.Add(line.LineTotal)
	}
	return total
}

// GrandTotal is the amount the payments must cover: items minus the
// document-level discount plus freight.
func (d *SaleDocument) GrandTotal() decimal.Decimal {
	return d.ItemsTotal().Sub(d.Discount).Add(d.Freight)
}

// PaymentsTotal sums the recorded payments.
func (d *SaleDocument) PaymentsTotal() decimal.Decimal {
	total := decimal.Zero
	for _, p := range d.Payments {
		total = total.Add(p.Amount)
	}
	return total
}

// SaleLine references a catalog item, or is free text when
// CatalogItemID is nil. OperationCode is stamped at finalize time from
// the item's exit codes.
type SaleLine struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"not null;index"`

	CatalogItemID *snowflake.ID `gorm:"index"`
	Description   string        `gorm:"type:text;not null"`
	OperationCode string        `gorm:"type:text"`

	Quantity  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (SaleLine) TableName() string { return "sale_lines" }

type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"not null;index"`

	Method string          `gorm:"type:text;not null"`
	Amount decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Payment) TableName() string { return "sale_payments" }

// TaxLine is one per-line, per-kind computed tax record, persisted only
// at finalize time. Previews compute the same values without storing
// them.
type TaxLine struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	DocumentID snowflake.ID `gorm:"not null;index"`
	LineID     snowflake.ID `gorm:"not null;index"`

	Kind  string          `gorm:"type:text;not null"`
	CST   string          `gorm:"type:text"`
	Base  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Rate  decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	Value decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

func (TaxLine) TableName() string { return "sale_tax_lines" }
