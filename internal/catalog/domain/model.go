// Package domain contains the product catalog models and contracts.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
)

// Item is a catalog product. It owns its fiscal defaults: the tax-situation
// codes and rates used when the item is sold, unless a fiscal rule override
// was applied at import time. Stock is guarded by an optimistic version
// counter; every stock write goes through a compare-and-swap on Version.
type Item struct {
	ID snowflake.ID `gorm:"primaryKey"`

	SupplierCode string `gorm:"type:text;not null;uniqueIndex"`
	Description  string `gorm:"type:text;not null"`
	// Classification is the NCM fiscal classification code.
	Classification string `gorm:"type:text"`
	Unit           string `gorm:"type:text"`

	// Operation codes, copied from the matched fiscal rule.
	EntryCode          string `gorm:"type:text"`
	ExitCodeInternal   string `gorm:"type:text"`
	ExitCodeInterstate string `gorm:"type:text"`

	IcmsCST   string `gorm:"type:text"`
	IpiCST    string `gorm:"type:text"`
	PisCST    string `gorm:"type:text"`
	CofinsCST string `gorm:"type:text"`

	IcmsRate   decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	IpiRate    decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	PisRate    decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	CofinsRate decimal.Decimal `gorm:"type:decimal(6,2);not null"`

	StockQty  decimal.Decimal `gorm:"type:decimal(14,3);not null"`
	CostPrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SalePrice decimal.Decimal `gorm:"type:decimal(12,2);not null"`

	// NeedsFiscalReview marks items whose fiscal defaults could not be
	// resolved automatically (no matching rule, or an ambiguous inbound
	// tax block).
	NeedsFiscalReview bool `gorm:"not null;default:false"`

	Version   int64     `gorm:"not null;default:0"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (Item) TableName() string { return "catalog_items" }

// ExitCode picks the outbound operation code for a same-jurisdiction or
// cross-jurisdiction sale.
func (i *Item) ExitCode(sameJurisdiction bool) string {
	if sameJurisdiction {
		return i.ExitCodeInternal
	}
	return i.ExitCodeInterstate
}

// CST returns the default tax-situation code for the kind.
func (i *Item) CST(k fiscal.TaxKind) string {
	switch k {
	case fiscal.TaxICMS:
		return i.IcmsCST
	case fiscal.TaxIPI:
		return i.IpiCST
	case fiscal.TaxPIS:
		return i.PisCST
	case fiscal.TaxCOFINS:
		return i.CofinsCST
	default:
		return ""
	}
}

// SetCST stores the default tax-situation code for the kind.
func (i *Item) SetCST(k fiscal.TaxKind, cst string) {
	switch k {
	case fiscal.TaxICMS:
		i.IcmsCST = cst
	case fiscal.TaxIPI:
		i.IpiCST = cst
	case fiscal.TaxPIS:
		i.PisCST = cst
	case fiscal.TaxCOFINS:
		i.CofinsCST = cst
	}
}

// Rate returns the default outbound rate for the kind. Zero is a
// legitimate rate here (simplified-regime items commonly carry it).
func (i *Item) Rate(k fiscal.TaxKind) decimal.Decimal {
	switch k {
	case fiscal.TaxICMS:
		return i.IcmsRate
	case fiscal.TaxIPI:
		return i.IpiRate
	case fiscal.TaxPIS:
		return i.PisRate
	case fiscal.TaxCOFINS:
		return i.CofinsRate
	default:
		return decimal.Zero
	}
}

// SetRate stores the default outbound rate for the kind.
func (i *Item) SetRate(k fiscal.TaxKind, rate decimal.Decimal) {
	switch k {
	case fiscal.TaxICMS:
		i.IcmsRate = rate
	case fiscal.TaxIPI:
		i.IpiRate = rate
	case fiscal.TaxPIS:
		i.PisRate = rate
	case fiscal.TaxCOFINS:
		i.CofinsRate = rate
	}
}

func (i *Item) Validate() error {
	if strings.TrimSpace(i.SupplierCode) == "" {
		return ErrInvalidCode
	}
	if i.StockQty.IsNegative() {
		return ErrInvalidQuantity
	}
	if i.CostPrice.IsNegative() || i.SalePrice.IsNegative() {
		return ErrInvalidPrice
	}
	return nil
}
