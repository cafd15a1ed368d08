// Package domain contains the fiscal mapping rule model and contracts.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
)

// FiscalRule maps a supplier-declared operation code, scoped to a
// jurisdiction, onto the outbound fiscal treatment of an item.
//
// A rule never forces a zero rate: a zero rate column means "no opinion",
// and the catalog item keeps whatever rate it already carries. A
// legitimately zero outbound rate is set directly on the item.
type FiscalRule struct {
	ID snowflake.ID `gorm:"primaryKey"`

	// Jurisdiction is empty for rules that match any jurisdiction.
	Jurisdiction  string `gorm:"type:text;not null;index:ix_rule_match"`
	OperationCode string `gorm:"type:text;not null;index:ix_rule_match"`

	EntryCode          string `gorm:"type:text;not null"`
	ExitCodeInternal   string `gorm:"type:text;not null"`
	ExitCodeInterstate string `gorm:"type:text;not null"`

	IcmsCST   string `gorm:"type:text"`
	IpiCST    string `gorm:"type:text"`
	PisCST    string `gorm:"type:text"`
	CofinsCST string `gorm:"type:text"`

	IcmsRate   decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	IpiRate    decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	PisRate    decimal.Decimal `gorm:"type:decimal(6,2);not null"`
	CofinsRate decimal.Decimal `gorm:"type:decimal(6,2);not null"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (FiscalRule) TableName() string { return "fiscal_rules" }

// CST returns the tax-situation code the rule asserts for the kind, empty
// when the rule has no opinion.
func (r *FiscalRule) CST(k fiscal.TaxKind) string {
	switch k {
	case fiscal.TaxICMS:
		return r.IcmsCST
	case fiscal.TaxIPI:
		return r.IpiCST
	case fiscal.TaxPIS:
		return r.PisCST
	case fiscal.TaxCOFINS:
		return r.CofinsCST
	default:
		return ""
	}
}

// Rate returns the rate the rule asserts for the kind. Zero means "no
// opinion", never "rate is zero".
func (r *FiscalRule) Rate(k fiscal.TaxKind) decimal.Decimal {
	switch k {
	case fiscal.TaxICMS:
		return r.IcmsRate
	case fiscal.TaxIPI:
		return r.IpiRate
	case fiscal.TaxPIS:
		return r.PisRate
	case fiscal.TaxCOFINS:
		return r.CofinsRate
	default:
		return decimal.Zero
	}
}

// ExitCode picks the outbound operation code for a same-jurisdiction or
// cross-jurisdiction sale.
func (r *FiscalRule) ExitCode(sameJurisdiction bool) string {
	if sameJurisdiction {
		return r.ExitCodeInternal
	}
	return r.ExitCodeInterstate
}

func (r *FiscalRule) Validate() error {
	if strings.TrimSpace(r.OperationCode) == "" {
		return ErrInvalidOperationCode
	}
	if strings.TrimSpace(r.ExitCodeInternal) == "" || strings.TrimSpace(r.ExitCodeInterstate) == "" {
		return ErrInvalidExitCode
	}
	for _, k := range fiscal.TaxKinds {
		if r.Rate(k).IsNegative() {
			return ErrInvalidRate
		}
	}
	return nil
}
