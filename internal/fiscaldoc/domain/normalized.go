package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
)

// DeclaredTax is the per-kind tuple extracted from an inbound line's tax
// block: what the supplier declared, not what this system computed.
type DeclaredTax struct {
	CST   string
	Base  decimal.Decimal
	Rate  decimal.Decimal
	Value decimal.Decimal
}

// NormalizedHeader is the canonical header of an inbound document.
type NormalizedHeader struct {
	Number                string
	Series                string
	NatOp                 string
	IssuedAt              time.Time
	IssuerName            string
	IssuerTaxID           string
	IssuerJurisdiction    string
	RecipientName         string
	RecipientTaxID        string
	RecipientJurisdiction string
	TotalAmount           decimal.Decimal
}

// NormalizedLine is one canonical line of an inbound document. Taxes is
// indexed by fiscal.TaxKind. NeedsReview is set when the raw block
// populated more than one sub-variant for the same tax kind; the
// extraction keeps the first present variant either way.
type NormalizedLine struct {
	LineNo         int
	SupplierCode   string
	Description    string
	Classification string
	Unit           string
	OperationCode  string
	Quantity       decimal.Decimal
	UnitCost       decimal.Decimal
	LineTotal      decimal.Decimal
	Taxes          [fiscal.NumTaxKinds]DeclaredTax
	NeedsReview    bool
}
