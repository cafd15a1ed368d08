package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Service owns the sale lifecycle: draft mutation, tax previews and the
// finalize protocol.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	AddLine(ctx context.Context, saleID string, req LineRequest) (*Response, error)
	RemoveLine(ctx context.Context, saleID, lineID string) (*Response, error)
	AddPayment(ctx context.Context, saleID string, req PaymentRequest) (*Response, error)

	TaxPreview(ctx context.Context, saleID string) (*TaxPreviewResponse, error)
	Finalize(ctx context.Context, saleID string) (*Response, error)
}

type CreateRequest struct {
	Counterparty             string          `json:"counterparty"`
	CounterpartyJurisdiction string          `json:"counterparty_jurisdiction"`
	Discount                 decimal.Decimal `json:"discount"`
	Freight                  decimal.Decimal `json:"freight"`
}

type LineRequest struct {
	CatalogItemID string          `json:"catalog_item_id"`
	Description   string          `json:"description"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
}

type PaymentRequest struct {
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

type Response struct {
	ID                       string          `json:"id"`
	Counterparty             string          `json:"counterparty"`
	CounterpartyJurisdiction string          `json:"counterparty_jurisdiction"`
	Discount                 decimal.Decimal `json:"discount"`
	Freight                  decimal.Decimal `json:"freight"`
	Status                   Status          `json:"status"`
	ItemsTotal               decimal.Decimal `json:"items_total"`
	GrandTotal               decimal.Decimal `json:"grand_total"`
	PaymentsTotal            decimal.Decimal `json:"payments_total"`
	FinalizedAt              *time.Time      `json:"finalized_at,omitempty"`
	Lines                    []LineView      `json:"lines"`
	Payments                 []PaymentView   `json:"payments"`
	TaxLines                 []TaxRecordView `json:"tax_lines,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`
}

type LineView struct {
	ID            string          `json:"id"`
	CatalogItemID string          `json:"catalog_item_id,omitempty"`
	Description   string          `json:"description"`
	OperationCode string          `json:"operation_code,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
}

type PaymentView struct {
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Amount decimal.Decimal `json:"amount"`
}

// TaxRecordView is one persisted tax line, present only on finalized
// documents.
type TaxRecordView struct {
	LineID string          `json:"line_id"`
	Kind   string          `json:"kind"`
	CST    string          `json:"cst,omitempty"`
	Base   decimal.Decimal `json:"base"`
	Rate   decimal.Decimal `json:"rate"`
	Value  decimal.Decimal `json:"value"`
}

type TaxPreviewResponse struct {
	SaleID     string          `json:"sale_id"`
	ItemsTotal decimal.Decimal `json:"items_total"`
	GrandTotal decimal.Decimal `json:"grand_total"`
	Lines      []TaxLineView   `json:"lines"`
}

type TaxLineView struct {
	LineID        string          `json:"line_id"`
	DiscountShare decimal.Decimal `json:"discount_share"`
	FreightShare  decimal.Decimal `json:"freight_share"`
	Base          decimal.Decimal `json:"base"`
	Taxes         []TaxValueView  `json:"taxes"`
}

type TaxValueView struct {
	Kind  string          `json:"kind"`
	CST   string          `json:"cst,omitempty"`
	Rate  decimal.Decimal `json:"rate"`
	Value decimal.Decimal `json:"value"`
}
