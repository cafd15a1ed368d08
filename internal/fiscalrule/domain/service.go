package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smartcontab/fiscalcore/pkg/db/pagination"
)

// Resolver finds the applicable fiscal rule for a jurisdiction and
// operation code. A missing rule is a normal outcome: the resolver returns
// (nil, nil) and callers leave dependent fields untouched and flag the
// item for manual review.
type Resolver interface {
	Resolve(ctx context.Context, jurisdiction, operationCode string) (*FiscalRule, error)
}

// Service manages the configured rule tables.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, req UpdateRequest) (*Response, error)
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type ListRequest struct {
	pagination.Pagination

	Jurisdiction  string
	OperationCode string
	SortBy        string
	OrderBy       string
}

type CreateRequest struct {
	Jurisdiction       string `json:"jurisdiction"`
	OperationCode      string `json:"operation_code"`
	EntryCode          string `json:"entry_code"`
	ExitCodeInternal   string `json:"exit_code_internal"`
	ExitCodeInterstate string `json:"exit_code_interstate"`

	IcmsCST   string `json:"icms_cst"`
	IpiCST    string `json:"ipi_cst"`
	PisCST    string `json:"pis_cst"`
	CofinsCST string `json:"cofins_cst"`

	IcmsRate   decimal.Decimal `json:"icms_rate"`
	IpiRate    decimal.Decimal `json:"ipi_rate"`
	PisRate    decimal.Decimal `json:"pis_rate"`
	CofinsRate decimal.Decimal `json:"cofins_rate"`
}

type UpdateRequest struct {
	ID string `json:"id"`

	EntryCode          *string `json:"entry_code,omitempty"`
	ExitCodeInternal   *string `json:"exit_code_internal,omitempty"`
	ExitCodeInterstate *string `json:"exit_code_interstate,omitempty"`

	IcmsCST   *string `json:"icms_cst,omitempty"`
	IpiCST    *string `json:"ipi_cst,omitempty"`
	PisCST    *string `json:"pis_cst,omitempty"`
	CofinsCST *string `json:"cofins_cst,omitempty"`

	IcmsRate   *decimal.Decimal `json:"icms_rate,omitempty"`
	IpiRate    *decimal.Decimal `json:"ipi_rate,omitempty"`
	PisRate    *decimal.Decimal `json:"pis_rate,omitempty"`
	CofinsRate *decimal.Decimal `json:"cofins_rate,omitempty"`
}

type Response struct {
	ID                 string          `json:"id"`
	Jurisdiction       string          `json:"jurisdiction"`
	OperationCode      string          `json:"operation_code"`
	EntryCode          string          `json:"entry_code"`
	ExitCodeInternal   string          `json:"exit_code_internal"`
	ExitCodeInterstate string          `json:"exit_code_interstate"`
	IcmsCST            string          `json:"icms_cst"`
	IpiCST             string          `json:"ipi_cst"`
	PisCST             string          `json:"pis_cst"`
	CofinsCST          string          `json:"cofins_cst"`
	IcmsRate           decimal.Decimal `json:"icms_rate"`
	IpiRate            decimal.Decimal `json:"ipi_rate"`
	PisRate            decimal.Decimal `json:"pis_rate"`
	CofinsRate         decimal.Decimal `json:"cofins_rate"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
