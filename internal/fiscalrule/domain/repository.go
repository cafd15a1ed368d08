package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

type Repository interface {
	// FindByJurisdictionAndOperation returns the exact-match rule, or nil.
	FindByJurisdictionAndOperation(ctx context.Context, jurisdiction, operationCode string) (*FiscalRule, error)

	// FindByOperation returns the jurisdiction-agnostic fallback for the
	// operation code: the most recently updated rule wins. Returns nil
	// when no rule carries the code.
	FindByOperation(ctx context.Context, operationCode string) (*FiscalRule, error)

	FindByID(ctx context.Context, id snowflake.ID) (*FiscalRule, error)
	Create(ctx context.Context, rule *FiscalRule) error
	Update(ctx context.Context, rule *FiscalRule) error
	List(ctx context.Context, filter ListRequest) ([]FiscalRule, error)
}
