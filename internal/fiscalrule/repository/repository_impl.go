package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) ruledomain.Repository {
	return &repository{db: db}
}

func (r *repository) FindByJurisdictionAndOperation(ctx context.Context, jurisdiction, operationCode string) (*ruledomain.FiscalRule, error) {
	var rule ruledomain.FiscalRule
	err := r.db.WithContext(ctx).
		Where("jurisdiction = ? AND operation_code = ?", jurisdiction, operationCode).
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindByOperation(ctx context.Context, operationCode string) (*ruledomain.FiscalRule, error) {
	// Fallback pool is the jurisdiction-agnostic rules only; a rule scoped
	// to some other jurisdiction must never serve. Among those the most
	// recently updated wins, id as the final tie-break.
	var rule ruledomain.FiscalRule
	err := r.db.WithContext(ctx).
		Where("operation_code = ? AND jurisdiction = ''", operationCode).
		Order("updated_at DESC, id DESC").
		First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*ruledomain.FiscalRule, error) {
	var rule ruledomain.FiscalRule
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rule).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rule, nil
}

func (r *repository) Create(ctx context.Context, rule *ruledomain.FiscalRule) error {
	return r.db.WithContext(ctx).Create(rule).Error
}

func (r *repository) Update(ctx context.Context, rule *ruledomain.FiscalRule) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE fiscal_rules
		 SET entry_code = ?, exit_code_internal = ?, exit_code_interstate = ?,
		     icms_cst = ?, ipi_cst = ?, pis_cst = ?, cofins_cst = ?,
		     icms_rate = ?, ipi_rate = ?, pis_rate = ?, cofins_rate = ?,
		     updated_at = ?
		 WHERE id = ?`,
		rule.EntryCode,
		rule.ExitCodeInternal,
		rule.ExitCodeInterstate,
		rule.IcmsCST,
		rule.IpiCST,
		rule.PisCST,
		rule.CofinsCST,
		rule.IcmsRate,
		rule.IpiRate,
		rule.PisRate,
		rule.CofinsRate,
		rule.UpdatedAt,
		rule.ID,
	).Error
}

func (r *repository) List(ctx context.Context, filter ruledomain.ListRequest) ([]ruledomain.FiscalRule, error) {
	var items []ruledomain.FiscalRule
	stmt := r.db.WithContext(ctx).Model(&ruledomain.FiscalRule{})

	if filter.Jurisdiction != "" {
		stmt = stmt.Where("jurisdiction = ?", filter.Jurisdiction)
	}
	if filter.OperationCode != "" {
		stmt = stmt.Where("operation_code = ?", filter.OperationCode)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"jurisdiction":   true,
		"operation_code": true,
		"updated_at":     true,
	})).Apply(stmt)
	stmt = option.WithLimit(filter.Limit()).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
