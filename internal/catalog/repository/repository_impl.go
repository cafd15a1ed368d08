package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/option"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) catalogdomain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTrx(tx *gorm.DB) catalogdomain.Repository {
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*catalogdomain.Item, error) {
	var item catalogdomain.Item
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) FindBySupplierCode(ctx context.Context, code string) (*catalogdomain.Item, error) {
	var item catalogdomain.Item
	err := r.db.WithContext(ctx).Where("supplier_code = ?", code).First(&item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

func (r *repository) Create(ctx context.Context, item *catalogdomain.Item) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *repository) Save(ctx context.Context, item *catalogdomain.Item) error {
	item.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *repository) List(ctx context.Context, filter catalogdomain.ListRequest) ([]catalogdomain.Item, error) {
	var items []catalogdomain.Item
	stmt := r.db.WithContext(ctx).Model(&catalogdomain.Item{})

	if filter.SupplierCode != "" {
		stmt = stmt.Where("supplier_code = ?", filter.SupplierCode)
	}
	if filter.Classification != "" {
		stmt = stmt.Where("classification = ?", filter.Classification)
	}
	if filter.NeedsReview != nil {
		stmt = stmt.Where("needs_fiscal_review = ?", *filter.NeedsReview)
	}

	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"supplier_code": true,
		"description":   true,
		"updated_at":    true,
	})).Apply(stmt)
	stmt = option.WithLimit(filter.Limit()).Apply(stmt)

	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repository) DecrementStock(ctx context.Context, itemID snowflake.ID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return catalogdomain.ErrInvalidQuantity
	}

	item, err := r.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return catalogdomain.ErrNotFound
	}

	// Documented clamp: an over-sell drains stock to zero instead of
	// failing. The version check is what prevents two finalizations from
	// both applying against the same read.
	newStock := item.StockQty.Sub(qty)
	if newStock.IsNegative() {
		newStock = decimal.Zero
	}

	return r.casStock(ctx, item, newStock)
}

func (r *repository) AddStock(ctx context.Context, itemID snowflake.ID, qty decimal.Decimal) error {
	if qty.IsNegative() {
		return catalogdomain.ErrInvalidQuantity
	}

	item, err := r.FindByID(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil {
		return catalogdomain.ErrNotFound
	}

	return r.casStock(ctx, item, item.StockQty.Add(qty))
}

func (r *repository) casStock(ctx context.Context, item *catalogdomain.Item, newStock decimal.Decimal) error {
	result := r.db.WithContext(ctx).Exec(
		`UPDATE catalog_items
		 SET stock_qty = ?, version = version + 1, updated_at = ?
		 WHERE id = ? AND version = ?`,
		newStock,
		time.Now().UTC(),
		item.ID,
		item.Version,
	)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return catalogdomain.ErrStockConflict
	}
	return nil
}
