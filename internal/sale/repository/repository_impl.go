package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/option"
	genrepo "github.com/smartcontab/fiscalcore/pkg/repository"
	"gorm.io/gorm"
)

type repository struct {
	db       *gorm.DB
	taxLines genrepo.Repository[saledomain.TaxLine]
}

func NewRepository(db *gorm.DB) saledomain.Repository {
	return &repository{
		db:       db,
		taxLines: genrepo.ProvideStore[saledomain.TaxLine](db),
	}
}

func (r *repository) WithTrx(tx *gorm.DB) saledomain.Repository {
	if tx == nil {
		return r
	}
	return &repository{
		db:       tx,
		taxLines: r.taxLines.WithTrx(tx),
	}
}

func (r *repository) FindByID(ctx context.Context, id snowflake.ID) (*saledomain.SaleDocument, error) {
	var doc saledomain.SaleDocument
	err := r.db.WithContext(ctx).
		Preload("Lines").
		Preload("Payments").
		Where("id = ?", id).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repository) Create(ctx context.Context, doc *saledomain.SaleDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) Save(ctx context.Context, doc *saledomain.SaleDocument) error {
	doc.UpdatedAt = time.Now().UTC()
	return r.db.WithContext(ctx).
		Omit("Lines", "Payments").
		Save(doc).Error
}

var saleSortFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
	"status":     true,
}

func (r *repository) List(ctx context.Context, filter saledomain.ListRequest) ([]saledomain.SaleDocument, error) {
	query := r.db.WithContext(ctx).Model(&saledomain.SaleDocument{})

	if status := strings.TrimSpace(filter.Status); status != "" {
		query = query.Where("status = ?", status)
	}

	sortBy := option.WithQuerySortBy(filter.SortBy, filter.OrderBy, saleSortFields)
	if sortBy == "" {
		sortBy = "created_at DESC"
	}
	query = option.WithSortBy(sortBy).Apply(query)
	query = option.WithLimit(filter.Limit()).Apply(query)

	var docs []saledomain.SaleDocument
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}

func (r *repository) CreateLine(ctx context.Context, line *saledomain.SaleLine) error {
	return r.db.WithContext(ctx).Create(line).Error
}

func (r *repository) UpdateLine(ctx context.Context, line *saledomain.SaleLine) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE sale_lines SET operation_code = ? WHERE id = ?`,
		line.OperationCode,
		line.ID,
	).Error
}

func (r *repository) DeleteLine(ctx context.Context, documentID, lineID snowflake.ID) error {
	result := r.db.WithContext(ctx).
		Where("document_id = ? AND id = ?", documentID, lineID).
		Delete(&saledomain.SaleLine{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return saledomain.ErrLineNotFound
	}
	return nil
}

func (r *repository) CreatePayment(ctx context.Context, payment *saledomain.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) CreateTaxLines(ctx context.Context, taxLines []saledomain.TaxLine) error {
	refs := make([]*saledomain.TaxLine, len(taxLines))
	for i := range taxLines {
		refs[i] = &taxLines[i]
	}
	return r.taxLines.BatchCreate(ctx, refs)
}

func (r *repository) FindTaxLines(ctx context.Context, documentID snowflake.ID) ([]saledomain.TaxLine, error) {
	refs, err := r.taxLines.Find(ctx, &saledomain.TaxLine{DocumentID: documentID})
	if err != nil {
		return nil, err
	}
	taxLines := make([]saledomain.TaxLine, len(refs))
	for i, ref := range refs {
		taxLines[i] = *ref
	}
	return taxLines, nil
}
