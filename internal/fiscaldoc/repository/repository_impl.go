package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	"github.com/smartcontab/fiscalcore/pkg/db/option"
	genrepo "github.com/smartcontab/fiscalcore/pkg/repository"
	"gorm.io/gorm"
)

type repository struct {
	db    *gorm.DB
	lines genrepo.Repository[docdomain.InboundLine]
	taxes genrepo.Repository[docdomain.InboundLineTax]
}

func NewRepository(db *gorm.DB) docdomain.Repository {
	return &repository{
		db:    db,
		lines: genrepo.ProvideStore[docdomain.InboundLine](db),
		taxes: genrepo.ProvideStore[docdomain.InboundLineTax](db),
	}
}

func (r *repository) WithTrx(tx *gorm.DB) docdomain.Repository {
	if tx == nil {
		return r
	}
	return &repository{
		db:    tx,
		lines: r.lines.WithTrx(tx),
		taxes: r.taxes.WithTrx(tx),
	}
}

func (r *repository) CreateDocument(ctx context.Context, doc *docdomain.InboundDocument) error {
	return r.db.WithContext(ctx).Create(doc).Error
}

func (r *repository) CreateLines(ctx context.Context, lines []docdomain.InboundLine) error {
	refs := make([]*docdomain.InboundLine, len(lines))
	for i := range lines {
		refs[i] = &lines[i]
	}
	return r.lines.BatchCreate(ctx, refs)
}

func (r *repository) CreateLineTaxes(ctx context.Context, taxes []docdomain.InboundLineTax) error {
	refs := make([]*docdomain.InboundLineTax, len(taxes))
	for i := range taxes {
		refs[i] = &taxes[i]
	}
	return r.taxes.BatchCreate(ctx, refs)
}

func (r *repository) FindByReceiptID(ctx context.Context, receiptID string) (*docdomain.InboundDocument, error) {
	var doc docdomain.InboundDocument
	err := r.db.WithContext(ctx).
		Where("receipt_id = ?", receiptID).
		First(&doc).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &doc, nil
}

func (r *repository) FindLines(ctx context.Context, documentID snowflake.ID) ([]docdomain.InboundLine, error) {
	refs, err := r.lines.Find(ctx,
		&docdomain.InboundLine{DocumentID: documentID},
		option.WithSortBy("line_no ASC"),
	)
	if err != nil {
		return nil, err
	}
	lines := make([]docdomain.InboundLine, len(refs))
	for i, ref := range refs {
		lines[i] = *ref
	}
	return lines, nil
}

var documentSortFields = map[string]bool{
	"issued_at":  true,
	"created_at": true,
	"number":     true,
}

func (r *repository) List(ctx context.Context, filter docdomain.ListRequest) ([]docdomain.InboundDocument, error) {
	query := r.db.WithContext(ctx).Model(&docdomain.InboundDocument{})

	if issuer := strings.TrimSpace(filter.IssuerTaxID); issuer != "" {
		query = query.Where("issuer_tax_id = ?", issuer)
	}

	sortBy := option.WithQuerySortBy(filter.SortBy, filter.OrderBy, documentSortFields)
	if sortBy == "" {
		sortBy = "created_at DESC"
	}
	query = option.WithSortBy(sortBy).Apply(query)
	query = option.WithLimit(filter.Limit()).Apply(query)

	var docs []docdomain.InboundDocument
	if err := query.Find(&docs).Error; err != nil {
		return nil, err
	}
	return docs, nil
}
