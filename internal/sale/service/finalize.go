package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Finalize commits a draft sale. The grand total uses the document-level
// discount and freight, not the per-line shares, which exist only for
// tax bookkeeping. An unbalanced document stays in draft and remains
// editable.
//
// On success one transaction persists the balanced-to-finalized
// transition, the computed tax lines, the per-line outbound operation
// codes and the stock decrements. A stock decrement that loses its
// version check aborts the whole transaction; the caller retries with
// fresh state.
func (s *Service) Finalize(ctx context.Context, saleID string) (*saledomain.Response, error) {
	doc, err := s.loadDocument(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if doc.Status != saledomain.StatusDraft {
		return nil, saledomain.ErrNotDraft
	}

	fiscalCfg := s.holder.Get()
	tolerance := decimal.NewFromFloat(fiscalCfg.BalanceTolerance)

	grandTotal := doc.GrandTotal()
	if grandTotal.Sub(doc.PaymentsTotal()).Abs().GreaterThan(tolerance) {
		if s.metrics != nil {
			s.metrics.RecordSaleUnbalanced(ctx)
		}
		s.log.Info("finalize blocked, unbalanced",
			zap.String("sale_id", doc.ID.String()),
			zap.String("grand_total", grandTotal.StringFixed(2)),
			zap.String("payments_total", doc.PaymentsTotal().StringFixed(2)),
		)
		return nil, saledomain.ErrUnbalanced
	}

	sameJurisdiction := doc.CounterpartyJurisdiction == "" ||
		doc.CounterpartyJurisdiction == fiscalCfg.HomeJurisdiction

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		items := s.items.WithTrx(tx)

		doc.Status = saledomain.StatusBalanced
		if err := repo.Save(ctx, doc); err != nil {
			return err
		}

		apportionLines, err := s.buildApportionLines(ctx, items, doc)
		if err != nil {
			return err
		}
		results, err := Apportion(apportionLines, doc.Discount, doc.Freight)
		if err != nil {
			return err
		}

		taxLines := make([]saledomain.TaxLine, 0, len(results)*fiscal.NumTaxKinds)
		for _, result := range results {
			for _, k := range fiscal.TaxKinds {
				tax := result.Taxes[k]
				taxLines = append(taxLines, saledomain.TaxLine{
					ID:         s.genID.Generate(),
					DocumentID: doc.ID,
					LineID:     result.LineID,
					Kind:       k.String(),
					CST:        tax.CST,
					Base:       result.Base,
					Rate:       tax.Rate,
					Value:      tax.Value,
				})
			}
		}
		if err := repo.CreateTaxLines(ctx, taxLines); err != nil {
			return err
		}

		for i := range doc.Lines {
			line := &doc.Lines[i]
			if line.CatalogItemID == nil {
				continue
			}
			item, err := items.FindByID(ctx, *line.CatalogItemID)
			if err != nil {
				return err
			}
			if item == nil {
				continue
			}

			line.OperationCode = item.ExitCode(sameJurisdiction)
			if err := repo.UpdateLine(ctx, line); err != nil {
				return err
			}
			if err := items.DecrementStock(ctx, item.ID, line.Quantity); err != nil {
				return err
			}
		}

		now := time.Now().UTC()
		doc.Status = saledomain.StatusFinalized
		doc.FinalizedAt = &now
		return repo.Save(ctx, doc)
	})
	if err != nil {
		// The transaction rolled back; the stored document is still the
		// draft the caller last saw.
		doc.Status = saledomain.StatusDraft
		doc.FinalizedAt = nil
		if s.metrics != nil && errors.Is(err, catalogdomain.ErrStockConflict) {
			s.metrics.RecordStockConflict(ctx)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordSaleFinalized(ctx)
	}
	s.log.Info("sale finalized",
		zap.String("sale_id", doc.ID.String()),
		zap.String("grand_total", grandTotal.StringFixed(2)),
		zap.Int("lines", len(doc.Lines)),
	)

	// Re-read so the response carries the persisted tax lines.
	return s.Get(ctx, saleID)
}
