package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/config"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	ruleservice "github.com/smartcontab/fiscalcore/internal/fiscalrule/service"
	"github.com/smartcontab/fiscalcore/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type importParams struct {
	fx.In

	Log      *zap.Logger
	DB       *gorm.DB
	GenID    *snowflake.Node
	Repo     docdomain.Repository
	Items    catalogdomain.Repository
	Resolver ruledomain.Resolver
	Holder   *config.FiscalConfigHolder
	Metrics  *metrics.Metrics `optional:"true"`
}

type importService struct {
	log      *zap.Logger
	db       *gorm.DB
	genID    *snowflake.Node
	repo     docdomain.Repository
	items    catalogdomain.Repository
	resolver ruledomain.Resolver
	holder   *config.FiscalConfigHolder
	metrics  *metrics.Metrics
}

func NewService(p importParams) docdomain.Service {
	return &importService{
		log:      p.Log.Named("fiscaldoc.service"),
		db:       p.DB,
		genID:    p.GenID,
		repo:     p.Repo,
		items:    p.Items,
		resolver: p.Resolver,
		holder:   p.Holder,
		metrics:  p.Metrics,
	}
}

// Import normalizes the document and commits it in one transaction:
// document, lines and declared taxes are persisted, catalog items are
// found or created per line, enriched through the rule resolver, their
// cost refreshed and their stock increased. A ParseError aborts before
// the transaction opens, so nothing is partially saved.
func (s *importService) Import(ctx context.Context, doc *docdomain.Document) (*docdomain.ImportReceipt, error) {
	fiscalCfg := s.holder.Get()
	tolerance := decimal.NewFromFloat(fiscalCfg.LineTolerance)

	header, lines, err := Normalize(doc, tolerance)
	if err != nil {
		return nil, err
	}

	receipt := &docdomain.ImportReceipt{
		ReceiptID: ulid.Make().String(),
		Lines:     len(lines),
	}
	docID := s.genID.Generate()
	receipt.DocumentID = docID.String()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTrx(tx)
		items := s.items.WithTrx(tx)

		record := &docdomain.InboundDocument{
			ID:                 docID,
			ReceiptID:          receipt.ReceiptID,
			Number:             header.Number,
			Series:             header.Series,
			NatOp:              header.NatOp,
			IssuerName:         header.IssuerName,
			IssuerTaxID:        header.IssuerTaxID,
			IssuerJurisdiction: header.IssuerJurisdiction,
			RecipientName:      header.RecipientName,
			RecipientTaxID:     header.RecipientTaxID,
			IssuedAt:           header.IssuedAt,
			TotalAmount:        header.TotalAmount,
			LineCount:          len(lines),
			RawHeader: datatypes.JSONMap{
				"recipient_jurisdiction": header.RecipientJurisdiction,
			},
		}
		if err := repo.CreateDocument(ctx, record); err != nil {
			return err
		}

		lineRows := make([]docdomain.InboundLine, 0, len(lines))
		taxRows := make([]docdomain.InboundLineTax, 0, len(lines)*fiscal.NumTaxKinds)

		for i := range lines {
			line := &lines[i]

			itemID, created, err := s.upsertItem(ctx, items, header.IssuerJurisdiction, line)
			if err != nil {
				return err
			}
			if created {
				receipt.ItemsCreated++
			} else {
				receipt.ItemsUpdated++
			}
			if line.NeedsReview {
				receipt.LinesFlagged++
			}

			row := docdomain.InboundLine{
				ID:             s.genID.Generate(),
				DocumentID:     docID,
				LineNo:         line.LineNo,
				SupplierCode:   line.SupplierCode,
				Description:    line.Description,
				Classification: line.Classification,
				Unit:           line.Unit,
				OperationCode:  line.OperationCode,
				Quantity:       line.Quantity,
				UnitCost:       line.UnitCost,
				LineTotal:      line.LineTotal,
				CatalogItemID:  &itemID,
				NeedsReview:    line.NeedsReview,
			}
			lineRows = append(lineRows, row)

			for _, k := range fiscal.TaxKinds {
				fact := line.Taxes[k]
				taxRows = append(taxRows, docdomain.InboundLineTax{
					ID:     s.genID.Generate(),
					LineID: row.ID,
					Kind:   k.String(),
					CST:    fact.CST,
					Base:   fact.Base,
					Rate:   fact.Rate,
					Value:  fact.Value,
				})
			}
		}

		if err := repo.CreateLines(ctx, lineRows); err != nil {
			return err
		}
		return repo.CreateLineTaxes(ctx, taxRows)
	})
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordDocumentImported(ctx, header.IssuerJurisdiction, len(lines))
		for i := 0; i < receipt.LinesFlagged; i++ {
			s.metrics.RecordLineFlagged(ctx, "ambiguous_tax_block")
		}
	}

	s.log.Info("document imported",
		zap.String("receipt_id", receipt.ReceiptID),
		zap.String("issuer_tax_id", header.IssuerTaxID),
		zap.Int("lines", receipt.Lines),
		zap.Int("items_created", receipt.ItemsCreated),
		zap.Int("lines_flagged", receipt.LinesFlagged),
	)
	return receipt, nil
}

// upsertItem finds or creates the catalog item behind an inbound line,
// re-resolves its fiscal treatment and adds the received quantity to
// stock. Returns the item id and whether it was newly created.
func (s *importService) upsertItem(ctx context.Context, items catalogdomain.Repository, jurisdiction string, line *docdomain.NormalizedLine) (snowflake.ID, bool, error) {
	rule, err := s.resolver.Resolve(ctx, jurisdiction, line.OperationCode)
	if err != nil {
		if !errors.Is(err, ruledomain.ErrInvalidOperationCode) {
			return 0, false, err
		}
		// A line without an operation code cannot match; treat as no rule.
		rule = nil
	}

	item, err := items.FindBySupplierCode(ctx, line.SupplierCode)
	if err != nil {
		return 0, false, err
	}

	if item == nil {
		item = &catalogdomain.Item{
			ID:             s.genID.Generate(),
			SupplierCode:   line.SupplierCode,
			Description:    line.Description,
			Classification: line.Classification,
			Unit:           line.Unit,
			CostPrice:      fiscal.Round2(line.UnitCost),
			SalePrice:      decimal.Zero,
			StockQty:       line.Quantity,
		}
		// The supplier's declared taxes seed the item's defaults; the
		// matched rule then overrides per its own semantics.
		for _, k := range fiscal.TaxKinds {
			item.SetCST(k, line.Taxes[k].CST)
			item.SetRate(k, line.Taxes[k].Rate)
		}
		ruleservice.Enrich(item, rule)
		if line.NeedsReview {
			item.NeedsFiscalReview = true
		}
		if err := items.Create(ctx, item); err != nil {
			return 0, false, err
		}
		return item.ID, true, nil
	}

	item.Description = firstNonEmpty(line.Description, item.Description)
	item.Classification = firstNonEmpty(line.Classification, item.Classification)
	item.Unit = firstNonEmpty(line.Unit, item.Unit)
	item.CostPrice = fiscal.Round2(line.UnitCost)
	ruleservice.Enrich(item, rule)
	if line.NeedsReview {
		item.NeedsFiscalReview = true
	}
	if err := items.Save(ctx, item); err != nil {
		return 0, false, err
	}
	if err := items.AddStock(ctx, item.ID, line.Quantity); err != nil {
		return 0, false, err
	}
	return item.ID, false, nil
}

func (s *importService) Get(ctx context.Context, receiptID string) (*docdomain.DocumentResponse, error) {
	receiptID = strings.TrimSpace(receiptID)
	if receiptID == "" {
		return nil, docdomain.ErrInvalidID
	}

	doc, err := s.repo.FindByReceiptID(ctx, receiptID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, docdomain.ErrNotFound
	}

	lines, err := s.repo.FindLines(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	resp := toDocumentResponse(doc)
	resp.Lines = make([]docdomain.LineResponse, 0, len(lines))
	for _, line := range lines {
		resp.Lines = append(resp.Lines, docdomain.LineResponse{
			LineNo:        line.LineNo,
			SupplierCode:  line.SupplierCode,
			Description:   line.Description,
			OperationCode: line.OperationCode,
			Quantity:      line.Quantity,
			UnitCost:      line.UnitCost,
			LineTotal:     line.LineTotal,
			NeedsReview:   line.NeedsReview,
		})
	}
	return resp, nil
}

func (s *importService) List(ctx context.Context, req docdomain.ListRequest) ([]docdomain.DocumentResponse, error) {
	docs, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := make([]docdomain.DocumentResponse, 0, len(docs))
	for i := range docs {
		resp = append(resp, *toDocumentResponse(&docs[i]))
	}
	return resp, nil
}

func toDocumentResponse(doc *docdomain.InboundDocument) *docdomain.DocumentResponse {
	return &docdomain.DocumentResponse{
		ReceiptID:          doc.ReceiptID,
		Number:             doc.Number,
		Series:             doc.Series,
		IssuerName:         doc.IssuerName,
		IssuerTaxID:        doc.IssuerTaxID,
		IssuerJurisdiction: doc.IssuerJurisdiction,
		IssuedAt:           doc.IssuedAt,
		TotalAmount:        doc.TotalAmount,
		LineCount:          doc.LineCount,
		CreatedAt:          doc.CreatedAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
