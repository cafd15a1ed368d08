package service

import (
	"context"
	"sort"
	"strings"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/config"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	"github.com/smartcontab/fiscalcore/internal/observability/metrics"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParams struct {
	fx.In

	Log     *zap.Logger
	DB      *gorm.DB
	GenID   *snowflake.Node
	Repo    saledomain.Repository
	Items   catalogdomain.Repository
	Holder  *config.FiscalConfigHolder
	Metrics *metrics.Metrics `optional:"true"`
}

type Service struct {
	log     *zap.Logger
	db      *gorm.DB
	genID   *snowflake.Node
	repo    saledomain.Repository
	items   catalogdomain.Repository
	holder  *config.FiscalConfigHolder
	metrics *metrics.Metrics
}

func NewService(p ServiceParams) saledomain.Service {
	return &Service{
		log:     p.Log.Named("sale.service"),
		db:      p.DB,
		genID:   p.GenID,
		repo:    p.Repo,
		items:   p.Items,
		holder:  p.Holder,
		metrics: p.Metrics,
	}
}

func (s *Service) Create(ctx context.Context, req saledomain.CreateRequest) (*saledomain.Response, error) {
	counterparty := strings.TrimSpace(req.Counterparty)
	if counterparty == "" {
		return nil, saledomain.ErrInvalidInput
	}
	if req.Discount.IsNegative() || req.Freight.IsNegative() {
		return nil, saledomain.ErrInvalidInput
	}

	doc := &saledomain.SaleDocument{
		ID:                       s.genID.Generate(),
		Counterparty:             counterparty,
		CounterpartyJurisdiction: strings.ToUpper(strings.TrimSpace(req.CounterpartyJurisdiction)),
		Discount:                 fiscal.Round2(req.Discount),
		Freight:                  fiscal.Round2(req.Freight),
		Status:                   saledomain.StatusDraft,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}

	resp := toResponse(doc)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, id string) (*saledomain.Response, error) {
	doc, err := s.loadDocument(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toResponse(doc)
	if doc.Status == saledomain.StatusFinalized {
		resp.TaxLines, err = s.storedTaxLines(ctx, doc.ID)
		if err != nil {
			return nil, err
		}
	}
	return &resp, nil
}

// storedTaxLines reads the tax lines persisted at finalize time and
// orders them by line, then by canonical tax kind.
func (s *Service) storedTaxLines(ctx context.Context, documentID snowflake.ID) ([]saledomain.TaxRecordView, error) {
	taxLines, err := s.repo.FindTaxLines(ctx, documentID)
	if err != nil {
		return nil, err
	}

	sort.SliceStable(taxLines, func(i, j int) bool {
		if taxLines[i].LineID != taxLines[j].LineID {
			return taxLines[i].LineID < taxLines[j].LineID
		}
		ki, ok := fiscal.ParseTaxKind(taxLines[i].Kind)
		if !ok {
			ki = fiscal.NumTaxKinds
		}
		kj, ok := fiscal.ParseTaxKind(taxLines[j].Kind)
		if !ok {
			kj = fiscal.NumTaxKinds
		}
		return ki < kj
	})

	views := make([]saledomain.TaxRecordView, 0, len(taxLines))
	for _, tl := range taxLines {
		views = append(views, saledomain.TaxRecordView{
			LineID: tl.LineID.String(),
			Kind:   tl.Kind,
			CST:    tl.CST,
			Base:   tl.Base,
			Rate:   tl.Rate,
			Value:  tl.Value,
		})
	}
	return views, nil
}

func (s *Service) List(ctx context.Context, req saledomain.ListRequest) ([]saledomain.Response, error) {
	docs, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, err
	}

	resp := make([]saledomain.Response, 0, len(docs))
	for i := range docs {
		resp = append(resp, toResponse(&docs[i]))
	}
	return resp, nil
}

func (s *Service) AddLine(ctx context.Context, saleID string, req saledomain.LineRequest) (*saledomain.Response, error) {
	if req.Quantity.IsNegative() || req.UnitPrice.IsNegative() {
		return nil, saledomain.ErrInvalidInput
	}

	doc, err := s.loadDocument(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if doc.Status != saledomain.StatusDraft {
		return nil, saledomain.ErrNotDraft
	}

	line := &saledomain.SaleLine{
		ID:          s.genID.Generate(),
		DocumentID:  doc.ID,
		Description: strings.TrimSpace(req.Description),
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		LineTotal:   fiscal.Round2(req.Quantity.Mul(req.UnitPrice)),
	}

	if rawID := strings.TrimSpace(req.CatalogItemID); rawID != "" {
		itemID, err := snowflake.ParseString(rawID)
		if err != nil {
			return nil, saledomain.ErrInvalidInput
		}
		item, err := s.items.FindByID(ctx, itemID)
		if err != nil {
			return nil, err
		}
		if item == nil {
			return nil, saledomain.ErrItemNotFound
		}
		line.CatalogItemID = &item.ID
		if line.Description == "" {
			line.Description = item.Description
		}
	}
	if line.Description == "" {
		return nil, saledomain.ErrInvalidInput
	}

	if err := s.repo.CreateLine(ctx, line); err != nil {
		return nil, err
	}
	return s.Get(ctx, saleID)
}

func (s *Service) RemoveLine(ctx context.Context, saleID, lineID string) (*saledomain.Response, error) {
	doc, err := s.loadDocument(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if doc.Status != saledomain.StatusDraft {
		return nil, saledomain.ErrNotDraft
	}

	id, err := snowflake.ParseString(strings.TrimSpace(lineID))
	if err != nil {
		return nil, saledomain.ErrInvalidID
	}
	if err := s.repo.DeleteLine(ctx, doc.ID, id); err != nil {
		return nil, err
	}
	return s.Get(ctx, saleID)
}

func (s *Service) AddPayment(ctx context.Context, saleID string, req saledomain.PaymentRequest) (*saledomain.Response, error) {
	method := strings.TrimSpace(req.Method)
	if method == "" {
		return nil, saledomain.ErrInvalidMethod
	}
	if req.Amount.IsNegative() {
		return nil, saledomain.ErrInvalidInput
	}

	doc, err := s.loadDocument(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if doc.Status != saledomain.StatusDraft {
		return nil, saledomain.ErrNotDraft
	}

	payment := &saledomain.Payment{
		ID:         s.genID.Generate(),
		DocumentID: doc.ID,
		Method:     method,
		Amount:     fiscal.Round2(req.Amount),
	}
	if err := s.repo.CreatePayment(ctx, payment); err != nil {
		return nil, err
	}
	return s.Get(ctx, saleID)
}

// TaxPreview apportions the draft's discount and freight and computes
// per-line tax values on demand. Nothing is stored.
func (s *Service) TaxPreview(ctx context.Context, saleID string) (*saledomain.TaxPreviewResponse, error) {
	doc, err := s.loadDocument(ctx, saleID)
	if err != nil {
		return nil, err
	}

	apportionLines, err := s.buildApportionLines(ctx, s.items, doc)
	if err != nil {
		return nil, err
	}
	results, err := Apportion(apportionLines, doc.Discount, doc.Freight)
	if err != nil {
		return nil, err
	}

	resp := &saledomain.TaxPreviewResponse{
		SaleID:     doc.ID.String(),
		ItemsTotal: doc.ItemsTotal(),
		GrandTotal: doc.GrandTotal(),
		Lines:      make([]saledomain.TaxLineView, 0, len(results)),
	}
	for _, result := range results {
		view := saledomain.TaxLineView{
			LineID:        result.LineID.String(),
			DiscountShare: result.DiscountShare,
			FreightShare:  result.FreightShare,
			Base:          result.Base,
			Taxes:         make([]saledomain.TaxValueView, 0, fiscal.NumTaxKinds),
		}
		for _, k := range fiscal.TaxKinds {
			tax := result.Taxes[k]
			view.Taxes = append(view.Taxes, saledomain.TaxValueView{
				Kind:  k.String(),
				CST:   tax.CST,
				Rate:  tax.Rate,
				Value: tax.Value,
			})
		}
		resp.Lines = append(resp.Lines, view)
	}
	return resp, nil
}

// buildApportionLines joins each sale line with its catalog item's
// fiscal defaults. Lines without a resolvable item apportion their
// monetary base with zero rates.
func (s *Service) buildApportionLines(ctx context.Context, items catalogdomain.Repository, doc *saledomain.SaleDocument) ([]ApportionLine, error) {
	out := make([]ApportionLine, 0, len(doc.Lines))
	for _, line := range doc.Lines {
		al := ApportionLine{
			LineID:    line.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.LineTotal,
		}
		if line.CatalogItemID != nil {
			item, err := items.FindByID(ctx, *line.CatalogItemID)
			if err != nil {
				return nil, err
			}
			if item != nil {
				for _, k := range fiscal.TaxKinds {
					al.CSTs[k] = item.CST(k)
					al.Rates[k] = item.Rate(k)
				}
			}
		}
		out = append(out, al)
	}
	return out, nil
}

func (s *Service) loadDocument(ctx context.Context, id string) (*saledomain.SaleDocument, error) {
	saleID, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil {
		return nil, saledomain.ErrInvalidID
	}

	doc, err := s.repo.FindByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, saledomain.ErrNotFound
	}
	return doc, nil
}

func toResponse(doc *saledomain.SaleDocument) saledomain.Response {
	resp := saledomain.Response{
		ID:                       doc.ID.String(),
		Counterparty:             doc.Counterparty,
		CounterpartyJurisdiction: doc.CounterpartyJurisdiction,
		Discount:                 doc.Discount,
		Freight:                  doc.Freight,
		Status:                   doc.Status,
		ItemsTotal:               doc.ItemsTotal(),
		GrandTotal:               doc.GrandTotal(),
		PaymentsTotal:            doc.PaymentsTotal(),
		FinalizedAt:              doc.FinalizedAt,
		Lines:                    make([]saledomain.LineView, 0, len(doc.Lines)),
		Payments:                 make([]saledomain.PaymentView, 0, len(doc.Payments)),
		CreatedAt:                doc.CreatedAt,
		UpdatedAt:                doc.UpdatedAt,
	}
	for _, line := range doc.Lines {
		view := saledomain.LineView{
			ID:            line.ID.String(),
			Description:   line.Description,
			OperationCode: line.OperationCode,
			Quantity:      line.Quantity,
			UnitPrice:     line.UnitPrice,
			LineTotal:     line.LineTotal,
		}
		if line.CatalogItemID != nil {
			view.CatalogItemID = line.CatalogItemID.String()
		}
		resp.Lines = append(resp.Lines, view)
	}
	for _, payment := range doc.Payments {
		resp.Payments = append(resp.Payments, saledomain.PaymentView{
			ID:     payment.ID.String(),
			Method: payment.Method,
			Amount: payment.Amount,
		})
	}
	return resp
}
