package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	catalogrepository "github.com/smartcontab/fiscalcore/internal/catalog/repository"
	"github.com/smartcontab/fiscalcore/internal/config"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscaldoc/repository"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	rulerepository "github.com/smartcontab/fiscalcore/internal/fiscalrule/repository"
	ruleservice "github.com/smartcontab/fiscalcore/internal/fiscalrule/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupImport(t *testing.T) (docdomain.Service, *gorm.DB, *snowflake.Node) {
	t.Helper()

	// A named shared-cache database keeps every pooled connection on the
	// same schema; a bare :memory: DSN gives each connection its own.
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&ruledomain.FiscalRule{},
		&catalogdomain.Item{},
		&docdomain.InboundDocument{},
		&docdomain.InboundLine{},
		&docdomain.InboundLineTax{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	resolver := ruleservice.NewResolver(ruleservice.ResolverParams{
		Log:  zap.NewNop(),
		Repo: rulerepository.NewRepository(db),
	})

	svc := NewService(importParams{
		Log:      zap.NewNop(),
		DB:       db,
		GenID:    node,
		Repo:     repository.NewRepository(db),
		Items:    catalogrepository.NewRepository(db),
		Resolver: resolver,
		Holder:   config.StaticFiscalConfigHolder(config.DefaultFiscalConfig()),
	})
	return svc, db, node
}

func importDoc(code, qty, unitPrice, total string) *docdomain.Document {
	det := simpleDet(code, qty, unitPrice, total)
	det.Imposto.ICMS.ICMS00 = &docdomain.ICMSVariant{CST: "00", VBC: total, PICMS: "12.00"}
	return baseDocument(det)
}

func TestImport_CreatesDocumentLinesAndItem(t *testing.T) {
	svc, db, node := setupImport(t)
	ctx := context.Background()

	// Rule for the issuer's jurisdiction and the line's operation code.
	require.NoError(t, db.Create(&ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "SP",
		OperationCode:      "5102",
		EntryCode:          "1102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		IcmsCST:            "00",
		IcmsRate:           decimal.NewFromInt(18),
	}).Error)

	receipt, err := svc.Import(ctx, importDoc("P-100", "10", "2.50", "25.00"))
	require.NoError(t, err)
	require.NotNil(t, receipt)
	assert.NotEmpty(t, receipt.ReceiptID)
	assert.Equal(t, 1, receipt.Lines)
	assert.Equal(t, 1, receipt.ItemsCreated)
	assert.Zero(t, receipt.ItemsUpdated)

	var doc docdomain.InboundDocument
	require.NoError(t, db.Where("receipt_id = ?", receipt.ReceiptID).First(&doc).Error)
	assert.Equal(t, "SP", doc.IssuerJurisdiction)
	assert.Equal(t, 1, doc.LineCount)

	var lines []docdomain.InboundLine
	require.NoError(t, db.Where("document_id = ?", doc.ID).Find(&lines).Error)
	require.Len(t, lines, 1)
	require.NotNil(t, lines[0].CatalogItemID)

	var taxes []docdomain.InboundLineTax
	require.NoError(t, db.Where("line_id = ?", lines[0].ID).Find(&taxes).Error)
	assert.Len(t, taxes, 4)

	var item catalogdomain.Item
	require.NoError(t, db.Where("supplier_code = ?", "P-100").First(&item).Error)
	assert.Equal(t, "5102", item.ExitCodeInternal)
	assert.Equal(t, "6102", item.ExitCodeInterstate)
	assert.Equal(t, "00", item.IcmsCST)
	// The rule's 18 overrides the declared 12.
	assert.True(t, item.IcmsRate.Equal(decimal.NewFromInt(18)))
	assert.True(t, item.StockQty.Equal(decimal.NewFromInt(10)))
	assert.True(t, item.CostPrice.Equal(decimal.RequireFromString("2.50")))
	assert.False(t, item.NeedsFiscalReview)
}

func TestImport_NoRuleFlagsItemForReview(t *testing.T) {
	svc, db, _ := setupImport(t)

	receipt, err := svc.Import(context.Background(), importDoc("P-101", "5", "4.00", "20.00"))
	require.NoError(t, err)
	require.NotNil(t, receipt)

	var item catalogdomain.Item
	require.NoError(t, db.Where("supplier_code = ?", "P-101").First(&item).Error)
	assert.True(t, item.NeedsFiscalReview)
	// Declared facts are kept as the item's defaults.
	assert.Equal(t, "00", item.IcmsCST)
	assert.True(t, item.IcmsRate.Equal(decimal.NewFromInt(12)))
}

func TestImport_ExistingItemAccumulatesStock(t *testing.T) {
	svc, db, _ := setupImport(t)
	ctx := context.Background()

	_, err := svc.Import(ctx, importDoc("P-102", "10", "2.00", "20.00"))
	require.NoError(t, err)

	receipt, err := svc.Import(ctx, importDoc("P-102", "4", "2.20", "8.80"))
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.ItemsUpdated)
	assert.Zero(t, receipt.ItemsCreated)

	var item catalogdomain.Item
	require.NoError(t, db.Where("supplier_code = ?", "P-102").First(&item).Error)
	assert.True(t, item.StockQty.Equal(decimal.NewFromInt(14)))
	// Cost follows the latest import.
	assert.True(t, item.CostPrice.Equal(decimal.RequireFromString("2.20")))

	var count int64
	require.NoError(t, db.Model(&catalogdomain.Item{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestImport_ParseErrorSavesNothing(t *testing.T) {
	svc, db, _ := setupImport(t)

	_, err := svc.Import(context.Background(), importDoc("P-103", "bad", "2.00", "20.00"))
	require.Error(t, err)
	assert.True(t, docdomain.IsParseError(err))

	var docs, items int64
	require.NoError(t, db.Model(&docdomain.InboundDocument{}).Count(&docs).Error)
	require.NoError(t, db.Model(&catalogdomain.Item{}).Count(&items).Error)
	assert.Zero(t, docs)
	assert.Zero(t, items)
}

func TestImport_AmbiguousTaxBlockFlagsLine(t *testing.T) {
	svc, db, _ := setupImport(t)

	det := simpleDet("P-104", "1", "30.00", "30.00")
	det.Imposto.ICMS.ICMS00 = &docdomain.ICMSVariant{CST: "00", VBC: "30.00", PICMS: "18.00", VICMS: "5.40"}
	det.Imposto.ICMS.ICMS90 = &docdomain.ICMSVariant{CST: "90"}

	receipt, err := svc.Import(context.Background(), baseDocument(det))
	require.NoError(t, err)
	assert.Equal(t, 1, receipt.LinesFlagged)

	var line docdomain.InboundLine
	require.NoError(t, db.Where("supplier_code = ?", "P-104").First(&line).Error)
	assert.True(t, line.NeedsReview)

	var item catalogdomain.Item
	require.NoError(t, db.Where("supplier_code = ?", "P-104").First(&item).Error)
	assert.True(t, item.NeedsFiscalReview)
}

func TestImport_GetByReceipt(t *testing.T) {
	svc, _, _ := setupImport(t)
	ctx := context.Background()

	receipt, err := svc.Import(ctx, importDoc("P-105", "2", "7.50", "15.00"))
	require.NoError(t, err)

	resp, err := svc.Get(ctx, receipt.ReceiptID)
	require.NoError(t, err)
	assert.Equal(t, receipt.ReceiptID, resp.ReceiptID)
	require.Len(t, resp.Lines, 1)
	assert.Equal(t, "P-105", resp.Lines[0].SupplierCode)

	_, err = svc.Get(ctx, "01J00000000000000000000000")
	assert.ErrorIs(t, err, docdomain.ErrNotFound)
}
