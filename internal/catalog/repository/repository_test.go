package repository

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setup(t *testing.T) (catalogdomain.Repository, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&catalogdomain.Item{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return NewRepository(db), db, node
}

func newItem(node *snowflake.Node, code string, stock int64) *catalogdomain.Item {
	return &catalogdomain.Item{
		ID:           node.Generate(),
		SupplierCode: code,
		Description:  "ITEM " + code,
		StockQty:     decimal.NewFromInt(stock),
	}
}

func TestDecrementStock_Clamp(t *testing.T) {
	repo, db, node := setup(t)
	ctx := context.Background()

	item := newItem(node, "X-1", 4)
	require.NoError(t, repo.Create(ctx, item))

	require.NoError(t, repo.DecrementStock(ctx, item.ID, decimal.NewFromInt(10)))

	var after catalogdomain.Item
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.True(t, after.StockQty.IsZero())
	assert.EqualValues(t, 1, after.Version)
}

func TestDecrementStock_VersionConflict(t *testing.T) {
	repo, db, node := setup(t)
	ctx := context.Background()

	item := newItem(node, "X-2", 10)
	require.NoError(t, repo.Create(ctx, item))

	// A concurrent writer bumps the version after our read but before
	// our write; the stale CAS attempt must lose.
	stale, err := repo.FindByID(ctx, item.ID)
	require.NoError(t, err)
	require.NotNil(t, stale)

	require.NoError(t, db.Exec(
		`UPDATE catalog_items SET stock_qty = 5, version = version + 1 WHERE id = ?`, item.ID,
	).Error)

	err = NewRepository(db).(*repository).casStock(ctx, stale, decimal.NewFromInt(8))
	assert.ErrorIs(t, err, catalogdomain.ErrStockConflict)

	var after catalogdomain.Item
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.True(t, after.StockQty.Equal(decimal.NewFromInt(5)))
}

func TestDecrementStock_SequentialObservesPriorWrite(t *testing.T) {
	repo, db, node := setup(t)
	ctx := context.Background()

	item := newItem(node, "X-3", 10)
	require.NoError(t, repo.Create(ctx, item))

	require.NoError(t, repo.DecrementStock(ctx, item.ID, decimal.NewFromInt(3)))
	require.NoError(t, repo.DecrementStock(ctx, item.ID, decimal.NewFromInt(3)))

	var after catalogdomain.Item
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.True(t, after.StockQty.Equal(decimal.NewFromInt(4)))
	assert.EqualValues(t, 2, after.Version)
}

func TestAddStock(t *testing.T) {
	repo, db, node := setup(t)
	ctx := context.Background()

	item := newItem(node, "X-4", 1)
	require.NoError(t, repo.Create(ctx, item))

	require.NoError(t, repo.AddStock(ctx, item.ID, decimal.RequireFromString("2.500")))

	var after catalogdomain.Item
	require.NoError(t, db.First(&after, "id = ?", item.ID).Error)
	assert.True(t, after.StockQty.Equal(decimal.RequireFromString("3.500")))
}

func TestDecrementStock_NegativeQtyRejected(t *testing.T) {
	repo, _, node := setup(t)
	ctx := context.Background()

	err := repo.DecrementStock(ctx, node.Generate(), decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, catalogdomain.ErrInvalidQuantity)
}

func TestDecrementStock_MissingItem(t *testing.T) {
	repo, _, node := setup(t)

	err := repo.DecrementStock(context.Background(), node.Generate(), decimal.NewFromInt(1))
	assert.ErrorIs(t, err, catalogdomain.ErrNotFound)
}
