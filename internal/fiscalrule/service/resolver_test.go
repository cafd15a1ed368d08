package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscal"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscalrule/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupResolver(t *testing.T) (*Resolver, *gorm.DB, *snowflake.Node) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&ruledomain.FiscalRule{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	resolver := NewResolver(ResolverParams{
		Log:  zap.NewNop(),
		Repo: repository.NewRepository(db),
	})
	return resolver, db, node
}

func seedRule(t *testing.T, db *gorm.DB, rule *ruledomain.FiscalRule) {
	t.Helper()
	require.NoError(t, db.Create(rule).Error)
}

func TestResolver_ExactMatchWinsOverGeneric(t *testing.T) {
	resolver, db, node := setupResolver(t)
	now := time.Now().UTC()

	seedRule(t, db, &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "",
		OperationCode:      "5102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		CreatedAt:          now,
		UpdatedAt:          now,
	})
	exact := &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "SP",
		OperationCode:      "5102",
		ExitCodeInternal:   "5405",
		ExitCodeInterstate: "6405",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	seedRule(t, db, exact)

	rule, err := resolver.Resolve(context.Background(), "sp", "5102")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, exact.ID, rule.ID)
	assert.Equal(t, "5405", rule.ExitCodeInternal)
}

func TestResolver_FallsBackToGenericRule(t *testing.T) {
	resolver, db, node := setupResolver(t)
	now := time.Now().UTC()

	generic := &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "",
		OperationCode:      "5102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	seedRule(t, db, generic)
	seedRule(t, db, &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "RJ",
		OperationCode:      "5102",
		ExitCodeInternal:   "5403",
		ExitCodeInterstate: "6403",
		CreatedAt:          now,
		UpdatedAt:          now,
	})

	rule, err := resolver.Resolve(context.Background(), "MG", "5102")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, generic.ID, rule.ID)
}

func TestResolver_FallbackIgnoresOtherJurisdictions(t *testing.T) {
	resolver, db, node := setupResolver(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	generic := &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "",
		OperationCode:      "5102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		CreatedAt:          base,
		UpdatedAt:          base,
	}
	seedRule(t, db, generic)
	// Scoped to SP, updated later: must still lose the RJ fallback.
	seedRule(t, db, &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "SP",
		OperationCode:      "5102",
		ExitCodeInternal:   "5405",
		ExitCodeInterstate: "6405",
		CreatedAt:          base,
		UpdatedAt:          base.Add(time.Hour),
	})

	rule, err := resolver.Resolve(context.Background(), "RJ", "5102")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, generic.ID, rule.ID)
}

func TestResolver_NoGenericRuleMeansNoFallback(t *testing.T) {
	resolver, db, node := setupResolver(t)
	now := time.Now().UTC()

	seedRule(t, db, &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "SP",
		OperationCode:      "5102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		CreatedAt:          now,
		UpdatedAt:          now,
	})

	rule, err := resolver.Resolve(context.Background(), "RJ", "5102")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestResolver_FallbackPrefersMostRecentlyUpdated(t *testing.T) {
	resolver, db, node := setupResolver(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	seedRule(t, db, &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "",
		OperationCode:      "5102",
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		CreatedAt:          base,
		UpdatedAt:          base,
	})
	newer := &ruledomain.FiscalRule{
		ID:                 node.Generate(),
		Jurisdiction:       "",
		OperationCode:      "5102",
		ExitCodeInternal:   "5405",
		ExitCodeInterstate: "6405",
		CreatedAt:          base,
		UpdatedAt:          base.Add(time.Hour),
	}
	seedRule(t, db, newer)

	rule, err := resolver.Resolve(context.Background(), "MG", "5102")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, newer.ID, rule.ID)
}

func TestResolver_FallbackTieBreaksOnID(t *testing.T) {
	resolver, db, node := setupResolver(t)
	base := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	first := node.Generate()
	second := node.Generate()
	for _, id := range []snowflake.ID{first, second} {
		seedRule(t, db, &ruledomain.FiscalRule{
			ID:                 id,
			Jurisdiction:       "",
			OperationCode:      "1102",
			ExitCodeInternal:   "5102",
			ExitCodeInterstate: "6102",
			CreatedAt:          base,
			UpdatedAt:          base,
		})
	}

	rule, err := resolver.Resolve(context.Background(), "MG", "1102")
	require.NoError(t, err)
	require.NotNil(t, rule)
	assert.Equal(t, second, rule.ID)
}

func TestResolver_NoMatchReturnsNil(t *testing.T) {
	resolver, _, _ := setupResolver(t)

	rule, err := resolver.Resolve(context.Background(), "SP", "9999")
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestResolver_EmptyOperationCodeRejected(t *testing.T) {
	resolver, _, _ := setupResolver(t)

	_, err := resolver.Resolve(context.Background(), "SP", "  ")
	assert.ErrorIs(t, err, ruledomain.ErrInvalidOperationCode)
}

func TestEnrich_AppliesCodesAndPositiveRates(t *testing.T) {
	item := &catalogdomain.Item{
		ExitCodeInternal:   "5101",
		ExitCodeInterstate: "6101",
		IcmsCST:            "00",
		IcmsRate:           decimal.NewFromInt(12),
		IpiRate:            decimal.NewFromInt(5),
	}
	rule := &ruledomain.FiscalRule{
		EntryCode:          "1403",
		ExitCodeInternal:   "5405",
		ExitCodeInterstate: "6405",
		IcmsCST:            "60",
		IcmsRate:           decimal.NewFromInt(18),
	}

	Enrich(item, rule)

	assert.Equal(t, "1403", item.EntryCode)
	assert.Equal(t, "5405", item.ExitCodeInternal)
	assert.Equal(t, "6405", item.ExitCodeInterstate)
	assert.Equal(t, "60", item.IcmsCST)
	assert.True(t, item.IcmsRate.Equal(decimal.NewFromInt(18)))
	assert.False(t, item.NeedsFiscalReview)
}

func TestEnrich_ZeroRateKeepsItemRate(t *testing.T) {
	item := &catalogdomain.Item{
		IcmsRate:   decimal.NewFromInt(18),
		PisRate:    decimal.NewFromFloat(1.65),
		CofinsRate: decimal.NewFromFloat(7.6),
	}
	rule := &ruledomain.FiscalRule{
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
	}

	Enrich(item, rule)

	assert.True(t, item.IcmsRate.Equal(decimal.NewFromInt(18)))
	assert.True(t, item.PisRate.Equal(decimal.NewFromFloat(1.65)))
	assert.True(t, item.CofinsRate.Equal(decimal.NewFromFloat(7.6)))
}

func TestEnrich_EmptyCSTKeepsItemCST(t *testing.T) {
	item := &catalogdomain.Item{}
	for _, k := range fiscal.TaxKinds {
		item.SetCST(k, "00")
	}
	rule := &ruledomain.FiscalRule{
		ExitCodeInternal:   "5102",
		ExitCodeInterstate: "6102",
		IpiCST:             "50",
	}

	Enrich(item, rule)

	assert.Equal(t, "00", item.IcmsCST)
	assert.Equal(t, "50", item.IpiCST)
	assert.Equal(t, "00", item.PisCST)
	assert.Equal(t, "00", item.CofinsCST)
}

func TestEnrich_NilRuleFlagsReview(t *testing.T) {
	item := &catalogdomain.Item{
		ExitCodeInternal: "5101",
		IcmsRate:         decimal.NewFromInt(12),
	}

	Enrich(item, nil)

	assert.True(t, item.NeedsFiscalReview)
	assert.Equal(t, "5101", item.ExitCodeInternal)
	assert.True(t, item.IcmsRate.Equal(decimal.NewFromInt(12)))
}
