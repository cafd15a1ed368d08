// Package seed bootstraps baseline fiscal rules so a fresh install can
// classify the most common operation codes without manual setup.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"gorm.io/gorm"
)

// EnsureBaselineRules seeds jurisdiction-agnostic rules for the common
// resale operation codes. It only runs against an empty rule table, so
// operator-configured tables are never touched.
func EnsureBaselineRules(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&ruledomain.FiscalRule{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		rules := []ruledomain.FiscalRule{
			{
				// Purchase for resale, standard regime.
				OperationCode:      "5102",
				EntryCode:          "1102",
				ExitCodeInternal:   "5102",
				ExitCodeInterstate: "6102",
				IcmsCST:            "00",
				IcmsRate:           decimal.NewFromInt(18),
			},
			{
				// Interstate purchase for resale.
				OperationCode:      "6102",
				EntryCode:          "2102",
				ExitCodeInternal:   "5102",
				ExitCodeInterstate: "6102",
				IcmsCST:            "00",
				IcmsRate:           decimal.NewFromInt(12),
			},
			{
				// Goods under tax substitution: tax already collected
				// upstream, no rate opinion here.
				OperationCode:      "5405",
				EntryCode:          "1403",
				ExitCodeInternal:   "5405",
				ExitCodeInterstate: "6404",
				IcmsCST:            "60",
			},
		}
		for i := range rules {
			rules[i].ID = node.Generate()
			rules[i].CreatedAt = now
			rules[i].UpdatedAt = now
		}
		return tx.Create(&rules).Error
	})
}
