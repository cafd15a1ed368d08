package migration

import (
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/config"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"github.com/smartcontab/fiscalcore/internal/seed"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			if err := conn.AutoMigrate(
				&ruledomain.FiscalRule{},
				&catalogdomain.Item{},
				&docdomain.InboundDocument{},
				&docdomain.InboundLine{},
				&docdomain.InboundLineTax{},
				&saledomain.SaleDocument{},
				&saledomain.SaleLine{},
				&saledomain.Payment{},
				&saledomain.TaxLine{},
			); err != nil {
				return err
			}
		}

		return seed.EnsureBaselineRules(conn)
	}),
)
