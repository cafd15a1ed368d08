package sale

import (
	"github.com/smartcontab/fiscalcore/internal/sale/repository"
	"github.com/smartcontab/fiscalcore/internal/sale/service"
	"go.uber.org/fx"
)

var Module = fx.Module("sale",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
