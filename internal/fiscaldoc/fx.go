package fiscaldoc

import (
	"github.com/smartcontab/fiscalcore/internal/fiscaldoc/repository"
	"github.com/smartcontab/fiscalcore/internal/fiscaldoc/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fiscaldoc",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
	),
)
