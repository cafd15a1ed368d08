package fiscalrule

import (
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscalrule/repository"
	"github.com/smartcontab/fiscalcore/internal/fiscalrule/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fiscalrule",
	fx.Provide(
		repository.NewRepository,
		service.NewService,
		service.NewResolver,
		func(r *service.Resolver) ruledomain.Resolver { return r },
	),
)
