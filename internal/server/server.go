package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smartcontab/fiscalcore/internal/catalog"
	catalogdomain "github.com/smartcontab/fiscalcore/internal/catalog/domain"
	"github.com/smartcontab/fiscalcore/internal/config"
	"github.com/smartcontab/fiscalcore/internal/fiscaldoc"
	docdomain "github.com/smartcontab/fiscalcore/internal/fiscaldoc/domain"
	"github.com/smartcontab/fiscalcore/internal/fiscalrule"
	ruledomain "github.com/smartcontab/fiscalcore/internal/fiscalrule/domain"
	"github.com/smartcontab/fiscalcore/internal/observability"
	obsmiddleware "github.com/smartcontab/fiscalcore/internal/observability/logger"
	obsmetrics "github.com/smartcontab/fiscalcore/internal/observability/metrics"
	obstracing "github.com/smartcontab/fiscalcore/internal/observability/tracing"
	"github.com/smartcontab/fiscalcore/internal/sale"
	saledomain "github.com/smartcontab/fiscalcore/internal/sale/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fiscalrule.Module,
	catalog.Module,
	fiscaldoc.Module,
	sale.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine   *gin.Engine
	cfg      config.Config
	genID    *snowflake.Node
	ruleSvc  ruledomain.Service
	resolver ruledomain.Resolver
	items    catalogdomain.Repository
	docSvc   docdomain.Service
	saleSvc  saledomain.Service
}

type ServerParams struct {
	fx.In

	Gin      *gin.Engine
	Cfg      config.Config
	GenID    *snowflake.Node
	RuleSvc  ruledomain.Service
	Resolver ruledomain.Resolver
	Items    catalogdomain.Repository
	DocSvc   docdomain.Service
	SaleSvc  saledomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:   p.Gin,
		cfg:      p.Cfg,
		genID:    p.GenID,
		ruleSvc:  p.RuleSvc,
		resolver: p.Resolver,
		items:    p.Items,
		docSvc:   p.DocSvc,
		saleSvc:  p.SaleSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	rules := v1.Group("/fiscal-rules")
	rules.GET("", s.ListFiscalRules)
	rules.POST("", s.CreateFiscalRule)
	rules.GET("/resolve", s.ResolveFiscalRule)
	rules.GET("/:id", s.GetFiscalRule)
	rules.PATCH("/:id", s.UpdateFiscalRule)

	items := v1.Group("/catalog-items")
	items.GET("", s.ListCatalogItems)
	items.GET("/:id", s.GetCatalogItem)

	imports := v1.Group("/imports")
	imports.GET("", s.ListImports)
	imports.POST("", s.ImportDocument)
	imports.GET("/:receipt_id", s.GetImport)

	sales := v1.Group("/sales")
	sales.GET("", s.ListSales)
	sales.POST("", s.CreateSale)
	sales.GET("/:id", s.GetSale)
	sales.POST("/:id/lines", s.AddSaleLine)
	sales.DELETE("/:id/lines/:line_id", s.RemoveSaleLine)
	sales.POST("/:id/payments", s.AddSalePayment)
	sales.GET("/:id/tax-preview", s.SaleTaxPreview)
	sales.POST("/:id/finalize", s.FinalizeSale)
}
