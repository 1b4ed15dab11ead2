package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/smallbiznis/fatoora/internal/compliance"
	compliancedomain "github.com/smallbiznis/fatoora/internal/compliance/domain"
	"github.com/smallbiznis/fatoora/internal/config"
	"github.com/smallbiznis/fatoora/internal/observability"
	obslogger "github.com/smallbiznis/fatoora/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/fatoora/internal/observability/metrics"
	obstracing "github.com/smallbiznis/fatoora/internal/observability/tracing"
	"github.com/smallbiznis/fatoora/internal/organization"
	organizationdomain "github.com/smallbiznis/fatoora/internal/organization/domain"
)

var Module = fx.Module("http.server",
	organization.Module,
	compliance.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, registry *prometheus.Registry) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(classifyErrorForLog))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config) {
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
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	complianceSvc   compliancedomain.Service
	organizationSvc organizationdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	ComplianceSvc   compliancedomain.Service
	OrganizationSvc organizationdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		complianceSvc:   p.ComplianceSvc,
		organizationSvc: p.OrganizationSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1")

	api.POST("/orgs", s.CreateOrganization)
	api.GET("/orgs/:orgId", s.GetOrganization)

	compliance := api.Group("/orgs/:orgId/compliance")
	{
		compliance.GET("/settings", s.GetComplianceSettings)
		compliance.PUT("/settings", s.UpsertComplianceSettings)

		compliance.POST("/qr", s.GenerateQR)
		compliance.POST("/qr/order", s.GenerateQRFromOrder)
		compliance.POST("/invoices", s.GenerateInvoice)
		compliance.POST("/invoices/compliance-check", s.SubmitComplianceCheck)
		compliance.POST("/invoices/report", s.SubmitReport)
		compliance.POST("/invoices/clearance", s.SubmitClearance)

		compliance.GET("/onboarding/csr-subject", s.GetCSRSubject)
		compliance.POST("/onboarding/compliance", s.BeginComplianceOnboarding)
		compliance.POST("/onboarding/production", s.CompleteProductionOnboarding)
	}
}
