package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/whoneedsawriter/platform/internal/apikey"
	apikeydomain "github.com/whoneedsawriter/platform/internal/apikey/domain"
	"github.com/whoneedsawriter/platform/internal/article"
	articledomain "github.com/whoneedsawriter/platform/internal/article/domain"
	"github.com/whoneedsawriter/platform/internal/auth"
	"github.com/whoneedsawriter/platform/internal/batch"
	batchdomain "github.com/whoneedsawriter/platform/internal/batch/domain"
	"github.com/whoneedsawriter/platform/internal/config"
	"github.com/whoneedsawriter/platform/internal/generator"
	generatordomain "github.com/whoneedsawriter/platform/internal/generator/domain"
	"github.com/whoneedsawriter/platform/internal/ledger"
	ledgerdomain "github.com/whoneedsawriter/platform/internal/ledger/domain"
	"github.com/whoneedsawriter/platform/internal/poller"
	"github.com/whoneedsawriter/platform/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	auth.Module,
	apikey.Module,
	article.Module,
	batch.Module,
	generator.Module,
	ledger.Module,
	poller.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	return r
}

func registerGin(log *zap.Logger, registry *prometheus.Registry) *gin.Engine {
	return NewEngine(log, registry)
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
	engine         *gin.Engine
	cfg            config.Config
	resolver       auth.Resolver
	apiKeySvc      apikeydomain.Service
	articleSvc     articledomain.Service
	batchSvc       batchdomain.Service
	generatorSvc   generatordomain.Service
	ledgerSvc      ledgerdomain.Service
	pollerSvc      poller.Service
	gatewayLimiter *ratelimit.GatewayLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Resolver     auth.Resolver
	APIKeySvc    apikeydomain.Service
	ArticleSvc   articledomain.Service
	BatchSvc     batchdomain.Service
	GeneratorSvc generatordomain.Service
	LedgerSvc    ledgerdomain.Service
	PollerSvc    poller.Service

	GatewayLimiter *ratelimit.GatewayLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		resolver:       p.Resolver,
		apiKeySvc:      p.APIKeySvc,
		articleSvc:     p.ArticleSvc,
		batchSvc:       p.BatchSvc,
		generatorSvc:   p.GeneratorSvc,
		ledgerSvc:      p.LedgerSvc,
		pollerSvc:      p.PollerSvc,
		gatewayLimiter: p.GatewayLimiter,
	}

	s.registerAppRoutes()
	s.registerExternalRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAppRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	gen := api.Group("/article-generator")
	gen.POST("", s.SubmitGeneration)
	gen.POST("/batch", s.CreateBatch)
	gen.POST("/check-godmode-completion", s.CheckGodModeCompletion)
	gen.GET("/batch-name", s.GetBatchName)
	gen.GET("/batches", s.ListBatches)

	keys := api.Group("/api-keys")
	keys.GET("", s.GetAPIKey)
	keys.POST("", s.CreateAPIKey)
	keys.DELETE("", s.RevokeAPIKey)

	articles := api.Group("/articles")
	articles.GET("", s.GetArticles)
	articles.PUT("", s.UpdateArticle)
	articles.DELETE("", s.DeleteArticle)

	api.GET("/credits", s.GetCredits)
}

func (s *Server) registerExternalRoutes() {
	external := s.engine.Group("/v1")
	external.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{http.MethodGet, http.MethodPost},
		AllowHeaders:    []string{"Content-Type", headerAPIKey},
		MaxAge:          12 * time.Hour,
	}))
	external.Use(s.APIKeyRequired())

	external.POST("/tasks", s.CreateExternalTask)
	external.GET("/status", s.ExternalTaskStatus)
}
