// Package app is the composition root shared by the HTTP server and the CLI.
package app

import (
	"net/http"
	"time"

	"purchaseledger/internal/auditlog"
	"purchaseledger/internal/config"
	"purchaseledger/internal/database"
	"purchaseledger/internal/handler"
	"purchaseledger/internal/metrics"
	"purchaseledger/internal/middleware"
	"purchaseledger/internal/repository"
	"purchaseledger/internal/service"
	"purchaseledger/internal/websocket"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// App holds the wired dependency graph (Repository -> Service -> Handler).
type App struct {
	Config  *config.Config
	DB      *gorm.DB
	Hub     *websocket.Hub
	Metrics *metrics.Registry
	Audit   *auditlog.Writer

	Providers service.ProviderService
	Catalog   service.CatalogService
	Purchases service.PurchaseService
	Analysis  service.AnalysisService
	Transfer  service.TransferService
	Backup    service.BackupService
	Auth      service.AuthService
}

// New builds every repository and service on top of db. The hub is created
// but not started; call Hub.Run when serving.
func New(cfg *config.Config, db *gorm.DB) *App {
	m := metrics.NewRegistry()
	hub := websocket.NewHub()
	audit := auditlog.NewWriter(cfg.AuditLogPath)

	txManager := repository.NewTransactionManager(db)
	providerRepo := repository.NewProviderRepository(db)
	catalogRepo := repository.NewCatalogRepository(db)
	purchaseRepo := repository.NewPurchaseRepository(db)
	costHistoryRepo := repository.NewCostHistoryRepository(db)
	analysisRepo := repository.NewAnalysisRepository(db)
	maintenanceRepo := repository.NewMaintenanceRepository(db)

	var secret []byte
	if cfg.AuthEnabled() {
		secret = cfg.Secret()
	}

	return &App{
		Config:  cfg,
		DB:      db,
		Hub:     hub,
		Metrics: m,
		Audit:   audit,

		Providers: service.NewProviderService(providerRepo, purchaseRepo, costHistoryRepo, analysisRepo),
		Catalog:   service.NewCatalogService(catalogRepo, providerRepo, costHistoryRepo, txManager, m),
		Purchases: service.NewPurchaseService(purchaseRepo, catalogRepo, providerRepo, costHistoryRepo, txManager, hub, audit, m),
		Analysis:  service.NewAnalysisService(analysisRepo, providerRepo, catalogRepo),
		Transfer:  service.NewTransferService(purchaseRepo, catalogRepo, providerRepo, txManager, m),
		Backup:    service.NewBackupService(db, database.FilePath(cfg), maintenanceRepo, txManager),
		Auth:      service.NewAuthService(cfg.AdminPasswordHash, secret, time.Duration(cfg.JWTExpirationHours)*time.Hour),
	}
}

// Router builds the gin engine with middleware and every route registered.
func (a *App) Router() *gin.Engine {
	if a.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(), middleware.Recovery(), middleware.Metrics(a.Metrics))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = a.Config.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", "X-Request-ID"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(a.Metrics.Handler()))
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	var wsSecret []byte
	var settingsGuard gin.HandlerFunc
	if a.Auth.Enabled() {
		wsSecret = a.Config.Secret()
		settingsGuard = middleware.RequireRole(wsSecret, service.RoleAdmin)
	}
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(a.Hub, c, wsSecret)
	})

	api := router.Group("")
	handler.NewProviderHandler(a.Providers).RegisterRoutes(api)
	handler.NewCatalogHandler(a.Catalog).RegisterRoutes(api)
	handler.NewPurchaseHandler(a.Purchases).RegisterRoutes(api)
	handler.NewAnalysisHandler(a.Analysis).RegisterRoutes(api)
	handler.NewSettingsHandler(a.Catalog, a.Transfer, a.Backup, a.Audit, settingsGuard).RegisterRoutes(api)
	handler.NewAuthHandler(a.Auth).RegisterRoutes(api)

	return router
}
