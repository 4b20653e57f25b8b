package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/health"
	"gmailscraper/backend/internal/middleware"
	"gmailscraper/backend/internal/monitoring"
	"gmailscraper/backend/internal/service"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config     *config.Config
	RunService *service.RunService
	Health     *health.HealthChecker
	Metrics    *monitoring.Metrics
	Logger     *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	// 使用自定义中间件替代默认中间件
	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.BodySizeLimit(middleware.DefaultBodyLimit))

	if deps.Metrics != nil {
		mm := middleware.NewMonitoringMiddleware(deps.Metrics)
		router.Use(mm.HTTPMetrics())
	}

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	handler := NewScrapeHandler(deps.RunService, deps.Config, deps.Logger)
	triggerAuth := middleware.NewTriggerAuth(deps.Config.Trigger.Token)

	// 服务标识
	router.GET("/", handler.Identity)

	// 抓取触发（同步执行）
	router.POST("/scrape", triggerAuth.RequireToken(), handler.TriggerScrape)

	// 健康检查探针
	if deps.Health != nil {
		router.GET("/healthz/live", gin.WrapF(deps.Health.LiveEndpoint))
		router.GET("/healthz/ready", gin.WrapF(deps.Health.ReadyEndpoint))
	}

	// Prometheus 指标
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
