package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"gmailscraper/backend/internal/config"
	"gmailscraper/backend/internal/gsuite"
	"gmailscraper/backend/internal/health"
	"gmailscraper/backend/internal/logger"
	"gmailscraper/backend/internal/monitoring"
	"gmailscraper/backend/internal/service"
	"gmailscraper/backend/internal/sink"
	"gmailscraper/backend/internal/sink/bigquery"
	"gmailscraper/backend/internal/sink/memory"
	httptransport "gmailscraper/backend/internal/transport/http"
	"gmailscraper/backend/internal/watermark"
)

// main 启动抓取触发 HTTP 服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 设置 Gin 模式（基于开发环境标志）
	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// 初始化日志系统
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting gmail-scraper server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("project", cfg.BigQuery.ProjectID),
		zap.String("dataset", cfg.BigQuery.DatasetID),
		zap.String("table", cfg.BigQuery.TableID),
	)

	if err := cfg.ValidateForRun(); err != nil {
		log.Warn("scrape configuration incomplete, /scrape will fail until fixed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 初始化监控系统
	metrics := monitoring.NewMetrics()

	// 加载服务账号凭证
	var directory service.DirectoryLister
	var mailbox service.MailboxFetcher
	creds, err := gsuite.LoadCredentials(cfg.Google.CredentialsFile, config.DefaultScopes)
	if err != nil {
		log.Warn("service account credentials unavailable, /scrape will fail until fixed", zap.Error(err))
	} else {
		directory = gsuite.NewDirectoryClient(creds, cfg.Google.AdminEmail, cfg.Scrape.UserPageSize, metrics, log)
		mailbox = gsuite.NewMailboxClient(creds, cfg.Google.RequestsPerSecond, cfg.Scrape.MessagePageSize, metrics, log)
	}

	// 初始化写入目标
	var sinkWriter sink.Writer
	if cfg.BigQuery.ProjectID == "" {
		log.Warn("no BigQuery project configured, using in-memory sink (development mode)")
		sinkWriter = memory.NewStore()
	} else {
		writer, err := bigquery.NewWriter(ctx, cfg.BigQuery, metrics, log)
		if err != nil {
			log.Fatal("failed to create BigQuery writer", zap.Error(err))
		}
		defer writer.Close()
		sinkWriter = writer
	}

	// 初始化水位线存储
	var marks watermark.Store
	var redisMarks *watermark.RedisStore
	if cfg.Redis.Address != "" {
		redisMarks, err = watermark.NewRedisStore(cfg.Redis, log)
		if err != nil {
			log.Fatal("failed to connect watermark store", zap.Error(err))
		}
		defer redisMarks.Close()
		marks = redisMarks
		log.Info("using redis watermark store", zap.String("address", cfg.Redis.Address))
	} else {
		marks = watermark.NewMemoryStore()
		log.Info("using in-memory watermark store")
	}

	// 初始化健康检查（Redis 配置时纳入就绪探针）
	var pinger health.Pinger
	if redisMarks != nil {
		pinger = redisMarks
	}
	healthChecker := health.NewHealthChecker(pinger, log)

	// 初始化运行编排服务
	runService := service.NewRunService(directory, mailbox, sinkWriter, marks, cfg.Scrape, metrics, log)

	// 创建 HTTP 服务器
	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:     cfg,
		RunService: runService,
		Health:     healthChecker,
		Metrics:    metrics,
		Logger:     log,
	})

	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 抓取同步执行，响应可能要等完整一轮运行
		WriteTimeout: 30 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)

	// HTTP 服务器 goroutine
	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}
