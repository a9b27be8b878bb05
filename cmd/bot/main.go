package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leetbot/internal/bot"
	"leetbot/internal/common/cache"
	"leetbot/internal/common/db"
	commonmw "leetbot/internal/common/http/middleware"
	"leetbot/internal/leetcode"
	"leetbot/internal/problem/controller"
	problemrepo "leetbot/internal/problem/repository"
	problemservice "leetbot/internal/problem/service"
	threadrepo "leetbot/internal/thread/repository"
	threadservice "leetbot/internal/thread/service"
	"leetbot/pkg/utils/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultConfigPath = "configs/bot.yaml"

func main() {
	configPath := flag.String("config", defaultConfigPath, "Path to config file")
	flag.Parse()

	appCfg, err := loadAppConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load app config failed: %v\n", err)
		return
	}

	if err := logger.Init(appCfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	mysqlDB, err := db.NewMySQLWithConfig(&appCfg.Database)
	if err != nil {
		logger.Error(context.Background(), "init database failed", zap.Error(err))
		return
	}
	defer func() {
		_ = mysqlDB.Close()
	}()
	dbProvider := db.NewManager(mysqlDB)

	redisCache, err := cache.NewRedisCacheWithConfig(&appCfg.Redis)
	if err != nil {
		logger.Error(context.Background(), "init redis failed", zap.Error(err))
		return
	}
	defer func() {
		_ = redisCache.Close()
	}()

	apiClient := leetcode.NewClient(appCfg.API)
	repo := problemrepo.NewProblemRepository(dbProvider, redisCache)
	problems := problemservice.NewProblemService(repo, apiClient)

	registry := threadrepo.NewRegistry(dbProvider)
	if err := registry.LoadCache(context.Background()); err != nil {
		logger.Error(context.Background(), "load thread registry failed", zap.Error(err))
		return
	}

	discordBot, err := bot.New(appCfg.Bot, problems, registry)
	if err != nil {
		logger.Error(context.Background(), "init discord bot failed", zap.Error(err))
		return
	}
	reconciler := threadservice.NewReconciler(registry, discordBot.Platform())
	discordBot.SetReconciler(reconciler)

	if err := discordBot.Open(context.Background()); err != nil {
		logger.Error(context.Background(), "open discord session failed", zap.Error(err))
		return
	}
	defer func() {
		_ = discordBot.Close()
	}()

	httpServer := buildHTTPServer(appCfg.Server, problems)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if appCfg.Refresh.Enabled {
		refresher := problemservice.NewRefresher(problems, appCfg.Refresh.Interval)
		go refresher.Run(shutdownCtx)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(context.Background(), "admin http server started", zap.String("addr", appCfg.Server.Addr))
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(context.Background(), "server stopped", zap.Error(err))
		}
	case <-shutdownCtx.Done():
		logger.Info(context.Background(), "shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Error(context.Background(), "http server shutdown failed", zap.Error(err))
	}
}

func buildHTTPServer(cfg ServerConfig, problems *problemservice.ProblemService) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(commonmw.TraceContextMiddleware())
	router.Use(requestLogger())

	problemController := controller.NewProblemController(problems)
	router.GET("/healthz", problemController.Health)

	api := router.Group("/api/v1")
	api.GET("/problems/daily", problemController.Daily)
	api.GET("/problems/random", problemController.Random)
	api.GET("/problems/:id", problemController.Get)
	api.POST("/refresh", problemController.Refresh)

	return &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		logger.Info(
			c.Request.Context(),
			"request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
