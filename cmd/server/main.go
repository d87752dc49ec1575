package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"factmarket/internal/cache"
	"factmarket/internal/client/assessor"
	"factmarket/internal/config"
	cronrunner "factmarket/internal/cron"
	"factmarket/internal/db"
	"factmarket/internal/handler"
	"factmarket/internal/logger"
	"factmarket/internal/notify"
	gormrepository "factmarket/internal/repository/gorm"
	"factmarket/internal/service"
	"factmarket/internal/stream"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("FM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("FM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var priceCache *cache.Cache
	if cfg.Redis.Enabled {
		priceCache, err = cache.New(ctx, cache.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			logger.Warn("redis unavailable, running without cache", zap.Error(err))
			priceCache = nil
		}
	}

	store := gormrepository.New(dbConn.Gorm)
	hub := stream.NewHub(logger)

	var notifier notify.Notifier
	if strings.TrimSpace(cfg.Notify.WebhookURL) != "" {
		notifier = &notify.WebhookNotifier{
			URL:    cfg.Notify.WebhookURL,
			HTTP:   &http.Client{Timeout: cfg.Notify.Timeout},
			Logger: logger,
		}
	} else {
		notifier = &notify.LogNotifier{Logger: logger}
	}

	tradingSvc := &service.TradingService{
		Repo:   store,
		Logger: logger,
		Hub:    hub,
		Cache:  priceCache,
		Config: cfg.Trading,
		Market: cfg.Market,
	}
	statsSvc := &service.StatsService{
		Repo:   store,
		Cache:  priceCache,
		Logger: logger,
		Config: cfg.Stats,
	}
	lifecycleSvc := &service.LifecycleService{
		Repo:     store,
		Stats:    statsSvc,
		Notifier: notifier,
		Hub:      hub,
		Cache:    priceCache,
		Logger:   logger,
		Market:   cfg.Market,
	}
	portfolioSvc := &service.PortfolioService{Repo: store}
	voteSvc := &service.VoteService{Repo: store}

	assessorClient := assessor.NewClient(&http.Client{Timeout: cfg.Assessor.Timeout}, cfg.Assessor.BaseURL)
	seedingSvc := &service.SeedingService{
		Repo:     store,
		Assessor: assessorClient,
		Trading:  tradingSvc,
		Logger:   logger,
		Config:   cfg.Seeding,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn}
	healthHandler.Register(engine)
	marketHandler := &handler.MarketHandler{Repo: store, Lifecycle: lifecycleSvc, Trading: tradingSvc}
	marketHandler.Register(engine)
	tradeHandler := &handler.TradeHandler{Trading: tradingSvc}
	tradeHandler.Register(engine)
	resolutionHandler := &handler.ResolutionHandler{Lifecycle: lifecycleSvc}
	resolutionHandler.Register(engine)
	voteHandler := &handler.VoteHandler{Votes: voteSvc}
	voteHandler.Register(engine)
	portfolioHandler := &handler.PortfolioHandler{Repo: store, Portfolio: portfolioSvc}
	portfolioHandler.Register(engine)
	leaderboardHandler := &handler.LeaderboardHandler{Stats: statsSvc}
	leaderboardHandler.Register(engine)
	streamHandler := &handler.StreamHandler{Repo: store, Hub: hub}
	streamHandler.Register(engine)

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		if _, err := cronRunner.Add("seed_scan", cfg.Cron.SeedScan, seedingSvc.ScanAndSeed); err != nil {
			logger.Warn("cron register seed scan failed", zap.Error(err))
		}
		if _, err := cronRunner.Add("reassess_scan", cfg.Cron.ReassessScan, seedingSvc.ScanAndReassess); err != nil {
			logger.Warn("cron register reassess scan failed", zap.Error(err))
		}
		cronRunner.Start()
		defer cronRunner.Stop()
	}

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: engine,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
