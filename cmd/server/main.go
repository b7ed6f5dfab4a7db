package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estoque-service/internal/cache"
	"estoque-service/internal/config"
	"estoque-service/internal/database"
	"estoque-service/internal/events"
	"estoque-service/internal/handlers"
	"estoque-service/internal/middleware"
	"estoque-service/internal/realtime"
	"estoque-service/internal/repository"
	"estoque-service/internal/routes"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	logger, err := novoLogger(cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	postgresDB, err := database.NewPostgresDB(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("❌ Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer postgresDB.Close()

	if cfg.Database.AutoMigrate {
		if err := postgresDB.Migrate(ctx, logger); err != nil {
			logger.Fatal("❌ Failed to apply schema", zap.Error(err))
		}
	}

	// Redis é opcional: sem ele o cache de produtos fica só em memória
	var redisDB *database.RedisDB
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisDB, err = database.NewRedisDB(cfg.Redis, logger)
		if err != nil {
			logger.Warn("⚠️ Redis indisponível, seguindo apenas com cache L1", zap.Error(err))
			redisDB = nil
		} else {
			redisClient = redisDB.Client
			defer redisDB.Close()
		}
	}

	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		rabbit, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Warn("⚠️ RabbitMQ indisponível, eventos desabilitados", zap.Error(err))
		} else {
			publisher = rabbit
		}
	}
	defer publisher.Close()

	productCache := cache.NewProductCache(redisClient, cfg.Estoque.CacheL1MaxSize, cfg.Estoque.CacheTTL, logger)
	defer productCache.Close()

	repos := repository.NewRepositorios(postgresDB.DB)
	txRunner := repository.NewTxRunner(postgresDB.DB)

	produtoService := services.NewProdutoService(repos.Produtos, productCache, logger)
	estoqueService := services.NewEstoqueService(txRunner, repos, produtoService, publisher, logger)
	contagemService := services.NewContagemService(txRunner, repos, produtoService, publisher, logger)
	importacaoService := services.NewImportacaoService(repos.Produtos, produtoService, estoqueService, logger)
	relatorioRepo := repository.NewRelatorioRepository(postgresDB.DB)
	relatorioService := services.NewRelatorioService(relatorioRepo, repos, logger)

	// relay de contagens: NOTIFY do Postgres -> websocket
	hub := realtime.NewHub(cfg.Estoque.CanalContagens, logger)
	go hub.Run(ctx)
	listener := realtime.NewListener(postgresDB.DSN, cfg.Estoque.CanalContagens, hub, logger)
	go func() {
		if err := listener.Run(ctx); err != nil {
			logger.Error("❌ Listener de contagens parou", zap.Error(err))
		}
	}()

	monitoringService := services.NewMonitoringService(logger, cfg, redisClient, postgresDB.DB, productCache, publisher, hub, relatorioRepo)

	monitoringHandler := handlers.NewMonitoringHandler(monitoringService, logger)
	h := routes.Handlers{
		Estoque:    handlers.NewEstoqueHandler(estoqueService, logger),
		Contagem:   handlers.NewContagemHandler(contagemService, hub, logger),
		Produto:    handlers.NewProdutoHandler(produtoService, logger),
		Relatorio:  handlers.NewRelatorioHandler(relatorioService, logger),
		Importacao: handlers.NewImportacaoHandler(importacaoService, cfg.Estoque.MaxUploadBytes, logger),
		Monitoring: monitoringHandler,
		Health:     middleware.NewHealthChecker(postgresDB, redisDB, publisher, logger),
	}

	gin.SetMode(cfg.Server.GinMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(logger))
	router.Use(middleware.SessaoMiddleware(cfg.Estoque.UsuarioPadrao))
	router.Use(monitoringHandler.RecordRequestMiddleware())

	routes.SetupRoutes(router, h)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		middleware.ServerInfo(cfg, logger)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("❌ Server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("🛑 Shutting down server")

	// encerra hub e listener antes do servidor
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func novoLogger(level string) (*zap.Logger, error) {
	nivel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		nivel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = nivel
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapCfg.Build()
}
