package middleware

import (
	"context"
	"net/http"
	"time"

	"estoque-service/internal/cache"
	"estoque-service/internal/database"
	"estoque-service/internal/events"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type HealthChecker struct {
	postgresDB *database.PostgresDB
	redisDB    *database.RedisDB
	publisher  events.Publisher
	logger     *zap.Logger
}

// NewHealthChecker redisDB nil significa Redis desabilitado, não falho
func NewHealthChecker(postgresDB *database.PostgresDB, redisDB *database.RedisDB, publisher events.Publisher, logger *zap.Logger) *HealthChecker {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &HealthChecker{
		postgresDB: postgresDB,
		redisDB:    redisDB,
		publisher:  publisher,
		logger:     logger,
	}
}

// HealthCheck Postgres é obrigatório (503 quando fora); Redis e RabbitMQ só degradam
func (h *HealthChecker) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status := "healthy"
	services := gin.H{}

	postgresStatus := "healthy"
	if err := h.postgresDB.DB.PingContext(ctx); err != nil {
		postgresStatus = "unhealthy"
		status = "unhealthy"
		h.logger.Error("PostgreSQL health check failed", zap.Error(err))
	}
	// tabelas faltando deixam o ledger inoperante: conta como unhealthy
	esquema := gin.H{"status": "ok"}
	if postgresStatus == "healthy" {
		ausentes, err := database.TabelasAusentes(ctx, h.postgresDB.DB)
		switch {
		case err != nil:
			esquema = gin.H{"status": "unknown", "error": err.Error()}
		case len(ausentes) > 0:
			esquema = gin.H{"status": "incomplete", "tabelas_ausentes": ausentes}
			postgresStatus, status = "unhealthy", "unhealthy"
			h.logger.Error("Schema incompleto", zap.Strings("tabelas_ausentes", ausentes))
		}
	}
	postgresStats := h.postgresDB.GetStats()
	services["postgresql"] = gin.H{
		"status": postgresStatus,
		"schema": esquema,
		"stats": gin.H{
			"max_open_connections": postgresStats.MaxOpenConnections,
			"open_connections":     postgresStats.OpenConnections,
			"in_use":               postgresStats.InUse,
			"idle":                 postgresStats.Idle,
		},
	}

	if h.redisDB == nil {
		services["redis"] = gin.H{"status": "disabled"}
	} else {
		redis := gin.H{"status": "healthy"}
		if err := h.redisDB.Ping(ctx); err != nil {
			redis["status"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
			h.logger.Warn("Redis health check failed", zap.Error(err))
		} else if n, err := h.redisDB.ContarChaves(ctx, cache.PrefixoRedis+"*"); err == nil {
			redis["produtos_em_cache"] = n
		}
		services["redis"] = redis
	}

	eventos := h.publisher.Stats()
	rabbitStatus := "disabled"
	if eventos.Habilitado {
		rabbitStatus = "healthy"
	}
	services["rabbitmq"] = gin.H{
		"status":     rabbitStatus,
		"exchange":   eventos.Exchange,
		"publicados": eventos.Publicados,
		"falhas":     eventos.Falhas,
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"services":  services,
	})
}
