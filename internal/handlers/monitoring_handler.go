package handlers

import (
	"context"
	"net/http"
	"time"

	"estoque-service/internal/middleware"
	"estoque-service/internal/models"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const intervaloMetricasWS = 10 * time.Second

type MonitoringHandler struct {
	monitoringService services.MonitoringService
	logger            *zap.Logger
}

func NewMonitoringHandler(monitoringService services.MonitoringService, logger *zap.Logger) *MonitoringHandler {
	return &MonitoringHandler{
		monitoringService: monitoringService,
		logger:            logger,
	}
}

// GetMetrics GET /monitoring/metrics
func (h *MonitoringHandler) GetMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "get_metrics"))

	metrics := h.monitoringService.GetMetrics(c.Request.Context())

	logger.Debug("Métricas obtidas",
		zap.Int("total_requests", metrics.Requests.TotalRequests),
		zap.Int("total_endpoints", metrics.Requests.Total),
		zap.String("avg_response_time", metrics.Performance.AvgResponseTimeMs))

	c.JSON(http.StatusOK, metrics)
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketMetrics envia as métricas a cada 10 segundos
func (h *MonitoringHandler) WebSocketMetrics(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "websocket_metrics"))

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error("Erro no upgrade para WebSocket", zap.Error(err))
		return
	}
	defer conn.Close()

	logger.Info("🔌 Conexão WebSocket de métricas estabelecida")

	// o cliente não envia nada; a leitura só detecta o fechamento
	fechado := make(chan struct{})
	go func() {
		defer close(fechado)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(intervaloMetricasWS)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			metrics := h.monitoringService.GetMetrics(ctx)
			cancel()

			conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := conn.WriteJSON(metrics); err != nil {
				logger.Warn("Erro enviando métricas por WebSocket", zap.Error(err))
				return
			}
		case <-fechado:
			logger.Info("Conexão WebSocket de métricas fechada pelo cliente")
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

// RecordRequestMiddleware registra duração e status de cada requisição
func (h *MonitoringHandler) RecordRequestMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		if shouldSkipMonitoring(path) {
			return
		}

		var reqErr error
		if last := c.Errors.Last(); last != nil {
			reqErr = last.Err
		}

		h.monitoringService.RecordRequest(models.RequestData{
			Endpoint:   path,
			Method:     c.Request.Method,
			Duration:   time.Since(start),
			StatusCode: c.Writer.Status(),
			RequestID:  c.Writer.Header().Get(middleware.HeaderRequestID),
			Timestamp:  time.Now(),
			Error:      reqErr,
		})
	}
}

// shouldSkipMonitoring rotas do próprio monitoramento não entram nas métricas
func shouldSkipMonitoring(path string) bool {
	switch path {
	case "/api/v1/monitoring/metrics",
		"/api/v1/monitoring/metrics/summary",
		"/api/v1/monitoring/ws",
		"/api/v1/contagens/ws",
		"/health",
		"/":
		return true
	}
	return false
}

// GetMetricsSummary GET /monitoring/metrics/summary
func (h *MonitoringHandler) GetMetricsSummary(c *gin.Context) {
	m := h.monitoringService.GetMetrics(c.Request.Context())

	var lotes, vencidos int
	var unidades int64
	for _, l := range m.Ledger.Locais {
		lotes += l.Lotes
		vencidos += l.LotesVencidos
		unidades += l.Unidades
	}

	c.JSON(http.StatusOK, gin.H{
		"trafego": gin.H{
			"requisicoes":   m.Requests.TotalRequests,
			"rotas":         m.Requests.Total,
			"erros":         m.Requests.ErrorsCount,
			"lentas":        m.Requests.SlowRequestsCount,
			"tempo_medio":   m.Performance.AvgResponseTimeMs,
			"tempo_maximo":  m.Performance.MaxResponseTimeMs,
			"mais_acessada": rotaMaisUsada(m.Requests.TopEndpoints),
		},
		"infra": gin.H{
			"postgres":      m.Database.Status,
			"conexoes_uso":  m.Database.ActiveConnections,
			"redis":         m.Redis.Status,
			"cache_hit":     m.Cache.HitRatePercentage,
			"rabbitmq":      m.Eventos.Habilitado,
			"memoria_mb":    m.System.MemoryUsage,
			"uptime":        m.System.UptimeHours,
			"clientes_ws":   m.Realtime.ClientesConectados,
			"eventos_falha": m.Eventos.Falhas,
		},
		"estoque": gin.H{
			"status":           m.Ledger.Status,
			"lotes":            lotes,
			"unidades":         unidades,
			"lotes_vencidos":   vencidos,
			"grupos_pendentes": m.Ledger.GruposPendentes,
			"por_local":        m.Ledger.Locais,
		},
		"timestamp": m.Timestamp,
	})
}

func rotaMaisUsada(top []models.TopEndpoint) string {
	if len(top) == 0 {
		return ""
	}
	return top[0].Endpoint
}
