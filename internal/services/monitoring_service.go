package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"estoque-service/internal/cache"
	"estoque-service/internal/config"
	"estoque-service/internal/events"
	"estoque-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	limiteRequestLento = 1000 // ms
	maxHistoricoErros  = 100
)

type MonitoringService interface {
	GetMetrics(ctx context.Context) *models.MonitoringResponse
	RecordRequest(data models.RequestData)
	GetCacheStats() models.CacheMetrics
	GetDatabaseStats(ctx context.Context) models.DatabaseMetrics
	GetSystemStats() models.SystemMetrics
	GetRedisStats(ctx context.Context) models.RedisMetrics
	GetLedgerStats(ctx context.Context) models.LedgerMetrics
}

// FonteRealtime expõe quantos clientes acompanham as contagens
type FonteRealtime interface {
	ClientesConectados() int
}

// FonteLedger resumo do ledger e das contagens (repository.RelatorioRepository)
type FonteLedger interface {
	ResumoLedger(ctx context.Context) (*models.LedgerMetrics, error)
}

type monitoringService struct {
	logger       *zap.Logger
	config       *config.Config
	redisClient  *redis.Client
	dbPool       *sql.DB
	productCache *cache.ProductCache
	publisher    events.Publisher
	realtime     FonteRealtime
	ledger       FonteLedger

	requestsMutex sync.RWMutex
	requests      map[string]*models.EndpointMetrics
	slowRequests  []models.SlowRequest
	errors        []models.RequestError
	totalRequests int64

	startTime time.Time
}

// NewMonitoringService redisClient, productCache, realtime e ledger podem ser nil
func NewMonitoringService(
	logger *zap.Logger,
	config *config.Config,
	redisClient *redis.Client,
	dbPool *sql.DB,
	productCache *cache.ProductCache,
	publisher events.Publisher,
	realtime FonteRealtime,
	ledger FonteLedger,
) MonitoringService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &monitoringService{
		logger:       logger,
		config:       config,
		redisClient:  redisClient,
		dbPool:       dbPool,
		productCache: productCache,
		publisher:    publisher,
		realtime:     realtime,
		ledger:       ledger,
		requests:     make(map[string]*models.EndpointMetrics),
		startTime:    time.Now(),
	}
}

func (s *monitoringService) RecordRequest(data models.RequestData) {
	rota := data.Method + " " + data.Endpoint
	ms := data.Duration.Milliseconds()
	falhou := data.Error != nil || data.StatusCode >= 400

	s.requestsMutex.Lock()
	defer s.requestsMutex.Unlock()

	m := s.requests[rota]
	if m == nil {
		m = &models.EndpointMetrics{}
		s.requests[rota] = m
	}
	m.Count++
	m.TotalTime += ms
	m.AvgTime = float64(m.TotalTime) / float64(m.Count)
	if ms > m.MaxTime {
		m.MaxTime = ms
	}
	if falhou {
		m.Erros++
	}
	s.totalRequests++

	if ms > limiteRequestLento {
		s.slowRequests = ultimos(append(s.slowRequests, models.SlowRequest{
			Endpoint:  rota,
			Duration:  ms,
			Timestamp: data.Timestamp,
		}))
	}
	if falhou {
		s.errors = ultimos(append(s.errors, models.RequestError{
			Endpoint:   rota,
			StatusCode: data.StatusCode,
			RequestID:  data.RequestID,
			Timestamp:  data.Timestamp,
		}))
	}
}

// ultimos mantém só os maxHistoricoErros mais recentes
func ultimos[T any](itens []T) []T {
	if len(itens) > maxHistoricoErros {
		return itens[len(itens)-maxHistoricoErros:]
	}
	return itens
}

func (s *monitoringService) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	s.requestsMutex.RLock()
	requestMetrics := s.calculateRequestMetrics()
	performanceMetrics := s.calculatePerformanceMetrics()
	s.requestsMutex.RUnlock()

	realtime := models.RealtimeMetrics{Canal: s.config.Estoque.CanalContagens}
	if s.realtime != nil {
		realtime.ClientesConectados = s.realtime.ClientesConectados()
	}

	return &models.MonitoringResponse{
		Requests:    requestMetrics,
		Performance: performanceMetrics,
		Cache:       s.GetCacheStats(),
		Database:    s.GetDatabaseStats(ctx),
		System:      s.GetSystemStats(),
		Redis:       s.GetRedisStats(ctx),
		Realtime:    realtime,
		Eventos:     s.publisher.Stats(),
		Ledger:      s.GetLedgerStats(ctx),
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
		Version:     "1.0",
		GeneratedBy: "estoque-service",
	}
}

// calculateRequestMetrics chamado com requestsMutex travado para leitura
func (s *monitoringService) calculateRequestMetrics() models.RequestMetrics {
	type endpoint struct {
		key     string
		metrics *models.EndpointMetrics
	}
	endpoints := make([]endpoint, 0, len(s.requests))
	byEndpoint := make(map[string]models.EndpointMetrics, len(s.requests))
	for key, metrics := range s.requests {
		endpoints = append(endpoints, endpoint{key, metrics})
		byEndpoint[key] = *metrics
	}

	sort.Slice(endpoints, func(i, j int) bool {
		if endpoints[i].metrics.Count == endpoints[j].metrics.Count {
			return endpoints[i].key < endpoints[j].key
		}
		return endpoints[i].metrics.Count > endpoints[j].metrics.Count
	})

	topEndpoints := make([]models.TopEndpoint, 0, 10)
	for i, e := range endpoints {
		if i >= 10 {
			break
		}
		topEndpoints = append(topEndpoints, models.TopEndpoint{
			Endpoint:  e.key,
			Count:     e.metrics.Count,
			AvgTimeMs: fmt.Sprintf("%.2fms", e.metrics.AvgTime),
		})
	}

	return models.RequestMetrics{
		Total:             len(s.requests),
		ByEndpoint:        byEndpoint,
		SlowRequests:      append([]models.SlowRequest(nil), s.slowRequests...),
		Errors:            append([]models.RequestError(nil), s.errors...),
		TotalRequests:     int(s.totalRequests),
		SlowRequestsCount: len(s.slowRequests),
		ErrorsCount:       len(s.errors),
		TopEndpoints:      topEndpoints,
	}
}

// calculatePerformanceMetrics usa a média de cada rota para máximo e mínimo
func (s *monitoringService) calculatePerformanceMetrics() models.PerformanceMetrics {
	var (
		totalTime int64
		maxTime   int64
		minTime   int64 = math.MaxInt64
		count     int
	)

	for _, metrics := range s.requests {
		totalTime += metrics.TotalTime
		avg := int64(metrics.AvgTime)
		if avg > maxTime {
			maxTime = avg
		}
		if avg < minTime {
			minTime = avg
		}
		count += metrics.Count
	}

	var avgTime float64
	if count > 0 {
		avgTime = float64(totalTime) / float64(count)
	}
	if minTime == math.MaxInt64 {
		minTime = 0
	}

	return models.PerformanceMetrics{
		AvgResponseTime:   avgTime,
		MaxResponseTime:   maxTime,
		MinResponseTime:   minTime,
		AvgResponseTimeMs: fmt.Sprintf("%.2fms", avgTime),
		MaxResponseTimeMs: fmt.Sprintf("%dms", maxTime),
		MinResponseTimeMs: fmt.Sprintf("%dms", minTime),
	}
}

func (s *monitoringService) GetCacheStats() models.CacheMetrics {
	if s.productCache == nil {
		return models.CacheMetrics{Status: "disabled"}
	}
	st := s.productCache.GetStats()

	var hitRate float64
	if st.TotalRequests > 0 {
		hitRate = float64(st.Hits) / float64(st.TotalRequests)
	}

	return models.CacheMetrics{
		RedisL2:           st.RedisL2,
		L1Keys:            st.TotalKeys,
		MaxL1Keys:         st.MaxL1Size,
		TTL:               st.TTL.String(),
		HitRate:           hitRate,
		Status:            "online",
		HitRatePercentage: fmt.Sprintf("%.2f%%", hitRate*100),
		TotalHits:         st.Hits,
		TotalMisses:       st.Misses,
		TotalRequests:     st.TotalRequests,
	}
}

func (s *monitoringService) GetDatabaseStats(ctx context.Context) models.DatabaseMetrics {
	if s.dbPool == nil {
		return models.DatabaseMetrics{Status: "offline"}
	}
	st := s.dbPool.Stats()
	m := models.DatabaseMetrics{
		ActiveConnections: st.InUse,
		IdleConnections:   st.Idle,
		OpenConnections:   st.OpenConnections,
		MaxOpen:           st.MaxOpenConnections,
		WaitCount:         st.WaitCount,
		WaitDuration:      st.WaitDuration.String(),
		Status:            "online",
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.dbPool.PingContext(pingCtx); err != nil {
		m.Status = "offline"
	}
	return m
}

func (s *monitoringService) GetSystemStats() models.SystemMetrics {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(s.startTime)
	environment := "production"
	if s.config.Server.GinMode == "debug" {
		environment = "development"
	}

	return models.SystemMetrics{
		MemoryUsage: megabytes(mem.Alloc),
		Uptime:      uptime.Seconds(),
		Memory: models.MemoryMetrics{
			HeapUsed:  megabytes(mem.HeapAlloc) + " MB",
			HeapTotal: megabytes(mem.HeapSys) + " MB",
			Sys:       megabytes(mem.Sys) + " MB",
			NumGC:     mem.NumGC,
		},
		Goroutines:  runtime.NumGoroutine(),
		UptimeHours: fmt.Sprintf("%.2fh", uptime.Hours()),
		GoVersion:   runtime.Version(),
		Platform:    runtime.GOOS + "/" + runtime.GOARCH,
		Environment: environment,
	}
}

func megabytes(b uint64) string {
	return fmt.Sprintf("%.2f", float64(b)/1024/1024)
}

func (s *monitoringService) GetRedisStats(ctx context.Context) models.RedisMetrics {
	if s.redisClient == nil {
		return models.RedisMetrics{Status: "disabled"}
	}
	if err := s.redisClient.Ping(ctx).Err(); err != nil {
		return models.RedisMetrics{Status: "offline"}
	}

	m := models.RedisMetrics{Connected: true, Status: "online"}
	iter := s.redisClient.Scan(ctx, 0, cache.PrefixoRedis+"*", 500).Iterator()
	for iter.Next(ctx) {
		m.Keys++
	}
	if err := iter.Err(); err != nil {
		s.logger.Debug("Falha contando produtos no Redis", zap.Error(err))
	}
	if info, err := s.redisClient.Info(ctx, "memory").Result(); err == nil {
		m.Memory, m.MemoryMB = usedMemory(info)
	}
	return m
}

func (s *monitoringService) GetLedgerStats(ctx context.Context) models.LedgerMetrics {
	if s.ledger == nil {
		return models.LedgerMetrics{Status: "disabled", Locais: []models.LocalMetrics{}}
	}
	qctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	resumo, err := s.ledger.ResumoLedger(qctx)
	if err != nil {
		s.logger.Warn("⚠️ Falha coletando resumo do ledger", zap.Error(err))
		return models.LedgerMetrics{Status: "offline", Locais: []models.LocalMetrics{}}
	}
	resumo.Status = "online"
	return *resumo
}

// usedMemory extrai used_memory do INFO memory
func usedMemory(info string) (string, string) {
	for _, line := range strings.Split(info, "\n") {
		if !strings.HasPrefix(line, "used_memory:") {
			continue
		}
		memory := strings.TrimSpace(strings.TrimPrefix(line, "used_memory:"))
		if bytes, err := strconv.ParseInt(memory, 10, 64); err == nil {
			return memory, fmt.Sprintf("%.2f MB", float64(bytes)/1024/1024)
		}
		return memory, ""
	}
	return "", ""
}
