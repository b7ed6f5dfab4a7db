package models

import "time"

// MonitoringResponse resposta completa do monitoramento
type MonitoringResponse struct {
	Requests    RequestMetrics     `json:"requests"`
	Performance PerformanceMetrics `json:"performance"`
	Cache       CacheMetrics       `json:"cache"`
	Database    DatabaseMetrics    `json:"database"`
	System      SystemMetrics      `json:"system"`
	Redis       RedisMetrics       `json:"redis"`
	Realtime    RealtimeMetrics    `json:"realtime"`
	Eventos     EventosMetrics     `json:"eventos"`
	Ledger      LedgerMetrics      `json:"ledger"`
	Timestamp   string             `json:"timestamp"`
	Version     string             `json:"version"`
	GeneratedBy string             `json:"generated_by"`
}

// RequestMetrics contadores por rota ("METHOD /rota/:param")
type RequestMetrics struct {
	Total             int                        `json:"total"`
	ByEndpoint        map[string]EndpointMetrics `json:"by_endpoint"`
	SlowRequests      []SlowRequest              `json:"slow_requests"`
	Errors            []RequestError             `json:"errors"`
	TotalRequests     int                        `json:"total_requests"`
	SlowRequestsCount int                        `json:"slow_requests_count"`
	ErrorsCount       int                        `json:"errors_count"`
	TopEndpoints      []TopEndpoint              `json:"top_endpoints"`
}

type EndpointMetrics struct {
	Count     int     `json:"count"`
	Erros     int     `json:"erros"`
	AvgTime   float64 `json:"avg_time_ms"`
	TotalTime int64   `json:"total_time_ms"`
	MaxTime   int64   `json:"max_time_ms"`
}

// SlowRequest acima de 1s
type SlowRequest struct {
	Endpoint  string    `json:"endpoint"`
	Duration  int64     `json:"duration_ms"`
	Timestamp time.Time `json:"timestamp"`
}

type RequestError struct {
	Endpoint   string    `json:"endpoint"`
	StatusCode int       `json:"status_code"`
	RequestID  string    `json:"request_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// TopEndpoint rotas mais usadas
type TopEndpoint struct {
	Endpoint  string `json:"endpoint"`
	Count     int    `json:"count"`
	AvgTimeMs string `json:"avg_time_ms"`
}

// PerformanceMetrics máximo e mínimo consideram a média de cada rota
type PerformanceMetrics struct {
	AvgResponseTime   float64 `json:"avg_response_time"`
	MaxResponseTime   int64   `json:"max_response_time"`
	MinResponseTime   int64   `json:"min_response_time"`
	AvgResponseTimeMs string  `json:"avg_response_time_ms"`
	MaxResponseTimeMs string  `json:"max_response_time_ms"`
	MinResponseTimeMs string  `json:"min_response_time_ms"`
}

// CacheMetrics cache de produtos por EAN (L1 em memória, L2 no Redis)
type CacheMetrics struct {
	RedisL2           bool    `json:"redis_l2"`
	L1Keys            int     `json:"l1_keys"`
	MaxL1Keys         int     `json:"max_l1_keys"`
	TTL               string  `json:"ttl"`
	HitRate           float64 `json:"hit_rate"`
	Status            string  `json:"status"`
	HitRatePercentage string  `json:"hit_rate_percentage"`
	TotalHits         int64   `json:"total_hits"`
	TotalMisses       int64   `json:"total_misses"`
	TotalRequests     int64   `json:"total_requests"`
}

// DatabaseMetrics pool do database/sql
type DatabaseMetrics struct {
	ActiveConnections int    `json:"active_connections"`
	IdleConnections   int    `json:"idle_connections"`
	OpenConnections   int    `json:"open_connections"`
	MaxOpen           int    `json:"max_open"`
	WaitCount         int64  `json:"wait_count"`
	WaitDuration      string `json:"wait_duration"`
	Status            string `json:"status"`
}

type SystemMetrics struct {
	MemoryUsage string        `json:"memory_usage_mb"`
	Uptime      float64       `json:"uptime_seconds"`
	Memory      MemoryMetrics `json:"memory"`
	Goroutines  int           `json:"goroutines"`
	UptimeHours string        `json:"uptime_hours"`
	GoVersion   string        `json:"go_version"`
	Platform    string        `json:"platform"`
	Environment string        `json:"environment"`
}

type MemoryMetrics struct {
	HeapUsed  string `json:"heap_used"`
	HeapTotal string `json:"heap_total"`
	Sys       string `json:"sys"`
	NumGC     uint32 `json:"num_gc"`
}

// RedisMetrics Keys conta apenas produtos em cache, não o banco inteiro
type RedisMetrics struct {
	Connected bool   `json:"connected"`
	Keys      int    `json:"produtos_em_cache"`
	Memory    string `json:"used_memory"`
	Status    string `json:"status"`
	MemoryMB  string `json:"memory_mb"`
}

// RealtimeMetrics estado do relay de contagens
type RealtimeMetrics struct {
	ClientesConectados int    `json:"clientes_conectados"`
	Canal              string `json:"canal"`
}

// EventosMetrics estado do publicador de eventos de movimentação
type EventosMetrics struct {
	Habilitado bool   `json:"habilitado"`
	Exchange   string `json:"exchange"`
	Publicados int64  `json:"publicados"`
	Falhas     int64  `json:"falhas"`
}

// LedgerMetrics retrato do ledger no momento da coleta
type LedgerMetrics struct {
	Status          string         `json:"status"`
	Locais          []LocalMetrics `json:"locais"`
	GruposPendentes int            `json:"grupos_pendentes"`
}

type LocalMetrics struct {
	Local         Local `json:"local"`
	Lotes         int   `json:"lotes"`
	Unidades      int64 `json:"unidades"`
	LotesVencidos int   `json:"lotes_vencidos"`
}

// RequestData dados de uma requisição individual
type RequestData struct {
	Endpoint   string
	Method     string
	Duration   time.Duration
	StatusCode int
	RequestID  string
	Timestamp  time.Time
	Error      error
}
