package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"estoque-service/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// PrefixoRedis prefixo das chaves de produto no L2
const PrefixoRedis = "produto:ean:"

// ErrCacheMiss o produto não está em nenhum nível do cache
var ErrCacheMiss = errors.New("produto não encontrado no cache")

// CacheStats estatísticas do cache
type CacheStats struct {
	Hits          int64
	Misses        int64
	TotalRequests int64
	TotalKeys     int
	MaxL1Size     int
	TTL           time.Duration
	RedisL2       bool
}

// ProductCache cache em dois níveis para produtos, indexado por EAN
type ProductCache struct {
	// L1: memória local
	l1Cache map[string]*models.Produto
	l1Mutex sync.RWMutex

	// L2: Redis, opcional
	redisClient *redis.Client

	maxL1Size int
	ttl       time.Duration

	logger *zap.Logger

	statsMutex sync.RWMutex
	hits       int64
	misses     int64

	stop     chan struct{}
	stopOnce sync.Once
}

// NewProductCache cria o cache. redisClient nil deixa só o L1 ativo.
func NewProductCache(redisClient *redis.Client, maxL1Size int, ttl time.Duration, logger *zap.Logger) *ProductCache {
	if maxL1Size <= 0 {
		maxL1Size = 1000
	}
	pc := &ProductCache{
		l1Cache:     make(map[string]*models.Produto),
		redisClient: redisClient,
		maxL1Size:   maxL1Size,
		ttl:         ttl,
		logger:      logger,
		stop:        make(chan struct{}),
	}

	go pc.cleanupL1Cache()

	return pc
}

// Close encerra a rotina de limpeza do L1
func (pc *ProductCache) Close() {
	pc.stopOnce.Do(func() { close(pc.stop) })
}

// GetStats retorna as estatísticas do cache
func (pc *ProductCache) GetStats() CacheStats {
	pc.statsMutex.RLock()
	defer pc.statsMutex.RUnlock()

	pc.l1Mutex.RLock()
	totalKeys := len(pc.l1Cache)
	pc.l1Mutex.RUnlock()

	return CacheStats{
		Hits:          pc.hits,
		Misses:        pc.misses,
		TotalRequests: pc.hits + pc.misses,
		TotalKeys:     totalKeys,
		MaxL1Size:     pc.maxL1Size,
		TTL:           pc.ttl,
		RedisL2:       pc.redisClient != nil,
	}
}

// GetProduto busca no L1 e depois no L2; ErrCacheMiss quando nenhum tem o EAN
func (pc *ProductCache) GetProduto(ctx context.Context, ean string) (*models.Produto, error) {
	start := time.Now()

	if produto := pc.getFromL1(ean); produto != nil {
		pc.recordHit()
		pc.logger.Debug("L1 cache hit",
			zap.String("ean", ean),
			zap.Duration("latency", time.Since(start)))
		return produto, nil
	}

	if produto, err := pc.getFromL2(ctx, ean); err == nil && produto != nil {
		// promove para o L1
		pc.setToL1(ean, produto)
		pc.recordHit()
		pc.logger.Debug("L2 cache hit",
			zap.String("ean", ean),
			zap.Duration("latency", time.Since(start)))
		return produto, nil
	}

	pc.recordMiss()
	pc.logger.Debug("Cache miss",
		zap.String("ean", ean),
		zap.Duration("latency", time.Since(start)))

	return nil, ErrCacheMiss
}

func (pc *ProductCache) recordHit() {
	pc.statsMutex.Lock()
	pc.hits++
	pc.statsMutex.Unlock()
}

func (pc *ProductCache) recordMiss() {
	pc.statsMutex.Lock()
	pc.misses++
	pc.statsMutex.Unlock()
}

// SetProduto grava o produto nos dois níveis
func (pc *ProductCache) SetProduto(ctx context.Context, produto *models.Produto) error {
	if produto == nil || produto.EAN == "" {
		return nil
	}
	pc.setToL1(produto.EAN, produto)
	return pc.setToL2(ctx, produto.EAN, produto)
}

// InvalidateProduto remove o EAN dos dois níveis
func (pc *ProductCache) InvalidateProduto(ctx context.Context, ean string) error {
	pc.l1Mutex.Lock()
	delete(pc.l1Cache, ean)
	pc.l1Mutex.Unlock()

	if pc.redisClient == nil {
		return nil
	}
	return pc.redisClient.Del(ctx, redisKey(ean)).Err()
}

// Preload carrega produtos no cache (usado depois de importações)
func (pc *ProductCache) Preload(ctx context.Context, produtos []*models.Produto) {
	for _, p := range produtos {
		if err := pc.SetProduto(ctx, p); err != nil {
			pc.logger.Debug("Falha no preload do produto", zap.String("ean", p.EAN), zap.Error(err))
		}
	}
}

func redisKey(ean string) string {
	return PrefixoRedis + ean
}

func (pc *ProductCache) getFromL1(ean string) *models.Produto {
	pc.l1Mutex.RLock()
	defer pc.l1Mutex.RUnlock()
	return pc.l1Cache[ean]
}

func (pc *ProductCache) setToL1(ean string, produto *models.Produto) {
	pc.l1Mutex.Lock()
	defer pc.l1Mutex.Unlock()

	if _, ok := pc.l1Cache[ean]; !ok && len(pc.l1Cache) >= pc.maxL1Size {
		pc.evictOne()
	}

	pc.l1Cache[ean] = produto
}

// evictOne remove uma chave qualquer; chamado com l1Mutex travado
func (pc *ProductCache) evictOne() {
	for key := range pc.l1Cache {
		delete(pc.l1Cache, key)
		break
	}
}

func (pc *ProductCache) getFromL2(ctx context.Context, ean string) (*models.Produto, error) {
	if pc.redisClient == nil {
		return nil, ErrCacheMiss
	}
	data, err := pc.redisClient.Get(ctx, redisKey(ean)).Result()
	if err != nil {
		return nil, err
	}

	var produto models.Produto
	if err := json.Unmarshal([]byte(data), &produto); err != nil {
		return nil, err
	}

	return &produto, nil
}

func (pc *ProductCache) setToL2(ctx context.Context, ean string, produto *models.Produto) error {
	if pc.redisClient == nil {
		return nil
	}
	data, err := json.Marshal(produto)
	if err != nil {
		return err
	}

	return pc.redisClient.Set(ctx, redisKey(ean), data, pc.ttl).Err()
}

// cleanupL1Cache esvazia o L1 quando ele passa do limite
func (pc *ProductCache) cleanupL1Cache() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-pc.stop:
			return
		case <-ticker.C:
			pc.l1Mutex.Lock()
			items := len(pc.l1Cache)
			if items >= pc.maxL1Size {
				pc.l1Cache = make(map[string]*models.Produto)
			}
			pc.l1Mutex.Unlock()
			pc.logger.Debug("L1 cache cleanup", zap.Int("items", items))
		}
	}
}

// Stats estatísticas em formato de mapa para o endpoint de monitoramento
func (pc *ProductCache) Stats() map[string]interface{} {
	stats := pc.GetStats()
	hitRate := 0.0
	if stats.TotalRequests > 0 {
		hitRate = float64(stats.Hits) / float64(stats.TotalRequests)
	}
	return map[string]interface{}{
		"hits":           stats.Hits,
		"misses":         stats.Misses,
		"total_requests": stats.TotalRequests,
		"total_keys":     stats.TotalKeys,
		"hit_rate":       hitRate,
	}
}
