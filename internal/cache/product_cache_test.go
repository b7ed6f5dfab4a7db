package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"estoque-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestProductCache_L1OnlyWithoutRedis(t *testing.T) {
	pc := NewProductCache(nil, 10, time.Minute, zap.NewNop())
	defer pc.Close()
	ctx := context.Background()

	_, err := pc.GetProduto(ctx, "7891234567895")
	assert.True(t, errors.Is(err, ErrCacheMiss))

	require.NoError(t, pc.SetProduto(ctx, &models.Produto{ID: 1, EAN: "7891234567895", Descricao: "Leite"}))

	p, err := pc.GetProduto(ctx, "7891234567895")
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)

	stats := pc.GetStats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 1, stats.TotalKeys)

	require.NoError(t, pc.InvalidateProduto(ctx, "7891234567895"))
	_, err = pc.GetProduto(ctx, "7891234567895")
	assert.Error(t, err)
}

func TestProductCache_EvictsWhenFull(t *testing.T) {
	pc := NewProductCache(nil, 2, time.Minute, zap.NewNop())
	defer pc.Close()
	ctx := context.Background()

	for _, ean := range []string{"1", "2", "3"} {
		require.NoError(t, pc.SetProduto(ctx, &models.Produto{EAN: ean}))
	}
	assert.Equal(t, 2, pc.GetStats().TotalKeys)

	// regravar uma chave existente não expulsa outra
	require.NoError(t, pc.SetProduto(ctx, &models.Produto{EAN: "3", Descricao: "novo"}))
	assert.Equal(t, 2, pc.GetStats().TotalKeys)
}

func TestProductCache_StatsWithoutRequests(t *testing.T) {
	pc := NewProductCache(nil, 0, time.Minute, zap.NewNop())
	defer pc.Close()

	stats := pc.Stats()
	assert.Equal(t, 0.0, stats["hit_rate"])
}
