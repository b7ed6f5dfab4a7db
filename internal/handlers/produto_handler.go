package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"estoque-service/internal/models"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ProdutoHandler catálogo de produtos e consulta rápida por EAN
type ProdutoHandler struct {
	base
	produtoService services.ProdutoService
}

func NewProdutoHandler(produtoService services.ProdutoService, logger *zap.Logger) *ProdutoHandler {
	return &ProdutoHandler{
		base:           novaBase(logger),
		produtoService: produtoService,
	}
}

// BuscarPorEAN GET /produtos/ean/:ean, passa pelo cache
func (h *ProdutoHandler) BuscarPorEAN(c *gin.Context) {
	start := time.Now()
	ean := strings.TrimSpace(c.Param("ean"))
	if ean == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ EAN é obrigatório",
			"error":   "o EAN não pode ser vazio",
		})
		return
	}

	logger := h.logger.With(zap.String("handler", "buscar_produto_ean"), zap.String("ean", ean))

	produto, err := h.produtoService.BuscarPorEAN(c.Request.Context(), ean)
	if err != nil {
		h.responderErro(c, "Erro buscando produto", err)
		return
	}
	if produto == nil {
		logger.Info("Produto não encontrado", zap.Duration("latency", time.Since(start)))
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "❌ Produto não encontrado",
			"error":   services.ErrProdutoNaoEncontrado.Error(),
			"data":    gin.H{"ean": ean},
		})
		return
	}

	logger.Debug("Produto encontrado", zap.Duration("latency", time.Since(start)))
	h.ok(c, http.StatusOK, "Produto encontrado", gin.H{
		"produto":    produto,
		"latency_ms": time.Since(start).Milliseconds(),
	})
}

// Listar GET /produtos (?formato=xlsx exporta o catálogo)
func (h *ProdutoHandler) Listar(c *gin.Context) {
	var filter models.ProdutoFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	produtos, err := h.produtoService.Listar(c.Request.Context(), filter)
	if err != nil {
		h.responderErro(c, "Erro listando produtos", err)
		return
	}

	if querPlanilha(c) {
		colunas, linhas := services.LinhasCatalogo(produtos)
		h.enviarPlanilha(c, "catalogo_produtos", "Catálogo", colunas, linhas)
		return
	}

	h.ok(c, http.StatusOK, "Produtos obtidos com sucesso", gin.H{
		"produtos": produtos,
		"total":    len(produtos),
		"filtros":  filter,
	})
}

// Criar POST /produtos
func (h *ProdutoHandler) Criar(c *gin.Context) {
	var req models.ProdutoRequest
	if !h.bindJSON(c, &req) {
		return
	}

	produto, err := h.produtoService.Criar(c.Request.Context(), &req)
	if err != nil {
		h.responderErro(c, "Erro criando produto", err)
		return
	}
	h.ok(c, http.StatusCreated, "Produto criado com sucesso", produto)
}

// Atualizar PUT /produtos/:id
func (h *ProdutoHandler) Atualizar(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ ID de produto inválido",
			"error":   "o ID deve ser um número positivo",
		})
		return
	}
	var req models.ProdutoRequest
	if !h.bindJSON(c, &req) {
		return
	}

	produto, err := h.produtoService.Atualizar(c.Request.Context(), id, &req)
	if err != nil {
		h.responderErro(c, "Erro atualizando produto", err)
		return
	}
	h.ok(c, http.StatusOK, "Produto atualizado com sucesso", produto)
}

// Preaquecer POST /produtos/cache/preload
func (h *ProdutoHandler) Preaquecer(c *gin.Context) {
	var req struct {
		EANs []string `json:"eans" validate:"required,min=1"`
	}
	if !h.bindJSON(c, &req) {
		return
	}

	carregados, err := h.produtoService.Preaquecer(c.Request.Context(), req.EANs)
	if err != nil {
		h.responderErro(c, "Erro pré-carregando produtos", err)
		return
	}

	h.logInfo("Produtos pré-carregados", zap.Int("solicitados", len(req.EANs)), zap.Int("carregados", carregados))
	h.ok(c, http.StatusOK, "Produtos pré-carregados", gin.H{
		"eans_processados": len(req.EANs),
		"carregados":       carregados,
		"cache_stats":      h.produtoService.CacheStats(),
		"timestamp":        time.Now().Format(time.RFC3339),
	})
}

// CacheStats GET /produtos/cache/stats
func (h *ProdutoHandler) CacheStats(c *gin.Context) {
	h.ok(c, http.StatusOK, "Estatísticas do cache", h.produtoService.CacheStats())
}

// InvalidarCache DELETE /produtos/cache/:ean
func (h *ProdutoHandler) InvalidarCache(c *gin.Context) {
	ean := strings.TrimSpace(c.Param("ean"))
	h.produtoService.Esquecer(c.Request.Context(), ean)
	h.logInfo("Cache de produto invalidado", zap.String("ean", ean))
	h.ok(c, http.StatusOK, "Cache invalidado", gin.H{"ean": ean})
}
