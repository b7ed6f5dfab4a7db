package routes

import (
	"net/http"

	"estoque-service/internal/handlers"
	"estoque-service/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers agrupa os handlers registrados no router
type Handlers struct {
	Estoque    *handlers.EstoqueHandler
	Contagem   *handlers.ContagemHandler
	Produto    *handlers.ProdutoHandler
	Relatorio  *handlers.RelatorioHandler
	Importacao *handlers.ImportacaoHandler
	Monitoring *handlers.MonitoringHandler
	Health     *middleware.HealthChecker
}

// SetupRoutes configura todas as rotas da aplicação
func SetupRoutes(router *gin.Engine, h Handlers) {
	v1 := router.Group("/api/v1")
	{
		estoque := v1.Group("/estoque")
		{
			estoque.GET("/:local", h.Estoque.ListarEstoque)
			estoque.POST("/:local/entrada", h.Estoque.Entrada)
			estoque.POST("/:local/saida", h.Estoque.Saida)
			estoque.POST("/:local/entrada-multiple", h.Estoque.EntradaMultiple)
			estoque.POST("/:local/saida-multiple", h.Estoque.SaidaMultiple)
		}

		transferencias := v1.Group("/transferencias")
		{
			transferencias.POST("/loja", h.Estoque.TransferirParaLoja)
			transferencias.POST("/endereco", h.Estoque.TransferirEndereco)
		}

		v1.GET("/movimentacoes/:tipo", h.Estoque.ListarMovimentacoes)

		contagens := v1.Group("/contagens")
		{
			contagens.GET("", h.Contagem.Grupos)
			contagens.POST("", h.Contagem.Registrar)
			contagens.POST("/ajustar", h.Contagem.Ajustar)
			contagens.POST("/arquivar", h.Contagem.Arquivar)
			contagens.GET("/historico", h.Contagem.Historico)
			contagens.GET("/ws", h.Contagem.WebSocket)
		}

		produtos := v1.Group("/produtos")
		{
			produtos.GET("", h.Produto.Listar)
			produtos.POST("", h.Produto.Criar)
			produtos.PUT("/:id", h.Produto.Atualizar)
			produtos.GET("/ean/:ean", h.Produto.BuscarPorEAN)
			produtos.GET("/cache/stats", h.Produto.CacheStats)
			produtos.POST("/cache/preload", h.Produto.Preaquecer)
			produtos.DELETE("/cache/:ean", h.Produto.InvalidarCache)
		}

		relatorios := v1.Group("/relatorios")
		{
			relatorios.GET("/painel-validade/:local", h.Relatorio.PainelValidade)
			relatorios.GET("/saldo-consolidado", h.Relatorio.SaldoConsolidado)
			relatorios.GET("/indicadores", h.Relatorio.Indicadores)
		}

		importar := v1.Group("/importar")
		{
			importar.POST("/produtos", h.Importacao.ImportarProdutos)
			importar.POST("/estoque/:local", h.Importacao.ImportarEstoque)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/metrics", h.Monitoring.GetMetrics)
			monitoring.GET("/metrics/summary", h.Monitoring.GetMetricsSummary)
			monitoring.GET("/ws", h.Monitoring.WebSocketMetrics)
		}
	}

	router.GET("/health", h.Health.HealthCheck)

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Estoque Service API",
			"version": "1.0.0",
			"status":  "running",
			"endpoints": gin.H{
				"health": "/health",
				"api":    "/api/v1",
				"estoque": gin.H{
					"listar":         "GET /api/v1/estoque/:local",
					"entrada":        "POST /api/v1/estoque/:local/entrada",
					"saida":          "POST /api/v1/estoque/:local/saida",
					"transferencias": "POST /api/v1/transferencias/{loja,endereco}",
					"movimentacoes":  "GET /api/v1/movimentacoes/:tipo",
				},
				"contagens":  "GET|POST /api/v1/contagens",
				"relatorios": "GET /api/v1/relatorios/{painel-validade/:local,saldo-consolidado,indicadores}",
				"importar":   "POST /api/v1/importar/{produtos,estoque/:local}",
			},
		})
	})
}
