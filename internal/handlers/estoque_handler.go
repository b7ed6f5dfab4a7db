package handlers

import (
	"net/http"
	"time"

	"estoque-service/internal/middleware"
	"estoque-service/internal/models"
	"estoque-service/internal/planilha"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// EstoqueHandler rotas do ledger de lotes do galpão e da loja
type EstoqueHandler struct {
	base
	estoqueService services.EstoqueService
}

func NewEstoqueHandler(estoqueService services.EstoqueService, logger *zap.Logger) *EstoqueHandler {
	return &EstoqueHandler{
		base:           novaBase(logger),
		estoqueService: estoqueService,
	}
}

// Entrada POST /estoque/:local/entrada
func (h *EstoqueHandler) Entrada(c *gin.Context) {
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var req models.EntradaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.estoqueService.RegistrarEntrada(c.Request.Context(), middleware.SessaoDe(c), local, &req)
	if err != nil {
		h.responderErro(c, "Erro registrando entrada", err)
		return
	}

	h.logSuccess("Entrada registrada",
		zap.String("local", string(local)),
		zap.String("ean", res.EAN),
		zap.Int("quantidade", res.Quantidade),
		zap.Int("quantidade_nova", res.QuantidadeNova))
	h.ok(c, http.StatusCreated, "Entrada registrada com sucesso", res)
}

// Saida POST /estoque/:local/saida
func (h *EstoqueHandler) Saida(c *gin.Context) {
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var req models.SaidaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.estoqueService.RegistrarSaida(c.Request.Context(), middleware.SessaoDe(c), local, &req)
	if err != nil {
		h.responderErro(c, "Erro registrando saída", err)
		return
	}

	h.logSuccess("Saída registrada",
		zap.String("local", string(local)),
		zap.String("ean", res.EAN),
		zap.Int("quantidade", res.Quantidade),
		zap.Int("quantidade_nova", res.QuantidadeNova))
	h.ok(c, http.StatusOK, "Saída registrada com sucesso", res)
}

// EntradaMultiple POST /estoque/:local/entrada-multiple. Cada item é
// independente; a resposta é 200 mesmo com erros parciais.
func (h *EstoqueHandler) EntradaMultiple(c *gin.Context) {
	start := time.Now()
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var req models.EntradaMultipleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	h.logDebug("Entrada múltipla recebida", zap.Int("itens", len(req.Itens)))

	response := h.estoqueService.EntradaMultiple(c.Request.Context(), middleware.SessaoDe(c), local, &req)

	h.logSuccess("Entrada múltipla concluída",
		zap.Int("itens", response.TotalItens),
		zap.Int("falhas", len(response.Erros)),
		zap.Duration("latency", time.Since(start)))
	for _, e := range response.Erros {
		h.logInfo("Item com erro", zap.Int("indice", e.Indice), zap.String("ean", e.EAN), zap.String("error", e.Error))
	}
	c.JSON(http.StatusOK, response)
}

// SaidaMultiple POST /estoque/:local/saida-multiple
func (h *EstoqueHandler) SaidaMultiple(c *gin.Context) {
	start := time.Now()
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var req models.SaidaMultipleRequest
	if !h.bindJSON(c, &req) {
		return
	}

	response := h.estoqueService.SaidaMultiple(c.Request.Context(), middleware.SessaoDe(c), local, &req)

	h.logSuccess("Saída múltipla concluída",
		zap.Int("itens", response.TotalItens),
		zap.Int("falhas", len(response.Erros)),
		zap.Duration("latency", time.Since(start)))
	for _, e := range response.Erros {
		h.logInfo("Item com erro", zap.Int("indice", e.Indice), zap.String("ean", e.EAN), zap.String("error", e.Error))
	}
	c.JSON(http.StatusOK, response)
}

// TransferirParaLoja POST /transferencias/loja
func (h *EstoqueHandler) TransferirParaLoja(c *gin.Context) {
	var req models.TransferenciaLojaRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.estoqueService.TransferirParaLoja(c.Request.Context(), middleware.SessaoDe(c), &req)
	if err != nil {
		h.responderErro(c, "Erro transferindo para a loja", err)
		return
	}

	h.logSuccess("Transferência para a loja concluída",
		zap.String("ean", res.Origem.EAN),
		zap.Int("quantidade", res.Origem.Quantidade))
	h.ok(c, http.StatusOK, "Transferência realizada com sucesso", res)
}

// TransferirEndereco POST /transferencias/endereco
func (h *EstoqueHandler) TransferirEndereco(c *gin.Context) {
	var req models.TransferenciaEnderecoRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.estoqueService.TransferirEndereco(c.Request.Context(), middleware.SessaoDe(c), &req)
	if err != nil {
		h.responderErro(c, "Erro transferindo entre endereços", err)
		return
	}

	h.logSuccess("Transferência de endereço concluída",
		zap.String("ean", res.Origem.EAN),
		zap.String("origem", textoOuVazio(res.Origem.Endereco)),
		zap.String("destino", textoOuVazio(res.Destino.Endereco)))
	h.ok(c, http.StatusOK, "Transferência realizada com sucesso", res)
}

// ListarEstoque GET /estoque/:local (?formato=xlsx exporta)
func (h *EstoqueHandler) ListarEstoque(c *gin.Context) {
	logger := h.logger.With(zap.String("handler", "listar_estoque"))

	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var filter models.EstoqueFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	lotes, err := h.estoqueService.ListarEstoque(c.Request.Context(), local, filter)
	if err != nil {
		h.responderErro(c, "Erro obtendo estoque", err)
		return
	}
	logger.Debug("Estoque obtido", zap.String("local", string(local)), zap.Int("lotes", len(lotes)))

	if querPlanilha(c) {
		colunas, linhas := linhasEstoque(lotes)
		h.enviarPlanilha(c, "estoque_"+string(local), "Estoque", colunas, linhas)
		return
	}

	h.ok(c, http.StatusOK, "Estoque obtido com sucesso", gin.H{
		"local":       local,
		"lotes":       lotes,
		"total_lotes": len(lotes),
		"filtros":     filter,
	})
}

// ListarMovimentacoes GET /movimentacoes/:tipo?local=galpao
func (h *EstoqueHandler) ListarMovimentacoes(c *gin.Context) {
	tipo := models.TipoMovimentacao(c.Param("tipo"))
	switch tipo {
	case models.MovEntrada, models.MovSaida, models.MovAjuste:
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Tipo de movimentação inválido",
			"error":   "use entrada, saida ou ajuste",
		})
		return
	}
	local, ok := models.ParseLocal(c.Query("local"))
	if !ok {
		h.responderErro(c, "Local inválido", services.ErrLocalInvalido)
		return
	}
	var filter models.MovimentacaoFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	movs, err := h.estoqueService.ListarMovimentacoes(c.Request.Context(), tipo, local, filter)
	if err != nil {
		h.responderErro(c, "Erro obtendo movimentações", err)
		return
	}

	if querPlanilha(c) {
		colunas, linhas := linhasMovimentacoes(movs)
		h.enviarPlanilha(c, string(tipo)+"_"+string(local), "Movimentações", colunas, linhas)
		return
	}

	h.ok(c, http.StatusOK, "Movimentações obtidas com sucesso", gin.H{
		"tipo":          tipo,
		"local":         local,
		"movimentacoes": movs,
		"total":         len(movs),
		"filtros":       filter,
	})
}

func linhasEstoque(lotes []*models.LoteComProduto) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Marca", Largura: 20},
		{Titulo: "Validade", Largura: 12},
		{Titulo: "Quantidade", Largura: 12},
		{Titulo: "Lote", Largura: 14},
		{Titulo: "Endereço", Largura: 14},
	}
	linhas := make([][]interface{}, 0, len(lotes))
	for _, l := range lotes {
		linhas = append(linhas, []interface{}{
			l.EAN, l.Descricao, l.Marca, dataOuVazio(l.Validade), l.Quantidade,
			textoOuVazio(l.Lote), textoOuVazio(l.Endereco),
		})
	}
	return colunas, linhas
}

func linhasMovimentacoes(movs []*models.MovimentacaoComProduto) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "Data", Largura: 18},
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Validade", Largura: 12},
		{Titulo: "Quantidade", Largura: 12},
		{Titulo: "Anterior", Largura: 10},
		{Titulo: "Nova", Largura: 10},
		{Titulo: "Endereço", Largura: 14},
		{Titulo: "Usuário", Largura: 28},
	}
	linhas := make([][]interface{}, 0, len(movs))
	for _, m := range movs {
		linhas = append(linhas, []interface{}{
			models.FormatarDataHora(m.Data), m.EAN, m.Descricao, dataOuVazio(m.Validade),
			m.Quantidade, m.QuantidadeAnterior, m.QuantidadeNova, textoOuVazio(m.Endereco), m.UsuarioEmail,
		})
	}
	return colunas, linhas
}
