package handlers

import (
	"net/http"

	"estoque-service/internal/models"
	"estoque-service/internal/planilha"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RelatorioHandler struct {
	base
	relatorioService services.RelatorioService
}

func NewRelatorioHandler(relatorioService services.RelatorioService, logger *zap.Logger) *RelatorioHandler {
	return &RelatorioHandler{
		base:             novaBase(logger),
		relatorioService: relatorioService,
	}
}

// PainelValidade GET /relatorios/painel-validade/:local
func (h *RelatorioHandler) PainelValidade(c *gin.Context) {
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	var filter models.PainelFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	linhas, err := h.relatorioService.PainelValidade(c.Request.Context(), local, filter)
	if err != nil {
		h.responderErro(c, "Erro gerando painel de validade", err)
		return
	}
	h.logger.Debug("Painel de validade gerado", zap.String("local", string(local)), zap.Int("linhas", len(linhas)))

	if querPlanilha(c) {
		colunas, dados := linhasPainel(linhas, local)
		h.enviarPlanilha(c, "painel_validade_"+string(local), "Painel de Validade", colunas, dados)
		return
	}

	h.ok(c, http.StatusOK, "Painel de validade gerado", gin.H{
		"local":  local,
		"linhas": linhas,
		"total":  len(linhas),
	})
}

// SaldoConsolidado GET /relatorios/saldo-consolidado
func (h *RelatorioHandler) SaldoConsolidado(c *gin.Context) {
	var filter models.SaldoFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	linhas, err := h.relatorioService.SaldoConsolidado(c.Request.Context(), filter)
	if err != nil {
		h.responderErro(c, "Erro gerando saldo consolidado", err)
		return
	}

	if querPlanilha(c) {
		colunas, dados := linhasSaldo(linhas)
		h.enviarPlanilha(c, "saldo_consolidado", "Saldo Consolidado", colunas, dados)
		return
	}

	h.ok(c, http.StatusOK, "Saldo consolidado gerado", gin.H{
		"linhas": linhas,
		"total":  len(linhas),
	})
}

// Indicadores GET /relatorios/indicadores?ano=2025&mes=11
func (h *RelatorioHandler) Indicadores(c *gin.Context) {
	var filter models.IndicadoresFilter
	if !h.bindQuery(c, &filter) {
		return
	}

	indicadores, err := h.relatorioService.Indicadores(c.Request.Context(), filter)
	if err != nil {
		h.responderErro(c, "Erro gerando indicadores", err)
		return
	}
	h.ok(c, http.StatusOK, "Indicadores gerados", indicadores)
}

func linhasPainel(linhas []*models.LinhaPainelValidade, local models.Local) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Marca", Largura: 20},
		{Titulo: "Validade", Largura: 12},
		{Titulo: "Quantidade", Largura: 12},
		{Titulo: "Dias para vencer", Largura: 16},
		{Titulo: "Faixa", Largura: 16},
	}
	if local == models.LocalGalpao {
		colunas = append(colunas, planilha.Coluna{Titulo: "Saldo loja", Largura: 12})
	}

	dados := make([][]interface{}, 0, len(linhas))
	for _, l := range linhas {
		linha := []interface{}{
			l.EAN, l.Descricao, l.Marca, dataOuVazio(l.Validade), l.Quantidade,
			inteiroOuVazio(l.DiasParaVencer), string(l.Faixa),
		}
		if local == models.LocalGalpao {
			linha = append(linha, inteiroOuVazio(l.SaldoLoja))
		}
		dados = append(dados, linha)
	}
	return colunas, dados
}

func linhasSaldo(linhas []*models.LinhaSaldoConsolidado) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Marca", Largura: 20},
		{Titulo: "Saldo galpão", Largura: 14},
		{Titulo: "Saldo WMS", Largura: 12},
		{Titulo: "Diferença", Largura: 12},
		{Titulo: "Status", Largura: 18},
	}
	dados := make([][]interface{}, 0, len(linhas))
	for _, l := range linhas {
		dados = append(dados, []interface{}{
			l.EAN, l.Descricao, l.Marca, l.SaldoGalpao, l.SaldoWMS, l.Diferenca, string(l.Status),
		})
	}
	return colunas, dados
}
