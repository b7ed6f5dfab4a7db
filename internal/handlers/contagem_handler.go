package handlers

import (
	"net/http"
	"strings"

	"estoque-service/internal/middleware"
	"estoque-service/internal/models"
	"estoque-service/internal/planilha"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ContagemHandler struct {
	base
	contagemService services.ContagemService
	hub             http.Handler
}

// NewContagemHandler hub atende o websocket de atualizações; nil desabilita a rota
func NewContagemHandler(contagemService services.ContagemService, hub http.Handler, logger *zap.Logger) *ContagemHandler {
	return &ContagemHandler{
		base:            novaBase(logger),
		contagemService: contagemService,
		hub:             hub,
	}
}

// Registrar POST /contagens
func (h *ContagemHandler) Registrar(c *gin.Context) {
	var req models.ContagemRequest
	if !h.bindJSON(c, &req) {
		return
	}

	contagem, err := h.contagemService.Registrar(c.Request.Context(), middleware.SessaoDe(c), &req)
	if err != nil {
		h.responderErro(c, "Erro registrando contagem", err)
		return
	}

	h.logSuccess("Contagem registrada",
		zap.String("ean", contagem.EAN),
		zap.String("validade", contagem.Validade.String()),
		zap.Int("contagem_num", contagem.ContagemNum))
	h.ok(c, http.StatusCreated, "Contagem registrada com sucesso", contagem)
}

// Grupos GET /contagens?local=galpao&pendentes=true
func (h *ContagemHandler) Grupos(c *gin.Context) {
	var filter models.ContagemFilter
	if !h.bindQuery(c, &filter) {
		return
	}
	local, ok := models.ParseLocal(string(filter.Local))
	if !ok {
		h.responderErro(c, "Local inválido", services.ErrLocalInvalido)
		return
	}
	filter.Local = local

	grupos, err := h.contagemService.Grupos(c.Request.Context(), filter)
	if err != nil {
		h.responderErro(c, "Erro obtendo contagens", err)
		return
	}

	if querPlanilha(c) {
		colunas, linhas := linhasGrupos(grupos)
		h.enviarPlanilha(c, "contagens_"+string(local), "Contagens", colunas, linhas)
		return
	}

	h.ok(c, http.StatusOK, "Contagens obtidas com sucesso", gin.H{
		"local":  local,
		"grupos": grupos,
		"total":  len(grupos),
	})
}

// Ajustar POST /contagens/ajustar
func (h *ContagemHandler) Ajustar(c *gin.Context) {
	var req models.AjusteRequest
	if !h.bindJSON(c, &req) {
		return
	}

	res, err := h.contagemService.Ajustar(c.Request.Context(), middleware.SessaoDe(c), &req)
	if err != nil {
		h.responderErro(c, "Erro ajustando estoque", err)
		return
	}

	h.logSuccess("Ajuste aplicado",
		zap.String("ean", res.EAN),
		zap.String("local", string(res.Local)),
		zap.Int("quantidade_anterior", res.QuantidadeAnterior),
		zap.Int("quantidade_nova", res.QuantidadeNova),
		zap.Int64("contagens_ajustadas", res.ContagensAjustadas))
	h.ok(c, http.StatusOK, "Estoque ajustado com sucesso", res)
}

// Historico GET /contagens/historico?ean= (sem ean traz todas; ?formato=xlsx exporta)
func (h *ContagemHandler) Historico(c *gin.Context) {
	ean := strings.TrimSpace(c.Query("ean"))

	historico, err := h.contagemService.Historico(c.Request.Context(), ean)
	if err != nil {
		h.responderErro(c, "Erro obtendo histórico de contagens", err)
		return
	}

	if querPlanilha(c) {
		colunas, linhas := linhasHistorico(historico.Contagens)
		h.enviarPlanilha(c, "historico_contagens", "Histórico", colunas, linhas)
		return
	}
	h.ok(c, http.StatusOK, "Histórico obtido com sucesso", historico)
}

// Arquivar POST /contagens/arquivar move as contagens para o arquivo
func (h *ContagemHandler) Arquivar(c *gin.Context) {
	movidas, err := h.contagemService.Arquivar(c.Request.Context())
	if err != nil {
		h.responderErro(c, "Erro arquivando contagens", err)
		return
	}

	h.logSuccess("Contagens arquivadas", zap.Int64("movidas", movidas),
		zap.String("usuario", middleware.SessaoDe(c).UsuarioEmail))
	h.ok(c, http.StatusOK, "Contagens arquivadas com sucesso", gin.H{"arquivadas": movidas})
}

// WebSocket GET /contagens/ws repassa as notificações da tabela de contagens
func (h *ContagemHandler) WebSocket(c *gin.Context) {
	if h.hub == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"message": "❌ Atualizações em tempo real desabilitadas",
		})
		return
	}
	h.hub.ServeHTTP(c.Writer, c.Request)
}

func linhasGrupos(grupos []*models.GrupoContagem) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Validade", Largura: 12},
		{Titulo: "Contada", Largura: 10},
		{Titulo: "Sistema", Largura: 10},
		{Titulo: "Diferença", Largura: 10},
		{Titulo: "Status", Largura: 12},
		{Titulo: "Estado", Largura: 12},
	}
	linhas := make([][]interface{}, 0, len(grupos))
	for _, g := range grupos {
		linhas = append(linhas, []interface{}{
			g.EAN, g.Descricao, g.Validade.Formatada(),
			inteiroOuVazio(g.QuantidadeContada), inteiroOuVazio(g.QuantidadeSistema), inteiroOuVazio(g.Diferenca),
			string(g.Status), string(g.Estado),
		})
	}
	return colunas, linhas
}

func linhasHistorico(contagens []models.ContagemComProduto) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "Data", Largura: 18},
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 40},
		{Titulo: "Marca", Largura: 20},
		{Titulo: "Validade", Largura: 12},
		{Titulo: "Quantidade", Largura: 12},
		{Titulo: "Contagem", Largura: 10},
		{Titulo: "Ajustado", Largura: 10},
		{Titulo: "Usuário", Largura: 28},
	}
	linhas := make([][]interface{}, 0, len(contagens))
	for _, ct := range contagens {
		ajustado := "Não"
		if ct.Ajustado {
			ajustado = "Sim"
		}
		linhas = append(linhas, []interface{}{
			models.FormatarDataHora(ct.Data), ct.EAN, ct.Descricao, ct.Marca, ct.Validade.Formatada(),
			ct.Quantidade, ct.ContagemNum, ajustado, ct.UsuarioEmail,
		})
	}
	return colunas, linhas
}

func inteiroOuVazio(n *int) interface{} {
	if n == nil {
		return ""
	}
	return *n
}
