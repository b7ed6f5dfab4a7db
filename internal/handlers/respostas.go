package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"time"

	"estoque-service/internal/models"
	"estoque-service/internal/planilha"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// base concentra o que todo handler usa: validação, logs e respostas
type base struct {
	validator *validator.Validate
	logger    *zap.Logger
}

func novaBase(logger *zap.Logger) base {
	return base{validator: validator.New(), logger: logger}
}

func (b base) logDebug(msg string, fields ...zap.Field) {
	b.logger.Debug("🔍 [DEBUG] "+msg, fields...)
}

func (b base) logInfo(msg string, fields ...zap.Field) {
	b.logger.Info("ℹ️ "+msg, fields...)
}

func (b base) logError(msg string, fields ...zap.Field) {
	b.logger.Error("❌ "+msg, fields...)
}

func (b base) logSuccess(msg string, fields ...zap.Field) {
	b.logger.Info("✅ "+msg, fields...)
}

// bindJSON faz o bind e a validação; responde 400 e devolve false em caso de erro
func (b base) bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		b.logError("Error binding JSON", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Formato de dados inválido",
			"error":   err.Error(),
		})
		return false
	}
	if err := b.validator.Struct(req); err != nil {
		b.logError("Validation error", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Dados de entrada inválidos",
			"error":   err.Error(),
		})
		return false
	}
	return true
}

func (b base) bindQuery(c *gin.Context, filter interface{}) bool {
	if err := c.ShouldBindQuery(filter); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "❌ Parâmetros inválidos",
			"error":   err.Error(),
		})
		return false
	}
	return true
}

// responderErro traduz erros de negócio para o status HTTP
func (b base) responderErro(c *gin.Context, msg string, err error) {
	status := StatusDoErro(err)
	if status >= http.StatusInternalServerError {
		b.logError(msg, zap.Error(err), zap.String("path", c.Request.URL.Path))
	} else {
		b.logInfo(msg, zap.Error(err), zap.Int("status", status))
	}

	resp := gin.H{
		"success": false,
		"message": "❌ " + msg,
	}
	// erros internos ficam só no log
	if status < http.StatusInternalServerError {
		resp["error"] = err.Error()
	}
	var fefo *services.ErrFEFO
	if errors.As(err, &fefo) {
		resp["validade_bloqueante"] = fefo.ValidadeBloqueante
	}
	var saldo *services.ErrSaldoInsuficiente
	if errors.As(err, &saldo) {
		resp["disponivel"] = saldo.Disponivel
	}
	c.JSON(status, resp)
}

func StatusDoErro(err error) int {
	var fefo *services.ErrFEFO
	var saldo *services.ErrSaldoInsuficiente
	switch {
	case errors.As(err, &fefo), errors.As(err, &saldo),
		errors.Is(err, services.ErrSemContagemPendente),
		errors.Is(err, services.ErrConflitoConcorrencia):
		return http.StatusConflict
	case errors.Is(err, services.ErrProdutoNaoEncontrado),
		errors.Is(err, services.ErrLoteNaoEncontrado):
		return http.StatusNotFound
	case errors.Is(err, services.ErrQuantidadeInvalida),
		errors.Is(err, services.ErrValidadeObrigatoria),
		errors.Is(err, services.ErrValidadeInvalida),
		errors.Is(err, services.ErrLocalInvalido),
		errors.Is(err, services.ErrEnderecoInvalido),
		errors.Is(err, services.ErrArquivoInvalido),
		errors.Is(err, services.ErrFiltroInvalido),
		errors.Is(err, services.ErrEANObrigatorio):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (b base) ok(c *gin.Context, status int, msg string, data interface{}) {
	c.JSON(status, gin.H{
		"success": true,
		"message": "✅ " + msg,
		"data":    data,
	})
}

// localDoParam lê :local da rota; responde 400 quando inválido
func (b base) localDoParam(c *gin.Context) (models.Local, bool) {
	local, ok := models.ParseLocal(c.Param("local"))
	if !ok {
		b.responderErro(c, "Local inválido", fmt.Errorf("%w: %q", services.ErrLocalInvalido, c.Param("local")))
	}
	return local, ok
}

func querPlanilha(c *gin.Context) bool {
	return c.Query("formato") == "xlsx"
}

// enviarPlanilha gera o xlsx em memória para poder responder 500 se falhar
func (b base) enviarPlanilha(c *gin.Context, prefixo, aba string, colunas []planilha.Coluna, linhas [][]interface{}) {
	var buf bytes.Buffer
	if err := planilha.Exportar(&buf, aba, colunas, linhas); err != nil {
		b.responderErro(c, "Erro gerando planilha", err)
		return
	}
	nome := fmt.Sprintf("%s_%s.xlsx", prefixo, time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", nome))
	c.Data(http.StatusOK, contentTypeXLSX, buf.Bytes())
}

func dataOuVazio(d *models.Data) string {
	if d == nil {
		return ""
	}
	return d.Formatada()
}

func textoOuVazio(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
