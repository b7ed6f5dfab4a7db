package handlers

import (
	"fmt"
	"io"
	"net/http"

	"estoque-service/internal/middleware"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ImportacaoHandler struct {
	base
	importacaoService services.ImportacaoService
	maxUploadBytes    int64
}

func NewImportacaoHandler(importacaoService services.ImportacaoService, maxUploadBytes int64, logger *zap.Logger) *ImportacaoHandler {
	return &ImportacaoHandler{
		base:              novaBase(logger),
		importacaoService: importacaoService,
		maxUploadBytes:    maxUploadBytes,
	}
}

// ImportarProdutos POST /importar/produtos (multipart, campo "file")
func (h *ImportacaoHandler) ImportarProdutos(c *gin.Context) {
	h.importar(c, "produtos", func(c *gin.Context, nome string, arquivo io.Reader) (interface{}, error) {
		return h.importacaoService.ImportarProdutos(c.Request.Context(), arquivo, nome)
	})
}

// ImportarEstoque POST /importar/estoque/:local
func (h *ImportacaoHandler) ImportarEstoque(c *gin.Context) {
	local, ok := h.localDoParam(c)
	if !ok {
		return
	}
	sessao := middleware.SessaoDe(c)
	h.importar(c, "estoque_"+string(local), func(c *gin.Context, nome string, arquivo io.Reader) (interface{}, error) {
		return h.importacaoService.ImportarEstoque(c.Request.Context(), sessao, local, arquivo, nome)
	})
}

func (h *ImportacaoHandler) importar(c *gin.Context, tipo string, executar func(*gin.Context, string, io.Reader) (interface{}, error)) {
	if h.maxUploadBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.responderErro(c, "Arquivo não enviado", fmt.Errorf("%w: %v", services.ErrArquivoInvalido, err))
		return
	}
	arquivo, err := header.Open()
	if err != nil {
		h.responderErro(c, "Erro abrindo arquivo", err)
		return
	}
	defer arquivo.Close()

	h.logInfo("Importação recebida",
		zap.String("tipo", tipo),
		zap.String("arquivo", header.Filename),
		zap.Int64("bytes", header.Size))

	resultado, err := executar(c, header.Filename, arquivo)
	if err != nil {
		h.responderErro(c, "Erro importando planilha", err)
		return
	}
	h.ok(c, http.StatusOK, "Importação concluída", resultado)
}
