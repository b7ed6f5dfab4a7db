package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"estoque-service/internal/events"
	"estoque-service/internal/middleware"
	"estoque-service/internal/models"
	"estoque-service/internal/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// fakeEstoque implementa só o que os testes usam
type fakeEstoque struct {
	services.EstoqueService

	entradaErr error
	saidaErr   error
	lotes      []*models.LoteComProduto

	chamadas      int
	ultimaSessao  models.Sessao
	ultimoLocal   models.Local
	correlationID string
}

func (f *fakeEstoque) RegistrarEntrada(ctx context.Context, sessao models.Sessao, local models.Local, req *models.EntradaRequest) (*models.MovimentoResultado, error) {
	f.chamadas++
	f.ultimaSessao, f.ultimoLocal = sessao, local
	f.correlationID = events.CorrelationID(ctx)
	if f.entradaErr != nil {
		return nil, f.entradaErr
	}
	return &models.MovimentoResultado{EAN: req.EAN, Local: local, Quantidade: req.Quantidade, QuantidadeNova: req.Quantidade}, nil
}

func (f *fakeEstoque) RegistrarSaida(ctx context.Context, sessao models.Sessao, local models.Local, req *models.SaidaRequest) (*models.MovimentoResultado, error) {
	f.chamadas++
	if f.saidaErr != nil {
		return nil, f.saidaErr
	}
	return &models.MovimentoResultado{EAN: req.EAN, Local: local, Quantidade: req.Quantidade}, nil
}

func (f *fakeEstoque) ListarEstoque(ctx context.Context, local models.Local, filter models.EstoqueFilter) ([]*models.LoteComProduto, error) {
	f.chamadas++
	return f.lotes, nil
}

type fakeImportacao struct {
	nome     string
	conteudo string
	local    models.Local
}

func (f *fakeImportacao) ImportarProdutos(ctx context.Context, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error) {
	data, err := io.ReadAll(arquivo)
	if err != nil {
		return nil, err
	}
	f.nome, f.conteudo = nomeArquivo, string(data)
	return &models.ImportacaoResultado{RegistrosImportados: 1, Erros: []string{}}, nil
}

func (f *fakeImportacao) ImportarEstoque(ctx context.Context, sessao models.Sessao, local models.Local, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error) {
	f.nome, f.local = nomeArquivo, local
	return nil, fmt.Errorf("%w: coluna validade ausente", services.ErrArquivoInvalido)
}

func novoRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestIDMiddleware(), middleware.SessaoMiddleware("sistema@estoque.local"))
	return r
}

func estoqueRouter(svc *fakeEstoque) *gin.Engine {
	r := novoRouter()
	h := NewEstoqueHandler(svc, zap.NewNop())
	r.GET("/estoque/:local", h.ListarEstoque)
	r.POST("/estoque/:local/entrada", h.Entrada)
	r.POST("/estoque/:local/saida", h.Saida)
	r.GET("/movimentacoes/:tipo", h.ListarMovimentacoes)
	return r
}

func doJSON(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodificar(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func TestStatusDoErro(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{&services.ErrFEFO{ValidadeBloqueante: models.NovaData(2025, 6, 1)}, http.StatusConflict},
		{fmt.Errorf("erro registrando saída: %w", &services.ErrSaldoInsuficiente{Disponivel: 2, Solicitado: 5}), http.StatusConflict},
		{services.ErrSemContagemPendente, http.StatusConflict},
		{services.ErrConflitoConcorrencia, http.StatusConflict},
		{services.ErrProdutoNaoEncontrado, http.StatusNotFound},
		{fmt.Errorf("wrap: %w", services.ErrLoteNaoEncontrado), http.StatusNotFound},
		{services.ErrQuantidadeInvalida, http.StatusBadRequest},
		{services.ErrValidadeObrigatoria, http.StatusBadRequest},
		{services.ErrValidadeInvalida, http.StatusBadRequest},
		{services.ErrLocalInvalido, http.StatusBadRequest},
		{services.ErrEnderecoInvalido, http.StatusBadRequest},
		{services.ErrArquivoInvalido, http.StatusBadRequest},
		{services.ErrFiltroInvalido, http.StatusBadRequest},
		{services.ErrEANObrigatorio, http.StatusBadRequest},
		{errors.New("connection refused"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, StatusDoErro(tt.err), tt.err.Error())
	}
}

func TestEntrada_Created(t *testing.T) {
	svc := &fakeEstoque{}
	r := estoqueRouter(svc)

	w := doJSON(r, http.MethodPost, "/estoque/loja/entrada",
		`{"ean":"7891234567895","validade":"2025-11-30","quantidade":10}`,
		map[string]string{middleware.HeaderUsuario: " Operador@Loja.com ", middleware.HeaderRequestID: "req-123"})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "req-123", w.Header().Get(middleware.HeaderRequestID))
	body := decodificar(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, models.LocalLoja, svc.ultimoLocal)
	assert.Equal(t, "operador@loja.com", svc.ultimaSessao.UsuarioEmail)
	assert.Equal(t, "req-123", svc.correlationID)
}

func TestEntrada_DefaultUserAndGeneratedRequestID(t *testing.T) {
	svc := &fakeEstoque{}
	r := estoqueRouter(svc)

	w := doJSON(r, http.MethodPost, "/estoque/galpao/entrada", `{"ean":"7891234567895","quantidade":1}`, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sistema@estoque.local", svc.ultimaSessao.UsuarioEmail)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
	assert.Equal(t, w.Header().Get(middleware.HeaderRequestID), svc.correlationID)
}

func TestEntrada_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		path string
		body string
	}{
		{"local inválido", "/estoque/deposito/entrada", `{"ean":"7891234567895","quantidade":1}`},
		{"json malformado", "/estoque/galpao/entrada", `{"ean":`},
		{"quantidade zero", "/estoque/galpao/entrada", `{"ean":"7891234567895","quantidade":0}`},
		{"sem produto", "/estoque/galpao/entrada", `{"quantidade":3}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEstoque{}
			w := doJSON(estoqueRouter(svc), http.MethodPost, tt.path, tt.body, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, decodificar(t, w)["success"])
			assert.Zero(t, svc.chamadas)
		})
	}
}

func TestSaida_BusinessErrors(t *testing.T) {
	t.Run("fefo", func(t *testing.T) {
		svc := &fakeEstoque{saidaErr: &services.ErrFEFO{ValidadeBloqueante: models.NovaData(2025, 6, 1)}}
		w := doJSON(estoqueRouter(svc), http.MethodPost, "/estoque/galpao/saida",
			`{"ean":"7891234567895","validade":"2025-09-01","quantidade":2}`, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		body := decodificar(t, w)
		assert.Equal(t, "2025-06-01", body["validade_bloqueante"])
		assert.Contains(t, body["error"], "01/06/2025")
	})

	t.Run("saldo insuficiente", func(t *testing.T) {
		svc := &fakeEstoque{saidaErr: &services.ErrSaldoInsuficiente{Disponivel: 3, Solicitado: 5}}
		w := doJSON(estoqueRouter(svc), http.MethodPost, "/estoque/galpao/saida",
			`{"ean":"7891234567895","validade":"2025-09-01","quantidade":5}`, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, float64(3), decodificar(t, w)["disponivel"])
	})

	t.Run("lote inexistente", func(t *testing.T) {
		svc := &fakeEstoque{saidaErr: services.ErrLoteNaoEncontrado}
		w := doJSON(estoqueRouter(svc), http.MethodPost, "/estoque/loja/saida",
			`{"ean":"7891234567895","validade":"2025-09-01","quantidade":1}`, nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestEntrada_ErroInternoNaoExpoeDetalhe(t *testing.T) {
	svc := &fakeEstoque{entradaErr: errors.New(`pq: relation "estoque" does not exist`)}
	w := doJSON(estoqueRouter(svc), http.MethodPost, "/estoque/galpao/entrada",
		`{"ean":"7891234567895","validade":"2025-11-30","quantidade":1}`, nil)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	body := decodificar(t, w)
	assert.Equal(t, false, body["success"])
	assert.NotContains(t, body, "error")
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestListarEstoque_ExportaXLSX(t *testing.T) {
	validade := models.NovaData(2025, 11, 30)
	endereco := "A1"
	svc := &fakeEstoque{lotes: []*models.LoteComProduto{{
		LoteEstoque: models.LoteEstoque{ID: 1, IDProduto: 1, EAN: "7891234567895", Validade: &validade, Quantidade: 15, Endereco: &endereco},
		Descricao:   "Biscoito Recheado",
		Marca:       "Marca",
	}}}

	w := doJSON(estoqueRouter(svc), http.MethodGet, "/estoque/galpao?formato=xlsx", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, contentTypeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "estoque_galpao_")

	arquivo, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	defer arquivo.Close()
	rows, err := arquivo.GetRows(arquivo.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "EAN", rows[0][0])
	assert.Equal(t, "30/11/2025", rows[1][3])
	assert.Equal(t, "A1", rows[1][6])
}

func TestListarEstoque_JSON(t *testing.T) {
	svc := &fakeEstoque{}
	w := doJSON(estoqueRouter(svc), http.MethodGet, "/estoque/loja?ean=789", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodificar(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "loja", data["local"])
	assert.Equal(t, float64(0), data["total_lotes"])
}

func TestListarMovimentacoes_TipoInvalido(t *testing.T) {
	svc := &fakeEstoque{}
	w := doJSON(estoqueRouter(svc), http.MethodGet, "/movimentacoes/transferencia", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(estoqueRouter(svc), http.MethodGet, "/movimentacoes/entrada?local=deposito", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Zero(t, svc.chamadas)
}

func upload(t *testing.T, r http.Handler, path, campo, nome, conteudo string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if campo != "" {
		part, err := mw.CreateFormFile(campo, nome)
		require.NoError(t, err)
		_, err = part.Write([]byte(conteudo))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func importacaoRouter(svc *fakeImportacao) *gin.Engine {
	r := novoRouter()
	h := NewImportacaoHandler(svc, 1<<20, zap.NewNop())
	r.POST("/importar/produtos", h.ImportarProdutos)
	r.POST("/importar/estoque/:local", h.ImportarEstoque)
	return r
}

func TestImportarProdutos_Upload(t *testing.T) {
	svc := &fakeImportacao{}
	w := upload(t, importacaoRouter(svc), "/importar/produtos", "file", "catalogo.csv", "ean;descricao;marca\n")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "catalogo.csv", svc.nome)
	assert.Equal(t, "ean;descricao;marca\n", svc.conteudo)
	data := decodificar(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["registros_importados"])
}

func TestImportar_Errors(t *testing.T) {
	svc := &fakeImportacao{}
	r := importacaoRouter(svc)

	w := upload(t, r, "/importar/produtos", "", "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "/importar/produtos", "planilha", "catalogo.csv", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "/importar/estoque/deposito", "file", "estoque.csv", "x")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload(t, r, "/importar/estoque/loja", "file", "estoque.csv", "ean\n")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.LocalLoja, svc.local)
}

type fakeContagem struct {
	services.ContagemService
	eanPedido string
}

func (f *fakeContagem) Historico(ctx context.Context, ean string) (*models.HistoricoContagens, error) {
	f.eanPedido = ean
	return &models.HistoricoContagens{
		Contagens: []models.ContagemComProduto{{
			Contagem:  models.Contagem{ID: 1, EAN: "7891234567895", Validade: models.NovaData(2025, 11, 30), Quantidade: 12, ContagemNum: 1},
			Descricao: "Biscoito Recheado",
		}},
		Totais: []models.TotalContagemAberta{},
	}, nil
}

func TestHistoricoContagens(t *testing.T) {
	svc := &fakeContagem{}
	r := novoRouter()
	h := NewContagemHandler(svc, nil, zap.NewNop())
	r.GET("/contagens/historico", h.Historico)
	r.GET("/contagens/ws", h.WebSocket)

	w := doJSON(r, http.MethodGet, "/contagens/historico", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, svc.eanPedido)

	w = doJSON(r, http.MethodGet, "/contagens/historico?ean=7891234567895&formato=xlsx", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7891234567895", svc.eanPedido)
	assert.Equal(t, contentTypeXLSX, w.Header().Get("Content-Type"))

	// sem hub o websocket fica indisponível
	w = doJSON(r, http.MethodGet, "/contagens/ws", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type fakeMonitoring struct {
	services.MonitoringService
	registradas []models.RequestData
}

func (f *fakeMonitoring) GetMetrics(ctx context.Context) *models.MonitoringResponse {
	return &models.MonitoringResponse{
		Requests: models.RequestMetrics{
			TotalRequests: 7,
			TopEndpoints:  []models.TopEndpoint{{Endpoint: "POST /api/v1/estoque/:local/saida", Count: 5}},
		},
		Ledger: models.LedgerMetrics{
			Status: "online",
			Locais: []models.LocalMetrics{
				{Local: models.LocalGalpao, Lotes: 4, Unidades: 100, LotesVencidos: 1},
				{Local: models.LocalLoja, Lotes: 2, Unidades: 8},
			},
			GruposPendentes: 3,
		},
	}
}

func (f *fakeMonitoring) RecordRequest(data models.RequestData) {
	f.registradas = append(f.registradas, data)
}

func TestMetricsSummary(t *testing.T) {
	h := NewMonitoringHandler(&fakeMonitoring{}, zap.NewNop())
	r := novoRouter()
	r.GET("/api/v1/monitoring/metrics/summary", h.GetMetricsSummary)

	w := doJSON(r, http.MethodGet, "/api/v1/monitoring/metrics/summary", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decodificar(t, w)
	estoque := body["estoque"].(map[string]interface{})
	assert.Equal(t, float64(6), estoque["lotes"])
	assert.Equal(t, float64(108), estoque["unidades"])
	assert.Equal(t, float64(1), estoque["lotes_vencidos"])
	assert.Equal(t, float64(3), estoque["grupos_pendentes"])
	trafego := body["trafego"].(map[string]interface{})
	assert.Equal(t, "POST /api/v1/estoque/:local/saida", trafego["mais_acessada"])
}

func TestRecordRequestMiddleware(t *testing.T) {
	fake := &fakeMonitoring{}
	h := NewMonitoringHandler(fake, zap.NewNop())
	r := novoRouter()
	r.Use(h.RecordRequestMiddleware())
	r.GET("/api/v1/estoque/:local", func(c *gin.Context) { c.Status(http.StatusConflict) })
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	doJSON(r, http.MethodGet, "/api/v1/estoque/galpao", "", map[string]string{middleware.HeaderRequestID: "req-9"})
	doJSON(r, http.MethodGet, "/health", "", nil)

	require.Len(t, fake.registradas, 1)
	assert.Equal(t, "/api/v1/estoque/:local", fake.registradas[0].Endpoint)
	assert.Equal(t, http.StatusConflict, fake.registradas[0].StatusCode)
	assert.Equal(t, "req-9", fake.registradas[0].RequestID)
}
