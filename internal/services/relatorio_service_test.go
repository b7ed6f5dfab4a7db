package services

import (
	"context"
	"testing"
	"time"

	"estoque-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRelatorios struct {
	painel []*models.LinhaPainelValidade
	saldo  []*models.LinhaSaldoConsolidado
	local  models.Local
}

func (r *fakeRelatorios) PainelValidade(ctx context.Context, local models.Local, filter models.PainelFilter) ([]*models.LinhaPainelValidade, error) {
	r.local = local
	return r.painel, nil
}

func (r *fakeRelatorios) ResumoLedger(ctx context.Context) (*models.LedgerMetrics, error) {
	return &models.LedgerMetrics{}, nil
}

func (r *fakeRelatorios) SaldoConsolidado(ctx context.Context, filter models.SaldoFilter) ([]*models.LinhaSaldoConsolidado, error) {
	return r.saldo, nil
}

var hojeRelatorio = time.Date(2025, 1, 10, 15, 30, 0, 0, time.UTC)

func dataPtr(ano int, mes time.Month, dia int) *models.Data {
	d := models.NovaData(ano, mes, dia)
	return &d
}

func intPtr(n int) *int { return &n }

func newRelatorioService(rel *fakeRelatorios, store *memStore) *relatorioService {
	svc := NewRelatorioService(rel, store.repos(), zap.NewNop()).(*relatorioService)
	svc.agora = func() time.Time { return hojeRelatorio }
	return svc
}

func TestClassificarValidade(t *testing.T) {
	tests := []struct {
		name      string
		validade  *models.Data
		dias      int
		faixa     models.FaixaValidade
		indicador string
	}{
		{"vencido", dataPtr(2025, 1, 1), -9, models.FaixaVencidoOuMenos30, indicadorVencido},
		{"vence hoje", dataPtr(2025, 1, 10), 0, models.FaixaVencidoOuMenos30, indicadorVencido},
		{"29 dias", dataPtr(2025, 2, 8), 29, models.FaixaVencidoOuMenos30, indicadorVencido},
		{"30 dias", dataPtr(2025, 2, 9), 30, models.Faixa30a90, indicador30a90},
		{"90 dias", dataPtr(2025, 4, 10), 90, models.Faixa30a90, indicador30a90},
		{"91 dias", dataPtr(2025, 4, 11), 91, models.Faixa90a180, indicador90a180},
		{"180 dias", dataPtr(2025, 7, 9), 180, models.Faixa90a180, indicador90a180},
		{"181 dias", dataPtr(2025, 7, 10), 181, models.FaixaMaisDe180, indicadorMais180},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dias, faixa, fundo, indicador := ClassificarValidade(tt.validade, hojeRelatorio)
			require.NotNil(t, dias)
			assert.Equal(t, tt.dias, *dias)
			assert.Equal(t, tt.faixa, faixa)
			assert.Equal(t, tt.indicador, indicador)
			assert.NotEmpty(t, fundo)
		})
	}

	t.Run("sem validade", func(t *testing.T) {
		dias, faixa, fundo, indicador := ClassificarValidade(nil, hojeRelatorio)
		assert.Nil(t, dias)
		assert.Equal(t, models.FaixaSemValidade, faixa)
		assert.Empty(t, fundo)
		assert.Equal(t, indicadorSemData, indicador)
	})
}

func TestCompararSaldo(t *testing.T) {
	casos := []struct {
		operador string
		saldo    int
		esperado bool
	}{
		{"", 7, true},
		{"=", 5, true},
		{"<>", 5, false},
		{"<", 4, true},
		{"<=", 5, true},
		{">", 5, false},
		{">=", 6, true},
	}
	for _, c := range casos {
		ok, err := CompararSaldo(c.saldo, c.operador, 5)
		require.NoError(t, err, c.operador)
		assert.Equal(t, c.esperado, ok, c.operador)
	}

	_, err := CompararSaldo(1, "!=", 5)
	assert.ErrorIs(t, err, ErrFiltroInvalido)
}

func TestStatusSaldo(t *testing.T) {
	assert.Equal(t, models.SaldoWMSMenor, StatusSaldo(10, 8))
	assert.Equal(t, models.SaldoWMSMaior, StatusSaldo(3, 8))
	assert.Equal(t, models.SaldoOK, StatusSaldo(8, 8))
}

func TestMesclarSeries(t *testing.T) {
	serie := MesclarSeries(
		map[string]int{"2025-01-03": 10, "2025-01-01": 4},
		map[string]int{"2025-01-02": 2, "2025-01-03": 5},
	)
	require.Len(t, serie, 3)
	assert.Equal(t, models.PontoSerie{Dia: "2025-01-01", Entradas: 4}, serie[0])
	assert.Equal(t, models.PontoSerie{Dia: "2025-01-02", Saidas: 2}, serie[1])
	assert.Equal(t, models.PontoSerie{Dia: "2025-01-03", Entradas: 10, Saidas: 5}, serie[2])
}

func TestPainelValidade_FiltraPelaLoja(t *testing.T) {
	rel := &fakeRelatorios{painel: []*models.LinhaPainelValidade{
		{EAN: "1", Validade: dataPtr(2025, 1, 20), Quantidade: 5, SaldoLoja: intPtr(0)},
		{EAN: "2", Validade: dataPtr(2025, 5, 1), Quantidade: 3},
		{EAN: "3", Validade: dataPtr(2026, 1, 1), Quantidade: 8, SaldoLoja: intPtr(4)},
	}}
	svc := newRelatorioService(rel, newMemStore())

	linhas, err := svc.PainelValidade(context.Background(), models.LocalGalpao, models.PainelFilter{OperadorLoja: "=", ValorLoja: intPtr(0)})
	require.NoError(t, err)
	require.Len(t, linhas, 2)
	assert.Equal(t, "1", linhas[0].EAN)
	assert.Equal(t, models.FaixaVencidoOuMenos30, linhas[0].Faixa)
	// sem saldo na loja conta como zero
	assert.Equal(t, "2", linhas[1].EAN)
	assert.Equal(t, models.Faixa90a180, linhas[1].Faixa)
	assert.Equal(t, 111, *linhas[1].DiasParaVencer)
}

func TestPainelValidade_Errors(t *testing.T) {
	svc := newRelatorioService(&fakeRelatorios{}, newMemStore())
	ctx := context.Background()

	_, err := svc.PainelValidade(ctx, models.Local("deposito"), models.PainelFilter{})
	assert.ErrorIs(t, err, ErrLocalInvalido)

	_, err = svc.PainelValidade(ctx, models.LocalGalpao, models.PainelFilter{OperadorLoja: "~", ValorLoja: intPtr(1)})
	assert.ErrorIs(t, err, ErrFiltroInvalido)
}

func TestSaldoConsolidado_Status(t *testing.T) {
	rel := &fakeRelatorios{saldo: []*models.LinhaSaldoConsolidado{
		{EAN: "1", SaldoGalpao: 10, SaldoWMS: 7},
		{EAN: "2", SaldoGalpao: 5, SaldoWMS: 5},
	}}
	svc := newRelatorioService(rel, newMemStore())

	linhas, err := svc.SaldoConsolidado(context.Background(), models.SaldoFilter{})
	require.NoError(t, err)
	require.Len(t, linhas, 2)
	assert.Equal(t, 3, linhas[0].Diferenca)
	assert.Equal(t, models.SaldoWMSMenor, linhas[0].Status)
	assert.Equal(t, models.SaldoOK, linhas[1].Status)

	linhas, err = svc.SaldoConsolidado(context.Background(), models.SaldoFilter{Status: string(models.SaldoOK)})
	require.NoError(t, err)
	require.Len(t, linhas, 1)
	assert.Equal(t, "2", linhas[0].EAN)
}

func TestIndicadores(t *testing.T) {
	store := newMemStore()
	p := store.addProduto(eanP, "Biscoito Recheado")
	dia := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	store.movs = []*models.Movimentacao{
		{Tipo: models.MovEntrada, Local: models.LocalGalpao, IDProduto: p.ID, Quantidade: 20, Data: dia},
		{Tipo: models.MovSaida, Local: models.LocalGalpao, IDProduto: p.ID, Quantidade: 6, Data: dia.AddDate(0, 0, 1)},
		{Tipo: models.MovEntrada, Local: models.LocalLoja, IDProduto: p.ID, Quantidade: 6, Data: dia.AddDate(0, 0, 1)},
		{Tipo: models.MovEntrada, Local: models.LocalGalpao, IDProduto: p.ID, Quantidade: 9, Data: dia.AddDate(0, 1, 0)},
	}
	store.contagens = []*models.Contagem{{EAN: eanP, Validade: models.NovaData(2025, 6, 1), Quantidade: 3}}
	svc := newRelatorioService(&fakeRelatorios{}, store)

	ind, err := svc.Indicadores(context.Background(), models.IndicadoresFilter{Ano: 2025, Mes: 3})
	require.NoError(t, err)
	assert.Equal(t, 20, ind.TotalEntradas)
	assert.Equal(t, 6, ind.TotalSaidas)
	assert.Equal(t, 1, ind.GruposContados)
	require.Len(t, ind.Serie, 2)
	assert.Equal(t, "2025-03-04", ind.Serie[0].Dia)

	_, err = svc.Indicadores(context.Background(), models.IndicadoresFilter{Mes: 13})
	assert.ErrorIs(t, err, ErrFiltroInvalido)
}
