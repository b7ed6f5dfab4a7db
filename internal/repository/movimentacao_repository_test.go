package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"estoque-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTabelaHistorico(t *testing.T) {
	cases := []struct {
		tipo   models.TipoMovimentacao
		local  models.Local
		tabela string
	}{
		{models.MovEntrada, models.LocalGalpao, "entrada_historico"},
		{models.MovSaida, models.LocalGalpao, "saida_historico"},
		{models.MovAjuste, models.LocalGalpao, "ajuste_historico"},
		{models.MovEntrada, models.LocalLoja, "entrada_loja_historico"},
		{models.MovSaida, models.LocalLoja, "saida_loja_historico"},
		{models.MovAjuste, models.LocalLoja, "ajuste_loja_historico"},
	}
	for _, c := range cases {
		tabela, err := tabelaHistorico(c.tipo, c.local)
		require.NoError(t, err)
		assert.Equal(t, c.tabela, tabela)
	}

	_, err := tabelaHistorico("transferencia; DROP TABLE produto", models.LocalGalpao)
	assert.Error(t, err)
}

func TestMovimentacaoRepository_Registrar(t *testing.T) {
	mock, db := newMock(t)
	repo := NewMovimentacaoRepository(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO saida_historico")).
		WithArgs(int64(7), "789", nil, 3, nil, "A1", "loja", 10, 7, "ana@loja.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "data"}).AddRow(int64(99), now))

	mov := &models.Movimentacao{
		Tipo:               models.MovSaida,
		Local:              models.LocalGalpao,
		IDProduto:          7,
		EAN:                "789",
		Quantidade:         3,
		Endereco:           strPtr("A1"),
		Destino:            strPtr("loja"),
		QuantidadeAnterior: 10,
		QuantidadeNova:     7,
		UsuarioEmail:       "ana@loja.com",
	}
	require.NoError(t, repo.Registrar(context.Background(), mov))
	assert.Equal(t, int64(99), mov.ID)
	assert.True(t, now.Equal(mov.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMovimentacaoRepository_RegistrarPropagatesErrors(t *testing.T) {
	mock, db := newMock(t)
	repo := NewMovimentacaoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO entrada_loja_historico")).
		WillReturnError(errors.New("connection reset"))

	err := repo.Registrar(context.Background(), &models.Movimentacao{Tipo: models.MovEntrada, Local: models.LocalLoja})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entrada_loja_historico")
}

func TestMovimentacaoRepository_SerieDiaria(t *testing.T) {
	mock, db := newMock(t)
	repo := NewMovimentacaoRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM entrada_historico WHERE EXTRACT(YEAR FROM data) = $1 AND EXTRACT(MONTH FROM data) = $2")).
		WithArgs(2025, 11).
		WillReturnRows(sqlmock.NewRows([]string{"dia", "sum"}).
			AddRow("2025-11-01", 10).
			AddRow("2025-11-03", 4))

	serie, err := repo.SerieDiaria(context.Background(), models.MovEntrada, models.LocalGalpao, 2025, 11)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"2025-11-01": 10, "2025-11-03": 4}, serie)
}

func TestMovimentacaoRepository_ListarNewestFirst(t *testing.T) {
	mock, db := newMock(t)
	repo := NewMovimentacaoRepository(db)

	now := time.Now()
	cols := []string{"id", "id_produto", "ean", "validade", "quantidade", "lote", "endereco", "destino",
		"quantidade_anterior", "quantidade_nova", "usuario_email", "data", "descricao", "marca"}
	mock.ExpectQuery(regexp.QuoteMeta("LIMIT $2")).
		WithArgs("%789%", 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), int64(7), "789", nil, 3, nil, nil, "loja", 10, 7, "ana@loja.com", now, "Leite", "M"))

	movs, err := repo.Listar(context.Background(), models.MovSaida, models.LocalGalpao,
		models.MovimentacaoFilter{EAN: "789", Limit: 50})
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, models.MovSaida, movs[0].Tipo)
	assert.Equal(t, "loja", *movs[0].Destino)
	assert.Nil(t, movs[0].Lote)
}
