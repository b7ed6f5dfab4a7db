package services

import (
	"context"
	"strings"
	"testing"

	"estoque-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

type importacaoFixture struct {
	store   *memStore
	svc     ImportacaoService
	produto *models.Produto
}

func newImportacaoFixture(t *testing.T) *importacaoFixture {
	t.Helper()
	store := newMemStore()
	produto := store.addProduto(eanP, "Biscoito Recheado")
	repos := store.repos()
	catalogo := NewProdutoService(repos.Produtos, nil, zap.NewNop())
	estoque := NewEstoqueService(&fakeTx{s: store}, repos, catalogo, &fakePublisher{}, zap.NewNop())
	svc := NewImportacaoService(repos.Produtos, catalogo, estoque, zap.NewNop())
	return &importacaoFixture{store: store, svc: svc, produto: produto}
}

func TestEANValido(t *testing.T) {
	assert.True(t, EANValido("7891234567895"))
	assert.False(t, EANValido("789123456789"))
	assert.False(t, EANValido("78912345678X5"))
	assert.False(t, EANValido(""))
}

func TestImportarProdutos_CSV(t *testing.T) {
	f := newImportacaoFixture(t)
	csv := strings.Join([]string{
		"EAN;Descrição;Marca",
		"7891000100103;biscoito de MAISENA;NESTLÉ",
		"123;curto;marca",
		"7891000100103;repetido no arquivo;Nestlé",
		eanP + ";já cadastrado;Marca",
		"",
		"7891000055120;achocolatado em pó;toddy",
	}, "\n")

	res, err := f.svc.ImportarProdutos(context.Background(), strings.NewReader(csv), "catalogo.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RegistrosImportados)
	assert.Equal(t, 3, res.RegistrosIgnorados)
	require.Len(t, res.Erros, 1)
	assert.Equal(t, "Linha 3: EAN, descrição ou marca inválidos", res.Erros[0])

	novo, _ := f.store.repos().Produtos.GetByEAN(context.Background(), "7891000100103")
	require.NotNil(t, novo)
	assert.Equal(t, "Biscoito De Maisena", novo.Descricao)
	assert.Equal(t, "Nestlé", novo.Marca)
	assert.Len(t, f.store.produtos, 3)
}

func TestImportarProdutos_InvalidFile(t *testing.T) {
	f := newImportacaoFixture(t)
	ctx := context.Background()

	_, err := f.svc.ImportarProdutos(ctx, strings.NewReader("ean;descricao\n7891000100103;x"), "catalogo.csv")
	assert.ErrorIs(t, err, ErrArquivoInvalido)

	_, err = f.svc.ImportarProdutos(ctx, strings.NewReader("qualquer coisa"), "catalogo.pdf")
	assert.ErrorIs(t, err, ErrArquivoInvalido)

	_, err = f.svc.ImportarProdutos(ctx, strings.NewReader(""), "catalogo.csv")
	assert.ErrorIs(t, err, ErrArquivoInvalido)
}

func TestImportarEstoque_CSV(t *testing.T) {
	f := newImportacaoFixture(t)
	csv := strings.Join([]string{
		"EAN,Validade,Qtd,Endereco",
		eanP + ",31/12/2025,10,A1",
		"7890000000001,2025-12-31,5,",
		eanP + ",2025-12-31,0,",
		eanP + ",,3,",
		eanP + ",2025-12-31,4,A1",
	}, "\n")

	res, err := f.svc.ImportarEstoque(context.Background(), sessaoTeste, models.LocalGalpao, strings.NewReader(csv), "estoque.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, res.RegistrosImportados)
	require.Len(t, res.Erros, 3)
	assert.Equal(t, "Linha 3: produto com EAN 7890000000001 não encontrado", res.Erros[0])
	assert.Contains(t, res.Erros[1], "Linha 4")
	assert.Contains(t, res.Erros[2], "campos obrigatórios")

	assert.Equal(t, 14, f.store.saldo(models.LocalGalpao, f.produto.ID, "2025-12-31"))
	assert.Len(t, f.store.movsDoTipo(models.MovEntrada, models.LocalGalpao), 2)
}

func TestImportarEstoque_XLSX(t *testing.T) {
	f := newImportacaoFixture(t)

	arquivo := excelize.NewFile()
	aba := arquivo.GetSheetName(0)
	require.NoError(t, arquivo.SetSheetRow(aba, "A1", &[]interface{}{"EAN", "Data de Validade", "Quantidade", "Lote"}))
	// 45658 é 01/01/2025 no calendário do Excel
	require.NoError(t, arquivo.SetSheetRow(aba, "A2", &[]interface{}{eanP, 45658, 4, "L-77"}))
	buf, err := arquivo.WriteToBuffer()
	require.NoError(t, err)

	res, err := f.svc.ImportarEstoque(context.Background(), sessaoTeste, models.LocalLoja, buf, "estoque.xlsx")
	require.NoError(t, err)
	assert.Equal(t, 1, res.RegistrosImportados)
	assert.Empty(t, res.Erros)

	assert.Equal(t, 4, f.store.saldo(models.LocalLoja, f.produto.ID, "2025-01-01"))
	require.Len(t, f.store.lotes[models.LocalLoja], 1)
	require.NotNil(t, f.store.lotes[models.LocalLoja][0].Lote)
	assert.Equal(t, "L-77", *f.store.lotes[models.LocalLoja][0].Lote)
}

func TestImportarEstoque_InvalidLocal(t *testing.T) {
	f := newImportacaoFixture(t)
	_, err := f.svc.ImportarEstoque(context.Background(), sessaoTeste, models.Local("deposito"), strings.NewReader("ean,validade,quantidade"), "estoque.csv")
	assert.ErrorIs(t, err, ErrLocalInvalido)
}
