package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"estoque-service/internal/models"
	"estoque-service/internal/planilha"
	"estoque-service/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// ImportacaoService importação de planilhas de cadastro e de estoque
type ImportacaoService interface {
	ImportarProdutos(ctx context.Context, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error)
	ImportarEstoque(ctx context.Context, sessao models.Sessao, local models.Local, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error)
}

type importacaoService struct {
	produtos repository.ProdutoRepository
	catalogo ProdutoService
	estoque  EstoqueService
	logger   *zap.Logger
}

// NewImportacaoService cria o serviço de importação
func NewImportacaoService(produtos repository.ProdutoRepository, catalogo ProdutoService, estoque EstoqueService, logger *zap.Logger) ImportacaoService {
	return &importacaoService{
		produtos: produtos,
		catalogo: catalogo,
		estoque:  estoque,
		logger:   logger,
	}
}

// EANValido EAN-13: exatamente 13 dígitos
func EANValido(ean string) bool {
	if len(ean) != 13 {
		return false
	}
	for _, c := range ean {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

// ImportarProdutos cadastra as linhas válidas; EANs já cadastrados (ou repetidos
// no arquivo) são ignorados
func (s *importacaoService) ImportarProdutos(ctx context.Context, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error) {
	logger := s.logger.With(zap.String("operation", "importar_produtos"), zap.String("arquivo", nomeArquivo))

	tabela, err := planilha.Ler(arquivo, nomeArquivo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArquivoInvalido, err)
	}
	for _, col := range []string{"ean", "descricao", "marca"} {
		if !tabela.Tem(col) {
			return nil, fmt.Errorf("%w: coluna %s ausente", ErrArquivoInvalido, col)
		}
	}

	eans := make([]string, 0, len(tabela.Linhas))
	for _, l := range tabela.Linhas {
		eans = append(eans, planilha.NormalizarEAN(l.Get("ean")))
	}
	existentes, err := s.produtos.EANsExistentes(ctx, eans)
	if err != nil {
		return nil, fmt.Errorf("erro verificando produtos existentes: %w", err)
	}

	// Caser guarda estado: um por importação
	titulo := cases.Title(language.BrazilianPortuguese)
	resultado := &models.ImportacaoResultado{Erros: []string{}}
	for _, l := range tabela.Linhas {
		ean := planilha.NormalizarEAN(l.Get("ean"))
		descricao := titulo.String(l.Get("descricao"))
		marca := titulo.String(l.Get("marca"))

		if !EANValido(ean) || descricao == "" || marca == "" {
			resultado.RegistrosIgnorados++
			resultado.Erros = append(resultado.Erros, fmt.Sprintf("Linha %d: EAN, descrição ou marca inválidos", l.Numero))
			continue
		}
		if existentes[ean] {
			resultado.RegistrosIgnorados++
			continue
		}

		produto := &models.Produto{EAN: ean, Descricao: descricao, Marca: marca}
		if err := s.produtos.Create(ctx, produto); err != nil {
			resultado.Erros = append(resultado.Erros, fmt.Sprintf("Linha %d: %v", l.Numero, err))
			continue
		}
		existentes[ean] = true
		resultado.RegistrosImportados++
	}

	s.catalogo.Esquecer(ctx, eans...)

	logger.Info("✅ Importação de produtos concluída",
		zap.Int("importados", resultado.RegistrosImportados),
		zap.Int("ignorados", resultado.RegistrosIgnorados),
		zap.Int("erros", len(resultado.Erros)))
	return resultado, nil
}

// ImportarEstoque registra cada linha como entrada no ledger do local. O
// produto precisa existir no catálogo.
func (s *importacaoService) ImportarEstoque(ctx context.Context, sessao models.Sessao, local models.Local, arquivo io.Reader, nomeArquivo string) (*models.ImportacaoResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "importar_estoque"),
		zap.String("local", string(local)),
		zap.String("arquivo", nomeArquivo),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	if !local.Valido() {
		return nil, ErrLocalInvalido
	}
	tabela, err := planilha.Ler(arquivo, nomeArquivo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrArquivoInvalido, err)
	}
	for _, col := range []string{"ean", "validade", "quantidade"} {
		if !tabela.Tem(col) {
			return nil, fmt.Errorf("%w: coluna %s ausente", ErrArquivoInvalido, col)
		}
	}

	resultado := &models.ImportacaoResultado{Erros: []string{}}
	for _, l := range tabela.Linhas {
		if err := s.importarLinhaEstoque(ctx, sessao, local, l); err != nil {
			resultado.Erros = append(resultado.Erros, fmt.Sprintf("Linha %d: %v", l.Numero, err))
			continue
		}
		resultado.RegistrosImportados++
	}

	logger.Info("✅ Importação de estoque concluída",
		zap.Int("importados", resultado.RegistrosImportados),
		zap.Int("erros", len(resultado.Erros)))
	return resultado, nil
}

func (s *importacaoService) importarLinhaEstoque(ctx context.Context, sessao models.Sessao, local models.Local, l planilha.Linha) error {
	ean := planilha.NormalizarEAN(l.Get("ean"))
	if ean == "" || l.Get("validade") == "" || l.Get("quantidade") == "" {
		return errors.New("campos obrigatórios ausentes")
	}
	quantidade, err := planilha.ParseQuantidade(l.Get("quantidade"))
	if err != nil {
		return err
	}
	if quantidade <= 0 {
		return errors.New("quantidade inválida ou zero")
	}
	validade, err := planilha.ParseValidade(l.Get("validade"))
	if err != nil {
		return err
	}

	req := &models.EntradaRequest{
		EAN:        ean,
		Validade:   validade.String(),
		Quantidade: quantidade,
		Lote:       l.Get("lote"),
		Endereco:   l.Get("endereco"),
	}
	_, err = s.estoque.RegistrarEntrada(ctx, sessao, local, req)
	if errors.Is(err, ErrProdutoNaoEncontrado) {
		return fmt.Errorf("produto com EAN %s não encontrado", ean)
	}
	return err
}

// LinhasCatalogo converte o catálogo nas linhas da planilha de exportação
func LinhasCatalogo(produtos []*models.Produto) ([]planilha.Coluna, [][]interface{}) {
	colunas := []planilha.Coluna{
		{Titulo: "EAN", Largura: 18},
		{Titulo: "Descrição", Largura: 45},
		{Titulo: "Marca", Largura: 25},
	}
	linhas := make([][]interface{}, 0, len(produtos))
	for _, p := range produtos {
		linhas = append(linhas, []interface{}{p.EAN, strings.TrimSpace(p.Descricao), strings.TrimSpace(p.Marca)})
	}
	return colunas, linhas
}
