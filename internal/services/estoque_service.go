package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"estoque-service/internal/events"
	"estoque-service/internal/models"
	"estoque-service/internal/repository"

	"go.uber.org/zap"
)

const destinoLoja = "loja"

// EstoqueService operações do ledger de lotes
type EstoqueService interface {
	// Operações básicas
	RegistrarEntrada(ctx context.Context, sessao models.Sessao, local models.Local, req *models.EntradaRequest) (*models.MovimentoResultado, error)
	RegistrarSaida(ctx context.Context, sessao models.Sessao, local models.Local, req *models.SaidaRequest) (*models.MovimentoResultado, error)

	// Transferências
	TransferirParaLoja(ctx context.Context, sessao models.Sessao, req *models.TransferenciaLojaRequest) (*models.TransferenciaResultado, error)
	TransferirEndereco(ctx context.Context, sessao models.Sessao, req *models.TransferenciaEnderecoRequest) (*models.TransferenciaResultado, error)

	// Operações múltiplas
	EntradaMultiple(ctx context.Context, sessao models.Sessao, local models.Local, req *models.EntradaMultipleRequest) *models.MultipleResponse
	SaidaMultiple(ctx context.Context, sessao models.Sessao, local models.Local, req *models.SaidaMultipleRequest) *models.MultipleResponse

	// Consultas
	ListarEstoque(ctx context.Context, local models.Local, filter models.EstoqueFilter) ([]*models.LoteComProduto, error)
	ListarMovimentacoes(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, filter models.MovimentacaoFilter) ([]*models.MovimentacaoComProduto, error)
}

// ResolvedorProduto busca produtos do catálogo (com cache)
type ResolvedorProduto interface {
	BuscarPorID(ctx context.Context, id int64) (*models.Produto, error)
	BuscarPorEAN(ctx context.Context, ean string) (*models.Produto, error)
}

type estoqueService struct {
	tx        repository.TxRunner
	repos     repository.Repositorios
	produtos  ResolvedorProduto
	publisher events.Publisher
	logger    *zap.Logger
}

// NewEstoqueService cria o serviço do ledger. repos atende as consultas fora de transação.
func NewEstoqueService(
	tx repository.TxRunner,
	repos repository.Repositorios,
	produtos ResolvedorProduto,
	publisher events.Publisher,
	logger *zap.Logger,
) EstoqueService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &estoqueService{
		tx:        tx,
		repos:     repos,
		produtos:  produtos,
		publisher: publisher,
		logger:    logger,
	}
}

// movimento parâmetros já validados de uma escrita no ledger
type movimento struct {
	produto  *models.Produto
	local    models.Local
	validade *models.Data
	endereco *string
	lote     *string
	n        int
	destino  *string
}

// RegistrarEntrada encontra ou cria o lote e soma a quantidade, gravando o histórico na mesma transação
func (s *estoqueService) RegistrarEntrada(ctx context.Context, sessao models.Sessao, local models.Local, req *models.EntradaRequest) (*models.MovimentoResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "registrar_entrada"),
		zap.String("local", string(local)),
		zap.String("ean", req.EAN),
		zap.Int64("id_produto", req.IDProduto),
		zap.Int("quantidade", req.Quantidade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	if !local.Valido() {
		return nil, ErrLocalInvalido
	}
	if req.Quantidade <= 0 {
		return nil, ErrQuantidadeInvalida
	}
	validade, err := models.ParseDataOpcional(req.Validade)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidadeInvalida, req.Validade)
	}

	produto, err := s.resolverProduto(ctx, req.IDProduto, req.EAN)
	if err != nil {
		logger.Warn("❌ Produto não encontrado", zap.Error(err))
		return nil, err
	}

	mov := movimento{
		produto:  produto,
		local:    local,
		validade: validade,
		endereco: enderecoDoLocal(local, req.Endereco),
		lote:     textoOpcional(req.Lote),
		n:        req.Quantidade,
	}

	var (
		resultado *models.MovimentoResultado
		historico *models.Movimentacao
	)
	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		var err error
		resultado, historico, err = entradaNoLedger(ctx, repos, sessao, mov)
		return err
	})
	if err != nil {
		logger.Error("❌ Erro registrando entrada", zap.Error(err))
		return nil, fmt.Errorf("erro registrando entrada: %w", err)
	}

	s.publicar(ctx, historico)
	logger.Info("✅ Entrada registrada", zap.Int("quantidade_nova", resultado.QuantidadeNova))
	return resultado, nil
}

// RegistrarSaida aplica as pré-condições (quantidade, validade, FEFO, lote, saldo) e baixa o lote
func (s *estoqueService) RegistrarSaida(ctx context.Context, sessao models.Sessao, local models.Local, req *models.SaidaRequest) (*models.MovimentoResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "registrar_saida"),
		zap.String("local", string(local)),
		zap.String("ean", req.EAN),
		zap.Int64("id_produto", req.IDProduto),
		zap.Int("quantidade", req.Quantidade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	mov, err := s.prepararSaida(ctx, local, req.IDProduto, req.EAN, req.Validade, req.Endereco, req.Quantidade)
	if err != nil {
		logger.Warn("❌ Saída rejeitada", zap.Error(err))
		return nil, err
	}
	mov.lote = textoOpcional(req.Lote)

	var (
		resultado *models.MovimentoResultado
		historico *models.Movimentacao
	)
	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		var err error
		resultado, historico, err = saidaNoLedger(ctx, repos, sessao, mov)
		return err
	})
	if err != nil {
		logger.Warn("❌ Erro registrando saída", zap.Error(err))
		return nil, fmt.Errorf("erro registrando saída: %w", err)
	}

	s.publicar(ctx, historico)
	logger.Info("✅ Saída registrada", zap.Int("quantidade_nova", resultado.QuantidadeNova))
	return resultado, nil
}

// TransferirParaLoja baixa do galpão (com FEFO) e dá entrada na loja na mesma transação
func (s *estoqueService) TransferirParaLoja(ctx context.Context, sessao models.Sessao, req *models.TransferenciaLojaRequest) (*models.TransferenciaResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "transferir_para_loja"),
		zap.String("ean", req.EAN),
		zap.Int("quantidade", req.Quantidade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	saida, err := s.prepararSaida(ctx, models.LocalGalpao, req.IDProduto, req.EAN, req.Validade, req.Endereco, req.Quantidade)
	if err != nil {
		logger.Warn("❌ Transferência rejeitada", zap.Error(err))
		return nil, err
	}
	destino := destinoLoja
	saida.destino = &destino

	var (
		resultado models.TransferenciaResultado
		mSaida    *models.Movimentacao
		mEntrada  *models.Movimentacao
	)
	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		origem, hist, err := saidaNoLedger(ctx, repos, sessao, saida)
		if err != nil {
			return err
		}
		resultado.Origem, mSaida = *origem, hist

		entrada := movimento{
			produto:  saida.produto,
			local:    models.LocalLoja,
			validade: saida.validade,
			lote:     hist.Lote,
			n:        saida.n,
		}
		dest, hist, err := entradaNoLedger(ctx, repos, sessao, entrada)
		if err != nil {
			return err
		}
		resultado.Destino, mEntrada = *dest, hist
		return nil
	})
	if err != nil {
		logger.Warn("❌ Erro na transferência para a loja", zap.Error(err))
		return nil, fmt.Errorf("erro na transferência para a loja: %w", err)
	}

	s.publicar(ctx, mSaida)
	s.publicar(ctx, mEntrada)
	logger.Info("✅ Transferência para a loja concluída")
	return &resultado, nil
}

// TransferirEndereco move unidades entre endereços do galpão. O total do
// produto não muda, por isso não gera linhas de entrada/saída.
func (s *estoqueService) TransferirEndereco(ctx context.Context, sessao models.Sessao, req *models.TransferenciaEnderecoRequest) (*models.TransferenciaResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "transferir_endereco"),
		zap.String("ean", req.EAN),
		zap.String("origem", req.EnderecoOrigem),
		zap.String("destino", req.EnderecoDestino),
		zap.Int("quantidade", req.Quantidade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	if req.Quantidade <= 0 {
		return nil, ErrQuantidadeInvalida
	}
	origemEnd := textoOpcional(req.EnderecoOrigem)
	destinoEnd := textoOpcional(req.EnderecoDestino)
	if destinoEnd == nil || (origemEnd != nil && *origemEnd == *destinoEnd) {
		return nil, ErrEnderecoInvalido
	}
	validade, err := models.ParseDataOpcional(req.Validade)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidadeInvalida, req.Validade)
	}
	produto, err := s.resolverProduto(ctx, req.IDProduto, req.EAN)
	if err != nil {
		return nil, err
	}

	var resultado models.TransferenciaResultado
	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		galpao := repos.Galpao
		if err := galpao.TravarProduto(ctx, produto.ID); err != nil {
			return err
		}
		origem, err := galpao.Buscar(ctx, models.ChaveLote{IDProduto: produto.ID, Validade: validade, Endereco: origemEnd})
		if err != nil {
			return err
		}
		if origem == nil {
			return ErrLoteNaoEncontrado
		}
		if req.Quantidade > origem.Quantidade {
			return &ErrSaldoInsuficiente{Disponivel: origem.Quantidade, Solicitado: req.Quantidade}
		}

		novaOrigem, ok, err := galpao.Decrementar(ctx, origem.ID, req.Quantidade)
		if err != nil {
			return err
		}
		if !ok {
			return ErrConflitoConcorrencia
		}

		dest, err := galpao.Somar(ctx, models.ChaveLote{IDProduto: produto.ID, Validade: validade, Endereco: destinoEnd},
			produto.EAN, origem.Lote, req.Quantidade)
		if err != nil {
			return err
		}

		agora := time.Now().Format(time.RFC3339)
		resultado.Origem = models.MovimentoResultado{
			IDProduto: produto.ID, EAN: produto.EAN, Local: models.LocalGalpao, Validade: validade,
			Endereco: origemEnd, Quantidade: req.Quantidade,
			QuantidadeAnterior: origem.Quantidade, QuantidadeNova: novaOrigem, Timestamp: agora,
		}
		resultado.Destino = models.MovimentoResultado{
			IDProduto: produto.ID, EAN: produto.EAN, Local: models.LocalGalpao, Validade: validade,
			Endereco: destinoEnd, Quantidade: req.Quantidade,
			QuantidadeAnterior: dest.Quantidade - req.Quantidade, QuantidadeNova: dest.Quantidade, Timestamp: agora,
		}
		return nil
	})
	if err != nil {
		logger.Warn("❌ Erro na transferência de endereço", zap.Error(err))
		return nil, fmt.Errorf("erro na transferência de endereço: %w", err)
	}

	logger.Info("✅ Transferência de endereço concluída")
	return &resultado, nil
}

// EntradaMultiple processa cada item de forma independente
func (s *estoqueService) EntradaMultiple(ctx context.Context, sessao models.Sessao, local models.Local, req *models.EntradaMultipleRequest) *models.MultipleResponse {
	logger := s.logger.With(
		zap.String("operation", "entrada_multiple"),
		zap.String("local", string(local)),
		zap.Int("itens", len(req.Itens)),
	)

	resultados := []models.ItemResultado{}
	erros := []models.ItemErro{}
	for i := range req.Itens {
		item := req.Itens[i]
		res, err := s.RegistrarEntrada(ctx, sessao, local, &item)
		if err != nil {
			erros = append(erros, models.ItemErro{Indice: i, EAN: item.EAN, Error: err.Error()})
			continue
		}
		resultados = append(resultados, itemResultado(i, res))
	}

	logger.Info("✅ Entrada múltiple concluída",
		zap.Int("processados", len(resultados)),
		zap.Int("falhas", len(erros)))
	return respostaMultiple(resultados, erros, "✅ Entradas registradas corretamente")
}

// SaidaMultiple processa cada saída de forma independente
func (s *estoqueService) SaidaMultiple(ctx context.Context, sessao models.Sessao, local models.Local, req *models.SaidaMultipleRequest) *models.MultipleResponse {
	logger := s.logger.With(
		zap.String("operation", "saida_multiple"),
		zap.String("local", string(local)),
		zap.Int("itens", len(req.Itens)),
	)

	resultados := []models.ItemResultado{}
	erros := []models.ItemErro{}
	for i := range req.Itens {
		item := req.Itens[i]
		res, err := s.RegistrarSaida(ctx, sessao, local, &item)
		if err != nil {
			erros = append(erros, models.ItemErro{Indice: i, EAN: item.EAN, Error: err.Error()})
			continue
		}
		resultados = append(resultados, itemResultado(i, res))
	}

	logger.Info("✅ Saída múltiple concluída",
		zap.Int("processados", len(resultados)),
		zap.Int("falhas", len(erros)))
	return respostaMultiple(resultados, erros, "✅ Saídas registradas corretamente")
}

func (s *estoqueService) ListarEstoque(ctx context.Context, local models.Local, filter models.EstoqueFilter) ([]*models.LoteComProduto, error) {
	if !local.Valido() {
		return nil, ErrLocalInvalido
	}
	return s.repos.Estoque(local).List(ctx, filter)
}

func (s *estoqueService) ListarMovimentacoes(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, filter models.MovimentacaoFilter) ([]*models.MovimentacaoComProduto, error) {
	if !local.Valido() {
		return nil, ErrLocalInvalido
	}
	return s.repos.Movimentacoes.Listar(ctx, tipo, local, filter)
}

// prepararSaida valida as pré-condições que não dependem do ledger, na ordem
// quantidade, validade, produto
func (s *estoqueService) prepararSaida(ctx context.Context, local models.Local, idProduto int64, ean, validadeTxt, endereco string, quantidade int) (movimento, error) {
	if !local.Valido() {
		return movimento{}, ErrLocalInvalido
	}
	if quantidade <= 0 {
		return movimento{}, ErrQuantidadeInvalida
	}
	if strings.TrimSpace(validadeTxt) == "" {
		return movimento{}, ErrValidadeObrigatoria
	}
	validade, err := models.ParseData(validadeTxt)
	if err != nil {
		return movimento{}, fmt.Errorf("%w: %s", ErrValidadeInvalida, validadeTxt)
	}
	produto, err := s.resolverProduto(ctx, idProduto, ean)
	if err != nil {
		return movimento{}, err
	}
	return movimento{
		produto:  produto,
		local:    local,
		validade: &validade,
		endereco: enderecoDoLocal(local, endereco),
		n:        quantidade,
	}, nil
}

func (s *estoqueService) resolverProduto(ctx context.Context, id int64, ean string) (*models.Produto, error) {
	var (
		produto *models.Produto
		err     error
	)
	switch {
	case id > 0:
		produto, err = s.produtos.BuscarPorID(ctx, id)
	case strings.TrimSpace(ean) != "":
		produto, err = s.produtos.BuscarPorEAN(ctx, strings.TrimSpace(ean))
	default:
		return nil, ErrProdutoNaoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if produto == nil {
		return nil, ErrProdutoNaoEncontrado
	}
	return produto, nil
}

// publicar envia o evento depois do commit; falhas não desfazem o ledger
func (s *estoqueService) publicar(ctx context.Context, mov *models.Movimentacao) {
	if mov == nil {
		return
	}
	if err := s.publisher.PublicarMovimentacao(ctx, mov); err != nil {
		s.logger.Warn("⚠️ Falha publicando evento de movimentação",
			zap.String("tipo", string(mov.Tipo)),
			zap.Int64("id", mov.ID),
			zap.Error(err))
	}
}

// entradaNoLedger soma ao lote e grava o histórico de entrada
func entradaNoLedger(ctx context.Context, repos repository.Repositorios, sessao models.Sessao, mov movimento) (*models.MovimentoResultado, *models.Movimentacao, error) {
	ledger := repos.Estoque(mov.local)
	if err := ledger.TravarProduto(ctx, mov.produto.ID); err != nil {
		return nil, nil, err
	}

	chave := models.ChaveLote{IDProduto: mov.produto.ID, Validade: mov.validade, Endereco: mov.endereco}
	lote, err := ledger.Somar(ctx, chave, mov.produto.EAN, mov.lote, mov.n)
	if err != nil {
		return nil, nil, err
	}

	hist := &models.Movimentacao{
		Tipo:               models.MovEntrada,
		Local:              mov.local,
		IDProduto:          mov.produto.ID,
		EAN:                mov.produto.EAN,
		Validade:           mov.validade,
		Quantidade:         mov.n,
		Lote:               mov.lote,
		Endereco:           mov.endereco,
		QuantidadeAnterior: lote.Quantidade - mov.n,
		QuantidadeNova:     lote.Quantidade,
		UsuarioEmail:       sessao.UsuarioEmail,
	}
	if err := repos.Movimentacoes.Registrar(ctx, hist); err != nil {
		return nil, nil, err
	}

	return resultadoDe(hist), hist, nil
}

// saidaNoLedger aplica FEFO, localiza o lote com lock e baixa com decremento condicional
func saidaNoLedger(ctx context.Context, repos repository.Repositorios, sessao models.Sessao, mov movimento) (*models.MovimentoResultado, *models.Movimentacao, error) {
	ledger := repos.Estoque(mov.local)

	// entradas do mesmo produto esperam; nenhum lote mais antigo surge entre o FEFO e a baixa
	if err := ledger.TravarProduto(ctx, mov.produto.ID); err != nil {
		return nil, nil, err
	}
	bloqueante, err := ledger.ValidadeBloqueante(ctx, mov.produto.ID, *mov.validade)
	if err != nil {
		return nil, nil, err
	}
	if bloqueante != nil {
		return nil, nil, &ErrFEFO{ValidadeBloqueante: *bloqueante}
	}

	var lote *models.LoteEstoque
	if mov.endereco != nil {
		lote, err = ledger.Buscar(ctx, models.ChaveLote{IDProduto: mov.produto.ID, Validade: mov.validade, Endereco: mov.endereco})
	} else {
		lote, err = ledger.BuscarPrimeiro(ctx, mov.produto.ID, mov.validade, mov.n)
	}
	if err != nil {
		return nil, nil, err
	}
	if lote == nil {
		return nil, nil, ErrLoteNaoEncontrado
	}
	if mov.n > lote.Quantidade {
		return nil, nil, &ErrSaldoInsuficiente{Disponivel: lote.Quantidade, Solicitado: mov.n}
	}

	anterior := lote.Quantidade
	nova, ok, err := ledger.Decrementar(ctx, lote.ID, mov.n)
	if err != nil {
		if errors.Is(err, repository.ErrQuantidadeNegativa) {
			return nil, nil, ErrConflitoConcorrencia
		}
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrConflitoConcorrencia
	}

	hist := &models.Movimentacao{
		Tipo:               models.MovSaida,
		Local:              mov.local,
		IDProduto:          mov.produto.ID,
		EAN:                mov.produto.EAN,
		Validade:           lote.Validade,
		Quantidade:         mov.n,
		Lote:               primeiroTexto(mov.lote, lote.Lote),
		Endereco:           lote.Endereco,
		Destino:            mov.destino,
		QuantidadeAnterior: anterior,
		QuantidadeNova:     nova,
		UsuarioEmail:       sessao.UsuarioEmail,
	}
	if err := repos.Movimentacoes.Registrar(ctx, hist); err != nil {
		return nil, nil, err
	}

	return resultadoDe(hist), hist, nil
}

func resultadoDe(hist *models.Movimentacao) *models.MovimentoResultado {
	return &models.MovimentoResultado{
		IDProduto:          hist.IDProduto,
		EAN:                hist.EAN,
		Local:              hist.Local,
		Validade:           hist.Validade,
		Endereco:           hist.Endereco,
		Quantidade:         hist.Quantidade,
		QuantidadeAnterior: hist.QuantidadeAnterior,
		QuantidadeNova:     hist.QuantidadeNova,
		Timestamp:          time.Now().Format(time.RFC3339),
	}
}

func itemResultado(i int, res *models.MovimentoResultado) models.ItemResultado {
	return models.ItemResultado{
		Indice:         i,
		IDProduto:      res.IDProduto,
		EAN:            res.EAN,
		Quantidade:     res.Quantidade,
		QuantidadeNova: res.QuantidadeNova,
		Success:        true,
	}
}

func respostaMultiple(resultados []models.ItemResultado, erros []models.ItemErro, ok string) *models.MultipleResponse {
	message := ok
	if len(erros) > 0 {
		message = "Alguns itens não puderam ser processados"
	}
	return &models.MultipleResponse{
		Success:    len(erros) == 0,
		Message:    message,
		TotalItens: len(resultados) + len(erros),
		Resultados: resultados,
		Erros:      erros,
		Timestamp:  time.Now().Format(time.RFC3339),
	}
}

// enderecoDoLocal a loja não trabalha com endereços
func enderecoDoLocal(local models.Local, endereco string) *string {
	if local == models.LocalLoja {
		return nil
	}
	return textoOpcional(endereco)
}

func textoOpcional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func primeiroTexto(valores ...*string) *string {
	for _, v := range valores {
		if v != nil && *v != "" {
			return v
		}
	}
	return nil
}
