package services

import (
	"context"
	"fmt"
	"strings"

	"estoque-service/internal/events"
	"estoque-service/internal/models"
	"estoque-service/internal/repository"

	"go.uber.org/zap"
)

// ContagemService registro e conciliação de contagens físicas
type ContagemService interface {
	Registrar(ctx context.Context, sessao models.Sessao, req *models.ContagemRequest) (*models.Contagem, error)
	Grupos(ctx context.Context, filter models.ContagemFilter) ([]*models.GrupoContagem, error)
	Ajustar(ctx context.Context, sessao models.Sessao, req *models.AjusteRequest) (*models.AjusteResultado, error)
	Historico(ctx context.Context, ean string) (*models.HistoricoContagens, error)
	Arquivar(ctx context.Context) (int64, error)
}

type contagemService struct {
	tx        repository.TxRunner
	repos     repository.Repositorios
	produtos  ResolvedorProduto
	publisher events.Publisher
	logger    *zap.Logger
}

// NewContagemService cria o serviço de contagens
func NewContagemService(
	tx repository.TxRunner,
	repos repository.Repositorios,
	produtos ResolvedorProduto,
	publisher events.Publisher,
	logger *zap.Logger,
) ContagemService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &contagemService{
		tx:        tx,
		repos:     repos,
		produtos:  produtos,
		publisher: publisher,
		logger:    logger,
	}
}

// Registrar grava uma contagem; EAN desconhecido é aceito com id_produto nulo
func (s *contagemService) Registrar(ctx context.Context, sessao models.Sessao, req *models.ContagemRequest) (*models.Contagem, error) {
	logger := s.logger.With(
		zap.String("operation", "registrar_contagem"),
		zap.String("ean", req.EAN),
		zap.Int("quantidade", req.Quantidade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	ean := strings.TrimSpace(req.EAN)
	if ean == "" {
		return nil, ErrProdutoNaoEncontrado
	}
	if req.Quantidade < 0 {
		return nil, ErrQuantidadeInvalida
	}
	validade, err := validadeObrigatoria(req.Validade)
	if err != nil {
		return nil, err
	}

	contagem := &models.Contagem{
		EAN:          ean,
		Validade:     validade,
		Quantidade:   req.Quantidade,
		UsuarioEmail: sessao.UsuarioEmail,
	}
	produto, err := s.produtos.BuscarPorEAN(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("erro buscando produto: %w", err)
	}
	if produto != nil {
		id := produto.ID
		contagem.IDProduto = &id
	} else {
		logger.Info("🔍 Contagem de EAN sem cadastro")
	}

	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		if err := repos.Contagens.TravarGrupo(ctx, ean, validade); err != nil {
			return err
		}
		return repos.Contagens.Create(ctx, contagem)
	})
	if err != nil {
		logger.Error("❌ Erro registrando contagem", zap.Error(err))
		return nil, fmt.Errorf("erro registrando contagem: %w", err)
	}

	logger.Info("✅ Contagem registrada", zap.Int("contagem_num", contagem.ContagemNum))
	return contagem, nil
}

// Grupos agrupa as contagens por (ean, validade) e compara a última contagem
// com a soma do ledger no local
func (s *contagemService) Grupos(ctx context.Context, filter models.ContagemFilter) ([]*models.GrupoContagem, error) {
	local := filter.Local
	if local == "" {
		local = models.LocalGalpao
	}
	if !local.Valido() {
		return nil, ErrLocalInvalido
	}

	// todas as contagens: o estado do grupo depende da mais recente, ajustada ou não
	contagens, err := s.repos.Contagens.List(ctx, models.ContagemFilter{EAN: filter.EAN})
	if err != nil {
		return nil, fmt.Errorf("erro listando contagens: %w", err)
	}

	grupos := AgruparContagens(contagens, local)

	var ids []int64
	vistos := make(map[int64]bool)
	for _, g := range grupos {
		if g.IDProduto != nil && !vistos[*g.IDProduto] {
			vistos[*g.IDProduto] = true
			ids = append(ids, *g.IDProduto)
		}
	}
	somas, err := s.repos.Estoque(local).SomasPorProdutoValidade(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("erro somando ledger: %w", err)
	}

	resultado := make([]*models.GrupoContagem, 0, len(grupos))
	for _, g := range grupos {
		if g.IDProduto != nil {
			if total, ok := somas[repository.NovaChaveSaldo(*g.IDProduto, g.Validade)]; ok {
				t := total
				g.QuantidadeSistema = &t
			}
		}
		g.Status, g.Diferenca = StatusGrupo(g.QuantidadeContada, g.QuantidadeSistema)
		if filter.SomentePendentes && g.Estado == models.EstadoAjustado {
			continue
		}
		resultado = append(resultado, g)
	}
	return resultado, nil
}

// Ajustar sobrescreve o ledger com a última contagem pendente e marca o grupo como ajustado
func (s *contagemService) Ajustar(ctx context.Context, sessao models.Sessao, req *models.AjusteRequest) (*models.AjusteResultado, error) {
	logger := s.logger.With(
		zap.String("operation", "ajustar_contagem"),
		zap.String("ean", req.EAN),
		zap.String("validade", req.Validade),
		zap.String("usuario", sessao.UsuarioEmail),
	)

	local, ok := models.ParseLocal(req.Local)
	if !ok {
		return nil, ErrLocalInvalido
	}
	ean := strings.TrimSpace(req.EAN)
	validade, err := validadeObrigatoria(req.Validade)
	if err != nil {
		return nil, err
	}

	var (
		resultado *models.AjusteResultado
		historico *models.Movimentacao
	)
	err = s.tx.Run(ctx, func(repos repository.Repositorios) error {
		if err := repos.Contagens.TravarGrupo(ctx, ean, validade); err != nil {
			return err
		}
		contagem, err := repos.Contagens.UltimaPendente(ctx, ean, validade)
		if err != nil {
			return err
		}
		if contagem == nil {
			return ErrSemContagemPendente
		}

		idProduto, err := s.idProdutoDaContagem(ctx, repos, contagem)
		if err != nil {
			return err
		}

		ledger := repos.Estoque(local)
		if err := ledger.TravarProduto(ctx, idProduto); err != nil {
			return err
		}
		lotes, err := ledger.ListarPorProdutoValidade(ctx, idProduto, &validade)
		if err != nil {
			return err
		}

		anterior := 0
		for _, l := range lotes {
			anterior += l.Quantidade
		}

		// primeira linha (sem endereço primeiro) recebe o contado, as demais zeram
		if len(lotes) == 0 {
			if _, err := ledger.Somar(ctx, models.ChaveLote{IDProduto: idProduto, Validade: &validade}, ean, nil, contagem.Quantidade); err != nil {
				return err
			}
		} else {
			if err := ledger.DefinirQuantidade(ctx, lotes[0].ID, contagem.Quantidade); err != nil {
				return err
			}
			for _, l := range lotes[1:] {
				if l.Quantidade == 0 {
					continue
				}
				if err := ledger.DefinirQuantidade(ctx, l.ID, 0); err != nil {
					return err
				}
			}
		}

		v := validade
		historico = &models.Movimentacao{
			Tipo:               models.MovAjuste,
			Local:              local,
			IDProduto:          idProduto,
			EAN:                ean,
			Validade:           &v,
			Quantidade:         contagem.Quantidade - anterior,
			QuantidadeAnterior: anterior,
			QuantidadeNova:     contagem.Quantidade,
			UsuarioEmail:       sessao.UsuarioEmail,
		}
		if err := repos.Movimentacoes.Registrar(ctx, historico); err != nil {
			return err
		}

		ajustadas, err := repos.Contagens.MarcarAjustadas(ctx, ean, validade)
		if err != nil {
			return err
		}

		resultado = &models.AjusteResultado{
			EAN:                ean,
			Validade:           validade,
			Local:              local,
			QuantidadeAnterior: anterior,
			QuantidadeNova:     contagem.Quantidade,
			ContagensAjustadas: ajustadas,
		}
		return nil
	})
	if err != nil {
		logger.Warn("❌ Ajuste não realizado", zap.Error(err))
		return nil, fmt.Errorf("erro ajustando estoque: %w", err)
	}

	if err := s.publisher.PublicarMovimentacao(ctx, historico); err != nil {
		logger.Warn("⚠️ Falha publicando evento de ajuste", zap.Error(err))
	}

	logger.Info("✅ Estoque ajustado",
		zap.Int("quantidade_anterior", resultado.QuantidadeAnterior),
		zap.Int("quantidade_nova", resultado.QuantidadeNova))
	return resultado, nil
}

// Historico contagens brutas (mais recentes primeiro) e totais em aberto
func (s *contagemService) Historico(ctx context.Context, ean string) (*models.HistoricoContagens, error) {
	ean = strings.TrimSpace(ean)
	contagens, err := s.repos.Contagens.List(ctx, models.ContagemFilter{EAN: ean})
	if err != nil {
		return nil, fmt.Errorf("erro listando contagens: %w", err)
	}
	totais, err := s.repos.Contagens.TotaisAbertos(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("erro somando contagens: %w", err)
	}

	lista := make([]models.ContagemComProduto, 0, len(contagens))
	for _, c := range contagens {
		lista = append(lista, *c)
	}
	return &models.HistoricoContagens{Contagens: lista, Totais: totais}, nil
}

// Arquivar move contagens já ajustadas para contagens_arquivo. Nunca é
// chamado por consultas.
func (s *contagemService) Arquivar(ctx context.Context) (int64, error) {
	var arquivadas int64
	err := s.tx.Run(ctx, func(repos repository.Repositorios) error {
		var err error
		arquivadas, err = repos.Contagens.Arquivar(ctx)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("erro arquivando contagens: %w", err)
	}
	s.logger.Info("✅ Contagens arquivadas", zap.Int64("total", arquivadas))
	return arquivadas, nil
}

func (s *contagemService) idProdutoDaContagem(ctx context.Context, repos repository.Repositorios, c *models.Contagem) (int64, error) {
	if c.IDProduto != nil {
		return *c.IDProduto, nil
	}
	// o produto pode ter sido cadastrado depois da contagem
	produto, err := repos.Produtos.GetByEAN(ctx, c.EAN)
	if err != nil {
		return 0, err
	}
	if produto == nil {
		return 0, ErrProdutoNaoEncontrado
	}
	return produto.ID, nil
}

// AgruparContagens agrupa contagens ordenadas da mais recente para a mais
// antiga; a primeira de cada (ean, validade) é a última contagem do grupo
func AgruparContagens(contagens []*models.ContagemComProduto, local models.Local) []*models.GrupoContagem {
	grupos := make([]*models.GrupoContagem, 0)
	indice := make(map[string]*models.GrupoContagem)

	for _, c := range contagens {
		chave := c.EAN + "|" + c.Validade.String()
		g, ok := indice[chave]
		if !ok {
			ultima := c.Contagem
			qtd := c.Quantidade
			g = &models.GrupoContagem{
				EAN:               c.EAN,
				Validade:          c.Validade,
				IDProduto:         c.IDProduto,
				Descricao:         c.Descricao,
				Marca:             c.Marca,
				Local:             local,
				QuantidadeContada: &qtd,
				Estado:            models.EstadoPendente,
				UltimaContagem:    &ultima,
			}
			if c.Ajustado {
				g.Estado = models.EstadoAjustado
			}
			indice[chave] = g
			grupos = append(grupos, g)
		}
		if g.IDProduto == nil && c.IDProduto != nil {
			g.IDProduto = c.IDProduto
		}
		g.TotalContagens++
	}
	return grupos
}

// StatusGrupo compara contado e sistema; qualquer lado ausente é Pendente
func StatusGrupo(contada, sistema *int) (models.StatusContagem, *int) {
	if contada == nil || sistema == nil {
		return models.StatusPendente, nil
	}
	diferenca := *contada - *sistema
	if diferenca == 0 {
		return models.StatusOK, &diferenca
	}
	return models.StatusDivergente, &diferenca
}

func validadeObrigatoria(s string) (models.Data, error) {
	if strings.TrimSpace(s) == "" {
		return models.Data{}, ErrValidadeObrigatoria
	}
	d, err := models.ParseData(s)
	if err != nil {
		return models.Data{}, fmt.Errorf("%w: %s", ErrValidadeInvalida, s)
	}
	return d, nil
}
