package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"estoque-service/internal/cache"
	"estoque-service/internal/models"
	"estoque-service/internal/repository"

	"go.uber.org/zap"
)

// ProdutoService catálogo de produtos com cache por EAN
type ProdutoService interface {
	ResolvedorProduto
	Listar(ctx context.Context, filter models.ProdutoFilter) ([]*models.Produto, error)
	Criar(ctx context.Context, req *models.ProdutoRequest) (*models.Produto, error)
	Atualizar(ctx context.Context, id int64, req *models.ProdutoRequest) (*models.Produto, error)
	Esquecer(ctx context.Context, eans ...string)
	Preaquecer(ctx context.Context, eans []string) (int, error)
	CacheStats() map[string]interface{}
}

type produtoService struct {
	repo   repository.ProdutoRepository
	cache  *cache.ProductCache
	logger *zap.Logger
}

// NewProdutoService cria o serviço do catálogo. cache pode ser nil.
func NewProdutoService(repo repository.ProdutoRepository, productCache *cache.ProductCache, logger *zap.Logger) ProdutoService {
	return &produtoService{
		repo:   repo,
		cache:  productCache,
		logger: logger,
	}
}

func (s *produtoService) BuscarPorID(ctx context.Context, id int64) (*models.Produto, error) {
	produto, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("erro buscando produto: %w", err)
	}
	return produto, nil
}

// BuscarPorEAN consulta o cache antes do banco; nil, nil quando o EAN não existe
func (s *produtoService) BuscarPorEAN(ctx context.Context, ean string) (*models.Produto, error) {
	ean = strings.TrimSpace(ean)
	if ean == "" {
		return nil, nil
	}

	if s.cache != nil {
		if produto, err := s.cache.GetProduto(ctx, ean); err == nil {
			return produto, nil
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Debug("Falha lendo cache de produto", zap.String("ean", ean), zap.Error(err))
		}
	}

	produto, err := s.repo.GetByEAN(ctx, ean)
	if err != nil {
		return nil, fmt.Errorf("erro buscando produto: %w", err)
	}
	if produto == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.SetProduto(ctx, produto); err != nil {
			s.logger.Warn("⚠️ Erro gravando produto no cache", zap.String("ean", ean), zap.Error(err))
		}
	}
	return produto, nil
}

func (s *produtoService) Listar(ctx context.Context, filter models.ProdutoFilter) ([]*models.Produto, error) {
	produtos, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("erro listando produtos: %w", err)
	}
	return produtos, nil
}

func (s *produtoService) Criar(ctx context.Context, req *models.ProdutoRequest) (*models.Produto, error) {
	produto := &models.Produto{
		EAN:       strings.TrimSpace(req.EAN),
		Descricao: strings.TrimSpace(req.Descricao),
		Marca:     strings.TrimSpace(req.Marca),
	}
	if produto.EAN == "" {
		return nil, ErrEANObrigatorio
	}
	if err := s.repo.Create(ctx, produto); err != nil {
		return nil, fmt.Errorf("erro criando produto: %w", err)
	}
	s.logger.Info("✅ Produto criado", zap.Int64("id_produto", produto.ID), zap.String("ean", produto.EAN))
	return produto, nil
}

// Atualizar altera o cadastro e invalida o cache do EAN antigo e do novo
func (s *produtoService) Atualizar(ctx context.Context, id int64, req *models.ProdutoRequest) (*models.Produto, error) {
	if strings.TrimSpace(req.EAN) == "" {
		return nil, ErrEANObrigatorio
	}
	produto, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("erro buscando produto: %w", err)
	}
	if produto == nil {
		return nil, ErrProdutoNaoEncontrado
	}

	eanAntigo := produto.EAN
	produto.EAN = strings.TrimSpace(req.EAN)
	produto.Descricao = strings.TrimSpace(req.Descricao)
	produto.Marca = strings.TrimSpace(req.Marca)

	if err := s.repo.Update(ctx, produto); err != nil {
		return nil, fmt.Errorf("erro atualizando produto: %w", err)
	}
	s.Esquecer(ctx, eanAntigo, produto.EAN)

	s.logger.Info("✅ Produto atualizado", zap.Int64("id_produto", id), zap.String("ean", produto.EAN))
	return produto, nil
}

// Esquecer remove EANs do cache
func (s *produtoService) Esquecer(ctx context.Context, eans ...string) {
	if s.cache == nil {
		return
	}
	for _, ean := range eans {
		if err := s.cache.InvalidateProduto(ctx, ean); err != nil {
			s.logger.Warn("⚠️ Erro invalidando cache", zap.String("ean", ean), zap.Error(err))
		}
	}
}

// Preaquecer carrega no cache os produtos mais bipados. Devolve quantos existiam.
func (s *produtoService) Preaquecer(ctx context.Context, eans []string) (int, error) {
	produtos := make([]*models.Produto, 0, len(eans))
	for _, ean := range eans {
		produto, err := s.repo.GetByEAN(ctx, strings.TrimSpace(ean))
		if err != nil {
			return 0, fmt.Errorf("erro buscando produto %s: %w", ean, err)
		}
		if produto != nil {
			produtos = append(produtos, produto)
		}
	}
	if s.cache != nil {
		s.cache.Preload(ctx, produtos)
	}
	return len(produtos), nil
}

func (s *produtoService) CacheStats() map[string]interface{} {
	if s.cache == nil {
		return map[string]interface{}{}
	}
	return s.cache.Stats()
}
