package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"

	"github.com/lib/pq"
)

// ProdutoRepository operações do catálogo de produtos
type ProdutoRepository interface {
	GetByID(ctx context.Context, id int64) (*models.Produto, error)
	GetByEAN(ctx context.Context, ean string) (*models.Produto, error)
	List(ctx context.Context, filter models.ProdutoFilter) ([]*models.Produto, error)
	Create(ctx context.Context, produto *models.Produto) error
	Update(ctx context.Context, produto *models.Produto) error
	EANsExistentes(ctx context.Context, eans []string) (map[string]bool, error)
}

type produtoRepository struct {
	db DBTX
}

// NewProdutoRepository cria o repository do catálogo
func NewProdutoRepository(db DBTX) ProdutoRepository {
	return &produtoRepository{db: db}
}

const produtoColunas = `id_produto, ean, descricao, marca, created_at, updated_at`

var produtoQueries = map[string]string{
	"get_by_id": `SELECT ` + produtoColunas + ` FROM produto WHERE id_produto = $1`,
	// EAN não é único: o primeiro cadastrado vence
	"get_by_ean": `SELECT ` + produtoColunas + ` FROM produto WHERE ean = $1 ORDER BY id_produto LIMIT 1`,
	"create": `
		INSERT INTO produto (ean, descricao, marca)
		VALUES ($1, $2, $3)
		RETURNING id_produto, created_at, updated_at
	`,
	"update": `
		UPDATE produto SET ean = $1, descricao = $2, marca = $3, updated_at = NOW()
		WHERE id_produto = $4
		RETURNING updated_at
	`,
	"eans_existentes": `SELECT DISTINCT ean FROM produto WHERE ean = ANY($1)`,
}

func scanProduto(row interface{ Scan(...interface{}) error }) (*models.Produto, error) {
	var p models.Produto
	if err := row.Scan(&p.ID, &p.EAN, &p.Descricao, &p.Marca, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *produtoRepository) GetByID(ctx context.Context, id int64) (*models.Produto, error) {
	p, err := scanProduto(r.db.QueryRowContext(ctx, produtoQueries["get_by_id"], id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get produto %d: %w", id, err)
	}
	return p, nil
}

func (r *produtoRepository) GetByEAN(ctx context.Context, ean string) (*models.Produto, error) {
	p, err := scanProduto(r.db.QueryRowContext(ctx, produtoQueries["get_by_ean"], ean))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get produto by ean %s: %w", ean, err)
	}
	return p, nil
}

// List lista o catálogo com filtros de texto (contém, sem diferenciar caixa)
func (r *produtoRepository) List(ctx context.Context, filter models.ProdutoFilter) ([]*models.Produto, error) {
	var f filtroBuilder
	f.contem("ean", filter.EAN)
	f.contem("descricao", filter.Descricao)
	f.contem("marca", filter.Marca)

	query := `SELECT ` + produtoColunas + ` FROM produto` + f.where() + ` ORDER BY descricao, id_produto`
	query += f.paginar(filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list produtos: %w", err)
	}
	defer rows.Close()

	produtos := make([]*models.Produto, 0)
	for rows.Next() {
		p, err := scanProduto(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan produto: %w", err)
		}
		produtos = append(produtos, p)
	}
	return produtos, rows.Err()
}

func (r *produtoRepository) Create(ctx context.Context, produto *models.Produto) error {
	err := r.db.QueryRowContext(ctx, produtoQueries["create"],
		produto.EAN, produto.Descricao, produto.Marca,
	).Scan(&produto.ID, &produto.CreatedAt, &produto.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create produto: %w", err)
	}
	return nil
}

func (r *produtoRepository) Update(ctx context.Context, produto *models.Produto) error {
	err := r.db.QueryRowContext(ctx, produtoQueries["update"],
		produto.EAN, produto.Descricao, produto.Marca, produto.ID,
	).Scan(&produto.UpdatedAt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("no produto found with id %d", produto.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to update produto: %w", err)
	}
	return nil
}

// EANsExistentes devolve quais dos EANs informados já estão cadastrados
func (r *produtoRepository) EANsExistentes(ctx context.Context, eans []string) (map[string]bool, error) {
	existentes := make(map[string]bool)
	if len(eans) == 0 {
		return existentes, nil
	}

	rows, err := r.db.QueryContext(ctx, produtoQueries["eans_existentes"], pq.Array(eans))
	if err != nil {
		return nil, fmt.Errorf("failed to check existing eans: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var ean string
		if err := rows.Scan(&ean); err != nil {
			return nil, fmt.Errorf("failed to scan ean: %w", err)
		}
		existentes[ean] = true
	}
	return existentes, rows.Err()
}
