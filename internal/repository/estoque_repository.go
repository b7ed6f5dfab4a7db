package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"

	"github.com/lib/pq"
)

// EstoqueRepository ledger de lotes de um local (galpão ou loja)
type EstoqueRepository interface {
	Local() models.Local

	// TravarProduto serializa as movimentações do produto neste local até o fim da transação
	TravarProduto(ctx context.Context, idProduto int64) error

	// Leitura com lock de linha para o fluxo ler-validar-escrever
	Buscar(ctx context.Context, chave models.ChaveLote) (*models.LoteEstoque, error)
	BuscarPrimeiro(ctx context.Context, idProduto int64, validade *models.Data, minimo int) (*models.LoteEstoque, error)
	ListarPorProdutoValidade(ctx context.Context, idProduto int64, validade *models.Data) ([]*models.LoteEstoque, error)
	ValidadeBloqueante(ctx context.Context, idProduto int64, validade models.Data) (*models.Data, error)

	// Escritas
	Somar(ctx context.Context, chave models.ChaveLote, ean string, lote *string, n int) (*models.LoteEstoque, error)
	Decrementar(ctx context.Context, id int64, n int) (int, bool, error)
	DefinirQuantidade(ctx context.Context, id int64, quantidade int) error

	// Consultas
	List(ctx context.Context, filter models.EstoqueFilter) ([]*models.LoteComProduto, error)
	SomasPorProdutoValidade(ctx context.Context, idsProduto []int64) (map[ChaveSaldo]int, error)
}

// ChaveSaldo agrega todas as linhas (endereços) de um produto/validade
type ChaveSaldo struct {
	IDProduto int64
	Validade  string
}

// NovaChaveSaldo monta a chave a partir de uma validade obrigatória
func NovaChaveSaldo(idProduto int64, validade models.Data) ChaveSaldo {
	return ChaveSaldo{IDProduto: idProduto, Validade: validade.String()}
}

type estoqueRepository struct {
	db      DBTX
	local   models.Local
	tabela  string
	queries map[string]string
}

// NewEstoqueRepository cria o repository do ledger de um local
func NewEstoqueRepository(db DBTX, local models.Local) EstoqueRepository {
	tabela, err := tabelaEstoque(local)
	if err != nil {
		// locais são constantes do pacote models
		panic(err)
	}
	return &estoqueRepository{
		db:      db,
		local:   local,
		tabela:  tabela,
		queries: estoqueQueries(tabela),
	}
}

const loteColunas = `id, id_produto, ean, validade, quantidade, lote, endereco, created_at, updated_at`

func estoqueQueries(t string) map[string]string {
	return map[string]string{
		"buscar": fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE id_produto = $1
			  AND validade IS NOT DISTINCT FROM $2
			  AND endereco IS NOT DISTINCT FROM $3
			FOR UPDATE
		`, loteColunas, t),
		"buscar_primeiro": fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE id_produto = $1 AND validade IS NOT DISTINCT FROM $2
			ORDER BY (quantidade >= $3) DESC, endereco NULLS FIRST, id
			LIMIT 1
			FOR UPDATE
		`, loteColunas, t),
		"listar_produto_validade": fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE id_produto = $1 AND validade IS NOT DISTINCT FROM $2
			ORDER BY endereco NULLS FIRST, id
			FOR UPDATE
		`, loteColunas, t),
		"travar_produto": `SELECT pg_advisory_xact_lock(hashtext($1))`,
		// lotes sem validade não participam do FEFO
		"validade_bloqueante": fmt.Sprintf(`
			SELECT validade FROM %s
			WHERE id_produto = $1 AND validade IS NOT NULL AND validade < $2 AND quantidade > 0
			ORDER BY validade
			LIMIT 1
		`, t),
		"somar": fmt.Sprintf(`
			INSERT INTO %[1]s AS e (id_produto, ean, validade, quantidade, lote, endereco)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id_produto, COALESCE(validade, DATE '0001-01-01'), COALESCE(endereco, ''))
			DO UPDATE SET quantidade = e.quantidade + EXCLUDED.quantidade,
			              lote = COALESCE(e.lote, EXCLUDED.lote),
			              updated_at = NOW()
			RETURNING %[2]s
		`, t, loteColunas),
		"decrementar": fmt.Sprintf(`
			UPDATE %s SET quantidade = quantidade - $2, updated_at = NOW()
			WHERE id = $1 AND quantidade >= $2
			RETURNING quantidade
		`, t),
		"definir": fmt.Sprintf(`
			UPDATE %s SET quantidade = $2, updated_at = NOW() WHERE id = $1
		`, t),
		"somas": fmt.Sprintf(`
			SELECT id_produto, validade, SUM(quantidade)
			FROM %s
			WHERE id_produto = ANY($1) AND validade IS NOT NULL
			GROUP BY id_produto, validade
		`, t),
	}
}

func scanLote(row interface{ Scan(...interface{}) error }, dest *models.LoteEstoque, extra ...interface{}) error {
	var lote, endereco sql.NullString
	targets := []interface{}{
		&dest.ID, &dest.IDProduto, &dest.EAN, &dest.Validade, &dest.Quantidade,
		&lote, &endereco, &dest.CreatedAt, &dest.UpdatedAt,
	}
	if err := row.Scan(append(targets, extra...)...); err != nil {
		return err
	}
	dest.Lote = stringPtr(lote)
	dest.Endereco = stringPtr(endereco)
	return nil
}

func (r *estoqueRepository) Local() models.Local {
	return r.local
}

// Buscar devolve o lote exato (produto, validade, endereço) com FOR UPDATE; nil se não existe
func (r *estoqueRepository) Buscar(ctx context.Context, chave models.ChaveLote) (*models.LoteEstoque, error) {
	var lote models.LoteEstoque
	err := scanLote(r.db.QueryRowContext(ctx, r.queries["buscar"],
		chave.IDProduto, models.ValorNulo(chave.Validade), nullString(chave.Endereco),
	), &lote)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get lote in %s: %w", r.tabela, err)
	}
	return &lote, nil
}

// BuscarPrimeiro escolhe um lote do produto/validade em qualquer endereço,
// preferindo os que cobrem a quantidade mínima pedida
func (r *estoqueRepository) BuscarPrimeiro(ctx context.Context, idProduto int64, validade *models.Data, minimo int) (*models.LoteEstoque, error) {
	var lote models.LoteEstoque
	err := scanLote(r.db.QueryRowContext(ctx, r.queries["buscar_primeiro"],
		idProduto, models.ValorNulo(validade), minimo,
	), &lote)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first lote in %s: %w", r.tabela, err)
	}
	return &lote, nil
}

func (r *estoqueRepository) ListarPorProdutoValidade(ctx context.Context, idProduto int64, validade *models.Data) ([]*models.LoteEstoque, error) {
	rows, err := r.db.QueryContext(ctx, r.queries["listar_produto_validade"], idProduto, models.ValorNulo(validade))
	if err != nil {
		return nil, fmt.Errorf("failed to list lotes in %s: %w", r.tabela, err)
	}
	defer rows.Close()

	var lotes []*models.LoteEstoque
	for rows.Next() {
		var lote models.LoteEstoque
		if err := scanLote(rows, &lote); err != nil {
			return nil, fmt.Errorf("failed to scan lote: %w", err)
		}
		lotes = append(lotes, &lote)
	}
	return lotes, rows.Err()
}

func (r *estoqueRepository) TravarProduto(ctx context.Context, idProduto int64) error {
	if _, err := r.db.ExecContext(ctx, r.queries["travar_produto"], fmt.Sprintf("%s:%d", r.tabela, idProduto)); err != nil {
		return fmt.Errorf("failed to lock produto in %s: %w", r.tabela, err)
	}
	return nil
}

// ValidadeBloqueante devolve a validade mais antiga, anterior à informada,
// que ainda tem saldo; nil quando nada bloqueia a saída
func (r *estoqueRepository) ValidadeBloqueante(ctx context.Context, idProduto int64, validade models.Data) (*models.Data, error) {
	var bloqueante models.Data
	err := r.db.QueryRowContext(ctx, r.queries["validade_bloqueante"], idProduto, validade.Time).Scan(&bloqueante)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to check fefo in %s: %w", r.tabela, err)
	}
	return &bloqueante, nil
}

// Somar encontra ou cria o lote e soma n à quantidade. O índice único do
// lote resolve a corrida entre duas criações simultâneas.
func (r *estoqueRepository) Somar(ctx context.Context, chave models.ChaveLote, ean string, lote *string, n int) (*models.LoteEstoque, error) {
	var resultado models.LoteEstoque
	err := scanLote(r.db.QueryRowContext(ctx, r.queries["somar"],
		chave.IDProduto, ean, models.ValorNulo(chave.Validade), n, nullString(lote), nullString(chave.Endereco),
	), &resultado)
	if err != nil {
		return nil, fmt.Errorf("failed to add to lote in %s: %w", r.tabela, traduzirErro(err))
	}
	return &resultado, nil
}

// Decrementar subtrai n apenas se houver saldo; ok=false quando a condição
// falhou (outra transação consumiu o saldo)
func (r *estoqueRepository) Decrementar(ctx context.Context, id int64, n int) (int, bool, error) {
	var nova int
	err := r.db.QueryRowContext(ctx, r.queries["decrementar"], id, n).Scan(&nova)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to decrement lote %d in %s: %w", id, r.tabela, traduzirErro(err))
	}
	return nova, true, nil
}

func (r *estoqueRepository) DefinirQuantidade(ctx context.Context, id int64, quantidade int) error {
	result, err := r.db.ExecContext(ctx, r.queries["definir"], id, quantidade)
	if err != nil {
		return fmt.Errorf("failed to set lote %d in %s: %w", id, r.tabela, traduzirErro(err))
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("no lote found with id %d in %s", id, r.tabela)
	}
	return nil
}

// List lista lotes com saldo junto com os dados do catálogo
func (r *estoqueRepository) List(ctx context.Context, filter models.EstoqueFilter) ([]*models.LoteComProduto, error) {
	var f filtroBuilder
	f.contem("e.ean", filter.EAN)
	f.contem("p.descricao", filter.Descricao)
	f.contem("p.marca", filter.Marca)
	if filter.Mes > 0 {
		f.add("EXTRACT(MONTH FROM e.validade) = ?", filter.Mes)
	}
	if filter.Ano > 0 {
		f.add("EXTRACT(YEAR FROM e.validade) = ?", filter.Ano)
	}

	query := fmt.Sprintf(`
		SELECT e.id, e.id_produto, e.ean, e.validade, e.quantidade, e.lote, e.endereco,
		       e.created_at, e.updated_at, COALESCE(p.descricao, ''), COALESCE(p.marca, '')
		FROM %s e
		LEFT JOIN produto p ON p.id_produto = e.id_produto
		WHERE e.quantidade > 0%s
		ORDER BY e.validade NULLS LAST, p.descricao, e.endereco NULLS FIRST
	`, r.tabela, f.and())

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.tabela, err)
	}
	defer rows.Close()

	lotes := make([]*models.LoteComProduto, 0)
	for rows.Next() {
		var l models.LoteComProduto
		if err := scanLote(rows, &l.LoteEstoque, &l.Descricao, &l.Marca); err != nil {
			return nil, fmt.Errorf("failed to scan lote: %w", err)
		}
		lotes = append(lotes, &l)
	}
	return lotes, rows.Err()
}

// SomasPorProdutoValidade soma todas as linhas (endereços) por produto/validade
func (r *estoqueRepository) SomasPorProdutoValidade(ctx context.Context, idsProduto []int64) (map[ChaveSaldo]int, error) {
	somas := make(map[ChaveSaldo]int)
	if len(idsProduto) == 0 {
		return somas, nil
	}

	rows, err := r.db.QueryContext(ctx, r.queries["somas"], pq.Array(idsProduto))
	if err != nil {
		return nil, fmt.Errorf("failed to sum %s: %w", r.tabela, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id       int64
			validade models.Data
			total    int
		)
		if err := rows.Scan(&id, &validade, &total); err != nil {
			return nil, fmt.Errorf("failed to scan soma: %w", err)
		}
		somas[NovaChaveSaldo(id, validade)] = total
	}
	return somas, rows.Err()
}
