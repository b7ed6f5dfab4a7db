package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"
)

// MovimentacaoRepository histórico somente-inserção de entradas, saídas e ajustes
type MovimentacaoRepository interface {
	Registrar(ctx context.Context, mov *models.Movimentacao) error
	Listar(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, filter models.MovimentacaoFilter) ([]*models.MovimentacaoComProduto, error)
	SerieDiaria(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, ano, mes int) (map[string]int, error)
}

type movimentacaoRepository struct {
	db DBTX
}

// NewMovimentacaoRepository cria o repository de histórico
func NewMovimentacaoRepository(db DBTX) MovimentacaoRepository {
	return &movimentacaoRepository{db: db}
}

// Registrar insere a movimentação na tabela correspondente a (tipo, local)
func (r *movimentacaoRepository) Registrar(ctx context.Context, mov *models.Movimentacao) error {
	tabela, err := tabelaHistorico(mov.Tipo, mov.Local)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		INSERT INTO %s
		(id_produto, ean, validade, quantidade, lote, endereco, destino,
		 quantidade_anterior, quantidade_nova, usuario_email)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, data
	`, tabela)

	err = r.db.QueryRowContext(ctx, query,
		mov.IDProduto, mov.EAN, models.ValorNulo(mov.Validade), mov.Quantidade,
		nullString(mov.Lote), nullString(mov.Endereco), nullString(mov.Destino),
		mov.QuantidadeAnterior, mov.QuantidadeNova, mov.UsuarioEmail,
	).Scan(&mov.ID, &mov.Data)
	if err != nil {
		return fmt.Errorf("failed to insert into %s: %w", tabela, err)
	}
	return nil
}

// Listar devolve o histórico mais recente primeiro
func (r *movimentacaoRepository) Listar(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, filter models.MovimentacaoFilter) ([]*models.MovimentacaoComProduto, error) {
	tabela, err := tabelaHistorico(tipo, local)
	if err != nil {
		return nil, err
	}

	var f filtroBuilder
	f.contem("h.ean", filter.EAN)
	if filter.DataDesde != nil {
		f.add("h.data >= ?", *filter.DataDesde)
	}
	if filter.DataAte != nil {
		f.add("h.data < ?::date + 1", *filter.DataAte)
	}

	query := fmt.Sprintf(`
		SELECT h.id, h.id_produto, h.ean, h.validade, h.quantidade, h.lote, h.endereco, h.destino,
		       h.quantidade_anterior, h.quantidade_nova, h.usuario_email, h.data,
		       COALESCE(p.descricao, ''), COALESCE(p.marca, '')
		FROM %s h
		LEFT JOIN produto p ON p.id_produto = h.id_produto%s
		ORDER BY h.data DESC, h.id DESC
	`, tabela, f.where())
	query += f.paginar(filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", tabela, err)
	}
	defer rows.Close()

	movs := make([]*models.MovimentacaoComProduto, 0)
	for rows.Next() {
		var (
			m                       models.MovimentacaoComProduto
			lote, endereco, destino sql.NullString
		)
		err := rows.Scan(
			&m.ID, &m.IDProduto, &m.EAN, &m.Validade, &m.Quantidade, &lote, &endereco, &destino,
			&m.QuantidadeAnterior, &m.QuantidadeNova, &m.UsuarioEmail, &m.Data,
			&m.Descricao, &m.Marca,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan movimentacao: %w", err)
		}
		m.Tipo = tipo
		m.Local = local
		m.Lote = stringPtr(lote)
		m.Endereco = stringPtr(endereco)
		m.Destino = stringPtr(destino)
		movs = append(movs, &m)
	}
	return movs, rows.Err()
}

// SerieDiaria soma as quantidades por dia (YYYY-MM-DD); ano/mes zero não filtram
func (r *movimentacaoRepository) SerieDiaria(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, ano, mes int) (map[string]int, error) {
	tabela, err := tabelaHistorico(tipo, local)
	if err != nil {
		return nil, err
	}

	var f filtroBuilder
	if ano > 0 {
		f.add("EXTRACT(YEAR FROM data) = ?", ano)
	}
	if mes > 0 {
		f.add("EXTRACT(MONTH FROM data) = ?", mes)
	}

	query := fmt.Sprintf(`
		SELECT TO_CHAR(data::date, 'YYYY-MM-DD') AS dia, SUM(quantidade)
		FROM %s%s
		GROUP BY dia
		ORDER BY dia
	`, tabela, f.where())

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get daily series from %s: %w", tabela, err)
	}
	defer rows.Close()

	serie := make(map[string]int)
	for rows.Next() {
		var (
			dia   string
			total int
		)
		if err := rows.Scan(&dia, &total); err != nil {
			return nil, fmt.Errorf("failed to scan daily total: %w", err)
		}
		serie[dia] = total
	}
	return serie, rows.Err()
}
