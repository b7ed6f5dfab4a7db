package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"
)

// RelatorioRepository consultas somente-leitura das telas de relatório
type RelatorioRepository interface {
	PainelValidade(ctx context.Context, local models.Local, filter models.PainelFilter) ([]*models.LinhaPainelValidade, error)
	SaldoConsolidado(ctx context.Context, filter models.SaldoFilter) ([]*models.LinhaSaldoConsolidado, error)
	ResumoLedger(ctx context.Context) (*models.LedgerMetrics, error)
}

type relatorioRepository struct {
	db DBTX
}

// NewRelatorioRepository cria o repository de relatórios
func NewRelatorioRepository(db DBTX) RelatorioRepository {
	return &relatorioRepository{db: db}
}

// PainelValidade consolida o saldo por (produto, validade) ordenado pela
// validade; no galpão inclui o saldo da loja para o mesmo par
func (r *relatorioRepository) PainelValidade(ctx context.Context, local models.Local, filter models.PainelFilter) ([]*models.LinhaPainelValidade, error) {
	tabela, err := tabelaEstoque(local)
	if err != nil {
		return nil, err
	}

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

	saldoLoja := "NULL::bigint"
	joinLoja := ""
	if local == models.LocalGalpao {
		saldoLoja = "COALESCE(MAX(l.total), 0)"
		joinLoja = `
		LEFT JOIN (
			SELECT id_produto, validade, SUM(quantidade) AS total
			FROM estoque_loja
			GROUP BY id_produto, validade
		) l ON l.id_produto = e.id_produto AND l.validade IS NOT DISTINCT FROM e.validade`
	}

	query := fmt.Sprintf(`
		SELECT e.id_produto, e.ean, COALESCE(p.descricao, ''), COALESCE(p.marca, ''),
		       e.validade, SUM(e.quantidade), %s
		FROM %s e
		LEFT JOIN produto p ON p.id_produto = e.id_produto%s
		WHERE e.quantidade > 0%s
		GROUP BY e.id_produto, e.ean, p.descricao, p.marca, e.validade
		ORDER BY e.validade NULLS LAST, p.descricao
	`, saldoLoja, tabela, joinLoja, f.and())

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query painel de validade: %w", err)
	}
	defer rows.Close()

	linhas := make([]*models.LinhaPainelValidade, 0)
	for rows.Next() {
		var (
			l    models.LinhaPainelValidade
			loja sql.NullInt64
		)
		if err := rows.Scan(&l.IDProduto, &l.EAN, &l.Descricao, &l.Marca, &l.Validade, &l.Quantidade, &loja); err != nil {
			return nil, fmt.Errorf("failed to scan painel: %w", err)
		}
		if loja.Valid {
			v := int(loja.Int64)
			l.SaldoLoja = &v
		}
		linhas = append(linhas, &l)
	}
	return linhas, rows.Err()
}

// SaldoConsolidado saldo do galpão por EAN contra saldo_wms. EANs presentes
// em apenas um dos lados aparecem com zero no outro.
func (r *relatorioRepository) SaldoConsolidado(ctx context.Context, filter models.SaldoFilter) ([]*models.LinhaSaldoConsolidado, error) {
	var f filtroBuilder
	f.contem("x.ean", filter.EAN)
	f.contem("x.descricao", filter.Descricao)
	f.contem("x.marca", filter.Marca)

	query := `
		SELECT x.ean, x.descricao, x.marca, x.saldo_galpao, x.saldo_wms
		FROM (
			SELECT COALESCE(g.ean, w.ean) AS ean,
			       COALESCE(p.descricao, '') AS descricao,
			       COALESCE(p.marca, '') AS marca,
			       COALESCE(g.total, 0) AS saldo_galpao,
			       COALESCE(w.quantidade, 0) AS saldo_wms
			FROM (
				SELECT ean, SUM(quantidade) AS total FROM estoque GROUP BY ean
			) g
			FULL OUTER JOIN saldo_wms w ON w.ean = g.ean
			LEFT JOIN LATERAL (
				SELECT descricao, marca FROM produto
				WHERE ean = COALESCE(g.ean, w.ean)
				ORDER BY id_produto LIMIT 1
			) p ON TRUE
		) x` + f.where() + `
		ORDER BY x.descricao, x.ean
	`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query saldo consolidado: %w", err)
	}
	defer rows.Close()

	linhas := make([]*models.LinhaSaldoConsolidado, 0)
	for rows.Next() {
		var l models.LinhaSaldoConsolidado
		if err := rows.Scan(&l.EAN, &l.Descricao, &l.Marca, &l.SaldoGalpao, &l.SaldoWMS); err != nil {
			return nil, fmt.Errorf("failed to scan saldo: %w", err)
		}
		linhas = append(linhas, &l)
	}
	return linhas, rows.Err()
}

// ResumoLedger lotes com saldo, unidades e lotes vencidos por local, mais os
// grupos de contagem ainda não ajustados
func (r *relatorioRepository) ResumoLedger(ctx context.Context) (*models.LedgerMetrics, error) {
	query := `
		SELECT 'galpao', COUNT(*), COALESCE(SUM(quantidade), 0),
		       COUNT(*) FILTER (WHERE validade < CURRENT_DATE)
		FROM estoque WHERE quantidade > 0
		UNION ALL
		SELECT 'loja', COUNT(*), COALESCE(SUM(quantidade), 0),
		       COUNT(*) FILTER (WHERE validade < CURRENT_DATE)
		FROM estoque_loja WHERE quantidade > 0
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query resumo do ledger: %w", err)
	}
	defer rows.Close()

	resumo := &models.LedgerMetrics{Locais: make([]models.LocalMetrics, 0, 2)}
	for rows.Next() {
		var l models.LocalMetrics
		if err := rows.Scan(&l.Local, &l.Lotes, &l.Unidades, &l.LotesVencidos); err != nil {
			return nil, fmt.Errorf("failed to scan resumo do ledger: %w", err)
		}
		resumo.Locais = append(resumo.Locais, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// um grupo com contagem não ajustada tem a última contagem pendente
	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT (ean, validade)) FROM contagens WHERE NOT ajustado`,
	).Scan(&resumo.GruposPendentes)
	if err != nil {
		return nil, fmt.Errorf("failed to count grupos pendentes: %w", err)
	}
	return resumo, nil
}
