package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"
)

// ContagemRepository contagens físicas e seu arquivo
type ContagemRepository interface {
	TravarGrupo(ctx context.Context, ean string, validade models.Data) error
	Create(ctx context.Context, contagem *models.Contagem) error
	List(ctx context.Context, filter models.ContagemFilter) ([]*models.ContagemComProduto, error)
	UltimaPendente(ctx context.Context, ean string, validade models.Data) (*models.Contagem, error)
	MarcarAjustadas(ctx context.Context, ean string, validade models.Data) (int64, error)
	TotaisAbertos(ctx context.Context, ean string) ([]models.TotalContagemAberta, error)
	Arquivar(ctx context.Context) (int64, error)
	GruposContados(ctx context.Context, ano, mes int) (int, error)
}

type contagemRepository struct {
	db DBTX
}

// NewContagemRepository cria o repository de contagens
func NewContagemRepository(db DBTX) ContagemRepository {
	return &contagemRepository{db: db}
}

const contagemColunas = `id, ean, id_produto, validade, quantidade, contagem_num, usuario_email, data, ajustado`

var contagemQueries = map[string]string{
	"travar": `SELECT pg_advisory_xact_lock(hashtext($1))`,
	// contagem_num segue a numeração mesmo depois do arquivamento
	"create": `
		INSERT INTO contagens (ean, id_produto, validade, quantidade, contagem_num, usuario_email)
		VALUES ($1, $2, $3, $4,
			1 + (SELECT COUNT(*) FROM contagens WHERE ean = $1 AND validade = $3)
			  + (SELECT COUNT(*) FROM contagens_arquivo WHERE ean = $1 AND validade = $3),
			$5)
		RETURNING id, contagem_num, data, ajustado
	`,
	"ultima_pendente": `
		SELECT ` + contagemColunas + ` FROM contagens
		WHERE ean = $1 AND validade = $2 AND ajustado = FALSE
		ORDER BY data DESC, id DESC
		LIMIT 1
		FOR UPDATE
	`,
	"marcar_ajustadas": `
		UPDATE contagens SET ajustado = TRUE
		WHERE ean = $1 AND validade = $2 AND ajustado = FALSE
	`,
	"arquivar": `
		WITH movidas AS (
			DELETE FROM contagens WHERE ajustado = TRUE RETURNING ` + contagemColunas + `
		)
		INSERT INTO contagens_arquivo (` + contagemColunas + `, arquivado_em)
		SELECT ` + contagemColunas + `, NOW() FROM movidas
	`,
}

func chaveGrupo(ean string, validade models.Data) string {
	return ean + "|" + validade.String()
}

func scanContagem(row interface{ Scan(...interface{}) error }, dest *models.Contagem, extra ...interface{}) error {
	var idProduto sql.NullInt64
	targets := []interface{}{
		&dest.ID, &dest.EAN, &idProduto, &dest.Validade, &dest.Quantidade,
		&dest.ContagemNum, &dest.UsuarioEmail, &dest.Data, &dest.Ajustado,
	}
	if err := row.Scan(append(targets, extra...)...); err != nil {
		return err
	}
	if idProduto.Valid {
		id := idProduto.Int64
		dest.IDProduto = &id
	}
	return nil
}

// TravarGrupo serializa escritas concorrentes no mesmo (ean, validade) até o fim da transação
func (r *contagemRepository) TravarGrupo(ctx context.Context, ean string, validade models.Data) error {
	if _, err := r.db.ExecContext(ctx, contagemQueries["travar"], chaveGrupo(ean, validade)); err != nil {
		return fmt.Errorf("failed to lock count group: %w", err)
	}
	return nil
}

func (r *contagemRepository) Create(ctx context.Context, contagem *models.Contagem) error {
	var idProduto interface{}
	if contagem.IDProduto != nil {
		idProduto = *contagem.IDProduto
	}
	err := r.db.QueryRowContext(ctx, contagemQueries["create"],
		contagem.EAN, idProduto, contagem.Validade.Time, contagem.Quantidade, contagem.UsuarioEmail,
	).Scan(&contagem.ID, &contagem.ContagemNum, &contagem.Data, &contagem.Ajustado)
	if err != nil {
		return fmt.Errorf("failed to create contagem: %w", err)
	}
	return nil
}

// List devolve as contagens (mais recentes primeiro) com descrição e marca
func (r *contagemRepository) List(ctx context.Context, filter models.ContagemFilter) ([]*models.ContagemComProduto, error) {
	var f filtroBuilder
	if filter.EAN != "" {
		f.add("c.ean = ?", filter.EAN)
	}
	if filter.SomentePendentes {
		f.conds = append(f.conds, "c.ajustado = FALSE")
	}

	query := `
		SELECT c.id, c.ean, c.id_produto, c.validade, c.quantidade, c.contagem_num,
		       c.usuario_email, c.data, c.ajustado,
		       COALESCE(p.descricao, ''), COALESCE(p.marca, '')
		FROM contagens c
		LEFT JOIN produto p ON p.id_produto = c.id_produto` + f.where() + `
		ORDER BY c.data DESC, c.id DESC
	`

	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contagens: %w", err)
	}
	defer rows.Close()

	contagens := make([]*models.ContagemComProduto, 0)
	for rows.Next() {
		var c models.ContagemComProduto
		if err := scanContagem(rows, &c.Contagem, &c.Descricao, &c.Marca); err != nil {
			return nil, fmt.Errorf("failed to scan contagem: %w", err)
		}
		contagens = append(contagens, &c)
	}
	return contagens, rows.Err()
}

// UltimaPendente trava e devolve a contagem não ajustada mais recente do grupo
func (r *contagemRepository) UltimaPendente(ctx context.Context, ean string, validade models.Data) (*models.Contagem, error) {
	var c models.Contagem
	err := scanContagem(r.db.QueryRowContext(ctx, contagemQueries["ultima_pendente"], ean, validade.Time), &c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending contagem: %w", err)
	}
	return &c, nil
}

func (r *contagemRepository) MarcarAjustadas(ctx context.Context, ean string, validade models.Data) (int64, error) {
	result, err := r.db.ExecContext(ctx, contagemQueries["marcar_ajustadas"], ean, validade.Time)
	if err != nil {
		return 0, fmt.Errorf("failed to mark contagens as adjusted: %w", err)
	}
	return result.RowsAffected()
}

// TotaisAbertos soma as contagens não ajustadas por (ean, validade)
func (r *contagemRepository) TotaisAbertos(ctx context.Context, ean string) ([]models.TotalContagemAberta, error) {
	var f filtroBuilder
	f.conds = append(f.conds, "ajustado = FALSE")
	if ean != "" {
		f.add("ean = ?", ean)
	}

	query := `
		SELECT ean, validade, SUM(quantidade), COUNT(*)
		FROM contagens` + f.where() + `
		GROUP BY ean, validade
		ORDER BY ean, validade
	`
	rows, err := r.db.QueryContext(ctx, query, f.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get open totals: %w", err)
	}
	defer rows.Close()

	totais := make([]models.TotalContagemAberta, 0)
	for rows.Next() {
		var t models.TotalContagemAberta
		if err := rows.Scan(&t.EAN, &t.Validade, &t.Quantidade, &t.Contagens); err != nil {
			return nil, fmt.Errorf("failed to scan open total: %w", err)
		}
		totais = append(totais, t)
	}
	return totais, rows.Err()
}

// Arquivar move as contagens ajustadas para contagens_arquivo em um único comando
func (r *contagemRepository) Arquivar(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, contagemQueries["arquivar"])
	if err != nil {
		return 0, fmt.Errorf("failed to archive contagens: %w", err)
	}
	return result.RowsAffected()
}

// GruposContados número de grupos (ean, validade) contados no período,
// incluindo os já arquivados
func (r *contagemRepository) GruposContados(ctx context.Context, ano, mes int) (int, error) {
	var f filtroBuilder
	if ano > 0 {
		f.add("EXTRACT(YEAR FROM data) = ?", ano)
	}
	if mes > 0 {
		f.add("EXTRACT(MONTH FROM data) = ?", mes)
	}
	where := f.where()

	query := `
		SELECT COUNT(*) FROM (
			SELECT ean, validade FROM contagens` + where + `
			UNION
			SELECT ean, validade FROM contagens_arquivo` + where + `
		) grupos
	`
	var total int
	if err := r.db.QueryRowContext(ctx, query, f.args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count groups: %w", err)
	}
	return total, nil
}
