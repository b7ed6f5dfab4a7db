package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"estoque-service/internal/models"

	"github.com/lib/pq"
)

// DBTX é satisfeita tanto por *sql.DB quanto por *sql.Tx, permitindo que os
// mesmos repositories rodem dentro ou fora de uma transação.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// ErrQuantidadeNegativa a CHECK (quantidade >= 0) rejeitou a escrita
var ErrQuantidadeNegativa = errors.New("quantity check constraint violated")

const (
	pqCheckViolation  = "23514"
	pqUniqueViolation = "23505"
)

// traduzirErro converte erros do driver em erros do pacote
func traduzirErro(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == pqCheckViolation {
		return fmt.Errorf("%w: %s", ErrQuantidadeNegativa, pqErr.Constraint)
	}
	return err
}

// IsUniqueViolation indica violação de índice único
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation
}

// tabelaEstoque devolve a tabela do ledger de um local
func tabelaEstoque(local models.Local) (string, error) {
	switch local {
	case models.LocalGalpao:
		return "estoque", nil
	case models.LocalLoja:
		return "estoque_loja", nil
	default:
		return "", fmt.Errorf("unknown location %q", local)
	}
}

// tabelasHistorico whitelist das tabelas de histórico por (tipo, local)
var tabelasHistorico = map[models.Local]map[models.TipoMovimentacao]string{
	models.LocalGalpao: {
		models.MovEntrada: "entrada_historico",
		models.MovSaida:   "saida_historico",
		models.MovAjuste:  "ajuste_historico",
	},
	models.LocalLoja: {
		models.MovEntrada: "entrada_loja_historico",
		models.MovSaida:   "saida_loja_historico",
		models.MovAjuste:  "ajuste_loja_historico",
	},
}

func tabelaHistorico(tipo models.TipoMovimentacao, local models.Local) (string, error) {
	tabela, ok := tabelasHistorico[local][tipo]
	if !ok {
		return "", fmt.Errorf("no history table for %s/%s", tipo, local)
	}
	return tabela, nil
}

// filtroBuilder monta cláusulas WHERE com placeholders posicionais
type filtroBuilder struct {
	conds []string
	args  []interface{}
}

func (f *filtroBuilder) add(cond string, arg interface{}) {
	f.args = append(f.args, arg)
	f.conds = append(f.conds, strings.ReplaceAll(cond, "?", fmt.Sprintf("$%d", len(f.args))))
}

func (f *filtroBuilder) contem(coluna, valor string) {
	if strings.TrimSpace(valor) == "" {
		return
	}
	f.add(coluna+" ILIKE ?", "%"+strings.TrimSpace(valor)+"%")
}

func (f *filtroBuilder) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

func (f *filtroBuilder) and() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " AND " + strings.Join(f.conds, " AND ")
}

func (f *filtroBuilder) paginar(limit, offset int) string {
	var s string
	if limit > 0 {
		f.args = append(f.args, limit)
		s += fmt.Sprintf(" LIMIT $%d", len(f.args))
	}
	if offset > 0 {
		f.args = append(f.args, offset)
		s += fmt.Sprintf(" OFFSET $%d", len(f.args))
	}
	return s
}

func nullString(s *string) interface{} {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
