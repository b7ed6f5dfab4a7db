package repository

import (
	"context"
	"database/sql"
	"fmt"

	"estoque-service/internal/models"
)

// Repositorios agrupa os repositories ligados a uma mesma conexão ou transação
type Repositorios struct {
	Produtos      ProdutoRepository
	Galpao        EstoqueRepository
	Loja          EstoqueRepository
	Movimentacoes MovimentacaoRepository
	Contagens     ContagemRepository
}

// Estoque devolve o ledger do local
func (r Repositorios) Estoque(local models.Local) EstoqueRepository {
	if local == models.LocalLoja {
		return r.Loja
	}
	return r.Galpao
}

// NewRepositorios cria os repositories sobre db (pool ou transação)
func NewRepositorios(db DBTX) Repositorios {
	return Repositorios{
		Produtos:      NewProdutoRepository(db),
		Galpao:        NewEstoqueRepository(db, models.LocalGalpao),
		Loja:          NewEstoqueRepository(db, models.LocalLoja),
		Movimentacoes: NewMovimentacaoRepository(db),
		Contagens:     NewContagemRepository(db),
	}
}

// TxRunner executa fn com repositories atados a uma transação
type TxRunner interface {
	Run(ctx context.Context, fn func(repos Repositorios) error) error
}

type txRunner struct {
	db *sql.DB
}

// NewTxRunner constrói o runner sobre o pool
func NewTxRunner(db *sql.DB) TxRunner {
	return &txRunner{db: db}
}

// Run inicia a transação, executa fn e faz Commit; qualquer erro faz Rollback
func (r *txRunner) Run(ctx context.Context, fn func(repos Repositorios) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(NewRepositorios(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
