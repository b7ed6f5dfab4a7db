package database

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"estoque-service/internal/config"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

//go:embed schema.sql
var schemaSQL string

// TabelasObrigatorias tabelas sem as quais o ledger não funciona
var TabelasObrigatorias = []string{
	"produto",
	"estoque",
	"estoque_loja",
	"entrada_historico",
	"saida_historico",
	"entrada_loja_historico",
	"saida_loja_historico",
	"ajuste_historico",
	"ajuste_loja_historico",
	"contagens",
	"contagens_arquivo",
	"saldo_wms",
}

type PostgresDB struct {
	DB *sql.DB
	// DSN é reaproveitado pelo pq.Listener do relay de contagens
	DSN string
}

// NewPostgresDB abre o pool e espera o banco aceitar conexões
func NewPostgresDB(ctx context.Context, cfg config.DatabaseConfig, logger *zap.Logger) (*PostgresDB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	tentativas := cfg.ConnectRetries
	if tentativas < 1 {
		tentativas = 1
	}
	for i := 1; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = db.PingContext(pingCtx)
		cancel()
		if err == nil {
			break
		}
		if i >= tentativas {
			db.Close()
			return nil, fmt.Errorf("failed to ping database after %d attempts: %w", i, err)
		}
		logger.Warn("⏳ PostgreSQL ainda indisponível, tentando novamente",
			zap.Int("tentativa", i),
			zap.Duration("espera", cfg.ConnectRetryDelay),
			zap.Error(err))
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(cfg.ConnectRetryDelay):
		}
	}

	logger.Info("Database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return &PostgresDB{DB: db, DSN: cfg.URL}, nil
}

// Migrate aplica o esquema embutido. Todas as instruções são idempotentes.
func (p *PostgresDB) Migrate(ctx context.Context, logger *zap.Logger) error {
	if _, err := p.DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	logger.Info("Database schema applied")
	return nil
}

// TabelasAusentes devolve as tabelas obrigatórias que não existem no banco
func TabelasAusentes(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT t FROM unnest($1::text[]) AS t WHERE to_regclass(t) IS NULL ORDER BY t`,
		pq.Array(TabelasObrigatorias))
	if err != nil {
		return nil, fmt.Errorf("failed to check schema: %w", err)
	}
	defer rows.Close()

	ausentes := []string{}
	for rows.Next() {
		var tabela string
		if err := rows.Scan(&tabela); err != nil {
			return nil, err
		}
		ausentes = append(ausentes, tabela)
	}
	return ausentes, rows.Err()
}

func (p *PostgresDB) Close() error {
	return p.DB.Close()
}

// GetStats retorna estatísticas do pool de conexões
func (p *PostgresDB) GetStats() sql.DBStats {
	return p.DB.Stats()
}
