package models

import (
	"time"
)

// TipoMovimentacao tipo de linha do histórico
type TipoMovimentacao string

const (
	MovEntrada TipoMovimentacao = "entrada"
	MovSaida   TipoMovimentacao = "saida"
	MovAjuste  TipoMovimentacao = "ajuste"
)

// Movimentacao representa as tabelas de histórico (entrada_historico,
// saida_historico, versões da loja e ajuste_historico). Somente inserção.
type Movimentacao struct {
	ID                 int64            `json:"id" db:"id"`
	Tipo               TipoMovimentacao `json:"tipo" db:"-"`
	Local              Local            `json:"local" db:"-"`
	IDProduto          int64            `json:"id_produto" db:"id_produto"`
	EAN                string           `json:"ean" db:"ean"`
	Validade           *Data            `json:"validade" db:"validade"`
	Quantidade         int              `json:"quantidade" db:"quantidade"`
	Lote               *string          `json:"lote,omitempty" db:"lote"`
	Endereco           *string          `json:"endereco,omitempty" db:"endereco"`
	Destino            *string          `json:"destino,omitempty" db:"destino"`
	QuantidadeAnterior int              `json:"quantidade_anterior" db:"quantidade_anterior"`
	QuantidadeNova     int              `json:"quantidade_nova" db:"quantidade_nova"`
	UsuarioEmail       string           `json:"usuario_email" db:"usuario_email"`
	Data               time.Time        `json:"data" db:"data"`
}

// MovimentacaoComProduto inclui descrição e marca
type MovimentacaoComProduto struct {
	Movimentacao
	Descricao string `json:"descricao"`
	Marca     string `json:"marca"`
}

// MovimentacaoFilter filtros para consultas de histórico
type MovimentacaoFilter struct {
	EAN       string     `form:"ean"`
	DataDesde *time.Time `form:"desde" time_format:"2006-01-02"`
	DataAte   *time.Time `form:"ate" time_format:"2006-01-02"`
	Limit     int        `form:"limit"`
	Offset    int        `form:"offset"`
}
