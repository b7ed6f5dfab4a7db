package models

import (
	"time"
)

// LoteEstoque representa uma linha das tabelas estoque / estoque_loja.
// Chave lógica: (id_produto, validade, endereco) por local.
type LoteEstoque struct {
	ID         int64     `json:"id" db:"id"`
	IDProduto  int64     `json:"id_produto" db:"id_produto"`
	EAN        string    `json:"ean" db:"ean"`
	Validade   *Data     `json:"validade" db:"validade"`
	Quantidade int       `json:"quantidade" db:"quantidade"`
	Lote       *string   `json:"lote,omitempty" db:"lote"`
	Endereco   *string   `json:"endereco,omitempty" db:"endereco"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time `json:"updated_at" db:"updated_at"`
}

// LoteComProduto inclui descrição e marca do catálogo
type LoteComProduto struct {
	LoteEstoque
	Descricao string `json:"descricao"`
	Marca     string `json:"marca"`
}

// EstoqueFilter filtros da listagem de estoque
type EstoqueFilter struct {
	EAN       string `form:"ean"`
	Descricao string `form:"descricao"`
	Marca     string `form:"marca"`
	Mes       int    `form:"mes" binding:"omitempty,min=1,max=12"`
	Ano       int    `form:"ano" binding:"omitempty,min=2000"`
}

// ChaveLote identifica um lote dentro de um local
type ChaveLote struct {
	IDProduto int64
	Validade  *Data
	Endereco  *string
}

// SaldoWMS saldo de referência do WMS externo
type SaldoWMS struct {
	EAN        string `json:"ean" db:"ean"`
	Quantidade int    `json:"quantidade" db:"quantidade"`
}
