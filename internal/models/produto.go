package models

import (
	"time"
)

// Produto representa a tabela produto
type Produto struct {
	ID        int64     `json:"id_produto" db:"id_produto"`
	EAN       string    `json:"ean" db:"ean"`
	Descricao string    `json:"descricao" db:"descricao"`
	Marca     string    `json:"marca" db:"marca"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ProdutoFilter filtros para a listagem do catálogo
type ProdutoFilter struct {
	EAN       string `form:"ean"`
	Descricao string `form:"descricao"`
	Marca     string `form:"marca"`
	Limit     int    `form:"limit"`
	Offset    int    `form:"offset"`
}

// Sessao identifica quem executa a operação. É passada explicitamente
// para toda escrita no ledger e nas contagens.
type Sessao struct {
	UsuarioEmail string
}

// Local identifica a localização física do estoque
type Local string

const (
	LocalGalpao Local = "galpao"
	LocalLoja   Local = "loja"
)

func (l Local) Valido() bool {
	return l == LocalGalpao || l == LocalLoja
}

// ParseLocal converte o parâmetro de rota; vazio assume o galpão
func ParseLocal(s string) (Local, bool) {
	if s == "" {
		return LocalGalpao, true
	}
	l := Local(s)
	return l, l.Valido()
}
