package models

import (
	"time"
)

// Contagem representa a tabela contagens
type Contagem struct {
	ID           int64     `json:"id" db:"id"`
	EAN          string    `json:"ean" db:"ean"`
	IDProduto    *int64    `json:"id_produto" db:"id_produto"`
	Validade     Data      `json:"validade" db:"validade"`
	Quantidade   int       `json:"quantidade" db:"quantidade"`
	ContagemNum  int       `json:"contagem_num" db:"contagem_num"`
	UsuarioEmail string    `json:"usuario_email" db:"usuario_email"`
	Data         time.Time `json:"data" db:"data"`
	Ajustado     bool      `json:"ajustado" db:"ajustado"`
}

// ContagemComProduto contagem com descrição/marca do catálogo
type ContagemComProduto struct {
	Contagem
	Descricao string `json:"descricao"`
	Marca     string `json:"marca"`
}

// StatusContagem comparação entre contagem e ledger
type StatusContagem string

const (
	StatusOK         StatusContagem = "OK"
	StatusDivergente StatusContagem = "Divergente"
	StatusPendente   StatusContagem = "Pendente"
)

// EstadoGrupo estado de ajuste de um grupo
type EstadoGrupo string

const (
	EstadoPendente EstadoGrupo = "Pendente"
	EstadoAjustado EstadoGrupo = "Ajustado"
)

// GrupoContagem visão derivada por (ean, validade)
type GrupoContagem struct {
	EAN               string         `json:"ean"`
	Validade          Data           `json:"validade"`
	IDProduto         *int64         `json:"id_produto"`
	Descricao         string         `json:"descricao"`
	Marca             string         `json:"marca"`
	Local             Local          `json:"local"`
	QuantidadeContada *int           `json:"quantidade_contada"`
	QuantidadeSistema *int           `json:"quantidade_sistema"`
	Diferenca         *int           `json:"diferenca"`
	Status            StatusContagem `json:"status"`
	Estado            EstadoGrupo    `json:"estado"`
	TotalContagens    int            `json:"total_contagens"`
	UltimaContagem    *Contagem      `json:"ultima_contagem"`
}

// ContagemFilter filtros das consultas de contagem
type ContagemFilter struct {
	EAN              string `form:"ean"`
	Local            Local  `form:"local"`
	SomentePendentes bool   `form:"pendentes"`
}

// TotalContagemAberta soma das contagens não ajustadas por (ean, validade)
type TotalContagemAberta struct {
	EAN        string `json:"ean"`
	Validade   Data   `json:"validade"`
	Quantidade int    `json:"quantidade"`
	Contagens  int    `json:"contagens"`
}

// HistoricoContagens resposta do histórico de contagens
type HistoricoContagens struct {
	Contagens []ContagemComProduto  `json:"contagens"`
	Totais    []TotalContagemAberta `json:"totais"`
}

// AjusteResultado resultado do ajuste de um grupo de contagem
type AjusteResultado struct {
	EAN                string `json:"ean"`
	Validade           Data   `json:"validade"`
	Local              Local  `json:"local"`
	QuantidadeAnterior int    `json:"quantidade_anterior"`
	QuantidadeNova     int    `json:"quantidade_nova"`
	ContagensAjustadas int64  `json:"contagens_ajustadas"`
}
