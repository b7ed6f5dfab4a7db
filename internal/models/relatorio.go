package models

// FaixaValidade classificação de um lote pelos dias até o vencimento
type FaixaValidade string

const (
	FaixaVencidoOuMenos30 FaixaValidade = "vencido_ou_<30"
	Faixa30a90            FaixaValidade = "30-90"
	Faixa90a180           FaixaValidade = "90-180"
	FaixaMaisDe180        FaixaValidade = ">180"
	FaixaSemValidade      FaixaValidade = "sem_validade"
)

// LinhaPainelValidade linha consolidada por (ean, validade) no painel
type LinhaPainelValidade struct {
	IDProduto      int64         `json:"id_produto"`
	EAN            string        `json:"ean"`
	Descricao      string        `json:"descricao"`
	Marca          string        `json:"marca"`
	Validade       *Data         `json:"validade"`
	Quantidade     int           `json:"quantidade"`
	SaldoLoja      *int          `json:"saldo_loja,omitempty"`
	DiasParaVencer *int          `json:"dias_para_vencer"`
	Faixa          FaixaValidade `json:"faixa"`
	CorFundo       string        `json:"cor_fundo"`
	CorIndicador   string        `json:"cor_indicador"`
}

// PainelFilter filtros do painel de validade
type PainelFilter struct {
	EAN          string `form:"ean"`
	Descricao    string `form:"descricao"`
	Marca        string `form:"marca"`
	Mes          int    `form:"mes"`
	Ano          int    `form:"ano"`
	OperadorLoja string `form:"operador_loja"`
	ValorLoja    *int   `form:"valor_loja"`
}

// StatusSaldo comparação do galpão com o WMS
type StatusSaldo string

const (
	SaldoWMSMenor StatusSaldo = "Saldo WMS menor"
	SaldoWMSMaior StatusSaldo = "Saldo WMS maior"
	SaldoOK       StatusSaldo = "Saldo OK"
)

// LinhaSaldoConsolidado saldo do galpão por EAN contra o WMS
type LinhaSaldoConsolidado struct {
	EAN         string      `json:"ean"`
	Descricao   string      `json:"descricao"`
	Marca       string      `json:"marca"`
	SaldoGalpao int         `json:"saldo_galpao"`
	SaldoWMS    int         `json:"saldo_wms"`
	Diferenca   int         `json:"diferenca"`
	Status      StatusSaldo `json:"status"`
}

// SaldoFilter filtros do saldo consolidado
type SaldoFilter struct {
	EAN       string `form:"ean"`
	Descricao string `form:"descricao"`
	Marca     string `form:"marca"`
	Status    string `form:"status"`
}

// PontoSerie total movimentado em um dia
type PontoSerie struct {
	Dia      string `json:"dia"`
	Entradas int    `json:"entradas"`
	Saidas   int    `json:"saidas"`
}

// Indicadores resumo de movimentação do período
type Indicadores struct {
	Ano            int          `json:"ano,omitempty"`
	Mes            int          `json:"mes,omitempty"`
	TotalEntradas  int          `json:"total_entradas"`
	TotalSaidas    int          `json:"total_saidas"`
	GruposContados int          `json:"grupos_contados"`
	Serie          []PontoSerie `json:"serie"`
}

// IndicadoresFilter período dos indicadores
type IndicadoresFilter struct {
	Ano int `form:"ano"`
	Mes int `form:"mes"`
}
