package models

// ===== REQUEST DTOs =====

// EntradaRequest DTO para entrada em um local. Validade e datas chegam como
// texto e são normalizadas pelo serviço.
type EntradaRequest struct {
	IDProduto  int64  `json:"id_produto" validate:"required_without=EAN"`
	EAN        string `json:"ean" validate:"required_without=IDProduto"`
	Validade   string `json:"validade"`
	Quantidade int    `json:"quantidade" validate:"gt=0"`
	Lote       string `json:"lote"`
	Endereco   string `json:"endereco"`
}

// SaidaRequest DTO para saída de um local. Quantidade e validade são
// conferidas pelo serviço para devolver o erro de negócio correto.
type SaidaRequest struct {
	IDProduto  int64  `json:"id_produto" validate:"required_without=EAN"`
	EAN        string `json:"ean" validate:"required_without=IDProduto"`
	Validade   string `json:"validade"`
	Quantidade int    `json:"quantidade"`
	Lote       string `json:"lote"`
	Endereco   string `json:"endereco"`
}

// TransferenciaLojaRequest move unidades do galpão para a loja
type TransferenciaLojaRequest struct {
	IDProduto  int64  `json:"id_produto" validate:"required_without=EAN"`
	EAN        string `json:"ean" validate:"required_without=IDProduto"`
	Validade   string `json:"validade"`
	Quantidade int    `json:"quantidade"`
	Endereco   string `json:"endereco"`
}

// TransferenciaEnderecoRequest move unidades entre endereços do galpão
type TransferenciaEnderecoRequest struct {
	IDProduto       int64  `json:"id_produto" validate:"required_without=EAN"`
	EAN             string `json:"ean" validate:"required_without=IDProduto"`
	Validade        string `json:"validade"`
	Quantidade      int    `json:"quantidade" validate:"gt=0"`
	EnderecoOrigem  string `json:"endereco_origem"`
	EnderecoDestino string `json:"endereco_destino" validate:"nefield=EnderecoOrigem"`
}

// EntradaMultipleRequest processa vários itens de forma independente
type EntradaMultipleRequest struct {
	Itens []EntradaRequest `json:"itens" validate:"required,min=1,dive"`
}

// SaidaMultipleRequest processa várias saídas de forma independente
type SaidaMultipleRequest struct {
	Itens []SaidaRequest `json:"itens" validate:"required,min=1,dive"`
}

// ContagemRequest registro de uma contagem física
type ContagemRequest struct {
	EAN        string `json:"ean" validate:"required"`
	Validade   string `json:"validade" validate:"required"`
	Quantidade int    `json:"quantidade" validate:"gte=0"`
}

// AjusteRequest identifica o grupo de contagem a ajustar
type AjusteRequest struct {
	EAN      string `json:"ean" validate:"required"`
	Validade string `json:"validade" validate:"required"`
	Local    string `json:"local" validate:"omitempty,oneof=galpao loja"`
}

// ProdutoRequest criação/atualização de produto
type ProdutoRequest struct {
	EAN       string `json:"ean" validate:"required"`
	Descricao string `json:"descricao" validate:"required"`
	Marca     string `json:"marca"`
}

// ===== RESPONSE DTOs =====

// MovimentoResultado resultado de uma escrita no ledger
type MovimentoResultado struct {
	IDProduto          int64   `json:"id_produto"`
	EAN                string  `json:"ean"`
	Local              Local   `json:"local"`
	Validade           *Data   `json:"validade"`
	Endereco           *string `json:"endereco,omitempty"`
	Quantidade         int     `json:"quantidade"`
	QuantidadeAnterior int     `json:"quantidade_anterior"`
	QuantidadeNova     int     `json:"quantidade_nova"`
	Timestamp          string  `json:"timestamp"`
}

// TransferenciaResultado resultado de uma transferência
type TransferenciaResultado struct {
	Origem  MovimentoResultado `json:"origem"`
	Destino MovimentoResultado `json:"destino"`
}

// ItemResultado resultado de um item em operações múltiplas
type ItemResultado struct {
	Indice         int    `json:"indice"`
	IDProduto      int64  `json:"id_produto"`
	EAN            string `json:"ean"`
	Quantidade     int    `json:"quantidade"`
	QuantidadeNova int    `json:"quantidade_nova"`
	Success        bool   `json:"success"`
}

// ItemErro erro de um item em operações múltiplas
type ItemErro struct {
	Indice int    `json:"indice"`
	EAN    string `json:"ean,omitempty"`
	Error  string `json:"error"`
}

// MultipleResponse resposta de entrada/saída múltipla
type MultipleResponse struct {
	Success    bool            `json:"success"`
	Message    string          `json:"message"`
	TotalItens int             `json:"total_itens"`
	Resultados []ItemResultado `json:"resultados"`
	Erros      []ItemErro      `json:"erros,omitempty"`
	Timestamp  string          `json:"timestamp"`
}

// ImportacaoResultado resumo de uma importação de planilha
type ImportacaoResultado struct {
	RegistrosImportados int      `json:"registros_importados"`
	RegistrosIgnorados  int      `json:"registros_ignorados"`
	Erros               []string `json:"erros"`
}
