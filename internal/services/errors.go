package services

import (
	"errors"
	"fmt"

	"estoque-service/internal/models"
)

// Erros de negócio do ledger e das contagens
var (
	ErrQuantidadeInvalida   = errors.New("quantidade deve ser um número inteiro positivo")
	ErrValidadeObrigatoria  = errors.New("validade é obrigatória")
	ErrValidadeInvalida     = errors.New("data de validade inválida")
	ErrLocalInvalido        = errors.New("local inválido")
	ErrEnderecoInvalido     = errors.New("endereços de origem e destino devem ser diferentes")
	ErrProdutoNaoEncontrado = errors.New("produto não encontrado")
	ErrLoteNaoEncontrado    = errors.New("estoque não encontrado para este produto com essa validade")
	ErrSemContagemPendente  = errors.New("não há contagem pendente para este produto e validade")
	ErrConflitoConcorrencia = errors.New("o saldo foi alterado por outra operação, tente novamente")
	ErrArquivoInvalido      = errors.New("arquivo inválido")
	ErrFiltroInvalido       = errors.New("filtro inválido")
	ErrEANObrigatorio       = errors.New("ean é obrigatório")
)

// ErrFEFO existe saldo de um lote que vence antes do lote pedido
type ErrFEFO struct {
	ValidadeBloqueante models.Data
}

func (e *ErrFEFO) Error() string {
	return fmt.Sprintf("ainda há saldo do lote com validade %s. É necessário dar baixa nesse lote primeiro",
		e.ValidadeBloqueante.Formatada())
}

// ErrSaldoInsuficiente a quantidade pedida excede o saldo do lote
type ErrSaldoInsuficiente struct {
	Disponivel int
	Solicitado int
}

func (e *ErrSaldoInsuficiente) Error() string {
	return fmt.Sprintf("quantidade indisponível. Estoque atual: %d", e.Disponivel)
}
