package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"estoque-service/internal/models"
	"estoque-service/internal/repository"

	"go.uber.org/zap"
)

// RelatorioService visões somente-leitura: painel de validade, saldo
// consolidado e indicadores de movimentação
type RelatorioService interface {
	PainelValidade(ctx context.Context, local models.Local, filter models.PainelFilter) ([]*models.LinhaPainelValidade, error)
	SaldoConsolidado(ctx context.Context, filter models.SaldoFilter) ([]*models.LinhaSaldoConsolidado, error)
	Indicadores(ctx context.Context, filter models.IndicadoresFilter) (*models.Indicadores, error)
}

type relatorioService struct {
	relatorios repository.RelatorioRepository
	repos      repository.Repositorios
	agora      func() time.Time
	logger     *zap.Logger
}

// NewRelatorioService cria o serviço de relatórios
func NewRelatorioService(relatorios repository.RelatorioRepository, repos repository.Repositorios, logger *zap.Logger) RelatorioService {
	return &relatorioService{
		relatorios: relatorios,
		repos:      repos,
		agora:      time.Now,
		logger:     logger,
	}
}

// cores do painel
const (
	fundoMenos30     = "#f2f2f2"
	fundo30a90       = "#ffd6d6"
	fundo90a180      = "#fff3cc"
	fundoMais180     = "#d6f5d6"
	indicadorVencido = "#b71c1c"
	indicador30a90   = "#f44336"
	indicador90a180  = "#ff9800"
	indicadorMais180 = "#4caf50"
	indicadorSemData = "#cccccc"
)

// ClassificarValidade calcula dias até o vencimento, faixa e cores de um lote
func ClassificarValidade(validade *models.Data, hoje time.Time) (dias *int, faixa models.FaixaValidade, fundo, indicador string) {
	if validade == nil {
		return nil, models.FaixaSemValidade, "", indicadorSemData
	}
	d := validade.DiasAte(hoje)
	switch {
	case d < 30:
		faixa, fundo, indicador = models.FaixaVencidoOuMenos30, fundoMenos30, indicadorVencido
	case d <= 90:
		faixa, fundo, indicador = models.Faixa30a90, fundo30a90, indicador30a90
	case d <= 180:
		faixa, fundo, indicador = models.Faixa90a180, fundo90a180, indicador90a180
	default:
		faixa, fundo, indicador = models.FaixaMaisDe180, fundoMais180, indicadorMais180
	}
	return &d, faixa, fundo, indicador
}

// CompararSaldo aplica o operador do filtro de saldo da loja. Operador vazio aceita tudo.
func CompararSaldo(saldo int, operador string, valor int) (bool, error) {
	switch operador {
	case "":
		return true, nil
	case "=":
		return saldo == valor, nil
	case "<>":
		return saldo != valor, nil
	case "<":
		return saldo < valor, nil
	case "<=":
		return saldo <= valor, nil
	case ">":
		return saldo > valor, nil
	case ">=":
		return saldo >= valor, nil
	}
	return false, fmt.Errorf("%w: operador %q", ErrFiltroInvalido, operador)
}

// StatusSaldo compara o galpão com o WMS
func StatusSaldo(galpao, wms int) models.StatusSaldo {
	switch {
	case galpao > wms:
		return models.SaldoWMSMenor
	case galpao < wms:
		return models.SaldoWMSMaior
	}
	return models.SaldoOK
}

func (s *relatorioService) PainelValidade(ctx context.Context, local models.Local, filter models.PainelFilter) ([]*models.LinhaPainelValidade, error) {
	if !local.Valido() {
		return nil, ErrLocalInvalido
	}
	filtrarLoja := local == models.LocalGalpao && filter.OperadorLoja != "" && filter.ValorLoja != nil
	if filtrarLoja {
		if _, err := CompararSaldo(0, filter.OperadorLoja, 0); err != nil {
			return nil, err
		}
	}

	linhas, err := s.relatorios.PainelValidade(ctx, local, filter)
	if err != nil {
		return nil, fmt.Errorf("erro montando painel de validade: %w", err)
	}

	hoje := s.agora()
	resultado := make([]*models.LinhaPainelValidade, 0, len(linhas))
	for _, l := range linhas {
		if filtrarLoja {
			saldo := 0
			if l.SaldoLoja != nil {
				saldo = *l.SaldoLoja
			}
			if ok, _ := CompararSaldo(saldo, filter.OperadorLoja, *filter.ValorLoja); !ok {
				continue
			}
		}
		l.DiasParaVencer, l.Faixa, l.CorFundo, l.CorIndicador = ClassificarValidade(l.Validade, hoje)
		resultado = append(resultado, l)
	}
	return resultado, nil
}

func (s *relatorioService) SaldoConsolidado(ctx context.Context, filter models.SaldoFilter) ([]*models.LinhaSaldoConsolidado, error) {
	linhas, err := s.relatorios.SaldoConsolidado(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("erro montando saldo consolidado: %w", err)
	}

	resultado := make([]*models.LinhaSaldoConsolidado, 0, len(linhas))
	for _, l := range linhas {
		l.Diferenca = l.SaldoGalpao - l.SaldoWMS
		l.Status = StatusSaldo(l.SaldoGalpao, l.SaldoWMS)
		if filter.Status != "" && string(l.Status) != filter.Status {
			continue
		}
		resultado = append(resultado, l)
	}
	return resultado, nil
}

// Indicadores totais de entrada e saída do galpão no período, grupos
// contados e a série diária
func (s *relatorioService) Indicadores(ctx context.Context, filter models.IndicadoresFilter) (*models.Indicadores, error) {
	if filter.Mes < 0 || filter.Mes > 12 || filter.Ano < 0 {
		return nil, ErrFiltroInvalido
	}

	entradas, err := s.repos.Movimentacoes.SerieDiaria(ctx, models.MovEntrada, models.LocalGalpao, filter.Ano, filter.Mes)
	if err != nil {
		return nil, fmt.Errorf("erro somando entradas: %w", err)
	}
	saidas, err := s.repos.Movimentacoes.SerieDiaria(ctx, models.MovSaida, models.LocalGalpao, filter.Ano, filter.Mes)
	if err != nil {
		return nil, fmt.Errorf("erro somando saídas: %w", err)
	}
	grupos, err := s.repos.Contagens.GruposContados(ctx, filter.Ano, filter.Mes)
	if err != nil {
		return nil, fmt.Errorf("erro contando grupos: %w", err)
	}

	ind := &models.Indicadores{
		Ano:            filter.Ano,
		Mes:            filter.Mes,
		GruposContados: grupos,
		Serie:          MesclarSeries(entradas, saidas),
	}
	for _, p := range ind.Serie {
		ind.TotalEntradas += p.Entradas
		ind.TotalSaidas += p.Saidas
	}
	return ind, nil
}

// MesclarSeries junta as séries diárias de entrada e saída em ordem de dia
func MesclarSeries(entradas, saidas map[string]int) []models.PontoSerie {
	dias := make(map[string]*models.PontoSerie)
	for dia, total := range entradas {
		dias[dia] = &models.PontoSerie{Dia: dia, Entradas: total}
	}
	for dia, total := range saidas {
		p, ok := dias[dia]
		if !ok {
			p = &models.PontoSerie{Dia: dia}
			dias[dia] = p
		}
		p.Saidas = total
	}

	serie := make([]models.PontoSerie, 0, len(dias))
	for _, p := range dias {
		serie = append(serie, *p)
	}
	sort.Slice(serie, func(i, j int) bool { return serie[i].Dia < serie[j].Dia })
	return serie
}
