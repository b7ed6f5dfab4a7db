package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"estoque-service/internal/models"
	"estoque-service/internal/repository"
)

// memStore banco em memória com as mesmas regras das queries
type memStore struct {
	produtos  []*models.Produto
	lotes     map[models.Local][]*models.LoteEstoque
	movs      []*models.Movimentacao
	contagens []*models.Contagem
	arquivo   []*models.Contagem
	travas    []chaveTrava
	nextID    int64
}

type chaveTrava struct {
	local     models.Local
	idProduto int64
}

func newMemStore() *memStore {
	return &memStore{lotes: map[models.Local][]*models.LoteEstoque{}}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) addProduto(ean, descricao string) *models.Produto {
	p := &models.Produto{ID: s.id(), EAN: ean, Descricao: descricao, Marca: "Marca"}
	s.produtos = append(s.produtos, p)
	return p
}

func (s *memStore) addLote(local models.Local, p *models.Produto, validade string, qtd int, endereco string) *models.LoteEstoque {
	l := &models.LoteEstoque{ID: s.id(), IDProduto: p.ID, EAN: p.EAN, Quantidade: qtd}
	if validade != "" {
		v, _ := models.ParseData(validade)
		l.Validade = &v
	}
	if endereco != "" {
		e := endereco
		l.Endereco = &e
	}
	s.lotes[local] = append(s.lotes[local], l)
	return l
}

func (s *memStore) saldo(local models.Local, idProduto int64, validade string) int {
	v, _ := models.ParseData(validade)
	total := 0
	for _, l := range s.lotes[local] {
		if l.IDProduto == idProduto && models.MesmaData(l.Validade, &v) {
			total += l.Quantidade
		}
	}
	return total
}

func (s *memStore) movsDoTipo(tipo models.TipoMovimentacao, local models.Local) []*models.Movimentacao {
	var out []*models.Movimentacao
	for _, m := range s.movs {
		if m.Tipo == tipo && m.Local == local {
			out = append(out, m)
		}
	}
	return out
}

// snapshot cópia profunda usada no rollback
func (s *memStore) snapshot() *memStore {
	c := &memStore{lotes: map[models.Local][]*models.LoteEstoque{}, nextID: s.nextID}
	for _, p := range s.produtos {
		cp := *p
		c.produtos = append(c.produtos, &cp)
	}
	for local, lotes := range s.lotes {
		for _, l := range lotes {
			cp := *l
			c.lotes[local] = append(c.lotes[local], &cp)
		}
	}
	for _, m := range s.movs {
		cp := *m
		c.movs = append(c.movs, &cp)
	}
	for _, ct := range s.contagens {
		cp := *ct
		c.contagens = append(c.contagens, &cp)
	}
	for _, ct := range s.arquivo {
		cp := *ct
		c.arquivo = append(c.arquivo, &cp)
	}
	return c
}

func (s *memStore) restore(c *memStore) {
	s.produtos, s.lotes, s.movs, s.contagens, s.arquivo, s.nextID = c.produtos, c.lotes, c.movs, c.contagens, c.arquivo, c.nextID
}

func (s *memStore) repos() repository.Repositorios {
	return repository.Repositorios{
		Produtos:      &fakeProdutos{s: s},
		Galpao:        &fakeEstoque{s: s, local: models.LocalGalpao},
		Loja:          &fakeEstoque{s: s, local: models.LocalLoja},
		Movimentacoes: &fakeMovimentacoes{s: s},
		Contagens:     &fakeContagens{s: s},
	}
}

// fakeTx serializa as transações e desfaz tudo quando fn falha
type fakeTx struct {
	s        *memStore
	mu       sync.Mutex
	commits  int
	rollback int
}

func (t *fakeTx) Run(ctx context.Context, fn func(repos repository.Repositorios) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	antes := t.s.snapshot()
	if err := fn(t.s.repos()); err != nil {
		t.s.restore(antes)
		t.rollback++
		return err
	}
	t.commits++
	return nil
}

type fakeProdutos struct{ s *memStore }

func (r *fakeProdutos) GetByID(ctx context.Context, id int64) (*models.Produto, error) {
	for _, p := range r.s.produtos {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProdutos) GetByEAN(ctx context.Context, ean string) (*models.Produto, error) {
	for _, p := range r.s.produtos {
		if p.EAN == ean {
			return p, nil
		}
	}
	return nil, nil
}

func (r *fakeProdutos) List(ctx context.Context, filter models.ProdutoFilter) ([]*models.Produto, error) {
	var out []*models.Produto
	for _, p := range r.s.produtos {
		if filter.EAN == "" || strings.Contains(p.EAN, filter.EAN) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProdutos) Create(ctx context.Context, produto *models.Produto) error {
	if p, _ := r.GetByEAN(ctx, produto.EAN); p != nil {
		return errors.New("duplicate key value violates unique constraint")
	}
	produto.ID = r.s.id()
	produto.CreatedAt = time.Now()
	r.s.produtos = append(r.s.produtos, produto)
	return nil
}

func (r *fakeProdutos) Update(ctx context.Context, produto *models.Produto) error {
	for i, p := range r.s.produtos {
		if p.ID == produto.ID {
			r.s.produtos[i] = produto
			return nil
		}
	}
	return errors.New("produto não encontrado")
}

func (r *fakeProdutos) EANsExistentes(ctx context.Context, eans []string) (map[string]bool, error) {
	out := make(map[string]bool)
	for _, ean := range eans {
		if p, _ := r.GetByEAN(ctx, ean); p != nil {
			out[ean] = true
		}
	}
	return out, nil
}

type fakeEstoque struct {
	s     *memStore
	local models.Local
}

// copiaLote as leituras devolvem cópias, como o Scan do repository real
func copiaLote(l *models.LoteEstoque) *models.LoteEstoque {
	if l == nil {
		return nil
	}
	c := *l
	return &c
}

func mesmoEndereco(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *fakeEstoque) Local() models.Local { return r.local }

func (r *fakeEstoque) doProduto(idProduto int64, validade *models.Data) []*models.LoteEstoque {
	var out []*models.LoteEstoque
	for _, l := range r.s.lotes[r.local] {
		if l.IDProduto == idProduto && models.MesmaData(l.Validade, validade) {
			out = append(out, l)
		}
	}
	// endereco NULLS FIRST, id
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Endereco, out[j].Endereco
		if (a == nil) != (b == nil) {
			return a == nil
		}
		if a != nil && *a != *b {
			return *a < *b
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (r *fakeEstoque) TravarProduto(ctx context.Context, idProduto int64) error {
	r.s.travas = append(r.s.travas, chaveTrava{r.local, idProduto})
	return nil
}

// encontrar devolve o ponteiro vivo; uso interno das escritas
func (r *fakeEstoque) encontrar(chave models.ChaveLote) *models.LoteEstoque {
	for _, l := range r.doProduto(chave.IDProduto, chave.Validade) {
		if mesmoEndereco(l.Endereco, chave.Endereco) {
			return l
		}
	}
	return nil
}

func (r *fakeEstoque) Buscar(ctx context.Context, chave models.ChaveLote) (*models.LoteEstoque, error) {
	return copiaLote(r.encontrar(chave)), nil
}

func (r *fakeEstoque) BuscarPrimeiro(ctx context.Context, idProduto int64, validade *models.Data, minimo int) (*models.LoteEstoque, error) {
	lotes := r.doProduto(idProduto, validade)
	for _, l := range lotes {
		if l.Quantidade >= minimo {
			return copiaLote(l), nil
		}
	}
	if len(lotes) > 0 {
		return copiaLote(lotes[0]), nil
	}
	return nil, nil
}

func (r *fakeEstoque) ListarPorProdutoValidade(ctx context.Context, idProduto int64, validade *models.Data) ([]*models.LoteEstoque, error) {
	lotes := r.doProduto(idProduto, validade)
	out := make([]*models.LoteEstoque, len(lotes))
	for i, l := range lotes {
		out[i] = copiaLote(l)
	}
	return out, nil
}

func (r *fakeEstoque) ValidadeBloqueante(ctx context.Context, idProduto int64, validade models.Data) (*models.Data, error) {
	var menor *models.Data
	for _, l := range r.s.lotes[r.local] {
		if l.IDProduto != idProduto || l.Validade == nil || l.Quantidade <= 0 || !l.Validade.Before(validade) {
			continue
		}
		if menor == nil || l.Validade.Before(*menor) {
			v := *l.Validade
			menor = &v
		}
	}
	return menor, nil
}

func (r *fakeEstoque) Somar(ctx context.Context, chave models.ChaveLote, ean string, lote *string, n int) (*models.LoteEstoque, error) {
	if existente := r.encontrar(chave); existente != nil {
		existente.Quantidade += n
		if existente.Lote == nil {
			existente.Lote = lote
		}
		return copiaLote(existente), nil
	}
	l := &models.LoteEstoque{
		ID: r.s.id(), IDProduto: chave.IDProduto, EAN: ean, Validade: chave.Validade,
		Quantidade: n, Lote: lote, Endereco: chave.Endereco,
	}
	r.s.lotes[r.local] = append(r.s.lotes[r.local], l)
	return copiaLote(l), nil
}

func (r *fakeEstoque) Decrementar(ctx context.Context, id int64, n int) (int, bool, error) {
	for _, l := range r.s.lotes[r.local] {
		if l.ID == id {
			if l.Quantidade < n {
				return 0, false, nil
			}
			l.Quantidade -= n
			return l.Quantidade, true, nil
		}
	}
	return 0, false, nil
}

func (r *fakeEstoque) DefinirQuantidade(ctx context.Context, id int64, quantidade int) error {
	for _, l := range r.s.lotes[r.local] {
		if l.ID == id {
			l.Quantidade = quantidade
			return nil
		}
	}
	return errors.New("lote não encontrado")
}

func (r *fakeEstoque) List(ctx context.Context, filter models.EstoqueFilter) ([]*models.LoteComProduto, error) {
	var out []*models.LoteComProduto
	for _, l := range r.s.lotes[r.local] {
		if filter.EAN != "" && l.EAN != filter.EAN {
			continue
		}
		out = append(out, &models.LoteComProduto{LoteEstoque: *l})
	}
	return out, nil
}

func (r *fakeEstoque) SomasPorProdutoValidade(ctx context.Context, ids []int64) (map[repository.ChaveSaldo]int, error) {
	somas := make(map[repository.ChaveSaldo]int)
	for _, l := range r.s.lotes[r.local] {
		if l.Validade == nil {
			continue
		}
		for _, id := range ids {
			if l.IDProduto == id {
				somas[repository.NovaChaveSaldo(id, *l.Validade)] += l.Quantidade
			}
		}
	}
	return somas, nil
}

type fakeMovimentacoes struct{ s *memStore }

func (r *fakeMovimentacoes) Registrar(ctx context.Context, mov *models.Movimentacao) error {
	mov.ID = r.s.id()
	if mov.Data.IsZero() {
		mov.Data = time.Now()
	}
	r.s.movs = append(r.s.movs, mov)
	return nil
}

func (r *fakeMovimentacoes) Listar(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, filter models.MovimentacaoFilter) ([]*models.MovimentacaoComProduto, error) {
	var out []*models.MovimentacaoComProduto
	for _, m := range r.s.movsDoTipo(tipo, local) {
		out = append(out, &models.MovimentacaoComProduto{Movimentacao: *m})
	}
	return out, nil
}

func (r *fakeMovimentacoes) SerieDiaria(ctx context.Context, tipo models.TipoMovimentacao, local models.Local, ano, mes int) (map[string]int, error) {
	serie := make(map[string]int)
	for _, m := range r.s.movsDoTipo(tipo, local) {
		if ano > 0 && m.Data.Year() != ano {
			continue
		}
		if mes > 0 && int(m.Data.Month()) != mes {
			continue
		}
		serie[m.Data.Format("2006-01-02")] += m.Quantidade
	}
	return serie, nil
}

type fakeContagens struct{ s *memStore }

func (r *fakeContagens) TravarGrupo(ctx context.Context, ean string, validade models.Data) error {
	return nil
}

func (r *fakeContagens) Create(ctx context.Context, c *models.Contagem) error {
	num := 1
	for _, lista := range [][]*models.Contagem{r.s.contagens, r.s.arquivo} {
		for _, x := range lista {
			if x.EAN == c.EAN && x.Validade.Equal(c.Validade) {
				num++
			}
		}
	}
	c.ID = r.s.id()
	c.ContagemNum = num
	// ordem estável entre contagens do mesmo instante
	c.Data = time.Now().Add(time.Duration(c.ID) * time.Millisecond)
	r.s.contagens = append(r.s.contagens, c)
	return nil
}

func (r *fakeContagens) List(ctx context.Context, filter models.ContagemFilter) ([]*models.ContagemComProduto, error) {
	var out []*models.ContagemComProduto
	for i := len(r.s.contagens) - 1; i >= 0; i-- {
		c := r.s.contagens[i]
		if filter.EAN != "" && c.EAN != filter.EAN {
			continue
		}
		out = append(out, &models.ContagemComProduto{Contagem: *c})
	}
	return out, nil
}

func (r *fakeContagens) UltimaPendente(ctx context.Context, ean string, validade models.Data) (*models.Contagem, error) {
	for i := len(r.s.contagens) - 1; i >= 0; i-- {
		c := r.s.contagens[i]
		if c.EAN == ean && c.Validade.Equal(validade) && !c.Ajustado {
			return c, nil
		}
	}
	return nil, nil
}

func (r *fakeContagens) MarcarAjustadas(ctx context.Context, ean string, validade models.Data) (int64, error) {
	var n int64
	for _, c := range r.s.contagens {
		if c.EAN == ean && c.Validade.Equal(validade) && !c.Ajustado {
			c.Ajustado = true
			n++
		}
	}
	return n, nil
}

func (r *fakeContagens) TotaisAbertos(ctx context.Context, ean string) ([]models.TotalContagemAberta, error) {
	indice := map[string]*models.TotalContagemAberta{}
	var out []models.TotalContagemAberta
	var ordem []string
	for _, c := range r.s.contagens {
		if c.Ajustado || (ean != "" && c.EAN != ean) {
			continue
		}
		k := c.EAN + "|" + c.Validade.String()
		t, ok := indice[k]
		if !ok {
			t = &models.TotalContagemAberta{EAN: c.EAN, Validade: c.Validade}
			indice[k] = t
			ordem = append(ordem, k)
		}
		t.Quantidade += c.Quantidade
		t.Contagens++
	}
	for _, k := range ordem {
		out = append(out, *indice[k])
	}
	return out, nil
}

func (r *fakeContagens) Arquivar(ctx context.Context) (int64, error) {
	var restantes []*models.Contagem
	var n int64
	for _, c := range r.s.contagens {
		if c.Ajustado {
			r.s.arquivo = append(r.s.arquivo, c)
			n++
			continue
		}
		restantes = append(restantes, c)
	}
	r.s.contagens = restantes
	return n, nil
}

func (r *fakeContagens) GruposContados(ctx context.Context, ano, mes int) (int, error) {
	grupos := map[string]bool{}
	for _, c := range r.s.contagens {
		grupos[c.EAN+"|"+c.Validade.String()] = true
	}
	return len(grupos), nil
}

// fakePublisher guarda os eventos publicados
type fakePublisher struct {
	mu      sync.Mutex
	eventos []*models.Movimentacao
	falhar  bool
}

func (p *fakePublisher) PublicarMovimentacao(ctx context.Context, mov *models.Movimentacao) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.falhar {
		return errors.New("broker fora")
	}
	p.eventos = append(p.eventos, mov)
	return nil
}

func (p *fakePublisher) Stats() models.EventosMetrics {
	p.mu.Lock()
	defer p.mu.Unlock()
	return models.EventosMetrics{Habilitado: true, Publicados: int64(len(p.eventos))}
}

func (p *fakePublisher) Close() error { return nil }

// resolvedor direto no store, sem cache
type resolvedorMem struct{ repo repository.ProdutoRepository }

func (r resolvedorMem) BuscarPorID(ctx context.Context, id int64) (*models.Produto, error) {
	return r.repo.GetByID(ctx, id)
}

func (r resolvedorMem) BuscarPorEAN(ctx context.Context, ean string) (*models.Produto, error) {
	return r.repo.GetByEAN(ctx, ean)
}
