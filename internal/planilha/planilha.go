// Package planilha lê e escreve as planilhas de importação e exportação
// (.xlsx via excelize, .csv via encoding/csv).
package planilha

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"estoque-service/internal/models"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ErrFormatoNaoSuportado = errors.New("formato de arquivo não suportado, envie .xlsx ou .csv")
	ErrPlanilhaVazia       = errors.New("planilha vazia")
)

// aliases de cabeçalho aceitos nas importações
var aliases = map[string]string{
	"descricao":        "descricao",
	"nome":             "descricao",
	"produto":          "descricao",
	"ean":              "ean",
	"codigo de barras": "ean",
	"cod barras":       "ean",
	"marca":            "marca",
	"quantidade":       "quantidade",
	"qtd":              "quantidade",
	"validade":         "validade",
	"data de validade": "validade",
	"lote":             "lote",
	"endereco":         "endereco",
}

// Linha uma linha de dados com as colunas já normalizadas
type Linha struct {
	Numero  int
	Valores map[string]string
}

// Get devolve o valor da coluna sem espaços nas pontas
func (l Linha) Get(coluna string) string {
	return strings.TrimSpace(l.Valores[coluna])
}

// Tabela conteúdo da primeira aba (ou do csv)
type Tabela struct {
	Colunas []string
	Linhas  []Linha
}

// Tem informa se a coluna normalizada está presente
func (t *Tabela) Tem(coluna string) bool {
	for _, c := range t.Colunas {
		if c == coluna {
			return true
		}
	}
	return false
}

// Ler escolhe o parser pela extensão do arquivo
func Ler(r io.Reader, nomeArquivo string) (*Tabela, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("erro lendo arquivo: %w", err)
	}

	switch strings.ToLower(filepath.Ext(nomeArquivo)) {
	case ".xlsx", ".xlsm":
		return lerXLSX(data)
	case ".csv":
		return lerCSV(data)
	}
	return nil, ErrFormatoNaoSuportado
}

func lerXLSX(data []byte) (*Tabela, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("erro abrindo xlsx: %w", err)
	}
	defer f.Close()

	aba := f.GetSheetName(0)
	if aba == "" {
		return nil, ErrPlanilhaVazia
	}

	// valor bruto: datas chegam como número serial do Excel
	rows, err := f.GetRows(aba, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("erro lendo aba %s: %w", aba, err)
	}
	return montarTabela(rows, nil)
}

func lerCSV(data []byte) (*Tabela, error) {
	if !utf8.Valid(data) {
		// planilhas salvas pelo Excel em pt-BR costumam vir em Windows-1252
		if convertido, _, err := transform.Bytes(charmap.Windows1252.NewDecoder(), data); err == nil {
			data = convertido
		}
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = detectarSeparador(data)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// o reader pula linhas em branco; a numeração vem de FieldPos
	var (
		rows    [][]string
		numeros []int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("erro lendo csv: %w", err)
		}
		linha, _ := reader.FieldPos(0)
		rows = append(rows, record)
		numeros = append(numeros, linha)
	}
	return montarTabela(rows, numeros)
}

func detectarSeparador(data []byte) rune {
	primeira := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		primeira = data[:i]
	}
	melhor, total := ',', bytes.Count(primeira, []byte(","))
	for _, sep := range []rune{';', '\t'} {
		if n := bytes.Count(primeira, []byte(string(sep))); n > total {
			melhor, total = sep, n
		}
	}
	return melhor
}

// montarTabela numeros traz a linha de origem de cada row; nil quando a
// posição na planilha já é o índice (xlsx)
func montarTabela(rows [][]string, numeros []int) (*Tabela, error) {
	if len(rows) == 0 {
		return nil, ErrPlanilhaVazia
	}

	colunas := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		colunas[i] = NormalizarCabecalho(h)
	}

	tabela := &Tabela{Colunas: colunas}
	for i, row := range rows[1:] {
		valores := make(map[string]string, len(colunas))
		vazia := true
		for j, col := range colunas {
			if col == "" || j >= len(row) {
				continue
			}
			v := strings.TrimSpace(row[j])
			if v != "" {
				vazia = false
			}
			valores[col] = v
		}
		if vazia {
			continue
		}
		numero := i + 2 // cabeçalho é a linha 1
		if numeros != nil {
			numero = numeros[i+1]
		}
		tabela.Linhas = append(tabela.Linhas, Linha{Numero: numero, Valores: valores})
	}
	return tabela, nil
}

var semAcento = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizarCabecalho minúsculas, sem acentos e resolvendo aliases
// ("Descrição" e "Nome" viram "descricao")
func NormalizarCabecalho(h string) string {
	h = strings.ToLower(strings.TrimSpace(strings.Trim(h, "\"'\t")))
	if s, _, err := transform.String(semAcento, h); err == nil {
		h = s
	}
	h = strings.Join(strings.Fields(strings.NewReplacer("_", " ", ".", " ").Replace(h)), " ")
	if alias, ok := aliases[h]; ok {
		return alias
	}
	return h
}

// ParseValidade aceita número serial do Excel ou os formatos de texto de models.ParseData
func ParseValidade(v string) (models.Data, error) {
	v = strings.TrimSpace(v)
	if serial, err := strconv.ParseFloat(v, 64); err == nil {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return models.Data{}, fmt.Errorf("data de validade inválida: %s", v)
		}
		return models.DataDe(t), nil
	}
	d, err := models.ParseData(v)
	if err != nil {
		return models.Data{}, fmt.Errorf("data de validade inválida: %s", v)
	}
	return d, nil
}

// ParseQuantidade inteiro vindo de célula de texto ou número ("10", "10.0")
func ParseQuantidade(v string) (int, error) {
	v = strings.TrimSpace(v)
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(strings.Replace(v, ",", ".", 1), 64)
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("quantidade inválida: %s", v)
	}
	return int(f), nil
}

// NormalizarEAN desfaz a notação científica que o Excel aplica a EANs numéricos
func NormalizarEAN(v string) string {
	v = strings.ToUpper(strings.TrimSpace(v))
	if strings.ContainsAny(v, "E.") {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f == math.Trunc(f) {
			return strconv.FormatFloat(f, 'f', 0, 64)
		}
	}
	return v
}
