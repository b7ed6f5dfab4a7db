package planilha

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

// Coluna cabeçalho e largura de uma coluna exportada
type Coluna struct {
	Titulo  string
	Largura float64
}

// Exportar grava uma pasta de trabalho com uma aba. Cada linha deve ter o
// mesmo número de valores que colunas.
func Exportar(w io.Writer, aba string, colunas []Coluna, linhas [][]interface{}) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", aba); err != nil {
		return fmt.Errorf("erro nomeando aba: %w", err)
	}

	negrito, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E0E0E0"}},
	})
	if err != nil {
		return fmt.Errorf("erro criando estilo: %w", err)
	}

	cabecalho := make([]interface{}, len(colunas))
	for i, c := range colunas {
		cabecalho[i] = c.Titulo
		if c.Largura > 0 {
			nome, _ := excelize.ColumnNumberToName(i + 1)
			if err := f.SetColWidth(aba, nome, nome, c.Largura); err != nil {
				return err
			}
		}
	}
	if err := f.SetSheetRow(aba, "A1", &cabecalho); err != nil {
		return fmt.Errorf("erro gravando cabeçalho: %w", err)
	}
	if len(colunas) > 0 {
		ultima, _ := excelize.CoordinatesToCellName(len(colunas), 1)
		if err := f.SetCellStyle(aba, "A1", ultima, negrito); err != nil {
			return err
		}
	}

	for i, linha := range linhas {
		celula, _ := excelize.CoordinatesToCellName(1, i+2)
		valores := linha
		if err := f.SetSheetRow(aba, celula, &valores); err != nil {
			return fmt.Errorf("erro gravando linha %d: %w", i+2, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("erro gravando xlsx: %w", err)
	}
	return nil
}
