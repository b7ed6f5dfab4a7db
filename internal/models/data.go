package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	LayoutData       = "2006-01-02"
	LayoutDataBR     = "02/01/2006"
	layoutDataHoraBR = "02/01/2006 15:04"
)

// Data representa uma data sem componente de hora (ex: validade de um lote).
// Sempre normalizada para 00:00 UTC.
type Data struct {
	time.Time
}

// NovaData cria uma Data a partir de ano, mês e dia
func NovaData(ano int, mes time.Month, dia int) Data {
	return Data{time.Date(ano, mes, dia, 0, 0, 0, 0, time.UTC)}
}

// DataDe trunca um time.Time para a data civil correspondente
func DataDe(t time.Time) Data {
	return NovaData(t.Year(), t.Month(), t.Day())
}

// ParseData aceita YYYY-MM-DD, DD/MM/YYYY e RFC3339 (a hora é descartada)
func ParseData(s string) (Data, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Data{}, fmt.Errorf("data vazia")
	}
	for _, layout := range []string{LayoutData, LayoutDataBR, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DataDe(t), nil
		}
	}
	return Data{}, fmt.Errorf("data inválida: %s", s)
}

// ParseDataOpcional devolve nil para string vazia
func ParseDataOpcional(s string) (*Data, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	d, err := ParseData(s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (d Data) String() string {
	return d.Time.Format(LayoutData)
}

// Formatada devolve a data no formato pt-BR (DD/MM/YYYY)
func (d Data) Formatada() string {
	return d.Time.Format(LayoutDataBR)
}

func (d Data) Equal(o Data) bool {
	return d.Time.Equal(o.Time)
}

func (d Data) Before(o Data) bool {
	return d.Time.Before(o.Time)
}

// DiasAte devolve quantos dias faltam de ref até d (negativo se já passou)
func (d Data) DiasAte(ref time.Time) int {
	return int(d.Time.Sub(DataDe(ref).Time).Hours() / 24)
}

func (d Data) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Data) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseData(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implementa sql.Scanner
func (d *Data) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = DataDe(v)
		return nil
	case []byte:
		parsed, err := ParseData(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseData(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Data", src)
	}
}

// Value implementa driver.Valuer
func (d Data) Value() (driver.Value, error) {
	return d.Time, nil
}

// ValorNulo converte uma data opcional em argumento SQL
func ValorNulo(d *Data) interface{} {
	if d == nil {
		return nil
	}
	return d.Time
}

// MesmaData compara duas datas opcionais (nil só é igual a nil)
func MesmaData(a, b *Data) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

// FormatarDataHora formata um timestamp no padrão pt-BR
func FormatarDataHora(t time.Time) string {
	return t.Format(layoutDataHoraBR)
}
