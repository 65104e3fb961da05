package productctx

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"catalog/internal/mapping"
	"catalog/internal/records"
)

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

func contextTable(t *testing.T, csv string) *mapping.ContextTable {
	t.Helper()
	ct, err := mapping.ParseContext(strings.NewReader(csv))
	require.NoError(t, err)
	return ct
}

func TestExtract_Explicit(t *testing.T) {
	ct := contextTable(t, "supplier,supplier_field,context_type\nacme,COLORE,color\nacme,NOTE,note\nacme,PESO,weight\n")
	e := NewExtractor(ct)
	e.Logger = nopLogger{}

	header := []string{"SKU", "Colore", "NOTE", "PESO"}
	row := records.FromMap(2, header, map[string]string{
		"SKU": "P1", "Colore": "Rosso", "NOTE": "<p>Lavare a mano</p>", "PESO": "12.0",
	})
	c := e.Extract(row, "ACME", nil)
	require.Equal(t, "color:Rosso | note:Lavare a mano | weight:12", c.Encode())

	empty := records.FromMap(3, header, map[string]string{"SKU": "P2", "Colore": "nan", "NOTE": "-", "PESO": "null"})
	require.Nil(t, e.Extract(empty, "acme", nil))
}

func TestExtract_Heuristic(t *testing.T) {
	e := NewExtractor(contextTable(t, "supplier,supplier_field,context_type\n"))
	e.Logger = nopLogger{}

	header := []string{"SKU", "NOME", "COLORE", "MATERIALE", "STORIA", "FLAG", "PREZZO"}
	mapped := map[string]struct{}{"SKU": {}, "NOME": {}}
	var rows []records.Record
	for i := 0; i < 5; i++ {
		rows = append(rows, records.FromMap(i+2, header, map[string]string{
			"SKU":       fmt.Sprintf("P%d", i),
			"NOME":      "Costume",
			"COLORE":    "Rosso",
			"MATERIALE": "Poliestere",
			"STORIA":    fmt.Sprintf("Un costume completo per feste in maschera numero %d", i),
			"FLAG":      "si",
			"PREZZO":    "19.90",
		}))
	}
	e.Prime("Widget", rows, mapped)

	c := e.Extract(rows[0], "widget", mapped)
	require.Equal(t,
		"colors:Rosso | materials:Poliestere | other:Un costume completo per feste in maschera numero 0",
		c.Encode())
}

func TestPrime_OnlyOnce(t *testing.T) {
	e := NewExtractor(nil)
	e.Logger = nopLogger{}
	header := []string{"STORIA"}
	short := []records.Record{records.FromMap(2, header, map[string]string{"STORIA": "ok"})}
	long := []records.Record{records.FromMap(2, header, map[string]string{"STORIA": "Una lunga descrizione del prodotto in vendita"})}

	e.Prime("acme", short, nil)
	e.Prime("acme", long, nil)
	require.Nil(t, e.Extract(long[0], "acme", nil))
}

func TestScore(t *testing.T) {
	require.True(t, IsDescriptive([]string{"Costume da pirata con cappello e benda", "Vestito da fata con ali glitter"}))
	require.False(t, IsDescriptive([]string{"1", "2", "3"}))
	require.False(t, IsDescriptive([]string{"nan", ""}))

	st, ok := Stats([]string{"ab", "ab"})
	require.True(t, ok)
	require.Equal(t, 0.5, st.Uniqueness)
	require.Equal(t, 2.0, st.Score())
}

func TestValuableAndCategorize(t *testing.T) {
	require.False(t, Valuable("x"))
	require.False(t, Valuable("NaN"))
	require.False(t, Valuable("12,5"))
	require.True(t, Valuable("XL"))

	require.Equal(t, "colors", Categorize("Colore"))
	require.Equal(t, "dimensions", Categorize("Misure cm"))
	require.Equal(t, "brand", Categorize("MARCA"))
	require.Equal(t, Other, Categorize("STORIA"))
}
