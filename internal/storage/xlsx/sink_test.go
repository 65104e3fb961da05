package xlsx

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"catalog/internal/storage"
)

func TestSink_Write(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.xlsx")
	s, err := storage.New(context.Background(), storage.Config{Kind: "xlsx", Path: path})
	require.NoError(t, err)
	defer s.Close()

	tbl := storage.Table{
		Columns: []string{"sku", "size"},
		Rows:    [][]string{{"P1", "M"}, {"0012", "XL"}},
	}
	require.NoError(t, s.Write(context.Background(), tbl))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("catalog")
	require.NoError(t, err)
	require.Equal(t, [][]string{{"sku", "size"}, {"P1", "M"}, {"0012", "XL"}}, rows)
}
