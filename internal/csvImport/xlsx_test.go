package csvImport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func Test_TextFromXLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()

	rows := [][]any{
		{"Instrumento", "Monto total", "Cantidad", "Moneda"},
		{"GGAL", "15000", "10", "ARS"},
		{"AAPLD", "200", "2", "USD"},
	}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)

	text, err := TextFromXLSX(buf.Bytes())
	require.NoError(t, err)

	out, err := ParseHoldings(text)
	require.NoError(t, err)
	require.Len(t, out.Holdings, 2)
	require.Equal(t, "AAPLD", out.Holdings[1].Ticker)
	requireDecimal(t, "200", out.Holdings[1].TotalAmount)
}
