package csvImport

import (
	"testing"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/stretchr/testify/require"
)

func Test_Parse_holdings(t *testing.T) {
	t.Run("headerless lines use the magnitude heuristic", func(t *testing.T) {
		out, err := Parse("AAPL;858880;44;ARS\nAAPL;100;1;ARS", SchemaAuto)
		require.NoError(t, err)

		require.Equal(t, SchemaHoldings, out.Schema)
		require.Equal(t, ';', out.Delimiter)
		require.False(t, out.HasHeader)
		require.True(t, out.Inferred)
		require.Empty(t, out.Errors)
		require.Len(t, out.Holdings, 2)

		require.Equal(t, "AAPL", out.Holdings[0].Ticker)
		require.Equal(t, 1, out.Holdings[0].LineNumber)
		requireDecimal(t, "44", out.Holdings[0].Quantity)
		requireDecimal(t, "858880", out.Holdings[0].TotalAmount)
		require.Equal(t, model.CurrencyARS, out.Holdings[0].Currency)

		require.Equal(t, 2, out.Holdings[1].LineNumber)
		requireDecimal(t, "1", out.Holdings[1].Quantity)
		requireDecimal(t, "100", out.Holdings[1].TotalAmount)
	})

	t.Run("cash line is counted and skipped", func(t *testing.T) {
		out, err := Parse("ARS;1000;1;ARS", SchemaHoldings)
		require.NoError(t, err)
		require.Empty(t, out.Holdings)
		require.Empty(t, out.Errors)
		require.Equal(t, Stats{TotalLines: 1, SkippedCash: 1}, out.Stats)
	})

	t.Run("bad lines are collected and the rest is imported", func(t *testing.T) {
		text := "Instrumento;Monto total;Cantidad;Moneda\n" +
			"ggal;1.500,50;10;ARS\n" +
			"AAPLD;200;2;USD\n" +
			"BAD;abc;1;ARS\n" +
			"ZERO;100;0;ARS\n" +
			"SHORT;100\n" +
			"USD;5000;1;USD\n"

		out, err := ParseHoldings(text)
		require.NoError(t, err)
		require.True(t, out.HasHeader)
		require.False(t, out.Inferred)

		require.Len(t, out.Holdings, 2)
		require.Equal(t, "GGAL", out.Holdings[0].Ticker)
		requireDecimal(t, "1500.5", out.Holdings[0].TotalAmount)
		requireDecimal(t, "10", out.Holdings[0].Quantity)
		require.Equal(t, model.CurrencyARS, out.Holdings[0].Currency)
		require.Equal(t, "AAPLD", out.Holdings[1].Ticker)
		require.Equal(t, model.CurrencyUSD, out.Holdings[1].Currency)

		require.Equal(t, Stats{TotalLines: 6, ValidLines: 2, SkippedCash: 1, ErrorLines: 3}, out.Stats)
		require.Len(t, out.Errors, 3)
		require.Equal(t, 4, out.Errors[0].Line)
		require.Equal(t, "BAD", out.Errors[0].Ticker)
		require.Contains(t, out.Errors[0].Reason, "invalid amount")
		require.Equal(t, 5, out.Errors[1].Line)
		require.Equal(t, "ZERO", out.Errors[1].Ticker)
		require.Equal(t, 6, out.Errors[2].Line)
		require.Contains(t, out.Errors[2].Reason, "columns")
	})

	t.Run("comma delimiter with quoted decimals", func(t *testing.T) {
		out, err := ParseHoldings("Instrumento,Monto total,Cantidad,Moneda\nAL30,\"1234,5\",10,ARS\n")
		require.NoError(t, err)
		require.Equal(t, ',', out.Delimiter)
		require.Len(t, out.Holdings, 1)
		requireDecimal(t, "1234.5", out.Holdings[0].TotalAmount)
	})

	t.Run("header without amount and quantity names", func(t *testing.T) {
		out, err := ParseHoldings("Especie;Valor 1;Valor 2\nGGAL;10;25000\n")
		require.NoError(t, err)
		require.True(t, out.HasHeader)
		require.True(t, out.Inferred)
		require.Len(t, out.Holdings, 1)
		requireDecimal(t, "10", out.Holdings[0].Quantity)
		requireDecimal(t, "25000", out.Holdings[0].TotalAmount)
	})

	t.Run("malformed first headerless line is a row error", func(t *testing.T) {
		out, err := Parse("AAPL;abc;44;ARS\nMSFT;100;1;USD\nGGAL;5000;10;ARS", SchemaHoldings)
		require.NoError(t, err)
		require.False(t, out.HasHeader)
		require.Len(t, out.Holdings, 2)
		require.Equal(t, "MSFT", out.Holdings[0].Ticker)
		require.Equal(t, "GGAL", out.Holdings[1].Ticker)

		require.Len(t, out.Errors, 1)
		require.Equal(t, 1, out.Errors[0].Line)
		require.Equal(t, "AAPL", out.Errors[0].Ticker)
		require.Equal(t, Stats{TotalLines: 3, ValidLines: 2, ErrorLines: 1}, out.Stats)
	})

	t.Run("rows wider than the header are rejected", func(t *testing.T) {
		text := "Instrumento;Monto total;Cantidad;Moneda\n" +
			"AAPL;100;1;ARS;extra;more\n" +
			"GGAL;200;2;ARS;;\n"

		out, err := ParseHoldings(text)
		require.NoError(t, err)
		require.Len(t, out.Holdings, 1)
		require.Equal(t, "GGAL", out.Holdings[0].Ticker)
		require.Len(t, out.Errors, 1)
		require.Equal(t, 2, out.Errors[0].Line)
		require.Contains(t, out.Errors[0].Reason, "at most 4 columns")
	})

	t.Run("usd alias in currency column", func(t *testing.T) {
		out, err := ParseHoldings("Instrumento;Monto total;Cantidad;Moneda\nAL30;100;1;U$S\n")
		require.NoError(t, err)
		require.Equal(t, model.CurrencyUSD, out.Holdings[0].Currency)
	})
}

func Test_Parse_prices(t *testing.T) {
	text := "Símbolo;Precio Último;Valorización\n" +
		"GGAL;1500,5;15005\n" +
		"GGAL;1600;16000\n" +
		"AAPLD;10;\n" +
		"NOPE;x;1\n"

	out, err := Parse(text, SchemaAuto)
	require.NoError(t, err)
	require.Equal(t, SchemaPrices, out.Schema)
	require.Len(t, out.Prices, 3)
	requireDecimal(t, "1500.5", out.Prices[0].Price)
	requireDecimal(t, "15005", out.Prices[0].Valuation)
	require.True(t, out.Prices[2].Valuation.IsZero())
	require.Len(t, out.Errors, 1)
	require.Equal(t, 5, out.Errors[0].Line)
	require.Equal(t, Stats{TotalLines: 4, ValidLines: 3, ErrorLines: 1}, out.Stats)
}

func Test_Parse_rejects(t *testing.T) {
	t.Run("unknown header lists expected columns", func(t *testing.T) {
		_, err := Parse("foo;bar\n1;2\n", SchemaAuto)
		var formatErr *UnrecognizedFormatError
		require.ErrorAs(t, err, &formatErr)
		require.Contains(t, err.Error(), "Instrumento;Monto total;Cantidad;Moneda")
		require.Contains(t, err.Error(), "Símbolo;Precio Último;Valorización")
	})

	t.Run("declared schema must match", func(t *testing.T) {
		_, err := Parse("Instrumento;Monto total;Cantidad;Moneda\nGGAL;1;1;ARS\n", SchemaPrices)
		var formatErr *UnrecognizedFormatError
		require.ErrorAs(t, err, &formatErr)
		require.Equal(t, SchemaPrices, formatErr.Schema)
	})

	t.Run("text-only first line is not taken as data", func(t *testing.T) {
		_, err := Parse("Nombre;Apellido;Ciudad\nGGAL;100;1\n", SchemaHoldings)
		var formatErr *UnrecognizedFormatError
		require.ErrorAs(t, err, &formatErr)
	})

	t.Run("empty input", func(t *testing.T) {
		_, err := Parse(" \n\n", SchemaAuto)
		require.ErrorIs(t, err, ErrEmptyInput)
	})
}
