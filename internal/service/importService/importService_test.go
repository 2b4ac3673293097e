package importService

import (
	"context"
	"errors"
	"testing"

	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/stretchr/testify/require"
)

const holdingsCSV = `Instrumento;Monto total;Cantidad;Moneda
GGAL;10000;10;ARS
GGAL;20000;10;ARS
AAPLD;500;2;USD
PESOS;1000;1;ARS
YPFD;abc;3;ARS
`

func newService(repo *fakeRepo) (*ImportService, *ledger.MemoryStore, *fakeNotifier) {
	store := ledger.NewMemoryStore()
	notifier := &fakeNotifier{}
	return New(repo, store, notifier), store, notifier
}

func TestImportHoldings(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(model.Fund{FundID: 7, ClientID: 1})
	svc, _, _ := newService(repo)

	summary, err := svc.ImportHoldings(ctx, model.ImportRequest{
		CsvText:      holdingsCSV,
		ClientID:     1,
		FundID:       7,
		ExchangeRate: dec("1000"),
		PurchaseDate: "2024-03-15",
	})
	require.NoError(t, err)

	require.Equal(t, int64(1), summary.ImportID)
	require.Equal(t, 5, summary.Stats.TotalLines)
	require.Equal(t, 1, summary.Stats.SkippedCash)
	require.Equal(t, 3, summary.Stats.ValidLines)
	require.Equal(t, 1, summary.Stats.ErrorLines)
	require.Equal(t, 2, summary.Stats.Instruments)
	require.Equal(t, 2, summary.Stats.NewInstruments)
	require.Equal(t, 2, summary.Stats.MovementsStored)
	require.Equal(t, 2, summary.Stats.PricesStored)

	require.Len(t, summary.Errors, 1)
	require.Equal(t, "YPFD", summary.Errors[0].Ticker)

	require.Len(t, summary.Details, 2)
	ggal := summary.Details[0]
	require.Equal(t, "GGAL", ggal.Ticker)
	requireDecimal(t, "20", ggal.Quantity)
	requireDecimal(t, "1500", ggal.WeightedAveragePrice)
	requireDecimal(t, "1.5", ggal.PriceUSD)
	require.Equal(t, []int{2, 3}, ggal.SourceLines)

	aapl := summary.Details[1]
	require.Equal(t, model.CurrencyUSD, aapl.Currency)
	requireDecimal(t, "250", aapl.PriceUSD)

	require.Len(t, repo.movementsOf(7), 2)
	require.Equal(t, model.CurrencyARS, repo.types["GGAL"].Currency)
	require.Equal(t, model.CurrencyUSD, repo.types["AAPLD"].Currency)
	require.Equal(t, "2024-03-15", repo.imports[0].PurchaseDate.Format(DateLayout))
}

func TestImportHoldings_ReusesInstrumentTypes(t *testing.T) {
	repo := newFakeRepo(model.Fund{FundID: 7, ClientID: 1})
	repo.types["GGAL"] = model.InstrumentType{InstrumentTypeID: 5, Ticker: "GGAL", Currency: model.CurrencyARS}
	svc, _, _ := newService(repo)

	summary, err := svc.ImportHoldings(context.Background(), model.ImportRequest{
		CsvText:      holdingsCSV,
		ClientID:     1,
		FundID:       7,
		ExchangeRate: dec("1000"),
		PurchaseDate: "2024-03-15",
	})
	require.NoError(t, err)
	require.Equal(t, 1, summary.Stats.NewInstruments)

	var ggalMovement model.Movement
	for _, m := range repo.movements {
		if m.InstrumentTypeID == 5 {
			ggalMovement = m
		}
	}
	requireDecimal(t, "20", ggalMovement.Quantity)
}

func TestImportHoldings_Rejections(t *testing.T) {
	valid := model.ImportRequest{
		CsvText:      holdingsCSV,
		ClientID:     1,
		FundID:       7,
		ExchangeRate: dec("1000"),
		PurchaseDate: "2024-03-15",
	}

	tests := []struct {
		name   string
		mutate func(r *model.ImportRequest)
		check  func(t *testing.T, err error)
	}{
		{
			name:   "empty csv",
			mutate: func(r *model.ImportRequest) { r.CsvText = "  " },
			check:  requireValidation("csvText"),
		},
		{
			name:   "zero rate",
			mutate: func(r *model.ImportRequest) { r.ExchangeRate = dec("0") },
			check:  requireValidation("tipo_cambio"),
		},
		{
			name:   "bad date",
			mutate: func(r *model.ImportRequest) { r.PurchaseDate = "15/03/2024" },
			check:  requireValidation("fecha_compra"),
		},
		{
			name:   "missing client",
			mutate: func(r *model.ImportRequest) { r.ClientID = 0 },
			check:  requireValidation("cliente_id"),
		},
		{
			name:   "fund of another client",
			mutate: func(r *model.ImportRequest) { r.ClientID = 2 },
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, service.ErrFundClientMismatch)
			},
		},
		{
			name:   "unknown fund",
			mutate: func(r *model.ImportRequest) { r.FundID = 99 },
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, service.ErrNotFound)
			},
		},
		{
			name:   "unknown format",
			mutate: func(r *model.ImportRequest) { r.CsvText = "a;b\nc;d\n" },
			check:  requireValidation("csvText"),
		},
		{
			name:   "only cash",
			mutate: func(r *model.ImportRequest) { r.CsvText = "Instrumento;Monto total;Cantidad\nPESOS;100;1\n" },
			check: func(t *testing.T, err error) {
				require.ErrorIs(t, err, service.ErrNoValidRows)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepo(model.Fund{FundID: 7, ClientID: 1})
			svc, _, _ := newService(repo)

			req := valid
			tt.mutate(&req)
			_, err := svc.ImportHoldings(context.Background(), req)
			require.Error(t, err)
			tt.check(t, err)

			require.Zero(t, repo.txCount)
			require.Empty(t, repo.imports)
		})
	}
}

func requireValidation(field string) func(t *testing.T, err error) {
	return func(t *testing.T, err error) {
		t.Helper()
		var vErr *service.ValidationError
		require.True(t, errors.As(err, &vErr), "expected validation error, got %v", err)
		require.Equal(t, field, vErr.Field)
	}
}

func TestImportPrices(t *testing.T) {
	repo := newFakeRepo()
	repo.types["GGAL"] = model.InstrumentType{InstrumentTypeID: 5, Ticker: "GGAL", Currency: model.CurrencyARS}
	svc, _, _ := newService(repo)

	csv := "Símbolo;Precio Último;Valorización\nGGAL;1000;5000\nGGAL;2000;7000\nAL30D;60;600\n"
	summary, err := svc.ImportPrices(context.Background(), model.PriceImportRequest{
		CsvText:      csv,
		ExchangeRate: dec("1000"),
		Date:         "2024-03-31",
	})
	require.NoError(t, err)

	require.Equal(t, 2, summary.Stats.Instruments)
	require.Equal(t, 1, summary.Stats.NewInstruments)
	require.Equal(t, 2, summary.Stats.PricesStored)
	require.Len(t, repo.prices, 2)

	ggal := repo.prices[0]
	require.Equal(t, int64(5), ggal.InstrumentTypeID)
	requireDecimal(t, "1500", ggal.Price)
	requireDecimal(t, "6000", ggal.Valuation)
	requireDecimal(t, "1.5", ggal.PriceUSD)
	requireDecimal(t, "1000", ggal.ExchangeRate)
	require.Equal(t, "2024-03-31", ggal.Date.Format(DateLayout))

	al30d := repo.prices[1]
	requireDecimal(t, "60", al30d.PriceUSD)
	require.Equal(t, model.CurrencyUSD, repo.types["AL30D"].Currency)
}

func TestImportPrices_Validation(t *testing.T) {
	svc, _, _ := newService(newFakeRepo())

	_, err := svc.ImportPrices(context.Background(), model.PriceImportRequest{CsvText: "x", ExchangeRate: dec("1000"), Date: "31-03-2024"})
	requireValidation("fecha")(t, err)

	_, err = svc.ImportPrices(context.Background(), model.PriceImportRequest{CsvText: "x", ExchangeRate: dec("-1"), Date: "2024-03-31"})
	requireValidation("tipo_cambio")(t, err)
}
