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

const sessionID = "sess-1"

func previewed(t *testing.T, repo *fakeRepo) (*ImportService, *ledger.MemoryStore, *fakeNotifier) {
	t.Helper()
	svc, store, notifier := newService(repo)

	res, err := svc.Preview(context.Background(), sessionID, model.PreviewRequest{
		CsvText:      holdingsCSV,
		ExchangeRate: dec("1000"),
		PurchaseDate: "2024-03-15",
	})
	require.NoError(t, err)
	require.Len(t, res.Ledger.Instruments, 2)
	require.Empty(t, res.Ledger.Allocations)
	require.Equal(t, 1, res.Stats.SkippedCash)
	require.Len(t, res.Errors, 1)

	return svc, store, notifier
}

func TestPreview_LoadsLedger(t *testing.T) {
	svc, store, _ := previewed(t, newFakeRepo())

	_, ok := store.Raw(ledger.SessionKey + ":" + sessionID)
	require.True(t, ok)

	v, err := svc.Ledger(context.Background(), sessionID)
	require.NoError(t, err)
	require.Equal(t, "GGAL", v.Instruments[0].ID)
	requireDecimal(t, "20", v.Instruments[0].Available)
	requireDecimal(t, "1500", v.Instruments[0].WeightedAveragePrice)
	require.Equal(t, "2024-03-15", v.Instruments[0].PurchaseDate)
}

func TestLedgerOperations(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1}, model.Fund{FundID: 2, ClientID: 1})
	svc, _, _ := previewed(t, repo)

	v, err := svc.Allocate(ctx, sessionID, "GGAL", 1, dec("5"))
	require.NoError(t, err)
	requireDecimal(t, "15", v.Instruments[0].Available)

	_, err = svc.Allocate(ctx, sessionID, "GGAL", 2, dec("16"))
	var exceeds *ledger.ExceedsAvailableError
	require.True(t, errors.As(err, &exceeds))
	requireDecimal(t, "15", exceeds.Available)

	v, err = svc.AllocateAll(ctx, sessionID, "GGAL", 2)
	require.NoError(t, err)
	requireDecimal(t, "0", v.Instruments[0].Available)
	require.Len(t, v.Allocations, 2)

	v, err = svc.Deallocate(ctx, sessionID, "GGAL", 1)
	require.NoError(t, err)
	requireDecimal(t, "5", v.Instruments[0].Available)

	_, err = svc.Allocate(ctx, sessionID, "GGAL", 99, dec("1"))
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.Allocate(ctx, sessionID, "MSFT", 1, dec("1"))
	require.ErrorIs(t, err, ledger.ErrUnknownInstrument)

	require.NoError(t, svc.ResetLedger(ctx, sessionID))
	v, err = svc.Ledger(ctx, sessionID)
	require.NoError(t, err)
	require.Empty(t, v.Instruments)
}

func TestBuildFundBatches(t *testing.T) {
	ctx := context.Background()
	l := ledger.New(ledger.NewMemoryStore(), sessionID)
	require.NoError(t, l.Load(ctx, []ledger.Instrument{
		{ID: "GGAL", Ticker: "GGAL", Quantity: dec("20"), TotalAmount: dec("30000"), WeightedAveragePrice: dec("1500"), Currency: model.CurrencyARS, ExchangeRate: dec("1000"), PurchaseDate: "2024-03-15"},
		{ID: "AAPLD", Ticker: "AAPLD", Quantity: dec("2"), TotalAmount: dec("500"), WeightedAveragePrice: dec("250"), Currency: model.CurrencyUSD, ExchangeRate: dec("1000"), PurchaseDate: "2024-03-15"},
	}))
	require.NoError(t, l.Allocate(ctx, "GGAL", 2, dec("15")))
	require.NoError(t, l.Allocate(ctx, "GGAL", 1, dec("5")))
	_, err := l.AllocateAll(ctx, "AAPLD", 2)
	require.NoError(t, err)

	batches, err := BuildFundBatches(l, 1)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	require.Equal(t, int64(1), batches[0].FundID)
	require.Equal(t, "Instrumento;Monto total;Cantidad;Moneda\nGGAL;7500;5;ARS\n", batches[0].Request.CsvText)
	require.Equal(t, "2024-03-15", batches[0].Request.PurchaseDate)
	requireDecimal(t, "1000", batches[0].Request.ExchangeRate)

	require.Equal(t, int64(2), batches[1].FundID)
	require.Equal(t, "Instrumento;Monto total;Cantidad;Moneda\nAAPLD;500;2;USD\nGGAL;22500;15;ARS\n", batches[1].Request.CsvText)
	require.Equal(t, int64(1), batches[1].Request.ClientID)
}

func TestCommit_AllFunds(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1}, model.Fund{FundID: 2, ClientID: 1})
	svc, store, notifier := previewed(t, repo)

	_, err := svc.Allocate(ctx, sessionID, "GGAL", 2, dec("15"))
	require.NoError(t, err)
	_, err = svc.AllocateAll(ctx, sessionID, "GGAL", 1)
	require.NoError(t, err)
	_, err = svc.AllocateAll(ctx, sessionID, "AAPLD", 2)
	require.NoError(t, err)

	result, err := svc.Commit(ctx, sessionID, 1)
	require.NoError(t, err)
	require.Nil(t, result.Failed)
	require.Len(t, result.Completed, 2)
	require.Equal(t, int64(1), result.Completed[0].FundID)
	require.Equal(t, int64(2), result.Completed[1].FundID)

	fund1 := repo.movementsOf(1)
	require.Len(t, fund1, 1)
	requireDecimal(t, "5", fund1[0].Quantity)
	requireDecimal(t, "1500", fund1[0].Price)

	fund2 := repo.movementsOf(2)
	require.Len(t, fund2, 2)

	_, ok := store.Raw(ledger.SessionKey + ":" + sessionID)
	require.False(t, ok)
	require.Len(t, notifier.messages, 1)
}

func TestCommit_StopsAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(
		model.Fund{FundID: 1, ClientID: 1},
		model.Fund{FundID: 2, ClientID: 1},
		model.Fund{FundID: 3, ClientID: 1},
	)
	repo.failImport[2] = errors.New("connection reset")
	svc, store, notifier := previewed(t, repo)

	for fundID, qty := range map[int64]string{1: "5", 2: "5", 3: "5"} {
		_, err := svc.Allocate(ctx, sessionID, "GGAL", fundID, dec(qty))
		require.NoError(t, err)
	}

	result, err := svc.Commit(ctx, sessionID, 1)
	var partial *PartialCommitError
	require.True(t, errors.As(err, &partial))
	require.Equal(t, 1, partial.Completed)
	require.Equal(t, 1, partial.Failed)
	require.Equal(t, 1, partial.Pending)
	require.Equal(t, int64(2), partial.FundID)

	require.Len(t, result.Completed, 1)
	require.Equal(t, int64(1), result.Completed[0].FundID)
	require.Equal(t, int64(2), result.Failed.FundID)
	require.Equal(t, []int64{3}, result.Pending)

	require.Len(t, repo.movementsOf(1), 1)
	require.Empty(t, repo.movementsOf(3))

	_, ok := store.Raw(ledger.SessionKey + ":" + sessionID)
	require.True(t, ok)
	require.Len(t, notifier.messages, 1)

	v, err := svc.Ledger(ctx, sessionID)
	require.NoError(t, err)
	require.Len(t, v.Allocations, 2)
	for _, a := range v.Allocations {
		require.NotEqual(t, int64(1), a.FundID)
	}

	delete(repo.failImport, 2)
	result, err = svc.Commit(ctx, sessionID, 1)
	require.NoError(t, err)
	require.Len(t, result.Completed, 2)
	require.Equal(t, int64(2), result.Completed[0].FundID)
	require.Equal(t, int64(3), result.Completed[1].FundID)

	require.Len(t, repo.movementsOf(1), 1)
	require.Len(t, repo.movementsOf(2), 1)
	require.Len(t, repo.movementsOf(3), 1)

	_, ok = store.Raw(ledger.SessionKey + ":" + sessionID)
	require.False(t, ok)
}

func TestCommit_Rejections(t *testing.T) {
	svc, _, _ := newService(newFakeRepo())

	_, err := svc.Commit(context.Background(), sessionID, 1)
	require.ErrorIs(t, err, service.ErrEmptyLedger)

	_, err = svc.Commit(context.Background(), sessionID, 0)
	requireValidation("cliente_id")(t, err)
}
