package performanceService

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type purchase struct {
	date    time.Time
	holding model.Holding
}

type fakeRepo struct {
	funds     map[int64]model.Fund
	snapshots map[int64][]model.FundSnapshot
	holdings  map[int64][]model.Holding
	purchases map[int64][]purchase
	cash      map[int64]decimal.Decimal
	movements map[int64][]model.LiquidityMovement
	insertErr error
}

func newFakeRepo(funds ...model.Fund) *fakeRepo {
	r := &fakeRepo{
		funds:     map[int64]model.Fund{},
		snapshots: map[int64][]model.FundSnapshot{},
		holdings:  map[int64][]model.Holding{},
		purchases: map[int64][]purchase{},
		cash:      map[int64]decimal.Decimal{},
		movements: map[int64][]model.LiquidityMovement{},
	}
	for _, f := range funds {
		r.funds[f.FundID] = f
	}
	return r
}

func (r *fakeRepo) GetFund(_ context.Context, fundID int64) (model.Fund, error) {
	f, ok := r.funds[fundID]
	if !ok {
		return model.Fund{}, repository.ErrNotFound
	}
	return f, nil
}

func (r *fakeRepo) GetFunds(context.Context) ([]model.Fund, error) {
	var out []model.Fund
	for id := int64(1); id <= int64(len(r.funds)); id++ {
		out = append(out, r.funds[id])
	}
	return out, nil
}

func (r *fakeRepo) GetClientFunds(_ context.Context, clientID int64) ([]model.Fund, error) {
	var out []model.Fund
	for id := int64(1); id <= int64(len(r.funds)); id++ {
		if r.funds[id].ClientID == clientID {
			out = append(out, r.funds[id])
		}
	}
	return out, nil
}

func (r *fakeRepo) GetLatestSnapshotOnOrBefore(_ context.Context, fundID int64, date time.Time) (model.FundSnapshot, error) {
	var best *model.FundSnapshot
	for i, s := range r.snapshots[fundID] {
		if s.Date.After(date) {
			continue
		}
		if best == nil || s.Date.After(best.Date) {
			best = &r.snapshots[fundID][i]
		}
	}
	if best == nil {
		return model.FundSnapshot{}, repository.ErrNotFound
	}
	return *best, nil
}

func (r *fakeRepo) SnapshotExists(_ context.Context, fundID int64, date time.Time) (bool, error) {
	for _, s := range r.snapshots[fundID] {
		if s.Date.Equal(date) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) InsertSnapshot(_ context.Context, s model.FundSnapshot) (int64, error) {
	if r.insertErr != nil {
		return 0, r.insertErr
	}
	r.snapshots[s.FundID] = append(r.snapshots[s.FundID], s)
	return int64(len(r.snapshots[s.FundID])), nil
}

func (r *fakeRepo) GetSnapshots(_ context.Context, fundID int64) ([]model.FundSnapshot, error) {
	return r.snapshots[fundID], nil
}

func (r *fakeRepo) GetFundHoldings(_ context.Context, fundID int64, asOf time.Time) ([]model.Holding, error) {
	out := append([]model.Holding(nil), r.holdings[fundID]...)
	for _, p := range r.purchases[fundID] {
		if !p.date.After(asOf) {
			out = append(out, p.holding)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetFundCashAssigned(_ context.Context, fundID int64, _ time.Time) (decimal.Decimal, error) {
	if c, ok := r.cash[fundID]; ok {
		return c, nil
	}
	return decimal.Zero, nil
}

func (r *fakeRepo) GetFundLiquidityMovements(_ context.Context, fundID int64, _, _ time.Time) ([]model.LiquidityMovement, error) {
	return r.movements[fundID], nil
}

type fakeGenerator struct {
	reports []model.FundReport
}

func (g *fakeGenerator) Generate(_ context.Context, reports []model.FundReport) ([]byte, string, error) {
	g.reports = reports
	return []byte("xlsx"), ".xlsx", nil
}

type fakeStorage struct {
	uploaded string
	content  []byte
	cleaned  bool
}

func (s *fakeStorage) UploadFile(_ context.Context, reader io.Reader, filename string) (string, error) {
	s.uploaded = filename
	s.content, _ = io.ReadAll(reader)
	return "https://drive.google.com/file/d/abc/view", nil
}

func (s *fakeStorage) DeleteOldFiles(context.Context) error {
	s.cleaned = true
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestGenerateSnapshot_FirstHasNoHistory(t *testing.T) {
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1})
	repo.holdings[1] = []model.Holding{{Ticker: "AAPLD", Quantity: dec("10"), PriceUSD: dec("150")}}
	repo.cash[1] = dec("500")
	svc := New(repo, &fakeGenerator{}, nil)

	s, err := svc.GenerateSnapshot(context.Background(), 1, day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	require.True(t, s.NoHistory)
	require.True(t, dec("1500").Equal(s.SecuritiesValue))
	require.True(t, dec("500").Equal(s.CashAssigned))
	require.True(t, s.PeriodReturn.IsZero())
	require.Equal(t, int64(1), s.SnapshotID)
}

func TestGenerateSnapshot_ChainsReturns(t *testing.T) {
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1})
	repo.snapshots[1] = []model.FundSnapshot{
		{FundID: 1, Date: day(2024, 1, 1), SecuritiesValue: dec("9000"), CashAssigned: dec("1000"), CumulativeReturn: dec("0.05")},
	}
	repo.holdings[1] = []model.Holding{{Ticker: "AAPLD", Quantity: dec("70"), PriceUSD: dec("150")}}
	repo.cash[1] = dec("1000")
	repo.movements[1] = []model.LiquidityMovement{
		{Kind: model.FlowDeposit, Origin: model.OriginManual, Amount: dec("1000")},
		{Kind: model.FlowTransfer, Origin: model.OriginManual, Amount: dec("300")},
	}
	svc := New(repo, &fakeGenerator{}, nil)

	s, err := svc.GenerateSnapshot(context.Background(), 1, day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	require.False(t, s.NoHistory)
	require.True(t, dec("0.05").Equal(s.PeriodReturn), s.PeriodReturn.String())
	require.True(t, dec("0.1025").Equal(s.CumulativeReturn), s.CumulativeReturn.String())
}

func TestGenerateSnapshot_IgnoresPurchasesAfterPeriodEnd(t *testing.T) {
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1})
	repo.snapshots[1] = []model.FundSnapshot{
		{FundID: 1, Date: day(2024, 1, 1), SecuritiesValue: dec("1000")},
	}
	repo.purchases[1] = []purchase{
		{date: day(2023, 12, 20), holding: model.Holding{Ticker: "AAPLD", Quantity: dec("10"), PriceUSD: dec("110")}},
		{date: day(2024, 2, 1), holding: model.Holding{Ticker: "GGAL", Quantity: dec("5"), PriceUSD: dec("2")}},
		{date: day(2024, 2, 15), holding: model.Holding{Ticker: "MSFTD", Quantity: dec("40"), PriceUSD: dec("400")}},
	}
	svc := New(repo, &fakeGenerator{}, nil)

	s, err := svc.GenerateSnapshot(context.Background(), 1, day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	require.True(t, dec("1110").Equal(s.SecuritiesValue), s.SecuritiesValue.String())
	require.True(t, dec("0.11").Equal(s.PeriodReturn), s.PeriodReturn.String())
}

func TestGenerateSnapshot_Rejections(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1})
	repo.snapshots[1] = []model.FundSnapshot{{FundID: 1, Date: day(2024, 2, 1)}}
	svc := New(repo, &fakeGenerator{}, nil)

	_, err := svc.GenerateSnapshot(ctx, 1, day(2024, 1, 1), day(2024, 2, 1))
	require.ErrorIs(t, err, service.ErrSnapshotExists)

	_, err = svc.GenerateSnapshot(ctx, 2, day(2024, 1, 1), day(2024, 2, 1))
	require.ErrorIs(t, err, service.ErrNotFound)

	_, err = svc.GenerateSnapshot(ctx, 1, day(2024, 2, 1), day(2024, 2, 1))
	var vErr *service.ValidationError
	require.True(t, errors.As(err, &vErr))

	repo.insertErr = repository.ErrAlreadyExists
	_, err = svc.GenerateSnapshot(ctx, 1, day(2024, 2, 1), day(2024, 3, 1))
	require.ErrorIs(t, err, service.ErrSnapshotExists)
}

func TestGenerateAll(t *testing.T) {
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1}, model.Fund{FundID: 2, ClientID: 1})
	repo.snapshots[2] = []model.FundSnapshot{{FundID: 2, Date: day(2024, 2, 1)}}
	svc := New(repo, &fakeGenerator{}, nil)

	created, err := svc.GenerateAll(context.Background(), day(2024, 1, 1), day(2024, 2, 1))
	require.NoError(t, err)
	require.Equal(t, 1, created)
	require.Len(t, repo.snapshots[1], 1)
}

func TestPreviousMonth(t *testing.T) {
	start, end := PreviousMonth(time.Date(2024, 3, 1, 3, 0, 0, 0, time.UTC))
	require.Equal(t, day(2024, 2, 1), start)
	require.Equal(t, day(2024, 3, 1), end)

	start, end = PreviousMonth(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))
	require.Equal(t, day(2023, 12, 1), start)
	require.Equal(t, day(2024, 1, 1), end)
}

func TestReports(t *testing.T) {
	ctx := context.Background()
	repo := newFakeRepo(model.Fund{FundID: 1, ClientID: 1, Name: "A"}, model.Fund{FundID: 2, ClientID: 2, Name: "B"})
	gen := &fakeGenerator{}

	t.Run("storage disabled", func(t *testing.T) {
		svc := New(repo, gen, nil)
		_, err := svc.ExportReport(ctx, 0)
		require.ErrorIs(t, err, service.ErrStorageDisabled)
		require.NoError(t, svc.DeleteOldReports(ctx))

		data, ext, err := svc.Report(ctx, 2)
		require.NoError(t, err)
		require.Equal(t, ".xlsx", ext)
		require.Equal(t, []byte("xlsx"), data)
		require.Len(t, gen.reports, 1)
		require.Equal(t, "B", gen.reports[0].Fund.Name)
	})

	t.Run("upload", func(t *testing.T) {
		storage := &fakeStorage{}
		svc := New(repo, gen, storage)
		svc.now = func() time.Time { return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC) }

		link, err := svc.ExportReport(ctx, 1)
		require.NoError(t, err)
		require.Contains(t, link, "drive.google.com")
		require.Equal(t, "cliente_1_20240301_103000.xlsx", storage.uploaded)
		require.Equal(t, []byte("xlsx"), storage.content)

		require.NoError(t, svc.DeleteOldReports(ctx))
		require.True(t, storage.cleaned)
	})

	t.Run("unknown client", func(t *testing.T) {
		_, _, err := New(repo, gen, nil).Report(ctx, 9)
		require.ErrorIs(t, err, service.ErrNotFound)
	})
}
