package importService

import (
	"context"
	"sync"
	"testing"

	"github.com/KotFed0t/fondos_backoffice/data/repository"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	mu         sync.Mutex
	funds      map[int64]model.Fund
	types      map[string]model.InstrumentType
	nextTypeID int64
	imports    []model.ImportRun
	movements  []model.Movement
	prices     []model.PriceRecord
	failImport map[int64]error
	txCount    int
}

func newFakeRepo(funds ...model.Fund) *fakeRepo {
	r := &fakeRepo{
		funds:      map[int64]model.Fund{},
		types:      map[string]model.InstrumentType{},
		nextTypeID: 100,
		failImport: map[int64]error{},
	}
	for _, f := range funds {
		r.funds[f.FundID] = f
	}
	return r
}

func (r *fakeRepo) WithinTransaction(ctx context.Context, tFunc func(ctx context.Context) error) error {
	r.mu.Lock()
	r.txCount++
	r.mu.Unlock()
	return tFunc(ctx)
}

func (r *fakeRepo) GetFund(_ context.Context, fundID int64) (model.Fund, error) {
	f, ok := r.funds[fundID]
	if !ok {
		return model.Fund{}, repository.ErrNotFound
	}
	return f, nil
}

func (r *fakeRepo) FindInstrumentTypesByTickers(_ context.Context, tickers []string) ([]model.InstrumentType, error) {
	var out []model.InstrumentType
	for _, t := range tickers {
		if it, ok := r.types[t]; ok {
			out = append(out, it)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertInstrumentTypes(_ context.Context, newTypes []model.InstrumentType) ([]model.InstrumentType, error) {
	out := make([]model.InstrumentType, 0, len(newTypes))
	for _, t := range newTypes {
		if _, ok := r.types[t.Ticker]; ok {
			return nil, repository.ErrAlreadyExists
		}
		r.nextTypeID++
		t.InstrumentTypeID = r.nextTypeID
		r.types[t.Ticker] = t
		out = append(out, t)
	}
	return out, nil
}

func (r *fakeRepo) InsertImport(_ context.Context, run model.ImportRun) (int64, error) {
	if err := r.failImport[run.FundID]; err != nil {
		return 0, err
	}
	r.imports = append(r.imports, run)
	return int64(len(r.imports)), nil
}

func (r *fakeRepo) InsertMovements(_ context.Context, movements []model.Movement) error {
	r.movements = append(r.movements, movements...)
	return nil
}

func (r *fakeRepo) UpsertPrices(_ context.Context, prices []model.PriceRecord) error {
	r.prices = append(r.prices, prices...)
	return nil
}

func (r *fakeRepo) movementsOf(fundID int64) []model.Movement {
	var out []model.Movement
	for _, m := range r.movements {
		if m.FundID == fundID {
			out = append(out, m)
		}
	}
	return out
}

type fakeNotifier struct {
	messages []string
}

func (n *fakeNotifier) Notify(_ context.Context, text string) error {
	n.messages = append(n.messages, text)
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(expected).Equal(actual), "expected %s, got %s", expected, actual)
}
