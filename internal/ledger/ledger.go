package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
)

// SessionKey prefixes the persisted state of every import session.
const SessionKey = "importacion_asignaciones"

var (
	ErrStateNotFound     = errors.New("ledger state not found")
	ErrUnknownInstrument = errors.New("unknown instrument")
	ErrInvalidQuantity   = errors.New("quantity must be greater than zero")
	ErrNothingAvailable  = errors.New("nothing left to allocate")
)

type ExceedsAvailableError struct {
	InstrumentID string
	FundID       int64
	Requested    decimal.Decimal
	Available    decimal.Decimal
}

func (e *ExceedsAvailableError) Error() string {
	return fmt.Sprintf("cannot allocate %s of %s to fund %d: only %s available", e.Requested, e.InstrumentID, e.FundID, e.Available)
}

type Instrument struct {
	ID                   string          `json:"id"`
	Ticker               string          `json:"ticker"`
	Quantity             decimal.Decimal `json:"cantidad"`
	TotalAmount          decimal.Decimal `json:"monto_total"`
	WeightedAveragePrice decimal.Decimal `json:"precio_promedio"`
	PriceUSD             decimal.Decimal `json:"precio_usd"`
	Currency             model.Currency  `json:"moneda"`
	ExchangeRate         decimal.Decimal `json:"tipo_cambio"`
	PurchaseDate         string          `json:"fecha_compra"`
}

type Allocation struct {
	InstrumentID string          `json:"especie_id"`
	FundID       int64           `json:"fondo_id"`
	Quantity     decimal.Decimal `json:"cantidad"`
	Date         string          `json:"fecha"`
	ExchangeRate decimal.Decimal `json:"tipo_cambio"`
}

// State is the persisted form of a ledger.
type State struct {
	Instruments []Instrument `json:"especies"`
	Allocations []Allocation `json:"asignaciones"`
	Timestamp   int64        `json:"timestamp"`
}

type Store interface {
	Load(ctx context.Context, key string) (State, error)
	Save(ctx context.Context, key string, state State) error
	Delete(ctx context.Context, key string) error
}

type allocationKey struct {
	instrumentID string
	fundID       int64
}

// Ledger tracks how much of each imported instrument is assigned to which
// fund. It is not safe for concurrent use; one ledger serves one session.
type Ledger struct {
	store       Store
	key         string
	instruments map[string]Instrument
	order       []string
	allocations map[allocationKey]Allocation
	now         func() time.Time
}

func New(store Store, sessionID string) *Ledger {
	return &Ledger{
		store:       store,
		key:         SessionKey + ":" + sessionID,
		instruments: map[string]Instrument{},
		allocations: map[allocationKey]Allocation{},
		now:         time.Now,
	}
}

// Restore loads the persisted state. A missing state leaves the ledger empty.
func (l *Ledger) Restore(ctx context.Context) error {
	state, err := l.store.Load(ctx, l.key)
	if errors.Is(err, ErrStateNotFound) {
		l.apply(State{})
		return nil
	}
	if err != nil {
		return err
	}
	l.apply(state)
	return nil
}

// Load replaces the imported instruments and drops every allocation.
func (l *Ledger) Load(ctx context.Context, instruments []Instrument) error {
	l.apply(State{Instruments: instruments})
	return l.save(ctx)
}

func (l *Ledger) Instruments() []Instrument {
	out := make([]Instrument, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, l.instruments[id])
	}
	return out
}

func (l *Ledger) Instrument(id string) (Instrument, bool) {
	inst, ok := l.instruments[id]
	return inst, ok
}

// Allocations returns every allocation ordered by fund, then instrument.
func (l *Ledger) Allocations() []Allocation {
	out := make([]Allocation, 0, len(l.allocations))
	for _, a := range l.allocations {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FundID != out[j].FundID {
			return out[i].FundID < out[j].FundID
		}
		return out[i].InstrumentID < out[j].InstrumentID
	})
	return out
}

func (l *Ledger) IsEmpty() bool {
	return len(l.allocations) == 0
}

// Available is the instrument total minus everything allocated to any fund.
func (l *Ledger) Available(instrumentID string) (decimal.Decimal, error) {
	inst, ok := l.instruments[instrumentID]
	if !ok {
		return decimal.Decimal{}, ErrUnknownInstrument
	}

	allocated := decimal.Zero
	for key, a := range l.allocations {
		if key.instrumentID == instrumentID {
			allocated = allocated.Add(a.Quantity)
		}
	}
	return inst.Quantity.Sub(allocated), nil
}

// Allocate sets the quantity of an instrument assigned to a fund, replacing
// any previous allocation for that pair.
func (l *Ledger) Allocate(ctx context.Context, instrumentID string, fundID int64, quantity decimal.Decimal) error {
	if !quantity.IsPositive() {
		return ErrInvalidQuantity
	}

	limit, err := l.limitFor(instrumentID, fundID)
	if err != nil {
		return err
	}
	if quantity.GreaterThan(limit) {
		return &ExceedsAvailableError{InstrumentID: instrumentID, FundID: fundID, Requested: quantity, Available: limit}
	}

	return l.put(ctx, instrumentID, fundID, quantity)
}

// AllocateAll assigns to the fund everything not held by other funds.
func (l *Ledger) AllocateAll(ctx context.Context, instrumentID string, fundID int64) (decimal.Decimal, error) {
	limit, err := l.limitFor(instrumentID, fundID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if !limit.IsPositive() {
		return decimal.Decimal{}, ErrNothingAvailable
	}

	if err := l.put(ctx, instrumentID, fundID, limit); err != nil {
		return decimal.Decimal{}, err
	}
	return limit, nil
}

func (l *Ledger) Deallocate(ctx context.Context, instrumentID string, fundID int64) error {
	key := allocationKey{instrumentID: instrumentID, fundID: fundID}
	prev, ok := l.allocations[key]
	if !ok {
		return nil
	}

	delete(l.allocations, key)
	if err := l.save(ctx); err != nil {
		l.allocations[key] = prev
		return err
	}
	return nil
}

// ReleaseFund drops every allocation held by the fund in one save.
func (l *Ledger) ReleaseFund(ctx context.Context, fundID int64) error {
	released := map[allocationKey]Allocation{}
	for key, a := range l.allocations {
		if key.fundID == fundID {
			released[key] = a
			delete(l.allocations, key)
		}
	}
	if len(released) == 0 {
		return nil
	}

	if err := l.save(ctx); err != nil {
		for key, a := range released {
			l.allocations[key] = a
		}
		return err
	}
	return nil
}

// Reset forgets instruments and allocations, in the store and then in memory.
func (l *Ledger) Reset(ctx context.Context) error {
	if err := l.store.Delete(ctx, l.key); err != nil {
		return err
	}
	l.apply(State{})
	return nil
}

func (l *Ledger) State() State {
	return State{
		Instruments: l.Instruments(),
		Allocations: l.Allocations(),
		Timestamp:   l.now().UnixMilli(),
	}
}

// limitFor is what is still free plus what the fund already holds.
func (l *Ledger) limitFor(instrumentID string, fundID int64) (decimal.Decimal, error) {
	available, err := l.Available(instrumentID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if current, ok := l.allocations[allocationKey{instrumentID: instrumentID, fundID: fundID}]; ok {
		available = available.Add(current.Quantity)
	}
	return available, nil
}

func (l *Ledger) put(ctx context.Context, instrumentID string, fundID int64, quantity decimal.Decimal) error {
	inst := l.instruments[instrumentID]
	key := allocationKey{instrumentID: instrumentID, fundID: fundID}
	prev, hadPrev := l.allocations[key]

	l.allocations[key] = Allocation{
		InstrumentID: instrumentID,
		FundID:       fundID,
		Quantity:     quantity,
		Date:         inst.PurchaseDate,
		ExchangeRate: inst.ExchangeRate,
	}

	if err := l.save(ctx); err != nil {
		if hadPrev {
			l.allocations[key] = prev
		} else {
			delete(l.allocations, key)
		}
		return err
	}
	return nil
}

func (l *Ledger) apply(state State) {
	l.instruments = make(map[string]Instrument, len(state.Instruments))
	l.order = l.order[:0]
	for _, inst := range state.Instruments {
		if _, dup := l.instruments[inst.ID]; !dup {
			l.order = append(l.order, inst.ID)
		}
		l.instruments[inst.ID] = inst
	}

	l.allocations = make(map[allocationKey]Allocation, len(state.Allocations))
	for _, a := range state.Allocations {
		if _, ok := l.instruments[a.InstrumentID]; !ok {
			continue
		}
		l.allocations[allocationKey{instrumentID: a.InstrumentID, fundID: a.FundID}] = a
	}
}

func (l *Ledger) save(ctx context.Context) error {
	return l.store.Save(ctx, l.key, l.State())
}
