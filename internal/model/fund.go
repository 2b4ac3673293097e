package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	ClientID int64     `json:"id"`
	Name     string    `json:"nombre"`
	Email    string    `json:"email,omitempty"`
	DtCreate time.Time `json:"creado"`
}

type Fund struct {
	FundID   int64     `json:"id"`
	ClientID int64     `json:"cliente_id"`
	Name     string    `json:"nombre"`
	Strategy string    `json:"estrategia,omitempty"`
	DtCreate time.Time `json:"creado"`
}

type InstrumentType struct {
	InstrumentTypeID int64    `json:"id"`
	Ticker           string   `json:"ticker"`
	Currency         Currency `json:"moneda"`
}

type Movement struct {
	ImportID         int64
	FundID           int64
	InstrumentTypeID int64
	Quantity         decimal.Decimal
	Price            decimal.Decimal
	PriceUSD         decimal.Decimal
	Currency         Currency
	ExchangeRate     decimal.Decimal
	Date             time.Time
}

type PriceRecord struct {
	InstrumentTypeID int64
	Date             time.Time
	Price            decimal.Decimal
	PriceUSD         decimal.Decimal
	Valuation        decimal.Decimal
	ExchangeRate     decimal.Decimal
}

type Holding struct {
	InstrumentTypeID int64           `json:"especie_id"`
	Ticker           string          `json:"ticker"`
	Currency         Currency        `json:"moneda"`
	Quantity         decimal.Decimal `json:"cantidad"`
	PriceUSD         decimal.Decimal `json:"precio_usd"`
}

func (h Holding) ValueUSD() decimal.Decimal {
	return h.Quantity.Mul(h.PriceUSD)
}

type FlowKind string

const (
	FlowDeposit    FlowKind = "deposit"
	FlowWithdrawal FlowKind = "withdrawal"
	FlowTransfer   FlowKind = "transfer"
)

type FlowOrigin string

const (
	OriginManual    FlowOrigin = "manual"
	OriginAutomatic FlowOrigin = "automatic"
)

type LiquidityMovement struct {
	LiquidityMovementID int64           `json:"id"`
	ClientID            int64           `json:"cliente_id"`
	FundID              *int64          `json:"fondo_id,omitempty"`
	Kind                FlowKind        `json:"tipo"`
	Origin              FlowOrigin      `json:"origen"`
	Amount              decimal.Decimal `json:"monto"`
	Currency            Currency        `json:"moneda"`
	Date                time.Time       `json:"fecha"`
}

type FundSnapshot struct {
	SnapshotID        int64           `json:"id"`
	FundID            int64           `json:"fondo_id"`
	Date              time.Time       `json:"fecha"`
	SecuritiesValue   decimal.Decimal `json:"valor_titulos"`
	CashAssigned      decimal.Decimal `json:"liquidez_asignada"`
	PeriodDeposits    decimal.Decimal `json:"depositos_periodo"`
	PeriodWithdrawals decimal.Decimal `json:"retiros_periodo"`
	PeriodReturn      decimal.Decimal `json:"rendimiento_periodo"`
	CumulativeReturn  decimal.Decimal `json:"rendimiento_acumulado"`
	NoHistory         bool            `json:"sin_historial"`
}

func (s FundSnapshot) TotalValue() decimal.Decimal {
	return s.SecuritiesValue.Add(s.CashAssigned)
}

type FundReport struct {
	Fund      Fund
	Holdings  []Holding
	Snapshots []FundSnapshot
}
