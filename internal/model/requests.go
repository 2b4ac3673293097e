package model

import "github.com/shopspring/decimal"

type NewClientRequest struct {
	Name  string `json:"nombre"`
	Email string `json:"email"`
}

type NewFundRequest struct {
	ClientID int64  `json:"cliente_id"`
	Name     string `json:"nombre"`
	Strategy string `json:"estrategia"`
}

type LiquidityMovementRequest struct {
	ClientID int64           `json:"cliente_id"`
	FundID   *int64          `json:"fondo_id"`
	Kind     FlowKind        `json:"tipo"`
	Origin   FlowOrigin      `json:"origen"`
	Amount   decimal.Decimal `json:"monto"`
	Currency Currency        `json:"moneda"`
	Date     string          `json:"fecha"`
}

type CashAssignmentRequest struct {
	FundID    int64           `json:"fondo_id"`
	AmountUSD decimal.Decimal `json:"monto_usd"`
	Date      string          `json:"fecha"`
}

type SnapshotRequest struct {
	PeriodStart string `json:"desde"`
	PeriodEnd   string `json:"hasta"`
}
