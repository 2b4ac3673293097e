package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstrumentLine struct {
	LineNumber  int
	Ticker      string
	Quantity    decimal.Decimal
	TotalAmount decimal.Decimal
	Currency    Currency
}

type Position struct {
	Ticker               string
	Quantity             decimal.Decimal
	TotalAmount          decimal.Decimal
	WeightedAveragePrice decimal.Decimal
	Currency             Currency
	SourceLines          []int
}

type NormalizedPosition struct {
	Position
	PriceUSD     decimal.Decimal
	ExchangeRate decimal.Decimal
}

type PriceLine struct {
	LineNumber int
	Symbol     string
	Price      decimal.Decimal
	Valuation  decimal.Decimal
}

type PriceQuote struct {
	Symbol      string
	Price       decimal.Decimal
	Valuation   decimal.Decimal
	Currency    Currency
	Occurrences int
	SourceLines []int
}

type NormalizedQuote struct {
	PriceQuote
	PriceUSD     decimal.Decimal
	ExchangeRate decimal.Decimal
}

type ImportRequest struct {
	CsvText      string          `json:"csvText"`
	ClientID     int64           `json:"cliente_id"`
	FundID       int64           `json:"fondo_id"`
	ExchangeRate decimal.Decimal `json:"tipo_cambio"`
	PurchaseDate string          `json:"fecha_compra"`
}

type PriceImportRequest struct {
	CsvText      string          `json:"csvText"`
	ExchangeRate decimal.Decimal `json:"tipo_cambio"`
	Date         string          `json:"fecha"`
}

type ImportStats struct {
	TotalLines      int `json:"lineas_totales"`
	ValidLines      int `json:"lineas_validas"`
	SkippedCash     int `json:"liquidez_omitida"`
	ErrorLines      int `json:"lineas_con_error"`
	Instruments     int `json:"especies"`
	NewInstruments  int `json:"especies_nuevas"`
	MovementsStored int `json:"movimientos"`
	PricesStored    int `json:"precios"`
}

type ImportDetail struct {
	Ticker               string          `json:"ticker"`
	Quantity             decimal.Decimal `json:"cantidad"`
	TotalAmount          decimal.Decimal `json:"monto_total"`
	WeightedAveragePrice decimal.Decimal `json:"precio_promedio"`
	PriceUSD             decimal.Decimal `json:"precio_usd"`
	Currency             Currency        `json:"moneda"`
	SourceLines          []int           `json:"lineas"`
}

type ImportLineError struct {
	Line   int    `json:"linea"`
	Ticker string `json:"ticker,omitempty"`
	Reason string `json:"error"`
}

type ImportSummary struct {
	ImportID int64             `json:"importacion_id,omitempty"`
	FundID   int64             `json:"fondo_id,omitempty"`
	Stats    ImportStats       `json:"estadisticas"`
	Details  []ImportDetail    `json:"detalles"`
	Errors   []ImportLineError `json:"errores"`
}

type ImportRun struct {
	ClientID     int64
	FundID       int64
	ExchangeRate decimal.Decimal
	PurchaseDate time.Time
	TotalLines   int
	ValidLines   int
}

type PreviewRequest struct {
	CsvText      string          `json:"csvText"`
	ExchangeRate decimal.Decimal `json:"tipo_cambio"`
	PurchaseDate string          `json:"fecha_compra"`
}
