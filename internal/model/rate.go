package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ExchangeRate is quoted in ARS per USD.
type ExchangeRate struct {
	Date      time.Time       `json:"fecha"`
	Source    string          `json:"fuente"`
	Buy       decimal.Decimal `json:"compra"`
	Sell      decimal.Decimal `json:"venta"`
	UpdatedAt time.Time       `json:"actualizado"`
}
