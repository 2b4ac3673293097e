package dbModel

import "github.com/shopspring/decimal"

type InstrumentType struct {
	InstrumentTypeID int64  `db:"instrument_type_id"`
	Ticker           string `db:"ticker"`
	Currency         string `db:"currency"`
}

type Holding struct {
	InstrumentTypeID int64           `db:"instrument_type_id"`
	Ticker           string          `db:"ticker"`
	Currency         string          `db:"currency"`
	Quantity         decimal.Decimal `db:"quantity"`
	PriceUSD         decimal.Decimal `db:"price_usd"`
}
