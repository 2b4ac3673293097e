package csvImport

import (
	"errors"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
)

var ErrInvalidExchangeRate = errors.New("exchange rate must be greater than zero")

// Normalize derives a USD price for every position using rate (ARS per USD).
// USD positions keep their own price.
func Normalize(positions []model.Position, rate decimal.Decimal) ([]model.NormalizedPosition, error) {
	if !rate.IsPositive() {
		return nil, ErrInvalidExchangeRate
	}

	out := make([]model.NormalizedPosition, 0, len(positions))
	for _, pos := range positions {
		out = append(out, model.NormalizedPosition{
			Position:     pos,
			PriceUSD:     toUSD(pos.WeightedAveragePrice, pos.Currency, rate),
			ExchangeRate: rate,
		})
	}
	return out, nil
}

func NormalizeQuotes(quotes []model.PriceQuote, rate decimal.Decimal) ([]model.NormalizedQuote, error) {
	if !rate.IsPositive() {
		return nil, ErrInvalidExchangeRate
	}

	out := make([]model.NormalizedQuote, 0, len(quotes))
	for _, q := range quotes {
		out = append(out, model.NormalizedQuote{
			PriceQuote:   q,
			PriceUSD:     toUSD(q.Price, q.Currency, rate),
			ExchangeRate: rate,
		})
	}
	return out, nil
}

func toUSD(price decimal.Decimal, currency model.Currency, rate decimal.Decimal) decimal.Decimal {
	if currency == model.CurrencyUSD {
		return price
	}
	return price.Div(rate)
}
