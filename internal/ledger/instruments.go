package ledger

import "github.com/KotFed0t/fondos_backoffice/internal/model"

// InstrumentsFromPositions turns aggregated import positions into ledger
// instruments. The ticker is the instrument id.
func InstrumentsFromPositions(positions []model.NormalizedPosition, purchaseDate string) []Instrument {
	out := make([]Instrument, 0, len(positions))
	for _, p := range positions {
		out = append(out, Instrument{
			ID:                   p.Ticker,
			Ticker:               p.Ticker,
			Quantity:             p.Quantity,
			TotalAmount:          p.TotalAmount,
			WeightedAveragePrice: p.WeightedAveragePrice,
			PriceUSD:             p.PriceUSD,
			Currency:             p.Currency,
			ExchangeRate:         p.ExchangeRate,
			PurchaseDate:         purchaseDate,
		})
	}
	return out
}
