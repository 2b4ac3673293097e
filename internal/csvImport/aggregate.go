package csvImport

import (
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
)

// Aggregate folds holdings lines by ticker. The average price is always
// recomputed from the summed amount and quantity. Lines without a positive
// quantity are returned as errors.
func Aggregate(lines []model.InstrumentLine) ([]model.Position, []model.ImportLineError) {
	byTicker := make(map[string]*model.Position, len(lines))
	order := make([]string, 0, len(lines))
	var rejected []model.ImportLineError

	for _, line := range lines {
		if !line.Quantity.IsPositive() {
			rejected = append(rejected, model.ImportLineError{Line: line.LineNumber, Ticker: line.Ticker, Reason: "quantity must be greater than zero"})
			continue
		}

		pos, ok := byTicker[line.Ticker]
		if !ok {
			pos = &model.Position{Ticker: line.Ticker, Currency: line.Currency}
			byTicker[line.Ticker] = pos
			order = append(order, line.Ticker)
		}

		pos.Quantity = pos.Quantity.Add(line.Quantity)
		pos.TotalAmount = pos.TotalAmount.Add(line.TotalAmount)
		pos.WeightedAveragePrice = pos.TotalAmount.Div(pos.Quantity)
		pos.SourceLines = append(pos.SourceLines, line.LineNumber)
	}

	positions := make([]model.Position, 0, len(order))
	for _, ticker := range order {
		positions = append(positions, *byTicker[ticker])
	}

	return positions, rejected
}

var two = decimal.NewFromInt(2)

// DedupPrices merges repeated symbols of a prices file. Unlike Aggregate,
// repeats are averaged pairwise in file order without any weighting.
func DedupPrices(lines []model.PriceLine) []model.PriceQuote {
	bySymbol := make(map[string]*model.PriceQuote, len(lines))
	order := make([]string, 0, len(lines))

	for _, line := range lines {
		quote, ok := bySymbol[line.Symbol]
		if !ok {
			bySymbol[line.Symbol] = &model.PriceQuote{
				Symbol:      line.Symbol,
				Price:       line.Price,
				Valuation:   line.Valuation,
				Currency:    model.ClassifyCurrency(line.Symbol, ""),
				Occurrences: 1,
				SourceLines: []int{line.LineNumber},
			}
			order = append(order, line.Symbol)
			continue
		}

		quote.Price = quote.Price.Add(line.Price).Div(two)
		quote.Valuation = quote.Valuation.Add(line.Valuation).Div(two)
		quote.Occurrences++
		quote.SourceLines = append(quote.SourceLines, line.LineNumber)
	}

	quotes := make([]model.PriceQuote, 0, len(order))
	for _, symbol := range order {
		quotes = append(quotes, *bySymbol[symbol])
	}

	return quotes
}
