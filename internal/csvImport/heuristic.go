package csvImport

import (
	"errors"

	"github.com/shopspring/decimal"
)

// Bounds for a unit price to be considered plausible when guessing which
// numeric column holds the amount and which the quantity.
var (
	MinPlausibleUnitPrice = decimal.RequireFromString("0.01")
	MaxPlausibleUnitPrice = decimal.NewFromInt(1_000_000)
)

type ColumnOrder int

const (
	AmountThenQuantity ColumnOrder = iota
	QuantityThenAmount
)

func (o ColumnOrder) String() string {
	if o == QuantityThenAmount {
		return "quantity-then-amount"
	}
	return "amount-then-quantity"
}

type Confidence int

const (
	// ConfidenceLow means both assignments gave a plausible unit price and the
	// default order was used.
	ConfidenceLow Confidence = iota
	ConfidenceHigh
)

type Inference struct {
	Quantity   decimal.Decimal
	Amount     decimal.Decimal
	Order      ColumnOrder
	Confidence Confidence
}

var (
	ErrNotEnoughValues  = errors.New("at least two numeric values are required")
	ErrImplausiblePrice = errors.New("no column assignment yields a plausible unit price")
)

// InferColumns decides which of the first two values is the amount and which
// the quantity by checking the unit price implied by each assignment.
func InferColumns(values []decimal.Decimal) (Inference, error) {
	if len(values) < 2 {
		return Inference{}, ErrNotEnoughValues
	}
	first, second := values[0], values[1]

	amountFirst := plausibleUnitPrice(first, second)
	quantityFirst := plausibleUnitPrice(second, first)

	switch {
	case amountFirst && !quantityFirst:
		return Inference{Amount: first, Quantity: second, Order: AmountThenQuantity, Confidence: ConfidenceHigh}, nil
	case quantityFirst && !amountFirst:
		return Inference{Amount: second, Quantity: first, Order: QuantityThenAmount, Confidence: ConfidenceHigh}, nil
	case amountFirst && quantityFirst:
		return Inference{Amount: first, Quantity: second, Order: AmountThenQuantity, Confidence: ConfidenceLow}, nil
	default:
		return Inference{}, ErrImplausiblePrice
	}
}

func plausibleUnitPrice(amount, quantity decimal.Decimal) bool {
	if !quantity.IsPositive() || amount.IsNegative() {
		return false
	}
	unitPrice := amount.Div(quantity)
	return unitPrice.GreaterThanOrEqual(MinPlausibleUnitPrice) && unitPrice.LessThanOrEqual(MaxPlausibleUnitPrice)
}
