package csvImport

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var errNotANumber = errors.New("not a number")

// parseNumber accepts both "1.234,56" and "1234.56" style decimals.
func parseNumber(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "US$")
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return decimal.Decimal{}, errNotANumber
	}

	lastDot := strings.LastIndex(s, ".")
	lastComma := strings.LastIndex(s, ",")
	switch {
	case lastDot >= 0 && lastComma >= 0 && lastComma > lastDot:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case lastDot >= 0 && lastComma >= 0:
		s = strings.ReplaceAll(s, ",", "")
	default:
		s = strings.ReplaceAll(s, ",", ".")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errNotANumber
	}
	return d, nil
}

func isNumeric(raw string) bool {
	_, err := parseNumber(raw)
	return err == nil
}
