package csvImport

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

type Schema string

const (
	SchemaAuto     Schema = ""
	SchemaHoldings Schema = "holdings"
	SchemaPrices   Schema = "prices"
)

var (
	HoldingsColumns = []string{"Instrumento", "Monto total", "Cantidad", "Moneda"}
	PricesColumns   = []string{"Símbolo", "Precio Último", "Valorización"}
)

var (
	instrumentKeywords = []string{"instrumento", "especie", "ticker", "activo"}
	amountKeywords     = []string{"monto", "importe", "total"}
	quantityKeywords   = []string{"cantidad", "nominal", "qty"}
	currencyKeywords   = []string{"moneda", "currency", "divisa"}
	symbolKeywords     = []string{"simbolo", "symbol"}
	priceKeywords      = []string{"precio", "price"}
	valuationKeywords  = []string{"valorizacion", "valuacion", "valuation"}
)

// cashMarkers are instrument codes brokers use for liquidity lines.
var cashMarkers = map[string]struct{}{
	"ARS":      {},
	"USD":      {},
	"U$S":      {},
	"US$":      {},
	"$":        {},
	"PESOS":    {},
	"DOLARES":  {},
	"CAUCION":  {},
	"LIQUIDEZ": {},
	"EFECTIVO": {},
	"CASH":     {},
}

var ErrEmptyInput = errors.New("empty csv input")

var errCashRow = errors.New("cash row")

type UnrecognizedFormatError struct {
	Schema Schema
}

func (e *UnrecognizedFormatError) Error() string {
	holdings := strings.Join(HoldingsColumns, ";")
	prices := strings.Join(PricesColumns, ";")
	switch e.Schema {
	case SchemaHoldings:
		return fmt.Sprintf("unrecognized csv format, expected columns: %s", holdings)
	case SchemaPrices:
		return fmt.Sprintf("unrecognized csv format, expected columns: %s", prices)
	default:
		return fmt.Sprintf("unrecognized csv format, expected columns: %s or %s", holdings, prices)
	}
}

type Stats struct {
	TotalLines  int
	ValidLines  int
	SkippedCash int
	ErrorLines  int
}

type Result struct {
	Schema    Schema
	Delimiter rune
	HasHeader bool
	// Inferred is set when amount and quantity columns were told apart by
	// InferColumns instead of the header.
	Inferred bool
	Holdings []model.InstrumentLine
	Prices   []model.PriceLine
	Errors   []model.ImportLineError
	Stats    Stats
}

type record struct {
	line   int
	fields []string
}

type holdingsLayout struct {
	instrument int
	amount     int
	quantity   int
	currency   int
	width      int
	inferred   bool
	hasHeader  bool
}

type pricesLayout struct {
	symbol    int
	price     int
	valuation int
	width     int
}

func ParseHoldings(text string) (Result, error) {
	return Parse(text, SchemaHoldings)
}

func ParsePrices(text string) (Result, error) {
	return Parse(text, SchemaPrices)
}

// Parse reads delimited text in the declared schema, or detects it from the
// header when schema is SchemaAuto. Malformed lines end up in Result.Errors.
func Parse(text string, schema Schema) (Result, error) {
	records, delimiter, readErrs, err := readRecords(text)
	if err != nil {
		return Result{}, err
	}

	header := records[0].fields

	if schema == SchemaAuto || schema == SchemaHoldings {
		if layout, ok := detectHoldingsLayout(records); ok {
			res := parseHoldingsRecords(records, layout)
			res.Delimiter = delimiter
			res.Errors = append(readErrs, res.Errors...)
			res.Stats.ErrorLines = len(res.Errors)
			return res, nil
		}
	}

	if schema == SchemaAuto || schema == SchemaPrices {
		if layout, ok := detectPricesLayout(header); ok {
			res := parsePricesRecords(records[1:], layout)
			res.Delimiter = delimiter
			res.Errors = append(readErrs, res.Errors...)
			res.Stats.ErrorLines = len(res.Errors)
			return res, nil
		}
	}

	return Result{}, &UnrecognizedFormatError{Schema: schema}
}

func detectDelimiter(headerLine string) rune {
	if strings.Contains(headerLine, ";") {
		return ';'
	}
	return ','
}

func readRecords(text string) ([]record, rune, []model.ImportLineError, error) {
	text = strings.TrimPrefix(text, "\ufeff")

	var headerLine string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			headerLine = l
			break
		}
	}
	if headerLine == "" {
		return nil, 0, nil, ErrEmptyInput
	}

	delimiter := detectDelimiter(headerLine)

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records []record
	var readErrs []model.ImportLineError
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				readErrs = append(readErrs, model.ImportLineError{Line: parseErr.Line, Reason: parseErr.Err.Error()})
				continue
			}
			return nil, 0, nil, err
		}
		if blankRecord(fields) {
			continue
		}
		line, _ := r.FieldPos(0)
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		records = append(records, record{line: line, fields: fields})
	}

	if len(records) == 0 {
		return nil, 0, nil, ErrEmptyInput
	}

	return records, delimiter, readErrs, nil
}

func blankRecord(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func detectHoldingsLayout(records []record) (holdingsLayout, bool) {
	header := records[0].fields
	folded := foldAll(header)
	instrument := findColumn(folded, instrumentKeywords, -1)
	amount := findColumn(folded, amountKeywords, instrument)
	quantity := findColumn(folded, quantityKeywords, instrument)
	currency := findColumn(folded, currencyKeywords, instrument)

	if instrument >= 0 && amount >= 0 && quantity >= 0 && amount != quantity {
		return holdingsLayout{
			instrument: instrument,
			amount:     amount,
			quantity:   quantity,
			currency:   currency,
			width:      usedWidth(header),
			hasHeader:  true,
		}, true
	}

	// header names the instrument but not which numeric column is which
	if instrument >= 0 && len(header) >= instrument+3 {
		return holdingsLayout{
			instrument: instrument,
			amount:     instrument + 1,
			quantity:   instrument + 2,
			currency:   currency,
			width:      usedWidth(header),
			inferred:   true,
			hasHeader:  true,
		}, true
	}

	// no header at all: the first record already is data, possibly malformed
	if len(header) >= 3 && hasNumericCell(header[1:]) {
		for _, rec := range records[:min(len(records), headerlessProbeRows)] {
			if holdingsShaped(rec.fields) {
				return holdingsLayout{instrument: 0, amount: 1, quantity: 2, currency: 3, width: 4, inferred: true}, true
			}
		}
	}

	return holdingsLayout{}, false
}

// headerlessProbeRows is how many leading records may be searched for a
// ticker;number;number line.
const headerlessProbeRows = 5

func holdingsShaped(fields []string) bool {
	return len(fields) >= 3 && fields[0] != "" && !isNumeric(fields[0]) && isNumeric(fields[1]) && isNumeric(fields[2])
}

func hasNumericCell(fields []string) bool {
	for _, f := range fields {
		if isNumeric(f) {
			return true
		}
	}
	return false
}

// usedWidth counts columns up to the last non-empty one, so trailing
// delimiters do not make a row wider.
func usedWidth(fields []string) int {
	n := len(fields)
	for n > 0 && fields[n-1] == "" {
		n--
	}
	return n
}

func checkWidth(rec record, required, width int) error {
	if len(rec.fields) < required {
		return fmt.Errorf("expected at least %d columns, got %d", required, len(rec.fields))
	}
	if got := usedWidth(rec.fields); width > 0 && got > width {
		return fmt.Errorf("expected at most %d columns, got %d", width, got)
	}
	return nil
}

func detectPricesLayout(header []string) (pricesLayout, bool) {
	folded := foldAll(header)
	symbol := findColumn(folded, symbolKeywords, -1)
	price := findColumn(folded, priceKeywords, symbol)
	valuation := findColumn(folded, valuationKeywords, symbol)
	if symbol < 0 || price < 0 {
		return pricesLayout{}, false
	}
	return pricesLayout{symbol: symbol, price: price, valuation: valuation, width: usedWidth(header)}, true
}

// findColumn returns the first column containing any keyword, skipping column skip.
func findColumn(folded []string, keywords []string, skip int) int {
	for i, cell := range folded {
		if i == skip {
			continue
		}
		for _, kw := range keywords {
			if strings.Contains(cell, kw) {
				return i
			}
		}
	}
	return -1
}

func foldAll(cells []string) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = foldHeader(c)
	}
	return out
}

// foldHeader lowercases and strips accents so "Símbolo" matches "simbolo".
func foldHeader(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

func isCashMarker(ticker string) bool {
	_, ok := cashMarkers[ticker]
	return ok
}

func parseHoldingsRecords(records []record, layout holdingsLayout) Result {
	res := Result{Schema: SchemaHoldings, HasHeader: layout.hasHeader, Inferred: layout.inferred}
	if layout.hasHeader {
		records = records[1:]
	}

	for _, rec := range records {
		res.Stats.TotalLines++
		line, err := parseHoldingsRecord(rec, layout)
		if errors.Is(err, errCashRow) {
			res.Stats.SkippedCash++
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, model.ImportLineError{Line: rec.line, Ticker: tickerOf(rec, layout.instrument), Reason: err.Error()})
			continue
		}
		res.Holdings = append(res.Holdings, line)
	}

	res.Stats.ValidLines = len(res.Holdings)
	return res
}

func parseHoldingsRecord(rec record, layout holdingsLayout) (model.InstrumentLine, error) {
	required := max(layout.instrument, layout.amount, layout.quantity) + 1
	if err := checkWidth(rec, required, layout.width); err != nil {
		return model.InstrumentLine{}, err
	}

	ticker := tickerOf(rec, layout.instrument)
	if ticker == "" {
		return model.InstrumentLine{}, errors.New("missing instrument code")
	}
	if isCashMarker(ticker) {
		return model.InstrumentLine{}, errCashRow
	}

	var quantity, amount decimal.Decimal
	if layout.inferred {
		first, err := parseNumber(rec.fields[layout.amount])
		if err != nil {
			return model.InstrumentLine{}, fmt.Errorf("invalid numeric value %q", rec.fields[layout.amount])
		}
		second, err := parseNumber(rec.fields[layout.quantity])
		if err != nil {
			return model.InstrumentLine{}, fmt.Errorf("invalid numeric value %q", rec.fields[layout.quantity])
		}
		inference, err := InferColumns([]decimal.Decimal{first, second})
		if err != nil {
			return model.InstrumentLine{}, err
		}
		amount, quantity = inference.Amount, inference.Quantity
	} else {
		var err error
		quantity, err = parseNumber(rec.fields[layout.quantity])
		if err != nil {
			return model.InstrumentLine{}, fmt.Errorf("invalid quantity %q", rec.fields[layout.quantity])
		}
		amount, err = parseNumber(rec.fields[layout.amount])
		if err != nil {
			return model.InstrumentLine{}, fmt.Errorf("invalid amount %q", rec.fields[layout.amount])
		}
	}

	if !quantity.IsPositive() {
		return model.InstrumentLine{}, errors.New("quantity must be greater than zero")
	}
	if amount.IsNegative() {
		return model.InstrumentLine{}, errors.New("amount must not be negative")
	}

	var currencyField string
	if layout.currency >= 0 && layout.currency < len(rec.fields) {
		currencyField = rec.fields[layout.currency]
	}

	return model.InstrumentLine{
		LineNumber:  rec.line,
		Ticker:      ticker,
		Quantity:    quantity,
		TotalAmount: amount,
		Currency:    model.ClassifyCurrency(ticker, currencyField),
	}, nil
}

func parsePricesRecords(records []record, layout pricesLayout) Result {
	res := Result{Schema: SchemaPrices, HasHeader: true}

	for _, rec := range records {
		res.Stats.TotalLines++
		line, err := parsePricesRecord(rec, layout)
		if errors.Is(err, errCashRow) {
			res.Stats.SkippedCash++
			continue
		}
		if err != nil {
			res.Errors = append(res.Errors, model.ImportLineError{Line: rec.line, Ticker: tickerOf(rec, layout.symbol), Reason: err.Error()})
			continue
		}
		res.Prices = append(res.Prices, line)
	}

	res.Stats.ValidLines = len(res.Prices)
	return res
}

func parsePricesRecord(rec record, layout pricesLayout) (model.PriceLine, error) {
	required := max(layout.symbol, layout.price) + 1
	if err := checkWidth(rec, required, layout.width); err != nil {
		return model.PriceLine{}, err
	}

	symbol := tickerOf(rec, layout.symbol)
	if symbol == "" {
		return model.PriceLine{}, errors.New("missing symbol")
	}
	if isCashMarker(symbol) {
		return model.PriceLine{}, errCashRow
	}

	price, err := parseNumber(rec.fields[layout.price])
	if err != nil {
		return model.PriceLine{}, fmt.Errorf("invalid price %q", rec.fields[layout.price])
	}
	if !price.IsPositive() {
		return model.PriceLine{}, errors.New("price must be greater than zero")
	}

	var valuation decimal.Decimal
	if layout.valuation >= 0 && layout.valuation < len(rec.fields) && rec.fields[layout.valuation] != "" {
		valuation, err = parseNumber(rec.fields[layout.valuation])
		if err != nil {
			return model.PriceLine{}, fmt.Errorf("invalid valuation %q", rec.fields[layout.valuation])
		}
	}

	return model.PriceLine{LineNumber: rec.line, Symbol: symbol, Price: price, Valuation: valuation}, nil
}

func tickerOf(rec record, idx int) string {
	if idx < 0 || idx >= len(rec.fields) {
		return ""
	}
	return strings.ToUpper(strings.TrimSpace(rec.fields[idx]))
}
