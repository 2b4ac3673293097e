package model

import (
	"strings"
	"sync"
)

type Currency string

const (
	CurrencyARS Currency = "ARS"
	CurrencyUSD Currency = "USD"
)

// ForeignSuffix marks a foreign-denominated listing of an instrument
// (AAPLD is the USD line of AAPL). It is part of the ticker and never stripped.
const ForeignSuffix = "D"

// usdAliases are currency column values that mean USD.
var usdAliases = map[string]struct{}{
	"USD":     {},
	"U$S":     {},
	"US$":     {},
	"U$D":     {},
	"DOLAR":   {},
	"DOLARES": {},
	"MEP":     {},
	"CCL":     {},
	"CABLE":   {},
}

// domesticTickers are local listings whose symbol happens to end in the
// foreign suffix.
var (
	domesticMu      sync.RWMutex
	domesticTickers = map[string]struct{}{"YPFD": {}}
)

// AddDomesticTickers marks tickers ending in the foreign suffix as local
// listings, so they are classified by their currency column only.
func AddDomesticTickers(tickers ...string) {
	domesticMu.Lock()
	defer domesticMu.Unlock()
	for _, t := range tickers {
		t = strings.ToUpper(strings.TrimSpace(t))
		if t != "" {
			domesticTickers[t] = struct{}{}
		}
	}
}

func isDomesticTicker(ticker string) bool {
	domesticMu.RLock()
	defer domesticMu.RUnlock()
	_, ok := domesticTickers[ticker]
	return ok
}

func HasForeignSuffix(ticker string) bool {
	return len(ticker) > len(ForeignSuffix) && strings.HasSuffix(ticker, ForeignSuffix) && !isDomesticTicker(ticker)
}

func IsUSDAlias(value string) bool {
	_, ok := usdAliases[strings.ToUpper(strings.TrimSpace(value))]
	return ok
}

// ClassifyCurrency returns USD when the ticker carries the foreign suffix or the
// currency column names a USD equivalent, ARS otherwise.
func ClassifyCurrency(ticker, currencyField string) Currency {
	if HasForeignSuffix(ticker) || IsUSDAlias(currencyField) {
		return CurrencyUSD
	}
	return CurrencyARS
}
