package model

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassifyCurrency(t *testing.T) {
	tests := []struct {
		name     string
		ticker   string
		currency string
		want     Currency
	}{
		{name: "foreign suffix", ticker: "AAPLD", want: CurrencyUSD},
		{name: "plain ticker", ticker: "AAPL", currency: "ARS", want: CurrencyARS},
		{name: "usd alias", ticker: "AL30", currency: "u$s", want: CurrencyUSD},
		{name: "suffix alone is not a ticker", ticker: "D", want: CurrencyARS},
		{name: "local listing ending in suffix", ticker: "YPFD", currency: "ARS", want: CurrencyARS},
		{name: "local listing quoted in usd", ticker: "YPFD", currency: "USD", want: CurrencyUSD},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, ClassifyCurrency(tt.ticker, tt.currency))
		})
	}
}

func TestAddDomesticTickers(t *testing.T) {
	require.True(t, HasForeignSuffix("TXARD"))

	AddDomesticTickers(" txard ", "")
	require.False(t, HasForeignSuffix("TXARD"))
	require.Equal(t, CurrencyARS, ClassifyCurrency("TXARD", ""))
	require.True(t, HasForeignSuffix("GGALD"))
}
