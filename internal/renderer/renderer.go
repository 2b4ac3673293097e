// Package renderer turns import summaries and fund snapshots into markdown for
// the admin command line.
package renderer

import (
	"fmt"
	"io"
	"strings"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Money formats an amount with the currency's symbol and minor units. Unknown
// currencies fall back to the plain decimal.
func Money(amount decimal.Decimal, currency model.Currency) string {
	cur := money.GetCurrency(string(currency))
	if cur == nil {
		return amount.StringFixed(2) + " " + string(currency)
	}

	factor := decimal.New(1, int32(cur.Fraction))
	return money.New(amount.Mul(factor).Round(0).IntPart(), cur.Code).Display()
}

func Percent(ratio decimal.Decimal) string {
	return ratio.Mul(decimal.NewFromInt(100)).StringFixed(2) + "%"
}

// ImportSummary lists the stored positions followed by the rejected lines.
func ImportSummary(title string, summary model.ImportSummary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", title)
	if summary.ImportID != 0 {
		fmt.Fprintf(&b, "Importación %d, fondo %d.\n\n", summary.ImportID, summary.FundID)
	}

	st := summary.Stats
	fmt.Fprintf(&b, "- Líneas: %d (%d válidas, %d con error)\n", st.TotalLines, st.ValidLines, st.ErrorLines)
	fmt.Fprintf(&b, "- Liquidez omitida: %d\n", st.SkippedCash)
	fmt.Fprintf(&b, "- Especies: %d (%d nuevas)\n", st.Instruments, st.NewInstruments)
	fmt.Fprintf(&b, "- Movimientos: %d, precios: %d\n\n", st.MovementsStored, st.PricesStored)

	if len(summary.Details) > 0 {
		b.WriteString("| Ticker | Cantidad | Monto total | Precio promedio | Precio USD |\n")
		b.WriteString("|---|---:|---:|---:|---:|\n")
		for _, d := range summary.Details {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				d.Ticker,
				d.Quantity.String(),
				Money(d.TotalAmount, d.Currency),
				Money(d.WeightedAveragePrice, d.Currency),
				Money(d.PriceUSD, model.CurrencyUSD),
			)
		}
		b.WriteString("\n")
	}

	if len(summary.Errors) > 0 {
		b.WriteString("## Errores\n\n")
		for _, e := range summary.Errors {
			if e.Ticker != "" {
				fmt.Fprintf(&b, "- línea %d (%s): %s\n", e.Line, e.Ticker, e.Reason)
			} else {
				fmt.Fprintf(&b, "- línea %d: %s\n", e.Line, e.Reason)
			}
		}
	}

	return b.String()
}

func Snapshots(fund model.Fund, snapshots []model.FundSnapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", fund.Name)
	if len(snapshots) == 0 {
		b.WriteString("Sin snapshots.\n")
		return b.String()
	}

	b.WriteString("| Fecha | Títulos | Liquidez | Depósitos | Retiros | Rend. período | Rend. acumulado |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|---:|\n")
	for _, s := range snapshots {
		period, cumulative := Percent(s.PeriodReturn), Percent(s.CumulativeReturn)
		if s.NoHistory {
			period, cumulative = "sin historial", "sin historial"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s | %s |\n",
			s.Date.Format(dateLayout),
			Money(s.SecuritiesValue, model.CurrencyUSD),
			Money(s.CashAssigned, model.CurrencyUSD),
			Money(s.PeriodDeposits, model.CurrencyUSD),
			Money(s.PeriodWithdrawals, model.CurrencyUSD),
			period,
			cumulative,
		)
	}
	return b.String()
}

// Render writes md styled for the terminal.
func Render(w io.Writer, md string) error {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}
