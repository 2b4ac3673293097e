package cli

import (
	"context"
	"flag"
	"os"

	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/renderer"
	"github.com/google/subcommands"
)

type importHoldingsCmd struct {
	app    *App
	file   string
	client int64
	fund   int64
	rate   string
	date   string
}

func (*importHoldingsCmd) Name() string     { return "import-holdings" }
func (*importHoldingsCmd) Synopsis() string { return "import a consolidated holdings statement into a fund" }
func (*importHoldingsCmd) Usage() string {
	return `backofficectl import-holdings -file <path> -client <id> -fund <id> -rate <ars per usd> -date <yyyy-mm-dd>

  Stores the aggregated positions of a csv or xlsx holdings statement.
`
}

func (c *importHoldingsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "holdings statement (.csv or .xlsx)")
	f.Int64Var(&c.client, "client", 0, "client id")
	f.Int64Var(&c.fund, "fund", 0, "fund id")
	f.StringVar(&c.rate, "rate", "", "exchange rate in ARS per USD")
	f.StringVar(&c.date, "date", "", "purchase date")
}

func (c *importHoldingsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	text, err := readStatement(c.file)
	if err != nil {
		return failf("%v", err)
	}
	rate, err := parseRate(c.rate)
	if err != nil {
		return failf("%v", err)
	}
	if err := c.app.open(); err != nil {
		return failf("%v", err)
	}

	summary, err := c.app.Imports.ImportHoldings(ctx, model.ImportRequest{
		CsvText:      text,
		ClientID:     c.client,
		FundID:       c.fund,
		ExchangeRate: rate,
		PurchaseDate: c.date,
	})
	if err != nil {
		return failf("%v", err)
	}

	if err := renderer.Render(os.Stdout, renderer.ImportSummary("Tenencia importada", summary)); err != nil {
		return failf("%v", err)
	}
	return subcommands.ExitSuccess
}

type importPricesCmd struct {
	app  *App
	file string
	rate string
	date string
}

func (*importPricesCmd) Name() string     { return "import-prices" }
func (*importPricesCmd) Synopsis() string { return "import a closing prices file" }
func (*importPricesCmd) Usage() string {
	return `backofficectl import-prices -file <path> -rate <ars per usd> -date <yyyy-mm-dd>

  Upserts one price per symbol for the given date.
`
}

func (c *importPricesCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.file, "file", "", "prices file (.csv or .xlsx)")
	f.StringVar(&c.rate, "rate", "", "exchange rate in ARS per USD")
	f.StringVar(&c.date, "date", "", "price date")
}

func (c *importPricesCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	text, err := readStatement(c.file)
	if err != nil {
		return failf("%v", err)
	}
	rate, err := parseRate(c.rate)
	if err != nil {
		return failf("%v", err)
	}
	if err := c.app.open(); err != nil {
		return failf("%v", err)
	}

	summary, err := c.app.Imports.ImportPrices(ctx, model.PriceImportRequest{CsvText: text, ExchangeRate: rate, Date: c.date})
	if err != nil {
		return failf("%v", err)
	}

	if err := renderer.Render(os.Stdout, renderer.ImportSummary("Precios importados", summary)); err != nil {
		return failf("%v", err)
	}
	return subcommands.ExitSuccess
}
