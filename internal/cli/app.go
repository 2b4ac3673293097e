// Package cli holds the admin subcommands run by backofficectl against the
// same database as the HTTP service.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/KotFed0t/fondos_backoffice/config"
	"github.com/KotFed0t/fondos_backoffice/data"
	"github.com/KotFed0t/fondos_backoffice/data/repository/postgres"
	"github.com/KotFed0t/fondos_backoffice/internal/csvImport"
	"github.com/KotFed0t/fondos_backoffice/internal/ledger"
	"github.com/KotFed0t/fondos_backoffice/internal/model"
	"github.com/KotFed0t/fondos_backoffice/internal/reportGenerator/xslsxGenerator"
	"github.com/KotFed0t/fondos_backoffice/internal/service/importService"
	"github.com/KotFed0t/fondos_backoffice/internal/service/performanceService"
	"github.com/google/subcommands"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type ImportService interface {
	ImportHoldings(ctx context.Context, req model.ImportRequest) (model.ImportSummary, error)
	ImportPrices(ctx context.Context, req model.PriceImportRequest) (model.ImportSummary, error)
}

type PerformanceService interface {
	GenerateSnapshot(ctx context.Context, fundID int64, periodStart, periodEnd time.Time) (model.FundSnapshot, error)
	GenerateAll(ctx context.Context, periodStart, periodEnd time.Time) (int, error)
	Snapshots(ctx context.Context, fundID int64) ([]model.FundSnapshot, error)
	Report(ctx context.Context, clientID int64) ([]byte, string, error)
}

type FundReader interface {
	GetFund(ctx context.Context, fundID int64) (model.Fund, error)
}

// App carries the services a command runs against. Commands built by
// Register open the database on first use.
type App struct {
	Imports     ImportService
	Performance PerformanceService
	Funds       FundReader

	connect func() error
	closeDB func() error
}

func NewApp() *App {
	a := &App{}
	a.connect = func() error {
		cfg := config.MustLoad()
		model.AddDomesticTickers(cfg.Import.DomesticTickers...)
		db := data.NewPostgresClient(cfg)
		a.bind(cfg, db)
		return nil
	}
	return a
}

func (a *App) bind(cfg *config.Config, db *sqlx.DB) {
	repo := postgres.NewPostgres(cfg, db)
	a.Imports = importService.New(repo, ledger.NewMemoryStore(), nil)
	a.Performance = performanceService.New(repo, xslsxGenerator.New(), nil)
	a.Funds = repo
	a.closeDB = db.Close
}

func (a *App) open() error {
	if a.Imports != nil {
		return nil
	}
	return a.connect()
}

func (a *App) Close() error {
	if a.closeDB == nil {
		return nil
	}
	return a.closeDB()
}

func Register(c *subcommands.Commander, app *App) {
	c.Register(&importHoldingsCmd{app: app}, "imports")
	c.Register(&importPricesCmd{app: app}, "imports")
	c.Register(&snapshotsCmd{app: app}, "performance")
	c.Register(&reportCmd{app: app}, "performance")
}

// readStatement returns the statement as text. Spreadsheets are flattened the
// same way the HTTP upload does.
func readStatement(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return csvImport.TextFromXLSX(raw)
	}
	return string(raw), nil
}

func parseRate(raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, fmt.Errorf("-rate is required")
	}
	return decimal.NewFromString(raw)
}

func failf(format string, args ...any) subcommands.ExitStatus {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	return subcommands.ExitFailure
}
