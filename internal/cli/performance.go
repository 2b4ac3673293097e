package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/KotFed0t/fondos_backoffice/internal/renderer"
	"github.com/KotFed0t/fondos_backoffice/internal/service/importService"
	"github.com/KotFed0t/fondos_backoffice/internal/service/performanceService"
	"github.com/google/subcommands"
)

type snapshotsCmd struct {
	app  *App
	from string
	to   string
	fund int64
}

func (*snapshotsCmd) Name() string     { return "snapshots" }
func (*snapshotsCmd) Synopsis() string { return "generate fund snapshots for a period" }
func (*snapshotsCmd) Usage() string {
	return `backofficectl snapshots [-from <yyyy-mm-dd> -to <yyyy-mm-dd>] [-fund <id>]

  Snapshots one fund, or every fund when -fund is omitted. Without dates the
  previous calendar month is used.
`
}

func (c *snapshotsCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.from, "from", "", "period start, exclusive")
	f.StringVar(&c.to, "to", "", "period end, snapshot date")
	f.Int64Var(&c.fund, "fund", 0, "fund id (all funds when 0)")
}

func (c *snapshotsCmd) period(now time.Time) (time.Time, time.Time, error) {
	if c.from == "" && c.to == "" {
		start, end := performanceService.PreviousMonth(now)
		return start, end, nil
	}
	start, err := time.Parse(importService.DateLayout, c.from)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from: %w", err)
	}
	end, err := time.Parse(importService.DateLayout, c.to)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -to: %w", err)
	}
	return start, end, nil
}

func (c *snapshotsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	start, end, err := c.period(time.Now())
	if err != nil {
		return failf("%v", err)
	}
	if err := c.app.open(); err != nil {
		return failf("%v", err)
	}

	if c.fund == 0 {
		created, err := c.app.Performance.GenerateAll(ctx, start, end)
		fmt.Printf("%d snapshots created for %s\n", created, end.Format(importService.DateLayout))
		if err != nil {
			return failf("%v", err)
		}
		return subcommands.ExitSuccess
	}

	if _, err := c.app.Performance.GenerateSnapshot(ctx, c.fund, start, end); err != nil {
		return failf("%v", err)
	}

	fund, err := c.app.Funds.GetFund(ctx, c.fund)
	if err != nil {
		return failf("%v", err)
	}
	snapshots, err := c.app.Performance.Snapshots(ctx, c.fund)
	if err != nil {
		return failf("%v", err)
	}
	if err := renderer.Render(os.Stdout, renderer.Snapshots(fund, snapshots)); err != nil {
		return failf("%v", err)
	}
	return subcommands.ExitSuccess
}

type reportCmd struct {
	app    *App
	client int64
	out    string
}

func (*reportCmd) Name() string     { return "report" }
func (*reportCmd) Synopsis() string { return "write the funds workbook to a file" }
func (*reportCmd) Usage() string {
	return `backofficectl report [-client <id>] [-out <path>]

  Writes one sheet per fund with holdings and snapshot history.
`
}

func (c *reportCmd) SetFlags(f *flag.FlagSet) {
	f.Int64Var(&c.client, "client", 0, "client id (all clients when 0)")
	f.StringVar(&c.out, "out", "", "output file (defaults to reporte_fondos_<date>.xlsx)")
}

func (c *reportCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if err := c.app.open(); err != nil {
		return failf("%v", err)
	}

	fileBytes, ext, err := c.app.Performance.Report(ctx, c.client)
	if err != nil {
		return failf("%v", err)
	}

	out := c.out
	if out == "" {
		out = "reporte_fondos_" + time.Now().Format("20060102") + ext
	}
	if err := os.WriteFile(out, fileBytes, 0o644); err != nil {
		return failf("%v", err)
	}
	fmt.Println(out)
	return subcommands.ExitSuccess
}
