package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/KotFed0t/fondos_backoffice/internal/cli"
	"github.com/KotFed0t/fondos_backoffice/utils"
	"github.com/google/subcommands"
)

func main() {
	utils.SetupLogger(os.Stderr, "warning", false)

	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(commander.CommandsCommand(), "")

	app := cli.NewApp()
	cli.Register(commander, app)

	flag.Parse()
	status := commander.Execute(utils.CtxWithRqID(context.Background(), ""))
	_ = app.Close()
	os.Exit(int(status))
}
