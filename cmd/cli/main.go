package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophauth/internal/buildinfo"
	"github.com/dmitrijs2005/gophauth/internal/client/cli"
	"github.com/dmitrijs2005/gophauth/internal/client/config"
	"github.com/dmitrijs2005/gophauth/internal/flagx"
)

func main() {
	args := flagx.Positional(os.Args[1:], append(config.Flags, "-c", "-config"))
	if len(args) == 0 {
		buildinfo.PrintBuildData(os.Stdout)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("%v", err)
	}

	app, err := cli.NewApp(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer app.Close()

	if err := app.Run(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", cli.DescribeError(err))
		app.Close()
		os.Exit(1)
	}
}
