package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/calcforge/calcforge/internal/api"
	"github.com/calcforge/calcforge/internal/ctxlog"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API server",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "addr",
				Value:   ":8080",
				Usage:   "Listen address",
				EnvVars: []string{"CALCFORGE_ADDR"},
			},
		},
		Action: runServe,
	}
}

func runServe(c *cli.Context) error {
	a, err := buildApp(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, a.Logger())

	cfg := api.DefaultConfig()
	cfg.Addr = c.String("addr")

	srv := api.NewServer(a, a.Schemas(), a.Configurators(), cfg)
	if err := srv.Serve(ctx); err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	return nil
}
