package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/calcforge/calcforge/internal/app"
	"github.com/calcforge/calcforge/internal/ctxlog"
	"github.com/calcforge/calcforge/internal/input"
	"github.com/calcforge/calcforge/internal/orchestrator"
)

func estimateCommand() *cli.Command {
	return &cli.Command{
		Name:  "estimate",
		Usage: "Validate a document and build the estimate in the calculator",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the request document (JSON or YAML, normalized or scope-of-work form)",
				Required: true,
			},
			&cli.BoolFlag{
				Name:  "headless",
				Value: true,
				Usage: "Run the browser without a visible window",
			},
			&cli.BoolFlag{
				Name:  "validate-only",
				Usage: "Stop after validation; no browser is launched",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the share URL to this file",
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "table",
				Usage: "Report format (table, json)",
			},
			&cli.StringFlag{
				Name:   "base-url",
				Usage:  "Calculator entry point override",
				Hidden: true,
			},
		},
		Action: runEstimate,
	}
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:  "validate",
		Usage: "Validate a document against the service schemas without a browser",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "input",
				Aliases:  []string{"i"},
				Usage:    "Path to the request document",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "format",
				Value: "table",
				Usage: "Report format (table, json)",
			},
		},
		Action: func(c *cli.Context) error {
			return runWithOptions(c, app.RunOptions{ValidateOnly: true})
		},
	}
}

func runEstimate(c *cli.Context) error {
	return runWithOptions(c, app.RunOptions{
		Headless:     c.Bool("headless"),
		ValidateOnly: c.Bool("validate-only"),
		BaseURL:      c.String("base-url"),
	})
}

func runWithOptions(c *cli.Context, opts app.RunOptions) error {
	a, err := buildApp(c)
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = ctxlog.WithLogger(ctx, a.Logger())

	doc, err := input.LoadFile(ctx, c.String("input"))
	if err != nil {
		return cli.Exit(err.Error(), exitUsage)
	}
	if len(doc.Items) == 0 {
		return cli.Exit("document contains no service items", exitUsage)
	}

	report, runErr := a.RunEstimate(ctx, doc, opts)
	if report != nil {
		if err := renderReport(os.Stdout, report, doc.Skipped, c.String("format")); err != nil {
			return cli.Exit(err.Error(), exitUsage)
		}
		if out := c.String("output"); out != "" && report.ShareURL != "" {
			if err := os.WriteFile(out, []byte(report.ShareURL+"\n"), 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("writing share URL: %v", err), exitUsage)
			}
		}
	}

	if runErr != nil {
		var fatal *orchestrator.SessionFatalError
		if errors.As(runErr, &fatal) {
			return cli.Exit(runErr.Error(), exitFatal)
		}
		return cli.Exit(runErr.Error(), exitUsage)
	}

	switch {
	case report.AllSucceeded():
		return nil
	case opts.ValidateOnly:
		return cli.Exit("", exitValidation)
	default:
		return cli.Exit("", exitPartial)
	}
}

// buildApp wires an App from the global flags. Logs go to stderr so report
// output on stdout stays machine-readable.
func buildApp(c *cli.Context) (*app.App, error) {
	return app.NewApp(os.Stderr, app.Config{
		SchemaPaths: c.StringSlice("schemas"),
		LogLevel:    c.String("log-level"),
		LogFormat:   c.String("log-format"),
	})
}
