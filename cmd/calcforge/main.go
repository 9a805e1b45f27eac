// calcforge drives the AWS Pricing Calculator from the command line.
//
// Usage:
//
//	calcforge estimate --input project.json [--headless=false] [--output url.txt]
//	calcforge validate --input project.yaml
//	calcforge services [service-type]
//	calcforge serve --addr :8080
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

// Exit codes. Partial success is distinguishable from full success so CI
// pipelines can fail soft or hard as they prefer.
const (
	exitOK         = 0
	exitUsage      = 2
	exitPartial    = 3
	exitValidation = 4
	exitFatal      = 5
)

func main() {
	app := &cli.App{
		Name:    "calcforge",
		Usage:   "Build AWS Pricing Calculator estimates from service documents",
		Version: version,
		Description: "Exit codes:\n" +
			"   0  every item was added to the estimate, or every item is valid in a\n" +
			"      validate-only run\n" +
			"   2  usage or input errors\n" +
			"   3  the estimate finished but some items failed\n" +
			"   4  a validate-only run found invalid items\n" +
			"   5  the calculator session could not be opened or was lost",

		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"CALCFORGE_LOG_LEVEL"},
			},
			&cli.StringFlag{
				Name:    "log-format",
				Value:   "text",
				Usage:   "Log format (text, json)",
				EnvVars: []string{"CALCFORGE_LOG_FORMAT"},
			},
			&cli.StringSliceFlag{
				Name:    "schemas",
				Usage:   "Schema manifest files or directories (defaults to the embedded set)",
				EnvVars: []string{"CALCFORGE_SCHEMAS"},
			},
		},

		Commands: []*cli.Command{
			estimateCommand(),
			validateCommand(),
			servicesCommand(),
			serveCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		if exitErr, ok := err.(cli.ExitCoder); ok {
			if msg := exitErr.Error(); msg != "" {
				fmt.Fprintf(os.Stderr, "Error: %s\n", msg)
			}
			os.Exit(exitErr.ExitCode())
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitUsage)
	}
}
