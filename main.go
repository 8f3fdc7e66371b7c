package main

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/dtnitsch/textiq/internal/batch"
	"github.com/dtnitsch/textiq/internal/estimate"
	"github.com/dtnitsch/textiq/internal/history"
	"github.com/dtnitsch/textiq/internal/serve"
	"github.com/dtnitsch/textiq/internal/verify"
	"github.com/dtnitsch/textiq/internal/vocab"
)

var (
	version = "v0.1.0"
	commit  = ""
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "Path to the YAML config file",
		Value:   "config.yaml",
		EnvVars: []string{"TEXTIQ_CONFIG"},
	}

	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "Log level (debug, info, warn, error)",
		Value: "info",
	}

	logFormatFlag = &cli.StringFlag{
		Name:  "log-format",
		Usage: "Log format (text, json)",
		Value: "text",
	}

	formatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format (text, json, yaml)",
		Value:   "text",
	}

	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: "Preprocessing mode (prose, vocab)",
		Value: "prose",
	}

	saveFlag = &cli.BoolFlag{
		Name:  "save",
		Usage: "Record the estimate in the run store",
	}

	workersFlag = &cli.IntFlag{
		Name:    "workers",
		Aliases: []string{"w"},
		Usage:   "Number of concurrent estimation workers",
		Value:   4,
	}

	limitFlag = &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of runs to list",
		Value:   20,
	}

	withinFlag = &cli.Float64Flag{
		Name:  "within",
		Usage: "Tolerance in IQ points for a sample to count as matched",
		Value: 15,
	}

	addrFlag = &cli.StringFlag{
		Name:  "addr",
		Usage: "Listen address (overrides server.addr from the config)",
	}
)

var (
	estimateCmd = &cli.Command{
		Name:      "estimate",
		Aliases:   []string{"e"},
		Usage:     "Estimate one input (file, URL, or - for stdin)",
		ArgsUsage: "[file|url|-]",
		Action:    estimate.EstimateAction,
		Flags: []cli.Flag{
			modeFlag,
			formatFlag,
			saveFlag,
		},
	}

	batchCmd = &cli.Command{
		Name:      "batch",
		Aliases:   []string{"b"},
		Usage:     "Estimate many inputs concurrently",
		ArgsUsage: "<file|url> [file|url ...]",
		Action:    batch.BatchAction,
		Flags: []cli.Flag{
			workersFlag,
			modeFlag,
			formatFlag,
			saveFlag,
		},
	}

	vocabCmd = &cli.Command{
		Name:      "vocab",
		Usage:     "Score a vocabulary test file",
		ArgsUsage: "<test.json>",
		Action:    vocab.VocabAction,
		Flags: []cli.Flag{
			formatFlag,
		},
	}

	verifyCmd = &cli.Command{
		Name:      "verify",
		Usage:     "Check estimates against graded reference samples",
		ArgsUsage: "<samples.json>",
		Action:    verify.VerifyAction,
		Flags: []cli.Flag{
			withinFlag,
			workersFlag,
			formatFlag,
		},
	}

	historyCmd = &cli.Command{
		Name:  "history",
		Usage: "Inspect recorded estimation runs",
		Subcommands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List recent runs",
				Action:  history.ListAction,
				Flags: []cli.Flag{
					limitFlag,
					formatFlag,
				},
			},
			{
				Name:      "show",
				Usage:     "Show one run in full",
				ArgsUsage: "<run_id>",
				Action:    history.ShowAction,
				Flags: []cli.Flag{
					formatFlag,
				},
			},
			{
				Name:   "summary",
				Usage:  "Aggregate the stored runs",
				Action: history.SummaryAction,
				Flags: []cli.Flag{
					formatFlag,
				},
			},
		},
	}

	serveCmd = &cli.Command{
		Name:   "serve",
		Usage:  "Run the estimation HTTP API",
		Action: serve.ServeAction,
		Flags: []cli.Flag{
			addrFlag,
		},
	}
)

func main() {
	app := &cli.App{
		Name:     "textiq",
		Version:  appVersion(),
		Compiled: time.Now(),
		Usage:    "Estimate IQ-proxy scores from writing samples",
		Flags: []cli.Flag{
			configFlag,
			logLevelFlag,
			logFormatFlag,
		},
		Commands: []*cli.Command{
			estimateCmd,
			batchCmd,
			vocabCmd,
			verifyCmd,
			historyCmd,
			serveCmd,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func appVersion() string {
	if commit == "" {
		return version
	}
	return fmt.Sprintf("%s (commit: %s)", version, commit)
}
