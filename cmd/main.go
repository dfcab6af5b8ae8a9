package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	"github.com/ethereum-optimism/optimism/devnet-sdk/telemetry"
	"github.com/ethereum-optimism/optimism/op-service/cliapp"
	oplog "github.com/ethereum-optimism/optimism/op-service/log"

	conform "github.com/zenc-lang/zc-conform"
	"github.com/zenc-lang/zc-conform/flags"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := newApp()
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			cli.HandleExitCoder(cli.Exit(err.Error(), conform.ExitCode(err)))
		}
	}

	// Start telemetry
	ctx, shutdown, err := telemetry.SetupOpenTelemetry(
		context.Background(),
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	// Interrupts cancel running tests; their outcomes are still reported.
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := app.RunContext(ctx, os.Args); err != nil {
		log.Crit("Application failed", "message", err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "zc-conform"
	app.Usage = "Zen C conformance test harness"
	app.Description = "zc-conform runs every .zc test through the zc driver in parallel and reports pass/fail " +
		"in a deterministic order. Driver arguments must follow --, e.g. 'zc-conform -j 8 -- -O2', " +
		"otherwise flags such as -O2 are rejected as unknown."
	app.ArgsUsage = "[-- driver args...]"
	app.Flags = cliapp.ProtectFlags(flags.Flags)
	app.Action = runSuite
	app.Commands = []*cli.Command{
		{
			Name:      "matrix",
			Aliases:   []string{"ci"},
			Usage:     "Run the suite once per available C backend",
			ArgsUsage: "[-- driver args...]",
			Flags:     cliapp.ProtectFlags(append(append([]cli.Flag{}, flags.Flags...), flags.MatrixFlags...)),
			Action:    runMatrix,
		},
	}
	return app
}

func setup(ctx *cli.Context) (*conform.Config, error) {
	logCfg := oplog.ReadCLIConfig(ctx)
	logger := oplog.NewLogger(oplog.AppOut(ctx), logCfg)
	oplog.SetGlobalLogHandler(logger.Handler())

	cfg, err := conform.NewConfig(ctx, logger)
	if err != nil {
		// Wrap in RuntimeError to signal this should exit with code 2
		return nil, conform.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	cfg.Log.Debug("Config", "config", cfg)
	return cfg, nil
}

func runSuite(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	return conform.RunOnce(ctx.Context, cfg, ctx.App.Writer)
}

func runMatrix(ctx *cli.Context) error {
	cfg, err := setup(ctx)
	if err != nil {
		return err
	}
	return conform.RunMatrix(ctx.Context, cfg, conform.PathProber{}, ctx.App.Writer)
}
