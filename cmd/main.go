package main

import (
	"fmt"
	"os"
	"strings"

	"bullshark/cmd/bot"
	"bullshark/src/database"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	// .env is optional; real env vars win
	_ = godotenv.Load()
	setupLogger()

	app := cli.NewApp()
	app.Name = "Bull Shark"
	app.Usage = "Coinbase spot take-profit and re-buy bot"
	app.Version = Version

	app.Commands = []cli.Command{
		runCMD,
		dryRunCMD,
		statusCMD,
		watchCMD,
		testAuthCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setupLogger() {
	config := database.GetConfig()

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if strings.EqualFold(config.LogFormat, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

var onceFlag = cli.BoolFlag{
	Name:  "once",
	Usage: "run a single pass over all products and exit",
}

var (
	runCMD = cli.Command{
		Name:        "run",
		Usage:       "run the trading loop",
		Action:      runAction,
		Flags:       []cli.Flag{onceFlag},
		Description: `Reconcile recorded re-buys, then evaluate every product each LOOP_INTERVAL. DRY_RUN=true simulates orders.`,
	}
	dryRunCMD = cli.Command{
		Name:        "dry-run",
		Usage:       "run the trading loop without placing orders",
		Action:      dryRunAction,
		Flags:       []cli.Flag{onceFlag},
		Description: `Same as run with DRY_RUN forced on.`,
	}
	statusCMD = cli.Command{
		Name:        "status",
		Usage:       "print persisted state and recent trades",
		Action:      statusAction,
		Description: `Read-only snapshot of position state per product.`,
	}
	watchCMD = cli.Command{
		Name:        "watch",
		Usage:       "live market and position view",
		Action:      watchAction,
		Description: `Redraw prices, trend, balances and bot state every WATCH_INTERVAL.`,
	}
	testAuthCMD = cli.Command{
		Name:        "test-auth",
		Usage:       "verify API credentials by listing accounts",
		Action:      testAuthAction,
		Description: `Signs one authenticated request and prints non-empty balances.`,
	}
)

func runAction(c *cli.Context) error {
	logrus.WithField("cmd", "run").Info("Starting trading loop CMD")
	b := &bot.Bot{Once: c.Bool("once")}
	if err := b.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func dryRunAction(c *cli.Context) error {
	logrus.WithField("cmd", "dry-run").Info("Starting dry-run trading loop CMD")
	b := &bot.Bot{Once: c.Bool("once"), ForceDryRun: true}
	if err := b.Start(); err != nil {
		logrus.WithError(err).Error("Starting cmd")
		return err
	}
	return nil
}

func statusAction(_ *cli.Context) error {
	return (&bot.Bot{}).Status()
}

func watchAction(_ *cli.Context) error {
	return (&bot.Bot{}).Watch()
}

func testAuthAction(_ *cli.Context) error {
	return (&bot.Bot{}).TestAuth()
}
