// Package bot assembles the trading loop, the status views and the
// credential check from env config.
package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bullshark/src/connectors"
	"bullshark/src/controller"
	"bullshark/src/dashboard"
	"bullshark/src/database"
	"bullshark/src/executors"
	"bullshark/src/repository"
	"bullshark/src/security"
	"bullshark/src/server"
	"bullshark/src/strategy"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Bot holds the options shared by every command.
type Bot struct {
	// ForceDryRun overrides DRY_RUN=false.
	ForceDryRun bool
	// Once runs a single pass instead of looping.
	Once bool
	Out  io.Writer
}

func (b *Bot) out() io.Writer {
	if b.Out == nil {
		return os.Stdout
	}
	return b.Out
}

func (b *Bot) dryRun() bool {
	return b.ForceDryRun || executors.GetConfig().DryRun
}

func (b *Bot) newClient() (*connectors.CoinbaseClient, error) {
	creds := security.GetConfig().Credentials()
	if err := creds.Validate(); err != nil {
		return nil, fmt.Errorf("invalid coinbase credentials: %w", err)
	}
	return connectors.NewCoinbaseClient(creds, connectors.GetConfig(), b.dryRun()), nil
}

func dashboardOptions(cfg executors.Config, engine *strategy.Engine, dryRun bool) dashboard.Options {
	sc := engine.Config()
	return dashboard.Options{
		Products:      cfg.Products,
		DailyTradeCap: sc.DailyTradeCap,
		LadderLen:     sc.TPLadder.Len(),
		DryRun:        dryRun,
	}
}

// Start runs the trading loop until SIGINT/SIGTERM. The observability server
// is started alongside when SERVER_PORT is set.
func (b *Bot) Start() error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		logrus.WithError(err).Error("Failed to connect to main database")
		return err
	}

	client, err := b.newClient()
	if err != nil {
		return err
	}

	cfg := executors.GetConfig()
	cc := connectors.GetConfig()
	store := repository.NewStore()
	runner := executors.NewRunner(client, store, strategy.NewEngine(strategy.GetConfig()), executors.RunnerOptions{
		Products:    cfg.Products,
		Interval:    cfg.LoopInterval,
		Granularity: cc.CandleGranularity,
		CandleCount: cc.CandleCount,
		Controller:  controller.GetConfig(),
	})

	serverDone := make(chan error, 1)
	if port := server.GetConfig().Port; port != "" && !b.Once {
		go func() {
			serverDone <- server.StartServer(ctx, port, server.NewRouter(store))
		}()
	} else {
		close(serverDone)
	}

	logrus.WithFields(map[string]interface{}{
		"products": cfg.Products,
		"dry_run":  client.DryRun(),
	}).Info("Starting bull shark")

	if err := runner.Run(ctx, b.Once); err != nil {
		logrus.WithError(err).Error("Trading loop failed")
		return err
	}

	stop()
	if err := <-serverDone; err != nil {
		return err
	}
	logrus.Info("Shutdown complete")
	return nil
}

// Status prints the persisted state of every configured product.
func (b *Bot) Status() error {
	if err := database.InitMainDB(); err != nil {
		return err
	}
	engine := strategy.NewEngine(strategy.GetConfig())
	opts := dashboardOptions(executors.GetConfig(), engine, b.dryRun())
	return dashboard.PrintStatus(context.Background(), b.out(), repository.NewStore(), opts, time.Now())
}

// Watch redraws the live market view until interrupted.
func (b *Bot) Watch() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := database.InitMainDB(); err != nil {
		return err
	}
	client, err := b.newClient()
	if err != nil {
		return err
	}

	engine := strategy.NewEngine(strategy.GetConfig())
	opts := dashboardOptions(executors.GetConfig(), engine, client.DryRun())
	w := dashboard.NewWatcher(client, repository.NewStore(), engine, opts, connectors.GetConfig().CandleGranularity, GetConfig().WatchInterval, b.out())
	return w.Run(ctx)
}

// TestAuth lists the non-empty account balances, proving the key signs.
func (b *Bot) TestAuth() error {
	client, err := b.newClient()
	if err != nil {
		return err
	}

	accounts, err := client.Accounts(context.Background())
	if err != nil {
		var apiErr *connectors.APIError
		if errors.As(err, &apiErr) {
			logrus.WithField("status", apiErr.StatusCode).Error("Authentication check failed")
		}
		return err
	}

	t := table.NewWriter()
	t.SetTitle("Coinbase accounts")
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Currency", "Available", "Hold"})
	for _, acc := range accounts {
		available, _ := decimal.NewFromString(acc.AvailableBalance.Value)
		hold, _ := decimal.NewFromString(acc.Hold.Value)
		if available.IsZero() && hold.IsZero() {
			continue
		}
		t.AppendRow(table.Row{acc.Currency, available.String(), hold.String()})
	}
	fmt.Fprintln(b.out(), t.Render())
	fmt.Fprintf(b.out(), "Authenticated: %d accounts\n", len(accounts))
	return nil
}
