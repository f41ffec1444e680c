package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/alejandrodnm/predictbt/config"
	"github.com/alejandrodnm/predictbt/internal/adapters/fixture"
	"github.com/alejandrodnm/predictbt/internal/adapters/notify"
	"github.com/alejandrodnm/predictbt/internal/adapters/onchain"
	"github.com/alejandrodnm/predictbt/internal/adapters/storage"
	"github.com/alejandrodnm/predictbt/internal/application/engine"
	"github.com/alejandrodnm/predictbt/internal/application/rounds"
	"github.com/alejandrodnm/predictbt/internal/domain"
	"github.com/alejandrodnm/predictbt/internal/ports"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "use local fixture rounds instead of the BSC contract")
	fixturePath := flag.String("fixture", "testdata/fixtures/ledger_rounds.json", "fixture file used with -dry-run")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	trace := flag.Bool("trace", false, "print one row per simulated round")

	var sf settingsFlags
	sf.register(flag.CommandLine)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	settings, err := sf.resolve(cfg, flag.CommandLine)
	if err != nil {
		slog.Error("invalid settings", "err", err)
		os.Exit(2)
	}

	slog.Info("predictbt starting",
		"config", *configPath,
		"strategy", settings.Strategy,
		"capital", settings.CapitalAmount.String(),
		"amount_per_trade", settings.AmountPerTrade.String(),
		"dry_run", *dryRun,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	ledger, cache, closeAll, err := openBackends(ctx, cfg, *dryRun, *fixturePath)
	if err != nil {
		slog.Error("failed to open backends", "err", err)
		os.Exit(1)
	}
	defer closeAll()

	repo := rounds.New(ledger, cache, rounds.Config{
		MinEpoch:       cfg.Repository.MinEpoch,
		StaleThreshold: cfg.Repository.StaleThreshold,
		BatchSize:      cfg.Repository.BatchSize,
		GroupSize:      cfg.Repository.GroupSize,
		MaxInFlight:    cfg.Repository.MaxInFlight,
		FetchTimeout:   cfg.FetchTimeout(),
	})

	report, err := engine.New(repo, engine.Options{Trace: *trace}).Run(ctx, settings)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidSettings) {
			slog.Error("configuration error, nothing simulated", "err", err)
			closeAll()
			os.Exit(2)
		}
		slog.Error("backtest failed", "err", err)
		closeAll()
		os.Exit(1)
	}

	if err := notify.NewConsole().PrintReport(report); err != nil {
		slog.Warn("printer error", "err", err)
	}
	slog.Info("predictbt finished", "run_id", report.RunID)
}

// openBackends devuelve el ledger y la cache según el modo. closeAll es
// idempotente.
func openBackends(ctx context.Context, cfg *config.Config, dryRun bool, fixturePath string) (ports.LedgerQuery, ports.RoundCache, func(), error) {
	if dryRun {
		ledger, err := fixture.LoadFile(fixturePath)
		if err != nil {
			return nil, nil, nil, err
		}
		cache := storage.NewMemoryCache()
		return ledger, cache, func() { cache.Close() }, nil
	}

	client, err := onchain.Dial(ctx, cfg.Ledger.RPCURL, cfg.Ledger.ContractAddress, onchain.Options{
		RequestsPerSecond: cfg.Ledger.RequestsPerSecond,
		Burst:             cfg.Ledger.Burst,
	})
	if err != nil {
		return nil, nil, nil, err
	}

	cache, err := storage.Open(cfg.Storage.Backend, cfg.Storage.Path)
	if err != nil {
		client.Close()
		return nil, nil, nil, err
	}

	closed := false
	closeAll := func() {
		if closed {
			return
		}
		closed = true
		if err := cache.Close(); err != nil {
			slog.Warn("failed to close cache", "err", err)
		}
		client.Close()
	}
	return client, cache, closeAll, nil
}

// setupLogger instala el logger por defecto. Los logs van a stderr para no
// mezclarse con el informe, que sale por stdout.
func setupLogger(cfg config.LogConfig) {
	slog.SetDefault(newLogger(cfg, os.Stderr))
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
