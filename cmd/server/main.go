// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/valpere/recipevault/internal/api"
	"github.com/valpere/recipevault/internal/config"
	"github.com/valpere/recipevault/internal/monitoring"
	"github.com/valpere/recipevault/internal/scraper"
	"github.com/valpere/recipevault/internal/storage"
	"github.com/valpere/recipevault/internal/utils"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	configPath := flag.String("config", os.Getenv("RECIPEVAULT_CONFIG"), "configuration file (YAML)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("recipevault-server %s (built %s, commit %s)\n", version, buildTime, gitCommit)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
	utils.SetupLogger(cfg.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("server stopped")
		stop()
		os.Exit(1)
	}
}

// app holds everything the server owns and must release on shutdown.
type app struct {
	server  *api.Server
	store   storage.Store
	fetcher scraper.FetchCloser
}

func (a *app) Close() {
	if a.fetcher != nil {
		a.fetcher.Close()
	}
	if a.store != nil {
		a.store.Close()
	}
}

// build wires storage, the extraction engine and the HTTP API from cfg.
func build(ctx context.Context, cfg *config.Config) (*app, error) {
	var metrics *monitoring.Metrics
	if cfg.Metrics.Enabled {
		metrics = monitoring.NewMetrics(cfg.Metrics.Namespace)
	}

	store, err := storage.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &app{store: store}

	health := monitoring.NewHealthManager(5 * time.Second)
	health.RegisterCheck(monitoring.DatabaseHealthCheck(storage.NormalizeDriver(cfg.Database.Driver), store.Ping))

	var opts []scraper.EngineOption
	if metrics != nil {
		store = storage.Instrument(store, metrics)
		opts = append(opts, scraper.WithObserver(metrics))
	}

	engine, fetcher, err := scraper.NewEngineFromConfig(cfg.Fetcher, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.fetcher = fetcher

	a.server = api.NewServer(engine, store, metrics, health, api.Options{
		CORSOrigins:  cfg.Server.CORSOrigins,
		RateLimit:    cfg.Server.RateLimit,
		RateBurst:    cfg.Server.RateBurst,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
		MetricsPath:  cfg.Metrics.Path,

		ScrapeTimeout: cfg.Server.ScrapeDeadline(),
	})
	return a, nil
}

func run(ctx context.Context, cfg *config.Config) error {
	a, err := build(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	log.Info().
		Str("address", cfg.Server.ListenAddress).
		Str("storage", storage.NormalizeDriver(cfg.Database.Driver)).
		Str("fetcher", cfg.Fetcher.Mode).
		Str("version", version).
		Msg("starting recipevault server")

	srv := a.server.HTTPServer(cfg.Server.ListenAddress, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	return a.server.ListenAndServe(ctx, srv, cfg.Server.ShutdownTimeout)
}
