// Package main wires together the crypto ETL service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	gcsclient "cloud.google.com/go/storage"
	"go.uber.org/zap"

	"github.com/coinlake/crypto-etl/internal/api"
	"github.com/coinlake/crypto-etl/internal/archive"
	archivegcs "github.com/coinlake/crypto-etl/internal/archive/gcs"
	archivelocal "github.com/coinlake/crypto-etl/internal/archive/local"
	"github.com/coinlake/crypto-etl/internal/clock/system"
	"github.com/coinlake/crypto-etl/internal/config"
	"github.com/coinlake/crypto-etl/internal/ingest"
	"github.com/coinlake/crypto-etl/internal/logging"
	"github.com/coinlake/crypto-etl/internal/metrics"
	"github.com/coinlake/crypto-etl/internal/orchestrator"
	"github.com/coinlake/crypto-etl/internal/publisher"
	pubsubpublisher "github.com/coinlake/crypto-etl/internal/publisher/pubsub"
	"github.com/coinlake/crypto-etl/internal/source/coingecko"
	"github.com/coinlake/crypto-etl/internal/source/coinpaprika"
	"github.com/coinlake/crypto-etl/internal/source/csvfile"
	memorystorage "github.com/coinlake/crypto-etl/internal/storage/memory"
	"github.com/coinlake/crypto-etl/internal/storage/postgres"
	"github.com/coinlake/crypto-etl/internal/store"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Init()
	clock := system.New()

	var (
		market      store.MarketStore
		checkpoints store.CheckpointStore
		runs        store.RunStore
		pinger      api.Pinger
	)
	if cfg.DB.DSN == "" {
		logger.Warn("no database configured, using in-memory storage")
		market = memorystorage.NewMarketStore()
		checkpoints = memorystorage.NewCheckpointStore()
		runs = memorystorage.NewRunStore()
	} else {
		pool, err := postgres.Connect(ctx, postgres.Config{
			DSN:      cfg.DB.DSN,
			MaxConns: cfg.DB.MaxConns,
			MinConns: cfg.DB.MinConns,
		})
		if err != nil {
			logger.Fatal("database connect failed", zap.Error(err))
		}
		defer pool.Close()
		if err := postgres.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("ensure schema failed", zap.Error(err))
		}
		if market, err = postgres.NewMarketStore(pool); err != nil {
			logger.Fatal("market store init failed", zap.Error(err))
		}
		if checkpoints, err = postgres.NewCheckpointStore(pool); err != nil {
			logger.Fatal("checkpoint store init failed", zap.Error(err))
		}
		if runs, err = postgres.NewRunStore(pool); err != nil {
			logger.Fatal("run store init failed", zap.Error(err))
		}
		pinger = pool
	}

	archiver := buildArchiver(ctx, cfg, logger)
	pub := buildPublisher(ctx, cfg, logger)

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout()}
	ingestCfg := ingest.Config{BatchSize: cfg.Ingest.BatchSize}

	var runners []orchestrator.Runner
	if cfg.Sources.CoinPaprika.Enabled {
		opts := []coinpaprika.Option{coinpaprika.WithHTTPClient(httpClient)}
		if cfg.Sources.CoinPaprika.BaseURL != "" {
			opts = append(opts, coinpaprika.WithBaseURL(cfg.Sources.CoinPaprika.BaseURL))
		}
		client := coinpaprika.NewClient(cfg.Sources.CoinPaprika.APIKey, opts...)
		runners = append(runners, ingest.New(client, coinpaprika.NewNormalizer(nil),
			market, checkpoints, runs, archiver, clock, ingestCfg, logger.Named("coinpaprika")))
	}
	if cfg.Sources.CoinGecko.Enabled {
		opts := []coingecko.Option{coingecko.WithHTTPClient(httpClient)}
		if cfg.Sources.CoinGecko.BaseURL != "" {
			opts = append(opts, coingecko.WithBaseURL(cfg.Sources.CoinGecko.BaseURL))
		}
		client := coingecko.NewClient(cfg.Sources.CoinGecko.APIKey, opts...)
		runners = append(runners, ingest.New(client, coingecko.NewNormalizer(nil),
			market, checkpoints, runs, archiver, clock, ingestCfg, logger.Named("coingecko")))
	}
	if cfg.Sources.CSV.Enabled {
		runners = append(runners, ingest.New(csvfile.NewClient(cfg.Sources.CSV.Path), csvfile.NewNormalizer(nil),
			market, checkpoints, runs, archiver, clock, ingestCfg, logger.Named("csv")))
	}

	orch := orchestrator.New(runners, pub, cfg.PubSub.TopicName, logger.Named("orchestrator"))

	apiServer := api.NewServer(market, checkpoints, runs, orch, pinger, api.Config{
		DefaultLimit: cfg.Ingest.DefaultLimit,
	}, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

func buildArchiver(ctx context.Context, cfg config.Config, logger *zap.Logger) archive.Store {
	switch cfg.Archive.Backend {
	case "gcs":
		client, err := gcsclient.NewClient(ctx)
		if err != nil {
			logger.Fatal("gcs client init failed", zap.Error(err))
		}
		archiver, err := archivegcs.New(client, archivegcs.Config{
			Bucket: cfg.Archive.GCSBucket,
			Prefix: cfg.Archive.Prefix,
		})
		if err != nil {
			logger.Fatal("gcs archive init failed", zap.Error(err))
		}
		return archiver
	case "local":
		archiver, err := archivelocal.New(archivelocal.Config{BaseDir: cfg.Archive.LocalDir})
		if err != nil {
			logger.Fatal("local archive init failed", zap.Error(err))
		}
		return archiver
	default:
		return nil
	}
}

func buildPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) publisher.Publisher {
	if cfg.PubSub.ProjectID == "" {
		return nil
	}
	pub, err := pubsubpublisher.New(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		logger.Fatal("pubsub publisher init failed", zap.Error(err))
	}
	return pub
}
