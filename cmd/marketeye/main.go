package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/api"
	"github.com/Checker-Finance/marketeye/internal/catalog"
	"github.com/Checker-Finance/marketeye/internal/jobs"
	"github.com/Checker-Finance/marketeye/internal/pipeline"
	"github.com/Checker-Finance/marketeye/internal/publisher"
	"github.com/Checker-Finance/marketeye/internal/rate"
	"github.com/Checker-Finance/marketeye/internal/source"
	"github.com/Checker-Finance/marketeye/internal/store"
	"github.com/Checker-Finance/marketeye/internal/taxonomy"
	"github.com/Checker-Finance/marketeye/pkg/config"
	"github.com/Checker-Finance/marketeye/pkg/logger"
	"github.com/Checker-Finance/marketeye/pkg/model"
	"github.com/Checker-Finance/marketeye/pkg/secrets"
	"github.com/Checker-Finance/marketeye/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infow("starting [marketeye]...", "run_mode", cfg.RunMode, "raw_dir", cfg.RawDataDir)

	// --- Taxonomy (built-in, optionally overridden from YAML) ---
	tax := taxonomy.Default()
	if cfg.TaxonomyFile != "" {
		loaded, err := taxonomy.Load(cfg.TaxonomyFile)
		if err != nil {
			logg.Fatalw("failed to load taxonomy", "path", cfg.TaxonomyFile, "error", err)
		}
		tax = loaded
	}
	tax = tax.
		WithSourcePatterns(model.SourceJumia, cfg.JumiaPatterns).
		WithSourcePatterns(model.SourceElectroplanet, cfg.ElectroplanetPatterns).
		WithSourcePatterns(model.SourceAvito, cfg.AvitoPatterns)

	// --- Database DSN (AWS Secrets Manager when a secret name is set) ---
	dsn := cfg.DatabaseURL
	if cfg.DatabaseSecretName != "" {
		provider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		dsn, err = secrets.ResolveDatabaseURL(ctx, provider, cfg.DatabaseSecretName, cfg.DatabaseURL)
		if err != nil {
			logg.Fatalw("failed to resolve database DSN", "secret", cfg.DatabaseSecretName, "error", err)
		}
	}
	if dsn != "" {
		logg.Info("connection to DSN: ", utils.MaskDSN(dsn))
	}

	// --- Store (Redis + Postgres hybrid). The batch still runs without it. ---
	var (
		st           *store.HybridStore
		catalogStore catalog.Store
		health       api.HealthChecker
	)
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, dsn, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.Named("store"))
	if err != nil {
		logg.Warnw("store unavailable; catalog will not be persisted", "error", err)
	} else {
		catalogStore, health = st, st
	}

	var snapshot catalog.Snapshotter
	if cfg.SnapshotPath != "" {
		snapshot = store.NewSnapshotWriter(cfg.SnapshotPath, logger.Named("snapshot"))
	}

	// --- Event publisher ---
	pub, err := publisher.Open(publisher.Options{
		Broker:       cfg.EventBroker,
		Service:      cfg.ServiceName,
		NATSURL:      cfg.NATSURL,
		NATSSubject:  cfg.NATSSubject,
		AMQPURL:      cfg.AMQPURL,
		AMQPExchange: cfg.AMQPExchange,
	}, logger.Named("publisher"))
	if err != nil {
		logg.Fatalw("failed to init publisher", "broker", cfg.EventBroker, "error", err)
	}

	// --- Pipeline and catalog service ---
	kit := source.NewKit(tax, nil, logger.Named("source"))
	pipe := pipeline.New(pipeline.Config{
		RawDir:     cfg.RawDataDir,
		Partitions: cfg.MergePartitions,
	}, pipeline.DefaultNormalizers(kit), logger.Named("pipeline"), nil)

	holder := catalog.NewHolder()
	svc := catalog.NewService(pipe, holder, catalogStore, snapshot, pub, catalog.Options{
		BackupDir: cfg.ProcessedDataDir,
		Backup:    cfg.BackupEnabled,
		Currency:  tax.Currency(),
	}, logger.Named("catalog"), nil)

	shutdown := func() {
		if err := pub.Close(); err != nil {
			logg.Warnw("publisher.close_failed", "error", err)
		}
		if st != nil {
			if err := st.Close(); err != nil {
				logg.Warnw("store.close_failed", "error", err)
			}
		}
	}

	if cfg.RunMode == "once" {
		code := runOnce(ctx, svc, logg.Desugar())
		shutdown()
		logger.Sync()
		os.Exit(code)
	}

	// --- Refresher job ---
	refresher := jobs.NewCatalogRefresher(logger.Named("refresher"), svc, cfg.RefreshInterval)
	go refresher.Start(ctx)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})
	triggers := rate.NewManager(rate.Config{Every: cfg.RunTriggerInterval, Burst: cfg.RunTriggerBurst})
	api.RegisterRoutes(app, health, api.NewCatalogHandler(logger.Named("api"), holder, svc, triggers))

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[marketeye] running",
		"env", cfg.Env,
		"refresh_interval", cfg.RefreshInterval,
		"event_broker", cfg.EventBroker,
		"store", st != nil)

	<-ctx.Done()
	logg.Info("shutting down [marketeye]...")

	refresher.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	shutdown()
}

// runOnce performs a single refresh and returns the process exit code.
func runOnce(ctx context.Context, svc *catalog.Service, log *zap.Logger) int {
	res, err := svc.Refresh(ctx)
	if err != nil {
		log.Error("marketeye.run_failed", zap.Error(err))
		return 1
	}
	log.Info("marketeye.run_completed",
		zap.String("run_id", res.RunID.String()),
		zap.Int("products", len(res.Products)),
		zap.Int("offers", res.OfferCount()),
		zap.Int("failed_records", res.FailedRecords()))
	if snap := svc.Holder().Current(); snap != nil {
		fmt.Println(snap.Report)
	}
	return 0
}
