package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogpostgres "github.com/vidstats/vidstats/internal/catalog/postgres"
	"github.com/vidstats/vidstats/internal/config"
	"github.com/vidstats/vidstats/internal/demo/dump"
	"github.com/vidstats/vidstats/internal/importer"
	"github.com/vidstats/vidstats/internal/migrations"
	"github.com/vidstats/vidstats/internal/observability"
	"github.com/vidstats/vidstats/internal/storage"
	s3store "github.com/vidstats/vidstats/internal/storage/s3"
	"github.com/vidstats/vidstats/internal/store"
)

func main() {
	cfg, err := config.LoadFromEnv("vidstats-import")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	source := flag.String("source", cfg.Import.Source, "dump location: local path or s3://bucket/key")
	archivePrefix := flag.String("archive-prefix", cfg.Import.ArchivePrefix, "object store prefix for the Parquet archive; empty disables archiving")
	migrate := flag.Bool("migrate", false, "apply pending schema migrations before loading")
	demoVideos := flag.Int("demo-videos", 0, "load this many generated videos instead of reading -source")
	demoSeed := flag.Int64("demo-seed", 1, "random seed for -demo-videos")
	flag.Parse()

	logger := observability.NewLogger(cfg, os.Stdout)
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		source:        *source,
		archivePrefix: *archivePrefix,
		migrate:       *migrate,
		demoVideos:    *demoVideos,
		demoSeed:      *demoSeed,
	}
	if err := run(ctx, cfg, logger, opts); err != nil {
		logger.Error("import failed", slog.Any("error", err))
		os.Exit(1)
	}
}

type options struct {
	source        string
	archivePrefix string
	migrate       bool
	demoVideos    int
	demoSeed      int64
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, opts options) error {
	source, archivePrefix := opts.source, opts.archivePrefix
	if opts.demoVideos > 0 {
		source = ""
	}
	dsn, err := store.DSN(store.Credentials{
		User:     cfg.Store.User,
		Password: cfg.Store.Password,
		Host:     cfg.Store.Host,
		Port:     cfg.Store.Port,
		Database: cfg.Store.Database,
		SSLMode:  cfg.Store.SSLMode,
	})
	if err != nil {
		return err
	}
	db, err := store.Open(ctx, store.DBConfig{DSN: dsn, MaxOpenConns: cfg.Store.MaxOpenConns})
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if opts.migrate {
		applied, err := migrations.NewRunner().Up(ctx, db, 0)
		if err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		logger.Info("migrations applied", slog.Int("count", applied))
	}

	var objectStore *s3store.Store
	if storage.IsObjectURL(source) || archivePrefix != "" {
		objectStore, err = s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			return fmt.Errorf("initialize object store: %w", err)
		}
	}

	writer, err := catalogpostgres.NewWriter(db)
	if err != nil {
		return err
	}
	importCfg := importer.Config{Sink: writer, Logger: logger}
	if archivePrefix != "" {
		importCfg.Archive = objectStore
		importCfg.ArchivePrefix = archivePrefix
	}
	imp, err := importer.New(importCfg)
	if err != nil {
		return err
	}

	var summary importer.Summary
	if opts.demoVideos > 0 {
		var buf bytes.Buffer
		start := time.Date(cfg.Bot.ReferenceYear, time.November, 1, 0, 0, 0, 0, time.UTC)
		if err := dump.NewGenerator(opts.demoSeed, 10, 72, start).Write(&buf, opts.demoVideos); err != nil {
			return err
		}
		logger.Info("importing generated dump", slog.Int("videos", opts.demoVideos), slog.Int64("seed", opts.demoSeed))
		summary, err = imp.Load(ctx, &buf)
	} else {
		summary, err = loadSource(ctx, imp, objectStore, source, logger)
	}
	if err != nil {
		return err
	}
	fmt.Printf("imported %d video(s) and %d snapshot(s); %d unparsable timestamp(s)\n", summary.Videos, summary.Snapshots, summary.ParseFailures)
	return nil
}

func loadSource(ctx context.Context, imp *importer.Importer, objectStore *s3store.Store, source string, logger *slog.Logger) (importer.Summary, error) {
	var (
		objects storage.ObjectStore
		bucket  string
	)
	if objectStore != nil {
		objects = objectStore
		bucket = objectStore.Bucket()
	}
	reader, err := importer.OpenSource(ctx, source, objects, bucket)
	if err != nil {
		return importer.Summary{}, err
	}
	defer func() { _ = reader.Close() }()

	logger.Info("importing dump", slog.String("source", source))
	return imp.Load(ctx, reader)
}
