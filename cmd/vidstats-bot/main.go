package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vidstats/vidstats/internal/api"
	"github.com/vidstats/vidstats/internal/auth"
	"github.com/vidstats/vidstats/internal/bot"
	"github.com/vidstats/vidstats/internal/config"
	"github.com/vidstats/vidstats/internal/nl2sql"
	"github.com/vidstats/vidstats/internal/observability"
	"github.com/vidstats/vidstats/internal/query"
	s3store "github.com/vidstats/vidstats/internal/storage/s3"
	"github.com/vidstats/vidstats/internal/store"
	duckdbstore "github.com/vidstats/vidstats/internal/store/duckdb"
)

func main() {
	cfg, err := config.LoadFromEnv("vidstats-bot")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = pool.Close() }()

	executor, err := query.NewExecutor(pool, query.ExecutorConfig{
		Timeout:  cfg.Store.QueryTimeout,
		ReadOnly: cfg.Store.Driver == config.StoreDriverPostgres,
		Logger:   logger,
	})
	if err != nil {
		logger.Error("failed to initialize executor", slog.Any("error", err))
		os.Exit(1)
	}

	openai, err := nl2sql.NewOpenAITranslator(nl2sql.OpenAIConfig{
		BaseURL:       cfg.LLM.BaseURL,
		APIKey:        cfg.LLM.APIKey,
		Model:         cfg.LLM.Model,
		Temperature:   cfg.LLM.Temperature,
		Timeout:       cfg.LLM.Timeout,
		ReferenceYear: cfg.Bot.ReferenceYear,
	})
	if err != nil {
		logger.Error("failed to initialize translator", slog.Any("error", err))
		os.Exit(1)
	}
	translator := nl2sql.NewService(openai, logger)

	chatHandler := bot.NewHandler(bot.HandlerConfig{
		Translator: translator,
		Executor:   executor,
		Limiter:    bot.NewChatLimiter(cfg.Bot.RatePerMinute, cfg.Bot.RateBurst, 0),
		Logger:     logger,
		Greeting:   cfg.Bot.GreetingText,
	})
	// API callers authenticate with keys, so they skip the per-chat limiter.
	apiAsker := bot.NewHandler(bot.HandlerConfig{
		Translator: translator,
		Executor:   executor,
		Logger:     logger,
		Greeting:   cfg.Bot.GreetingText,
	})

	deps := api.Dependencies{
		Logger:     logger,
		Asker:      apiAsker,
		Translator: translator,
		Readiness: api.CombineReadinessChecks(
			pool.HealthCheck,
			api.CheckTranslatorConfig(cfg),
		),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      api.NewHandler(cfg, deps),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}
	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	if cfg.Bot.Token == "" {
		logger.Warn("BOT_TOKEN is not set; serving the http api only")
		<-ctx.Done()
	} else if err := runBot(ctx, cfg, chatHandler, logger); err != nil {
		logger.Error("bot stopped", slog.Any("error", err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}

func runBot(ctx context.Context, cfg config.Config, handler *bot.Handler, logger *slog.Logger) error {
	transport, err := bot.NewTelegramTransport(bot.TelegramConfig{
		Token:       cfg.Bot.Token,
		PollTimeout: cfg.Bot.PollTimeout,
		Debug:       cfg.Bot.DebugTransport,
	}, logger)
	if err != nil {
		return fmt.Errorf("connect telegram: %w", err)
	}
	runner, err := bot.NewRunner(bot.RunnerConfig{
		Transport:     transport,
		Handler:       handler,
		Logger:        logger,
		MaxConcurrent: cfg.Bot.MaxConcurrent,
		HandleTimeout: cfg.Bot.HandleTimeout,
	})
	if err != nil {
		return err
	}
	logger.Info("bot polling started")
	return runner.Run(ctx)
}

// openStore returns a pool over postgres or over an in-memory DuckDB
// database built from the Parquet archive.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (*store.Pool, error) {
	if cfg.Store.Driver == config.StoreDriverDuckDB {
		objectStore, err := s3store.New(ctx, cfg.ObjectStore)
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		db, err := duckdbstore.Open(ctx, objectStore, cfg.Store.ArchivePrefix)
		if err != nil {
			return nil, err
		}
		logger.Info("serving from parquet archive", slog.String("prefix", cfg.Store.ArchivePrefix))
		return store.Attach(db), nil
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
		return nil, err
	}
	db, err := store.Open(ctx, store.DBConfig{
		DSN:             dsn,
		MaxOpenConns:    cfg.Store.MaxOpenConns,
		MaxIdleConns:    cfg.Store.MaxIdleConns,
		ConnMaxIdleTime: cfg.Store.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Store.ConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}
	return store.Attach(db), nil
}
