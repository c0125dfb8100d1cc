package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"opsintel/db"
	"opsintel/internal/archive"
	"opsintel/internal/config"
	"opsintel/internal/geocode"
	"opsintel/internal/incident"
	"opsintel/internal/ingest"
	"opsintel/internal/observability"
	"opsintel/internal/pipeline"
	"opsintel/internal/sicu"
	"opsintel/internal/translate"
	"opsintel/internal/web"
	"opsintel/middleware"
)

func main() {
	logger := newLogger("info")

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	logger = newLogger(cfg.LogLevel)
	logger.Info().Int("pid", os.Getpid()).Msg("starting opsintel collector")

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Fatal().Err(err).Str("timezone", cfg.Timezone).Msg("invalid timezone")
	}

	sqliteDB, err := db.ConnectToSQLite(cfg.DatabasePath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to open database")
	}
	defer sqliteDB.Close()

	if err := db.InitializeSchema(sqliteDB); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database schema")
	}

	factory := db.NewRepositoryFactory(sqliteDB)
	incidentRepo := factory.NewIncidentRepository()
	geocacheRepo := factory.NewGeocodeCacheRepository()

	dbManager := db.NewDBManager()
	defer dbManager.Stop()

	store, err := archive.NewStore(cfg.DataDir)
	if err != nil {
		logger.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to open archive")
	}

	resolver := geocode.NewResolver(
		geocacheRepo,
		geocode.NewNominatimClient(cfg.NominatimURL, cfg.NominatimUserAgent),
		nil,
		&logger,
	)
	registrar := incident.NewService(incidentRepo, dbManager, resolver, &logger)
	builder := sicu.NewBuilder(translate.Excerpt{}, &logger)

	var sources []ingest.Source
	if cfg.SourcesPath != "" {
		srcCfg, err := ingest.LoadSourcesConfig(cfg.SourcesPath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SourcesPath).Msg("failed to load sources config")
		}
		sources, err = ingest.NewFromConfig(srcCfg, &logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build sources")
		}
	}
	logger.Info().Int("sources", len(sources)).Str("timezone", cfg.Timezone).Msg("collector configured")

	metrics := observability.NewMetrics()
	ready := &observability.Readiness{}

	pipe := pipeline.New(pipeline.Options{
		Config:    cfg,
		Sources:   sources,
		Store:     store,
		Registrar: registrar,
		Resolver:  resolver,
		Builder:   builder,
		Metrics:   metrics,
		Readiness: ready,
		Location:  loc,
		Logger:    &logger,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go pipe.RunLoop(ctx, cfg.CollectInterval)

	webHandler := web.NewWebHandler(cfg, pipe, incidentRepo, ready, &logger)
	router := webHandler.SetupRoutes()
	handler := middleware.LoggingMiddleware(&logger)(middleware.SetupCORS()(router))

	server := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Msg("http server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(server, ready, cancel, &logger)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		Level(lvl).
		With().Timestamp().Logger()
}

func waitForShutdown(server *http.Server, ready *observability.Readiness, cancel context.CancelFunc, logger *zerolog.Logger) {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	sig := <-stop
	logger.Info().Str("signal", sig.String()).Msg("shutting down")

	// Stop advertising readiness before draining so load balancers
	// stop routing new work here.
	ready.SetNotReady()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
	}
	logger.Info().Msg("collector stopped")
}
