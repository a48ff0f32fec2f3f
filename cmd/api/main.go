package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kulfy/kulfy-agent/internal/agent"
	"github.com/kulfy/kulfy-agent/internal/http/handlers"
	httpapi "github.com/kulfy/kulfy-agent/internal/http/httpapi"
	"github.com/kulfy/kulfy-agent/internal/infra"
	"github.com/kulfy/kulfy-agent/internal/jobs"
	"github.com/kulfy/kulfy-agent/internal/kulfy"
	"github.com/kulfy/kulfy-agent/internal/providers/concepts"
	"github.com/kulfy/kulfy-agent/internal/providers/image"
	"github.com/kulfy/kulfy-agent/internal/scrape"
	"github.com/kulfy/kulfy-agent/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	runs := jobs.NewRunState()
	sink := agent.MultiSink(agent.NewLoggerSink(logger), runs)

	scraper := scrape.New(scrape.Options{Timeout: cfg.FetchTimeout, Sink: sink})

	generator, err := concepts.New(concepts.Options{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.ConceptModel,
		BaseURL: cfg.OpenAIBaseURL,
		Timeout: cfg.ConceptTimeout,
		Sink:    sink,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init concept generator")
	}

	renderer, err := image.New(image.Options{
		APIKey:          cfg.OpenAIAPIKey,
		Model:           cfg.ImageModel,
		BaseURL:         cfg.OpenAIBaseURL,
		GenerateTimeout: cfg.ImageTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
		Sink:            sink,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init image renderer")
	}

	uploader, err := kulfy.New(kulfy.Options{
		UploadURL: cfg.KulfyUploadURL,
		Timeout:   cfg.UploadTimeout,
		Sink:      sink,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init kulfy client")
	}

	var opts []agent.Option
	if cfg.MemeArchiveDir != "" {
		store, err := storage.NewFileStore(cfg.MemeArchiveDir)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init meme archive")
		}
		opts = append(opts, agent.WithArchiver(store))
	}
	pipeline := agent.NewPipeline(scraper, generator, renderer, uploader, sink, opts...)

	app := &handlers.App{
		Log:              logger,
		Runs:             runs,
		Pipeline:         pipeline,
		KulfyUploadURL:   cfg.KulfyUploadURL,
		OpenAIConfigured: cfg.OpenAIAPIKey != "",
	}

	router := httpapi.NewRouter(app, logger, cfg.AllowedOrigins)
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Msgf("API listening on :%s", cfg.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
