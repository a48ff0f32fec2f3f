package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/kulfy/kulfy-agent/internal/agent"
	"github.com/kulfy/kulfy-agent/internal/http/handlers"
	"github.com/kulfy/kulfy-agent/internal/infra"
	"github.com/kulfy/kulfy-agent/internal/kulfy"
	"github.com/kulfy/kulfy-agent/internal/providers/concepts"
	"github.com/kulfy/kulfy-agent/internal/providers/image"
	"github.com/kulfy/kulfy-agent/internal/scrape"
	"github.com/kulfy/kulfy-agent/internal/storage"
)

var (
	sourceURLs   []string
	conceptsOnly bool
	debug        bool
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Run the Kulfy meme pipeline once from the command line",
	Long: `Runs the full content-to-meme pipeline without the HTTP server:
fetch the given URLs, generate five meme concepts, render an image per
concept and upload each one to Kulfy. With --concepts-only the run stops
after concept generation and prints the concepts instead.`,
	Version: handlers.Version,
	RunE: func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()

		cfg, err := infra.LoadConfig()
		if err != nil {
			return err
		}
		if debug {
			cfg.AppEnv = "development"
		}
		logger := infra.NewLogger(cfg.AppEnv)
		sink := agent.NewLoggerSink(logger)

		scraper := scrape.New(scrape.Options{Timeout: cfg.FetchTimeout, Sink: sink})
		generator, err := concepts.New(concepts.Options{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.ConceptModel,
			BaseURL: cfg.OpenAIBaseURL,
			Timeout: cfg.ConceptTimeout,
			Sink:    sink,
		})
		if err != nil {
			return err
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
			return err
		}
		uploader, err := kulfy.New(kulfy.Options{
			UploadURL: cfg.KulfyUploadURL,
			Timeout:   cfg.UploadTimeout,
			Sink:      sink,
		})
		if err != nil {
			return err
		}

		var opts []agent.Option
		if cfg.MemeArchiveDir != "" {
			store, err := storage.NewFileStore(cfg.MemeArchiveDir)
			if err != nil {
				return err
			}
			opts = append(opts, agent.WithArchiver(store))
		}
		pipeline := agent.NewPipeline(scraper, generator, renderer, uploader, sink, opts...)

		if conceptsOnly {
			list, summary := pipeline.RunConceptsOnly(cmd.Context(), sourceURLs)
			return printJSON(map[string]any{"concepts": list, "summary": summary})
		}
		summary := pipeline.Run(cmd.Context(), sourceURLs)
		if err := printJSON(summary); err != nil {
			return err
		}
		if summary.SuccessfulUploads == 0 {
			return fmt.Errorf("no memes were uploaded")
		}
		return nil
	},
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.Flags().StringArrayVar(&sourceURLs, "url", nil, "source URL to fetch (repeatable; empty uses fallback content)")
	rootCmd.Flags().BoolVar(&conceptsOnly, "concepts-only", false, "stop after concept generation and print the concepts")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "verbose console logging")

	rootCmd.AddCommand(logsCmd)
}
