package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment
// variables.
type Config struct {
	AppEnv string
	Port   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	ConceptModel  string
	ImageModel    string

	KulfyUploadURL string

	FetchTimeout    time.Duration
	ConceptTimeout  time.Duration
	ImageTimeout    time.Duration
	DownloadTimeout time.Duration
	UploadTimeout   time.Duration

	MemeArchiveDir string
	AllowedOrigins []string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies
// defaults where needed. A missing OpenAI API key is a hard failure: the
// pipeline cannot degrade its way around absent credentials.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "development"),
		Port:             getEnv("PORT", "8001"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		ConceptModel:     getEnv("CONCEPT_MODEL", "gpt-4-turbo-preview"),
		ImageModel:       getEnv("IMAGE_MODEL", "dall-e-3"),
		KulfyUploadURL:   getEnv("KULFY_UPLOAD_URL", "http://localhost:3000/api/upload"),
		FetchTimeout:     time.Second * time.Duration(getEnvInt("FETCH_TIMEOUT_SECONDS", 15)),
		ConceptTimeout:   time.Second * time.Duration(getEnvInt("CONCEPT_TIMEOUT_SECONDS", 60)),
		ImageTimeout:     time.Second * time.Duration(getEnvInt("IMAGE_TIMEOUT_SECONDS", 90)),
		DownloadTimeout:  time.Second * time.Duration(getEnvInt("DOWNLOAD_TIMEOUT_SECONDS", 30)),
		UploadTimeout:    time.Second * time.Duration(getEnvInt("UPLOAD_TIMEOUT_SECONDS", 30)),
		MemeArchiveDir:   os.Getenv("MEME_ARCHIVE_DIR"),
		AllowedOrigins:   splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		HTTPReadTimeout:  time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		// The write timeout must outlast a synchronous /generate-concepts
		// run: up to ten 15s fetches plus a 60s model call before the
		// response is written.
		HTTPWriteTimeout: time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 300)),
		HTTPIdleTimeout:  time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
