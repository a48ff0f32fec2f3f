package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/kulfy/kulfy-agent/internal/http/handlers"
	"github.com/kulfy/kulfy-agent/internal/middleware"
)

func NewRouter(app *handlers.App, log zerolog.Logger, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.CORS(allowedOrigins),
		middleware.Logger(log),
	)

	r.Get("/", app.Info)
	r.Get("/health", app.Health)
	r.Get("/status", app.Status)
	r.Post("/generate-memes", app.GenerateMemes)
	r.Post("/generate-concepts", app.GenerateConcepts)

	return r
}
