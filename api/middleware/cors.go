package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/solarflow/solarshop-backend/pkg/config"
)

// CORS returns middleware that applies the configured allowed origin policy.
func CORS(app config.AppConfig, session config.SessionConfig) func(http.Handler) http.Handler {
	headers := []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Requested-With", requestIDHeader}
	if session.CSRFHeader != "" {
		headers = append(headers, session.CSRFHeader)
	}
	return cors.New(cors.Options{
		AllowedOrigins:   app.AllowedOrigins(),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   headers,
		ExposedHeaders:   []string{requestIDHeader, "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
