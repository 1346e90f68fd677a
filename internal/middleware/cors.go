package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS returns a middleware that handles Cross-Origin Resource Sharing for
// the browser client. Credentials are allowed, so origins must be explicit.
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", RequestIDHeader},
		ExposedHeaders: []string{
			RequestIDHeader,
			"Content-Disposition",
			"X-RateLimit-Remaining",
			"X-RateLimit-Reset",
		},
		AllowCredentials: true,
		MaxAge:           86400,
	})
	return c.Handler
}
