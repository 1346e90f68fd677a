package middleware

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ValidateUUIDParam rejects requests whose URL parameter name is not a UUID.
// Resource ids are UUIDs, so a malformed id is answered like a missing one.
//
// Must be mounted inside the chi route that declares the parameter.
func ValidateUUIDParam(name, notFoundMessage string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if err := uuid.Validate(chi.URLParam(r, name)); err != nil {
				writeJSONError(w, http.StatusNotFound, "NOT_FOUND", notFoundMessage)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
