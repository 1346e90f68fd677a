package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dataroom/dataroom/internal/google"
	"github.com/dataroom/dataroom/internal/service"
)

// handleServiceError maps service errors to HTTP responses.
func handleServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var (
		validationErr *service.ValidationError
		googleErr     *google.Error
		importErr     *service.ImportError
	)

	switch {
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, CodeValidation, validationErr.Message)
	case errors.Is(err, service.ErrDataroomNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "Dataroom not found")
	case errors.Is(err, service.ErrFileNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "File not found")
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, CodeNotFound, "User not found")
	case errors.Is(err, service.ErrFileAlreadyImported):
		writeError(w, http.StatusConflict, CodeAlreadyExists, "This file has already been imported to this dataroom")
	case errors.Is(err, service.ErrImportInProgress):
		writeError(w, http.StatusConflict, "IMPORT_IN_PROGRESS", "This file is already being imported")
	case errors.Is(err, service.ErrGoogleNotConnected):
		writeError(w, http.StatusBadRequest, "GOOGLE_NOT_CONNECTED", "Please connect your Google account first")
	case errors.Is(err, service.ErrGoogleNotConfigured):
		writeError(w, http.StatusInternalServerError, CodeConfig, "GOOGLE_CLIENT_ID not configured. Check your .env file.")
	case errors.Is(err, service.ErrFileNotStored):
		writeError(w, http.StatusNotFound, "FILE_NOT_STORED", "File content not available")
	case errors.Is(err, service.ErrFileContentMissing):
		writeError(w, http.StatusNotFound, "FILE_NOT_FOUND", "File not found on disk")
	case errors.As(err, &googleErr):
		status := http.StatusInternalServerError
		if googleErr.Code == google.CodeOAuthRevoked {
			status = http.StatusUnauthorized
		}
		logger.Warn("google_error", "code", googleErr.Code, "error", err)
		writeError(w, status, googleErr.Code, googleErr.Message)
	case errors.As(err, &importErr):
		writeError(w, http.StatusInternalServerError, "IMPORT_FAILED", importErr.Error())
	default:
		writeInternalError(w, logger, err)
	}
}
