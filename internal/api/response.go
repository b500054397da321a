// Package api provides HTTP response utilities for MicroTutor.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/BTreeMap/MicroTutor/internal/models"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 64 << 10

// Pre-marshaled fallback responses to avoid runtime JSON encoding failures
var (
	fallbackErrorResponse []byte
)

// init validates that our fallback responses can be marshaled
func init() {
	var err error
	fallbackErrorResponse, err = json.Marshal(models.Error("Internal server error"))
	if err != nil {
		panic(fmt.Sprintf("Failed to marshal fallback error response at startup: %v", err))
	}
}

// writeJSONResponse writes a JSON response to the http.ResponseWriter with the given status code.
func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	// Marshal first so encoding errors are caught before headers are written.
	jsonData, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.writeJSONResponse: failed to marshal JSON response", "error", err)
		jsonData = fallbackErrorResponse
		statusCode = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, writeErr := w.Write(jsonData); writeErr != nil {
		slog.Error("Server.writeJSONResponse: failed to write JSON response", "error", writeErr)
	}
}

// statusForError maps domain errors to HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, models.ErrSessionNotFound),
		errors.Is(err, models.ErrUnknownModule),
		errors.Is(err, models.ErrUnknownTurn):
		return http.StatusNotFound
	case errors.Is(err, models.ErrGenerationInFlight),
		errors.Is(err, models.ErrStaleReply):
		return http.StatusConflict
	case errors.Is(err, models.ErrEmptyInput),
		errors.Is(err, models.ErrInvalidView),
		errors.Is(err, models.ErrNotTutorTurn),
		errors.Is(err, models.ErrNoTaskOptions),
		errors.Is(err, models.ErrUnknownTaskOption),
		errors.Is(err, models.ErrNoQuiz),
		errors.Is(err, models.ErrQuizOptionOutOfRange),
		errors.Is(err, models.ErrMissingQuizIndex),
		errors.Is(err, models.ErrNoRedirect):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes the error response for err, hiding internal details.
func writeError(w http.ResponseWriter, where string, err error) {
	status := statusForError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error(where+": request failed", "error", err)
		msg = "Internal server error"
	} else {
		slog.Warn(where+": request rejected", "status", status, "error", err)
	}
	writeJSONResponse(w, status, models.Error(msg))
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v unchanged.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
