package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/akolanti/LibraryRAG/internal/adapter"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag"
)

func writeJsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		// Log the error but can't send a clean status code now
		logRH.Error("Error encoding response", "error", err)
	}
}

func validateId(id string, traceId string) (result jobModel.Job, isFound bool) {
	if id == "" {
		logRH.Warn("Empty Job ID")
		return jobModel.Job{}, false
	}
	return GetJobStatus(id, traceId)
}

func validateContext(ctx context.Context) bool {
	if ctx.Err() != nil {
		logRH.Warn("context error", "error", ctx.Err(), "traceId", ctx.Value(config.TRACE_ID_KEY))
		return false
	}

	select {
	case <-ctx.Done():
		logRH.Warn("context cancelled")
		return false
	default:
		return true

	}
}

func traceOf(r *http.Request) string {
	trace, _ := r.Context().Value(config.TRACE_ID_KEY).(string)
	return trace
}

func WriteErrorResponse(w http.ResponseWriter, httpCode int, id string, error string) {
	writeJsonResponse(w, httpCode, adapter.BadRequest(id, error, httpCode))
}

// readFormFile reads a multipart file field, writing the error response itself when it fails.
func readFormFile(w http.ResponseWriter, r *http.Request, field string) ([]byte, string, bool) {
	fileReader, fileMetadata, err := r.FormFile(field)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, field, "Could not retrieve file")
		return nil, "", false
	}
	defer fileReader.Close()

	data, err := io.ReadAll(fileReader)
	if err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, "Could not read file")
		return nil, "", false
	}
	if len(data) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, fileMetadata.Filename, "File is empty")
		return nil, "", false
	}
	return data, fileMetadata.Filename, true
}

func writeRegisterError(w http.ResponseWriter, id string, err error) {
	if rag.IsInputError(err) {
		WriteErrorResponse(w, http.StatusBadRequest, id, err.Error())
		return
	}
	logRH.Error("Document registration failed", "file", id, "error", err)
	WriteErrorResponse(w, http.StatusInternalServerError, id, "Storage or catalog error")
}

func writeLookupError(w http.ResponseWriter, id string, err error) {
	if errors.Is(err, ragErrors.ErrNotFound) {
		WriteErrorResponse(w, http.StatusNotFound, id, "Document not found")
		return
	}
	logRH.Error("Library call failed", "id", id, "error", err)
	WriteErrorResponse(w, http.StatusInternalServerError, id, "Library error")
}
