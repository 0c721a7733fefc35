package middleware

import (
	"net/http"
	"time"

	"github.com/akolanti/LibraryRAG/internal/handlers"
	"github.com/akolanti/LibraryRAG/internal/metrics"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

type requestResponseStruct struct {
	writer     http.ResponseWriter
	req        *http.Request
	badRequest failureStruct
	logger     *logger_i.Logger
}

type failureStruct struct {
	isBadRequest bool
	httpCode     int
	errorMessage string
	id           string
}

var GetHandler = Wrap(handlers.GetHandler)

var ChatHandler = Wrap(handlers.ChatHandler)
var ChatUploadHandler = Wrap(handlers.ChatUploadHandler)
var GetStatusHandler = Wrap(handlers.GetStatusHandler)
var PostIngestHandler = Wrap(handlers.PostIngestHandler)
var PostBulkIngestHandler = Wrap(handlers.PostBulkIngestHandler)

var ListDocumentsHandler = Wrap(handlers.ListDocumentsHandler)
var GetDocumentHandler = Wrap(handlers.GetDocumentHandler)
var DocumentFileHandler = Wrap(handlers.DocumentFileHandler)
var DeleteDocumentHandler = Wrap(handlers.DeleteDocumentHandler)
var RebuildIndexHandler = Wrap(handlers.RebuildIndexHandler)
var IndexStatsHandler = Wrap(handlers.IndexStatsHandler)
var EventsHandler = Wrap(handlers.EventsHandler)

// Wrap runs trace, auth and rate limiting before next, then records the outcome.
func Wrap(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		rec := &metrics.HttpStatusRecorder{ResponseWriter: w, Status: http.StatusOK} //metrics
		re := processRequest(requestResponseStruct{req: r, writer: rec})

		if re.badRequest.isBadRequest {
			handleBadRequest(re)
		} else {
			next(rec, re.req)
		}
		metrics.CaptureHttpMetrics(routeOf(r), rec.Status, time.Since(started))
	}
}

// routeOf prefers the chi pattern so ids in the path do not explode the label set.
func routeOf(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

func processRequest(re requestResponseStruct) requestResponseStruct {
	re.logger = logger_i.NewLogger("middleware")
	re.logger.Info("New request received")
	re = injectTrace(re)
	if re.badRequest.isBadRequest {
		return re
	}
	re = authenticate(re)
	if re.badRequest.isBadRequest {
		return re //stop if auth fails
	}
	re = rateLimiter(re)

	return re
}
