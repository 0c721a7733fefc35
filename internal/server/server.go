package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/middleware"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/go-chi/chi/v5"
)

var (
	server  *http.Server
	_logger *logger_i.Logger
)

type ShutdownParams struct {
	GracefulShutdown chan os.Signal
	StopExecution    chan bool
	WorkerStop       chan bool
	Group            *sync.WaitGroup
	CloseServices    context.CancelFunc
}

// Routes builds the full API surface. mcpHandler is optional.
func Routes(mcpHandler http.Handler) http.Handler {
	r := utils.NewRouter()

	r.Get("/health", middleware.GetHandler)

	r.Route("/chat", func(c chi.Router) {
		c.Post("/", middleware.ChatHandler)
		c.Post("/upload", middleware.ChatUploadHandler)
	})
	r.Get("/status/{id}", middleware.GetStatusHandler)

	r.Route("/ingest", func(i chi.Router) {
		i.Post("/", middleware.PostIngestHandler)
		i.Post("/bulk", middleware.PostBulkIngestHandler)
	})
	r.Route("/documents", func(d chi.Router) {
		d.Get("/", middleware.ListDocumentsHandler)
		d.Get("/{id}", middleware.GetDocumentHandler)
		d.Get("/{id}/file", middleware.DocumentFileHandler)
		d.Delete("/{id}", middleware.DeleteDocumentHandler)
	})
	r.Route("/index", func(x chi.Router) {
		x.Post("/rebuild", middleware.RebuildIndexHandler)
		x.Get("/stats", middleware.IndexStatsHandler)
	})
	r.Get("/events", middleware.EventsHandler)

	if mcpHandler != nil {
		r.Handle("/mcp", middleware.Wrap(mcpHandler.ServeHTTP))
	}
	return r
}

// CreateServer blocks serving Routes until the server is shut down.
func CreateServer(listenAddr string, mcpHandler http.Handler) {
	_logger = logger_i.NewLogger("Server")

	server = &http.Server{
		Addr:         listenAddr,
		Handler:      Routes(mcpHandler),
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	_logger.Info("Server is listening at", "address", listenAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_logger.Error("Server crashed", "error", err.Error(), "addr", listenAddr)
	}
}

func ShutDownHandler(shutdownParams ShutdownParams) {
	state := <-shutdownParams.GracefulShutdown
	if _logger == nil {
		_logger = logger_i.NewLogger("Server")
	}
	_logger.Info("Server is shutting down", "signal", state.String())

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownContextTimeout)
	defer cancel()

	done := make(chan struct{})

	go func() {
		if server != nil {
			server.SetKeepAlivesEnabled(false)
			if err := server.Shutdown(ctx); err != nil {
				_logger.Error("Could not shutdown gracefully", "error", err)
			}
		}

		//close workers
		close(shutdownParams.WorkerStop)
		shutdownParams.Group.Wait()
		shutdownParams.CloseServices()
		close(shutdownParams.StopExecution)
		close(done)
	}()

	select {
	case <-done:
		_logger.Info("Gracefully is shutting down")
	case <-ctx.Done():
		_logger.Info("Force Shut down")
		os.Exit(1)
	}
}
