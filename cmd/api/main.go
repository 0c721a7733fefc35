// @title           Thesis Library RAG API
// @version         1.0
// @description     Asynchronous question answering and ingestion over a thesis library.
// @termsOfService  http://swagger.io/terms/

// @contact.name    API Support
// @contact.url
// @contact.email

// @license.name    Apache 2.0
// @license.url     http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:3000
// @BasePath  /
// @schemes   http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/store"
	jobmodel "github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/handlers"
	"github.com/akolanti/LibraryRAG/internal/job"
	"github.com/akolanti/LibraryRAG/internal/mcpServer"
	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog/sqlCatalog"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
	"github.com/akolanti/LibraryRAG/internal/server"
	"github.com/akolanti/LibraryRAG/internal/worker"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var (
	listenAddr        string
	requestCount      int64
	stopWorkerChannel chan bool
	workerWaitGroup   sync.WaitGroup
)

func main() {

	logger_i.Init()
	defer logger_i.Sync()
	var logger = logger_i.NewLogger("main")

	//config
	settings := config.Get()
	flag.StringVar(&listenAddr, "listen-addr", settings.ListenAddr, "server listen address")
	flag.Parse()

	//init buffered job channel
	jobChannel := make(chan jobmodel.Job, config.BufferLimit)
	dispatcherChannel := make(chan bool, 1)
	stopWorkerChannel = make(chan bool, 1)

	serviceContext, closeExternalServices := context.WithCancel(context.Background())
	defer closeExternalServices()

	//init job service and job store
	serviceConfig := job.ServiceConfig{
		JobChannel:        jobChannel,
		RequestCount:      requestCount,
		DispatcherChannel: dispatcherChannel,
	}
	logger.Info("Starting job service")

	if redisJobs := store.GetRedisJobStore(serviceContext); redisJobs != nil {
		serviceConfig.JobStore = redisJobs
	} else {
		logger.Error("Redis job store is offline, jobs are kept in memory")
		serviceConfig.JobStore = store.InitInMemoryJobStore()
	}
	service := job.InitJobService(serviceConfig)

	//external services
	storage, err := newObjectStore(serviceContext, settings)
	if err != nil {
		logger.Error("Object storage failed to initialize. Shutting down.", "backend", settings.StorageBackend, "error", err)
		return
	}
	catalogDB, err := sqlCatalog.Open(serviceContext, settings.CatalogDriver, settings.CatalogDSN)
	if err != nil {
		logger.Error("Catalog failed to initialize. Shutting down.", "driver", settings.CatalogDriver, "error", err)
		return
	}
	defer catalogDB.Close()

	embeddingService, llmProvider, err := newModels(serviceContext, settings)
	if err != nil {
		logger.Error("Model clients failed to initialize. Shutting down.", "provider", settings.LLMProvider, "error", err)
		return
	}
	index, err := newIndex(serviceContext, settings, storage)
	if err != nil {
		logger.Error("Vector index failed to initialize. Shutting down.", "backend", settings.IndexBackend, "error", err)
		return
	}
	logger.Debug("Available services", "storage", settings.StorageBackend, "index", settings.IndexBackend, "llm", settings.LLMProvider)

	broker := notify.NewBroker(config.BufferLimit)
	deps := rag.Dependencies{
		Catalog:    catalogDB,
		Storage:    storage,
		Index:      index,
		Embedder:   embeddingService,
		Chat:       llmProvider,
		Classifier: newClassifier(settings, llmProvider),
		Memory:     newMemory(serviceContext, settings, llmProvider, logger),
		Publisher:  newNotifier(serviceContext, broker, logger),
		Pacing:     settings.IngestPacing,
	}
	ragService, library := rag.New(deps)

	handlers.InitJobHandler(service, library, broker)

	mcp, err := mcpServer.NewServer(library)
	if err != nil {
		logger.Error("MCP server failed to initialize", "error", err)
		return
	}

	//init worker pool
	worker.InitServices(service, ragService)
	worker.InitWorkerPool(stopWorkerChannel, &workerWaitGroup)

	//server handling
	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)
	stopExecution := make(chan bool, 1)

	shutdownParams := server.ShutdownParams{
		GracefulShutdown: gracefulShutdown,
		StopExecution:    stopExecution,
		WorkerStop:       stopWorkerChannel,
		Group:            &workerWaitGroup,
		CloseServices:    closeExternalServices,
	}
	go server.ShutDownHandler(shutdownParams)
	go server.CreateServer(listenAddr, mcp.Handler())

	<-stopExecution
	logger.Info("Server stopped")
}
