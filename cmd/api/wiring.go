package main

import (
	"context"
	"fmt"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/redisStore"
	"github.com/akolanti/LibraryRAG/internal/data/store"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding/googleEmbedding"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding/openaiEmbedding"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/llm/gemini"
	"github.com/akolanti/LibraryRAG/internal/rag/llm/openaiLLM"
	"github.com/akolanti/LibraryRAG/internal/rag/memory"
	"github.com/akolanti/LibraryRAG/internal/rag/notify"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore/driveStore"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore/gcsStore"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore/localStore"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB/flatIndex"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB/qdrantDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

func newObjectStore(ctx context.Context, settings config.Settings) (objectStore.Provider, error) {
	switch settings.StorageBackend {
	case "drive":
		return driveStore.New(ctx, settings.DriveCredentialsFile, settings.DriveRootFolder)
	case "gcs":
		s, err := gcsStore.New(ctx, settings.GCSBucket, settings.GCSCredentialsFile)
		if err != nil {
			return nil, err
		}
		go func() {
			<-ctx.Done()
			_ = s.Close()
		}()
		return s, nil
	case "local", "":
		return localStore.New(settings.LocalStorageDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.StorageBackend)
	}
}

func newModels(ctx context.Context, settings config.Settings) (embedding.Embedder, llm.Provider, error) {
	switch settings.LLMProvider {
	case "openai":
		if settings.OpenAIAPIKey == "" {
			return nil, nil, fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
		return openaiEmbedding.NewOpenAIEmbedder(settings.OpenAIAPIKey, settings.EmbeddingModel, settings.EmbeddingDimension),
			openaiLLM.NewOpenAIClient(settings.OpenAIAPIKey, settings.ChatModel), nil
	case "gemini":
		embedder := googleEmbedding.GetGoogleEmbeddingClient(ctx, settings.EmbeddingModel, settings.GoogleAPIKey, int32(settings.EmbeddingDimension))
		chat := gemini.GetGeminiClient(ctx, settings.ChatModel, settings.GoogleAPIKey)
		if embedder == nil || chat == nil {
			return nil, nil, fmt.Errorf("gemini clients failed to initialize")
		}
		return embedder, chat, nil
	default:
		return nil, nil, fmt.Errorf("unknown llm provider %q", settings.LLMProvider)
	}
}

func newClassifier(settings config.Settings, chat llm.Provider) llm.Classifier {
	if settings.Classifier == "rules" {
		return llm.RuleClassifier{}
	}
	return llm.FallbackClassifier{Primary: llm.NewLLMClassifier(chat), Secondary: llm.RuleClassifier{}}
}

// newIndex returns the flat snapshot index mirrored to object storage, or qdrant when configured.
func newIndex(ctx context.Context, settings config.Settings, storage objectStore.Provider) (vectorDB.Index, error) {
	if settings.IndexBackend == "qdrant" {
		return qdrantDB.New(ctx, settings.QdrantHost, settings.QdrantPort, settings.EmbeddingDimension)
	}
	return flatIndex.New(settings.IndexCacheDir, storage, config.IndexRemoteFolder), nil
}

// newMemory keeps sessions in redis when it is reachable, in process otherwise.
func newMemory(ctx context.Context, settings config.Settings, chat llm.Provider, logger *logger_i.Logger) *memory.Memory {
	if s := redisStore.GetRedisStore(ctx, config.RedisSessionStore); s != nil {
		return memory.New(store.NewRedisSessionStore(s), store.NewRedisLocker(s), chat, settings.MemoryThreshold, settings.MemoryBlockSize)
	}
	logger.Warn("Redis session store is offline, sessions are kept in memory")
	return memory.New(store.InitInMemorySessionStore(), memory.NewLocalLocker(), chat, settings.MemoryThreshold, settings.MemoryBlockSize)
}

// newNotifier publishes through redis pub/sub when available and relays the channel into the local broker,
// so every instance's SSE clients see every completion.
func newNotifier(ctx context.Context, broker *notify.Broker, logger *logger_i.Logger) notify.Publisher {
	bus := redisStore.GetRedisStore(ctx, config.RedisEventBus)
	if bus == nil {
		logger.Warn("Redis event bus is offline, notifications stay in process")
		return broker
	}
	publisher := notify.NewRedisPublisher(bus, config.NotificationChannel)
	go publisher.Relay(ctx, broker)
	return publisher
}
