package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Settings holds the values that differ per deployment. Everything else lives in the const block.
type Settings struct {
	ListenAddr    string
	AuthToken     string
	NoAuthBypass  bool
	RedisAddr     string
	RedisPassword string

	LLMProvider        string
	GoogleAPIKey       string
	OpenAIAPIKey       string
	ChatModel          string
	EmbeddingModel     string
	EmbeddingDimension int
	Classifier         string

	IndexBackend  string
	IndexCacheDir string
	QdrantHost    string
	QdrantPort    int

	StorageBackend       string
	LocalStorageDir      string
	DriveCredentialsFile string
	DriveRootFolder      string
	GCSBucket            string
	GCSCredentialsFile   string

	CatalogDriver string
	CatalogDSN    string

	MemoryThreshold int
	MemoryBlockSize int
	IngestPacing    time.Duration
}

var (
	settings     Settings
	settingsOnce sync.Once
)

// Get loads .env (if present) and the process environment once.
func Get() Settings {
	settingsOnce.Do(func() {
		_ = godotenv.Load()
		settings = load()
	})
	return settings
}

func load() Settings {
	provider := strings.ToLower(envString("LLM_PROVIDER", "gemini"))
	chatModel, embeddingModel := GeminiModelName, GoogleEmbeddingModel
	if provider == "openai" {
		chatModel, embeddingModel = OpenAIChatModel, OpenAIEmbeddingModel
	}

	pacing := ipsToInterval(envFloat("INGEST_PACING", IngestPacingPerSecond))

	return Settings{
		ListenAddr:    envString("LISTEN_ADDR", ServerListenAddr),
		AuthToken:     envString("AUTH_TOKEN", ""),
		NoAuthBypass:  envBool("NO_AUTH_BYPASS", false),
		RedisAddr:     envString("REDIS_ADDR", RedisAddr),
		RedisPassword: envString("REDIS_PASSWORD", ""),

		LLMProvider:        provider,
		GoogleAPIKey:       envString("GOOGLE_API_KEY", ""),
		OpenAIAPIKey:       envString("OPENAI_API_KEY", ""),
		ChatModel:          envString("CHAT_MODEL", chatModel),
		EmbeddingModel:     envString("EMBEDDING_MODEL", embeddingModel),
		EmbeddingDimension: envInt("EMBEDDING_DIMENSION", int(EmbeddingOutputDimensionality)),
		Classifier:         strings.ToLower(envString("CLASSIFIER", "llm")),

		IndexBackend:  strings.ToLower(envString("INDEX_BACKEND", "flat")),
		IndexCacheDir: envString("INDEX_CACHE_DIR", IndexCacheDir),
		QdrantHost:    envString("QDRANT_HOST", QdrantHost),
		QdrantPort:    envInt("QDRANT_PORT", QdrantGrpcPort),

		StorageBackend:       strings.ToLower(envString("STORAGE_BACKEND", StorageBackend)),
		LocalStorageDir:      envString("LOCAL_STORAGE_DIR", LocalStorageDir),
		DriveCredentialsFile: envString("DRIVE_CREDENTIALS_FILE", ""),
		DriveRootFolder:      envString("DRIVE_ROOT_FOLDER", ""),
		GCSBucket:            envString("GCS_BUCKET", ""),
		GCSCredentialsFile:   envString("GCS_CREDENTIALS_FILE", ""),

		CatalogDriver: strings.ToLower(envString("CATALOG_DRIVER", CatalogDriver)),
		CatalogDSN:    envString("CATALOG_DSN", CatalogDSN),

		MemoryThreshold: envInt("MEMORY_THRESHOLD", MemoryThreshold),
		MemoryBlockSize: envInt("MEMORY_BLOCK", MemoryBlockSize),
		IngestPacing:    pacing,
	}
}

func ipsToInterval(perSecond float64) time.Duration {
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / perSecond)
}

func envString(name string, def string) string {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	return v
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func envFloat(name string, def float64) float64 {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func envBool(name string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
