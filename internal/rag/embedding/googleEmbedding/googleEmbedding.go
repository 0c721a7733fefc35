package googleEmbedding

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/customHttpClient"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	genAi     *genai.Client
	model     string
	dimension int32
}

func newGoogleEmbedder(ctx context.Context, modelName string, apikey string, dimension int32) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: customHttpClient.GetClient()})
	if err != nil {
		logger.Error("Error creating Google Embedding client", "error", err)
		return
	}
	embeddingClient = &client{
		genAi:     c,
		model:     modelName,
		dimension: dimension,
	}
	logger.Info("Google Embedding client created", "model", modelName, "dimension", dimension)
}

func GetGoogleEmbeddingClient(ctx context.Context, modelName string, apikey string, dimension int32) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("google_embedding")
		newGoogleEmbedder(ctx, modelName, apikey, dimension)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

const (
	taskDocument = "RETRIEVAL_DOCUMENT"
	taskQuery    = "RETRIEVAL_QUERY"
)

// GetEmbedding embeds a passage for storage in the index.
func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskDocument)
}

// GetQueryEmbedding embeds a question that is searched against stored passages.
func (c *client) GetQueryEmbedding(ctx context.Context, text string) ([]float32, error) {
	return c.embed(ctx, text, taskQuery)
}

func (c *client) embed(ctx context.Context, text string, task string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "task", task)

	result, err := c.doCall(ctx, text, task)
	if err != nil && isRateLimited(err) {
		log.Warn("Rate limit hit, retrying once", "wait", config.EmbeddingRateLimitWait)
		select {
		case <-ctx.Done():
			return nil, &ragErrors.EmbeddingError{Err: ctx.Err()}
		case <-time.After(config.EmbeddingRateLimitWait):
		}
		result, err = c.doCall(ctx, text, task)
	}
	if err != nil {
		log.Error("Error getting Embeddings from Google", "error", err)
		return nil, &ragErrors.EmbeddingError{Err: err}
	}
	if result == nil || len(result.Embeddings) == 0 || result.Embeddings[0] == nil {
		return nil, &ragErrors.EmbeddingError{Err: errors.New("google returned no embedding")}
	}
	return result.Embeddings[0].Values, nil
}

func (c *client) doCall(ctx context.Context, text string, task string) (*genai.EmbedContentResponse, error) {
	return c.genAi.Models.EmbedContent(ctx, c.model, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &c.dimension,
		TaskType:             task,
	})
}

func isRateLimited(err error) bool {
	if s, ok := status.FromError(err); ok && s.Code() == codes.ResourceExhausted {
		return true
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests
	}
	return false
}
