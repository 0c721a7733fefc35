package openaiEmbedding

import (
	"context"
	"errors"
	"net/http"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/customHttpClient"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type client struct {
	api       openai.Client
	model     string
	dimension int64
	logger    *logger_i.Logger
}

func NewOpenAIEmbedder(apiKey string, model string, dimension int) embedding.Embedder {
	return &client{
		api: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(customHttpClient.GetClient()),
			option.WithMaxRetries(1),
		),
		model:     model,
		dimension: int64(dimension),
		logger:    logger_i.NewLogger("openai_embedding"),
	}
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(c.model),
		Dimensions: openai.Int(c.dimension),
	})
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests {
			log.Warn("OpenAI rate limit hit", "error", err)
		} else {
			log.Error("Error getting embedding from OpenAI", "error", err)
		}
		return nil, &ragErrors.EmbeddingError{Err: err}
	}
	if len(resp.Data) == 0 {
		return nil, &ragErrors.EmbeddingError{Err: errors.New("openai returned no embedding")}
	}

	values := resp.Data[0].Embedding
	vector := make([]float32, len(values))
	for i, v := range values {
		vector[i] = float32(v)
	}
	return vector, nil
}
