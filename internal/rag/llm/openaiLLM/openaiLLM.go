package openaiLLM

import (
	"context"
	"errors"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/customHttpClient"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type llmClient struct {
	api    openai.Client
	model  string
	logger *logger_i.Logger
}

func NewOpenAIClient(apiKey string, model string) llm.Provider {
	return &llmClient{
		api: openai.NewClient(
			option.WithAPIKey(apiKey),
			option.WithHTTPClient(customHttpClient.GetClient()),
			option.WithMaxRetries(1),
		),
		model:  model,
		logger: logger_i.NewLogger("llm_openai"),
	}
}

func (c *llmClient) Chat(ctx context.Context, messages []commonModels.Message) (string, error) {
	log := c.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case commonModels.RoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case commonModels.RoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}

	completion, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    params,
		Model:       openai.ChatModel(c.model),
		Temperature: openai.Float(float64(config.ModelTemperature)),
	})
	if err != nil {
		log.Error("OpenAI completion failed", "error", err)
		return "", err
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	text := strings.TrimSpace(completion.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai returned an empty answer")
	}
	return text, nil
}
