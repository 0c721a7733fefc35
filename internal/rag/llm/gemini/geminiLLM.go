package gemini

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/customHttpClient"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
	"google.golang.org/genai"
)

type llmClient struct {
	client    *genai.Client
	modelName string
}

var logger *logger_i.Logger
var geminiClient *llmClient
var once sync.Once

func GetGeminiClient(ctx context.Context, modelName string, apikey string) llm.Provider {
	once.Do(func() {
		logger = logger_i.NewLogger("llm_gemini")
		newGeminiClient(ctx, modelName, apikey)
	})

	if geminiClient == nil {
		return nil
	}
	return geminiClient
}

func newGeminiClient(ctx context.Context, modelName string, apikey string) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apikey, Backend: genai.BackendGeminiAPI, HTTPClient: customHttpClient.GetClient()})
	if err != nil {
		logger.Error("Error creating Gemini client", "error", err)
		return
	}
	geminiClient = &llmClient{client: c, modelName: modelName}
	logger.Info("Gemini client created", "model", modelName)
}

// Chat sends system messages as the system instruction and the rest as turns, assistant mapped to "model".
func (c *llmClient) Chat(ctx context.Context, messages []commonModels.Message) (string, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case commonModels.RoleSystem:
			system = append(system, m.Content)
		case commonModels.RoleAssistant:
			contents = append(contents, &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: m.Content}}})
		default:
			contents = append(contents, &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{{Text: m.Content}}})
		}
	}
	if len(contents) == 0 {
		return "", errors.New("no user content to send")
	}

	temperature := config.ModelTemperature
	contentConfig := &genai.GenerateContentConfig{Temperature: &temperature}
	if len(system) > 0 {
		contentConfig.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: strings.Join(system, "\n\n")}},
		}
	}

	result, err := c.client.Models.GenerateContent(ctx, c.modelName, contents, contentConfig)
	if err != nil {
		log.Error("Gemini generation failed", "error", err)
		return "", err
	}
	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", errors.New("gemini returned an empty answer")
	}
	return text, nil
}
