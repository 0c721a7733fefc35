package llm

import (
	"context"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

// Provider is the chat half of the language model service.
type Provider interface {
	Chat(ctx context.Context, messages []commonModels.Message) (string, error)
}
