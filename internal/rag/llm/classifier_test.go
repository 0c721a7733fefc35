package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	answer string
	err    error
}

func (s stubProvider) Chat(ctx context.Context, messages []commonModels.Message) (string, error) {
	return s.answer, s.err
}

func TestRuleClassifier(t *testing.T) {
	tests := []struct {
		query string
		want  Intent
	}{
		{"Who is the author of Solar Powered Irrigation?", ExactLookup},
		{"author of deep learning for crops", ExactLookup},
		{"who wrote the thesis on flood mapping", ExactLookup},
		{"theses about renewable energy", TopicSearch},
		{"find studies on water quality", TopicSearch},
		{"tell me more", FollowUp},
		{"what about the methodology of that thesis", FollowUp},
		{"How does photosynthesis work?", General},
		{"", General},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := RuleClassifier{}.Classify(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLLMClassifier(t *testing.T) {
	t.Run("parses label", func(t *testing.T) {
		c := NewLLMClassifier(stubProvider{answer: " TopicSearch.\n"})
		got, err := c.Classify(context.Background(), "anything")
		require.NoError(t, err)
		assert.Equal(t, TopicSearch, got)
	})

	t.Run("provider failure is a classification error", func(t *testing.T) {
		c := NewLLMClassifier(stubProvider{err: errors.New("quota")})
		got, err := c.Classify(context.Background(), "anything")
		var classErr *ragErrors.ClassificationError
		require.ErrorAs(t, err, &classErr)
		assert.Equal(t, General, got)
	})

	t.Run("unknown label is a classification error", func(t *testing.T) {
		c := NewLLMClassifier(stubProvider{answer: "Poetry"})
		_, err := c.Classify(context.Background(), "anything")
		var classErr *ragErrors.ClassificationError
		assert.ErrorAs(t, err, &classErr)
	})
}

func TestFallbackClassifier(t *testing.T) {
	f := FallbackClassifier{
		Primary:   NewLLMClassifier(stubProvider{err: errors.New("down")}),
		Secondary: RuleClassifier{},
	}
	got, err := f.Classify(context.Background(), "who wrote Rice Yield Forecasting")
	require.NoError(t, err)
	assert.Equal(t, ExactLookup, got)
}
