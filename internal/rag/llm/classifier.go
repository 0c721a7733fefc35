package llm

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
)

type Intent string

const (
	ExactLookup Intent = "ExactLookup"
	TopicSearch Intent = "TopicSearch"
	FollowUp    Intent = "FollowUp"
	General     Intent = "General"
)

var intents = []Intent{ExactLookup, TopicSearch, FollowUp, General}

// Classifier decides which resolver tiers a query should go through.
type Classifier interface {
	Classify(ctx context.Context, query string) (Intent, error)
}

// RuleClassifier is the offline classifier, phrase based.
type RuleClassifier struct{}

var (
	exactLookupPattern = regexp.MustCompile(`(?i)^\s*(who\s+(is|are|was|were)\s+the\s+authors?\s+of|authors?\s+of|who\s+wrote|who\s+authored)\b`)
	topicPattern       = regexp.MustCompile(`(?i)\b(theses|thesis|studies|study|research|papers?)\s+(about|on|regarding|related\s+to)\b|^\s*(find|list|show\s+me|search(\s+for)?)\b`)
	followUpPattern    = regexp.MustCompile(`(?i)^\s*(and|what\s+about|how\s+about|tell\s+me\s+more|more\s+on|elaborate|explain\s+(that|it|further)|why\s+(is|was)\s+(that|it))\b|\b(this|that|the\s+same)\s+(thesis|study|paper|one)\b`)
)

func (RuleClassifier) Classify(_ context.Context, query string) (Intent, error) {
	switch {
	case strings.TrimSpace(query) == "":
		return General, nil
	case exactLookupPattern.MatchString(query):
		return ExactLookup, nil
	case followUpPattern.MatchString(query):
		return FollowUp, nil
	case topicPattern.MatchString(query):
		return TopicSearch, nil
	default:
		return General, nil
	}
}

const classifyPrompt = `Classify the user's question about a thesis library into exactly one label.
ExactLookup: asks for a specific thesis by its title, for example its author.
TopicSearch: asks which theses exist about a subject.
FollowUp: refers back to something said earlier in the conversation.
General: anything else.
Answer with the label only.`

// LLMClassifier asks the chat model for a label. Any failure is a *ragErrors.ClassificationError.
type LLMClassifier struct {
	provider Provider
}

func NewLLMClassifier(provider Provider) *LLMClassifier {
	return &LLMClassifier{provider: provider}
}

func (c *LLMClassifier) Classify(ctx context.Context, query string) (Intent, error) {
	answer, err := c.provider.Chat(ctx, []commonModels.Message{
		{Role: commonModels.RoleSystem, Content: classifyPrompt},
		{Role: commonModels.RoleUser, Content: query},
	})
	if err != nil {
		return General, &ragErrors.ClassificationError{Op: "classify", Err: err}
	}
	intent, ok := ParseIntent(answer)
	if !ok {
		return General, &ragErrors.ClassificationError{Op: "classify", Err: fmt.Errorf("unrecognised label %q", answer)}
	}
	return intent, nil
}

func ParseIntent(label string) (Intent, bool) {
	cleaned := strings.ToLower(strings.Trim(strings.TrimSpace(label), ".`*\"'"))
	for _, in := range intents {
		if cleaned == strings.ToLower(string(in)) {
			return in, true
		}
	}
	return General, false
}

// FallbackClassifier tries primary and falls back to secondary, keeping the primary error visible.
type FallbackClassifier struct {
	Primary   Classifier
	Secondary Classifier
}

func (f FallbackClassifier) Classify(ctx context.Context, query string) (Intent, error) {
	intent, err := f.Primary.Classify(ctx, query)
	if err == nil {
		return intent, nil
	}
	intent, secondErr := f.Secondary.Classify(ctx, query)
	if secondErr != nil {
		return General, errors.Join(err, secondErr)
	}
	return intent, nil
}
