package resolver

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/metrics"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/embedding"
	"github.com/akolanti/LibraryRAG/internal/rag/ingest"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/memory"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

type Query struct {
	Text         string
	SessionId    string
	UploadedText string
}

type Answer struct {
	Text      string                  `json:"answer"`
	SourceTag commonModels.SourceTag  `json:"source_tag"`
	Intent    llm.Intent              `json:"intent"`
	Citations []commonModels.Citation `json:"citations,omitempty"`
}

// Resolver answers a query from the first tier that has something: exact catalog title, catalog substring,
// the uploaded document, the vector index, and finally the bare model.
type Resolver struct {
	catalog    catalog.Catalog
	classifier llm.Classifier
	embedder   embedding.Embedder
	index      vectorDB.Index
	chat       llm.Provider
	memory     *memory.Memory
	logger     *logger_i.Logger

	FuzzyCap      int
	UploadTopN    int
	UploadWindow  int
	UploadOverlap int
	IndexTopK     int
	CharBudget    int
}

func New(c catalog.Catalog, cl llm.Classifier, e embedding.Embedder, idx vectorDB.Index, chat llm.Provider, m *memory.Memory) *Resolver {
	return &Resolver{
		catalog:       c,
		classifier:    cl,
		embedder:      e,
		index:         idx,
		chat:          chat,
		memory:        m,
		logger:        logger_i.NewLogger("resolver"),
		FuzzyCap:      config.FuzzyMatchCap,
		UploadTopN:    config.UploadedSearchTopN,
		UploadWindow:  config.ChunkWindowSize,
		UploadOverlap: config.ChunkOverlap,
		IndexTopK:     config.IndexSearchTopK,
		CharBudget:    config.PromptCharBudget,
	}
}

// resolution is the state of one Resolve call. The query vector is computed at most once.
type resolution struct {
	Query
	intent  llm.Intent
	history []commonModels.Message
	log     *logger_i.Logger

	vector    []float32
	vectorErr error
	embedded  bool
}

// Resolve always returns an answer; collaborator failures only move the query to a later tier.
func (r *Resolver) Resolve(ctx context.Context, q Query) Answer {
	log := r.logger
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		log = log.With("traceId", traceId)
	}
	if q.SessionId != "" {
		log = log.With("sessionId", q.SessionId)
	}
	res := &resolution{Query: q, log: log}

	persist := false
	if r.memory != nil && q.SessionId != "" {
		unlock, err := r.memory.Lock(ctx, q.SessionId)
		if err != nil {
			log.Warn("session lock unavailable, answering without memory", "error", err)
		} else {
			defer unlock()
			persist = true
			if res.history, err = r.memory.History(ctx, q.SessionId); err != nil {
				log.Warn("history unavailable", "error", err)
			}
		}
	}

	res.intent = r.classify(ctx, res)
	answer := r.resolve(ctx, res)
	answer.Intent = res.intent
	metrics.CaptureResolvedQuery(string(answer.SourceTag), string(answer.Intent))

	if persist {
		err := r.memory.Append(ctx, q.SessionId,
			commonModels.Message{Role: commonModels.RoleUser, Content: q.Text},
			commonModels.Message{Role: commonModels.RoleAssistant, Content: answer.Text, Citations: answer.Citations},
		)
		if err != nil {
			log.Error("could not save turn to memory", "error", err)
		}
	}
	return answer
}

func (r *Resolver) classify(ctx context.Context, res *resolution) llm.Intent {
	if r.classifier == nil {
		return llm.General
	}
	callCtx, cancel := context.WithTimeout(ctx, config.ChatCallTimeout)
	defer cancel()
	intent, err := r.classifier.Classify(callCtx, res.Text)
	if err != nil {
		res.log.Warn("classification failed, treating as general", "error", err)
		return llm.General
	}
	return intent
}

// catalogTiers says which catalog tiers an intent runs. The retrieval tiers after them always run.
// A topic question is never a title, and a follow-up refers to the conversation instead of the catalog.
func catalogTiers(intent llm.Intent) (exact bool, fuzzy bool) {
	switch intent {
	case llm.TopicSearch:
		return false, true
	case llm.FollowUp:
		return false, false
	default:
		return true, true
	}
}

func (r *Resolver) resolve(ctx context.Context, res *resolution) Answer {
	exact, fuzzy := catalogTiers(res.intent)
	if exact {
		if a, ok := r.exactTier(ctx, res); ok {
			return a
		}
	}
	if fuzzy {
		if a, ok := r.fuzzyTier(ctx, res); ok {
			return a
		}
	}
	if strings.TrimSpace(res.UploadedText) != "" {
		if a, ok := r.contextTier(ctx, res, commonModels.SourceUploaded, r.uploadedPassages); ok {
			return a
		}
	}
	if a, ok := r.contextTier(ctx, res, commonModels.SourceVectorIndex, r.indexPassages); ok {
		return a
	}
	return r.genericTier(ctx, res)
}

func (r *Resolver) exactTier(ctx context.Context, res *resolution) (Answer, bool) {
	doc, found, err := r.catalog.LookupByNormalizedTitle(ctx, catalog.NormalizeQuery(res.Text))
	if err != nil {
		r.fellThrough(res, commonModels.SourceCatalogExact, err)
		return Answer{}, false
	}
	if !found {
		return Answer{}, false
	}
	return Answer{
		Text:      exactReply(doc),
		SourceTag: commonModels.SourceCatalogExact,
		Citations: citationsOf([]commonModels.DocumentEntity{doc}),
	}, true
}

func (r *Resolver) fuzzyTier(ctx context.Context, res *resolution) (Answer, bool) {
	needle := catalog.StripBoilerplate(res.Text)
	if len(needle) < 3 {
		return Answer{}, false
	}
	docs, err := r.catalog.SearchText(ctx, needle, r.FuzzyCap)
	if err != nil {
		r.fellThrough(res, commonModels.SourceCatalogFuzzy, err)
		return Answer{}, false
	}
	if len(docs) == 0 {
		return Answer{}, false
	}
	return Answer{
		Text:      fuzzyReply(needle, docs),
		SourceTag: commonModels.SourceCatalogFuzzy,
		Citations: citationsOf(docs),
	}, true
}

type passageSource func(ctx context.Context, res *resolution) ([]commonModels.PassageRecord, error)

// contextTier answers from retrieved passages. A chat failure here falls through so the generic tier can retry.
func (r *Resolver) contextTier(ctx context.Context, res *resolution, tag commonModels.SourceTag, source passageSource) (Answer, bool) {
	passages, err := source(ctx, res)
	if err != nil {
		r.fellThrough(res, tag, err)
		return Answer{}, false
	}
	if len(passages) == 0 {
		return Answer{}, false
	}

	prompt, used := buildContextPrompt(res.Text, passages, r.CharBudget)
	reply, err := r.ask(ctx, res, prompt)
	if err != nil {
		r.fellThrough(res, tag, err)
		return Answer{}, false
	}
	citations := dedupeCitations(used)
	return Answer{Text: withSources(reply, citations), SourceTag: tag, Citations: citations}, true
}

func (r *Resolver) genericTier(ctx context.Context, res *resolution) Answer {
	reply, err := r.ask(ctx, res, genericPrompt(res.Text))
	if err != nil {
		r.fellThrough(res, commonModels.SourceGeneric, err)
		reply = config.UnavailableMessage
	}
	return Answer{Text: reply, SourceTag: commonModels.SourceGeneric}
}

func (r *Resolver) uploadedPassages(ctx context.Context, res *resolution) ([]commonModels.PassageRecord, error) {
	chunks := ingest.Chunk(res.UploadedText, r.UploadWindow, r.UploadOverlap)
	if len(chunks) == 0 {
		return nil, nil
	}
	query, err := r.queryVector(ctx, res)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	batch := embedding.EmbedAll(ctx, r.embedder, chunks, config.UploadedEmbedWorkers, config.EmbeddingCallTimeout)
	metrics.CaptureExecutionMetrics("uploaded_embedding", time.Since(start))
	if batch.Succeeded() == 0 {
		return nil, errors.New("no uploaded chunk could be embedded")
	}

	type ranked struct {
		text  string
		score float64
		order int
	}
	candidates := make([]ranked, 0, batch.Succeeded())
	for i, v := range batch.Vectors {
		if v == nil {
			continue
		}
		candidates = append(candidates, ranked{text: chunks[i], score: embedding.Cosine(query, v), order: i})
	}
	sort.SliceStable(candidates, func(a, b int) bool { return candidates[a].score > candidates[b].score })

	n := min(r.UploadTopN, len(candidates))
	out := make([]commonModels.PassageRecord, 0, n)
	for _, c := range candidates[:n] {
		out = append(out, commonModels.PassageRecord{
			Id:        commonModels.PassageId("uploaded", c.order),
			Text:      c.text,
			SourceTag: commonModels.SourceUploaded,
		})
	}
	return out, nil
}

func (r *Resolver) indexPassages(ctx context.Context, res *resolution) ([]commonModels.PassageRecord, error) {
	if r.index == nil {
		return nil, nil
	}
	if err := r.index.Ensure(ctx); err != nil {
		return nil, err
	}
	query, err := r.queryVector(ctx, res)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return r.index.Search(ctx, query, r.IndexTopK)
}

func (r *Resolver) queryVector(ctx context.Context, res *resolution) ([]float32, error) {
	if res.embedded {
		return res.vector, res.vectorErr
	}
	res.embedded = true
	if r.embedder == nil {
		res.vectorErr = errors.New("no embedder configured")
		return nil, res.vectorErr
	}

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, config.EmbeddingCallTimeout)
	defer cancel()
	res.vector, res.vectorErr = embedding.EmbedQuery(callCtx, r.embedder, res.Text)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if res.vectorErr == nil && len(res.vector) == 0 {
		res.vectorErr = errors.New("empty query vector")
	}
	return res.vector, res.vectorErr
}

// ask sends the system prompt, the session history and the prompt in one chat call.
func (r *Resolver) ask(ctx context.Context, res *resolution, prompt string) (string, error) {
	if r.chat == nil {
		return "", errors.New("no chat model configured")
	}
	messages := make([]commonModels.Message, 0, len(res.history)+2)
	messages = append(messages, commonModels.Message{Role: commonModels.RoleSystem, Content: config.ModelContext})
	for _, h := range res.history {
		if h.Role == commonModels.RoleSummary {
			messages = append(messages, commonModels.Message{Role: commonModels.RoleSystem, Content: "Summary of the earlier conversation: " + h.Content})
			continue
		}
		messages = append(messages, commonModels.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, commonModels.Message{Role: commonModels.RoleUser, Content: prompt})

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, config.ChatCallTimeout)
	defer cancel()
	reply, err := r.chat.Chat(callCtx, messages)
	metrics.CaptureExecutionMetrics("llm_generation", time.Since(start))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(reply) == "" {
		return "", errors.New("empty reply from chat model")
	}
	return reply, nil
}

func (r *Resolver) fellThrough(res *resolution, tag commonModels.SourceTag, err error) {
	metrics.CaptureTierFailure(string(tag))
	res.log.Warn("tier failed, trying the next one", "tier", tag, "error", err)
}
