package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/store"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/memory"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB/flatIndex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

type mockCatalog struct {
	docs          []commonModels.DocumentEntity
	lookups       int
	searches      int
	lastLimit     int
	OnSearchError error
}

func (m *mockCatalog) Create(_ context.Context, doc commonModels.DocumentEntity) (commonModels.DocumentEntity, error) {
	m.docs = append(m.docs, doc)
	return doc, nil
}
func (m *mockCatalog) Get(_ context.Context, id string) (commonModels.DocumentEntity, error) {
	for _, d := range m.docs {
		if d.Id == id {
			return d, nil
		}
	}
	return commonModels.DocumentEntity{}, ragErrors.ErrNotFound
}
func (m *mockCatalog) LookupByNormalizedTitle(_ context.Context, normalized string) (commonModels.DocumentEntity, bool, error) {
	m.lookups++
	for _, d := range m.docs {
		if normalized != "" && catalog.NormalizeTitle(d.Title) == normalized {
			return d, true, nil
		}
	}
	return commonModels.DocumentEntity{}, false, nil
}
func (m *mockCatalog) SearchText(_ context.Context, query string, limit int) ([]commonModels.DocumentEntity, error) {
	m.searches++
	m.lastLimit = limit
	if m.OnSearchError != nil {
		return nil, m.OnSearchError
	}
	var out []commonModels.DocumentEntity
	for _, d := range m.docs {
		if strings.Contains(strings.ToLower(d.Title+" "+d.Abstract), strings.ToLower(query)) && len(out) < limit {
			out = append(out, d)
		}
	}
	return out, nil
}
func (m *mockCatalog) SearchTitleAuthors(context.Context, string, int) ([]commonModels.DocumentEntity, error) {
	return nil, nil
}
func (m *mockCatalog) List(context.Context, catalog.ListFilter) (catalog.Page, error) {
	return catalog.Page{}, nil
}
func (m *mockCatalog) SetStatus(context.Context, string, commonModels.DocStatus) error { return nil }
func (m *mockCatalog) Delete(context.Context, string) error                            { return nil }

type mockEmbedder struct {
	mu      sync.Mutex
	calls   map[string]int
	OnEmbed func(text string) ([]float32, error)
}

func (m *mockEmbedder) GetEmbedding(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	if m.calls == nil {
		m.calls = map[string]int{}
	}
	m.calls[text]++
	m.mu.Unlock()
	return m.OnEmbed(text)
}

func (m *mockEmbedder) total() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		n += c
	}
	return n
}

// queryAwareEmbedder embeds questions through a separate query call.
type queryAwareEmbedder struct {
	mockEmbedder
	queries map[string]int
}

func (q *queryAwareEmbedder) GetQueryEmbedding(_ context.Context, text string) ([]float32, error) {
	q.mu.Lock()
	if q.queries == nil {
		q.queries = map[string]int{}
	}
	q.queries[text]++
	q.mu.Unlock()
	return q.OnEmbed(text)
}

// keywordVector puts "solar" on the x axis and "wind" on the y axis.
func keywordVector(text string) ([]float32, error) {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "solar"):
		return []float32{1, 0}, nil
	case strings.Contains(t, "wind"):
		return []float32{0, 1}, nil
	default:
		return []float32{0.5, 0.5}, nil
	}
}

type mockChat struct {
	prompts [][]commonModels.Message
	OnChat  func(messages []commonModels.Message) (string, error)
}

func (m *mockChat) Chat(_ context.Context, messages []commonModels.Message) (string, error) {
	m.prompts = append(m.prompts, messages)
	return m.OnChat(messages)
}

func (m *mockChat) lastPrompt() string {
	if len(m.prompts) == 0 {
		return ""
	}
	last := m.prompts[len(m.prompts)-1]
	return last[len(last)-1].Content
}

type fixedClassifier struct {
	intent llm.Intent
	err    error
}

func (f fixedClassifier) Classify(context.Context, string) (llm.Intent, error) {
	return f.intent, f.err
}

func answering(reply string) *mockChat {
	return &mockChat{OnChat: func([]commonModels.Message) (string, error) { return reply, nil }}
}

func seededIndex(t *testing.T, records []commonModels.PassageRecord, vectors [][]float32) *flatIndex.Index {
	t.Helper()
	idx := flatIndex.New(t.TempDir(), nil, "")
	require.NoError(t, idx.Ensure(context.Background()))
	if len(records) > 0 {
		_, err := idx.Merge(context.Background(), records, vectors)
		require.NoError(t, err)
	}
	return idx
}

func passage(doc string, ordinal int, title string, year int, text string) commonModels.PassageRecord {
	return commonModels.PassageRecord{
		Id:         commonModels.PassageId(doc, ordinal),
		DocumentId: doc,
		Title:      title,
		Year:       year,
		Text:       text,
		SourceTag:  commonModels.SourceVectorIndex,
	}
}

var solarDryers = commonModels.DocumentEntity{
	Id: "d1", Title: "Solar Dryers for Rural Farms", Authors: "A. Cruz", Program: "BSME", Year: 2019,
	LocationRef: "theses/d1.pdf",
}

// --- Tiers ---

func TestResolve_ExactMatchSkipsModels(t *testing.T) {
	cat := &mockCatalog{docs: []commonModels.DocumentEntity{solarDryers}}
	emb := &mockEmbedder{OnEmbed: keywordVector}
	chat := answering("unused")
	r := New(cat, fixedClassifier{intent: llm.ExactLookup}, emb, seededIndex(t, nil, nil), chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "Who is the author of solar dryers for rural farms?"})

	assert.Equal(t, commonModels.SourceCatalogExact, answer.SourceTag)
	assert.Contains(t, answer.Text, "**A. Cruz**")
	assert.Contains(t, answer.Text, "BSME (2019)")
	assert.Contains(t, answer.Text, "/documents/d1/file")
	assert.Equal(t, []commonModels.Citation{{Title: solarDryers.Title, Year: 2019}}, answer.Citations)
	assert.Equal(t, 0, emb.total(), "exact match must not embed")
	assert.Empty(t, chat.prompts, "exact match must not call the chat model")
}

func TestResolve_FuzzyListsMatches(t *testing.T) {
	cat := &mockCatalog{docs: []commonModels.DocumentEntity{
		solarDryers,
		{Id: "d2", Title: "Solar Cell Efficiency", Authors: "B. Reyes", Program: "BSEE", Year: 2021},
		{Id: "d3", Title: "Wind Turbines", Authors: "C. Santos", Program: "BSME", Year: 2020},
	}}
	r := New(cat, fixedClassifier{intent: llm.TopicSearch}, &mockEmbedder{OnEmbed: keywordVector}, nil, answering("unused"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "solar"})

	assert.Equal(t, commonModels.SourceCatalogFuzzy, answer.SourceTag)
	assert.True(t, strings.HasPrefix(answer.Text, `I found 2 theses matching "solar":`), answer.Text)
	assert.Contains(t, answer.Text, "1. **Solar Dryers for Rural Farms** by A. Cruz")
	assert.NotContains(t, answer.Text, "Wind Turbines")
	assert.Len(t, answer.Citations, 2)
}

func TestResolve_FuzzyIsCapped(t *testing.T) {
	cat := &mockCatalog{}
	for i := 0; i < 45; i++ {
		cat.docs = append(cat.docs, commonModels.DocumentEntity{Id: fmt.Sprint(i), Title: fmt.Sprintf("Irrigation Study %d", i), Year: 2000 + i})
	}
	r := New(cat, fixedClassifier{intent: llm.TopicSearch}, nil, nil, answering("unused"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "irrigation"})

	assert.Equal(t, commonModels.SourceCatalogFuzzy, answer.SourceTag)
	assert.Equal(t, config.FuzzyMatchCap, cat.lastLimit)
	assert.Contains(t, answer.Text, "I found 30 theses")
}

func TestResolve_ShortResidueSkipsFuzzy(t *testing.T) {
	cat := &mockCatalog{docs: []commonModels.DocumentEntity{solarDryers}}
	r := New(cat, fixedClassifier{intent: llm.General}, nil, nil, answering("generic answer"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "ai"})

	assert.Equal(t, 0, cat.searches)
	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
}

func TestResolve_FollowUpSkipsCatalog(t *testing.T) {
	cat := &mockCatalog{docs: []commonModels.DocumentEntity{solarDryers}}
	records := []commonModels.PassageRecord{passage("d1", 0, solarDryers.Title, 2019, "solar drying results")}
	idx := seededIndex(t, records, [][]float32{{1, 0}})
	chat := answering("The dryer cut moisture by half.")
	r := New(cat, fixedClassifier{intent: llm.FollowUp}, &mockEmbedder{OnEmbed: keywordVector}, idx, chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "Solar Dryers for Rural Farms"})

	assert.Equal(t, 0, cat.lookups)
	assert.Equal(t, 0, cat.searches)
	assert.Equal(t, commonModels.SourceVectorIndex, answer.SourceTag)
	assert.Equal(t, llm.FollowUp, answer.Intent)
}

func TestResolve_TopicSearchSkipsExactTier(t *testing.T) {
	cat := &mockCatalog{docs: []commonModels.DocumentEntity{solarDryers}}
	r := New(cat, fixedClassifier{intent: llm.TopicSearch}, nil, nil, answering("unused"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "Solar Dryers for Rural Farms"})

	assert.Equal(t, 0, cat.lookups)
	assert.Equal(t, commonModels.SourceCatalogFuzzy, answer.SourceTag)
}

func TestCatalogTiers(t *testing.T) {
	tests := []struct {
		intent       llm.Intent
		exact, fuzzy bool
	}{
		{llm.ExactLookup, true, true},
		{llm.General, true, true},
		{llm.TopicSearch, false, true},
		{llm.FollowUp, false, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.intent), func(t *testing.T) {
			exact, fuzzy := catalogTiers(tt.intent)
			assert.Equal(t, tt.exact, exact)
			assert.Equal(t, tt.fuzzy, fuzzy)
		})
	}
}

func TestResolve_CatalogErrorFallsThrough(t *testing.T) {
	cat := &mockCatalog{OnSearchError: errors.New("catalog offline")}
	r := New(cat, fixedClassifier{intent: llm.TopicSearch}, nil, nil, answering("generic answer"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "solar drying"})

	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
	assert.Equal(t, "generic answer", answer.Text)
}

func TestResolve_UploadedRankedByCosine(t *testing.T) {
	emb := &mockEmbedder{OnEmbed: keywordVector}
	chat := answering("Your document discusses solar power.")
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, emb, nil, chat, nil)
	r.UploadWindow, r.UploadOverlap, r.UploadTopN = 3, 0, 2

	uploaded := "wind farm notes solar panel tilt plain filler words"
	answer := r.Resolve(context.Background(), Query{Text: "what about solar?", UploadedText: uploaded})

	assert.Equal(t, commonModels.SourceUploaded, answer.SourceTag)
	assert.Empty(t, answer.Citations, "uploaded passages are not catalog citations")
	prompt := chat.lastPrompt()
	assert.Contains(t, prompt, "[1] Uploaded document\nsolar panel tilt")
	assert.Contains(t, prompt, "[2] Uploaded document\nplain filler words")
	assert.NotContains(t, prompt, "wind farm notes", "only the top two chunks are sent")
}

func TestResolve_QueryUsesQueryEmbedding(t *testing.T) {
	emb := &queryAwareEmbedder{mockEmbedder: mockEmbedder{OnEmbed: keywordVector}}
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, emb, nil, answering("Solar it is."), nil)
	r.UploadWindow, r.UploadOverlap, r.UploadTopN = 3, 0, 2

	question := "what about solar?"
	answer := r.Resolve(context.Background(), Query{Text: question, UploadedText: "wind farm notes solar panel tilt"})

	assert.Equal(t, commonModels.SourceUploaded, answer.SourceTag)
	assert.Equal(t, 1, emb.queries[question])
	assert.Equal(t, 0, emb.calls[question], "the question is not embedded as a passage")
	assert.Equal(t, 2, emb.total(), "uploaded chunks use the passage side")
}

func TestResolve_VectorIndexWithDedupedCitations(t *testing.T) {
	records := []commonModels.PassageRecord{
		passage("d1", 0, "Solar Dryers", 2019, "solar one"),
		passage("d1", 1, "Solar Dryers", 2019, "solar two"),
		passage("d2", 0, "Wind Turbines", 2020, "wind one"),
	}
	idx := seededIndex(t, records, [][]float32{{1, 0}, {0.9, 0.1}, {0.6, 0.4}})
	chat := answering("Dryers work.")
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, &mockEmbedder{OnEmbed: keywordVector}, idx, chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "how do solar dryers perform"})

	assert.Equal(t, commonModels.SourceVectorIndex, answer.SourceTag)
	assert.Equal(t, []commonModels.Citation{{Title: "Solar Dryers", Year: 2019}, {Title: "Wind Turbines", Year: 2020}}, answer.Citations)
	assert.Equal(t, "Dryers work.\n\nSources:\n- Solar Dryers (2019)\n- Wind Turbines (2020)", answer.Text)
	assert.Equal(t, 1, strings.Count(answer.Text, "Solar Dryers"))
}

func TestResolve_QueryEmbeddedOnce(t *testing.T) {
	records := []commonModels.PassageRecord{passage("d1", 0, "Solar Dryers", 2019, "solar one")}
	idx := seededIndex(t, records, [][]float32{{1, 0}})
	emb := &mockEmbedder{OnEmbed: keywordVector}
	calls := 0
	chat := &mockChat{OnChat: func([]commonModels.Message) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("rate limited")
		}
		return "from the index", nil
	}}
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, emb, idx, chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "solar question", UploadedText: "solar uploaded text"})

	assert.Equal(t, commonModels.SourceVectorIndex, answer.SourceTag)
	emb.mu.Lock()
	defer emb.mu.Unlock()
	assert.Equal(t, 1, emb.calls["solar question"])
}

func TestResolve_ExhaustionIsGeneric(t *testing.T) {
	chat := answering("Photosynthesis converts light to chemical energy.")
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, &mockEmbedder{OnEmbed: keywordVector}, seededIndex(t, nil, nil), chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "explain photosynthesis"})

	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
	assert.NotEmpty(t, answer.Text)
	assert.Empty(t, answer.Citations)
	assert.Equal(t, fmt.Sprintf(config.GenericPrompt, "explain photosynthesis"), chat.lastPrompt())
}

func TestResolve_ChatDownGivesUnavailable(t *testing.T) {
	records := []commonModels.PassageRecord{passage("d1", 0, "Solar Dryers", 2019, "solar one")}
	idx := seededIndex(t, records, [][]float32{{1, 0}})
	chat := &mockChat{OnChat: func([]commonModels.Message) (string, error) { return "", errors.New("model down") }}
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, &mockEmbedder{OnEmbed: keywordVector}, idx, chat, nil)

	answer := r.Resolve(context.Background(), Query{Text: "solar performance"})

	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
	assert.Equal(t, config.UnavailableMessage, answer.Text)
	assert.Len(t, chat.prompts, 2, "index tier then generic")
}

func TestResolve_EmbeddingDownSkipsToGeneric(t *testing.T) {
	records := []commonModels.PassageRecord{passage("d1", 0, "Solar Dryers", 2019, "solar one")}
	idx := seededIndex(t, records, [][]float32{{1, 0}})
	emb := &mockEmbedder{OnEmbed: func(string) ([]float32, error) { return nil, errors.New("quota") }}
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, emb, idx, answering("generic"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "solar performance"})

	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
	assert.Equal(t, "generic", answer.Text)
}

func TestResolve_ClassifierErrorIsGeneral(t *testing.T) {
	r := New(&mockCatalog{}, fixedClassifier{err: errors.New("bad label")}, nil, nil, answering("ok"), nil)

	answer := r.Resolve(context.Background(), Query{Text: "anything at all"})

	assert.Equal(t, llm.General, answer.Intent)
	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
}

// --- Memory ---

func TestResolve_AppendsTurnToMemory(t *testing.T) {
	ctx := context.Background()
	mem := memory.New(store.InitInMemorySessionStore(), memory.NewLocalLocker(), nil, 20, 10)
	sessionId, err := mem.Start(ctx)
	require.NoError(t, err)

	records := []commonModels.PassageRecord{passage("d1", 0, "Solar Dryers", 2019, "solar one")}
	chat := answering("Dryers work.")
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, &mockEmbedder{OnEmbed: keywordVector},
		seededIndex(t, records, [][]float32{{1, 0}}), chat, mem)

	first := r.Resolve(ctx, Query{Text: "solar dryers?", SessionId: sessionId})
	history, err := mem.History(ctx, sessionId)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, commonModels.Message{Role: commonModels.RoleUser, Content: "solar dryers?"}, history[0])
	assert.Equal(t, commonModels.RoleAssistant, history[1].Role)
	assert.Equal(t, first.Text, history[1].Content)
	assert.Equal(t, first.Citations, history[1].Citations)

	r.Resolve(ctx, Query{Text: "and the cost?", SessionId: sessionId})
	sent := chat.prompts[len(chat.prompts)-1]
	require.Len(t, sent, 4, "system, two history turns, prompt")
	assert.Equal(t, commonModels.RoleSystem, sent[0].Role)
	assert.Equal(t, "solar dryers?", sent[1].Content)
}

func TestResolve_SummaryBecomesSystemNote(t *testing.T) {
	ctx := context.Background()
	sessions := store.InitInMemorySessionStore()
	require.NoError(t, sessions.Create(ctx, "s1"))
	require.NoError(t, sessions.Append(ctx, "s1", commonModels.Message{Role: commonModels.RoleSummary, Content: "talked about dryers"}))
	mem := memory.New(sessions, memory.NewLocalLocker(), nil, 20, 10)
	chat := answering("ok")
	r := New(&mockCatalog{}, fixedClassifier{intent: llm.General}, nil, nil, chat, mem)

	r.Resolve(ctx, Query{Text: "continue please", SessionId: "s1"})

	sent := chat.prompts[0]
	require.Len(t, sent, 3)
	assert.Equal(t, commonModels.RoleSystem, sent[1].Role)
	assert.Contains(t, sent[1].Content, "talked about dryers")
}

// --- Prompt ---

func TestBuildContextPrompt_DropsWholePassages(t *testing.T) {
	passages := []commonModels.PassageRecord{
		passage("d1", 0, "A", 2019, strings.Repeat("a", 60)),
		passage("d2", 0, "B", 2020, strings.Repeat("b", 60)),
	}
	prompt, used := buildContextPrompt("q", passages, 100)

	assert.Len(t, used, 1)
	assert.Contains(t, prompt, strings.Repeat("a", 60))
	assert.NotContains(t, prompt, "b")
	assert.True(t, strings.HasSuffix(prompt, "Question: q"))
}

func TestBuildContextPrompt_CutsOversizedFirstPassage(t *testing.T) {
	passages := []commonModels.PassageRecord{passage("d1", 0, "A", 2019, strings.Repeat("a", 500))}
	prompt, used := buildContextPrompt("q", passages, 50)

	assert.Len(t, used, 1)
	assert.Less(t, strings.Count(prompt, "a"), 500)
	assert.True(t, strings.HasSuffix(prompt, "\n\nQuestion: q"))
}

func TestBuildContextPrompt_CutKeepsUTF8(t *testing.T) {
	passages := []commonModels.PassageRecord{passage("d1", 0, "T", 0, strings.Repeat("ñ", 50))}
	for budget := 0; budget <= 40; budget++ {
		prompt, used := buildContextPrompt("q", passages, budget)

		require.Len(t, used, 1)
		assert.True(t, utf8.ValidString(prompt), "budget %d produced invalid utf-8", budget)
		assert.True(t, strings.HasSuffix(prompt, "\n\nQuestion: q"), "budget %d lost the separator", budget)
	}
}

func TestCutToBudget(t *testing.T) {
	entry := "[1] T\nñññ\n\n"
	assert.Equal(t, entry, cutToBudget(entry, len(entry)+5))
	// 9 bytes of body would end inside the second ñ, so it is dropped
	assert.Equal(t, "[1] T\nñ\n\n", cutToBudget(entry, 11))
	assert.Equal(t, "[1] T\n\n\n", cutToBudget(entry, 8))
	assert.Equal(t, "\n\n", cutToBudget(entry, 1))
}

func TestDedupeCitations(t *testing.T) {
	got := dedupeCitations([]commonModels.PassageRecord{
		{Title: "A", Year: 2019},
		{Title: "A", Year: 2019},
		{Title: "A", Year: 2020},
		{Title: "", Year: 2020},
		{Title: "B", Year: 2021, SourceTag: commonModels.SourceUploaded},
	})
	assert.Equal(t, []commonModels.Citation{{Title: "A", Year: 2019}, {Title: "A", Year: 2020}}, got)
}
