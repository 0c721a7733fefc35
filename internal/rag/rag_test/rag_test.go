package rag_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/data/store"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/domain/ragErrors"
	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog/sqlCatalog"
	"github.com/akolanti/LibraryRAG/internal/rag/llm"
	"github.com/akolanti/LibraryRAG/internal/rag/memory"
	"github.com/akolanti/LibraryRAG/internal/rag/objectStore/localStore"
	"github.com/akolanti/LibraryRAG/internal/rag/resolver"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB/flatIndex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const riceText = "Upland rice yield under drought stress was measured across three seasons in Nueva Ecija. " +
	"Varieties with deeper roots kept their rice yield while shallow rooted lines lost a third of their grain."

const windText = "Small wind turbines on coastal barangays produced enough power for cold storage of fish catches."

type fixture struct {
	service  rag.Service
	library  rag.Library
	catalog  *sqlCatalog.Catalog
	index    *flatIndex.Index
	embedder *MockEmbedder
	llm      *MockLLM
	events   *MockPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	cat, err := sqlCatalog.Open(ctx, "sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = cat.Close() })
	files, err := localStore.New(t.TempDir())
	require.NoError(t, err)

	f := &fixture{
		catalog:  cat,
		index:    flatIndex.New(t.TempDir(), nil, ""),
		embedder: &MockEmbedder{},
		llm:      &MockLLM{},
		events:   &MockPublisher{},
	}
	deps := rag.Dependencies{
		Catalog:    cat,
		Storage:    files,
		Index:      f.index,
		Embedder:   f.embedder,
		Chat:       f.llm,
		Classifier: MockClassifier{},
		Memory:     memory.New(store.InitInMemorySessionStore(), memory.NewLocalLocker(), f.llm, 20, 10),
		Publisher:  f.events,
	}
	f.service = rag.NewService(deps)
	f.library = rag.NewLibrary(deps)
	return f
}

func (f *fixture) register(t *testing.T, upload rag.Upload) commonModels.DocumentEntity {
	t.Helper()
	doc, err := f.library.RegisterDocument(context.Background(), upload)
	require.NoError(t, err)
	return doc
}

func (f *fixture) ingest(t *testing.T, ids ...string) jobModel.Job {
	t.Helper()
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "ingest-trace")
	return f.service.IngestDocuments(ctx, jobModel.Job{
		Id:         "ingest-job",
		JobType:    jobModel.JobTypeIngest,
		JobPayload: jobModel.JobPayload{DocumentIds: ids},
	})
}

func (f *fixture) ask(question string) jobModel.Job {
	ctx := context.WithValue(context.Background(), config.TRACE_ID_KEY, "query-trace")
	return f.service.ProcessRequest(ctx, jobModel.Job{
		Id:         "query-job",
		JobType:    jobModel.JobTypeQuery,
		JobPayload: jobModel.JobPayload{Question: question},
	})
}

var riceUpload = rag.Upload{
	Data:     []byte(riceText),
	FileName: "rice_2019.txt",
	Title:    "A Study of Rice Yield",
	Authors:  "M. Santos",
	Program:  "BSA",
	Abstract: "Drought tolerance of upland rice.",
	Year:     2019,
}

func TestIngestThenQuery(t *testing.T) {
	f := newFixture(t)
	doc := f.register(t, riceUpload)
	assert.Equal(t, commonModels.StatusPending, doc.Status)
	assert.NotEmpty(t, doc.LocationRef)

	job := f.ingest(t, doc.Id)
	require.NotEqual(t, jobModel.JobStatusError, job.Status, job.Error.Message)
	require.Len(t, job.JobPayload.IngestResults, 1)
	outcome := job.JobPayload.IngestResults[0]
	assert.Equal(t, commonModels.StatusDone, outcome.Status)
	assert.Positive(t, outcome.PassagesAdded)
	assert.Equal(t, jobModel.Complete, job.CurrentStep)

	stored, err := f.library.GetDocument(context.Background(), doc.Id)
	require.NoError(t, err)
	assert.Equal(t, commonModels.StatusDone, stored.Status)
	require.Len(t, f.events.Events, 1)
	assert.Equal(t, "Thesis uploaded & processed: A Study of Rice Yield", f.events.Events[0].Message)

	t.Run("exact title lookup", func(t *testing.T) {
		before := f.embedder.CallCount()
		answer := f.ask("Who is the author of A Study of Rice Yield?")
		assert.Equal(t, commonModels.SourceCatalogExact, answer.JobPayload.SourceTag)
		assert.Contains(t, answer.JobPayload.Answer, "**M. Santos**")
		assert.Equal(t, before, f.embedder.CallCount())
	})

	t.Run("passage retrieval", func(t *testing.T) {
		f.llm.OnChat = func(_ context.Context, messages []commonModels.Message) (string, error) {
			return "Deeper roots helped.", nil
		}
		answer := f.ask("how does upland rice cope with drought")
		assert.Equal(t, commonModels.SourceVectorIndex, answer.JobPayload.SourceTag)
		assert.Equal(t, "General", answer.JobPayload.Intent)
		assert.Equal(t, []commonModels.Citation{{Title: "A Study of Rice Yield", Year: 2019}}, answer.JobPayload.Sources)
		assert.True(t, strings.HasSuffix(answer.JobPayload.Answer, "Sources:\n- A Study of Rice Yield (2019)"))
	})
}

func TestIngestDocuments_SecondRunAddsNothing(t *testing.T) {
	f := newFixture(t)
	doc := f.register(t, riceUpload)

	first := f.ingest(t, doc.Id)
	second := f.ingest(t, doc.Id)

	assert.Positive(t, first.JobPayload.IngestResults[0].PassagesAdded)
	assert.Equal(t, 0, second.JobPayload.IngestResults[0].PassagesAdded)
	assert.Equal(t, commonModels.StatusDone, second.JobPayload.IngestResults[0].Status)
}

func TestIngestDocuments_AllEmbeddingsFail(t *testing.T) {
	f := newFixture(t)
	doc := f.register(t, riceUpload)
	f.embedder.OnGetEmbedding = func(context.Context, string) ([]float32, error) {
		return nil, &ragErrors.EmbeddingError{Err: errors.New("quota")}
	}

	job := f.ingest(t, doc.Id)

	assert.Equal(t, jobModel.JobStatusError, job.Status)
	assert.True(t, job.Error.Retry)
	require.Len(t, job.JobPayload.IngestResults, 1)
	assert.Equal(t, commonModels.StatusFailed, job.JobPayload.IngestResults[0].Status)
	stored, _ := f.library.GetDocument(context.Background(), doc.Id)
	assert.Equal(t, commonModels.StatusFailed, stored.Status)
	assert.Empty(t, f.events.Events)
}

func TestIngestDocuments_NoDocuments(t *testing.T) {
	f := newFixture(t)
	job := f.ingest(t)
	assert.Equal(t, jobModel.JobStatusError, job.Status)
	assert.False(t, job.Error.Retry)
}

func TestIngestDocuments_PartialBatch(t *testing.T) {
	f := newFixture(t)
	rice := f.register(t, riceUpload)

	job := f.ingest(t, rice.Id, "missing-id")

	assert.NotEqual(t, jobModel.JobStatusError, job.Status)
	require.Len(t, job.JobPayload.IngestResults, 2)
	assert.Equal(t, commonModels.StatusDone, job.JobPayload.IngestResults[0].Status)
	assert.Equal(t, commonModels.StatusFailed, job.JobPayload.IngestResults[1].Status)
	assert.NotEmpty(t, job.JobPayload.IngestResults[1].Error)
}

func TestRegisterDocument_GuessesMissingMetadata(t *testing.T) {
	f := newFixture(t)
	text := "UNIVERSITY\nA Study of Rice Yield in Upland Farms\nby Maria Santos\nAbstract\nThis study looks at yield.\nChapter 1\n"

	doc := f.register(t, rag.Upload{Data: []byte(text), FileName: "rice_2019_final.txt", Program: "BSA"})

	assert.Equal(t, "A Study of Rice Yield in Upland Farms", doc.Title)
	assert.Equal(t, "Maria Santos", doc.Authors)
	assert.Equal(t, 2019, doc.Year)
	assert.Equal(t, "BSA", doc.Program)
}

func TestRegisterDocument_EmptyFile(t *testing.T) {
	f := newFixture(t)
	_, err := f.library.RegisterDocument(context.Background(), rag.Upload{FileName: "x.pdf", Title: "X"})
	assert.True(t, rag.IsInputError(err))
}

func TestDeleteDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	doc := f.register(t, riceUpload)
	f.ingest(t, doc.Id)

	require.NoError(t, f.library.DeleteDocument(ctx, doc.Id))

	_, err := f.library.GetDocument(ctx, doc.Id)
	assert.ErrorIs(t, err, ragErrors.ErrNotFound)
	_, _, err = f.library.DocumentFile(ctx, doc.Id)
	assert.Error(t, err)

	stats, err := f.library.IndexStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Live)
	assert.Positive(t, stats.Orphaned)

	answer := f.ask("how does upland rice cope with drought")
	assert.Equal(t, commonModels.SourceGeneric, answer.JobPayload.SourceTag)

	assert.ErrorIs(t, f.library.DeleteDocument(ctx, doc.Id), ragErrors.ErrNotFound)
}

func TestRebuildIndex(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rice := f.register(t, riceUpload)
	wind := f.register(t, rag.Upload{Data: []byte(windText), FileName: "wind.txt", Title: "Coastal Wind Power", Authors: "J. Cruz", Year: 2021})
	f.ingest(t, rice.Id, wind.Id)
	before, err := f.library.IndexStats(ctx)
	require.NoError(t, err)

	t.Run("full", func(t *testing.T) {
		job := f.service.RebuildIndex(ctx, jobModel.Job{Id: "rebuild", JobType: jobModel.JobTypeRebuild})

		require.NotEqual(t, jobModel.JobStatusError, job.Status, job.Error.Message)
		assert.ElementsMatch(t, []string{rice.Id, wind.Id}, job.JobPayload.DocumentIds)
		require.Len(t, job.JobPayload.IngestResults, 2)
		for _, o := range job.JobPayload.IngestResults {
			assert.Equal(t, commonModels.StatusDone, o.Status)
		}
		after, err := f.library.IndexStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, before.Live, after.Live)
		assert.Greater(t, after.Version, before.Version)
	})

	t.Run("compact only", func(t *testing.T) {
		require.NoError(t, f.library.DeleteDocument(ctx, wind.Id))
		job := f.service.RebuildIndex(ctx, jobModel.Job{
			Id:         "compact",
			JobType:    jobModel.JobTypeRebuild,
			JobPayload: jobModel.JobPayload{CompactOnly: true},
		})

		require.NotEqual(t, jobModel.JobStatusError, job.Status)
		stats, err := f.library.IndexStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Orphaned)
		assert.Equal(t, stats.Live, stats.Vectors)
	})
}

func TestSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id, err := f.library.StartSession(ctx)
	require.NoError(t, err)
	ok, err := f.library.SessionExists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = f.library.SessionExists(ctx, "nope")
	assert.False(t, ok)
}

func TestSearchDocuments_CapsResults(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < config.CatalogSearchCap+3; i++ {
		f.register(t, rag.Upload{Data: []byte(windText), FileName: "w.txt", Title: "Wind Study " + strings.Repeat("I", i+1), Authors: "J. Cruz", Year: 2020})
	}
	docs, err := f.library.SearchDocuments(context.Background(), "wind", 100)
	require.NoError(t, err)
	assert.Len(t, docs, config.CatalogSearchCap)
}

func TestAsk_FollowUpIntent(t *testing.T) {
	f := newFixture(t)
	deps := rag.Dependencies{Chat: f.llm, Classifier: MockClassifier{Intent: llm.FollowUp}, Catalog: f.catalog}
	answer := rag.NewLibrary(deps).Ask(context.Background(), resolver.Query{Text: "and the cost?"})
	assert.Equal(t, commonModels.SourceGeneric, answer.SourceTag)
	assert.Equal(t, llm.FollowUp, answer.Intent)
}
