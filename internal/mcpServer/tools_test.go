package mcpServer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/internal/rag/resolver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeLibrary implements only what the tools call; anything else panics on the nil embedded interface.
type fakeLibrary struct {
	rag.Library
	sessions  map[string]bool
	lastQuery resolver.Query
	lastLimit int
	docs      []commonModels.DocumentEntity
	searchErr error
}

func (f *fakeLibrary) StartSession(context.Context) (string, error) {
	f.sessions["new-chat"] = true
	return "new-chat", nil
}

func (f *fakeLibrary) SessionExists(_ context.Context, id string) (bool, error) {
	return f.sessions[id], nil
}

func (f *fakeLibrary) Ask(_ context.Context, q resolver.Query) resolver.Answer {
	f.lastQuery = q
	return resolver.Answer{
		Text:      "Solar dryers cut post-harvest losses.",
		SourceTag: commonModels.SourceVectorIndex,
		Citations: []commonModels.Citation{{Title: "Solar Dryers for Rural Farms", Year: 2019}},
	}
}

func (f *fakeLibrary) SearchDocuments(_ context.Context, _ string, limit int) ([]commonModels.DocumentEntity, error) {
	f.lastLimit = limit
	return f.docs, f.searchErr
}

func newTestServer(t *testing.T, lib *fakeLibrary) *Server {
	t.Helper()
	if lib.sessions == nil {
		lib.sessions = map[string]bool{}
	}
	s, err := NewServer(lib)
	require.NoError(t, err)
	require.NotNil(t, s.Handler())
	return s
}

func TestNewServer_RequiresLibrary(t *testing.T) {
	_, err := NewServer(nil)
	require.Error(t, err)
}

func TestHandleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("new conversation", func(t *testing.T) {
		lib := &fakeLibrary{}
		s := newTestServer(t, lib)

		result, out, err := s.handleQuery(ctx, nil, QueryInput{Question: "how do solar dryers work?"})
		require.NoError(t, err)
		require.NotNil(t, result)
		assert.False(t, result.IsError)
		assert.Equal(t, "new-chat", out.ChatId)
		assert.Equal(t, "new-chat", lib.lastQuery.SessionId)
		assert.Equal(t, "vector-index", out.SourceTag)
		require.Len(t, out.Sources, 1)
		assert.Equal(t, 2019, out.Sources[0].Year)

		var decoded QueryOutput
		text := result.Content[0].(*mcp.TextContent).Text
		require.NoError(t, json.Unmarshal([]byte(text), &decoded))
		assert.Equal(t, out.Answer, decoded.Answer)
	})

	t.Run("existing conversation", func(t *testing.T) {
		lib := &fakeLibrary{sessions: map[string]bool{"chat-1": true}}
		s := newTestServer(t, lib)

		_, out, err := s.handleQuery(ctx, nil, QueryInput{Question: "and the second one?", ChatId: "chat-1"})
		require.NoError(t, err)
		assert.Equal(t, "chat-1", out.ChatId)
		assert.Equal(t, "and the second one?", lib.lastQuery.Text)
	})

	t.Run("unknown conversation", func(t *testing.T) {
		s := newTestServer(t, &fakeLibrary{})

		result, _, err := s.handleQuery(ctx, nil, QueryInput{Question: "hi", ChatId: "missing"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("empty question", func(t *testing.T) {
		s := newTestServer(t, &fakeLibrary{})

		result, _, err := s.handleQuery(ctx, nil, QueryInput{Question: "   "})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("caps the limit", func(t *testing.T) {
		lib := &fakeLibrary{docs: []commonModels.DocumentEntity{
			{Id: "d1", Title: "Solar Dryers for Rural Farms", Authors: "Ana Cruz", Year: 2019, LocationRef: "theses/d1.pdf"},
			{Id: "d2", Title: "Solar Irrigation", Authors: "Ben Ong", Year: 2021},
		}}
		s := newTestServer(t, lib)

		result, out, err := s.handleSearch(ctx, nil, SearchInput{Query: "solar", Limit: 500})
		require.NoError(t, err)
		assert.False(t, result.IsError)
		assert.Equal(t, 10, lib.lastLimit)
		assert.Equal(t, 2, out.Count)
		assert.Equal(t, "/documents/d1/file", out.Results[0].FileURL)
		assert.Empty(t, out.Results[1].FileURL)
	})

	t.Run("catalog failure is a tool error", func(t *testing.T) {
		s := newTestServer(t, &fakeLibrary{searchErr: errors.New("db down")})

		result, _, err := s.handleSearch(ctx, nil, SearchInput{Query: "solar"})
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, result.Content[0].(*mcp.TextContent).Text, "db down")
	})

	t.Run("empty query", func(t *testing.T) {
		s := newTestServer(t, &fakeLibrary{})

		result, _, err := s.handleSearch(ctx, nil, SearchInput{})
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}
