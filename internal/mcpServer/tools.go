package mcpServer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/resolver"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type QueryInput struct {
	Question string `json:"question" jsonschema:"the question about the thesis collection"`
	ChatId   string `json:"chat_id,omitempty" jsonschema:"an existing conversation id, omit to start a new one"`
}

type Source struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

type QueryOutput struct {
	Answer    string   `json:"answer"`
	SourceTag string   `json:"source_tag"`
	ChatId    string   `json:"chat_id,omitempty"`
	Sources   []Source `json:"sources"`
}

type SearchInput struct {
	Query string `json:"query" jsonschema:"text contained in a thesis title or author name"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of results (default and cap 10)"`
}

type CatalogEntry struct {
	Id      string `json:"id"`
	Title   string `json:"title"`
	Authors string `json:"authors"`
	Program string `json:"program"`
	Year    int    `json:"year"`
	FileURL string `json:"file_url,omitempty"`
}

type SearchOutput struct {
	Query   string         `json:"query"`
	Results []CatalogEntry `json:"results"`
	Count   int            `json:"count"`
}

func (s *Server) handleQuery(ctx context.Context, _ *mcp.CallToolRequest, input QueryInput) (*mcp.CallToolResult, QueryOutput, error) {
	question := strings.TrimSpace(input.Question)
	if question == "" {
		return toolError("question is required"), QueryOutput{}, nil
	}

	chatId := strings.TrimSpace(input.ChatId)
	if chatId != "" {
		exists, err := s.library.SessionExists(ctx, chatId)
		if err != nil || !exists {
			return toolError(fmt.Sprintf("unknown chat_id %q", chatId)), QueryOutput{}, nil
		}
	} else if id, err := s.library.StartSession(ctx); err == nil {
		chatId = id
	} else {
		s.logger.Warn("answering without a session", "error", err)
	}

	ctx, cancel := context.WithTimeout(ctx, config.QueryJobTimeout)
	defer cancel()
	answer := s.library.Ask(ctx, resolver.Query{Text: question, SessionId: chatId})

	output := QueryOutput{
		Answer:    answer.Text,
		SourceTag: string(answer.SourceTag),
		ChatId:    chatId,
		Sources:   make([]Source, 0, len(answer.Citations)),
	}
	for _, c := range answer.Citations {
		output.Sources = append(output.Sources, Source{Title: c.Title, Year: c.Year})
	}
	s.logger.Debug("MCP query answered", "sourceTag", output.SourceTag, "chatId", chatId)
	return structured(output)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return toolError("query is required"), SearchOutput{}, nil
	}
	limit := input.Limit
	if limit <= 0 || limit > config.CatalogSearchCap {
		limit = config.CatalogSearchCap
	}

	docs, err := s.library.SearchDocuments(ctx, query, limit)
	if err != nil {
		s.logger.Error("catalog search failed", "error", err)
		return toolError(fmt.Sprintf("catalog search failed: %v", err)), SearchOutput{}, nil
	}

	output := SearchOutput{Query: query, Results: make([]CatalogEntry, 0, len(docs)), Count: len(docs)}
	for _, d := range docs {
		output.Results = append(output.Results, CatalogEntry{
			Id:      d.Id,
			Title:   d.Title,
			Authors: d.Authors,
			Program: d.Program,
			Year:    d.Year,
			FileURL: catalog.FileLink(d),
		})
	}
	return structured(output)
}

// structured returns the output both as structured content and as JSON text for older clients.
func structured[T any](output T) (*mcp.CallToolResult, T, error) {
	raw, err := json.Marshal(output)
	if err != nil {
		var zero T
		return nil, zero, errors.Join(errors.New("serializing tool output"), err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
	}, output, nil
}

func toolError(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}
