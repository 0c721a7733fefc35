package catalog

import (
	"context"
	"regexp"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
)

type ListFilter struct {
	Page     int
	PageSize int
	Program  string
	Status   commonModels.DocStatus
}

type Page struct {
	Documents []commonModels.DocumentEntity `json:"documents"`
	Total     int                           `json:"total"`
	Page      int                           `json:"page"`
	PageSize  int                           `json:"page_size"`
}

// Catalog holds the structured thesis records. Status is only changed by the ingestion pipeline.
type Catalog interface {
	Create(ctx context.Context, doc commonModels.DocumentEntity) (commonModels.DocumentEntity, error)
	Get(ctx context.Context, id string) (commonModels.DocumentEntity, error)
	LookupByNormalizedTitle(ctx context.Context, normalized string) (commonModels.DocumentEntity, bool, error)
	// SearchText is a case-insensitive substring match over title and abstract.
	SearchText(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error)
	// SearchTitleAuthors is a case-insensitive substring match over title and authors.
	SearchTitleAuthors(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error)
	List(ctx context.Context, filter ListFilter) (Page, error)
	SetStatus(ctx context.Context, id string, status commonModels.DocStatus) error
	Delete(ctx context.Context, id string) error
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^a-z0-9]`)
	boilerplate     = regexp.MustCompile(`(?i)^\s*(who\s+(is|are|was|were)\s+the\s+authors?\s+of|who\s+wrote|who\s+authored|authors?\s+of|tell\s+me\s+about|what\s+is|find)\s+(the\s+(thesis|study|paper)\s+)?`)
)

// StripBoilerplate removes question phrasing around a title, keeping the original casing.
func StripBoilerplate(query string) string {
	q := boilerplate.ReplaceAllString(query, "")
	return strings.Trim(strings.TrimSpace(q), `"'?.!“”`)
}

// NormalizeTitle lowercases and drops everything that is not a-z or 0-9.
func NormalizeTitle(title string) string {
	return nonAlphanumeric.ReplaceAllString(strings.ToLower(title), "")
}

// NormalizeQuery is NormalizeTitle after the question phrasing is stripped.
func NormalizeQuery(query string) string {
	return NormalizeTitle(StripBoilerplate(query))
}

// FileLink is the API path serving a document's stored file, empty when nothing was stored.
func FileLink(doc commonModels.DocumentEntity) string {
	if doc.LocationRef == "" || doc.Id == "" {
		return ""
	}
	return "/documents/" + doc.Id + "/file"
}
