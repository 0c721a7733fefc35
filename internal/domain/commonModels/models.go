package commonModels

import (
	"fmt"
	"time"
)

type SourceTag string

const (
	SourceCatalogExact SourceTag = "catalog-exact"
	SourceCatalogFuzzy SourceTag = "catalog-fuzzy"
	SourceUploaded     SourceTag = "uploaded"
	SourceVectorIndex  SourceTag = "vector-index"
	SourceGeneric      SourceTag = "generic"
)

// PassageRecord is one indexed window of a thesis. Id is "<documentId>_<ordinal>" and survives re-ingestion.
type PassageRecord struct {
	Id         string    `json:"id"`
	DocumentId string    `json:"document_id"`
	Title      string    `json:"title"`
	Program    string    `json:"program"`
	Year       int       `json:"year"`
	Text       string    `json:"chunk"`
	SourceTag  SourceTag `json:"source_tag,omitempty"`
}

func PassageId(documentId string, ordinal int) string {
	return fmt.Sprintf("%s_%d", documentId, ordinal)
}

type DocStatus string

const (
	StatusPending    DocStatus = "pending"
	StatusProcessing DocStatus = "processing"
	StatusDone       DocStatus = "done"
	StatusFailed     DocStatus = "failed"
)

type DocumentEntity struct {
	Id          string    `json:"id"`
	Title       string    `json:"title"`
	Authors     string    `json:"authors"`
	Program     string    `json:"program"`
	Year        int       `json:"year"`
	Abstract    string    `json:"abstract,omitempty"`
	Status      DocStatus `json:"status"`
	LocationRef string    `json:"location_ref,omitempty"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSummary   Role = "summary"
)

type Citation struct {
	Title string `json:"title"`
	Year  int    `json:"year"`
}

// Message is one entry of a conversation. Summary entries replace a compacted block of older turns.
type Message struct {
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Citations []Citation `json:"citations,omitempty"`
}

type DocType string

var PDF DocType = "PDF"
var DOCX DocType = "DOCX"
var ERR DocType = "ERROR"
