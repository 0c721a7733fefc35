package rag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
	"github.com/akolanti/LibraryRAG/internal/rag/ingest"
	"github.com/akolanti/LibraryRAG/internal/rag/resolver"
	"github.com/akolanti/LibraryRAG/internal/rag/vectorDB"
)

// Library is the synchronous surface used by the HTTP handlers and the MCP tools.
type Library interface {
	StartSession(ctx context.Context) (string, error)
	SessionExists(ctx context.Context, sessionId string) (bool, error)
	Ask(ctx context.Context, query resolver.Query) resolver.Answer
	ExtractUpload(data []byte) (string, error)

	RegisterDocument(ctx context.Context, upload Upload) (commonModels.DocumentEntity, error)
	GetDocument(ctx context.Context, id string) (commonModels.DocumentEntity, error)
	DocumentFile(ctx context.Context, id string) ([]byte, commonModels.DocumentEntity, error)
	ListDocuments(ctx context.Context, filter catalog.ListFilter) (catalog.Page, error)
	SearchDocuments(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error)
	DeleteDocument(ctx context.Context, id string) error
	IndexStats(ctx context.Context) (vectorDB.IndexStats, error)
}

// Upload is a thesis file plus whatever metadata the uploader typed in. Empty fields are guessed from the text.
type Upload struct {
	Data     []byte
	FileName string
	Title    string
	Authors  string
	Program  string
	Abstract string
	Year     int
}

func NewLibrary(d Dependencies) Library {
	return newService(d)
}

func (s *service) StartSession(ctx context.Context) (string, error) {
	if s.memory == nil {
		return "", errors.New("conversation memory is not configured")
	}
	return s.memory.Start(ctx)
}

func (s *service) SessionExists(ctx context.Context, sessionId string) (bool, error) {
	if s.memory == nil {
		return false, nil
	}
	return s.memory.Exists(ctx, sessionId)
}

func (s *service) Ask(ctx context.Context, query resolver.Query) resolver.Answer {
	return s.resolver.Resolve(ctx, query)
}

func (s *service) ExtractUpload(data []byte) (string, error) {
	extracted, err := ingest.ExtractText(data)
	if err != nil {
		return "", err
	}
	return extracted.Text(), nil
}

// RegisterDocument stores the file and creates the catalog entry in pending state. Ingestion is a separate job.
func (s *service) RegisterDocument(ctx context.Context, upload Upload) (commonModels.DocumentEntity, error) {
	if len(upload.Data) == 0 {
		return commonModels.DocumentEntity{}, &ingestInputError{"empty file"}
	}
	if s.storage == nil {
		return commonModels.DocumentEntity{}, errors.New("no object storage configured")
	}

	doc := commonModels.DocumentEntity{
		Id:       utils.GetNewUUID(),
		Title:    strings.TrimSpace(upload.Title),
		Authors:  strings.TrimSpace(upload.Authors),
		Program:  strings.TrimSpace(upload.Program),
		Abstract: strings.TrimSpace(upload.Abstract),
		Year:     upload.Year,
		Status:   commonModels.StatusPending,
	}
	if doc.Title == "" || doc.Authors == "" || doc.Abstract == "" || doc.Year == 0 {
		if err := s.fillMetadata(&doc, upload); err != nil {
			return doc, err
		}
	}

	putCtx, cancel := context.WithTimeout(ctx, config.ObjectStorageTimeout)
	defer cancel()
	ref, err := s.storage.Put(putCtx, upload.Data, doc.Id+strings.ToLower(filepath.Ext(upload.FileName)), config.DocumentsFolder)
	if err != nil {
		return doc, fmt.Errorf("storing file: %w", err)
	}
	doc.LocationRef = ref

	created, err := s.catalog.Create(ctx, doc)
	if err != nil {
		if delErr := s.storage.Delete(context.WithoutCancel(ctx), ref); delErr != nil {
			s.logger.Warn("orphaned stored file", "ref", ref, "error", delErr)
		}
		return doc, err
	}
	s.logger.Info("document registered", "documentId", created.Id, "title", created.Title)
	return created, nil
}

// fillMetadata only sets fields the uploader left empty. A file we cannot read still registers when it has a title.
func (s *service) fillMetadata(doc *commonModels.DocumentEntity, upload Upload) error {
	extracted, err := ingest.ExtractText(upload.Data)
	if err != nil {
		if doc.Title != "" {
			return nil
		}
		return &ingestInputError{fmt.Sprintf("no title given and the file could not be read: %v", err)}
	}
	guess := ingest.GuessMetadata(extracted, upload.FileName)
	if doc.Title == "" {
		doc.Title = guess.Title
	}
	if doc.Authors == "" {
		doc.Authors = guess.Authors
	}
	if doc.Abstract == "" {
		doc.Abstract = guess.Abstract
	}
	if doc.Year == 0 {
		doc.Year = guess.Year
	}
	return nil
}

func (s *service) GetDocument(ctx context.Context, id string) (commonModels.DocumentEntity, error) {
	return s.catalog.Get(ctx, id)
}

func (s *service) DocumentFile(ctx context.Context, id string) ([]byte, commonModels.DocumentEntity, error) {
	doc, err := s.catalog.Get(ctx, id)
	if err != nil {
		return nil, doc, err
	}
	data, err := s.loader(id)(ctx)
	return data, doc, err
}

func (s *service) ListDocuments(ctx context.Context, filter catalog.ListFilter) (catalog.Page, error) {
	return s.catalog.List(ctx, filter)
}

func (s *service) SearchDocuments(ctx context.Context, query string, limit int) ([]commonModels.DocumentEntity, error) {
	if limit <= 0 || limit > config.CatalogSearchCap {
		limit = config.CatalogSearchCap
	}
	return s.catalog.SearchTitleAuthors(ctx, query, limit)
}

// DeleteDocument hides the passages first so a half-finished delete never leaves searchable orphans.
func (s *service) DeleteDocument(ctx context.Context, id string) error {
	doc, err := s.catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if s.index != nil {
		removed, err := s.index.RemoveDocument(ctx, id)
		if err != nil {
			return fmt.Errorf("removing passages: %w", err)
		}
		s.logger.Info("passages removed from index", "documentId", id, "count", removed)
	}
	if err = s.catalog.Delete(ctx, id); err != nil {
		return err
	}
	if doc.LocationRef != "" && s.storage != nil {
		delCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), config.ObjectStorageTimeout)
		defer cancel()
		if err = s.storage.Delete(delCtx, doc.LocationRef); err != nil {
			s.logger.Warn("stored file not deleted", "documentId", id, "ref", doc.LocationRef, "error", err)
		}
	}
	return nil
}

func (s *service) IndexStats(ctx context.Context) (vectorDB.IndexStats, error) {
	if s.index == nil {
		return vectorDB.IndexStats{}, errors.New("no vector index configured")
	}
	return s.index.Stats(ctx)
}

// ingestInputError is a problem with what the client sent, reported as a 400.
type ingestInputError struct {
	reason string
}

func (e *ingestInputError) Error() string { return e.reason }

func IsInputError(err error) bool {
	var target *ingestInputError
	return errors.As(err, &target)
}
