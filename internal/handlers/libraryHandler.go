package handlers

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/adapter"
	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/api"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/commonModels"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/rag/catalog"
)

// ListDocumentsHandler godoc
// @Summary      Browse the catalog
// @Description  Pages through registered theses, newest first. With q set it returns title or author matches instead.
// @Tags         Library
// @Produce      json
// @Param        page     query  int     false  "Page number, starting at 1"
// @Param        program  query  string  false  "Degree program"
// @Param        status   query  string  false  "pending, processing, done or failed"
// @Param        q        query  string  false  "Title or author search"
// @Success      200  {object}  api.DocumentPage
// @Failure      500  {object}  api.JobResponse
// @Router       /documents [get]
func ListDocumentsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	query := r.URL.Query()

	if q := strings.TrimSpace(query.Get("q")); q != "" {
		docs, err := handlerInstance.library.SearchDocuments(r.Context(), q, config.CatalogSearchCap)
		if err != nil {
			writeLookupError(w, "", err)
			return
		}
		writeJsonResponse(w, http.StatusOK, api.DocumentPage{
			Documents: adapter.ToDocuments(docs),
			Total:     len(docs),
			Page:      1,
			PageSize:  config.CatalogSearchCap,
		})
		return
	}

	page, _ := strconv.Atoi(query.Get("page"))
	result, err := handlerInstance.library.ListDocuments(r.Context(), catalog.ListFilter{
		Page:     page,
		PageSize: config.CatalogPageSize,
		Program:  strings.TrimSpace(query.Get("program")),
		Status:   commonModels.DocStatus(strings.ToLower(strings.TrimSpace(query.Get("status")))),
	})
	if err != nil {
		writeLookupError(w, "", err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocumentPage(result))
}

// GetDocumentHandler godoc
// @Summary      Get one thesis record
// @Tags         Library
// @Produce      json
// @Param        id   path  string  true  "Document ID"
// @Success      200  {object}  api.Document
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id} [get]
func GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	doc, err := handlerInstance.library.GetDocument(r.Context(), id)
	if err != nil {
		writeLookupError(w, id, err)
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToDocument(doc))
}

// DocumentFileHandler godoc
// @Summary      Download the stored thesis file
// @Tags         Library
// @Produce      octet-stream
// @Param        id   path  string  true  "Document ID"
// @Success      200  {file}  binary
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id}/file [get]
func DocumentFileHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	data, doc, err := handlerInstance.library.DocumentFile(r.Context(), id)
	if err != nil {
		writeLookupError(w, id, err)
		return
	}
	ext := filepath.Ext(doc.LocationRef)
	contentType := mime.TypeByExtension(ext)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": doc.Id + ext}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err = w.Write(data); err != nil {
		logRH.Warn("File download interrupted", "documentId", id, "error", err)
	}
}

// DeleteDocumentHandler godoc
// @Summary      Remove a thesis
// @Description  Drops the catalog record, its passages in the index and the stored file.
// @Tags         Library
// @Param        id   path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  api.JobResponse
// @Router       /documents/{id} [delete]
func DeleteDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	id := utils.GetChiURLParam(r, "id")
	if err := handlerInstance.library.DeleteDocument(r.Context(), id); err != nil {
		writeLookupError(w, id, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RebuildIndexHandler godoc
// @Summary      Rebuild or compact the vector index
// @Description  Queues a job that re-ingests every stored thesis into an empty index, or only compacts tombstoned passages away.
// @Tags         Index
// @Accept       json
// @Produce      json
// @Param        request  body  api.RebuildRequest  false  "Rebuild options"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse
// @Router       /index/rebuild [post]
func RebuildIndexHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	var req api.RebuildRequest
	if r.Body != nil {
		defer r.Body.Close()
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			WriteErrorResponse(w, http.StatusBadRequest, "", "Bad Request")
			return
		}
	}
	if compact, err := strconv.ParseBool(r.URL.Query().Get("compact")); err == nil {
		req.CompactOnly = compact
	}

	queued := CreateNewJob(r.Context(), newJobData{
		id:          utils.GetNewUUID(),
		traceId:     traceOf(r),
		jobType:     jobModel.JobTypeRebuild,
		compactOnly: req.CompactOnly,
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued))
}

// IndexStatsHandler godoc
// @Summary      Vector index statistics
// @Tags         Index
// @Produce      json
// @Success      200  {object}  api.IndexStats
// @Failure      500  {object}  api.JobResponse
// @Router       /index/stats [get]
func IndexStatsHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		return
	}
	stats, err := handlerInstance.library.IndexStats(r.Context())
	if err != nil {
		logRH.Error("Index stats failed", "error", err)
		WriteErrorResponse(w, http.StatusInternalServerError, "", "Index unavailable")
		return
	}
	writeJsonResponse(w, http.StatusOK, adapter.ToIndexStats(stats))
}
