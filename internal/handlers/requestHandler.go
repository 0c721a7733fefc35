package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/akolanti/LibraryRAG/internal/adapter"
	"github.com/akolanti/LibraryRAG/internal/adapter/utils"
	"github.com/akolanti/LibraryRAG/internal/api"
	"github.com/akolanti/LibraryRAG/internal/config"
	"github.com/akolanti/LibraryRAG/internal/domain/jobModel"
	"github.com/akolanti/LibraryRAG/internal/rag"
	"github.com/akolanti/LibraryRAG/pkg/logger_i"
)

var logRH *logger_i.Logger

// the fields a handler collects before a job is queued
type newJobData struct {
	id           string
	chatId       string
	message      string
	uploadedText string
	traceId      string
	jobType      jobModel.JobType
	documentName string
	documentIds  []string
	compactOnly  bool
}

// GetHandler godoc
// @Summary      Health check
// @Description  Reports queue depth and whether the vector index answers. A broken index reports "degraded" with 200 so chat keeps working on the catalog tiers.
// @Tags         Health
// @Produce      json
// @Success      200  {object}  api.Health
// @Failure      503  {object}  api.Health
// @Router       /health [get]
func GetHandler(w http.ResponseWriter, r *http.Request) {
	if handlerInstance == nil {
		writeJsonResponse(w, http.StatusServiceUnavailable, api.Health{Status: "starting"})
		return
	}
	health := api.Health{Status: "ok", QueuedJobs: len(handlerInstance.service.JobChannel)}
	if stats, err := handlerInstance.library.IndexStats(r.Context()); err != nil {
		logRH.Warn("Index unavailable for health check", "error", err)
		health.Status = "degraded"
		health.Index = err.Error()
	} else {
		health.IndexVersion = stats.Version
	}
	writeJsonResponse(w, http.StatusOK, health)
}

// ChatHandler godoc
// @Summary      Start a new chat job
// @Description  Accepts a question, initializes a background processing job, and returns a job ID to track status. Without chatID a new session is started.
// @Tags         Messaging
// @Accept       json
// @Produce      json
// @Param        request  body      api.ChatRequest      true  "Question and optional Chat ID"
// @Success      202      {object}  api.InitJobResponse  "Job successfully created"
// @Failure      400      {object}  api.JobResponse      "Invalid request data or chat ID"
// @Router       /chat [post]
func ChatHandler(w http.ResponseWriter, request *http.Request) {

	if validateContext(request.Context()) {

		var requestData api.ChatRequest
		defer func(Body io.ReadCloser) {
			err := Body.Close()
			if err != nil {
				logRH.Error("Couldn't close the Chat handler reader", "error", err)
			}
		}(request.Body)
		if err := json.NewDecoder(request.Body).Decode(&requestData); err != nil || !ValidateChatRequest(request.Context(), requestData) {

			logRH.Warn("Bad Chat Request", "error", err, "chatId", requestData.ChatID)
			WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
			return
		}
		queueChatJob(w, request, requestData)
		return
	}
	logRH.Warn("Invalid Context by request ", "remote", request.RemoteAddr)
}

// ChatUploadHandler godoc
// @Summary      Ask a question about an uploaded file
// @Description  Extracts the text of the attached file and queues a chat job that searches it before the library.
// @Tags         Messaging
// @Accept       multipart/form-data
// @Produce      json
// @Param        message   formData  string  true   "The question"
// @Param        chatID    formData  string  false  "Existing chat id"
// @Param        document  formData  file    true   "PDF, DOCX or text file"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse
// @Router       /chat/upload [post]
func ChatUploadHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remote", r.RemoteAddr)
		return
	}
	if err := r.ParseMultipartForm(config.MaxUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
		return
	}
	requestData := api.ChatRequest{
		Message: strings.TrimSpace(r.FormValue("message")),
		ChatID:  strings.TrimSpace(r.FormValue("chatID")),
	}
	if !ValidateChatRequest(r.Context(), requestData) {
		WriteErrorResponse(w, http.StatusBadRequest, requestData.ChatID, "Bad Request")
		return
	}

	data, fileName, ok := readFormFile(w, r, "document")
	if !ok {
		return
	}
	text, err := handlerInstance.library.ExtractUpload(data)
	if err != nil || strings.TrimSpace(text) == "" {
		logRH.Warn("Uploaded file not readable", "file", fileName, "error", err)
		WriteErrorResponse(w, http.StatusBadRequest, fileName, "Could not read the uploaded file")
		return
	}
	requestData.UploadedText = text
	queueChatJob(w, r, requestData)
}

// GetStatusHandler godoc
// @Summary      Get job status
// @Description  Retrieves the current status of a specific job using its ID.
// @Tags         Job Status
// @Accept       json
// @Produce      json
// @Param        id   path      string  true  "Job ID "
// @Success      200  {object}  api.JobResponse   "Successful retrieval of job status"
// @Failure      404  {object}  api.JobResponse   "Job not found (returns Error object within JobResponse)"
// @Router       /status/{id} [get]
func GetStatusHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {
		//use chi get the url id
		idString := utils.GetChiURLParam(r, "id")
		result, isFound := validateId(idString, traceOf(r))

		logRH.Debug("Get Status Request", "path", r.URL.Path)
		if !isFound {
			WriteErrorResponse(w, http.StatusNotFound, idString, "Job not found")
			return
		}

		writeJsonResponse(w, http.StatusOK, adapter.ToAPIResponse(result))
	}
}

// PostIngestHandler handles the uploading of a thesis for ingestion.
// @Summary      Upload a thesis for ingestion
// @Description  Stores the file, registers it in the catalog and queues an ingestion job. Metadata left empty is guessed from the text.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        document  formData  file    true   "The PDF, DOCX or text file"
// @Param        title     formData  string  false  "Thesis title"
// @Param        authors   formData  string  false  "Authors"
// @Param        program   formData  string  false  "Degree program"
// @Param        year      formData  int     false  "Publication year"
// @Param        abstract  formData  string  false  "Abstract"
// @Success      202  {object}  api.InitJobResponse "Accepted"
// @Failure      400  {object}  api.JobResponse "Bad Request - Missing fields or file too large"
// @Failure      500  {object}  api.JobResponse "Internal Server Error - Storage or Catalog Error"
// @Router       /ingest [post]
func PostIngestHandler(w http.ResponseWriter, r *http.Request) {
	if validateContext(r.Context()) {

		err := r.ParseMultipartForm(config.MaxUploadSize)
		if err != nil {
			WriteErrorResponse(w, http.StatusBadRequest, "", "File too large or bad request")
			return
		}

		data, fileName, ok := readFormFile(w, r, "document")
		if !ok {
			return
		}

		year, _ := strconv.Atoi(strings.TrimSpace(r.FormValue("year")))
		doc, err := handlerInstance.library.RegisterDocument(r.Context(), rag.Upload{
			Data:     data,
			FileName: fileName,
			Title:    r.FormValue("title"),
			Authors:  r.FormValue("authors"),
			Program:  r.FormValue("program"),
			Abstract: r.FormValue("abstract"),
			Year:     year,
		})
		if err != nil {
			writeRegisterError(w, fileName, err)
			return
		}

		queued := CreateNewJob(r.Context(), newJobData{
			id:           utils.GetNewUUID(),
			traceId:      traceOf(r),
			jobType:      jobModel.JobTypeIngest,
			documentName: fileName,
			documentIds:  []string{doc.Id},
		})
		writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued))
		return
	}
	logRH.Warn("Invalid Context by request ", "remote", r.RemoteAddr)
}

// PostBulkIngestHandler godoc
// @Summary      Upload many theses at once
// @Description  Registers every attached file and queues one paced batch ingestion job. Files that cannot be registered are skipped.
// @Tags         Ingestion
// @Accept       multipart/form-data
// @Produce      json
// @Param        documents  formData  file  true  "One or more thesis files"
// @Success      202  {object}  api.InitJobResponse
// @Failure      400  {object}  api.JobResponse
// @Router       /ingest/bulk [post]
func PostBulkIngestHandler(w http.ResponseWriter, r *http.Request) {
	if !validateContext(r.Context()) {
		logRH.Warn("Invalid Context by request ", "remote", r.RemoteAddr)
		return
	}
	if err := r.ParseMultipartForm(config.MaxBulkUploadSize); err != nil {
		WriteErrorResponse(w, http.StatusBadRequest, "", "Files too large or bad request")
		return
	}
	files := r.MultipartForm.File["documents"]
	if len(files) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "documents are required")
		return
	}

	ids := make([]string, 0, len(files))
	for _, header := range files {
		file, err := header.Open()
		if err != nil {
			logRH.Warn("Skipping unreadable upload", "file", header.Filename, "error", err)
			continue
		}
		data, err := io.ReadAll(file)
		_ = file.Close()
		if err != nil {
			logRH.Warn("Skipping unreadable upload", "file", header.Filename, "error", err)
			continue
		}
		doc, err := handlerInstance.library.RegisterDocument(r.Context(), rag.Upload{Data: data, FileName: header.Filename})
		if err != nil {
			logRH.Warn("Skipping upload", "file", header.Filename, "error", err)
			continue
		}
		ids = append(ids, doc.Id)
	}
	if len(ids) == 0 {
		WriteErrorResponse(w, http.StatusBadRequest, "", "None of the files could be registered")
		return
	}

	queued := CreateNewJob(r.Context(), newJobData{
		id:          utils.GetNewUUID(),
		traceId:     traceOf(r),
		jobType:     jobModel.JobTypeBulk,
		documentIds: ids,
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued))
}

func queueChatJob(w http.ResponseWriter, r *http.Request, requestData api.ChatRequest) {
	chatID := requestData.ChatID
	if chatID == "" {
		var err error
		chatID, err = handlerInstance.library.StartSession(r.Context())
		if err != nil {
			logRH.Error("Couldn't start a new chat", "error", err)
			WriteErrorResponse(w, http.StatusServiceUnavailable, "", "Could not start a chat")
			return
		}
		logRH.Debug(" New Chat request ", "chatID", chatID)
	}

	queued := CreateNewJob(r.Context(), newJobData{
		id:           utils.GetNewUUID(),
		chatId:       chatID,
		message:      requestData.Message,
		uploadedText: requestData.UploadedText,
		traceId:      traceOf(r),
		jobType:      jobModel.JobTypeQuery,
	})
	writeJsonResponse(w, http.StatusAccepted, adapter.ToInitJobResponse(queued))
}
