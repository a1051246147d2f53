package api

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/yegors/scribe/internal/storage/sqlite"
	"github.com/yegors/scribe/internal/transcription"
	"github.com/yegors/scribe/internal/websocket"
	"github.com/yegors/scribe/pkg/logger"
)

// Multipart parts beyond this are spooled to disk by net/http
const multipartMemory = 8 << 20

// CreateTranscription accepts an uploaded audio file and transcribes it
func (h *Handler) CreateTranscription(w http.ResponseWriter, r *http.Request) {
	id := uuid.NewString()
	w.Header().Set("X-Request-ID", id)
	log := h.logger.With(logger.String("request_id", id))

	r.Body = http.MaxBytesReader(w, r.Body, h.config.Server.MaxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "Audio file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "Missing audio file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Error("Failed to read uploaded file", logger.Error(err))
		http.Error(w, "Failed to read audio file", http.StatusBadRequest)
		return
	}

	filename := filepath.Base(header.Filename)
	log.Info("Transcription request received",
		logger.String("filename", filename),
		logger.Int("bytes", len(data)))

	result := h.transcriber.Transcribe(r.Context(), transcription.Request{
		Audio:           data,
		Filename:        filename,
		LanguageOptions: transcription.ParseLanguageOptions(r.FormValue("language_options")),
		Region:          r.FormValue("region"),
	})

	record := &sqlite.TranscriptionRecord{
		ID:        id,
		CreatedAt: time.Now().UTC(),
		Filename:  filename,
		Result:    *result,
	}

	if h.transcriptionStorage != nil {
		if err := h.transcriptionStorage.StoreResult(record); err != nil {
			log.Error("Failed to store transcription", logger.Error(err))
		}
	}

	if h.wsServer != nil {
		h.wsServer.Broadcast(&websocket.Message{
			Type: websocket.MessageTypeTranscription,
			Data: map[string]any{
				"id":            record.ID,
				"filename":      record.Filename,
				"status":        result.Status,
				"transcript":    result.Transcript,
				"language_code": result.LanguageCode,
				"error_kind":    result.ErrorKind,
			},
		})
	}

	status := http.StatusOK
	if result.Status != transcription.StatusSuccess {
		status = http.StatusUnprocessableEntity
	}
	WriteJSON(w, status, record)
}

// GetCatalogue returns the supported languages and formats
func (h *Handler) GetCatalogue(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, transcription.Catalogue())
}

// GetAllTranscriptions returns stored transcriptions with pagination
func (h *Handler) GetAllTranscriptions(w http.ResponseWriter, r *http.Request) {
	if h.transcriptionStorage == nil {
		http.Error(w, "Transcription history is disabled", http.StatusServiceUnavailable)
		return
	}

	limit, offset := parsePaginationParams(r)

	records, err := h.transcriptionStorage.GetResults(limit, offset)
	if err != nil {
		h.logger.Error("Failed to retrieve transcriptions", logger.Error(err))
		http.Error(w, "Failed to retrieve transcriptions", http.StatusInternalServerError)
		return
	}

	response := map[string]any{
		"timestamp":      time.Now(),
		"count":          len(records),
		"transcriptions": records,
	}

	WriteJSON(w, http.StatusOK, response)
}

// GetTranscription returns one stored transcription
func (h *Handler) GetTranscription(w http.ResponseWriter, r *http.Request) {
	if h.transcriptionStorage == nil {
		http.Error(w, "Transcription history is disabled", http.StatusServiceUnavailable)
		return
	}

	id := chi.URLParam(r, "id")
	record, err := h.transcriptionStorage.GetResult(id)
	if errors.Is(err, sqlite.ErrNotFound) {
		http.Error(w, "Transcription not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("Failed to retrieve transcription", logger.String("id", id), logger.Error(err))
		http.Error(w, "Failed to retrieve transcription", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// parsePaginationParams reads limit/offset, ignoring malformed values
func parsePaginationParams(r *http.Request) (limit, offset int) {
	limit = defaultPageSize

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = min(l, maxPageSize)
		}
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		if o, err := strconv.Atoi(offsetStr); err == nil && o >= 0 {
			offset = o
		}
	}

	return limit, offset
}
