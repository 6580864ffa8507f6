package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	middleware "github.com/dianihealth/carebridge/internal/api/middlewares"
	"github.com/dianihealth/carebridge/internal/core"
	objectclient "github.com/dianihealth/carebridge/internal/core/object-client"
	"github.com/dianihealth/carebridge/internal/extraction"
	"github.com/dianihealth/carebridge/internal/models"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type FileHandler struct {
	dbclient  core.DbClient
	obj       core.ObjectClient
	processor *extraction.FileProcessor
	bucket    string
	log       *logger.Logger
}

func NewFileHandler(dbclient core.DbClient, obj core.ObjectClient, processor *extraction.FileProcessor, bucket string, log *logger.Logger) *FileHandler {
	return &FileHandler{dbclient: dbclient, obj: obj, processor: processor, bucket: bucket, log: log}
}

// Upload stores the binary, records the file row and enqueues background
// content extraction.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	patientID := chi.URLParam(r, "id")

	patient, err := h.dbclient.GetPatientByID(r.Context(), patientID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if patient == nil {
		writeError(w, http.StatusNotFound, "patient not found")
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read file")
		return
	}

	// Strip any path components so the key cannot traverse.
	cleanName := filepath.Base(header.Filename)
	fileID := uuid.NewString()
	key := fmt.Sprintf("%s/%s/%s", patientID, fileID, cleanName)

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	url, err := h.obj.UploadFile(r.Context(), h.bucket, key, data, contentType)
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("upload failed: %v", err))
		return
	}

	f := &models.PatientFile{
		ID:         fileID,
		PatientID:  patientID,
		FileURL:    url,
		UploadedBy: userID,
		UploadedAt: time.Now(),
	}
	if err := h.dbclient.CreatePatientFile(r.Context(), f); err != nil {
		h.log.Error("file row insert failed", "file", cleanName, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store file metadata")
		return
	}

	h.processor.Enqueue(extraction.Job{FileURL: url, FileName: cleanName, PatientID: patientID})

	writeJSON(w, http.StatusCreated, f)
}

func (h *FileHandler) ListByPatient(w http.ResponseWriter, r *http.Request) {
	files, err := h.dbclient.ListFilesByPatient(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, files)
}

// Delete removes the file row and the stored object. Extracted-content cache
// entries for the path are left behind; the design tolerates that
// inconsistency.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	f, err := h.dbclient.GetPatientFileByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if f == nil {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}

	if err := h.obj.DeleteFile(r.Context(), h.bucket, objectclient.PathFromPublicURL(f.FileURL)); err != nil {
		h.log.Warn("object delete failed", "file", f.FileURL, "error", err)
	}
	if err := h.dbclient.DeletePatientFile(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type processFileRequest struct {
	FileURL   string `json:"fileUrl"`
	FileName  string `json:"fileName"`
	PatientID string `json:"patientId"`
}

// ProcessFile extracts and caches a file's content synchronously.
func (h *FileHandler) ProcessFile(w http.ResponseWriter, r *http.Request) {
	var req processFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.FileURL == "" || req.FileName == "" {
		writeError(w, http.StatusBadRequest, "fileUrl and fileName are required")
		return
	}

	outcome, err := h.processor.ProcessOne(r.Context(), extraction.Job{
		FileURL:   req.FileURL,
		FileName:  req.FileName,
		PatientID: req.PatientID,
	})
	if err != nil {
		h.log.Error("process-file failed", "file", req.FileName, "error", err)
		writeError(w, http.StatusInternalServerError, "Error interno del servidor")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"message":       "Archivo procesado y guardado correctamente",
		"fileType":      outcome.FileType,
		"contentLength": outcome.ContentLength,
	})
}
