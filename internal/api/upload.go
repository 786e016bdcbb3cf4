package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/starford/tabula/internal/apperr"
	"github.com/starford/tabula/internal/datasetservice"
	"github.com/starford/tabula/internal/parser"
	"github.com/starford/tabula/internal/storage"
)

// DefaultMaxUploadBytes caps an upload when no limit is configured.
const DefaultMaxUploadBytes = 50 << 20 // 50 MB

// UploadHandler accepts spreadsheet uploads, keeps the file and ingests it.
type UploadHandler struct {
	svc      *datasetservice.Service
	files    storage.Provider
	maxBytes int64
}

// NewUploadHandler creates an upload handler storing files in files.
func NewUploadHandler(svc *datasetservice.Service, files storage.Provider, maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{svc: svc, files: files, maxBytes: maxBytes}
}

// uploadName reduces a client filename to its base name.
func uploadName(name string) (string, error) {
	base := filepath.Base(filepath.Clean(strings.ReplaceAll(name, `\`, "/")))
	if base == "" || base == "." || base == "/" || base == ".." {
		return "", fmt.Errorf("filename is required")
	}
	return base, nil
}

// Upload handles POST /upload (multipart/form-data, field "file").
//
//	@Summary		Upload and ingest a CSV or Excel file
//	@Tags			upload
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			file	formData	file	true	"CSV, XLSX or XLS file"
//	@Success		200		{object}	UploadResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/upload [post]
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)

	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("No file uploaded"))
		return
	}
	defer file.Close()

	name, err := uploadName(header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}
	if !parser.Supported(name) {
		writeError(w, r, "Invalid file type. Only CSV and Excel files are allowed.",
			fmt.Errorf("%s: %w", name, apperr.ErrUnsupportedFormat))
		return
	}

	stored, err := h.files.Save(name, file)
	if err != nil {
		writeError(w, r, "Failed to store file", err)
		return
	}
	slog.Info("upload stored",
		slog.String("file", name),
		slog.String("path", stored.Path),
		slog.Int64("size", stored.Size))

	res, err := h.svc.ProcessFile(r.Context(), datasetservice.Upload{
		Filename: name,
		Size:     stored.Size,
		Checksum: stored.Checksum,
		Source:   storage.File{P: h.files, Path: stored.Path},
	})
	if err != nil {
		writeError(w, r, "File processing failed", err)
		return
	}
	writeJSON(w, http.StatusOK, UploadResponse{
		Message:   msgUploaded,
		DatasetID: res.DatasetID,
		Summary:   res.Summary,
	})
}
