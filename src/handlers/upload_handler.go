package handlers

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/username/reconhub/backend/src/config"
	"github.com/username/reconhub/backend/src/logger"
	"github.com/username/reconhub/backend/src/reports"
	"github.com/username/reconhub/backend/src/security/validation"
	"github.com/username/reconhub/backend/src/services"
	"github.com/username/reconhub/backend/src/utils"
)

type UploadHandler struct {
	reconcileService services.ReconcileService
}

func NewUploadHandler(service services.ReconcileService) *UploadHandler {
	return &UploadHandler{
		reconcileService: service,
	}
}

// HandleUpload stages the uploaded file, runs the reconciliation engine and
// returns the enriched dataset as a downloadable workbook. The engine never
// sees HTTP; temp-file lifecycle is owned here.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	ctxLogger := logger.FromContext(r.Context())

	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		ctxLogger.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to process upload or file too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		ctxLogger.Warn("Failed to retrieve file from request", "error", err)
		utils.SendJSONError(w, "Failed to retrieve file from request. Ensure 'file' field is used.", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
		ctxLogger.Warn("Uploaded file too large", "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("File too large, max %d MB", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	clientContentType := fileHeader.Header.Get("Content-Type")
	if err := validation.ValidateClientContentType(clientContentType); err != nil {
		ctxLogger.Warn("Invalid client-declared file type", "contentType", clientContentType, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := validation.ValidateFileContentByMagicBytes(file); err != nil {
		ctxLogger.Warn("File content validation failed", "filename", fileHeader.Filename, "error", err)
		utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	batchID := uuid.New().String()
	ctxLogger.Info("Processing upload request", "batchID", batchID, "filename", fileHeader.Filename, "size", fileHeader.Size)

	tempPath, err := stageTempFile(file, fileHeader.Filename)
	if err != nil {
		ctxLogger.Error("Failed to stage uploaded file", "error", err)
		utils.SendJSONError(w, "Failed to store uploaded file", http.StatusInternalServerError)
		return
	}
	defer os.Remove(tempPath)

	enrichedRows, summary := h.reconcileService.ProcessFile(tempPath, batchID)

	if summary.Error != "" {
		utils.SendJSONResponse(w, summary, http.StatusUnprocessableEntity)
		return
	}
	if summary.ErrorFatal != "" {
		utils.SendJSONResponse(w, summary, http.StatusInternalServerError)
		return
	}

	if err := os.MkdirAll(config.Cfg.ResultsDir, 0o755); err != nil {
		ctxLogger.Error("Failed to create results directory", "error", err)
		utils.SendJSONError(w, "Failed to prepare result artifact", http.StatusInternalServerError)
		return
	}
	resultName := fmt.Sprintf("reconciled_%s.xlsx", time.Now().Format("20060102_150405"))
	resultPath := filepath.Join(config.Cfg.ResultsDir, resultName)
	if err := reports.WriteEnrichedWorkbook(enrichedRows, resultPath); err != nil {
		ctxLogger.Error("Failed to write enriched workbook", "batchID", batchID, "error", err)
		utils.SendJSONError(w, "Failed to build result artifact", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", resultName))
	w.Header().Set("X-Batch-Id", batchID)
	http.ServeFile(w, r, resultPath)
}

// HandleLatestSummary returns the summary of the most recent batch.
func (h *UploadHandler) HandleLatestSummary(w http.ResponseWriter, r *http.Request) {
	summary, found := h.reconcileService.LatestSummary()
	if !found {
		utils.SendJSONError(w, "No reconciliation has been processed recently", http.StatusNotFound)
		return
	}
	utils.SendJSONResponse(w, summary, http.StatusOK)
}

// HandleBatchSummary returns the summary of one batch by its id.
func (h *UploadHandler) HandleBatchSummary(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	summary, found := h.reconcileService.GetSummary(batchID)
	if !found {
		utils.SendJSONError(w, "Unknown or expired batch id", http.StatusNotFound)
		return
	}
	utils.SendJSONResponse(w, summary, http.StatusOK)
}

// stageTempFile copies the upload into the staging directory, keeping the
// original filename as a suffix so extension-based format detection works.
func stageTempFile(file io.Reader, originalName string) (string, error) {
	if err := os.MkdirAll(config.Cfg.UploadDir, 0o755); err != nil {
		return "", err
	}
	tempName := fmt.Sprintf("TEMP_%s_%s", uuid.New().String(), filepath.Base(originalName))
	tempPath := filepath.Join(config.Cfg.UploadDir, tempName)

	out, err := os.Create(tempPath)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		os.Remove(tempPath)
		return "", err
	}
	return tempPath, nil
}
