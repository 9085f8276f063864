// backend/src/handlers/upload_handler.go
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/username/cobranzas/backend/src/config"
	"github.com/username/cobranzas/backend/src/logger"
	"github.com/username/cobranzas/backend/src/parsers"
	"github.com/username/cobranzas/backend/src/security/validation"
	"github.com/username/cobranzas/backend/src/services"
	"github.com/username/cobranzas/backend/src/utils"
)

type UploadHandler struct {
	ingestionService services.IngestionService
}

func NewUploadHandler(service services.IngestionService) *UploadHandler {
	return &UploadHandler{
		ingestionService: service,
	}
}

// HandleUpload receives the quotes/sales workbook and the client ledger
// workbook in one multipart request under the "files" field, runs the full
// pipeline and returns the resulting dataset.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		utils.SendJSONError(w, "No files received. Ensure the 'files' field is used.", http.StatusBadRequest)
		return
	}

	fileHeaders := r.MultipartForm.File["files"]
	inputs := make([]parsers.InputFile, 0, len(fileHeaders))

	for _, fileHeader := range fileHeaders {
		if fileHeader.Size > config.Cfg.MaxUploadSizeBytes {
			logger.L.Warn("Uploaded file header reports size too large", "filename", fileHeader.Filename, "fileSize", fileHeader.Size, "limit", config.Cfg.MaxUploadSizeBytes)
			utils.SendJSONError(w, fmt.Sprintf("File %s too large, max %d MB", fileHeader.Filename, config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
			return
		}

		clientContentType := fileHeader.Header.Get("Content-Type")
		if err := validation.ValidateClientContentType(clientContentType); err != nil {
			logger.L.Warn("Invalid client-declared file type", "filename", fileHeader.Filename, "contentType", clientContentType, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		file, err := fileHeader.Open()
		if err != nil {
			logger.L.Warn("Failed to open uploaded file", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Failed to read file %s.", fileHeader.Filename), http.StatusBadRequest)
			return
		}
		defer file.Close()

		detectedContentType, err := validation.ValidateFileContentByMagicBytes(file)
		if err != nil {
			logger.L.Warn("Server-side file content validation failed", "filename", fileHeader.Filename, "error", err)
			utils.SendJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		logger.L.Info("File content validated by magic bytes", "filename", fileHeader.Filename, "clientType", clientContentType, "detectedType", detectedContentType)

		inputs = append(inputs, parsers.InputFile{Name: fileHeader.Filename, Reader: file})
	}

	logger.L.Info("Processing upload request", "files", len(inputs))
	result, err := h.ingestionService.ProcessUpload(inputs)
	if err != nil {
		if errors.Is(err, services.ErrParsingFailed) {
			logger.L.Warn("Upload processing failed due to workbook parsing errors", "error", err)
			utils.SendJSONError(w, fmt.Sprintf("Error leyendo los archivos Excel: %v", err), http.StatusBadRequest)
		} else {
			logger.L.Error("Internal error processing upload", "error", err)
			utils.SendJSONError(w, "An internal error occurred while processing the files. Please try again later.", http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		logger.L.Error("Error encoding JSON response for upload result", "error", err)
	}
}

// HandleGetDataset serves the latest processed dataset with ETag support so
// polling dashboards avoid re-downloading an unchanged payload.
func (h *UploadHandler) HandleGetDataset(w http.ResponseWriter, r *http.Request) {
	logger.L.Debug("Handling GetDataset request with ETag support")

	dataset, err := h.ingestionService.LatestDataset()
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			utils.SendJSONError(w, "No hay datos cargados todavía. Subí los archivos primero.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving dataset from service", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving dataset: %v", err), http.StatusInternalServerError)
		return
	}

	currentETag, etagErr := utils.GenerateETag(dataset)
	if etagErr != nil {
		logger.L.Error("Failed to generate ETag for dataset", "error", etagErr)
	}

	w.Header().Set("Cache-Control", "no-cache, private")

	if etagErr == nil && currentETag != "" {
		quotedETag := fmt.Sprintf("\"%s\"", currentETag)
		w.Header().Set("ETag", quotedETag)
		clientETag := r.Header.Get("If-None-Match")
		clientETags := strings.Split(clientETag, ",")
		for _, cETag := range clientETags {
			if strings.TrimSpace(cETag) == quotedETag {
				logger.L.Info("ETag match for dataset", "etag", currentETag)
				w.WriteHeader(http.StatusNotModified)
				return
			}
		}
		if clientETag != "" {
			logger.L.Debug("ETag mismatch", "clientETags", clientETag, "serverETag", quotedETag)
		}
	} else {
		logger.L.Warn("Proceeding without ETag check due to ETag generation error or empty ETag")
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(dataset); err != nil {
		logger.L.Error("Error generating JSON response for dataset", "error", err)
	}
}

// HandleGetKPIs serves the full KPI roll-up of the latest dataset.
func (h *UploadHandler) HandleGetKPIs(w http.ResponseWriter, r *http.Request) {
	kpis, err := h.ingestionService.LatestKPIs()
	if err != nil {
		if errors.Is(err, services.ErrNoDataset) {
			utils.SendJSONError(w, "No hay datos cargados todavía. Subí los archivos primero.", http.StatusNotFound)
			return
		}
		logger.L.Error("Error retrieving KPIs from service", "error", err)
		utils.SendJSONError(w, fmt.Sprintf("Error retrieving KPIs: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(kpis); err != nil {
		logger.L.Error("Error encoding JSON response for KPIs", "error", err)
	}
}
