package validation

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/username/cobranzas/backend/src/logger"
)

// AllowedClientContentTypes is a map for quick lookup of allowed client-declared MIME types.
var AllowedClientContentTypes = map[string]bool{
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true, // .xlsx
	"application/vnd.ms-excel": true, // .xls
	"application/octet-stream": true, // browsers often fall back to this for binary uploads
}

// Workbook file signatures. An .xlsx is a ZIP container; an .xls is an OLE
// compound file.
var (
	zipSignature = []byte{0x50, 0x4B, 0x03, 0x04}
	oleSignature = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// ValidateClientContentType checks the Content-Type header provided by the client.
func ValidateClientContentType(contentType string) error {
	normalized := strings.ToLower(strings.Split(contentType, ";")[0])
	if allowed, exists := AllowedClientContentTypes[normalized]; !exists || !allowed {
		logger.L.Warn("Disallowed client-declared Content-Type", "contentType", contentType)
		return fmt.Errorf("client-declared file type '%s' is not allowed for workbook upload", contentType)
	}
	return nil
}

// ValidateFileContentByMagicBytes checks the actual file content signature (magic bytes).
// It returns the detected content type and an error if validation fails.
func ValidateFileContentByMagicBytes(file io.ReadSeeker) (string, error) {
	if file == nil {
		return "", fmt.Errorf("file is nil")
	}

	buffer := make([]byte, 8)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read file for content type checking: %w", err)
	}

	// IMPORTANT: Reset the file read pointer to the beginning so the actual parser can read the full file.
	_, seekErr := file.Seek(0, io.SeekStart)
	if seekErr != nil {
		return "", fmt.Errorf("failed to reset file read pointer: %w", seekErr)
	}

	switch {
	case n >= len(zipSignature) && bytes.HasPrefix(buffer[:n], zipSignature):
		logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", "xlsx")
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", nil
	case n >= len(oleSignature) && bytes.HasPrefix(buffer[:n], oleSignature):
		logger.L.Debug("File content type (magic bytes) validated", "detectedContentType", "xls")
		return "application/vnd.ms-excel", nil
	default:
		logger.L.Warn("Disallowed detected file content type (magic bytes)")
		return "", fmt.Errorf("file content is not a recognizable Excel workbook (.xlsx or .xls)")
	}
}
