package extraction

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"code.sajari.com/docconv"

	"github.com/dianihealth/carebridge/internal/platform/logger"
)

// Extractor turns a downloaded blob into text. It never fails: every problem
// degrades to a human-readable placeholder so one bad file cannot abort a
// loop over a patient's whole file set.
type Extractor interface {
	Extract(ctx context.Context, data []byte, fileName string) (content, fileType string)
}

var imageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"gif":  true,
	"bmp":  true,
}

// DocconvExtractor dispatches on the lower-cased file extension and runs
// docconv for PDF, DOCX and images (OCR, when built with the ocr tag).
type DocconvExtractor struct {
	log *logger.Logger
}

var _ Extractor = (*DocconvExtractor)(nil)

func NewDocconvExtractor(log *logger.Logger) *DocconvExtractor {
	return &DocconvExtractor{log: log}
}

func (e *DocconvExtractor) Extract(ctx context.Context, data []byte, fileName string) (string, string) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), "."))
	if ext == "" {
		ext = "unknown"
	}

	switch {
	case ext == "txt":
		return string(data), "txt"

	case ext == "pdf":
		if text := e.convert(ctx, data, fileName); text != "" {
			return text, "pdf"
		}
		return fmt.Sprintf("Archivo PDF: %s (%d bytes). No se pudo extraer texto automáticamente.", fileName, len(data)), "pdf"

	case ext == "docx":
		if text := e.convert(ctx, data, fileName); text != "" {
			return text, "docx"
		}
		return fmt.Sprintf("Documento Word: %s (%d bytes). No se pudo extraer texto automáticamente.", fileName, len(data)), "docx"

	case imageExtensions[ext]:
		if text := e.convert(ctx, data, fileName); text != "" {
			return text, ext
		}
		return fmt.Sprintf("Imagen: %s (%d bytes). No se pudo extraer texto automáticamente.", fileName, len(data)), ext

	default:
		return fmt.Sprintf("Archivo: %s (tipo no soportado para lectura automática)", fileName), ext
	}
}

// convert runs docconv and flattens every failure mode to "".
func (e *DocconvExtractor) convert(ctx context.Context, data []byte, fileName string) string {
	if err := ctx.Err(); err != nil {
		return ""
	}
	res, err := docconv.Convert(bytes.NewReader(data), docconv.MimeTypeByExtension(fileName), false)
	if err != nil {
		e.log.Debug("extraction failed", "file", fileName, "error", err)
		return ""
	}
	return strings.TrimSpace(res.Body)
}
