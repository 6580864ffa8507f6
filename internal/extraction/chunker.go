package extraction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dianihealth/carebridge/internal/models"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

// ChunkSize caps how many characters a single cache entry may hold, so no
// stored or retrieved unit grows without bound.
const ChunkSize = 1000

// ContentStore is the slice of persistence the chunk writer needs.
type ContentStore interface {
	InsertFileContent(ctx context.Context, fc *models.FileContent) error
}

// SplitText splits text into consecutive, non-overlapping segments of at most
// size characters. Concatenating the segments reproduces the input.
func SplitText(text string, size int) []string {
	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// ChunkWriter persists extracted text as one or more cache entries.
type ChunkWriter struct {
	store ContentStore
	log   *logger.Logger
}

func NewChunkWriter(store ContentStore, log *logger.Logger) *ChunkWriter {
	return &ChunkWriter{store: store, log: log}
}

// PersistChunks writes the text as independent file_contents rows, splitting
// anything over ChunkSize. Multi-chunk entries carry a "(part n/m)" suffix in
// their file name. Individual insert failures are logged and skipped so the
// remaining chunks still land; the return value counts the rows written.
func (w *ChunkWriter) PersistChunks(ctx context.Context, filePath, fileName, patientID, fileType, text string) int {
	parts := SplitText(text, ChunkSize)
	total := len(parts)

	written := 0
	for i, part := range parts {
		name := fileName
		if total > 1 {
			name = fmt.Sprintf("%s (part %d/%d)", fileName, i+1, total)
		}
		fc := &models.FileContent{
			ID:        uuid.NewString(),
			FilePath:  filePath,
			FileName:  name,
			FileType:  fileType,
			Content:   part,
			PatientID: patientID,
			CreatedAt: time.Now(),
		}
		if err := w.store.InsertFileContent(ctx, fc); err != nil {
			w.log.Warn("chunk insert failed", "file", name, "error", err)
			continue
		}
		written++
	}
	return written
}
