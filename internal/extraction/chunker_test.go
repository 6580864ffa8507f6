package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianihealth/carebridge/internal/models"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type recordingStore struct {
	inserted []*models.FileContent
	failOn   int // 1-based call index to fail; 0 means never
	calls    int
}

var _ ContentStore = (*recordingStore)(nil)

func (s *recordingStore) InsertFileContent(_ context.Context, fc *models.FileContent) error {
	s.calls++
	if s.failOn != 0 && s.calls == s.failOn {
		return errors.New("insert failed")
	}
	s.inserted = append(s.inserted, fc)
	return nil
}

func TestSplitTextShortInputSingleSegment(t *testing.T) {
	parts := SplitText("corto", ChunkSize)

	require.Len(t, parts, 1)
	assert.Equal(t, "corto", parts[0])
}

func TestSplitTextSegmentsConcatenateToInput(t *testing.T) {
	text := strings.Repeat("á", 2500) // multibyte so byte slicing would corrupt

	parts := SplitText(text, ChunkSize)

	require.Len(t, parts, 3)
	for _, p := range parts {
		assert.LessOrEqual(t, len([]rune(p)), ChunkSize)
	}
	assert.Equal(t, text, strings.Join(parts, ""))
}

func TestSplitTextExactMultiple(t *testing.T) {
	parts := SplitText(strings.Repeat("x", 2000), ChunkSize)

	require.Len(t, parts, 2)
	assert.Len(t, parts[0], ChunkSize)
	assert.Len(t, parts[1], ChunkSize)
}

func TestPersistChunksSingleChunkKeepsFileName(t *testing.T) {
	store := &recordingStore{}
	w := NewChunkWriter(store, logger.NewNop())

	written := w.PersistChunks(context.Background(), "/path/informe.txt", "informe.txt", "p1", "txt", "breve")

	assert.Equal(t, 1, written)
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "informe.txt", store.inserted[0].FileName)
	assert.Equal(t, "/path/informe.txt", store.inserted[0].FilePath)
	assert.Equal(t, "p1", store.inserted[0].PatientID)
}

func TestPersistChunksMultiChunkAddsPartSuffix(t *testing.T) {
	store := &recordingStore{}
	w := NewChunkWriter(store, logger.NewNop())

	written := w.PersistChunks(context.Background(), "/path/informe.txt", "informe.txt", "p1", "txt", strings.Repeat("x", 2100))

	assert.Equal(t, 3, written)
	require.Len(t, store.inserted, 3)
	assert.Equal(t, "informe.txt (part 1/3)", store.inserted[0].FileName)
	assert.Equal(t, "informe.txt (part 2/3)", store.inserted[1].FileName)
	assert.Equal(t, "informe.txt (part 3/3)", store.inserted[2].FileName)
}

func TestPersistChunksSkipsFailedInsert(t *testing.T) {
	store := &recordingStore{failOn: 2}
	w := NewChunkWriter(store, logger.NewNop())

	written := w.PersistChunks(context.Background(), "/p/f.txt", "f.txt", "p1", "txt", strings.Repeat("x", 2100))

	assert.Equal(t, 2, written)
	require.Len(t, store.inserted, 2)
	assert.Equal(t, "f.txt (part 1/3)", store.inserted[0].FileName)
	assert.Equal(t, "f.txt (part 3/3)", store.inserted[1].FileName)
}
