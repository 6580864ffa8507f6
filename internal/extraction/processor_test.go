package extraction

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type processorStore struct {
	recordingStore
	deletedPaths []string
	deleteErr    error
}

var _ ProcessorStore = (*processorStore)(nil)

func (s *processorStore) DeleteFileContentsByPath(_ context.Context, filePath string) error {
	s.deletedPaths = append(s.deletedPaths, filePath)
	return s.deleteErr
}

type staticObjectClient struct {
	data   []byte
	keys   []string
	getErr error
}

func (o *staticObjectClient) UploadFile(_ context.Context, _, key string, _ []byte, _ string) (string, error) {
	return "/" + key, nil
}

func (o *staticObjectClient) DeleteFile(_ context.Context, _, _ string) error { return nil }

func (o *staticObjectClient) GetFile(_ context.Context, _, key string) ([]byte, error) {
	o.keys = append(o.keys, key)
	if o.getErr != nil {
		return nil, o.getErr
	}
	return o.data, nil
}

func newTestProcessor(store *processorStore, obj *staticObjectClient) *FileProcessor {
	log := logger.NewNop()
	return NewFileProcessor(store, obj, NewDocconvExtractor(log), NewChunkWriter(store, log), "patient-files", log)
}

func TestProcessOneTxtFile(t *testing.T) {
	store := &processorStore{}
	obj := &staticObjectClient{data: []byte("historia clínica del paciente")}
	p := newTestProcessor(store, obj)

	outcome, err := p.ProcessOne(context.Background(), Job{
		FileURL:   "/storage/v1/object/public/patient-files/p1/f1/informe.txt",
		FileName:  "informe.txt",
		PatientID: "p1",
	})

	require.NoError(t, err)
	assert.Equal(t, "txt", outcome.FileType)
	assert.Equal(t, len("historia clínica del paciente"), outcome.ContentLength)
	assert.Equal(t, 1, outcome.Chunks)
	assert.Equal(t, []string{"p1/f1/informe.txt"}, obj.keys, "public URL prefix must be stripped")
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "historia clínica del paciente", store.inserted[0].Content)
}

func TestProcessOneReplacesStaleChunks(t *testing.T) {
	store := &processorStore{}
	obj := &staticObjectClient{data: []byte(strings.Repeat("x", 1500))}
	p := newTestProcessor(store, obj)

	fileURL := "/storage/v1/object/public/patient-files/p1/f1/informe.txt"
	outcome, err := p.ProcessOne(context.Background(), Job{FileURL: fileURL, FileName: "informe.txt", PatientID: "p1"})

	require.NoError(t, err)
	assert.Equal(t, []string{fileURL}, store.deletedPaths)
	assert.Equal(t, 2, outcome.Chunks)
}

func TestProcessOneDownloadFailureCachesPlaceholder(t *testing.T) {
	store := &processorStore{}
	obj := &staticObjectClient{getErr: errors.New("object missing")}
	p := newTestProcessor(store, obj)

	outcome, err := p.ProcessOne(context.Background(), Job{FileURL: "/x/f.txt", FileName: "f.txt", PatientID: "p1"})

	require.NoError(t, err)
	assert.Equal(t, "unknown", outcome.FileType)
	require.Len(t, store.inserted, 1)
	assert.Contains(t, store.inserted[0].Content, "Error descargando archivo")
}

func TestProcessOneDeleteFailureStillPersists(t *testing.T) {
	store := &processorStore{deleteErr: errors.New("db hiccup")}
	obj := &staticObjectClient{data: []byte("contenido")}
	p := newTestProcessor(store, obj)

	outcome, err := p.ProcessOne(context.Background(), Job{FileURL: "/x/f.txt", FileName: "f.txt", PatientID: "p1"})

	require.NoError(t, err)
	assert.Equal(t, 1, outcome.Chunks)
}
