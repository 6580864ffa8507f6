package chatbot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianihealth/carebridge/internal/models"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

type fakeAssemblerStore struct {
	patients  []models.Patient
	searchErr error
	files     []models.PatientFile
	notes     []models.PatientNote
	contents  map[string][]models.FileContent
}

var _ AssemblerStore = (*fakeAssemblerStore)(nil)

func (s *fakeAssemblerStore) SearchPatients(_ context.Context, _ string) ([]models.Patient, error) {
	return s.patients, s.searchErr
}

func (s *fakeAssemblerStore) ListFilesByPatient(_ context.Context, _ string) ([]models.PatientFile, error) {
	return s.files, nil
}

func (s *fakeAssemblerStore) ListNotesByPatient(_ context.Context, _ string) ([]models.PatientNote, error) {
	return s.notes, nil
}

func (s *fakeAssemblerStore) GetFileContentsByPath(_ context.Context, filePath string) ([]models.FileContent, error) {
	return s.contents[filePath], nil
}

type fakeObjectClient struct {
	data   map[string][]byte
	getErr error
}

func (o *fakeObjectClient) UploadFile(_ context.Context, _, key string, data []byte, _ string) (string, error) {
	return "/" + key, nil
}

func (o *fakeObjectClient) DeleteFile(_ context.Context, _, _ string) error { return nil }

func (o *fakeObjectClient) GetFile(_ context.Context, _, key string) ([]byte, error) {
	if o.getErr != nil {
		return nil, o.getErr
	}
	return o.data[key], nil
}

type fakeExtractor struct{}

func (fakeExtractor) Extract(_ context.Context, data []byte, _ string) (string, string) {
	return string(data), "txt"
}

type fakePersister struct {
	calls int
	paths []string
}

var _ ChunkPersister = (*fakePersister)(nil)

func (p *fakePersister) PersistChunks(_ context.Context, filePath, _, _, _, _ string) int {
	p.calls++
	p.paths = append(p.paths, filePath)
	return 1
}

type fixedRef struct{ ref string }

func (f fixedRef) Extract(string) string { return f.ref }

func newTestAssembler(store *fakeAssemblerStore, obj *fakeObjectClient, persister *fakePersister, ref string) *Assembler {
	if obj == nil {
		obj = &fakeObjectClient{}
	}
	if persister == nil {
		persister = &fakePersister{}
	}
	return NewAssembler(store, obj, fakeExtractor{}, persister, fixedRef{ref: ref}, "patient-files", logger.NewNop())
}

func TestBuildPatientContextAsksForReference(t *testing.T) {
	a := newTestAssembler(&fakeAssemblerStore{}, nil, nil, "")

	block, terminal, err := a.BuildPatientContext(context.Background(), "hola", "es")

	require.NoError(t, err)
	assert.Empty(t, block)
	assert.Equal(t, "Por favor, indica el nombre o ID del paciente.", terminal)
}

func TestBuildPatientContextNoMatch(t *testing.T) {
	a := newTestAssembler(&fakeAssemblerStore{}, nil, nil, "Nadie")

	block, terminal, err := a.BuildPatientContext(context.Background(), "sobre Nadie", "es")

	require.NoError(t, err)
	assert.Empty(t, block)
	assert.Equal(t, "No se encontró ningún paciente con esa referencia.", terminal)
}

func TestBuildPatientContextDisambiguation(t *testing.T) {
	store := &fakeAssemblerStore{patients: []models.Patient{
		{ID: "1", FullName: "Juan Pérez", IdentityNumber: "A1"},
		{ID: "2", FullName: "Juana Pérez", IdentityNumber: "A2"},
	}}
	a := newTestAssembler(store, nil, nil, "Pérez")

	block, terminal, err := a.BuildPatientContext(context.Background(), "sobre Pérez", "es")

	require.NoError(t, err)
	assert.Empty(t, block)
	assert.Contains(t, terminal, "Se han encontrado 2 pacientes")
	assert.Contains(t, terminal, "• Juan Pérez (A1)")
	assert.Contains(t, terminal, "• Juana Pérez (A2)")
}

func TestBuildPatientContextSearchFailure(t *testing.T) {
	store := &fakeAssemblerStore{searchErr: errors.New("db down")}
	a := newTestAssembler(store, nil, nil, "Juan")

	_, _, err := a.BuildPatientContext(context.Background(), "sobre Juan", "es")

	require.Error(t, err)
}

func TestBuildPatientContextSingleMatchRendersHeader(t *testing.T) {
	store := &fakeAssemblerStore{patients: []models.Patient{{
		ID: "p1", FullName: "Juan Pérez", IdentityNumber: "12345678", Age: 44, Sex: "M", Hospital: "Hospital Central",
	}}}
	a := newTestAssembler(store, nil, nil, "Juan Pérez")

	block, terminal, err := a.BuildPatientContext(context.Background(), "sobre Juan Pérez", "es")

	require.NoError(t, err)
	assert.Empty(t, terminal)
	assert.Contains(t, block, "Paciente: Juan Pérez\nID: 12345678\nEdad: 44\nSexo: M\nHospital: Hospital Central")
	assert.Contains(t, block, "📁 No hay archivos registrados")
	assert.Contains(t, block, "📋 No hay notas médicas registradas")
}

func TestBuildPatientContextUsesCachedContent(t *testing.T) {
	uploaded := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	store := &fakeAssemblerStore{
		patients: []models.Patient{{ID: "p1", FullName: "Juan Pérez"}},
		files: []models.PatientFile{{
			ID: "f1", PatientID: "p1",
			FileURL:      "/storage/v1/object/public/patient-files/p1/f1/informe.txt",
			UploaderName: "Dra. López",
			UploadedAt:   uploaded,
		}},
		contents: map[string][]models.FileContent{
			"/storage/v1/object/public/patient-files/p1/f1/informe.txt": {
				{Content: "primera parte"},
				{Content: "segunda parte"},
			},
		},
	}
	obj := &fakeObjectClient{getErr: errors.New("must not download")}
	persister := &fakePersister{}
	a := newTestAssembler(store, obj, persister, "Juan Pérez")

	block, terminal, err := a.BuildPatientContext(context.Background(), "archivos de Juan Pérez", "es")

	require.NoError(t, err)
	assert.Empty(t, terminal)
	assert.Contains(t, block, "📁 ARCHIVOS DISPONIBLES (1 archivos):")
	assert.Contains(t, block, "--- ARCHIVO: informe.txt ---")
	assert.Contains(t, block, "Subido por: Dra. López")
	assert.Contains(t, block, "Fecha: 15/03/2026")
	assert.Contains(t, block, "primera parte\nsegunda parte")
	assert.Zero(t, persister.calls, "cache hit must not re-extract")
}

func TestBuildPatientContextLazyExtractionOnCacheMiss(t *testing.T) {
	fileURL := "/storage/v1/object/public/patient-files/p1/f1/informe.txt"
	store := &fakeAssemblerStore{
		patients: []models.Patient{{ID: "p1", FullName: "Juan Pérez"}},
		files:    []models.PatientFile{{ID: "f1", PatientID: "p1", FileURL: fileURL}},
	}
	obj := &fakeObjectClient{data: map[string][]byte{
		"p1/f1/informe.txt": []byte("contenido extraído"),
	}}
	persister := &fakePersister{}
	a := newTestAssembler(store, obj, persister, "Juan Pérez")

	block, _, err := a.BuildPatientContext(context.Background(), "archivos de Juan Pérez", "es")

	require.NoError(t, err)
	assert.Contains(t, block, "contenido extraído")
	assert.Equal(t, 1, persister.calls)
	assert.Equal(t, []string{fileURL}, persister.paths)
}

func TestBuildPatientContextDownloadFailureRendersError(t *testing.T) {
	store := &fakeAssemblerStore{
		patients: []models.Patient{{ID: "p1", FullName: "Juan Pérez"}},
		files:    []models.PatientFile{{ID: "f1", PatientID: "p1", FileURL: "/x/informe.txt"}},
	}
	obj := &fakeObjectClient{getErr: errors.New("503")}
	a := newTestAssembler(store, obj, nil, "Juan Pérez")

	block, _, err := a.BuildPatientContext(context.Background(), "archivos de Juan Pérez", "es")

	require.NoError(t, err)
	assert.Contains(t, block, "Error al leer el archivo: informe.txt")
}

func TestBuildPatientContextCapsNotesAtThree(t *testing.T) {
	now := time.Now()
	store := &fakeAssemblerStore{
		patients: []models.Patient{{ID: "p1", FullName: "Juan Pérez"}},
		notes: []models.PatientNote{
			{Diagnosis: "D1", Treatment: "T1", CreatedAt: now},
			{Diagnosis: "D2", Treatment: "T2", Observations: "obs", CreatedAt: now},
			{Diagnosis: "D3", Treatment: "T3", CreatedAt: now},
			{Diagnosis: "D4", Treatment: "T4", CreatedAt: now},
		},
	}
	a := newTestAssembler(store, nil, nil, "Juan Pérez")

	block, _, err := a.BuildPatientContext(context.Background(), "sobre Juan Pérez", "es")

	require.NoError(t, err)
	assert.Contains(t, block, "📋 NOTAS MÉDICAS RECIENTES:")
	assert.Contains(t, block, "(1) Diagnóstico: D1")
	assert.Contains(t, block, "(3) Diagnóstico: D3")
	assert.NotContains(t, block, "D4")
	assert.Contains(t, block, "Observaciones: obs")
	assert.Contains(t, block, "Observaciones: -")
}

func TestBuildPatientContextTruncatesLongCachedEntries(t *testing.T) {
	long := strings.Repeat("x", 1500)
	fileURL := "/storage/v1/object/public/patient-files/p1/f1/grande.txt"
	store := &fakeAssemblerStore{
		patients: []models.Patient{{ID: "p1", FullName: "Juan Pérez"}},
		files:    []models.PatientFile{{ID: "f1", PatientID: "p1", FileURL: fileURL}},
		contents: map[string][]models.FileContent{fileURL: {{Content: long}}},
	}
	a := newTestAssembler(store, nil, nil, "Juan Pérez")

	block, _, err := a.BuildPatientContext(context.Background(), "sobre Juan Pérez", "es")

	require.NoError(t, err)
	assert.Contains(t, block, strings.Repeat("x", 1000))
	assert.NotContains(t, block, strings.Repeat("x", 1001))
}
