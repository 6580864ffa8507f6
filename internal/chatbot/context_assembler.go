package chatbot

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dianihealth/carebridge/internal/core"
	objectclient "github.com/dianihealth/carebridge/internal/core/object-client"
	"github.com/dianihealth/carebridge/internal/extraction"
	"github.com/dianihealth/carebridge/internal/models"
	"github.com/dianihealth/carebridge/internal/platform/logger"
)

const (
	msgAskReference = "Por favor, indica el nombre o ID del paciente."
	msgNotFound     = "No se encontró ningún paciente con esa referencia."

	// previewLimit caps how much of a single cache entry ends up in the
	// rendered context.
	previewLimit = 1000

	// maxNotes is how many recent medical notes make it into the context.
	maxNotes = 3

	// fileFanout bounds concurrent content resolution across a patient's
	// files.
	fileFanout = 4
)

// AssemblerStore is the read surface the assembler needs.
type AssemblerStore interface {
	SearchPatients(ctx context.Context, ref string) ([]models.Patient, error)
	ListFilesByPatient(ctx context.Context, patientID string) ([]models.PatientFile, error)
	ListNotesByPatient(ctx context.Context, patientID string) ([]models.PatientNote, error)
	GetFileContentsByPath(ctx context.Context, filePath string) ([]models.FileContent, error)
}

// ChunkPersister writes lazily extracted content back into the cache.
type ChunkPersister interface {
	PersistChunks(ctx context.Context, filePath, fileName, patientID, fileType, text string) int
}

// Assembler resolves a patient from the latest user message and renders the
// database-grounded context block: demographics, file contents and recent
// notes.
type Assembler struct {
	store     AssemblerStore
	obj       core.ObjectClient
	extractor extraction.Extractor
	chunks    ChunkPersister
	refs      ReferenceExtractor
	bucket    string
	log       *logger.Logger
}

func NewAssembler(store AssemblerStore, obj core.ObjectClient, extractor extraction.Extractor, chunks ChunkPersister, refs ReferenceExtractor, bucket string, log *logger.Logger) *Assembler {
	return &Assembler{
		store:     store,
		obj:       obj,
		extractor: extractor,
		chunks:    chunks,
		refs:      refs,
		bucket:    bucket,
		log:       log,
	}
}

// BuildPatientContext returns either a context block or a terminal
// conversational outcome (ask-for-reference, not-found, disambiguation).
// Terminal outcomes are ordinary assistant content, not errors; err is
// reserved for infrastructure failures.
func (a *Assembler) BuildPatientContext(ctx context.Context, lastUserMsg, language string) (contextBlock, terminal string, err error) {
	ref := a.refs.Extract(lastUserMsg)
	if ref == "" {
		return "", msgAskReference, nil
	}

	patients, err := a.store.SearchPatients(ctx, ref)
	if err != nil {
		return "", "", fmt.Errorf("search patients: %w", err)
	}

	switch {
	case len(patients) == 0:
		return "", msgNotFound, nil
	case len(patients) > 1:
		return "", disambiguation(patients), nil
	}

	patient := patients[0]

	var b strings.Builder
	fmt.Fprintf(&b, "Paciente: %s\nID: %s\nEdad: %d\nSexo: %s\nHospital: %s\n",
		patient.FullName, patient.IdentityNumber, patient.Age, patient.Sex, patient.Hospital)

	files, err := a.store.ListFilesByPatient(ctx, patient.ID)
	if err != nil {
		return "", "", fmt.Errorf("list patient files: %w", err)
	}

	if len(files) == 0 {
		b.WriteString("\n📁 No hay archivos registrados para este paciente.\n")
	} else {
		fmt.Fprintf(&b, "\n📁 ARCHIVOS DISPONIBLES (%d archivos):\n", len(files))

		// Bounded fan-out; rendering below keeps the newest-first order no
		// matter which resolution finishes first.
		contents := make([]string, len(files))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(fileFanout)
		for i, f := range files {
			i, f := i, f
			g.Go(func() error {
				contents[i] = a.fileContent(gctx, f)
				return nil
			})
		}
		_ = g.Wait()

		for i, f := range files {
			name := fileDisplayName(f.FileURL)
			uploader := f.UploaderName
			if uploader == "" {
				uploader = "N/A"
			}
			fmt.Fprintf(&b, "\n--- ARCHIVO: %s ---\nSubido por: %s\nFecha: %s\nContenido: %s\n",
				name, uploader, formatDate(f, language), contents[i])
		}
	}

	notes, err := a.store.ListNotesByPatient(ctx, patient.ID)
	if err != nil {
		a.log.Warn("listing patient notes failed", "patient", patient.ID, "error", err)
		notes = nil
	}
	if len(notes) == 0 {
		b.WriteString("\n📋 No hay notas médicas registradas para este paciente.\n")
	} else {
		b.WriteString("\n📋 NOTAS MÉDICAS RECIENTES:\n")
		if len(notes) > maxNotes {
			notes = notes[:maxNotes]
		}
		for i, n := range notes {
			obs := n.Observations
			if obs == "" {
				obs = "-"
			}
			fmt.Fprintf(&b, "(%d) Diagnóstico: %s\nTratamiento: %s\nObservaciones: %s\nFecha: %s\n\n",
				i+1, n.Diagnosis, n.Treatment, obs, n.CreatedAt.Format("2006-01-02 15:04"))
		}
	}

	return b.String(), "", nil
}

// fileContent resolves a file's text from the cache, falling back to a
// synchronous extraction whose result is persisted back for the next turn.
func (a *Assembler) fileContent(ctx context.Context, f models.PatientFile) string {
	name := fileDisplayName(f.FileURL)

	entries, err := a.store.GetFileContentsByPath(ctx, f.FileURL)
	if err != nil {
		a.log.Warn("cache lookup failed", "file", name, "error", err)
	}
	if len(entries) > 0 {
		parts := make([]string, 0, len(entries))
		for _, e := range entries {
			parts = append(parts, preview(e.Content, previewLimit))
		}
		return strings.Join(parts, "\n")
	}

	// Cache miss: extract now and persist for later turns. Note the lazy
	// path appends without clearing stale entries, so duplicates can
	// accumulate when it races with upload-time processing.
	data, err := a.obj.GetFile(ctx, a.bucket, objectclient.PathFromPublicURL(f.FileURL))
	if err != nil {
		a.log.Warn("file download failed", "file", name, "error", err)
		return fmt.Sprintf("Error al leer el archivo: %s", name)
	}

	content, fileType := a.extractor.Extract(ctx, data, name)
	a.chunks.PersistChunks(ctx, f.FileURL, name, f.PatientID, fileType, content)
	return preview(content, previewLimit)
}

func disambiguation(patients []models.Patient) string {
	lines := make([]string, 0, len(patients))
	for _, p := range patients {
		lines = append(lines, fmt.Sprintf("• %s (%s)", p.FullName, p.IdentityNumber))
	}
	return fmt.Sprintf(
		"Se han encontrado %d pacientes. Por favor, especifica el nombre completo o el número de identificación:\n%s",
		len(patients), strings.Join(lines, "\n"))
}

func fileDisplayName(fileURL string) string {
	if i := strings.LastIndex(fileURL, "/"); i >= 0 && i+1 < len(fileURL) {
		return fileURL[i+1:]
	}
	if fileURL == "" || strings.HasSuffix(fileURL, "/") {
		return "archivo"
	}
	return fileURL
}

func formatDate(f models.PatientFile, language string) string {
	if language == "en" {
		return f.UploadedAt.Format("01/02/2006")
	}
	return f.UploadedAt.Format("02/01/2006")
}

func preview(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit])
}
