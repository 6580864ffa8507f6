package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/models"
)

type NoteInput struct {
	Diagnosis    string `json:"diagnosis"`
	Treatment    string `json:"treatment"`
	Observations string `json:"observations"`
}

type NoteService struct {
	db core.DbClient
}

func NewNoteService(db core.DbClient) *NoteService {
	return &NoteService{db: db}
}

func (s *NoteService) Create(ctx context.Context, patientID, createdBy string, in NoteInput) (*models.PatientNote, error) {
	if err := validateNote(in); err != nil {
		return nil, err
	}
	patient, err := s.db.GetPatientByID(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if patient == nil {
		return nil, fmt.Errorf("%w: patient not found", ErrValidation)
	}
	n := &models.PatientNote{
		ID:           uuid.NewString(),
		PatientID:    patientID,
		CreatedBy:    createdBy,
		Diagnosis:    strings.TrimSpace(in.Diagnosis),
		Treatment:    strings.TrimSpace(in.Treatment),
		Observations: strings.TrimSpace(in.Observations),
		CreatedAt:    time.Now(),
	}
	if err := s.db.CreateNote(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NoteService) ListByPatient(ctx context.Context, patientID string) ([]models.PatientNote, error) {
	return s.db.ListNotesByPatient(ctx, patientID)
}

// Update overwrites the note in place; there is no edit history.
func (s *NoteService) Update(ctx context.Context, id string, in NoteInput) error {
	if err := validateNote(in); err != nil {
		return err
	}
	return s.db.UpdateNote(ctx, &models.PatientNote{
		ID:           id,
		Diagnosis:    strings.TrimSpace(in.Diagnosis),
		Treatment:    strings.TrimSpace(in.Treatment),
		Observations: strings.TrimSpace(in.Observations),
	})
}

func (s *NoteService) Delete(ctx context.Context, id string) error {
	return s.db.DeleteNote(ctx, id)
}

func validateNote(in NoteInput) error {
	if strings.TrimSpace(in.Diagnosis) == "" && strings.TrimSpace(in.Treatment) == "" {
		return fmt.Errorf("%w: a note needs a diagnosis or a treatment", ErrValidation)
	}
	return nil
}
