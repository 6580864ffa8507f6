package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianihealth/carebridge/internal/models"
)

func TestCreateNote(t *testing.T) {
	db := &mockDB{byID: &models.Patient{ID: "p1"}}
	s := NewNoteService(db)

	n, err := s.Create(context.Background(), "p1", "u1", NoteInput{
		Diagnosis: " Gripe ",
		Treatment: "Reposo",
	})

	require.NoError(t, err)
	require.NotNil(t, db.createdNote)
	assert.NotEmpty(t, n.ID)
	assert.Equal(t, "p1", n.PatientID)
	assert.Equal(t, "u1", n.CreatedBy)
	assert.Equal(t, "Gripe", n.Diagnosis)
	assert.False(t, n.CreatedAt.IsZero())
}

func TestCreateNoteUnknownPatient(t *testing.T) {
	db := &mockDB{byID: nil}
	s := NewNoteService(db)

	_, err := s.Create(context.Background(), "missing", "u1", NoteInput{Diagnosis: "Gripe"})

	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, db.createdNote)
}

func TestCreateNoteNeedsDiagnosisOrTreatment(t *testing.T) {
	db := &mockDB{byID: &models.Patient{ID: "p1"}}
	s := NewNoteService(db)

	_, err := s.Create(context.Background(), "p1", "u1", NoteInput{Observations: "solo observaciones"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Create(context.Background(), "p1", "u1", NoteInput{Treatment: "Reposo"})
	assert.NoError(t, err, "treatment alone is enough")
}
