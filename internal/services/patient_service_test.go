package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/models"
)

// mockDB embeds the interface so tests only implement the methods they hit;
// anything else panics loudly.
type mockDB struct {
	core.DbClient

	created     *models.Patient
	updated     *models.Patient
	byID        *models.Patient
	all         []models.Patient
	searched    []models.Patient
	searchRef   string
	deletedID   string
	notesByID   map[string][]models.PatientNote
	createdNote *models.PatientNote
}

func (m *mockDB) CreatePatient(_ context.Context, p *models.Patient) error {
	m.created = p
	return nil
}

func (m *mockDB) GetPatientByID(_ context.Context, _ string) (*models.Patient, error) {
	return m.byID, nil
}

func (m *mockDB) ListPatients(_ context.Context) ([]models.Patient, error) {
	return m.all, nil
}

func (m *mockDB) SearchPatients(_ context.Context, ref string) ([]models.Patient, error) {
	m.searchRef = ref
	return m.searched, nil
}

func (m *mockDB) UpdatePatient(_ context.Context, p *models.Patient) error {
	m.updated = p
	return nil
}

func (m *mockDB) DeletePatient(_ context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *mockDB) ListNotesByPatient(_ context.Context, patientID string) ([]models.PatientNote, error) {
	return m.notesByID[patientID], nil
}

func (m *mockDB) CreateNote(_ context.Context, n *models.PatientNote) error {
	m.createdNote = n
	return nil
}

func validInput() PatientInput {
	return PatientInput{
		FullName:       "Juan Pérez",
		Age:            44,
		Sex:            "male",
		IdentityNumber: "12345678",
		Hospital:       "Hospital Central",
	}
}

func TestCreatePatient(t *testing.T) {
	db := &mockDB{}
	s := NewPatientService(db)

	p, err := s.Create(context.Background(), "u1", validInput())

	require.NoError(t, err)
	require.NotNil(t, db.created)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "u1", p.CreatedBy)
	assert.Equal(t, "Juan Pérez", p.FullName)
	assert.False(t, p.CreatedAt.IsZero())
}

func TestCreatePatientTrimsFields(t *testing.T) {
	db := &mockDB{}
	s := NewPatientService(db)

	in := validInput()
	in.FullName = "  Juan Pérez  "
	in.IdentityNumber = " 12345678 "

	p, err := s.Create(context.Background(), "u1", in)

	require.NoError(t, err)
	assert.Equal(t, "Juan Pérez", p.FullName)
	assert.Equal(t, "12345678", p.IdentityNumber)
}

func TestCreatePatientValidation(t *testing.T) {
	s := NewPatientService(&mockDB{})

	cases := []struct {
		name   string
		mutate func(*PatientInput)
	}{
		{"missing name", func(in *PatientInput) { in.FullName = "  " }},
		{"missing identity", func(in *PatientInput) { in.IdentityNumber = "" }},
		{"negative age", func(in *PatientInput) { in.Age = -1 }},
		{"absurd age", func(in *PatientInput) { in.Age = 151 }},
		{"bad sex", func(in *PatientInput) { in.Sex = "yes" }},
		{"missing hospital", func(in *PatientInput) { in.Hospital = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := validInput()
			tc.mutate(&in)

			_, err := s.Create(context.Background(), "u1", in)

			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestListPatientsWithAndWithoutFilter(t *testing.T) {
	db := &mockDB{
		all:      []models.Patient{{ID: "1"}, {ID: "2"}},
		searched: []models.Patient{{ID: "1"}},
	}
	s := NewPatientService(db)

	all, err := s.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := s.List(context.Background(), " Juan ")
	require.NoError(t, err)
	assert.Len(t, filtered, 1)
	assert.Equal(t, "Juan", db.searchRef)
}

func TestUpdatePatientNotFound(t *testing.T) {
	db := &mockDB{byID: nil}
	s := NewPatientService(db)

	p, err := s.Update(context.Background(), "missing", validInput())

	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Nil(t, db.updated)
}

func TestUpdatePatientOverwritesFields(t *testing.T) {
	db := &mockDB{byID: &models.Patient{ID: "p1", CreatedBy: "u1", FullName: "Old Name"}}
	s := NewPatientService(db)

	p, err := s.Update(context.Background(), "p1", validInput())

	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "p1", p.ID)
	assert.Equal(t, "u1", p.CreatedBy, "ownership must survive updates")
	assert.Equal(t, "Juan Pérez", p.FullName)
	require.NotNil(t, db.updated)
}

func TestDeletePatient(t *testing.T) {
	db := &mockDB{}
	s := NewPatientService(db)

	require.NoError(t, s.Delete(context.Background(), "p1"))
	assert.Equal(t, "p1", db.deletedID)
}
