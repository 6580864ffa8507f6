package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/models"
)

// ErrValidation marks payload problems handlers answer with a 400.
var ErrValidation = errors.New("validation failed")

var validSexes = map[string]bool{"male": true, "female": true, "other": true}

type PatientInput struct {
	FullName       string `json:"full_name"`
	Age            int    `json:"age"`
	Sex            string `json:"sex"`
	IdentityNumber string `json:"identity_number"`
	Hospital       string `json:"hospital"`
}

type PatientService struct {
	db core.DbClient
}

func NewPatientService(db core.DbClient) *PatientService {
	return &PatientService{db: db}
}

func (s *PatientService) Create(ctx context.Context, createdBy string, in PatientInput) (*models.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	p := &models.Patient{
		ID:             uuid.NewString(),
		CreatedBy:      createdBy,
		FullName:       strings.TrimSpace(in.FullName),
		Age:            in.Age,
		Sex:            in.Sex,
		IdentityNumber: strings.TrimSpace(in.IdentityNumber),
		Hospital:       strings.TrimSpace(in.Hospital),
		CreatedAt:      time.Now(),
	}
	if err := s.db.CreatePatient(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PatientService) Get(ctx context.Context, id string) (*models.Patient, error) {
	return s.db.GetPatientByID(ctx, id)
}

// List returns all patients, or a filtered set when ref is non-empty.
func (s *PatientService) List(ctx context.Context, ref string) ([]models.Patient, error) {
	if strings.TrimSpace(ref) != "" {
		return s.db.SearchPatients(ctx, strings.TrimSpace(ref))
	}
	return s.db.ListPatients(ctx)
}

func (s *PatientService) Update(ctx context.Context, id string, in PatientInput) (*models.Patient, error) {
	if err := validatePatient(in); err != nil {
		return nil, err
	}
	existing, err := s.db.GetPatientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, nil
	}
	existing.FullName = strings.TrimSpace(in.FullName)
	existing.Age = in.Age
	existing.Sex = in.Sex
	existing.IdentityNumber = strings.TrimSpace(in.IdentityNumber)
	existing.Hospital = strings.TrimSpace(in.Hospital)
	if err := s.db.UpdatePatient(ctx, existing); err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *PatientService) Delete(ctx context.Context, id string) error {
	return s.db.DeletePatient(ctx, id)
}

func validatePatient(in PatientInput) error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrValidation)
	}
	if strings.TrimSpace(in.IdentityNumber) == "" {
		return fmt.Errorf("%w: identity_number is required", ErrValidation)
	}
	if in.Age < 0 || in.Age > 150 {
		return fmt.Errorf("%w: age out of range", ErrValidation)
	}
	if !validSexes[in.Sex] {
		return fmt.Errorf("%w: sex must be male, female or other", ErrValidation)
	}
	if strings.TrimSpace(in.Hospital) == "" {
		return fmt.Errorf("%w: hospital is required", ErrValidation)
	}
	return nil
}
