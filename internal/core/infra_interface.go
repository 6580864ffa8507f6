package core

import (
	"context"

	"github.com/dianihealth/carebridge/internal/models"
)

// DbClient defines all persistence operations the services need.
// It abstracts Postgres so higher layers never depend on a specific DB.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	CreatePatient(ctx context.Context, p *models.Patient) error
	GetPatientByID(ctx context.Context, id string) (*models.Patient, error)
	ListPatients(ctx context.Context) ([]models.Patient, error)
	SearchPatients(ctx context.Context, ref string) ([]models.Patient, error)
	UpdatePatient(ctx context.Context, p *models.Patient) error
	DeletePatient(ctx context.Context, id string) error

	CreatePatientFile(ctx context.Context, f *models.PatientFile) error
	GetPatientFileByID(ctx context.Context, id string) (*models.PatientFile, error)
	ListFilesByPatient(ctx context.Context, patientID string) ([]models.PatientFile, error)
	DeletePatientFile(ctx context.Context, id string) error

	CreateNote(ctx context.Context, n *models.PatientNote) error
	ListNotesByPatient(ctx context.Context, patientID string) ([]models.PatientNote, error)
	UpdateNote(ctx context.Context, n *models.PatientNote) error
	DeleteNote(ctx context.Context, id string) error

	InsertFileContent(ctx context.Context, fc *models.FileContent) error
	GetFileContentsByPath(ctx context.Context, filePath string) ([]models.FileContent, error)
	DeleteFileContentsByPath(ctx context.Context, filePath string) error

	CreateConversation(ctx context.Context, c *models.Conversation) error
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id, title string) error
	UpdateConversationMessages(ctx context.Context, id string, messages []models.ChatMessage) error
	DeleteConversation(ctx context.Context, id string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// Abstract so AWS can be replaced with MinIO, GCP, etc. easily.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
