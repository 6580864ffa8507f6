package models

import (
	"time"
)

// User represents a staff member who can sign in.
type User struct {
	ID             string    `db:"id" json:"id"`
	Email          string    `db:"email" json:"email"`
	FullName       string    `db:"full_name" json:"full_name"`
	IdentityNumber string    `db:"identity_number" json:"identity_number"`
	Hospital       string    `db:"hospital" json:"hospital"`
	JobPosition    string    `db:"job_position" json:"job_position"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Patient is the system-of-record entity notes and files hang off.
type Patient struct {
	ID             string    `db:"id" json:"id"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	FullName       string    `db:"full_name" json:"full_name"`
	Age            int       `db:"age" json:"age"`
	Sex            string    `db:"sex" json:"sex"` // male | female | other
	IdentityNumber string    `db:"identity_number" json:"identity_number"`
	Hospital       string    `db:"hospital" json:"hospital"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// PatientFile references an uploaded binary in object storage.
type PatientFile struct {
	ID           string    `db:"id" json:"id"`
	PatientID    string    `db:"patient_id" json:"patient_id"`
	FileURL      string    `db:"file_url" json:"file_url"`
	UploadedBy   string    `db:"uploaded_by" json:"uploaded_by"`
	UploaderName string    `db:"uploader_name" json:"uploader_name,omitempty"`
	UploadedAt   time.Time `db:"uploaded_at" json:"uploaded_at"`
}

// PatientNote holds one medical note. Edits overwrite in place; there is no
// immutable history.
type PatientNote struct {
	ID           string    `db:"id" json:"id"`
	PatientID    string    `db:"patient_id" json:"patient_id"`
	CreatedBy    string    `db:"created_by" json:"created_by"`
	Diagnosis    string    `db:"diagnosis" json:"diagnosis"`
	Treatment    string    `db:"treatment" json:"treatment"`
	Observations string    `db:"observations" json:"observations"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// FileContent is one extracted-content cache entry. A file may have zero, one
// or many chunk entries; entries are append-only on the lazy path.
type FileContent struct {
	ID        string    `db:"id" json:"id"`
	FilePath  string    `db:"file_path" json:"file_path"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	Content   string    `db:"content" json:"content"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMessage is one role-tagged turn inside a conversation document.
type ChatMessage struct {
	Role string `json:"role"` // "user" or "bot"
	Text string `json:"text"`
}

// Conversation stores a whole chat as a single JSON document; saving
// overwrites the message list in place.
type Conversation struct {
	ID        string        `db:"id" json:"id"`
	UserID    string        `db:"user_id" json:"user_id"`
	Title     string        `db:"title" json:"title"`
	Messages  []ChatMessage `db:"messages" json:"messages"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
