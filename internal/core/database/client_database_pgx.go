package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/dianihealth/carebridge/internal/config"
	"github.com/dianihealth/carebridge/internal/core"
	"github.com/dianihealth/carebridge/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

var _ core.DbClient = (*DatabaseClient)(nil)

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: sqlDB}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, email, full_name, identity_number, hospital, job_position, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		user.ID, user.Email, user.FullName, user.IdentityNumber, user.Hospital, user.JobPosition, user.PasswordHash, user.CreatedAt)
	return err
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const q = `
		SELECT id, email, full_name, identity_number, hospital, job_position, password_hash, created_at
		FROM users WHERE email = $1
	`
	var u models.User
	err := c.db.QueryRowContext(ctx, q, email).Scan(
		&u.ID, &u.Email, &u.FullName, &u.IdentityNumber, &u.Hospital, &u.JobPosition, &u.PasswordHash, &u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// Patients

func (c *DatabaseClient) CreatePatient(ctx context.Context, p *models.Patient) error {
	if p == nil {
		return errors.New("nil patient")
	}
	const q = `
		INSERT INTO patients (id, created_by, full_name, age, sex, identity_number, hospital, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, COALESCE($8, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		p.ID, p.CreatedBy, p.FullName, p.Age, p.Sex, p.IdentityNumber, p.Hospital, p.CreatedAt)
	return err
}

func (c *DatabaseClient) GetPatientByID(ctx context.Context, id string) (*models.Patient, error) {
	const q = `
		SELECT id, created_by, full_name, age, sex, identity_number, hospital, created_at
		FROM patients WHERE id = $1
	`
	var p models.Patient
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&p.ID, &p.CreatedBy, &p.FullName, &p.Age, &p.Sex, &p.IdentityNumber, &p.Hospital, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *DatabaseClient) ListPatients(ctx context.Context) ([]models.Patient, error) {
	const q = `
		SELECT id, created_by, full_name, age, sex, identity_number, hospital, created_at
		FROM patients
		ORDER BY created_at DESC
	`
	return c.scanPatients(ctx, q)
}

// SearchPatients does a case-insensitive partial match on full name OR
// identity number.
func (c *DatabaseClient) SearchPatients(ctx context.Context, ref string) ([]models.Patient, error) {
	const q = `
		SELECT id, created_by, full_name, age, sex, identity_number, hospital, created_at
		FROM patients
		WHERE full_name ILIKE '%' || $1 || '%' OR identity_number ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC
	`
	return c.scanPatients(ctx, q, ref)
}

func (c *DatabaseClient) scanPatients(ctx context.Context, q string, args ...any) ([]models.Patient, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Patient
	for rows.Next() {
		var p models.Patient
		if err := rows.Scan(
			&p.ID, &p.CreatedBy, &p.FullName, &p.Age, &p.Sex, &p.IdentityNumber, &p.Hospital, &p.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdatePatient(ctx context.Context, p *models.Patient) error {
	if p == nil {
		return errors.New("nil patient")
	}
	const q = `
		UPDATE patients
		SET full_name = $2, age = $3, sex = $4, identity_number = $5, hospital = $6
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, p.ID, p.FullName, p.Age, p.Sex, p.IdentityNumber, p.Hospital)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("patient not found: %s", p.ID)
	}
	return nil
}

func (c *DatabaseClient) DeletePatient(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
	return err
}

// Patient files

func (c *DatabaseClient) CreatePatientFile(ctx context.Context, f *models.PatientFile) error {
	if f == nil {
		return errors.New("nil patient file")
	}
	const q = `
		INSERT INTO patient_files (id, patient_id, file_url, uploaded_by, uploaded_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err := c.db.ExecContext(ctx, q, f.ID, f.PatientID, f.FileURL, f.UploadedBy, f.UploadedAt)
	return err
}

func (c *DatabaseClient) GetPatientFileByID(ctx context.Context, id string) (*models.PatientFile, error) {
	const q = `
		SELECT f.id, f.patient_id, f.file_url, f.uploaded_by, COALESCE(u.full_name, ''), f.uploaded_at
		FROM patient_files f
		LEFT JOIN users u ON u.id = f.uploaded_by
		WHERE f.id = $1
	`
	var f models.PatientFile
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&f.ID, &f.PatientID, &f.FileURL, &f.UploadedBy, &f.UploaderName, &f.UploadedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// ListFilesByPatient returns files newest-first, with the uploader's name
// resolved for context rendering.
func (c *DatabaseClient) ListFilesByPatient(ctx context.Context, patientID string) ([]models.PatientFile, error) {
	const q = `
		SELECT f.id, f.patient_id, f.file_url, f.uploaded_by, COALESCE(u.full_name, ''), f.uploaded_at
		FROM patient_files f
		LEFT JOIN users u ON u.id = f.uploaded_by
		WHERE f.patient_id = $1
		ORDER BY f.uploaded_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PatientFile
	for rows.Next() {
		var f models.PatientFile
		if err := rows.Scan(
			&f.ID, &f.PatientID, &f.FileURL, &f.UploadedBy, &f.UploaderName, &f.UploadedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeletePatientFile(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM patient_files WHERE id = $1`, id)
	return err
}

// Patient notes

func (c *DatabaseClient) CreateNote(ctx context.Context, n *models.PatientNote) error {
	if n == nil {
		return errors.New("nil note")
	}
	const q = `
		INSERT INTO patient_notes (id, patient_id, created_by, diagnosis, treatment, observations, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		n.ID, n.PatientID, n.CreatedBy, n.Diagnosis, n.Treatment, n.Observations, n.CreatedAt)
	return err
}

func (c *DatabaseClient) ListNotesByPatient(ctx context.Context, patientID string) ([]models.PatientNote, error) {
	const q = `
		SELECT id, patient_id, created_by, diagnosis, treatment, observations, created_at
		FROM patient_notes
		WHERE patient_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.PatientNote
	for rows.Next() {
		var n models.PatientNote
		if err := rows.Scan(
			&n.ID, &n.PatientID, &n.CreatedBy, &n.Diagnosis, &n.Treatment, &n.Observations, &n.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateNote(ctx context.Context, n *models.PatientNote) error {
	if n == nil {
		return errors.New("nil note")
	}
	const q = `
		UPDATE patient_notes
		SET diagnosis = $2, treatment = $3, observations = $4
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, n.ID, n.Diagnosis, n.Treatment, n.Observations)
	if err != nil {
		return err
	}
	cnt, _ := res.RowsAffected()
	if cnt == 0 {
		return fmt.Errorf("note not found: %s", n.ID)
	}
	return nil
}

func (c *DatabaseClient) DeleteNote(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM patient_notes WHERE id = $1`, id)
	return err
}

// Extracted-content cache

func (c *DatabaseClient) InsertFileContent(ctx context.Context, fc *models.FileContent) error {
	if fc == nil {
		return errors.New("nil file content")
	}
	const q = `
		INSERT INTO file_contents (id, file_path, file_name, file_type, content, patient_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
	`
	_, err := c.db.ExecContext(ctx, q,
		fc.ID, fc.FilePath, fc.FileName, fc.FileType, fc.Content, fc.PatientID, fc.CreatedAt)
	return err
}

// GetFileContentsByPath returns cache entries for one file path in insertion
// order, so chunk n precedes chunk n+1.
func (c *DatabaseClient) GetFileContentsByPath(ctx context.Context, filePath string) ([]models.FileContent, error) {
	const q = `
		SELECT id, file_path, file_name, file_type, content, patient_id, created_at
		FROM file_contents
		WHERE file_path = $1
		ORDER BY created_at ASC, file_name ASC
	`
	rows, err := c.db.QueryContext(ctx, q, filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.FileContent
	for rows.Next() {
		var fc models.FileContent
		if err := rows.Scan(
			&fc.ID, &fc.FilePath, &fc.FileName, &fc.FileType, &fc.Content, &fc.PatientID, &fc.CreatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) DeleteFileContentsByPath(ctx context.Context, filePath string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM file_contents WHERE file_path = $1`, filePath)
	return err
}

// Conversations

func (c *DatabaseClient) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	if conv == nil {
		return errors.New("nil conversation")
	}
	payload, err := json.Marshal(conv.Messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	const q = `
		INSERT INTO chatbot_conversations (id, user_id, title, messages, created_at)
		VALUES ($1, $2, $3, $4, COALESCE($5, now()))
	`
	_, err = c.db.ExecContext(ctx, q, conv.ID, conv.UserID, conv.Title, payload, conv.CreatedAt)
	return err
}

func (c *DatabaseClient) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	const q = `
		SELECT id, user_id, title, messages, created_at
		FROM chatbot_conversations WHERE id = $1
	`
	var (
		conv    models.Conversation
		payload []byte
	)
	err := c.db.QueryRowContext(ctx, q, id).Scan(
		&conv.ID, &conv.UserID, &conv.Title, &payload, &conv.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(payload, &conv.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	return &conv, nil
}

func (c *DatabaseClient) ListConversationsByUser(ctx context.Context, userID string) ([]models.Conversation, error) {
	const q = `
		SELECT id, user_id, title, messages, created_at
		FROM chatbot_conversations
		WHERE user_id = $1
		ORDER BY created_at DESC
	`
	rows, err := c.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Conversation
	for rows.Next() {
		var (
			conv    models.Conversation
			payload []byte
		)
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &payload, &conv.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(payload, &conv.Messages); err != nil {
			return nil, fmt.Errorf("unmarshal messages: %w", err)
		}
		out = append(out, conv)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) UpdateConversationTitle(ctx context.Context, id, title string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE chatbot_conversations SET title = $2 WHERE id = $1`, id, title)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

// UpdateConversationMessages overwrites the whole message document.
func (c *DatabaseClient) UpdateConversationMessages(ctx context.Context, id string, messages []models.ChatMessage) error {
	payload, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE chatbot_conversations SET messages = $2 WHERE id = $1`, id, payload)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("conversation not found: %s", id)
	}
	return nil
}

func (c *DatabaseClient) DeleteConversation(ctx context.Context, id string) error {
	_, err := c.db.ExecContext(ctx, `DELETE FROM chatbot_conversations WHERE id = $1`, id)
	return err
}
