package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medvault/internal/model"

	"github.com/lib/pq"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, google_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (google_id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			access_token = EXCLUDED.access_token,
			refresh_token = EXCLUDED.refresh_token,
			token_expiry = EXCLUDED.token_expiry,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *PostgresUserRepository) scanUser(row *sql.Row) (*model.User, error) {
	user := &model.User{}
	err := row.Scan(
		&user.ID, &user.GoogleID, &user.Email, &user.Name,
		&user.AccessToken, &user.RefreshToken, &user.TokenExpiry,
		&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (r *PostgresUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, google_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	query := `SELECT id, google_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at FROM users WHERE google_id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, googleID))
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	query := `SELECT id, google_id, email, name, access_token, refresh_token, token_expiry, created_at, updated_at FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresUserRepository) Update(ctx context.Context, user *model.User) error {
	query := `
		UPDATE users SET google_id=$1, email=$2, name=$3, access_token=$4,
		refresh_token=$5, token_expiry=$6, updated_at=NOW() WHERE id=$7`
	_, err := r.db.ExecContext(ctx, query,
		user.GoogleID, user.Email, user.Name,
		user.AccessToken, user.RefreshToken, user.TokenExpiry,
		user.ID)
	return err
}

func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM users WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Postgres HealthRecord repository implementation
type PostgresHealthRecordRepository struct {
	db *sql.DB
}

func NewPostgresHealthRecordRepository(db *sql.DB) *PostgresHealthRecordRepository {
	return &PostgresHealthRecordRepository{db: db}
}

const healthRecordColumns = `id, user_id, storage_path, original_name, record_type, record_subtype, record_name, display_name, summary, doctor_name, record_date, created_at, updated_at`

func (r *PostgresHealthRecordRepository) Create(ctx context.Context, record *model.HealthRecord) error {
	query := `
		INSERT INTO health_records (` + healthRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := r.db.ExecContext(ctx, query,
		record.ID, record.UserID, record.StoragePath, record.OriginalName,
		record.RecordType, record.RecordSubtype, record.RecordName,
		record.DisplayName, record.Summary, record.DoctorName, record.Date,
		record.CreatedAt, record.UpdatedAt)
	return err
}

func scanHealthRecord(scan func(dest ...interface{}) error) (*model.HealthRecord, error) {
	record := &model.HealthRecord{}
	err := scan(
		&record.ID, &record.UserID, &record.StoragePath, &record.OriginalName,
		&record.RecordType, &record.RecordSubtype, &record.RecordName,
		&record.DisplayName, &record.Summary, &record.DoctorName, &record.Date,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func (r *PostgresHealthRecordRepository) FindByID(ctx context.Context, id string) (*model.HealthRecord, error) {
	query := `SELECT ` + healthRecordColumns + ` FROM health_records WHERE id = $1`
	record, err := scanHealthRecord(r.db.QueryRowContext(ctx, query, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("health record not found")
		}
		return nil, err
	}
	return record, nil
}

func (r *PostgresHealthRecordRepository) FindByUserID(ctx context.Context, userID string) ([]*model.HealthRecord, error) {
	query := `SELECT ` + healthRecordColumns + ` FROM health_records WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*model.HealthRecord
	for rows.Next() {
		record, err := scanHealthRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

func (r *PostgresHealthRecordRepository) Update(ctx context.Context, record *model.HealthRecord) error {
	query := `
		UPDATE health_records SET display_name=$1, record_type=$2, doctor_name=$3, record_date=$4, updated_at=NOW() WHERE id=$5`
	_, err := r.db.ExecContext(ctx, query,
		record.DisplayName, record.RecordType, record.DoctorName, record.Date,
		record.ID)
	return err
}

func (r *PostgresHealthRecordRepository) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM health_records WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}

// Postgres ScanSession repository implementation
type PostgresScanSessionRepository struct {
	db *sql.DB
}

func NewPostgresScanSessionRepository(db *sql.DB) *PostgresScanSessionRepository {
	return &PostgresScanSessionRepository{db: db}
}

const scanSessionColumns = `id, user_id, status, total_emails, processed_emails, total_documents, page_token, pages_scanned, error, completed_at, created_at, updated_at`

func (r *PostgresScanSessionRepository) Create(ctx context.Context, session *model.ScanSession) error {
	query := `
		INSERT INTO scan_sessions (` + scanSessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.db.ExecContext(ctx, query,
		session.ID, session.UserID, session.Status,
		session.TotalEmails, session.ProcessedEmails, session.TotalDocuments,
		session.PageToken, session.PagesScanned, session.Error,
		session.CompletedAt, session.CreatedAt, session.UpdatedAt)
	return err
}

func (r *PostgresScanSessionRepository) FindByID(ctx context.Context, id string) (*model.ScanSession, error) {
	query := `SELECT ` + scanSessionColumns + ` FROM scan_sessions WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	session := &model.ScanSession{}
	err := row.Scan(
		&session.ID, &session.UserID, &session.Status,
		&session.TotalEmails, &session.ProcessedEmails, &session.TotalDocuments,
		&session.PageToken, &session.PagesScanned, &session.Error,
		&session.CompletedAt, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("scan session not found")
		}
		return nil, err
	}
	return session, nil
}

func (r *PostgresScanSessionRepository) Update(ctx context.Context, session *model.ScanSession) error {
	query := `
		UPDATE scan_sessions SET status=$1, total_emails=$2, processed_emails=$3, total_documents=$4,
		page_token=$5, pages_scanned=$6, error=$7, completed_at=$8, updated_at=NOW() WHERE id=$9`
	_, err := r.db.ExecContext(ctx, query,
		session.Status, session.TotalEmails, session.ProcessedEmails, session.TotalDocuments,
		session.PageToken, session.PagesScanned, session.Error, session.CompletedAt,
		session.ID)
	return err
}

// Postgres Share repository implementation
type PostgresShareRepository struct {
	db *sql.DB
}

func NewPostgresShareRepository(db *sql.DB) *PostgresShareRepository {
	return &PostgresShareRepository{db: db}
}

func (r *PostgresShareRepository) Create(ctx context.Context, share *model.SharedCollection) error {
	query := `
		INSERT INTO shared_collections (id, owner_id, record_ids, accessed, accessed_by, accessed_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query,
		share.ID, share.OwnerID, pq.Array(share.RecordIDs),
		share.Accessed, share.AccessedBy, share.AccessedAt, share.CreatedAt)
	return err
}

func (r *PostgresShareRepository) FindByID(ctx context.Context, id string) (*model.SharedCollection, error) {
	query := `SELECT id, owner_id, record_ids, accessed, accessed_by, accessed_at, created_at FROM shared_collections WHERE id = $1`
	row := r.db.QueryRowContext(ctx, query, id)

	share := &model.SharedCollection{}
	err := row.Scan(
		&share.ID, &share.OwnerID, pq.Array(&share.RecordIDs),
		&share.Accessed, &share.AccessedBy, &share.AccessedAt, &share.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("shared collection not found")
		}
		return nil, err
	}
	return share, nil
}

// Consume relies on the conditional update so two concurrent viewers can
// never both claim the same share.
func (r *PostgresShareRepository) Consume(ctx context.Context, shareID, viewerID string, at time.Time) (bool, error) {
	query := `
		UPDATE shared_collections SET accessed=TRUE, accessed_by=$1, accessed_at=$2
		WHERE id=$3 AND accessed=FALSE`
	result, err := r.db.ExecContext(ctx, query, viewerID, at, shareID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Postgres Preferences repository implementation
type PostgresPreferencesRepository struct {
	db *sql.DB
}

func NewPostgresPreferencesRepository(db *sql.DB) *PostgresPreferencesRepository {
	return &PostgresPreferencesRepository{db: db}
}

func (r *PostgresPreferencesRepository) FindByUserID(ctx context.Context, userID string) (*model.UserPreferences, error) {
	query := `SELECT user_id, display_name, language, onboarding_completed, updated_at FROM user_preferences WHERE user_id = $1`
	row := r.db.QueryRowContext(ctx, query, userID)

	prefs := &model.UserPreferences{}
	err := row.Scan(
		&prefs.UserID, &prefs.DisplayName, &prefs.Language,
		&prefs.OnboardingCompleted, &prefs.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.New("preferences not found")
		}
		return nil, err
	}
	return prefs, nil
}

func (r *PostgresPreferencesRepository) Upsert(ctx context.Context, prefs *model.UserPreferences) error {
	query := `
		INSERT INTO user_preferences (user_id, display_name, language, onboarding_completed, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			language = EXCLUDED.language,
			onboarding_completed = EXCLUDED.onboarding_completed,
			updated_at = NOW()`
	_, err := r.db.ExecContext(ctx, query,
		prefs.UserID, prefs.DisplayName, prefs.Language,
		prefs.OnboardingCompleted, prefs.UpdatedAt)
	return err
}

// InitializeDatabase creates the necessary tables
func InitializeDatabase(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id VARCHAR(255) PRIMARY KEY,
			google_id VARCHAR(255) UNIQUE NOT NULL,
			email VARCHAR(255) NOT NULL,
			name VARCHAR(255) NOT NULL,
			access_token TEXT,
			refresh_token TEXT,
			token_expiry TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS health_records (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			storage_path TEXT NOT NULL,
			original_name TEXT,
			record_type VARCHAR(255) NOT NULL,
			record_subtype VARCHAR(255),
			record_name TEXT NOT NULL,
			display_name TEXT,
			summary TEXT NOT NULL,
			doctor_name TEXT,
			record_date VARCHAR(64),
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS scan_sessions (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(32) NOT NULL,
			total_emails INTEGER DEFAULT 0,
			processed_emails INTEGER DEFAULT 0,
			total_documents INTEGER DEFAULT 0,
			page_token TEXT,
			pages_scanned INTEGER DEFAULT 0,
			error TEXT,
			completed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS shared_collections (
			id VARCHAR(255) PRIMARY KEY,
			owner_id VARCHAR(255) NOT NULL,
			record_ids TEXT[] NOT NULL,
			accessed BOOLEAN DEFAULT FALSE,
			accessed_by VARCHAR(255),
			accessed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS user_preferences (
			user_id VARCHAR(255) PRIMARY KEY,
			display_name VARCHAR(255),
			language VARCHAR(16) DEFAULT 'en',
			onboarding_completed BOOLEAN DEFAULT FALSE,
			updated_at TIMESTAMP NOT NULL
		)`,
	}

	for _, table := range tables {
		_, err := db.Exec(table)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	return nil
}
