package repository

import (
	"context"
	"time"

	"medvault/internal/model"
)

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByGoogleID(ctx context.Context, googleID string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id string) error
}

// HealthRecordRepository defines the interface for health record operations.
// All reads and writes are scoped by owner user id.
type HealthRecordRepository interface {
	Create(ctx context.Context, record *model.HealthRecord) error
	FindByID(ctx context.Context, id string) (*model.HealthRecord, error)
	FindByUserID(ctx context.Context, userID string) ([]*model.HealthRecord, error)
	Update(ctx context.Context, record *model.HealthRecord) error
	Delete(ctx context.Context, id string) error
}

// ScanSessionRepository defines the interface for scan session operations
type ScanSessionRepository interface {
	Create(ctx context.Context, session *model.ScanSession) error
	FindByID(ctx context.Context, id string) (*model.ScanSession, error)
	Update(ctx context.Context, session *model.ScanSession) error
}

// ShareRepository defines the interface for shared collection operations.
// Consume atomically marks an unconsumed share as accessed by the viewer
// and reports whether this call won; it returns false without error when
// the share was already consumed.
type ShareRepository interface {
	Create(ctx context.Context, share *model.SharedCollection) error
	FindByID(ctx context.Context, id string) (*model.SharedCollection, error)
	Consume(ctx context.Context, shareID, viewerID string, at time.Time) (bool, error)
}

// PreferencesRepository defines the interface for user preference operations
type PreferencesRepository interface {
	FindByUserID(ctx context.Context, userID string) (*model.UserPreferences, error)
	Upsert(ctx context.Context, prefs *model.UserPreferences) error
}
