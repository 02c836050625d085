package memory

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"medvault/internal/model"
)

// In-memory repositories used for local development and tests.

type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]*model.User
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]*model.User)}
}

func (r *MemoryUserRepository) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (r *MemoryUserRepository) FindByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.GoogleID == googleID {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *MemoryUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, errors.New("user not found")
}

func (r *MemoryUserRepository) Update(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return errors.New("user not found")
	}
	r.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.users, id)
	return nil
}

type MemoryHealthRecordRepository struct {
	mu      sync.RWMutex
	records map[string]*model.HealthRecord
}

func NewMemoryHealthRecordRepository() *MemoryHealthRecordRepository {
	return &MemoryHealthRecordRepository{records: make(map[string]*model.HealthRecord)}
}

func (r *MemoryHealthRecordRepository) Create(ctx context.Context, record *model.HealthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[record.ID] = record
	return nil
}

func (r *MemoryHealthRecordRepository) FindByID(ctx context.Context, id string) (*model.HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	record, ok := r.records[id]
	if !ok {
		return nil, errors.New("health record not found")
	}
	return record, nil
}

func (r *MemoryHealthRecordRepository) FindByUserID(ctx context.Context, userID string) ([]*model.HealthRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var records []*model.HealthRecord
	for _, record := range r.records {
		if record.UserID == userID {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (r *MemoryHealthRecordRepository) Update(ctx context.Context, record *model.HealthRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[record.ID]; !ok {
		return errors.New("health record not found")
	}
	r.records[record.ID] = record
	return nil
}

func (r *MemoryHealthRecordRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

type MemoryScanSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]*model.ScanSession
}

func NewMemoryScanSessionRepository() *MemoryScanSessionRepository {
	return &MemoryScanSessionRepository{sessions: make(map[string]*model.ScanSession)}
}

func (r *MemoryScanSessionRepository) Create(ctx context.Context, session *model.ScanSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *MemoryScanSessionRepository) FindByID(ctx context.Context, id string) (*model.ScanSession, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[id]
	if !ok {
		return nil, errors.New("scan session not found")
	}
	return session, nil
}

func (r *MemoryScanSessionRepository) Update(ctx context.Context, session *model.ScanSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[session.ID]; !ok {
		return errors.New("scan session not found")
	}
	r.sessions[session.ID] = session
	return nil
}

type MemoryShareRepository struct {
	mu     sync.RWMutex
	shares map[string]*model.SharedCollection
}

func NewMemoryShareRepository() *MemoryShareRepository {
	return &MemoryShareRepository{shares: make(map[string]*model.SharedCollection)}
}

func (r *MemoryShareRepository) Create(ctx context.Context, share *model.SharedCollection) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shares[share.ID] = share
	return nil
}

func (r *MemoryShareRepository) FindByID(ctx context.Context, id string) (*model.SharedCollection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	share, ok := r.shares[id]
	if !ok {
		return nil, errors.New("shared collection not found")
	}
	return share, nil
}

func (r *MemoryShareRepository) Consume(ctx context.Context, shareID, viewerID string, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	share, ok := r.shares[shareID]
	if !ok {
		return false, errors.New("shared collection not found")
	}
	if share.Accessed {
		return false, nil
	}
	accessedAt := at
	share.Accessed = true
	share.AccessedBy = viewerID
	share.AccessedAt = &accessedAt
	return true, nil
}

type MemoryPreferencesRepository struct {
	mu    sync.RWMutex
	prefs map[string]*model.UserPreferences
}

func NewMemoryPreferencesRepository() *MemoryPreferencesRepository {
	return &MemoryPreferencesRepository{prefs: make(map[string]*model.UserPreferences)}
}

func (r *MemoryPreferencesRepository) FindByUserID(ctx context.Context, userID string) (*model.UserPreferences, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	prefs, ok := r.prefs[userID]
	if !ok {
		return nil, errors.New("preferences not found")
	}
	return prefs, nil
}

func (r *MemoryPreferencesRepository) Upsert(ctx context.Context, prefs *model.UserPreferences) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prefs[prefs.UserID] = prefs
	return nil
}
