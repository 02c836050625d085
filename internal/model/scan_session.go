package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ScanStatusPending   = "pending"
	ScanStatusScanning  = "scanning"
	ScanStatusCompleted = "completed"
	ScanStatusError     = "error"
)

// ScanSession tracks one mailbox scan. Owned by the user, mutated only by
// the scan orchestrator. Terminal states are completed and error.
type ScanSession struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Status          string     `json:"status"`
	TotalEmails     int        `json:"total_emails"`
	ProcessedEmails int        `json:"processed_emails"`
	TotalDocuments  int        `json:"total_documents"`
	PageToken       string     `json:"-"`
	PagesScanned    int        `json:"pages_scanned"`
	Error           string     `json:"error,omitempty"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func NewScanSession(userID string) *ScanSession {
	now := time.Now()
	return &ScanSession{
		ID:        uuid.New().String(),
		UserID:    userID,
		Status:    ScanStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s *ScanSession) Terminal() bool {
	return s.Status == ScanStatusCompleted || s.Status == ScanStatusError
}
