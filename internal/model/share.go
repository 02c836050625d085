package model

import (
	"time"

	"github.com/google/uuid"
)

// SharedCollection is an owner-created set of health record references.
// Access is single-use: the first non-owner viewer consumes it.
type SharedCollection struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	RecordIDs  []string   `json:"record_ids"`
	Accessed   bool       `json:"accessed"`
	AccessedBy string     `json:"accessed_by,omitempty"`
	AccessedAt *time.Time `json:"accessed_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

func NewSharedCollection(ownerID string, recordIDs []string) *SharedCollection {
	return &SharedCollection{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		RecordIDs: recordIDs,
		CreatedAt: time.Now(),
	}
}
