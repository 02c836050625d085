package model

import (
	"time"

	"github.com/google/uuid"
)

// HealthRecord is a user-owned row combining a stored file path with the
// fields extracted by the document analyzer.
type HealthRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	StoragePath   string    `json:"storage_path"`
	OriginalName  string    `json:"original_name"`
	RecordType    string    `json:"record_type"`
	RecordSubtype string    `json:"record_subtype,omitempty"`
	RecordName    string    `json:"record_name"`
	DisplayName   string    `json:"display_name"`
	Summary       string    `json:"summary"`
	DoctorName    string    `json:"doctor_name,omitempty"`
	Date          string    `json:"date,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func NewHealthRecord(userID, storagePath, originalName string, analysis *DocumentAnalysis) *HealthRecord {
	now := time.Now()
	displayName := analysis.DisplayName
	if displayName == "" {
		displayName = analysis.RecordName
	}
	return &HealthRecord{
		ID:            uuid.New().String(),
		UserID:        userID,
		StoragePath:   storagePath,
		OriginalName:  originalName,
		RecordType:    analysis.RecordType,
		RecordSubtype: analysis.RecordSubtype,
		RecordName:    analysis.RecordName,
		DisplayName:   displayName,
		Summary:       analysis.Summary,
		DoctorName:    analysis.DoctorName,
		Date:          analysis.Date,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// HealthRecordUpdate carries the user-editable display fields. Nil fields
// are left untouched.
type HealthRecordUpdate struct {
	DisplayName *string `json:"display_name"`
	RecordType  *string `json:"record_type"`
	DoctorName  *string `json:"doctor_name"`
	Date        *string `json:"date"`
}
