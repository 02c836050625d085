package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository"
	"medvault/internal/storage"
)

var (
	ErrRecordNotFound = errors.New("record not found")
	ErrForbidden      = errors.New("forbidden")
)

type documentService struct {
	recordRepo repository.HealthRecordRepository
	analyzer   DocumentAnalyzer
	store      ObjectStore
	logger     *logger.Logger
}

func NewDocumentService(recordRepo repository.HealthRecordRepository, analyzer DocumentAnalyzer, store ObjectStore, logger *logger.Logger) DocumentService {
	return &documentService{
		recordRepo: recordRepo,
		analyzer:   analyzer,
		store:      store,
		logger:     logger.Tagged("Analyze"),
	}
}

// AnalyzeAndStore runs extraction and, on success, persists the file and
// its record. An error-status analysis persists nothing and is returned to
// the caller for reporting. The write is two-phase: object first, then row,
// with the object removed again if the row insert fails.
func (s *documentService) AnalyzeAndStore(ctx context.Context, userID, filename string, pdf []byte, language string) (*model.HealthRecord, *model.DocumentAnalysis, error) {
	analysis, err := s.analyzer.Analyze(ctx, pdf, language)
	if err != nil {
		return nil, nil, fmt.Errorf("document analysis failed: %w", err)
	}
	if !analysis.Succeeded() {
		s.logger.Info("Document rejected:", analysis.ErrorType, "-", analysis.ErrorMessage)
		return nil, analysis, nil
	}

	// Object keys are deterministic per filename so re-analyzing the same
	// attachment overwrites instead of accumulating copies.
	key := fmt.Sprintf("%s/%s", userID, storage.SanitizeFilename(filename))
	if err := s.store.Upload(ctx, key, pdf, "application/pdf"); err != nil {
		return nil, nil, fmt.Errorf("failed to store document: %w", err)
	}

	record := model.NewHealthRecord(userID, key, filename, analysis)
	if err := s.recordRepo.Create(ctx, record); err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Error("Failed to remove orphaned object after insert failure:", key, delErr)
		}
		return nil, nil, fmt.Errorf("failed to save health record: %w", err)
	}

	s.logger.Info("Stored health record:", record.ID, "type:", record.RecordType)
	return record, analysis, nil
}

func (s *documentService) GetRecords(ctx context.Context, userID string) ([]*model.HealthRecord, error) {
	return s.recordRepo.FindByUserID(ctx, userID)
}

func (s *documentService) GetRecord(ctx context.Context, userID, recordID string) (*model.HealthRecord, error) {
	record, err := s.recordRepo.FindByID(ctx, recordID)
	if err != nil {
		return nil, ErrRecordNotFound
	}
	if record.UserID != userID {
		return nil, ErrRecordNotFound
	}
	return record, nil
}

// UpdateRecord applies the non-nil editable fields to an owned record.
func (s *documentService) UpdateRecord(ctx context.Context, userID, recordID string, update *model.HealthRecordUpdate) (*model.HealthRecord, error) {
	record, err := s.GetRecord(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}

	if update.DisplayName != nil {
		record.DisplayName = *update.DisplayName
	}
	if update.RecordType != nil {
		record.RecordType = *update.RecordType
	}
	if update.DoctorName != nil {
		record.DoctorName = *update.DoctorName
	}
	if update.Date != nil {
		record.Date = *update.Date
	}
	record.UpdatedAt = time.Now()

	if err := s.recordRepo.Update(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// DeleteRecords removes owned records in bulk. Object deletion is best
// effort: a storage failure is logged and the row is removed anyway, so one
// stuck object never blocks the rest of the batch.
func (s *documentService) DeleteRecords(ctx context.Context, userID string, recordIDs []string) error {
	deleteLog := s.logger.Tagged("Delete")

	for _, recordID := range recordIDs {
		record, err := s.GetRecord(ctx, userID, recordID)
		if err != nil {
			deleteLog.Warn("Skipping record:", recordID, err)
			continue
		}

		if err := s.store.Delete(ctx, record.StoragePath); err != nil {
			deleteLog.Error("Failed to delete object:", record.StoragePath, err)
		}

		if err := s.recordRepo.Delete(ctx, record.ID); err != nil {
			deleteLog.Error("Failed to delete record:", record.ID, err)
			continue
		}
		deleteLog.Info("Deleted record:", record.ID)
	}
	return nil
}

// RecordURL issues a time-limited link for viewing (inline) or downloading
// an owned record's file.
func (s *documentService) RecordURL(ctx context.Context, userID, recordID string, inline bool) (string, error) {
	record, err := s.GetRecord(ctx, userID, recordID)
	if err != nil {
		return "", err
	}

	filename := record.OriginalName
	if filename == "" {
		filename = storage.SanitizeFilename(record.DisplayName)
	}
	return s.store.PresignDownload(ctx, record.StoragePath, filename, inline)
}
