package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository"
)

var (
	ErrShareNotFound = errors.New("shared collection not found")
	ErrShareConsumed = errors.New("shared collection already accessed")
	ErrShareOwnView  = errors.New("owners cannot consume their own share")
)

type shareService struct {
	shareRepo  repository.ShareRepository
	recordRepo repository.HealthRecordRepository
	logger     *logger.Logger
}

func NewShareService(shareRepo repository.ShareRepository, recordRepo repository.HealthRecordRepository, logger *logger.Logger) ShareService {
	return &shareService{
		shareRepo:  shareRepo,
		recordRepo: recordRepo,
		logger:     logger,
	}
}

// CreateShare builds a single-use collection over records the owner holds.
// Any foreign or missing record id rejects the whole request.
func (s *shareService) CreateShare(ctx context.Context, ownerID string, recordIDs []string) (*model.SharedCollection, error) {
	if len(recordIDs) == 0 {
		return nil, fmt.Errorf("no records selected")
	}

	for _, recordID := range recordIDs {
		record, err := s.recordRepo.FindByID(ctx, recordID)
		if err != nil || record.UserID != ownerID {
			return nil, ErrRecordNotFound
		}
	}

	share := model.NewSharedCollection(ownerID, recordIDs)
	if err := s.shareRepo.Create(ctx, share); err != nil {
		return nil, fmt.Errorf("failed to create shared collection: %w", err)
	}

	s.logger.Info("Created shared collection:", share.ID, "records:", len(recordIDs))
	return share, nil
}

// OpenShare resolves a share for a viewer. The owner can never consume
// their own share; the first non-owner viewer consumes it and later
// viewers are rejected.
func (s *shareService) OpenShare(ctx context.Context, viewerID, shareID string) ([]*model.HealthRecord, error) {
	share, err := s.shareRepo.FindByID(ctx, shareID)
	if err != nil {
		return nil, ErrShareNotFound
	}

	if viewerID == share.OwnerID {
		return nil, ErrShareOwnView
	}

	// The repository consume is atomic, so concurrent first viewers race on
	// it and exactly one wins.
	consumed, err := s.shareRepo.Consume(ctx, share.ID, viewerID, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to mark share accessed: %w", err)
	}
	if !consumed {
		return nil, ErrShareConsumed
	}

	var records []*model.HealthRecord
	for _, recordID := range share.RecordIDs {
		record, err := s.recordRepo.FindByID(ctx, recordID)
		if err != nil {
			s.logger.Warn("Shared record no longer exists:", recordID)
			continue
		}
		records = append(records, record)
	}

	s.logger.Info("Shared collection consumed:", share.ID, "by:", viewerID)
	return records, nil
}
