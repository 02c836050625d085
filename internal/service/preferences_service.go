package service

import (
	"context"
	"time"

	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository"
)

type preferencesService struct {
	prefsRepo repository.PreferencesRepository
	logger    *logger.Logger
}

func NewPreferencesService(prefsRepo repository.PreferencesRepository, logger *logger.Logger) PreferencesService {
	return &preferencesService{
		prefsRepo: prefsRepo,
		logger:    logger,
	}
}

// GetPreferences returns stored preferences, or the defaults for users who
// have never saved any.
func (s *preferencesService) GetPreferences(ctx context.Context, userID string) (*model.UserPreferences, error) {
	prefs, err := s.prefsRepo.FindByUserID(ctx, userID)
	if err != nil {
		return model.DefaultPreferences(userID), nil
	}
	return prefs, nil
}

func (s *preferencesService) UpdatePreferences(ctx context.Context, userID string, prefs *model.UserPreferences) (*model.UserPreferences, error) {
	prefs.UserID = userID
	if prefs.Language == "" {
		prefs.Language = "en"
	}
	prefs.UpdatedAt = time.Now()

	if err := s.prefsRepo.Upsert(ctx, prefs); err != nil {
		return nil, err
	}

	s.logger.Info("Updated preferences for user:", userID)
	return prefs, nil
}
