package service

import (
	"context"
	"time"

	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository"
)

type authService struct {
	userRepo repository.UserRepository
	logger   *logger.Logger
}

func NewAuthService(userRepo repository.UserRepository, logger *logger.Logger) AuthService {
	return &authService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetOrCreateUser upserts the user on login, refreshing the stored OAuth
// tokens every time.
func (s *authService) GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error) {
	user, err := s.userRepo.FindByGoogleID(ctx, googleID)
	if err == nil {
		user.Email = email
		user.Name = name
		user.AccessToken = accessToken
		if refreshToken != "" {
			user.RefreshToken = refreshToken
		}
		user.TokenExpiry = tokenExpiry
		user.UpdatedAt = time.Now()

		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("Updated existing user:", user.Email)
		return user, nil
	}

	user = model.NewUser(googleID, email, name, accessToken, refreshToken, tokenExpiry)
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("Created new user:", user.Email)
	return user, nil
}

func (s *authService) GetUser(ctx context.Context, userID string) (*model.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
