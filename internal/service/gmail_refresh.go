package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"medvault/internal/gmail"
	"medvault/internal/logger"
	"medvault/internal/model"
	"medvault/internal/repository"
)

// refreshingGmail wraps a per-user client with expired-token recovery:
// when the provider rejects the access token, the refresh token is
// exchanged once, persisted, and the failed call retried once. A second
// rejection surfaces as an auth error.
type refreshingGmail struct {
	user      *model.User
	factory   GmailClientFactory
	refresher TokenRefresher
	userRepo  repository.UserRepository
	logger    *logger.Logger

	mu     sync.Mutex
	client GmailClient
}

func newRefreshingGmail(user *model.User, factory GmailClientFactory, refresher TokenRefresher, userRepo repository.UserRepository, logger *logger.Logger) *refreshingGmail {
	return &refreshingGmail{
		user:      user,
		factory:   factory,
		refresher: refresher,
		userRepo:  userRepo,
		logger:    logger,
	}
}

func (r *refreshingGmail) current() (GmailClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.client == nil {
		client, err := r.factory(r.user.AccessToken)
		if err != nil {
			return nil, err
		}
		r.client = client
	}
	return r.client, nil
}

func (r *refreshingGmail) refresh(ctx context.Context) (GmailClient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	token, err := r.refresher.Refresh(ctx, r.user.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	r.user.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		r.user.RefreshToken = token.RefreshToken
	}
	r.user.TokenExpiry = token.Expiry
	r.user.UpdatedAt = time.Now()
	if err := r.userRepo.Update(ctx, r.user); err != nil {
		r.logger.Error("Failed to persist refreshed token:", err)
	}

	client, err := r.factory(r.user.AccessToken)
	if err != nil {
		return nil, err
	}
	r.client = client

	r.logger.Info("Refreshed access token for user:", r.user.ID)
	return client, nil
}

// call runs fn and, on an expired token, refreshes and retries exactly once.
func (r *refreshingGmail) call(ctx context.Context, fn func(GmailClient) error) error {
	client, err := r.current()
	if err != nil {
		return err
	}

	err = fn(client)
	if !errors.Is(err, gmail.ErrAuthExpired) {
		return err
	}

	client, refreshErr := r.refresh(ctx)
	if refreshErr != nil {
		return fmt.Errorf("%w: %v", gmail.ErrAuthExpired, refreshErr)
	}
	return fn(client)
}

func (r *refreshingGmail) ListPDFMessages(ctx context.Context, pageToken string) ([]string, string, error) {
	var ids []string
	var next string
	err := r.call(ctx, func(c GmailClient) error {
		var callErr error
		ids, next, callErr = c.ListPDFMessages(ctx, pageToken)
		return callErr
	})
	return ids, next, err
}

func (r *refreshingGmail) GetMessage(ctx context.Context, id string) (*model.EmailMessage, error) {
	var email *model.EmailMessage
	err := r.call(ctx, func(c GmailClient) error {
		var callErr error
		email, callErr = c.GetMessage(ctx, id)
		return callErr
	})
	return email, err
}

func (r *refreshingGmail) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	var data []byte
	err := r.call(ctx, func(c GmailClient) error {
		var callErr error
		data, callErr = c.GetAttachment(ctx, messageID, attachmentID)
		return callErr
	})
	return data, err
}
