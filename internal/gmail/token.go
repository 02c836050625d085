package gmail

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// TokenManager exchanges a stored refresh token for a fresh access token
// when the provider reports the current one expired.
type TokenManager struct {
	config *oauth2.Config
}

func NewTokenManager(clientID, clientSecret string) *TokenManager {
	return &TokenManager{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
		},
	}
}

func (m *TokenManager) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	source := m.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	return token, nil
}
