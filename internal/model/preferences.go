package model

import "time"

// UserPreferences is one row per user, upserted through the settings flow.
type UserPreferences struct {
	UserID              string    `json:"user_id"`
	DisplayName         string    `json:"display_name"`
	Language            string    `json:"language"`
	OnboardingCompleted bool      `json:"onboarding_completed"`
	UpdatedAt           time.Time `json:"updated_at"`
}

func DefaultPreferences(userID string) *UserPreferences {
	return &UserPreferences{
		UserID:    userID,
		Language:  "en",
		UpdatedAt: time.Now(),
	}
}
