package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medvault/internal/model"
	"medvault/internal/repository/memory"
)

func TestGetPreferencesReturnsDefaults(t *testing.T) {
	svc := NewPreferencesService(memory.NewMemoryPreferencesRepository(), testLogger())

	prefs, err := svc.GetPreferences(context.Background(), "user-1")

	require.NoError(t, err)
	assert.Equal(t, "user-1", prefs.UserID)
	assert.Equal(t, "en", prefs.Language)
	assert.False(t, prefs.OnboardingCompleted)
}

func TestUpdatePreferencesRoundTrip(t *testing.T) {
	svc := NewPreferencesService(memory.NewMemoryPreferencesRepository(), testLogger())

	updated, err := svc.UpdatePreferences(context.Background(), "user-1", &model.UserPreferences{
		DisplayName:         "Maria",
		Language:            "pt",
		OnboardingCompleted: true,
	})
	require.NoError(t, err)
	assert.Equal(t, "pt", updated.Language)

	prefs, err := svc.GetPreferences(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "Maria", prefs.DisplayName)
	assert.Equal(t, "pt", prefs.Language)
	assert.True(t, prefs.OnboardingCompleted)
}

func TestUpdatePreferencesDefaultsEmptyLanguage(t *testing.T) {
	svc := NewPreferencesService(memory.NewMemoryPreferencesRepository(), testLogger())

	updated, err := svc.UpdatePreferences(context.Background(), "user-1", &model.UserPreferences{DisplayName: "Sam"})
	require.NoError(t, err)
	assert.Equal(t, "en", updated.Language)
}
