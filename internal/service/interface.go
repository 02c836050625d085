package service

import (
	"context"
	"time"

	"golang.org/x/oauth2"

	"medvault/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

type DocumentService interface {
	AnalyzeAndStore(ctx context.Context, userID, filename string, pdf []byte, language string) (*model.HealthRecord, *model.DocumentAnalysis, error)
	GetRecords(ctx context.Context, userID string) ([]*model.HealthRecord, error)
	GetRecord(ctx context.Context, userID, recordID string) (*model.HealthRecord, error)
	UpdateRecord(ctx context.Context, userID, recordID string, update *model.HealthRecordUpdate) (*model.HealthRecord, error)
	DeleteRecords(ctx context.Context, userID string, recordIDs []string) error
	RecordURL(ctx context.Context, userID, recordID string, inline bool) (string, error)
}

type ScanService interface {
	StartScan(ctx context.Context, userID string) (*model.ScanSession, error)
	GetSession(ctx context.Context, userID, sessionID string) (*model.ScanSession, error)
	ProcessNextPage(ctx context.Context, userID, sessionID string) (*model.ScanSession, error)
	RunScan(ctx context.Context, userID, sessionID string) error
}

type ShareService interface {
	CreateShare(ctx context.Context, ownerID string, recordIDs []string) (*model.SharedCollection, error)
	OpenShare(ctx context.Context, viewerID, shareID string) ([]*model.HealthRecord, error)
}

type PreferencesService interface {
	GetPreferences(ctx context.Context, userID string) (*model.UserPreferences, error)
	UpdatePreferences(ctx context.Context, userID string, prefs *model.UserPreferences) (*model.UserPreferences, error)
}

// GmailClient is one page-oriented mail provider connection, bound to a
// single user's access token.
type GmailClient interface {
	ListPDFMessages(ctx context.Context, pageToken string) ([]string, string, error)
	GetMessage(ctx context.Context, id string) (*model.EmailMessage, error)
	GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

// GmailClientFactory builds a client for an access token. The scan
// orchestrator rebuilds the client after a token refresh.
type GmailClientFactory func(accessToken string) (GmailClient, error)

// TokenRefresher exchanges a refresh token for a new access token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// Classifier decides which emails are medical.
type Classifier interface {
	ScreenSubjects(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error)
	ClassifyContent(ctx context.Context, emails []model.EmailContent) ([]model.EmailClassification, error)
	ClassifyThreshold() float64
}

// DocumentAnalyzer extracts structured fields from one PDF.
type DocumentAnalyzer interface {
	Analyze(ctx context.Context, pdf []byte, language string) (*model.DocumentAnalysis, error)
}

// ObjectStore persists document files and issues time-limited links.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Delete(ctx context.Context, key string) error
	PresignDownload(ctx context.Context, key, filename string, inline bool) (string, error)
}

// ScanNotifier pushes scan progress to connected clients.
type ScanNotifier interface {
	BroadcastToUser(userID string, eventType string, data interface{})
}
