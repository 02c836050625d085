package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"medvault/internal/ai"
	"medvault/internal/gmail"
	"medvault/internal/model"
	"medvault/internal/repository/memory"
	"medvault/internal/storage"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
}

func (n *recordingNotifier) BroadcastToUser(userID string, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, eventType)
}

func (n *recordingNotifier) has(eventType string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, e := range n.events {
		if e == eventType {
			return true
		}
	}
	return false
}

type fakeRefresher struct {
	token *oauth2.Token
	err   error
	calls int
}

func (f *fakeRefresher) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.token, nil
}

type scanFixture struct {
	svc         ScanService
	userRepo    *memory.MemoryUserRepository
	sessionRepo *memory.MemoryScanSessionRepository
	recordRepo  *memory.MemoryHealthRecordRepository
	store       *storage.MockStore
	notifier    *recordingNotifier
	refresher   *fakeRefresher
	user        *model.User
}

func newScanFixture(t *testing.T, client GmailClient, classifier Classifier, maxPages int) *scanFixture {
	t.Helper()

	userRepo := memory.NewMemoryUserRepository()
	sessionRepo := memory.NewMemoryScanSessionRepository()
	recordRepo := memory.NewMemoryHealthRecordRepository()
	prefsRepo := memory.NewMemoryPreferencesRepository()
	store := storage.NewMockStore()
	notifier := &recordingNotifier{}
	refresher := &fakeRefresher{token: &oauth2.Token{AccessToken: "fresh-token", Expiry: time.Now().Add(time.Hour)}}

	user := model.NewUser("google_1", "user@example.com", "Test User", "stale-token", "refresh-token", time.Now())
	require.NoError(t, userRepo.Create(context.Background(), user))

	documents := NewDocumentService(recordRepo, &ai.MockAnalyzer{}, store, testLogger())
	svc := NewScanService(
		sessionRepo, userRepo, prefsRepo, documents, classifier,
		func(accessToken string) (GmailClient, error) { return client, nil },
		refresher, notifier, maxPages, testLogger(),
	)

	return &scanFixture{
		svc:         svc,
		userRepo:    userRepo,
		sessionRepo: sessionRepo,
		recordRepo:  recordRepo,
		store:       store,
		notifier:    notifier,
		refresher:   refresher,
		user:        user,
	}
}

// mailbox of 10 messages: the first 3 carry a PDF attachment and are medical
func fixtureMailbox() *gmail.MockGmailClient {
	return &gmail.MockGmailClient{
		ListPDFMessagesFunc: func(ctx context.Context, pageToken string) ([]string, string, error) {
			ids := make([]string, 10)
			for i := range ids {
				ids[i] = fmt.Sprintf("msg-%d", i)
			}
			return ids, "", nil
		},
		GetMessageFunc: func(ctx context.Context, id string) (*model.EmailMessage, error) {
			email := &model.EmailMessage{ID: id, Subject: "newsletter " + id, Body: "nothing here"}
			switch id {
			case "msg-0", "msg-1", "msg-2":
				email.Subject = "Your lab results " + id
				email.Body = "Results attached as PDF."
				email.Attachments = []model.AttachmentRef{
					{ID: "att-" + id, Filename: id + ".pdf", MimeType: "application/pdf"},
				}
			}
			return email, nil
		},
		GetAttachmentFunc: func(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
			return []byte("%PDF fake"), nil
		},
	}
}

func medicalByPrefix(prefix string) Classifier {
	verdict := func(id, subject string) model.EmailClassification {
		if len(subject) >= len(prefix) && subject[:len(prefix)] == prefix {
			return model.EmailClassification{ID: id, IsMedical: true, Confidence: 0.9}
		}
		return model.EmailClassification{ID: id, IsMedical: false, Confidence: 0.9}
	}
	return &ai.MockClassifier{
		ThresholdValue: 0.5,
		ScreenSubjectsFunc: func(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error) {
			var out []model.EmailClassification
			for _, e := range emails {
				out = append(out, verdict(e.ID, e.Subject))
			}
			return out, nil
		},
		ClassifyContentFunc: func(ctx context.Context, emails []model.EmailContent) ([]model.EmailClassification, error) {
			var out []model.EmailClassification
			for _, e := range emails {
				out = append(out, verdict(e.ID, e.Subject))
			}
			return out, nil
		},
	}
}

func TestRunScanStoresMedicalDocuments(t *testing.T) {
	f := newScanFixture(t, fixtureMailbox(), medicalByPrefix("Your lab results"), 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusPending, session.Status)

	require.NoError(t, f.svc.RunScan(context.Background(), f.user.ID, session.ID))

	final, err := f.svc.GetSession(context.Background(), f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, final.Status)
	assert.Equal(t, 10, final.ProcessedEmails)
	assert.Equal(t, 3, final.TotalDocuments)
	assert.NotNil(t, final.CompletedAt)

	records, _ := f.recordRepo.FindByUserID(context.Background(), f.user.ID)
	assert.Len(t, records, 3)
	assert.Equal(t, 3, f.store.Len())
	assert.True(t, f.notifier.has("scan_document"))
	assert.True(t, f.notifier.has("scan_completed"))
}

func TestRunScanStopsAtPageCeiling(t *testing.T) {
	pages := 0
	client := &gmail.MockGmailClient{
		ListPDFMessagesFunc: func(ctx context.Context, pageToken string) ([]string, string, error) {
			pages++
			return []string{fmt.Sprintf("msg-%d", pages)}, "next-token", nil
		},
		GetMessageFunc: func(ctx context.Context, id string) (*model.EmailMessage, error) {
			return &model.EmailMessage{ID: id, Subject: "newsletter"}, nil
		},
	}
	f := newScanFixture(t, client, medicalByPrefix("Your lab results"), 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)
	require.NoError(t, f.svc.RunScan(context.Background(), f.user.ID, session.ID))

	final, _ := f.svc.GetSession(context.Background(), f.user.ID, session.ID)
	assert.Equal(t, model.ScanStatusCompleted, final.Status)
	assert.Equal(t, 5, final.PagesScanned)
	assert.Equal(t, 5, pages)
}

func TestProcessNextPageAdvancesOnePage(t *testing.T) {
	client := &gmail.MockGmailClient{
		ListPDFMessagesFunc: func(ctx context.Context, pageToken string) ([]string, string, error) {
			if pageToken == "" {
				return []string{"msg-1"}, "page-2", nil
			}
			return []string{"msg-2"}, "", nil
		},
		GetMessageFunc: func(ctx context.Context, id string) (*model.EmailMessage, error) {
			return &model.EmailMessage{ID: id, Subject: "newsletter"}, nil
		},
	}
	f := newScanFixture(t, client, medicalByPrefix("Your lab results"), 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)

	session, err = f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusScanning, session.Status)
	assert.Equal(t, 1, session.PagesScanned)
	assert.Equal(t, 1, session.ProcessedEmails)

	session, err = f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, session.Status)
	assert.Equal(t, 2, session.ProcessedEmails)

	// A terminal session is returned as-is
	again, err := f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.ProcessedEmails)
}

func TestScanScreeningFailureMarksSessionError(t *testing.T) {
	classifier := &ai.MockClassifier{
		ThresholdValue: 0.5,
		ScreenSubjectsFunc: func(ctx context.Context, emails []model.EmailSummary) ([]model.EmailClassification, error) {
			return nil, errors.New("malformed batch response")
		},
	}
	f := newScanFixture(t, fixtureMailbox(), classifier, 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	assert.Error(t, err)

	final, _ := f.svc.GetSession(context.Background(), f.user.ID, session.ID)
	assert.Equal(t, model.ScanStatusError, final.Status)
	assert.NotEmpty(t, final.Error)
	assert.NotNil(t, final.CompletedAt)
	assert.True(t, f.notifier.has("scan_error"))
}

func TestScanRefreshesExpiredTokenOnce(t *testing.T) {
	failures := 0
	client := &gmail.MockGmailClient{
		ListPDFMessagesFunc: func(ctx context.Context, pageToken string) ([]string, string, error) {
			if failures == 0 {
				failures++
				return nil, "", fmt.Errorf("list: %w", gmail.ErrAuthExpired)
			}
			return nil, "", nil
		},
	}
	f := newScanFixture(t, client, medicalByPrefix("Your lab results"), 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)

	session, err = f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ScanStatusCompleted, session.Status)
	assert.Equal(t, 1, f.refresher.calls)

	// The refreshed token is persisted for later scans
	user, err := f.userRepo.FindByID(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.Equal(t, "fresh-token", user.AccessToken)
}

func TestScanRefreshFailureIsTerminal(t *testing.T) {
	client := &gmail.MockGmailClient{
		ListPDFMessagesFunc: func(ctx context.Context, pageToken string) ([]string, string, error) {
			return nil, "", gmail.ErrAuthExpired
		},
	}
	f := newScanFixture(t, client, medicalByPrefix("Your lab results"), 5)
	f.refresher.err = errors.New("invalid_grant")

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.ProcessNextPage(context.Background(), f.user.ID, session.ID)
	assert.ErrorIs(t, err, gmail.ErrAuthExpired)

	final, _ := f.svc.GetSession(context.Background(), f.user.ID, session.ID)
	assert.Equal(t, model.ScanStatusError, final.Status)
}

func TestGetSessionScopedToOwner(t *testing.T) {
	f := newScanFixture(t, fixtureMailbox(), medicalByPrefix("Your lab results"), 5)

	session, err := f.svc.StartScan(context.Background(), f.user.ID)
	require.NoError(t, err)

	_, err = f.svc.GetSession(context.Background(), "someone-else", session.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
