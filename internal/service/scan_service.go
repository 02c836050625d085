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
	"medvault/internal/sse"
)

var ErrSessionNotFound = errors.New("scan session not found")

// messageFetchWorkers bounds the concurrent message fetches per page.
const messageFetchWorkers = 5

// snippetLength bounds how much body text is sent to the content classifier.
const snippetLength = 500

type scanService struct {
	sessionRepo repository.ScanSessionRepository
	userRepo    repository.UserRepository
	prefsRepo   repository.PreferencesRepository
	documents   DocumentService
	classifier  Classifier
	clientFor   GmailClientFactory
	refresher   TokenRefresher
	notifier    ScanNotifier
	maxPages    int
	logger      *logger.Logger
}

func NewScanService(
	sessionRepo repository.ScanSessionRepository,
	userRepo repository.UserRepository,
	prefsRepo repository.PreferencesRepository,
	documents DocumentService,
	classifier Classifier,
	clientFor GmailClientFactory,
	refresher TokenRefresher,
	notifier ScanNotifier,
	maxPages int,
	logger *logger.Logger,
) ScanService {
	return &scanService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		prefsRepo:   prefsRepo,
		documents:   documents,
		classifier:  classifier,
		clientFor:   clientFor,
		refresher:   refresher,
		notifier:    notifier,
		maxPages:    maxPages,
		logger:      logger.Tagged("Scan"),
	}
}

func (s *scanService) StartScan(ctx context.Context, userID string) (*model.ScanSession, error) {
	session := model.NewScanSession(userID)
	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create scan session: %w", err)
	}
	s.logger.Info("Started scan session:", session.ID, "for user:", userID)
	return session, nil
}

func (s *scanService) GetSession(ctx context.Context, userID, sessionID string) (*model.ScanSession, error) {
	session, err := s.sessionRepo.FindByID(ctx, sessionID)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	if session.UserID != userID {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// ProcessNextPage advances a session by exactly one provider page. A
// failed page moves the session to the error state; callers see the page
// error and the persisted session reflects it.
func (s *scanService) ProcessNextPage(ctx context.Context, userID, sessionID string) (*model.ScanSession, error) {
	session, err := s.GetSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Terminal() {
		return session, nil
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	client := newRefreshingGmail(user, s.clientFor, s.refresher, s.userRepo, s.logger)

	session.Status = model.ScanStatusScanning
	if err := s.processPage(ctx, user, session, client); err != nil {
		s.failSession(ctx, session, err)
		return session, err
	}

	session.UpdatedAt = time.Now()
	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update scan session: %w", err)
	}

	s.notifier.BroadcastToUser(userID, eventTypeFor(session), session)
	return session, nil
}

// RunScan drives a session page by page until it reaches a terminal state.
func (s *scanService) RunScan(ctx context.Context, userID, sessionID string) error {
	for {
		session, err := s.ProcessNextPage(ctx, userID, sessionID)
		if err != nil {
			return err
		}
		if session.Terminal() {
			s.logger.Info("Scan session finished:", session.ID,
				"emails:", session.ProcessedEmails, "documents:", session.TotalDocuments)
			return nil
		}
	}
}

func eventTypeFor(session *model.ScanSession) string {
	if session.Status == model.ScanStatusCompleted {
		return sse.EventScanCompleted
	}
	return sse.EventScanProgress
}

func (s *scanService) failSession(ctx context.Context, session *model.ScanSession, cause error) {
	now := time.Now()
	session.Status = model.ScanStatusError
	session.Error = cause.Error()
	session.CompletedAt = &now
	session.UpdatedAt = now

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		s.logger.Error("Failed to persist scan error state:", err)
	}
	s.notifier.BroadcastToUser(session.UserID, sse.EventScanError, session)
	s.logger.Error("Scan session failed:", session.ID, cause)
}

func (s *scanService) processPage(ctx context.Context, user *model.User, session *model.ScanSession, client GmailClient) error {
	ids, next, err := client.ListPDFMessages(ctx, session.PageToken)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}

	emails := s.fetchMessages(ctx, client, ids)

	medical, err := s.selectMedical(ctx, emails)
	if err != nil {
		return err
	}

	language := s.userLanguage(ctx, user.ID)
	for _, email := range medical {
		stored, err := s.processAttachments(ctx, client, email, user.ID, language)
		if err != nil {
			return err
		}
		session.TotalDocuments += stored
	}

	session.TotalEmails += len(ids)
	session.ProcessedEmails += len(ids)
	session.PagesScanned++
	session.PageToken = next

	if next == "" || session.PagesScanned >= s.maxPages {
		now := time.Now()
		session.Status = model.ScanStatusCompleted
		session.CompletedAt = &now
	}
	return nil
}

// fetchMessages pulls full messages with a bounded worker pool, preserving
// list order. Individual fetch failures are skipped; the page goes on.
func (s *scanService) fetchMessages(ctx context.Context, client GmailClient, ids []string) []*model.EmailMessage {
	results := make([]*model.EmailMessage, len(ids))
	sem := make(chan struct{}, messageFetchWorkers)
	var wg sync.WaitGroup

	for i, id := range ids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, id string) {
			defer wg.Done()
			defer func() { <-sem }()

			email, err := client.GetMessage(ctx, id)
			if err != nil {
				s.logger.Warn("Failed to fetch message:", id, err)
				return
			}
			results[i] = email
		}(i, id)
	}
	wg.Wait()

	emails := make([]*model.EmailMessage, 0, len(ids))
	for _, email := range results {
		if email != nil {
			emails = append(emails, email)
		}
	}
	return emails
}

// selectMedical runs the two classification passes and returns the emails
// that clear the confidence threshold on full content.
func (s *scanService) selectMedical(ctx context.Context, emails []*model.EmailMessage) ([]*model.EmailMessage, error) {
	if len(emails) == 0 {
		return nil, nil
	}
	threshold := s.classifier.ClassifyThreshold()

	summaries := make([]model.EmailSummary, 0, len(emails))
	for _, email := range emails {
		summaries = append(summaries, model.EmailSummary{ID: email.ID, Subject: email.Subject})
	}

	screened, err := s.classifier.ScreenSubjects(ctx, summaries)
	if err != nil {
		return nil, fmt.Errorf("subject screening failed: %w", err)
	}

	byID := make(map[string]*model.EmailMessage, len(emails))
	for _, email := range emails {
		byID[email.ID] = email
	}

	var candidates []model.EmailContent
	for _, verdict := range screened {
		if !verdict.Medical(threshold) {
			continue
		}
		email := byID[verdict.ID]
		if email == nil {
			continue
		}
		candidates = append(candidates, model.EmailContent{
			ID:      email.ID,
			Subject: email.Subject,
			Snippet: snippet(email.Body),
		})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	confirmed, err := s.classifier.ClassifyContent(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("content classification failed: %w", err)
	}

	var medical []*model.EmailMessage
	for _, verdict := range confirmed {
		if verdict.Medical(threshold) {
			if email := byID[verdict.ID]; email != nil {
				medical = append(medical, email)
			}
		}
	}
	return medical, nil
}

// processAttachments analyzes every PDF attachment of one confirmed email
// and returns how many records were stored. Per-document rejections are
// counted as zero and skipped; infrastructure errors abort the page.
func (s *scanService) processAttachments(ctx context.Context, client GmailClient, email *model.EmailMessage, userID, language string) (int, error) {
	stored := 0
	for _, ref := range email.Attachments {
		if !gmail.IsPDFAttachment(ref) {
			continue
		}

		data, err := client.GetAttachment(ctx, email.ID, ref.ID)
		if err != nil {
			return stored, fmt.Errorf("failed to download attachment %s: %w", ref.Filename, err)
		}

		record, analysis, err := s.documents.AnalyzeAndStore(ctx, userID, ref.Filename, data, language)
		if err != nil {
			return stored, err
		}
		if record == nil {
			s.logger.Info("Attachment rejected:", ref.Filename, analysis.ErrorType)
			continue
		}

		stored++
		s.notifier.BroadcastToUser(userID, sse.EventScanDocument, record)
	}
	return stored, nil
}

func (s *scanService) userLanguage(ctx context.Context, userID string) string {
	prefs, err := s.prefsRepo.FindByUserID(ctx, userID)
	if err != nil || prefs.Language == "" {
		return "en"
	}
	return prefs.Language
}

func snippet(body string) string {
	runes := []rune(body)
	if len(runes) <= snippetLength {
		return body
	}
	return string(runes[:snippetLength])
}
