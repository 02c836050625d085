package gmail

import (
	"context"

	"medvault/internal/model"
)

// MockGmailClient is a configurable stand-in used in tests.
type MockGmailClient struct {
	ListPDFMessagesFunc func(ctx context.Context, pageToken string) ([]string, string, error)
	GetMessageFunc      func(ctx context.Context, id string) (*model.EmailMessage, error)
	GetAttachmentFunc   func(ctx context.Context, messageID, attachmentID string) ([]byte, error)
}

func (m *MockGmailClient) ListPDFMessages(ctx context.Context, pageToken string) ([]string, string, error) {
	if m.ListPDFMessagesFunc != nil {
		return m.ListPDFMessagesFunc(ctx, pageToken)
	}
	return nil, "", nil
}

func (m *MockGmailClient) GetMessage(ctx context.Context, id string) (*model.EmailMessage, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, id)
	}
	return &model.EmailMessage{ID: id}, nil
}

func (m *MockGmailClient) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	if m.GetAttachmentFunc != nil {
		return m.GetAttachmentFunc(ctx, messageID, attachmentID)
	}
	return nil, nil
}
