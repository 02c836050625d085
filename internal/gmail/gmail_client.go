package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"medvault/internal/logger"
	"medvault/internal/model"
)

// ErrAuthExpired signals that the mail provider rejected the access token.
// Callers refresh the token and retry the call once.
var ErrAuthExpired = errors.New("gmail access token expired")

// pdfQuery restricts listing to messages that actually carry PDF attachments.
const pdfQuery = "has:attachment filename:pdf"

type Client struct {
	client   *gmail.Service
	pageSize int64
	logger   *logger.Logger
}

func NewGmailClient(accessToken string, pageSize int64, timeout time.Duration, logger *logger.Logger) (*Client, error) {
	httpClient := &http.Client{
		Transport: &oauth2Transport{token: accessToken},
		Timeout:   timeout,
	}

	gmailService, err := gmail.NewService(context.Background(), option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &Client{
		client:   gmailService,
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

type oauth2Transport struct {
	token string
}

func (t *oauth2Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+t.token)
	return http.DefaultTransport.RoundTrip(req)
}

// ListPDFMessages returns one page of message ids matching the PDF
// attachment query, plus the token for the next page ("" on the last page).
func (g *Client) ListPDFMessages(ctx context.Context, pageToken string) ([]string, string, error) {
	call := g.client.Users.Messages.List("me").Q(pdfQuery).MaxResults(g.pageSize)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	list, err := call.Context(ctx).Do()
	if err != nil {
		return nil, "", wrapAuthError(err, "failed to list messages")
	}

	ids := make([]string, 0, len(list.Messages))
	for _, msg := range list.Messages {
		ids = append(ids, msg.Id)
	}

	g.logger.Debug("Listed", len(ids), "messages from Gmail")
	return ids, list.NextPageToken, nil
}

// GetMessage fetches one message in full format and decodes its headers,
// body, and attachment references.
func (g *Client) GetMessage(ctx context.Context, id string) (*model.EmailMessage, error) {
	message, err := g.client.Users.Messages.Get("me", id).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, wrapAuthError(err, "failed to get message "+id)
	}
	return BuildEmailMessage(message), nil
}

// GetAttachment downloads and decodes one attachment body.
func (g *Client) GetAttachment(ctx context.Context, messageID, attachmentID string) ([]byte, error) {
	attachment, err := g.client.Users.Messages.Attachments.Get("me", messageID, attachmentID).Context(ctx).Do()
	if err != nil {
		return nil, wrapAuthError(err, "failed to get attachment "+attachmentID)
	}

	data, err := base64.URLEncoding.DecodeString(attachment.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode attachment data: %w", err)
	}
	return data, nil
}

func wrapAuthError(err error, msg string) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w", msg, ErrAuthExpired)
	}
	return fmt.Errorf("%s: %w", msg, err)
}
